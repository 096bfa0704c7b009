// Package smartcast provides an analyzer that narrows the types of variables
// along the control flow of every function and reports nil dereferences and
// conditions whose outcome the narrowed facts already decide.
package smartcast

import (
	"reflect"

	"go.uber.org/zap"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"

	"github.com/YuitoSato/gosmartcast/smartcast/checker"
	"github.com/YuitoSato/gosmartcast/smartcast/facts"
	"github.com/YuitoSato/gosmartcast/smartcast/internal"
)

var Analyzer = &analysis.Analyzer{
	Name: "smartcast",
	Doc:  "reports nil dereferences and constant conditions proven by flow-sensitive smart casts",
	Run:  run,
	Requires: []*analysis.Analyzer{
		inspect.Analyzer,
	},
	FactTypes: []analysis.Fact{
		(*facts.ContractFact)(nil),
	},
	ResultType: reflect.TypeOf((*checker.Result)(nil)),
}

var (
	contractsFile string
	trace         bool
)

func init() {
	Analyzer.Flags.StringVar(&contractsFile, "contracts", "", "contract file (YAML, or msgpack with a .msgpack or .mpk extension) applied after the project's .smartcast.yaml")
	Analyzer.Flags.Func("ignore", "comma-separated package paths to skip; a trailing /... matches subpackages", func(s string) error {
		internal.SetIgnorePackages(s)
		return nil
	})
	Analyzer.Flags.BoolVar(&trace, "trace", false, "log the analysis of every function body to stderr")
}

func run(pass *analysis.Pass) (interface{}, error) {
	// Ignored packages are neither checked nor export their contracts.
	if internal.ShouldIgnorePackage(pass.Pkg.Path()) {
		return &checker.Result{}, nil
	}

	logger := newLogger()

	// Phase 1: Parse the contract directives of this package and export facts
	contracts, err := newResolver(pass, logger)
	if err != nil {
		return nil, err
	}

	// Phase 2: Narrow every function body and report what the facts prove
	result, err := checker.Check(pass, contracts.cache,
		checker.WithLogger(logger),
		checker.WithLocalContracts(contracts.isLocal),
	)
	if err != nil {
		return nil, err
	}
	logger.Debug("package checked", zap.String("pkg", pass.Pkg.Path()), zap.Int("contracts", contracts.cache.Len()))
	return result, nil
}

func newLogger() *zap.Logger {
	if !trace {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
