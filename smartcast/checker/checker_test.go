package checker_test

import (
	"go/ast"
	"go/types"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/analysistest"
	"golang.org/x/tools/go/analysis/passes/inspect"

	"github.com/YuitoSato/gosmartcast/smartcast/checker"
	"github.com/YuitoSato/gosmartcast/smartcast/contract"
	"github.com/YuitoSato/gosmartcast/smartcast/dfa"
)

// directives is a contract source reading the directives of the package
// under analysis.
type directives struct {
	contracts map[*types.Func]*contract.Contract
	errs      map[*types.Func]error
}

func collectDirectives(pass *analysis.Pass) *directives {
	d := &directives{
		contracts: make(map[*types.Func]*contract.Contract),
		errs:      make(map[*types.Func]error),
	}
	for _, f := range pass.Files {
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok {
				continue
			}
			fn, ok := pass.TypesInfo.Defs[fd.Name].(*types.Func)
			if !ok {
				continue
			}
			sig := fn.Type().(*types.Signature)
			ct, err := contract.ParseDirectives(fn.FullName(), fd.Doc, contract.NewSignatureBinder(pass.Pkg, sig))
			if err != nil {
				d.errs[fn] = err
				continue
			}
			if ct != nil {
				d.contracts[fn] = ct
			}
		}
	}
	return d
}

func (d *directives) Lookup(fn *types.Func) (*contract.Contract, error) {
	fn = fn.Origin()
	if err, ok := d.errs[fn]; ok {
		return nil, err
	}
	return d.contracts[fn], nil
}

type testMode int

const (
	modeDefault testMode = iota
	// modeForeign treats every contract as declared elsewhere, so invalid
	// ones are reported at their calls.
	modeForeign
	// modeUnreachable also reports the blocks the facts prove dead.
	modeUnreachable
)

// newTestAnalyzer runs Check and reports, in addition to its diagnostics,
// the smart casts known for the arguments of every call to a function named
// show.
func newTestAnalyzer(mode testMode) *analysis.Analyzer {
	return &analysis.Analyzer{
		Name:       "checkertest",
		Doc:        "test analyzer that runs the checker and reports smart casts",
		Requires:   []*analysis.Analyzer{inspect.Analyzer},
		ResultType: reflect.TypeOf((*checker.Result)(nil)),
		Run: func(pass *analysis.Pass) (interface{}, error) {
			var opts []checker.Option
			if mode == modeForeign {
				opts = append(opts, checker.WithLocalContracts(func(*types.Func) bool { return false }))
			}
			res, err := checker.Check(pass, collectDirectives(pass), opts...)
			if err != nil {
				return nil, err
			}
			reportCasts(pass, res)
			if mode == modeUnreachable {
				for _, pos := range res.Unreachable {
					pass.Reportf(pos, "unreachable")
				}
			}
			return res, nil
		},
	}
}

func reportCasts(pass *analysis.Pass, res *checker.Result) {
	for _, f := range pass.Files {
		ast.Inspect(f, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			if id, ok := call.Fun.(*ast.Ident); !ok || id.Name != "show" {
				return true
			}
			for _, arg := range call.Args {
				if st, ok := res.SmartCast(arg); ok {
					pass.Reportf(arg.Pos(), "%s is %s", types.ExprString(arg), describe(pass.Pkg, st))
				}
			}
			return true
		})
	}
}

func describe(pkg *types.Package, st dfa.TypeStatement) string {
	var parts []string
	if st.Nil {
		parts = append(parts, "nil")
	}
	if st.NotNil {
		parts = append(parts, "non-nil")
	}
	for _, t := range st.Exact {
		parts = append(parts, types.TypeString(t, types.RelativeTo(pkg)))
	}
	return strings.Join(parts, " and ")
}

func TestCheckerDeref(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, newTestAnalyzer(modeDefault), "deref")
}

func TestCheckerConditions(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, newTestAnalyzer(modeDefault), "conditions")
}

func TestCheckerCasts(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, newTestAnalyzer(modeDefault), "casts")
}

func TestCheckerContracts(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, newTestAnalyzer(modeDefault), "contracts")
}

func TestCheckerLoops(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, newTestAnalyzer(modeDefault), "loops")
}

func TestCheckerStability(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, newTestAnalyzer(modeDefault), "stability")
}

func TestCheckerInvalidContract(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, newTestAnalyzer(modeForeign), "invalid")
}

func TestCheckerUnreachable(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, newTestAnalyzer(modeUnreachable), "unreachable")
}

func TestCheckerDeterministic(t *testing.T) {
	testdata := analysistest.TestData()
	var first []string
	for i := 0; i < 3; i++ {
		results := analysistest.Run(t, testdata, newTestAnalyzer(modeDefault), "conditions")
		var got []string
		for _, r := range results {
			for _, d := range r.Diagnostics {
				got = append(got, d.Message)
			}
		}
		if i == 0 {
			first = got
			continue
		}
		if strings.Join(got, "\n") != strings.Join(first, "\n") {
			t.Errorf("run %d reported\n%s\nwant\n%s", i, strings.Join(got, "\n"), strings.Join(first, "\n"))
		}
	}
}
