// Package checker walks the control-flow graph of every function body,
// tracks the nullability and type facts of stable variables with the dfa
// logic system and reports what the facts prove: dereferences of values that
// are always nil and conditions whose outcome is fixed.
package checker

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/YuitoSato/gosmartcast/smartcast/contract"
	"github.com/YuitoSato/gosmartcast/smartcast/dfa"
)

// Diagnostic categories.
const (
	CategoryNilDereference = "nil-dereference"
	CategoryCondition      = "constant-condition"
	CategoryContract       = "invalid-contract"
)

// defaultMaxVisits bounds how often a block is re-analysed before its
// facts are dropped.
const defaultMaxVisits = 32

// ContractSource resolves the contract of a called function. A function
// without a contract yields (nil, nil); an error excludes the contract.
type ContractSource interface {
	Lookup(fn *types.Func) (*contract.Contract, error)
}

// Result is the outcome of checking one package. It is the analyzer's result
// for downstream analyzers.
type Result struct {
	// SmartCasts holds, for every use of a tracked variable, the facts known
	// at that use. Uses without facts are absent.
	SmartCasts map[ast.Expr]dfa.TypeStatement
	// Unreachable holds the start of every block that the facts prove dead
	// although the control-flow graph reaches it.
	Unreachable []token.Pos
}

// SmartCast returns the facts known for e at its position.
func (r *Result) SmartCast(e ast.Expr) (dfa.TypeStatement, bool) {
	if r == nil {
		return dfa.TypeStatement{}, false
	}
	s, ok := r.SmartCasts[e]
	return s, ok
}

type options struct {
	logger      *zap.Logger
	concurrency int
	maxVisits   int
	local       func(fn *types.Func) bool
}

// Option configures Check.
type Option func(*options)

// WithLogger enables debug tracing of sessions and of the logic system.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConcurrency limits the number of function bodies analysed at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxVisits sets how often a block may be re-analysed during the loop
// fixpoint before its facts are dropped.
func WithMaxVisits(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxVisits = n
		}
	}
}

// WithLocalContracts tells Check which functions had their contracts
// validated (and invalid ones reported) at their declaration. Contract errors
// of other functions are reported at their first call.
func WithLocalContracts(local func(fn *types.Func) bool) Option {
	return func(o *options) {
		o.local = local
	}
}

// Check analyses every function body and function literal of the package.
// Bodies are analysed concurrently; diagnostics are reported in position
// order once every body is done.
func Check(pass *analysis.Pass, contracts ContractSource, opts ...Option) (*Result, error) {
	o := &options{
		logger:      zap.NewNop(),
		concurrency: runtime.GOMAXPROCS(0),
		maxVisits:   defaultMaxVisits,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.local == nil {
		pkg := pass.Pkg
		o.local = func(fn *types.Func) bool { return fn.Pkg() == pkg }
	}

	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	var bodies []function
	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
		(*ast.FuncLit)(nil),
	}
	insp.Preorder(nodeFilter, func(n ast.Node) {
		switch fn := n.(type) {
		case *ast.FuncDecl:
			if fn.Body != nil {
				bodies = append(bodies, function{name: fn.Name.Name, recv: fn.Recv, ftype: fn.Type, body: fn.Body})
			}
		case *ast.FuncLit:
			bodies = append(bodies, function{name: "func literal", ftype: fn.Type, body: fn.Body})
		}
	})

	results := make([]*findings, len(bodies))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(o.concurrency)
	for i, fn := range bodies {
		g.Go(func() error {
			s := newSession(pass, contracts, o, fn)
			if err := s.run(ctx); err != nil {
				return err
			}
			results[i] = &s.findings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return report(pass, results), nil
}

// function is one body to analyse.
type function struct {
	name  string
	recv  *ast.FieldList
	ftype *ast.FuncType
	body  *ast.BlockStmt
}

// findings collects what one session proved.
type findings struct {
	diagnostics []analysis.Diagnostic
	casts       map[ast.Expr]dfa.TypeStatement
	unreachable []token.Pos
	// invalid maps non-local functions with a broken contract to the first
	// call that needed it.
	invalid map[*types.Func]invalidContract
}

type invalidContract struct {
	pos token.Pos
	err error
}

func report(pass *analysis.Pass, all []*findings) *Result {
	res := &Result{SmartCasts: make(map[ast.Expr]dfa.TypeStatement)}
	var diags []analysis.Diagnostic
	invalid := make(map[*types.Func]invalidContract)

	for _, f := range all {
		if f == nil {
			continue
		}
		diags = append(diags, f.diagnostics...)
		for e, s := range f.casts {
			res.SmartCasts[e] = s
		}
		res.Unreachable = append(res.Unreachable, f.unreachable...)
		for fn, ic := range f.invalid {
			if prev, ok := invalid[fn]; !ok || ic.pos < prev.pos {
				invalid[fn] = ic
			}
		}
	}
	for fn, ic := range invalid {
		diags = append(diags, analysis.Diagnostic{
			Pos:      ic.pos,
			Category: CategoryContract,
			Message:  "invalid contract on " + fn.FullName() + ": " + ic.err.Error(),
		})
	}

	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Pos != diags[j].Pos {
			return diags[i].Pos < diags[j].Pos
		}
		return diags[i].Message < diags[j].Message
	})
	sort.Slice(res.Unreachable, func(i, j int) bool { return res.Unreachable[i] < res.Unreachable[j] })
	for _, d := range diags {
		pass.Report(d)
	}
	return res
}
