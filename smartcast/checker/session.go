package checker

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"go.uber.org/zap"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/cfg"

	"github.com/YuitoSato/gosmartcast/smartcast/dfa"
	"github.com/YuitoSato/gosmartcast/smartcast/internal"
)

// session analyses one function body. It owns its variable storage, logic
// system and flows; only the contract source is shared between sessions.
type session struct {
	fn        function
	info      *types.Info
	fset      *token.FileSet
	contracts ContractSource
	opts      *options
	logger    *zap.Logger

	storage *dfa.VariableStorage
	logic   *dfa.LogicSystem
	stable  map[*types.Var]bool

	// switches maps every case clause to its switch statement.
	switches map[*ast.CaseClause]ast.Stmt
	// caseIndex maps a SwitchNextCase block to the position, within its
	// clause, of the case expression whose test leads to it.
	caseIndex map[*cfg.Block]int
	// targets holds range keys and values and select receive targets. The
	// graph lists them as expressions but they are written, not read.
	targets map[ast.Node]bool

	// reporting is set for the final pass over the converged flows.
	reporting bool
	// calls lists the calls whose effects were evaluated, in order.
	calls []*ast.CallExpr

	findings findings
}

func newSession(pass *analysis.Pass, contracts ContractSource, o *options, fn function) *session {
	logger := o.logger.With(zap.String("func", fn.name), zap.Stringer("pos", pass.Fset.Position(fn.body.Pos())))
	return &session{
		fn:        fn,
		info:      pass.TypesInfo,
		fset:      pass.Fset,
		contracts: contracts,
		opts:      o,
		logger:    logger,
		storage:   dfa.NewVariableStorage(),
		logic:     dfa.NewLogicSystem(dfa.WithLogger(logger)),
		stable:    stableVariables(pass.TypesInfo, fn.recv, fn.ftype, fn.body),
		switches:  make(map[*ast.CaseClause]ast.Stmt),
		caseIndex: make(map[*cfg.Block]int),
		targets:   make(map[ast.Node]bool),
		findings: findings{
			casts:   make(map[ast.Expr]dfa.TypeStatement),
			invalid: make(map[*types.Func]invalidContract),
		},
	}
}

func (s *session) run(ctx context.Context) error {
	g := cfg.New(s.fn.body, func(call *ast.CallExpr) bool {
		return !internal.IsNoReturnCall(s.info, call)
	})
	s.index(g)

	inputs, err := s.fixpoint(ctx, g)
	if err != nil {
		return fmt.Errorf("smartcast: %s: %w", s.fn.name, err)
	}

	s.reporting = true
	for _, b := range g.Blocks {
		in := inputs[b.Index]
		if in == nil {
			if b.Live && b.Kind != cfg.KindUnreachable && len(b.Nodes) > 0 {
				s.findings.unreachable = append(s.findings.unreachable, b.Nodes[0].Pos())
			}
			continue
		}
		s.transfer(b, in)
	}
	return nil
}

// index records the syntactic context the graph does not carry.
func (s *session) index(g *cfg.CFG) {
	ast.Inspect(s.fn.body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.SwitchStmt:
			for _, c := range n.Body.List {
				s.switches[c.(*ast.CaseClause)] = n
			}
		case *ast.TypeSwitchStmt:
			for _, c := range n.Body.List {
				s.switches[c.(*ast.CaseClause)] = n
			}
		case *ast.RangeStmt:
			if n.Key != nil {
				s.targets[n.Key] = true
			}
			if n.Value != nil {
				s.targets[n.Value] = true
			}
		case *ast.CommClause:
			if a, ok := n.Comm.(*ast.AssignStmt); ok && len(a.Lhs) > 0 {
				s.targets[a.Lhs[0]] = true
			}
		}
		return true
	})

	seen := make(map[*ast.CaseClause]int)
	for _, b := range g.Blocks {
		if b.Kind != cfg.KindSwitchNextCase {
			continue
		}
		cc, ok := b.Stmt.(*ast.CaseClause)
		if !ok {
			continue
		}
		s.caseIndex[b] = seen[cc]
		seen[cc]++
	}
}

// entry returns the facts holding when the body starts: named results are
// zero valued.
func (s *session) entry() *dfa.Flow {
	flow := dfa.EmptyFlow()
	if s.fn.ftype.Results == nil {
		return flow
	}
	for _, field := range s.fn.ftype.Results.List {
		for _, name := range field.Names {
			if v, ok := s.variable(name); ok {
				flow = s.zero(flow, v)
			}
		}
	}
	return flow
}

// zero records the facts of a zero-valued variable.
func (s *session) zero(flow *dfa.Flow, v dfa.RealVariable) *dfa.Flow {
	switch {
	case dfa.CanBeNil(v.Type):
		return flow.WithOperation(dfa.OperationStatement{Var: v, Op: dfa.EqNull})
	case isBool(v.Type):
		return flow.WithOperation(dfa.OperationStatement{Var: v, Op: dfa.EqFalse})
	}
	return flow
}

// variable returns the identity of a stable reference: a stable variable or
// a chain of direct field selections rooted at one.
func (s *session) variable(e ast.Expr) (dfa.RealVariable, bool) {
	var (
		fields []string
		typ    types.Type
	)
	for {
		switch x := ast.Unparen(e).(type) {
		case *ast.Ident:
			if x.Name == "_" {
				return dfa.RealVariable{}, false
			}
			v := internal.ObjectOf(s.info, x)
			if v == nil || !s.stable[v] {
				return dfa.RealVariable{}, false
			}
			if len(fields) == 0 {
				return s.storage.Real(v, v.Type()), true
			}
			for i, j := 0, len(fields)-1; i < j; i, j = i+1, j-1 {
				fields[i], fields[j] = fields[j], fields[i]
			}
			return s.storage.Real(v, typ, fields...), true
		case *ast.SelectorExpr:
			sel, ok := s.info.Selections[x]
			if !ok || sel.Kind() != types.FieldVal || sel.Indirect() {
				return dfa.RealVariable{}, false
			}
			if typ == nil {
				typ = sel.Type()
			}
			fields = append(fields, x.Sel.Name)
			e = x.X
		default:
			return dfa.RealVariable{}, false
		}
	}
}

// operand returns the variable standing for the value of e in a condition
// or call: a stable reference, or the synthetic result of a call. Implicit
// conversions are looked through, and so are explicit conversions between
// interfaces, which keep nil nil.
func (s *session) operand(e ast.Expr) dfa.DataFlowVariable {
	e = ast.Unparen(e)
	if v, ok := s.variable(e); ok {
		return v
	}
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return nil
	}
	if internal.IsTypeExpr(s.info, call.Fun) {
		if len(call.Args) == 1 && isInterface(s.info.TypeOf(call.Fun)) && isInterface(s.info.TypeOf(call.Args[0])) {
			return s.operand(call.Args[0])
		}
		return nil
	}
	return s.storage.Synthetic(call)
}

// recordCast remembers the facts known at a use of a tracked variable.
func (s *session) recordCast(flow *dfa.Flow, e ast.Expr) {
	if !s.reporting || flow == nil {
		return
	}
	v, ok := s.variable(e)
	if !ok {
		return
	}
	if st, ok := flow.TypeStatement(v); ok && !st.IsEmpty() {
		s.findings.casts[e] = st
	}
}

func (s *session) reportf(pos token.Pos, end token.Pos, category, format string, args ...any) {
	if !s.reporting {
		return
	}
	s.findings.diagnostics = append(s.findings.diagnostics, analysis.Diagnostic{
		Pos:      pos,
		End:      end,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	})
}

func isBool(t types.Type) bool {
	if t == nil {
		return false
	}
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsBoolean != 0
}
