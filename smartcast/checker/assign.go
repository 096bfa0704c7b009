package checker

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/YuitoSato/gosmartcast/smartcast/contract"
	"github.com/YuitoSato/gosmartcast/smartcast/dfa"
	"github.com/YuitoSato/gosmartcast/smartcast/internal"
)

// value describes what an assignment stores, as far as facts go.
type value struct {
	typ types.Type
	// op is a fact about the stored value itself, zero when none is known.
	op dfa.Operation
	// source is the stable variable being copied, if any.
	source dfa.RealVariable
	facts  dfa.TypeStatement
	// known and implications are carried over from the source or from the
	// synthetic result of a call.
	known        dfa.Operation
	implications []dfa.Implication
	// onTrue and onFalse hold the facts a boolean expression proves when it
	// evaluates to true and to false.
	boolean         bool
	onTrue, onFalse dfa.Result
}

func (s *session) assign(flow *dfa.Flow, a *ast.AssignStmt) *dfa.Flow {
	switch a.Tok {
	case token.ASSIGN, token.DEFINE:
	default:
		// x op= y
		return s.overwrite(s.expr(flow, a.Rhs[0]), a.Lhs[0])
	}
	if len(a.Rhs) == 1 {
		if ta, ok := ast.Unparen(a.Rhs[0]).(*ast.TypeAssertExpr); ok && ta.Type == nil {
			// Type switch guard.
			return s.expr(flow, ta.X)
		}
	}
	return s.store(flow, a.Lhs, a.Rhs)
}

func (s *session) declare(flow *dfa.Flow, spec *ast.ValueSpec) *dfa.Flow {
	lhs := make([]ast.Expr, len(spec.Names))
	for i, name := range spec.Names {
		lhs[i] = name
	}
	if len(spec.Values) > 0 {
		return s.store(flow, lhs, spec.Values)
	}
	for _, name := range spec.Names {
		if v, ok := s.variable(name); ok {
			flow = s.zero(flow.Erase(v), v)
		}
	}
	return flow
}

// store assigns rhs to lhs. The right-hand sides are evaluated first, then
// every target is erased, then the new facts are bound.
func (s *session) store(flow *dfa.Flow, lhs, rhs []ast.Expr) *dfa.Flow {
	if len(lhs) != len(rhs) {
		return s.storeTuple(flow, lhs, rhs[0])
	}
	for _, r := range rhs {
		flow = s.expr(flow, r)
	}
	if flow == nil {
		return nil
	}
	values := make([]value, len(rhs))
	for i, r := range rhs {
		values[i] = s.valueOf(flow, r)
	}
	targets, flow := s.targetsOf(flow, lhs)
	if flow == nil {
		return nil
	}
	single := len(lhs) == 1
	for i, t := range targets {
		if t.IsValid() {
			flow = s.bind(flow, t, values[i], single)
		}
	}
	return flow
}

// storeTuple assigns the results of one multi-value expression.
func (s *session) storeTuple(flow *dfa.Flow, lhs []ast.Expr, rhs ast.Expr) *dfa.Flow {
	rhs = ast.Unparen(rhs)
	if ta, ok := rhs.(*ast.TypeAssertExpr); ok && len(lhs) == 2 {
		return s.commaOk(flow, lhs, ta)
	}
	flow = s.expr(flow, rhs)
	if flow == nil {
		return nil
	}
	var last value
	call, isCall := rhs.(*ast.CallExpr)
	if isCall {
		last = s.valueOf(flow, call)
		last.typ = nil
		if sig, ok := s.info.TypeOf(call).(*types.Tuple); ok && sig.Len() > 0 {
			last.typ = sig.At(sig.Len() - 1).Type()
		}
	}
	targets, flow := s.targetsOf(flow, lhs)
	if flow == nil {
		return nil
	}
	if isCall {
		if t := targets[len(targets)-1]; t.IsValid() {
			flow = s.bind(flow, t, last, false)
		}
	}
	return flow
}

// commaOk handles v, ok := x.(T): ok is true exactly when x holds a T, in
// which case v is that value; otherwise v is the zero value of T.
func (s *session) commaOk(flow *dfa.Flow, lhs []ast.Expr, ta *ast.TypeAssertExpr) *dfa.Flow {
	flow = s.expr(flow, ta.X)
	if flow == nil {
		return nil
	}
	t := s.info.TypeOf(ta.Type)
	onTrue, onFalse := dfa.NoInformation(), dfa.NoInformation()
	if x := s.operand(ta.X); x != nil {
		pred := contract.IsInstancePredicate{
			Arg:  contract.ValueParameterReference{ParameterIndex: 0, Name: types.ExprString(ta.X)},
			Type: t,
		}
		args := []dfa.DataFlowVariable{nil, x}
		onTrue, _ = s.evaluate(flow, pred, args, nil, false, false)
		onFalse, _ = s.evaluate(flow, pred, args, nil, true, false)
	}

	targets, flow := s.targetsOf(flow, lhs)
	if flow == nil {
		return nil
	}
	v, ok := targets[0], targets[1]
	for _, t := range targets {
		if t.IsValid() {
			onTrue = without(onTrue, t.Symbol)
			onFalse = without(onFalse, t.Symbol)
		}
	}
	if v.IsValid() {
		if isInterface(t) {
			onTrue = dfa.AndResults(onTrue, dfa.Satisfiable(dfa.TypeStatements{v: {Var: v, NotNil: true}}))
		}
		if dfa.CanBeNil(t) {
			onFalse = dfa.AndResults(onFalse, dfa.Satisfiable(dfa.TypeStatements{v: {Var: v, Nil: true}}))
		}
	}
	if ok.IsValid() {
		flow = s.logic.AddImplications(flow, dfa.OperationStatement{Var: ok, Op: dfa.EqTrue}, onTrue)
		flow = s.logic.AddImplications(flow, dfa.OperationStatement{Var: ok, Op: dfa.EqFalse}, onFalse)
	}
	return flow
}

// targetsOf evaluates the side effects of the assignment targets and erases
// the tracked ones. Untracked targets are returned invalid.
func (s *session) targetsOf(flow *dfa.Flow, lhs []ast.Expr) ([]dfa.RealVariable, *dfa.Flow) {
	targets := make([]dfa.RealVariable, len(lhs))
	for i, l := range lhs {
		next, v, ok := s.target(flow, l)
		if next == nil {
			return nil, nil
		}
		flow = next
		if ok {
			targets[i] = v
		}
	}
	for _, t := range targets {
		if t.IsValid() {
			flow = flow.Erase(t)
		}
	}
	return targets, flow
}

// target resolves an assignment target. A tracked target is not evaluated;
// any other target is, for the dereferences it performs.
func (s *session) target(flow *dfa.Flow, e ast.Expr) (*dfa.Flow, dfa.RealVariable, bool) {
	if flow == nil {
		return nil, dfa.RealVariable{}, false
	}
	if v, ok := s.variable(e); ok {
		return flow, v, true
	}
	if id, ok := ast.Unparen(e).(*ast.Ident); ok && id.Name == "_" {
		return flow, dfa.RealVariable{}, false
	}
	return s.expr(flow, e), dfa.RealVariable{}, false
}

// valueOf describes rhs on the flow before the assignment.
func (s *session) valueOf(flow *dfa.Flow, rhs ast.Expr) value {
	rhs = ast.Unparen(rhs)
	val := value{typ: s.info.TypeOf(rhs)}

	if internal.IsNilIdent(s.info, rhs) {
		val.op = dfa.EqNull
		return val
	}
	if b, ok := boolConstant(s.info, rhs); ok {
		val.op = dfa.EqFalse
		if b {
			val.op = dfa.EqTrue
		}
		return val
	}
	if s.nonNil(rhs) {
		val.op = dfa.NotEqNull
		return val
	}
	if v, ok := s.variable(rhs); ok {
		val.source = v
		val.facts, _ = flow.TypeStatement(v)
		val.known, _ = flow.KnownOperation(v)
		val.implications = flow.Implications(v)
		return val
	}

	switch x := rhs.(type) {
	case *ast.CallExpr:
		if internal.IsTypeExpr(s.info, x.Fun) {
			if len(x.Args) != 1 {
				return val
			}
			inner := s.valueOf(flow, x.Args[0])
			if boxes(inner.typ, val.typ) {
				// A non-interface value boxed in an interface is never a nil
				// interface, whatever its own nullability.
				return value{typ: val.typ, op: dfa.NotEqNull}
			}
			return inner
		}
		syn := s.storage.Synthetic(x)
		val.known, _ = flow.KnownOperation(syn)
		val.implications = flow.Implications(syn)
	case *ast.BinaryExpr, *ast.UnaryExpr:
		if !isBool(val.typ) {
			return val
		}
		c := s.translate(flow, rhs)
		val.boolean = true
		val.onTrue, _ = s.evaluate(flow, c.expr, c.args, nil, false, false)
		val.onFalse, _ = s.evaluate(flow, c.expr, c.args, nil, true, false)
	}
	return val
}

// nonNil reports whether rhs always yields a non-nil value.
func (s *session) nonNil(rhs ast.Expr) bool {
	switch x := rhs.(type) {
	case *ast.UnaryExpr:
		return x.Op == token.AND
	case *ast.FuncLit:
		return true
	case *ast.CompositeLit:
		switch s.info.TypeOf(x).Underlying().(type) {
		case *types.Map, *types.Slice:
			return true
		}
	case *ast.CallExpr:
		if id, ok := ast.Unparen(x.Fun).(*ast.Ident); ok {
			if b, ok := s.info.Uses[id].(*types.Builtin); ok {
				return b.Name() == "new" || b.Name() == "make"
			}
		}
	case *ast.TypeAssertExpr:
		return x.Type != nil && isInterface(s.info.TypeOf(x.Type))
	}
	return false
}

// bind records the facts of val for target, which has just been erased. A
// single assignment from a stable variable of the same type makes target an
// alias of it.
func (s *session) bind(flow *dfa.Flow, target dfa.RealVariable, val value, alias bool) *dfa.Flow {
	root := target.Symbol
	if boxes(val.typ, target.Type) {
		return flow.WithOperation(dfa.OperationStatement{Var: target, Op: dfa.NotEqNull})
	}
	nilFlows := nilTransfers(val.typ, target.Type)

	switch {
	case val.op != 0:
		if val.op == dfa.EqNull && !nilFlows {
			return flow
		}
		return flow.WithOperation(dfa.OperationStatement{Var: target, Op: val.op})

	case val.source.IsValid():
		if val.source.RootedAt(root) {
			return flow
		}
		if alias && types.Identical(val.source.Type, target.Type) {
			return flow.WithAlias(target, val.source)
		}
		facts := dfa.TypeStatement{Var: target, NotNil: val.facts.NotNil, Nil: val.facts.Nil && nilFlows}
		if isInterface(target.Type) && isInterface(val.source.Type) {
			facts.Exact = val.facts.Exact
		}
		if !facts.IsEmpty() {
			flow = flow.WithTypeStatement(facts)
		}
	}

	if val.known != 0 && (val.known != dfa.EqNull || nilFlows) {
		flow = flow.WithOperation(dfa.OperationStatement{Var: target, Op: val.known})
	}
	for _, imp := range val.implications {
		if effectRootedAt(imp.Effect, root) {
			continue
		}
		imp.Condition.Var = target
		flow = flow.WithImplication(imp)
	}
	if val.boolean {
		flow = s.logic.AddImplications(flow, dfa.OperationStatement{Var: target, Op: dfa.EqTrue}, without(val.onTrue, root))
		flow = s.logic.AddImplications(flow, dfa.OperationStatement{Var: target, Op: dfa.EqFalse}, without(val.onFalse, root))
	}
	return flow
}

// boxes reports whether storing a value of type from in a variable of type
// to wraps it in a non-nil interface.
func boxes(from, to types.Type) bool {
	if from == nil || !isInterface(to) || types.IsInterface(from) || dfa.IsNilType(from) {
		return false
	}
	return true
}

// nilTransfers reports whether a nil value of type from stays nil once
// stored in a variable of type to.
func nilTransfers(from, to types.Type) bool {
	return from == nil || !isInterface(to) || isInterface(from) || dfa.IsNilType(from)
}

func effectRootedAt(e dfa.Statement, root *types.Var) bool {
	rv, ok := e.Variable().(dfa.RealVariable)
	return ok && rv.RootedAt(root)
}

// without drops the facts of r about variables rooted at root.
func without(r dfa.Result, root *types.Var) dfa.Result {
	if r.IsContradiction() {
		return r
	}
	ts := r.Statements()
	out := make(dfa.TypeStatements, len(ts))
	for v, st := range ts {
		if !v.RootedAt(root) {
			out[v] = st
		}
	}
	return dfa.Satisfiable(out)
}
