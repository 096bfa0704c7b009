package checker

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/YuitoSato/gosmartcast/smartcast/contract"
	"github.com/YuitoSato/gosmartcast/smartcast/dfa"
	"github.com/YuitoSato/gosmartcast/smartcast/internal"
)

// node applies one node of a block to flow. A nil result means the rest of
// the block cannot be reached.
func (s *session) node(flow *dfa.Flow, n ast.Node) *dfa.Flow {
	switch n := n.(type) {
	case *ast.AssignStmt:
		return s.assign(flow, n)
	case *ast.ValueSpec:
		return s.declare(flow, n)
	case *ast.ExprStmt:
		return s.expr(flow, n.X)
	case *ast.IncDecStmt:
		return s.overwrite(flow, n.X)
	case *ast.SendStmt:
		return s.expr(s.expr(flow, n.Chan), n.Value)
	case *ast.GoStmt:
		return s.call(flow, n.Call, false)
	case *ast.DeferStmt:
		return s.call(flow, n.Call, false)
	case *ast.ReturnStmt:
		for _, r := range n.Results {
			flow = s.expr(flow, r)
		}
		return flow
	case ast.Expr:
		if s.targets[n] {
			return s.overwrite(flow, n)
		}
		return s.expr(flow, n)
	}
	return flow
}

// overwrite forgets the facts of a target written with an unknown value.
func (s *session) overwrite(flow *dfa.Flow, e ast.Expr) *dfa.Flow {
	next, v, ok := s.target(flow, e)
	if ok {
		next = next.Erase(v)
	}
	return next
}

// expr evaluates e for its effects on flow: dereferences, calls with
// contracts and the short-circuit narrowing of && and ||.
func (s *session) expr(flow *dfa.Flow, e ast.Expr) *dfa.Flow {
	if flow == nil || e == nil {
		return flow
	}
	switch e := e.(type) {
	case *ast.ParenExpr:
		return s.expr(flow, e.X)
	case *ast.Ident:
		s.recordCast(flow, e)
	case *ast.SelectorExpr:
		return s.selector(flow, e)
	case *ast.StarExpr:
		if internal.IsTypeExpr(s.info, e) {
			return flow
		}
		return s.dereference(s.expr(flow, e.X), e.X, e)
	case *ast.UnaryExpr:
		return s.expr(flow, e.X)
	case *ast.BinaryExpr:
		if e.Op == token.LAND || e.Op == token.LOR {
			return s.shortCircuit(flow, e)
		}
		return s.expr(s.expr(flow, e.X), e.Y)
	case *ast.CallExpr:
		return s.call(flow, e, true)
	case *ast.IndexExpr:
		return s.expr(s.expr(flow, e.X), e.Index)
	case *ast.IndexListExpr:
		return s.expr(flow, e.X)
	case *ast.SliceExpr:
		for _, x := range []ast.Expr{e.X, e.Low, e.High, e.Max} {
			flow = s.expr(flow, x)
		}
		return flow
	case *ast.TypeAssertExpr:
		flow = s.expr(flow, e.X)
		if e.Type != nil {
			flow = s.assertType(flow, e)
		}
		return flow
	case *ast.CompositeLit:
		return s.compositeLit(flow, e)
	case *ast.KeyValueExpr:
		return s.expr(s.expr(flow, e.Key), e.Value)
	}
	return flow
}

func (s *session) selector(flow *dfa.Flow, e *ast.SelectorExpr) *dfa.Flow {
	sel, ok := s.info.Selections[e]
	if !ok {
		// Qualified identifier.
		return flow
	}
	flow = s.expr(flow, e.X)
	if flow == nil {
		return nil
	}
	xt := s.info.TypeOf(e.X)
	switch sel.Kind() {
	case types.FieldVal:
		if internal.IsPointer(xt) {
			flow = s.dereference(flow, e.X, e)
		}
	case types.MethodVal:
		if isInterface(xt) || (internal.IsPointer(xt) && !pointerReceiver(sel.Obj())) {
			flow = s.dereference(flow, e.X, e)
		}
	}
	s.recordCast(flow, e)
	return flow
}

func pointerReceiver(obj types.Object) bool {
	sig, ok := obj.Type().(*types.Signature)
	return ok && sig.Recv() != nil && internal.IsPointer(sig.Recv().Type())
}

// dereference records that x is dereferenced at the node at. A dereference
// of a value known to be nil is reported; after any dereference x is known
// to be non-nil.
func (s *session) dereference(flow *dfa.Flow, x ast.Expr, at ast.Node) *dfa.Flow {
	if flow == nil {
		return nil
	}
	v, ok := s.variable(x)
	if !ok {
		return flow
	}
	if st, _ := flow.TypeStatement(v); st.Nil {
		s.reportf(at.Pos(), at.End(), CategoryNilDereference, "nil dereference: %s is always nil here", types.ExprString(x))
		return flow
	}
	r, next := s.logic.ApproveOperationStatement(flow, dfa.OperationStatement{Var: v, Op: dfa.NotEqNull}, false)
	if r.IsContradiction() {
		return flow
	}
	return s.logic.ApplyResult(next, r)
}

// shortCircuit evaluates a && b or a || b. b is evaluated only on the flow
// where a lets it run; the result is the join of that path and the one that
// skips b.
func (s *session) shortCircuit(flow *dfa.Flow, e *ast.BinaryExpr) *dfa.Flow {
	flow = s.expr(flow, e.X)
	if flow == nil {
		return nil
	}
	c := s.translate(flow, e.X)
	skipsOnTrue := e.Op == token.LOR
	run := s.assume(flow, c, skipsOnTrue)
	skip := s.assume(flow, c, !skipsOnTrue)

	mark := len(s.calls)
	out := s.expr(run, e.Y)
	joined := s.logic.JoinFlows(skip, out)
	if joined == nil || out == nil || skip == nil {
		return joined
	}
	// Facts about results of calls made in b only exist on one side of the
	// join; they stay meaningful because they are keyed on those calls.
	for _, call := range s.calls[mark:] {
		syn := s.storage.Synthetic(call)
		if op, ok := out.KnownOperation(syn); ok {
			joined = joined.WithOperation(dfa.OperationStatement{Var: syn, Op: op})
		}
		for _, imp := range out.Implications(syn) {
			joined = joined.WithImplication(imp)
		}
	}
	return joined
}

func (s *session) compositeLit(flow *dfa.Flow, e *ast.CompositeLit) *dfa.Flow {
	t := s.info.TypeOf(e)
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	_, isStruct := t.Underlying().(*types.Struct)
	for _, el := range e.Elts {
		if kv, ok := el.(*ast.KeyValueExpr); ok && isStruct {
			flow = s.expr(flow, kv.Value)
			continue
		}
		flow = s.expr(flow, el)
	}
	return flow
}

// assertType applies a panicking type assertion: past it, the operand holds
// a value of the asserted type.
func (s *session) assertType(flow *dfa.Flow, e *ast.TypeAssertExpr) *dfa.Flow {
	if flow == nil {
		return nil
	}
	x := s.operand(e.X)
	if x == nil {
		return flow
	}
	pred := contract.IsInstancePredicate{
		Arg:  contract.ValueParameterReference{ParameterIndex: 0, Name: types.ExprString(e.X)},
		Type: s.info.TypeOf(e.Type),
	}
	r, next := s.evaluate(flow, pred, []dfa.DataFlowVariable{nil, x}, nil, false, false)
	if r.IsContradiction() {
		return flow
	}
	return s.logic.ApplyResult(next, r)
}

// call evaluates a call. Conversions and builtins only evaluate their
// operands; other calls apply the callee's contract when apply is set.
func (s *session) call(flow *dfa.Flow, call *ast.CallExpr, apply bool) *dfa.Flow {
	if flow == nil {
		return nil
	}
	if internal.IsTypeExpr(s.info, call.Fun) {
		for _, a := range call.Args {
			flow = s.expr(flow, a)
		}
		return flow
	}
	if id, ok := ast.Unparen(call.Fun).(*ast.Ident); ok {
		if _, ok := s.info.Uses[id].(*types.Builtin); ok {
			for _, a := range call.Args {
				flow = s.expr(flow, a)
			}
			return flow
		}
	}

	flow = s.expr(flow, call.Fun)
	for _, a := range call.Args {
		flow = s.expr(flow, a)
	}
	if flow == nil || !apply {
		return flow
	}
	fn := internal.CalledFunction(s.info, call)
	if fn == nil {
		return flow
	}
	return s.applyContract(flow, call, fn)
}
