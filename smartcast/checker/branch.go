package checker

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"go.uber.org/zap"
	"golang.org/x/tools/go/cfg"

	"github.com/YuitoSato/gosmartcast/smartcast/contract"
	"github.com/YuitoSato/gosmartcast/smartcast/dfa"
	"github.com/YuitoSato/gosmartcast/smartcast/internal"
)

// condition is a boolean expression of the analysed code translated into a
// contract expression. Every operand becomes a parameter: args[K+1] holds
// the variable bound to parameter K, nil when the operand is untracked.
type condition struct {
	expr contract.Expression
	args []dfa.DataFlowVariable
	node ast.Node
	text string
	// tracked is set when an operand carries facts, so that a fixed outcome
	// is a finding rather than a constant.
	tracked bool
	// report is set for conditions written as such: if and for conditions
	// and the cases of an expressionless switch.
	report bool
}

type translator struct {
	s    *session
	flow *dfa.Flow
	c    *condition
}

// translate turns e into a condition. Operands that are neither nil checks,
// boolean constants nor boolean values bind to absent arguments and so
// contribute no facts.
func (s *session) translate(flow *dfa.Flow, e ast.Expr) *condition {
	t := &translator{s: s, flow: flow, c: newCondition(e, types.ExprString(e))}
	t.c.expr = t.expr(e)
	return t.c
}

func newCondition(node ast.Node, text string) *condition {
	return &condition{args: []dfa.DataFlowVariable{nil}, node: node, text: text}
}

func (t *translator) bind(v dfa.DataFlowVariable, e ast.Expr) contract.ValueParameterReference {
	if v != nil && t.carriesFacts(v) {
		t.c.tracked = true
	}
	t.c.args = append(t.c.args, v)
	return contract.ValueParameterReference{ParameterIndex: len(t.c.args) - 2, Name: types.ExprString(e)}
}

func (t *translator) carriesFacts(v dfa.DataFlowVariable) bool {
	if dfa.IsReal(v) {
		return true
	}
	if _, ok := t.flow.KnownOperation(v); ok {
		return true
	}
	return len(t.flow.Implications(v)) > 0
}

func (t *translator) boolean(e ast.Expr) contract.Expression {
	return contract.BooleanValueParameterReference{ValueParameterReference: t.bind(t.s.operand(e), e)}
}

func (t *translator) expr(e ast.Expr) contract.Expression {
	e = ast.Unparen(e)
	if v, ok := boolConstant(t.s.info, e); ok {
		return contract.BooleanConstant{Value: v}
	}
	switch x := e.(type) {
	case *ast.UnaryExpr:
		if x.Op == token.NOT {
			return contract.Not(t.expr(x.X))
		}
	case *ast.BinaryExpr:
		switch x.Op {
		case token.LAND:
			return contract.BinaryLogic{Left: t.expr(x.X), Right: t.expr(x.Y), Kind: contract.And}
		case token.LOR:
			return contract.BinaryLogic{Left: t.expr(x.X), Right: t.expr(x.Y), Kind: contract.Or}
		case token.EQL, token.NEQ:
			if p, ok := t.comparison(x); ok {
				return p
			}
			return contract.BooleanValueParameterReference{ValueParameterReference: t.bind(nil, e)}
		}
	}
	if isBool(t.s.info.TypeOf(e)) {
		return t.boolean(e)
	}
	return contract.BooleanValueParameterReference{ValueParameterReference: t.bind(nil, e)}
}

// comparison handles x == nil, nil != x, b == true and their mirrors.
func (t *translator) comparison(x *ast.BinaryExpr) (contract.Expression, bool) {
	info := t.s.info
	negated := x.Op == token.NEQ
	for _, pair := range [2][2]ast.Expr{{x.X, x.Y}, {x.Y, x.X}} {
		operand, other := pair[0], pair[1]
		if internal.IsNilIdent(info, other) {
			return contract.IsNullPredicate{Arg: t.bind(t.s.operand(operand), operand), Negated: negated}, true
		}
		if v, ok := boolConstant(info, other); ok && isBool(info.TypeOf(operand)) {
			if _, constOperand := boolConstant(info, operand); constOperand {
				return nil, false
			}
			ref := t.boolean(operand)
			if v == negated {
				return contract.Not(ref), true
			}
			return ref, true
		}
	}
	return nil, false
}

// branchCondition returns the condition deciding between the two successors
// of b: Succs[0] is taken when it holds, Succs[1] otherwise.
func (s *session) branchCondition(flow *dfa.Flow, b *cfg.Block) (*condition, bool) {
	then, next := b.Succs[0], b.Succs[1]

	if next.Kind == cfg.KindSwitchNextCase {
		cc, ok := next.Stmt.(*ast.CaseClause)
		if !ok {
			return nil, false
		}
		i, ok := s.caseIndex[next]
		if !ok || i >= len(cc.List) {
			return nil, false
		}
		switch sw := s.switches[cc].(type) {
		case *ast.TypeSwitchStmt:
			return s.typeCase(flow, sw, cc.List[i]), true
		case *ast.SwitchStmt:
			if sw.Tag == nil {
				c := s.translate(flow, cc.List[i])
				c.report = true
				return c, true
			}
			return s.tagCase(flow, sw.Tag, cc.List[i]), true
		}
		return nil, false
	}

	if len(b.Nodes) == 0 {
		return nil, false
	}
	cond, ok := b.Nodes[len(b.Nodes)-1].(ast.Expr)
	if !ok {
		return nil, false
	}
	switch then.Kind {
	case cfg.KindIfThen, cfg.KindForBody:
		c := s.translate(flow, cond)
		c.report = true
		return c, true
	}
	return nil, false
}

// typeCase is the condition "subject.(T) succeeds" of a type switch case.
func (s *session) typeCase(flow *dfa.Flow, sw *ast.TypeSwitchStmt, caseType ast.Expr) *condition {
	subject := typeSwitchSubject(sw)
	t := &translator{s: s, flow: flow, c: newCondition(caseType, "case "+types.ExprString(caseType))}
	var v dfa.DataFlowVariable
	if subject != nil {
		v = s.operand(subject)
	}
	t.c.expr = contract.IsInstancePredicate{Arg: t.bind(v, caseType), Type: s.info.TypeOf(caseType)}
	return t.c
}

// tagCase is the condition "tag == value" of a switch with a tag.
func (s *session) tagCase(flow *dfa.Flow, tag, value ast.Expr) *condition {
	t := &translator{s: s, flow: flow, c: newCondition(value, types.ExprString(tag)+" == "+types.ExprString(value))}
	switch b, isConst := boolConstant(s.info, value); {
	case internal.IsNilIdent(s.info, value):
		t.c.expr = contract.IsNullPredicate{Arg: t.bind(s.operand(tag), tag)}
	case isConst && isBool(s.info.TypeOf(tag)):
		ref := t.boolean(tag)
		if !b {
			t.c.expr = contract.Not(ref)
		} else {
			t.c.expr = ref
		}
	default:
		t.c.expr = contract.BooleanValueParameterReference{ValueParameterReference: t.bind(nil, value)}
	}
	return t.c
}

// narrow returns the flows on the edges taken when c holds and when it does
// not; nil marks an edge the facts rule out.
func (s *session) narrow(flow *dfa.Flow, c *condition) (*dfa.Flow, *dfa.Flow) {
	onTrue := s.assume(flow, c, false)
	onFalse := s.assume(flow, c, true)
	return onTrue, onFalse
}

func (s *session) assume(flow *dfa.Flow, c *condition, inverted bool) *dfa.Flow {
	r, next := s.evaluate(flow, c.expr, c.args, nil, inverted, true)
	out := s.logic.ApplyResult(next, r)
	if out == nil {
		return nil
	}
	for _, st := range definite(c.expr, c.args, inverted) {
		out = out.WithOperation(st)
	}
	return out
}

// evaluate approves expr; evaluation errors leave flow unchanged.
func (s *session) evaluate(flow *dfa.Flow, expr contract.Expression, args []dfa.DataFlowVariable, subst dfa.Substitutor, inverted, prune bool) (dfa.Result, *dfa.Flow) {
	r, next, err := s.logic.ApproveContractStatement(flow, expr, args, subst, inverted, prune)
	if err != nil {
		s.logger.Debug("evaluation failed", zap.Stringer("expr", expr), zap.Error(err))
		return dfa.NoInformation(), flow
	}
	return r, next
}

// definite returns the operations that hold for the operands of e whenever
// e evaluates to !inverted: every operand of a conjunction that holds and of
// a disjunction that fails.
func definite(e contract.Expression, args []dfa.DataFlowVariable, inverted bool) []dfa.OperationStatement {
	arg := func(ref contract.ValueParameterReference) dfa.DataFlowVariable {
		if i := ref.ArgumentIndex(); i >= 0 && i < len(args) {
			return args[i]
		}
		return nil
	}
	switch x := e.(type) {
	case contract.LogicalNot:
		return definite(x.Arg, args, !inverted)
	case contract.BinaryLogic:
		if inverted != (x.Kind == contract.And) {
			return append(definite(x.Left, args, inverted), definite(x.Right, args, inverted)...)
		}
	case contract.IsNullPredicate:
		if v := arg(x.Arg); v != nil {
			op := dfa.NotEqNull
			if x.Negated == inverted {
				op = dfa.EqNull
			}
			return []dfa.OperationStatement{{Var: v, Op: op}}
		}
	case contract.BooleanValueParameterReference:
		if v := arg(x.ValueParameterReference); v != nil {
			op := dfa.EqTrue
			if inverted {
				op = dfa.EqFalse
			}
			return []dfa.OperationStatement{{Var: v, Op: op}}
		}
	}
	return nil
}

// enterTypeCase sets up the implicit variable of a type switch clause: the
// asserted value for a single-type case, the switch subject otherwise.
func (s *session) enterTypeCase(flow *dfa.Flow, sw *ast.TypeSwitchStmt, cc *ast.CaseClause) *dfa.Flow {
	obj, ok := s.info.Implicits[cc].(*types.Var)
	if !ok || !s.stable[obj] {
		return flow
	}
	v := s.storage.Real(obj, obj.Type())
	flow = flow.Erase(v)

	subject := typeSwitchSubject(sw)
	if len(cc.List) == 1 {
		t := s.info.TypeOf(cc.List[0])
		if dfa.IsNilType(t) {
			if x, ok := s.variable(subject); ok && types.Identical(x.Type, v.Type) {
				return flow.WithAlias(v, x)
			}
			return flow.WithOperation(dfa.OperationStatement{Var: v, Op: dfa.EqNull})
		}
		if isInterface(t) {
			return flow.WithOperation(dfa.OperationStatement{Var: v, Op: dfa.NotEqNull})
		}
		return flow
	}
	if subject != nil {
		if x, ok := s.variable(subject); ok && types.Identical(x.Type, v.Type) {
			return flow.WithAlias(v, x)
		}
	}
	return flow
}

func typeSwitchSubject(sw *ast.TypeSwitchStmt) ast.Expr {
	var guard ast.Expr
	switch a := sw.Assign.(type) {
	case *ast.AssignStmt:
		if len(a.Rhs) == 1 {
			guard = a.Rhs[0]
		}
	case *ast.ExprStmt:
		guard = a.X
	}
	if ta, ok := ast.Unparen(guard).(*ast.TypeAssertExpr); ok {
		return ta.X
	}
	return nil
}

func boolConstant(info *types.Info, e ast.Expr) (bool, bool) {
	tv, ok := info.Types[e]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.Bool {
		return false, false
	}
	return constant.BoolVal(tv.Value), true
}

// isInterface reports whether t is an interface type other than a type
// parameter.
func isInterface(t types.Type) bool {
	if t == nil {
		return false
	}
	if _, ok := types.Unalias(t).(*types.TypeParam); ok {
		return false
	}
	return types.IsInterface(t)
}
