package dfa

import (
	"errors"
	"fmt"
	"go/types"

	"github.com/YuitoSato/gosmartcast/smartcast/contract"
)

// ErrUnsupportedExpression is returned for a contract expression the
// evaluator has no rule for.
var ErrUnsupportedExpression = errors.New("unsupported contract expression")

// ApproveContractStatement computes the facts implied by expr evaluating to
// true, or to false when inverted is set. args holds the receiver at index 0
// and parameter K at K+1; a nil or missing entry is an argument that could
// not be resolved and contributes no facts. subst may be nil.
//
// The returned flow is flow with approved implications pruned when
// removeApprovedOrImpossible is set, flow itself otherwise.
func (ls *LogicSystem) ApproveContractStatement(
	flow *Flow,
	expr contract.Expression,
	args []DataFlowVariable,
	subst Substitutor,
	inverted bool,
	removeApprovedOrImpossible bool,
) (Result, *Flow, error) {
	if subst == nil {
		subst = NoSubstitution
	}
	e := &contractEvaluator{
		ls:    ls,
		flow:  flow,
		args:  args,
		subst: subst,
		prune: removeApprovedOrImpossible,
	}
	r, err := e.visit(expr, inverted)
	if err != nil {
		return Result{}, flow, err
	}
	return r, e.flow, nil
}

type contractEvaluator struct {
	ls    *LogicSystem
	flow  *Flow
	args  []DataFlowVariable
	subst Substitutor
	prune bool
}

func (e *contractEvaluator) visit(expr contract.Expression, inverted bool) (Result, error) {
	switch x := expr.(type) {
	case contract.BooleanConstant:
		if x.Value == inverted {
			return Contradiction(), nil
		}
		return NoInformation(), nil

	case contract.LogicalNot:
		return e.visit(x.Arg, !inverted)

	case contract.BinaryLogic:
		left, err := e.visit(x.Left, inverted)
		if err != nil {
			return Result{}, err
		}
		right, err := e.visit(x.Right, inverted)
		if err != nil {
			return Result{}, err
		}
		// !(a && b) is evaluated as !a || !b and vice versa.
		if inverted != (x.Kind == contract.And) {
			return AndResults(left, right), nil
		}
		return OrResults(left, right), nil

	case contract.IsInstancePredicate:
		return e.visitIsInstance(x, inverted), nil

	case contract.IsNullPredicate:
		arg := e.arg(x.Arg)
		if arg == nil {
			return NoInformation(), nil
		}
		op := NotEqNull
		if x.Negated == inverted {
			op = EqNull
		}
		return e.approve(arg, op), nil

	case contract.BooleanValueParameterReference:
		arg := e.arg(x.ValueParameterReference)
		if arg == nil {
			return NoInformation(), nil
		}
		op := EqTrue
		if inverted {
			op = EqFalse
		}
		return e.approve(arg, op), nil

	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnsupportedExpression, expr)
	}
}

func (e *contractEvaluator) visitIsInstance(p contract.IsInstancePredicate, inverted bool) Result {
	arg := e.arg(p.Arg)
	if arg == nil || p.Type == nil {
		return NoInformation()
	}
	isType := p.Negated == inverted
	t := e.subst.Substitute(p.Type)

	switch {
	case IsAny(t):
		if isType {
			return e.approve(arg, NotEqNull)
		}
		return e.approve(arg, EqNull)
	case IsNilType(t):
		if isType {
			return e.approve(arg, EqNull)
		}
		return e.approve(arg, NotEqNull)
	}
	if !isType {
		return NoInformation()
	}
	// A nil interface value has no dynamic type, so a successful test
	// always proves non-nil.
	r := e.approve(arg, NotEqNull)
	if rv, ok := arg.(RealVariable); ok {
		rv = e.flow.Unwrap(rv)
		r = AndResults(r, Satisfiable(TypeStatements{rv: {Var: rv, Exact: []types.Type{t}}}))
		if !r.IsContradiction() {
			known, _ := e.flow.TypeStatement(rv)
			if known.And(r.Statements().Get(rv)).IsContradictory() {
				return Contradiction()
			}
		}
	}
	return r
}

func (e *contractEvaluator) arg(ref contract.ValueParameterReference) DataFlowVariable {
	i := ref.ArgumentIndex()
	if i < 0 || i >= len(e.args) {
		return nil
	}
	return e.args[i]
}

func (e *contractEvaluator) approve(v DataFlowVariable, op Operation) Result {
	r, flow := e.ls.ApproveOperationStatement(e.flow, OperationStatement{Var: v, Op: op}, e.prune)
	e.flow = flow
	return r
}

// OperationForReturn maps a value effect to the operation its return value
// satisfies. It reports false for returns().
func OperationForReturn(r contract.ReturnValue) (Operation, bool) {
	switch r {
	case contract.ReturnsTrue:
		return EqTrue, true
	case contract.ReturnsFalse:
		return EqFalse, true
	case contract.ReturnsNil:
		return EqNull, true
	case contract.ReturnsNotNil:
		return NotEqNull, true
	default:
		return 0, false
	}
}
