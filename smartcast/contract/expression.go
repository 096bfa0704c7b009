// Package contract defines the contract language: boolean expressions over a
// function's receiver and parameters, and the effects that tie them to the
// function's return value.
package contract

import (
	"go/types"
	"strconv"
)

// Expression is a node of a contract's boolean expression. The variant set
// is closed: BooleanConstant, LogicalNot, BinaryLogic,
// BooleanValueParameterReference, IsInstancePredicate, IsNullPredicate.
type Expression interface {
	String() string
	isExpression()
}

// ReceiverIndex is the ParameterIndex of the method receiver.
const ReceiverIndex = -1

// ValueParameterReference names a receiver or parameter of the declaring
// function.
type ValueParameterReference struct {
	ParameterIndex int
	Name           string
}

// ArgumentIndex is the position of the referenced value in the argument list
// of a call: 0 for the receiver, K+1 for parameter K.
func (r ValueParameterReference) ArgumentIndex() int { return r.ParameterIndex + 1 }

func (r ValueParameterReference) String() string {
	if r.Name != "" {
		return r.Name
	}
	if r.ParameterIndex == ReceiverIndex {
		return "<receiver>"
	}
	return "p" + strconv.Itoa(r.ParameterIndex)
}

// BooleanConstant is the literal true or false.
type BooleanConstant struct {
	Value bool
}

var (
	True  = BooleanConstant{Value: true}
	False = BooleanConstant{Value: false}
)

func (BooleanConstant) isExpression() {}

func (c BooleanConstant) String() string { return strconv.FormatBool(c.Value) }

// LogicalNot negates Arg.
type LogicalNot struct {
	Arg Expression
}

func (LogicalNot) isExpression() {}

func (n LogicalNot) String() string { return "!" + wrap(n.Arg) }

// LogicOperationKind is the connective of a BinaryLogic.
type LogicOperationKind uint8

const (
	And LogicOperationKind = iota
	Or
)

func (k LogicOperationKind) String() string {
	if k == And {
		return "&&"
	}
	return "||"
}

// BinaryLogic combines two expressions with && or ||.
type BinaryLogic struct {
	Left, Right Expression
	Kind        LogicOperationKind
}

func (BinaryLogic) isExpression() {}

func (b BinaryLogic) String() string {
	return wrapIn(b.Left, b.Kind) + " " + b.Kind.String() + " " + wrapIn(b.Right, b.Kind)
}

// BooleanValueParameterReference is a bool parameter used as a condition.
type BooleanValueParameterReference struct {
	ValueParameterReference
}

func (BooleanValueParameterReference) isExpression() {}

// IsInstancePredicate holds when the argument's dynamic type is Type, or does
// not when Negated.
type IsInstancePredicate struct {
	Arg     ValueParameterReference
	Type    types.Type
	Negated bool
}

func (IsInstancePredicate) isExpression() {}

func (p IsInstancePredicate) String() string {
	s := p.Arg.String() + ".(" + typeString(p.Type) + ")"
	if p.Negated {
		return "!" + s
	}
	return s
}

// IsNullPredicate holds when the argument is nil, or is not when Negated.
type IsNullPredicate struct {
	Arg     ValueParameterReference
	Negated bool
}

func (IsNullPredicate) isExpression() {}

func (p IsNullPredicate) String() string {
	if p.Negated {
		return p.Arg.String() + " != nil"
	}
	return p.Arg.String() + " == nil"
}

// Not builds the negation of e, folding double negation and constants.
func Not(e Expression) Expression {
	switch e := e.(type) {
	case LogicalNot:
		return e.Arg
	case BooleanConstant:
		return BooleanConstant{Value: !e.Value}
	default:
		return LogicalNot{Arg: e}
	}
}

func wrap(e Expression) string {
	switch e.(type) {
	case BinaryLogic, IsNullPredicate:
		return "(" + e.String() + ")"
	default:
		return e.String()
	}
}

func wrapIn(e Expression, parent LogicOperationKind) string {
	if b, ok := e.(BinaryLogic); ok && b.Kind != parent {
		return "(" + e.String() + ")"
	}
	return e.String()
}

func typeString(t types.Type) string {
	if t == nil {
		return "<nil type>"
	}
	if b, ok := t.(*types.Basic); ok && b.Kind() == types.UntypedNil {
		return "nil"
	}
	return types.TypeString(t, func(p *types.Package) string { return p.Name() })
}
