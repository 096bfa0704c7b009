package dfa

import (
	"go/types"
	"sort"
	"strings"
)

// Statement is a fact about one variable. Implementations: OperationStatement
// and TypeStatement.
type Statement interface {
	Variable() DataFlowVariable
	String() string
	isStatement()
}

// OperationStatement asserts that Op holds for Var.
type OperationStatement struct {
	Var DataFlowVariable
	Op  Operation
}

func (s OperationStatement) Variable() DataFlowVariable { return s.Var }
func (OperationStatement) isStatement()                 {}

func (s OperationStatement) String() string {
	return s.Var.String() + " " + s.Op.String()
}

// Negate returns the statement with the complementary operation.
func (s OperationStatement) Negate() OperationStatement {
	return OperationStatement{Var: s.Var, Op: s.Op.Negate()}
}

// TypeStatement refines the type of a RealVariable. The refined type is the
// declared type intersected with every type in Exact; NotNil and Nil record
// proven nullability.
type TypeStatement struct {
	Var    RealVariable
	Exact  []types.Type
	NotNil bool
	Nil    bool
}

func (s TypeStatement) Variable() DataFlowVariable { return s.Var }
func (TypeStatement) isStatement()                 {}

// IsEmpty reports whether s carries no information.
func (s TypeStatement) IsEmpty() bool {
	return len(s.Exact) == 0 && !s.NotNil && !s.Nil
}

// IsContradictory reports whether no value can satisfy s.
func (s TypeStatement) IsContradictory() bool {
	if s.Nil && s.NotNil {
		return true
	}
	// A value has at most one concrete dynamic type.
	var concrete types.Type
	for _, t := range s.Exact {
		if types.IsInterface(t) || isTypeParam(t) {
			continue
		}
		if concrete != nil && !types.Identical(concrete, t) {
			return true
		}
		concrete = t
	}
	return false
}

// HasExact reports whether t is one of the proven types.
func (s TypeStatement) HasExact(t types.Type) bool {
	return containsType(s.Exact, t)
}

// And returns the statement that holds when both s and o hold.
func (s TypeStatement) And(o TypeStatement) TypeStatement {
	out := TypeStatement{Var: s.Var, NotNil: s.NotNil || o.NotNil, Nil: s.Nil || o.Nil}
	out.Exact = appendTypes(append([]types.Type(nil), s.Exact...), o.Exact...)
	return out
}

// Or returns the strongest statement implied by each of s and o alone.
func (s TypeStatement) Or(o TypeStatement) TypeStatement {
	out := TypeStatement{Var: s.Var, NotNil: s.NotNil && o.NotNil, Nil: s.Nil && o.Nil}
	for _, t := range s.Exact {
		if containsType(o.Exact, t) {
			out.Exact = append(out.Exact, t)
		}
	}
	return out
}

// Equal reports whether s and o carry the same information.
func (s TypeStatement) Equal(o TypeStatement) bool {
	if s.Var != o.Var || s.NotNil != o.NotNil || s.Nil != o.Nil || len(s.Exact) != len(o.Exact) {
		return false
	}
	for _, t := range s.Exact {
		if !containsType(o.Exact, t) {
			return false
		}
	}
	return true
}

func (s TypeStatement) String() string {
	var parts []string
	if s.Nil {
		parts = append(parts, "nil")
	}
	if s.NotNil {
		parts = append(parts, "!nil")
	}
	for _, t := range s.Exact {
		parts = append(parts, types.TypeString(t, nil))
	}
	return s.Var.String() + ": {" + strings.Join(parts, " & ") + "}"
}

// statementFromOperation returns the type fact that op carries for v.
// Variables that cannot hold nil get no nullability fact.
func statementFromOperation(v RealVariable, op Operation) TypeStatement {
	s := TypeStatement{Var: v}
	if !CanBeNil(v.Type) {
		return s
	}
	switch op {
	case EqNull:
		s.Nil = true
	case NotEqNull, EqTrue, EqFalse:
		s.NotNil = true
	}
	return s
}

// TypeStatements maps variables to the facts derived for them by one
// evaluation. Values are never modified after being returned.
type TypeStatements map[RealVariable]TypeStatement

// Get returns the statement for v, or an empty one.
func (ts TypeStatements) Get(v RealVariable) TypeStatement {
	if s, ok := ts[v]; ok {
		return s
	}
	return TypeStatement{Var: v}
}

// Variables returns the keys of ts ordered by name.
func (ts TypeStatements) Variables() []RealVariable {
	vars := make([]RealVariable, 0, len(ts))
	for v := range ts {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool {
		if vars[i].String() != vars[j].String() {
			return vars[i].String() < vars[j].String()
		}
		return vars[i].ident < vars[j].ident
	})
	return vars
}

func (ts TypeStatements) String() string {
	parts := make([]string, 0, len(ts))
	for _, v := range ts.Variables() {
		parts = append(parts, ts[v].String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// AndForTypeStatements composes two fact sets that hold together. A variable
// present in only one input keeps its fact.
func AndForTypeStatements(a, b TypeStatements) TypeStatements {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make(TypeStatements, len(a)+len(b))
	for v, s := range a {
		out[v] = s
	}
	for v, s := range b {
		if prev, ok := out[v]; ok {
			out[v] = prev.And(s)
		} else {
			out[v] = s
		}
	}
	return out
}

// OrForTypeStatements keeps only the facts implied by both inputs.
func OrForTypeStatements(a, b TypeStatements) TypeStatements {
	out := make(TypeStatements)
	for v, s := range a {
		o, ok := b[v]
		if !ok {
			continue
		}
		if merged := s.Or(o); !merged.IsEmpty() {
			out[v] = merged
		}
	}
	return out
}

// Implication records that approving Condition also approves Effect.
type Implication struct {
	Condition OperationStatement
	Effect    Statement
}

func (i Implication) String() string {
	return i.Condition.String() + " -> " + i.Effect.String()
}

func (i Implication) equal(o Implication) bool {
	if i.Condition != o.Condition {
		return false
	}
	switch e := i.Effect.(type) {
	case OperationStatement:
		oe, ok := o.Effect.(OperationStatement)
		return ok && e == oe
	case TypeStatement:
		oe, ok := o.Effect.(TypeStatement)
		return ok && e.Equal(oe)
	default:
		return false
	}
}

func containsType(list []types.Type, t types.Type) bool {
	for _, x := range list {
		if types.Identical(x, t) {
			return true
		}
	}
	return false
}

func appendTypes(list []types.Type, ts ...types.Type) []types.Type {
	for _, t := range ts {
		if !containsType(list, t) {
			list = append(list, t)
		}
	}
	return list
}
