// Package dfa implements the flow-sensitive narrowing engine: variable
// identities, statements, persistent flows, the logic system that approves
// statements against a flow, and the evaluator for contract expressions.
package dfa

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"
)

// DataFlowVariable identifies something whose facts are tracked through a
// function body. The set of implementations is closed: RealVariable and
// SyntheticVariable.
type DataFlowVariable interface {
	fmt.Stringer
	id() int
	isDataFlowVariable()
}

// RealVariable is a stable program entity: a local, parameter, receiver or
// named result, or a chain of direct field selections rooted at one.
// Two RealVariables are equal iff they denote the same storage.
type RealVariable struct {
	ident  int
	Symbol *types.Var
	// Path is the field chain below Symbol (".f.g"), empty for Symbol itself.
	Path string
	// Type is the declared type of the tracked expression.
	Type types.Type
}

func (v RealVariable) id() int           { return v.ident }
func (RealVariable) isDataFlowVariable() {}

// IsValid reports whether v was produced by a VariableStorage.
func (v RealVariable) IsValid() bool { return v.Symbol != nil }

// RootedAt reports whether v is sym itself or a field chain below it.
func (v RealVariable) RootedAt(sym *types.Var) bool { return v.Symbol == sym }

func (v RealVariable) String() string {
	if v.Symbol == nil {
		return "<invalid>"
	}
	return v.Symbol.Name() + v.Path
}

// SyntheticVariable stands for the value of an expression that is not itself
// stable storage, such as a call result used directly as a condition.
type SyntheticVariable struct {
	ident int
	Expr  ast.Expr
}

func (v SyntheticVariable) id() int           { return v.ident }
func (SyntheticVariable) isDataFlowVariable() {}

func (v SyntheticVariable) String() string {
	if v.Expr == nil {
		return fmt.Sprintf("$%d", v.ident)
	}
	return fmt.Sprintf("$%d<%s>", v.ident, types.ExprString(v.Expr))
}

// IsReal reports whether v is a RealVariable.
func IsReal(v DataFlowVariable) bool {
	_, ok := v.(RealVariable)
	return ok
}

type realKey struct {
	symbol *types.Var
	path   string
}

// VariableStorage interns variable identities for one analysis session.
// It is not safe for concurrent use; every session owns its own storage.
type VariableStorage struct {
	next      int
	real      map[realKey]RealVariable
	synthetic map[ast.Expr]SyntheticVariable
}

// NewVariableStorage returns an empty storage.
func NewVariableStorage() *VariableStorage {
	return &VariableStorage{
		real:      make(map[realKey]RealVariable),
		synthetic: make(map[ast.Expr]SyntheticVariable),
	}
}

// Real returns the identity for sym followed by the given field names.
// typ is the declared type of the whole chain; it is recorded on first use.
func (s *VariableStorage) Real(sym *types.Var, typ types.Type, fields ...string) RealVariable {
	path := ""
	if len(fields) > 0 {
		path = "." + strings.Join(fields, ".")
	}
	key := realKey{symbol: sym, path: path}
	if v, ok := s.real[key]; ok {
		return v
	}
	if typ == nil {
		typ = sym.Type()
	}
	s.next++
	v := RealVariable{ident: s.next, Symbol: sym, Path: path, Type: typ}
	s.real[key] = v
	return v
}

// Synthetic returns the identity for the value of expr. A nil expr always
// yields a fresh variable.
func (s *VariableStorage) Synthetic(expr ast.Expr) SyntheticVariable {
	if expr != nil {
		if v, ok := s.synthetic[expr]; ok {
			return v
		}
	}
	s.next++
	v := SyntheticVariable{ident: s.next, Expr: expr}
	if expr != nil {
		s.synthetic[expr] = v
	}
	return v
}

// Lookup returns the identity for sym and path if it was created before.
func (s *VariableStorage) Lookup(sym *types.Var, path string) (RealVariable, bool) {
	v, ok := s.real[realKey{symbol: sym, path: path}]
	return v, ok
}

type variableHasher[V DataFlowVariable] struct{}

func (variableHasher[V]) Hash(v V) uint32 {
	// Fibonacci hashing spreads the small sequential ids over the trie.
	return uint32(v.id()) * 2654435769
}

func (variableHasher[V]) Equal(a, b V) bool {
	return a.id() == b.id() && DataFlowVariable(a) == DataFlowVariable(b)
}
