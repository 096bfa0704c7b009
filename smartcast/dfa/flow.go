package dfa

import (
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"
)

// Flow is the set of facts known at one program point. A Flow is never
// modified: every With*/Erase call returns a new Flow that shares unchanged
// structure with its parent, so forking for a branch is free.
//
// The zero value is not usable; start from EmptyFlow.
type Flow struct {
	statements   *immutable.Map[RealVariable, TypeStatement]
	values       *immutable.Map[DataFlowVariable, Operation]
	implications *immutable.Map[DataFlowVariable, []Implication]
	aliases      *immutable.Map[RealVariable, RealVariable]
}

// EmptyFlow returns a flow without facts.
func EmptyFlow() *Flow {
	return &Flow{
		statements:   immutable.NewMap[RealVariable, TypeStatement](variableHasher[RealVariable]{}),
		values:       immutable.NewMap[DataFlowVariable, Operation](variableHasher[DataFlowVariable]{}),
		implications: immutable.NewMap[DataFlowVariable, []Implication](variableHasher[DataFlowVariable]{}),
		aliases:      immutable.NewMap[RealVariable, RealVariable](variableHasher[RealVariable]{}),
	}
}

// Fork returns a handle for a branch. Since flows are persistent this is the
// same flow; the method exists to make branch points explicit at call sites.
func (f *Flow) Fork() *Flow { return f }

func (f *Flow) clone() *Flow {
	c := *f
	return &c
}

// Unwrap resolves v through recorded aliases.
func (f *Flow) Unwrap(v RealVariable) RealVariable {
	if orig, ok := f.aliases.Get(v); ok {
		return orig
	}
	return v
}

func (f *Flow) unwrap(v DataFlowVariable) DataFlowVariable {
	if rv, ok := v.(RealVariable); ok {
		return f.Unwrap(rv)
	}
	return v
}

// TypeStatement returns the facts known for v, following aliases. The
// returned statement is keyed on v itself.
func (f *Flow) TypeStatement(v RealVariable) (TypeStatement, bool) {
	s, ok := f.statements.Get(f.Unwrap(v))
	if !ok {
		return TypeStatement{Var: v}, false
	}
	s.Var = v
	return s, true
}

// KnownOperation returns the value-level fact recorded for v, if any.
func (f *Flow) KnownOperation(v DataFlowVariable) (Operation, bool) {
	return f.values.Get(f.unwrap(v))
}

// Implications returns the implications conditioned on v.
func (f *Flow) Implications(v DataFlowVariable) []Implication {
	imps, _ := f.implications.Get(f.unwrap(v))
	return imps
}

// WithTypeStatement adds s to the facts of its variable.
func (f *Flow) WithTypeStatement(s TypeStatement) *Flow {
	if s.IsEmpty() {
		return f
	}
	target := f.Unwrap(s.Var)
	s.Var = target
	if prev, ok := f.statements.Get(target); ok {
		s = prev.And(s)
	}
	out := f.clone()
	out.statements = f.statements.Set(target, s)
	return out
}

// WithTypeStatements adds every statement of ts.
func (f *Flow) WithTypeStatements(ts TypeStatements) *Flow {
	out := f
	for _, v := range ts.Variables() {
		out = out.WithTypeStatement(ts[v])
	}
	return out
}

// WithOperation records that s holds. For real variables the corresponding
// nullability fact is recorded as well.
func (f *Flow) WithOperation(s OperationStatement) *Flow {
	target := f.unwrap(s.Var)
	out := f.clone()
	out.values = f.values.Set(target, s.Op)
	if rv, ok := target.(RealVariable); ok {
		return out.WithTypeStatement(statementFromOperation(rv, s.Op))
	}
	return out
}

// WithImplication records i. Duplicates are ignored.
func (f *Flow) WithImplication(i Implication) *Flow {
	i.Condition.Var = f.unwrap(i.Condition.Var)
	switch e := i.Effect.(type) {
	case OperationStatement:
		e.Var = f.unwrap(e.Var)
		i.Effect = e
	case TypeStatement:
		e.Var = f.Unwrap(e.Var)
		i.Effect = e
	}
	existing, _ := f.implications.Get(i.Condition.Var)
	for _, x := range existing {
		if x.equal(i) {
			return f
		}
	}
	list := make([]Implication, 0, len(existing)+1)
	list = append(append(list, existing...), i)
	out := f.clone()
	out.implications = f.implications.Set(i.Condition.Var, list)
	return out
}

// WithAlias makes alias share the facts of original until either is
// reassigned. Existing facts of alias are dropped.
func (f *Flow) WithAlias(alias, original RealVariable) *Flow {
	original = f.Unwrap(original)
	if alias == original {
		return f
	}
	out := f.Erase(alias)
	out.aliases = out.aliases.Set(alias, original)
	return out
}

// Erase forgets everything known about v and about field chains rooted at
// the same symbol, as after an assignment. Aliases of v keep the facts v had.
func (f *Flow) Erase(v RealVariable) *Flow {
	out := f.clone()

	// Aliases pointing at a variable being erased take over its facts.
	itr := f.aliases.Iterator()
	for !itr.Done() {
		alias, orig, _ := itr.Next()
		switch {
		case alias.RootedAt(v.Symbol):
			out.aliases = out.aliases.Delete(alias)
		case orig.RootedAt(v.Symbol):
			out.aliases = out.aliases.Delete(alias)
			if s, ok := f.statements.Get(orig); ok {
				s.Var = alias
				out.statements = out.statements.Set(alias, s)
			}
			if op, ok := f.values.Get(orig); ok {
				out.values = out.values.Set(alias, op)
			}
		}
	}

	sitr := f.statements.Iterator()
	for !sitr.Done() {
		k, _, _ := sitr.Next()
		if k.RootedAt(v.Symbol) {
			out.statements = out.statements.Delete(k)
		}
	}
	vitr := f.values.Iterator()
	for !vitr.Done() {
		k, _, _ := vitr.Next()
		if rv, ok := k.(RealVariable); ok && rv.RootedAt(v.Symbol) {
			out.values = out.values.Delete(k)
		}
	}

	iitr := f.implications.Iterator()
	for !iitr.Done() {
		k, imps, _ := iitr.Next()
		if rv, ok := k.(RealVariable); ok && rv.RootedAt(v.Symbol) {
			out.implications = out.implications.Delete(k)
			continue
		}
		kept := imps[:0:0]
		for _, imp := range imps {
			if !mentions(imp.Effect, v) {
				kept = append(kept, imp)
			}
		}
		switch {
		case len(kept) == 0:
			out.implications = out.implications.Delete(k)
		case len(kept) != len(imps):
			out.implications = out.implications.Set(k, kept)
		}
	}
	return out
}

// withoutImplications drops the implications on v for which drop is true.
func (f *Flow) withoutImplications(v DataFlowVariable, drop func(Implication) bool) *Flow {
	v = f.unwrap(v)
	imps, ok := f.implications.Get(v)
	if !ok {
		return f
	}
	kept := imps[:0:0]
	for _, imp := range imps {
		if !drop(imp) {
			kept = append(kept, imp)
		}
	}
	if len(kept) == len(imps) {
		return f
	}
	out := f.clone()
	if len(kept) == 0 {
		out.implications = f.implications.Delete(v)
	} else {
		out.implications = f.implications.Set(v, kept)
	}
	return out
}

// Variables returns the variables with type facts, ordered by name.
func (f *Flow) Variables() []RealVariable {
	ts := make(TypeStatements, f.statements.Len())
	itr := f.statements.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		ts[k] = v
	}
	return ts.Variables()
}

// Equal reports whether f and o hold the same facts.
func (f *Flow) Equal(o *Flow) bool {
	if f == o {
		return true
	}
	if f.statements.Len() != o.statements.Len() ||
		f.values.Len() != o.values.Len() ||
		f.implications.Len() != o.implications.Len() ||
		f.aliases.Len() != o.aliases.Len() {
		return false
	}
	sitr := f.statements.Iterator()
	for !sitr.Done() {
		k, s, _ := sitr.Next()
		os, ok := o.statements.Get(k)
		if !ok || !s.Equal(os) {
			return false
		}
	}
	vitr := f.values.Iterator()
	for !vitr.Done() {
		k, op, _ := vitr.Next()
		if oop, ok := o.values.Get(k); !ok || oop != op {
			return false
		}
	}
	aitr := f.aliases.Iterator()
	for !aitr.Done() {
		k, orig, _ := aitr.Next()
		if oorig, ok := o.aliases.Get(k); !ok || oorig != orig {
			return false
		}
	}
	iitr := f.implications.Iterator()
	for !iitr.Done() {
		k, imps, _ := iitr.Next()
		oimps, ok := o.implications.Get(k)
		if !ok || !sameImplications(imps, oimps) {
			return false
		}
	}
	return true
}

func (f *Flow) String() string {
	var parts []string
	for _, v := range f.Variables() {
		s, _ := f.statements.Get(v)
		parts = append(parts, s.String())
	}
	itr := f.aliases.Iterator()
	var aliases []string
	for !itr.Done() {
		k, v, _ := itr.Next()
		aliases = append(aliases, k.String()+"="+v.String())
	}
	sort.Strings(aliases)
	parts = append(parts, aliases...)
	return "{" + strings.Join(parts, "; ") + "}"
}

// joinFlows keeps what every flow agrees on.
func joinFlows(a, b *Flow) *Flow {
	if a == b {
		return a
	}
	out := EmptyFlow()

	// Aliases survive only if both sides agree; otherwise the facts of the
	// alias are materialised on each side before the statements are joined.
	keepAlias := make(map[RealVariable]RealVariable)
	aitr := a.aliases.Iterator()
	for !aitr.Done() {
		k, orig, _ := aitr.Next()
		if borig, ok := b.aliases.Get(k); ok && borig == orig {
			keepAlias[k] = orig
			out.aliases = out.aliases.Set(k, orig)
		}
	}
	a = materializeAliases(a, keepAlias)
	b = materializeAliases(b, keepAlias)

	sitr := a.statements.Iterator()
	for !sitr.Done() {
		k, s, _ := sitr.Next()
		if bs, ok := b.statements.Get(k); ok {
			if merged := s.Or(bs); !merged.IsEmpty() {
				out.statements = out.statements.Set(k, merged)
			}
		}
	}
	vitr := a.values.Iterator()
	for !vitr.Done() {
		k, op, _ := vitr.Next()
		if bop, ok := b.values.Get(k); ok && bop == op {
			out.values = out.values.Set(k, op)
		}
	}
	iitr := a.implications.Iterator()
	for !iitr.Done() {
		k, imps, _ := iitr.Next()
		bimps, ok := b.implications.Get(k)
		if !ok {
			continue
		}
		var common []Implication
		for _, imp := range imps {
			for _, bimp := range bimps {
				if imp.equal(bimp) {
					common = append(common, imp)
					break
				}
			}
		}
		if len(common) > 0 {
			out.implications = out.implications.Set(k, common)
		}
	}
	return out
}

// materializeAliases copies facts onto aliases that are not in keep and
// drops those aliases.
func materializeAliases(f *Flow, keep map[RealVariable]RealVariable) *Flow {
	out := f
	itr := f.aliases.Iterator()
	for !itr.Done() {
		alias, orig, _ := itr.Next()
		if _, ok := keep[alias]; ok {
			continue
		}
		if out == f {
			out = f.clone()
		}
		out.aliases = out.aliases.Delete(alias)
		if s, ok := f.statements.Get(orig); ok {
			s.Var = alias
			out.statements = out.statements.Set(alias, s)
		}
		if op, ok := f.values.Get(orig); ok {
			out.values = out.values.Set(alias, op)
		}
	}
	return out
}

func sameImplications(a, b []Implication) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		found := false
		for _, y := range b {
			if x.equal(y) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func mentions(s Statement, v RealVariable) bool {
	rv, ok := s.Variable().(RealVariable)
	return ok && rv.RootedAt(v.Symbol)
}
