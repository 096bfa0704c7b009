package dfa

import "go/types"

// IsAny reports whether t is the empty interface. A value is an instance of
// the empty interface iff it is not nil.
func IsAny(t types.Type) bool {
	if t == nil || isTypeParam(t) {
		return false
	}
	iface, ok := t.Underlying().(*types.Interface)
	return ok && iface.Empty()
}

// IsNilType reports whether t is the type of the untyped nil. Only nil is an
// instance of it.
func IsNilType(t types.Type) bool {
	b, ok := t.(*types.Basic)
	return ok && b.Kind() == types.UntypedNil
}

// CanBeNil reports whether a value of type t may be nil. Type parameters are
// assumed nillable.
func CanBeNil(t types.Type) bool {
	if t == nil {
		return true
	}
	if isTypeParam(t) {
		return true
	}
	switch u := t.Underlying().(type) {
	case *types.Pointer, *types.Slice, *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return true
	case *types.Basic:
		return u.Kind() == types.UnsafePointer || u.Kind() == types.UntypedNil
	default:
		return false
	}
}

func isTypeParam(t types.Type) bool {
	_, ok := types.Unalias(t).(*types.TypeParam)
	return ok
}
