package dfa

import (
	"errors"
	"fmt"
	"go/types"
)

// ErrSubstitution is returned when a call's instantiation does not match the
// callee's type parameters.
var ErrSubstitution = errors.New("invalid type substitution")

// Substitutor maps types mentioning a callee's type parameters to the types
// of one instantiation.
type Substitutor interface {
	Substitute(t types.Type) types.Type
}

type identitySubstitutor struct{}

func (identitySubstitutor) Substitute(t types.Type) types.Type { return t }

// NoSubstitution leaves every type unchanged.
var NoSubstitution Substitutor = identitySubstitutor{}

type typeParamSubstitutor struct {
	mapping map[*types.TypeParam]types.Type
}

// NewSubstitutor maps each of params to the argument at the same index.
func NewSubstitutor(params *types.TypeParamList, args []types.Type) (Substitutor, error) {
	if params.Len() != len(args) {
		return nil, fmt.Errorf("%w: %d type parameters, %d type arguments", ErrSubstitution, params.Len(), len(args))
	}
	if params.Len() == 0 {
		return NoSubstitution, nil
	}
	s := &typeParamSubstitutor{mapping: make(map[*types.TypeParam]types.Type, params.Len())}
	for i := 0; i < params.Len(); i++ {
		arg := args[i]
		if arg == nil {
			return nil, fmt.Errorf("%w: missing type argument for %s", ErrSubstitution, params.At(i))
		}
		s.mapping[params.At(i)] = arg
	}
	return s, nil
}

func (s *typeParamSubstitutor) Substitute(t types.Type) types.Type {
	switch t := types.Unalias(t).(type) {
	case *types.TypeParam:
		if r, ok := s.mapping[t]; ok {
			return r
		}
		return t
	case *types.Pointer:
		if e := s.Substitute(t.Elem()); e != t.Elem() {
			return types.NewPointer(e)
		}
	case *types.Slice:
		if e := s.Substitute(t.Elem()); e != t.Elem() {
			return types.NewSlice(e)
		}
	case *types.Array:
		if e := s.Substitute(t.Elem()); e != t.Elem() {
			return types.NewArray(e, t.Len())
		}
	case *types.Map:
		k, v := s.Substitute(t.Key()), s.Substitute(t.Elem())
		if k != t.Key() || v != t.Elem() {
			return types.NewMap(k, v)
		}
	case *types.Chan:
		if e := s.Substitute(t.Elem()); e != t.Elem() {
			return types.NewChan(t.Dir(), e)
		}
	case *types.Named:
		targs := t.TypeArgs()
		if targs.Len() == 0 {
			return t
		}
		changed := false
		subst := make([]types.Type, targs.Len())
		for i := range subst {
			subst[i] = s.Substitute(targs.At(i))
			changed = changed || subst[i] != targs.At(i)
		}
		if !changed {
			return t
		}
		inst, err := types.Instantiate(nil, t.Origin(), subst, false)
		if err != nil {
			return t
		}
		return inst
	}
	return t
}
