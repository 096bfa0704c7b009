package contract

import (
	"fmt"
	"go/ast"
	"go/types"
)

// SignatureBinder resolves contract names against a function signature and
// the package that declares it.
type SignatureBinder struct {
	pkg    *types.Package
	sig    *types.Signature
	params map[string]binding
	tparam map[string]*types.TypeParam
}

type binding struct {
	ref ValueParameterReference
	typ types.Type
}

// NewSignatureBinder returns a binder for a function of pkg with signature
// sig. The receiver, if named, is available under its name.
func NewSignatureBinder(pkg *types.Package, sig *types.Signature) *SignatureBinder {
	b := &SignatureBinder{
		pkg:    pkg,
		sig:    sig,
		params: make(map[string]binding),
		tparam: make(map[string]*types.TypeParam),
	}
	if recv := sig.Recv(); recv != nil && recv.Name() != "" && recv.Name() != "_" {
		b.params[recv.Name()] = binding{
			ref: ValueParameterReference{ParameterIndex: ReceiverIndex, Name: recv.Name()},
			typ: recv.Type(),
		}
	}
	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		if p.Name() == "" || p.Name() == "_" {
			continue
		}
		b.params[p.Name()] = binding{
			ref: ValueParameterReference{ParameterIndex: i, Name: p.Name()},
			typ: p.Type(),
		}
	}
	for _, list := range []*types.TypeParamList{sig.TypeParams(), sig.RecvTypeParams()} {
		for i := 0; i < list.Len(); i++ {
			tp := list.At(i)
			b.tparam[tp.Obj().Name()] = tp
		}
	}
	return b
}

func (b *SignatureBinder) Parameter(name string) (ValueParameterReference, types.Type, bool) {
	p, ok := b.params[name]
	return p.ref, p.typ, ok
}

func (b *SignatureBinder) Type(expr ast.Expr) (types.Type, error) {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return b.Type(e.X)

	case *ast.Ident:
		if e.Name == "nil" {
			return types.Typ[types.UntypedNil], nil
		}
		if tp, ok := b.tparam[e.Name]; ok {
			return tp, nil
		}
		var obj types.Object
		if b.pkg != nil {
			obj = b.pkg.Scope().Lookup(e.Name)
		}
		if obj == nil {
			obj = types.Universe.Lookup(e.Name)
		}
		if tn, ok := obj.(*types.TypeName); ok {
			return tn.Type(), nil
		}
		return nil, fmt.Errorf("%w: %s is not a type", ErrMalformed, e.Name)

	case *ast.SelectorExpr:
		pkgName, ok := e.X.(*ast.Ident)
		if !ok || b.pkg == nil {
			break
		}
		for _, imp := range b.pkg.Imports() {
			if imp.Name() != pkgName.Name {
				continue
			}
			if tn, ok := imp.Scope().Lookup(e.Sel.Name).(*types.TypeName); ok && tn.Exported() {
				return tn.Type(), nil
			}
		}
		return nil, fmt.Errorf("%w: unknown type %s", ErrMalformed, types.ExprString(e))

	case *ast.StarExpr:
		elem, err := b.Type(e.X)
		if err != nil {
			return nil, err
		}
		return types.NewPointer(elem), nil

	case *ast.ArrayType:
		elem, err := b.Type(e.Elt)
		if err != nil {
			return nil, err
		}
		if e.Len == nil {
			return types.NewSlice(elem), nil
		}

	case *ast.MapType:
		key, err := b.Type(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := b.Type(e.Value)
		if err != nil {
			return nil, err
		}
		return types.NewMap(key, val), nil

	case *ast.InterfaceType:
		if e.Methods == nil || len(e.Methods.List) == 0 {
			return types.NewInterfaceType(nil, nil).Complete(), nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported type expression %s", ErrMalformed, types.ExprString(expr))
}
