package dfa

import (
	"go/token"
	"go/types"
)

var (
	testPkg   = types.NewPackage("example.com/p", "p")
	anyType   = types.Universe.Lookup("any").Type()
	errorType = types.Universe.Lookup("error").Type()
	boolType  = types.Typ[types.Bool]
	intType   = types.Typ[types.Int]

	nodeType  = newNamed("Node")
	leafType  = newNamed("Leaf")
	nodePtr   = types.NewPointer(nodeType)
	leafPtr   = types.NewPointer(leafType)
	nilType   = types.Typ[types.UntypedNil]
	emptyFlow = EmptyFlow()
)

func newNamed(name string) *types.Named {
	tn := types.NewTypeName(token.NoPos, testPkg, name, nil)
	return types.NewNamed(tn, types.NewStruct(nil, nil), nil)
}

func newVar(name string, typ types.Type) *types.Var {
	return types.NewVar(token.NoPos, testPkg, name, typ)
}
