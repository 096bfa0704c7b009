package internal

import (
	"go/ast"
	"go/types"
	"strings"
)

// CalledFunction returns the *types.Func for a call expression if available.
// Calls through function values return nil.
func CalledFunction(info *types.Info, call *ast.CallExpr) *types.Func {
	fun := CalleeIdent(call.Fun)
	if fun == nil {
		return nil
	}
	if fn, ok := info.Uses[fun].(*types.Func); ok {
		return fn
	}
	return nil
}

// CalleeIdent returns the identifier naming the called function: the
// identifier itself, the selector of a qualified or method call, looking
// through parentheses and explicit instantiation.
func CalleeIdent(fun ast.Expr) *ast.Ident {
	for {
		switch f := fun.(type) {
		case *ast.ParenExpr:
			fun = f.X
		case *ast.IndexExpr:
			fun = f.X
		case *ast.IndexListExpr:
			fun = f.X
		case *ast.Ident:
			return f
		case *ast.SelectorExpr:
			return f.Sel
		default:
			return nil
		}
	}
}

// IsNoReturnCall reports whether call never returns normally: panic,
// os.Exit, log.Fatal*, log.Panic*, runtime.Goexit, and the testing
// helpers that stop the test (Fatal*, FailNow, Skip*).
func IsNoReturnCall(info *types.Info, call *ast.CallExpr) bool {
	if id, ok := ast.Unparen(call.Fun).(*ast.Ident); ok {
		if b, ok := info.Uses[id].(*types.Builtin); ok {
			return b.Name() == "panic"
		}
	}

	fn := CalledFunction(info, call)
	if fn == nil || fn.Pkg() == nil {
		return false
	}
	name := fn.Name()
	sig, _ := fn.Type().(*types.Signature)
	isMethod := sig != nil && sig.Recv() != nil

	switch fn.Pkg().Path() {
	case "os":
		return !isMethod && name == "Exit"
	case "runtime":
		return !isMethod && name == "Goexit"
	case "log":
		// Both the package functions and (*log.Logger) methods.
		return strings.HasPrefix(name, "Fatal") || strings.HasPrefix(name, "Panic")
	case "testing":
		// (*testing.common) methods, promoted to T, B and F, and the TB
		// interface methods.
		return isMethod && (strings.HasPrefix(name, "Fatal") ||
			strings.HasPrefix(name, "Skip") ||
			name == "FailNow")
	}
	return false
}

// IsNilIdent reports whether expr is the predeclared nil.
func IsNilIdent(info *types.Info, expr ast.Expr) bool {
	id, ok := ast.Unparen(expr).(*ast.Ident)
	if !ok {
		return false
	}
	_, isNil := info.Uses[id].(*types.Nil)
	return isNil
}

// IsTypeExpr reports whether expr denotes a type.
func IsTypeExpr(info *types.Info, expr ast.Expr) bool {
	tv, ok := info.Types[expr]
	return ok && tv.IsType()
}

// ObjectOf returns the variable an identifier defines or uses.
func ObjectOf(info *types.Info, id *ast.Ident) *types.Var {
	if obj, ok := info.Defs[id].(*types.Var); ok {
		return obj
	}
	v, _ := info.Uses[id].(*types.Var)
	return v
}

// IsPointer reports whether t is a pointer type.
func IsPointer(t types.Type) bool {
	if t == nil {
		return false
	}
	_, ok := t.Underlying().(*types.Pointer)
	return ok
}
