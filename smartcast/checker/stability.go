package checker

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/YuitoSato/gosmartcast/smartcast/internal"
)

// stableVariables returns the variables owned by a function whose facts can
// be tracked: its receiver, parameters, results and locals, minus those whose
// address is taken anywhere in the body and those assigned inside a nested
// function literal. Variables of enclosing functions are never owned, so
// captured variables are untracked inside a literal.
func stableVariables(info *types.Info, recv *ast.FieldList, ftype *ast.FuncType, body *ast.BlockStmt) map[*types.Var]bool {
	owned := make(map[*types.Var]bool)
	collect := func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.Ident:
			if v, ok := info.Defs[n].(*types.Var); ok && !v.IsField() {
				owned[v] = true
			}
		case *ast.CaseClause:
			if v, ok := info.Implicits[n].(*types.Var); ok {
				owned[v] = true
			}
		}
		return true
	}
	if recv != nil {
		ast.Inspect(recv, collect)
	}
	ast.Inspect(ftype, collect)
	ast.Inspect(body, collect)

	unstable := make(map[*types.Var]bool)
	markUnstable(info, body, 0, unstable)

	for v := range unstable {
		delete(owned, v)
	}
	return owned
}

// markUnstable records the variables whose value may change behind the
// analysis' back. depth counts the function literals entered.
func markUnstable(info *types.Info, root ast.Node, depth int, unstable map[*types.Var]bool) {
	mark := func(e ast.Expr) {
		if v := storageRoot(info, e); v != nil {
			unstable[v] = true
		}
	}
	ast.Inspect(root, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			markUnstable(info, n.Body, depth+1, unstable)
			return false

		case *ast.UnaryExpr:
			if n.Op == token.AND {
				mark(n.X)
			}

		case *ast.SliceExpr:
			// Slicing an array shares its storage.
			if t := info.TypeOf(n.X); t != nil {
				if _, ok := t.Underlying().(*types.Array); ok {
					mark(n.X)
				}
			}

		case *ast.SelectorExpr:
			// x.M() with a pointer receiver on an addressable value is (&x).M().
			sel, ok := info.Selections[n]
			if !ok || sel.Kind() != types.MethodVal {
				break
			}
			sig, ok := sel.Obj().Type().(*types.Signature)
			if !ok || sig.Recv() == nil {
				break
			}
			if internal.IsPointer(sig.Recv().Type()) && !internal.IsPointer(info.TypeOf(n.X)) && !types.IsInterface(info.TypeOf(n.X)) {
				mark(n.X)
			}

		case *ast.AssignStmt:
			if depth > 0 {
				for _, lhs := range n.Lhs {
					mark(lhs)
				}
			}

		case *ast.IncDecStmt:
			if depth > 0 {
				mark(n.X)
			}

		case *ast.RangeStmt:
			if depth > 0 && n.Tok == token.ASSIGN {
				if n.Key != nil {
					mark(n.Key)
				}
				if n.Value != nil {
					mark(n.Value)
				}
			}
		}
		return true
	})
}

// storageRoot returns the variable whose storage e denotes or lies within:
// x for x, x.f (direct fields) and x[i] (arrays). It returns nil when the
// storage is reached through a pointer, slice or map.
func storageRoot(info *types.Info, e ast.Expr) *types.Var {
	for {
		switch x := ast.Unparen(e).(type) {
		case *ast.Ident:
			if v, ok := info.Uses[x].(*types.Var); ok {
				return v
			}
			v, _ := info.Defs[x].(*types.Var)
			return v
		case *ast.SelectorExpr:
			sel, ok := info.Selections[x]
			if !ok || sel.Kind() != types.FieldVal || sel.Indirect() {
				return nil
			}
			e = x.X
		case *ast.IndexExpr:
			t := info.TypeOf(x.X)
			if t == nil {
				return nil
			}
			if _, ok := t.Underlying().(*types.Array); !ok {
				return nil
			}
			e = x.X
		default:
			return nil
		}
	}
}
