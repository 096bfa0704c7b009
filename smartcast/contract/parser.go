package contract

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
)

// Directive is the comment prefix that declares a contract effect.
const Directive = "//smartcast:contract"

// ErrMalformed is returned for contract text that cannot be turned into an
// effect.
var ErrMalformed = errors.New("malformed contract")

// Binder resolves names used in contract text.
type Binder interface {
	// Parameter returns the reference and declared type for name.
	Parameter(name string) (ValueParameterReference, types.Type, bool)
	// Type resolves a type expression.
	Type(expr ast.Expr) (types.Type, error)
}

// ParseEffect parses one effect, e.g. "returns(true) implies x != nil".
func ParseEffect(src string, b Binder) (ConditionalEffect, error) {
	ret, cond, err := splitEffect(src)
	if err != nil {
		return ConditionalEffect{}, err
	}
	expr, err := parser.ParseExpr(cond)
	if err != nil {
		return ConditionalEffect{}, fmt.Errorf("%w: %q: %v", ErrMalformed, cond, err)
	}
	c, err := bind(expr, b)
	if err != nil {
		return ConditionalEffect{}, err
	}
	return ConditionalEffect{Returns: ret, Condition: c}, nil
}

// ParseDirectives parses every contract directive in doc.
func ParseDirectives(function string, doc *ast.CommentGroup, b Binder) (*Contract, error) {
	srcs := DirectiveSources(doc)
	if len(srcs) == 0 {
		return nil, nil
	}
	return ParseContract(function, srcs, b)
}

// ParseContract parses the given effect sources.
func ParseContract(function string, srcs []string, b Binder) (*Contract, error) {
	c := &Contract{Function: function}
	for _, src := range srcs {
		e, err := ParseEffect(src, b)
		if err != nil {
			return nil, err
		}
		c.Effects = append(c.Effects, e)
	}
	return c, nil
}

// DirectiveSources returns the effect text of every directive in doc.
func DirectiveSources(doc *ast.CommentGroup) []string {
	if doc == nil {
		return nil
	}
	var out []string
	for _, c := range doc.List {
		if rest, ok := strings.CutPrefix(c.Text, Directive); ok {
			if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
				out = append(out, strings.TrimSpace(rest))
			}
		}
	}
	return out
}

// CheckSyntax validates src without resolving names or types.
func CheckSyntax(src string) error {
	_, cond, err := splitEffect(src)
	if err != nil {
		return err
	}
	expr, err := parser.ParseExpr(cond)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrMalformed, cond, err)
	}
	_, err = bind(expr, syntaxBinder{})
	return err
}

func splitEffect(src string) (ReturnValue, string, error) {
	src = strings.TrimSpace(src)
	head, cond, ok := strings.Cut(src, " implies ")
	if !ok {
		return 0, "", fmt.Errorf("%w: %q: expected \"returns(...) implies <condition>\"", ErrMalformed, src)
	}
	head = strings.TrimSpace(head)
	arg, ok := strings.CutPrefix(head, "returns(")
	if !ok || !strings.HasSuffix(arg, ")") {
		return 0, "", fmt.Errorf("%w: %q: expected returns(...)", ErrMalformed, head)
	}
	var ret ReturnValue
	switch strings.TrimSpace(strings.TrimSuffix(arg, ")")) {
	case "":
		ret = ReturnsAny
	case "true":
		ret = ReturnsTrue
	case "false":
		ret = ReturnsFalse
	case "nil":
		ret = ReturnsNil
	case "notnil":
		ret = ReturnsNotNil
	default:
		return 0, "", fmt.Errorf("%w: %q: unknown return value", ErrMalformed, head)
	}
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return 0, "", fmt.Errorf("%w: %q: empty condition", ErrMalformed, src)
	}
	return ret, cond, nil
}

func bind(e ast.Expr, b Binder) (Expression, error) {
	switch e := e.(type) {
	case *ast.ParenExpr:
		return bind(e.X, b)

	case *ast.Ident:
		switch e.Name {
		case "true":
			return True, nil
		case "false":
			return False, nil
		}
		ref, typ, ok := b.Parameter(e.Name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown parameter %q", ErrMalformed, e.Name)
		}
		if typ != nil && !isBool(typ) {
			return nil, fmt.Errorf("%w: parameter %q used as a condition is not a bool", ErrMalformed, e.Name)
		}
		return BooleanValueParameterReference{ValueParameterReference: ref}, nil

	case *ast.UnaryExpr:
		if e.Op != token.NOT {
			break
		}
		x, err := bind(e.X, b)
		if err != nil {
			return nil, err
		}
		if p, ok := x.(IsInstancePredicate); ok {
			p.Negated = !p.Negated
			return p, nil
		}
		return LogicalNot{Arg: x}, nil

	case *ast.BinaryExpr:
		switch e.Op {
		case token.LAND, token.LOR:
			l, err := bind(e.X, b)
			if err != nil {
				return nil, err
			}
			r, err := bind(e.Y, b)
			if err != nil {
				return nil, err
			}
			kind := And
			if e.Op == token.LOR {
				kind = Or
			}
			return BinaryLogic{Left: l, Right: r, Kind: kind}, nil
		case token.EQL, token.NEQ:
			operand := e.X
			if isNil(e.X) {
				operand = e.Y
			} else if !isNil(e.Y) {
				break
			}
			ref, err := parameterOperand(operand, b)
			if err != nil {
				return nil, err
			}
			return IsNullPredicate{Arg: ref, Negated: e.Op == token.NEQ}, nil
		}

	case *ast.TypeAssertExpr:
		if e.Type == nil {
			return nil, fmt.Errorf("%w: %s: type switch guard is not a condition", ErrMalformed, types.ExprString(e))
		}
		ref, err := parameterOperand(e.X, b)
		if err != nil {
			return nil, err
		}
		t, err := b.Type(e.Type)
		if err != nil {
			return nil, err
		}
		return IsInstancePredicate{Arg: ref, Type: t}, nil
	}
	return nil, fmt.Errorf("%w: unsupported condition %s", ErrMalformed, types.ExprString(e))
}

func parameterOperand(e ast.Expr, b Binder) (ValueParameterReference, error) {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			break
		}
		e = p.X
	}
	id, ok := e.(*ast.Ident)
	if !ok {
		return ValueParameterReference{}, fmt.Errorf("%w: %s is not a parameter", ErrMalformed, types.ExprString(e))
	}
	ref, _, ok := b.Parameter(id.Name)
	if !ok {
		return ValueParameterReference{}, fmt.Errorf("%w: unknown parameter %q", ErrMalformed, id.Name)
	}
	return ref, nil
}

func isNil(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == "nil"
}

func isBool(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsBoolean != 0
}

// syntaxBinder accepts every name; used where no signature is available.
type syntaxBinder struct{}

func (syntaxBinder) Parameter(name string) (ValueParameterReference, types.Type, bool) {
	return ValueParameterReference{Name: name}, nil, true
}

func (syntaxBinder) Type(ast.Expr) (types.Type, error) {
	return types.Typ[types.Invalid], nil
}
