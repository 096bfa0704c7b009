package contract

import "strings"

// ReturnValue is the return-value condition of an effect.
type ReturnValue uint8

const (
	// ReturnsAny is returns(): the function returned normally.
	ReturnsAny ReturnValue = iota
	ReturnsTrue
	ReturnsFalse
	ReturnsNil
	ReturnsNotNil
)

func (r ReturnValue) String() string {
	switch r {
	case ReturnsTrue:
		return "returns(true)"
	case ReturnsFalse:
		return "returns(false)"
	case ReturnsNil:
		return "returns(nil)"
	case ReturnsNotNil:
		return "returns(notnil)"
	default:
		return "returns()"
	}
}

// ConditionalEffect states that Condition holds whenever the function
// returns the value described by Returns.
type ConditionalEffect struct {
	Returns   ReturnValue
	Condition Expression
}

func (e ConditionalEffect) String() string {
	return e.Returns.String() + " implies " + e.Condition.String()
}

// Contract is the set of effects declared for one function.
type Contract struct {
	// Function is the declaring function's full name (types.Func.FullName).
	Function string
	Effects  []ConditionalEffect

	// ReflectNil makes nil tests on interface parameters apply to the
	// concrete value boxed into them.
	ReflectNil bool
}

// IsEmpty reports whether c declares nothing.
func (c *Contract) IsEmpty() bool { return c == nil || len(c.Effects) == 0 }

// Sources renders the effects back to directive text.
func (c *Contract) Sources() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.Effects))
	for i, e := range c.Effects {
		out[i] = e.String()
	}
	return out
}

func (c *Contract) String() string {
	if c == nil {
		return "<no contract>"
	}
	return c.Function + " {" + strings.Join(c.Sources(), "; ") + "}"
}
