package dfa

// Operation is a predicate applied to a single variable.
type Operation uint8

const (
	EqTrue Operation = iota + 1
	EqFalse
	EqNull
	NotEqNull
)

func (o Operation) String() string {
	switch o {
	case EqTrue:
		return "== true"
	case EqFalse:
		return "== false"
	case EqNull:
		return "== nil"
	case NotEqNull:
		return "!= nil"
	default:
		return "<invalid operation>"
	}
}

// Negate returns the complementary predicate.
func (o Operation) Negate() Operation {
	switch o {
	case EqTrue:
		return EqFalse
	case EqFalse:
		return EqTrue
	case EqNull:
		return NotEqNull
	case NotEqNull:
		return EqNull
	default:
		return o
	}
}

// Implies reports whether knowing o makes other true as well.
func (o Operation) Implies(other Operation) bool {
	if o == other {
		return true
	}
	// A boolean value is never nil.
	return other == NotEqNull && (o == EqTrue || o == EqFalse)
}

// Contradicts reports whether o and other cannot hold at the same time.
func (o Operation) Contradicts(other Operation) bool {
	switch o {
	case EqTrue:
		return other == EqFalse || other == EqNull
	case EqFalse:
		return other == EqTrue || other == EqNull
	case EqNull:
		return other == EqTrue || other == EqFalse || other == NotEqNull
	case NotEqNull:
		return other == EqNull
	default:
		return false
	}
}
