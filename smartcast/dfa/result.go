package dfa

// Result is the outcome of approving a statement or evaluating a contract
// expression. It is either a (possibly empty) set of facts or a
// contradiction, which means the path being analysed cannot be taken.
// An empty fact set means "satisfiable, nothing learned".
type Result struct {
	statements    TypeStatements
	contradiction bool
}

// Satisfiable wraps ts as a non-contradictory result.
func Satisfiable(ts TypeStatements) Result {
	return Result{statements: ts}
}

// NoInformation is the satisfiable result without facts.
func NoInformation() Result {
	return Result{}
}

// Contradiction is the result of an impossible assumption.
func Contradiction() Result {
	return Result{contradiction: true}
}

// IsContradiction reports whether r marks an impossible path.
func (r Result) IsContradiction() bool { return r.contradiction }

// Statements returns the derived facts; nil for a contradiction.
func (r Result) Statements() TypeStatements {
	if r.contradiction {
		return nil
	}
	return r.statements
}

func (r Result) String() string {
	if r.contradiction {
		return "contradiction"
	}
	return r.statements.String()
}

// AndResults is the result of both r and o holding. A contradiction on
// either side makes the whole conjunction impossible.
func AndResults(r, o Result) Result {
	if r.contradiction || o.contradiction {
		return Contradiction()
	}
	merged := AndForTypeStatements(r.statements, o.statements)
	for _, s := range merged {
		if s.IsContradictory() {
			return Contradiction()
		}
	}
	return Satisfiable(merged)
}

// OrResults is the result of at least one of r and o holding. A
// contradiction is the identity.
func OrResults(r, o Result) Result {
	switch {
	case r.contradiction:
		return o
	case o.contradiction:
		return r
	default:
		return Satisfiable(OrForTypeStatements(r.statements, o.statements))
	}
}
