package dfa

import "go.uber.org/zap"

// LogicSystem derives facts from statements assumed to hold in a flow and
// combines flows at control-flow joins. It keeps no per-flow state; one
// instance serves one analysis session.
type LogicSystem struct {
	logger *zap.Logger
}

// Option configures a LogicSystem.
type Option func(*LogicSystem)

// WithLogger enables debug tracing of approvals and joins.
func WithLogger(l *zap.Logger) Option {
	return func(ls *LogicSystem) {
		if l != nil {
			ls.logger = l
		}
	}
}

// NewLogicSystem returns a logic system.
func NewLogicSystem(opts ...Option) *LogicSystem {
	ls := &LogicSystem{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ls)
	}
	return ls
}

// ApproveOperationStatement returns every type fact implied by assuming
// statement in flow, following implication chains. It returns a
// contradiction when the statement or anything it implies is incompatible
// with facts already in flow.
//
// flow is not modified. When removeApprovedOrImpossible is set, the returned
// flow no longer carries the implications on the statement's variable that
// were approved or became impossible; otherwise flow itself is returned.
func (ls *LogicSystem) ApproveOperationStatement(flow *Flow, statement OperationStatement, removeApprovedOrImpossible bool) (Result, *Flow) {
	result := ls.approve(flow, statement)
	if ce := ls.logger.Check(zap.DebugLevel, "approve"); ce != nil {
		ce.Write(zap.Stringer("statement", statement), zap.Stringer("result", result))
	}
	if !removeApprovedOrImpossible {
		return result, flow
	}
	op := statement.Op
	pruned := flow.withoutImplications(statement.Var, func(imp Implication) bool {
		c := imp.Condition.Op
		return op.Implies(c) || op.Contradicts(c)
	})
	return result, pruned
}

func (ls *LogicSystem) approve(flow *Flow, statement OperationStatement) Result {
	statement.Var = flow.unwrap(statement.Var)

	result := make(TypeStatements)
	seen := make(map[OperationStatement]bool)
	queue := []OperationStatement{statement}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		next.Var = flow.unwrap(next.Var)
		if seen[next] {
			continue
		}
		seen[next] = true

		if known, ok := flow.KnownOperation(next.Var); ok && known.Contradicts(next.Op) {
			return Contradiction()
		}
		if rv, ok := next.Var.(RealVariable); ok {
			if !addFact(flow, result, statementFromOperation(rv, next.Op)) {
				return Contradiction()
			}
		}

		for _, imp := range flow.Implications(next.Var) {
			if !next.Op.Implies(imp.Condition.Op) {
				continue
			}
			switch effect := imp.Effect.(type) {
			case OperationStatement:
				queue = append(queue, effect)
			case TypeStatement:
				if !addFact(flow, result, effect) {
					return Contradiction()
				}
			}
		}
	}
	return Satisfiable(result)
}

// addFact ANDs s into result and reports whether the combination with what
// flow already knows is still satisfiable.
func addFact(flow *Flow, result TypeStatements, s TypeStatement) bool {
	if s.IsEmpty() {
		return true
	}
	merged := s
	if prev, ok := result[s.Var]; ok {
		merged = prev.And(s)
	}
	known, _ := flow.TypeStatement(s.Var)
	if known.And(merged).IsContradictory() {
		return false
	}
	result[s.Var] = merged
	return true
}

// ApplyResult returns flow extended with the facts of r. For a contradiction
// it returns nil: the program point is unreachable.
func (ls *LogicSystem) ApplyResult(flow *Flow, r Result) *Flow {
	if r.IsContradiction() {
		return nil
	}
	return flow.WithTypeStatements(r.Statements())
}

// AddImplications records that approving condition approves every fact of
// r. A contradictory r means condition can never hold, which is recorded as
// the negated condition being known.
func (ls *LogicSystem) AddImplications(flow *Flow, condition OperationStatement, r Result) *Flow {
	if r.IsContradiction() {
		if condition.Op == EqTrue || condition.Op == EqFalse {
			return flow.WithOperation(condition.Negate())
		}
		return flow
	}
	ts := r.Statements()
	for _, v := range ts.Variables() {
		flow = flow.WithImplication(Implication{Condition: condition, Effect: ts[v]})
	}
	return flow
}

// JoinFlows merges flows meeting at a join point: only facts that hold on
// every incoming path survive. Nil flows (unreachable paths) are skipped;
// the result is nil if every input is nil.
func (ls *LogicSystem) JoinFlows(flows ...*Flow) *Flow {
	var out *Flow
	for _, f := range flows {
		switch {
		case f == nil:
		case out == nil:
			out = f
		default:
			out = joinFlows(out, f)
		}
	}
	if ce := ls.logger.Check(zap.DebugLevel, "join"); out != nil && ce != nil {
		ce.Write(zap.Int("inputs", len(flows)), zap.Stringer("flow", out))
	}
	return out
}
