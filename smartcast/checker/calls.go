package checker

import (
	"fmt"
	"go/ast"
	"go/types"

	"go.uber.org/zap"

	"github.com/YuitoSato/gosmartcast/smartcast/contract"
	"github.com/YuitoSato/gosmartcast/smartcast/dfa"
	"github.com/YuitoSato/gosmartcast/smartcast/internal"
)

// applyContract applies the effects of fn's contract to the flow after call.
// Wildcard effects hold unconditionally; a value effect is recorded as
// implications on the call's synthetic result, to be approved by a later
// condition on that value.
func (s *session) applyContract(flow *dfa.Flow, call *ast.CallExpr, fn *types.Func) *dfa.Flow {
	ct, err := s.contracts.Lookup(fn)
	if err != nil {
		s.invalidContract(fn, call, err)
		return flow
	}
	if ct.IsEmpty() {
		return flow
	}
	sig, ok := fn.Type().(*types.Signature)
	if !ok {
		return flow
	}
	subst, err := s.substitutor(call, fn)
	if err != nil {
		s.logger.Debug("contract skipped", zap.String("func", fn.FullName()), zap.Error(err))
		return flow
	}

	args := s.arguments(call, sig, ct.ReflectNil)
	result := s.storage.Synthetic(call)
	s.calls = append(s.calls, call)

	for _, eff := range ct.Effects {
		r, next, err := s.logic.ApproveContractStatement(flow, eff.Condition, args, subst, false, false)
		if err != nil {
			s.invalidContract(fn, call, fmt.Errorf("%s: %w", eff, err))
			continue
		}
		if eff.Returns == contract.ReturnsAny {
			flow = s.logic.ApplyResult(next, r)
			if flow == nil {
				return nil
			}
			continue
		}
		op, ok := dfa.OperationForReturn(eff.Returns)
		if !ok {
			continue
		}
		cond := dfa.OperationStatement{Var: result, Op: op}
		if r.IsContradiction() {
			flow = next.WithOperation(cond.Negate())
			continue
		}
		flow = s.logic.AddImplications(next, cond, r)
	}
	return flow
}

// invalidContract records a contract that could not be used. Contracts of
// local functions were already reported at their declaration.
func (s *session) invalidContract(fn *types.Func, call *ast.CallExpr, err error) {
	if !s.reporting || s.opts.local(fn) {
		return
	}
	if prev, ok := s.findings.invalid[fn]; ok && prev.pos <= call.Pos() {
		return
	}
	s.findings.invalid[fn] = invalidContract{pos: call.Pos(), err: err}
}

// arguments lays out the operands of call the way contracts refer to them:
// the receiver first, then one entry per declared parameter. Operands that
// cannot be tracked, variadic arguments passed without ... and arguments
// spread from a multi-value call are absent.
func (s *session) arguments(call *ast.CallExpr, sig *types.Signature, reflectNil bool) []dfa.DataFlowVariable {
	n := sig.Params().Len()
	args := make([]dfa.DataFlowVariable, n+1)
	operands := call.Args
	params := s.parameterTypes(call, sig)

	// A concrete value boxed into an interface parameter is never nil there,
	// whatever the value, so it binds to nothing.
	bind := func(k int, e ast.Expr) {
		if !reflectNil && boxes(s.info.TypeOf(e), params[k]) {
			return
		}
		args[k] = s.operand(e)
	}

	if sel, ok := ast.Unparen(call.Fun).(*ast.SelectorExpr); ok {
		if selection, ok := s.info.Selections[sel]; ok {
			switch selection.Kind() {
			case types.MethodVal:
				bind(0, sel.X)
			case types.MethodExpr:
				if len(operands) > 0 {
					bind(0, operands[0])
					operands = operands[1:]
				}
			}
		}
	}

	if len(operands) == 1 {
		if _, ok := s.info.TypeOf(operands[0]).(*types.Tuple); ok {
			return args
		}
	}
	for i, a := range operands {
		if i >= n {
			break
		}
		if sig.Variadic() && i == n-1 && !call.Ellipsis.IsValid() {
			break
		}
		bind(i+1, a)
	}
	return args
}

// parameterTypes returns the receiver and parameter types of the callee of
// call, laid out like arguments and instantiated where the call site
// instantiates them.
func (s *session) parameterTypes(call *ast.CallExpr, sig *types.Signature) []types.Type {
	n := sig.Params().Len()
	out := make([]types.Type, n+1)
	if recv := sig.Recv(); recv != nil {
		out[0] = recv.Type()
	}
	for i := range n {
		out[i+1] = sig.Params().At(i).Type()
	}

	inst, ok := s.info.TypeOf(call.Fun).(*types.Signature)
	if !ok {
		return out
	}
	// Method expressions take the receiver as their first parameter.
	off := inst.Params().Len() - n
	if off != 0 && off != 1 {
		return out
	}
	if off == 1 {
		out[0] = inst.Params().At(0).Type()
	}
	for i := range n {
		out[i+1] = inst.Params().At(i + off).Type()
	}
	return out
}

// substitutor maps the type parameters of a generic callee, or of the
// receiver of a method of a generic type, to the call's type arguments.
func (s *session) substitutor(call *ast.CallExpr, fn *types.Func) (dfa.Substitutor, error) {
	origin, ok := fn.Origin().Type().(*types.Signature)
	if !ok {
		return dfa.NoSubstitution, nil
	}
	if tps := origin.TypeParams(); tps.Len() > 0 {
		id := internal.CalleeIdent(call.Fun)
		if id == nil {
			return dfa.NoSubstitution, nil
		}
		inst, ok := s.info.Instances[id]
		if !ok || inst.TypeArgs == nil {
			return dfa.NoSubstitution, nil
		}
		subst, err := dfa.NewSubstitutor(tps, typeList(inst.TypeArgs))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.FullName(), err)
		}
		return subst, nil
	}
	if rtps := origin.RecvTypeParams(); rtps.Len() > 0 {
		sig, ok := fn.Type().(*types.Signature)
		if !ok || sig.Recv() == nil {
			return dfa.NoSubstitution, nil
		}
		recv := sig.Recv().Type()
		if p, ok := recv.(*types.Pointer); ok {
			recv = p.Elem()
		}
		named, ok := types.Unalias(recv).(*types.Named)
		if !ok || named.TypeArgs().Len() == 0 {
			return dfa.NoSubstitution, nil
		}
		subst, err := dfa.NewSubstitutor(rtps, typeList(named.TypeArgs()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.FullName(), err)
		}
		return subst, nil
	}
	return dfa.NoSubstitution, nil
}

func typeList(l *types.TypeList) []types.Type {
	out := make([]types.Type, l.Len())
	for i := range out {
		out[i] = l.At(i)
	}
	return out
}
