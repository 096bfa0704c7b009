package dfa

import (
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveOperationStatement(t *testing.T) {
	ls := NewLogicSystem()
	s := NewVariableStorage()
	x := s.Real(newVar("x", nodePtr), nil)

	t.Run("fresh flow", func(t *testing.T) {
		r, out := ls.ApproveOperationStatement(emptyFlow, OperationStatement{Var: x, Op: NotEqNull}, false)
		require.False(t, r.IsContradiction())
		assert.True(t, r.Statements()[x].NotNil)
		assert.Same(t, emptyFlow, out)
	})

	t.Run("contradicts known nil", func(t *testing.T) {
		flow := emptyFlow.WithOperation(OperationStatement{Var: x, Op: EqNull})
		r, _ := ls.ApproveOperationStatement(flow, OperationStatement{Var: x, Op: NotEqNull}, false)
		assert.True(t, r.IsContradiction())
	})

	t.Run("contradicts known type fact", func(t *testing.T) {
		flow := emptyFlow.WithTypeStatement(TypeStatement{Var: x, NotNil: true})
		r, _ := ls.ApproveOperationStatement(flow, OperationStatement{Var: x, Op: EqNull}, false)
		assert.True(t, r.IsContradiction())
	})

	t.Run("input flow is not modified", func(t *testing.T) {
		before := emptyFlow.WithTypeStatement(TypeStatement{Var: x, Exact: []types.Type{nodePtr}})
		snapshot := before.String()
		ls.ApproveOperationStatement(before, OperationStatement{Var: x, Op: NotEqNull}, true)
		assert.Equal(t, snapshot, before.String())
	})
}

func TestApproveOperationStatement_Implications(t *testing.T) {
	ls := NewLogicSystem()
	s := NewVariableStorage()
	ok := s.Real(newVar("ok", boolType), nil)
	x := s.Real(newVar("x", errorType), nil)
	y := s.Real(newVar("y", nodePtr), nil)
	cond := s.Synthetic(nil)

	flow := emptyFlow.
		WithImplication(Implication{
			Condition: OperationStatement{Var: cond, Op: EqTrue},
			Effect:    OperationStatement{Var: ok, Op: EqTrue},
		}).
		WithImplication(Implication{
			Condition: OperationStatement{Var: ok, Op: EqTrue},
			Effect:    TypeStatement{Var: x, NotNil: true, Exact: []types.Type{nodePtr}},
		}).
		WithImplication(Implication{
			Condition: OperationStatement{Var: ok, Op: EqTrue},
			Effect:    OperationStatement{Var: y, Op: NotEqNull},
		})

	t.Run("transitive", func(t *testing.T) {
		r, _ := ls.ApproveOperationStatement(flow, OperationStatement{Var: cond, Op: EqTrue}, false)
		require.False(t, r.IsContradiction())
		facts := r.Statements()
		assert.True(t, facts[x].NotNil)
		assert.True(t, facts[x].HasExact(nodePtr))
		assert.True(t, facts[y].NotNil)
	})

	t.Run("other branch learns nothing", func(t *testing.T) {
		r, _ := ls.ApproveOperationStatement(flow, OperationStatement{Var: cond, Op: EqFalse}, false)
		require.False(t, r.IsContradiction())
		assert.Empty(t, r.Statements())
	})

	t.Run("implied effect contradicts the flow", func(t *testing.T) {
		f := flow.WithOperation(OperationStatement{Var: y, Op: EqNull})
		r, _ := ls.ApproveOperationStatement(f, OperationStatement{Var: ok, Op: EqTrue}, false)
		assert.True(t, r.IsContradiction())
	})

	t.Run("prune approved implications", func(t *testing.T) {
		_, pruned := ls.ApproveOperationStatement(flow, OperationStatement{Var: ok, Op: EqTrue}, true)
		assert.Empty(t, pruned.Implications(ok))
		assert.Len(t, flow.Implications(ok), 2)
		assert.Len(t, pruned.Implications(cond), 1)
	})

	t.Run("prune impossible implications", func(t *testing.T) {
		_, pruned := ls.ApproveOperationStatement(flow, OperationStatement{Var: ok, Op: EqFalse}, true)
		assert.Empty(t, pruned.Implications(ok))
	})
}

func TestApproveOperationStatement_Idempotent(t *testing.T) {
	ls := NewLogicSystem()
	s := NewVariableStorage()
	ok := s.Real(newVar("ok", boolType), nil)
	x := s.Real(newVar("x", errorType), nil)

	flow := emptyFlow.WithImplication(Implication{
		Condition: OperationStatement{Var: ok, Op: EqTrue},
		Effect:    TypeStatement{Var: x, NotNil: true},
	})
	stmt := OperationStatement{Var: ok, Op: EqTrue}

	first, _ := ls.ApproveOperationStatement(flow, stmt, false)
	second, _ := ls.ApproveOperationStatement(flow, stmt, false)
	assert.Equal(t, first, second)

	applied := ls.ApplyResult(flow, first)
	require.NotNil(t, applied)
	again, _ := ls.ApproveOperationStatement(applied, stmt, false)
	assert.Equal(t, first, again)
	assert.True(t, ls.ApplyResult(applied, again).Equal(applied))
}

func TestApplyResult_Contradiction(t *testing.T) {
	ls := NewLogicSystem()
	assert.Nil(t, ls.ApplyResult(emptyFlow, Contradiction()))
	assert.Same(t, emptyFlow, ls.ApplyResult(emptyFlow, NoInformation()))
}

func TestAddImplications(t *testing.T) {
	ls := NewLogicSystem()
	s := NewVariableStorage()
	res := s.Synthetic(nil)
	x := s.Real(newVar("x", nodePtr), nil)

	t.Run("facts", func(t *testing.T) {
		r := Satisfiable(TypeStatements{x: {Var: x, NotNil: true}})
		flow := ls.AddImplications(emptyFlow, OperationStatement{Var: res, Op: EqTrue}, r)
		require.Len(t, flow.Implications(res), 1)

		got, _ := ls.ApproveOperationStatement(flow, OperationStatement{Var: res, Op: EqTrue}, false)
		assert.True(t, got.Statements()[x].NotNil)
	})

	t.Run("impossible condition", func(t *testing.T) {
		flow := ls.AddImplications(emptyFlow, OperationStatement{Var: res, Op: EqTrue}, Contradiction())
		op, ok := flow.KnownOperation(res)
		require.True(t, ok)
		assert.Equal(t, EqFalse, op)

		r, _ := ls.ApproveOperationStatement(flow, OperationStatement{Var: res, Op: EqTrue}, false)
		assert.True(t, r.IsContradiction())
	})
}
