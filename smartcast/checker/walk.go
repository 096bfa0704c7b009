package checker

import (
	"context"
	"go/ast"

	"go.uber.org/zap"
	"golang.org/x/tools/go/cfg"

	"github.com/YuitoSato/gosmartcast/smartcast/dfa"
)

// edge identifies the slot-th outgoing edge of a block.
type edge struct {
	from int32
	slot int
}

// fixpoint computes the input flow of every block. A block's input is the
// join of the flows on its incoming edges computed so far; blocks are
// re-analysed until no input changes. A nil input marks a block no path
// reaches.
func (s *session) fixpoint(ctx context.Context, g *cfg.CFG) ([]*dfa.Flow, error) {
	n := len(g.Blocks)
	preds := make([][]edge, n)
	for _, b := range g.Blocks {
		for i, succ := range b.Succs {
			preds[succ.Index] = append(preds[succ.Index], edge{from: b.Index, slot: i})
		}
	}

	var (
		outs     = make(map[edge]*dfa.Flow)
		inputs   = make([]*dfa.Flow, n)
		visits   = make([]int, n)
		degraded = make([]bool, n)
		work     = newWorklist(n)
		entry    = s.entry()
	)
	if n > 0 {
		work.push(0)
	}

	rounds := 0
	for !work.empty() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := g.Blocks[work.pop()]
		rounds++

		var in *dfa.Flow
		if degraded[b.Index] {
			in = dfa.EmptyFlow()
		} else {
			incoming := make([]*dfa.Flow, 0, len(preds[b.Index])+1)
			if b.Index == 0 {
				incoming = append(incoming, entry)
			}
			for _, e := range preds[b.Index] {
				incoming = append(incoming, outs[e])
			}
			in = s.logic.JoinFlows(incoming...)
		}
		if in == nil {
			continue
		}
		if visits[b.Index] > 0 && in.Equal(inputs[b.Index]) {
			continue
		}
		visits[b.Index]++
		if visits[b.Index] > s.opts.maxVisits && !degraded[b.Index] {
			s.logger.Debug("block did not converge", zap.String("block", b.String()))
			degraded[b.Index] = true
			in = dfa.EmptyFlow()
		}
		inputs[b.Index] = in

		for i, f := range s.transfer(b, in) {
			e := edge{from: b.Index, slot: i}
			if prev, ok := outs[e]; ok && sameFlow(prev, f) {
				continue
			}
			outs[e] = f
			work.push(b.Succs[i].Index)
		}
	}
	s.logger.Debug("fixpoint", zap.Int("blocks", n), zap.Int("rounds", rounds))
	return inputs, nil
}

// transfer runs the block's statements on in and returns the flow on each
// outgoing edge; a nil flow marks a dead edge.
func (s *session) transfer(b *cfg.Block, in *dfa.Flow) []*dfa.Flow {
	flow := s.enter(b, in)
	for _, n := range b.Nodes {
		if flow == nil {
			break
		}
		flow = s.node(flow, n)
	}

	out := make([]*dfa.Flow, len(b.Succs))
	if flow == nil {
		return out
	}
	if len(b.Succs) != 2 {
		for i := range out {
			out[i] = flow
		}
		return out
	}

	c, ok := s.branchCondition(flow, b)
	if !ok {
		out[0], out[1] = flow, flow
		return out
	}
	t, f := s.narrow(flow, c)
	if c.report && c.tracked {
		switch {
		case t != nil && f == nil:
			s.reportf(c.node.Pos(), c.node.End(), CategoryCondition, "condition %s is always true", c.text)
		case t == nil && f != nil:
			s.reportf(c.node.Pos(), c.node.End(), CategoryCondition, "condition %s is always false", c.text)
		}
	}
	out[0], out[1] = t, f
	return out
}

// enter applies the facts a block establishes on entry: fresh range
// variables and the implicit variable of a type switch clause.
func (s *session) enter(b *cfg.Block, flow *dfa.Flow) *dfa.Flow {
	switch b.Kind {
	case cfg.KindRangeBody:
		rs, ok := b.Stmt.(*ast.RangeStmt)
		if !ok {
			break
		}
		for _, e := range []ast.Expr{rs.Key, rs.Value} {
			if e == nil {
				continue
			}
			if v, ok := s.variable(e); ok {
				flow = flow.Erase(v)
			}
		}
	case cfg.KindSwitchCaseBody:
		cc, ok := b.Stmt.(*ast.CaseClause)
		if !ok {
			break
		}
		if ts, ok := s.switches[cc].(*ast.TypeSwitchStmt); ok {
			flow = s.enterTypeCase(flow, ts, cc)
		}
	}
	return flow
}

func sameFlow(a, b *dfa.Flow) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}

// worklist hands out block indices, lowest first, without duplicates.
type worklist struct {
	queued []bool
	count  int
}

func newWorklist(n int) *worklist {
	return &worklist{queued: make([]bool, n)}
}

func (w *worklist) push(i int32) {
	if !w.queued[i] {
		w.queued[i] = true
		w.count++
	}
}

func (w *worklist) empty() bool { return w.count == 0 }

func (w *worklist) pop() int32 {
	for i, q := range w.queued {
		if q {
			w.queued[i] = false
			w.count--
			return int32(i)
		}
	}
	return -1
}
