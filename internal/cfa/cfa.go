// Package cfa computes and refreshes the control-flow relationships
// (successors, predecessors, phi locations) that the rest of the
// toolkit — SCCP's executable-edge worklist, reg2mem's critical-edge
// splitting — relies on but the IR builder does not maintain
// automatically once blocks are spliced or rewritten in place.
package cfa

import "github.com/hassan/pykit/internal/ir"

// DeduceSuccessors reads a block's terminator and returns the blocks it
// can transfer control to. The exceptions flag only affects exc_throw:
// its label operands count as successors when exceptions is true and are
// ignored when it is false. An exc_setup op is never consulted, so in
// either mode it is ordinary fall-through and no handler edge is
// reported for it.
func DeduceSuccessors(b *ir.BasicBlock, exceptions bool) []*ir.BasicBlock {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	switch term.Opcode {
	case ir.OpJump:
		return labelsOf(term.Args)
	case ir.OpCBranch:
		return labelsOf(term.Args[1:])
	case ir.OpExcThrow:
		if !exceptions {
			return nil
		}
		return labelsOf(term.Args[1:])
	case ir.OpRet:
		return nil
	default:
		return nil
	}
}

func labelsOf(vals []*ir.Value) []*ir.BasicBlock {
	var out []*ir.BasicBlock
	for _, v := range vals {
		if v.Kind == ir.ValueLabel && v.Block != nil {
			out = append(out, v.Block)
		}
	}
	return out
}

// Rebuild recomputes every block's Succs/Preds in fn from its terminator,
// discarding whatever edges were previously recorded. Passes that splice
// blocks in place (SCCP's rewrite phase, reg2mem's critical-edge
// splitting) call this instead of hand-maintaining AddSucc/RemoveSucc
// calls at every site.
func Rebuild(fn *ir.Function, exceptions bool) {
	for _, b := range fn.Blocks {
		b.Succs = nil
		b.Preds = nil
	}
	for _, b := range fn.Blocks {
		for _, s := range DeduceSuccessors(b, exceptions) {
			b.AddSucc(s)
		}
	}
}

// FindPhis returns every phi op in fn, grouped by the block that owns
// it, in block order.
func FindPhis(fn *ir.Function) map[*ir.BasicBlock][]*ir.Op {
	out := make(map[*ir.BasicBlock][]*ir.Op)
	for _, b := range fn.Blocks {
		leaders := b.Leaders()
		if len(leaders) > 0 {
			out[b] = leaders
		}
	}
	return out
}

// CriticalEdges returns every (pred, succ) pair where pred has more than
// one successor and succ has more than one predecessor — the edges
// reg2mem and any phi-introducing transform must split before inserting
// per-edge copies, since a copy placed at the end of pred or the start
// of succ would otherwise also execute along the edge's sibling paths.
func CriticalEdges(fn *ir.Function) [][2]*ir.BasicBlock {
	var out [][2]*ir.BasicBlock
	for _, b := range fn.Blocks {
		if len(b.Succs) <= 1 {
			continue
		}
		for _, s := range b.Succs {
			if len(s.Preds) > 1 {
				out = append(out, [2]*ir.BasicBlock{b, s})
			}
		}
	}
	return out
}
