package irbuilder

import "github.com/hassan/pykit/internal/ir"

// Splitblock splits block at trailing: trailing and every op after it
// move into a new block, inserted immediately after block. If terminate
// is true, an unconditional jump from block to the new block is emitted
// to keep block terminated; otherwise block is left without a
// terminator (the caller is about to add a conditional branch or similar
// of its own). Every successor of block that had block as a
// predecessor now has the new block as predecessor instead, and any phi
// in those successors referencing block is repointed to name the new
// block — this is what lets a caller slice a block in two without
// hand-patching every downstream phi. (reg2mem's edge splitting uses its
// own splitEdge, and SCCP does not split blocks.)
func (bl *Builder) Splitblock(block *ir.BasicBlock, trailing *ir.Op, name string, terminate bool) *ir.BasicBlock {
	if name == "" {
		name = block.Func.NewTemp(block.Name + ".split")
	}
	next := block.Func.NewBlock(name, block)

	moving := tailFrom(block, trailing)
	for _, op := range moving {
		op.Unlink()
		next.Append(op)
	}

	oldSuccs := append([]*ir.BasicBlock{}, block.Succs...)
	for _, s := range oldSuccs {
		block.RemoveSucc(s)
		next.AddSucc(s)
		repointPhiPred(s, block, next)
	}

	if terminate {
		b2 := New(block.Func)
		b2.PositionAtEnd(block)
		b2.Jump(next)
	}

	return next
}

func tailFrom(b *ir.BasicBlock, marker *ir.Op) []*ir.Op {
	idx := -1
	for i, op := range b.Ops {
		if op == marker {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	tail := make([]*ir.Op, len(b.Ops)-idx)
	copy(tail, b.Ops[idx:])
	return tail
}

func repointPhiPred(succ, oldPred, newPred *ir.BasicBlock) {
	for _, op := range succ.Leaders() {
		for i, p := range op.Phi.Preds {
			if p == oldPred {
				op.Phi.Preds[i] = newPred
			}
		}
	}
}
