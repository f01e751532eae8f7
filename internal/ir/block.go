package ir

// BasicBlock is a straight-line sequence of Ops ending in a terminator,
// with phi ops (the "leaders") kept sorted to the front per §3/§4.D.
type BasicBlock struct {
	Name  string
	Func  *Function
	Ops   []*Op
	Preds []*BasicBlock
	Succs []*BasicBlock
}

// Leaders returns the block's phi-op prefix.
func (b *BasicBlock) Leaders() []*Op {
	i := 0
	for i < len(b.Ops) && b.Ops[i].Opcode == OpPhi {
		i++
	}
	return b.Ops[:i]
}

// Terminator returns the block's terminating op, or nil if the block is
// not yet terminated.
func (b *BasicBlock) Terminator() *Op {
	if len(b.Ops) == 0 {
		return nil
	}
	last := b.Ops[len(b.Ops)-1]
	if IsTerminator(last.Opcode) {
		return last
	}
	return nil
}

// IsTerminated reports whether b ends in a terminator op.
func (b *BasicBlock) IsTerminated() bool { return b.Terminator() != nil }

// Append adds op to the end of the block's non-phi ops, or — if op is a
// phi — to the end of the leader prefix, preserving the leaders-first
// invariant regardless of call order.
func (b *BasicBlock) Append(op *Op) {
	op.Block = b
	if op.Opcode != OpPhi {
		b.Ops = append(b.Ops, op)
		return
	}
	i := 0
	for i < len(b.Ops) && b.Ops[i].Opcode == OpPhi {
		i++
	}
	b.Ops = append(b.Ops, nil)
	copy(b.Ops[i+1:], b.Ops[i:])
	b.Ops[i] = op
}

// InsertBefore inserts op immediately before marker. marker must belong
// to b.
func (b *BasicBlock) InsertBefore(marker, op *Op) {
	op.Block = b
	for i, o := range b.Ops {
		if o == marker {
			b.Ops = append(b.Ops, nil)
			copy(b.Ops[i+1:], b.Ops[i:])
			b.Ops[i] = op
			return
		}
	}
}

// InsertAfter inserts op immediately after marker. marker must belong to
// b.
func (b *BasicBlock) InsertAfter(marker, op *Op) {
	op.Block = b
	for i, o := range b.Ops {
		if o == marker {
			b.Ops = append(b.Ops, nil)
			copy(b.Ops[i+2:], b.Ops[i+1:])
			b.Ops[i+1] = op
			return
		}
	}
}

func (b *BasicBlock) removeOp(op *Op) {
	for i, o := range b.Ops {
		if o == op {
			b.Ops = append(b.Ops[:i], b.Ops[i+1:]...)
			return
		}
	}
}

// AddSucc records a CFG edge b -> s, keeping both sides' predecessor and
// successor lists in sync. Idempotent.
func (b *BasicBlock) AddSucc(s *BasicBlock) {
	for _, x := range b.Succs {
		if x == s {
			return
		}
	}
	b.Succs = append(b.Succs, s)
	s.Preds = append(s.Preds, b)
}

// RemoveSucc undoes AddSucc.
func (b *BasicBlock) RemoveSucc(s *BasicBlock) {
	b.Succs = removeBlock(b.Succs, s)
	s.Preds = removeBlock(s.Preds, b)
}

func removeBlock(list []*BasicBlock, target *BasicBlock) []*BasicBlock {
	out := list[:0]
	for _, b := range list {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}

func (b *BasicBlock) String() string { return b.Name }
