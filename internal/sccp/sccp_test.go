package sccp

import (
	"testing"

	"github.com/hassan/pykit/internal/cfa"
	"github.com/hassan/pykit/internal/ir"
	"github.com/hassan/pykit/internal/irbuilder"
	"github.com/hassan/pykit/internal/types"
)

func runToFixpoint(fn *ir.Function) {
	for {
		r := Analyze(fn)
		if Rewrite(fn, r) == 0 {
			return
		}
	}
}

// TestSCCPStraightLine ports test_sccp: straight-line arithmetic folds
// entirely, leaving a single block that returns a constant.
func TestSCCPStraightLine(t *testing.T) {
	sig := types.NewFunction(types.Int32, nil, false)
	fn := ir.NewFunction("f", sig)
	entry := fn.NewBlock("entry", nil)
	b := irbuilder.New(fn)
	b.PositionAtEnd(entry)

	x := b.Binary(ir.OpAdd, types.Int32, ir.NewConst(types.Int32, int64(3)), ir.NewConst(types.Int32, int64(4)))
	y := b.Binary(ir.OpSub, types.Int32, x, ir.NewConst(types.Int32, int64(1)))
	b.Ret(y)

	runToFixpoint(fn)

	if len(fn.Blocks) != 1 {
		t.Fatalf("expected 1 block after folding, got %d", len(fn.Blocks))
	}
	ret := fn.Blocks[0].Terminator()
	if ret.Opcode != ir.OpRet {
		t.Fatalf("expected ret terminator, got %s", ret.Opcode)
	}
	if !ret.Args[0].IsConst() || ret.Args[0].ConstVal.Lit != int64(6) {
		t.Fatalf("expected ret to fold to Const(6), got %v", ret.Args[0])
	}
}

// TestSCCPEndlessLoop ports test_sccp_endless_loop: a block that jumps
// to itself unconditionally leaves its would-be successor unreachable.
func TestSCCPEndlessLoop(t *testing.T) {
	sig := types.NewFunction(types.Void, nil, false)
	fn := ir.NewFunction("f", sig)
	entry := fn.NewBlock("entry", nil)
	loop := fn.NewBlock("loop", entry)
	after := fn.NewBlock("after", loop)

	b := irbuilder.New(fn)
	b.PositionAtEnd(entry)
	b.Jump(loop)

	b.PositionAtEnd(loop)
	b.Jump(loop)

	b.PositionAtEnd(after)
	b.Ret(nil)

	cfa.Rebuild(fn, false)
	runToFixpoint(fn)

	for _, blk := range fn.Blocks {
		if blk.Name == "after" {
			t.Fatal("unreachable block 'after' should have been pruned")
		}
	}
	if len(fn.Blocks) != 2 {
		t.Fatalf("expected entry+loop to remain, got %d blocks", len(fn.Blocks))
	}
}

// TestSCCPDeadLoop ports test_sccp_dead_loop: a conditionally-entered
// loop guarded by a constant-false condition never executes, and the
// live path folds to a constant return.
func TestSCCPDeadLoop(t *testing.T) {
	sig := types.NewFunction(types.Int32, nil, false)
	fn := ir.NewFunction("f", sig)
	entry := fn.NewBlock("entry", nil)
	loop := fn.NewBlock("loop", entry)
	done := fn.NewBlock("done", loop)

	b := irbuilder.New(fn)
	b.PositionAtEnd(entry)
	falseConst := ir.NewConst(types.Bool, false)
	b.CBranch(falseConst, loop, done)

	b.PositionAtEnd(loop)
	b.Jump(loop)

	b.PositionAtEnd(done)
	sum := b.Binary(ir.OpAdd, types.Int32, ir.NewConst(types.Int32, int64(2)), ir.NewConst(types.Int32, int64(4)))
	b.Ret(sum)

	cfa.Rebuild(fn, false)
	runToFixpoint(fn)

	for _, blk := range fn.Blocks {
		if blk.Name == "loop" {
			t.Fatal("dead loop block should have been pruned")
		}
	}
	ret := fn.Blocks[len(fn.Blocks)-1].Terminator()
	if !ret.Args[0].IsConst() || ret.Args[0].ConstVal.Lit != int64(6) {
		t.Fatalf("expected ret to fold to Const(6), got %v", ret.Args[0])
	}
}

// TestSCCPVectorBroadcast exercises the broadcast convention: scalar
// constants of a vector-typed pair of values fold the same way plain
// scalar arithmetic would.
func TestSCCPVectorBroadcast(t *testing.T) {
	sig := types.NewFunction(types.UInt32, nil, false)
	fn := ir.NewFunction("f", sig)
	entry := fn.NewBlock("entry", nil)
	b := irbuilder.New(fn)
	b.PositionAtEnd(entry)

	vt := types.NewVector(types.UInt32, 4)
	x := ir.NewConst(vt, int64(2))
	y := ir.NewConst(vt, int64(3))
	sum := b.Binary(ir.OpAdd, vt, x, y)
	b.Ret(sum)

	runToFixpoint(fn)

	ret := fn.Blocks[0].Terminator()
	if !ret.Args[0].IsConst() || ret.Args[0].ConstVal.Lit != int64(5) {
		t.Fatalf("expected vector broadcast add to fold to Const(5), got %v", ret.Args[0])
	}
}
