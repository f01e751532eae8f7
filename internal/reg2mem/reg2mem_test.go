package reg2mem

import (
	"testing"

	"github.com/hassan/pykit/internal/cfa"
	"github.com/hassan/pykit/internal/ir"
	"github.com/hassan/pykit/internal/irbuilder"
	"github.com/hassan/pykit/internal/irerrors"
	"github.com/hassan/pykit/internal/types"
)

// TestRunRejectsMalformedIR exercises the §4.F INTERACTION WARNING: Run
// must refuse a function that's already broken SSA (here, an
// unterminated block) rather than run its transforms over it.
func TestRunRejectsMalformedIR(t *testing.T) {
	sig := types.NewFunction(types.Void, nil, false)
	fn := ir.NewFunction("f", sig)
	fn.NewBlock("entry", nil) // no terminator

	err := Run(fn)
	if err == nil {
		t.Fatal("expected Run to reject a function with no terminator")
	}
	if !irerrors.Is(err, irerrors.PassPrecondition) {
		t.Fatalf("expected a PassPrecondition error, got %v", err)
	}
}

func noPhisRemain(fn *ir.Function) bool {
	for _, b := range fn.Blocks {
		if len(b.Leaders()) > 0 {
			return false
		}
	}
	return true
}

// TestRunDestroysDiamond destroys a simple diamond: entry branches to
// left/right, both join at merge with a phi. After reg2mem, no phi
// remains and the function still verifies.
func TestRunDestroysDiamond(t *testing.T) {
	sig := types.NewFunction(types.Int32, []types.Type{types.Bool}, false)
	fn := ir.NewFunction("f", sig)

	entry := fn.NewBlock("entry", nil)
	left := fn.NewBlock("left", entry)
	right := fn.NewBlock("right", left)
	merge := fn.NewBlock("merge", right)

	b := irbuilder.New(fn)
	b.PositionAtEnd(entry)
	b.CBranch(fn.Params[0], left, right)

	b.PositionAtEnd(left)
	lv := ir.NewConst(types.Int32, int64(1))
	b.Jump(merge)

	b.PositionAtEnd(right)
	rv := ir.NewConst(types.Int32, int64(2))
	b.Jump(merge)

	b.PositionAtEnd(merge)
	phi := b.Phi(types.Int32, []*ir.BasicBlock{left, right}, []*ir.Value{lv, rv})
	b.Ret(phi)

	cfa.Rebuild(fn, false)

	if err := Run(fn); err != nil {
		t.Fatalf("Run returned an unexpected error: %v", err)
	}

	if !noPhisRemain(fn) {
		t.Fatal("expected no phis to remain after reg2mem")
	}
	if errs := ir.VerifyFunction(fn); len(errs) > 0 {
		t.Fatalf("function failed verification after reg2mem: %v", errs)
	}
}

// TestRunSwapProblem reproduces the parallel-copy hazard reg2mem.py's
// docstring warns about: two phis in the same loop header whose
// incoming values on the back edge are each other's results. A naive
// sequential lowering corrupts the swap; Run must not.
func TestRunSwapProblem(t *testing.T) {
	sig := types.NewFunction(types.Void, nil, false)
	fn := ir.NewFunction("f", sig)

	entry := fn.NewBlock("entry", nil)
	loop := fn.NewBlock("loop", entry)

	b := irbuilder.New(fn)
	b.PositionAtEnd(entry)
	x0 := ir.NewConst(types.Int32, int64(0))
	y0 := ir.NewConst(types.Int32, int64(1))
	b.Jump(loop)

	b.PositionAtEnd(loop)
	x2 := b.Phi(types.Int32, []*ir.BasicBlock{entry, loop}, []*ir.Value{x0, nil})
	y2 := b.Phi(types.Int32, []*ir.BasicBlock{entry, loop}, []*ir.Value{y0, nil})
	// Close the swap: x2's loop-edge value is y2, y2's loop-edge value is x2.
	x2.Op.SetPhiValues([]*ir.Value{x0, y2})
	y2.Op.SetPhiValues([]*ir.Value{y0, x2})
	b.Jump(loop)

	cfa.Rebuild(fn, false)
	if err := Run(fn); err != nil {
		t.Fatalf("Run returned an unexpected error: %v", err)
	}

	if !noPhisRemain(fn) {
		t.Fatal("expected no phis to remain after reg2mem")
	}
	if errs := ir.VerifyFunction(fn); len(errs) > 0 {
		t.Fatalf("function failed verification after reg2mem: %v", errs)
	}
}
