package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassan/pykit/internal/types"
)

func TestModuleHasStableID(t *testing.T) {
	m := NewModule("demo")
	require.NotEmpty(t, m.ID)
	assert.NotEqual(t, m.ID, NewModule("demo").ID, "each module should get a distinct ID")
}

func buildAddFunction(t *testing.T) (*Function, *Value) {
	t.Helper()
	sig := types.NewFunction(types.Int32, nil, false)
	fn := NewFunction("f", sig)
	entry := fn.NewBlock("entry", nil)

	a := NewConst(types.Int32, int64(2))
	b := NewConst(types.Int32, int64(3))
	add := NewOp(entry, OpAdd, types.Int32, "sum", a, b)
	NewOp(entry, OpRet, nil, "", add.Result)
	return fn, add.Result
}

func TestUsesMapTracksArgs(t *testing.T) {
	fn, sum := buildAddFunction(t)
	uses := fn.Uses(sum)
	if len(uses) != 1 {
		t.Fatalf("expected 1 use of sum, got %d", len(uses))
	}
	if uses[0].Opcode != OpRet {
		t.Fatalf("expected the ret to be the sole user, got %s", uses[0].Opcode)
	}
}

func TestSetArgsUpdatesUsesMap(t *testing.T) {
	fn, sum := buildAddFunction(t)
	replacement := NewConst(types.Int32, int64(99))

	retOp := fn.Uses(sum)[0]
	retOp.SetArgs([]*Value{replacement})

	if fn.HasUses(sum) {
		t.Fatal("sum should have no uses once the ret no longer references it")
	}
}

func TestDeleteRemovesFromBlockAndUsesMap(t *testing.T) {
	fn, sum := buildAddFunction(t)
	addOp := sum.Op

	retOp := fn.Uses(sum)[0]
	retOp.SetArgs(nil)
	if fn.HasUses(sum) {
		t.Fatal("sum should have no uses after ret dropped its arg")
	}

	addOp.Delete()
	if addOp.Block != nil {
		t.Fatal("deleted op should be unlinked from its block")
	}
	for _, op := range fn.Blocks[0].Ops {
		if op == addOp {
			t.Fatal("deleted op still present in block's op list")
		}
	}
}

func TestVerifyCatchesMissingTerminator(t *testing.T) {
	sig := types.NewFunction(types.Void, nil, false)
	fn := NewFunction("g", sig)
	fn.NewBlock("entry", nil)

	errs := VerifyFunction(fn)
	if len(errs) == 0 {
		t.Fatal("expected a verification error for an unterminated block")
	}
}

func TestVerifyCatchesPhiArityMismatch(t *testing.T) {
	sig := types.NewFunction(types.Void, nil, false)
	fn := NewFunction("h", sig)
	entry := fn.NewBlock("entry", nil)
	loop := fn.NewBlock("loop", entry)

	NewOp(entry, OpJump, nil, "", NewLabel(loop))
	entry.AddSucc(loop)

	// loop has only one predecessor (entry), but its phi claims two.
	NewPhi(loop, types.Int32, "x", []*BasicBlock{entry, loop}, []*Value{
		NewConst(types.Int32, int64(0)), NewConst(types.Int32, int64(1)),
	})
	NewOp(loop, OpRet, nil, "")

	errs := VerifyFunction(fn)
	if len(errs) == 0 {
		t.Fatal("expected a phi arity verification error")
	}
}

func TestSweepRemovesDeadEffectFreeOps(t *testing.T) {
	sig := types.NewFunction(types.Void, nil, false)
	fn := NewFunction("f", sig)
	entry := fn.NewBlock("entry", nil)

	a := NewConst(types.Int32, int64(1))
	b := NewConst(types.Int32, int64(2))
	NewOp(entry, OpAdd, types.Int32, "unused", a, b) // dead, effect-free
	NewOp(entry, OpRet, nil, "")

	removed := Sweep(fn)
	if removed != 1 {
		t.Fatalf("expected Sweep to remove 1 op, removed %d", removed)
	}
	if len(entry.Ops) != 1 {
		t.Fatalf("expected only the ret to remain, got %d ops", len(entry.Ops))
	}
}

// allOpcodes flattens every op's opcode across fn's blocks in block
// order, matching test_lower_calls.py's opcodes(f) helper.
func allOpcodes(fn *Function) []string {
	var out []string
	for _, b := range fn.Blocks {
		for _, op := range b.Ops {
			out = append(out, op.Opcode)
		}
	}
	return out
}

func buildCallConvertRet(t *testing.T) (*Function, *BasicBlock, *Op) {
	t.Helper()
	sig := types.NewFunction(types.Int32, nil, false)
	fn := NewFunction("f", sig)
	entry := fn.NewBlock("entry", nil)

	calleeSig := types.NewFunction(types.Int32, nil, false)
	callee := &Value{Kind: ValueGlobal, Name: "callee", Type: calleeSig}
	call := NewOp(entry, OpCall, types.Int32, "call", callee)
	NewOp(entry, OpConvert, types.Int32, "conv", call.Result)
	NewOp(entry, OpRet, nil, "", call.Result)
	return fn, entry, call
}

func TestLowerCallExceptionsLeavesPlainCallAlone(t *testing.T) {
	fn, _, _ := buildCallConvertRet(t)
	before := allOpcodes(fn)

	LowerCallExceptions(fn)

	after := allOpcodes(fn)
	if len(before) != len(after) {
		t.Fatalf("expected a call with no metadata to be left untouched, got %v", after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("expected %v, got %v", before, after)
		}
	}
}

func TestLowerCallExceptionsInsertsCheckError(t *testing.T) {
	fn, entry, call := buildCallConvertRet(t)
	call.AddMetadata(map[string]*Value{MetaExcBadval: NewConst(types.Int32, int64(0))})

	LowerCallExceptions(fn)

	if entry.Ops[1].Opcode != OpCheckError {
		t.Fatalf("expected check_error immediately after call, got %s", entry.Ops[1].Opcode)
	}
}

func TestLowerCallExceptionsRaiseSequence(t *testing.T) {
	fn, _, call := buildCallConvertRet(t)
	call.AddMetadata(map[string]*Value{
		MetaExcBadval: NewConst(types.Int32, int64(0)),
		MetaExcRaise:  NewConst(types.Exception, "RuntimeError"),
	})

	LowerCallExceptions(fn)

	want := []string{"call", "convert", "eq", "cbranch", "new_exc", "exc_throw", "convert", "ret"}
	got := allOpcodes(fn)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	var throwOp, newExcOp *Op
	for _, b := range fn.Blocks {
		for _, op := range b.Ops {
			switch op.Opcode {
			case OpExcThrow:
				throwOp = op
			case OpNewExc:
				newExcOp = op
			}
		}
	}
	if throwOp.Args[0] != newExcOp.Result {
		t.Fatal("expected exc_throw's first arg to be the new_exc op's result")
	}
	if newExcOp.Args[0].ConstVal.Lit != "RuntimeError" {
		t.Fatalf("expected new_exc's first arg to carry the raised exception kind, got %v", newExcOp.Args[0])
	}
}
