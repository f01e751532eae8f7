package ir

import "github.com/hassan/pykit/internal/types"

// Sweep performs one pass of effect-free dead-op elimination: any op
// whose opcode is in EffectFree and whose result has no remaining uses
// is deleted. This is deliberately a single non-fixpoint, non-recursive
// pass with no branch or dead-loop pruning — ported from pykit's own
// dce(func), whose module docstring TODO ("Prune branches, dead loops")
// was never implemented either. Callers that want a fixpoint call Sweep
// in a loop until it reports zero removals.
func Sweep(fn *Function) int {
	removed := 0
	for _, b := range fn.Blocks {
		var keep []*Op
		// Snapshot b.Ops first: deleting an op in place would otherwise
		// shift the backing array under this loop (the same hazard
		// LowerCallExceptions guards against below) and skip whatever
		// shifted into the index we just consumed.
		for _, op := range append([]*Op{}, b.Ops...) {
			if op.IsEffectFree() && op.Result != nil && !fn.HasUses(op.Result) {
				for _, v := range op.Operands() {
					fn.untrackUse(v, op)
				}
				op.Block = nil
				removed++
				continue
			}
			keep = append(keep, op)
		}
		b.Ops = keep
	}
	return removed
}

// Recognized metadata keys of the §6 metadata interface: exc.badval
// names the Const that signals an exception state, exc.raise names the
// Const-of-Exception kind to raise when it's seen. Neither key is
// required on a call; a call with neither is left untouched.
const (
	MetaExcBadval = "exc.badval"
	MetaExcRaise  = "exc.raise"
)

// LowerCallExceptions rewrites every call op in fn according to its own
// exc.badval/exc.raise metadata (scenario 6 of spec.md §8), matching
// pykit's lower_calls pass:
//
//   - neither key set: the call is left alone.
//   - exc.badval set, exc.raise unset: the call gains a check_error
//     immediately after it (`call, convert, ret` becomes
//     `call, check_error, convert, ret`).
//   - both keys set: InsertRaiseOnError splices in the full
//     compare-and-throw sequence.
//
// Ported from lower/tests/test_lower_calls.py, whose test_badval and
// test_raise cases are exercised verbatim in ir's test suite.
func LowerCallExceptions(fn *Function) {
	for _, b := range fn.Blocks {
		for _, op := range append([]*Op{}, b.Ops...) {
			if op.Opcode != OpCall {
				continue
			}
			lowerOneCall(fn, op)
		}
	}
}

func lowerOneCall(fn *Function, call *Op) {
	_, hasBadval := call.Metadata[MetaExcBadval]
	_, hasRaise := call.Metadata[MetaExcRaise]

	switch {
	case hasBadval && hasRaise:
		InsertRaiseOnError(fn, call)
	case hasBadval:
		check := &Op{Opcode: OpCheckError, Block: call.Block}
		check.SetArgs([]*Value{call.Result})
		call.Block.InsertAfter(call, check)
	default:
		// neither key set: plain call, nothing to lower.
	}
}

// InsertRaiseOnError splices a compare-and-throw sequence onto call,
// reading both its exc.badval and exc.raise metadata (both must be
// present; lowerOneCall only reaches this for calls with both set).
// It produces exactly scenario 6's literal opcode sequence
//
//	call, convert, eq, cbranch, new_exc, exc_throw, convert, ret
//
// by inserting a coercion convert (call's raw result into exc.badval's
// type, so the comparison is well-typed) and the eq/cbranch immediately
// after call, then relocating everything that originally followed call
// — in the 3-op example above, the program's own convert/ret — into a
// new continuation block, with a sibling block holding new_exc (first
// arg: exc.raise's Const) and exc_throw. Returns the new raise block.
func InsertRaiseOnError(fn *Function, call *Op) *BasicBlock {
	badval := call.Metadata[MetaExcBadval]
	raiseKind := call.Metadata[MetaExcRaise]
	b := call.Block

	coerced := fn.NewValue("errval", badval.Type)
	coerce := &Op{Opcode: OpConvert, Block: b, Result: coerced}
	coerce.SetArgs([]*Value{call.Result})
	coerced.Op = coerce
	b.InsertAfter(call, coerce)

	cmpVal := fn.NewValue("iserr", types.Bool)
	cmp := &Op{Opcode: OpEq, Block: b, Result: cmpVal}
	cmp.SetArgs([]*Value{coerced, badval})
	cmpVal.Op = cmp
	b.InsertAfter(coerce, cmp)

	branch := &Op{Opcode: OpCBranch, Block: b}
	b.InsertAfter(cmp, branch)

	// cont takes call's original tail (everything after call, now after
	// branch); errBlock is inserted ahead of it so block order — and so
	// the flattened op sequence — reads call-site, raise, continuation.
	cont := fn.NewBlock(fn.NewTemp(b.Name+".cont"), b)
	errBlock := fn.NewBlock(fn.NewTemp(b.Name+".raise"), b)

	branch.SetArgs([]*Value{cmpVal, NewLabel(errBlock), NewLabel(cont)})
	b.AddSucc(errBlock)
	b.AddSucc(cont)

	excVal := fn.NewValue("exc", types.Exception)
	newExc := &Op{Opcode: OpNewExc, Block: errBlock, Result: excVal}
	newExc.SetArgs([]*Value{raiseKind})
	excVal.Op = newExc
	errBlock.Append(newExc)

	throw := &Op{Opcode: OpExcThrow, Block: errBlock}
	throw.SetArgs([]*Value{excVal})
	errBlock.Append(throw)

	tail := tailAfter(b, branch)
	for _, op := range tail {
		op.Unlink()
		cont.Append(op)
	}
	for _, s := range append([]*BasicBlock{}, b.Succs...) {
		if s == errBlock || s == cont {
			continue
		}
		b.RemoveSucc(s)
		cont.AddSucc(s)
	}

	return errBlock
}

func tailAfter(b *BasicBlock, marker *Op) []*Op {
	idx := -1
	for i, op := range b.Ops {
		if op == marker {
			idx = i
			break
		}
	}
	if idx < 0 || idx+1 >= len(b.Ops) {
		return nil
	}
	tail := make([]*Op, len(b.Ops)-idx-1)
	copy(tail, b.Ops[idx+1:])
	return tail
}
