package sccp

import (
	"github.com/hassan/pykit/internal/cfa"
	"github.com/hassan/pykit/internal/ir"
)

// Rewrite applies a fixpoint Result to fn: unreachable blocks are
// dropped, values proven constant are materialized and substituted at
// every use, opcodes folded to dead effect-free ops are swept, cbranches
// with a known-constant condition collapse to an unconditional jump, and
// phis left with a single distinct live incoming value are pruned. It
// returns the total number of changes: values substituted, blocks
// pruned, branches collapsed, phis collapsed, and ops swept.
//
// Run to fixpoint by the caller (e.g. loop Analyze/Rewrite until Rewrite
// reports zero changes) — a single pass may, like pykit's own sccp,
// leave further opportunities for a second pass to clean up (e.g. a
// phi pruned to a single value that itself feeds another now-foldable
// op).
func Rewrite(fn *ir.Function, r *Result) int {
	changed := 0
	changed += substituteConstants(fn, r)
	changed += pruneUnreachable(fn, r)
	changed += rewriteBranches(fn, r)
	cfa.Rebuild(fn, false)
	changed += prunePhis(fn)
	changed += ir.Sweep(fn)
	return changed
}

func substituteConstants(fn *ir.Function, r *Result) int {
	repl := make(map[*ir.Value]*ir.Value)
	for _, b := range fn.Blocks {
		if !r.executable[b] {
			continue
		}
		for _, op := range b.Ops {
			if op.Result == nil || op.Opcode == ir.OpPhi {
				continue
			}
			lv := r.of(op.Result)
			if lv.Lat == ConstLat {
				repl[op.Result] = lv.Const
			}
		}
	}
	if len(repl) == 0 {
		return 0
	}
	for _, b := range fn.Blocks {
		for _, op := range b.Ops {
			op.ReplaceArgs(repl)
		}
	}
	return len(repl)
}

func pruneUnreachable(fn *ir.Function, r *Result) int {
	var dead []*ir.BasicBlock
	for _, b := range fn.Blocks {
		if !r.executable[b] {
			dead = append(dead, b)
		}
	}
	for _, b := range dead {
		for _, op := range append([]*ir.Op{}, b.Ops...) {
			op.Delete()
		}
		fn.RemoveBlock(b)
	}
	return len(dead)
}

func rewriteBranches(fn *ir.Function, r *Result) int {
	n := 0
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil || term.Opcode != ir.OpCBranch {
			continue
		}
		lv := r.of(term.Args[0])
		if lv.Lat != ConstLat {
			continue
		}
		target := term.Args[1]
		dead := term.Args[2].Block
		if !truthy(lv.Const) {
			target = term.Args[2]
			dead = term.Args[1].Block
		}
		b.RemoveSucc(dead)
		term.Opcode = ir.OpJump
		term.SetArgs([]*ir.Value{target})
		n++
	}
	return n
}

func prunePhis(fn *ir.Function) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, op := range append([]*ir.Op{}, b.Leaders()...) {
			if len(op.Phi.Preds) != len(b.Preds) {
				trimPhiToPreds(op, b.Preds)
			}
			if len(op.Phi.Values) == 1 {
				collapsePhi(fn, op, op.Phi.Values[0])
				n++
				continue
			}
			if allSame(op.Phi.Values) {
				collapsePhi(fn, op, op.Phi.Values[0])
				n++
			}
		}
	}
	return n
}

func trimPhiToPreds(op *ir.Op, preds []*ir.BasicBlock) {
	want := make(map[*ir.BasicBlock]bool, len(preds))
	for _, p := range preds {
		want[p] = true
	}
	var newPreds []*ir.BasicBlock
	var newValues []*ir.Value
	for i, p := range op.Phi.Preds {
		if want[p] {
			newPreds = append(newPreds, p)
			newValues = append(newValues, op.Phi.Values[i])
		}
	}
	op.Phi.Preds = newPreds
	op.SetPhiValues(newValues)
}

func allSame(vals []*ir.Value) bool {
	if len(vals) == 0 {
		return false
	}
	for _, v := range vals[1:] {
		if v != vals[0] {
			return false
		}
	}
	return true
}

func collapsePhi(fn *ir.Function, op *ir.Op, sole *ir.Value) {
	repl := map[*ir.Value]*ir.Value{op.Result: sole}
	for _, b := range fn.Blocks {
		for _, other := range b.Ops {
			if other == op {
				continue
			}
			other.ReplaceArgs(repl)
		}
	}
	op.Delete()
}
