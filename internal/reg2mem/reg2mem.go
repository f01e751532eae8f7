// Package reg2mem destroys SSA form: every phi is replaced by a stack
// slot allocated in the function's entry block, each incoming edge gets
// a store to that slot instead of a phi argument, and every use of the
// phi's result becomes a load from the slot.
//
// Grounded in original_source/pykit/transform/reg2mem.py's module
// docstring, which names the one subtlety a naive version gets wrong:
// the "parallel swap problem". Given
//
//	loop: x2 = phi(entry: x0, loop: y2)
//	      y2 = phi(entry: y0, loop: x2)
//
// naively storing phi arguments as encountered in a single top-to-bottom
// pass corrupts the swap (y2's store would read x2's slot after it was
// already overwritten by x2's own store). This package avoids it by
// splitting every critical edge first, then — per predecessor block —
// evaluating (loading) every phi's incoming value for that edge *before*
// issuing any of that edge's stores.
package reg2mem

import (
	"github.com/hassan/pykit/internal/cfa"
	"github.com/hassan/pykit/internal/ir"
	"github.com/hassan/pykit/internal/irbuilder"
	"github.com/hassan/pykit/internal/irerrors"
)

// Run destroys SSA form in fn in place: splits critical edges, allocates
// one stack slot per phi at the entry block, replaces every phi with
// loads/stores, and replaces every remaining use of a former phi result
// with a load memoized per block (so a block that uses the same former
// phi result twice gets one load, not two).
//
// Run assumes fn is still well-formed SSA — every block terminated,
// every phi's arity matching its block's predecessors — and raises
// PassPrecondition eagerly rather than run over a function a prior
// pass (e.g. exception lowering) has already left malformed; see §4.F's
// INTERACTION WARNING against running reg2mem after such a pass.
func Run(fn *ir.Function) error {
	if errs := ir.VerifyFunction(fn); len(errs) > 0 {
		return irerrors.Wrap(irerrors.PassPrecondition, "reg2mem.Run", irerrors.Aggregate(errs...))
	}

	splitCriticalEdges(fn)

	phis := collectPhis(fn)
	if len(phis) == 0 {
		return nil
	}

	slots := allocateSlots(fn, phis)
	insertParallelCopies(fn, phis, slots)
	replaceUsesWithLoads(fn, phis, slots)
	removePhis(phis)

	cfa.Rebuild(fn, false)
	return nil
}

func collectPhis(fn *ir.Function) []*ir.Op {
	var out []*ir.Op
	for _, b := range fn.Blocks {
		out = append(out, b.Leaders()...)
	}
	return out
}

// splitCriticalEdges ensures no phi incoming edge is critical (pred with
// multiple successors landing on a succ with multiple preds), so a store
// inserted at the end of pred is guaranteed to run only along that one
// edge.
func splitCriticalEdges(fn *ir.Function) {
	cfa.Rebuild(fn, false)
	for _, ce := range cfa.CriticalEdges(fn) {
		pred, succ := ce[0], ce[1]
		splitEdge(fn, pred, succ)
	}
}

// splitEdge inserts a new block on the pred->succ edge and repoints
// pred's terminator and succ's phis at it.
func splitEdge(fn *ir.Function, pred, succ *ir.BasicBlock) {
	mid := fn.NewBlock(fn.NewTemp(pred.Name+"."+succ.Name+".edge"), pred)

	term := pred.Terminator()
	newArgs := make([]*ir.Value, len(term.Args))
	for i, a := range term.Args {
		if a.Kind == ir.ValueLabel && a.Block == succ {
			newArgs[i] = ir.NewLabel(mid)
		} else {
			newArgs[i] = a
		}
	}
	term.SetArgs(newArgs)
	pred.RemoveSucc(succ)
	pred.AddSucc(mid)
	mid.AddSucc(succ)

	b := irbuilder.New(fn)
	b.PositionAtEnd(mid)
	b.Jump(succ)
	// Jump() double-adds the mid->succ edge; harmless, AddSucc is
	// idempotent.

	for _, op := range succ.Leaders() {
		for i, p := range op.Phi.Preds {
			if p == pred {
				op.Phi.Preds[i] = mid
			}
		}
	}
}

func allocateSlots(fn *ir.Function, phis []*ir.Op) map[*ir.Op]*ir.Value {
	slots := make(map[*ir.Op]*ir.Value, len(phis))
	if len(fn.Blocks) == 0 {
		return slots
	}
	entry := fn.Blocks[0]
	b := irbuilder.New(fn)
	b.PositionAtBeginning(entry)
	for _, phi := range phis {
		slots[phi] = b.Alloca(phi.Result.Type)
	}
	return slots
}

// insertParallelCopies walks every predecessor block once and, for every
// phi that names it as a pred, stores that edge's incoming value into the
// phi's slot just before pred's terminator. It emits no loads itself: an
// incoming value that is a phi result is stored under its SSA name, and
// replaceUsesWithLoads then rewrites it to a load placed at the top of
// pred, ahead of all of pred's stores — the load-before-store ordering
// that avoids the swap problem described above.
func insertParallelCopies(fn *ir.Function, phis []*ir.Op, slots map[*ir.Op]*ir.Value) {
	preds := make(map[*ir.BasicBlock][]*ir.Op)
	for _, phi := range phis {
		for _, p := range phi.Phi.Preds {
			preds[p] = append(preds[p], phi)
		}
	}

	for pred, edgePhis := range preds {
		term := pred.Terminator()
		b := irbuilder.New(fn)
		b.PositionBefore(term)

		type pending struct {
			slot *ir.Value
			val  *ir.Value
		}
		// Collect every incoming value for this edge. If phi B's incoming
		// value is phi A's result, replaceUsesWithLoads later reads it
		// from A's slot at the top of pred, before A's store below.
		var copies []pending
		for _, phi := range edgePhis {
			copies = append(copies, pending{slot: slots[phi], val: incomingFor(phi, pred)})
		}
		for _, c := range copies {
			b.Store(c.slot, c.val)
		}
	}
}

func incomingFor(phi *ir.Op, pred *ir.BasicBlock) *ir.Value {
	for i, p := range phi.Phi.Preds {
		if p == pred {
			return phi.Phi.Values[i]
		}
	}
	return nil
}

// replaceUsesWithLoads substitutes every remaining use of a phi's result
// with a load from its slot, memoized per block so repeated uses in the
// same block share one load instead of re-reading the slot each time.
func replaceUsesWithLoads(fn *ir.Function, phis []*ir.Op, slots map[*ir.Op]*ir.Value) {
	for _, phi := range phis {
		slot := slots[phi]
		memo := make(map[*ir.BasicBlock]*ir.Value)
		for _, user := range fn.Uses(phi.Result) {
			if user == phi {
				continue
			}
			b := user.Block
			load, ok := memo[b]
			if !ok {
				bl := irbuilder.New(fn)
				bl.PositionAtBeginning(b)
				load = bl.Load(slot)
				memo[b] = load
			}
			user.ReplaceArgs(map[*ir.Value]*ir.Value{phi.Result: load})
		}
	}
}

func removePhis(phis []*ir.Op) {
	for _, phi := range phis {
		phi.Delete()
	}
}
