// Package sccp implements sparse conditional constant propagation: a
// combined dataflow analysis over a three-point lattice {Top, Const,
// Bottom} and an executable-edge reachability analysis, run to a
// fixpoint with two worklists (SSA-value and CFG-edge), followed by a
// rewrite pass that folds constants, prunes unreachable blocks, turns
// constant-condition cbranches into jumps, and prunes phis left with a
// single live incoming edge.
//
// Ported from the three literal scenarios in
// original_source/pykit/optimizations/tests/test_sccp.py: a straight-line
// fold, an endless self-looping block that leaves its successor
// unreachable, and a dead loop whose live path still folds to a
// constant return.
package sccp

import (
	"github.com/hassan/pykit/internal/cfa"
	"github.com/hassan/pykit/internal/ir"
)

// Lat is the three-point lattice.
type Lat int

const (
	Top Lat = iota
	ConstLat
	Bottom
)

// LValue is a Value's current lattice entry.
type LValue struct {
	Lat   Lat
	Const *ir.Value // set only when Lat == ConstLat
}

type edge struct{ from, to *ir.BasicBlock }

// Result holds the fixpoint reached by Analyze, consumed by Rewrite.
type Result struct {
	fn        *ir.Function
	executable map[*ir.BasicBlock]bool
	execEdge   map[edge]bool
	val        map[*ir.Value]*LValue
}

// Analyze runs SCCP to a fixpoint over fn and returns the result, without
// mutating fn. Call Rewrite with the result to apply it.
func Analyze(fn *ir.Function) *Result {
	r := &Result{
		fn:         fn,
		executable: make(map[*ir.BasicBlock]bool),
		execEdge:   make(map[edge]bool),
		val:        make(map[*ir.Value]*LValue),
	}
	if len(fn.Blocks) == 0 {
		return r
	}

	var cfgWork []edge
	var ssaWork []*ir.Value

	markEdge := func(from, to *ir.BasicBlock) {
		e := edge{from, to}
		if !r.execEdge[e] {
			r.execEdge[e] = true
			cfgWork = append(cfgWork, e)
		}
	}

	entry := fn.Blocks[0]
	markEdge(nil, entry)

	for len(cfgWork) > 0 || len(ssaWork) > 0 {
		for len(cfgWork) > 0 {
			e := cfgWork[0]
			cfgWork = cfgWork[1:]
			firstVisit := !r.executable[e.to]
			r.executable[e.to] = true

			for _, op := range e.to.Leaders() {
				changed := r.evalPhi(op)
				if changed {
					ssaWork = append(ssaWork, op.Result)
				}
			}

			if firstVisit {
				for _, op := range e.to.Ops {
					if op.Opcode == ir.OpPhi {
						continue
					}
					if r.evalOp(op) {
						if op.Result != nil {
							ssaWork = append(ssaWork, op.Result)
						}
					}
					r.propagateEdges(op, markEdge)
				}
			}
		}

		for len(ssaWork) > 0 {
			v := ssaWork[0]
			ssaWork = ssaWork[1:]
			for _, op := range fn.Uses(v) {
				if !r.executable[op.Block] {
					continue
				}
				var changed bool
				if op.Opcode == ir.OpPhi {
					changed = r.evalPhi(op)
				} else {
					changed = r.evalOp(op)
				}
				if changed && op.Result != nil {
					ssaWork = append(ssaWork, op.Result)
				}
				r.propagateEdges(op, markEdge)
			}
		}
	}

	return r
}

// propagateEdges pushes newly-executable CFG edges once a terminator's
// condition becomes known.
func (r *Result) propagateEdges(op *ir.Op, mark func(from, to *ir.BasicBlock)) {
	switch op.Opcode {
	case ir.OpJump:
		mark(op.Block, labelBlock(op.Args[0]))
	case ir.OpCBranch:
		lv := r.of(op.Args[0])
		switch lv.Lat {
		case ConstLat:
			if truthy(lv.Const) {
				mark(op.Block, labelBlock(op.Args[1]))
			} else {
				mark(op.Block, labelBlock(op.Args[2]))
			}
		case Bottom:
			mark(op.Block, labelBlock(op.Args[1]))
			mark(op.Block, labelBlock(op.Args[2]))
		}
	case ir.OpExcThrow:
		for _, a := range op.Args[1:] {
			mark(op.Block, labelBlock(a))
		}
	}
}

func labelBlock(v *ir.Value) *ir.BasicBlock { return v.Block }

func truthy(c *ir.Value) bool {
	switch x := c.ConstVal.Lit.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case int:
		return x != 0
	default:
		return false
	}
}

// of returns v's current lattice entry, treating constants and
// parameters specially: a literal Const is always ConstLat; a function
// parameter is always Bottom (unknown at this analysis's compile time).
func (r *Result) of(v *ir.Value) *LValue {
	if v == nil {
		return &LValue{Lat: Bottom}
	}
	if v.Kind == ir.ValueConst {
		return &LValue{Lat: ConstLat, Const: v}
	}
	if v.Kind == ir.ValueParam || v.Kind == ir.ValueGlobal {
		return &LValue{Lat: Bottom}
	}
	if lv, ok := r.val[v]; ok {
		return lv
	}
	return &LValue{Lat: Top}
}

func (r *Result) set(v *ir.Value, lv *LValue) bool {
	old := r.of(v)
	if old.Lat == lv.Lat && (lv.Lat != ConstLat || sameConst(old.Const, lv.Const)) {
		return false
	}
	// Monotone: never move backwards down the lattice.
	if old.Lat == Bottom {
		return false
	}
	r.val[v] = lv
	return true
}

func meet(a, b *LValue) *LValue {
	if a.Lat == Bottom || b.Lat == Bottom {
		return &LValue{Lat: Bottom}
	}
	if a.Lat == Top {
		return b
	}
	if b.Lat == Top {
		return a
	}
	if sameConst(a.Const, b.Const) {
		return a
	}
	return &LValue{Lat: Bottom}
}

// evalPhi meets the lattice values of every incoming edge currently
// believed executable.
func (r *Result) evalPhi(op *ir.Op) bool {
	acc := &LValue{Lat: Top}
	any := false
	for i, pred := range op.Phi.Preds {
		if !r.execEdge[edge{pred, op.Block}] {
			continue
		}
		any = true
		acc = meet(acc, r.of(op.Phi.Values[i]))
	}
	if !any {
		return false
	}
	return r.set(op.Result, acc)
}

// evalOp evaluates a non-phi, non-terminator-only op. Arithmetic and
// comparison opcodes fold when all operands are constant; every other
// opcode's result (load, call, getfield, ...) is conservatively Bottom,
// since this toolkit has no memory model to reason about across stores.
func (r *Result) evalOp(op *ir.Op) bool {
	if op.Result == nil {
		return false
	}
	if !isFoldable(op.Opcode) {
		return r.set(op.Result, &LValue{Lat: Bottom})
	}

	lvs := make([]*LValue, len(op.Args))
	allConst := true
	anyBottom := false
	for i, a := range op.Args {
		lvs[i] = r.of(a)
		switch lvs[i].Lat {
		case Bottom:
			anyBottom = true
		case Top:
			allConst = false
		}
	}
	if anyBottom {
		return r.set(op.Result, &LValue{Lat: Bottom})
	}
	if !allConst {
		return false // still waiting on an operand; stay Top
	}

	folded, ok := fold(op.Opcode, lvs)
	if !ok {
		return r.set(op.Result, &LValue{Lat: Bottom})
	}
	return r.set(op.Result, &LValue{Lat: ConstLat, Const: folded})
}

func isFoldable(opcode string) bool {
	switch opcode {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod,
		ir.OpLShift, ir.OpRShift, ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor,
		ir.OpInvert, ir.OpNot, ir.OpUAdd, ir.OpUSub,
		ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		return true
	default:
		return false
	}
}

func sameConst(a, b *ir.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ConstVal.Lit == b.ConstVal.Lit
}
