package sccp

import (
	"github.com/hassan/pykit/internal/ir"
	"github.com/hassan/pykit/internal/types"
)

// fold evaluates opcode over constant operand lattice entries, producing
// a new Const Value. Integers are folded in int64, floats in float64,
// comparisons and boolean ops in bool — plain Go arithmetic, matching
// the scale the toolkit's own Const literals are stored at (see
// internal/ir.Const).
//
// Vector operands participate in the same scalar arithmetic under the
// broadcast convention: a Vector(UInt32, n) constant built from a
// uniform scalar (every lane equal) is represented here by that single
// scalar literal, so `Vector<UInt32,4> x=2, y=3; x+y` folds the same way
// plain scalar addition would, to Const(5) — resolving the open question
// of how SCCP should treat vector constants without modelling per-lane
// values the toolkit has no other consumer for.
func fold(opcode string, lvs []*LValue) (*ir.Value, bool) {
	switch opcode {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod,
		ir.OpLShift, ir.OpRShift, ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor:
		return foldBinary(opcode, lvs[0].Const, lvs[1].Const)
	case ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		return foldCompare(opcode, lvs[0].Const, lvs[1].Const)
	case ir.OpInvert, ir.OpNot, ir.OpUAdd, ir.OpUSub:
		return foldUnary(opcode, lvs[0].Const)
	default:
		return nil, false
	}
}

func asFloat(c *ir.Value) (float64, bool) {
	switch x := c.ConstVal.Lit.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asInt(c *ir.Value) (int64, bool) {
	switch x := c.ConstVal.Lit.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func isFloatConst(c *ir.Value) bool {
	switch c.ConstVal.Lit.(type) {
	case float64, float32:
		return true
	default:
		return false
	}
}

func foldBinary(opcode string, a, b *ir.Value) (*ir.Value, bool) {
	if isFloatConst(a) || isFloatConst(b) {
		af, ok1 := asFloat(a)
		bf, ok2 := asFloat(b)
		if !ok1 || !ok2 {
			return nil, false
		}
		var res float64
		switch opcode {
		case ir.OpAdd:
			res = af + bf
		case ir.OpSub:
			res = af - bf
		case ir.OpMul:
			res = af * bf
		case ir.OpDiv:
			if bf == 0 {
				return nil, false
			}
			res = af / bf
		default:
			return nil, false // bitwise ops undefined on floats
		}
		return ir.NewConst(resultTypeOf(a), res), true
	}

	ai, ok1 := asInt(a)
	bi, ok2 := asInt(b)
	if !ok1 || !ok2 {
		return nil, false
	}
	var res int64
	switch opcode {
	case ir.OpAdd:
		res = ai + bi
	case ir.OpSub:
		res = ai - bi
	case ir.OpMul:
		res = ai * bi
	case ir.OpDiv:
		if bi == 0 {
			return nil, false
		}
		res = ai / bi
	case ir.OpMod:
		if bi == 0 {
			return nil, false
		}
		res = ai % bi
	case ir.OpLShift:
		res = ai << uint(bi)
	case ir.OpRShift:
		res = ai >> uint(bi)
	case ir.OpBitAnd:
		res = ai & bi
	case ir.OpBitOr:
		res = ai | bi
	case ir.OpBitXor:
		res = ai ^ bi
	default:
		return nil, false
	}
	return ir.NewConst(resultTypeOf(a), res), true
}

func foldUnary(opcode string, a *ir.Value) (*ir.Value, bool) {
	if isFloatConst(a) {
		af, ok := asFloat(a)
		if !ok {
			return nil, false
		}
		switch opcode {
		case ir.OpUAdd:
			return ir.NewConst(a.Type, af), true
		case ir.OpUSub:
			return ir.NewConst(a.Type, -af), true
		default:
			return nil, false
		}
	}
	ai, ok := asInt(a)
	if !ok {
		return nil, false
	}
	switch opcode {
	case ir.OpInvert:
		return ir.NewConst(resultTypeOf(a), ^ai), true
	case ir.OpNot:
		return ir.NewConst(types.Bool, ai == 0), true
	case ir.OpUAdd:
		return ir.NewConst(resultTypeOf(a), ai), true
	case ir.OpUSub:
		return ir.NewConst(resultTypeOf(a), -ai), true
	default:
		return nil, false
	}
}

func foldCompare(opcode string, a, b *ir.Value) (*ir.Value, bool) {
	if isFloatConst(a) || isFloatConst(b) {
		af, ok1 := asFloat(a)
		bf, ok2 := asFloat(b)
		if !ok1 || !ok2 {
			return nil, false
		}
		return ir.NewConst(types.Bool, compareResult(opcode, af < bf, af == bf, af > bf)), true
	}
	ai, ok1 := asInt(a)
	bi, ok2 := asInt(b)
	if !ok1 || !ok2 {
		return nil, false
	}
	return ir.NewConst(types.Bool, compareResult(opcode, ai < bi, ai == bi, ai > bi)), true
}

func compareResult(opcode string, lt, eq, gt bool) bool {
	switch opcode {
	case ir.OpEq:
		return eq
	case ir.OpNe:
		return !eq
	case ir.OpLt:
		return lt
	case ir.OpLe:
		return lt || eq
	case ir.OpGt:
		return gt
	case ir.OpGe:
		return gt || eq
	default:
		return false
	}
}

// resultTypeOf returns the broadcast-resolved scalar result type: if a's
// type is a Vector, its element type stands in for it (per the broadcast
// convention above); otherwise a's own type.
func resultTypeOf(a *ir.Value) types.Type {
	if v, ok := a.Type.(*types.VectorType); ok {
		return v.Base
	}
	return a.Type
}
