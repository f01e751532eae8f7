// Package irbuilder provides a positional-cursor API for emitting IR,
// playing the role the teacher's internal/ir.Builder played for its
// AST-lowering walk — but consuming no AST: callers position the cursor
// and call one emission method (Binary, Load, Jump, ...) per instruction
// they want appended.
package irbuilder

import (
	"github.com/hassan/pykit/internal/ir"
	"github.com/hassan/pykit/internal/types"
)

// Builder is a cursor over a Function: PositionAt* methods move it, the
// emission methods (Binary, Alloca, Load, Jump, ...) insert relative to
// it.
type Builder struct {
	Fn            *ir.Function
	block         *ir.BasicBlock
	after         *ir.Op // non-nil: insert immediately after this op
	before        *ir.Op // non-nil: insert immediately before this op
	insertAtFront bool   // true: insert at the very front (PositionAtBeginning, empty leaders)
}

// New returns a builder with no current block — callers must position it
// before emitting.
func New(fn *ir.Function) *Builder { return &Builder{Fn: fn} }

// resetCursor clears every positional field before a PositionAt* call
// sets the ones it needs, so a stale before/after/insertAtFront from a
// prior positioning call can't leak into the next one's insert.
func (bl *Builder) resetCursor() {
	bl.after = nil
	bl.before = nil
	bl.insertAtFront = false
}

// PositionAtEnd points the cursor at the end of b.
func (bl *Builder) PositionAtEnd(b *ir.BasicBlock) {
	bl.resetCursor()
	bl.block = b
}

// PositionAtBeginning points the cursor just after b's phi leaders (i.e.
// before the first non-phi op).
func (bl *Builder) PositionAtBeginning(b *ir.BasicBlock) {
	bl.resetCursor()
	bl.block = b
	leaders := b.Leaders()
	if len(leaders) == 0 {
		bl.insertAtFront = true
		return
	}
	bl.after = leaders[len(leaders)-1]
}

// PositionBefore/PositionAfter anchor the cursor relative to an existing
// op in the same block.
func (bl *Builder) PositionBefore(op *ir.Op) {
	bl.resetCursor()
	bl.block = op.Block
	bl.before = op
}

func (bl *Builder) PositionAfter(op *ir.Op) {
	bl.resetCursor()
	bl.block = op.Block
	bl.after = op
}

// insert appends op at the cursor's current position.
func (bl *Builder) insert(op *ir.Op) {
	switch {
	case bl.insertAtFront && len(bl.block.Ops) > 0:
		bl.block.InsertBefore(bl.block.Ops[0], op)
		bl.after = op
	case bl.before != nil:
		bl.block.InsertBefore(bl.before, op)
	case bl.after != nil:
		bl.block.InsertAfter(bl.after, op)
		bl.after = op
	default:
		bl.block.Append(op)
		bl.after = op
	}
	bl.insertAtFront = false
}

func (bl *Builder) newResult(prefix string, t types.Type) *ir.Value {
	return bl.Fn.NewValue(prefix, t)
}

func (bl *Builder) emit(opcode string, resultType types.Type, prefix string, args ...*ir.Value) *ir.Op {
	op := &ir.Op{Opcode: opcode}
	bl.insert(op) // sets op.Block, required before SetArgs can track uses
	op.SetArgs(args)
	if resultType != nil {
		op.Result = bl.newResult(prefix, resultType)
		op.Result.Op = op
	}
	return op
}

// Binary emits opcode(lhs, rhs) with the given result type.
func (bl *Builder) Binary(opcode string, resultType types.Type, lhs, rhs *ir.Value) *ir.Value {
	return bl.emit(opcode, resultType, opcode, lhs, rhs).Result
}

// Unary emits opcode(operand).
func (bl *Builder) Unary(opcode string, resultType types.Type, operand *ir.Value) *ir.Value {
	return bl.emit(opcode, resultType, opcode, operand).Result
}

// Alloca emits a stack-slot allocation for elemType.
func (bl *Builder) Alloca(elemType types.Type) *ir.Value {
	return bl.emit(ir.OpAlloca, types.NewPointer(elemType), "slot").Result
}

// Load emits a load through a pointer-typed operand.
func (bl *Builder) Load(ptr *ir.Value) *ir.Value {
	pt, _ := ptr.Type.(*types.PointerType)
	var elem types.Type = types.Opaque
	if pt != nil {
		elem = pt.Base
	}
	return bl.emit(ir.OpLoad, elem, "load", ptr).Result
}

// Store emits a store of val through ptr; stores have no result.
func (bl *Builder) Store(ptr, val *ir.Value) *ir.Op {
	return bl.emit(ir.OpStore, nil, "", ptr, val)
}

// Call emits a call to callee with args, typed by callee's function
// signature's return type.
func (bl *Builder) Call(callee *ir.Value, args ...*ir.Value) *ir.Value {
	sig, _ := ptrToFunction(callee.Type)
	var ret types.Type = types.Void
	if sig != nil {
		ret = sig.RestType
	}
	all := append([]*ir.Value{callee}, args...)
	return bl.emit(ir.OpCall, ret, "call", all...).Result
}

func ptrToFunction(t types.Type) (*types.FunctionType, bool) {
	if f, ok := t.(*types.FunctionType); ok {
		return f, true
	}
	if p, ok := t.(*types.PointerType); ok {
		return ptrToFunction(p.Base)
	}
	return nil, false
}

// Jump emits an unconditional branch to target and records the CFG edge.
func (bl *Builder) Jump(target *ir.BasicBlock) *ir.Op {
	op := bl.emit(ir.OpJump, nil, "", ir.NewLabel(target))
	bl.block.AddSucc(target)
	return op
}

// CBranch emits a conditional branch and records both CFG edges.
func (bl *Builder) CBranch(cond *ir.Value, ifTrue, ifFalse *ir.BasicBlock) *ir.Op {
	op := bl.emit(ir.OpCBranch, nil, "", cond, ir.NewLabel(ifTrue), ir.NewLabel(ifFalse))
	bl.block.AddSucc(ifTrue)
	bl.block.AddSucc(ifFalse)
	return op
}

// Ret emits a return, with no operand when val is nil.
func (bl *Builder) Ret(val *ir.Value) *ir.Op {
	if val == nil {
		return bl.emit(ir.OpRet, nil, "")
	}
	return bl.emit(ir.OpRet, nil, "", val)
}

// Phi emits a phi op at the cursor (normally positioned at a block's
// beginning) with the given parallel preds/values.
func (bl *Builder) Phi(resultType types.Type, preds []*ir.BasicBlock, values []*ir.Value) *ir.Value {
	op := &ir.Op{Opcode: ir.OpPhi, Phi: &ir.PhiArgs{Preds: preds}}
	bl.insert(op) // sets op.Block, required before SetPhiValues can track uses
	op.SetPhiValues(values)
	op.Result = bl.newResult("phi", resultType)
	op.Result.Op = op
	return op.Result
}

// GetField emits a struct field-address computation.
func (bl *Builder) GetField(structPtr *ir.Value, field int) *ir.Value {
	idx := ir.NewConst(types.Int32, field)
	pt, _ := structPtr.Type.(*types.PointerType)
	var elemT types.Type = types.Opaque
	if pt != nil {
		if st, ok := pt.Base.(*types.StructType); ok && field < len(st.Types) {
			elemT = st.Types[field]
		}
	}
	return bl.emit(ir.OpGetField, types.NewPointer(elemT), "field", structPtr, idx).Result
}
