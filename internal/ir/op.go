package ir

import (
	"fmt"
	"strings"

	"github.com/hassan/pykit/internal/types"
)

// Opcode vocabulary. Grounded verbatim in original_source/pykit/transform/dce.py's
// effect_free set plus the control/call/exception opcodes exercised by
// lower/tests/test_lower_calls.py and optimizations/tests/test_sccp.py.
const (
	OpAdd     = "add"
	OpSub     = "sub"
	OpMul     = "mul"
	OpDiv     = "div"
	OpMod     = "mod"
	OpLShift  = "lshift"
	OpRShift  = "rshift"
	OpBitAnd  = "bitand"
	OpBitOr   = "bitor"
	OpBitXor  = "bitxor"
	OpInvert  = "invert"
	OpNot     = "not_"
	OpUAdd    = "uadd"
	OpUSub    = "usub"

	OpEq = "eq"
	OpNe = "ne"
	OpLt = "lt"
	OpLe = "le"
	OpGt = "gt"
	OpGe = "ge"

	OpAlloca     = "alloca"
	OpLoad       = "load"
	OpStore      = "store"
	OpPtrLoad    = "ptrload"
	OpPtrCast    = "ptrcast"
	OpPtrIsNull  = "ptr_isnull"
	OpGetField   = "getfield"
	OpGetIndex   = "getindex"
	OpAddressOf  = "addressof"

	OpJump    = "jump"
	OpCBranch = "cbranch"
	OpRet     = "ret"
	OpPhi     = "phi"

	OpCall        = "call"
	OpCheckError  = "check_error"

	OpNewExc    = "new_exc"
	OpExcThrow  = "exc_throw"
	OpExcSetup  = "exc_setup"

	OpConvert = "convert"
)

// EffectFree is the set of opcodes with no observable side effect beyond
// producing a result — ported verbatim from pykit's dce.py. An op whose
// opcode is in this set and whose result has no uses can be deleted
// outright; store, the control opcodes, call, check_error, convert, and
// the exc_* opcodes are deliberately excluded even though some of them (e.g.
// convert) look pure, matching the original's own, never-widened, set.
var EffectFree = map[string]bool{
	OpAlloca: true, OpLoad: true, OpNewExc: true, OpPhi: true,
	OpPtrLoad: true, OpPtrCast: true, OpPtrIsNull: true,
	OpGetField: true, OpGetIndex: true,
	OpAdd: true, OpSub: true, OpMul: true, OpDiv: true, OpMod: true,
	OpLShift: true, OpRShift: true, OpBitAnd: true, OpBitOr: true, OpBitXor: true,
	OpInvert: true, OpNot: true, OpUAdd: true, OpUSub: true,
	OpEq: true, OpNe: true, OpLt: true, OpLe: true, OpGt: true, OpGe: true,
	OpAddressOf: true,
}

// terminators is the set of opcodes allowed to end a BasicBlock.
var terminators = map[string]bool{
	OpJump: true, OpCBranch: true, OpRet: true, OpExcThrow: true,
}

// IsTerminator reports whether opcode ends a block.
func IsTerminator(opcode string) bool { return terminators[opcode] }

// PhiArgs holds a phi's parallel (predecessor, incoming value) pairs —
// the "possibly-nested" argument shape §3 calls out for phi specifically,
// kept as a separate struct instead of flattening into Op.Args so that
// CFA's find_phis and reg2mem's copy insertion can walk predecessor/value
// pairs directly instead of re-deriving the pairing from block order.
type PhiArgs struct {
	Preds  []*BasicBlock
	Values []*Value
}

// Op is the single generic instruction type: an opcode drawn from the
// vocabulary above, an optional result, a flat operand list, and (for
// phi only) parallel predecessor/value pairs. Using one Go type for every
// opcode — rather than one struct per opcode as the teacher's Instruction
// interface did — is what lets passes like SCCP and reg2mem iterate
// "every op's operands" generically instead of type-switching on opcode.
type Op struct {
	Opcode string
	Result *Value
	Args   []*Value
	Phi    *PhiArgs
	// Metadata holds per-op annotations such as exc.badval/exc.raise,
	// which LowerCallExceptions reads; it is NOT tracked in the
	// function's uses-map.
	Metadata map[string]*Value
	Block    *BasicBlock
}

// Operands returns every Value this op reads: Args plus, for phi, the
// incoming values.
func (op *Op) Operands() []*Value {
	if op.Phi == nil {
		return op.Args
	}
	all := make([]*Value, 0, len(op.Args)+len(op.Phi.Values))
	all = append(all, op.Args...)
	all = append(all, op.Phi.Values...)
	return all
}

// IsEffectFree reports whether op's opcode has no side effect beyond its
// result.
func (op *Op) IsEffectFree() bool { return EffectFree[op.Opcode] }

func (op *Op) String() string {
	var sb strings.Builder
	if op.Result != nil {
		sb.WriteString(op.Result.String())
		sb.WriteString(" = ")
	}
	sb.WriteString(op.Opcode)
	if op.Phi != nil {
		sb.WriteString("(")
		for i, p := range op.Phi.Preds {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %s", p.Name, op.Phi.Values[i])
		}
		sb.WriteString(")")
		return sb.String()
	}
	sb.WriteString("(")
	for i, a := range op.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// SetArgs replaces op's flat argument list, updating the owning
// function's uses-map for every value dropped or newly referenced.
func (op *Op) SetArgs(args []*Value) {
	fn := op.function()
	if fn != nil {
		for _, old := range op.Args {
			fn.untrackUse(old, op)
		}
	}
	op.Args = args
	if fn != nil {
		for _, a := range args {
			fn.trackUse(a, op)
		}
	}
}

// SetPhiValues replaces a phi op's incoming-value list (keeping Preds
// unchanged), updating the uses-map accordingly.
func (op *Op) SetPhiValues(values []*Value) {
	if op.Phi == nil {
		return
	}
	fn := op.function()
	if fn != nil {
		for _, old := range op.Phi.Values {
			fn.untrackUse(old, op)
		}
	}
	op.Phi.Values = values
	if fn != nil {
		for _, v := range values {
			fn.trackUse(v, op)
		}
	}
}

// ReplaceArgs substitutes every operand present in repl (args and, for
// phi, incoming values alike) with its mapped replacement, updating the
// uses-map. Operands absent from repl are left untouched.
func (op *Op) ReplaceArgs(repl map[*Value]*Value) {
	if len(op.Args) > 0 {
		newArgs := make([]*Value, len(op.Args))
		changed := false
		for i, a := range op.Args {
			if r, ok := repl[a]; ok {
				newArgs[i] = r
				changed = true
			} else {
				newArgs[i] = a
			}
		}
		if changed {
			op.SetArgs(newArgs)
		}
	}
	if op.Phi != nil {
		newVals := make([]*Value, len(op.Phi.Values))
		changed := false
		for i, v := range op.Phi.Values {
			if r, ok := repl[v]; ok {
				newVals[i] = r
				changed = true
			} else {
				newVals[i] = v
			}
		}
		if changed {
			op.SetPhiValues(newVals)
		}
	}
}

// AddMetadata merges the given entries into op's metadata map.
// Metadata is never consulted by verify, SCCP, or reg2mem.
func (op *Op) AddMetadata(kv map[string]*Value) {
	if op.Metadata == nil {
		op.Metadata = make(map[string]*Value, len(kv))
	}
	for k, v := range kv {
		op.Metadata[k] = v
	}
}

func (op *Op) function() *Function {
	if op.Block == nil {
		return nil
	}
	return op.Block.Func
}

// Unlink detaches op from its block without touching the uses-map —
// useful when relocating an op to another block (Builder.Splitblock)
// rather than discarding it.
func (op *Op) Unlink() {
	if op.Block == nil {
		return
	}
	op.Block.removeOp(op)
	op.Block = nil
}

// Delete unlinks op and removes its own references to its operands from
// the owning function's uses-map. It does not check whether op.Result
// still has uses — callers are expected to check that first via
// Function.Uses or Function.HasUses.
func (op *Op) Delete() {
	fn := op.function()
	op.Unlink()
	if fn != nil {
		for _, v := range op.Operands() {
			fn.untrackUse(v, op)
		}
	}
}

// NewOp constructs an op with the given opcode and flat args, appends it
// to block, and — if resultType is non-nil — gives it a fresh result
// Value named from namePrefix. It always appends at the end of block;
// irbuilder.Builder does not use it and builds its ops at its own
// cursor instead. See Function.NewValue for result naming.
func NewOp(block *BasicBlock, opcode string, resultType types.Type, namePrefix string, args ...*Value) *Op {
	op := &Op{Opcode: opcode, Block: block}
	op.SetArgs(args)
	block.Append(op)
	if resultType != nil {
		op.Result = block.Func.NewValue(namePrefix, resultType)
		op.Result.Op = op
	}
	return op
}

// NewPhi constructs a phi op with the given parallel preds/values and
// appends it among block's leaders (see BasicBlock.Append, which keeps
// phi ops sorted ahead of non-phi ops).
func NewPhi(block *BasicBlock, resultType types.Type, namePrefix string, preds []*BasicBlock, values []*Value) *Op {
	op := &Op{Opcode: OpPhi, Block: block, Phi: &PhiArgs{Preds: preds}}
	op.SetPhiValues(values)
	block.Append(op)
	op.Result = block.Func.NewValue(namePrefix, resultType)
	op.Result.Op = op
	return op
}
