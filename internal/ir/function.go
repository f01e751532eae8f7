package ir

import (
	"fmt"

	"github.com/hassan/pykit/internal/types"
)

// Function is a sequence of BasicBlocks plus the bookkeeping the rest of
// the toolkit depends on: a monotonic id generator for fresh temporaries
// (NewTemp/NewValue) and the function-wide uses-map (§3/§4's "uses-map:
// map from value to the set of ops that reference it") kept in sync by
// every Op mutation in op.go.
type Function struct {
	Name    string
	Type    *types.FunctionType
	Params  []*Value
	Blocks  []*BasicBlock
	Entry   *BasicBlock

	nextID int
	uses   map[*Value]map[*Op]struct{}
}

// NewFunction creates an empty function of the given signature with no
// blocks yet.
func NewFunction(name string, sig *types.FunctionType) *Function {
	fn := &Function{Name: name, Type: sig, uses: make(map[*Value]map[*Op]struct{})}
	fn.Params = make([]*Value, len(sig.ArgTypes))
	for i, t := range sig.ArgTypes {
		fn.Params[i] = &Value{Kind: ValueParam, ID: fn.freshID(), Name: fmt.Sprintf("arg%d", i), Type: t}
	}
	return fn
}

func (fn *Function) freshID() int {
	id := fn.nextID
	fn.nextID++
	return id
}

// NewTemp returns a fresh compiler-generated name built from prefix,
// unique within fn — e.g. NewTemp("t") might return "t.0", then "t.1".
func (fn *Function) NewTemp(prefix string) string {
	return fmt.Sprintf("%s.%d", prefix, fn.freshID())
}

// NewValue allocates a fresh Op-result Value of the given type. The name
// is cosmetic (diagnostics only); identity is the returned pointer.
func (fn *Function) NewValue(namePrefix string, t types.Type) *Value {
	return &Value{Kind: ValueOpResult, ID: fn.freshID(), Name: namePrefix, Type: t}
}

// NewBlock creates a new block named name and appends it to fn's block
// list. If after is non-nil, the new block is inserted immediately
// following it instead.
func (fn *Function) NewBlock(name string, after *BasicBlock) *BasicBlock {
	b := &BasicBlock{Name: name, Func: fn}
	if after == nil {
		fn.Blocks = append(fn.Blocks, b)
		return b
	}
	for i, existing := range fn.Blocks {
		if existing == after {
			fn.Blocks = append(fn.Blocks, nil)
			copy(fn.Blocks[i+2:], fn.Blocks[i+1:])
			fn.Blocks[i+1] = b
			return b
		}
	}
	fn.Blocks = append(fn.Blocks, b)
	return b
}

// RemoveBlock deletes b from fn's block list (used by SCCP's dead-block
// pruning). It does not touch b's ops' uses-map entries — callers that
// actually discard a block's ops should Delete each op first.
func (fn *Function) RemoveBlock(b *BasicBlock) {
	out := fn.Blocks[:0]
	for _, x := range fn.Blocks {
		if x != b {
			out = append(out, x)
		}
	}
	fn.Blocks = out
}

// Uses returns the set of ops that reference v as an operand.
func (fn *Function) Uses(v *Value) []*Op {
	set := fn.uses[v]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Op, 0, len(set))
	for op := range set {
		out = append(out, op)
	}
	return out
}

// HasUses reports whether v has any referencing op.
func (fn *Function) HasUses(v *Value) bool { return len(fn.uses[v]) > 0 }

func (fn *Function) trackUse(v *Value, op *Op) {
	if v == nil {
		return
	}
	if fn.uses[v] == nil {
		fn.uses[v] = make(map[*Op]struct{})
	}
	fn.uses[v][op] = struct{}{}
}

func (fn *Function) untrackUse(v *Value, op *Op) {
	if v == nil {
		return
	}
	delete(fn.uses[v], op)
	if len(fn.uses[v]) == 0 {
		delete(fn.uses, v)
	}
}

func (fn *Function) String() string {
	s := "func " + fn.Name + "\n"
	for _, b := range fn.Blocks {
		s += b.Name + ":\n"
		for _, op := range b.Ops {
			s += "  " + op.String() + "\n"
		}
	}
	return s
}
