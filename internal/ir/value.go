// Package ir implements the typed SSA intermediate representation: typed
// Values flowing through Ops inside BasicBlocks inside Functions inside a
// Module, with a function-level uses-map kept in sync on every operand
// mutation.
//
// DESIGN PHILOSOPHY (kept from the teacher's internal/ir):
// a single Value struct tagged by Kind rather than separate
// Variable/Constant/Parameter types — uniform operand type, trivial to
// store in a slice of operands, easy to convert between kinds. Op,
// however, departs from the teacher: the spec models an Op as one struct
// carrying an opcode string from a fixed vocabulary plus an operand list,
// not one Go type per opcode. That shape is what lets SCCP and reg2mem
// operate generically over "every Op's args" without a type switch per
// opcode — see op.go.
package ir

import (
	"fmt"

	"github.com/hassan/pykit/internal/types"
)

// ValueKind tags which of the five IR entities described in §3 a Value
// stands for.
type ValueKind int

const (
	ValueOpResult ValueKind = iota
	ValueConst
	ValueParam
	ValueGlobal
	ValueLabel
)

// Const is a literal value plus its type — its own IR entity per §3,
// referenced from a Value of Kind ValueConst.
type Const struct {
	Type types.Type
	Lit  interface{}
}

func (c *Const) String() string { return fmt.Sprintf("const(%v)", c.Lit) }

// Value is the union of Op-result, Const, function-argument, global
// reference, and Block-label described in §3.
type Value struct {
	Kind ValueKind
	// ID is unique within the defining Function for Kind ValueOpResult
	// and ValueParam; nothing assigns one to a ValueGlobal (arena-style integer identity per §9's
	// design note, rather than Value pointer identity — two passes that
	// rebuild a Value for the "same" logical slot can still compare by
	// ID if needed, though the toolkit otherwise keys everything on the
	// *Value pointer).
	ID int
	// Name is the declared name (parameter/global) or, for an op
	// result, the cosmetic prefix given to Function.NewValue, which may
	// be empty.
	Name string
	Type types.Type

	// ConstVal is non-nil only when Kind == ValueConst.
	ConstVal *Const
	// Op is the defining instruction, non-nil only when Kind ==
	// ValueOpResult.
	Op *Op
	// Block is the referenced label, non-nil only when Kind ==
	// ValueLabel.
	Block *BasicBlock
}

// NewConst builds a Const-kind Value.
func NewConst(t types.Type, lit interface{}) *Value {
	return &Value{Kind: ValueConst, Type: t, ConstVal: &Const{Type: t, Lit: lit}}
}

// NewLabel builds a Label-kind Value referencing a block — this is how
// jump, cbranch and exc_throw targets are represented as ordinary operand
// Values (§3: "Value: union of ... Block-label"). A phi's preds are kept
// as blocks in PhiArgs, not as labels.
func NewLabel(b *BasicBlock) *Value {
	return &Value{Kind: ValueLabel, Type: types.Opaque, Name: b.Name, Block: b}
}

func (v *Value) String() string {
	switch v.Kind {
	case ValueConst:
		return v.ConstVal.String()
	case ValueParam:
		return fmt.Sprintf("param(%s.%d)", v.Name, v.ID)
	case ValueGlobal:
		return fmt.Sprintf("global(%s)", v.Name)
	case ValueLabel:
		return v.Block.Name
	default:
		if v.Name != "" {
			return fmt.Sprintf("%s.%d", v.Name, v.ID)
		}
		return fmt.Sprintf("t%d", v.ID)
	}
}

// IsConst reports whether v is a compile-time constant.
func (v *Value) IsConst() bool { return v.Kind == ValueConst }
