// Package types implements the structural, possibly-recursive type system
// that every IR value is explicitly tagged with.
//
// DESIGN PHILOSOPHY:
// Unlike a source-language type system, this one never infers anything:
// every Value in the IR already carries its Type. What this package buys
// you is structural equality (two independently built types compare equal
// if they have the same shape) and safe handling of self-referential
// structs, which show up constantly in generated IR (linked lists, trees,
// anything with a "next" pointer).
//
// KEY DESIGN CHOICES:
// - Structural equality everywhere except Typedef, which is a transparent
//   name wrapped around another type.
// - Struct types may embed themselves (directly, or through a Pointer).
//   Equality and hashing both have to terminate on that without special
//   casing every caller.
// - One Type per variant (IntType, ArrayType, ...), dispatched with type
//   switches. This mirrors how the rest of the toolkit is written and
//   keeps each variant's attributes compile-time checked instead of living
//   in an untyped payload.
package types

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Type is the interface every type variant implements.
type Type interface {
	// String returns the stable pretty-printed form described in the
	// outbound interface (§6): "Int32", "T*", "T[n]", "Vector<T, n>", ...
	String() string

	// kind reports the variant tag. Unexported on purpose: callers switch
	// on the concrete Go type or use the Is* predicates, not a raw tag.
	kind() Kind
}

// Kind is the variant tag used internally for fast dispatch and by Hash.
type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindReal
	KindArray
	KindVector
	KindPointer
	KindFunction
	KindStruct
	KindException
	KindBytes
	KindOpaque
	KindTypedef
)

// VoidType is the absence of a value.
type VoidType struct{}

func (*VoidType) String() string { return "Void" }
func (*VoidType) kind() Kind      { return KindVoid }

// BoolType is a single bit of truth.
type BoolType struct{}

func (*BoolType) String() string { return "Bool" }
func (*BoolType) kind() Kind      { return KindBool }

// IntType is a two's-complement integer of a given width and signedness.
//
// DESIGN CHOICE: one Int variant with a Bits/Unsigned pair rather than the
// teacher's separate IntType/UIntType-per-width family, and rather than
// pykit's split between Integral (bits, unsigned) and a wholly separate
// Real for floats. This closes Open Question (c) of the spec: signedness
// is an attribute of Int, not a different type constructor.
type IntType struct {
	Bits     int
	Unsigned bool
}

func (t *IntType) String() string {
	if t.Unsigned {
		return fmt.Sprintf("UInt%d", t.Bits)
	}
	return fmt.Sprintf("Int%d", t.Bits)
}
func (t *IntType) kind() Kind { return KindInt }

// RealType is an IEEE-754 floating point number.
type RealType struct {
	Bits int
}

func (t *RealType) String() string { return fmt.Sprintf("Float%d", t.Bits) }
func (t *RealType) kind() Kind      { return KindReal }

// ArrayType is a fixed-length sequence of Base, stored contiguously.
type ArrayType struct {
	Base  Type
	Count int
}

func (t *ArrayType) String() string { return fmt.Sprintf("%s[%d]", t.Base, t.Count) }
func (t *ArrayType) kind() Kind      { return KindArray }

// VectorType is a SIMD-style lane-packed sequence of Base.
type VectorType struct {
	Base  Type
	Count int
}

func (t *VectorType) String() string { return fmt.Sprintf("Vector<%s, %d>", t.Base, t.Count) }
func (t *VectorType) kind() Kind      { return KindVector }

// PointerType is the address of a Base-typed value.
type PointerType struct {
	Base Type
}

func (t *PointerType) String() string { return t.Base.String() + "*" }
func (t *PointerType) kind() Kind      { return KindPointer }

// FunctionType is a callable signature. Structurally typed: two Function
// values with the same restype/argtypes/varargs compare equal regardless
// of where they came from.
type FunctionType struct {
	RestType Type
	ArgTypes []Type
	Varargs  bool
}

// String renders a diagnostic-only form ("func(T, T) T"). §6 fixes no
// stable pretty-printed form for Function — only the scalar/Pointer/
// Array/Vector/Struct forms are part of the grammar ParseType accepts —
// so this intentionally does not round-trip through ParseType; the §8
// round-trip property is exercised over the types the grammar does
// cover.
func (t *FunctionType) String() string {
	parts := make([]string, len(t.ArgTypes))
	for i, a := range t.ArgTypes {
		parts[i] = a.String()
	}
	args := strings.Join(parts, ", ")
	if t.Varargs {
		if args != "" {
			args += ", ..."
		} else {
			args = "..."
		}
	}
	return fmt.Sprintf("func(%s) %s", args, t.RestType)
}
func (t *FunctionType) kind() Kind { return KindFunction }

// StructType is an ordered, named field list. Fields may reference the
// struct itself, directly or through a Pointer; see §3's INVARIANTS.
//
// DESIGN CHOICE: Names and Types are two parallel slices, not one slice of
// (name, type) pairs, to match pykit's `Struct(names, types)` shape
// exactly — the recursive-equality and self-reference code is a close
// port of pykit/types.py and keeping the same shape kept the port honest.
type StructType struct {
	Names []string
	Types []Type
}

// NewEmptyStruct returns a struct with no fields yet, so the caller can
// append self-referential fields (Pointer(self), or self directly) after
// construction — this is how recursive structs are built in practice; see
// Equals and the ...*/ ... pretty-print escapes below.
func NewEmptyStruct() *StructType {
	return &StructType{Names: nil, Types: nil}
}

// Append adds one field, keeping Names and Types parallel.
func (t *StructType) Append(name string, fieldType Type) {
	t.Names = append(t.Names, name)
	t.Types = append(t.Types, fieldType)
}

func (t *StructType) kind() Kind { return KindStruct }

func (t *StructType) String() string {
	return formatStruct(t, nil)
}

// formatStruct renders a struct, escaping direct or pointer self-reference
// as "..." / "...*" instead of recursing forever. `open` is the stack of
// struct frames currently being printed (outermost first); a field whose
// type resolves back to any frame on that stack is self-reference.
func formatStruct(t *StructType, open []*StructType) string {
	open = append(open, t)

	parts := make([]string, len(t.Types))
	for i, ft := range t.Types {
		parts[i] = t.Names[i] + ":" + formatField(ft, open)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func formatField(ft Type, open []*StructType) string {
	resolved := ResolveTypedef(ft)

	if s, ok := resolved.(*StructType); ok {
		if isOpen(s, open) {
			return "..."
		}
		return formatStruct(s, open)
	}
	if p, ok := resolved.(*PointerType); ok {
		if s, ok := ResolveTypedef(p.Base).(*StructType); ok && isOpen(s, open) {
			return "...*"
		}
	}
	return ft.String()
}

func isOpen(s *StructType, open []*StructType) bool {
	for _, o := range open {
		if o == s {
			return true
		}
	}
	return false
}

// LookupField returns the index of a named field, or -1.
func (t *StructType) LookupField(name string) int {
	for i, n := range t.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// ExceptionType is the type of a raised/caught exception value.
type ExceptionType struct{}

func (*ExceptionType) String() string { return "Exception" }
func (*ExceptionType) kind() Kind      { return KindException }

// BytesType is an opaque byte string.
type BytesType struct{}

func (*BytesType) String() string { return "Bytes" }
func (*BytesType) kind() Kind      { return KindBytes }

// OpaqueType is a type the toolkit makes zero assumptions about.
type OpaqueType struct{}

func (*OpaqueType) String() string { return "Opaque" }
func (*OpaqueType) kind() Kind      { return KindOpaque }

// TypedefType is a named, transparent alias. Equality, hashing, and every
// Is* predicate resolve through it to Target; Name is kept only for
// diagnostics (error messages, pretty-printing a field whose declared
// type was a typedef).
type TypedefType struct {
	Name   string
	Target Type
}

func (t *TypedefType) String() string { return t.Name }
func (t *TypedefType) kind() Kind      { return KindTypedef }

// ResolveTypedef unwraps a chain of typedefs until a non-typedef variant
// is reached. Safe against typedef cycles built by mistake: it gives up
// after 10000 steps and returns the type reached at that point.
func ResolveTypedef(t Type) Type {
	seen := 0
	for {
		td, ok := t.(*TypedefType)
		if !ok {
			return t
		}
		t = td.Target
		seen++
		if seen > 10000 {
			// A typedef cycle is a construction bug, not a recursive type
			// (those are expressed with Pointer/Struct, not Typedef) —
			// bail rather than spin forever.
			return t
		}
	}
}

// pair identifies two types being compared, by identity (pointer value),
// mirroring pykit's `(id(a), id(b)) in seen` cycle guard.
type pair struct{ a, b Type }

// Equals reports whether a and b have the same structure. It resolves
// typedefs on either side first, then compares variant and attributes;
// Struct fields recurse under a visited-pair set so a self-referential
// struct compares equal to itself (and to an independently built but
// identically shaped struct) without looping forever.
func Equals(a, b Type) bool {
	return equals(a, b, map[pair]bool{})
}

func equals(a, b Type, seen map[pair]bool) bool {
	p := pair{a, b}
	if seen[p] {
		// Already comparing this exact pair further up the call stack:
		// assume equal and let the enclosing comparison decide.
		return true
	}
	seen[p] = true

	a = ResolveTypedef(a)
	b = ResolveTypedef(b)

	if a.kind() != b.kind() {
		return false
	}

	switch av := a.(type) {
	case *VoidType, *BoolType, *ExceptionType, *BytesType, *OpaqueType:
		return true
	case *IntType:
		bv := b.(*IntType)
		return av.Bits == bv.Bits && av.Unsigned == bv.Unsigned
	case *RealType:
		bv := b.(*RealType)
		return av.Bits == bv.Bits
	case *ArrayType:
		bv := b.(*ArrayType)
		return av.Count == bv.Count && equals(av.Base, bv.Base, seen)
	case *VectorType:
		bv := b.(*VectorType)
		return av.Count == bv.Count && equals(av.Base, bv.Base, seen)
	case *PointerType:
		bv := b.(*PointerType)
		return equals(av.Base, bv.Base, seen)
	case *FunctionType:
		bv := b.(*FunctionType)
		if av.Varargs != bv.Varargs || len(av.ArgTypes) != len(bv.ArgTypes) {
			return false
		}
		if !equals(av.RestType, bv.RestType, seen) {
			return false
		}
		for i := range av.ArgTypes {
			if !equals(av.ArgTypes[i], bv.ArgTypes[i], seen) {
				return false
			}
		}
		return true
	case *StructType:
		bv := b.(*StructType)
		if len(av.Names) != len(bv.Names) {
			return false
		}
		for i := range av.Names {
			if av.Names[i] != bv.Names[i] {
				return false
			}
			if !equals(av.Types[i], bv.Types[i], seen) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Hash is consistent with Equals: Equals(a, b) implies Hash(a) == Hash(b).
// Struct types hash to a fixed constant (pykit does the same) since
// hashing a recursive struct's fields would require the same cycle
// machinery as Equals for no real benefit — structs are rarely used as
// map keys, and when they are, the constant just forces a linear Equals
// scan of the bucket.
func Hash(t Type) uint64 {
	t = ResolveTypedef(t)

	if t.kind() == KindStruct {
		return 0
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%d", t.kind())

	switch v := t.(type) {
	case *IntType:
		fmt.Fprintf(h, ":%d:%v", v.Bits, v.Unsigned)
	case *RealType:
		fmt.Fprintf(h, ":%d", v.Bits)
	case *ArrayType:
		fmt.Fprintf(h, ":%d:%d", Hash(v.Base), v.Count)
	case *VectorType:
		fmt.Fprintf(h, ":%d:%d", Hash(v.Base), v.Count)
	case *PointerType:
		fmt.Fprintf(h, ":%d", Hash(v.Base))
	case *FunctionType:
		fmt.Fprintf(h, ":%d:%v", Hash(v.RestType), v.Varargs)
		for _, a := range v.ArgTypes {
			fmt.Fprintf(h, ":%d", Hash(a))
		}
	}

	return h.Sum64()
}

// Predefined singletons, used throughout the toolkit instead of
// allocating a fresh struct every time a caller needs "the" Int32 type.
var (
	Void      = &VoidType{}
	Bool      = &BoolType{}
	Exception = &ExceptionType{}
	Bytes     = &BytesType{}
	Opaque    = &OpaqueType{}

	Int8    = &IntType{Bits: 8}
	Int16   = &IntType{Bits: 16}
	Int32   = &IntType{Bits: 32}
	Int64   = &IntType{Bits: 64}
	Int128  = &IntType{Bits: 128}
	UInt8   = &IntType{Bits: 8, Unsigned: true}
	UInt16  = &IntType{Bits: 16, Unsigned: true}
	UInt32  = &IntType{Bits: 32, Unsigned: true}
	UInt64  = &IntType{Bits: 64, Unsigned: true}
	UInt128 = &IntType{Bits: 128, Unsigned: true}

	Float32 = &RealType{Bits: 32}
	Float64 = &RealType{Bits: 64}

	// Typedefs, matching pykit's C-ish alias family.
	Char      = &TypedefType{Name: "Char", Target: Int8}
	Short     = &TypedefType{Name: "Short", Target: Int16}
	Int       = &TypedefType{Name: "Int", Target: Int32}
	Long      = &TypedefType{Name: "Long", Target: Int32}
	LongLong  = &TypedefType{Name: "LongLong", Target: Int32}
	UChar     = &TypedefType{Name: "UChar", Target: UInt8}
	UShort    = &TypedefType{Name: "UShort", Target: UInt16}
	UInt      = &TypedefType{Name: "UInt", Target: UInt32}
	ULong     = &TypedefType{Name: "ULong", Target: UInt32}
	ULongLong = &TypedefType{Name: "ULongLong", Target: UInt32}
)

// NewArray constructs an Array(base, count) type.
func NewArray(base Type, count int) *ArrayType { return &ArrayType{Base: base, Count: count} }

// NewVector constructs a Vector(base, count) type.
func NewVector(base Type, count int) *VectorType { return &VectorType{Base: base, Count: count} }

// NewPointer constructs a Pointer(base) type.
func NewPointer(base Type) *PointerType { return &PointerType{Base: base} }

// NewFunction constructs a Function(restype, argtypes, varargs) type.
func NewFunction(restype Type, argtypes []Type, varargs bool) *FunctionType {
	return &FunctionType{RestType: restype, ArgTypes: argtypes, Varargs: varargs}
}

// NewTypedef constructs a named alias for target.
func NewTypedef(name string, target Type) *TypedefType {
	return &TypedefType{Name: name, Target: target}
}
