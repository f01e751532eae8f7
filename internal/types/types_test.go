package types

import "testing"

// TestRecursiveStructs ports pykit/tests/test_types.py's
// TestStructs.test_recursive_structs almost verbatim: a struct built with
// a Pointer-to-self field and a direct self-embedded field must compare
// equal to an independently built struct of the same shape, and must
// terminate.
func TestRecursiveStructs(t *testing.T) {
	create := func() *StructType {
		s := NewEmptyStruct()
		s.Append("spam", NewPointer(s))
		s.Append("ham", Int64)
		s.Append("eggs", s)
		return s
	}

	t1, t2 := create(), create()
	if !Equals(t1, t2) {
		t.Fatal("independently built recursive structs should be equal")
	}

	t3 := create()
	t3.Append("ham", Int32)
	t4 := create()
	t4.Append("ham", Int64)

	if Equals(t1, t3) {
		t.Fatal("structs with different field counts should not be equal")
	}
	if Equals(t3, t4) {
		t.Fatal("structs differing in one field type should not be equal")
	}
}

func TestRecursiveStructFormat(t *testing.T) {
	s := NewEmptyStruct()
	s.Append("spam", NewPointer(s))
	s.Append("ham", Int64)
	s.Append("eggs", s)

	want := "{ spam:...*, ham:Int64, eggs:... }"
	if got := s.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestEqualsImpliesHash(t *testing.T) {
	pairs := []struct {
		a, b Type
	}{
		{Int32, Int32},
		{Int32, NewTypedef("MyInt", Int32)},
		{NewPointer(Int64), NewPointer(Int64)},
		{NewArray(Bool, 4), NewArray(Bool, 4)},
		{NewVector(UInt32, 4), NewVector(UInt32, 4)},
		{NewFunction(Void, []Type{Int32, Int32}, false), NewFunction(Void, []Type{Int32, Int32}, false)},
	}

	for _, p := range pairs {
		if !Equals(p.a, p.b) {
			t.Fatalf("expected %s == %s", p.a, p.b)
		}
		if Hash(p.a) != Hash(p.b) {
			t.Fatalf("Equals(%s, %s) but Hash differs", p.a, p.b)
		}
	}
}

func TestTypedefTransparentForCapabilities(t *testing.T) {
	td := NewTypedef("Meters", Int32)
	if !IsInt(td) {
		t.Fatal("typedef of Int should report IsInt")
	}
	if !Equals(td, Int32) {
		t.Fatal("typedef should equal its target")
	}
}

func TestParseTypeRoundTrip(t *testing.T) {
	cases := []Type{
		Void, Bool, Bytes, Opaque, Exception,
		Int8, Int32, UInt64, Float32, Float64,
		NewPointer(Int32),
		NewArray(Int32, 10),
		NewVector(UInt32, 4),
		NewPointer(NewArray(Bool, 2)),
		func() Type {
			s := NewEmptyStruct()
			s.Append("x", Int32)
			s.Append("y", Int32)
			return s
		}(),
	}

	for _, want := range cases {
		str := want.String()
		got, err := ParseType(str)
		if err != nil {
			t.Fatalf("ParseType(%q) failed: %v", str, err)
		}
		if !Equals(got, want) {
			t.Fatalf("ParseType(%q) = %s, want %s", str, got, want)
		}
	}
}

func TestParseTypeRejectsGarbage(t *testing.T) {
	if _, err := ParseType("NotAType42"); err == nil {
		t.Fatal("expected an error for an unknown type name")
	}
	if _, err := ParseType("Int32 trailing"); err == nil {
		t.Fatal("expected an error for trailing input")
	}
}
