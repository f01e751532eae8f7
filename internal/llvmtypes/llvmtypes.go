// Package llvmtypes bridges internal/types to github.com/llir/llvm's type
// system, for backends that want to emit LLVM IR from this toolkit's
// typed SSA form.
//
// Ported from original_source/pykit/codegen/llvm/llvm_types.py's
// llvm_type(type, memo): the one nontrivial step is handle_struct, which
// allocates an opaque named struct placeholder before recursing into its
// field types, so a self-referential struct type doesn't recurse
// forever — llir/llvm's ir/types.StructType supports exactly this: a
// NewStruct marked Opaque whose Fields are filled in afterwards.
package llvmtypes

import (
	"fmt"

	lltypes "github.com/llir/llvm/ir/types"

	"github.com/hassan/pykit/internal/irerrors"
	"github.com/hassan/pykit/internal/types"
)

// Convert maps a Type to its llir/llvm equivalent, memoizing struct
// conversions so a recursive Struct is only ever allocated once.
func Convert(t types.Type) (lltypes.Type, error) {
	return convert(t, make(map[types.Type]*lltypes.StructType))
}

func convert(t types.Type, memo map[types.Type]*lltypes.StructType) (lltypes.Type, error) {
	t = types.ResolveTypedef(t)

	switch v := t.(type) {
	case *types.VoidType, nil:
		return lltypes.Void, nil
	case *types.BoolType:
		return lltypes.I1, nil
	case *types.IntType:
		return lltypes.NewInt(uint64(v.Bits)), nil
	case *types.RealType:
		switch v.Bits {
		case 32:
			return lltypes.Float, nil
		case 64:
			return lltypes.Double, nil
		default:
			return nil, irerrors.New(irerrors.UnsupportedType, "llvmtypes.Convert", "no LLVM float type with %d bits", v.Bits)
		}
	case *types.PointerType:
		base, err := convert(v.Base, memo)
		if err != nil {
			return nil, err
		}
		return lltypes.NewPointer(base), nil
	case *types.ArrayType:
		base, err := convert(v.Base, memo)
		if err != nil {
			return nil, err
		}
		return lltypes.NewArray(uint64(v.Count), base), nil
	case *types.VectorType:
		base, err := convert(v.Base, memo)
		if err != nil {
			return nil, err
		}
		return lltypes.NewVector(uint64(v.Count), base), nil
	case *types.FunctionType:
		return convertFunction(v, memo)
	case *types.StructType:
		return convertStruct(v, memo)
	case *types.BytesType:
		return lltypes.NewPointer(lltypes.I8), nil
	case *types.OpaqueType:
		return lltypes.NewPointer(lltypes.I8), nil
	case *types.ExceptionType:
		return lltypes.NewPointer(lltypes.I8), nil
	default:
		return nil, irerrors.New(irerrors.UnsupportedType, "llvmtypes.Convert", "no LLVM mapping for %s", t)
	}
}

func convertFunction(v *types.FunctionType, memo map[types.Type]*lltypes.StructType) (lltypes.Type, error) {
	ret, err := convert(v.RestType, memo)
	if err != nil {
		return nil, err
	}
	params := make([]lltypes.Type, len(v.ArgTypes))
	for i, a := range v.ArgTypes {
		params[i], err = convert(a, memo)
		if err != nil {
			return nil, err
		}
	}
	fn := lltypes.NewFunc(ret, params...)
	fn.Variadic = v.Varargs
	return fn, nil
}

// convertStruct implements pykit's handle_struct trick: allocate an
// opaque named struct first (so a field that points back to this same
// struct resolves to the placeholder instead of recursing), memoize it,
// then fill in the field types and mark it non-opaque.
func convertStruct(v *types.StructType, memo map[types.Type]*lltypes.StructType) (lltypes.Type, error) {
	if ll, ok := memo[v]; ok {
		return ll, nil
	}

	ll := lltypes.NewStruct()
	ll.Opaque = true
	ll.TypeName = fmt.Sprintf("struct.%p", v)
	memo[v] = ll

	fields := make([]lltypes.Type, len(v.Types))
	for i, ft := range v.Types {
		conv, err := convert(ft, memo)
		if err != nil {
			return nil, err
		}
		fields[i] = conv
	}
	ll.Fields = fields
	ll.Opaque = false
	return ll, nil
}
