package types

import (
	"github.com/pkg/errors"
)

// ErrNoConversion is wrapped by TypeOf when a literal's Go type has no
// known scalar family.
var ErrNoConversion = errors.New("types: value has no known scalar family")

// TypeOf maps a host-language scalar literal to its default IR type,
// matching pykit's `typing_defaults`: bool -> Bool, every integer kind ->
// Int32, every floating kind -> Float64, strings/[]byte -> Bytes.
func TypeOf(value interface{}) (Type, error) {
	switch value.(type) {
	case bool:
		return Bool, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Int32, nil
	case float32, float64:
		return Float64, nil
	case string, []byte:
		return Bytes, nil
	default:
		return nil, errors.Wrapf(ErrNoConversion, "unsupported literal of type %T", value)
	}
}

// Convert coerces a literal into the host scalar category matching
// target's resolved shape: first resolve typedefs, then convert the Go
// value into whichever of {bool, int64, float64, []byte} corresponds to
// target's variant. This is the inverse of TypeOf's mapping.
func Convert(value interface{}, target Type) (interface{}, error) {
	target = ResolveTypedef(target)

	switch target.(type) {
	case *BoolType:
		return toBool(value)
	case *IntType:
		return toInt64(value)
	case *RealType:
		return toFloat64(value)
	case *BytesType:
		return toBytes(value)
	default:
		return nil, errors.Errorf("types: cannot convert value to %s", target)
	}
}

func toBool(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return nil, errors.Errorf("types: cannot convert %T to Bool", value)
	}
}

func toInt64(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case float64:
		return int64(v), nil
	default:
		return nil, errors.Errorf("types: cannot convert %T to Int", value)
	}
}

func toFloat64(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	default:
		return nil, errors.Errorf("types: cannot convert %T to Real", value)
	}
}

func toBytes(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.Errorf("types: cannot convert %T to Bytes", value)
	}
}
