package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// --------------------------------------------------------------------------
// Value Kind Definition
// --------------------------------------------------------------------------

// ValueKind identifies the variant of a Value.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindBinary
	KindArray
	KindMap
	KindExtension
)

// String returns the string representation of a ValueKind.
func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInteger:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "str"
	case KindBinary:
		return "bin"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindExtension:
		return "ext"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Value Structure
// --------------------------------------------------------------------------

// Value is a self-describing structured value carried as RPC payload.
// The set of implementations is closed: Nil, Bool, Integer, Float, String,
// Binary, Array, Map and Extension.
type Value interface {
	Kind() ValueKind
	isValue()
}

// Nil is the absent value.
type Nil struct{}

// Bool is a boolean value.
type Bool bool

// Float is a floating point value. Single precision wire values are widened.
type Float float64

// String is an UTF-8 string value.
type String string

// Binary is an opaque byte string.
type Binary []byte

// Array is an ordered sequence of values.
type Array []Value

// Map is an ordered sequence of key/value pairs. Keys may be any Value and
// are not required to be unique.
type Map []Pair

// Pair is a single entry of a Map.
type Pair struct {
	Key   Value
	Value Value
}

// Extension is an application specific type tag with raw data.
type Extension struct {
	Type int8
	Data []byte
}

// Integer holds any integer in the range [-2^63, 2^64-1].
// Non-negative numbers are always stored unsigned, so Int(3) == Uint(3).
type Integer struct {
	neg  bool
	bits uint64
}

// Int creates an Integer from a signed number
func Int(v int64) Integer {
	if v < 0 {
		return Integer{neg: true, bits: uint64(v)}
	}
	return Integer{bits: uint64(v)}
}

// Uint creates an Integer from an unsigned number
func Uint(v uint64) Integer {
	return Integer{bits: v}
}

// IsNegative reports whether the integer is below zero
func (i Integer) IsNegative() bool {
	return i.neg
}

// Int64 returns the integer as int64 and whether it fits
func (i Integer) Int64() (int64, bool) {
	if i.neg {
		return int64(i.bits), true
	}
	if i.bits > math.MaxInt64 {
		return 0, false
	}
	return int64(i.bits), true
}

// Uint64 returns the integer as uint64 and whether it fits
func (i Integer) Uint64() (uint64, bool) {
	if i.neg {
		return 0, false
	}
	return i.bits, true
}

// String returns the decimal representation
func (i Integer) String() string {
	if i.neg {
		return strconv.FormatInt(int64(i.bits), 10)
	}
	return strconv.FormatUint(i.bits, 10)
}

func (Nil) Kind() ValueKind       { return KindNil }
func (Bool) Kind() ValueKind      { return KindBool }
func (Integer) Kind() ValueKind   { return KindInteger }
func (Float) Kind() ValueKind     { return KindFloat }
func (String) Kind() ValueKind    { return KindString }
func (Binary) Kind() ValueKind    { return KindBinary }
func (Array) Kind() ValueKind     { return KindArray }
func (Map) Kind() ValueKind       { return KindMap }
func (Extension) Kind() ValueKind { return KindExtension }

func (Nil) isValue()       {}
func (Bool) isValue()      {}
func (Integer) isValue()   {}
func (Float) isValue()     {}
func (String) isValue()    {}
func (Binary) isValue()    {}
func (Array) isValue()     {}
func (Map) isValue()       {}
func (Extension) isValue() {}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// IsNil reports whether v is absent (a nil interface or Nil)
func IsNil(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Nil)
	return ok
}

// Equal compares two values structurally.
// A nil interface is treated like Nil.
func Equal(a, b Value) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}

	switch x := a.(type) {
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Integer:
		y, ok := b.(Integer)
		return ok && x == y
	case Float:
		y, ok := b.(Float)
		// compare bit patterns so NaN equals itself
		return ok && math.Float64bits(float64(x)) == math.Float64bits(float64(y))
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Binary:
		y, ok := b.(Binary)
		return ok && bytes.Equal(x, y)
	case Array:
		y, ok := b.(Array)
		return ok && valuesEqual(x, y)
	case Map:
		y, ok := b.(Map)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i].Key, y[i].Key) || !Equal(x[i].Value, y[i].Value) {
				return false
			}
		}
		return true
	case Extension:
		y, ok := b.(Extension)
		return ok && x.Type == y.Type && bytes.Equal(x.Data, y.Data)
	default:
		panic(fmt.Sprintf("unexpected value type %T", a))
	}
}

// valuesEqual compares two value slices element by element
func valuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ValueOf converts a native go value into a Value.
// It understands the types produced by encoding/json (with or without UseNumber)
// as well as the common integer and float types, []byte and nested Values.
// Map keys are sorted to make the result deterministic.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Nil{}, nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return Uint(uint64(v)), nil
	case uint8:
		return Uint(uint64(v)), nil
	case uint16:
		return Uint(uint64(v)), nil
	case uint32:
		return Uint(uint64(v)), nil
	case uint64:
		return Uint(v), nil
	case float32:
		return Float(v), nil
	case float64:
		// json numbers without UseNumber arrive as float64
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return Int(int64(v)), nil
		}
		return Float(v), nil
	case json.Number:
		if i, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return Int(i), nil
		}
		if u, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return Uint(u), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", v.String(), err)
		}
		return Float(f), nil
	case string:
		return String(v), nil
	case []byte:
		return Binary(v), nil
	case []any:
		arr := make(Array, len(v))
		for i, e := range v {
			ev, err := ValueOf(e)
			if err != nil {
				return nil, err
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		m := make(Map, 0, len(v))
		for _, k := range keys {
			ev, err := ValueOf(v[k])
			if err != nil {
				return nil, err
			}
			m = append(m, Pair{Key: String(k), Value: ev})
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", x)
	}
}
