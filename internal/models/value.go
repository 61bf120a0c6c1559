package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValueKind discriminates the canonical telemetry value variants.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindObject
	KindArray
)

// Value is the canonical representation of a telemetry field value.
// Every field that survives classification is one of the closed set of
// variants below; classification and query code pattern-matches on Kind
// instead of walking an untyped object graph.
type Value struct {
	Kind   ValueKind
	Str    string
	Int    int64
	Float  float64
	Bool   bool
	Object map[string]Value
	Array  []Value
}

func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func IntValue(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value  { return Value{Kind: KindFloat, Float: f} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func NullValue() Value            { return Value{Kind: KindNull} }
func ArrayValue(v []Value) Value  { return Value{Kind: KindArray, Array: v} }
func ObjectValue(m map[string]Value) Value {
	return Value{Kind: KindObject, Object: m}
}

// Normalize converts a decoded-JSON node of unknown shape into a canonical
// Value. JSON numbers become Int when they fit losslessly in an int64,
// otherwise Float. Already-canonical Values pass through unchanged, so
// Normalize(Normalize(x)) == Normalize(x). Unrecognized node types are
// stringified rather than rejected; normalization never fails.
func Normalize(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return NullValue()
	case Value:
		return v
	case string:
		return StringValue(v)
	case bool:
		return BoolValue(v)
	case float64:
		if isLosslessInt(v) {
			return IntValue(int64(v))
		}
		return FloatValue(v)
	case float32:
		return Normalize(float64(v))
	case int:
		return IntValue(int64(v))
	case int32:
		return IntValue(int64(v))
	case int64:
		return IntValue(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return IntValue(i)
		}
		if f, err := v.Float64(); err == nil {
			return FloatValue(f)
		}
		return StringValue(v.String())
	case map[string]any:
		obj := make(map[string]Value, len(v))
		for key, child := range v {
			obj[key] = Normalize(child)
		}
		return ObjectValue(obj)
	case map[string]Value:
		obj := make(map[string]Value, len(v))
		for key, child := range v {
			obj[key] = child
		}
		return ObjectValue(obj)
	case []any:
		arr := make([]Value, 0, len(v))
		for _, child := range v {
			arr = append(arr, Normalize(child))
		}
		return ArrayValue(arr)
	case []Value:
		return ArrayValue(v)
	default:
		return StringValue(fmt.Sprintf("%v", v))
	}
}

func isLosslessInt(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	if f != math.Trunc(f) {
		return false
	}
	return f >= math.MinInt64 && f <= math.MaxInt64
}

// Interface converts the canonical Value back to a plain Go value suitable
// for JSON encoding.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindString:
		return v.Str
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBool:
		return v.Bool
	case KindObject:
		out := make(map[string]any, len(v.Object))
		for key, child := range v.Object {
			out[key] = child.Interface()
		}
		return out
	case KindArray:
		out := make([]any, 0, len(v.Array))
		for _, child := range v.Array {
			out = append(out, child.Interface())
		}
		return out
	}
	return nil
}

// Float64 returns the numeric value of Int/Float variants.
func (v Value) Float64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	}
	return 0, false
}

// Equal reports deep equality between two canonical values. Int and Float
// variants holding the same numeric value compare equal, matching the
// round trip through a JSON column.
func (v Value) Equal(other Value) bool {
	if a, okA := v.Float64(); okA {
		b, okB := other.Float64()
		return okB && a == b
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == other.Str
	case KindBool:
		return v.Bool == other.Bool
	case KindObject:
		if len(v.Object) != len(other.Object) {
			return false
		}
		for key, child := range v.Object {
			otherChild, ok := other.Object[key]
			if !ok || !child.Equal(otherChild) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.Array) != len(other.Array) {
			return false
		}
		for i, child := range v.Array {
			if !child.Equal(other.Array[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes the canonical value as its plain JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes plain JSON into the canonical form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = Normalize(raw)
	return nil
}
