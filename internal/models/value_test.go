package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ScalarMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{name: "string", in: "hello", want: StringValue("hello")},
		{name: "bool true", in: true, want: BoolValue(true)},
		{name: "bool false", in: false, want: BoolValue(false)},
		{name: "nil", in: nil, want: NullValue()},
		{name: "integral float becomes int", in: float64(42), want: IntValue(42)},
		{name: "negative integral float becomes int", in: float64(-7), want: IntValue(-7)},
		{name: "fractional float stays float", in: 3.14, want: FloatValue(3.14)},
		{name: "native int passes through", in: 42, want: IntValue(42)},
		{name: "native int64 passes through", in: int64(99), want: IntValue(99)},
		{name: "json number int", in: json.Number("17"), want: IntValue(17)},
		{name: "json number float", in: json.Number("17.5"), want: FloatValue(17.5)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalize_NestedObjectAndArray(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"name": "sensor-1",
		"readings": []any{
			float64(10),
			10.5,
			nil,
			map[string]any{"unit": "C"},
		},
	}

	got := Normalize(raw)
	require.Equal(t, KindObject, got.Kind)
	assert.Equal(t, StringValue("sensor-1"), got.Object["name"])

	readings := got.Object["readings"]
	require.Equal(t, KindArray, readings.Kind)
	require.Len(t, readings.Array, 4)
	assert.Equal(t, IntValue(10), readings.Array[0])
	assert.Equal(t, FloatValue(10.5), readings.Array[1])
	assert.Equal(t, NullValue(), readings.Array[2])
	assert.Equal(t, KindObject, readings.Array[3].Kind)
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []any{
		"text",
		float64(12),
		12.75,
		true,
		nil,
		map[string]any{"a": float64(1), "b": []any{nil, "x"}},
		[]any{float64(1), map[string]any{"k": false}},
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "normalize must be idempotent for %v", in)
	}
}

func TestValue_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	original := ObjectValue(map[string]Value{
		"temp":    FloatValue(21.5),
		"count":   IntValue(3),
		"ok":      BoolValue(true),
		"missing": NullValue(),
		"nested":  ObjectValue(map[string]Value{"deep": ArrayValue([]Value{IntValue(1), StringValue("two")})}),
	})

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, original.Equal(decoded), "round trip through JSON must deep-equal")
}

func TestValue_Equal_IntFloatParity(t *testing.T) {
	t.Parallel()

	assert.True(t, IntValue(5).Equal(FloatValue(5)))
	assert.True(t, FloatValue(5).Equal(IntValue(5)))
	assert.False(t, IntValue(5).Equal(FloatValue(5.5)))
	assert.False(t, StringValue("5").Equal(IntValue(5)))
}

func TestParseAggregateFunction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want AggregateFunction
	}{
		{"avg", AggAvg},
		{"AVERAGE", AggAvg},
		{"Sum", AggSum},
		{"MIN", AggMin},
		{"max", AggMax},
		{"count", AggCount},
		{"first", AggFirst},
		{"LAST", AggLast},
		{"median", AggP50},
		{"p50", AggP50},
		{"P90", AggP90},
		{"p95", AggP95},
		{"p99", AggP99},
		{"p99.9", AggP999},
		{"definitely-not-a-function", AggAvg},
		{"", AggAvg},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseAggregateFunction(tc.in), "input %q", tc.in)
	}
}
