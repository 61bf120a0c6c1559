package ingestors

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-engine/internal/models"
	"telemetry-engine/internal/shared/svcerrors"
)

var fixedNow = func() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func TestClassifyFields_SystemAndCustomPartition(t *testing.T) {
	t.Parallel()

	deviceID := uuid.New()
	props := map[string]any{
		"deviceId":    deviceID.String(),
		"deviceType":  "thermostat",
		"timestamp":   "2026-03-14T08:00:00Z",
		"battery":     float64(87),
		"rssi":        "-71.5",
		"lat":         float64(48.2),
		"lng":         float64(16.37),
		"alt":         float64(151),
		"temperature": 21.5,
		"doorOpen":    true,
	}

	classified, err := ClassifyFields(props, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, deviceID, classified.DeviceID)
	assert.Equal(t, "thermostat", classified.DeviceType)
	assert.Equal(t, time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC), classified.Time)
	require.NotNil(t, classified.BatteryLevel)
	assert.Equal(t, 87.0, *classified.BatteryLevel)
	require.NotNil(t, classified.SignalStrength)
	assert.Equal(t, -71.5, *classified.SignalStrength)
	require.NotNil(t, classified.Latitude)
	assert.Equal(t, 48.2, *classified.Latitude)
	require.NotNil(t, classified.Longitude)
	assert.Equal(t, 16.37, *classified.Longitude)
	require.NotNil(t, classified.Altitude)
	assert.Equal(t, 151.0, *classified.Altitude)

	assert.Equal(t, models.FloatValue(21.5), classified.CustomFields["temperature"])
	assert.Equal(t, models.BoolValue(true), classified.CustomFields["doorOpen"])

	// Partition invariant: no custom key collides with a system name.
	for key := range classified.CustomFields {
		_, isSystem := systemFieldNames[strings.ToLower(key)]
		assert.False(t, isSystem, "custom field %q collides with a system field", key)
	}
}

func TestClassifyFields_InvalidDeviceID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		props map[string]any
	}{
		{name: "not a uuid", props: map[string]any{"deviceId": "not-a-uuid"}},
		{name: "missing entirely", props: map[string]any{"temperature": 20.0}},
		{name: "wrong type", props: map[string]any{"deviceId": float64(12345)}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			classified, err := ClassifyFields(tc.props, fixedNow)
			require.Error(t, err)
			assert.Nil(t, classified)

			svcErr, ok := svcerrors.AsServiceError(err)
			require.True(t, ok, "expected ServiceError")
			assert.Equal(t, "ING_1001", svcErr.Code)
			assert.Contains(t, svcErr.Message, "invalid device id format")
		})
	}
}

func TestClassifyFields_TimestampFallbacks(t *testing.T) {
	t.Parallel()

	deviceID := uuid.New().String()

	t.Run("epoch milliseconds", func(t *testing.T) {
		t.Parallel()
		classified, err := ClassifyFields(map[string]any{
			"deviceId": deviceID,
			"ts":       float64(1767225600000), // 2026-01-01T00:00:00Z
		}, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), classified.Time)
	})

	t.Run("typed instant", func(t *testing.T) {
		t.Parallel()
		instant := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
		classified, err := ClassifyFields(map[string]any{
			"deviceId": deviceID,
			"time":     instant,
		}, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, instant, classified.Time)
	})

	t.Run("unparseable falls back to now", func(t *testing.T) {
		t.Parallel()
		classified, err := ClassifyFields(map[string]any{
			"deviceId":  deviceID,
			"timestamp": "yesterday-ish",
		}, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, fixedNow(), classified.Time)
	})

	t.Run("missing falls back to now", func(t *testing.T) {
		t.Parallel()
		classified, err := ClassifyFields(map[string]any{"deviceId": deviceID}, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, fixedNow(), classified.Time)
	})
}

func TestClassifyFields_NumericAliasPriorityAndUnparseable(t *testing.T) {
	t.Parallel()

	deviceID := uuid.New().String()

	classified, err := ClassifyFields(map[string]any{
		"deviceId":      deviceID,
		"battery_level": float64(90),
		"battery":       float64(10), // lower priority alias, must lose
		"latitude":      "not-a-number",
	}, fixedNow)
	require.NoError(t, err)

	require.NotNil(t, classified.BatteryLevel)
	assert.Equal(t, 90.0, *classified.BatteryLevel)
	assert.Nil(t, classified.Latitude, "unparseable numeric yields absence, not an error")
}

func TestClassifyFields_CustomFieldsFlattening(t *testing.T) {
	t.Parallel()

	deviceID := uuid.New().String()

	t.Run("json string is flattened to top level", func(t *testing.T) {
		t.Parallel()
		classified, err := ClassifyFields(map[string]any{
			"deviceId":     deviceID,
			"customFields": `{"x":1}`,
		}, fixedNow)
		require.NoError(t, err)

		assert.Equal(t, map[string]models.Value{"x": models.IntValue(1)}, classified.CustomFields)
		_, nested := classified.CustomFields["customFields"]
		assert.False(t, nested, "customFields must not stay nested")
	})

	t.Run("nested object is flattened to top level", func(t *testing.T) {
		t.Parallel()
		classified, err := ClassifyFields(map[string]any{
			"deviceId": deviceID,
			"customFields": map[string]any{
				"mode":  "eco",
				"level": float64(3),
			},
		}, fixedNow)
		require.NoError(t, err)

		assert.Equal(t, models.StringValue("eco"), classified.CustomFields["mode"])
		assert.Equal(t, models.IntValue(3), classified.CustomFields["level"])
	})

	t.Run("invalid json string stays verbatim", func(t *testing.T) {
		t.Parallel()
		classified, err := ClassifyFields(map[string]any{
			"deviceId":     deviceID,
			"CustomFields": "{broken",
		}, fixedNow)
		require.NoError(t, err)

		assert.Equal(t, models.StringValue("{broken"), classified.CustomFields["CustomFields"])
	})

	t.Run("flattened system-named keys are dropped", func(t *testing.T) {
		t.Parallel()
		classified, err := ClassifyFields(map[string]any{
			"deviceId": deviceID,
			"customFields": map[string]any{
				"battery": float64(1),
				"mode":    "eco",
			},
		}, fixedNow)
		require.NoError(t, err)

		_, hasBattery := classified.CustomFields["battery"]
		assert.False(t, hasBattery, "system-named nested keys must not leak into custom fields")
		assert.Equal(t, models.StringValue("eco"), classified.CustomFields["mode"])
	})
}

func TestClassifyFields_CaseInsensitiveAliases(t *testing.T) {
	t.Parallel()

	deviceID := uuid.New()
	classified, err := ClassifyFields(map[string]any{
		"DEVICE_ID":    deviceID.String(),
		"DeviceType":   "meter",
		"BatteryLevel": float64(55),
	}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, deviceID, classified.DeviceID)
	assert.Equal(t, "meter", classified.DeviceType)
	require.NotNil(t, classified.BatteryLevel)
	assert.Equal(t, 55.0, *classified.BatteryLevel)
	assert.Empty(t, classified.CustomFields)
}
