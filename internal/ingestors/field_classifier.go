package ingestors

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"telemetry-engine/internal/models"
)

// Alias sets for system fields, in priority order, matched case-insensitively.
var (
	timestampAliases  = []string{"timestamp", "time", "ts", "datetime"}
	deviceIDAliases   = []string{"device_id", "deviceid"}
	deviceTypeAliases = []string{"device_type", "devicetype"}
	batteryAliases    = []string{"battery_level", "batterylevel", "battery"}
	signalAliases     = []string{"signal_strength", "signalstrength", "rssi"}
	latitudeAliases   = []string{"latitude", "lat"}
	longitudeAliases  = []string{"longitude", "lng", "lon"}
	altitudeAliases   = []string{"altitude", "alt"}

	customFieldsKey = "customfields"
)

// systemFieldNames is the union of every alias, used to partition incoming
// keys into system versus custom fields.
var systemFieldNames = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, aliases := range [][]string{
		timestampAliases, deviceIDAliases, deviceTypeAliases,
		batteryAliases, signalAliases, latitudeAliases, longitudeAliases, altitudeAliases,
	} {
		for _, name := range aliases {
			set[name] = struct{}{}
		}
	}
	return set
}()

// ClassifiedFields is the result of splitting a decoded property map into
// known telemetry attributes and open-ended custom fields.
type ClassifiedFields struct {
	Time       time.Time
	DeviceID   uuid.UUID
	DeviceType string

	BatteryLevel   *float64
	SignalStrength *float64
	Latitude       *float64
	Longitude      *float64
	Altitude       *float64

	CustomFields map[string]models.Value
}

// ClassifyFields partitions a flat decoded-JSON property map into system
// fields and custom fields. The only hard failure is a device id that does
// not parse as a UUID: the persistent primary key is typed as UUID, so such
// a message can never be stored. Every other oddity degrades to an absent
// field or a verbatim custom value.
//
// now supplies the fallback timestamp when no alias yields a parseable one;
// ingestion never fails on a missing or malformed timestamp.
func ClassifyFields(props map[string]any, now func() time.Time) (*ClassifiedFields, error) {
	lower := make(map[string]any, len(props))
	for key, value := range props {
		lowerKey := strings.ToLower(key)
		if _, exists := lower[lowerKey]; !exists {
			lower[lowerKey] = value
		}
	}

	rawDeviceID, _ := firstPresent(lower, deviceIDAliases)
	deviceID, err := uuid.Parse(strings.TrimSpace(asString(rawDeviceID)))
	if err != nil {
		return nil, errInvalidDeviceID(asString(rawDeviceID), err)
	}

	out := &ClassifiedFields{
		DeviceID:       deviceID,
		DeviceType:     asString(lookupString(lower, deviceTypeAliases)),
		BatteryLevel:   extractNumeric(lower, batteryAliases),
		SignalStrength: extractNumeric(lower, signalAliases),
		Latitude:       extractNumeric(lower, latitudeAliases),
		Longitude:      extractNumeric(lower, longitudeAliases),
		Altitude:       extractNumeric(lower, altitudeAliases),
		CustomFields:   make(map[string]models.Value),
	}
	out.Time = extractTimestamp(lower, now)

	for key, value := range props {
		lowerKey := strings.ToLower(key)
		if _, isSystem := systemFieldNames[lowerKey]; isSystem {
			continue
		}
		if lowerKey == customFieldsKey {
			flattenCustomFields(out.CustomFields, key, value)
			continue
		}
		out.CustomFields[key] = models.Normalize(value)
	}
	return out, nil
}

// flattenCustomFields merges a nested customFields object (or a JSON string
// of one) into the top level of the custom map. A string that fails to
// parse as a JSON object is kept verbatim under its original key instead.
// Nested keys that collide with a system-field name are dropped so the
// system/custom partition stays disjoint.
func flattenCustomFields(custom map[string]models.Value, originalKey string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			if _, isSystem := systemFieldNames[strings.ToLower(key)]; isSystem {
				continue
			}
			custom[key] = models.Normalize(child)
		}
	case string:
		var nested map[string]any
		if err := json.Unmarshal([]byte(v), &nested); err != nil {
			custom[originalKey] = models.StringValue(v)
			return
		}
		flattenCustomFields(custom, originalKey, nested)
	default:
		custom[originalKey] = models.Normalize(value)
	}
}

// extractTimestamp tries each timestamp alias as an ISO-8601 string, then a
// typed instant, then numeric epoch milliseconds. Falls back to now().
func extractTimestamp(lower map[string]any, now func() time.Time) time.Time {
	for _, alias := range timestampAliases {
		raw, ok := lower[alias]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t.UTC()
			}
			if t, err := time.Parse("2006-01-02T15:04:05", v); err == nil {
				return t.UTC()
			}
		case time.Time:
			return v.UTC()
		default:
			if f, ok := asFloat(raw); ok {
				return time.UnixMilli(int64(f)).UTC()
			}
		}
	}
	return now().UTC()
}

// extractNumeric returns the first alias value that parses as a number,
// accepting numeric-looking strings. Unparseable values yield absence.
func extractNumeric(lower map[string]any, aliases []string) *float64 {
	for _, alias := range aliases {
		raw, ok := lower[alias]
		if !ok {
			continue
		}
		if f, ok := asFloat(raw); ok {
			return &f
		}
	}
	return nil
}

func firstPresent(lower map[string]any, aliases []string) (any, bool) {
	for _, alias := range aliases {
		if raw, ok := lower[alias]; ok {
			return raw, true
		}
	}
	return nil, false
}

func lookupString(lower map[string]any, aliases []string) any {
	raw, _ := firstPresent(lower, aliases)
	return raw
}

func asString(raw any) string {
	s, _ := raw.(string)
	return s
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
