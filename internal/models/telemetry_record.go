package models

import (
	"time"

	"github.com/google/uuid"
)

// TelemetryRecord is one normalized device reading. Records are created once
// at ingestion time and never mutated afterwards; retention and deletion are
// handled outside this service.
type TelemetryRecord struct {
	Time       time.Time `json:"time"`
	DeviceID   uuid.UUID `json:"deviceId"`
	TenantID   uuid.UUID `json:"tenantId"`
	DeviceType string    `json:"deviceType,omitempty"`

	BatteryLevel   *float64 `json:"batteryLevel,omitempty"`
	SignalStrength *float64 `json:"signalStrength,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Altitude       *float64 `json:"altitude,omitempty"`

	// CustomFields holds every property not recognized as a system field.
	// Invariant: no key here collides with a system-field name, even
	// case-insensitively; the classifier guarantees the partition.
	CustomFields map[string]Value `json:"customFields"`

	Quality map[string]string `json:"quality,omitempty"`
}

// LatestTelemetryData is a per-device snapshot of the most recent reading.
type LatestTelemetryData struct {
	Timestamp    time.Time        `json:"timestamp"`
	CustomFields map[string]Value `json:"customFields"`
}
