package stores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telemetry-engine/internal/shared/filestorages"
	"telemetry-engine/internal/shared/ulid"
)

// DeadLetterRecord captures one message the pipeline could not process,
// preserved for later inspection instead of being dropped.
type DeadLetterRecord struct {
	DeviceID   string    `json:"deviceId,omitempty"`
	RawPayload []byte    `json:"rawPayload"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recordedAt"`
}

//go:generate mockgen -source=dead_letter_store.go -destination=./mocks/dead_letter_store_mock.go -package=mocks
type DeadLetterSink interface {
	// Record publishes one failed message to the sink. Callers treat this
	// as best-effort: a sink failure must never stall ingestion.
	Record(ctx context.Context, deviceID string, rawPayload []byte, reason string) error
}

type deadLetterStore struct {
	fileStorage filestorages.FileStorage
	dir         string
}

// NewDeadLetterStore builds a sink backed by local blob storage: one JSON
// document per dead-lettered message, keyed by a fresh ULID so records are
// never overwritten and sort by arrival time.
func NewDeadLetterStore(fileStorage filestorages.FileStorage) DeadLetterSink {
	return &deadLetterStore{fileStorage: fileStorage, dir: "dead-letters"}
}

func (s *deadLetterStore) Record(ctx context.Context, deviceID string, rawPayload []byte, reason string) error {
	record := DeadLetterRecord{
		DeviceID:   deviceID,
		RawPayload: rawPayload,
		Reason:     reason,
		RecordedAt: time.Now().UTC(),
	}
	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter record: %w", err)
	}

	key := fmt.Sprintf("%s/%s.json", s.dir, ulid.NewULID())
	_, err = s.fileStorage.Put(ctx, key, bytes.NewReader(jsonData), filestorages.PutOptions{AllowOverwrite: false})
	if err != nil {
		return fmt.Errorf("failed to put dead letter record: %w", err)
	}
	return nil
}
