package stores

import (
	"context"

	"github.com/google/uuid"

	"telemetry-engine/internal/models"
)

// writeBatchChunkSize is the number of records written per chunk of a batch
// write. Chunks are written sequentially with a cancellation check between
// them.
const writeBatchChunkSize = 1000

//go:generate mockgen -source=timeseries_store.go -destination=./mocks/timeseries_store_mock.go -package=mocks
type TimeSeriesStore interface {
	// Write persists one record under a tenant security context scoped to
	// the record's tenant.
	Write(ctx context.Context, record *models.TelemetryRecord) error

	// WriteBatch persists records in sequential chunks.
	WriteBatch(ctx context.Context, records []*models.TelemetryRecord) error

	// Query returns records matching the query, scoped to tenantID.
	Query(ctx context.Context, tenantID uuid.UUID, query models.TimeSeriesQuery) ([]*models.TelemetryRecord, error)

	// QueryAggregate computes an on-demand aggregate, scoped to tenantID.
	QueryAggregate(ctx context.Context, tenantID uuid.UUID, query models.AggregateQuery) ([]*models.AggregateResult, error)

	// GetLatestForDevices returns the most recent reading per device, for
	// the whole device-id set in a single selection.
	GetLatestForDevices(ctx context.Context, tenantID uuid.UUID, deviceIDs []uuid.UUID) (map[uuid.UUID]*models.LatestTelemetryData, error)
}
