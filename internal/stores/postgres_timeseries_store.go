package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"telemetry-engine/internal/models"
	"telemetry-engine/internal/querybuilders"
)

// PostgresTimeSeriesStore persists telemetry into the wide (row-per-reading)
// TimescaleDB schema through database/sql over the pgx stdlib driver.
//
// Every write runs inside a transaction that first establishes the tenant
// security context for the session, so row-level isolation is enforced by
// the store itself rather than by application filters alone.
type PostgresTimeSeriesStore struct {
	db    *sql.DB
	table string
}

func NewPostgresTimeSeriesStore(db *sql.DB, table string) *PostgresTimeSeriesStore {
	sanitized := querybuilders.SanitizeIdentifier(table)
	if sanitized == "" {
		sanitized = querybuilders.DefaultWideTable
	}
	return &PostgresTimeSeriesStore{db: db, table: sanitized}
}

func (s *PostgresTimeSeriesStore) Write(ctx context.Context, record *models.TelemetryRecord) error {
	if s == nil || s.db == nil {
		return errors.New("timeseries store: nil db")
	}
	defer observeSince(metricStoreWriteDuration, "write", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.insertInTx(ctx, tx, record); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *PostgresTimeSeriesStore) WriteBatch(ctx context.Context, records []*models.TelemetryRecord) error {
	if s == nil || s.db == nil {
		return errors.New("timeseries store: nil db")
	}
	defer observeSince(metricStoreWriteDuration, "write_batch", time.Now())

	for start := 0; start < len(records); start += writeBatchChunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + writeBatchChunkSize
		if end > len(records) {
			end = len(records)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, record := range records[start:end] {
			if err := s.insertInTx(ctx, tx, record); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// insertInTx sets the tenant security context and inserts one row. The
// set_config call is transaction-local, so the guard cannot leak into
// other sessions of the pool.
func (s *PostgresTimeSeriesStore) insertInTx(ctx context.Context, tx *sql.Tx, record *models.TelemetryRecord) error {
	if record == nil {
		return errors.New("timeseries store: nil record")
	}
	if _, err := tx.ExecContext(ctx, "SELECT set_config('app.tenant_id', $1, true)", record.TenantID.String()); err != nil {
		return fmt.Errorf("failed to set tenant context: %w", err)
	}

	customFields := record.CustomFields
	if customFields == nil {
		customFields = map[string]models.Value{}
	}
	customJSON, err := json.Marshal(customFields)
	if err != nil {
		return fmt.Errorf("failed to marshal custom fields: %w", err)
	}
	var qualityJSON any
	if record.Quality != nil {
		raw, err := json.Marshal(record.Quality)
		if err != nil {
			return fmt.Errorf("failed to marshal quality: %w", err)
		}
		qualityJSON = raw
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	time, device_id, tenant_id, device_type,
	battery_level, signal_strength, latitude, longitude, altitude,
	custom_fields, quality
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)`, s.table)

	_, err = tx.ExecContext(
		ctx,
		query,
		record.Time.UTC(),
		record.DeviceID.String(),
		record.TenantID.String(),
		record.DeviceType,
		nullFloat(record.BatteryLevel),
		nullFloat(record.SignalStrength),
		nullFloat(record.Latitude),
		nullFloat(record.Longitude),
		nullFloat(record.Altitude),
		customJSON,
		qualityJSON,
	)
	return err
}

func (s *PostgresTimeSeriesStore) Query(ctx context.Context, tenantID uuid.UUID, query models.TimeSeriesQuery) ([]*models.TelemetryRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("timeseries store: nil db")
	}
	defer observeSince(metricQueryDuration, "query", time.Now())

	sqlText, args := querybuilders.BuildWideQuery(s.table, tenantID, query)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.TelemetryRecord
	for rows.Next() {
		record, err := scanWideRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresTimeSeriesStore) QueryAggregate(ctx context.Context, tenantID uuid.UUID, query models.AggregateQuery) ([]*models.AggregateResult, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("timeseries store: nil db")
	}
	defer observeSince(metricQueryDuration, "aggregate", time.Now())

	sqlText, args := querybuilders.BuildWideAggregateQuery(s.table, tenantID, query)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Column layout follows the builder: optional bucket, optional
	// device_id, one column per tag group field, then value and count.
	hasBucket := query.GroupByInterval > 0
	var hasDevice bool
	var tagNames []string
	for _, field := range query.GroupByFields {
		switch {
		case field == models.FilterDeviceID:
			hasDevice = true
		case strings.HasPrefix(field, models.FilterTagPrefix):
			tagNames = append(tagNames, querybuilders.SanitizeIdentifier(strings.TrimPrefix(field, models.FilterTagPrefix)))
		}
	}

	var results []*models.AggregateResult
	for rows.Next() {
		dest := make([]any, 0, len(tagNames)+4)

		var bucket time.Time
		if hasBucket {
			dest = append(dest, &bucket)
		}
		var deviceStr string
		if hasDevice {
			dest = append(dest, &deviceStr)
		}
		tagValues := make([]sql.NullString, len(tagNames))
		for i := range tagValues {
			dest = append(dest, &tagValues[i])
		}
		var value sql.NullFloat64
		var count int64
		dest = append(dest, &value, &count)

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		result := &models.AggregateResult{Count: count}
		if hasBucket {
			b := bucket.UTC()
			result.Bucket = &b
		}
		if hasDevice {
			deviceID, err := uuid.Parse(deviceStr)
			if err != nil {
				return nil, fmt.Errorf("failed to parse device id %q: %w", deviceStr, err)
			}
			result.DeviceID = &deviceID
		}
		if len(tagNames) > 0 {
			result.GroupValues = make(map[string]string, len(tagNames))
			for i, name := range tagNames {
				if tagValues[i].Valid {
					result.GroupValues[name] = tagValues[i].String
				}
			}
		}
		if value.Valid {
			v := value.Float64
			result.Value = &v
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// GetLatestForDevices selects the first row per device ordered by time
// descending, in a single query across the whole device-id set.
func (s *PostgresTimeSeriesStore) GetLatestForDevices(ctx context.Context, tenantID uuid.UUID, deviceIDs []uuid.UUID) (map[uuid.UUID]*models.LatestTelemetryData, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("timeseries store: nil db")
	}
	defer observeSince(metricQueryDuration, "latest", time.Now())

	out := make(map[uuid.UUID]*models.LatestTelemetryData, len(deviceIDs))
	if len(deviceIDs) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(deviceIDs)+1)
	args = append(args, tenantID.String())
	placeholders := make([]string, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		args = append(args, id.String())
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(`
SELECT DISTINCT ON (device_id) device_id, time, custom_fields
FROM %s
WHERE tenant_id = $1 AND device_id IN (%s)
ORDER BY device_id, time DESC`, s.table, strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var deviceStr string
		var ts time.Time
		var customJSON []byte
		if err := rows.Scan(&deviceStr, &ts, &customJSON); err != nil {
			return nil, err
		}
		deviceID, err := uuid.Parse(deviceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse device id %q: %w", deviceStr, err)
		}
		customFields, err := unmarshalCustomFields(customJSON)
		if err != nil {
			return nil, err
		}
		out[deviceID] = &models.LatestTelemetryData{
			Timestamp:    ts.UTC(),
			CustomFields: customFields,
		}
	}
	return out, rows.Err()
}

func scanWideRow(rows *sql.Rows) (*models.TelemetryRecord, error) {
	var (
		ts                   time.Time
		deviceStr, tenantStr string
		deviceType           sql.NullString
		battery, signal      sql.NullFloat64
		lat, lng, alt        sql.NullFloat64
		customJSON           []byte
		qualityJSON          []byte
	)
	if err := rows.Scan(&ts, &deviceStr, &tenantStr, &deviceType, &battery, &signal, &lat, &lng, &alt, &customJSON, &qualityJSON); err != nil {
		return nil, err
	}

	deviceID, err := uuid.Parse(deviceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse device id %q: %w", deviceStr, err)
	}
	tenantID, err := uuid.Parse(tenantStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tenant id %q: %w", tenantStr, err)
	}
	customFields, err := unmarshalCustomFields(customJSON)
	if err != nil {
		return nil, err
	}

	record := &models.TelemetryRecord{
		Time:           ts.UTC(),
		DeviceID:       deviceID,
		TenantID:       tenantID,
		DeviceType:     deviceType.String,
		BatteryLevel:   floatPtr(battery),
		SignalStrength: floatPtr(signal),
		Latitude:       floatPtr(lat),
		Longitude:      floatPtr(lng),
		Altitude:       floatPtr(alt),
		CustomFields:   customFields,
	}
	if len(qualityJSON) > 0 {
		if err := json.Unmarshal(qualityJSON, &record.Quality); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quality: %w", err)
		}
	}
	return record, nil
}

// unmarshalCustomFields decodes the JSONB column back into canonical values.
func unmarshalCustomFields(raw []byte) (map[string]models.Value, error) {
	if len(raw) == 0 {
		return map[string]models.Value{}, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal custom fields: %w", err)
	}
	out := make(map[string]models.Value, len(decoded))
	for key, value := range decoded {
		out[key] = models.Normalize(value)
	}
	return out, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
