package stores

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"telemetry-engine/internal/models"
	"telemetry-engine/internal/querybuilders"
)

// MemoryTimeSeriesStore is the behavioral twin of the Postgres store, used
// to validate the query contract without a database. It keeps an in-memory
// append log per measurement name behind one coarse mutex: correctness over
// throughput, since this implementation exists for tests. Any divergence
// from the persistent implementation is a bug caught by the shared contract
// suite.
type MemoryTimeSeriesStore struct {
	mu      sync.Mutex
	table   string
	records map[string][]*models.TelemetryRecord
}

func NewMemoryTimeSeriesStore(table string) *MemoryTimeSeriesStore {
	sanitized := querybuilders.SanitizeIdentifier(table)
	if sanitized == "" {
		sanitized = querybuilders.DefaultWideTable
	}
	return &MemoryTimeSeriesStore{
		table:   sanitized,
		records: make(map[string][]*models.TelemetryRecord),
	}
}

func (s *MemoryTimeSeriesStore) Write(ctx context.Context, record *models.TelemetryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clone := cloneRecord(record)

	s.mu.Lock()
	s.records[s.table] = append(s.records[s.table], clone)
	s.mu.Unlock()
	return nil
}

func (s *MemoryTimeSeriesStore) WriteBatch(ctx context.Context, records []*models.TelemetryRecord) error {
	for start := 0; start < len(records); start += writeBatchChunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + writeBatchChunkSize
		if end > len(records) {
			end = len(records)
		}
		for _, record := range records[start:end] {
			if err := s.Write(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *MemoryTimeSeriesStore) Query(ctx context.Context, tenantID uuid.UUID, query models.TimeSeriesQuery) ([]*models.TelemetryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.TelemetryRecord
	for _, record := range s.records[s.table] {
		if matchesQuery(record, tenantID, query.StartTime, query.EndTime, query.Filters) {
			out = append(out, cloneRecord(record))
		}
	}

	sortRecords(out, querybuilders.OrderByColumn(query.OrderBy))
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (s *MemoryTimeSeriesStore) QueryAggregate(ctx context.Context, tenantID uuid.UUID, query models.AggregateQuery) ([]*models.AggregateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filters := make(map[string]string, len(query.Filters))
	for k, v := range query.Filters {
		filters[k] = v
	}
	valueField := filters[models.FilterField]
	delete(filters, models.FilterField)

	s.mu.Lock()
	defer s.mu.Unlock()

	type groupState struct {
		bucket      *time.Time
		deviceID    *uuid.UUID
		groupValues map[string]string
		times       []time.Time
		values      []float64
	}
	groups := make(map[string]*groupState)
	var order []string

	for _, record := range s.records[s.table] {
		if !matchesQuery(record, tenantID, query.StartTime, query.EndTime, filters) {
			continue
		}
		value, ok := valueForField(record, valueField)
		if !ok {
			continue
		}

		var keyParts []string
		state := &groupState{}
		if query.GroupByInterval > 0 {
			bucket := bucketStart(record.Time.UTC(), coarseInterval(query.GroupByInterval))
			state.bucket = &bucket
			keyParts = append(keyParts, bucket.Format(time.RFC3339Nano))
		}
		for _, field := range query.GroupByFields {
			switch {
			case field == models.FilterDeviceID:
				deviceID := record.DeviceID
				state.deviceID = &deviceID
				keyParts = append(keyParts, deviceID.String())
			case strings.HasPrefix(field, models.FilterTagPrefix):
				tag := querybuilders.SanitizeIdentifier(strings.TrimPrefix(field, models.FilterTagPrefix))
				text, ok := customFieldText(record, tag)
				if !ok {
					// Records without the tag form their own NULL group and
					// the tag is omitted from GroupValues, like a NULL column
					// scanning back from SQL.
					keyParts = append(keyParts, tag+"=\x00")
					continue
				}
				if state.groupValues == nil {
					state.groupValues = make(map[string]string)
				}
				state.groupValues[tag] = text
				keyParts = append(keyParts, tag+"="+text)
			}
		}

		key := strings.Join(keyParts, "|")
		existing, ok := groups[key]
		if !ok {
			groups[key] = state
			existing = state
			order = append(order, key)
		}
		existing.times = append(existing.times, record.Time)
		existing.values = append(existing.values, value)
	}

	// An ungrouped aggregate compiles to SQL without a GROUP BY, and such a
	// query yields exactly one row even over an empty match set: NULL value
	// (zero for COUNT) and count 0. Group fields the builder ignores do not
	// count as grouping.
	grouped := query.GroupByInterval > 0
	for _, field := range query.GroupByFields {
		if field == models.FilterDeviceID || strings.HasPrefix(field, models.FilterTagPrefix) {
			grouped = true
		}
	}
	if len(order) == 0 && !grouped {
		result := &models.AggregateResult{}
		if query.Function == models.AggCount {
			zero := 0.0
			result.Value = &zero
		}
		return []*models.AggregateResult{result}, nil
	}

	sort.Strings(order)
	results := make([]*models.AggregateResult, 0, len(order))
	for _, key := range order {
		state := groups[key]
		value, count := computeAggregate(query.Function, state.times, state.values)
		results = append(results, &models.AggregateResult{
			Bucket:      state.bucket,
			DeviceID:    state.deviceID,
			Value:       value,
			Count:       count,
			GroupValues: state.groupValues,
		})
	}
	return results, nil
}

func (s *MemoryTimeSeriesStore) GetLatestForDevices(ctx context.Context, tenantID uuid.UUID, deviceIDs []uuid.UUID) (map[uuid.UUID]*models.LatestTelemetryData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requested := make(map[uuid.UUID]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		requested[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest := make(map[uuid.UUID]*models.TelemetryRecord)
	for _, record := range s.records[s.table] {
		if record.TenantID != tenantID {
			continue
		}
		if _, ok := requested[record.DeviceID]; !ok {
			continue
		}
		current, ok := latest[record.DeviceID]
		if !ok || record.Time.After(current.Time) {
			latest[record.DeviceID] = record
		}
	}

	out := make(map[uuid.UUID]*models.LatestTelemetryData, len(latest))
	for deviceID, record := range latest {
		out[deviceID] = &models.LatestTelemetryData{
			Timestamp:    record.Time,
			CustomFields: cloneCustomFields(record.CustomFields),
		}
	}
	return out, nil
}

// matchesQuery applies tenant scoping, the inclusive time range, and the
// same filter semantics the SQL builder compiles.
func matchesQuery(record *models.TelemetryRecord, tenantID uuid.UUID, start, end time.Time, filters map[string]string) bool {
	if record.TenantID != tenantID {
		return false
	}
	if record.Time.Before(start) || record.Time.After(end) {
		return false
	}
	for key, expected := range filters {
		switch {
		case key == models.FilterDeviceID:
			if record.DeviceID.String() != expected {
				return false
			}
		case strings.HasPrefix(key, models.FilterTagPrefix):
			tag := querybuilders.SanitizeIdentifier(strings.TrimPrefix(key, models.FilterTagPrefix))
			text, ok := customFieldText(record, tag)
			if !ok || text != expected {
				return false
			}
		default:
			field := querybuilders.SanitizeIdentifier(key)
			text, ok := customFieldText(record, field)
			if !ok || text != expected {
				return false
			}
		}
	}
	return true
}

// customFieldText renders a custom field the way the JSONB ->> operator
// does: the text form of the JSON value, with NULL (absence) for missing
// keys and JSON nulls.
func customFieldText(record *models.TelemetryRecord, name string) (string, bool) {
	value, ok := record.CustomFields[name]
	if !ok || value.Kind == models.KindNull {
		return "", false
	}
	switch value.Kind {
	case models.KindString:
		return value.Str, true
	case models.KindInt:
		return strconv.FormatInt(value.Int, 10), true
	case models.KindFloat:
		return strconv.FormatFloat(value.Float, 'g', -1, 64), true
	case models.KindBool:
		return strconv.FormatBool(value.Bool), true
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return "", false
		}
		return string(raw), true
	}
}

// valueForField extracts the aggregated value, mirroring the builder's
// _field mapping: system scalar columns by alias, otherwise a numeric
// custom field. Non-numeric values count as NULL. A string that does not
// parse as a number is also treated as NULL, where the ::double precision
// cast in SQL fails the whole query instead.
func valueForField(record *models.TelemetryRecord, field string) (float64, bool) {
	if field == "" {
		field = "value"
	}
	switch strings.ToLower(field) {
	case "battery_level", "batterylevel", "battery":
		return derefFloat(record.BatteryLevel)
	case "signal_strength", "signalstrength", "rssi":
		return derefFloat(record.SignalStrength)
	case "latitude", "lat":
		return derefFloat(record.Latitude)
	case "longitude", "lng", "lon":
		return derefFloat(record.Longitude)
	case "altitude", "alt":
		return derefFloat(record.Altitude)
	}
	value, ok := record.CustomFields[querybuilders.SanitizeIdentifier(field)]
	if !ok {
		return 0, false
	}
	if f, ok := value.Float64(); ok {
		return f, true
	}
	if value.Kind == models.KindString {
		f, err := strconv.ParseFloat(strings.TrimSpace(value.Str), 64)
		return f, err == nil
	}
	return 0, false
}

func derefFloat(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// computeAggregate evaluates the aggregate over a group. Percentiles use
// linear interpolation for percentile_cont parity; first/last pick by
// record time.
func computeAggregate(fn models.AggregateFunction, times []time.Time, values []float64) (*float64, int64) {
	count := int64(len(values))
	if count == 0 {
		return nil, 0
	}

	if fraction, ok := fn.Percentile(); ok {
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		value := percentileCont(sorted, fraction)
		return &value, count
	}

	var value float64
	switch fn {
	case models.AggSum:
		for _, v := range values {
			value += v
		}
	case models.AggMin:
		value = values[0]
		for _, v := range values[1:] {
			if v < value {
				value = v
			}
		}
	case models.AggMax:
		value = values[0]
		for _, v := range values[1:] {
			if v > value {
				value = v
			}
		}
	case models.AggCount:
		value = float64(count)
	case models.AggFirst:
		idx := 0
		for i, t := range times {
			if t.Before(times[idx]) {
				idx = i
			}
		}
		value = values[idx]
	case models.AggLast:
		idx := 0
		for i, t := range times {
			if t.After(times[idx]) {
				idx = i
			}
		}
		value = values[idx]
	default: // avg
		for _, v := range values {
			value += v
		}
		value /= float64(count)
	}
	return &value, count
}

// percentileCont computes the continuous percentile over sorted values,
// interpolating between adjacent ranks like percentile_cont.
func percentileCont(sorted []float64, fraction float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := fraction * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// bucketOrigin is the epoch time_bucket aligns non-month buckets to
// (a Monday, so week-sized buckets start on Mondays).
var bucketOrigin = time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)

// bucketStart returns the start of the width-sized bucket containing t,
// aligned to bucketOrigin. Multi-unit widths such as three days land on
// the same boundaries time_bucket produces, where a plain Truncate from
// the zero time would not.
func bucketStart(t time.Time, width time.Duration) time.Time {
	delta := t.Sub(bucketOrigin)
	delta -= ((delta % width) + width) % width
	return bucketOrigin.Add(delta)
}

// coarseInterval mirrors the builder's lossy interval rendering: the bucket
// width truncates to the largest whole unit.
func coarseInterval(d time.Duration) time.Duration {
	day := 24 * time.Hour
	switch {
	case d >= day:
		return (d / day) * day
	case d >= time.Hour:
		return (d / time.Hour) * time.Hour
	case d >= time.Minute:
		return (d / time.Minute) * time.Minute
	case d >= time.Second:
		return (d / time.Second) * time.Second
	default:
		return time.Second
	}
}

func sortRecords(records []*models.TelemetryRecord, column string) {
	sort.SliceStable(records, func(i, j int) bool {
		switch column {
		case "device_id":
			return records[i].DeviceID.String() < records[j].DeviceID.String()
		case "tenant_id":
			return records[i].TenantID.String() < records[j].TenantID.String()
		default:
			return records[i].Time.Before(records[j].Time)
		}
	})
}

func cloneRecord(record *models.TelemetryRecord) *models.TelemetryRecord {
	clone := *record
	clone.CustomFields = cloneCustomFields(record.CustomFields)
	if record.Quality != nil {
		clone.Quality = make(map[string]string, len(record.Quality))
		for k, v := range record.Quality {
			clone.Quality[k] = v
		}
	}
	return &clone
}

func cloneCustomFields(fields map[string]models.Value) map[string]models.Value {
	if fields == nil {
		return nil
	}
	out := make(map[string]models.Value, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
