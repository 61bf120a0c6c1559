package querybuilders

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"telemetry-engine/internal/models"
)

// Default table names for the two physical storage shapes.
const (
	DefaultWideTable   = "telemetry_readings"
	DefaultNarrowTable = "telemetry_metrics"
)

// wideColumns is the full column list of the wide (row-per-reading) shape.
const wideColumns = "time, device_id, tenant_id, device_type, battery_level, signal_strength, latitude, longitude, altitude, custom_fields, quality"

// system value columns addressable by an aggregate's _field selector.
var systemValueColumns = map[string]string{
	"battery_level":   "battery_level",
	"batterylevel":    "battery_level",
	"battery":         "battery_level",
	"signal_strength": "signal_strength",
	"signalstrength":  "signal_strength",
	"rssi":            "signal_strength",
	"latitude":        "latitude",
	"lat":             "latitude",
	"longitude":       "longitude",
	"lng":             "longitude",
	"lon":             "longitude",
	"altitude":        "altitude",
	"alt":             "altitude",
}

// orderByAllowList is the fixed set of sortable columns. Anything else is
// silently replaced by time, so a hostile sort field can never reach the
// SQL text.
var orderByAllowList = map[string]struct{}{
	"time":      {},
	"device_id": {},
	"tenant_id": {},
}

// OrderByColumn validates a requested sort field against the allow-list,
// returning "time" for anything not on it.
func OrderByColumn(requested string) string {
	if _, ok := orderByAllowList[requested]; ok {
		return requested
	}
	return "time"
}

// BuildWideQuery compiles a TimeSeriesQuery against the wide storage shape
// into parameterized SQL. Every compiled query is tenant-scoped and bounded
// by an inclusive [start, end] time range; there is no path around either.
func BuildWideQuery(table string, tenantID uuid.UUID, q models.TimeSeriesQuery) (string, []any) {
	table = sanitizeTable(table, DefaultWideTable)

	var sb strings.Builder
	args := []any{tenantID, q.StartTime, q.EndTime}

	sb.WriteString("SELECT ")
	sb.WriteString(wideColumns)
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE tenant_id = $1 AND time >= $2 AND time <= $3")

	args = appendWideFilters(&sb, args, q.Filters)

	sb.WriteString(" ORDER BY ")
	sb.WriteString(OrderByColumn(q.OrderBy))
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args
}

// BuildNarrowQuery compiles a TimeSeriesQuery against the narrow
// (row-per-metric) shape, pivoting metric rows into one record per
// (device, tenant, time) via jsonb_object_agg.
func BuildNarrowQuery(table string, tenantID uuid.UUID, q models.TimeSeriesQuery) (string, []any) {
	table = sanitizeTable(table, DefaultNarrowTable)

	var sb strings.Builder
	args := []any{tenantID, q.StartTime, q.EndTime}

	sb.WriteString("SELECT time, device_id, tenant_id, jsonb_object_agg(metric_name, value) AS metrics FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE tenant_id = $1 AND time >= $2 AND time <= $3")

	for _, key := range sortedFilterKeys(q.Filters) {
		value := q.Filters[key]
		switch {
		case key == models.FilterDeviceID:
			args = append(args, value)
			fmt.Fprintf(&sb, " AND device_id = $%d", len(args))
		case strings.HasPrefix(key, models.FilterTagPrefix):
			tag := SanitizeIdentifier(strings.TrimPrefix(key, models.FilterTagPrefix))
			args = append(args, value)
			fmt.Fprintf(&sb, " AND tags->>'%s' = $%d", tag, len(args))
		default:
			// Any other key is a metric-name filter in the narrow shape.
			args = append(args, key)
			fmt.Fprintf(&sb, " AND metric_name = $%d", len(args))
		}
	}

	sb.WriteString(" GROUP BY device_id, tenant_id, time ORDER BY ")
	sb.WriteString(OrderByColumn(q.OrderBy))
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args
}

// BuildWideAggregateQuery compiles an AggregateQuery against the wide shape.
// The _field filter selects the aggregated value expression and never
// reaches the WHERE clause.
func BuildWideAggregateQuery(table string, tenantID uuid.UUID, q models.AggregateQuery) (string, []any) {
	table = sanitizeTable(table, DefaultWideTable)

	filters := make(map[string]string, len(q.Filters))
	for k, v := range q.Filters {
		filters[k] = v
	}
	valueExpr := valueExpression(filters[models.FilterField])
	delete(filters, models.FilterField)

	var selectCols, groupCols []string
	if q.GroupByInterval > 0 {
		bucket := fmt.Sprintf("time_bucket('%s', time)", IntervalText(q.GroupByInterval))
		selectCols = append(selectCols, bucket+" AS bucket")
		groupCols = append(groupCols, bucket)
	}
	for _, field := range q.GroupByFields {
		switch {
		case field == models.FilterDeviceID:
			selectCols = append(selectCols, "device_id")
			groupCols = append(groupCols, "device_id")
		case strings.HasPrefix(field, models.FilterTagPrefix):
			tag := SanitizeIdentifier(strings.TrimPrefix(field, models.FilterTagPrefix))
			expr := fmt.Sprintf("custom_fields->>'%s'", tag)
			selectCols = append(selectCols, fmt.Sprintf("%s AS group_%s", expr, tag))
			groupCols = append(groupCols, expr)
		}
	}
	selectCols = append(selectCols,
		aggregateExpression(q.Function, valueExpr)+" AS value",
		fmt.Sprintf("COUNT(%s) AS count", valueExpr),
	)

	var sb strings.Builder
	args := []any{tenantID, q.StartTime, q.EndTime}

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selectCols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE tenant_id = $1 AND time >= $2 AND time <= $3")
	args = appendWideFilters(&sb, args, filters)

	if len(groupCols) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(groupCols, ", "))
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(groupCols, ", "))
	}
	return sb.String(), args
}

// appendWideFilters renders equality filters for the wide shape in sorted
// key order so compiled SQL is deterministic.
func appendWideFilters(sb *strings.Builder, args []any, filters map[string]string) []any {
	for _, key := range sortedFilterKeys(filters) {
		value := filters[key]
		switch {
		case key == models.FilterDeviceID:
			args = append(args, value)
			fmt.Fprintf(sb, " AND device_id = $%d", len(args))
		case strings.HasPrefix(key, models.FilterTagPrefix):
			tag := SanitizeIdentifier(strings.TrimPrefix(key, models.FilterTagPrefix))
			args = append(args, value)
			fmt.Fprintf(sb, " AND custom_fields->>'%s' = $%d", tag, len(args))
		default:
			field := SanitizeIdentifier(key)
			args = append(args, value)
			fmt.Fprintf(sb, " AND custom_fields->>'%s' = $%d", field, len(args))
		}
	}
	return args
}

func sortedFilterKeys(filters map[string]string) []string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// valueExpression maps a _field selector to the SQL expression holding the
// aggregated value. System scalar fields use their typed columns; anything
// else reads from the JSONB custom-fields column.
func valueExpression(field string) string {
	if field == "" {
		field = "value"
	}
	if col, ok := systemValueColumns[strings.ToLower(field)]; ok {
		return col
	}
	return fmt.Sprintf("(custom_fields->>'%s')::double precision", SanitizeIdentifier(field))
}

// aggregateExpression renders the SQL for an aggregate function over expr.
// first/last use the storage engine's ordered-by-time variants; percentiles
// use percentile_cont.
func aggregateExpression(fn models.AggregateFunction, expr string) string {
	if fraction, ok := fn.Percentile(); ok {
		return fmt.Sprintf("percentile_cont(%g) WITHIN GROUP (ORDER BY %s)", fraction, expr)
	}
	switch fn {
	case models.AggSum:
		return fmt.Sprintf("SUM(%s)", expr)
	case models.AggMin:
		return fmt.Sprintf("MIN(%s)", expr)
	case models.AggMax:
		return fmt.Sprintf("MAX(%s)", expr)
	case models.AggCount:
		return fmt.Sprintf("COUNT(%s)", expr)
	case models.AggFirst:
		return fmt.Sprintf("first(%s, time)", expr)
	case models.AggLast:
		return fmt.Sprintf("last(%s, time)", expr)
	default:
		return fmt.Sprintf("AVG(%s)", expr)
	}
}

// IntervalText renders a bucket width as coarse interval text, truncating
// to the largest whole unit: days when >= 1 day, else hours, else minutes,
// else seconds. Lossy but deterministic.
func IntervalText(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%d days", int64(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%d hours", int64(d/time.Hour))
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int64(d/time.Minute))
	default:
		seconds := int64(d / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		return fmt.Sprintf("%d seconds", seconds)
	}
}
