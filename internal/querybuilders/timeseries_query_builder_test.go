package querybuilders

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-engine/internal/models"
)

var (
	testTenantID = uuid.MustParse("7ad1e2a8-9c31-4b02-8e01-0a4f4c9de111")
	rangeStart   = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd     = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
)

func baseQuery() models.TimeSeriesQuery {
	return models.TimeSeriesQuery{StartTime: rangeStart, EndTime: rangeEnd}
}

func TestBuildWideQuery_AlwaysTenantAndTimeScoped(t *testing.T) {
	t.Parallel()

	sql, args := BuildWideQuery(DefaultWideTable, testTenantID, baseQuery())

	assert.Contains(t, sql, "FROM telemetry_readings")
	assert.Contains(t, sql, "WHERE tenant_id = $1 AND time >= $2 AND time <= $3")
	require.Len(t, args, 3)
	assert.Equal(t, testTenantID, args[0])
	assert.Equal(t, rangeStart, args[1])
	assert.Equal(t, rangeEnd, args[2])
}

func TestBuildWideQuery_Filters(t *testing.T) {
	t.Parallel()

	q := baseQuery()
	q.Filters = map[string]string{
		models.FilterDeviceID: "6f1d2f60-0000-4000-8000-000000000001",
		"tag.zone":            "west",
		"firmware":            "v2",
	}

	sql, args := BuildWideQuery(DefaultWideTable, testTenantID, q)

	// Filters render in sorted key order: deviceId, firmware, tag.zone.
	assert.Contains(t, sql, "AND device_id = $4")
	assert.Contains(t, sql, "AND custom_fields->>'firmware' = $5")
	assert.Contains(t, sql, "AND custom_fields->>'zone' = $6")
	require.Len(t, args, 6)
	assert.Equal(t, "6f1d2f60-0000-4000-8000-000000000001", args[3])
	assert.Equal(t, "v2", args[4])
	assert.Equal(t, "west", args[5])
}

func TestBuildWideQuery_HostileTagNameIsSanitized(t *testing.T) {
	t.Parallel()

	q := baseQuery()
	q.Filters = map[string]string{"tag.zone'; DROP TABLE x; --": "west"}

	sql, _ := BuildWideQuery(DefaultWideTable, testTenantID, q)

	assert.NotContains(t, sql, "DROP TABLE x")
	assert.NotContains(t, sql, "'; ")
	assert.Contains(t, sql, "custom_fields->>'zoneDROPTABLEx'")
}

func TestBuildWideQuery_OrderByAllowList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		requested string
		want      string
	}{
		{requested: "", want: "ORDER BY time"},
		{requested: "time", want: "ORDER BY time"},
		{requested: "device_id", want: "ORDER BY device_id"},
		{requested: "tenant_id", want: "ORDER BY tenant_id"},
		{requested: "battery_level", want: "ORDER BY time"},
		{requested: "time; DROP TABLE x", want: "ORDER BY time"},
	}
	for _, tt := range tests {
		q := baseQuery()
		q.OrderBy = tt.requested
		sql, _ := BuildWideQuery(DefaultWideTable, testTenantID, q)
		assert.Contains(t, sql, tt.want, "requested order %q", tt.requested)
		assert.NotContains(t, sql, "DROP TABLE")
	}
}

func TestBuildWideQuery_Limit(t *testing.T) {
	t.Parallel()

	q := baseQuery()
	q.Limit = 50
	sql, args := BuildWideQuery(DefaultWideTable, testTenantID, q)
	assert.True(t, strings.HasSuffix(sql, "LIMIT $4"))
	require.Len(t, args, 4)
	assert.Equal(t, 50, args[3])

	sql, args = BuildWideQuery(DefaultWideTable, testTenantID, baseQuery())
	assert.NotContains(t, sql, "LIMIT")
	assert.Len(t, args, 3)
}

func TestBuildWideQuery_TableFallback(t *testing.T) {
	t.Parallel()

	sql, _ := BuildWideQuery("';--", testTenantID, baseQuery())
	assert.Contains(t, sql, "FROM telemetry_readings")

	sql, _ = BuildWideQuery("readings_eu", testTenantID, baseQuery())
	assert.Contains(t, sql, "FROM readings_eu")
}

func TestBuildNarrowQuery_PivotsMetrics(t *testing.T) {
	t.Parallel()

	q := baseQuery()
	q.Filters = map[string]string{
		models.FilterDeviceID: "6f1d2f60-0000-4000-8000-000000000001",
		"temperature":         "",
	}

	sql, args := BuildNarrowQuery(DefaultNarrowTable, testTenantID, q)

	assert.Contains(t, sql, "jsonb_object_agg(metric_name, value) AS metrics")
	assert.Contains(t, sql, "FROM telemetry_metrics")
	assert.Contains(t, sql, "WHERE tenant_id = $1 AND time >= $2 AND time <= $3")
	assert.Contains(t, sql, "AND device_id = $4")
	// Generic keys filter on the metric name column, bound by key not value.
	assert.Contains(t, sql, "AND metric_name = $5")
	assert.Contains(t, sql, "GROUP BY device_id, tenant_id, time")
	require.Len(t, args, 5)
	assert.Equal(t, "temperature", args[4])
}

func TestBuildWideAggregateQuery_FunctionExpressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fn   models.AggregateFunction
		want string
	}{
		{fn: models.AggAvg, want: "AVG(value) AS value"},
		{fn: models.AggSum, want: "SUM(value) AS value"},
		{fn: models.AggMin, want: "MIN(value) AS value"},
		{fn: models.AggMax, want: "MAX(value) AS value"},
		{fn: models.AggCount, want: "COUNT(value) AS value"},
		{fn: models.AggFirst, want: "first(value, time) AS value"},
		{fn: models.AggLast, want: "last(value, time) AS value"},
		{fn: models.AggP50, want: "percentile_cont(0.5) WITHIN GROUP (ORDER BY value) AS value"},
		{fn: models.AggP95, want: "percentile_cont(0.95) WITHIN GROUP (ORDER BY value) AS value"},
		{fn: models.AggP999, want: "percentile_cont(0.999) WITHIN GROUP (ORDER BY value) AS value"},
		{fn: models.AggregateFunction("bogus"), want: "AVG(value) AS value"},
	}
	for _, tt := range tests {
		q := models.AggregateQuery{TimeSeriesQuery: baseQuery(), Function: tt.fn}
		sql, _ := BuildWideAggregateQuery(DefaultWideTable, testTenantID, q)
		assert.Contains(t, sql, tt.want, "function %q", tt.fn)
		assert.Contains(t, sql, "COUNT(value) AS count")
	}
}

func TestBuildWideAggregateQuery_FieldSelector(t *testing.T) {
	t.Parallel()

	t.Run("system field uses its typed column", func(t *testing.T) {
		t.Parallel()
		q := models.AggregateQuery{TimeSeriesQuery: baseQuery(), Function: models.AggAvg}
		q.Filters = map[string]string{models.FilterField: "batteryLevel"}

		sql, args := BuildWideAggregateQuery(DefaultWideTable, testTenantID, q)

		assert.Contains(t, sql, "AVG(battery_level) AS value")
		// The selector is consumed, not compiled as a WHERE filter.
		assert.NotContains(t, sql, "_field")
		assert.Len(t, args, 3)
	})

	t.Run("custom field reads from jsonb", func(t *testing.T) {
		t.Parallel()
		q := models.AggregateQuery{TimeSeriesQuery: baseQuery(), Function: models.AggMax}
		q.Filters = map[string]string{models.FilterField: "temperature"}

		sql, _ := BuildWideAggregateQuery(DefaultWideTable, testTenantID, q)

		assert.Contains(t, sql, "MAX((custom_fields->>'temperature')::double precision) AS value")
	})

	t.Run("empty selector defaults to value column", func(t *testing.T) {
		t.Parallel()
		q := models.AggregateQuery{TimeSeriesQuery: baseQuery(), Function: models.AggSum}

		sql, _ := BuildWideAggregateQuery(DefaultWideTable, testTenantID, q)

		assert.Contains(t, sql, "SUM(value) AS value")
	})
}

func TestBuildWideAggregateQuery_Grouping(t *testing.T) {
	t.Parallel()

	q := models.AggregateQuery{
		TimeSeriesQuery: baseQuery(),
		Function:        models.AggAvg,
		GroupByInterval: 5 * time.Minute,
		GroupByFields:   []string{models.FilterDeviceID, "tag.zone"},
	}

	sql, args := BuildWideAggregateQuery(DefaultWideTable, testTenantID, q)

	assert.Contains(t, sql, "time_bucket('5 minutes', time) AS bucket")
	assert.Contains(t, sql, "device_id")
	assert.Contains(t, sql, "custom_fields->>'zone' AS group_zone")
	assert.Contains(t, sql, "GROUP BY time_bucket('5 minutes', time), device_id, custom_fields->>'zone'")
	assert.Contains(t, sql, "ORDER BY time_bucket('5 minutes', time), device_id, custom_fields->>'zone'")
	assert.Len(t, args, 3)
}

func TestBuildWideAggregateQuery_NoGroupingOmitsGroupBy(t *testing.T) {
	t.Parallel()

	q := models.AggregateQuery{TimeSeriesQuery: baseQuery(), Function: models.AggAvg}
	sql, _ := BuildWideAggregateQuery(DefaultWideTable, testTenantID, q)

	assert.NotContains(t, sql, "GROUP BY")
	assert.NotContains(t, sql, "ORDER BY")
}

func TestIntervalText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 48 * time.Hour, want: "2 days"},
		{d: 25 * time.Hour, want: "1 days"},
		{d: 24 * time.Hour, want: "1 days"},
		{d: 6 * time.Hour, want: "6 hours"},
		{d: 90 * time.Minute, want: "1 hours"},
		{d: 5 * time.Minute, want: "5 minutes"},
		{d: 90 * time.Second, want: "1 minutes"},
		{d: 30 * time.Second, want: "30 seconds"},
		{d: 500 * time.Millisecond, want: "1 seconds"},
		{d: 0, want: "1 seconds"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IntervalText(tt.d), "duration %s", tt.d)
	}
}

func TestOrderByColumn(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "time", OrderByColumn(""))
	assert.Equal(t, "device_id", OrderByColumn("device_id"))
	assert.Equal(t, "time", OrderByColumn("custom_fields"))
}
