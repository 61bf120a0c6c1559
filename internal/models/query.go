package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// FilterDeviceID filters on the device column directly.
	FilterDeviceID = "deviceId"
	// FilterTagPrefix marks filters on a named tag/custom attribute.
	FilterTagPrefix = "tag."
	// FilterField selects which value field an aggregate operates on. It is
	// stripped from the filter set before SQL compilation.
	FilterField = "_field"
)

// TimeSeriesQuery is a declarative read request. The owning tenant is never
// part of the query itself; it always comes from the caller's context.
type TimeSeriesQuery struct {
	StartTime time.Time         `json:"startTime"`
	EndTime   time.Time         `json:"endTime"`
	Filters   map[string]string `json:"filters,omitempty"`
	OrderBy   string            `json:"orderBy,omitempty"`
	Limit     int               `json:"limit,omitempty"`
}

// AggregateQuery extends TimeSeriesQuery with an aggregate function and
// optional grouping by time bucket and/or fields.
type AggregateQuery struct {
	TimeSeriesQuery

	Function        AggregateFunction `json:"aggregateFunction"`
	GroupByInterval time.Duration     `json:"groupByInterval,omitempty"`
	GroupByFields   []string          `json:"groupByFields,omitempty"`
}

// AggregateResult is one row of an aggregate query response.
type AggregateResult struct {
	Bucket      *time.Time        `json:"bucket,omitempty"`
	DeviceID    *uuid.UUID        `json:"deviceId,omitempty"`
	Value       *float64          `json:"value"`
	Count       int64             `json:"count"`
	GroupValues map[string]string `json:"groupValues,omitempty"`
}

// AggregateFunction identifies an aggregate computation.
type AggregateFunction string

const (
	AggAvg   AggregateFunction = "avg"
	AggSum   AggregateFunction = "sum"
	AggMin   AggregateFunction = "min"
	AggMax   AggregateFunction = "max"
	AggCount AggregateFunction = "count"
	AggFirst AggregateFunction = "first"
	AggLast  AggregateFunction = "last"
	AggP50   AggregateFunction = "p50"
	AggP90   AggregateFunction = "p90"
	AggP95   AggregateFunction = "p95"
	AggP99   AggregateFunction = "p99"
	AggP999  AggregateFunction = "p99.9"
)

// ParseAggregateFunction maps a requested function name to a known
// AggregateFunction, case-insensitively. Unrecognized names fall back to
// AggAvg rather than failing.
func ParseAggregateFunction(name string) AggregateFunction {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "avg", "average":
		return AggAvg
	case "sum":
		return AggSum
	case "min":
		return AggMin
	case "max":
		return AggMax
	case "count":
		return AggCount
	case "first":
		return AggFirst
	case "last":
		return AggLast
	case "median", "p50":
		return AggP50
	case "p90":
		return AggP90
	case "p95":
		return AggP95
	case "p99":
		return AggP99
	case "p99.9", "p999":
		return AggP999
	default:
		return AggAvg
	}
}

// Percentile returns the percentile fraction for percentile functions.
func (f AggregateFunction) Percentile() (float64, bool) {
	switch f {
	case AggP50:
		return 0.5, true
	case AggP90:
		return 0.9, true
	case AggP95:
		return 0.95, true
	case AggP99:
		return 0.99, true
	case AggP999:
		return 0.999, true
	}
	return 0, false
}
