package stores

import (
	"time"

	"telemetry-engine/internal/shared/metrics"
)

var (
	metricStoreWriteDuration = metrics.NewHistogramVec(
		metrics.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubStore,
			Name:      "write_duration_seconds",
			Buckets:   metrics.DefBuckets,
		},
		[]string{"op"},
	)

	metricQueryDuration = metrics.NewHistogramVec(
		metrics.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubQuery,
			Name:      "duration_seconds",
			Buckets:   metrics.DefBuckets,
		},
		[]string{"op"},
	)
)

func observeSince(h *metrics.HistogramVec, op string, start time.Time) {
	h.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
