package streams

import (
	"telemetry-engine/internal/shared/metrics"
)

var (
	topicTelemetry = "telemetry_raw"

	metricMessagesPublishedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubStream,
			Name:      "messages_published_total",
		},
		[]string{"topic"},
	)

	metricOffsetsCommittedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubStream,
			Name:      "offsets_committed_total",
		},
		[]string{"topic"},
	)
)
