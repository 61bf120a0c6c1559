package ingestors

import (
	"telemetry-engine/internal/shared/metrics"
)

var (
	metricMessagesConsumedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubIngestion,
			Name:      "messages_consumed_total",
		},
		[]string{metrics.FieldErrorCode},
	)

	metricMessagesDeadLetteredTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubIngestion,
			Name:      "messages_dead_lettered_total",
		},
		[]string{"reason"},
	)

	metricRecordsWrittenTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubIngestion,
			Name:      "records_written_total",
		},
		[]string{},
	)
)
