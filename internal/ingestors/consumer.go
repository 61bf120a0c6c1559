package ingestors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"telemetry-engine/internal/events"
	"telemetry-engine/internal/models"
	"telemetry-engine/internal/shared/loggers"
	"telemetry-engine/internal/shared/metrics"
	"telemetry-engine/internal/shared/svcerrors"
	"telemetry-engine/internal/shared/ulid"
	"telemetry-engine/internal/stores"
	"telemetry-engine/internal/streams"
)

//go:generate mockgen -source=consumer.go -destination=./mocks/telemetry_consumer_mock.go -package=mocks
type TelemetryConsumer interface {
	Start(ctx context.Context)
	Stop()
}

// telemetryConsumer pulls raw messages off the partitioned log, classifies
// and normalizes them into TelemetryRecords, writes them through the
// time-series store, and advances the committed offset only after the
// message's fate is settled (stored or dead-lettered). One worker owns each
// partition; within a partition processing is strictly sequential, so the
// commit cursor never runs ahead of an unfinished message.
type telemetryConsumer struct {
	messageLog  *streams.PartitionedMessageLog
	store       stores.TimeSeriesStore
	deadLetters stores.DeadLetterSink
	resolver    *TenantResolver
	now         func() time.Time

	wg sync.WaitGroup

	stopOnce sync.Once
	stopCh   chan struct{}

	logger loggers.Logger
}

func NewTelemetryConsumer(
	messageLog *streams.PartitionedMessageLog,
	store stores.TimeSeriesStore,
	deadLetters stores.DeadLetterSink,
	resolver *TenantResolver,
	logger loggers.Logger,
) TelemetryConsumer {
	return &telemetryConsumer{
		messageLog:  messageLog,
		store:       store,
		deadLetters: deadLetters,
		resolver:    resolver,
		now:         time.Now,
		stopCh:      make(chan struct{}),
		logger:      logger,
	}
}

// Start spawns 1 worker goroutine per partition.
func (consumer *telemetryConsumer) Start(ctx context.Context) {
	for partitionIndex := 0; partitionIndex < consumer.messageLog.PartitionCount(); partitionIndex++ {
		consumer.wg.Add(1)
		go func(partition int) {
			defer consumer.wg.Done()

			consumer.runPartitionWorker(ctx, partition)
		}(partitionIndex)
	}
}

// Stop waits for workers to stop (best called during app shutdown).
func (consumer *telemetryConsumer) Stop() {
	consumer.stopOnce.Do(func() { close(consumer.stopCh) })
	consumer.wg.Wait()
}

func (consumer *telemetryConsumer) runPartitionWorker(ctx context.Context, partition int) {
	// Derive a worker context cancelled by Stop so a blocked Poll unwinds.
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-consumer.stopCh:
			cancel()
		case <-workerCtx.Done():
		}
	}()

	for {
		msg, err := consumer.messageLog.Poll(workerCtx, partition)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, streams.ErrLogClosed) {
				return
			}
			// Anything else here is a broker fault, not a message fault.
			// Fail fast and let the host supervisor restart the service.
			consumer.logger.Error().Err(err).
				Str(loggers.FieldPartitionId, fmt.Sprintf("%d", partition)).
				Msg("fatal broker failure, stopping partition worker")
			return
		}

		msgCtx := consumer.logger.With().
			Str(loggers.FieldPartitionId, fmt.Sprintf("%d", msg.Partition)).
			Int64(loggers.FieldOffset, msg.Offset).
			Str(loggers.FieldRequestID, ulid.NewULID()).
			Logger().WithContext(workerCtx)

		consumer.processMessage(msgCtx, &msg)

		// The offset commit is the only delivery-guarantee mechanism, and
		// it happens exactly once per message, success or dead-lettered.
		consumer.messageLog.CommitOffset(msg.Partition, msg.Offset)
	}
}

// processMessage settles one message. It never returns an error: every
// per-message fault is dead-lettered so a poisoned message cannot block the
// partition.
func (consumer *telemetryConsumer) processMessage(ctx context.Context, msg *events.RawTelemetryMessage) {
	defer func() {
		if r := recover(); r != nil {
			loggers.Ctx(ctx).Error().
				Bytes(loggers.FieldErrorStack, debug.Stack()).
				Msg("consumer panic recovered")

			var panicErr error
			if err, ok := r.(error); ok {
				panicErr = err
			} else {
				panicErr = fmt.Errorf("%v", r)
			}
			svcErr := svcerrors.NewInternalErrorPanic(panicErr)
			consumer.deadLetter(ctx, "", msg.Payload, panicErr.Error(), "panic")
			metricMessagesConsumedTotal.WithLabelValues(svcErr.Code).Inc()
		}
	}()

	var props map[string]any
	if err := json.Unmarshal(msg.Payload, &props); err != nil {
		svcErr := errInvalidPayload(err)
		consumer.deadLetter(ctx, "", msg.Payload, reasonPayloadParse, "payload_parse")
		metricMessagesConsumedTotal.WithLabelValues(svcErr.Code).Inc()
		return
	}

	tenantID := consumer.resolver.Resolve(msg.Headers)

	classified, err := ClassifyFields(props, consumer.now)
	if err != nil {
		svcErr, ok := svcerrors.AsServiceError(err)
		if !ok {
			svcErr = svcerrors.NewInternalErrorUndefined(err)
		}
		consumer.deadLetter(ctx, rawDeviceID(props), msg.Payload, svcErr.Message, "invalid_device_id")
		metricMessagesConsumedTotal.WithLabelValues(svcErr.Code).Inc()
		return
	}

	record := &models.TelemetryRecord{
		Time:           classified.Time,
		DeviceID:       classified.DeviceID,
		TenantID:       tenantID,
		DeviceType:     classified.DeviceType,
		BatteryLevel:   classified.BatteryLevel,
		SignalStrength: classified.SignalStrength,
		Latitude:       classified.Latitude,
		Longitude:      classified.Longitude,
		Altitude:       classified.Altitude,
		CustomFields:   classified.CustomFields,
	}

	if err := consumer.store.Write(ctx, record); err != nil {
		svcErr := errInternalStoreWriteFailed(err)
		consumer.deadLetter(ctx, record.DeviceID.String(), msg.Payload, err.Error(), "store_write")
		metricMessagesConsumedTotal.WithLabelValues(svcErr.Code).Inc()
		return
	}

	metricRecordsWrittenTotal.WithLabelValues().Inc()
	metricMessagesConsumedTotal.WithLabelValues(metrics.ValueNoError).Inc()
}

// deadLetter routes a failed message to the sink. Losing a dead-letter
// record is preferable to stalling ingestion, so sink failures are logged
// and swallowed.
func (consumer *telemetryConsumer) deadLetter(ctx context.Context, deviceID string, rawPayload []byte, reason, reasonClass string) {
	metricMessagesDeadLetteredTotal.WithLabelValues(reasonClass).Inc()

	if err := consumer.deadLetters.Record(ctx, deviceID, rawPayload, reason); err != nil {
		svcErr := errInternalDeadLetterFailed(err)
		loggers.Ctx(ctx).Error().
			Err(svcErr.Cause).
			Str(loggers.FieldErrorCode, svcErr.Code).
			Str(loggers.FieldDeviceId, deviceID).
			Str(loggers.FieldReason, reason).
			Msg("dead-letter sink failed, record lost")
		return
	}

	loggers.Ctx(ctx).Warn().
		Str(loggers.FieldDeviceId, deviceID).
		Str(loggers.FieldReason, reason).
		Msg("message dead-lettered")
}

// rawDeviceID pulls the claimed device id out of an already-decoded payload
// for dead-letter records, without re-validating it.
func rawDeviceID(props map[string]any) string {
	for _, alias := range deviceIDAliases {
		for key, value := range props {
			if s, ok := value.(string); ok && alias == strings.ToLower(key) {
				return s
			}
		}
	}
	return ""
}
