package http

import (
	"io"
	"net/http"

	"telemetry-engine/internal/ingestors"
	"telemetry-engine/internal/streams"

	"github.com/mileusna/useragent"
)

const maxTelemetryBytes = 1 * 1024 * 1024

// ingestTelemetryHandler is the gateway between HTTP devices and the
// message log. The payload is published verbatim, without decoding: the
// ingestion consumer owns validation, so malformed bodies still reach the
// dead-letter path instead of being rejected here.
type ingestTelemetryHandler struct {
	messageLog *streams.PartitionedMessageLog
}

func NewIngestTelemetryHandler(messageLog *streams.PartitionedMessageLog) AppHttpHandler {
	return &ingestTelemetryHandler{
		messageLog: messageLog,
	}
}

// Handle processes POST /telemetry requests.
func (h *ingestTelemetryHandler) Handle(w http.ResponseWriter, r *http.Request) error {
	if r.Body == nil {
		return errValidationFailed("empty request body", nil)
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxTelemetryBytes+1))
	if err != nil {
		return errValidationFailed("failed to read request body", err)
	}
	if len(payload) == 0 {
		return errValidationFailed("empty request body", nil)
	}
	if len(payload) > maxTelemetryBytes {
		return errValidationFailed("payload too large: must be <= 1MB", nil)
	}

	headers := map[string]string{}
	if tenant := tenantID(r); tenant != "" {
		headers[ingestors.HeaderTenantID] = tenant
	}

	// Key by device so one device's readings stay ordered on one partition.
	partitionKey := deviceID(r)
	if partitionKey == "" {
		partitionKey = tenantID(r)
	}

	partition, offset := h.messageLog.Publish(partitionKey, headers, payload)
	metricTelemetryPublishedTotal.WithLabelValues(clientFamily(r)).Inc()

	return writeJSONResponse(w, http.StatusAccepted, map[string]any{
		"partition": partition,
		"offset":    offset,
	})
}

// clientFamily normalizes the publishing client's user agent to its family
// name to keep metric cardinality bounded.
func clientFamily(r *http.Request) string {
	ua := userAgent(r)
	if ua == "" {
		return "unknown"
	}
	parsed := useragent.Parse(ua)
	if parsed.Name != "" {
		return parsed.Name
	}
	return "other"
}
