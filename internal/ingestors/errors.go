package ingestors

import (
	"fmt"

	"telemetry-engine/internal/shared/svcerrors"
)

// Ingestion errors
const (
	codeInvalidPayload  = "ING_1000"
	codeInvalidDeviceID = "ING_1001"

	codeInternalStoreWriteFailed = "ING_9000"
	codeInternalDeadLetterFailed = "ING_9001"
)

// Dead-letter reasons. The payload-parse and device-id reasons are stable
// strings; unexpected failures carry the underlying error text.
const (
	reasonPayloadParse    = "failed to parse JSON payload"
	reasonInvalidDeviceID = "invalid device id format"
)

func errInvalidPayload(cause error) *svcerrors.ServiceError {
	return svcerrors.NewInvalidArgumentError(codeInvalidPayload, reasonPayloadParse, cause)
}

func errInvalidDeviceID(raw string, cause error) *svcerrors.ServiceError {
	return svcerrors.NewInvalidArgumentError(codeInvalidDeviceID, fmt.Sprintf("%s: %q", reasonInvalidDeviceID, raw), cause)
}

func errInternalStoreWriteFailed(cause error) *svcerrors.ServiceError {
	return svcerrors.NewInternalError(codeInternalStoreWriteFailed, fmt.Errorf("timeSeriesStoreWriteFailed: %w", cause))
}

func errInternalDeadLetterFailed(cause error) *svcerrors.ServiceError {
	return svcerrors.NewInternalError(codeInternalDeadLetterFailed, fmt.Errorf("deadLetterSinkFailed: %w", cause))
}
