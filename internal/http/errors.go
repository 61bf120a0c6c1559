package http

import (
	"telemetry-engine/internal/shared/svcerrors"
)

// Query/ingest API errors
const (
	codeValidationFailed = "API_1000"

	codeInternalStoreQueryFailed = "API_9000"
)

func errValidationFailed(msg string, cause error) *svcerrors.ServiceError {
	return svcerrors.NewInvalidArgumentError(codeValidationFailed, msg, cause)
}

func errInternalStoreQueryFailed(cause error) *svcerrors.ServiceError {
	return svcerrors.NewInternalError(codeInternalStoreQueryFailed, cause)
}
