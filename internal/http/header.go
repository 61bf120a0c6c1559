package http

import (
	"net/http"
	"strings"
)

const (
	headerRequestID = "x-request-id"
	headerTenantID  = "tenant-id"
	headerDeviceID  = "x-device-id"
	headerUserAgent = "user-agent"
)

func requestID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(headerRequestID))
}

func setRequestID(r *http.Request, requestID string) {
	r.Header.Set(headerRequestID, requestID)
}

func tenantID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(headerTenantID))
}

func deviceID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(headerDeviceID))
}

func userAgent(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(headerUserAgent))
}
