package events

// RawTelemetryMessage is the broker envelope for one inbound telemetry
// payload. The payload is carried verbatim as delivered on the topic; the
// ingestion consumer owns decoding, so malformed bodies still travel the
// pipeline and can be dead-lettered with their original bytes.
//
// Headers carry transport metadata as UTF-8 strings. The key `tenant-id`
// optionally identifies the owning tenant.
type RawTelemetryMessage struct {
	Partition int               `json:"partition"`
	Offset    int64             `json:"offset"`
	Key       string            `json:"key,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Payload   []byte            `json:"payload"`
}

// Header returns the value for a header name, or "" when absent.
func (m *RawTelemetryMessage) Header(name string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[name]
}
