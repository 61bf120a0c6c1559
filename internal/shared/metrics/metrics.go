package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promhttppkg "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared label names/values and the metric namespace layout. Every metric in
// the service lives under Namespace with one of the subsystem names below.
const (
	FieldErrorCode = "error_code"

	ValueNoError = ""

	Namespace    = "telemetry_engine"
	SubIngestion = "ingestion"
	SubQuery     = "query"
	SubStream    = "stream"
	SubStore     = "store"
	SubHTTP      = "http"
)

// Re-exports so metric-owning packages depend on this package rather than on
// the prometheus client directly. promauto registers with the default
// registry at construction.
type (
	CounterOpts   = prometheus.CounterOpts
	HistogramOpts = prometheus.HistogramOpts
	HistogramVec  = prometheus.HistogramVec
)

var (
	DefBuckets      = prometheus.DefBuckets
	NewCounterVec   = promauto.NewCounterVec
	NewHistogramVec = promauto.NewHistogramVec
)

type promHTTP struct{}

// Handler serves the default registry for the GET /metrics endpoint.
func (promHTTP) Handler() http.Handler {
	return promhttppkg.Handler()
}

var PromHTTP = promHTTP{}
