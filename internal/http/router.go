package http

import (
	"net/http"

	"telemetry-engine/internal/shared/loggers"
	"telemetry-engine/internal/shared/metrics"
	"telemetry-engine/internal/stores"
	"telemetry-engine/internal/streams"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(messageLog *streams.PartitionedMessageLog, store stores.TimeSeriesStore, httpLogger loggers.Logger) http.Handler {
	router := chi.NewRouter()
	setupMiddleware(router, httpLogger)

	// Initialize handlers
	ingestTelemetryHandler := NewIngestTelemetryHandler(messageLog)
	queryHandler := NewQueryHandler(store)

	// Routes
	router.Post("/telemetry", errorHandlingAdapter(ingestTelemetryHandler))
	router.Post("/query", errorHandlingAdapter(appHandlerFunc(queryHandler.HandleQuery)))
	router.Post("/query/aggregate", errorHandlingAdapter(appHandlerFunc(queryHandler.HandleAggregate)))
	router.Post("/devices/latest", errorHandlingAdapter(appHandlerFunc(queryHandler.HandleLatest)))
	router.Get("/metrics", metrics.PromHTTP.Handler().ServeHTTP)

	return router
}
