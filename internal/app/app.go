package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	internalhttp "telemetry-engine/internal/http"
	"telemetry-engine/internal/ingestors"
	"telemetry-engine/internal/shared/configs"
	"telemetry-engine/internal/shared/filestorages"
	"telemetry-engine/internal/shared/loggers"
	"telemetry-engine/internal/stores"
	"telemetry-engine/internal/streams"
)

// App holds all application dependencies and manages lifecycle.
type App struct {
	config    *configs.Config
	appLogger loggers.Logger
	server    *http.Server

	db         *sql.DB
	messageLog *streams.PartitionedMessageLog

	telemetryConsumer ingestors.TelemetryConsumer
	backgroundCtx     context.Context
	backgroundCancel  context.CancelFunc
}

// New creates and initializes a new App instance.
func New(config *configs.Config) (*App, error) {
	appLogger, err := loggers.New(config.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger = appLogger.With().
		Str(loggers.FieldApp, "telemetry-engine").
		Logger()

	// Initialize dead-letter sink storage
	fileStorage, err := filestorages.NewFileStorage(config.DeadLetter.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dead-letter storage: %w", err)
	}
	deadLetters := stores.NewDeadLetterStore(fileStorage)

	// Initialize the time-series store. An empty database URL selects the
	// in-memory store.
	var db *sql.DB
	var store stores.TimeSeriesStore
	if config.Database.URL != "" {
		db, err = sql.Open("pgx", config.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		store = stores.NewPostgresTimeSeriesStore(db, config.Database.Table)
	} else {
		store = stores.NewMemoryTimeSeriesStore(config.Database.Table)
	}

	// Initialize the message log and consumer
	messageLog := streams.NewPartitionedMessageLog(config.Broker.Partitions, config.Broker.Buffer)

	defaultTenant, err := uuid.Parse(config.Tenant.DefaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default tenant id: %w", err)
	}
	tenantResolver := ingestors.NewTenantResolver(defaultTenant)

	consumerLogger := appLogger.With().Str(loggers.FieldComponent, "consumer").Logger()
	telemetryConsumer := ingestors.NewTelemetryConsumer(messageLog, store, deadLetters, tenantResolver, consumerLogger)

	// Initialize http router
	httpLogger := appLogger.With().Str(loggers.FieldComponent, "http").Logger()
	router := internalhttp.NewRouter(messageLog, store, httpLogger)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: time.Duration(config.Server.ReadHeaderTimeout) * time.Second,
		ReadTimeout:       time.Duration(config.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(config.Server.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(config.Server.IdleTimeout) * time.Second,
	}

	return &App{
		config:            config,
		appLogger:         appLogger,
		server:            server,
		db:                db,
		messageLog:        messageLog,
		telemetryConsumer: telemetryConsumer,
	}, nil
}

// Start starts the HTTP server in a blocking manner.
func (app *App) Start() error {
	app.appLogger.Info().
		Msgf("Starting telemetry-engine service on port %d (log_level=%s, partitions=%d, dead_letter_root_dir=%s)",
			app.config.Server.Port,
			app.config.Log.Level,
			app.messageLog.PartitionCount(),
			app.config.DeadLetter.RootDir)

	// A dead database at startup is fatal; the host supervisor restarts us.
	if app.db != nil {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.db.PingContext(pingCtx); err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}
	}

	// start background consumer workers
	app.backgroundCtx, app.backgroundCancel = context.WithCancel(context.Background())
	app.telemetryConsumer.Start(app.backgroundCtx)

	return app.server.ListenAndServe()
}

// Shutdown gracefully shuts down the application.
func (app *App) Shutdown(ctx context.Context) error {
	// 1) Shutdown server so no new messages are published
	app.appLogger.Info().Msg("Shutting down server...")
	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	app.appLogger.Info().Msg("Server stopped")

	// 2) Cancel background consumer workers
	if app.backgroundCancel != nil {
		app.backgroundCancel()
		app.appLogger.Info().Msg("Background consumer cancelled")
	}

	// 3) Wait for consumer workers to finish in-flight messages
	app.telemetryConsumer.Stop()
	app.appLogger.Info().Msg("Background consumer stopped")

	// 4) Release store resources
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			return fmt.Errorf("database close failed: %w", err)
		}
	}

	return nil
}
