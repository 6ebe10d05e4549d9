// -----------------------------------------------------------------------
// Application wiring - storage, automation, orchestration, handlers
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/libero/internal/automation"
	"github.com/ternarybob/libero/internal/common"
	"github.com/ternarybob/libero/internal/handlers"
	"github.com/ternarybob/libero/internal/interfaces"
	"github.com/ternarybob/libero/internal/release"
	badgerstore "github.com/ternarybob/libero/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	DriverFactory  interfaces.DriverFactory
	Orchestrator   *release.Orchestrator
	Monitor        *release.Monitor

	// HTTP handlers
	WSHandler      *handlers.WebSocketHandler
	WSWriter       *handlers.WebSocketWriter
	ReleaseHandler *handlers.ReleaseHandler
	VehicleHandler *handlers.VehicleHandler
	StatusHandler  *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager
	store := storageManager.VehicleStorage()

	// WebSocket fan-out is created before the orchestrator so batches can
	// publish progress to connected dashboards from the first event.
	app.WSHandler = handlers.NewWebSocketHandler(&cfg.WebSocket, logger)

	wsWriter, err := handlers.NewWebSocketWriter(app.WSHandler, arbormodels.WriterConfiguration{
		TimeFormat: cfg.Logging.TimeFormat,
	}, &cfg.WebSocket)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize websocket log writer: %w", err)
	}
	app.WSWriter = wsWriter

	app.DriverFactory = automation.NewChromeDriverFactory(&cfg.Automation, logger)
	app.Orchestrator = release.NewOrchestrator(store, app.DriverFactory, cfg, app.WSHandler, logger)
	app.Monitor = release.NewMonitor(store, &cfg.Monitor, logger)

	app.ReleaseHandler = handlers.NewReleaseHandler(app.Orchestrator, logger)
	app.VehicleHandler = handlers.NewVehicleHandler(store, logger)
	app.StatusHandler = handlers.NewStatusHandler(store, app.WSHandler, logger)

	logger.Info().
		Str("db_path", cfg.Storage.Badger.Path).
		Str("form_url", cfg.DMV.FormURL).
		Int("concurrency", cfg.Automation.Concurrency).
		Msg("Application initialized")

	return app, nil
}

// Close releases application resources in reverse initialization order
func (a *App) Close() error {
	if a.Monitor != nil {
		a.Monitor.Stop()
	}

	if a.WSWriter != nil {
		if err := a.WSWriter.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close websocket log writer")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
