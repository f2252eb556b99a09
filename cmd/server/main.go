// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "lis-service/docs"
	"lis-service/internal/config"
	"lis-service/internal/database"
	"lis-service/internal/equipment"
	"lis-service/internal/handler"
	"lis-service/internal/model"
	"lis-service/internal/repository"
	"lis-service/internal/routes"
	"lis-service/internal/service"
	"lis-service/internal/utils"
)

// resultRetention is how long ingested results are kept before cleanup
const resultRetention = 90 * 24 * time.Hour

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	// Services
	equipmentService *service.EquipmentService
	resultService    *service.ResultService

	// Repositories
	equipmentRepo repository.EquipmentRepository
	categoryRepo  repository.CategoryRepository
	resultRepo    repository.ResultRepository

	// Equipment communication layer
	registry  *equipment.Registry
	listeners *equipment.ListenerManager
	eventBus  *handler.EventBus
	wsHandler *handler.WebSocketHandler
}

// @title LIS Equipment Service API
// @version 1.0.0
// @description Laboratory equipment communication and result ingestion service for HL7, ASTM and FHIR analyzers
// @termsOfService http://swagger.io/terms/

// @contact.name LIS Service API Support
// @contact.email support@lis-service.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8086
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "lis-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := app.initializeEquipmentLayer(); err != nil {
		return nil, fmt.Errorf("failed to initialize equipment layer: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeDatabase sets up database connection and runs migrations
func (app *Application) initializeDatabase() error {
	db, err := database.NewConnection(app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	app.database = db

	migrator := database.NewMigrator(db, app.logger, &app.config.Database)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() error {
	app.equipmentRepo = repository.NewEquipmentRepository(app.database, app.logger)
	app.categoryRepo = repository.NewCategoryRepository(app.database, app.logger)
	app.resultRepo = repository.NewResultRepository(app.database, app.logger)

	app.logger.Info("Repositories initialized successfully")
	return nil
}

// initializeEquipmentLayer wires the event bus, connection registry and
// listener manager together
func (app *Application) initializeEquipmentLayer() error {
	app.eventBus = handler.NewEventBus(app.logger)
	go app.eventBus.Start()

	app.registry = equipment.NewRegistry(&app.config.Equipment, app.eventBus, app.logger)
	app.listeners = equipment.NewListenerManager(
		app.registry,
		app.resultRepo,
		app.equipmentRepo,
		&app.config.Equipment,
		app.eventBus,
		app.logger,
	)

	app.logger.Info("Equipment layer initialized successfully")
	return nil
}

// initializeServices creates service instances
func (app *Application) initializeServices() error {
	app.equipmentService = service.NewEquipmentService(
		app.equipmentRepo,
		app.categoryRepo,
		app.registry,
		app.listeners,
		app.config,
		app.logger,
	)

	app.resultService = service.NewResultService(app.resultRepo, app.logger)

	app.logger.Info("Services initialized successfully")
	return nil
}

// initializeServer sets up HTTP server, routes and the WebSocket event bridge
func (app *Application) initializeServer() error {
	app.wsHandler = handler.NewWebSocketHandler(app.equipmentService, app.logger)

	// Bridge equipment events onto WebSocket clients
	eventHandler := handler.NewEquipmentEventHandler(app.wsHandler, app.logger)
	go eventHandler.Run(app.eventBus.SubscribeAll())

	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.equipmentService,
		app.resultService,
		app.wsHandler,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)

	return nil
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	go app.resetStaleLinkState()
	go app.startCleanupService()

	app.logger.Info("Background services started")
}

// resetStaleLinkState marks equipment left in a live state by a previous run
// as disconnected. Links are not persisted across restarts, so any recorded
// CONNECTED or LISTENING state is stale at startup.
func (app *Application) resetStaleLinkState() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, status := range []model.ConnectionStatus{model.ConnectionStatusConnected, model.ConnectionStatusListening} {
		stale, err := app.equipmentRepo.ListByStatus(ctx, status)
		if err != nil {
			app.logger.Error("Failed to list equipment for link state reset", zap.Error(err))
			return
		}

		for _, eq := range stale {
			if err := app.equipmentRepo.UpdateStatus(ctx, eq.ID, model.ConnectionStatusDisconnected); err != nil {
				app.logger.Warn("Failed to reset stale link state",
					zap.Int64("equipment_id", eq.ID),
					zap.Error(err),
				)
				continue
			}
			app.logger.Info("Reset stale link state", zap.Int64("equipment_id", eq.ID))
		}
	}
}

// startCleanupService periodically removes results past the retention window
func (app *Application) startCleanupService() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started")

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		if _, err := app.resultService.PurgeOldResults(ctx, resultRetention); err != nil {
			app.logger.Error("Failed to purge old results", zap.Error(err))
		}
		cancel()
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "lis-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Stop listeners and close equipment links
	app.equipmentService.Shutdown(ctx)
	app.logger.Info("Equipment links closed")

	// Close database connection
	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	// Flush logger
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}

	app.logger.Info("Application shutdown completed")
}

func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()

	app.waitForShutdown()

	return nil
}
