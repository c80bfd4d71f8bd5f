package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pixeldeck/pixeldeck/internal/amqp"
	"github.com/pixeldeck/pixeldeck/internal/config"
	"github.com/pixeldeck/pixeldeck/internal/handlers"
	"github.com/pixeldeck/pixeldeck/internal/icons"
	"github.com/pixeldeck/pixeldeck/internal/images"
	"github.com/pixeldeck/pixeldeck/internal/redis"
	"github.com/pixeldeck/pixeldeck/internal/render"
	"github.com/pixeldeck/pixeldeck/internal/rotation"
	"github.com/pixeldeck/pixeldeck/internal/state"
	"github.com/pixeldeck/pixeldeck/internal/surface"
	"github.com/pixeldeck/pixeldeck/internal/templates"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Redis (frame publishing, entity state, rotation config)
	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Shared collaborators
	eval, err := newEvaluator(cfg.Render.Evaluator)
	if err != nil {
		logger.Fatal("Failed to initialize template evaluator", zap.Error(err))
	}
	pageStore := pages.NewStore(cfg.Render.PagesPath)
	stateStore := state.NewRedisStore(redisClient)
	imageResolver := images.NewResolver(cfg.Render.AllowedPrefixes, logger)
	iconRasterizer := icons.NewRasterizer(icons.NewDirSource(cfg.Render.IconsPath), logger)
	configStore := rotation.NewRedisConfigStore(redisClient)

	// One surface, renderer, queue and controller per display
	manager := rotation.NewManager(logger)
	for _, deviceID := range cfg.Render.DeviceIDs {
		surf := surface.NewRemote(deviceID, cfg.Render.CanvasSize, redisClient, logger)
		renderer := render.New(surf, eval, pageStore, stateStore, imageResolver, iconRasterizer,
			logger.With(zap.String("device_id", deviceID)))
		queue := rotation.NewQueue(cfg.Rotation.QueueDepth, logger.With(zap.String("device_id", deviceID)))
		controller := rotation.NewController(deviceID, configStore, renderer, eval, pageStore, queue, logger)

		manager.Register(&rotation.Device{
			ID:         deviceID,
			Controller: controller,
			Queue:      queue,
			Renderer:   renderer,
		})
	}
	defer manager.Close()

	// Resume rotation on devices whose persisted config enables it
	for _, deviceID := range cfg.Render.DeviceIDs {
		if d, err := manager.Device(deviceID); err == nil {
			if err := d.Controller.Start(ctx); err != nil {
				logger.Warn("Failed to start rotation",
					zap.String("device_id", deviceID),
					zap.Error(err))
			}
		}
	}

	// Consume display commands from the message bus
	amqpConn, err := amqp.NewConnection(cfg.AMQP, logger)
	if err != nil {
		logger.Fatal("Failed to connect to AMQP", zap.Error(err))
	}
	defer amqpConn.Close()

	commandHandler := handlers.NewCommandHandler(manager, logger)
	consumer := amqp.NewConsumer(amqpConn, commandHandler, logger)
	go func() {
		if err := consumer.Start(ctx, cfg.AMQP.QueueName); err != nil && ctx.Err() == nil {
			logger.Error("AMQP consumer stopped", zap.Error(err))
			cancel()
		}
	}()

	// HTTP API
	mux := http.NewServeMux()
	deviceHandler := handlers.NewDeviceHandler(manager, logger)
	deviceHandler.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("Server started",
		zap.Int("port", cfg.Server.Port),
		zap.Int("canvas_size", cfg.Render.CanvasSize),
		zap.Strings("devices", cfg.Render.DeviceIDs),
		zap.String("pages_path", cfg.Render.PagesPath))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// Stop rotation timers and drain the render queues
	manager.Close()

	cancel()
	logger.Info("Server shutdown complete")
}

// newLogger builds a production logger at the configured level
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// newEvaluator selects the template engine
func newEvaluator(name string) (templates.Evaluator, error) {
	switch name {
	case "", "gotemplate":
		return templates.NewGoTemplate(), nil
	case "starlark":
		return templates.NewStarlark(), nil
	default:
		return nil, fmt.Errorf("unknown template evaluator %q", name)
	}
}
