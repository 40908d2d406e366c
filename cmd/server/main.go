// Package main is the entry point for the recipe catalog server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/recipe-catalog/internal/config"
	"github.com/vyrodovalexey/recipe-catalog/internal/server"
	"github.com/vyrodovalexey/recipe-catalog/internal/slot"
	"github.com/vyrodovalexey/recipe-catalog/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to initialize logger", zap.Error(err))
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.Int("probe_port", cfg.ProbePort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.String("storage_key", cfg.StorageKey),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelStart()

	catalogSlot, err := slot.New(startCtx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", zap.Error(err))
		return 1
	}
	defer func() {
		if err := catalogSlot.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	recipeStore, err := openCatalog(startCtx, cfg, catalogSlot, logger)
	if err != nil {
		logger.Error("failed to load recipe catalog", zap.Error(err))
		return 1
	}

	srv := server.New(cfg, logger, recipeStore)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// openCatalog loads the recipe catalog from s. A corrupt saved catalog is
// replaced with the seed recipes only when cfg.ResetOnCorrupt is set;
// otherwise startup fails and the saved data is left untouched.
func openCatalog(
	ctx context.Context,
	cfg *config.Config,
	s slot.Slot,
	logger *zap.Logger,
) (*store.RecipeStore, error) {
	recipeStore := store.New(s,
		store.WithKey(cfg.StorageKey),
		store.WithLogger(logger.Named("store")),
	)

	recipes, err := recipeStore.Load(ctx)
	switch {
	case err == nil:
		logger.Info("recipe catalog ready", zap.Int("recipes", len(recipes)))
		return recipeStore, nil
	case errors.Is(err, store.ErrPersistenceCorrupt) && cfg.ResetOnCorrupt:
		logger.Warn("saved catalog is corrupt, resetting to seed recipes",
			zap.String("storage_key", cfg.StorageKey),
			zap.Error(err),
		)
		if err := recipeStore.Reset(ctx); err != nil {
			return nil, fmt.Errorf("resetting corrupt catalog: %w", err)
		}
		return recipeStore, nil
	case errors.Is(err, store.ErrPersistenceCorrupt):
		return nil, fmt.Errorf("%w (set %s=true to replace it with the seed recipes)",
			err, config.EnvResetOnCorrupt)
	default:
		return nil, err
	}
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}
