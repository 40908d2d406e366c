// Package slot provides named key-value slots that hold a serialized
// document, with in-memory, file, Redis and SQLite backends.
package slot

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/recipe-catalog/internal/config"
)

// Slot errors.
var (
	ErrNotExist   = errors.New("slot does not exist")
	ErrInvalidKey = errors.New("invalid slot key")
	ErrClosed     = errors.New("slot backend closed")
)

// Slot stores whole values under named keys. A Write replaces the previous
// value entirely; a concurrent Read observes either the old or the new value.
type Slot interface {
	// Read returns the value stored under key, or ErrNotExist.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the value stored under key.
	Write(ctx context.Context, key string, data []byte) error

	// Close releases backend resources.
	Close() error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateKey checks that key is safe to use with every backend.
func ValidateKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// New creates the slot backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Slot, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Info("using in-memory storage")
		return NewMemorySlot(), nil
	case config.BackendFile:
		logger.Info("using file storage", zap.String("dir", cfg.StorageDir))
		return NewFileSlot(cfg.StorageDir)
	case config.BackendRedis:
		logger.Info("using redis storage",
			zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB),
			zap.String("prefix", cfg.RedisPrefix),
		)
		return NewRedisSlot(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			URL:      cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case config.BackendSQLite:
		logger.Info("using sqlite storage", zap.String("path", cfg.SQLitePath))
		return NewSQLiteSlot(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
