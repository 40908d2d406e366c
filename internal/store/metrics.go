package store

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics.
var (
	recipesStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recipe_store_recipes",
			Help: "Number of recipes currently in the catalog",
		},
	)

	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_store_operations_total",
			Help: "Total number of catalog operations by result",
		},
		[]string{"operation", "result"},
	)

	persistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipe_store_persist_duration_seconds",
			Help:    "Time spent writing the catalog to storage",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// observeOperation records the outcome of a catalog operation.
func observeOperation(operation string, err error) {
	storeOperationsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

func observePersist(start time.Time) {
	persistDuration.Observe(time.Since(start).Seconds())
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidID):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrPersistenceCorrupt):
		return "corrupt"
	case errors.Is(err, ErrPersistenceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
