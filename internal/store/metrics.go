package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation results.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultConflict = "conflict"
	resultError    = "error"
)

// Prometheus metrics.
var (
	vaultItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_items",
			Help: "Number of items currently held in the vault",
		},
	)

	vaultTotalValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_total_value",
			Help: "Sum of the values of all items held in the vault",
		},
	)

	vaultOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_operations_total",
			Help: "Total number of vault operations by outcome",
		},
		[]string{"operation", "result"},
	)
)

func recordOperation(operation, result string) {
	vaultOperationsTotal.WithLabelValues(operation, result).Inc()
}
