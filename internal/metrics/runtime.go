// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RuntimeOpsTotal counts background container operations.
	RuntimeOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_runtime_ops_total",
		Help: "Total number of container lifecycle operations by op and outcome",
	}, []string{"op", "outcome"})

	// RuntimeOpDuration tracks how long one container operation takes.
	RuntimeOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamgate_runtime_op_duration_seconds",
		Help:    "Time taken by container lifecycle operations",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"op"})

	// RuntimeDegradedTotal counts service list calls answered in degraded mode.
	RuntimeDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_runtime_degraded_total",
		Help: "Total number of service list snapshots served with the runtime unavailable",
	})

	// RecreationsTotal counts automatic remove+create cycles.
	RecreationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_runtime_recreations_total",
		Help: "Total number of containers re-created after a recreation-class start failure",
	})
)

// Runtime operation outcome label values.
const (
	OpOutcomeOK    = "ok"
	OpOutcomeError = "error"
	OpOutcomeNoop  = "noop"
)

// IncRuntimeOp records one container operation outcome.
func IncRuntimeOp(op, outcome string) {
	RuntimeOpsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveRuntimeOp records the duration of one container operation.
func ObserveRuntimeOp(op string, duration time.Duration) {
	RuntimeOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// IncRuntimeDegraded records one degraded service list snapshot.
func IncRuntimeDegraded() {
	RuntimeDegradedTotal.Inc()
}

// IncRecreation records one automatic container recreation cycle.
func IncRecreation() {
	RecreationsTotal.Inc()
}
