// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lock modes used as metric labels.
const (
	ModeRead  = "read"
	ModeWrite = "write"
)

// OutcomeOK labels a world operation that returned no error.
const OutcomeOK = "ok"

// LockWait is the histogram of time spent waiting for the database lock.
// Use RegisterMetrics to register this with a Prometheus registry.
var LockWait = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "roo_db_lock_wait_seconds",
		Help:    "Time spent waiting to acquire the database lock",
		Buckets: []float64{.00001, .0001, .001, .005, .01, .05, .1, .5, 1},
	},
	[]string{"mode"},
)

// LockHold is the histogram of time the database lock is held.
var LockHold = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "roo_db_lock_hold_seconds",
		Help:    "Time the database lock is held per operation",
		Buckets: []float64{.00001, .0001, .001, .005, .01, .05, .1, .5, 1},
	},
	[]string{"mode"},
)

// Operations counts world operations by name and outcome code.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roo_db_operations_total",
		Help: "Total number of database operations",
	},
	[]string{"op", "outcome"},
)

// CheckpointDuration is the histogram of checkpoint durations.
var CheckpointDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "roo_checkpoint_duration_seconds",
		Help:    "Checkpoint duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
)

// CheckpointFailures counts checkpoints that could not be saved.
var CheckpointFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "roo_checkpoint_failures_total",
		Help: "Total number of failed checkpoints",
	},
)

// NotificationsDropped counts notify messages lost to full session buffers.
var NotificationsDropped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "roo_notifications_dropped_total",
		Help: "Total number of notifications dropped because a session buffer was full",
	},
)

// RegisterMetrics registers core package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LockWait)
	reg.MustRegister(LockHold)
	reg.MustRegister(Operations)
	reg.MustRegister(CheckpointDuration)
	reg.MustRegister(CheckpointFailures)
	reg.MustRegister(NotificationsDropped)
}

func recordLock(mode string, wait, hold time.Duration) {
	LockWait.WithLabelValues(mode).Observe(wait.Seconds())
	LockHold.WithLabelValues(mode).Observe(hold.Seconds())
}

func recordOperation(op, outcome string) {
	Operations.WithLabelValues(op, outcome).Inc()
}
