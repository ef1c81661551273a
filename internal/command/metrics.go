// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for command execution metrics.
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusNotFound    = "not_found"
	StatusRateLimited = "rate_limited"
)

// Sources of a matched verb, relative to the acting player.
const (
	SourcePlayer   = "player"
	SourceLocation = "location"
	SourceDobj     = "dobj"
	SourceNone     = "none"
)

// CommandExecutions is the counter for command executions.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roo_command_executions_total",
		Help: "Total number of command executions",
	},
	[]string{"verb", "source", "status"},
)

// CommandDuration is the histogram for command execution duration.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "roo_command_duration_seconds",
		Help:    "Command execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"verb", "source"},
)

// CommandsRateLimited counts commands refused by the rate limiter.
var CommandsRateLimited = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "roo_commands_rate_limited_total",
		Help: "Total number of commands refused by the rate limiter",
	},
)

// RegisterMetrics registers command package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions)
	reg.MustRegister(CommandDuration)
	reg.MustRegister(CommandsRateLimited)
}

// RecordCommandExecution increments the command execution counter.
// Parameters:
//   - verb: canonical name of the matched verb
//   - source: where the verb was found (use Source* constants)
//   - status: execution result (use Status* constants)
func RecordCommandExecution(verb, source, status string) {
	CommandExecutions.WithLabelValues(verb, source, status).Inc()
}

// RecordCommandDuration records how long a command took.
func RecordCommandDuration(verb, source string, duration time.Duration) {
	CommandDuration.WithLabelValues(verb, source).Observe(duration.Seconds())
}
