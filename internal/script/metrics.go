// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package script

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roomoo/roo/internal/world"
)

// Run kinds used as metric labels.
const (
	KindVerb = "verb"
	KindEval = "eval"
)

// Executions counts script runs by kind and outcome code.
var Executions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roo_script_executions_total",
		Help: "Total number of script runs",
	},
	[]string{"kind", "outcome"},
)

// Duration is the histogram of script run times.
var Duration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "roo_script_duration_seconds",
		Help:    "Script run duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// RegisterMetrics registers script metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Executions)
	reg.MustRegister(Duration)
}

func observe(kind string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		if outcome = world.CodeOf(err); outcome == "" {
			outcome = "error"
		}
	}
	Executions.WithLabelValues(kind, outcome).Inc()
	Duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
