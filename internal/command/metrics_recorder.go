// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package command

import "time"

// unmatchedVerb labels commands for which no verb was found, so that typos
// do not become metric series.
const unmatchedVerb = "unmatched"

// metricsRecorder collects the labels of a single dispatch and records
// them once it finishes.
type metricsRecorder struct {
	start  time.Time
	verb   string
	source string
	status string
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{
		start:  time.Now(),
		verb:   unmatchedVerb,
		source: SourceNone,
		status: StatusSuccess,
	}
}

// setVerb labels the dispatch with the canonical name of the matched verb.
func (m *metricsRecorder) setVerb(name string) { m.verb = name }

func (m *metricsRecorder) setSource(source string) { m.source = source }

func (m *metricsRecorder) setStatus(status string) { m.status = status }

func (m *metricsRecorder) record() {
	RecordCommandExecution(m.verb, m.source, m.status)
	RecordCommandDuration(m.verb, m.source, time.Since(m.start))
}
