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
	// ProbeRequestsTotal tracks stats probe outcomes.
	ProbeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_probe_requests_total",
		Help: "Total number of RTMP stats probe attempts by outcome",
	}, []string{"outcome"})

	// ProbeDuration tracks how long one fetch+parse cycle takes.
	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamgate_probe_duration_seconds",
		Help:    "Time taken to fetch and parse the RTMP stats document",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 1.5},
	})

	// ProbeBitrateKbps holds the most recently observed video bitrate.
	ProbeBitrateKbps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamgate_probe_bitrate_kbps",
		Help: "Last observed video bitrate of the watched stream in kbit/s",
	})
)

// Probe outcome label values.
const (
	ProbeOutcomeOK      = "ok"
	ProbeOutcomeMissing = "missing"
	ProbeOutcomeError   = "error"
)

// IncProbe records one probe attempt with its outcome.
func IncProbe(outcome string) {
	ProbeRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveProbeDuration records the duration of one probe cycle.
func ObserveProbeDuration(duration time.Duration) {
	ProbeDuration.Observe(duration.Seconds())
}

// SetProbeBitrate records the last observed video bitrate.
func SetProbeBitrate(kbps float64) {
	ProbeBitrateKbps.Set(kbps)
}
