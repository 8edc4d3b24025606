// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WSClients tracks the number of connected dashboard subscribers.
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamgate_ws_clients",
		Help: "Number of connected WebSocket subscribers",
	})

	// WSMessagesTotal counts broadcast messages by type.
	WSMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_ws_messages_total",
		Help: "Total number of WebSocket messages sent by message type",
	}, []string{"type"})

	// WSSendFailuresTotal counts subscribers dropped because a send failed.
	WSSendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_ws_send_failures_total",
		Help: "Total number of subscribers dropped after a failed or stalled send",
	})

	// LogLinesStreamedTotal counts log lines delivered over the stream surface.
	LogLinesStreamedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_log_lines_streamed_total",
		Help: "Total number of container log lines broadcast to subscribers",
	})
)

// IncWSClients records a subscriber connect.
func IncWSClients() {
	WSClients.Inc()
}

// DecWSClients records a subscriber disconnect.
func DecWSClients() {
	WSClients.Dec()
}

// IncWSMessage records one sent message of the given type.
func IncWSMessage(msgType string) {
	WSMessagesTotal.WithLabelValues(msgType).Inc()
}

// IncWSSendFailure records a subscriber dropped on send.
func IncWSSendFailure() {
	WSSendFailuresTotal.Inc()
}

// AddLogLinesStreamed records delivered log lines.
func AddLogLinesStreamed(n int) {
	LogLinesStreamedTotal.Add(float64(n))
}
