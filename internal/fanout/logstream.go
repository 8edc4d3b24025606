// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/metrics"
	"github.com/ManuGH/streamgate/internal/services"
)

const (
	logStreamInterval = time.Second
	// logFetchTail is the window refetched per tick. Timestamped lines
	// make the anchor match reliable within this window.
	logFetchTail = 50
)

// LogStreamer tails the logs of every service that has at least one
// subscriber and broadcasts the lines not yet seen.
type LogStreamer struct {
	controller *services.Controller
	hub        *Hub
	interval   time.Duration
	logger     zerolog.Logger
	now        func() time.Time

	// anchors maps a service to the last line broadcast for it. The
	// streamer goroutine advances it per tick; the subscribe path seeds
	// it through SeedAnchor.
	mu      sync.Mutex
	anchors map[string]string
}

func NewLogStreamer(ctrl *services.Controller, hub *Hub) *LogStreamer {
	return &LogStreamer{
		controller: ctrl,
		hub:        hub,
		interval:   logStreamInterval,
		logger:     log.WithComponent("logstream"),
		now:        time.Now,
		anchors:    make(map[string]string),
	}
}

// Run tails subscribed services until ctx is cancelled.
func (s *LogStreamer) Run(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		s.step(ctx)
		timer.Reset(s.interval)
	}
}

func (s *LogStreamer) step(ctx context.Context) {
	for _, svc := range s.hub.LogServices() {
		lines, err := s.controller.Logs(ctx, svc, logFetchTail)
		if err != nil {
			s.logger.Warn().
				Str(log.FieldContainer, svc).
				Err(err).
				Msg("log fetch failed")
			continue
		}
		if len(lines) == 0 {
			continue
		}

		s.mu.Lock()
		delta := linesAfter(lines, s.anchors[svc])
		s.anchors[svc] = lines[len(lines)-1]
		s.mu.Unlock()
		if len(delta) == 0 {
			continue
		}

		metrics.AddLogLinesStreamed(len(delta))
		s.hub.BroadcastLogs(svc, msgNewLogs, logsMsg{
			Type:      msgNewLogs,
			Timestamp: wsTimestamp(s.now()),
			Container: svc,
			Logs:      delta,
		})
	}
}

// SeedAnchor records line as the last broadcast line for a service that
// has none yet. A log_snapshot is a broadcast, so the first subscriber's
// snapshot must not come through again as new_logs on the next tick. An
// existing anchor is left alone: it marks lines earlier subscribers have
// not been streamed yet.
func (s *LogStreamer) SeedAnchor(service, line string) {
	if line == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.anchors[service]; !ok {
		s.anchors[service] = line
	}
}

// linesAfter returns the lines strictly after the last occurrence of
// anchor. An empty or vanished anchor (rotation, container restart)
// yields the whole window.
func linesAfter(lines []string, anchor string) []string {
	if anchor == "" {
		return lines
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i] == anchor {
			return lines[i+1:]
		}
	}
	return lines
}
