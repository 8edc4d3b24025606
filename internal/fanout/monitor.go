// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fanout

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/scene"
	"github.com/ManuGH/streamgate/internal/services"
)

const monitorInterval = 2 * time.Second

// monitored is the compact per-service state the monitor diffs between
// polls.
type monitored struct {
	status  string
	health  string
	running bool
	detail  string
}

// Monitor polls the service controller and broadcasts status
// transitions to all subscribers.
type Monitor struct {
	controller *services.Controller
	state      *scene.State
	hub        *Hub
	interval   time.Duration
	logger     zerolog.Logger
	now        func() time.Time

	last map[string]monitored
}

func NewMonitor(ctrl *services.Controller, st *scene.State, hub *Hub) *Monitor {
	return &Monitor{
		controller: ctrl,
		state:      st,
		hub:        hub,
		interval:   monitorInterval,
		logger:     log.WithComponent("monitor"),
		now:        time.Now,
		last:       make(map[string]monitored),
	}
}

// Run polls until ctx is cancelled. Each poll waits for the previous
// one to finish, so a slow runtime stretches the cadence instead of
// piling up requests.
func (m *Monitor) Run(ctx context.Context) error {
	timer := time.NewTimer(m.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		m.step(ctx)
		timer.Reset(m.interval)
	}
}

func (m *Monitor) step(ctx context.Context) {
	statuses, _ := m.controller.List(ctx)

	current := make(map[string]monitored, len(statuses))
	var changes []statusDelta

	for _, s := range statuses {
		cur := monitored{status: s.Lifecycle, health: s.Health, running: s.Running, detail: s.Detail}
		current[s.Name] = cur

		prev, seen := m.last[s.Name]
		if !seen {
			// A service first observed before its container exists is
			// reported once it is actually created.
			if !s.Created {
				continue
			}
			changes = append(changes, statusDelta{
				Name:          s.Name,
				CurrentStatus: cur.status,
				CurrentHealth: optional(cur.health),
				Running:       cur.running,
				StatusDetail:  cur.detail,
			})
			continue
		}

		if prev.status != cur.status || prev.health != cur.health || prev.running != cur.running {
			prevStatus := prev.status
			changes = append(changes, statusDelta{
				Name:           s.Name,
				PreviousStatus: &prevStatus,
				PreviousHealth: optional(prev.health),
				CurrentStatus:  cur.status,
				CurrentHealth:  optional(cur.health),
				Running:        cur.running,
				StatusDetail:   cur.detail,
			})
			m.logger.Info().
				Str(log.FieldContainer, s.Name).
				Str(log.FieldOldState, prev.status).
				Str(log.FieldNewState, cur.status).
				Str("event", "monitor.transition").
				Msg("container status changed")
		}
	}
	m.last = current

	if len(changes) == 0 || m.hub.SubscriberCount() == 0 {
		return
	}

	sc, _ := m.state.Scene()
	m.hub.Broadcast(msgStatusChange, statusChangeMsg{
		Type:           msgStatusChange,
		Timestamp:      wsTimestamp(m.now()),
		Changes:        changes,
		Scene:          sc.String(),
		PrivacyEnabled: m.state.PrivacyEnabled(),
	})
}
