// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fanout

import (
	"time"

	"github.com/ManuGH/streamgate/internal/services"
)

// Server to client message types.
const (
	msgInitialState  = "initial_state"
	msgStatusChange  = "status_change"
	msgSceneChange   = "scene_change"
	msgPrivacyChange = "privacy_change"
	msgLogSnapshot   = "log_snapshot"
	msgNewLogs       = "new_logs"
)

// Client to server message types.
const (
	msgSubscribeLogs   = "subscribe_logs"
	msgUnsubscribeLogs = "unsubscribe_logs"
)

// containerEntry is the wire form of one service status. Health and ID
// are null while absent so the dashboard can distinguish "no
// healthcheck" from "healthy".
type containerEntry struct {
	Name         string  `json:"name"`
	FullName     string  `json:"full_name"`
	Status       string  `json:"status"`
	StatusDetail string  `json:"status_detail"`
	Running      bool    `json:"running"`
	Health       *string `json:"health"`
	ID           *string `json:"id"`
	Created      bool    `json:"created"`
	IsManual     bool    `json:"is_manual"`
	StartedAt    string  `json:"started_at,omitempty"`
	FinishedAt   string  `json:"finished_at,omitempty"`
}

func entryFromStatus(s services.ServiceStatus) containerEntry {
	e := containerEntry{
		Name:         s.Name,
		FullName:     s.RuntimeName,
		Status:       s.Lifecycle,
		StatusDetail: s.Detail,
		Running:      s.Running,
		Health:       optional(s.Health),
		ID:           optional(s.ID),
		Created:      s.Created,
		IsManual:     s.IsManual,
	}
	if !s.StartedAt.IsZero() {
		e.StartedAt = s.StartedAt.UTC().Format(time.RFC3339)
	}
	if !s.FinishedAt.IsZero() {
		e.FinishedAt = s.FinishedAt.UTC().Format(time.RFC3339)
	}
	return e
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type initialStateMsg struct {
	Type           string           `json:"type"`
	Timestamp      string           `json:"timestamp"`
	Containers     []containerEntry `json:"containers"`
	Scene          string           `json:"scene"`
	SceneTimestamp string           `json:"scene_timestamp"`
	PrivacyEnabled bool             `json:"privacy_enabled"`
}

// statusDelta describes one observed transition. The camelCase keys are
// what the dashboard consumes.
type statusDelta struct {
	Name           string  `json:"name"`
	PreviousStatus *string `json:"previousStatus"`
	PreviousHealth *string `json:"previousHealth"`
	CurrentStatus  string  `json:"currentStatus"`
	CurrentHealth  *string `json:"currentHealth"`
	Running        bool    `json:"running"`
	StatusDetail   string  `json:"statusDetail"`
}

type statusChangeMsg struct {
	Type           string        `json:"type"`
	Timestamp      string        `json:"timestamp"`
	Changes        []statusDelta `json:"changes"`
	Scene          string        `json:"scene"`
	PrivacyEnabled bool          `json:"privacy_enabled"`
}

type sceneChangeMsg struct {
	Type           string `json:"type"`
	Timestamp      string `json:"timestamp"`
	Scene          string `json:"scene"`
	PreviousScene  string `json:"previous_scene"`
	SceneTimestamp string `json:"scene_timestamp"`
}

type privacyChangeMsg struct {
	Type           string `json:"type"`
	Timestamp      string `json:"timestamp"`
	PrivacyEnabled bool   `json:"privacy_enabled"`
}

type logsMsg struct {
	Type      string   `json:"type"`
	Timestamp string   `json:"timestamp"`
	Container string   `json:"container"`
	Logs      []string `json:"logs"`
}

// clientMsg is the envelope for everything a subscriber may send.
type clientMsg struct {
	Type      string `json:"type"`
	Container string `json:"container"`
	Lines     int    `json:"lines"`
}

func wsTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
