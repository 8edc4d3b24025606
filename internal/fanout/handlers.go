// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fanout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/streamgate/internal/health"
	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/middleware"
	"github.com/ManuGH/streamgate/internal/scene"
	"github.com/ManuGH/streamgate/internal/services"
)

const defaultLogTail = 500

// Server is the controller's public surface: the synchronous JSON API
// and the WebSocket upgrade endpoint.
type Server struct {
	controller *services.Controller
	state      *scene.State
	hub        *Hub
	streamer   *LogStreamer
	health     *health.Manager
	logger     zerolog.Logger
	now        func() time.Time
}

func NewServer(ctrl *services.Controller, st *scene.State, hub *Hub, streamer *LogStreamer, hm *health.Manager) *Server {
	return &Server{
		controller: ctrl,
		state:      st,
		hub:        hub,
		streamer:   streamer,
		health:     hm,
		logger:     log.WithComponent("fanout"),
		now:        time.Now,
	}
}

// Routes builds the full route table on the shared middleware stack.
func (s *Server) Routes(stack middleware.StackConfig) http.Handler {
	r := middleware.NewRouter(stack)

	r.Get("/containers", s.handleContainers)
	r.Get("/container/{name}/status", s.handleContainerStatus)
	r.Get("/container/{name}/logs", s.handleContainerLogs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.MutatingRateLimit())
		r.Post("/container/{name}/start", s.handleContainerOp(services.OpStart))
		r.Post("/container/{name}/stop", s.handleContainerOp(services.OpStop))
		r.Post("/container/{name}/restart", s.handleContainerOp(services.OpRestart))
		r.Post("/container/{name}/create-and-start", s.handleContainerOp(services.OpCreate))
		r.Post("/scene/{scene}", s.handleSetScene)
		r.Post("/privacy/enable", s.handleSetPrivacy(true))
		r.Post("/privacy/disable", s.handleSetPrivacy(false))
	})

	r.Get("/scene", s.handleScene)
	r.Get("/privacy", s.handlePrivacy)
	r.Get("/state", s.handleState)
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)

	return r
}

type containersResponse struct {
	Containers []containerEntry `json:"containers"`
	Warning    string           `json:"warning,omitempty"`
}

func (s *Server) handleContainers(w http.ResponseWriter, r *http.Request) {
	statuses, degraded := s.controller.List(r.Context())

	entries := make([]containerEntry, 0, len(statuses))
	for _, st := range statuses {
		entries = append(entries, entryFromStatus(st))
	}

	resp := containersResponse{Containers: entries}
	if degraded {
		resp.Warning = "runtime unavailable - showing incomplete data"
	}
	writeJSON(w, http.StatusOK, resp)
}

type containerStatusResponse struct {
	Container    string  `json:"container"`
	Status       string  `json:"status"`
	StatusDetail string  `json:"status_detail"`
	Running      bool    `json:"running"`
	Health       *string `json:"health"`
	ID           *string `json:"id"`
	StartedAt    string  `json:"started_at,omitempty"`
	FinishedAt   string  `json:"finished_at,omitempty"`
}

func (s *Server) handleContainerStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	st, err := s.controller.Status(r.Context(), name)
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Container not found: "+name)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str(log.FieldContainer, name).Msg("status lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to inspect container")
		return
	}

	resp := containerStatusResponse{
		Container:    st.Name,
		Status:       st.Lifecycle,
		StatusDetail: st.Detail,
		Running:      st.Running,
		Health:       optional(st.Health),
		ID:           optional(st.ID),
	}
	if !st.StartedAt.IsZero() {
		resp.StartedAt = st.StartedAt.UTC().Format(time.RFC3339)
	}
	if !st.FinishedAt.IsZero() {
		resp.FinishedAt = st.FinishedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

type logsResponse struct {
	Container string   `json:"container"`
	Logs      []string `json:"logs"`
	Count     int      `json:"count"`
}

func (s *Server) handleContainerLogs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	tail := defaultLogTail
	if raw := r.URL.Query().Get("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid tail parameter: "+raw)
			return
		}
		tail = n
	}

	lines, err := s.controller.Logs(r.Context(), name, tail)
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Container not found: "+name)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str(log.FieldContainer, name).Msg("log fetch failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch logs")
		return
	}
	if lines == nil {
		lines = []string{}
	}

	writeJSON(w, http.StatusOK, logsResponse{Container: name, Logs: lines, Count: len(lines)})
}

func (s *Server) handleContainerOp(kind services.OpKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		ack, err := s.controller.Operate(name, kind)
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Container not found: "+name)
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Str(log.FieldContainer, name).Msg("operation rejected")
			writeError(w, http.StatusInternalServerError, "failed to queue operation")
			return
		}
		writeJSON(w, http.StatusAccepted, ack)
	}
}

type sceneResponse struct {
	CurrentScene   string `json:"current_scene"`
	SceneTimestamp string `json:"scene_timestamp"`
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	sc, ts := s.state.Scene()
	writeJSON(w, http.StatusOK, sceneResponse{
		CurrentScene:   sc.String(),
		SceneTimestamp: ts.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSetScene(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "scene")

	target, err := scene.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scene: "+raw)
		return
	}

	s.state.SetScene(target)
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"scene":  target.String(),
	})
}

func (s *Server) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"privacy_enabled": s.state.PrivacyEnabled(),
	})
}

func (s *Server) handleSetPrivacy(enable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.state.SetPrivacy(enable); err != nil {
			// The in-memory state has already flipped; persistence
			// catches up on the next successful write.
			s.logger.Error().Err(err).Msg("privacy persist failed")
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "ok",
			"privacy_enabled": s.state.PrivacyEnabled(),
		})
	}
}

type stateResponse struct {
	CurrentScene   string `json:"current_scene"`
	SceneTimestamp string `json:"scene_timestamp"`
	PrivacyEnabled bool   `json:"privacy_enabled"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sc, ts, privacy := s.state.Snapshot()
	writeJSON(w, http.StatusOK, stateResponse{
		CurrentScene:   sc.String(),
		SceneTimestamp: ts.UTC().Format(time.RFC3339),
		PrivacyEnabled: privacy,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Liveness surface: degraded checks change the payload, not the
	// HTTP status.
	writeJSON(w, http.StatusOK, s.health.Report(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("fanout")
		logger.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
