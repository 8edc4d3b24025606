// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package switcher

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/streamgate/internal/middleware"
)

// NewRouter exposes the switcher's reporting surface: the current scene
// and a liveness probe.
func NewRouter(sw Switcher, cfg middleware.StackConfig) http.Handler {
	r := middleware.NewRouter(cfg)

	r.Get("/scene", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"scene": sw.Scene().String()})
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := sw.Status(req.Context())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write([]byte(status))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
