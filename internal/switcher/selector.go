// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package switcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/metrics"
	"github.com/ManuGH/streamgate/internal/scene"
	"github.com/ManuGH/streamgate/internal/telemetry"
)

const selectorTimeout = 2 * time.Second

// Selector switches scenes by flipping the active input of a long-lived
// media pipeline over its HTTP control surface. No input is torn down, so
// the switch is gap-free.
type Selector struct {
	base   string
	http   *http.Client
	logger zerolog.Logger

	mu      sync.Mutex
	current scene.Scene
}

// NewSelector returns a selector talking to the pipeline control API at
// baseURL.
func NewSelector(baseURL string) *Selector {
	return &Selector{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: selectorTimeout},
		logger:  log.WithComponent("switcher"),
		current: scene.Fallback,
	}
}

// SetScene asks the pipeline to select the input chain for target.
func (s *Selector) SetScene(ctx context.Context, target scene.Scene) error {
	start := time.Now()

	ctx, span := telemetry.Tracer("streamgate.switcher").Start(ctx, "pipeline.switch",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	u := fmt.Sprintf("%s/switch?src=%s", s.base, target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		metrics.IncSwitchFailure("selector")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("pipeline switch request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	res, err := s.http.Do(req)
	if err != nil {
		metrics.IncSwitchFailure("selector")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("pipeline switch: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	span.SetAttributes(telemetry.HTTPAttributes(http.MethodGet, "/switch", u, res.StatusCode)...)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		metrics.IncSwitchFailure("selector")
		span.SetStatus(codes.Error, http.StatusText(res.StatusCode))
		return fmt.Errorf("pipeline switch: HTTP %d", res.StatusCode)
	}
	span.SetStatus(codes.Ok, "")

	s.mu.Lock()
	s.current = target
	s.mu.Unlock()

	metrics.ObserveSwitchDuration("selector", time.Since(start))
	s.logger.Info().
		Str(log.FieldScene, target.String()).
		Str(log.FieldMode, "selector").
		Str("event", "switcher.applied").
		Msg("pipeline input selected")
	return nil
}

// Scene returns the last scene the pipeline acknowledged.
func (s *Selector) Scene() scene.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Status probes the pipeline control API.
func (s *Selector) Status(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/health", nil)
	if err != nil {
		return "pipeline-unreachable"
	}
	res, err := s.http.Do(req)
	if err != nil {
		return "pipeline-unreachable"
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "pipeline-unhealthy"
	}
	return "ok"
}
