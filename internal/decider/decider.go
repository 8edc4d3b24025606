// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package decider implements the hysteretic scene selection state machine.
//
// The decider polls the stats probe at a fixed cadence and maps the sample
// stream onto scene commands: a live signal must stay healthy for the
// stability window before the program promotes to LIVE, and must stay gone
// for the miss window before the program falls back. Probe failures are
// data (an unhealthy sample), never a crash path.
package decider

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/metrics"
	"github.com/ManuGH/streamgate/internal/rtmpstats"
	"github.com/ManuGH/streamgate/internal/scene"
	"github.com/ManuGH/streamgate/internal/telemetry"
)

// Sampler produces one fresh stream observation per call.
type Sampler interface {
	Sample(ctx context.Context) (rtmpstats.StreamSample, error)
}

// Switcher applies an emitted scene command. Errors are logged; the
// decider state machine transitions on emit regardless, so a failed
// switch is retried only by way of a later opposite transition.
type Switcher interface {
	SetScene(ctx context.Context, target scene.Scene) error
}

// Config carries the decider timing knobs.
type Config struct {
	PollInterval     time.Duration
	MinBitrateKbps   int64
	CamMissTimeout   time.Duration
	CamBackStability time.Duration
	// SettleDelay is the pause after the startup fallback switch before
	// sampling begins, giving the pipeline time to settle.
	SettleDelay time.Duration
}

// Decider is the two-state hysteresis machine. Run owns all state; none
// of the fields are safe for concurrent access.
type Decider struct {
	cfg      Config
	sampler  Sampler
	switcher Switcher
	logger   zerolog.Logger
	now      func() time.Time

	active      scene.Scene
	lastHealthy time.Time
	stableSince time.Time
}

// New returns a decider wired to the given sampler and switcher.
func New(cfg Config, sampler Sampler, sw Switcher) *Decider {
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = time.Second
	}
	return &Decider{
		cfg:      cfg,
		sampler:  sampler,
		switcher: sw,
		logger:   log.WithComponent("decider"),
		now:      time.Now,
	}
}

// Run drives the poll loop until ctx is cancelled. On start it emits an
// unconditional fallback switch so the pipeline is in a known state
// before the first sample is taken.
func (d *Decider) Run(ctx context.Context) error {
	d.active = scene.Fallback
	d.lastHealthy = d.now()
	d.stableSince = time.Time{}

	d.logger.Info().
		Str(log.FieldScene, scene.Fallback.String()).
		Str("event", "decider.startup").
		Msg("forcing known initial scene")
	d.applySwitch(ctx, scene.Fallback, metrics.TriggerStartup)

	settle := time.NewTimer(d.cfg.SettleDelay)
	select {
	case <-ctx.Done():
		settle.Stop()
		return ctx.Err()
	case <-settle.C:
	}

	timer := time.NewTimer(d.cfg.PollInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		d.step(ctx)
		timer.Reset(d.cfg.PollInterval)
	}
}

// step takes one sample and feeds it through the state machine.
func (d *Decider) step(ctx context.Context) {
	sample, err := d.sampler.Sample(ctx)
	if err != nil {
		d.logger.Warn().Err(err).
			Str("event", "decider.probe_failed").
			Msg("stats probe failed, treating sample as unhealthy")
	}
	healthy := err == nil && sample.Healthy(d.cfg.MinBitrateKbps)

	target, emit := d.observe(d.now(), healthy)
	if !emit {
		return
	}

	trigger := metrics.TriggerStability
	if target == scene.Fallback {
		trigger = metrics.TriggerMiss
	}
	d.logger.Info().
		Str(log.FieldScene, target.String()).
		Str(log.FieldPrevScene, target.Other().String()).
		Str("trigger", trigger).
		Int64(log.FieldBitrateKbps, sample.BitrateKbps()).
		Int(log.FieldClients, sample.ClientCount).
		Str("event", "decider.switch").
		Msg("scene transition")
	d.applySwitch(ctx, target, trigger)
}

// observe advances the state machine by one sample. It returns the scene
// to switch to when this sample completes a transition. A sample landing
// exactly on a timer boundary fires the transition.
func (d *Decider) observe(now time.Time, healthy bool) (scene.Scene, bool) {
	switch d.active {
	case scene.Fallback:
		if !healthy {
			d.stableSince = time.Time{}
			return "", false
		}
		if d.stableSince.IsZero() {
			d.stableSince = now
		}
		d.lastHealthy = now
		if now.Sub(d.stableSince) >= d.cfg.CamBackStability {
			d.active = scene.Live
			d.stableSince = time.Time{}
			return scene.Live, true
		}

	case scene.Live:
		if healthy {
			d.lastHealthy = now
			d.stableSince = time.Time{}
			return "", false
		}
		if now.Sub(d.lastHealthy) >= d.cfg.CamMissTimeout {
			d.active = scene.Fallback
			return scene.Fallback, true
		}
	}
	return "", false
}

// applySwitch invokes the switcher and records the transition. The state
// machine has already moved; a switcher failure is logged and surfaces
// again only through a later transition.
func (d *Decider) applySwitch(ctx context.Context, target scene.Scene, trigger string) {
	ctx, span := telemetry.Tracer("streamgate.decider").Start(ctx, "scene.switch",
		trace.WithAttributes(telemetry.SceneAttributes(target.String(), target.Other().String(), trigger)...))
	defer span.End()

	metrics.IncSceneSwitch(target.String(), trigger)
	metrics.SetActiveScene(target.String(), scene.Names())

	if err := d.switcher.SetScene(ctx, target); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Error().Err(err).
			Str(log.FieldScene, target.String()).
			Str("event", "decider.switch_failed").
			Msg("switcher rejected scene command")
		return
	}
	span.SetStatus(codes.Ok, "")
}
