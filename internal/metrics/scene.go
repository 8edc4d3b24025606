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
	// SceneSwitchesTotal counts emitted scene switch commands.
	SceneSwitchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_scene_switches_total",
		Help: "Total number of scene switch commands by target scene and trigger",
	}, []string{"scene", "trigger"})

	// SceneActive exposes the currently active scene as a 0/1 gauge pair.
	SceneActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamgate_scene_active",
		Help: "Whether the labelled scene is the active program scene",
	}, []string{"scene"})

	// SwitchDuration tracks how long one set_scene call takes.
	SwitchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamgate_switch_duration_seconds",
		Help:    "Time taken to effect a scene change on the pipeline",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"mode"})

	// SwitchFailuresTotal counts failed set_scene calls.
	SwitchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_switch_failures_total",
		Help: "Total number of failed scene switch attempts by switcher mode",
	}, []string{"mode"})

	// PeerNotifyTotal counts peer scene notification attempts.
	PeerNotifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_peer_notify_total",
		Help: "Total number of peer scene notifications by outcome",
	}, []string{"outcome"})

	// ChildRespawnsTotal counts unexpected child exits that led to a respawn.
	ChildRespawnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_child_respawns_total",
		Help: "Total number of switcher child respawns after unexpected exits",
	})
)

// Scene switch trigger label values.
const (
	TriggerStartup   = "startup"
	TriggerStability = "stability"
	TriggerMiss      = "miss"
)

// IncSceneSwitch records one emitted switch command.
func IncSceneSwitch(scene, trigger string) {
	SceneSwitchesTotal.WithLabelValues(scene, trigger).Inc()
}

// SetActiveScene marks the given scene active and all others inactive.
func SetActiveScene(scene string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == scene {
			v = 1.0
		}
		SceneActive.WithLabelValues(s).Set(v)
	}
}

// ObserveSwitchDuration records the duration of one set_scene call.
func ObserveSwitchDuration(mode string, duration time.Duration) {
	SwitchDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// IncSwitchFailure records a failed set_scene call.
func IncSwitchFailure(mode string) {
	SwitchFailuresTotal.WithLabelValues(mode).Inc()
}

// IncPeerNotify records one peer notification attempt.
func IncPeerNotify(outcome string) {
	PeerNotifyTotal.WithLabelValues(outcome).Inc()
}

// IncChildRespawn records one child respawn.
func IncChildRespawn() {
	ChildRespawnsTotal.Inc()
}
