// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads streamgate configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Switcher operation modes.
const (
	ModeSelector = "selector"
	ModeRunner   = "runner"
)

// SwitcherConfig holds every option of the switcher daemon: the stats probe,
// the scene decider and the program switcher.
type SwitcherConfig struct {
	ListenAddr  string
	MetricsAddr string // empty disables the metrics listener

	StatsURL   string
	AppName    string
	StreamName string

	PollInterval     time.Duration
	MinBitrateKbps   int
	CamMissTimeout   time.Duration
	CamBackStability time.Duration

	Mode               string
	PipelineControlURL string
	LiveCommand        []string
	FallbackCommand    []string

	PeerNotifyURL string // empty disables peer notification
}

// LoadSwitcher reads the switcher configuration from the environment and
// validates it.
func LoadSwitcher() (*SwitcherConfig, error) {
	cfg := &SwitcherConfig{
		ListenAddr:  ParseString("LISTEN_ADDR", ":8090"),
		MetricsAddr: ParseString("METRICS_ADDR", ":9091"),

		StatsURL:   ParseString("STATS_URL", "http://127.0.0.1:8080/stat"),
		AppName:    ParseString("APP_NAME", "live"),
		StreamName: ParseString("STREAM_NAME", "cam"),

		PollInterval:     ParseMillis("POLL_INTERVAL_MS", 500*time.Millisecond),
		MinBitrateKbps:   ParseInt("MIN_BITRATE_KBPS", 300),
		CamMissTimeout:   ParseMillis("CAM_MISS_TIMEOUT_MS", 3*time.Second),
		CamBackStability: ParseMillis("CAM_BACK_STABILITY_MS", 2*time.Second),

		Mode:               ParseString("SWITCHER_MODE", ModeSelector),
		PipelineControlURL: ParseString("PIPELINE_CONTROL_URL", "http://127.0.0.1:8088"),
		LiveCommand:        strings.Fields(ParseString("SWITCHER_LIVE_CMD", "")),
		FallbackCommand:    strings.Fields(ParseString("SWITCHER_FALLBACK_CMD", "")),

		PeerNotifyURL: ParseString("PEER_SCENE_NOTIFY_URL", ""),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *SwitcherConfig) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}
	if err := checkURL("STATS_URL", c.StatsURL, true); err != nil {
		return err
	}
	if c.AppName == "" {
		return fmt.Errorf("APP_NAME must not be empty")
	}
	if c.StreamName == "" {
		return fmt.Errorf("STREAM_NAME must not be empty")
	}
	if c.MinBitrateKbps < 0 {
		return fmt.Errorf("MIN_BITRATE_KBPS must not be negative")
	}
	switch c.Mode {
	case ModeSelector:
		if err := checkURL("PIPELINE_CONTROL_URL", c.PipelineControlURL, true); err != nil {
			return err
		}
	case ModeRunner:
		if len(c.LiveCommand) == 0 || len(c.FallbackCommand) == 0 {
			return fmt.Errorf("SWITCHER_MODE=runner requires SWITCHER_LIVE_CMD and SWITCHER_FALLBACK_CMD")
		}
	default:
		return fmt.Errorf("invalid SWITCHER_MODE %q (want %q or %q)", c.Mode, ModeSelector, ModeRunner)
	}
	return checkURL("PEER_SCENE_NOTIFY_URL", c.PeerNotifyURL, false)
}

func checkURL(key, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s must not be empty", key)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https", key)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s: missing host", key)
	}
	return nil
}
