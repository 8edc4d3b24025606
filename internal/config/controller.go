// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
)

// ControllerConfig holds every option of the controller daemon: the service
// controller and the dashboard fan-out server.
type ControllerConfig struct {
	ListenAddr  string
	MetricsAddr string // empty disables the metrics listener

	RuntimeSocket  string
	ManifestPath   string
	ProjectName    string
	ComposeEnvFile string // optional --env-file for compose verbs

	PrivacyModeFile string

	TracingEnabled    bool
	TracingExporter   string
	TracingEndpoint   string
	TracingSampleRate float64
}

// LoadController reads the controller configuration from the environment and
// validates it.
func LoadController() (*ControllerConfig, error) {
	cfg := &ControllerConfig{
		ListenAddr:  ParseString("LISTEN_ADDR", ":8089"),
		MetricsAddr: ParseString("METRICS_ADDR", ":9090"),

		RuntimeSocket:  ParseString("RUNTIME_SOCKET", "unix:///var/run/docker.sock"),
		ManifestPath:   ParseString("MANIFEST_PATH", "docker-compose.yml"),
		ProjectName:    ParseString("PROJECT_NAME", "streamgate"),
		ComposeEnvFile: ParseString("COMPOSE_ENV_FILE", ""),

		PrivacyModeFile: ParseString("PRIVACY_MODE_FILE", "/var/lib/streamgate/privacy.json"),

		TracingEnabled:    ParseBool("TRACING_ENABLED", false),
		TracingExporter:   ParseString("TRACING_EXPORTER", "grpc"),
		TracingEndpoint:   ParseString("TRACING_ENDPOINT", "localhost:4317"),
		TracingSampleRate: ParseFloat("TRACING_SAMPLE_RATE", 1.0),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ControllerConfig) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}
	if c.RuntimeSocket == "" {
		return fmt.Errorf("RUNTIME_SOCKET must not be empty")
	}
	if c.ManifestPath == "" {
		return fmt.Errorf("MANIFEST_PATH must not be empty")
	}
	if c.ProjectName == "" {
		return fmt.Errorf("PROJECT_NAME must not be empty")
	}
	if c.PrivacyModeFile == "" {
		return fmt.Errorf("PRIVACY_MODE_FILE must not be empty")
	}
	if c.TracingExporter != "grpc" && c.TracingExporter != "http" {
		return fmt.Errorf("invalid TRACING_EXPORTER %q (want \"grpc\" or \"http\")", c.TracingExporter)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be within [0, 1]")
	}
	return nil
}
