// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/streamgate/internal/config"
	"github.com/ManuGH/streamgate/internal/daemon"
	"github.com/ManuGH/streamgate/internal/decider"
	sglog "github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/middleware"
	"github.com/ManuGH/streamgate/internal/rtmpstats"
	"github.com/ManuGH/streamgate/internal/switcher"
	"github.com/ManuGH/streamgate/internal/telemetry"
)

var (
	version   = "v2.0.1"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Handle command-line flags
	showVersion := flag.Bool("version", false, "print version and exit")
	envFile := flag.String("env-file", "", "path to an env file loaded before configuration")
	flag.Parse()

	if *showVersion {
		fmt.Printf("streamgate-switcher %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load env file %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	} else {
		// A local .env is a convenience, not a requirement.
		_ = godotenv.Load()
	}

	sglog.Configure(sglog.Config{
		Service: "streamgate-switcher",
		Version: version,
	})

	logger := sglog.WithComponent("switcher")

	// Create a context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadSwitcher()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Msg("failed to load configuration")
	}

	tracingEnabled := config.ParseBool("TRACING_ENABLED", false)
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        tracingEnabled,
		ServiceName:    "streamgate-switcher",
		ServiceVersion: version,
		Environment:    config.ParseString("ENVIRONMENT", "production"),
		ExporterType:   config.ParseString("TRACING_EXPORTER", "grpc"),
		Endpoint:       config.ParseString("TRACING_ENDPOINT", "localhost:4317"),
		SamplingRate:   config.ParseFloat("TRACING_SAMPLE_RATE", 1.0),
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "tracing.init_failed").
			Msg("failed to initialize tracing")
	}

	probe := rtmpstats.New(rtmpstats.Config{
		URL:       cfg.StatsURL,
		App:       cfg.AppName,
		Stream:    cfg.StreamName,
		UserAgent: "streamgate/" + version,
	})

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Str("mode", cfg.Mode).
		Msg("starting streamgate switcher")

	logger.Info().Msgf("→ Stats: %s (app: %s, stream: %s)", cfg.StatsURL, cfg.AppName, cfg.StreamName)
	logger.Info().Msgf("→ Poll: every %s, live above %d kbps", cfg.PollInterval, cfg.MinBitrateKbps)
	logger.Info().Msgf("→ Hysteresis: miss %s, stability %s", cfg.CamMissTimeout, cfg.CamBackStability)

	var sw switcher.Switcher
	var runnerClose func() error
	switch cfg.Mode {
	case config.ModeRunner:
		r, err := switcher.NewRunner(cfg.LiveCommand, cfg.FallbackCommand)
		if err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "runner.init_failed").
				Msg("failed to create pipeline runner")
		}
		sw = r
		runnerClose = r.Close
		logger.Info().Msgf("→ Pipeline: child process per scene (%s / %s)", cfg.LiveCommand[0], cfg.FallbackCommand[0])
	default:
		sw = switcher.NewSelector(cfg.PipelineControlURL)
		logger.Info().Msgf("→ Pipeline: selector at %s", cfg.PipelineControlURL)
	}

	if cfg.PeerNotifyURL != "" {
		sw = switcher.WithPeerNotify(sw, switcher.NewPeerNotifier(cfg.PeerNotifyURL))
		logger.Info().Msgf("→ Peer notify: %s", cfg.PeerNotifyURL)
	}

	dec := decider.New(decider.Config{
		PollInterval:     cfg.PollInterval,
		MinBitrateKbps:   int64(cfg.MinBitrateKbps),
		CamMissTimeout:   cfg.CamMissTimeout,
		CamBackStability: cfg.CamBackStability,
	}, probe, sw)

	tracingService := ""
	if tracingEnabled {
		tracingService = "streamgate-switcher"
	}

	deps := daemon.Deps{
		Logger: logger,
		APIHandler: switcher.NewRouter(sw, middleware.StackConfig{
			Service:        "switcher-api",
			EnableMetrics:  true,
			EnableLogging:  true,
			TracingService: tracingService,
		}),
		MetricsAddr:    cfg.MetricsAddr,
		MetricsHandler: promhttp.Handler(),
	}

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.ListenAddr), deps)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.creation.failed").
			Msg("failed to create daemon manager")
	}

	mgr.RegisterRunner("scene_decider", dec.Run)

	mgr.RegisterShutdownHook("tracing_flush", provider.Shutdown)
	if runnerClose != nil {
		// Runs after the decider stop hook, so no switch can respawn
		// the child once it is gone.
		mgr.RegisterShutdownHook("pipeline_runner_close", func(context.Context) error {
			return runnerClose()
		})
	}

	app := daemon.NewApp(logger, mgr, nil)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.failed").
			Msg("switcher daemon failed")
	}

	logger.Info().Msg("server exiting")
}
