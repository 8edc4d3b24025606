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
	"github.com/ManuGH/streamgate/internal/fanout"
	"github.com/ManuGH/streamgate/internal/health"
	sglog "github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/middleware"
	"github.com/ManuGH/streamgate/internal/scene"
	"github.com/ManuGH/streamgate/internal/services"
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
		fmt.Printf("streamgate-controller %s (commit %s, built %s)\n", version, commit, buildDate)
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
		Service: "streamgate-controller",
		Version: version,
	})

	logger := sglog.WithComponent("controller")

	// Create a context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadController()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Msg("failed to load configuration")
	}

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "streamgate-controller",
		ServiceVersion: version,
		Environment:    config.ParseString("ENVIRONMENT", "production"),
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "tracing.init_failed").
			Msg("failed to initialize tracing")
	}

	store := services.NewManifestStore(cfg.ManifestPath, cfg.ProjectName)
	if err := store.Load(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manifest.load_failed").
			Str("path", cfg.ManifestPath).
			Msg("failed to load service manifest")
	}

	rt, err := services.NewDockerRuntime(cfg.RuntimeSocket)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "runtime.init_failed").
			Str("socket", cfg.RuntimeSocket).
			Msg("failed to create container runtime client")
	}

	comp := services.NewCompose(cfg.ManifestPath, cfg.ComposeEnvFile)
	ctrl := services.NewController(store, rt, comp)

	st := scene.NewState(cfg.PrivacyModeFile)
	if err := st.Load(); err != nil {
		logger.Warn().
			Err(err).
			Str("event", "privacy.load_failed").
			Msg("could not restore privacy state, starting disabled")
	}

	hub := fanout.NewHub()

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewPingChecker("runtime", rt.Ping))
	hm.RegisterChecker(health.NewPingChecker("manifest", func(context.Context) error {
		_, err := os.Stat(cfg.ManifestPath)
		return err
	}))

	streamer := fanout.NewLogStreamer(ctrl, hub)

	srv := fanout.NewServer(ctrl, st, hub, streamer, hm)
	st.Subscribe(srv.OnSceneEvent)

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Msg("starting streamgate controller")

	logger.Info().Msgf("→ Manifest: %s (project: %s, %d services)", cfg.ManifestPath, cfg.ProjectName, len(store.Services()))
	logger.Info().Msgf("→ Runtime: %s", cfg.RuntimeSocket)
	logger.Info().Msgf("→ Privacy file: %s", cfg.PrivacyModeFile)
	if cfg.TracingEnabled {
		logger.Info().Msgf("→ Tracing: %s via %s (sample rate %.2f)", cfg.TracingEndpoint, cfg.TracingExporter, cfg.TracingSampleRate)
	}

	tracingService := ""
	if cfg.TracingEnabled {
		tracingService = "streamgate-controller"
	}

	// Websocket connections are long-lived, so the API server must not
	// enforce read or write deadlines.
	serverCfg := daemon.DefaultServerConfig(cfg.ListenAddr)
	serverCfg.ReadTimeout = 0
	serverCfg.WriteTimeout = 0

	deps := daemon.Deps{
		Logger: logger,
		APIHandler: srv.Routes(middleware.StackConfig{
			Service:        "controller-api",
			EnableMetrics:  true,
			EnableLogging:  true,
			TracingService: tracingService,
		}),
		MetricsAddr:    cfg.MetricsAddr,
		MetricsHandler: promhttp.Handler(),
	}

	mgr, err := daemon.NewManager(serverCfg, deps)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.creation.failed").
			Msg("failed to create daemon manager")
	}

	monitor := fanout.NewMonitor(ctrl, st, hub)

	mgr.RegisterRunner("container_monitor", monitor.Run)
	mgr.RegisterRunner("log_streamer", streamer.Run)
	mgr.RegisterRunner("manifest_watch", func(ctx context.Context) error {
		// Hot reload is best-effort; a broken watcher must not take the
		// control plane down. SIGHUP reloads still work without it.
		if err := store.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Warn().
				Err(err).
				Str("event", "manifest.watch_failed").
				Msg("manifest watcher stopped, reload via SIGHUP only")
		}
		return nil
	})

	// Hooks run LIFO: drain in-flight container operations first, then
	// flush any pending spans.
	mgr.RegisterShutdownHook("tracing_flush", provider.Shutdown)
	mgr.RegisterShutdownHook("controller_drain", func(context.Context) error {
		ctrl.Wait()
		return nil
	})

	app := daemon.NewApp(logger, mgr, func(context.Context) error {
		return store.Load()
	})
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.failed").
			Msg("controller daemon failed")
	}

	logger.Info().Msg("server exiting")
}
