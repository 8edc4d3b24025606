// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"
)

// App owns the long-lived runtime lifecycle (reload wiring, signal
// handling) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	reload       func(ctx context.Context) error
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. reload is invoked on SIGHUP
// and may be nil when the daemon has nothing to reload.
func NewApp(logger zerolog.Logger, manager Manager, reload func(ctx context.Context) error) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		reload:       reload,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Reload trigger for operators: SIGHUP re-reads whatever the daemon
	// loaded at startup. A failed reload keeps the old state.
	if a.reload != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "daemon.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal")

					if err := a.reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "daemon.reload_failed").
							Msg("reload failed, keeping previous state")
					}
				}
			}
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
