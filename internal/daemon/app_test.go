// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/ManuGH/streamgate/internal/log"
)

type fakeManager struct {
	startErr error
	started  chan struct{}
}

func newFakeManager(startErr error) *fakeManager {
	return &fakeManager{
		startErr: startErr,
		started:  make(chan struct{}),
	}
}

func (f *fakeManager) Start(ctx context.Context) error {
	close(f.started)
	if f.startErr != nil {
		return f.startErr
	}
	<-ctx.Done()
	return nil
}

func (f *fakeManager) Shutdown(context.Context) error { return nil }

func (f *fakeManager) RegisterShutdownHook(string, ShutdownHook) {}

func (f *fakeManager) RegisterRunner(string, Runner) {}

func TestApp_MissingManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil)

	err := app.Run(context.Background())
	if !errors.Is(err, ErrMissingManager) {
		t.Errorf("Run() error = %v, want %v", err, ErrMissingManager)
	}
}

func TestApp_StopsWithContext(t *testing.T) {
	mgr := newFakeManager(nil)
	app := NewApp(log.WithComponent("test"), mgr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run(ctx)
	}()

	select {
	case <-mgr.started:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not start")
	}

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestApp_ManagerErrorPropagates(t *testing.T) {
	boom := errors.New("listen failed")
	app := NewApp(log.WithComponent("test"), newFakeManager(boom), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := app.Run(ctx)
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}

func TestApp_ReloadSignal(t *testing.T) {
	// Keep SIGHUP handled for the whole test so a racing delivery can
	// never hit the default action and kill the test binary.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGHUP)
	defer signal.Stop(guard)

	reloaded := make(chan struct{}, 1)
	reload := func(context.Context) error {
		select {
		case reloaded <- struct{}{}:
		default:
		}
		return nil
	}

	mgr := newFakeManager(nil)
	app := NewApp(log.WithComponent("test"), mgr, reload)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run(ctx)
	}()

	select {
	case <-mgr.started:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not start")
	}

	// Let the signal loop install its handler before firing.
	time.Sleep(100 * time.Millisecond)

	if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("failed to send SIGHUP: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("reload callback was not invoked after SIGHUP")
	}

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestApp_ReloadFailureKeepsRunning(t *testing.T) {
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGHUP)
	defer signal.Stop(guard)

	calls := make(chan struct{}, 2)
	reload := func(context.Context) error {
		calls <- struct{}{}
		return errors.New("manifest parse error")
	}

	mgr := newFakeManager(nil)
	app := NewApp(log.WithComponent("test"), mgr, reload)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run(ctx)
	}()

	select {
	case <-mgr.started:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not start")
	}

	time.Sleep(100 * time.Millisecond)

	// A failing reload must not take the daemon down, and the next
	// signal must still reach the callback.
	for i := 0; i < 2; i++ {
		if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
			t.Fatalf("failed to send SIGHUP: %v", err)
		}
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("reload %d was not invoked", i+1)
		}
	}

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
