// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package switcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/metrics"
	"github.com/ManuGH/streamgate/internal/procgroup"
	"github.com/ManuGH/streamgate/internal/scene"
)

const (
	// termGrace is how long a child gets to exit after SIGTERM before the
	// group is SIGKILLed.
	termGrace = 3 * time.Second
	// killWait bounds reaping after SIGKILL.
	killWait = 2 * time.Second
	// quiesceDelay lets the downstream RTMP endpoint settle between
	// tearing down one publisher and starting the next.
	quiesceDelay = 500 * time.Millisecond
	// respawnInterval paces restarts of a crash-looping child.
	respawnInterval = time.Second
)

// ErrClosed is returned by SetScene after Close.
var ErrClosed = errors.New("switcher: runner closed")

// child is one spawned publisher process. done closes after the reaper
// has collected the exit status into waitErr.
type child struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

// waitChan adapts the close-broadcast done channel to the receive-once
// channel Terminate expects. Each call returns a fresh channel.
func (c *child) waitChan() <-chan error {
	ch := make(chan error, 1)
	go func() {
		<-c.done
		ch <- c.waitErr
	}()
	return ch
}

// Runner switches scenes by restarting a publisher child process with a
// per-scene argv. The child runs in its own process group so termination
// reaches transcoder sub-children. An unexpected child exit triggers a
// paced respawn in the current scene.
type Runner struct {
	commands map[scene.Scene][]string
	limiter  *rate.Limiter
	logger   zerolog.Logger

	// ctx bounds the background respawn pacing; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	current scene.Scene
	child   *child
	gen     uint64
	closed  bool
}

// NewRunner returns a runner with one argv per scene. Both argvs must be
// non-empty.
func NewRunner(liveCmd, fallbackCmd []string) (*Runner, error) {
	if len(liveCmd) == 0 || len(fallbackCmd) == 0 {
		return nil, errors.New("switcher: runner needs a command for both scenes")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		commands: map[scene.Scene][]string{
			scene.Live:     liveCmd,
			scene.Fallback: fallbackCmd,
		},
		limiter: rate.NewLimiter(rate.Every(respawnInterval), 1),
		logger:  log.WithComponent("switcher"),
		ctx:     ctx,
		cancel:  cancel,
		current: scene.Fallback,
	}, nil
}

// SetScene replaces the running child with one publishing target. The old
// group gets SIGTERM, then SIGKILL after the grace period; a group that
// survives SIGKILL fails the switch. A short quiesce pause separates
// teardown from the new spawn.
func (r *Runner) SetScene(ctx context.Context, target scene.Scene) error {
	start := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.child != nil && r.current == target {
		return nil
	}

	if r.child != nil {
		// Invalidate the watch goroutine of the old child so it does not
		// treat this termination as a crash.
		r.gen++
		err := procgroup.Terminate(r.child.cmd, r.child.waitChan(), termGrace, killWait)
		if errors.Is(err, procgroup.ErrKillFailed) {
			metrics.IncSwitchFailure("runner")
			return fmt.Errorf("stop %s child: %w", r.current, err)
		}
		// Any other outcome, including the child's own exit status, means
		// the group is gone.
		r.child = nil

		quiesce := time.NewTimer(quiesceDelay)
		select {
		case <-ctx.Done():
			quiesce.Stop()
			return ctx.Err()
		case <-quiesce.C:
		}
	}

	r.current = target
	if err := r.spawnLocked(target); err != nil {
		metrics.IncSwitchFailure("runner")
		return err
	}

	metrics.ObserveSwitchDuration("runner", time.Since(start))
	return nil
}

// Scene returns the scene of the current (or most recently spawned) child.
func (r *Runner) Scene() scene.Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Status reports "ok" while a child is running, "respawning" between
// child generations and "stopped" after Close.
func (r *Runner) Status(context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.closed:
		return "stopped"
	case r.child != nil:
		return "ok"
	default:
		return "respawning"
	}
}

// Close terminates the child and stops all respawning.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.gen++
	c := r.child
	r.child = nil
	r.mu.Unlock()

	r.cancel()
	if c == nil {
		return nil
	}
	err := procgroup.Terminate(c.cmd, c.waitChan(), termGrace, killWait)
	if errors.Is(err, procgroup.ErrKillFailed) {
		return err
	}
	return nil
}

// spawnLocked starts the child for target and hands it to a watch
// goroutine. Callers hold the mutex.
func (r *Runner) spawnLocked(target scene.Scene) error {
	argv := r.commands[target]
	cmd := exec.Command(argv[0], argv[1:]...)
	// Child stderr goes straight to our stderr fd; structured logs own
	// stdout, so the child gets the null device there.
	cmd.Stderr = os.Stderr
	procgroup.Set(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn %s child: %w", target, err)
	}

	c := &child{cmd: cmd, done: make(chan struct{})}
	go func() {
		c.waitErr = cmd.Wait()
		close(c.done)
	}()

	r.child = c
	r.logger.Info().
		Str(log.FieldScene, target.String()).
		Str(log.FieldMode, "runner").
		Int(log.FieldPID, cmd.Process.Pid).
		Str("cmd", argv[0]).
		Str("event", "switcher.child_started").
		Msg("publisher child started")

	go r.watch(c, r.gen)
	return nil
}

// watch waits for the child to exit and respawns it in the current scene
// unless the exit was a deliberate termination. Respawns are paced and
// retried without bound until one sticks or the runner closes.
func (r *Runner) watch(c *child, gen uint64) {
	<-c.done

	r.mu.Lock()
	if r.gen != gen || r.closed {
		r.mu.Unlock()
		return
	}
	r.child = nil
	current := r.current
	r.mu.Unlock()

	r.logger.Warn().Err(c.waitErr).
		Str(log.FieldScene, current.String()).
		Str("event", "switcher.child_exited").
		Msg("publisher child exited unexpectedly")
	metrics.IncChildRespawn()

	for {
		if err := r.limiter.Wait(r.ctx); err != nil {
			return
		}

		r.mu.Lock()
		if r.gen != gen || r.closed || r.child != nil {
			r.mu.Unlock()
			return
		}
		err := r.spawnLocked(r.current)
		r.mu.Unlock()
		if err == nil {
			return
		}
		r.logger.Error().Err(err).
			Str("event", "switcher.respawn_failed").
			Msg("publisher respawn failed, retrying")
	}
}
