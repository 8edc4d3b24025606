// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package services

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/procgroup"
)

const composeTimeout = 60 * time.Second

// ComposeClient is the compose CLI surface the controller consumes.
// Lifecycle verbs that need the project model (container creation,
// networks, dependency wiring) go through here; everything else talks
// to the engine API directly.
type ComposeClient interface {
	Start(ctx context.Context, service string) error
	Stop(ctx context.Context, service string, timeoutSec int) error
	Restart(ctx context.Context, service string, timeoutSec int) error
	Up(ctx context.Context, service string, noDeps bool) error
	Remove(ctx context.Context, service string) error
}

// ComposeError carries the captured stderr of a failed compose
// invocation so callers can pattern-match on the engine's complaint.
type ComposeError struct {
	Verb   string
	Stderr string
	Err    error
}

func (e *ComposeError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > 400 {
		msg = msg[:400] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("compose %s: %v", e.Verb, e.Err)
	}
	return fmt.Sprintf("compose %s: %v: %s", e.Verb, e.Err, msg)
}

func (e *ComposeError) Unwrap() error { return e.Err }

// Compose shells out to the docker compose plugin. Each invocation runs
// in its own process group and is bounded by a hard timeout.
type Compose struct {
	bin          string
	manifestPath string
	projectDir   string
	envFile      string
	timeout      time.Duration
	logger       zerolog.Logger
}

// NewCompose builds a runner for the given manifest. envFile may be
// empty. The project directory is the manifest's parent so relative
// binds resolve the same way they do for a manual compose call.
func NewCompose(manifestPath, envFile string) *Compose {
	return &Compose{
		bin:          "docker",
		manifestPath: manifestPath,
		projectDir:   filepath.Dir(manifestPath),
		envFile:      envFile,
		timeout:      composeTimeout,
		logger:       log.WithComponent("compose"),
	}
}

func (c *Compose) Start(ctx context.Context, service string) error {
	return c.run(ctx, "start", service)
}

func (c *Compose) Stop(ctx context.Context, service string, timeoutSec int) error {
	return c.run(ctx, "stop", "-t", strconv.Itoa(timeoutSec), service)
}

func (c *Compose) Restart(ctx context.Context, service string, timeoutSec int) error {
	return c.run(ctx, "restart", "-t", strconv.Itoa(timeoutSec), service)
}

func (c *Compose) Up(ctx context.Context, service string, noDeps bool) error {
	args := []string{"-d", "--remove-orphans"}
	if noDeps {
		args = append(args, "--no-deps")
	}
	args = append(args, service)
	return c.run(ctx, "up", args...)
}

func (c *Compose) Remove(ctx context.Context, service string) error {
	return c.run(ctx, "rm", "-f", "-s", service)
}

// args assembles the full compose argv for one verb.
func (c *Compose) args(verb string, extra ...string) []string {
	argv := []string{"compose", "--project-directory", c.projectDir, "-f", c.manifestPath}
	if c.envFile != "" {
		argv = append(argv, "--env-file", c.envFile)
	}
	argv = append(argv, verb)
	argv = append(argv, extra...)
	return argv
}

func (c *Compose) run(ctx context.Context, verb string, extra ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	argv := c.args(verb, extra...)
	cmd := exec.CommandContext(ctx, c.bin, argv...)
	procgroup.Set(cmd)
	// On timeout take the whole group down, not just the plugin binary.
	cmd.Cancel = func() error {
		return procgroup.Kill(cmd, syscall.SIGKILL)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	c.logger.Debug().
		Str("event", "compose.exec").
		Str("verb", verb).
		Strs("args", argv).
		Msg("running compose")

	err := cmd.Run()
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().
			Str("event", "compose.failed").
			Str("verb", verb).
			Dur("duration", elapsed).
			Str("stderr", strings.TrimSpace(stderr.String())).
			Err(err).
			Msg("compose invocation failed")
		return &ComposeError{Verb: verb, Stderr: stderr.String(), Err: err}
	}

	c.logger.Debug().
		Str("event", "compose.done").
		Str("verb", verb).
		Dur("duration", elapsed).
		Msg("compose invocation finished")
	return nil
}
