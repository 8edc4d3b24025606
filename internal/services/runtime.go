// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const runtimeCallTimeout = 10 * time.Second

var (
	// ErrNotFound marks a container the runtime does not know.
	ErrNotFound = errors.New("services: container not found")
	// ErrRuntimeUnavailable marks transport failures to the runtime.
	ErrRuntimeUnavailable = errors.New("services: container runtime unavailable")
)

// Container is one entry of the runtime's container listing.
type Container struct {
	ID    string
	Name  string
	State string
	// Status is the runtime's own human-readable summary.
	Status string
}

// ContainerDetail is the inspected state of one container. Unset
// timestamps are the zero time.
type ContainerDetail struct {
	ID         string
	Name       string
	State      string
	Health     string
	StartedAt  time.Time
	FinishedAt time.Time
	ExitCode   int
}

// Runtime is the container runtime surface the controller consumes.
type Runtime interface {
	List(ctx context.Context) ([]Container, error)
	Inspect(ctx context.Context, name string) (ContainerDetail, error)
	// Logs returns the last tail lines, timestamped, empty lines dropped.
	Logs(ctx context.Context, name string, tail int) ([]string, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string, timeout time.Duration) error
	Restart(ctx context.Context, name string, timeout time.Duration) error
	Remove(ctx context.Context, name string, force bool) error
	Ping(ctx context.Context) error
}

// dockerRuntime implements Runtime against the Docker Engine API. Every
// call is bounded by its own timeout; the SDK pools connections.
type dockerRuntime struct {
	cli     *client.Client
	timeout time.Duration
}

// NewDockerRuntime connects to the engine at socket, e.g.
// unix:///var/run/docker.sock.
func NewDockerRuntime(socket string) (Runtime, error) {
	cli, err := client.NewClientWithOpts(
		client.WithHost(socket),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("runtime client: %w", err)
	}
	return &dockerRuntime{cli: cli, timeout: runtimeCallTimeout}, nil
}

func (r *dockerRuntime) List(ctx context.Context) ([]Container, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	list, err := r.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]Container, 0, len(list))
	for _, c := range list {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		out = append(out, Container{
			ID:     shortID(c.ID),
			Name:   name,
			State:  c.State,
			Status: c.Status,
		})
	}
	return out, nil
}

func (r *dockerRuntime) Inspect(ctx context.Context, name string) (ContainerDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	j, err := r.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return ContainerDetail{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return ContainerDetail{}, fmt.Errorf("inspect %s: %w", name, err)
	}

	d := ContainerDetail{
		ID:   shortID(j.ID),
		Name: strings.TrimPrefix(j.Name, "/"),
	}
	if j.State != nil {
		d.State = j.State.Status
		d.ExitCode = j.State.ExitCode
		d.StartedAt = parseRuntimeTime(j.State.StartedAt)
		d.FinishedAt = parseRuntimeTime(j.State.FinishedAt)
		if j.State.Health != nil {
			d.Health = j.State.Health.Status
		}
	}
	return d, nil
}

func (r *dockerRuntime) Logs(ctx context.Context, name string, tail int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rc, err := r.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
		Timestamps: true,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("logs %s: %w", name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read logs %s: %w", name, err)
	}
	return splitLogLines(demux(raw)), nil
}

func (r *dockerRuntime) Start(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("start %s: %w", name, err)
	}
	return nil
}

func (r *dockerRuntime) Stop(ctx context.Context, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout+timeout)
	defer cancel()

	secs := int(timeout.Seconds())
	if err := r.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &secs}); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("stop %s: %w", name, err)
	}
	return nil
}

func (r *dockerRuntime) Restart(ctx context.Context, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout+timeout)
	defer cancel()

	secs := int(timeout.Seconds())
	if err := r.cli.ContainerRestart(ctx, name, container.StopOptions{Timeout: &secs}); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("restart %s: %w", name, err)
	}
	return nil
}

func (r *dockerRuntime) Remove(ctx context.Context, name string, force bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: force}); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (r *dockerRuntime) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.cli.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// demux unpacks the engine's multiplexed log stream. Both streams go into
// one buffer so frame order is preserved. TTY containers deliver a raw
// stream, which surfaces as a demux error; the raw bytes are used as-is.
func demux(raw []byte) []byte {
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, bytes.NewReader(raw)); err != nil {
		return raw
	}
	return buf.Bytes()
}

func splitLogLines(b []byte) []string {
	lines := strings.Split(string(b), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// parseRuntimeTime parses an engine timestamp. The zero year and the
// Unix epoch both mean "never" and map to the zero time.
func parseRuntimeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	if t.Year() == 1 || t.Unix() == 0 {
		return time.Time{}
	}
	return t
}
