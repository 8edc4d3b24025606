// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/metrics"
	"github.com/ManuGH/streamgate/internal/telemetry"
)

// opTimeout bounds one whole background operation including a possible
// remove-and-recreate cycle, each leg of which is a full compose call.
const opTimeout = 4 * time.Minute

// stopTimeoutSec is handed to compose stop/restart as the engine-side
// grace period.
const stopTimeoutSec = 30

// errNoop marks an operation that found nothing to do.
var errNoop = errors.New("no-op")

// OpKind names one background container operation. The values double as
// URL path segments.
type OpKind string

const (
	OpStart   OpKind = "start"
	OpStop    OpKind = "stop"
	OpRestart OpKind = "restart"
	OpCreate  OpKind = "create-and-start"
)

// ackStatus is the progressive form reported to the caller while the
// operation runs in the background.
func (k OpKind) ackStatus() string {
	switch k {
	case OpStart:
		return "starting"
	case OpStop:
		return "stopping"
	case OpRestart:
		return "restarting"
	case OpCreate:
		return "creating"
	}
	return string(k)
}

// Ack acknowledges an accepted background operation.
type Ack struct {
	Status    string `json:"status"`
	Container string `json:"container"`
	Message   string `json:"message"`
}

// ServiceStatus is the merged manifest plus runtime view of one service.
type ServiceStatus struct {
	Name        string
	RuntimeName string
	Lifecycle   string
	Health      string
	Running     bool
	Detail      string
	ID          string
	Created     bool
	IsManual    bool
	StartedAt   time.Time
	FinishedAt  time.Time
	ExitCode    int
}

// Controller owns the managed container fleet. Reads merge the manifest
// with the live runtime; lifecycle changes run on background goroutines
// and report outcome through logs and the service list.
type Controller struct {
	store   *ManifestStore
	runtime Runtime
	compose ComposeClient
	logger  zerolog.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// NewController wires the controller against a manifest store, a
// container runtime and a compose runner.
func NewController(store *ManifestStore, rt Runtime, comp ComposeClient) *Controller {
	return &Controller{
		store:   store,
		runtime: rt,
		compose: comp,
		logger:  log.WithComponent("controller"),
		now:     time.Now,
	}
}

// Wait blocks until all queued background operations have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// List merges the manifest with the runtime list. Every declared service
// appears exactly once; services without a runtime container are
// reported as not-created. A runtime failure degrades the whole snapshot
// to lifecycle unknown and returns degraded=true instead of an error.
func (c *Controller) List(ctx context.Context) ([]ServiceStatus, bool) {
	descs := c.store.Services()
	out := make([]ServiceStatus, 0, len(descs))

	containers, err := c.runtime.List(ctx)
	if err != nil {
		c.logger.Warn().
			Str("event", "controller.runtime_degraded").
			Err(err).
			Msg("runtime list failed, serving degraded snapshot")
		metrics.IncRuntimeDegraded()
		for _, d := range descs {
			out = append(out, unknownStatus(d))
		}
		return out, true
	}

	byName := make(map[string]Container, len(containers))
	for _, ct := range containers {
		byName[ct.Name] = ct
	}

	now := c.now()
	for _, d := range descs {
		ct, ok := byName[d.RuntimeName]
		if !ok {
			out = append(out, notCreatedStatus(d))
			continue
		}
		detail, err := c.runtime.Inspect(ctx, d.RuntimeName)
		switch {
		case errors.Is(err, ErrNotFound):
			// Removed between list and inspect.
			out = append(out, notCreatedStatus(d))
		case err != nil:
			c.logger.Warn().
				Str("event", "controller.inspect_failed").
				Str(log.FieldContainer, d.ShortName).
				Err(err).
				Msg("falling back to list data for service")
			out = append(out, listOnlyStatus(d, ct))
		default:
			out = append(out, fromDetail(d, detail, now))
		}
	}
	return out, false
}

// Status reports one service. A service the runtime has no container for
// yields ErrNotFound, even when the manifest declares it.
func (c *Controller) Status(ctx context.Context, shortName string) (ServiceStatus, error) {
	d, ok := c.store.Lookup(shortName)
	if !ok {
		return ServiceStatus{}, fmt.Errorf("%w: %s", ErrNotFound, shortName)
	}
	detail, err := c.runtime.Inspect(ctx, d.RuntimeName)
	if err != nil {
		return ServiceStatus{}, err
	}
	return fromDetail(d, detail, c.now()), nil
}

// Logs returns the last tail log lines of one service.
func (c *Controller) Logs(ctx context.Context, shortName string, tail int) ([]string, error) {
	d, ok := c.store.Lookup(shortName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, shortName)
	}
	return c.runtime.Logs(ctx, d.RuntimeName, tail)
}

// Operate queues one background lifecycle operation and acknowledges
// immediately. Unknown services fail before anything is queued; all
// later failures surface through logs and the service list only.
func (c *Controller) Operate(shortName string, kind OpKind) (Ack, error) {
	d, ok := c.store.Lookup(shortName)
	if !ok {
		return Ack{}, fmt.Errorf("%w: %s", ErrNotFound, shortName)
	}

	status := kind.ackStatus()
	c.logger.Info().
		Str("event", "controller.op_queued").
		Str(log.FieldOp, string(kind)).
		Str(log.FieldContainer, shortName).
		Msg("container operation queued")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.execute(d, kind)
	}()

	return Ack{
		Status:    status,
		Container: shortName,
		Message:   fmt.Sprintf("Container %s is %s", shortName, status),
	}, nil
}

func (c *Controller) execute(d ServiceDescriptor, kind OpKind) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ctx, span := telemetry.Tracer("streamgate.services").Start(ctx, "container.op",
		trace.WithAttributes(telemetry.ContainerOpAttributes(d.ShortName, string(kind))...))
	defer span.End()

	start := time.Now()
	err := c.runOp(ctx, d, kind)
	metrics.ObserveRuntimeOp(string(kind), time.Since(start))

	switch {
	case errors.Is(err, errNoop):
		span.SetStatus(codes.Ok, "")
		metrics.IncRuntimeOp(string(kind), metrics.OpOutcomeNoop)
		c.logger.Info().
			Str("event", "controller.op_noop").
			Str(log.FieldOp, string(kind)).
			Str(log.FieldContainer, d.ShortName).
			Msg("container operation had nothing to do")
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.IncRuntimeOp(string(kind), metrics.OpOutcomeError)
		c.logger.Error().
			Str("event", "controller.op_failed").
			Str(log.FieldOp, string(kind)).
			Str(log.FieldContainer, d.ShortName).
			Err(err).
			Msg("container operation failed")
	default:
		span.SetStatus(codes.Ok, "")
		metrics.IncRuntimeOp(string(kind), metrics.OpOutcomeOK)
		c.logger.Info().
			Str("event", "controller.op_done").
			Str(log.FieldOp, string(kind)).
			Str(log.FieldContainer, d.ShortName).
			Dur("duration", time.Since(start)).
			Msg("container operation finished")
	}
}

func (c *Controller) runOp(ctx context.Context, d ServiceDescriptor, kind OpKind) error {
	switch kind {
	case OpStart:
		return c.runStart(ctx, d)
	case OpStop:
		return c.runStop(ctx, d)
	case OpRestart:
		return c.runRestart(ctx, d)
	case OpCreate:
		return c.runCreate(ctx, d)
	}
	return fmt.Errorf("unknown operation %q", kind)
}

// runStart starts an existing container via compose so restart policies
// and networks come from the project model. A recreation-class failure
// removes the container and materialises it fresh, exactly once.
func (c *Controller) runStart(ctx context.Context, d ServiceDescriptor) error {
	detail, err := c.runtime.Inspect(ctx, d.RuntimeName)
	switch {
	case errors.Is(err, ErrNotFound):
		c.logger.Info().
			Str("event", "controller.start_creates").
			Str(log.FieldContainer, d.ShortName).
			Msg("container does not exist, creating instead")
		return c.runCreate(ctx, d)
	case err != nil:
		return err
	}
	if detail.State == "running" {
		return errNoop
	}

	err = c.compose.Start(ctx, d.ShortName)
	if err == nil {
		return nil
	}

	var ce *ComposeError
	if errors.As(err, &ce) && isRecreationError(ce.Stderr) {
		c.logger.Warn().
			Str("event", "controller.recreating").
			Str(log.FieldContainer, d.ShortName).
			Str("stderr", strings.TrimSpace(ce.Stderr)).
			Msg("start failed with stale state, removing and recreating container")
		metrics.IncRecreation()
		if rmErr := c.compose.Remove(ctx, d.ShortName); rmErr != nil {
			return fmt.Errorf("remove for recreation: %w", rmErr)
		}
		return c.runCreate(ctx, d)
	}
	return err
}

func (c *Controller) runStop(ctx context.Context, d ServiceDescriptor) error {
	detail, err := c.runtime.Inspect(ctx, d.RuntimeName)
	switch {
	case errors.Is(err, ErrNotFound):
		c.logger.Warn().
			Str("event", "controller.stop_missing").
			Str(log.FieldContainer, d.ShortName).
			Msg("cannot stop a container that does not exist")
		return errNoop
	case err != nil:
		return err
	}
	if detail.State != "running" {
		return errNoop
	}
	return c.compose.Stop(ctx, d.ShortName, stopTimeoutSec)
}

func (c *Controller) runRestart(ctx context.Context, d ServiceDescriptor) error {
	_, err := c.runtime.Inspect(ctx, d.RuntimeName)
	switch {
	case errors.Is(err, ErrNotFound):
		c.logger.Warn().
			Str("event", "controller.restart_missing").
			Str(log.FieldContainer, d.ShortName).
			Msg("cannot restart a container that does not exist")
		return errNoop
	case err != nil:
		return err
	}
	return c.compose.Restart(ctx, d.ShortName, stopTimeoutSec)
}

// runCreate materialises a service. An existing stopped container is
// started in place through the engine API; a missing one is created from
// the manifest. Manual-profile services never pull their dependencies up
// with them.
func (c *Controller) runCreate(ctx context.Context, d ServiceDescriptor) error {
	detail, err := c.runtime.Inspect(ctx, d.RuntimeName)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.compose.Up(ctx, d.ShortName, d.IsManual)
	case err != nil:
		return err
	}
	if detail.State == "running" {
		return errNoop
	}
	return c.runtime.Start(ctx, d.RuntimeName)
}

// recreationPhrases lists stderr patterns that indicate stale network or
// overlay state from a previous container cycle. Every phrase in a set
// must appear in the lowercased stderr for the set to match.
var recreationPhrases = [][]string{
	{"network", "not found"},
	{"failed to set up container networking"},
	{"error response from daemon", "network"},
	{"error mounting"},
	{"failed to create task for container"},
	{"error during container init"},
	{"not a directory", "mount"},
	{"are you trying to mount a directory onto a file"},
	{"oci runtime create failed"},
	{"unable to start container process"},
}

func isRecreationError(stderr string) bool {
	text := strings.ToLower(stderr)
	for _, set := range recreationPhrases {
		matched := true
		for _, phrase := range set {
			if !strings.Contains(text, phrase) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func fromDetail(d ServiceDescriptor, detail ContainerDetail, now time.Time) ServiceStatus {
	return ServiceStatus{
		Name:        d.ShortName,
		RuntimeName: d.RuntimeName,
		Lifecycle:   detail.State,
		Health:      detail.Health,
		Running:     detail.State == "running",
		Detail:      detailString(detail, now),
		ID:          detail.ID,
		Created:     true,
		IsManual:    d.IsManual,
		StartedAt:   detail.StartedAt,
		FinishedAt:  detail.FinishedAt,
		ExitCode:    detail.ExitCode,
	}
}

// listOnlyStatus builds a status from the listing row alone, used when
// the follow-up inspect fails. The engine's own summary string stands in
// for the derived detail.
func listOnlyStatus(d ServiceDescriptor, ct Container) ServiceStatus {
	return ServiceStatus{
		Name:        d.ShortName,
		RuntimeName: d.RuntimeName,
		Lifecycle:   ct.State,
		Running:     ct.State == "running",
		Detail:      ct.Status,
		ID:          ct.ID,
		Created:     true,
		IsManual:    d.IsManual,
	}
}

func notCreatedStatus(d ServiceDescriptor) ServiceStatus {
	return ServiceStatus{
		Name:        d.ShortName,
		RuntimeName: d.RuntimeName,
		Lifecycle:   "not-created",
		Detail:      "Not created",
		IsManual:    d.IsManual,
	}
}

func unknownStatus(d ServiceDescriptor) ServiceStatus {
	return ServiceStatus{
		Name:        d.ShortName,
		RuntimeName: d.RuntimeName,
		Lifecycle:   "unknown",
		Detail:      "Unknown",
		IsManual:    d.IsManual,
	}
}
