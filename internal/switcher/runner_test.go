// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package switcher

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"

	"github.com/ManuGH/streamgate/internal/scene"
)

func (r *Runner) testPID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.child == nil {
		return 0
	}
	return r.child.cmd.Process.Pid
}

func TestNewRunner_RequiresCommands(t *testing.T) {
	_, err := NewRunner(nil, []string{"sleep", "60"})
	require.Error(t, err)

	_, err = NewRunner([]string{"sleep", "60"}, nil)
	require.Error(t, err)
}

func TestRunner_SetSceneSpawnsChild(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r, err := NewRunner([]string{"sleep", "60"}, []string{"sleep", "60"})
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	require.NoError(t, r.SetScene(context.Background(), scene.Fallback))

	assert.Equal(t, scene.Fallback, r.Scene())
	assert.Equal(t, "ok", r.Status(context.Background()))

	pid := r.testPID()
	require.NotZero(t, pid)
	assert.NoError(t, syscall.Kill(pid, 0), "child should be alive")
}

func TestRunner_SetSceneIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r, err := NewRunner([]string{"sleep", "60"}, []string{"sleep", "60"})
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	require.NoError(t, r.SetScene(context.Background(), scene.Live))
	pid := r.testPID()

	require.NoError(t, r.SetScene(context.Background(), scene.Live))
	assert.Equal(t, pid, r.testPID(), "re-applying the current scene must not restart the child")
}

func TestRunner_SwitchReplacesChild(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r, err := NewRunner([]string{"sleep", "60"}, []string{"sleep", "60"})
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	require.NoError(t, r.SetScene(context.Background(), scene.Fallback))
	oldPID := r.testPID()

	require.NoError(t, r.SetScene(context.Background(), scene.Live))
	newPID := r.testPID()

	assert.Equal(t, scene.Live, r.Scene())
	assert.NotEqual(t, oldPID, newPID)
	assert.ErrorIs(t, syscall.Kill(oldPID, 0), syscall.ESRCH, "old child should be gone")
	assert.NoError(t, syscall.Kill(newPID, 0), "new child should be alive")
}

func TestRunner_RespawnsOnUnexpectedExit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r, err := NewRunner([]string{"sleep", "0.05"}, []string{"sleep", "0.05"})
	require.NoError(t, err)
	r.limiter = rate.NewLimiter(rate.Every(5*time.Millisecond), 1)
	defer func() { require.NoError(t, r.Close()) }()

	require.NoError(t, r.SetScene(context.Background(), scene.Fallback))
	firstPID := r.testPID()
	require.NotZero(t, firstPID)

	// The child exits after 50ms; the watch goroutine must bring up a
	// replacement in the same scene.
	require.Eventually(t, func() bool {
		pid := r.testPID()
		return pid != 0 && pid != firstPID
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, scene.Fallback, r.Scene())
}

func TestRunner_CloseStopsChildAndRespawns(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r, err := NewRunner([]string{"sleep", "60"}, []string{"sleep", "60"})
	require.NoError(t, err)

	require.NoError(t, r.SetScene(context.Background(), scene.Live))
	pid := r.testPID()

	require.NoError(t, r.Close())

	assert.Equal(t, "stopped", r.Status(context.Background()))
	assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH)

	err = r.SetScene(context.Background(), scene.Fallback)
	assert.ErrorIs(t, err, ErrClosed)

	// Closing twice is fine.
	assert.NoError(t, r.Close())
}
