// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup spawns child processes in their own process group and
// terminates the whole group, so that signals reach transcoder sub-children
// and shell-spawned helpers.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/streamgate/internal/log"
)

// ErrKillFailed reports a process group that survived SIGKILL past the
// reaping timeout.
var ErrKillFailed = errors.New("kill operation failed")

// Set configures the command to start in a new process group.
// Mandatory for Kill, KillGroup and Terminate to reach the whole tree.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Kill signals the entire process group of a running command. A group that
// is already gone is treated as success.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	return kill(cmd, sig)
}

// KillGroup terminates a detached process group by pid: SIGTERM, a grace
// wait, then SIGKILL with a final reaping timeout. The process MUST have
// been spawned with Set. Do not combine with exec.Cmd.Wait on the same
// child; use Terminate for commands the caller still owns.
func KillGroup(pid int, grace, timeout time.Duration) error {
	return killGroup(pid, grace, timeout)
}

// Terminate gracefully stops a command the caller owns. It sends SIGTERM to
// the group, waits up to grace for waitCh to deliver the child's Wait
// result, escalates to SIGKILL, and gives the kernel up to timeout to reap
// before giving up. waitCh must be fed by the caller's own cmd.Wait.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace, timeout time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	logger := log.WithComponent("procgroup")
	pid := cmd.Process.Pid

	if err := kill(cmd, syscall.SIGTERM); err != nil {
		logger.Debug().Err(err).Int(log.FieldPID, pid).Msg("SIGTERM delivery failed")
	}

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
	}

	logger.Warn().Int(log.FieldPID, pid).Msg("grace period exceeded, sending SIGKILL to process group")
	if err := kill(cmd, syscall.SIGKILL); err != nil {
		logger.Debug().Err(err).Int(log.FieldPID, pid).Msg("SIGKILL delivery failed")
	}

	select {
	case err := <-waitCh:
		return err
	case <-time.After(timeout):
		return ErrKillFailed
	}
}
