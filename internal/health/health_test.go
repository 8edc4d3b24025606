// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okChecker(name string) Checker {
	return NewChecker(name, func(context.Context) CheckResult {
		return CheckResult{Status: StatusOK}
	})
}

func degradedChecker(name string, err error) Checker {
	return NewChecker(name, func(context.Context) CheckResult {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	})
}

func TestReport_NoCheckers(t *testing.T) {
	m := NewManager("v2.1.0")
	resp := m.Report(context.Background())

	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "v2.1.0", resp.Version)
	assert.Empty(t, resp.Checks)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestReport_AllHealthy(t *testing.T) {
	m := NewManager("test")
	m.RegisterChecker(okChecker("runtime"))
	m.RegisterChecker(okChecker("manifest"))

	resp := m.Report(context.Background())
	assert.Equal(t, StatusOK, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusOK, resp.Checks["runtime"].Status)
}

func TestReport_OneDegradedDegradesAll(t *testing.T) {
	m := NewManager("test")
	m.RegisterChecker(okChecker("manifest"))
	m.RegisterChecker(degradedChecker("runtime", errors.New("socket gone")))

	resp := m.Report(context.Background())
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, StatusOK, resp.Checks["manifest"].Status)
	assert.Equal(t, StatusDegraded, resp.Checks["runtime"].Status)
	assert.Equal(t, "socket gone", resp.Checks["runtime"].Error)
}

func TestNewPingChecker(t *testing.T) {
	var fail error
	c := NewPingChecker("runtime", func(context.Context) error { return fail })

	assert.Equal(t, "runtime", c.Name())
	assert.Equal(t, StatusOK, c.Check(context.Background()).Status)

	fail = errors.New("dial unix /var/run/docker.sock: no such file")
	result := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, result.Status)
	assert.Equal(t, fail.Error(), result.Error)
}
