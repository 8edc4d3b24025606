// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT

// Package health aggregates component checks behind the controller's
// /health endpoint. The endpoint is a liveness surface: degraded
// components change the payload, never the HTTP status.
package health

import (
	"context"
	"time"
)

// Status is the reported state of a component or of the whole process.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is the aggregated health payload.
type Response struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one registered component check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckFunc adapts a plain function to a Checker.
type CheckFunc func(ctx context.Context) CheckResult

type funcChecker struct {
	name string
	fn   CheckFunc
}

func (c funcChecker) Name() string { return c.name }

func (c funcChecker) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// NewChecker wraps fn as a named Checker.
func NewChecker(name string, fn CheckFunc) Checker {
	return funcChecker{name: name, fn: fn}
}

// NewPingChecker adapts an error-returning probe to a Checker. A nil
// error reports OK, anything else degrades the component.
func NewPingChecker(name string, ping func(ctx context.Context) error) Checker {
	return funcChecker{name: name, fn: func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			return CheckResult{Status: StatusDegraded, Error: err.Error()}
		}
		return CheckResult{Status: StatusOK}
	}}
}

// Manager runs all registered checks and folds them into one response.
type Manager struct {
	version  string
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds a component check. Not safe for concurrent use
// with Report; register everything during startup.
func (m *Manager) RegisterChecker(c Checker) {
	m.checkers = append(m.checkers, c)
}

// Report runs every check. Any non-OK component degrades the whole
// response.
func (m *Manager) Report(ctx context.Context) Response {
	resp := Response{
		Status:    StatusOK,
		Version:   m.version,
		Timestamp: time.Now().UTC(),
	}
	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, c := range m.checkers {
		result := c.Check(ctx)
		resp.Checks[c.Name()] = result
		if result.Status != StatusOK {
			resp.Status = StatusDegraded
		}
	}
	return resp
}
