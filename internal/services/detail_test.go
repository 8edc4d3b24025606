// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHumanDelta(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{400 * time.Millisecond, "0 seconds"},
		{time.Second, "1 second"},
		{59 * time.Second, "59 seconds"},
		{time.Minute, "1 minute"},
		{90 * time.Second, "1 minute"},
		{2 * time.Minute, "2 minutes"},
		{time.Hour, "1 hour"},
		{5 * time.Hour, "5 hours"},
		{26 * time.Hour, "1 day"},
		{49 * time.Hour, "2 days"},
		{-5 * time.Second, "0 seconds"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, humanDelta(tc.d), "duration %v", tc.d)
	}
}

func TestDetailString(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	started := now.Add(-3 * time.Hour)
	finished := now.Add(-10 * time.Minute)

	tests := []struct {
		name string
		d    ContainerDetail
		want string
	}{
		{
			name: "running without healthcheck",
			d:    ContainerDetail{State: "running", StartedAt: started},
			want: "Up 3 hours",
		},
		{
			name: "running healthy",
			d:    ContainerDetail{State: "running", Health: "healthy", StartedAt: started},
			want: "Up 3 hours (healthy)",
		},
		{
			name: "running unhealthy",
			d:    ContainerDetail{State: "running", Health: "unhealthy", StartedAt: started},
			want: "Up 3 hours (unhealthy)",
		},
		{
			name: "running health starting",
			d:    ContainerDetail{State: "running", Health: "starting", StartedAt: started},
			want: "Up 3 hours (health: starting)",
		},
		{
			name: "running with unset start time",
			d:    ContainerDetail{State: "running"},
			want: "Up",
		},
		{
			name: "exited",
			d:    ContainerDetail{State: "exited", ExitCode: 137, FinishedAt: finished},
			want: "Exited (137) 10 minutes ago",
		},
		{
			name: "exited with unset finish time",
			d:    ContainerDetail{State: "exited"},
			want: "Exited (0)",
		},
		{
			name: "created",
			d:    ContainerDetail{State: "created"},
			want: "Created",
		},
		{
			name: "paused",
			d:    ContainerDetail{State: "paused"},
			want: "Paused",
		},
		{
			name: "restarting",
			d:    ContainerDetail{State: "restarting"},
			want: "Restarting",
		},
		{
			name: "empty state",
			d:    ContainerDetail{},
			want: "Unknown",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, detailString(tc.d, now))
		})
	}
}
