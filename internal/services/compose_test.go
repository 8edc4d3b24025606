// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeArgs(t *testing.T) {
	c := NewCompose("/srv/stack/docker-compose.yml", "")
	got := c.args("start", "nginx")
	want := []string{
		"compose",
		"--project-directory", "/srv/stack",
		"-f", "/srv/stack/docker-compose.yml",
		"start", "nginx",
	}
	assert.Equal(t, want, got)
}

func TestComposeArgs_WithEnvFile(t *testing.T) {
	c := NewCompose("/srv/stack/docker-compose.yml", "/srv/stack/.env")
	got := c.args("up", "-d", "--remove-orphans", "--no-deps", "pipeline")
	want := []string{
		"compose",
		"--project-directory", "/srv/stack",
		"-f", "/srv/stack/docker-compose.yml",
		"--env-file", "/srv/stack/.env",
		"up", "-d", "--remove-orphans", "--no-deps", "pipeline",
	}
	assert.Equal(t, want, got)
}

// fakeComposeBin swaps the compose binary for a shell script that records
// its argv and exits with the given behaviour.
func fakeComposeBin(t *testing.T, c *Compose, script string) string {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-docker")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script), 0o755))
	c.bin = bin
	return dir
}

func TestComposeRun_RecordsFullArgv(t *testing.T) {
	c := NewCompose("/srv/stack/docker-compose.yml", "")
	dir := fakeComposeBin(t, c, `echo "$@" > "$(dirname "$0")/argv"`+"\n")

	require.NoError(t, c.Stop(context.Background(), "nginx", 30))

	raw, err := os.ReadFile(filepath.Join(dir, "argv"))
	require.NoError(t, err)
	assert.Equal(t,
		"compose --project-directory /srv/stack -f /srv/stack/docker-compose.yml stop -t 30 nginx",
		strings.TrimSpace(string(raw)))
}

func TestComposeRun_FailureCarriesStderr(t *testing.T) {
	c := NewCompose("/srv/stack/docker-compose.yml", "")
	fakeComposeBin(t, c, `echo "Error response from daemon: network cam_net not found" >&2`+"\nexit 1\n")

	err := c.Start(context.Background(), "nginx")
	require.Error(t, err)

	var ce *ComposeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "start", ce.Verb)
	assert.Contains(t, ce.Stderr, "network cam_net not found")
	assert.Contains(t, ce.Error(), "compose start")
}

func TestComposeRun_TimeoutKillsProcessGroup(t *testing.T) {
	c := NewCompose("/srv/stack/docker-compose.yml", "")
	fakeComposeBin(t, c, "sleep 10\n")
	c.timeout = 100 * time.Millisecond

	start := time.Now()
	err := c.Remove(context.Background(), "nginx")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "timeout must not wait for the sleep")
}
