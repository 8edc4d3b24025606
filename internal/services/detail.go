// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package services

import (
	"fmt"
	"strings"
	"time"
)

// detailString derives the human status summary from inspected state,
// mirroring the engine's own `docker ps` phrasing.
func detailString(d ContainerDetail, now time.Time) string {
	switch d.State {
	case "running":
		up := "Up"
		if !d.StartedAt.IsZero() {
			up = "Up " + humanDelta(now.Sub(d.StartedAt))
		}
		switch d.Health {
		case "healthy":
			return up + " (healthy)"
		case "unhealthy":
			return up + " (unhealthy)"
		case "starting":
			return up + " (health: starting)"
		}
		return up
	case "exited":
		if d.FinishedAt.IsZero() {
			return fmt.Sprintf("Exited (%d)", d.ExitCode)
		}
		return fmt.Sprintf("Exited (%d) %s ago", d.ExitCode, humanDelta(now.Sub(d.FinishedAt)))
	case "":
		return "Unknown"
	}
	return capitalize(d.State)
}

// humanDelta renders a duration in the coarsest unit whose value is at
// least one, from seconds up to days.
func humanDelta(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d.Seconds())
	switch {
	case secs >= 86400:
		return pluralUnit(secs/86400, "day")
	case secs >= 3600:
		return pluralUnit(secs/3600, "hour")
	case secs >= 60:
		return pluralUnit(secs/60, "minute")
	}
	return pluralUnit(secs, "second")
}

func pluralUnit(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
