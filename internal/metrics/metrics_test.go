// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/streamgate/internal/metrics"
)

func scrape(t *testing.T) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.Handler().ServeHTTP(recorder, req)
	return recorder.Body.String()
}

func TestProbeMetrics(t *testing.T) {
	metrics.IncProbe(metrics.ProbeOutcomeOK)
	metrics.IncProbe(metrics.ProbeOutcomeError)
	metrics.ObserveProbeDuration(120 * time.Millisecond)
	metrics.SetProbeBitrate(812.5)

	body := scrape(t)
	if !strings.Contains(body, "streamgate_probe_requests_total") {
		t.Error("expected streamgate_probe_requests_total metric to be present")
	}
	if !strings.Contains(body, `outcome="ok"`) {
		t.Error("expected ok outcome label in metrics output")
	}
	if !strings.Contains(body, "streamgate_probe_bitrate_kbps") {
		t.Error("expected streamgate_probe_bitrate_kbps metric to be present")
	}
}

func TestSceneMetrics(t *testing.T) {
	metrics.IncSceneSwitch("fallback", metrics.TriggerStartup)
	metrics.IncSceneSwitch("live", metrics.TriggerStability)
	metrics.SetActiveScene("live", []string{"live", "fallback"})
	metrics.ObserveSwitchDuration("selector", 40*time.Millisecond)
	metrics.IncSwitchFailure("runner")
	metrics.IncPeerNotify("ok")
	metrics.IncChildRespawn()

	body := scrape(t)
	if !strings.Contains(body, "streamgate_scene_switches_total") {
		t.Error("expected streamgate_scene_switches_total metric to be present")
	}
	if !strings.Contains(body, `trigger="stability"`) {
		t.Error("expected stability trigger label in metrics output")
	}
	if !strings.Contains(body, "streamgate_scene_active") {
		t.Error("expected streamgate_scene_active metric to be present")
	}
	if !strings.Contains(body, "streamgate_child_respawns_total") {
		t.Error("expected streamgate_child_respawns_total metric to be present")
	}
}

func TestRuntimeMetrics(t *testing.T) {
	metrics.IncRuntimeOp("start", metrics.OpOutcomeOK)
	metrics.IncRuntimeOp("stop", metrics.OpOutcomeError)
	metrics.ObserveRuntimeOp("start", 2*time.Second)
	metrics.IncRuntimeDegraded()
	metrics.IncRecreation()

	body := scrape(t)
	if !strings.Contains(body, "streamgate_runtime_ops_total") {
		t.Error("expected streamgate_runtime_ops_total metric to be present")
	}
	if !strings.Contains(body, `op="start"`) {
		t.Error("expected start op label in metrics output")
	}
	if !strings.Contains(body, "streamgate_runtime_recreations_total") {
		t.Error("expected streamgate_runtime_recreations_total metric to be present")
	}
}

func TestFanoutMetrics(t *testing.T) {
	metrics.IncWSClients()
	metrics.IncWSMessage("status_change")
	metrics.IncWSSendFailure()
	metrics.AddLogLinesStreamed(17)
	metrics.DecWSClients()

	body := scrape(t)
	if !strings.Contains(body, "streamgate_ws_clients") {
		t.Error("expected streamgate_ws_clients metric to be present")
	}
	if !strings.Contains(body, `type="status_change"`) {
		t.Error("expected status_change type label in metrics output")
	}
	if !strings.Contains(body, "streamgate_log_lines_streamed_total") {
		t.Error("expected streamgate_log_lines_streamed_total metric to be present")
	}
}
