package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/muurk/wifiprov/internal/connect"
	"github.com/muurk/wifiprov/internal/state"
)

func TestPhaseGauge(t *testing.T) {
	m := New(false)
	if got := testutil.ToFloat64(m.phase.WithLabelValues("Init")); got != 1 {
		t.Errorf("Init gauge = %v, want 1", got)
	}

	m.SetPhase(state.PhaseInit, state.PhaseConnecting)
	if got := testutil.ToFloat64(m.phase.WithLabelValues("Init")); got != 0 {
		t.Errorf("Init gauge after transition = %v", got)
	}
	if got := testutil.ToFloat64(m.phase.WithLabelValues("Connecting")); got != 1 {
		t.Errorf("Connecting gauge = %v", got)
	}
}

func TestCounters(t *testing.T) {
	m := New(false)
	m.ConnectFinished(connect.Failed)
	m.ConnectFinished(connect.Failed)
	m.ConnectFinished(connect.Succeeded)
	m.RetryStarted()
	m.Reset("button")
	m.Restart("configuration saved")
	m.PortalStarted()
	m.RequestsServiced(3)
	m.RequestsServiced(0)

	if got := testutil.ToFloat64(m.connectResults.WithLabelValues("failed")); got != 2 {
		t.Errorf("failed attempts = %v", got)
	}
	if got := testutil.ToFloat64(m.retries); got != 1 {
		t.Errorf("retries = %v", got)
	}
	if got := testutil.ToFloat64(m.resets.WithLabelValues("button")); got != 1 {
		t.Errorf("button resets = %v", got)
	}
	if got := testutil.ToFloat64(m.portalRequests); got != 3 {
		t.Errorf("requests = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SetPhase(state.PhaseInit, state.PhaseConnected)
	m.ConnectFinished(connect.Succeeded)
	m.Reset("http")
	if m.Registry() != nil {
		t.Error("nil metrics has a registry")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandlerExposition(t *testing.T) {
	m := New(false)
	m.PortalStarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "wifiprov_portal_sessions_total 1") {
		t.Errorf("exposition missing portal sessions:\n%s", rec.Body.String())
	}
}
