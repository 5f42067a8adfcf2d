package diagnostics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termbridge/termbridge/internal/config"
	"github.com/termbridge/termbridge/internal/logging"
	"github.com/termbridge/termbridge/internal/monitoring"
	"github.com/termbridge/termbridge/internal/session"
	"github.com/termbridge/termbridge/internal/surface"
)

type idleSurface struct{}

func (idleSurface) IsReady() bool               { return true }
func (idleSurface) Write(p []byte) error        { return nil }
func (idleSurface) WriteLine(line string) error { return nil }
func (idleSurface) OnReadyOnce(fn func())       { fn() }

func newTestServer(t *testing.T, cfg config.DiagnosticsConfig) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := monitoring.New(reg)
	engine := session.New(session.Options{
		Surface: idleSurface{},
		Prober:  &surface.Prober{ProbeDelay: time.Millisecond, FallbackDelay: time.Millisecond},
		Logger:  logging.NewNop(),
		Metrics: metrics,
	})
	return New(cfg, engine, metrics, reg, logging.NewNop())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, config.DiagnosticsConfig{RequestsPerSecond: 100, Burst: 100})

	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "termbridge", body["service"])
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t, config.DiagnosticsConfig{RequestsPerSecond: 100, Burst: 100})

	rec := get(t, s, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "disconnected", body["status"])
	assert.Equal(t, false, body["has_session"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, config.DiagnosticsConfig{RequestsPerSecond: 100, Burst: 100})

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "termbridge_connects_total")
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, config.DiagnosticsConfig{RequestsPerSecond: 1, Burst: 2})

	codes := make(map[int]int)
	for i := 0; i < 10; i++ {
		codes[get(t, s, "/health").Code]++
	}

	assert.Positive(t, codes[http.StatusOK])
	assert.Positive(t, codes[http.StatusTooManyRequests])
}
