package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/taskflow-mcp/internal/taskflow"
)

func newHealthTestContext(t *testing.T) *ServerContext {
	t.Helper()
	fetcher, err := taskflow.NewFetcher(taskflow.Config{BaseURL: "http://localhost:3000/api/"})
	require.NoError(t, err)
	sc, err := NewServerContext(context.Background(), fetcher, nil)
	require.NoError(t, err)
	return sc
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)
	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthChecker_Readiness(t *testing.T) {
	sc := newHealthTestContext(t)
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.SetReady(false)
	rec = httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReady(true)
	require.NoError(t, sc.Shutdown())
	rec = httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusShuttingDown, resp.Checks["shutdown"])
}

func TestHealthChecker_Detailed(t *testing.T) {
	sc := newHealthTestContext(t)
	tracker := NewSessionTracker(time.Hour, nil, nil)
	sc.SetSessionTracker(tracker)
	t.Cleanup(func() { _ = sc.Shutdown() })

	tracker.Touch(context.Background(), "session-1")

	h := NewHealthChecker(sc)
	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusOK, resp.Status)
	assert.Equal(t, 1, resp.ActiveSessions)
	assert.Equal(t, "http://localhost:3000/api/tasks", resp.Upstream)
	assert.NotEmpty(t, resp.Uptime)
}

func TestServerContext(t *testing.T) {
	_, err := NewServerContext(context.Background(), nil, nil)
	assert.Error(t, err)

	sc := newHealthTestContext(t)
	assert.NotNil(t, sc.Fetcher())
	assert.NotNil(t, sc.Logger())
	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())
	assert.Nil(t, sc.Sessions())
	assert.False(t, sc.IsShutdown())

	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
}
