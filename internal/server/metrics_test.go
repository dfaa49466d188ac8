package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/taskflow-mcp/internal/instrumentation"
)

func TestNewMetricsServer(t *testing.T) {
	t.Run("default addr", func(t *testing.T) {
		s, err := NewMetricsServer(MetricsServerConfig{InstrumentationProvider: createTestProvider(t)})
		require.NoError(t, err)
		assert.Equal(t, DefaultMetricsAddr, s.Addr())
	})

	t.Run("configured addr", func(t *testing.T) {
		s, err := NewMetricsServer(MetricsServerConfig{Addr: ":9091", InstrumentationProvider: createTestProvider(t)})
		require.NoError(t, err)
		assert.Equal(t, ":9091", s.Addr())
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewMetricsServer(MetricsServerConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "instrumentation provider is required")
	})

	t.Run("disabled provider", func(t *testing.T) {
		_, err := NewMetricsServer(MetricsServerConfig{InstrumentationProvider: createDisabledProvider(t)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "instrumentation provider is not enabled")
	})
}

func TestMetricsServer_ServesMetrics(t *testing.T) {
	provider := createTestProvider(t)
	s, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    "127.0.0.1:0",
		InstrumentationProvider: provider,
	})
	require.NoError(t, err)

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.StartWithReadySignal(ready) }()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("metrics server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server startup timed out")
	}

	body, code := httpGet(t, "http://"+s.Addr()+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	provider.Metrics().RecordBearerToken(context.Background(), instrumentation.BearerResultPresent)
	body, code = httpGet(t, "http://"+s.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "bearer_token_total")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, http.ErrServerClosed), "unexpected serve error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after Shutdown")
	}
}

func TestMetricsServer_StartFailsOnBadAddr(t *testing.T) {
	s, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    "256.0.0.1:99999",
		InstrumentationProvider: createTestProvider(t),
	})
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestMetricsServer_ShutdownWithoutStart(t *testing.T) {
	s, err := NewMetricsServer(MetricsServerConfig{InstrumentationProvider: createTestProvider(t)})
	require.NoError(t, err)
	assert.NoError(t, s.Shutdown(context.Background()))
}

func httpGet(t *testing.T, url string) (string, int) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body), resp.StatusCode
}

func createTestProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func createDisabledProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{Enabled: false})
	require.NoError(t, err)
	return provider
}
