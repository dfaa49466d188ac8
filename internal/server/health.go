package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker serves the Kubernetes liveness and readiness checks for the MCP HTTP server.
// The TaskFlow API is reported but never called: an unreachable upstream
// surfaces as tool errors, not as a failing pod.
type HealthChecker struct {
	ready     atomic.Bool
	sc        *ServerContext
	startedAt time.Time
}

// NewHealthChecker creates a HealthChecker that starts out ready.
// sc may be nil.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, startedAt: time.Now()}
	h.ready.Store(true)
	return h
}

// SetReady flips the readiness state, e.g. false while draining.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness state.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	ActiveSessions int    `json:"active_sessions"`
	Upstream       string `json:"upstream,omitempty"`
}

// RegisterHealthEndpoints mounts the health handlers on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// LivenessHandler answers /healthz. It only proves the process serves HTTP.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealthJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers /readyz with 503 while the server is not ready
// or its context has been shut down.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status: healthStatusOK,
			Checks: map[string]string{
				"ready":    healthStatusOK,
				"shutdown": healthStatusOK,
			},
		}
		if !h.IsReady() {
			resp.Checks["ready"] = healthStatusNotReady
		}
		if h.shuttingDown() {
			resp.Checks["shutdown"] = healthStatusShuttingDown
		}

		code := http.StatusOK
		if status := h.status(); status != healthStatusOK {
			resp.Status = healthStatusNotReady
			code = http.StatusServiceUnavailable
		}
		writeHealthJSON(w, code, resp)
	})
}

// DetailedHealthHandler answers /healthz/detailed with uptime, the number
// of tracked MCP sessions and the upstream tasks URL.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := DetailedHealthResponse{
			Status: h.status(),
			Uptime: time.Since(h.startedAt).Truncate(time.Second).String(),
		}
		if h.sc != nil {
			resp.ActiveSessions = h.sc.Sessions().Count()
			resp.Upstream = h.sc.Fetcher().TasksURL()
		}

		code := http.StatusOK
		if resp.Status != healthStatusOK {
			code = http.StatusServiceUnavailable
		}
		writeHealthJSON(w, code, resp)
	})
}

// status folds readiness and shutdown into one value; not ready wins.
func (h *HealthChecker) status() string {
	switch {
	case !h.IsReady():
		return healthStatusNotReady
	case h.shuttingDown():
		return healthStatusShuttingDown
	default:
		return healthStatusOK
	}
}

func (h *HealthChecker) shuttingDown() bool {
	return h.sc != nil && h.sc.IsShutdown()
}

func writeHealthJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
