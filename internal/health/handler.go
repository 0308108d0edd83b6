// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

// Dependency is one named backend checked by the readiness endpoint.
type Dependency struct {
	Name    string
	Checker Checker
}

type Handler struct {
	version  string
	deps     []Dependency
	ready    atomic.Bool
	shutdown atomic.Bool
}

func NewHandler(version string, deps ...Dependency) *Handler {
	h := &Handler{
		version: version,
		deps:    deps,
	}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.shutdown.Load() {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status:  "shutting_down",
			Version: h.version,
		})
		return
	}

	writeStatus(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Readiness checks every dependency in parallel. Any failed check makes the
// instance not ready so the load balancer stops routing learners to it.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.shutdown.Load():
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status:  "shutting_down",
			Version: h.version,
		})
		return
	case !h.ready.Load():
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status:  "not_ready",
			Version: h.version,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := h.checkAll(ctx)

	status, code := "ok", http.StatusOK
	for _, c := range checks {
		if !c.Healthy {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}

	writeStatus(w, code, ReadinessResponse{
		Status:  status,
		Version: h.version,
		Checks:  checks,
	})
}

func (h *Handler) checkAll(ctx context.Context) []Check {
	var wg sync.WaitGroup
	checks := make([]Check, len(h.deps))

	for i, dep := range h.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = ping(ctx, dep)
		}()
	}

	wg.Wait()
	return checks
}

func ping(ctx context.Context, dep Dependency) Check {
	check := Check{Name: dep.Name, Healthy: true}

	if dep.Checker == nil {
		check.Healthy = false
		check.Message = "not configured"
		return check
	}

	start := time.Now()
	err := dep.Checker.Ping(ctx)
	check.Latency = time.Since(start).String()

	if err != nil {
		check.Healthy = false
		check.Message = "ping failed"
	}

	return check
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type ReadinessResponse struct {
	Status  string  `json:"status"`
	Version string  `json:"version,omitempty"`
	Checks  []Check `json:"checks"`
}

type Check struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
