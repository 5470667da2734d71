// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jensholdgaard/player-auction/internal/clock"
)

// Status represents a health check result.
type Status struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Checker defines a named health check function.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler provides HTTP health check endpoints.
type Handler struct {
	mu       sync.RWMutex
	ready    bool
	checkers []Checker
	clock    clock.Clock
}

// NewHandler creates a new health handler with the given checkers.
func NewHandler(clk clock.Clock, checkers ...Checker) *Handler {
	return &Handler{checkers: checkers, clock: clk}
}

// SetReady marks the service as ready to receive traffic. Only the
// instance that owns auction state is ready.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// Ready reports the flag set by SetReady.
func (h *Handler) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// LivenessHandler returns HTTP 200 if the process is alive.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.status("ok", nil))
	}
}

// ReadinessHandler returns HTTP 200 if the service is ready and every
// checker passes.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, h.status("not_ready", nil))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks, allOK := h.run(ctx)
		if !allOK {
			writeJSON(w, http.StatusServiceUnavailable, h.status("not_ready", checks))
			return
		}
		writeJSON(w, http.StatusOK, h.status("ready", checks))
	}
}

func (h *Handler) run(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true
	for _, c := range h.checkers {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			allOK = false
			continue
		}
		checks[c.Name] = "ok"
	}
	return checks, allOK
}

func (h *Handler) status(s string, checks map[string]string) Status {
	return Status{
		Status:    s,
		Checks:    checks,
		Timestamp: h.clock.Now().UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
