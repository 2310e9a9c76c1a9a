package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/pos-register/internal/common"
)

// Checker probes a dependency for readiness.
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

// Name implements Checker.
func (c CheckFunc) Name() string { return c.Label }

// Ping implements Checker.
func (c CheckFunc) Ping(ctx context.Context) error { return c.Fn(ctx) }

var draining atomic.Bool

// SetReady toggles readiness; the server marks itself unready while draining
// connections on shutdown.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checkers []Checker
	Timeout  time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes. With no checkers the
// service is ready; registers live in process memory.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	status := map[string]string{}
	healthy := true
	for _, c := range h.Checkers {
		if c == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		err := c.Ping(ctx)
		cancel()
		if err != nil {
			status[c.Name()] = err.Error()
			healthy = false
			continue
		}
		status[c.Name()] = "ok"
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.Timeout
}
