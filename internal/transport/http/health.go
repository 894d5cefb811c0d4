package httptransport

import (
	"context"
	"net/http"
	"sort"
	"time"

	"gonogo/pkg/platform/httputil"
)

const healthCheckTimeout = 2 * time.Second

// Check probes one backing dependency.
type Check func(ctx context.Context) error

// Health serves GET /v1/health.
type Health struct {
	started  time.Time
	mockMode bool
	checks   map[string]Check
	now      func() time.Time
}

// HealthResponse is the body of GET /v1/health.
type HealthResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	MockMode      bool              `json:"mock_mode"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// NewHealth records the process start time. checks may be nil.
func NewHealth(started time.Time, mockMode bool, checks map[string]Check) *Health {
	return &Health{
		started:  started,
		mockMode: mockMode,
		checks:   checks,
		now:      time.Now,
	}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
		MockMode:      h.mockMode,
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "up"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}
