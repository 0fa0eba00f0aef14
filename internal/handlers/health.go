package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/httpx"
)

const (
	healthStatusOK       = "ok"
	healthStatusDegraded = "degraded"

	defaultCheckTimeout = 2 * time.Second
)

// ReadinessCheck probes one dependency. A nil error means ready.
type ReadinessCheck func(ctx context.Context) error

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	now          func() time.Time
	startedAt    time.Time
	environment  string
	checkTimeout time.Duration
	names        []string
	checks       map[string]ReadinessCheck
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers constructs health handlers with the provided options.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		now:          time.Now,
		checkTimeout: defaultCheckTimeout,
		checks:       make(map[string]ReadinessCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.startedAt.IsZero() {
		h.startedAt = h.now()
	}
	sort.Strings(h.names)
	return h
}

// WithHealthClock overrides the clock used for uptime and timestamps.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.now = clock
		}
	}
}

// WithHealthStartedAt records the process start time.
func WithHealthStartedAt(at time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.startedAt = at
	}
}

// WithHealthEnvironment labels responses with the deployment environment.
func WithHealthEnvironment(env string) HealthOption {
	return func(h *HealthHandlers) {
		h.environment = env
	}
}

// WithReadinessCheck registers a named dependency probe for /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandlers) {
		if name == "" || check == nil {
			return
		}
		if _, exists := h.checks[name]; !exists {
			h.names = append(h.names, name)
		}
		h.checks[name] = check
	}
}

// WithReadinessTimeout bounds each readiness probe.
func WithReadinessTimeout(timeout time.Duration) HealthOption {
	return func(h *HealthHandlers) {
		if timeout > 0 {
			h.checkTimeout = timeout
		}
	}
}

// Healthz reports liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	payload := map[string]any{
		"status":    healthStatusOK,
		"uptime":    now.Sub(h.startedAt).String(),
		"timestamp": now.Format(time.RFC3339),
	}
	if h.environment != "" {
		payload["environment"] = h.environment
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

type readinessCheckPayload struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

type readinessPayload struct {
	Status    string                           `json:"status"`
	Timestamp string                           `json:"timestamp"`
	Checks    map[string]readinessCheckPayload `json:"checks"`
	Details   []string                         `json:"details,omitempty"`
}

// Readyz runs every registered probe and answers 503 when any of them fails.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	payload := readinessPayload{
		Status: healthStatusOK,
		Checks: make(map[string]readinessCheckPayload, len(h.names)),
	}
	for _, name := range h.names {
		start := h.now()
		ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
		err := h.checks[name](ctx)
		cancel()

		result := readinessCheckPayload{
			Status:    healthStatusOK,
			LatencyMS: h.now().Sub(start).Milliseconds(),
		}
		if err != nil {
			result.Status = healthStatusDegraded
			result.Error = err.Error()
			payload.Status = healthStatusDegraded
			payload.Details = append(payload.Details, name+": "+err.Error())
		}
		payload.Checks[name] = result
	}
	payload.Timestamp = h.now().UTC().Format(time.RFC3339)

	status := http.StatusOK
	if payload.Status != healthStatusOK {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, payload)
}
