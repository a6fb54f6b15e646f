package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

// Version is reported by the status endpoint
const Version = "0.1.0"

// ErrNotInitialized is returned by a check whose dependency was never constructed
var ErrNotInitialized = errors.New("not initialized")

// HealthCheckFunc probes one dependency
type HealthCheckFunc func(ctx context.Context) error

type healthCheck struct {
	name     string
	critical bool
	fn       HealthCheckFunc
}

// HealthHandler handles liveness, readiness and status requests
type HealthHandler struct {
	environment string
	checks      []healthCheck
	timeout     time.Duration
	logger      *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(environment string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		environment: environment,
		timeout:     2 * time.Second,
		logger:      logger,
	}
}

// AddCheck registers a readiness probe. A failing critical probe makes the
// service not ready; a failing optional one only degrades it.
func (h *HealthHandler) AddCheck(name string, critical bool, fn HealthCheckFunc) {
	h.checks = append(h.checks, healthCheck{name: name, critical: critical, fn: fn})
}

// HandleHealth handles GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeOrLog(utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}), h.logger)
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := "ready"
	checks := make(map[string]string, len(h.checks))

	for _, c := range h.checks {
		err := c.fn(ctx)
		switch {
		case err == nil:
			checks[c.name] = "healthy"
			continue
		case errors.Is(err, ErrNotInitialized):
			checks[c.name] = "not_initialized"
		default:
			checks[c.name] = "unhealthy"
			h.logger.Warn("readiness check failed", zap.String("check", c.name), zap.Error(err))
		}

		if c.critical {
			status = "not_ready"
		} else if status == "ready" {
			status = "degraded"
		}
	}

	code := http.StatusOK
	if status == "not_ready" {
		code = http.StatusServiceUnavailable
	}

	writeOrLog(utils.WriteJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}), h.logger)
}

// HandleStatus handles GET /api/v1/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeOrLog(utils.WriteJSON(w, http.StatusOK, map[string]string{
		"version":     Version,
		"environment": h.environment,
	}), h.logger)
}
