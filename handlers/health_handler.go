package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/smotta/flow-rag-api/utils"
	"go.uber.org/zap"
)

// FlowProber reports whether the Flow API is reachable and serving.
// Satisfied by *gateway.Service.
type FlowProber interface {
	HealthCheck(ctx context.Context) bool
}

// AuditProber reports audit database connectivity. Satisfied by
// *postgres.DB.
type AuditProber interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	flow   FlowProber
	audit  AuditProber // nil when audit persistence is disabled
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(flow FlowProber, audit AuditProber, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		flow:   flow,
		audit:  audit,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz.
// Liveness only: returns 200 whenever the process is serving.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz.
// Probes the Flow API and, when configured, the audit database.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.flow != nil && h.flow.HealthCheck(ctx) {
		checks["flow_api"] = "healthy"
	} else {
		h.logger.Warn("flow api health check failed")
		checks["flow_api"] = "unhealthy"
		allHealthy = false
	}

	if h.audit != nil {
		if err := h.audit.HealthCheck(ctx); err != nil {
			h.logger.Warn("audit database health check failed", zap.Error(err))
			checks["audit_database"] = "unhealthy"
			allHealthy = false
		} else {
			checks["audit_database"] = "healthy"
		}
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if !allHealthy {
		response.Status = "unhealthy"
		_ = utils.WriteJSON(w, http.StatusServiceUnavailable, utils.SuccessResponse{Data: response})
		return
	}

	_ = utils.WriteOK(w, response)
}
