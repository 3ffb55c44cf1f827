package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/zkauth/pkg/store"
)

// healthCheckTimeout bounds the store probe so a hung backend cannot wedge
// the readiness endpoint.
const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the account store reachable?
type HealthHandler struct {
	store store.Store
}

// NewHealthHandler creates a new health handler.
//
// The store parameter may be nil, in which case the readiness check
// returns unhealthy status.
func NewHealthHandler(st store.Store) *HealthHandler {
	return &HealthHandler{store: st}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running. This endpoint is designed
// for Kubernetes liveness probes and should always succeed as long as the
// HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "zkauthd",
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK if the account store answers a health check, 503 Service
// Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("store not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := h.store.HealthCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("store unavailable: "+err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"store_latency": time.Since(start).String(),
	}))
}
