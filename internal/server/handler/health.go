package handler

import (
	"net/http"
	"time"
)

// HealthHandler answers liveness probes. It is deliberately unauthenticated
// and touches no backend: a 200 means only that the process is serving.
type HealthHandler struct{}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HealthCheck responds with the service identity and the current time.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "arbot",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
