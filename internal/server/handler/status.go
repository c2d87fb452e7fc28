package handler

import (
	"net/http"
	"time"

	"github.com/quantarb/arbot/internal/orchestrator"
)

// StatusSource provides a point-in-time snapshot of the engine's counters.
type StatusSource interface {
	Status() orchestrator.Status
}

// StatusHandler serves the engine status for dashboards.
type StatusHandler struct {
	source    StatusSource
	mode      string
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler over the given snapshot source.
func NewStatusHandler(source StatusSource, mode string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{
		source:    source,
		mode:      mode,
		startedAt: startedAt,
	}
}

// GetStatus responds with the engine mode, uptime, and per-agent counters.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not running")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"engine":         h.source.Status(),
	})
}
