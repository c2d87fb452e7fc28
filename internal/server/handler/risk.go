package handler

import (
	"net/http"

	"github.com/quantarb/arbot/internal/domain"
)

// RiskReporter exposes the risk manager's current counters.
type RiskReporter interface {
	Report() domain.RiskReport
}

// RiskHandler serves the risk manager snapshot.
type RiskHandler struct {
	reporter RiskReporter
}

// NewRiskHandler creates a RiskHandler over the given reporter.
func NewRiskHandler(reporter RiskReporter) *RiskHandler {
	return &RiskHandler{reporter: reporter}
}

// GetReport responds with current exposure, daily PnL, and utilization.
// GET /api/risk
func (h *RiskHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.reporter == nil {
		writeError(w, http.StatusServiceUnavailable, "risk manager not running")
		return
	}
	writeJSON(w, http.StatusOK, h.reporter.Report())
}
