package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantarb/arbot/internal/domain"
)

// OpportunityHandler serves the persisted opportunity journal. The journal is
// nil when PostgreSQL is disabled; endpoints then return 503.
type OpportunityHandler struct {
	journal domain.OpportunityJournal
	logger  *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler. journal may be nil.
func NewOpportunityHandler(journal domain.OpportunityJournal, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		journal: journal,
		logger:  logger.With(slog.String("handler", "opportunities")),
	}
}

// ListRecent responds with the newest detected opportunities.
// GET /api/opportunities?limit=50
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "opportunity journal not configured")
		return
	}

	opts := parseListOpts(r)
	opps, err := h.journal.ListRecent(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list opportunities failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": opps,
		"count":         len(opps),
	})
}
