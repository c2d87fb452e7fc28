package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantarb/arbot/internal/domain"
)

// TradeHandler serves the persisted trade journal. The journal is nil when
// PostgreSQL is disabled; endpoints then return 503.
type TradeHandler struct {
	journal domain.TradeJournal
	logger  *slog.Logger
}

// NewTradeHandler creates a TradeHandler. journal may be nil.
func NewTradeHandler(journal domain.TradeJournal, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		journal: journal,
		logger:  logger.With(slog.String("handler", "trades")),
	}
}

// ListRecent responds with recent fills, newest first. Supports limit,
// offset, since, and until query parameters.
// GET /api/trades
func (h *TradeHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "trade journal not configured")
		return
	}

	trades, err := h.journal.ListRecent(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"count":  len(trades),
	})
}

// ListByOpportunity responds with all fills for one opportunity, oldest
// first.
// GET /api/opportunities/{id}/trades
func (h *TradeHandler) ListByOpportunity(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "trade journal not configured")
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing opportunity id")
		return
	}

	trades, err := h.journal.ListByOpportunity(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades by opportunity failed",
			slog.String("opportunity_id", id),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"opportunity_id": id,
		"trades":         trades,
		"count":          len(trades),
	})
}
