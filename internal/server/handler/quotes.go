package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantarb/arbot/internal/domain"
)

// QuoteHandler serves the latest cached quotes per symbol. The cache is nil
// when Redis is disabled; endpoints then return 503.
type QuoteHandler struct {
	cache  domain.QuoteCache
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler. cache may be nil.
func NewQuoteHandler(cache domain.QuoteCache, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		cache:  cache,
		logger: logger.With(slog.String("handler", "quotes")),
	}
}

// GetSymbolQuotes responds with the latest quote from every exchange for one
// symbol. Symbols containing a slash must be URL-encoded (BTC%2FUSDT).
// GET /api/quotes/{symbol}
func (h *QuoteHandler) GetSymbolQuotes(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "quote cache not configured")
		return
	}

	symbol := pathParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	quotes, err := h.cache.GetSymbolQuotes(r.Context(), symbol)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "get symbol quotes failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to fetch quotes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"quotes": quotes,
		"count":  len(quotes),
	})
}
