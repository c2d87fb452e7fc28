package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantarb/arbot/internal/domain"
)

// ArchiveHandler lists cold-storage archive objects. The reader is nil when
// object storage is disabled; endpoints then return 503.
type ArchiveHandler struct {
	reader domain.BlobReader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler. reader may be nil.
func NewArchiveHandler(reader domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		reader: reader,
		logger: logger.With(slog.String("handler", "archives")),
	}
}

// List responds with metadata for every archived JSONL object. An optional
// kind query parameter (trades or opportunities) narrows the prefix.
// GET /api/archives
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage not configured")
		return
	}

	prefix := "archive/"
	switch kind := r.URL.Query().Get("kind"); kind {
	case "":
	case "trades", "opportunities":
		prefix += kind + "/"
	default:
		writeError(w, http.StatusBadRequest, "kind must be trades or opportunities")
		return
	}

	infos, err := h.reader.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list archives failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"archives": infos,
		"count":    len(infos),
	})
}
