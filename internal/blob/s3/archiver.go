package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantarb/arbot/internal/domain"
)

// Narrow journal interfaces required by the archiver. The Postgres journals
// satisfy these through their ListBefore / DeleteBefore methods.

// TradeArchiveSource provides time-ranged access to the trade journal.
type TradeArchiveSource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OpportunityArchiveSource provides time-ranged access to the opportunity
// journal.
type OpportunityArchiveSource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver implements domain.Archiver by querying the journals for aged
// records, serializing them to JSONL, uploading the result to object storage,
// and pruning the archived rows. Rows are deleted only after the upload
// succeeds, so a failed upload leaves the journal intact.
type Archiver struct {
	writer        domain.BlobWriter
	trades        TradeArchiveSource
	opportunities OpportunityArchiveSource
	logger        *slog.Logger
}

// NewArchiver creates an Archiver over the journals and blob writer.
func NewArchiver(
	writer domain.BlobWriter,
	trades TradeArchiveSource,
	opportunities OpportunityArchiveSource,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		writer:        writer,
		trades:        trades,
		opportunities: opportunities,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveTrades uploads all fills executed before the cutoff to
// archive/trades/YYYY-MM.jsonl, prunes them from the journal, and returns the
// number of records archived.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	pruned, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades prune: %w", err)
	}

	a.logger.Info("archived trades",
		slog.String("path", path),
		slog.Int("uploaded", len(trades)),
		slog.Int64("pruned", pruned))

	return int64(len(trades)), nil
}

// ArchiveOpportunities uploads all opportunities detected before the cutoff
// to archive/opportunities/YYYY-MM.jsonl, prunes them from the journal, and
// returns the number of records archived.
func (a *Archiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	opps, err := a.opportunities.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}

	path := archivePath("opportunities", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	pruned, err := a.opportunities.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities prune: %w", err)
	}

	a.logger.Info("archived opportunities",
		slog.String("path", path),
		slog.Int("uploaded", len(opps)),
		slog.Int64("pruned", pruned))

	return int64(len(opps)), nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/trades/2026-08.jsonl
//	archive/opportunities/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.UTC().Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
