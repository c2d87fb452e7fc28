package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantarb/arbot/internal/domain"
)

// OpportunityJournal implements domain.OpportunityJournal using PostgreSQL.
// Only the scalar summary of each opportunity is persisted; source quotes
// and the action plan stay in memory and on the signal bus.
type OpportunityJournal struct {
	pool *pgxpool.Pool
}

// NewOpportunityJournal creates an OpportunityJournal backed by the pool.
func NewOpportunityJournal(pool *pgxpool.Pool) *OpportunityJournal {
	return &OpportunityJournal{pool: pool}
}

const oppSelectCols = `id, strategy, symbol, detected_at, expected_profit,
	expected_profit_pct, confidence, risk, detection_latency, legs`

func scanOpportunityRows(rows pgx.Rows) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	for rows.Next() {
		var o domain.Opportunity
		var latencyNs int64
		var legs int
		if err := rows.Scan(
			&o.ID, &o.Strategy, &o.Symbol, &o.Timestamp,
			&o.ExpectedProfit, &o.ExpectedProfitPct,
			&o.Confidence, &o.Risk, &latencyNs, &legs,
		); err != nil {
			return nil, err
		}
		o.DetectionLatency = time.Duration(latencyNs)
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

// Insert records a detected opportunity.
func (s *OpportunityJournal) Insert(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		INSERT INTO opportunities (
			id, strategy, symbol, detected_at, expected_profit,
			expected_profit_pct, confidence, risk, detection_latency, legs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, string(opp.Strategy), opp.Symbol, opp.Timestamp,
		opp.ExpectedProfit, opp.ExpectedProfitPct,
		opp.Confidence, opp.Risk, int64(opp.DetectionLatency), len(opp.Actions),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity: %w", err)
	}
	return nil
}

// MarkExecuted flags an opportunity whose plan produced fills.
func (s *OpportunityJournal) MarkExecuted(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET executed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: mark opportunity executed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: mark opportunity executed %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListRecent returns the newest opportunities first.
func (s *OpportunityJournal) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + oppSelectCols + ` FROM opportunities ORDER BY detected_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	opps, err := scanOpportunityRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent opportunities: %w", err)
	}
	return opps, nil
}

// ListBefore returns opportunities detected strictly before the given time,
// for archiving.
func (s *OpportunityJournal) ListBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities WHERE detected_at < $1 ORDER BY detected_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before: %w", err)
	}
	defer rows.Close()
	return scanOpportunityRows(rows)
}

// DeleteBefore deletes opportunities detected before the given time and
// returns the number deleted.
func (s *OpportunityJournal) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE detected_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.OpportunityJournal = (*OpportunityJournal)(nil)
