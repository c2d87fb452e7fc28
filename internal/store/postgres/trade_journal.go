package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantarb/arbot/internal/domain"
)

// TradeJournal implements domain.TradeJournal using PostgreSQL.
type TradeJournal struct {
	pool *pgxpool.Pool
}

// NewTradeJournal creates a TradeJournal backed by the given pool.
func NewTradeJournal(pool *pgxpool.Pool) *TradeJournal {
	return &TradeJournal{pool: pool}
}

const tradeSelectCols = `id, opportunity_id, action_id, exchange, symbol, side,
	quantity, price, status, fees, execution_latency, executed_at`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var latencyNs int64
		if err := rows.Scan(
			&t.ID, &t.OpportunityID, &t.ActionID, &t.Exchange, &t.Symbol,
			&t.Side, &t.Quantity, &t.Price, &t.Status, &t.Fees,
			&latencyNs, &t.Timestamp,
		); err != nil {
			return nil, err
		}
		t.ExecutionLatency = time.Duration(latencyNs)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// InsertBatch inserts fills efficiently using pgx Batch. Re-inserting the
// same trade id is silently skipped via ON CONFLICT DO NOTHING.
func (s *TradeJournal) InsertBatch(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO trades (
			id, opportunity_id, action_id, exchange, symbol, side,
			quantity, price, status, fees, execution_latency, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12
		) ON CONFLICT (id) DO NOTHING`

	for _, t := range trades {
		batch.Queue(query,
			t.ID, t.OpportunityID, t.ActionID, t.Exchange, t.Symbol,
			string(t.Side), t.Quantity, t.Price, string(t.Status), t.Fees,
			int64(t.ExecutionLatency), t.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListByOpportunity returns all fills for one opportunity, oldest first.
func (s *TradeJournal) ListByOpportunity(ctx context.Context, opportunityID string) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE opportunity_id = $1 ORDER BY executed_at ASC`
	rows, err := s.pool.Query(ctx, query, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by opportunity: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by opportunity: %w", err)
	}
	return trades, nil
}

// ListRecent returns fills newest first with pagination and optional time
// filtering.
func (s *TradeJournal) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE TRUE`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND executed_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND executed_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY executed_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent trades: %w", err)
	}
	return trades, nil
}

// ListBefore returns all fills executed strictly before the given time, for
// archiving.
func (s *TradeJournal) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE executed_at < $1 ORDER BY executed_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes fills executed before the given time and returns the
// number deleted.
func (s *TradeJournal) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE executed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.TradeJournal = (*TradeJournal)(nil)
