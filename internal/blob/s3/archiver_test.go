package s3blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/domain"
)

type fakeWriter struct {
	puts map[string][]byte
	err  error
}

func (w *fakeWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if w.puts == nil {
		w.puts = map[string][]byte{}
	}
	w.puts[path] = buf
	return nil
}

type fakeTradeSource struct {
	trades  []domain.Trade
	deleted bool
}

func (s *fakeTradeSource) ListBefore(_ context.Context, _ time.Time) ([]domain.Trade, error) {
	return s.trades, nil
}

func (s *fakeTradeSource) DeleteBefore(_ context.Context, _ time.Time) (int64, error) {
	s.deleted = true
	return int64(len(s.trades)), nil
}

type fakeOppSource struct {
	opps    []domain.Opportunity
	deleted bool
}

func (s *fakeOppSource) ListBefore(_ context.Context, _ time.Time) ([]domain.Opportunity, error) {
	return s.opps, nil
}

func (s *fakeOppSource) DeleteBefore(_ context.Context, _ time.Time) (int64, error) {
	s.deleted = true
	return int64(len(s.opps)), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestArchiveTradesUploadsJSONLAndPrunes(t *testing.T) {
	writer := &fakeWriter{}
	trades := &fakeTradeSource{trades: []domain.Trade{
		{ID: "t-1", OpportunityID: "opp-1", Exchange: "alpha", Symbol: "BTC/USDT",
			Side: domain.OrderSideBuy, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)},
		{ID: "t-2", OpportunityID: "opp-1", Exchange: "beta", Symbol: "BTC/USDT",
			Side: domain.OrderSideSell, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(101)},
	}}

	a := NewArchiver(writer, trades, &fakeOppSource{}, testLogger())

	cutoff := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	count, err := a.ArchiveTrades(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.True(t, trades.deleted)

	body, ok := writer.puts["archive/trades/2026-08.jsonl"]
	require.True(t, ok, "expected upload at the month-partitioned path")

	lines := bytes.Split(bytes.TrimSpace(body), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.True(t, strings.Contains(string(lines[0]), `"t-1"`))
}

func TestArchiveTradesEmptyJournalSkipsUpload(t *testing.T) {
	writer := &fakeWriter{}
	trades := &fakeTradeSource{}

	a := NewArchiver(writer, trades, &fakeOppSource{}, testLogger())

	count, err := a.ArchiveTrades(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.False(t, trades.deleted)
	assert.Empty(t, writer.puts)
}

func TestArchiveTradesUploadFailureLeavesJournalIntact(t *testing.T) {
	writer := &fakeWriter{err: errors.New("bucket unavailable")}
	trades := &fakeTradeSource{trades: []domain.Trade{{ID: "t-1"}}}

	a := NewArchiver(writer, trades, &fakeOppSource{}, testLogger())

	_, err := a.ArchiveTrades(context.Background(), time.Now())
	require.Error(t, err)
	assert.False(t, trades.deleted, "rows must not be pruned when the upload fails")
}

func TestArchiveOpportunities(t *testing.T) {
	writer := &fakeWriter{}
	opps := &fakeOppSource{opps: []domain.Opportunity{
		{ID: "opp-1", Strategy: domain.StrategyCrossExchange, Symbol: "BTC/USDT"},
	}}

	a := NewArchiver(writer, &fakeTradeSource{}, opps, testLogger())

	cutoff := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	count, err := a.ArchiveOpportunities(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.True(t, opps.deleted)
	assert.Contains(t, writer.puts, "archive/opportunities/2026-07.jsonl")
}
