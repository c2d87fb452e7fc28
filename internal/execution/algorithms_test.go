package execution

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/domain"
)

func staticMarket(volume float64, spreadPct float64) MarketFunc {
	return func(_, _ string) MarketSnapshot {
		return MarketSnapshot{
			Volume:    decimal.NewFromFloat(volume),
			SpreadPct: spreadPct,
		}
	}
}

func TestVWAPTradesParticipationOfVolume(t *testing.T) {
	a := NewVWAP(time.Second, 0.5, 0, staticMarket(10, 0.1), testLogger())

	var calls int
	trades, err := a.Execute(context.Background(), testOrder(20), fullFill(&calls))
	require.NoError(t, err)

	// 50% of a steady 10 volume = 5 per poll; 20 total needs 4 polls.
	require.Len(t, trades, 4)
	for _, tr := range trades {
		assert.True(t, tr.Quantity.Equal(decimal.NewFromInt(5)), "got %s", tr.Quantity)
	}
	assert.True(t, totalQuantity(trades).Equal(decimal.NewFromInt(20)))
}

func TestVWAPDeadlineReturnsPartial(t *testing.T) {
	// Zero-volume market: no slice can ever fill, so the duration runs out.
	a := NewVWAP(30*time.Millisecond, 0.5, 5*time.Millisecond, staticMarket(0, 0.1), testLogger())

	var calls int
	trades, err := a.Execute(context.Background(), testOrder(20), fullFill(&calls))
	require.ErrorIs(t, err, domain.ErrDeadline)
	assert.Empty(t, trades)
	assert.Zero(t, calls, "zero-quantity slices are never submitted")
}

func TestShortfallEvenSplitWithZeroKappa(t *testing.T) {
	a := NewShortfall(0, 4, 0, 0, testLogger())

	var calls int
	trades, err := a.Execute(context.Background(), testOrder(100), fullFill(&calls))
	require.NoError(t, err)
	require.Len(t, trades, 4)
	for _, tr := range trades {
		assert.True(t, tr.Quantity.Equal(decimal.NewFromInt(25)), "got %s", tr.Quantity)
	}
}

func TestShortfallFrontLoadsWithPositiveKappa(t *testing.T) {
	a := NewShortfall(0, 4, 2.0, 0.5, testLogger()) // kappa = 1.0

	var calls int
	trades, err := a.Execute(context.Background(), testOrder(100), fullFill(&calls))
	require.NoError(t, err)
	require.Len(t, trades, 4)

	// A decaying trajectory trades more in earlier periods.
	for i := 1; i < len(trades); i++ {
		assert.True(t, trades[i].Quantity.LessThanOrEqual(trades[i-1].Quantity),
			"slice %d (%s) should not exceed slice %d (%s)",
			i, trades[i].Quantity, i-1, trades[i-1].Quantity)
	}
	assert.InDelta(t, 100, totalQuantity(trades).InexactFloat64(), 1e-6)
}

func TestPOVTracksMovingAverageVolume(t *testing.T) {
	// Volume ramps 10, 20, 30, ...: the moving average lags the spot value.
	var sample int
	market := func(_, _ string) MarketSnapshot {
		sample++
		return MarketSnapshot{Volume: decimal.NewFromInt(int64(10 * sample)), SpreadPct: 0.1}
	}
	a := NewPOV(time.Second, 0.5, 0, market, testLogger())

	var calls int
	trades, err := a.Execute(context.Background(), testOrder(30), fullFill(&calls))
	require.NoError(t, err)

	// Poll 1: avg 10 -> trade 5. Poll 2: avg 15 -> 7.5. Poll 3: avg 20 -> 10.
	// Poll 4: avg 25 -> capped at remaining 7.5.
	require.Len(t, trades, 4)
	assert.True(t, trades[0].Quantity.Equal(decimal.NewFromInt(5)), "got %s", trades[0].Quantity)
	assert.True(t, trades[1].Quantity.Equal(decimal.NewFromFloat(7.5)), "got %s", trades[1].Quantity)
	assert.True(t, trades[2].Quantity.Equal(decimal.NewFromInt(10)), "got %s", trades[2].Quantity)
	assert.True(t, totalQuantity(trades).Equal(decimal.NewFromInt(30)))
}

func TestAdaptiveCompletesOrder(t *testing.T) {
	a := NewAdaptive(time.Second, 0.5, 0, staticMarket(10, 0.05), testLogger())

	var calls int
	trades, err := a.Execute(context.Background(), testOrder(50), fullFill(&calls))
	require.NoError(t, err)
	require.NotEmpty(t, trades)
	assert.InDelta(t, 50, totalQuantity(trades).InexactFloat64(), 1e-6)
}

func TestAdaptiveCancellation(t *testing.T) {
	a := NewAdaptive(time.Minute, 0.0, 50*time.Millisecond, staticMarket(0.1, 0.9), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	inner := fullFill(&calls)
	fill := func(c context.Context, o Order, qty decimal.Decimal) (*domain.Trade, error) {
		tr, err := inner(c, o, qty)
		if calls == 1 {
			cancel()
		}
		return tr, err
	}

	trades, err := a.Execute(ctx, testOrder(1000), fill)
	require.ErrorIs(t, err, domain.ErrCancelled)
	assert.Len(t, trades, 1)
}

func TestAlgorithmDeadlineViaContext(t *testing.T) {
	a := NewTWAP(time.Minute, 5, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var calls int
	trades, err := a.Execute(ctx, testOrder(100), fullFill(&calls))
	require.ErrorIs(t, err, domain.ErrDeadline)
	assert.NotEmpty(t, trades, "fills before the deadline are kept")
}
