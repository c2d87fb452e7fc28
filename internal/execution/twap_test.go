package execution

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testOrder(qty float64) Order {
	return Order{
		OpportunityID: "opp-1",
		ActionID:      "act-1",
		Exchange:      "alpha",
		Symbol:        "BTC/USDT",
		Side:          domain.OrderSideBuy,
		Quantity:      decimal.NewFromFloat(qty),
		Price:         decimal.NewFromInt(100),
		OrderType:     domain.OrderTypeLimit,
	}
}

// fullFill answers every slice with a complete fill at the order price.
func fullFill(calls *int) FillFunc {
	return func(_ context.Context, o Order, qty decimal.Decimal) (*domain.Trade, error) {
		*calls++
		return &domain.Trade{
			ID:            "t",
			OpportunityID: o.OpportunityID,
			ActionID:      o.ActionID,
			Exchange:      o.Exchange,
			Symbol:        o.Symbol,
			Side:          o.Side,
			Quantity:      qty,
			Price:         o.Price,
			Status:        domain.TradeStatusFilled,
			Timestamp:     time.Now(),
		}, nil
	}
}

func totalQuantity(trades []domain.Trade) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.Quantity)
	}
	return total
}

func TestTWAPSlicesSumExactly(t *testing.T) {
	a := NewTWAP(0, 5, testLogger())

	var calls int
	trades, err := a.Execute(context.Background(), testOrder(100), fullFill(&calls))
	require.NoError(t, err)

	assert.Equal(t, 5, calls, "exactly one fill callback per slice")
	require.Len(t, trades, 5)
	assert.True(t, totalQuantity(trades).Equal(decimal.NewFromInt(100)),
		"slice quantities must sum to the order quantity, got %s", totalQuantity(trades))
}

func TestTWAPLastSliceAbsorbsRemainder(t *testing.T) {
	a := NewTWAP(0, 3, testLogger())

	var calls int
	trades, err := a.Execute(context.Background(), testOrder(10), fullFill(&calls))
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.True(t, totalQuantity(trades).Equal(decimal.NewFromInt(10)),
		"10/3 splits must still sum to 10, got %s", totalQuantity(trades))
}

func TestTWAPSkipsMissedSlice(t *testing.T) {
	a := NewTWAP(0, 5, testLogger())

	var calls int
	inner := fullFill(&calls)
	fill := func(ctx context.Context, o Order, qty decimal.Decimal) (*domain.Trade, error) {
		if calls == 1 { // second slice produces no fill
			calls++
			return nil, nil
		}
		return inner(ctx, o, qty)
	}

	trades, err := a.Execute(context.Background(), testOrder(100), fill)
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
	assert.Len(t, trades, 4, "missed slice is skipped, not retried")
}

func TestTWAPCancellationReturnsPartialFills(t *testing.T) {
	a := NewTWAP(time.Minute, 5, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	inner := fullFill(&calls)
	fill := func(c context.Context, o Order, qty decimal.Decimal) (*domain.Trade, error) {
		tr, err := inner(c, o, qty)
		if calls == 2 {
			cancel() // cancel while the algorithm sleeps before slice 3
		}
		return tr, err
	}

	trades, err := a.Execute(ctx, testOrder(100), fill)
	require.ErrorIs(t, err, domain.ErrCancelled)
	assert.Len(t, trades, 2, "fills collected before cancellation are returned")
	assert.Equal(t, 2, calls)
}

func TestTWAPZeroSlicesCoercedToOne(t *testing.T) {
	a := NewTWAP(0, 0, testLogger())

	var calls int
	trades, err := a.Execute(context.Background(), testOrder(7), fullFill(&calls))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(decimal.NewFromInt(7)))
}
