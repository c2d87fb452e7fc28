// Package execution schedules admitted orders into timed slices via five
// algorithms (TWAP, VWAP, implementation shortfall, POV, adaptive) and runs
// multi-leg plans through the engine. Sleeping between slices is the only
// blocking point; every algorithm stops issuing slices on cancellation or
// deadline and returns whatever fills it already collected.
package execution

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/domain"
)

// Order is one leg to be worked by an algorithm.
type Order struct {
	OpportunityID string
	ActionID      string
	Exchange      string
	Symbol        string
	Side          domain.OrderSide
	Quantity      decimal.Decimal
	Price         decimal.Decimal // reference price for limit slices
	OrderType     domain.OrderType
}

// FillFunc submits one slice of the order to the venue. A (nil, nil) return
// means the venue produced no fill for this slice; algorithms skip the slice
// and continue. Algorithms never retry a slice.
type FillFunc func(ctx context.Context, o Order, qty decimal.Decimal) (*domain.Trade, error)

// Algorithm works an order to completion, cancellation, or deadline. The
// returned trades are whatever filled, even on early exit.
type Algorithm interface {
	Name() string
	Execute(ctx context.Context, o Order, fill FillFunc) ([]domain.Trade, error)
}

// MarketSnapshot is a point-in-time view of venue conditions, sampled by
// the volume-sensitive algorithms between slices.
type MarketSnapshot struct {
	Volume    decimal.Decimal // size available at the touch
	SpreadPct float64
}

// MarketFunc samples current market conditions for an order's venue/symbol.
type MarketFunc func(exchange, symbol string) MarketSnapshot

// sleep blocks for d or until the context is done, reporting whether the
// full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// exitErr maps a context's end state onto the domain sentinels.
func exitErr(ctx context.Context) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return domain.ErrDeadline
	case context.Canceled:
		return domain.ErrCancelled
	default:
		return nil
	}
}
