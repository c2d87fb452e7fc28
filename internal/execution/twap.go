package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/domain"
)

// TWAP slices the order into equal parts spaced evenly over the configured
// duration. The final slice absorbs any division remainder so the slice
// quantities sum exactly to the order quantity.
type TWAP struct {
	duration  time.Duration
	numSlices int
	logger    *slog.Logger
}

// NewTWAP creates a TWAP algorithm. numSlices below 1 is treated as 1.
func NewTWAP(duration time.Duration, numSlices int, logger *slog.Logger) *TWAP {
	if numSlices < 1 {
		numSlices = 1
	}
	return &TWAP{
		duration:  duration,
		numSlices: numSlices,
		logger:    logger.With(slog.String("component", "execution.twap")),
	}
}

func (a *TWAP) Name() string { return "twap" }

func (a *TWAP) Execute(ctx context.Context, o Order, fill FillFunc) ([]domain.Trade, error) {
	sliceQty := o.Quantity.Div(decimal.NewFromInt(int64(a.numSlices)))
	interval := a.duration / time.Duration(a.numSlices)

	var trades []domain.Trade
	remaining := o.Quantity

	for i := 0; i < a.numSlices; i++ {
		if err := exitErr(ctx); err != nil {
			return trades, err
		}

		qty := sliceQty
		if i == a.numSlices-1 {
			qty = remaining
		}
		if qty.IsPositive() {
			trade, err := fill(ctx, o, qty)
			if err != nil {
				a.logger.Warn("slice fill failed",
					slog.Int("slice", i+1),
					slog.String("error", err.Error()))
			} else if trade != nil {
				trades = append(trades, *trade)
				remaining = remaining.Sub(trade.Quantity)
			}
		}

		if i < a.numSlices-1 && !sleep(ctx, interval) {
			return trades, exitErr(ctx)
		}
	}

	return trades, nil
}
