package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/domain"
)

// povWindow caps the volume moving average at the last 10 samples.
const povWindow = 10

// POV trades a target percentage of the moving-average market volume each
// poll. The average warms up as samples arrive, so early slices track the
// first observations and later ones smooth out bursts.
type POV struct {
	duration         time.Duration
	targetPercentage decimal.Decimal
	pollInterval     time.Duration
	market           MarketFunc
	logger           *slog.Logger
}

// NewPOV creates a percentage-of-volume algorithm.
func NewPOV(duration time.Duration, targetPercentage float64, pollInterval time.Duration, market MarketFunc, logger *slog.Logger) *POV {
	return &POV{
		duration:         duration,
		targetPercentage: decimal.NewFromFloat(targetPercentage),
		pollInterval:     pollInterval,
		market:           market,
		logger:           logger.With(slog.String("component", "execution.pov")),
	}
}

func (a *POV) Name() string { return "pov" }

func (a *POV) Execute(ctx context.Context, o Order, fill FillFunc) ([]domain.Trade, error) {
	deadline := time.Now().Add(a.duration)
	remaining := o.Quantity
	var trades []domain.Trade
	var samples []decimal.Decimal

	for remaining.IsPositive() {
		if err := exitErr(ctx); err != nil {
			return trades, err
		}
		if time.Now().After(deadline) {
			return trades, domain.ErrDeadline
		}

		snap := a.market(o.Exchange, o.Symbol)
		samples = append(samples, snap.Volume)
		if len(samples) > povWindow {
			samples = samples[len(samples)-povWindow:]
		}

		avg := decimal.Zero
		for _, s := range samples {
			avg = avg.Add(s)
		}
		avg = avg.Div(decimal.NewFromInt(int64(len(samples))))

		qty := decimal.Min(avg.Mul(a.targetPercentage), remaining)
		if qty.IsPositive() {
			trade, err := fill(ctx, o, qty)
			if err != nil {
				a.logger.Warn("slice fill failed", slog.String("error", err.Error()))
			} else if trade != nil {
				trades = append(trades, *trade)
				remaining = remaining.Sub(trade.Quantity)
			}
		}

		if remaining.IsPositive() && !sleep(ctx, a.pollInterval) {
			return trades, exitErr(ctx)
		}
	}

	return trades, nil
}
