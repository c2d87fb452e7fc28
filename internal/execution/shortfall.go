package execution

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/domain"
)

// Shortfall implements an implementation-shortfall schedule: slice sizes
// decay exponentially with κ = risk_aversion · volatility, front-loading
// execution when urgency is high. With κ near zero the schedule degenerates
// to equal slices.
type Shortfall struct {
	duration     time.Duration
	periods      int
	riskAversion float64
	volatility   float64
	logger       *slog.Logger
}

// NewShortfall creates an implementation-shortfall algorithm.
func NewShortfall(duration time.Duration, periods int, riskAversion, volatility float64, logger *slog.Logger) *Shortfall {
	if periods < 1 {
		periods = 1
	}
	return &Shortfall{
		duration:     duration,
		periods:      periods,
		riskAversion: riskAversion,
		volatility:   volatility,
		logger:       logger.With(slog.String("component", "execution.shortfall")),
	}
}

func (a *Shortfall) Name() string { return "shortfall" }

func (a *Shortfall) Execute(ctx context.Context, o Order, fill FillFunc) ([]domain.Trade, error) {
	kappa := a.riskAversion * a.volatility
	interval := a.duration / time.Duration(a.periods)

	remaining := o.Quantity
	var trades []domain.Trade

	for t := 0; t < a.periods && remaining.IsPositive(); t++ {
		if err := exitErr(ctx); err != nil {
			return trades, err
		}

		qty := scheduleSlice(remaining, kappa, a.periods-t)
		if qty.IsPositive() {
			trade, err := fill(ctx, o, qty)
			if err != nil {
				a.logger.Warn("slice fill failed",
					slog.Int("period", t+1),
					slog.String("error", err.Error()))
			} else if trade != nil {
				trades = append(trades, *trade)
				remaining = remaining.Sub(trade.Quantity)
			}
		}

		if t < a.periods-1 && !sleep(ctx, interval) {
			return trades, exitErr(ctx)
		}
	}

	return trades, nil
}

// scheduleSlice returns the closed-form decaying trajectory slice:
// remaining·(1−e^−κ)/(1−e^−κ·periodsLeft). The last period takes everything
// that is left; κ=0 falls back to an even split.
func scheduleSlice(remaining decimal.Decimal, kappa float64, periodsLeft int) decimal.Decimal {
	if periodsLeft <= 1 {
		return remaining
	}
	denom := 1 - math.Exp(-kappa*float64(periodsLeft))
	if kappa <= 0 || denom == 0 {
		return remaining.Div(decimal.NewFromInt(int64(periodsLeft)))
	}
	frac := (1 - math.Exp(-kappa)) / denom
	return remaining.Mul(decimal.NewFromFloat(frac))
}
