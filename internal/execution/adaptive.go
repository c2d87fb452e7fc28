package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/domain"
)

// Adaptive scales both slice size and poll interval with a combined urgency
// signal: market urgency (tight spread, deep volume means trade harder) and
// time urgency (rises linearly as the deadline approaches). Aggressiveness
// shifts the whole schedule toward larger slices.
type Adaptive struct {
	duration       time.Duration
	aggressiveness float64
	pollInterval   time.Duration
	market         MarketFunc
	logger         *slog.Logger
}

// NewAdaptive creates an adaptive algorithm. aggressiveness is expected in
// [0,1]; values outside are clamped.
func NewAdaptive(duration time.Duration, aggressiveness float64, pollInterval time.Duration, market MarketFunc, logger *slog.Logger) *Adaptive {
	if aggressiveness < 0 {
		aggressiveness = 0
	}
	if aggressiveness > 1 {
		aggressiveness = 1
	}
	return &Adaptive{
		duration:       duration,
		aggressiveness: aggressiveness,
		pollInterval:   pollInterval,
		market:         market,
		logger:         logger.With(slog.String("component", "execution.adaptive")),
	}
}

func (a *Adaptive) Name() string { return "adaptive" }

func (a *Adaptive) Execute(ctx context.Context, o Order, fill FillFunc) ([]domain.Trade, error) {
	start := time.Now()
	deadline := start.Add(a.duration)
	remaining := o.Quantity
	// Sweep the tail rather than chasing an ever-shrinking fraction.
	minRemainder := o.Quantity.Mul(decimal.NewFromFloat(0.01))
	var trades []domain.Trade

	for remaining.IsPositive() {
		if err := exitErr(ctx); err != nil {
			return trades, err
		}
		now := time.Now()
		if now.After(deadline) {
			return trades, domain.ErrDeadline
		}

		snap := a.market(o.Exchange, o.Symbol)
		urgency := a.urgency(snap, now.Sub(start))

		// Slice between 10% and 100% of the remainder depending on urgency.
		frac := 0.1 + 0.9*urgency
		qty := decimal.Min(remaining.Mul(decimal.NewFromFloat(frac)), remaining)
		if remaining.Sub(qty).LessThan(minRemainder) {
			qty = remaining
		}
		if qty.IsPositive() {
			trade, err := fill(ctx, o, qty)
			if err != nil {
				a.logger.Warn("slice fill failed", slog.String("error", err.Error()))
			} else if trade != nil {
				trades = append(trades, *trade)
				remaining = remaining.Sub(trade.Quantity)
			}
		}

		if remaining.IsPositive() {
			// High urgency polls faster, down to a quarter of the base interval.
			wait := time.Duration(float64(a.pollInterval) * (1.0 - 0.75*urgency))
			if !sleep(ctx, wait) {
				return trades, exitErr(ctx)
			}
		}
	}

	return trades, nil
}

// urgency combines market conditions and time pressure into [0,1].
func (a *Adaptive) urgency(snap MarketSnapshot, elapsed time.Duration) float64 {
	// Tight spreads are cheap to cross; a 1% spread or wider reads as zero.
	spreadSignal := 1.0 - snap.SpreadPct
	if spreadSignal < 0 {
		spreadSignal = 0
	}
	volumeSignal := snap.Volume.InexactFloat64() / 10.0
	if volumeSignal > 1 {
		volumeSignal = 1
	}
	marketUrgency := 0.6*spreadSignal + 0.4*volumeSignal

	timeUrgency := 0.0
	if a.duration > 0 {
		timeUrgency = float64(elapsed) / float64(a.duration)
		if timeUrgency > 1 {
			timeUrgency = 1
		}
	}

	u := 0.5*marketUrgency + 0.5*timeUrgency + 0.2*a.aggressiveness
	if u > 1 {
		u = 1
	}
	if u < 0 {
		u = 0
	}
	return u
}
