package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/domain"
)

// VWAP tracks live market volume, trading a fixed participation fraction of
// whatever size the venue shows each poll, until the order completes or the
// deadline passes.
type VWAP struct {
	duration          time.Duration
	participationRate decimal.Decimal
	pollInterval      time.Duration
	market            MarketFunc
	logger            *slog.Logger
}

// NewVWAP creates a VWAP algorithm sampling market state via market.
func NewVWAP(duration time.Duration, participationRate float64, pollInterval time.Duration, market MarketFunc, logger *slog.Logger) *VWAP {
	return &VWAP{
		duration:          duration,
		participationRate: decimal.NewFromFloat(participationRate),
		pollInterval:      pollInterval,
		market:            market,
		logger:            logger.With(slog.String("component", "execution.vwap")),
	}
}

func (a *VWAP) Name() string { return "vwap" }

func (a *VWAP) Execute(ctx context.Context, o Order, fill FillFunc) ([]domain.Trade, error) {
	deadline := time.Now().Add(a.duration)
	remaining := o.Quantity
	var trades []domain.Trade

	for remaining.IsPositive() {
		if err := exitErr(ctx); err != nil {
			return trades, err
		}
		if time.Now().After(deadline) {
			a.logger.Debug("deadline reached",
				slog.String("remaining", remaining.String()))
			return trades, domain.ErrDeadline
		}

		snap := a.market(o.Exchange, o.Symbol)
		qty := decimal.Min(snap.Volume.Mul(a.participationRate), remaining)
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
