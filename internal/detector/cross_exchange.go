package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

// CrossExchange detects price discrepancies for the same symbol across
// venues: any ordered (buy, sell) exchange pair where the sell venue's bid
// exceeds the buy venue's ask by at least the configured spread threshold
// yields a two-leg opportunity.
type CrossExchange struct {
	cfg    config.CrossExchangeConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewCrossExchange creates a cross-exchange detector.
func NewCrossExchange(cfg config.CrossExchangeConfig, logger *slog.Logger) *CrossExchange {
	return &CrossExchange{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "detector.cross_exchange")),
		now:    time.Now,
	}
}

func (d *CrossExchange) Name() string              { return "cross_exchange" }
func (d *CrossExchange) Strategy() domain.Strategy { return domain.StrategyCrossExchange }

// Analyze scans every ordered exchange pair per symbol. Pairs with
// non-positive profit, sub-threshold spread, or no tradable volume are
// skipped silently.
func (d *CrossExchange) Analyze(ctx context.Context, quotes []domain.Quote) ([]domain.Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detector: cross_exchange: %w", err)
	}

	now := d.now()
	var opps []domain.Opportunity

	for symbol, group := range groupBySymbol(quotes) {
		if len(group) < 2 {
			continue
		}
		for i, buy := range group {
			for j, sell := range group {
				if i == j || buy.Exchange == sell.Exchange {
					continue
				}
				if opp, ok := d.evaluate(symbol, buy, sell, now); ok {
					opps = append(opps, opp)
				}
			}
		}
	}

	if len(opps) > 0 {
		d.logger.Debug("cross-exchange scan complete",
			slog.Int("opportunities", len(opps)),
			slog.Int("quotes", len(quotes)))
	}
	return opps, nil
}

// evaluate checks a single ordered (buy, sell) pair.
func (d *CrossExchange) evaluate(symbol string, buy, sell domain.Quote, now time.Time) (domain.Opportunity, bool) {
	profitPerUnit := sell.BidPrice.Sub(buy.AskPrice)
	if !profitPerUnit.IsPositive() {
		return domain.Opportunity{}, false
	}

	profitPct := profitPerUnit.Div(buy.AskPrice).Mul(hundredDec)
	if profitPct.InexactFloat64() < d.cfg.MinSpreadThreshold {
		return domain.Opportunity{}, false
	}

	tradable := decimal.Min(buy.AskVolume, sell.BidVolume)
	if !tradable.IsPositive() {
		return domain.Opportunity{}, false
	}

	expectedProfit := profitPerUnit.Mul(tradable)
	confidence := d.confidence(profitPct, tradable, buy, sell)
	risk := d.risk(tradable, buy, sell, now)

	buyLeg := domain.Action{
		ID:        uuid.NewString(),
		Exchange:  buy.Exchange,
		Symbol:    symbol,
		Side:      domain.OrderSideBuy,
		Quantity:  tradable,
		Price:     buy.AskPrice,
		OrderType: domain.OrderTypeLimit,
		Priority:  1,
	}
	sellLeg := domain.Action{
		ID:        uuid.NewString(),
		Exchange:  sell.Exchange,
		Symbol:    symbol,
		Side:      domain.OrderSideSell,
		Quantity:  tradable,
		Price:     sell.BidPrice,
		OrderType: domain.OrderTypeLimit,
		Priority:  2,
	}

	return domain.Opportunity{
		ID:                uuid.NewString(),
		Strategy:          domain.StrategyCrossExchange,
		Symbol:            symbol,
		Timestamp:         now,
		ExpectedProfit:    expectedProfit,
		ExpectedProfitPct: profitPct,
		Confidence:        confidence,
		Risk:              risk,
		SourceQuotes:      []domain.Quote{buy, sell},
		Actions:           []domain.Action{buyLeg, sellLeg},
		Metadata: map[string]string{
			"buy_exchange":  buy.Exchange,
			"sell_exchange": sell.Exchange,
		},
	}, true
}

// confidence blends normalized profit (up to 0.4), normalized liquidity (up
// to 0.3), and inverse average spread (up to 0.3).
func (d *CrossExchange) confidence(profitPct, tradable decimal.Decimal, buy, sell domain.Quote) float64 {
	profitTerm := clamp(profitPct.InexactFloat64()/2.0, 1) * 0.4
	liqTerm := clamp(tradable.InexactFloat64()/10.0, 1) * 0.3

	avgSpreadPct := buy.SpreadPct().Add(sell.SpreadPct()).Div(twoDec).InexactFloat64()
	spreadTerm := clamp(1.0-avgSpreadPct, 1) * 0.3

	return clamp(profitTerm+liqTerm+spreadTerm, 1)
}

// risk blends inverse liquidity (up to 0.4), average spread (up to 0.3), and
// data staleness scaled by the older of the two quotes (up to 0.3).
func (d *CrossExchange) risk(tradable decimal.Decimal, buy, sell domain.Quote, now time.Time) float64 {
	liqTerm := clamp(1.0/(1.0+tradable.InexactFloat64()), 1) * 0.4

	avgSpreadPct := buy.SpreadPct().Add(sell.SpreadPct()).Div(twoDec).InexactFloat64()
	spreadTerm := clamp(avgSpreadPct, 1) * 0.3

	maxAge := buy.Age(now)
	if a := sell.Age(now); a > maxAge {
		maxAge = a
	}
	staleTerm := clamp(maxAge.Seconds()/5.0, 1) * 0.3

	return clamp(liqTerm+spreadTerm+staleTerm, 1)
}

var (
	twoDec     = decimal.NewFromInt(2)
	hundredDec = decimal.NewFromInt(100)
)
