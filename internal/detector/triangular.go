package detector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

// Triangular detects three-legged cycles within a single exchange: for every
// triangle of BASE/QUOTE pairs sharing a base currency, it simulates routing
// a fixed notional through both cycle directions and emits the profitable one.
type Triangular struct {
	cfg    config.TriangularConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewTriangular creates a triangular arbitrage detector.
func NewTriangular(cfg config.TriangularConfig, logger *slog.Logger) *Triangular {
	return &Triangular{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "detector.triangular")),
		now:    time.Now,
	}
}

func (d *Triangular) Name() string              { return "triangular" }
func (d *Triangular) Strategy() domain.Strategy { return domain.StrategyTriangular }

// pair is a quote annotated with its parsed BASE/QUOTE currencies.
type pair struct {
	base, quote string
	q           domain.Quote
}

// cycleStep is one simulated conversion through a pair.
type cycleStep struct {
	p      pair
	side   domain.OrderSide
	qty    decimal.Decimal // in the pair's base currency
	price  decimal.Decimal
	volume decimal.Decimal // available size on the used side
}

// Analyze enumerates triangles per exchange and simulates both directions.
// Symbols that do not parse as BASE/QUOTE are ignored.
func (d *Triangular) Analyze(ctx context.Context, quotes []domain.Quote) ([]domain.Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detector: triangular: %w", err)
	}

	now := d.now()
	var opps []domain.Opportunity

	for exchange, group := range groupByExchange(quotes) {
		pairs := parsePairs(group)
		if len(pairs) < 3 {
			continue
		}
		for i := 0; i < len(pairs); i++ {
			for j := i + 1; j < len(pairs); j++ {
				if pairs[i].base != pairs[j].base {
					continue
				}
				for k := 0; k < len(pairs); k++ {
					if k == i || k == j || !connects(pairs[k], pairs[i].quote, pairs[j].quote) {
						continue
					}
					if opp, ok := d.evaluate(exchange, pairs[i], pairs[j], pairs[k], now); ok {
						opps = append(opps, opp)
					}
				}
			}
		}
	}

	return opps, nil
}

// evaluate simulates the forward (p1→p3→p2) and backward (p2→p3→p1) cycles
// starting from a fixed notional of the shared base currency, and emits an
// opportunity for the better direction if it clears the profit threshold.
func (d *Triangular) evaluate(exchange string, p1, p2, p3 pair, now time.Time) (domain.Opportunity, bool) {
	initial := decimal.NewFromFloat(d.cfg.BaseAmount)
	base := p1.base

	fwdFinal, fwdSteps, fwdOK := simulate(initial, base, []pair{p1, p3, p2})
	bwdFinal, bwdSteps, bwdOK := simulate(initial, base, []pair{p2, p3, p1})
	if !fwdOK && !bwdOK {
		return domain.Opportunity{}, false
	}

	final, steps := fwdFinal, fwdSteps
	direction := "forward"
	if !fwdOK || (bwdOK && bwdFinal.GreaterThan(fwdFinal)) {
		final, steps = bwdFinal, bwdSteps
		direction = "backward"
	}

	profit := final.Sub(initial)
	profitPct := profit.Div(initial).Mul(hundredDec)
	if profitPct.InexactFloat64() < d.cfg.MinProfitThreshold {
		return domain.Opportunity{}, false
	}

	actions := make([]domain.Action, len(steps))
	sourceQuotes := make([]domain.Quote, len(steps))
	minLiq := steps[0].volume
	route := make([]string, len(steps))
	for i, s := range steps {
		actions[i] = domain.Action{
			ID:        uuid.NewString(),
			Exchange:  exchange,
			Symbol:    s.p.q.Symbol,
			Side:      s.side,
			Quantity:  s.qty,
			Price:     s.price,
			OrderType: domain.OrderTypeLimit,
			Priority:  i + 1,
		}
		sourceQuotes[i] = s.p.q
		route[i] = s.p.q.Symbol
		if s.volume.LessThan(minLiq) {
			minLiq = s.volume
		}
	}

	pctF := profitPct.InexactFloat64()
	liqF := minLiq.InexactFloat64()
	confidence := clamp(clamp(pctF, 1)*0.5+clamp(liqF/5.0, 1)*0.45, 0.95)
	// 0.30 is a fixed term reflecting three sequential legs of exposure.
	risk := clamp(0.30+clamp(1.0/(1.0+liqF), 1)*0.4, 1)

	return domain.Opportunity{
		ID:                uuid.NewString(),
		Strategy:          domain.StrategyTriangular,
		Symbol:            base,
		Timestamp:         now,
		ExpectedProfit:    profit,
		ExpectedProfitPct: profitPct,
		Confidence:        confidence,
		Risk:              risk,
		SourceQuotes:      sourceQuotes,
		Actions:           actions,
		Metadata: map[string]string{
			"exchange":  exchange,
			"direction": direction,
			"route":     strings.Join(route, ","),
		},
	}, true
}

// simulate routes amount of the holding currency through the given pairs in
// order, returning the final amount and the conversion steps. Fails if any
// pair cannot convert the held currency or a needed price is zero.
func simulate(amount decimal.Decimal, holding string, route []pair) (decimal.Decimal, []cycleStep, bool) {
	steps := make([]cycleStep, 0, len(route))
	for _, p := range route {
		switch holding {
		case p.base:
			// Sell the base at the bid; proceeds are in the quote currency.
			if !p.q.BidPrice.IsPositive() {
				return decimal.Zero, nil, false
			}
			steps = append(steps, cycleStep{
				p: p, side: domain.OrderSideSell,
				qty: amount, price: p.q.BidPrice, volume: p.q.BidVolume,
			})
			amount = amount.Mul(p.q.BidPrice)
			holding = p.quote
		case p.quote:
			// Buy the base at the ask; proceeds are in the base currency.
			if !p.q.AskPrice.IsPositive() {
				return decimal.Zero, nil, false
			}
			bought := amount.Div(p.q.AskPrice)
			steps = append(steps, cycleStep{
				p: p, side: domain.OrderSideBuy,
				qty: bought, price: p.q.AskPrice, volume: p.q.AskVolume,
			})
			amount = bought
			holding = p.base
		default:
			return decimal.Zero, nil, false
		}
	}
	return amount, steps, true
}

// parsePairs extracts BASE/QUOTE pairs from a quote group, skipping symbols
// that do not parse.
func parsePairs(group []domain.Quote) []pair {
	pairs := make([]pair, 0, len(group))
	for _, q := range group {
		base, quote, ok := strings.Cut(q.Symbol, "/")
		if !ok || base == "" || quote == "" {
			continue
		}
		pairs = append(pairs, pair{base: base, quote: quote, q: q})
	}
	return pairs
}

// connects reports whether p trades between currencies a and b.
func connects(p pair, a, b string) bool {
	return (p.base == a && p.quote == b) || (p.base == b && p.quote == a)
}
