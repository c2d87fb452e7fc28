package detector

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

// Statistical detects mean-reversion setups from rolling price history: a
// pairs-trade branch over cointegrated-looking symbol pairs, and a Bollinger
// band branch on individual symbols. History is keyed by symbol and updated
// once per quote batch with the cross-venue mean mid price.
type Statistical struct {
	cfg       config.StatisticalConfig
	logger    *slog.Logger
	histories map[string]*window
	now       func() time.Time
}

// NewStatistical creates a statistical arbitrage detector with empty history.
func NewStatistical(cfg config.StatisticalConfig, logger *slog.Logger) *Statistical {
	return &Statistical{
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "detector.statistical")),
		histories: make(map[string]*window),
		now:       time.Now,
	}
}

func (d *Statistical) Name() string              { return "statistical" }
func (d *Statistical) Strategy() domain.Strategy { return domain.StrategyStatistical }

// Analyze folds the batch into the rolling histories, then evaluates the
// pairs branch across all symbol pairs and the Bollinger branch per symbol.
// Emits nothing until at least one window has filled.
func (d *Statistical) Analyze(ctx context.Context, quotes []domain.Quote) ([]domain.Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detector: statistical: %w", err)
	}

	bySymbol := groupBySymbol(quotes)
	d.updateHistories(bySymbol)

	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	now := d.now()
	var opps []domain.Opportunity

	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			if opp, ok := d.evaluatePair(symbols[i], symbols[j], bySymbol, now); ok {
				opps = append(opps, opp)
			}
		}
	}
	for _, s := range symbols {
		if opp, ok := d.evaluateBollinger(s, bySymbol[s], now); ok {
			opps = append(opps, opp)
		}
	}

	return opps, nil
}

// updateHistories pushes one sample per symbol: the mean mid price across
// all venues quoting it in this batch.
func (d *Statistical) updateHistories(bySymbol map[string][]domain.Quote) {
	for symbol, group := range bySymbol {
		var sum float64
		for _, q := range group {
			sum += q.MidPrice().InexactFloat64()
		}
		w, ok := d.histories[symbol]
		if !ok {
			w = newWindow(d.cfg.LookbackPeriod)
			d.histories[symbol] = w
		}
		w.Push(sum / float64(len(group)))
	}
}

// evaluatePair runs the cointegration pairs-trade branch for (sym1, sym2).
func (d *Statistical) evaluatePair(sym1, sym2 string, bySymbol map[string][]domain.Quote, now time.Time) (domain.Opportunity, bool) {
	w1, w2 := d.histories[sym1], d.histories[sym2]
	if w1 == nil || w2 == nil || !w1.Full() || !w2.Full() {
		return domain.Opportunity{}, false
	}

	p1, p2 := w1.Values(), w2.Values()
	corr := pearson(p1, p2)
	if math.Abs(corr) < d.cfg.CorrelationThreshold {
		return domain.Opportunity{}, false
	}

	hedge := olsSlope(p1, p2)
	if hedge == 0 {
		return domain.Opportunity{}, false
	}

	spread := make([]float64, len(p1))
	for i := range p1 {
		spread[i] = p1[i] - hedge*p2[i]
	}
	sd := stddev(spread)
	if sd == 0 {
		return domain.Opportunity{}, false
	}
	z := (spread[len(spread)-1] - mean(spread)) / sd
	if math.Abs(z) < d.cfg.ZScoreEntryThreshold {
		return domain.Opportunity{}, false
	}

	// z>0: spread rich, sell leg1 and buy leg2; z<0: the reverse.
	side1, side2 := domain.OrderSideSell, domain.OrderSideBuy
	if z < 0 {
		side1, side2 = domain.OrderSideBuy, domain.OrderSideSell
	}

	q1, ok1 := bestVenue(bySymbol[sym1], side1)
	q2, ok2 := bestVenue(bySymbol[sym2], side2)
	if !ok1 || !ok2 {
		return domain.Opportunity{}, false
	}

	qty1 := decimal.NewFromFloat(d.cfg.BaseQuantity)
	qty2 := decimal.NewFromFloat(d.cfg.BaseQuantity * math.Abs(hedge))

	// Expected edge: the spread's deviation from its mean, captured over the
	// base quantity if it fully reverts.
	deviation := math.Abs(spread[len(spread)-1] - mean(spread))
	expectedProfit := decimal.NewFromFloat(deviation).Mul(qty1)
	price1 := sidePrice(q1, side1)
	profitPct := decimal.Zero
	if price1.IsPositive() {
		expectedProfit = expectedProfit.Round(8)
		profitPct = expectedProfit.Div(price1.Mul(qty1)).Mul(hundredDec)
	}

	leg1 := domain.Action{
		ID:        uuid.NewString(),
		Exchange:  q1.Exchange,
		Symbol:    sym1,
		Side:      side1,
		Quantity:  qty1,
		Price:     price1,
		OrderType: domain.OrderTypeLimit,
		Priority:  1,
	}
	leg2 := domain.Action{
		ID:        uuid.NewString(),
		Exchange:  q2.Exchange,
		Symbol:    sym2,
		Side:      side2,
		Quantity:  qty2,
		Price:     sidePrice(q2, side2),
		OrderType: domain.OrderTypeLimit,
		Priority:  2,
	}

	return domain.Opportunity{
		ID:                uuid.NewString(),
		Strategy:          domain.StrategyStatistical,
		Symbol:            sym1 + "~" + sym2,
		Timestamp:         now,
		ExpectedProfit:    expectedProfit,
		ExpectedProfitPct: profitPct,
		Confidence:        zConfidence(z),
		Risk:              0.30,
		SourceQuotes:      []domain.Quote{q1, q2},
		Actions:           []domain.Action{leg1, leg2},
		Metadata: map[string]string{
			"branch":      "pairs",
			"correlation": strconv.FormatFloat(corr, 'f', 4, 64),
			"hedge_ratio": strconv.FormatFloat(hedge, 'f', 6, 64),
			"z_score":     strconv.FormatFloat(z, 'f', 4, 64),
		},
	}, true
}

// evaluateBollinger runs the single-leg mean-reversion branch: price outside
// mean ± 2σ fades back toward the band.
func (d *Statistical) evaluateBollinger(symbol string, group []domain.Quote, now time.Time) (domain.Opportunity, bool) {
	w := d.histories[symbol]
	if w == nil || !w.Full() {
		return domain.Opportunity{}, false
	}

	prices := w.Values()
	m, sd := mean(prices), stddev(prices)
	if sd == 0 {
		return domain.Opportunity{}, false
	}
	last := w.Last()
	upper, lower := m+2*sd, m-2*sd

	var side domain.OrderSide
	switch {
	case last > upper:
		side = domain.OrderSideSell
	case last < lower:
		side = domain.OrderSideBuy
	default:
		return domain.Opportunity{}, false
	}

	q, ok := bestVenue(group, side)
	if !ok {
		return domain.Opportunity{}, false
	}

	z := (last - m) / sd
	qty := decimal.NewFromFloat(d.cfg.MeanReversionQuantity)
	price := sidePrice(q, side)
	expectedProfit := decimal.NewFromFloat(math.Abs(last - m)).Mul(qty).Round(8)
	profitPct := decimal.Zero
	if price.IsPositive() {
		profitPct = expectedProfit.Div(price.Mul(qty)).Mul(hundredDec)
	}

	leg := domain.Action{
		ID:        uuid.NewString(),
		Exchange:  q.Exchange,
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		OrderType: domain.OrderTypeLimit,
		Priority:  1,
	}

	return domain.Opportunity{
		ID:                uuid.NewString(),
		Strategy:          domain.StrategyStatistical,
		Symbol:            symbol,
		Timestamp:         now,
		ExpectedProfit:    expectedProfit,
		ExpectedProfitPct: profitPct,
		Confidence:        zConfidence(z),
		Risk:              0.25,
		SourceQuotes:      []domain.Quote{q},
		Actions:           []domain.Action{leg},
		Metadata: map[string]string{
			"branch":  "bollinger",
			"z_score": strconv.FormatFloat(z, 'f', 4, 64),
		},
	}, true
}

// bestVenue picks the venue with the highest bid for a sell, or the lowest
// ask for a buy.
func bestVenue(group []domain.Quote, side domain.OrderSide) (domain.Quote, bool) {
	if len(group) == 0 {
		return domain.Quote{}, false
	}
	best := group[0]
	for _, q := range group[1:] {
		if side == domain.OrderSideSell && q.BidPrice.GreaterThan(best.BidPrice) {
			best = q
		}
		if side == domain.OrderSideBuy && q.AskPrice.LessThan(best.AskPrice) {
			best = q
		}
	}
	return best, true
}

// sidePrice returns the marketable price for the given side.
func sidePrice(q domain.Quote, side domain.OrderSide) decimal.Decimal {
	if side == domain.OrderSideBuy {
		return q.AskPrice
	}
	return q.BidPrice
}

// zConfidence maps a z-score magnitude to [0, 0.95]: the entry threshold of
// 2 lands at 0.7 and each additional unit of z adds 0.1.
func zConfidence(z float64) float64 {
	c := 0.5 + math.Abs(z)*0.1
	if c > 0.95 {
		return 0.95
	}
	return c
}
