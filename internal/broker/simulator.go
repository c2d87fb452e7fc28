// Package broker simulates the execution venue. Fills arrive after a
// configurable latency, charge a basis-point fee, and go missing with a
// configurable probability so execution algorithms exercise their
// skipped-slice paths.
package broker

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
	"github.com/quantarb/arbot/internal/execution"
)

// Simulator fills order slices at their reference price. Safe for
// concurrent use; the RNG is guarded because fills arrive from many
// execution goroutines.
type Simulator struct {
	feeRate  decimal.Decimal
	missRate float64
	latency  time.Duration
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a simulated broker.
func NewSimulator(cfg config.BrokerConfig, logger *slog.Logger) *Simulator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		feeRate:  decimal.NewFromFloat(cfg.FeeBps).Div(decimal.NewFromInt(10_000)),
		missRate: cfg.MissRate,
		latency:  cfg.Latency.Duration,
		logger:   logger.With(slog.String("component", "broker")),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Fill submits one slice. Returns (nil, nil) when the venue misses the
// slice; algorithms treat that as a skip. Satisfies execution.FillFunc.
func (b *Simulator) Fill(ctx context.Context, o execution.Order, qty decimal.Decimal) (*domain.Trade, error) {
	start := time.Now()

	if b.latency > 0 {
		t := time.NewTimer(b.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	b.mu.Lock()
	missed := b.rng.Float64() < b.missRate
	b.mu.Unlock()
	if missed {
		b.logger.Debug("slice missed",
			slog.String("symbol", o.Symbol),
			slog.String("exchange", o.Exchange),
			slog.String("qty", qty.String()))
		return nil, nil
	}

	fees := qty.Mul(o.Price).Mul(b.feeRate).Abs()
	trade := &domain.Trade{
		ID:               uuid.NewString(),
		OpportunityID:    o.OpportunityID,
		ActionID:         o.ActionID,
		Exchange:         o.Exchange,
		Symbol:           o.Symbol,
		Side:             o.Side,
		Quantity:         qty,
		Price:            o.Price,
		Status:           domain.TradeStatusFilled,
		Fees:             fees,
		ExecutionLatency: time.Since(start),
		Timestamp:        time.Now(),
	}
	return trade, nil
}
