// Package feed produces market data for the engine. The simulator drives a
// random-walk mid price per symbol and derives venue quotes with small
// per-exchange offsets, so cross-venue and triangular dislocations appear
// organically at a rate controlled by the volatility setting.
package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

// Handler receives one quote batch per tick. Handlers run on the feed's
// goroutine and must not block.
type Handler func(quotes []domain.Quote)

// Simulator generates quote batches on a fixed tick interval.
type Simulator struct {
	cfg    config.FeedConfig
	logger *slog.Logger
	rng    *rand.Rand

	mu       sync.Mutex
	handlers []Handler
	mids     map[string]float64      // per-symbol consensus mid
	latest   map[string]domain.Quote // last quote per exchange|symbol
}

// NewSimulator creates a simulator seeded from config (Seed 0 uses the
// clock, making runs non-reproducible).
func NewSimulator(cfg config.FeedConfig, logger *slog.Logger) *Simulator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Simulator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "feed")),
		rng:    rand.New(rand.NewSource(seed)),
		mids:   make(map[string]float64),
		latest: make(map[string]domain.Quote),
	}
	for _, sym := range cfg.Symbols {
		if base, ok := cfg.BasePrices[sym]; ok && base > 0 {
			s.mids[sym] = base
		} else {
			s.mids[sym] = 100.0
		}
	}
	return s
}

// Subscribe registers a handler for future batches.
func (s *Simulator) Subscribe(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Run emits one batch per tick until the context ends.
func (s *Simulator) Run(ctx context.Context) error {
	interval := s.cfg.TickInterval.Duration
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("feed started",
		slog.Int("exchanges", len(s.cfg.Exchanges)),
		slog.Int("symbols", len(s.cfg.Symbols)),
		slog.Duration("tick_interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("feed stopped")
			return ctx.Err()
		case <-ticker.C:
			batch := s.Tick()
			s.mu.Lock()
			handlers := s.handlers
			s.mu.Unlock()
			for _, h := range handlers {
				h(batch)
			}
		}
	}
}

// Tick advances the random walk one step and returns the resulting batch:
// one quote per (exchange, symbol). Exposed for tests and one-shot modes.
func (s *Simulator) Tick() []domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	batch := make([]domain.Quote, 0, len(s.cfg.Exchanges)*len(s.cfg.Symbols))

	for _, symbol := range s.cfg.Symbols {
		mid := s.mids[symbol]
		mid *= 1 + s.rng.NormFloat64()*s.cfg.Volatility
		if mid <= 0 {
			mid = s.mids[symbol]
		}
		s.mids[symbol] = mid

		for _, exchange := range s.cfg.Exchanges {
			// Venues drift off consensus by up to half the tick volatility.
			venueMid := mid * (1 + s.rng.NormFloat64()*s.cfg.Volatility*0.5)
			halfSpread := venueMid * 0.0005
			q := domain.Quote{
				Exchange:  exchange,
				Symbol:    symbol,
				BidPrice:  decimal.NewFromFloat(venueMid - halfSpread).Round(8),
				AskPrice:  decimal.NewFromFloat(venueMid + halfSpread).Round(8),
				BidVolume: decimal.NewFromFloat(1 + s.rng.Float64()*19).Round(4),
				AskVolume: decimal.NewFromFloat(1 + s.rng.Float64()*19).Round(4),
				Timestamp: now,
			}
			s.latest[exchange+"|"+symbol] = q
			batch = append(batch, q)
		}
	}
	return batch
}

// Latest returns the most recent quote for one (exchange, symbol) pair, if a
// tick has produced one.
func (s *Simulator) Latest(exchange, symbol string) (domain.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.latest[exchange+"|"+symbol]
	return q, ok
}
