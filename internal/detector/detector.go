// Package detector provides the three arbitrage detection strategies
// (cross-exchange, statistical, triangular) behind a common interface, plus
// a registry for selection by config.
//
// Detectors are pure functions over a quote batch except for their own
// rolling-history buffers, which each instance owns exclusively; they are
// safe to run concurrently with each other but a single instance must not
// be invoked from two goroutines at once.
package detector

import (
	"context"

	"github.com/quantarb/arbot/internal/domain"
)

// Detector analyzes a quote batch and returns zero or more opportunities.
// Malformed or incomplete quotes are skipped, never returned as errors; an
// error indicates the detector itself failed for the whole batch.
type Detector interface {
	Name() string
	Strategy() domain.Strategy
	Analyze(ctx context.Context, quotes []domain.Quote) ([]domain.Opportunity, error)
}

// groupBySymbol buckets valid quotes by symbol, preserving batch order.
func groupBySymbol(quotes []domain.Quote) map[string][]domain.Quote {
	bySymbol := make(map[string][]domain.Quote)
	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		bySymbol[q.Symbol] = append(bySymbol[q.Symbol], q)
	}
	return bySymbol
}

// groupByExchange buckets valid quotes by exchange.
func groupByExchange(quotes []domain.Quote) map[string][]domain.Quote {
	byExchange := make(map[string][]domain.Quote)
	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		byExchange[q.Exchange] = append(byExchange[q.Exchange], q)
	}
	return byExchange
}

// clamp bounds v to [0, max].
func clamp(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
