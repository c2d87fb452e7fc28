// Package domain contains the core data model shared across the engine:
// quotes, opportunities, actions, trades, positions, and the interfaces for
// the external collaborators (bus, journal, blob storage, broker).
//
// All price, volume, and pnl fields use shopspring decimals. Binary floating
// point is reserved for dimensionless statistics (confidence, risk, scores).
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is an immutable snapshot of the best bid/ask for one symbol on one
// exchange. Quotes are produced by the market data feed and never mutated.
type Quote struct {
	Exchange  string
	Symbol    string
	BidPrice  decimal.Decimal
	AskPrice  decimal.Decimal
	BidVolume decimal.Decimal
	AskVolume decimal.Decimal
	Timestamp time.Time
}

// Valid reports whether the quote carries usable two-sided prices.
func (q Quote) Valid() bool {
	return q.BidPrice.IsPositive() && q.AskPrice.IsPositive()
}

// MidPrice returns (bid+ask)/2, or zero for a one-sided quote.
func (q Quote) MidPrice() decimal.Decimal {
	if !q.Valid() {
		return decimal.Zero
	}
	return q.BidPrice.Add(q.AskPrice).Div(two)
}

// Spread returns ask - bid for this venue.
func (q Quote) Spread() decimal.Decimal {
	return q.AskPrice.Sub(q.BidPrice)
}

// SpreadPct returns the spread as a percentage of the mid price.
func (q Quote) SpreadPct() decimal.Decimal {
	mid := q.MidPrice()
	if mid.IsZero() {
		return decimal.Zero
	}
	return q.Spread().Div(mid).Mul(hundred)
}

// Age returns how stale the quote is relative to now.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)
