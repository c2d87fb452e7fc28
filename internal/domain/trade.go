package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus tracks a trade through its lifecycle. A trade is immutable
// once it reaches TradeStatusFilled.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusSubmitted TradeStatus = "submitted"
	TradeStatusPartial   TradeStatus = "partial"
	TradeStatusFilled    TradeStatus = "filled"
	TradeStatusCancelled TradeStatus = "cancelled"
	TradeStatusRejected  TradeStatus = "rejected"
)

// Trade is a fill produced by the execution layer for one action slice.
type Trade struct {
	ID               string
	OpportunityID    string
	ActionID         string
	Exchange         string
	Symbol           string
	Side             OrderSide
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	Status           TradeStatus
	Fees             decimal.Decimal
	ExecutionLatency time.Duration
	Timestamp        time.Time
}

// Notional returns quantity * price for the fill.
func (t Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// CashFlow returns the signed cash impact of the fill net of fees: sells
// produce cash, buys consume it.
func (t Trade) CashFlow() decimal.Decimal {
	n := t.Notional()
	if t.Side == OrderSideBuy {
		n = n.Neg()
	}
	return n.Sub(t.Fees)
}

// RealizedPnL sums the cash flow of a completed set of fills. For a balanced
// multi-leg execution this is the realized profit or loss.
func RealizedPnL(trades []Trade) decimal.Decimal {
	pnl := decimal.Zero
	for _, t := range trades {
		pnl = pnl.Add(t.CashFlow())
	}
	return pnl
}
