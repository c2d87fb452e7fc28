package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the exposure tracked by the risk manager for one admitted
// opportunity. It is created on the first recorded trade, updated on
// subsequent trades for the same opportunity, and removed on close.
type Position struct {
	OpportunityID string
	Value         decimal.Decimal // absolute notional currently at risk
	PnL           decimal.Decimal
	Trades        []Trade
	OpenedAt      time.Time
}

// RiskReport is a point-in-time snapshot of the risk manager's counters,
// exposed to callers and observers.
type RiskReport struct {
	CurrentExposure decimal.Decimal `json:"current_exposure"`
	DailyPnL        decimal.Decimal `json:"daily_pnl"`
	DailyLoss       decimal.Decimal `json:"daily_loss"`
	UtilizationPct  float64         `json:"utilization_pct"`
	OpenPositions   int             `json:"open_positions"`
	LastReset       time.Time       `json:"last_reset"`
}
