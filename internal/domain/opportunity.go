package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy identifies which detection algorithm produced an opportunity.
type Strategy string

const (
	StrategyCrossExchange Strategy = "cross_exchange"
	StrategyStatistical   Strategy = "statistical"
	StrategyTriangular    Strategy = "triangular"
)

// Opportunity is a candidate trade produced by a detector. It is consumed
// exactly once by the orchestrator (admitted or discarded) and is never
// mutated after creation except to stamp DetectionLatency.
type Opportunity struct {
	ID                string
	Strategy          Strategy
	Symbol            string
	Timestamp         time.Time
	ExpectedProfit    decimal.Decimal
	ExpectedProfitPct decimal.Decimal
	Confidence        float64 // [0,1]
	Risk              float64 // [0,1]
	DetectionLatency  time.Duration
	SourceQuotes      []Quote
	Actions           []Action
	Metadata          map[string]string
}

// EstimatedExposure returns the total notional the opportunity would put at
// risk if every action filled at its suggested price.
func (o Opportunity) EstimatedExposure() decimal.Decimal {
	total := decimal.Zero
	for _, a := range o.Actions {
		total = total.Add(a.Notional())
	}
	return total
}

// MaxActionExposure returns the largest single-action notional.
func (o Opportunity) MaxActionExposure() decimal.Decimal {
	max := decimal.Zero
	for _, a := range o.Actions {
		if n := a.Notional(); n.GreaterThan(max) {
			max = n
		}
	}
	return max
}
