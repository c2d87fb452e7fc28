package notify

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/domain"
)

// Event types accepted by the notifier's filter. These match the values used
// in the notify.events config list.
const (
	EventOpportunityDetected = "opportunity_detected"
	EventOpportunityExecuted = "opportunity_executed"
	EventPartialExecution    = "partial_execution"
	EventLimitBreached       = "limit_breached"
	EventDailySummary        = "daily_summary"
)

// Severity drives how senders render an event: Telegram prefixes the title,
// Discord colors the embed.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// Event is one operator-facing alert produced by the engine. Type is matched
// against the configured filter; Title and Body are rendered by each sender
// in its channel's markup.
type Event struct {
	Type     string
	Severity Severity
	Title    string
	Body     string
}

// FormatOpportunityExecuted renders an executed-opportunity alert with the
// realized profit and fill count. A losing execution escalates to warning.
func FormatOpportunityExecuted(opp domain.Opportunity, pnl decimal.Decimal, fills int) Event {
	sev := SeverityInfo
	if pnl.IsNegative() {
		sev = SeverityWarning
	}
	return Event{
		Type:     EventOpportunityExecuted,
		Severity: sev,
		Title:    fmt.Sprintf("Executed: %s %s", opp.Strategy, opp.Symbol),
		Body: fmt.Sprintf("PnL %s | expected %s (%s%%) | fills %d | confidence %.2f",
			pnl.StringFixed(2),
			opp.ExpectedProfit.StringFixed(2),
			opp.ExpectedProfitPct.StringFixed(3),
			fills,
			opp.Confidence,
		),
	}
}

// FormatPartialExecution renders an alert for a plan that filled some but not
// all of its legs. The engine does not roll back, so the operator may be
// holding one-sided inventory.
func FormatPartialExecution(perr *domain.PartialExecutionError) Event {
	return Event{
		Type:     EventPartialExecution,
		Severity: SeverityCritical,
		Title:    "Partial execution: " + perr.OpportunityID,
		Body: fmt.Sprintf("leg %d failed after %d fill(s): %v",
			perr.FailedLeg, len(perr.Filled), perr.Err),
	}
}

// FormatLimitBreached renders a risk-rejection alert.
func FormatLimitBreached(opp domain.Opportunity, reason string) Event {
	return Event{
		Type:     EventLimitBreached,
		Severity: SeverityWarning,
		Title:    "Risk limit breached",
		Body: fmt.Sprintf("%s | rejected %s %s (exposure %s)",
			reason, opp.Strategy, opp.Symbol, opp.EstimatedExposure().StringFixed(2)),
	}
}

// FormatDailySummary renders the risk manager's end-of-day counters.
func FormatDailySummary(report domain.RiskReport) Event {
	sev := SeverityInfo
	if report.DailyPnL.IsNegative() {
		sev = SeverityWarning
	}
	return Event{
		Type:     EventDailySummary,
		Severity: sev,
		Title:    "Daily summary",
		Body: fmt.Sprintf("PnL %s | loss %s | exposure %s (%.1f%% utilized) | open positions %d",
			report.DailyPnL.StringFixed(2),
			report.DailyLoss.StringFixed(2),
			report.CurrentExposure.StringFixed(2),
			report.UtilizationPct,
			report.OpenPositions,
		),
	}
}
