package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/domain"
)

type fakeSender struct {
	name string
	err  error
	sent []Event
}

func (s *fakeSender) Send(_ context.Context, ev Event) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, ev)
	return nil
}

func (s *fakeSender) Name() string { return s.name }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNotifyFiltersDisallowedEvents(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, []string{EventOpportunityExecuted}, testLogger())

	require.NoError(t, n.Notify(context.Background(), Event{Type: EventOpportunityDetected, Title: "detected"}))
	assert.Empty(t, sender.sent)

	require.NoError(t, n.Notify(context.Background(), Event{Type: EventOpportunityExecuted, Title: "executed"}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "executed", sender.sent[0].Title)
}

func TestNotifyEmptyEventListAllowsEverything(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), Event{Type: EventDailySummary, Title: "summary"}))
	assert.Len(t, sender.sent, 1)
}

func TestNotifyContinuesPastFailedSender(t *testing.T) {
	failing := &fakeSender{name: "bad", err: errors.New("boom")}
	working := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{failing, working}, nil, testLogger())

	err := n.Notify(context.Background(), Event{Type: EventDailySummary, Title: "title"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	require.Len(t, working.sent, 1, "working sender still receives the event")
	assert.Equal(t, "title", working.sent[0].Title)
}

func TestFormatOpportunityExecuted(t *testing.T) {
	opp := domain.Opportunity{
		Strategy:          domain.StrategyCrossExchange,
		Symbol:            "BTC/USDT",
		ExpectedProfit:    decimal.NewFromFloat(12.5),
		ExpectedProfitPct: decimal.NewFromFloat(0.125),
		Confidence:        0.82,
	}

	ev := FormatOpportunityExecuted(opp, decimal.NewFromFloat(11.2), 2)
	assert.Equal(t, EventOpportunityExecuted, ev.Type)
	assert.Equal(t, SeverityInfo, ev.Severity)
	assert.Equal(t, "Executed: cross_exchange BTC/USDT", ev.Title)
	assert.Contains(t, ev.Body, "PnL 11.20")
	assert.Contains(t, ev.Body, "fills 2")

	losing := FormatOpportunityExecuted(opp, decimal.NewFromFloat(-3), 2)
	assert.Equal(t, SeverityWarning, losing.Severity, "a losing fill escalates")
}

func TestFormatPartialExecution(t *testing.T) {
	perr := &domain.PartialExecutionError{
		OpportunityID: "opp-1",
		FailedLeg:     2,
		Filled:        []domain.Trade{{ID: "t-1"}},
		Err:           errors.New("no fill"),
	}

	ev := FormatPartialExecution(perr)
	assert.Equal(t, EventPartialExecution, ev.Type)
	assert.Equal(t, SeverityCritical, ev.Severity, "one-sided inventory needs immediate attention")
	assert.Contains(t, ev.Title, "Partial execution")
	assert.Contains(t, ev.Body, "leg 2 failed after 1 fill(s)")
}

func TestFormatLimitBreached(t *testing.T) {
	opp := domain.Opportunity{
		Strategy: domain.StrategyTriangular,
		Symbol:   "ETH/USDT",
	}

	ev := FormatLimitBreached(opp, "daily loss limit reached")
	assert.Equal(t, EventLimitBreached, ev.Type)
	assert.Equal(t, SeverityWarning, ev.Severity)
	assert.Contains(t, ev.Body, "daily loss limit reached")
}

func TestFormatDailySummary(t *testing.T) {
	report := domain.RiskReport{
		DailyPnL:        decimal.NewFromFloat(-42.5),
		DailyLoss:       decimal.NewFromFloat(42.5),
		CurrentExposure: decimal.NewFromInt(1500),
		UtilizationPct:  3.0,
		OpenPositions:   2,
	}

	ev := FormatDailySummary(report)
	assert.Equal(t, SeverityWarning, ev.Severity, "a down day is worth flagging")
	assert.Contains(t, ev.Body, "PnL -42.50")
	assert.Contains(t, ev.Body, "open positions 2")
}
