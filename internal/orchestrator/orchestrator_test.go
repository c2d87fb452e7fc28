package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/detector"
	"github.com/quantarb/arbot/internal/domain"
	"github.com/quantarb/arbot/internal/execution"
	"github.com/quantarb/arbot/internal/risk"
	"github.com/quantarb/arbot/internal/scorer"
)

type stubDetector struct {
	name string
	opps []domain.Opportunity
	err  error
}

func (s *stubDetector) Name() string              { return s.name }
func (s *stubDetector) Strategy() domain.Strategy { return domain.StrategyCrossExchange }
func (s *stubDetector) Analyze(context.Context, []domain.Quote) ([]domain.Opportunity, error) {
	return s.opps, s.err
}

var _ detector.Detector = (*stubDetector)(nil)

type recordingSink struct {
	mu       sync.Mutex
	detected []string
	executed []string
	partials []*domain.PartialExecutionError
}

func (r *recordingSink) OpportunityDetected(_ context.Context, opp domain.Opportunity, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detected = append(r.detected, opp.ID)
}

func (r *recordingSink) OpportunityExecuted(_ context.Context, opp domain.Opportunity, _ []domain.Trade, _ decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executed = append(r.executed, opp.ID)
}

func (r *recordingSink) PartialExecution(_ context.Context, perr *domain.PartialExecutionError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partials = append(r.partials, perr)
}

func goodFill(_ context.Context, o execution.Order, qty decimal.Decimal) (*domain.Trade, error) {
	return &domain.Trade{
		ID: o.ActionID + "-t", OpportunityID: o.OpportunityID, ActionID: o.ActionID,
		Exchange: o.Exchange, Symbol: o.Symbol, Side: o.Side,
		Quantity: qty, Price: o.Price, Status: domain.TradeStatusFilled, Timestamp: time.Now(),
	}, nil
}

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func testEngine(fill execution.FillFunc) *execution.Engine {
	market := func(_, _ string) execution.MarketSnapshot {
		return execution.MarketSnapshot{Volume: decimal.NewFromInt(10), SpreadPct: 0.1}
	}
	return execution.NewEngine(config.ExecutionConfig{
		Algorithm: "twap", NumSlices: 2,
	}, market, fill, quietLogger())
}

func viableOpp(id string) domain.Opportunity {
	buy := domain.Action{
		ID: id + "-buy", Exchange: "alpha", Symbol: "BTC/USDT",
		Side: domain.OrderSideBuy, Quantity: decimal.NewFromInt(1),
		Price: decimal.NewFromInt(100), Priority: 1,
	}
	sell := domain.Action{
		ID: id + "-sell", Exchange: "beta", Symbol: "BTC/USDT",
		Side: domain.OrderSideSell, Quantity: decimal.NewFromInt(1),
		Price: decimal.NewFromInt(101), Priority: 2,
	}
	return domain.Opportunity{
		ID:                id,
		Strategy:          domain.StrategyCrossExchange,
		Symbol:            "BTC/USDT",
		Timestamp:         time.Now(),
		ExpectedProfit:    decimal.NewFromInt(1),
		ExpectedProfitPct: decimal.NewFromInt(1),
		Confidence:        0.9,
		Risk:              0.2,
		Actions:           []domain.Action{buy, sell},
	}
}

func testScorer() *scorer.Scorer {
	return scorer.New(config.ScorerConfig{
		ProfitabilityWeight:    0.30,
		ConfidenceWeight:       0.25,
		RiskWeight:             0.20,
		ExecutionQualityWeight: 0.15,
		TimingWeight:           0.10,
	}, quietLogger())
}

func testRisk() *risk.Manager {
	return risk.NewManager(config.RiskConfig{
		MaxPositionSize:  10_000,
		MaxDailyLoss:     1_000,
		MaxTotalExposure: 50_000,
		MaxRiskScore:     0.7,
	}, quietLogger())
}

func agents() map[string]config.AgentConfig {
	return map[string]config.AgentConfig{
		"stub": {Enabled: true, MinProfitPct: 0.5},
	}
}

func newTestOrchestrator(d detector.Detector, fill execution.FillFunc, sink Sink) *Orchestrator {
	return New([]detector.Detector{d}, agents(), testScorer(), testRisk(), testEngine(fill), sink, quietLogger())
}

func TestPipelineExecutesViableOpportunity(t *testing.T) {
	sink := &recordingSink{}
	d := &stubDetector{name: "stub", opps: []domain.Opportunity{viableOpp("opp-1")}}
	o := newTestOrchestrator(d, goodFill, sink)

	o.HandleBatch(context.Background(), nil)
	o.execWG.Wait()

	st := o.Status()
	assert.Equal(t, 1, st.OpportunitiesTotal)
	assert.Equal(t, 1, st.Viable)
	assert.Equal(t, 1, st.Executed)

	agent := st.Agents["stub"]
	assert.Equal(t, 1, agent.Admitted)
	assert.Equal(t, 1, agent.Executed)
	assert.Equal(t, 1, agent.Wins, "sell 101 against buy 100 realizes +1")
	assert.True(t, agent.TotalPnL.Equal(decimal.NewFromInt(1)), "got %s", agent.TotalPnL)

	assert.Equal(t, []string{"opp-1"}, sink.detected)
	assert.Equal(t, []string{"opp-1"}, sink.executed)

	// Position was closed after settlement: no lingering exposure.
	assert.Equal(t, 0, st.Agents["stub"].Losses)
	assert.True(t, o.Status().Risk.CurrentExposure.IsZero())
}

func TestFailingDetectorIsIsolated(t *testing.T) {
	sink := &recordingSink{}
	bad := &stubDetector{name: "bad", err: errors.New("boom")}
	good := &stubDetector{name: "stub", opps: []domain.Opportunity{viableOpp("opp-1")}}

	o := New([]detector.Detector{bad, good}, agents(), testScorer(), testRisk(), testEngine(goodFill), sink, quietLogger())
	o.HandleBatch(context.Background(), nil)
	o.execWG.Wait()

	st := o.Status()
	assert.Equal(t, 1, st.Executed, "the healthy detector's opportunity still executes")
}

type panickingDetector struct{ name string }

func (p *panickingDetector) Name() string              { return p.name }
func (p *panickingDetector) Strategy() domain.Strategy { return domain.StrategyCrossExchange }
func (p *panickingDetector) Analyze(context.Context, []domain.Quote) ([]domain.Opportunity, error) {
	panic("detector bug")
}

func TestPanickingDetectorIsIsolated(t *testing.T) {
	sink := &recordingSink{}
	bad := &panickingDetector{name: "bad"}
	good := &stubDetector{name: "stub", opps: []domain.Opportunity{viableOpp("opp-1")}}

	o := New([]detector.Detector{bad, good}, agents(), testScorer(), testRisk(), testEngine(goodFill), sink, quietLogger())
	require.NotPanics(t, func() {
		o.HandleBatch(context.Background(), nil)
	})
	o.execWG.Wait()

	st := o.Status()
	assert.Equal(t, 1, st.Executed, "the healthy detector's opportunity still executes")
	assert.Equal(t, []string{"opp-1"}, sink.executed)
}

func TestNonViableOpportunitiesDropped(t *testing.T) {
	lowConf := viableOpp("low-conf")
	lowConf.Confidence = 0.5
	highRisk := viableOpp("high-risk")
	highRisk.Risk = 0.8
	thinProfit := viableOpp("thin")
	thinProfit.ExpectedProfitPct = decimal.NewFromFloat(0.1) // below agent's 0.5 floor

	d := &stubDetector{name: "stub", opps: []domain.Opportunity{lowConf, highRisk, thinProfit}}
	sink := &recordingSink{}
	o := newTestOrchestrator(d, goodFill, sink)

	o.HandleBatch(context.Background(), nil)
	o.execWG.Wait()

	st := o.Status()
	assert.Equal(t, 3, st.OpportunitiesTotal)
	assert.Equal(t, 0, st.Viable)
	assert.Equal(t, 0, st.Executed)
	assert.Empty(t, sink.detected)
}

func TestRiskRejectionCounted(t *testing.T) {
	d := &stubDetector{name: "stub", opps: []domain.Opportunity{viableOpp("opp-1")}}
	rm := risk.NewManager(config.RiskConfig{
		MaxPositionSize:  10, // single leg notional 100 > 10
		MaxDailyLoss:     1_000,
		MaxTotalExposure: 50_000,
		MaxRiskScore:     0.7,
	}, quietLogger())
	o := New([]detector.Detector{d}, agents(), testScorer(), rm, testEngine(goodFill), nil, quietLogger())

	o.HandleBatch(context.Background(), nil)
	o.execWG.Wait()

	st := o.Status()
	assert.Equal(t, 1, st.Viable)
	assert.Equal(t, 0, st.Executed)
	assert.Equal(t, 1, st.Agents["stub"].Rejected)
}

func TestPartialExecutionIsRecordedNotDropped(t *testing.T) {
	fill := func(ctx context.Context, o execution.Order, qty decimal.Decimal) (*domain.Trade, error) {
		if o.Side == domain.OrderSideSell {
			return nil, nil // second leg misses
		}
		return goodFill(ctx, o, qty)
	}
	sink := &recordingSink{}
	d := &stubDetector{name: "stub", opps: []domain.Opportunity{viableOpp("opp-1")}}
	o := newTestOrchestrator(d, fill, sink)

	o.HandleBatch(context.Background(), nil)
	o.execWG.Wait()

	require.Len(t, sink.partials, 1)
	perr := sink.partials[0]
	assert.Equal(t, "opp-1", perr.OpportunityID)
	assert.Equal(t, 2, perr.FailedLeg)
	require.Len(t, perr.Filled, 1, "the filled buy leg is preserved")

	st := o.Status()
	assert.Equal(t, 1, st.Executed, "partial fills still settle into the tallies")
	agent := st.Agents["stub"]
	assert.Equal(t, 1, agent.Losses, "a lone buy leg is negative cash flow")
}

func TestRunConsumesChannelAndDrains(t *testing.T) {
	d := &stubDetector{name: "stub", opps: []domain.Opportunity{viableOpp("opp-1")}}
	o := newTestOrchestrator(d, goodFill, nil)

	batches := make(chan []domain.Quote, 1)
	batches <- nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx, batches) }()

	require.Eventually(t, func() bool {
		return o.Status().Executed == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("orchestrator did not stop")
	}
}
