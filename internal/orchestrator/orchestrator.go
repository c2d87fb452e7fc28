// Package orchestrator drives the detection-to-execution pipeline: each
// quote batch fans out to all detectors in parallel, surviving opportunities
// are scored, admitted through risk control in a deterministic order, and
// executed on their own goroutines while the next batch is already being
// analyzed.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/detector"
	"github.com/quantarb/arbot/internal/domain"
	"github.com/quantarb/arbot/internal/execution"
	"github.com/quantarb/arbot/internal/risk"
	"github.com/quantarb/arbot/internal/scorer"
)

// Sink receives pipeline events. Implementations fan them out to the signal
// bus, journals, and notifiers; a nil sink disables eventing.
type Sink interface {
	OpportunityDetected(ctx context.Context, opp domain.Opportunity, score float64)
	OpportunityExecuted(ctx context.Context, opp domain.Opportunity, trades []domain.Trade, pnl decimal.Decimal)
	PartialExecution(ctx context.Context, perr *domain.PartialExecutionError)
}

// AgentStats tallies one detector's outcomes.
type AgentStats struct {
	Detected int             `json:"detected"`
	Viable   int             `json:"viable"`
	Admitted int             `json:"admitted"`
	Rejected int             `json:"rejected"`
	Executed int             `json:"executed"`
	Wins     int             `json:"wins"`
	Losses   int             `json:"losses"`
	TotalPnL decimal.Decimal `json:"total_pnl"`
}

// Status is the aggregate pipeline snapshot exposed to observers.
type Status struct {
	OpportunitiesTotal int                   `json:"opportunities_total"`
	Viable             int                   `json:"viable"`
	Executed           int                   `json:"executed"`
	Agents             map[string]AgentStats `json:"agents"`
	Risk               domain.RiskReport     `json:"risk"`
}

// Orchestrator wires the closed set of detectors to the risk manager and
// execution engine. Stats are guarded by their own mutex; risk state is
// serialized inside the risk manager itself.
type Orchestrator struct {
	detectors []detector.Detector
	agents    map[string]config.AgentConfig
	scorer    *scorer.Scorer
	risk      *risk.Manager
	engine    *execution.Engine
	sink      Sink
	logger    *slog.Logger

	mu     sync.Mutex
	stats  map[string]*AgentStats
	totals struct {
		detected, viable, executed int
	}

	execWG sync.WaitGroup
}

// New creates an orchestrator over the given detectors. agents maps detector
// name to its viability thresholds; detectors missing from the map use the
// global floor only.
func New(
	detectors []detector.Detector,
	agents map[string]config.AgentConfig,
	sc *scorer.Scorer,
	rm *risk.Manager,
	engine *execution.Engine,
	sink Sink,
	logger *slog.Logger,
) *Orchestrator {
	stats := make(map[string]*AgentStats, len(detectors))
	for _, d := range detectors {
		stats[d.Name()] = &AgentStats{TotalPnL: decimal.Zero}
	}
	return &Orchestrator{
		detectors: detectors,
		agents:    agents,
		scorer:    sc,
		risk:      rm,
		engine:    engine,
		sink:      sink,
		logger:    logger.With(slog.String("component", "orchestrator")),
		stats:     stats,
	}
}

// Run consumes quote batches until the context ends, then waits for all
// in-flight executions to drain.
func (o *Orchestrator) Run(ctx context.Context, batches <-chan []domain.Quote) error {
	defer o.execWG.Wait()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator stopping, draining executions")
			return ctx.Err()
		case quotes, ok := <-batches:
			if !ok {
				return nil
			}
			o.HandleBatch(ctx, quotes)
		}
	}
}

// HandleBatch runs one tick of the pipeline.
func (o *Orchestrator) HandleBatch(ctx context.Context, quotes []domain.Quote) {
	start := time.Now()

	// 1. Fan out to every detector; one failing agent is logged and
	// excluded without affecting the others.
	results := make([][]domain.Opportunity, len(o.detectors))
	var wg sync.WaitGroup
	for i, d := range o.detectors {
		wg.Add(1)
		go func(i int, d detector.Detector) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("detector panicked, skipping for this tick",
						slog.String("detector", d.Name()),
						slog.Any("panic", r))
				}
			}()
			opps, err := d.Analyze(ctx, quotes)
			if err != nil {
				o.logger.Error("detector failed, skipping for this tick",
					slog.String("detector", d.Name()),
					slog.String("error", err.Error()))
				return
			}
			results[i] = opps
		}(i, d)
	}
	wg.Wait()

	latency := time.Since(start)

	// 2. Concatenate in registration order so admission is deterministic.
	for i, d := range o.detectors {
		agent := d.Name()
		for _, opp := range results[i] {
			opp.DetectionLatency = latency
			o.process(ctx, agent, opp)
		}
	}
}

// process filters, scores, admits, and dispatches one opportunity.
func (o *Orchestrator) process(ctx context.Context, agent string, opp domain.Opportunity) {
	o.bumpDetected(agent)

	if !o.viable(agent, opp) {
		return
	}
	score := o.scorer.Score(opp)
	if !o.scorer.Viable(opp) {
		return
	}
	o.bumpViable(agent)

	if o.sink != nil {
		o.sink.OpportunityDetected(ctx, opp, score)
	}

	if err := o.risk.Admit(opp); err != nil {
		o.bumpRejected(agent)
		var rej *risk.Rejection
		if errors.As(err, &rej) {
			o.logger.Info("opportunity rejected",
				slog.String("opportunity_id", opp.ID),
				slog.String("agent", agent),
				slog.String("reason", rej.Reason))
		} else {
			o.logger.Error("admission failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()))
		}
		return
	}
	o.bumpAdmitted(agent)

	o.logger.Info("opportunity admitted",
		slog.String("opportunity_id", opp.ID),
		slog.String("agent", agent),
		slog.String("symbol", opp.Symbol),
		slog.String("expected_profit", opp.ExpectedProfit.String()),
		slog.Float64("score", score))

	// 3. Execute on its own goroutine; detection of the next tick proceeds.
	o.execWG.Add(1)
	go func() {
		defer o.execWG.Done()
		o.execute(ctx, agent, opp)
	}()
}

// execute runs the plan and settles the outcome with the risk manager and
// the agent's tallies. Partial executions are recorded, never dropped.
func (o *Orchestrator) execute(ctx context.Context, agent string, opp domain.Opportunity) {
	trades, err := o.engine.Execute(ctx, opp)

	var perr *domain.PartialExecutionError
	switch {
	case err == nil:
	case errors.As(err, &perr):
		trades = perr.Filled
		o.logger.Error("partial execution",
			slog.String("opportunity_id", opp.ID),
			slog.Int("failed_leg", perr.FailedLeg),
			slog.Int("filled_legs", len(trades)))
		if o.sink != nil {
			o.sink.PartialExecution(ctx, perr)
		}
	default:
		o.logger.Warn("execution ended early",
			slog.String("opportunity_id", opp.ID),
			slog.Int("fills", len(trades)),
			slog.String("error", err.Error()))
	}

	if len(trades) == 0 {
		o.risk.Close(opp.ID)
		return
	}

	o.risk.Record(opp.ID, trades)
	pnl := domain.RealizedPnL(trades)
	o.settle(agent, pnl)
	o.risk.Close(opp.ID)

	if o.sink != nil {
		o.sink.OpportunityExecuted(ctx, opp, trades, pnl)
	}
}

// viable applies the pre-admission filter: the agent's own profit floor plus
// the global confidence and risk gates.
func (o *Orchestrator) viable(agent string, opp domain.Opportunity) bool {
	cfg := o.agents[agent]
	if opp.ExpectedProfitPct.InexactFloat64() < cfg.MinProfitPct {
		return false
	}
	minConfidence := cfg.MinConfidence
	if minConfidence < 0.7 {
		minConfidence = 0.7
	}
	maxRisk := cfg.MaxRisk
	if maxRisk <= 0 || maxRisk > 0.5 {
		maxRisk = 0.5
	}
	return opp.Confidence >= minConfidence && opp.Risk <= maxRisk
}

// Status returns the aggregate pipeline snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	agents := make(map[string]AgentStats, len(o.stats))
	for name, s := range o.stats {
		agents[name] = *s
	}
	st := Status{
		OpportunitiesTotal: o.totals.detected,
		Viable:             o.totals.viable,
		Executed:           o.totals.executed,
		Agents:             agents,
	}
	o.mu.Unlock()

	st.Risk = o.risk.Report()
	return st
}

func (o *Orchestrator) bumpDetected(agent string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.totals.detected++
	if s := o.stats[agent]; s != nil {
		s.Detected++
	}
}

func (o *Orchestrator) bumpViable(agent string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.totals.viable++
	if s := o.stats[agent]; s != nil {
		s.Viable++
	}
}

func (o *Orchestrator) bumpAdmitted(agent string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s := o.stats[agent]; s != nil {
		s.Admitted++
	}
}

func (o *Orchestrator) bumpRejected(agent string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s := o.stats[agent]; s != nil {
		s.Rejected++
	}
}

func (o *Orchestrator) settle(agent string, pnl decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.totals.executed++
	s := o.stats[agent]
	if s == nil {
		return
	}
	s.Executed++
	s.TotalPnL = s.TotalPnL.Add(pnl)
	if pnl.IsNegative() {
		s.Losses++
	} else {
		s.Wins++
	}
}
