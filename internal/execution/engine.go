package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

// Engine turns admitted opportunities into fills. Single-leg opportunities
// are worked by the configured scheduling algorithm; multi-leg plans execute
// their legs one-shot, strictly by ascending priority, because later legs
// depend on earlier fills. A leg failing after earlier fills surfaces as a
// PartialExecutionError carrying everything that did fill — there is no
// automatic rollback.
type Engine struct {
	cfg        config.ExecutionConfig
	algorithms map[string]Algorithm
	fill       FillFunc
	logger     *slog.Logger
}

// NewEngine builds an engine with all five algorithms registered. market
// feeds the volume-sensitive algorithms; fill submits slices to the broker.
func NewEngine(cfg config.ExecutionConfig, market MarketFunc, fill FillFunc, logger *slog.Logger) *Engine {
	dur := cfg.Duration.Duration
	poll := cfg.PollInterval.Duration

	algos := map[string]Algorithm{}
	for _, a := range []Algorithm{
		NewTWAP(dur, cfg.NumSlices, logger),
		NewVWAP(dur, cfg.ParticipationRate, poll, market, logger),
		NewShortfall(dur, cfg.NumSlices, cfg.RiskAversion, cfg.Volatility, logger),
		NewPOV(dur, cfg.TargetPercentage, poll, market, logger),
		NewAdaptive(dur, cfg.Aggressiveness, poll, market, logger),
	} {
		algos[a.Name()] = a
	}

	return &Engine{
		cfg:        cfg,
		algorithms: algos,
		fill:       fill,
		logger:     logger.With(slog.String("component", "execution.engine")),
	}
}

// Algorithm returns a registered algorithm by name.
func (e *Engine) Algorithm(name string) (Algorithm, error) {
	a, ok := e.algorithms[name]
	if !ok {
		return nil, fmt.Errorf("execution: unknown algorithm %q", name)
	}
	return a, nil
}

// Algorithms lists the registered algorithm names, sorted.
func (e *Engine) Algorithms() []string {
	names := make([]string, 0, len(e.algorithms))
	for n := range e.algorithms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Execute runs the opportunity's plan and returns all fills. Cancellation
// mid-run returns the fills collected so far along with the cause.
func (e *Engine) Execute(ctx context.Context, opp domain.Opportunity) ([]domain.Trade, error) {
	if len(opp.Actions) == 0 {
		return nil, nil
	}
	if len(opp.Actions) == 1 {
		return e.executeScheduled(ctx, opp)
	}
	return e.executeLegs(ctx, opp)
}

// executeScheduled works a single-leg opportunity through the configured
// algorithm.
func (e *Engine) executeScheduled(ctx context.Context, opp domain.Opportunity) ([]domain.Trade, error) {
	algo, err := e.Algorithm(e.cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	action := opp.Actions[0]
	trades, err := algo.Execute(ctx, orderFor(opp.ID, action), e.fill)
	if err != nil {
		e.logger.Warn("scheduled execution ended early",
			slog.String("opportunity_id", opp.ID),
			slog.String("algorithm", algo.Name()),
			slog.Int("fills", len(trades)),
			slog.String("error", err.Error()))
		return trades, err
	}

	e.logger.Info("scheduled execution complete",
		slog.String("opportunity_id", opp.ID),
		slog.String("algorithm", algo.Name()),
		slog.Int("fills", len(trades)))
	return trades, nil
}

// executeLegs runs a multi-leg plan one fill per leg, in priority order.
func (e *Engine) executeLegs(ctx context.Context, opp domain.Opportunity) ([]domain.Trade, error) {
	legs := make([]domain.Action, len(opp.Actions))
	copy(legs, opp.Actions)
	sort.SliceStable(legs, func(i, j int) bool { return legs[i].Priority < legs[j].Priority })

	var filled []domain.Trade
	for _, leg := range legs {
		if err := ctx.Err(); err != nil {
			return filled, e.legFailure(opp.ID, leg.Priority, filled, exitErr(ctx))
		}

		trade, err := e.fill(ctx, orderFor(opp.ID, leg), leg.Quantity)
		if err != nil {
			return filled, e.legFailure(opp.ID, leg.Priority, filled, err)
		}
		if trade == nil {
			return filled, e.legFailure(opp.ID, leg.Priority, filled, domain.ErrNoFill)
		}
		filled = append(filled, *trade)
	}

	e.logger.Info("multi-leg execution complete",
		slog.String("opportunity_id", opp.ID),
		slog.Int("legs", len(filled)))
	return filled, nil
}

// legFailure wraps a failed leg: with earlier fills it is a partial
// execution requiring reconciliation, without any it is a plain failure.
func (e *Engine) legFailure(oppID string, priority int, filled []domain.Trade, cause error) error {
	if len(filled) == 0 {
		return fmt.Errorf("execution: leg %d of opportunity %s: %w", priority, oppID, cause)
	}
	perr := &domain.PartialExecutionError{
		OpportunityID: oppID,
		FailedLeg:     priority,
		Filled:        filled,
		Err:           cause,
	}
	e.logger.Error("partial execution, manual reconciliation required",
		slog.String("opportunity_id", oppID),
		slog.Int("failed_leg", priority),
		slog.Int("filled_legs", len(filled)))
	return perr
}

// orderFor maps an action onto the execution order contract.
func orderFor(oppID string, a domain.Action) Order {
	return Order{
		OpportunityID: oppID,
		ActionID:      a.ID,
		Exchange:      a.Exchange,
		Symbol:        a.Symbol,
		Side:          a.Side,
		Quantity:      a.Quantity,
		Price:         a.Price,
		OrderType:     a.OrderType,
	}
}
