// Package risk implements admission control and exposure accounting for
// admitted opportunities. All state lives behind a single mutex so the
// check-then-reserve sequence in Admit is atomic; two opportunities can
// never both pass an exposure check against stale totals.
package risk

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

// Rejection reasons surfaced to callers. These are expected outcomes, not
// faults; the orchestrator logs them and moves on.
const (
	ReasonDailyLossLimit = "Daily loss limit reached"
	ReasonRiskScore      = "Opportunity risk score too high"
	ReasonTotalExposure  = "Total exposure limit exceeded"
	ReasonPositionSize   = "Position size limit exceeded"
)

// Rejection is returned by Admit when an opportunity fails a limit check.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return "risk: rejected: " + r.Reason }

// Manager gates opportunities against configured limits and tracks open
// positions. Daily counters reset lazily the first time any call observes a
// calendar-day rollover; there is no background reset timer.
type Manager struct {
	maxPositionSize  decimal.Decimal
	maxDailyLoss     decimal.Decimal
	maxTotalExposure decimal.Decimal
	maxRiskScore     float64

	logger *slog.Logger
	now    func() time.Time

	mu              sync.Mutex
	currentExposure decimal.Decimal
	dailyPnL        decimal.Decimal
	dailyLoss       decimal.Decimal
	lastReset       time.Time
	positions       map[string]*domain.Position
}

// NewManager creates a risk manager with zeroed counters anchored to today.
func NewManager(cfg config.RiskConfig, logger *slog.Logger) *Manager {
	m := &Manager{
		maxPositionSize:  decimal.NewFromFloat(cfg.MaxPositionSize),
		maxDailyLoss:     decimal.NewFromFloat(cfg.MaxDailyLoss),
		maxTotalExposure: decimal.NewFromFloat(cfg.MaxTotalExposure),
		maxRiskScore:     cfg.MaxRiskScore,
		logger:           logger.With(slog.String("component", "risk")),
		now:              time.Now,
		currentExposure:  decimal.Zero,
		dailyPnL:         decimal.Zero,
		dailyLoss:        decimal.Zero,
		positions:        make(map[string]*domain.Position),
	}
	m.lastReset = m.now()
	return m
}

// Admit checks the opportunity against all limits and, on success, reserves
// its estimated exposure so later admits see the updated total. Returns a
// *Rejection on any failed check.
func (m *Manager) Admit(opp domain.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetLocked()

	if m.dailyLoss.GreaterThanOrEqual(m.maxDailyLoss) {
		return &Rejection{Reason: ReasonDailyLossLimit}
	}
	if opp.Risk > m.maxRiskScore {
		return &Rejection{Reason: ReasonRiskScore}
	}

	estimated := opp.EstimatedExposure()
	if m.currentExposure.Add(estimated).GreaterThan(m.maxTotalExposure) {
		return &Rejection{Reason: ReasonTotalExposure}
	}
	if opp.MaxActionExposure().GreaterThan(m.maxPositionSize) {
		return &Rejection{Reason: ReasonPositionSize}
	}

	m.positions[opp.ID] = &domain.Position{
		OpportunityID: opp.ID,
		Value:         estimated,
		PnL:           decimal.Zero,
		OpenedAt:      m.now(),
	}
	m.currentExposure = m.currentExposure.Add(estimated)

	m.logger.Debug("opportunity admitted",
		slog.String("opportunity_id", opp.ID),
		slog.String("strategy", string(opp.Strategy)),
		slog.String("exposure", estimated.String()))
	return nil
}

// Record folds a batch of fills for an admitted opportunity into the
// counters: the position's reserved value is replaced by the actual filled
// notional, realized pnl accrues to daily_pnl, and losses accrue to
// daily_loss. Record never rejects; admission happened pre-trade.
func (m *Manager) Record(opportunityID string, trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetLocked()

	pos, ok := m.positions[opportunityID]
	if !ok {
		pos = &domain.Position{OpportunityID: opportunityID, Value: decimal.Zero, OpenedAt: m.now()}
		m.positions[opportunityID] = pos
	}

	filled := decimal.Zero
	for _, t := range trades {
		filled = filled.Add(t.Notional().Abs())
	}
	pnl := domain.RealizedPnL(trades)

	// Swap the reserved estimate for actual filled notional.
	m.currentExposure = m.currentExposure.Sub(pos.Value).Add(filled)
	if m.currentExposure.IsNegative() {
		m.currentExposure = decimal.Zero
	}
	pos.Value = filled
	pos.PnL = pos.PnL.Add(pnl)
	pos.Trades = append(pos.Trades, trades...)

	m.dailyPnL = m.dailyPnL.Add(pnl)
	if pnl.IsNegative() {
		m.dailyLoss = m.dailyLoss.Add(pnl.Abs())
	}

	m.logger.Debug("trades recorded",
		slog.String("opportunity_id", opportunityID),
		slog.Int("trades", len(trades)),
		slog.String("pnl", pnl.String()))
}

// Close releases the exposure tracked for the opportunity. Closing an
// unknown or already-closed id is a no-op.
func (m *Manager) Close(opportunityID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[opportunityID]
	if !ok {
		return
	}
	m.currentExposure = m.currentExposure.Sub(pos.Value)
	if m.currentExposure.IsNegative() {
		m.currentExposure = decimal.Zero
	}
	delete(m.positions, opportunityID)

	m.logger.Debug("position closed", slog.String("opportunity_id", opportunityID))
}

// Report returns a snapshot of the counters.
func (m *Manager) Report() domain.RiskReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetLocked()

	var util float64
	if m.maxTotalExposure.IsPositive() {
		util = m.currentExposure.Div(m.maxTotalExposure).InexactFloat64() * 100
	}
	return domain.RiskReport{
		CurrentExposure: m.currentExposure,
		DailyPnL:        m.dailyPnL,
		DailyLoss:       m.dailyLoss,
		UtilizationPct:  util,
		OpenPositions:   len(m.positions),
		LastReset:       m.lastReset,
	}
}

// maybeResetLocked zeroes the daily counters the first time a call observes
// a calendar-day change. Caller must hold m.mu.
func (m *Manager) maybeResetLocked() {
	now := m.now()
	if sameDay(now, m.lastReset) {
		return
	}
	m.logger.Info("daily counters reset",
		slog.Time("previous_reset", m.lastReset),
		slog.String("daily_pnl", m.dailyPnL.String()),
		slog.String("daily_loss", m.dailyLoss.String()))
	m.dailyPnL = decimal.Zero
	m.dailyLoss = decimal.Zero
	m.lastReset = now
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
