package risk

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

func testCfg() config.RiskConfig {
	return config.RiskConfig{
		MaxPositionSize:  10_000,
		MaxDailyLoss:     1_000,
		MaxTotalExposure: 50_000,
		MaxRiskScore:     0.7,
	}
}

func newTestManager(cfg config.RiskConfig) *Manager {
	return NewManager(cfg, slog.New(slog.DiscardHandler))
}

func mkOpp(id string, qty, price, risk float64) domain.Opportunity {
	return domain.Opportunity{
		ID:       id,
		Strategy: domain.StrategyCrossExchange,
		Risk:     risk,
		Actions: []domain.Action{{
			ID:       id + "-leg1",
			Quantity: decimal.NewFromFloat(qty),
			Price:    decimal.NewFromFloat(price),
			Side:     domain.OrderSideBuy,
		}},
	}
}

func mkTrade(oppID string, side domain.OrderSide, qty, price float64) domain.Trade {
	return domain.Trade{
		ID:            oppID + "-t",
		OpportunityID: oppID,
		Side:          side,
		Quantity:      decimal.NewFromFloat(qty),
		Price:         decimal.NewFromFloat(price),
		Status:        domain.TradeStatusFilled,
		Fees:          decimal.Zero,
		Timestamp:     time.Now(),
	}
}

func TestAdmitHappyPath(t *testing.T) {
	m := newTestManager(testCfg())

	require.NoError(t, m.Admit(mkOpp("opp-1", 10, 100, 0.3)))

	rep := m.Report()
	assert.Equal(t, 1, rep.OpenPositions)
	assert.True(t, rep.CurrentExposure.Equal(decimal.NewFromInt(1000)))
}

func TestAdmitRejections(t *testing.T) {
	tests := []struct {
		name   string
		opp    domain.Opportunity
		reason string
	}{
		{
			name:   "risk score too high",
			opp:    mkOpp("opp-r", 1, 100, 0.9),
			reason: ReasonRiskScore,
		},
		{
			name:   "total exposure exceeded",
			opp:    mkOpp("opp-e", 1000, 100, 0.3), // 100k > 50k limit
			reason: ReasonTotalExposure,
		},
		{
			name:   "position size exceeded",
			opp:    mkOpp("opp-p", 200, 100, 0.3), // single leg 20k > 10k limit
			reason: ReasonPositionSize,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(testCfg())
			err := m.Admit(tt.opp)
			require.Error(t, err)
			var rej *Rejection
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tt.reason, rej.Reason)
		})
	}
}

func TestDailyLossGateTripsOnNextAdmit(t *testing.T) {
	m := newTestManager(testCfg())

	// Accumulate 950 of realized loss: buy 10@100, sell 10@5.
	require.NoError(t, m.Admit(mkOpp("opp-1", 10, 100, 0.3)))
	m.Record("opp-1", []domain.Trade{
		mkTrade("opp-1", domain.OrderSideBuy, 10, 100),
		mkTrade("opp-1", domain.OrderSideSell, 10, 5),
	})
	rep := m.Report()
	require.True(t, rep.DailyLoss.Equal(decimal.NewFromInt(950)), "got %s", rep.DailyLoss)

	// Still under the 1000 limit: a fresh admit passes, and recording a
	// further 100 loss must not be rejected (record never rejects).
	require.NoError(t, m.Admit(mkOpp("opp-2", 1, 100, 0.3)))
	m.Record("opp-2", []domain.Trade{
		mkTrade("opp-2", domain.OrderSideBuy, 1, 150),
		mkTrade("opp-2", domain.OrderSideSell, 1, 50),
	})

	// Now at 1050 ≥ 1000: the next admit is gated.
	err := m.Admit(mkOpp("opp-3", 1, 100, 0.3))
	require.Error(t, err)
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Daily loss limit reached", rej.Reason)
}

func TestCloseReleasesExposureIdempotently(t *testing.T) {
	m := newTestManager(testCfg())

	require.NoError(t, m.Admit(mkOpp("opp-1", 10, 100, 0.3)))
	require.NoError(t, m.Admit(mkOpp("opp-2", 20, 100, 0.3)))
	require.True(t, m.Report().CurrentExposure.Equal(decimal.NewFromInt(3000)))

	m.Close("opp-1")
	rep := m.Report()
	assert.True(t, rep.CurrentExposure.Equal(decimal.NewFromInt(2000)), "got %s", rep.CurrentExposure)
	assert.Equal(t, 1, rep.OpenPositions)

	// Second close of the same id must not double-decrement.
	m.Close("opp-1")
	rep = m.Report()
	assert.True(t, rep.CurrentExposure.Equal(decimal.NewFromInt(2000)), "got %s", rep.CurrentExposure)
	assert.Equal(t, 1, rep.OpenPositions)

	m.Close("unknown-id")
	assert.True(t, m.Report().CurrentExposure.Equal(decimal.NewFromInt(2000)))
}

func TestRecordReplacesReservedExposure(t *testing.T) {
	m := newTestManager(testCfg())

	require.NoError(t, m.Admit(mkOpp("opp-1", 10, 100, 0.3))) // reserves 1000
	m.Record("opp-1", []domain.Trade{mkTrade("opp-1", domain.OrderSideBuy, 5, 100)})

	rep := m.Report()
	assert.True(t, rep.CurrentExposure.Equal(decimal.NewFromInt(500)),
		"reserved 1000 replaced by 500 actually filled, got %s", rep.CurrentExposure)
}

func TestDateRolloverResetsDailyCounters(t *testing.T) {
	m := newTestManager(testCfg())

	require.NoError(t, m.Admit(mkOpp("opp-1", 10, 100, 0.3)))
	m.Record("opp-1", []domain.Trade{
		mkTrade("opp-1", domain.OrderSideBuy, 1, 100),
		mkTrade("opp-1", domain.OrderSideSell, 1, 50),
	})
	require.True(t, m.Report().DailyLoss.IsPositive())

	// Jump the clock one day forward; the next admit must observe the
	// rollover and zero both daily counters.
	m.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	require.NoError(t, m.Admit(mkOpp("opp-2", 1, 100, 0.3)))

	rep := m.Report()
	assert.True(t, rep.DailyPnL.IsZero(), "daily_pnl: got %s", rep.DailyPnL)
	assert.True(t, rep.DailyLoss.IsZero(), "daily_loss: got %s", rep.DailyLoss)

	// Exposure carries across days; only daily counters reset.
	assert.Equal(t, 2, rep.OpenPositions)
}

func TestConcurrentAdmitsNeverOverAdmit(t *testing.T) {
	cfg := testCfg()
	cfg.MaxTotalExposure = 1_000
	cfg.MaxPositionSize = 1_000
	m := newTestManager(cfg)

	const workers = 16
	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each opportunity reserves 300; at most 3 fit under 1000.
			if err := m.Admit(mkOpp(fmt.Sprintf("opp-%d", i), 3, 100, 0.3)); err == nil {
				admitted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, admitted.Load(), int32(3))
	assert.True(t, m.Report().CurrentExposure.LessThanOrEqual(decimal.NewFromInt(1000)))
}
