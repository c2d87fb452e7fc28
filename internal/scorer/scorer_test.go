package scorer

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

func testCfg() config.ScorerConfig {
	return config.ScorerConfig{
		ProfitabilityWeight:    0.30,
		ConfidenceWeight:       0.25,
		RiskWeight:             0.20,
		ExecutionQualityWeight: 0.15,
		TimingWeight:           0.10,
		MinScore:               0.0,
	}
}

func mkOpp(profitPct float64, confidence, risk float64) domain.Opportunity {
	q := domain.Quote{
		Exchange:  "alpha",
		Symbol:    "BTC/USDT",
		BidPrice:  decimal.NewFromFloat(99.9),
		AskPrice:  decimal.NewFromFloat(100.1),
		BidVolume: decimal.NewFromInt(10),
		AskVolume: decimal.NewFromInt(10),
		Timestamp: time.Now(),
	}
	return domain.Opportunity{
		ID:                fmt.Sprintf("opp-%v-%v-%v", profitPct, confidence, risk),
		Strategy:          domain.StrategyCrossExchange,
		Symbol:            "BTC/USDT",
		Timestamp:         time.Now(),
		ExpectedProfit:    decimal.NewFromFloat(profitPct), // per-unit, 100 base
		ExpectedProfitPct: decimal.NewFromFloat(profitPct),
		Confidence:        confidence,
		Risk:              risk,
		SourceQuotes:      []domain.Quote{q},
		Actions:           []domain.Action{{Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)}},
	}
}

func TestScoreBounded(t *testing.T) {
	s := New(testCfg(), slog.New(slog.DiscardHandler))

	for _, opp := range []domain.Opportunity{
		mkOpp(0, 0, 1),
		mkOpp(100, 1, 0),
		mkOpp(1.5, 0.8, 0.2),
	} {
		score := s.Score(opp)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestBetterOpportunityScoresHigher(t *testing.T) {
	s := New(testCfg(), slog.New(slog.DiscardHandler))

	good := mkOpp(2.0, 0.9, 0.1)
	bad := mkOpp(0.1, 0.3, 0.8)

	assert.Greater(t, s.Score(good), s.Score(bad))
}

func TestRankOrdersBestFirstAndFilters(t *testing.T) {
	cfg := testCfg()
	cfg.MinScore = 0.3
	s := New(cfg, slog.New(slog.DiscardHandler))

	good := mkOpp(2.0, 0.9, 0.1)
	mid := mkOpp(0.8, 0.7, 0.3)
	bad := mkOpp(0.0, 0.0, 1.0)

	ranked := s.Rank([]domain.Opportunity{bad, mid, good})
	require.Len(t, ranked, 2, "the hopeless opportunity is filtered out")
	assert.Equal(t, good.ID, ranked[0].Opportunity.ID)
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)
}

func TestViableRespectsFloor(t *testing.T) {
	cfg := testCfg()
	cfg.MinScore = 0.99
	s := New(cfg, slog.New(slog.DiscardHandler))

	assert.False(t, s.Viable(mkOpp(1.0, 0.8, 0.2)))

	cfg.MinScore = 0.0
	s = New(cfg, slog.New(slog.DiscardHandler))
	assert.True(t, s.Viable(mkOpp(1.0, 0.8, 0.2)))
}

func TestMarketConditionHintShiftsTiming(t *testing.T) {
	s := New(testCfg(), slog.New(slog.DiscardHandler))
	opp := mkOpp(1.0, 0.8, 0.2)

	base := s.Score(opp)
	s.SetMarketCondition(1.0)
	favorable := s.Score(opp)
	s.SetMarketCondition(0.0)
	hostile := s.Score(opp)

	assert.Greater(t, favorable, base)
	assert.Less(t, hostile, base)
}
