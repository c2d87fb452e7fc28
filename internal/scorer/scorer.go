// Package scorer ranks opportunities with a weighted multi-factor score in
// [0,1] and filters out those below a configured floor.
package scorer

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

// Scorer computes a composite score over five factors: profitability,
// confidence, inverse risk, execution quality, and timing. Weights come from
// config; the market-condition hint may be updated at runtime by an external
// observer and is read under a mutex.
type Scorer struct {
	cfg    config.ScorerConfig
	logger *slog.Logger
	now    func() time.Time

	mu              sync.RWMutex
	marketCondition float64 // [0,1] external hint, 0.5 = neutral
}

// New creates a scorer with a neutral market-condition hint.
func New(cfg config.ScorerConfig, logger *slog.Logger) *Scorer {
	return &Scorer{
		cfg:             cfg,
		logger:          logger.With(slog.String("component", "scorer")),
		now:             time.Now,
		marketCondition: 0.5,
	}
}

// SetMarketCondition updates the external market-condition hint, clamped to
// [0,1]. Higher means more favorable conditions.
func (s *Scorer) SetMarketCondition(hint float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marketCondition = clamp01(hint)
}

// Score returns the composite score for one opportunity.
func (s *Scorer) Score(opp domain.Opportunity) float64 {
	score := s.cfg.ProfitabilityWeight*s.profitability(opp) +
		s.cfg.ConfidenceWeight*clamp01(opp.Confidence) +
		s.cfg.RiskWeight*clamp01(1-opp.Risk) +
		s.cfg.ExecutionQualityWeight*s.executionQuality(opp) +
		s.cfg.TimingWeight*s.timing(opp)
	return clamp01(score)
}

// Viable reports whether the opportunity clears the configured score floor.
func (s *Scorer) Viable(opp domain.Opportunity) bool {
	return s.Score(opp) >= s.cfg.MinScore
}

// Scored pairs an opportunity with its computed score.
type Scored struct {
	Opportunity domain.Opportunity
	Score       float64
}

// Rank scores all opportunities and returns them best-first. Opportunities
// below the score floor are dropped. Ordering is stable for equal scores.
func (s *Scorer) Rank(opps []domain.Opportunity) []Scored {
	ranked := make([]Scored, 0, len(opps))
	for _, opp := range opps {
		sc := s.Score(opp)
		if sc < s.cfg.MinScore {
			continue
		}
		ranked = append(ranked, Scored{Opportunity: opp, Score: sc})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// profitability blends normalized percentage edge, log-scaled absolute
// profit, and the profit-to-risk ratio.
func (s *Scorer) profitability(opp domain.Opportunity) float64 {
	pct := opp.ExpectedProfitPct.InexactFloat64()
	abs := math.Abs(opp.ExpectedProfit.InexactFloat64())

	pctNorm := clamp01(pct / 2.0)
	absNorm := clamp01(math.Log10(1+abs) / 3.0)
	ratio := clamp01(pct / (opp.Risk + 0.1) / 5.0)

	return clamp01(0.5*pctNorm + 0.25*absNorm + 0.25*ratio)
}

// executionQuality blends source liquidity, a per-leg complexity penalty,
// and venue spread quality.
func (s *Scorer) executionQuality(opp domain.Opportunity) float64 {
	minVol := math.Inf(1)
	var spreadSum float64
	for _, q := range opp.SourceQuotes {
		if v := math.Min(q.BidVolume.InexactFloat64(), q.AskVolume.InexactFloat64()); v < minVol {
			minVol = v
		}
		spreadSum += q.SpreadPct().InexactFloat64()
	}
	if len(opp.SourceQuotes) == 0 {
		return 0
	}

	liquidity := clamp01(minVol / 10.0)
	legPenalty := clamp01(1.0 - 0.15*float64(len(opp.Actions)-1))
	spreadQuality := clamp01(1.0 - spreadSum/float64(len(opp.SourceQuotes)))

	return clamp01(0.4*liquidity + 0.3*legPenalty + 0.3*spreadQuality)
}

// timing blends quote freshness, a detection-latency bucket, and the
// external market-condition hint.
func (s *Scorer) timing(opp domain.Opportunity) float64 {
	age := s.now().Sub(opp.Timestamp)
	freshness := clamp01(1.0 - age.Seconds()/5.0)

	var latency float64
	switch {
	case opp.DetectionLatency < time.Millisecond:
		latency = 1.0
	case opp.DetectionLatency < 10*time.Millisecond:
		latency = 0.8
	case opp.DetectionLatency < 100*time.Millisecond:
		latency = 0.5
	default:
		latency = 0.2
	}

	s.mu.RLock()
	hint := s.marketCondition
	s.mu.RUnlock()

	return clamp01(0.5*freshness + 0.3*latency + 0.2*hint)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
