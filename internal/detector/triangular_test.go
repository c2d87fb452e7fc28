package detector

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

// triangleQuotes prices a cycle where 1 ETH -> 2000 USDT -> 0.05 BTC ->
// 1.0204 ETH, a ~2.04% forward profit.
func triangleQuotes() []domain.Quote {
	return []domain.Quote{
		mkQuote("alpha", "ETH/USDT", 2000.0, 2010.0, 10, 10),
		mkQuote("alpha", "BTC/USDT", 39900.0, 40000.0, 2, 2),
		mkQuote("alpha", "ETH/BTC", 0.0485, 0.049, 50, 50),
	}
}

func TestTriangularDetectsForwardCycle(t *testing.T) {
	d := NewTriangular(config.TriangularConfig{
		MinProfitThreshold: 0.5,
		BaseAmount:         1.0,
	}, testLogger())

	opps, err := d.Analyze(context.Background(), triangleQuotes())
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, domain.StrategyTriangular, opp.Strategy)
	assert.Equal(t, "ETH", opp.Symbol)
	assert.Equal(t, "forward", opp.Metadata["direction"])

	// 1/(0.049 * 40000/2000) - 1 = 2.0408...%
	assert.InDelta(t, 2.0408, opp.ExpectedProfitPct.InexactFloat64(), 0.001)

	require.Len(t, opp.Actions, 3)
	assert.Equal(t, "ETH/USDT", opp.Actions[0].Symbol)
	assert.Equal(t, domain.OrderSideSell, opp.Actions[0].Side)
	assert.Equal(t, "BTC/USDT", opp.Actions[1].Symbol)
	assert.Equal(t, domain.OrderSideBuy, opp.Actions[1].Side)
	assert.Equal(t, "ETH/BTC", opp.Actions[2].Symbol)
	assert.Equal(t, domain.OrderSideBuy, opp.Actions[2].Side)
	for i, a := range opp.Actions {
		assert.Equal(t, i+1, a.Priority)
		assert.Equal(t, "alpha", a.Exchange)
	}
}

func TestTriangularRespectsProfitThreshold(t *testing.T) {
	d := NewTriangular(config.TriangularConfig{
		MinProfitThreshold: 5.0,
		BaseAmount:         1.0,
	}, testLogger())

	opps, err := d.Analyze(context.Background(), triangleQuotes())
	require.NoError(t, err)
	assert.Empty(t, opps, "2%% cycle must not clear a 5%% threshold")
}

func TestTriangularNoTriangleNoOpportunity(t *testing.T) {
	d := NewTriangular(config.TriangularConfig{
		MinProfitThreshold: 0.1,
		BaseAmount:         1.0,
	}, testLogger())

	// Only two pairs on the venue: no cycle can be built.
	quotes := []domain.Quote{
		mkQuote("alpha", "ETH/USDT", 2000.0, 2010.0, 10, 10),
		mkQuote("alpha", "BTC/USDT", 39900.0, 40000.0, 2, 2),
	}
	opps, err := d.Analyze(context.Background(), quotes)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestTriangularIgnoresCrossVenueQuotes(t *testing.T) {
	d := NewTriangular(config.TriangularConfig{
		MinProfitThreshold: 0.1,
		BaseAmount:         1.0,
	}, testLogger())

	// Same three pairs but spread over two venues: cycles are per-exchange.
	quotes := []domain.Quote{
		mkQuote("alpha", "ETH/USDT", 2000.0, 2010.0, 10, 10),
		mkQuote("alpha", "BTC/USDT", 39900.0, 40000.0, 2, 2),
		mkQuote("beta", "ETH/BTC", 0.0485, 0.049, 50, 50),
	}
	opps, err := d.Analyze(context.Background(), quotes)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestTriangularSkipsUnparsableSymbols(t *testing.T) {
	d := NewTriangular(config.TriangularConfig{
		MinProfitThreshold: 0.1,
		BaseAmount:         1.0,
	}, testLogger())

	quotes := append(triangleQuotes(), mkQuote("alpha", "NOTAPAIR", 1, 2, 1, 1))
	opps, err := d.Analyze(context.Background(), quotes)
	require.NoError(t, err)
	require.Len(t, opps, 1)
}

func TestSimulateRoundTrip(t *testing.T) {
	quotes := triangleQuotes()
	pairs := parsePairs(quotes)
	require.Len(t, pairs, 3)

	// Forward route from 1 ETH: p1 sell, p3 buy BTC, p2 buy ETH.
	final, steps, ok := simulate(decimal.NewFromInt(1), "ETH", []pair{pairs[0], pairs[1], pairs[2]})
	require.True(t, ok)
	require.Len(t, steps, 3)
	assert.InDelta(t, 1.020408, final.InexactFloat64(), 1e-5)
}
