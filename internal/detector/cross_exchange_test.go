package detector

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func mkQuote(exchange, symbol string, bid, ask, bidVol, askVol float64) domain.Quote {
	return domain.Quote{
		Exchange:  exchange,
		Symbol:    symbol,
		BidPrice:  decimal.NewFromFloat(bid),
		AskPrice:  decimal.NewFromFloat(ask),
		BidVolume: decimal.NewFromFloat(bidVol),
		AskVolume: decimal.NewFromFloat(askVol),
		Timestamp: time.Now(),
	}
}

func TestCrossExchangeDetectsSpread(t *testing.T) {
	d := NewCrossExchange(config.CrossExchangeConfig{MinSpreadThreshold: 0.5}, testLogger())

	quotes := []domain.Quote{
		mkQuote("alpha", "BTC/USDT", 99.5, 100.0, 8, 10),
		mkQuote("beta", "BTC/USDT", 101.0, 101.5, 5, 7),
	}

	opps, err := d.Analyze(context.Background(), quotes)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, domain.StrategyCrossExchange, opp.Strategy)
	assert.Equal(t, "BTC/USDT", opp.Symbol)

	// Buy alpha@100, sell beta@101: 1% edge over 5 tradable units.
	assert.InDelta(t, 1.0, opp.ExpectedProfitPct.InexactFloat64(), 1e-9)
	assert.InDelta(t, 5.0, opp.ExpectedProfit.InexactFloat64(), 1e-9)

	require.Len(t, opp.Actions, 2)
	buy, sell := opp.Actions[0], opp.Actions[1]
	assert.Equal(t, domain.OrderSideBuy, buy.Side)
	assert.Equal(t, "alpha", buy.Exchange)
	assert.Equal(t, 1, buy.Priority)
	assert.True(t, buy.Price.Equal(decimal.NewFromFloat(100.0)))
	assert.True(t, buy.Quantity.Equal(decimal.NewFromFloat(5.0)))
	assert.Equal(t, domain.OrderSideSell, sell.Side)
	assert.Equal(t, "beta", sell.Exchange)
	assert.Equal(t, 2, sell.Priority)
	assert.True(t, sell.Price.Equal(decimal.NewFromFloat(101.0)))

	assert.GreaterOrEqual(t, opp.Confidence, 0.0)
	assert.LessOrEqual(t, opp.Confidence, 1.0)
	assert.GreaterOrEqual(t, opp.Risk, 0.0)
	assert.LessOrEqual(t, opp.Risk, 1.0)
}

func TestCrossExchangeRespectsThreshold(t *testing.T) {
	d := NewCrossExchange(config.CrossExchangeConfig{MinSpreadThreshold: 2.0}, testLogger())

	quotes := []domain.Quote{
		mkQuote("alpha", "BTC/USDT", 99.5, 100.0, 8, 10),
		mkQuote("beta", "BTC/USDT", 101.0, 101.5, 5, 7),
	}

	opps, err := d.Analyze(context.Background(), quotes)
	require.NoError(t, err)
	assert.Empty(t, opps, "1%% edge must not clear a 2%% threshold")
}

func TestCrossExchangeSkipsUnprofitableAndIllliquid(t *testing.T) {
	d := NewCrossExchange(config.CrossExchangeConfig{MinSpreadThreshold: 0.1}, testLogger())

	t.Run("no positive spread", func(t *testing.T) {
		quotes := []domain.Quote{
			mkQuote("alpha", "ETH/USDT", 100.0, 100.5, 5, 5),
			mkQuote("beta", "ETH/USDT", 100.2, 100.7, 5, 5),
		}
		opps, err := d.Analyze(context.Background(), quotes)
		require.NoError(t, err)
		assert.Empty(t, opps)
	})

	t.Run("zero tradable volume", func(t *testing.T) {
		quotes := []domain.Quote{
			mkQuote("alpha", "ETH/USDT", 99.0, 100.0, 5, 0),
			mkQuote("beta", "ETH/USDT", 102.0, 102.5, 5, 5),
		}
		opps, err := d.Analyze(context.Background(), quotes)
		require.NoError(t, err)
		assert.Empty(t, opps)
	})

	t.Run("single venue", func(t *testing.T) {
		quotes := []domain.Quote{mkQuote("alpha", "ETH/USDT", 99.0, 100.0, 5, 5)}
		opps, err := d.Analyze(context.Background(), quotes)
		require.NoError(t, err)
		assert.Empty(t, opps)
	})
}

func TestCrossExchangeIgnoresInvalidQuotes(t *testing.T) {
	d := NewCrossExchange(config.CrossExchangeConfig{MinSpreadThreshold: 0.1}, testLogger())

	quotes := []domain.Quote{
		mkQuote("alpha", "BTC/USDT", 0, 0, 5, 5), // one-sided, invalid
		mkQuote("beta", "BTC/USDT", 101.0, 101.5, 5, 7),
	}
	opps, err := d.Analyze(context.Background(), quotes)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestCrossExchangeCancelledContext(t *testing.T) {
	d := NewCrossExchange(config.CrossExchangeConfig{MinSpreadThreshold: 0.1}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Analyze(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
}
