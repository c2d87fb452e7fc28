package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantarb/arbot/internal/domain"
)

// quoteTTL bounds how long a stale quote survives in the cache.
const quoteTTL = 30 * time.Second

// QuoteCache implements domain.QuoteCache with one hash per symbol, keyed by
// exchange, so observers can fetch the full cross-venue picture in one call.
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(symbol string) string {
	return "arbot:quotes:" + symbol
}

// SetQuote stores the latest quote for its (exchange, symbol) and refreshes
// the symbol hash TTL.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("redis: marshal quote: %w", err)
	}

	key := quoteKey(q.Symbol)
	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, key, q.Exchange, data)
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s/%s: %w", q.Exchange, q.Symbol, err)
	}
	return nil
}

// GetQuote fetches the latest quote for one (exchange, symbol), returning
// domain.ErrNotFound when absent or expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, exchange, symbol string) (domain.Quote, error) {
	data, err := qc.rdb.HGet(ctx, quoteKey(symbol), exchange).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.Quote{}, domain.ErrNotFound
		}
		return domain.Quote{}, fmt.Errorf("redis: get quote %s/%s: %w", exchange, symbol, err)
	}

	var q domain.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: unmarshal quote %s/%s: %w", exchange, symbol, err)
	}
	return q, nil
}

// GetSymbolQuotes fetches the latest quote from every venue quoting the
// symbol. A missing symbol yields an empty slice, not an error.
func (qc *QuoteCache) GetSymbolQuotes(ctx context.Context, symbol string) ([]domain.Quote, error) {
	fields, err := qc.rdb.HGetAll(ctx, quoteKey(symbol)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get symbol quotes %s: %w", symbol, err)
	}

	quotes := make([]domain.Quote, 0, len(fields))
	for exchange, data := range fields {
		var q domain.Quote
		if err := json.Unmarshal([]byte(data), &q); err != nil {
			return nil, fmt.Errorf("redis: unmarshal quote %s/%s: %w", exchange, symbol, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
