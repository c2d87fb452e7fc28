package domain

import "context"

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams for quote batches, detected
// opportunities, trade events, and risk snapshots consumed by external
// observers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// QuoteCache stores the latest quote per (exchange, symbol) for observers
// and slippage checks. The hot path never blocks on it.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote) error
	GetQuote(ctx context.Context, exchange, symbol string) (Quote, error)
	GetSymbolQuotes(ctx context.Context, symbol string) ([]Quote, error)
}
