package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// TradeJournal persists executed trades. The engine never reads its own
// state back from the journal; it exists for observers and archival.
type TradeJournal interface {
	InsertBatch(ctx context.Context, trades []Trade) error
	ListByOpportunity(ctx context.Context, opportunityID string) ([]Trade, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Trade, error)
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OpportunityJournal persists detected opportunities and their outcome.
type OpportunityJournal interface {
	Insert(ctx context.Context, opp Opportunity) error
	MarkExecuted(ctx context.Context, id string) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
	ListBefore(ctx context.Context, before time.Time) ([]Opportunity, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
