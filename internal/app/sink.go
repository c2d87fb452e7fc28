package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantarb/arbot/internal/cache/redis"
	"github.com/quantarb/arbot/internal/domain"
	"github.com/quantarb/arbot/internal/notify"
	"github.com/quantarb/arbot/internal/orchestrator"
)

// sinkTimeout bounds how long event delivery may block the pipeline's
// goroutines.
const sinkTimeout = 5 * time.Second

// engineSink fans pipeline events out to the signal bus, the journals, and
// the notifier. Every collaborator is optional; a disabled backend simply
// skips its branch.
type engineSink struct {
	bus      domain.SignalBus
	opps     domain.OpportunityJournal
	trades   domain.TradeJournal
	notifier *notify.Notifier
	logger   *slog.Logger
}

func newEngineSink(deps *Dependencies, logger *slog.Logger) *engineSink {
	return &engineSink{
		bus:      deps.SignalBus,
		opps:     deps.OpportunityJournal,
		trades:   deps.TradeJournal,
		notifier: deps.Notifier,
		logger:   logger.With(slog.String("component", "sink")),
	}
}

// OpportunityDetected journals the opportunity and publishes it on the bus.
func (s *engineSink) OpportunityDetected(ctx context.Context, opp domain.Opportunity, score float64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	if s.opps != nil {
		if err := s.opps.Insert(ctx, opp); err != nil {
			s.logger.Error("journal opportunity failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()))
		}
	}

	s.publish(ctx, redis.ChannelOpportunities, redis.StreamOpportunities, map[string]any{
		"type":        "opportunity_detected",
		"score":       score,
		"opportunity": opp,
	})
}

// OpportunityExecuted journals the fills, marks the opportunity executed,
// publishes the outcome, and notifies operators.
func (s *engineSink) OpportunityExecuted(ctx context.Context, opp domain.Opportunity, trades []domain.Trade, pnl decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	if s.trades != nil {
		if err := s.trades.InsertBatch(ctx, trades); err != nil {
			s.logger.Error("journal trades failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()))
		}
	}
	if s.opps != nil {
		if err := s.opps.MarkExecuted(ctx, opp.ID); err != nil {
			s.logger.Error("mark executed failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()))
		}
	}

	s.publish(ctx, redis.ChannelTrades, redis.StreamTrades, map[string]any{
		"type":           "opportunity_executed",
		"opportunity_id": opp.ID,
		"pnl":            pnl,
		"trades":         trades,
	})

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, notify.FormatOpportunityExecuted(opp, pnl, len(trades))); err != nil {
			s.logger.Warn("notify failed", slog.String("error", err.Error()))
		}
	}
}

// PartialExecution publishes the failure and notifies operators.
func (s *engineSink) PartialExecution(ctx context.Context, perr *domain.PartialExecutionError) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	s.publish(ctx, redis.ChannelTrades, redis.StreamTrades, map[string]any{
		"type":           "partial_execution",
		"opportunity_id": perr.OpportunityID,
		"failed_leg":     perr.FailedLeg,
		"filled":         perr.Filled,
	})

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, notify.FormatPartialExecution(perr)); err != nil {
			s.logger.Warn("notify failed", slog.String("error", err.Error()))
		}
	}
}

// publish marshals the payload and delivers it to both the pub/sub channel
// and the durable stream.
func (s *engineSink) publish(ctx context.Context, channel, stream string, payload any) {
	if s.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal event failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, channel, data); err != nil {
		s.logger.Warn("publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()))
	}
	if err := s.bus.StreamAppend(ctx, stream, data); err != nil {
		s.logger.Warn("stream append failed",
			slog.String("stream", stream),
			slog.String("error", err.Error()))
	}
}

// Compile-time interface check.
var _ orchestrator.Sink = (*engineSink)(nil)
