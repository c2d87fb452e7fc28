package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantarb/arbot/internal/cache/redis"
	"github.com/quantarb/arbot/internal/domain"
	"github.com/quantarb/arbot/internal/feed"
	"github.com/quantarb/arbot/internal/notify"
	"github.com/quantarb/arbot/internal/orchestrator"
	"github.com/quantarb/arbot/internal/server"
	"github.com/quantarb/arbot/internal/server/handler"
	"github.com/quantarb/arbot/internal/server/ws"
)

// riskPublishInterval paces risk snapshots onto the signal bus.
const riskPublishInterval = 30 * time.Second

// RunMode starts the full pipeline: feed, detection, scoring, admission,
// execution, plus the optional observation surfaces.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode",
		slog.Int("detectors", len(deps.Detectors)))

	g, ctx := errgroup.WithContext(ctx)

	sink := newEngineSink(deps, a.logger)
	orch := orchestrator.New(deps.Detectors, deps.Agents, deps.Scorer, deps.Risk, deps.Engine, sink, a.logger)

	batches := make(chan []domain.Quote, 8)
	deps.Feed.Subscribe(func(quotes []domain.Quote) {
		select {
		case batches <- quotes:
		default:
			a.logger.Warn("quote batch dropped, pipeline busy")
		}
	})
	if deps.QuoteCache != nil {
		deps.Feed.Subscribe(a.cacheQuotes(deps.QuoteCache))
	}

	g.Go(func() error { return deps.Feed.Run(ctx) })
	g.Go(func() error { return orch.Run(ctx, batches) })

	if deps.SignalBus != nil {
		g.Go(func() error { return a.publishRiskSnapshots(ctx, deps) })
	}
	if deps.Archiver != nil {
		g.Go(func() error { return a.runArchiver(ctx, deps) })
	}
	if deps.Notifier != nil {
		g.Go(func() error { return a.runDailySummary(ctx, deps) })
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, orch)
	}

	return g.Wait()
}

// DetectMode runs detection and scoring only: viable opportunities are
// logged and published, never admitted or executed.
func (a *App) DetectMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting detect mode",
		slog.Int("detectors", len(deps.Detectors)))

	g, ctx := errgroup.WithContext(ctx)

	sink := newEngineSink(deps, a.logger)

	batches := make(chan []domain.Quote, 8)
	deps.Feed.Subscribe(func(quotes []domain.Quote) {
		select {
		case batches <- quotes:
		default:
			a.logger.Warn("quote batch dropped, detection busy")
		}
	})
	if deps.QuoteCache != nil {
		deps.Feed.Subscribe(a.cacheQuotes(deps.QuoteCache))
	}

	g.Go(func() error { return deps.Feed.Run(ctx) })
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case quotes := <-batches:
				for _, d := range deps.Detectors {
					opps, err := d.Analyze(ctx, quotes)
					if err != nil {
						a.logger.Error("detector failed",
							slog.String("detector", d.Name()),
							slog.String("error", err.Error()))
						continue
					}
					for _, opp := range opps {
						score := deps.Scorer.Score(opp)
						if !deps.Scorer.Viable(opp) {
							continue
						}
						a.logger.Info("opportunity detected",
							slog.String("opportunity_id", opp.ID),
							slog.String("detector", d.Name()),
							slog.String("symbol", opp.Symbol),
							slog.String("expected_profit", opp.ExpectedProfit.String()),
							slog.Float64("score", score))
						sink.OpportunityDetected(ctx, opp, score)
					}
				}
			}
		}
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, nil)
	}

	return g.Wait()
}

// MonitorMode consumes the signal bus read-only and serves the HTTP API.
// It requires Redis and places no trades.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	if deps.SignalBus == nil {
		return fmt.Errorf("app: monitor mode requires redis to be enabled")
	}

	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	channels := []string{redis.ChannelOpportunities, redis.ChannelTrades, redis.ChannelRisk}
	for _, channel := range channels {
		g.Go(func() error {
			ch, err := deps.SignalBus.Subscribe(ctx, channel)
			if err != nil {
				return fmt.Errorf("monitor mode: subscribe %s: %w", channel, err)
			}
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case msg, ok := <-ch:
					if !ok {
						return nil
					}
					a.logger.Info("bus event",
						slog.String("channel", channel),
						slog.Int("bytes", len(msg)))
				}
			}
		})
	}

	// The HTTP server always runs in monitor mode.
	a.startHTTPServer(ctx, g, deps, nil)

	return g.Wait()
}

// ServerMode serves the HTTP + WebSocket API over the configured backends
// without running the pipeline.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)
	return g.Wait()
}

// startHTTPServer adds the HTTP server (and the WebSocket hub when the bus
// is available) to the errgroup. orch may be nil in modes without a running
// pipeline; the status endpoint then reports unavailable.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, orch *orchestrator.Orchestrator) {
	var statusSrc handler.StatusSource
	if orch != nil {
		statusSrc = orch
	}
	var riskSrc handler.RiskReporter
	if deps.Risk != nil {
		riskSrc = deps.Risk
	}

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(),
		Status:        handler.NewStatusHandler(statusSrc, a.cfg.Mode, time.Now().UTC()),
		Risk:          handler.NewRiskHandler(riskSrc),
		Opportunities: handler.NewOpportunityHandler(deps.OpportunityJournal, a.logger),
		Trades:        handler.NewTradeHandler(deps.TradeJournal, a.logger),
		Quotes:        handler.NewQuoteHandler(deps.QuoteCache, a.logger),
		Archives:      handler.NewArchiveHandler(deps.BlobReader, a.logger),
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
		g.Go(func() error { return hub.Run(ctx) })
	}

	srv := server.New(a.cfg.Server, handlers, hub, a.logger)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// cacheQuotes returns a feed handler that mirrors each batch into the quote
// cache off the feed goroutine.
func (a *App) cacheQuotes(cache domain.QuoteCache) feed.Handler {
	return func(quotes []domain.Quote) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			for _, q := range quotes {
				if err := cache.SetQuote(ctx, q); err != nil {
					a.logger.Warn("quote cache write failed",
						slog.String("error", err.Error()))
					return
				}
			}
		}()
	}
}

// publishRiskSnapshots publishes the risk manager's counters to the bus on a
// fixed interval so dashboards track exposure without polling the API.
func (a *App) publishRiskSnapshots(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(riskPublishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			data, err := json.Marshal(map[string]any{
				"type":   "risk_snapshot",
				"report": deps.Risk.Report(),
			})
			if err != nil {
				continue
			}
			if err := deps.SignalBus.Publish(ctx, redis.ChannelRisk, data); err != nil {
				a.logger.Warn("risk snapshot publish failed",
					slog.String("error", err.Error()))
			}
		}
	}
}

// runArchiver moves journal rows older than the retention window to cold
// storage once per day.
func (a *App) runArchiver(ctx context.Context, deps *Dependencies) error {
	retention := time.Duration(a.cfg.S3.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)

			trades, err := deps.Archiver.ArchiveTrades(ctx, cutoff)
			if err != nil {
				a.logger.Error("trade archive failed", slog.String("error", err.Error()))
			}
			opps, err := deps.Archiver.ArchiveOpportunities(ctx, cutoff)
			if err != nil {
				a.logger.Error("opportunity archive failed", slog.String("error", err.Error()))
			}

			if trades > 0 || opps > 0 {
				a.logger.Info("archive cycle complete",
					slog.Int64("trades", trades),
					slog.Int64("opportunities", opps),
					slog.Time("cutoff", cutoff))
			}
		}
	}
}

// runDailySummary sends the risk manager's end-of-day counters to the
// configured notification channels once per day.
func (a *App) runDailySummary(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := deps.Notifier.Notify(ctx, notify.FormatDailySummary(deps.Risk.Report())); err != nil {
				a.logger.Warn("daily summary notify failed",
					slog.String("error", err.Error()))
			}
		}
	}
}
