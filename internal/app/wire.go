package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	s3blob "github.com/quantarb/arbot/internal/blob/s3"
	"github.com/quantarb/arbot/internal/broker"
	"github.com/quantarb/arbot/internal/cache/redis"
	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/detector"
	"github.com/quantarb/arbot/internal/domain"
	"github.com/quantarb/arbot/internal/execution"
	"github.com/quantarb/arbot/internal/feed"
	"github.com/quantarb/arbot/internal/notify"
	"github.com/quantarb/arbot/internal/risk"
	"github.com/quantarb/arbot/internal/scorer"
	"github.com/quantarb/arbot/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
// SignalBus, QuoteCache, the journals, and blob storage are nil when the
// corresponding backend is disabled in config.
type Dependencies struct {
	Feed      *feed.Simulator
	Broker    *broker.Simulator
	Detectors []detector.Detector
	Agents    map[string]config.AgentConfig
	Scorer    *scorer.Scorer
	Risk      *risk.Manager
	Engine    *execution.Engine

	SignalBus  domain.SignalBus
	QuoteCache domain.QuoteCache

	TradeJournal       domain.TradeJournal
	OpportunityJournal domain.OpportunityJournal

	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Core pipeline (always wired) ---
	deps.Feed = feed.NewSimulator(cfg.Feed, logger)
	deps.Broker = broker.NewSimulator(cfg.Broker, logger)

	reg := detector.NewRegistry()
	deps.Agents = make(map[string]config.AgentConfig)
	if cfg.Detector.CrossExchange.Agent.Enabled {
		d := detector.NewCrossExchange(cfg.Detector.CrossExchange, logger)
		reg.Register(d.Name(), d)
		deps.Agents[d.Name()] = cfg.Detector.CrossExchange.Agent
	}
	if cfg.Detector.Statistical.Agent.Enabled {
		d := detector.NewStatistical(cfg.Detector.Statistical, logger)
		reg.Register(d.Name(), d)
		deps.Agents[d.Name()] = cfg.Detector.Statistical.Agent
	}
	if cfg.Detector.Triangular.Agent.Enabled {
		d := detector.NewTriangular(cfg.Detector.Triangular, logger)
		reg.Register(d.Name(), d)
		deps.Agents[d.Name()] = cfg.Detector.Triangular.Agent
	}
	deps.Detectors = reg.All()
	if len(deps.Detectors) == 0 {
		logger.Warn("no detectors enabled, engine will idle")
	}

	deps.Scorer = scorer.New(cfg.Scorer, logger)
	deps.Risk = risk.NewManager(cfg.Risk, logger)

	// Execution algorithms sample live market conditions from the feed.
	market := func(exchange, symbol string) execution.MarketSnapshot {
		q, ok := deps.Feed.Latest(exchange, symbol)
		if !ok || !q.Valid() {
			return execution.MarketSnapshot{Volume: decimal.Zero}
		}
		return execution.MarketSnapshot{
			Volume:    decimal.Min(q.BidVolume, q.AskVolume),
			SpreadPct: q.SpreadPct().InexactFloat64(),
		}
	}
	deps.Engine = execution.NewEngine(cfg.Execution, market, deps.Broker.Fill, logger)

	// --- Redis (signal bus + quote cache) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.QuoteCache = redis.NewQuoteCache(redisClient)
	}

	// --- PostgreSQL (journals) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.TradeJournal = postgres.NewTradeJournal(pool)
		deps.OpportunityJournal = postgres.NewOpportunityJournal(pool)
	}

	// --- S3 blob storage (archiver) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, cfg.S3)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobReader = s3blob.NewReader(s3Client)

		// The archiver needs the journals as its source; config validation
		// enforces postgres when s3 is enabled.
		if pgTrades, ok := deps.TradeJournal.(*postgres.TradeJournal); ok {
			pgOpps := deps.OpportunityJournal.(*postgres.OpportunityJournal)
			deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), pgTrades, pgOpps, logger)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
