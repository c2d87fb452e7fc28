// Package server exposes the engine's HTTP + WebSocket observation API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantarb/arbot/internal/config"
	"github.com/quantarb/arbot/internal/server/handler"
	"github.com/quantarb/arbot/internal/server/middleware"
	"github.com/quantarb/arbot/internal/server/ws"
)

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Health        *handler.HealthHandler
	Status        *handler.StatusHandler
	Risk          *handler.RiskHandler
	Opportunities *handler.OpportunityHandler
	Trades        *handler.TradeHandler
	Quotes        *handler.QuoteHandler
	Archives      *handler.ArchiveHandler
}

// Server is the headless HTTP + WebSocket observation server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered. It wires middleware
// (CORS, auth, request logging) and attaches the WebSocket hub when present.
func New(cfg config.ServerConfig, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	mux.HandleFunc("GET /api/risk", handlers.Risk.GetReport)
	mux.HandleFunc("GET /api/opportunities", handlers.Opportunities.ListRecent)
	mux.HandleFunc("GET /api/opportunities/{id}/trades", handlers.Trades.ListByOpportunity)
	mux.HandleFunc("GET /api/trades", handlers.Trades.ListRecent)
	mux.HandleFunc("GET /api/quotes/{symbol}", handlers.Quotes.GetSymbolQuotes)
	mux.HandleFunc("GET /api/archives", handlers.Archives.List)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
