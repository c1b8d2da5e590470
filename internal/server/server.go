// Package server exposes the read-only HTTP API over silver, gold, and the
// matching engine, plus run history and manual triggers.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/server/handler"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates the handlers the server registers.
type Handlers struct {
	Health        *handler.HealthHandler
	Markets       *handler.MarketHandler
	Prices        *handler.PriceHandler
	Trades        *handler.TradeHandler
	Gold          *handler.GoldHandler
	Opportunities *handler.OpportunityHandler
	Runs          *handler.RunHandler
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered and the middleware chain
// applied.
func New(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{venue}/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/prices", handlers.Prices.History)
	mux.HandleFunc("GET /api/trades", handlers.Trades.ListTrades)

	mux.HandleFunc("GET /api/gold/candles/{venue}/{id}", handlers.Gold.GetCandles)
	mux.HandleFunc("GET /api/gold/{table}", handlers.Gold.GetSnapshot)

	mux.HandleFunc("GET /api/opportunities", handlers.Opportunities.ListOpportunities)
	mux.HandleFunc("GET /api/events/matches", handlers.Opportunities.ListEventMatches)

	mux.HandleFunc("GET /api/runs", handlers.Runs.ListRuns)
	mux.HandleFunc("POST /api/runs/trigger", handlers.Runs.TriggerRun)

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving HTTP until the server errors or shuts down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
