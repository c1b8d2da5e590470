package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/scheduler"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/server"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/server/handler"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/service"
)

// IngestMode runs the orchestrator alone: scheduled fetch, normalization,
// and hot aggregation, with no HTTP surface.
func (a *App) IngestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting ingest mode")

	orch := a.newOrchestrator(deps)
	if err := orch.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	orch.Stop()
	return ctx.Err()
}

// MatchMode serves the read API backed by the matching engine and shared
// cache, without running any ingestion.
func (a *App) MatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting match mode")
	return a.serve(ctx, deps, nil)
}

// ServerMode serves the read API only. Manual run triggers are rejected
// because no orchestrator is running in this process.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	return a.serve(ctx, deps, nil)
}

// FullMode runs ingestion and the HTTP API in one process. The server's
// trigger endpoint is wired to the live orchestrator.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	orch := a.newOrchestrator(deps)
	if err := orch.Start(ctx); err != nil {
		return err
	}
	defer orch.Stop()

	if !a.cfg.Server.Enabled {
		<-ctx.Done()
		return ctx.Err()
	}
	return a.serve(ctx, deps, orch)
}

func (a *App) newOrchestrator(deps *Dependencies) *scheduler.Orchestrator {
	return scheduler.New(
		*a.cfg,
		deps.Clients,
		deps.RawStore,
		deps.MarketStore,
		deps.Normalizer,
		deps.Aggregator,
		deps.RunStore,
		deps.LockManager,
		deps.Archiver,
		a.logger,
	)
}

// serve builds the service layer and HTTP server and blocks until the
// context is cancelled, then drains in-flight requests.
func (a *App) serve(ctx context.Context, deps *Dependencies, trigger service.RunTrigger) error {
	marketSvc := service.NewMarketService(deps.MarketStore, a.logger)
	priceSvc := service.NewPriceService(deps.PriceStore, a.logger)
	tradeSvc := service.NewTradeService(deps.TradeStore, a.logger)
	goldSvc := service.NewGoldService(deps.GoldStore, a.cfg.Gold.CandleInterval.Duration, a.logger)
	matchSvc := service.NewMatchService(
		deps.Matcher,
		deps.Loader,
		a.cfg.Matching.OpportunityTTL.Duration,
		a.cfg.Matching.EventMatchTTL.Duration,
		a.logger,
	)
	runSvc := service.NewRunService(deps.RunStore, trigger, a.logger)

	checks := make(map[string]handler.Pinger, len(deps.Pingers))
	for name, p := range deps.Pingers {
		checks[name] = p
	}

	srv := server.New(
		server.Config{Port: a.cfg.Server.Port, CORSOrigins: a.cfg.Server.CORSOrigins},
		server.Handlers{
			Health:        handler.NewHealthHandler(checks),
			Markets:       handler.NewMarketHandler(marketSvc, a.logger),
			Prices:        handler.NewPriceHandler(priceSvc, a.logger),
			Trades:        handler.NewTradeHandler(tradeSvc, a.logger),
			Gold:          handler.NewGoldHandler(goldSvc, a.logger),
			Opportunities: handler.NewOpportunityHandler(matchSvc, a.logger),
			Runs:          handler.NewRunHandler(runSvc, a.logger),
		},
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	})
	return g.Wait()
}
