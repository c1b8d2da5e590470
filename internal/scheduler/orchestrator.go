// Package scheduler drives ingestion runs: fetch, bronze, silver, then gold,
// with per-venue mutual exclusion and an append-only run history. Venues run
// independently; a failed run is never resumed, the next one starts clean
// from current state.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	s3blob "github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/blob/s3"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/config"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/gold"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/silver"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/venue"
)

// Orchestrator owns run scheduling and execution.
type Orchestrator struct {
	cfg      config.Config
	clients  map[string]*venue.Client
	raws     domain.RawStore
	markets  domain.MarketStore
	norm     *silver.Normalizer
	agg      *gold.Aggregator
	runs     domain.RunStore
	locks    domain.LockManager
	archiver *s3blob.Archiver
	log      *slog.Logger

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Orchestrator. archiver may be nil when cold archival is
// disabled.
func New(
	cfg config.Config,
	clients map[string]*venue.Client,
	raws domain.RawStore,
	markets domain.MarketStore,
	norm *silver.Normalizer,
	agg *gold.Aggregator,
	runs domain.RunStore,
	locks domain.LockManager,
	archiver *s3blob.Archiver,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		clients:  clients,
		raws:     raws,
		markets:  markets,
		norm:     norm,
		agg:      agg,
		runs:     runs,
		locks:    locks,
		archiver: archiver,
		log:      log.With("component", "scheduler"),
	}
}

func lockName(venueName string) string {
	return "run:" + venueName
}

// Start launches the cron schedules and the delta ticker. It returns after
// wiring everything; Stop tears it down.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, o.cancel = context.WithCancel(ctx)
	o.cron = cron.New()

	if _, err := o.cron.AddFunc(o.cfg.Scheduler.StaticCron, func() {
		o.runAllVenues(ctx, domain.RunKindStatic)
	}); err != nil {
		return fmt.Errorf("scheduler: static cron %q: %w", o.cfg.Scheduler.StaticCron, err)
	}

	if _, err := o.cron.AddFunc(o.cfg.Gold.WarmCron, func() {
		o.runWarmGold(ctx)
	}); err != nil {
		return fmt.Errorf("scheduler: warm cron %q: %w", o.cfg.Gold.WarmCron, err)
	}

	if o.archiver != nil && o.cfg.Archive.Enabled {
		if _, err := o.cron.AddFunc(o.cfg.Archive.Cron, func() {
			cutoff := time.Now().UTC().AddDate(0, 0, -o.cfg.Archive.RetentionDays)
			if _, err := o.archiver.ArchiveBefore(ctx, cutoff); err != nil {
				o.log.Error("bronze archive failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("scheduler: archive cron %q: %w", o.cfg.Archive.Cron, err)
		}
	}

	o.cron.Start()

	// The delta ticker also sweeps crashed runs each tick, so a process that
	// died mid-run shows up as failed-by-timeout without operator action.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.sweepStale(ctx)
		ticker := time.NewTicker(o.cfg.Scheduler.DeltaInterval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.sweepStale(ctx)
				o.runAllVenues(ctx, domain.RunKindDelta)
			}
		}
	}()

	// Hot gold refresh between runs keeps read surfaces fresh even when a
	// venue's ingestion is failing. Aggregation is a pure read of silver.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.cfg.Gold.HotInterval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.agg.RunHotAggregations(ctx)
			}
		}
	}()

	o.log.Info("scheduler started",
		"static_cron", o.cfg.Scheduler.StaticCron,
		"delta_interval", o.cfg.Scheduler.DeltaInterval.Duration,
		"venues", len(o.clients))
	return nil
}

// Stop halts scheduling and waits for in-flight work to wind down.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	if o.cron != nil {
		<-o.cron.Stop().Done()
	}
	o.wg.Wait()
}

// TriggerRun starts a run for one venue asynchronously and returns its run
// ID. A second trigger while one is in flight gets domain.ErrRunActive.
func (o *Orchestrator) TriggerRun(ctx context.Context, venueName string, kind domain.RunKind) (string, error) {
	if _, ok := o.clients[venueName]; !ok {
		return "", fmt.Errorf("scheduler: unknown venue %q: %w", venueName, domain.ErrNotFound)
	}

	unlock, err := o.locks.Acquire(ctx, lockName(venueName), o.cfg.Scheduler.RunTimeout.Duration)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return "", domain.ErrRunActive
		}
		return "", fmt.Errorf("scheduler: acquire lock for %s: %w", venueName, err)
	}

	runID := uuid.New().String()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		runCtx, cancel := context.WithTimeout(context.Background(), o.cfg.Scheduler.RunTimeout.Duration)
		defer cancel()
		o.executeRun(runCtx, venueName, kind, runID, unlock)
	}()
	return runID, nil
}

// runAllVenues runs each venue independently; one venue failing never blocks
// another.
func (o *Orchestrator) runAllVenues(ctx context.Context, kind domain.RunKind) {
	g, ctx := errgroup.WithContext(ctx)
	for name := range o.clients {
		g.Go(func() error {
			o.RunVenue(ctx, name, kind)
			return nil
		})
	}
	_ = g.Wait()
}

// RunVenue executes one run synchronously. A run already in flight for the
// venue is skipped silently; the next tick tries again.
func (o *Orchestrator) RunVenue(ctx context.Context, venueName string, kind domain.RunKind) {
	unlock, err := o.locks.Acquire(ctx, lockName(venueName), o.cfg.Scheduler.RunTimeout.Duration)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			o.log.Debug("run already in flight, skipping", "venue", venueName, "kind", kind)
			return
		}
		o.log.Error("lock acquire failed", "venue", venueName, "error", err)
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, o.cfg.Scheduler.RunTimeout.Duration)
	defer cancel()
	o.executeRun(runCtx, venueName, kind, uuid.New().String(), unlock)
}

func (o *Orchestrator) executeRun(ctx context.Context, venueName string, kind domain.RunKind, runID string, unlock func()) {
	defer unlock()

	started := time.Now().UTC()
	run := domain.IngestRun{
		ID:        runID,
		Venue:     venueName,
		Kind:      kind,
		Status:    domain.RunStatusRunning,
		StartedAt: started,
	}
	if err := o.runs.Create(ctx, run); err != nil {
		o.log.Error("run row create failed", "venue", venueName, "run_id", runID, "error", err)
		return
	}
	o.log.Info("run started", "venue", venueName, "run_id", runID, "kind", kind)

	var counts domain.StageCounts
	err := o.pipeline(ctx, venueName, kind, &counts)

	status := domain.RunStatusSucceeded
	errMsg := ""
	if err != nil {
		status = domain.RunStatusFailed
		errMsg = err.Error()
		o.log.Error("run failed", "venue", venueName, "run_id", runID, "error", err)
	} else {
		o.log.Info("run succeeded", "venue", venueName, "run_id", runID,
			"pages", counts.PagesFetched,
			"bronze_new", counts.BronzeNew,
			"silver_inserted", counts.SilverInserted,
			"silver_updated", counts.SilverUpdated)
	}

	finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ferr := o.runs.Finish(finishCtx, runID, status, counts, errMsg); ferr != nil {
		o.log.Error("run finish failed", "run_id", runID, "error", ferr)
	}
}

// pipeline is the run body: fetch -> bronze -> silver -> gold, in order.
// Gold only starts after silver completes.
func (o *Orchestrator) pipeline(ctx context.Context, venueName string, kind domain.RunKind, counts *domain.StageCounts) error {
	client := o.clients[venueName]
	vcfg := o.cfg.Venues[venueName]

	// Market listing. A static run walks the full universe; a delta run asks
	// the venue for its active/changed slice under a tighter page cap. Pages
	// already fetched before a pagination error still land in bronze; the run
	// then fails and the next one starts clean.
	params := url.Values{}
	maxPages := 0
	if kind == domain.RunKindDelta {
		for k, v := range vcfg.DeltaParams {
			params.Set(k, v)
		}
		if vcfg.DeltaChangedParam != "" {
			since := time.Now().UTC().Add(-time.Duration(o.cfg.Scheduler.LookbackHours) * time.Hour).Unix()
			params.Set(vcfg.DeltaChangedParam, strconv.FormatInt(since, 10))
		}
		maxPages = vcfg.DeltaMaxPages
	}
	pages, perr := client.PaginateMax(ctx, vcfg.MarketsEndpoint, params, maxPages)
	for _, p := range pages {
		_, isNew, err := o.raws.Store(ctx, venueName, domain.EndpointMarkets, "", p.Body, p.FetchedAt)
		if err != nil {
			return fmt.Errorf("scheduler: bronze store: %w", err)
		}
		counts.PagesFetched++
		if isNew {
			counts.BronzeNew++
		} else {
			counts.BronzeDuplicate++
		}
	}
	if perr != nil {
		return fmt.Errorf("scheduler: fetch markets: %w", perr)
	}

	res, err := o.norm.ProcessMarkets(ctx, venueName)
	o.mergeSilver(counts, res)
	if err != nil {
		return fmt.Errorf("scheduler: normalize markets: %w", err)
	}

	if kind == domain.RunKindDelta {
		if err := o.deltaTail(ctx, venueName, client, vcfg, counts); err != nil {
			return err
		}
	}

	rep := o.agg.RunHotAggregations(ctx)
	counts.GoldTables = rep.Tables
	counts.GoldFailures = rep.Failures
	return nil
}

// deltaTail fetches the incremental extras of a delta run: a short
// price-history tail for recently active markets, fanned over the worker
// pool, plus the latest trades.
func (o *Orchestrator) deltaTail(ctx context.Context, venueName string, client *venue.Client, vcfg config.VenueConfig, counts *domain.StageCounts) error {
	active, err := o.markets.ListActive(ctx, venueName)
	if err != nil {
		return fmt.Errorf("scheduler: list active markets: %w", err)
	}

	lookback := time.Now().UTC().Add(-time.Duration(o.cfg.Scheduler.LookbackHours) * time.Hour)
	tasks := make([]priceTask, 0, o.cfg.Scheduler.PriceBatchSize)
	for _, m := range active {
		if m.UpdatedAt.Before(lookback) {
			continue
		}
		tasks = append(tasks, priceTask{VenueMarketID: m.VenueMarketID})
		if len(tasks) >= o.cfg.Scheduler.PriceBatchSize {
			break
		}
	}

	startTs := time.Now().UTC().Add(-time.Duration(o.cfg.Scheduler.PriceTailHours) * time.Hour).Unix()
	var mu sync.Mutex
	do := func(ctx context.Context, t priceTask) error {
		params := url.Values{}
		params.Set(vcfg.PriceParam, t.VenueMarketID)
		if vcfg.PriceStartParam != "" {
			params.Set(vcfg.PriceStartParam, strconv.FormatInt(startTs, 10))
		}
		body, err := client.Get(ctx, vcfg.PricesEndpoint, params)
		if err != nil {
			return err
		}
		_, isNew, err := o.raws.Store(ctx, venueName, domain.EndpointPrices, params.Encode(), body, time.Now().UTC())
		if err != nil {
			return err
		}
		mu.Lock()
		counts.PagesFetched++
		if isNew {
			counts.BronzeNew++
		} else {
			counts.BronzeDuplicate++
		}
		mu.Unlock()
		return nil
	}

	failed := 0
	for res := range runPool(ctx, o.cfg.Scheduler.PriceWorkers, tasks, do) {
		if res.Err != nil {
			failed++
			o.log.Warn("price fetch failed", "venue", venueName,
				"market", res.VenueMarketID, "error", res.Err)
		}
	}
	if failed > 0 && failed == len(tasks) {
		return fmt.Errorf("scheduler: every price fetch failed for %s", venueName)
	}

	// Latest trades, one paginated pass.
	if vcfg.TradesEndpoint != "" {
		pages, perr := client.Paginate(ctx, vcfg.TradesEndpoint, url.Values{})
		for _, p := range pages {
			_, isNew, err := o.raws.Store(ctx, venueName, domain.EndpointTrades, "", p.Body, p.FetchedAt)
			if err != nil {
				return fmt.Errorf("scheduler: bronze store trades: %w", err)
			}
			counts.PagesFetched++
			if isNew {
				counts.BronzeNew++
			} else {
				counts.BronzeDuplicate++
			}
		}
		if perr != nil {
			o.log.Warn("trade fetch incomplete", "venue", venueName, "error", perr)
		}
	}

	res, err := o.norm.ProcessPrices(ctx, venueName)
	o.mergeSilver(counts, res)
	if err != nil {
		return fmt.Errorf("scheduler: normalize prices: %w", err)
	}
	res, err = o.norm.ProcessTrades(ctx, venueName)
	o.mergeSilver(counts, res)
	if err != nil {
		return fmt.Errorf("scheduler: normalize trades: %w", err)
	}
	return nil
}

func (o *Orchestrator) mergeSilver(counts *domain.StageCounts, res silver.Result) {
	counts.SilverInserted += res.Inserted
	counts.SilverUpdated += res.Updated
	counts.SilverSkipped += res.Skipped
}

// runWarmGold runs the slow-cadence gold passes: warm snapshots, candles,
// retention cleanup.
func (o *Orchestrator) runWarmGold(ctx context.Context) {
	o.agg.RunWarmAggregations(ctx)
	if _, err := o.agg.RunCandles(ctx, o.cfg.Gold.CandleInterval.Duration); err != nil {
		o.log.Error("candle pass failed", "error", err)
	}
	retention := time.Duration(o.cfg.Gold.RetentionDays) * 24 * time.Hour
	if _, err := o.agg.RunCleanup(ctx, retention); err != nil {
		o.log.Error("gold cleanup failed", "error", err)
	}
}

func (o *Orchestrator) sweepStale(ctx context.Context) {
	swept, err := o.runs.FailStale(ctx, o.cfg.Scheduler.RunTimeout.Duration)
	if err != nil {
		o.log.Error("stale run sweep failed", "error", err)
		return
	}
	if swept > 0 {
		o.log.Warn("swept stale runs to failed", "count", swept)
	}
}
