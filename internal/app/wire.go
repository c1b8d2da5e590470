package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	s3blob "github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/blob/s3"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/cache"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/cache/redis"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/config"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/gold"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/matching"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/silver"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/store/postgres"
	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/venue"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	RawStore    domain.RawStore
	MarketStore domain.MarketStore
	PriceStore  domain.PriceStore
	TradeStore  domain.TradeStore
	RunStore    domain.RunStore
	GoldStore   domain.GoldStore

	// Caching and locking
	Cache       domain.Cache
	LockManager domain.LockManager
	Loader      *cache.Loader

	// Venue fetch clients, keyed by venue name.
	Clients map[string]*venue.Client

	// Processing
	Normalizer *silver.Normalizer
	Aggregator *gold.Aggregator
	Matcher    *matching.Engine

	// Cold archive; nil unless archival is enabled.
	Archiver *s3blob.Archiver

	// Health probes, keyed by dependency name. Nil entries are skipped.
	Pingers map[string]Pinger
}

// Pinger checks one dependency's liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// needsPostgres returns true for modes that require a database connection.
// Every current mode persists or reads tiered data, so this is all of them;
// the gate stays so a future mode can opt out.
func needsPostgres(mode string) bool {
	switch mode {
	case "ingest", "match", "server", "full":
		return true
	default:
		return false
	}
}

// needsRedis returns true for modes that require shared caching and locking.
// Server-only deployments fall back to in-process equivalents.
func needsRedis(mode string) bool {
	switch mode {
	case "ingest", "match", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Pingers: make(map[string]Pinger),
	}

	// --- PostgreSQL ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
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
		deps.RawStore = postgres.NewRawStore(pool)
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.PriceStore = postgres.NewPriceStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.RunStore = postgres.NewRunStore(pool)
		deps.GoldStore = postgres.NewGoldStore(pool)
		deps.Pingers["postgres"] = pgClient
	}

	// --- Redis (with in-process fallbacks for server-only mode) ---
	if needsRedis(cfg.Mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewKV(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.Pingers["redis"] = redisClient
	} else {
		deps.Cache = cache.NewMemory()
		deps.LockManager = cache.NewMemoryLock()
	}
	deps.Loader = cache.NewLoader(deps.Cache, logger)

	// --- S3 cold archive ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if deps.RawStore != nil {
			deps.Archiver = s3blob.NewArchiver(deps.RawStore, s3blob.NewWriter(s3Client), logger)
		}
	}

	// --- Venue fetch clients ---
	deps.Clients = make(map[string]*venue.Client, len(cfg.Venues))
	for name, vcfg := range cfg.Venues {
		deps.Clients[name] = venue.NewClient(name, vcfg, venue.WithLogger(logger))
	}

	// --- Processing ---
	if deps.RawStore != nil {
		deps.Normalizer = silver.NewNormalizer(
			deps.RawStore, deps.MarketStore, deps.PriceStore, deps.TradeStore, 0, logger,
		)
		deps.Aggregator = gold.NewAggregator(
			deps.MarketStore, deps.PriceStore, deps.TradeStore, deps.GoldStore,
			gold.Config{
				TopN:           cfg.Gold.TopN,
				ActivityWindow: cfg.Gold.ActivityWindow.Duration,
				CandleLookback: 24 * cfg.Gold.CandleInterval.Duration,
			},
			logger,
		)
		deps.Matcher = matching.NewEngine(deps.MarketStore, venueNames(cfg.Venues), matching.Config{
			MinSimilarity:      cfg.Matching.MinSimilarity,
			EventMinSimilarity: cfg.Matching.EventMinSimilarity,
			MinSpread:          cfg.Matching.MinSpread,
			MaxSpreadPct:       cfg.Matching.MaxSpreadPct,
			MinVolume:          cfg.Matching.MinVolume,
			ResultLimit:        cfg.Matching.ResultLimit,
		}, logger)
	}

	return deps, cleanup, nil
}

// venueNames returns the configured venue names in a stable order.
func venueNames(venues map[string]config.VenueConfig) []string {
	names := make([]string, 0, len(venues))
	for name := range venues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
