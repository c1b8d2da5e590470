// Package config defines the top-level configuration for eventgraph and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by EVENTGRAPH_* environment
// variables.
type Config struct {
	Venues    map[string]VenueConfig `toml:"venues"`
	Postgres  PostgresConfig         `toml:"postgres"`
	Redis     RedisConfig            `toml:"redis"`
	S3        S3Config               `toml:"s3"`
	Scheduler SchedulerConfig        `toml:"scheduler"`
	Gold      GoldConfig             `toml:"gold"`
	Matching  MatchingConfig         `toml:"matching"`
	Archive   ArchiveConfig          `toml:"archive"`
	Server    ServerConfig           `toml:"server"`
	Mode      string                 `toml:"mode"`
	LogLevel  string                 `toml:"log_level"`
}

// VenueConfig describes one prediction-market venue's API: endpoints, the
// rate budget, and how the venue shapes pagination. Venues differ here, so
// none of this is hard-coded in the fetch client.
type VenueConfig struct {
	BaseURL         string  `toml:"base_url"`
	MarketsEndpoint string  `toml:"markets_endpoint"`
	PricesEndpoint  string  `toml:"prices_endpoint"`
	TradesEndpoint  string  `toml:"trades_endpoint"`
	RatePerSec      float64 `toml:"rate_per_sec"`
	Burst           int     `toml:"burst"`
	PageSize        int     `toml:"page_size"`
	// PaginationMode is "offset" or "cursor".
	PaginationMode string `toml:"pagination_mode"`
	// ItemsField names the JSON field holding the page's items; empty means
	// the body itself is the array.
	ItemsField  string `toml:"items_field"`
	CursorField string `toml:"cursor_field"`
	CursorParam string `toml:"cursor_param"`
	MaxPages    int    `toml:"max_pages"`
	// PriceParam names the query parameter carrying the market id on the
	// price-history endpoint; PriceStartParam names the window start
	// (unix seconds).
	PriceParam      string `toml:"price_param"`
	PriceStartParam string `toml:"price_start_param"`
	// DeltaParams are extra listing filters applied only on delta runs, so
	// an incremental pass asks the venue for its active/changed slice
	// instead of re-walking the full universe. DeltaChangedParam, when set,
	// names the parameter that receives the lookback window start (unix
	// seconds). DeltaMaxPages caps delta listing pagination; 0 falls back
	// to max_pages.
	DeltaParams       map[string]string `toml:"delta_params"`
	DeltaChangedParam string            `toml:"delta_changed_param"`
	DeltaMaxPages     int               `toml:"delta_max_pages"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the bronze
// cold archive.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SchedulerConfig holds orchestrator cadences and run parameters.
type SchedulerConfig struct {
	// StaticCron schedules full-backfill runs; venue universes change
	// slowly, so this is low frequency.
	StaticCron string `toml:"static_cron"`
	// DeltaInterval drives incremental runs; prices are time-sensitive.
	DeltaInterval duration `toml:"delta_interval"`
	// RunTimeout is how long a running row may exist before the sweep marks
	// it failed.
	RunTimeout     duration `toml:"run_timeout"`
	LookbackHours  int      `toml:"lookback_hours"`
	PriceTailHours int      `toml:"price_tail_hours"`
	// PriceWorkers bounds the worker pool used to fan out price lookups.
	PriceWorkers   int `toml:"price_workers"`
	PriceBatchSize int `toml:"price_batch_size"`
}

// GoldConfig holds aggregation cadences and retention.
type GoldConfig struct {
	HotInterval    duration `toml:"hot_interval"`
	WarmCron       string   `toml:"warm_cron"`
	RetentionDays  int      `toml:"retention_days"`
	TopN           int      `toml:"top_n"`
	CandleInterval duration `toml:"candle_interval"`
	ActivityWindow duration `toml:"activity_window"`
}

// MatchingConfig holds matching-engine thresholds and cache TTLs.
type MatchingConfig struct {
	MinSimilarity      float64  `toml:"min_similarity"`
	EventMinSimilarity float64  `toml:"event_min_similarity"`
	// MinSpread is the tick-noise floor in price units.
	MinSpread float64 `toml:"min_spread"`
	// MaxSpreadPct is the implausibility ceiling; spreads above it are
	// treated as stale data, not profit.
	MaxSpreadPct   float64  `toml:"max_spread_pct"`
	MinVolume      float64  `toml:"min_volume"`
	OpportunityTTL duration `toml:"opportunity_ttl"`
	EventMatchTTL  duration `toml:"event_match_ttl"`
	ResultLimit    int      `toml:"result_limit"`
}

// ArchiveConfig holds bronze cold-archive parameters.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	RetentionDays int    `toml:"retention_days"`
	Cron          string `toml:"cron"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. These
// match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Venues: map[string]VenueConfig{
			"polymarket": {
				BaseURL:         "https://gamma-api.polymarket.com",
				MarketsEndpoint: "/markets",
				PricesEndpoint:  "/prices-history",
				TradesEndpoint:  "/trades",
				RatePerSec:      5.0,
				Burst:           10,
				PageSize:        100,
				PaginationMode:  "offset",
				MaxPages:        200,
				PriceParam:      "market",
				PriceStartParam: "startTs",
				DeltaParams:     map[string]string{"active": "true", "closed": "false"},
				DeltaMaxPages:   20,
			},
			"kalshi": {
				BaseURL:         "https://api.elections.kalshi.com/trade-api/v2",
				MarketsEndpoint: "/markets",
				PricesEndpoint:  "/series",
				TradesEndpoint:  "/markets/trades",
				RatePerSec:      2.0,
				Burst:           5,
				PageSize:        100,
				PaginationMode:  "cursor",
				ItemsField:      "markets",
				CursorField:     "cursor",
				CursorParam:     "cursor",
				MaxPages:        200,
				PriceParam:      "ticker",
				PriceStartParam: "start_ts",
				DeltaParams:     map[string]string{"status": "open"},
				DeltaMaxPages:   20,
			},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "eventgraph",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "eventgraph-bronze",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Scheduler: SchedulerConfig{
			StaticCron:     "0 */6 * * *",
			DeltaInterval:  duration{5 * time.Minute},
			RunTimeout:     duration{30 * time.Minute},
			LookbackHours:  24,
			PriceTailHours: 6,
			PriceWorkers:   4,
			PriceBatchSize: 50,
		},
		Gold: GoldConfig{
			HotInterval:    duration{time.Minute},
			WarmCron:       "*/30 * * * *",
			RetentionDays:  30,
			TopN:           20,
			CandleInterval: duration{time.Hour},
			ActivityWindow: duration{time.Hour},
		},
		Matching: MatchingConfig{
			MinSimilarity:      0.35,
			EventMinSimilarity: 0.65,
			MinSpread:          0.02,
			MaxSpreadPct:       40.0,
			MinVolume:          1000.0,
			OpportunityTTL:     duration{2 * time.Minute},
			EventMatchTTL:      duration{6 * time.Hour},
			ResultLimit:        50,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Cron:          "0 3 * * *",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"ingest": true,
	"match":  true,
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validPaginationModes enumerates the accepted venue pagination modes.
var validPaginationModes = map[string]bool{
	"offset": true,
	"cursor": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: ingest, match, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Venues) == 0 {
		errs = append(errs, "venues: at least one venue must be configured")
	}
	for name, v := range c.Venues {
		if v.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("venues.%s: base_url must not be empty", name))
		}
		if v.MarketsEndpoint == "" {
			errs = append(errs, fmt.Sprintf("venues.%s: markets_endpoint must not be empty", name))
		}
		if v.RatePerSec <= 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: rate_per_sec must be > 0", name))
		}
		if v.Burst < 1 {
			errs = append(errs, fmt.Sprintf("venues.%s: burst must be >= 1", name))
		}
		if v.PageSize < 1 {
			errs = append(errs, fmt.Sprintf("venues.%s: page_size must be >= 1", name))
		}
		if !validPaginationModes[v.PaginationMode] {
			errs = append(errs, fmt.Sprintf("venues.%s: pagination_mode must be offset or cursor, got %q", name, v.PaginationMode))
		}
		if v.PaginationMode == "cursor" && v.CursorField == "" {
			errs = append(errs, fmt.Sprintf("venues.%s: cursor_field is required for cursor pagination", name))
		}
		if v.MaxPages < 1 {
			errs = append(errs, fmt.Sprintf("venues.%s: max_pages must be >= 1", name))
		}
		if v.DeltaMaxPages < 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: delta_max_pages must be >= 0", name))
		}
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	if c.Scheduler.DeltaInterval.Duration <= 0 {
		errs = append(errs, "scheduler: delta_interval must be > 0")
	}
	if c.Scheduler.RunTimeout.Duration <= 0 {
		errs = append(errs, "scheduler: run_timeout must be > 0")
	}
	if c.Scheduler.LookbackHours < 1 {
		errs = append(errs, "scheduler: lookback_hours must be >= 1")
	}
	if c.Scheduler.PriceWorkers < 1 {
		errs = append(errs, "scheduler: price_workers must be >= 1")
	}
	if c.Scheduler.PriceBatchSize < 1 {
		errs = append(errs, "scheduler: price_batch_size must be >= 1")
	}

	if c.Gold.HotInterval.Duration <= 0 {
		errs = append(errs, "gold: hot_interval must be > 0")
	}
	if c.Gold.RetentionDays < 1 {
		errs = append(errs, "gold: retention_days must be >= 1")
	}
	if c.Gold.TopN < 1 {
		errs = append(errs, "gold: top_n must be >= 1")
	}

	if c.Matching.MinSimilarity <= 0 || c.Matching.MinSimilarity > 1 {
		errs = append(errs, fmt.Sprintf("matching: min_similarity must be in (0,1], got %g", c.Matching.MinSimilarity))
	}
	if c.Matching.EventMinSimilarity < c.Matching.MinSimilarity {
		errs = append(errs, "matching: event_min_similarity must be >= min_similarity")
	}
	if c.Matching.MinSpread < 0 {
		errs = append(errs, "matching: min_spread must be >= 0")
	}
	if c.Matching.MaxSpreadPct <= 0 {
		errs = append(errs, "matching: max_spread_pct must be > 0")
	}
	if c.Matching.OpportunityTTL.Duration <= 0 {
		errs = append(errs, "matching: opportunity_ttl must be > 0")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
