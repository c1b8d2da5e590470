package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies EVENTGRAPH_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known EVENTGRAPH_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "EVENTGRAPH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "EVENTGRAPH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "EVENTGRAPH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "EVENTGRAPH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "EVENTGRAPH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "EVENTGRAPH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "EVENTGRAPH_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "EVENTGRAPH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "EVENTGRAPH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "EVENTGRAPH_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "EVENTGRAPH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "EVENTGRAPH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "EVENTGRAPH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "EVENTGRAPH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "EVENTGRAPH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "EVENTGRAPH_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "EVENTGRAPH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "EVENTGRAPH_S3_REGION")
	setStr(&cfg.S3.Bucket, "EVENTGRAPH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "EVENTGRAPH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "EVENTGRAPH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "EVENTGRAPH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "EVENTGRAPH_S3_FORCE_PATH_STYLE")

	// ── Scheduler ──
	setStr(&cfg.Scheduler.StaticCron, "EVENTGRAPH_SCHEDULER_STATIC_CRON")
	setDuration(&cfg.Scheduler.DeltaInterval, "EVENTGRAPH_SCHEDULER_DELTA_INTERVAL")
	setDuration(&cfg.Scheduler.RunTimeout, "EVENTGRAPH_SCHEDULER_RUN_TIMEOUT")
	setInt(&cfg.Scheduler.LookbackHours, "EVENTGRAPH_SCHEDULER_LOOKBACK_HOURS")
	setInt(&cfg.Scheduler.PriceTailHours, "EVENTGRAPH_SCHEDULER_PRICE_TAIL_HOURS")
	setInt(&cfg.Scheduler.PriceWorkers, "EVENTGRAPH_SCHEDULER_PRICE_WORKERS")
	setInt(&cfg.Scheduler.PriceBatchSize, "EVENTGRAPH_SCHEDULER_PRICE_BATCH_SIZE")

	// ── Gold ──
	setDuration(&cfg.Gold.HotInterval, "EVENTGRAPH_GOLD_HOT_INTERVAL")
	setStr(&cfg.Gold.WarmCron, "EVENTGRAPH_GOLD_WARM_CRON")
	setInt(&cfg.Gold.RetentionDays, "EVENTGRAPH_GOLD_RETENTION_DAYS")
	setInt(&cfg.Gold.TopN, "EVENTGRAPH_GOLD_TOP_N")
	setDuration(&cfg.Gold.CandleInterval, "EVENTGRAPH_GOLD_CANDLE_INTERVAL")
	setDuration(&cfg.Gold.ActivityWindow, "EVENTGRAPH_GOLD_ACTIVITY_WINDOW")

	// ── Matching ──
	setFloat64(&cfg.Matching.MinSimilarity, "EVENTGRAPH_MATCHING_MIN_SIMILARITY")
	setFloat64(&cfg.Matching.EventMinSimilarity, "EVENTGRAPH_MATCHING_EVENT_MIN_SIMILARITY")
	setFloat64(&cfg.Matching.MinSpread, "EVENTGRAPH_MATCHING_MIN_SPREAD")
	setFloat64(&cfg.Matching.MaxSpreadPct, "EVENTGRAPH_MATCHING_MAX_SPREAD_PCT")
	setFloat64(&cfg.Matching.MinVolume, "EVENTGRAPH_MATCHING_MIN_VOLUME")
	setDuration(&cfg.Matching.OpportunityTTL, "EVENTGRAPH_MATCHING_OPPORTUNITY_TTL")
	setDuration(&cfg.Matching.EventMatchTTL, "EVENTGRAPH_MATCHING_EVENT_MATCH_TTL")
	setInt(&cfg.Matching.ResultLimit, "EVENTGRAPH_MATCHING_RESULT_LIMIT")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "EVENTGRAPH_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "EVENTGRAPH_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "EVENTGRAPH_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "EVENTGRAPH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "EVENTGRAPH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "EVENTGRAPH_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.Mode, "EVENTGRAPH_MODE")
	setStr(&cfg.LogLevel, "EVENTGRAPH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
