package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
mode = "ingest"
log_level = "debug"

[postgres]
host = "db.internal"
port = 5433

[scheduler]
delta_interval = "2m"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "ingest" {
		t.Errorf("Mode = %q, want ingest", cfg.Mode)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 5433 {
		t.Errorf("Postgres = %s:%d, want db.internal:5433", cfg.Postgres.Host, cfg.Postgres.Port)
	}
	// Fields the file does not mention keep their defaults.
	if cfg.Postgres.Database != "eventgraph" {
		t.Errorf("Postgres.Database = %q, want default eventgraph", cfg.Postgres.Database)
	}
	if cfg.Scheduler.DeltaInterval.Duration != 2*time.Minute {
		t.Errorf("DeltaInterval = %s, want 2m", cfg.Scheduler.DeltaInterval.Duration)
	}
	if len(cfg.Venues) != 2 {
		t.Errorf("venues = %d, want the two defaults", len(cfg.Venues))
	}
	if cfg.Venues["kalshi"].PaginationMode != "cursor" {
		t.Errorf("kalshi pagination = %q, want cursor", cfg.Venues["kalshi"].PaginationMode)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load succeeded on a missing file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
[postgres]
password = "from-file"
`)

	t.Setenv("EVENTGRAPH_POSTGRES_PASSWORD", "from-env")
	t.Setenv("EVENTGRAPH_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("EVENTGRAPH_SCHEDULER_DELTA_INTERVAL", "90s")
	t.Setenv("EVENTGRAPH_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("EVENTGRAPH_SERVER_ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Postgres.Password != "from-env" {
		t.Errorf("Password = %q, env should beat the file", cfg.Postgres.Password)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Scheduler.DeltaInterval.Duration != 90*time.Second {
		t.Errorf("DeltaInterval = %s, want 90s", cfg.Scheduler.DeltaInterval.Duration)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Server.Enabled {
		t.Error("Server.Enabled = true, env override ignored")
	}
}

func TestLoad_BadTOML(t *testing.T) {
	path := writeConfigFile(t, `mode = [whoops`)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed TOML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "turbo" },
			wantSub: "unknown mode",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantSub: "unknown log_level",
		},
		{
			name:    "no venues",
			mutate:  func(c *Config) { c.Venues = nil },
			wantSub: "at least one venue",
		},
		{
			name: "venue missing base url",
			mutate: func(c *Config) {
				v := c.Venues["polymarket"]
				v.BaseURL = ""
				c.Venues["polymarket"] = v
			},
			wantSub: "base_url",
		},
		{
			name: "venue bad pagination mode",
			mutate: func(c *Config) {
				v := c.Venues["polymarket"]
				v.PaginationMode = "scroll"
				c.Venues["polymarket"] = v
			},
			wantSub: "pagination_mode",
		},
		{
			name: "cursor venue without cursor field",
			mutate: func(c *Config) {
				v := c.Venues["kalshi"]
				v.CursorField = ""
				c.Venues["kalshi"] = v
			},
			wantSub: "cursor_field",
		},
		{
			name:    "postgres pool bounds",
			mutate:  func(c *Config) { c.Postgres.PoolMinConns = 50 },
			wantSub: "pool_min_conns",
		},
		{
			name:    "redis addr required",
			mutate:  func(c *Config) { c.Redis.Addr = "" },
			wantSub: "redis: addr",
		},
		{
			name: "archive needs bucket",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.S3.Bucket = ""
			},
			wantSub: "bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate passed")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Redis.Addr = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed")
	}
	for _, sub := range []string{"unknown mode", "redis: addr"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("combined error %q missing %q", err, sub)
		}
	}
}

func TestDurationRoundTrip(t *testing.T) {
	var d duration
	if err := d.UnmarshalText([]byte("5m30s")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if d.Duration != 5*time.Minute+30*time.Second {
		t.Errorf("parsed %s, want 5m30s", d.Duration)
	}
	out, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(out) != "5m30s" {
		t.Errorf("MarshalText = %q, want 5m30s", out)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	var d duration
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("UnmarshalText accepted garbage")
	}
}
