package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pawbazaar/querykit/internal/orm/sorting"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}

	if cfg.Server.Address() != "localhost:8080" {
		t.Errorf("expected default address 'localhost:8080', got %s", cfg.Server.Address())
	}

	if cfg.Query.DefaultPageSize != 20 || cfg.Query.MaxPageSize != 100 {
		t.Errorf("expected page sizes 20/100, got %d/%d", cfg.Query.DefaultPageSize, cfg.Query.MaxPageSize)
	}

	sort := cfg.Query.Sort()
	if sort == nil || sort.Key != "listedOn" || sort.Direction != sorting.Desc {
		t.Errorf("expected default sort -listedOn, got %+v", sort)
	}

	if cfg.Store.Driver != "memory" {
		t.Errorf("expected default store 'memory', got %s", cfg.Store.Driver)
	}

	if cfg.Cache.Driver != "none" || cfg.Cache.TTL != time.Minute {
		t.Errorf("expected no cache with a 1m ttl, got %s/%v", cfg.Cache.Driver, cfg.Cache.TTL)
	}

	if cfg.RateLimit.Driver != "none" || cfg.RateLimit.Limit != 120 {
		t.Errorf("expected no rate limit, got %+v", cfg.RateLimit)
	}

	if cfg.Server.Profiling {
		t.Error("expected profiling to be off")
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	configContent := `
log:
  level: debug
  format: json
server:
  port: 9090
  host: 0.0.0.0
  request_timeout: 2s
query:
  default_page_size: 10
  max_page_size: 25
  default_sort: price
store:
  driver: sqlite
  dsn: listings.db
cache:
  driver: redis
  addr: cache:6379
  ttl: 30s
rate_limit:
  driver: memory
  limit: 10
  window: 10s
`
	os.WriteFile("querykit.yaml", []byte(configContent), 0644)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("expected debug/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
	}

	if cfg.Server.Address() != "0.0.0.0:9090" {
		t.Errorf("expected address 0.0.0.0:9090, got %s", cfg.Server.Address())
	}

	if cfg.Server.RequestTimeout != 2*time.Second {
		t.Errorf("expected request timeout 2s, got %v", cfg.Server.RequestTimeout)
	}

	if sort := cfg.Query.Sort(); sort == nil || sort.Key != "price" || sort.Direction != sorting.Asc {
		t.Errorf("expected default sort price, got %+v", sort)
	}

	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "listings.db" {
		t.Errorf("expected sqlite store, got %s %s", cfg.Store.Driver, cfg.Store.DSN)
	}

	if cfg.Cache.Addr != "cache:6379" || cfg.Cache.TTL != 30*time.Second {
		t.Errorf("expected redis cache at cache:6379, got %s %v", cfg.Cache.Addr, cfg.Cache.TTL)
	}

	if cfg.RateLimit.Driver != "memory" || cfg.RateLimit.Limit != 10 || cfg.RateLimit.Window != 10*time.Second {
		t.Errorf("expected 10 requests per 10s, got %+v", cfg.RateLimit)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	os.WriteFile("querykit.yaml", []byte("server:\n  port: 9090\n"), 0644)

	t.Setenv("QUERYKIT_SERVER_PORT", "9191")
	t.Setenv("QUERYKIT_STORE_DRIVER", "postgres")
	t.Setenv("QUERYKIT_CACHE_TTL", "5m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("expected environment to override port, got %d", cfg.Server.Port)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("expected postgres store, got %s", cfg.Store.Driver)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("expected 5m ttl, got %v", cfg.Cache.TTL)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"default page above max", "query:\n  default_page_size: 50\n  max_page_size: 10\n"},
		{"multi key default sort", "query:\n  default_sort: price,title\n"},
		{"unknown store", "store:\n  driver: mongo\n"},
		{"unknown cache", "cache:\n  driver: memcached\n"},
		{"unknown rate limiter", "rate_limit:\n  driver: leaky\n"},
		{"zero rate limit", "rate_limit:\n  driver: memory\n  limit: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "querykit.yaml")
			os.WriteFile(path, []byte(tt.content), 0644)

			if _, err := Load(path); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		config  LogConfig
		wantErr bool
	}{
		{LogConfig{Level: "debug", Format: "console"}, false},
		{LogConfig{Level: "warn", Format: "json"}, false},
		{LogConfig{Level: "loud", Format: "json"}, true},
		{LogConfig{Level: "info", Format: "xml"}, true},
	}

	for _, tt := range tests {
		logger, err := tt.config.Logger()
		if (err != nil) != tt.wantErr {
			t.Errorf("Logger(%+v) error = %v, wantErr %v", tt.config, err, tt.wantErr)
			continue
		}
		if err == nil && logger == nil {
			t.Errorf("Logger(%+v) returned nil logger", tt.config)
		}
	}
}
