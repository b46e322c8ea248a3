// Package config loads querykit settings from querykit.yaml and QUERYKIT_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pawbazaar/querykit/internal/orm/sorting"
	"github.com/pawbazaar/querykit/internal/orm/store/sqlstore"
)

// EnvPrefix prefixes every environment variable, e.g. QUERYKIT_SERVER_PORT
const EnvPrefix = "QUERYKIT"

// Config represents the querykit configuration
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`
	Query  QueryConfig  `mapstructure:"query"`
	Store  StoreConfig  `mapstructure:"store"`
	Cache  CacheConfig  `mapstructure:"cache"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// LogConfig selects the logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Profiling mounts /debug/pprof on the API
	Profiling bool `mapstructure:"profiling"`
}

// QueryConfig holds the paging and sorting defaults of searches
type QueryConfig struct {
	DefaultPageSize int    `mapstructure:"default_page_size"`
	MaxPageSize     int    `mapstructure:"max_page_size"`
	DefaultSort     string `mapstructure:"default_sort"`
}

// StoreConfig selects the listing store
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Fixtures string `mapstructure:"fixtures"`
}

// CacheConfig selects the response cache
type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	Addr   string        `mapstructure:"addr"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig bounds listing requests per client. The redis driver
// shares counts between instances.
type RateLimitConfig struct {
	Driver string        `mapstructure:"driver"`
	Addr   string        `mapstructure:"addr"`
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("query.default_page_size", 20)
	v.SetDefault("query.max_page_size", 100)
	v.SetDefault("query.default_sort", "-listedOn")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.fixtures", "")
	v.SetDefault("cache.driver", "none")
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("server.profiling", false)
	v.SetDefault("rate_limit.driver", "none")
	v.SetDefault("rate_limit.addr", "localhost:6379")
	v.SetDefault("rate_limit.limit", 120)
	v.SetDefault("rate_limit.window", time.Minute)
}

// Load reads the configuration. An empty path looks for querykit.yaml in
// the working directory and falls back to defaults when there is none; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("querykit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Address is the listen address of the server
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Sort returns the default sort entry, nil when none is configured
func (q QueryConfig) Sort() *sorting.Entry {
	entries := sorting.ParseList(q.DefaultSort)
	if len(entries) == 0 {
		return nil
	}
	return &entries[0]
}

// Logger builds the zap logger: "console" is zap's development setup and
// "json" its production setup, both at the configured level
func (l LogConfig) Logger() (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	var cfg zap.Config
	switch strings.ToLower(l.Format) {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("log.format must be console or json, got: %s", l.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// Validate checks the configuration. Load validates what it reads; callers
// that modify a loaded configuration validate again.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got: %d", cfg.Server.Port)
	}
	if cfg.Query.DefaultPageSize < 0 {
		return fmt.Errorf("query.default_page_size must not be negative, got: %d", cfg.Query.DefaultPageSize)
	}
	if cfg.Query.MaxPageSize > 0 && cfg.Query.DefaultPageSize > cfg.Query.MaxPageSize {
		return fmt.Errorf("query.default_page_size %d exceeds query.max_page_size %d",
			cfg.Query.DefaultPageSize, cfg.Query.MaxPageSize)
	}
	if len(sorting.ParseList(cfg.Query.DefaultSort)) > 1 {
		return fmt.Errorf("query.default_sort takes a single key, got: %s", cfg.Query.DefaultSort)
	}
	if driver := strings.ToLower(cfg.Store.Driver); driver != "memory" && driver != "" {
		if _, err := sqlstore.DialectFor(driver); err != nil {
			return fmt.Errorf("store.driver: %w", err)
		}
	}
	switch strings.ToLower(cfg.Cache.Driver) {
	case "none", "", "memory", "redis":
	default:
		return fmt.Errorf("cache.driver must be none, memory or redis, got: %s", cfg.Cache.Driver)
	}
	switch strings.ToLower(cfg.RateLimit.Driver) {
	case "none", "":
	case "memory", "redis":
		if cfg.RateLimit.Limit <= 0 || cfg.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.limit and rate_limit.window must be positive, got: %d per %s",
				cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}
	default:
		return fmt.Errorf("rate_limit.driver must be none, memory or redis, got: %s", cfg.RateLimit.Driver)
	}
	return nil
}
