// Package config loads settings from the environment and an optional YAML
// file and opens the configured backend.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend kinds.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
	BackendNeo4j    = "neo4j"
	BackendMemory   = "memory"
)

// Default configuration values.
const (
	DefaultAddr         = "0.0.0.0:8080"
	DefaultNeo4jURI     = "neo4j://localhost:7687"
	DefaultNeo4jUser    = "neo4j"
	DefaultLogLevel     = "info"
	DefaultTogglePolicy = "keep"
	DefaultCacheTTL     = 5 * time.Second
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all runtime settings.
type Config struct {
	Addr     string `mapstructure:"addr"`
	Backend  string `mapstructure:"backend"`
	LogLevel string `mapstructure:"log_level"`

	// TogglePolicy is "keep" or "revert": what a failed completion update
	// does to the task shown to the user.
	TogglePolicy string `mapstructure:"toggle_policy"`

	// CacheTTL is how long a fetched query is served before the backend is
	// asked again. Zero asks every time.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	Supabase SupabaseConfig `mapstructure:"supabase"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
}

// SupabaseConfig addresses the hosted table API.
type SupabaseConfig struct {
	URL     string `mapstructure:"url"`
	AnonKey string `mapstructure:"anon_key"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// Load reads configuration from path (if not empty) and the environment.
// Environment variables use the TASKBOARD_ prefix with "." replaced by "_",
// e.g. TASKBOARD_NEO4J_URI; the Supabase pair also accepts SUPABASE_URL and
// SUPABASE_ANON_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("taskboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("backend", BackendREST)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("toggle_policy", DefaultTogglePolicy)
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.anon_key", "")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("neo4j.uri", DefaultNeo4jURI)
	v.SetDefault("neo4j.user", DefaultNeo4jUser)
	v.SetDefault("neo4j.password", "")

	_ = v.BindEnv("supabase.url", "TASKBOARD_SUPABASE_URL", "SUPABASE_URL")
	_ = v.BindEnv("supabase.anon_key", "TASKBOARD_SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that the selected backend has what it needs.
func (c *Config) validate() error {
	switch c.Backend {
	case BackendREST:
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return fmt.Errorf("%w: rest backend needs SUPABASE_URL and SUPABASE_ANON_KEY", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("%w: postgres backend needs TASKBOARD_POSTGRES_DSN", ErrInvalidConfig)
		}
	case BackendNeo4j:
		if c.Neo4j.URI == "" {
			return fmt.Errorf("%w: neo4j backend needs TASKBOARD_NEO4J_URI", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: cache_ttl must not be negative", ErrInvalidConfig)
	}
	if c.TogglePolicy != "keep" && c.TogglePolicy != "revert" {
		return fmt.Errorf("%w: toggle_policy must be keep or revert", ErrInvalidConfig)
	}
	return nil
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
