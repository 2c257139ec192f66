// Package config provides configuration loading for the disclosure extractor.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration.
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	Extract       ExtractConfig       `yaml:"extract"`
	Cache         CacheConfig         `yaml:"cache"`
	Database      DatabaseConfig      `yaml:"database"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LLMConfig selects and tunes the extraction backend.
type LLMConfig struct {
	Provider         string        `yaml:"provider"` // openrouter, openai, gemini
	Model            string        `yaml:"model"`
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	Temperature      float64       `yaml:"temperature"`
	TableTopP        float64       `yaml:"table_top_p"`
	CallTimeout      time.Duration `yaml:"call_timeout"`
	TableCallTimeout time.Duration `yaml:"table_call_timeout"`
}

// ExtractConfig tunes the two-stage pipeline.
type ExtractConfig struct {
	Workers     int         `yaml:"workers"`
	Verify      bool        `yaml:"verify"`
	Match       bool        `yaml:"match"`
	MinCoverage float64     `yaml:"min_coverage"`
	Retry       RetryConfig `yaml:"retry"`
}

// RetryConfig is a fixed-count, fixed-backoff policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Driver  string        `yaml:"driver"` // none, memory, redis
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"max_size"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// DatabaseConfig configures the record store.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // none, sqlite, postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads .env files, the optional YAML file at path, and environment
// overrides, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:         "openrouter",
			Temperature:      0,
			TableTopP:        0.1,
			CallTimeout:      30 * time.Second,
			TableCallTimeout: 100 * time.Second,
		},
		Extract: ExtractConfig{
			Workers: 5,
			Verify:  true,
			Match:   true,
			Retry: RetryConfig{
				MaxAttempts: 3,
				Backoff:     time.Second,
			},
		},
		Cache: CacheConfig{
			Driver:  "none",
			TTL:     24 * time.Hour,
			MaxSize: 10000,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "dx:",
			},
		},
		Database: DatabaseConfig{
			Driver: "none",
			SQLite: SQLiteConfig{Path: "disclosures.db"},
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RequestTimeout: 5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openrouter", "openai", "gemini":
	default:
		return fmt.Errorf("invalid llm provider: %s", c.LLM.Provider)
	}

	if c.Extract.Workers < 1 {
		return fmt.Errorf("extract workers must be positive, got %d", c.Extract.Workers)
	}

	if c.Extract.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1")
	}

	if c.Extract.MinCoverage < 0 || c.Extract.MinCoverage > 1 {
		return fmt.Errorf("min_coverage must be between 0 and 1")
	}

	if c.Cache.Driver != "none" && c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Database.Driver != "none" && c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}

// DatabaseDSN returns the connection string for the configured driver.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = apiKeyFromEnv(cfg.LLM.Provider)
	}

	if v := os.Getenv("EXTRACT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extract.Workers = n
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func apiKeyFromEnv(provider string) string {
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return os.Getenv("OPENROUTER_API_KEY")
	}
}
