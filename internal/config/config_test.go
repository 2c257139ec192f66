package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Extract.Workers)
	assert.Equal(t, 3, cfg.Extract.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.LLM.CallTimeout)
	assert.Equal(t, 100*time.Second, cfg.LLM.TableCallTimeout)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
llm:
  provider: openai
  model: gpt-4.1-mini
extract:
  workers: 8
  min_coverage: 0.8
  retry:
    max_attempts: 2
    backoff: 250ms
database:
  driver: sqlite
  sqlite:
    path: runs.db
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("EXTRACT_WORKERS", "3")
	t.Setenv("REDIS_URL", "redis://cache:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4.1-mini", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 3, cfg.Extract.Workers)
	assert.Equal(t, 0.8, cfg.Extract.MinCoverage)
	assert.Equal(t, 2, cfg.Extract.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Extract.Retry.Backoff)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "runs.db", cfg.DatabaseDSN())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bedrock" }},
		{"zero workers", func(c *Config) { c.Extract.Workers = 0 }},
		{"zero attempts", func(c *Config) { c.Extract.Retry.MaxAttempts = 0 }},
		{"coverage above one", func(c *Config) { c.Extract.MinCoverage = 1.5 }},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"unknown database", func(c *Config) { c.Database.Driver = "mysql" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseURLOverride_Postgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x?sslmode=disable")
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@db:5432/x?sslmode=disable", cfg.DatabaseDSN())
}
