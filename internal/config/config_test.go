package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	if content == "" {
		return filepath.Join(tmpDir, "nonexistent.yaml")
	}
	configFile := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0600))
	return configFile
}

func TestLoadSchedulerConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *SchedulerServiceConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_INGEST"
  max_reconnects: 5
  reconnect_wait: "5s"
scheduler:
  refresh_interval: "12h"
  batch_size: 250
  cron_spec: "30 3 * * *"
  cycle_timeout: "1h"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *SchedulerServiceConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "TEST_INGEST", cfg.NATS.StreamName)
				assert.Equal(t, 5, cfg.NATS.MaxReconnects)
				assert.Equal(t, 12*time.Hour, cfg.Scheduler.RefreshInterval)
				assert.Equal(t, 250, cfg.Scheduler.BatchSize)
				assert.Equal(t, "30 3 * * *", cfg.Scheduler.CronSpec)
				assert.Equal(t, time.Hour, cfg.Scheduler.CycleTimeout)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`,
			expectError: false,
			validate: func(t *testing.T, cfg *SchedulerServiceConfig) {
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "INGEST", cfg.NATS.StreamName)
				assert.Equal(t, 24*time.Hour, cfg.Scheduler.RefreshInterval)
				assert.Equal(t, 500, cfg.Scheduler.BatchSize)
				assert.Equal(t, "0 2 * * *", cfg.Scheduler.CronSpec)
			},
		},
		{
			name:        "missing config file",
			configFile:  "",
			expectError: false,
			validate:    nil,
		},
		{
			name: "invalid yaml",
			configFile: `
scheduler:
  batch_size: not-a-number
`,
			expectError: true,
			validate:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadSchedulerConfig(writeConfigFile(t, tt.configFile), "")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else if tt.validate != nil {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadWorkerIngestConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *WorkerIngestConfig)
	}{
		{
			name: "valid config file",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
nats:
  ack_wait: "3m"
redis:
  addr: "redis.internal:6379"
  db: 2
rate_limiter:
  local_fallback_multiplier: 0.25
  providers:
    instagram:
      requests_per_second: 4
      burst: 8
      max_queue_time: "30s"
sources:
  instagram:
    token: "ig-token"
    concurrency: 16
  tiktok:
    url: "https://sandbox.tiktokapis.com/v2"
    token: "tt-token"
ingest:
  max_retries: 3
  backoff_base: "10s"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *WorkerIngestConfig) {
				assert.Equal(t, 3*time.Minute, cfg.NATS.AckWait)
				assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
				assert.Equal(t, 2, cfg.Redis.DB)
				assert.Equal(t, 0.25, cfg.RateLimiter.LocalFallbackMultiplier)
				require.Contains(t, cfg.RateLimiter.Providers, "instagram")
				assert.Equal(t, 4, cfg.RateLimiter.Providers["instagram"].RequestsPerSecond)
				assert.Equal(t, 30*time.Second, cfg.RateLimiter.Providers["instagram"].MaxQueueTime)
				assert.Equal(t, "ig-token", cfg.Sources["instagram"].Token)
				assert.Equal(t, 16, cfg.Sources["instagram"].Concurrency)
				assert.Equal(t, "https://sandbox.tiktokapis.com/v2", cfg.Sources["tiktok"].URL)
				assert.Equal(t, 3, cfg.Ingest.MaxRetries)
				assert.Equal(t, 10*time.Second, cfg.Ingest.BackoffBase)
				// Untouched defaults survive alongside overrides
				assert.Equal(t, 30*time.Minute, cfg.Ingest.BackoffMax)
				assert.Equal(t, "rawdata", cfg.Ingest.ArchiveRoot)
			},
		},
		{
			name:       "config with defaults",
			configFile: `debug: false`,
			validate: func(t *testing.T, cfg *WorkerIngestConfig) {
				assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
				assert.Equal(t, "social:indexer:limiter:", cfg.RateLimiter.RedisKeyPrefix)
				assert.True(t, cfg.RateLimiter.EnableLocalFallback)
				assert.Equal(t, 5, cfg.Ingest.MaxRetries)
				assert.Equal(t, 30*time.Second, cfg.Ingest.BackoffBase)
				assert.Equal(t, 60*time.Second, cfg.Ingest.FetchTimeout)
				assert.Equal(t, "https://graph.instagram.com", cfg.Sources["instagram"].URL)
				assert.Equal(t, 8, cfg.Sources["instagram"].Concurrency)
				assert.Equal(t, 4, cfg.Sources["tiktok"].Concurrency)
				assert.Equal(t, 5*time.Minute, cfg.NATS.AckWait)
				// Every source gets a working limiter without a config file
				require.Contains(t, cfg.RateLimiter.Providers, "instagram")
				require.Contains(t, cfg.RateLimiter.Providers, "facebook")
				require.Contains(t, cfg.RateLimiter.Providers, "tiktok")
				assert.Equal(t, 10, cfg.RateLimiter.Providers["instagram"].RequestsPerSecond)
				assert.Equal(t, 20, cfg.RateLimiter.Providers["instagram"].Burst)
				assert.Equal(t, 5, cfg.RateLimiter.Providers["tiktok"].RequestsPerSecond)
				assert.Equal(t, 2*time.Minute, cfg.RateLimiter.Providers["tiktok"].MaxQueueTime)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWorkerIngestConfig(writeConfigFile(t, tt.configFile), "")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else if tt.validate != nil {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadAPIConfig(t *testing.T) {
	cfg, err := LoadAPIConfig(writeConfigFile(t, `
server:
  port: 9090
auth:
  api_keys:
    - key-one
    - key-two
`), "")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Auth.APIKeys)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	t.Setenv("SOCIAL_INDEXER_DATABASE_HOST", "db.internal")
	t.Setenv("SOCIAL_INDEXER_SCHEDULER_BATCH_SIZE", "100")

	cfg, err := LoadSchedulerConfig(writeConfigFile(t, `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`), "")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 100, cfg.Scheduler.BatchSize)
}

func TestEnvConfiguresProviderLimits(t *testing.T) {
	t.Setenv("SOCIAL_INDEXER_RATE_LIMITER_PROVIDERS_TIKTOK_REQUESTS_PER_SECOND", "2")
	t.Setenv("SOCIAL_INDEXER_RATE_LIMITER_PROVIDERS_TIKTOK_BURST", "4")

	// No config file: env vars alone must reach the per-source limits
	cfg, err := LoadWorkerIngestConfig(writeConfigFile(t, ""), "")
	require.NoError(t, err)

	require.Contains(t, cfg.RateLimiter.Providers, "tiktok")
	assert.Equal(t, 2, cfg.RateLimiter.Providers["tiktok"].RequestsPerSecond)
	assert.Equal(t, 4, cfg.RateLimiter.Providers["tiktok"].Burst)
	assert.Equal(t, 10, cfg.RateLimiter.Providers["instagram"].RequestsPerSecond)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "indexer",
		Password: "secret",
		DBName:   "social",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=indexer password=secret dbname=social sslmode=disable",
		cfg.DSN())
}
