package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	// AckWait is the redelivery visibility window; it must exceed the
	// maximum single-attempt processing time
	AckWait time.Duration `mapstructure:"ack_wait"`
}

// RedisConfig holds Redis configuration for the distributed rate limiter
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig holds per-source rate limit settings
type RateLimitConfig struct {
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxQueueTime      time.Duration `mapstructure:"max_queue_time"`
}

// RateLimiterConfig holds the rate limiter proxy configuration
type RateLimiterConfig struct {
	RedisKeyPrefix          string                     `mapstructure:"redis_key_prefix"`
	EnableLocalFallback     bool                       `mapstructure:"enable_local_fallback"`
	LocalFallbackMultiplier float64                    `mapstructure:"local_fallback_multiplier"`
	MaxWorkers              int                        `mapstructure:"max_workers"`
	MaxQueueSize            int                        `mapstructure:"max_queue_size"`
	Providers               map[string]RateLimitConfig `mapstructure:"providers"`
}

// SourceConfig holds one source adapter's settings
type SourceConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
	// Concurrency bounds the per-source ingestion worker pool
	Concurrency int `mapstructure:"concurrency"`
}

// SchedulerConfig holds scheduling settings
type SchedulerConfig struct {
	// RefreshInterval is how stale a profile must be to become due
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	// BatchSize is the keyset page size for the due-profile scan
	BatchSize int `mapstructure:"batch_size"`
	// CronSpec triggers a cycle in daemon mode
	CronSpec string `mapstructure:"cron_spec"`
	// CycleTimeout bounds one enumeration pass
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
}

// IngestConfig holds ingestion consumer settings
type IngestConfig struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
	BackoffMax    time.Duration `mapstructure:"backoff_max"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	ArchiveRoot   string        `mapstructure:"archive_root"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// SchedulerServiceConfig holds configuration for the scheduler binary
type SchedulerServiceConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig  `mapstructure:"database"`
	NATS       NATSConfig      `mapstructure:"nats"`
	Scheduler  SchedulerConfig `mapstructure:"scheduler"`
}

// WorkerIngestConfig holds configuration for the worker-ingest binary
type WorkerIngestConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Database    DatabaseConfig          `mapstructure:"database"`
	NATS        NATSConfig              `mapstructure:"nats"`
	Redis       RedisConfig             `mapstructure:"redis"`
	RateLimiter RateLimiterConfig       `mapstructure:"rate_limiter"`
	Sources     map[string]SourceConfig `mapstructure:"sources"`
	Ingest      IngestConfig            `mapstructure:"ingest"`
}

// APIServiceConfig holds configuration for the API server binary
type APIServiceConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	Database   DatabaseConfig `mapstructure:"database"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Auth       AuthConfig     `mapstructure:"auth"`
}

// ReplayConfig holds configuration for the dead-letter replay tool
type ReplayConfig struct {
	BaseConfig `mapstructure:",squash"`
	NATS       NATSConfig `mapstructure:"nats"`
}

// LoadSchedulerConfig loads configuration for the scheduler binary
func LoadSchedulerConfig(configFile string, envPath string) (*SchedulerServiceConfig, error) {
	v := configureViper("scheduler", configFile, envPath)

	setDatabaseDefaults(v)
	setNATSDefaults(v)
	v.SetDefault("scheduler.refresh_interval", "24h")
	v.SetDefault("scheduler.batch_size", 500)
	v.SetDefault("scheduler.cron_spec", "0 2 * * *")
	v.SetDefault("scheduler.cycle_timeout", "2h")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg SchedulerServiceConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWorkerIngestConfig loads configuration for the worker-ingest binary
func LoadWorkerIngestConfig(configFile string, envPath string) (*WorkerIngestConfig, error) {
	v := configureViper("worker-ingest", configFile, envPath)

	setDatabaseDefaults(v)
	setNATSDefaults(v)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("rate_limiter.redis_key_prefix", "social:indexer:limiter:")
	v.SetDefault("rate_limiter.enable_local_fallback", true)
	v.SetDefault("rate_limiter.local_fallback_multiplier", 0.5)
	v.SetDefault("rate_limiter.max_queue_size", 10000)
	v.SetDefault("rate_limiter.providers.instagram.requests_per_second", 10)
	v.SetDefault("rate_limiter.providers.instagram.burst", 20)
	v.SetDefault("rate_limiter.providers.instagram.max_queue_time", "2m")
	v.SetDefault("rate_limiter.providers.facebook.requests_per_second", 10)
	v.SetDefault("rate_limiter.providers.facebook.burst", 20)
	v.SetDefault("rate_limiter.providers.facebook.max_queue_time", "2m")
	v.SetDefault("rate_limiter.providers.tiktok.requests_per_second", 5)
	v.SetDefault("rate_limiter.providers.tiktok.burst", 10)
	v.SetDefault("rate_limiter.providers.tiktok.max_queue_time", "2m")
	v.SetDefault("ingest.max_retries", 5)
	v.SetDefault("ingest.backoff_base", "30s")
	v.SetDefault("ingest.backoff_max", "30m")
	v.SetDefault("ingest.fetch_timeout", "60s")
	v.SetDefault("ingest.write_timeout", "30s")
	v.SetDefault("ingest.archive_root", "rawdata")
	v.SetDefault("sources.instagram.url", "https://graph.instagram.com")
	v.SetDefault("sources.instagram.concurrency", 8)
	v.SetDefault("sources.facebook.url", "https://graph.facebook.com/v19.0")
	v.SetDefault("sources.facebook.concurrency", 8)
	v.SetDefault("sources.tiktok.url", "https://open.tiktokapis.com/v2")
	v.SetDefault("sources.tiktok.concurrency", 4)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg WorkerIngestConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadAPIConfig loads configuration for the API server binary
func LoadAPIConfig(configFile string, envPath string) (*APIServiceConfig, error) {
	v := configureViper("api", configFile, envPath)

	setDatabaseDefaults(v)
	setNATSDefaults(v)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg APIServiceConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadReplayConfig loads configuration for the dead-letter replay tool
func LoadReplayConfig(configFile string, envPath string) (*ReplayConfig, error) {
	v := configureViper("dlqreplay", configFile, envPath)

	setNATSDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg ReplayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "10m")
}

func setNATSDefaults(v *viper.Viper) {
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_name", "INGEST")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.ack_wait", "5m")
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("SOCIAL_INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables.
// Required for viper to map env vars to config struct fields when no
// config file exists.
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.ack_wait",
		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",
		// Rate limiter
		"rate_limiter.redis_key_prefix",
		"rate_limiter.enable_local_fallback",
		"rate_limiter.local_fallback_multiplier",
		"rate_limiter.max_workers",
		"rate_limiter.max_queue_size",
		"rate_limiter.providers.instagram.requests_per_second",
		"rate_limiter.providers.instagram.burst",
		"rate_limiter.providers.instagram.max_queue_time",
		"rate_limiter.providers.facebook.requests_per_second",
		"rate_limiter.providers.facebook.burst",
		"rate_limiter.providers.facebook.max_queue_time",
		"rate_limiter.providers.tiktok.requests_per_second",
		"rate_limiter.providers.tiktok.burst",
		"rate_limiter.providers.tiktok.max_queue_time",
		// Scheduler
		"scheduler.refresh_interval",
		"scheduler.batch_size",
		"scheduler.cron_spec",
		"scheduler.cycle_timeout",
		// Ingest
		"ingest.max_retries",
		"ingest.backoff_base",
		"ingest.backoff_max",
		"ingest.fetch_timeout",
		"ingest.write_timeout",
		"ingest.archive_root",
		// Sources
		"sources.instagram.url",
		"sources.instagram.token",
		"sources.instagram.concurrency",
		"sources.facebook.url",
		"sources.facebook.token",
		"sources.facebook.concurrency",
		"sources.tiktok.url",
		"sources.tiktok.token",
		"sources.tiktok.concurrency",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}
