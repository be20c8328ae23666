package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/archive"
	"github.com/venuelens/social-indexer/internal/config"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/ingest"
	"github.com/venuelens/social-indexer/internal/logger"
	js "github.com/venuelens/social-indexer/internal/providers/jetstream"
	"github.com/venuelens/social-indexer/internal/providers/sources"
	"github.com/venuelens/social-indexer/internal/providers/sources/facebook"
	"github.com/venuelens/social-indexer/internal/providers/sources/instagram"
	"github.com/venuelens/social-indexer/internal/providers/sources/tiktok"
	"github.com/venuelens/social-indexer/internal/ratelimit"
	"github.com/venuelens/social-indexer/internal/store"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "", "Path to the directory holding .env files")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadWorkerIngestConfig(*configPath, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags:      map[string]string{"service": "worker-ingest"},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("starting ingestion worker")

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)

	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	httpClient := adapter.NewHTTPClient(cfg.Ingest.FetchTimeout)

	redisClient := adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed to close redis connection", zap.Error(err))
		}
	}()

	rateLimitProxy, err := ratelimit.NewProxy(cfg.RateLimiter, redisClient, clockAdapter)
	if err != nil {
		logger.Fatal("failed to create rate limit proxy", zap.Error(err))
	}
	defer func() {
		if err := rateLimitProxy.Close(); err != nil {
			logger.Warn("failed to close rate limit proxy", zap.Error(err))
		}
	}()

	registry, concurrency := buildClients(cfg.Sources, httpClient, rateLimitProxy, jsonAdapter)
	if len(registry) == 0 {
		logger.Fatal("no sources configured with tokens")
	}

	natsConfig := js.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: fmt.Sprintf("social-indexer-worker-%s", uuid.NewString()[:8]),
		AckWait:        cfg.NATS.AckWait,
		MaxDeliver:     cfg.Ingest.MaxRetries + 1,
	}

	publisher, err := js.NewPublisher(ctx, natsConfig, adapter.NewNatsJetStream(), jsonAdapter)
	if err != nil {
		logger.Fatal("failed to connect publisher to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer publisher.Close()

	subscriber, err := js.NewSubscriber(ctx, natsConfig, adapter.NewNatsJetStream(), jsonAdapter)
	if err != nil {
		logger.Fatal("failed to connect subscriber to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer subscriber.Close()

	sink := archive.NewFSSink(cfg.Ingest.ArchiveRoot, adapter.NewFileSystem())

	processor := ingest.NewProcessor(
		dataStore,
		registry,
		sink,
		clockAdapter,
		jsonAdapter,
		cfg.Ingest.FetchTimeout,
		cfg.Ingest.WriteTimeout,
		cfg.NATS.AckWait,
	)

	consumer := ingest.NewConsumer(
		processor,
		ingest.RetryPolicy{
			MaxRetries:  cfg.Ingest.MaxRetries,
			BackoffBase: cfg.Ingest.BackoffBase,
			BackoffMax:  cfg.Ingest.BackoffMax,
		},
		dataStore,
		publisher,
		subscriber,
		clockAdapter,
		concurrency,
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down ingestion worker")
		cancel()
	}()

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
	logger.Info("ingestion worker stopped")
}

// buildClients constructs a source client for every source that has a token
// configured, and collects the per-source pool sizes for the consumer
func buildClients(
	sourceCfgs map[string]config.SourceConfig,
	httpClient adapter.HTTPClient,
	rateLimitProxy ratelimit.Proxy,
	jsonAdapter adapter.JSON,
) (sources.Registry, map[domain.SourceName]int) {
	clients := make([]sources.Client, 0, len(sourceCfgs))
	concurrency := make(map[domain.SourceName]int, len(sourceCfgs))

	for name, sc := range sourceCfgs {
		if sc.Token == "" {
			logger.Warn("source has no token configured, skipping", zap.String("source", name))
			continue
		}

		var client sources.Client
		switch domain.SourceName(name) {
		case domain.SourceInstagram:
			client = instagram.NewClient(httpClient, rateLimitProxy, sc.URL, sc.Token, jsonAdapter)
		case domain.SourceFacebook:
			client = facebook.NewClient(httpClient, rateLimitProxy, sc.URL, sc.Token, jsonAdapter)
		case domain.SourceTikTok:
			client = tiktok.NewClient(httpClient, rateLimitProxy, sc.URL, sc.Token, jsonAdapter)
		default:
			logger.Warn("unknown source in config, skipping", zap.String("source", name))
			continue
		}

		clients = append(clients, client)
		concurrency[domain.SourceName(name)] = sc.Concurrency
		logger.Info("source client configured",
			zap.String("source", name),
			zap.Int("concurrency", sc.Concurrency))
	}

	return sources.NewRegistry(clients...), concurrency
}

// openDatabase dials postgres, retrying with exponential backoff so workers
// can start before the database is ready
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB

	operation := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
		if err != nil {
			logger.Warn("database not ready, retrying", zap.Error(err))
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(2*time.Minute)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	if err := store.ConfigureConnectionPool(db,
		cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime); err != nil {
		return nil, err
	}
	return db, nil
}
