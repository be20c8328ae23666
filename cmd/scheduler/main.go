package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/config"
	"github.com/venuelens/social-indexer/internal/logger"
	js "github.com/venuelens/social-indexer/internal/providers/jetstream"
	"github.com/venuelens/social-indexer/internal/scheduler"
	"github.com/venuelens/social-indexer/internal/store"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "", "Path to the directory holding .env files")
	runOnce    = flag.Bool("once", false, "Run a single cycle and exit instead of running on the cron schedule")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadSchedulerConfig(*configPath, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags:      map[string]string{"service": "scheduler"},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("starting scheduler")

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)

	if err := dataStore.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	if err := dataStore.SeedSources(ctx); err != nil {
		logger.Fatal("failed to seed sources", zap.Error(err))
	}

	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()

	publisher, err := js.NewPublisher(ctx, js.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: "social-indexer-scheduler",
	}, adapter.NewNatsJetStream(), jsonAdapter)
	if err != nil {
		logger.Fatal("failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer publisher.Close()

	sched := scheduler.New(
		dataStore,
		publisher,
		clockAdapter,
		cfg.Scheduler.RefreshInterval,
		cfg.Scheduler.CycleTimeout,
		cfg.Scheduler.BatchSize,
	)

	if *runOnce {
		if err := runCycle(ctx, sched); err != nil {
			logger.Flush(2 * time.Second)
			os.Exit(1)
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Scheduler.CronSpec, func() {
		_ = runCycle(ctx, sched)
	})
	if err != nil {
		logger.Fatal("invalid cron spec", zap.Error(err), zap.String("spec", cfg.Scheduler.CronSpec))
	}
	c.Start()
	logger.Info("scheduler running", zap.String("cron_spec", cfg.Scheduler.CronSpec))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down scheduler")
	stopCtx := c.Stop()
	cancel()
	<-stopCtx.Done()
	logger.Info("scheduler stopped")
}

func runCycle(ctx context.Context, sched *scheduler.Scheduler) error {
	summary, err := sched.RunCycle(ctx)
	if err != nil {
		logger.Error("cycle failed", zap.Error(err))
		return err
	}

	logger.Info("cycle complete",
		zap.String("cycle_date", summary.CycleDate),
		zap.Int("scanned", summary.Scanned),
		zap.Int("enqueued", summary.Enqueued),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Duration("elapsed", summary.Elapsed))
	return nil
}

// openDatabase dials postgres, retrying with exponential backoff so the
// scheduler survives a database that comes up after it does
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
