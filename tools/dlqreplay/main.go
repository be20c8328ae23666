// Command dlqreplay lists and replays dead-lettered work items.
//
// Listing leaves the letters on the stream so repeated inspection is safe.
// Replaying publishes the embedded work item back onto its per-source
// subject and acknowledges the letter.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/config"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/logger"
	js "github.com/venuelens/social-indexer/internal/providers/jetstream"
)

const inspectDurable = "dlq-inspect"

var (
	configPath = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "", "Path to the directory holding .env files")
	replay     = flag.Bool("replay", false, "Republish fetched letters to their source subjects")
	limit      = flag.Int("limit", 50, "Maximum number of dead letters to fetch")
	full       = flag.Bool("full", false, "Print each letter as indented JSON instead of a one-line summary")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadReplayConfig(*configPath, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := logger.Initialize(logger.Config{Debug: cfg.Debug}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	nc, jsc, err := adapter.NewNatsJetStream().Connect(cfg.NATS.URL,
		nats.Name("social-indexer-dlqreplay"),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait))
	if err != nil {
		logger.Fatal("failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer nc.Close()

	if err := run(ctx, jsc, cfg.NATS.StreamName, *replay, *full, *limit); err != nil {
		logger.Error("dlqreplay failed", zap.Error(err))
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func run(ctx context.Context, jsc adapter.JetStream, streamName string, replay, full bool, limit int) error {
	consumer, err := jsc.CreateOrUpdateConsumer(ctx, streamName, natsjs.ConsumerConfig{
		Durable:       inspectDurable,
		FilterSubject: js.DeadLetterSubject,
		AckPolicy:     natsjs.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create inspection consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, natsjs.FetchMaxWait(5*time.Second))
	if err != nil {
		return fmt.Errorf("failed to fetch dead letters: %w", err)
	}

	jsonAdapter := adapter.NewJSON()
	fetched, replayed := 0, 0
	for msg := range batch.Messages() {
		fetched++

		var letter domain.DeadLetter
		if err := jsonAdapter.Unmarshal(msg.Data(), &letter); err != nil {
			logger.Warn("skipping undecodable dead letter", zap.Error(err))
			_ = msg.Term()
			continue
		}

		if full {
			pretty, err := jsonAdapter.MarshalIndent(letter, "", "  ")
			if err == nil {
				fmt.Println(string(pretty))
			}
		} else {
			fmt.Printf("%s  dead_at=%s error_kind=%s\n",
				letter.String(), letter.DeadAt.Format(time.RFC3339), letter.ErrorKind)
		}

		if !replay {
			// Leave it on the stream for the next inspection
			_ = msg.Nak()
			continue
		}

		if err := republish(ctx, jsc, jsonAdapter, &letter.WorkItem); err != nil {
			logger.Error("failed to replay dead letter",
				zap.Error(err), zap.String("work_item_id", letter.WorkItem.ID))
			_ = msg.Nak()
			continue
		}
		if err := msg.Ack(); err != nil {
			logger.Warn("failed to ack replayed dead letter", zap.Error(err))
			continue
		}
		replayed++
	}
	if err := batch.Error(); err != nil {
		return fmt.Errorf("fetch ended with error: %w", err)
	}

	fmt.Printf("%d dead letters fetched, %d replayed\n", fetched, replayed)
	return nil
}

func republish(ctx context.Context, jsc adapter.JetStream, jsonAdapter adapter.JSON, item *domain.WorkItem) error {
	// The letter's cycle already has a terminal ledger row; forcing the item
	// tells the consumer to reopen it instead of skipping the fetch
	forced := *item
	forced.Forced = true

	data, err := jsonAdapter.Marshal(&forced)
	if err != nil {
		return fmt.Errorf("failed to encode work item: %w", err)
	}

	_, err = jsc.Publish(ctx, js.RequestSubject(item.SourceName), data, natsjs.WithMsgID(item.ID))
	if err != nil {
		return fmt.Errorf("failed to publish work item: %w", err)
	}
	return nil
}
