package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/logger"
	"github.com/venuelens/social-indexer/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	// AckWait is the visibility window before an unacked delivery is retried
	AckWait time.Duration
	// MaxDeliver caps delivery attempts per message (retries + 1)
	MaxDeliver int
}

const (
	// SubjectPrefix is the root of all ingestion subjects on the stream
	SubjectPrefix = "ingest"
	// DeadLetterSubject parks terminally failed work items
	DeadLetterSubject = "ingest.deadletter"
	// streamMaxAge bounds how long unconsumed messages are retained
	streamMaxAge = 7 * 24 * time.Hour
)

// RequestSubject returns the per-source subject work items are published to
func RequestSubject(source domain.SourceName) string {
	return fmt.Sprintf("%s.requests.%s", SubjectPrefix, source)
}

// connect dials NATS with the shared reconnect handlers
func connect(cfg Config, natsJS adapter.NatsJetStream) (adapter.NatsConn, adapter.JetStream, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}
	return nc, js, nil
}

// ensureStream creates or updates the ingestion stream
func ensureStream(ctx context.Context, js adapter.JetStream, streamName string) error {
	err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{SubjectPrefix + ".>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   streamMaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", streamName, err)
	}
	return nil
}

type publisher struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
}

// NewPublisher creates a new NATS JetStream publisher and ensures the
// ingestion stream exists
func NewPublisher(ctx context.Context, cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	nc, js, err := connect(cfg, natsJS)
	if err != nil {
		return nil, err
	}

	if err := ensureStream(ctx, js, cfg.StreamName); err != nil {
		nc.Close()
		return nil, err
	}

	return &publisher{
		nc:         nc,
		js:         js,
		streamName: cfg.StreamName,
		json:       jsonAdapter,
	}, nil
}

// PublishWorkItem enqueues one scheduled fetch onto the per-source subject.
// The work item ULID doubles as the JetStream message ID so the server's
// dedupe window drops same-cycle double publishes.
func (p *publisher) PublishWorkItem(ctx context.Context, item *domain.WorkItem) error {
	if !item.Valid() {
		return fmt.Errorf("refusing to publish invalid work item %q", item.ID)
	}

	data, err := p.json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal work item: %w", err)
	}

	subject := RequestSubject(item.SourceName)
	logger.DebugCtx(ctx, "publishing work item",
		zap.String("subject", subject),
		zap.String("work_item_id", item.ID))

	_, err = p.js.Publish(ctx, subject, data, jetstream.WithMsgID(item.ID))
	if err != nil {
		return fmt.Errorf("failed to publish work item: %w", err)
	}

	return nil
}

// PublishDeadLetter parks a terminally failed work item for operator triage
func (p *publisher) PublishDeadLetter(ctx context.Context, letter *domain.DeadLetter) error {
	data, err := p.json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	_, err = p.js.Publish(ctx, DeadLetterSubject, data)
	if err != nil {
		return fmt.Errorf("failed to publish dead letter: %w", err)
	}

	logger.WarnCtx(ctx, "work item dead-lettered", zap.String("dead_letter", letter.String()))
	return nil
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
