package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/logger"
	"github.com/venuelens/social-indexer/internal/messaging"
)

// DurableName returns the per-source durable consumer name. One durable per
// source means every worker process for that source shares one delivery
// cursor and the bus load-balances across them.
func DurableName(source domain.SourceName) string {
	return "ingest-" + string(source)
}

type subscriber struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
	ackWait    time.Duration
	maxDeliver int
}

// NewSubscriber creates a new NATS JetStream subscriber and ensures the
// ingestion stream exists
func NewSubscriber(ctx context.Context, cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Subscriber, error) {
	nc, js, err := connect(cfg, natsJS)
	if err != nil {
		return nil, err
	}

	if err := ensureStream(ctx, js, cfg.StreamName); err != nil {
		nc.Close()
		return nil, err
	}

	return &subscriber{
		nc:         nc,
		js:         js,
		streamName: cfg.StreamName,
		json:       jsonAdapter,
		ackWait:    cfg.AckWait,
		maxDeliver: cfg.MaxDeliver,
	}, nil
}

// Subscribe starts delivering work items for one source to the handler.
// Blocks until ctx is canceled, then drains in-flight deliveries.
func (s *subscriber) Subscribe(ctx context.Context, source domain.SourceName, handler messaging.DeliveryHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, s.streamName, jetstream.ConsumerConfig{
		Durable:       DurableName(source),
		FilterSubject: RequestSubject(source),
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.ackWait,
		MaxDeliver:    s.maxDeliver,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer for %s: %w", source, err)
	}

	cc, err := consumer.Consume(func(msg adapter.Message) {
		s.dispatch(ctx, source, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", source, err)
	}

	logger.InfoCtx(ctx, "subscribed to ingestion subject",
		zap.String("source", string(source)),
		zap.String("durable", DurableName(source)))

	select {
	case <-ctx.Done():
		cc.Drain()
		<-cc.Closed()
		return ctx.Err()
	case <-cc.Closed():
		return fmt.Errorf("consumer for %s closed unexpectedly", source)
	}
}

// dispatch decodes one message and hands it to the handler. Undecodable
// messages are terminated immediately: redelivering them can never help.
func (s *subscriber) dispatch(ctx context.Context, source domain.SourceName, msg adapter.Message, handler messaging.DeliveryHandler) {
	var item domain.WorkItem
	if err := s.json.Unmarshal(msg.Data(), &item); err != nil {
		logger.ErrorCtx(ctx, "dropping undecodable work item",
			zap.Error(err),
			zap.String("subject", msg.Subject()))
		if err := msg.Term(); err != nil {
			logger.WarnCtx(ctx, "failed to terminate undecodable message", zap.Error(err))
		}
		return
	}

	if !item.Valid() {
		logger.ErrorCtx(ctx, "dropping malformed work item",
			zap.String("work_item_id", item.ID),
			zap.String("source", string(source)))
		if err := msg.Term(); err != nil {
			logger.WarnCtx(ctx, "failed to terminate malformed message", zap.Error(err))
		}
		return
	}

	attempt := 1
	if meta, err := msg.Metadata(); err == nil {
		attempt = int(meta.NumDelivered)
	}

	handler(ctx, &delivery{msg: msg, item: &item, attempt: attempt})
}

// Close closes the NATS connection
func (s *subscriber) Close() {
	if s.nc == nil {
		return
	}

	s.nc.Close()
}

// delivery adapts a JetStream message to the messaging.Delivery contract
type delivery struct {
	msg     adapter.Message
	item    *domain.WorkItem
	attempt int
}

func (d *delivery) Item() *domain.WorkItem { return d.item }

func (d *delivery) Attempt() int { return d.attempt }

func (d *delivery) Ack() error { return d.msg.Ack() }

func (d *delivery) Retry(delay time.Duration) error { return d.msg.NakWithDelay(delay) }

func (d *delivery) Bury() error { return d.msg.Term() }
