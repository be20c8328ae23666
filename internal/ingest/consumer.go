package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/logger"
	"github.com/venuelens/social-indexer/internal/messaging"
	"github.com/venuelens/social-indexer/internal/store"
)

// Consumer drives ingestion for a set of sources: it subscribes to each
// source's subject, bounds per-source concurrency with a worker pool, and
// turns every processing outcome into exactly one bus acknowledgement.
type Consumer struct {
	processor  *Processor
	policy     RetryPolicy
	store      store.Store
	publisher  messaging.Publisher
	subscriber messaging.Subscriber
	clock      adapter.Clock
	pools      map[domain.SourceName]pond.Pool
}

// NewConsumer creates an ingestion consumer. concurrency maps each source to
// its worker pool size; sources absent from the map are not consumed.
func NewConsumer(
	processor *Processor,
	policy RetryPolicy,
	st store.Store,
	publisher messaging.Publisher,
	subscriber messaging.Subscriber,
	clock adapter.Clock,
	concurrency map[domain.SourceName]int,
) *Consumer {
	pools := make(map[domain.SourceName]pond.Pool, len(concurrency))
	for source, workers := range concurrency {
		if workers <= 0 {
			workers = 1
		}
		pools[source] = pond.NewPool(workers)
	}

	return &Consumer{
		processor:  processor,
		policy:     policy,
		store:      st,
		publisher:  publisher,
		subscriber: subscriber,
		clock:      clock,
		pools:      pools,
	}
}

// Run consumes all configured sources until ctx is canceled. Returns the
// first subscription error, or ctx.Err() on clean shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	if len(c.pools) == 0 {
		return fmt.Errorf("no sources configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(c.pools))

	for source, pool := range c.pools {
		wg.Add(1)
		go func(source domain.SourceName, pool pond.Pool) {
			defer wg.Done()
			err := c.subscriber.Subscribe(ctx, source, func(ctx context.Context, delivery messaging.Delivery) {
				pool.Submit(func() {
					c.handle(ctx, delivery)
				})
			})
			if err != nil && ctx.Err() == nil {
				// A dead subscription takes the whole worker down so the
				// supervisor restarts it
				errCh <- fmt.Errorf("subscription for %s failed: %w", source, err)
				cancel()
			}
		}(source, pool)
	}

	wg.Wait()

	for _, pool := range c.pools {
		pool.StopAndWait()
	}

	select {
	case err := <-errCh:
		return err
	default:
		return ctx.Err()
	}
}

// handle runs one delivery through the processor and applies the retry
// policy's disposition
func (c *Consumer) handle(ctx context.Context, delivery messaging.Delivery) {
	item := delivery.Item()
	attempt := delivery.Attempt()

	outcome := c.processor.Process(ctx, item, attempt)
	disposition := c.policy.Decide(outcome, attempt)

	switch disposition.Action {
	case ActionAck:
		if err := delivery.Ack(); err != nil {
			logger.WarnCtx(ctx, "failed to ack delivery",
				zap.Error(err),
				zap.String("work_item_id", item.ID))
		}

	case ActionRetry:
		logger.InfoCtx(ctx, "scheduling retry",
			zap.String("work_item_id", item.ID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", disposition.Delay),
			zap.Error(outcome.Err))
		if err := delivery.Retry(disposition.Delay); err != nil {
			logger.WarnCtx(ctx, "failed to schedule retry",
				zap.Error(err),
				zap.String("work_item_id", item.ID))
		}

	case ActionDead:
		c.deadLetter(ctx, delivery, outcome, attempt)
	}
}

// deadLetter records the terminal failure, parks the item for triage, and
// buries the delivery. Ledger and dead letter are written before the bury so
// a crash mid-sequence leaves the item on the bus, not lost.
func (c *Consumer) deadLetter(ctx context.Context, delivery messaging.Delivery, outcome domain.Outcome, attempt int) {
	item := delivery.Item()

	reason := "unknown"
	if outcome.Err != nil {
		reason = outcome.Err.Error()
	}
	errorKind := string(domain.ClassifyError(outcome.Err))

	if err := c.store.SetFetchLogOutcome(ctx, item.ProfileID, item.CycleDate,
		domain.FetchStatusFailed, outcome.Written, errorKind, reason); err != nil {
		logger.WarnCtx(ctx, "failed to record failed fetch",
			zap.Error(err),
			zap.String("work_item_id", item.ID))
	}

	letter := &domain.DeadLetter{
		WorkItem:   *item,
		Reason:     reason,
		ErrorKind:  errorKind,
		RetryCount: attempt - 1,
		DeadAt:     c.clock.Now(),
	}
	if err := c.publisher.PublishDeadLetter(ctx, letter); err != nil {
		logger.ErrorCtx(ctx, "failed to publish dead letter, leaving delivery for redelivery",
			zap.Error(err),
			zap.String("work_item_id", item.ID))
		return
	}

	if err := delivery.Bury(); err != nil {
		logger.WarnCtx(ctx, "failed to bury delivery",
			zap.Error(err),
			zap.String("work_item_id", item.ID))
	}
}
