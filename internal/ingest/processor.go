package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/archive"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/logger"
	"github.com/venuelens/social-indexer/internal/providers/sources"
	"github.com/venuelens/social-indexer/internal/store"
	"github.com/venuelens/social-indexer/internal/store/schema"
)

// Processor executes one work item: fetch the profile's recent content from
// its source, archive each raw payload, and upsert the parsed records.
// Process is safe to call repeatedly for the same item; every write it
// performs is idempotent.
type Processor struct {
	store        store.Store
	clients      sources.Registry
	sink         archive.Sink
	clock        adapter.Clock
	json         adapter.JSON
	fetchTimeout time.Duration
	writeTimeout time.Duration
	ackWait      time.Duration
}

// visibilitySlack is reserved out of the ack window so the nak for a
// timed-out attempt still reaches the server before redelivery
const visibilitySlack = 10 * time.Second

// NewProcessor creates a work item processor. ackWait is the bus visibility
// window; a whole attempt is bounded to it so a slow fetch cannot outlive
// its delivery and run concurrently with the redelivery.
func NewProcessor(
	st store.Store,
	clients sources.Registry,
	sink archive.Sink,
	clock adapter.Clock,
	jsonAdapter adapter.JSON,
	fetchTimeout time.Duration,
	writeTimeout time.Duration,
	ackWait time.Duration,
) *Processor {
	return &Processor{
		store:        st,
		clients:      clients,
		sink:         sink,
		clock:        clock,
		json:         jsonAdapter,
		fetchTimeout: fetchTimeout,
		writeTimeout: writeTimeout,
		ackWait:      ackWait,
	}
}

// normalizedContent is the parsed representation persisted for querying
type normalizedContent struct {
	Caption      string    `json:"caption"`
	URL          string    `json:"url"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	PostedAt     time.Time `json:"posted_at"`
}

// Process runs one attempt for a work item and reports the outcome.
// attempt is the 1-based delivery attempt number from the bus.
func (p *Processor) Process(ctx context.Context, item *domain.WorkItem, attempt int) domain.Outcome {
	log := logger.Default().With(
		zap.String("work_item_id", item.ID),
		zap.String("source", string(item.SourceName)),
		zap.String("handle", item.Handle),
		zap.Int("attempt", attempt),
	)

	if p.ackWait > 0 {
		budget := p.ackWait - visibilitySlack
		if budget <= 0 {
			budget = p.ackWait
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	// Persist how many redeliveries this item has consumed
	if attempt > 1 {
		if err := p.store.SetFetchLogRetryCount(ctx, item.ProfileID, item.CycleDate, attempt-1); err != nil {
			log.Warn("failed to persist retry count", zap.Error(err))
		}
	}

	// A redelivery that races a completed attempt is acked without rework
	fetchLog, err := p.store.GetFetchLog(ctx, item.ProfileID, item.CycleDate)
	if err != nil {
		return retryOutcome(domain.NewFetchError(domain.ErrorKindSinkWrite, err))
	}
	if fetchLog != nil && fetchLog.Status.Terminal() {
		if !item.Forced {
			log.Info("fetch already completed for cycle, skipping",
				zap.String("status", string(fetchLog.Status)))
			return domain.Outcome{Kind: domain.OutcomeSuccess}
		}
		// Operator-forced rerun: put the row back to pending so the new
		// outcome can be recorded
		if err := p.store.ReopenFetchLog(ctx, item.ProfileID, item.CycleDate, item.ID); err != nil {
			return retryOutcome(domain.NewFetchError(domain.ErrorKindSinkWrite, err))
		}
		log.Info("reopened completed cycle for forced fetch",
			zap.String("previous_status", string(fetchLog.Status)))
	}

	profile, err := p.store.GetProfileWithSource(ctx, item.ProfileID)
	if err != nil {
		return retryOutcome(domain.NewFetchError(domain.ErrorKindSinkWrite, err))
	}
	if profile == nil {
		return domain.Outcome{Kind: domain.OutcomeDead, Err: domain.ErrProfileNotFound}
	}

	client, err := p.clients.Get(item.SourceName)
	if err != nil {
		return domain.Outcome{Kind: domain.OutcomeDead, Err: err}
	}

	fetchedAt := p.clock.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	items, err := client.FetchPosts(fetchCtx, item.Handle, item.Since)
	cancel()
	if err != nil {
		kind := domain.ClassifyError(err)
		log.Warn("fetch failed", zap.Error(err), zap.String("error_kind", string(kind)))
		if kind.Retryable() {
			return retryOutcome(err)
		}
		return domain.Outcome{Kind: domain.OutcomeDead, Err: err}
	}

	written, err := p.writeItems(ctx, item, profile, items, fetchedAt)
	if err != nil {
		if written > 0 {
			// Keep what landed; the profile catches up next cycle
			log.Warn("partial write, keeping captured items",
				zap.Int("written", written),
				zap.Int("total", len(items)),
				zap.Error(err))
			p.finish(ctx, item, domain.FetchStatusPartial, written, err, fetchedAt)
			return domain.Outcome{Kind: domain.OutcomePartial, Written: written, Err: err}
		}
		return retryOutcome(domain.NewFetchError(domain.ErrorKindSinkWrite, err))
	}

	p.finish(ctx, item, domain.FetchStatusSuccess, written, nil, fetchedAt)
	log.Info("fetch completed", zap.Int("items_written", written))
	return domain.Outcome{Kind: domain.OutcomeSuccess, Written: written}
}

// writeItems lands each raw item in the archive and the database. Returns
// the count written before the first failure.
func (p *Processor) writeItems(ctx context.Context, item *domain.WorkItem, profile *schema.Profile, items []domain.RawItem, fetchedAt time.Time) (int, error) {
	written := 0
	for i := range items {
		raw := &items[i]
		if err := p.writeOne(ctx, item, profile, raw, fetchedAt); err != nil {
			return written, fmt.Errorf("failed to write post %s: %w", raw.PostID, err)
		}
		written++
	}
	return written, nil
}

// writeOne archives one raw payload and upserts its parsed record. When the
// canonical hash matches the stored row the payload has not changed and both
// writes are skipped.
func (p *Processor) writeOne(ctx context.Context, item *domain.WorkItem, profile *schema.Profile, raw *domain.RawItem, fetchedAt time.Time) error {
	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	hash, err := canonicalHash(raw.RawJSON)
	if err != nil {
		return fmt.Errorf("failed to hash payload: %w", err)
	}

	existing, err := p.store.GetMetadataRecord(writeCtx, profile.ID, raw.PostID)
	if err != nil {
		return err
	}
	if existing != nil && existing.RawHash == hash {
		return nil
	}

	ref := archive.ObjectRef(item.SourceName, item.CycleDate, item.EntityID, raw.PostID)
	if err := p.sink.Put(writeCtx, ref, raw.RawJSON); err != nil {
		return fmt.Errorf("archive write failed: %w", err)
	}

	normalized, err := p.json.Marshal(normalizedContent{
		Caption:      raw.Caption,
		URL:          raw.URL,
		LikeCount:    raw.LikeCount,
		CommentCount: raw.CommentCount,
		PostedAt:     raw.CreatedTime,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal normalized content: %w", err)
	}

	postedAt := raw.CreatedTime
	return p.store.UpsertMetadataRecord(writeCtx, &schema.MetadataRecord{
		ProfileID:    profile.ID,
		PostID:       raw.PostID,
		URL:          raw.URL,
		Caption:      raw.Caption,
		LikeCount:    raw.LikeCount,
		CommentCount: raw.CommentCount,
		PostedAt:     &postedAt,
		Normalized:   datatypes.JSON(normalized),
		RawRef:       ref,
		RawHash:      hash,
		FetchedAt:    fetchedAt,
	})
}

// finish records the terminal ledger status and advances the watermark.
// Both writes are best effort: the upserts above are idempotent, so a crash
// here only costs a redundant re-fetch next cycle.
func (p *Processor) finish(ctx context.Context, item *domain.WorkItem, status domain.FetchStatus, written int, cause error, fetchedAt time.Time) {
	errorKind := ""
	message := ""
	if cause != nil {
		errorKind = string(domain.ClassifyError(cause))
		message = cause.Error()
	}

	if err := p.store.SetFetchLogOutcome(ctx, item.ProfileID, item.CycleDate, status, written, errorKind, message); err != nil {
		logger.WarnCtx(ctx, "failed to record fetch outcome",
			zap.Error(err),
			zap.String("work_item_id", item.ID))
	}

	if err := p.store.AdvanceProfileLastChecked(ctx, item.ProfileID, fetchedAt); err != nil {
		logger.WarnCtx(ctx, "failed to advance watermark",
			zap.Error(err),
			zap.String("work_item_id", item.ID))
	}
}

// retryOutcome wraps an error as a retryable outcome with its hint
func retryOutcome(err error) domain.Outcome {
	return domain.Outcome{
		Kind:       domain.OutcomeRetry,
		Err:        err,
		RetryAfter: domain.RetryAfterHint(err),
	}
}

// canonicalHash computes the hash of the JCS canonical form of a payload,
// so key order and whitespace differences don't defeat change detection
func canonicalHash(raw []byte) (string, error) {
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
