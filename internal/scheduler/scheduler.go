package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/logger"
	"github.com/venuelens/social-indexer/internal/messaging"
	"github.com/venuelens/social-indexer/internal/store"
	"github.com/venuelens/social-indexer/internal/store/schema"
)

// CycleSummary reports what one scheduling cycle did
type CycleSummary struct {
	CycleDate string
	// Scanned is how many due profiles the scan returned
	Scanned int
	// Enqueued is how many work items were published
	Enqueued int
	// Skipped is how many profiles already had a ledger row for the cycle
	Skipped int
	// Errors is how many profiles failed to enqueue
	Errors int
	// Elapsed is the wall time of the cycle
	Elapsed time.Duration
}

// Scheduler enumerates profiles due for refresh and enqueues one work item
// per profile per cycle. The fetch_log pending row is the enqueue gate, so
// re-running a cycle after a crash never double-enqueues a profile.
type Scheduler struct {
	store           store.Store
	publisher       messaging.Publisher
	clock           adapter.Clock
	refreshInterval time.Duration
	cycleTimeout    time.Duration
	batchSize       int
	running         atomic.Bool
}

// New creates a scheduler
func New(
	st store.Store,
	publisher messaging.Publisher,
	clock adapter.Clock,
	refreshInterval time.Duration,
	cycleTimeout time.Duration,
	batchSize int,
) *Scheduler {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Scheduler{
		store:           st,
		publisher:       publisher,
		clock:           clock,
		refreshInterval: refreshInterval,
		cycleTimeout:    cycleTimeout,
		batchSize:       batchSize,
	}
}

// RunCycle runs one scheduling cycle. Only one cycle runs at a time per
// process; a second call while one is in flight returns
// domain.ErrCycleAlreadyRunning.
func (s *Scheduler) RunCycle(ctx context.Context) (*CycleSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrCycleAlreadyRunning
	}
	defer s.running.Store(false)

	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}

	started := s.clock.Now()
	now := started.UTC()
	summary := &CycleSummary{CycleDate: now.Format(domain.CycleDateLayout)}
	cutoff := now.Add(-s.refreshInterval)

	logger.InfoCtx(ctx, "scheduling cycle started",
		zap.String("cycle_date", summary.CycleDate),
		zap.Time("cutoff", cutoff))

	// Keyset scan: pages stay stable under concurrent watermark updates
	// because the cursor is the immutable profile ID
	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		profiles, err := s.store.GetProfilesDueForRefresh(ctx, cutoff, afterID, s.batchSize)
		if err != nil {
			return summary, err
		}
		if len(profiles) == 0 {
			break
		}

		for _, profile := range profiles {
			summary.Scanned++
			s.enqueue(ctx, profile, summary)
		}
		afterID = profiles[len(profiles)-1].ID
	}

	summary.Elapsed = s.clock.Since(started)
	logger.InfoCtx(ctx, "scheduling cycle finished",
		zap.String("cycle_date", summary.CycleDate),
		zap.Int("scanned", summary.Scanned),
		zap.Int("enqueued", summary.Enqueued),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Duration("elapsed", summary.Elapsed))

	return summary, nil
}

// enqueue creates the ledger row for one profile and publishes its work
// item. The ledger insert is the idempotency gate: losing the race means
// another run already enqueued this profile for the cycle.
func (s *Scheduler) enqueue(ctx context.Context, profile *schema.Profile, summary *CycleSummary) {
	if profile.Source == nil {
		logger.WarnCtx(ctx, "profile missing source association, skipping",
			zap.Int64("profile_id", profile.ID))
		summary.Errors++
		return
	}

	item := &domain.WorkItem{
		ID:         ulid.Make().String(),
		EntityID:   profile.EntityID,
		SourceID:   profile.SourceID,
		SourceName: profile.Source.Name,
		ProfileID:  profile.ID,
		Handle:     profile.Handle,
		CycleDate:  summary.CycleDate,
		Since:      profile.LastChecked,
	}

	created, err := s.store.CreatePendingFetchLog(ctx, &schema.FetchLog{
		ProfileID:  profile.ID,
		CycleDate:  summary.CycleDate,
		WorkItemID: item.ID,
		Status:     domain.FetchStatusPending,
	})
	if err != nil {
		logger.ErrorCtx(ctx, "failed to create ledger row",
			zap.Error(err),
			zap.Int64("profile_id", profile.ID))
		summary.Errors++
		return
	}
	if !created {
		summary.Skipped++
		return
	}

	if err := s.publisher.PublishWorkItem(ctx, item); err != nil {
		logger.ErrorCtx(ctx, "failed to publish work item",
			zap.Error(err),
			zap.Int64("profile_id", profile.ID),
			zap.String("work_item_id", item.ID))
		// Release the enqueue gate so a cycle re-run can pick the profile
		// up again; otherwise the unpublished pending row blocks it all day
		if delErr := s.store.DeletePendingFetchLog(ctx, profile.ID, summary.CycleDate); delErr != nil {
			logger.WarnCtx(ctx, "failed to release ledger row after publish failure",
				zap.Error(delErr),
				zap.Int64("profile_id", profile.ID))
		}
		summary.Errors++
		return
	}

	summary.Enqueued++
}
