package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/mocks"
	"github.com/venuelens/social-indexer/internal/store/schema"
)

type schedulerFixture struct {
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	publisher *mocks.MockPublisher
	scheduler *Scheduler
	now       time.Time
}

func setupTestScheduler(t *testing.T) *schedulerFixture {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	publisher := mocks.NewMockPublisher(ctrl)
	clock := mocks.NewMockClock(ctrl)

	now := time.Date(2026, 8, 27, 2, 0, 0, 0, time.UTC)
	clock.EXPECT().Now().Return(now).AnyTimes()
	clock.EXPECT().Since(gomock.Any()).Return(3 * time.Second).AnyTimes()

	s := New(st, publisher, clock, 24*time.Hour, 0, 2)
	return &schedulerFixture{ctrl: ctrl, store: st, publisher: publisher, scheduler: s, now: now}
}

func dueProfile(id int64, source domain.SourceName, lastChecked *time.Time) *schema.Profile {
	return &schema.Profile{
		ID:          id,
		EntityID:    id * 10,
		SourceID:    1,
		Handle:      "venue-" + string(source),
		Active:      true,
		LastChecked: lastChecked,
		Source:      &schema.Source{ID: 1, Name: source},
	}
}

func TestRunCycleEnqueuesAcrossPages(t *testing.T) {
	f := setupTestScheduler(t)
	defer f.ctrl.Finish()
	ctx := context.Background()

	cutoff := f.now.Add(-24 * time.Hour)
	checked := f.now.Add(-48 * time.Hour)

	page1 := []*schema.Profile{
		dueProfile(1, domain.SourceInstagram, nil),
		dueProfile(2, domain.SourceFacebook, &checked),
	}
	page2 := []*schema.Profile{
		dueProfile(5, domain.SourceTikTok, &checked),
	}

	gomock.InOrder(
		f.store.EXPECT().GetProfilesDueForRefresh(gomock.Any(), cutoff, int64(0), 2).Return(page1, nil),
		f.store.EXPECT().GetProfilesDueForRefresh(gomock.Any(), cutoff, int64(2), 2).Return(page2, nil),
		f.store.EXPECT().GetProfilesDueForRefresh(gomock.Any(), cutoff, int64(5), 2).Return(nil, nil),
	)

	f.store.EXPECT().CreatePendingFetchLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, log *schema.FetchLog) (bool, error) {
			assert.Equal(t, "2026-08-27", log.CycleDate)
			assert.Equal(t, domain.FetchStatusPending, log.Status)
			assert.NotEmpty(t, log.WorkItemID)
			return true, nil
		}).Times(3)

	var published []*domain.WorkItem
	f.publisher.EXPECT().PublishWorkItem(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, item *domain.WorkItem) error {
			published = append(published, item)
			return nil
		}).Times(3)

	summary, err := f.scheduler.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 3, summary.Enqueued)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Errors)

	require.Len(t, published, 3)
	assert.True(t, published[0].Valid())
	assert.Nil(t, published[0].Since)
	require.NotNil(t, published[1].Since)
	assert.Equal(t, checked, *published[1].Since)
	assert.Equal(t, domain.SourceTikTok, published[2].SourceName)
}

func TestRunCycleSkipsAlreadyScheduledProfiles(t *testing.T) {
	f := setupTestScheduler(t)
	defer f.ctrl.Finish()
	ctx := context.Background()

	profiles := []*schema.Profile{dueProfile(1, domain.SourceInstagram, nil)}
	gomock.InOrder(
		f.store.EXPECT().GetProfilesDueForRefresh(gomock.Any(), gomock.Any(), int64(0), 2).Return(profiles, nil),
		f.store.EXPECT().GetProfilesDueForRefresh(gomock.Any(), gomock.Any(), int64(1), 2).Return(nil, nil),
	)

	// Ledger row already exists: a previous run enqueued this profile
	f.store.EXPECT().CreatePendingFetchLog(gomock.Any(), gomock.Any()).Return(false, nil)
	// No publish call expected

	summary, err := f.scheduler.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Enqueued)
}

func TestRunCycleSingleFlight(t *testing.T) {
	f := setupTestScheduler(t)
	defer f.ctrl.Finish()

	f.scheduler.running.Store(true)
	_, err := f.scheduler.RunCycle(context.Background())
	assert.ErrorIs(t, err, domain.ErrCycleAlreadyRunning)
}

func TestRunCycleContinuesPastPublishFailure(t *testing.T) {
	f := setupTestScheduler(t)
	defer f.ctrl.Finish()
	ctx := context.Background()

	profiles := []*schema.Profile{
		dueProfile(1, domain.SourceInstagram, nil),
		dueProfile(2, domain.SourceFacebook, nil),
	}
	gomock.InOrder(
		f.store.EXPECT().GetProfilesDueForRefresh(gomock.Any(), gomock.Any(), int64(0), 2).Return(profiles, nil),
		f.store.EXPECT().GetProfilesDueForRefresh(gomock.Any(), gomock.Any(), int64(2), 2).Return(nil, nil),
	)

	f.store.EXPECT().CreatePendingFetchLog(gomock.Any(), gomock.Any()).Return(true, nil).Times(2)
	gomock.InOrder(
		f.publisher.EXPECT().PublishWorkItem(gomock.Any(), gomock.Any()).Return(errors.New("nats down")),
		f.publisher.EXPECT().PublishWorkItem(gomock.Any(), gomock.Any()).Return(nil),
	)
	f.store.EXPECT().DeletePendingFetchLog(gomock.Any(), int64(1), "2026-08-27").Return(nil)

	summary, err := f.scheduler.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Enqueued)
}

func TestRunCycleReleasesGateWhenPublishFails(t *testing.T) {
	f := setupTestScheduler(t)
	defer f.ctrl.Finish()
	ctx := context.Background()

	profiles := []*schema.Profile{dueProfile(1, domain.SourceInstagram, nil)}
	gomock.InOrder(
		f.store.EXPECT().GetProfilesDueForRefresh(gomock.Any(), gomock.Any(), int64(0), 2).Return(profiles, nil),
		f.store.EXPECT().GetProfilesDueForRefresh(gomock.Any(), gomock.Any(), int64(1), 2).Return(nil, nil),
	)

	// The pending row must be removed when no message was published, so a
	// cycle re-run can enqueue the profile instead of counting it skipped
	gomock.InOrder(
		f.store.EXPECT().CreatePendingFetchLog(gomock.Any(), gomock.Any()).Return(true, nil),
		f.publisher.EXPECT().PublishWorkItem(gomock.Any(), gomock.Any()).Return(errors.New("nats down")),
		f.store.EXPECT().DeletePendingFetchLog(gomock.Any(), int64(1), "2026-08-27").Return(nil),
	)

	summary, err := f.scheduler.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Zero(t, summary.Enqueued)
	assert.Zero(t, summary.Skipped)
}

func TestRunCycleScanErrorAborts(t *testing.T) {
	f := setupTestScheduler(t)
	defer f.ctrl.Finish()

	f.store.EXPECT().GetProfilesDueForRefresh(gomock.Any(), gomock.Any(), int64(0), 2).
		Return(nil, errors.New("db down"))

	_, err := f.scheduler.RunCycle(context.Background())
	assert.Error(t, err)
}
