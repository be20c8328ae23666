package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/mocks"
	"github.com/venuelens/social-indexer/internal/providers/sources"
	"github.com/venuelens/social-indexer/internal/store/schema"
)

type processorFixture struct {
	ctrl   *gomock.Controller
	store  *mocks.MockStore
	client *mocks.MockSourceClient
	sink   *mocks.MockArchiveSink
	proc   *Processor
	now    time.Time
}

func setupTestProcessor(t *testing.T) *processorFixture {
	ctrl := gomock.NewController(t)

	st := mocks.NewMockStore(ctrl)
	client := mocks.NewMockSourceClient(ctrl)
	sink := mocks.NewMockArchiveSink(ctrl)
	clock := mocks.NewMockClock(ctrl)

	now := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	clock.EXPECT().Now().Return(now).AnyTimes()
	client.EXPECT().Name().Return(domain.SourceInstagram).AnyTimes()

	proc := NewProcessor(
		st,
		sources.NewRegistry(client),
		sink,
		clock,
		adapter.NewJSON(),
		time.Minute,
		30*time.Second,
		5*time.Minute,
	)

	return &processorFixture{ctrl: ctrl, store: st, client: client, sink: sink, proc: proc, now: now}
}

func testWorkItem() *domain.WorkItem {
	return &domain.WorkItem{
		ID:         "01J5TESTWORKITEM0000000000",
		EntityID:   7,
		SourceID:   1,
		SourceName: domain.SourceInstagram,
		ProfileID:  99,
		Handle:     "cafe.azul",
		CycleDate:  "2026-08-27",
	}
}

func testProfile() *schema.Profile {
	return &schema.Profile{
		ID:       99,
		EntityID: 7,
		SourceID: 1,
		Handle:   "cafe.azul",
		Active:   true,
		Source:   &schema.Source{ID: 1, Name: domain.SourceInstagram},
	}
}

func testRawItems() []domain.RawItem {
	return []domain.RawItem{
		{
			PostID:      "ig-2",
			URL:         "https://ig/p/2",
			Caption:     "new menu",
			LikeCount:   12,
			CreatedTime: time.Date(2026, 8, 26, 18, 0, 0, 0, time.UTC),
			RawJSON:     []byte(`{"id":"ig-2","caption":"new menu"}`),
		},
		{
			PostID:      "ig-1",
			URL:         "https://ig/p/1",
			Caption:     "opening",
			LikeCount:   40,
			CreatedTime: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
			RawJSON:     []byte(`{"id":"ig-1","caption":"opening"}`),
		},
	}
}

func TestProcessSuccess(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).Return(testRawItems(), nil)

	f.store.EXPECT().GetMetadataRecord(gomock.Any(), int64(99), "ig-2").Return(nil, nil)
	f.sink.EXPECT().Put(gomock.Any(), "instagram/2026-08-27/7_ig-2.json", gomock.Any()).Return(nil)
	f.store.EXPECT().UpsertMetadataRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *schema.MetadataRecord) error {
			assert.Equal(t, int64(99), rec.ProfileID)
			assert.Equal(t, "ig-2", rec.PostID)
			assert.Equal(t, "instagram/2026-08-27/7_ig-2.json", rec.RawRef)
			assert.NotEmpty(t, rec.RawHash)
			return nil
		})

	f.store.EXPECT().GetMetadataRecord(gomock.Any(), int64(99), "ig-1").Return(nil, nil)
	f.sink.EXPECT().Put(gomock.Any(), "instagram/2026-08-27/7_ig-1.json", gomock.Any()).Return(nil)
	f.store.EXPECT().UpsertMetadataRecord(gomock.Any(), gomock.Any()).Return(nil)

	f.store.EXPECT().SetFetchLogOutcome(gomock.Any(), int64(99), "2026-08-27", domain.FetchStatusSuccess, 2, "", "").Return(nil)
	f.store.EXPECT().AdvanceProfileLastChecked(gomock.Any(), int64(99), f.now).Return(nil)

	outcome := f.proc.Process(ctx, item, 1)
	assert.Equal(t, domain.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, 2, outcome.Written)
}

func TestProcessSkipsUnchangedPayload(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()
	raw := testRawItems()[:1]

	hash, err := canonicalHash(raw[0].RawJSON)
	require.NoError(t, err)

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).Return(raw, nil)

	// Stored hash matches: no archive write, no upsert
	f.store.EXPECT().GetMetadataRecord(gomock.Any(), int64(99), "ig-2").
		Return(&schema.MetadataRecord{ProfileID: 99, PostID: "ig-2", RawHash: hash}, nil)

	f.store.EXPECT().SetFetchLogOutcome(gomock.Any(), int64(99), "2026-08-27", domain.FetchStatusSuccess, 1, "", "").Return(nil)
	f.store.EXPECT().AdvanceProfileLastChecked(gomock.Any(), int64(99), f.now).Return(nil)

	outcome := f.proc.Process(ctx, item, 1)
	assert.Equal(t, domain.OutcomeSuccess, outcome.Kind)
}

func TestProcessAcksCompletedCycleWithoutRework(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").
		Return(&schema.FetchLog{ProfileID: 99, CycleDate: "2026-08-27", Status: domain.FetchStatusSuccess}, nil)

	outcome := f.proc.Process(ctx, item, 2)
	assert.Equal(t, domain.OutcomeSuccess, outcome.Kind)
	assert.Zero(t, outcome.Written)
}

func TestProcessForcedItemReopensCompletedCycle(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()
	item.Forced = true

	// A replayed dead letter or ad-hoc refresh arrives after the cycle
	// already failed; the terminal row must not swallow the fetch
	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").
		Return(&schema.FetchLog{ProfileID: 99, CycleDate: "2026-08-27", Status: domain.FetchStatusFailed}, nil)
	f.store.EXPECT().ReopenFetchLog(gomock.Any(), int64(99), "2026-08-27", item.ID).Return(nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).Return(testRawItems()[:1], nil)

	f.store.EXPECT().GetMetadataRecord(gomock.Any(), int64(99), "ig-2").Return(nil, nil)
	f.sink.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.store.EXPECT().UpsertMetadataRecord(gomock.Any(), gomock.Any()).Return(nil)

	f.store.EXPECT().SetFetchLogOutcome(gomock.Any(), int64(99), "2026-08-27", domain.FetchStatusSuccess, 1, "", "").Return(nil)
	f.store.EXPECT().AdvanceProfileLastChecked(gomock.Any(), int64(99), f.now).Return(nil)

	outcome := f.proc.Process(ctx, item, 1)
	assert.Equal(t, domain.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, 1, outcome.Written)
}

func TestProcessForcedItemReopenFailureRetries(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()
	item.Forced = true

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").
		Return(&schema.FetchLog{ProfileID: 99, CycleDate: "2026-08-27", Status: domain.FetchStatusFailed}, nil)
	f.store.EXPECT().ReopenFetchLog(gomock.Any(), int64(99), "2026-08-27", item.ID).
		Return(errors.New("connection reset"))

	outcome := f.proc.Process(ctx, item, 1)
	assert.Equal(t, domain.OutcomeRetry, outcome.Kind)
}

func TestProcessBoundsAttemptToVisibilityWindow(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()
	start := time.Now()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").
		DoAndReturn(func(callCtx context.Context, _ int64, _ string) (*schema.FetchLog, error) {
			deadline, ok := callCtx.Deadline()
			require.True(t, ok, "attempt context must carry a deadline")
			assert.LessOrEqual(t, deadline.Sub(start), 5*time.Minute)
			return &schema.FetchLog{ProfileID: 99, CycleDate: "2026-08-27", Status: domain.FetchStatusSuccess}, nil
		})

	outcome := f.proc.Process(ctx, item, 1)
	assert.Equal(t, domain.OutcomeSuccess, outcome.Kind)
}

func TestProcessAuthErrorIsDead(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).
		Return(nil, domain.NewFetchError(domain.ErrorKindAuth, errors.New("token expired")))

	outcome := f.proc.Process(ctx, item, 1)
	assert.Equal(t, domain.OutcomeDead, outcome.Kind)
}

func TestProcessRateLimitCarriesHint(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).
		Return(nil, domain.NewRateLimitedError(errors.New("throttled"), 2*time.Minute))

	outcome := f.proc.Process(ctx, item, 1)
	assert.Equal(t, domain.OutcomeRetry, outcome.Kind)
	assert.Equal(t, 2*time.Minute, outcome.RetryAfter)
}

func TestProcessPartialWriteKeepsCapturedItems(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).Return(testRawItems(), nil)

	// First item lands
	f.store.EXPECT().GetMetadataRecord(gomock.Any(), int64(99), "ig-2").Return(nil, nil)
	f.sink.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.store.EXPECT().UpsertMetadataRecord(gomock.Any(), gomock.Any()).Return(nil)

	// Second item fails at the archive
	f.store.EXPECT().GetMetadataRecord(gomock.Any(), int64(99), "ig-1").Return(nil, nil)
	f.sink.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	f.store.EXPECT().SetFetchLogOutcome(gomock.Any(), int64(99), "2026-08-27", domain.FetchStatusPartial, 1, gomock.Any(), gomock.Any()).Return(nil)
	f.store.EXPECT().AdvanceProfileLastChecked(gomock.Any(), int64(99), f.now).Return(nil)

	outcome := f.proc.Process(ctx, item, 1)
	assert.Equal(t, domain.OutcomePartial, outcome.Kind)
	assert.Equal(t, 1, outcome.Written)
}

func TestProcessSinkFailureBeforeAnyWriteRetries(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).Return(testRawItems()[:1], nil)

	f.store.EXPECT().GetMetadataRecord(gomock.Any(), int64(99), "ig-2").Return(nil, nil)
	f.sink.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	outcome := f.proc.Process(ctx, item, 1)
	assert.Equal(t, domain.OutcomeRetry, outcome.Kind)
	assert.Equal(t, domain.ErrorKindSinkWrite, domain.ClassifyError(outcome.Err))
}

func TestProcessMissingProfileIsDead(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(nil, nil)

	outcome := f.proc.Process(ctx, item, 1)
	assert.Equal(t, domain.OutcomeDead, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, domain.ErrProfileNotFound)
}

func TestProcessPersistsRetryCountOnRedelivery(t *testing.T) {
	f := setupTestProcessor(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().SetFetchLogRetryCount(gomock.Any(), int64(99), "2026-08-27", 2).Return(nil)
	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).
		Return(nil, domain.NewFetchError(domain.ErrorKindTransient, errors.New("timeout")))

	outcome := f.proc.Process(ctx, item, 3)
	assert.Equal(t, domain.OutcomeRetry, outcome.Kind)
}
