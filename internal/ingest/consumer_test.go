package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/mocks"
	"github.com/venuelens/social-indexer/internal/providers/sources"
	"github.com/venuelens/social-indexer/internal/store/schema"
)

type consumerFixture struct {
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	client    *mocks.MockSourceClient
	sink      *mocks.MockArchiveSink
	publisher *mocks.MockPublisher
	consumer  *Consumer
	now       time.Time
}

func setupTestConsumer(t *testing.T) *consumerFixture {
	ctrl := gomock.NewController(t)

	st := mocks.NewMockStore(ctrl)
	client := mocks.NewMockSourceClient(ctrl)
	sink := mocks.NewMockArchiveSink(ctrl)
	publisher := mocks.NewMockPublisher(ctrl)
	subscriber := mocks.NewMockSubscriber(ctrl)
	clock := mocks.NewMockClock(ctrl)

	now := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	clock.EXPECT().Now().Return(now).AnyTimes()
	client.EXPECT().Name().Return(domain.SourceInstagram).AnyTimes()

	processor := NewProcessor(st, sources.NewRegistry(client), sink, clock, adapter.NewJSON(), time.Minute, 30*time.Second, 5*time.Minute)
	policy := RetryPolicy{MaxRetries: 5, BackoffBase: 30 * time.Second, BackoffMax: 30 * time.Minute}

	consumer := NewConsumer(processor, policy, st, publisher, subscriber, clock,
		map[domain.SourceName]int{domain.SourceInstagram: 2})

	return &consumerFixture{
		ctrl:      ctrl,
		store:     st,
		client:    client,
		sink:      sink,
		publisher: publisher,
		consumer:  consumer,
		now:       now,
	}
}

func newMockDelivery(ctrl *gomock.Controller, item *domain.WorkItem, attempt int) *mocks.MockDelivery {
	d := mocks.NewMockDelivery(ctrl)
	d.EXPECT().Item().Return(item).AnyTimes()
	d.EXPECT().Attempt().Return(attempt).AnyTimes()
	return d
}

func TestHandleAcksCompletedWork(t *testing.T) {
	f := setupTestConsumer(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").
		Return(&schema.FetchLog{Status: domain.FetchStatusSuccess}, nil)

	delivery := newMockDelivery(f.ctrl, item, 1)
	delivery.EXPECT().Ack().Return(nil)

	f.consumer.handle(ctx, delivery)
}

func TestHandleSchedulesRetryWithBackoff(t *testing.T) {
	f := setupTestConsumer(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().SetFetchLogRetryCount(gomock.Any(), int64(99), "2026-08-27", 1).Return(nil)
	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).
		Return(nil, domain.NewFetchError(domain.ErrorKindTransient, errors.New("timeout")))

	delivery := newMockDelivery(f.ctrl, item, 2)
	// Second attempt doubles the base backoff
	delivery.EXPECT().Retry(60 * time.Second).Return(nil)

	f.consumer.handle(ctx, delivery)
}

func TestHandleDeadLettersAfterBudgetExhausted(t *testing.T) {
	f := setupTestConsumer(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().SetFetchLogRetryCount(gomock.Any(), int64(99), "2026-08-27", 5).Return(nil)
	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).
		Return(nil, domain.NewFetchError(domain.ErrorKindTransient, errors.New("timeout")))

	f.store.EXPECT().SetFetchLogOutcome(ctx, int64(99), "2026-08-27",
		domain.FetchStatusFailed, 0, string(domain.ErrorKindTransient), gomock.Any()).Return(nil)
	f.publisher.EXPECT().PublishDeadLetter(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, letter *domain.DeadLetter) error {
			assert.Equal(t, item.ID, letter.WorkItem.ID)
			assert.Equal(t, 5, letter.RetryCount)
			assert.Equal(t, string(domain.ErrorKindTransient), letter.ErrorKind)
			assert.Equal(t, f.now, letter.DeadAt)
			return nil
		})

	delivery := newMockDelivery(f.ctrl, item, 6)
	delivery.EXPECT().Bury().Return(nil)

	f.consumer.handle(ctx, delivery)
}

func TestHandleDeadLettersAuthImmediately(t *testing.T) {
	f := setupTestConsumer(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).
		Return(nil, domain.NewFetchError(domain.ErrorKindAuth, errors.New("token expired")))

	f.store.EXPECT().SetFetchLogOutcome(ctx, int64(99), "2026-08-27",
		domain.FetchStatusFailed, 0, string(domain.ErrorKindAuth), gomock.Any()).Return(nil)
	f.publisher.EXPECT().PublishDeadLetter(ctx, gomock.Any()).Return(nil)

	delivery := newMockDelivery(f.ctrl, item, 1)
	delivery.EXPECT().Bury().Return(nil)

	f.consumer.handle(ctx, delivery)
}

func TestHandleKeepsDeliveryWhenDeadLetterPublishFails(t *testing.T) {
	f := setupTestConsumer(t)
	defer f.ctrl.Finish()
	ctx := context.Background()
	item := testWorkItem()

	f.store.EXPECT().GetFetchLog(gomock.Any(), int64(99), "2026-08-27").Return(nil, nil)
	f.store.EXPECT().GetProfileWithSource(gomock.Any(), int64(99)).Return(testProfile(), nil)
	f.client.EXPECT().FetchPosts(gomock.Any(), "cafe.azul", gomock.Nil()).
		Return(nil, domain.NewFetchError(domain.ErrorKindAuth, errors.New("token expired")))

	f.store.EXPECT().SetFetchLogOutcome(gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.publisher.EXPECT().PublishDeadLetter(ctx, gomock.Any()).Return(errors.New("nats down"))

	// No Bury: the delivery stays on the bus and redelivers after the
	// visibility window so the dead letter is not lost
	delivery := newMockDelivery(f.ctrl, item, 1)

	f.consumer.handle(ctx, delivery)
}
