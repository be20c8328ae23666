package jetstream

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/mocks"
)

func testWorkItem() *domain.WorkItem {
	since := time.Date(2026, 8, 26, 2, 0, 0, 0, time.UTC)
	return &domain.WorkItem{
		ID:         "01J5XVGB4SRE1Q2W3E4R5T6Y7U",
		EntityID:   7,
		SourceID:   1,
		SourceName: domain.SourceInstagram,
		ProfileID:  99,
		Handle:     "cafe.azul",
		CycleDate:  "2026-08-27",
		Since:      &since,
	}
}

func TestRequestSubject(t *testing.T) {
	assert.Equal(t, "ingest.requests.instagram", RequestSubject(domain.SourceInstagram))
	assert.Equal(t, "ingest.requests.tiktok", RequestSubject(domain.SourceTikTok))
}

func TestDurableName(t *testing.T) {
	assert.Equal(t, "ingest-facebook", DurableName(domain.SourceFacebook))
}

func TestPublishWorkItem(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	js := mocks.NewMockJetStream(ctrl)
	p := &publisher{js: js, streamName: "INGEST", json: adapter.NewJSON()}

	item := testWorkItem()
	js.EXPECT().
		Publish(gomock.Any(), "ingest.requests.instagram", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, data []byte, _ ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
			var decoded domain.WorkItem
			require.NoError(t, adapter.NewJSON().Unmarshal(data, &decoded))
			assert.Equal(t, item.ID, decoded.ID)
			assert.Equal(t, item.Handle, decoded.Handle)
			return &natsjs.PubAck{Stream: "INGEST", Sequence: 1}, nil
		})

	require.NoError(t, p.PublishWorkItem(context.Background(), item))
}

func TestPublishWorkItemRejectsInvalid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	js := mocks.NewMockJetStream(ctrl)
	p := &publisher{js: js, streamName: "INGEST", json: adapter.NewJSON()}

	item := testWorkItem()
	item.Handle = ""

	err := p.PublishWorkItem(context.Background(), item)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid work item")
}

func TestPublishDeadLetter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	js := mocks.NewMockJetStream(ctrl)
	p := &publisher{js: js, streamName: "INGEST", json: adapter.NewJSON()}

	letter := &domain.DeadLetter{
		WorkItem:   *testWorkItem(),
		Reason:     "token expired",
		ErrorKind:  "auth",
		RetryCount: 0,
		DeadAt:     time.Date(2026, 8, 27, 4, 0, 0, 0, time.UTC),
	}

	js.EXPECT().
		Publish(gomock.Any(), DeadLetterSubject, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, data []byte, _ ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
			var decoded domain.DeadLetter
			require.NoError(t, adapter.NewJSON().Unmarshal(data, &decoded))
			assert.Equal(t, "token expired", decoded.Reason)
			assert.Equal(t, letter.WorkItem.ID, decoded.WorkItem.ID)
			return &natsjs.PubAck{Stream: "INGEST", Sequence: 2}, nil
		})

	require.NoError(t, p.PublishDeadLetter(context.Background(), letter))
}
