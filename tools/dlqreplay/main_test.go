package main

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

func testDeadLetter(t *testing.T) (*domain.DeadLetter, []byte) {
	t.Helper()
	letter := &domain.DeadLetter{
		WorkItem: domain.WorkItem{
			ID:         "01J5DEADLETTER000000000000",
			EntityID:   7,
			SourceID:   1,
			SourceName: domain.SourceInstagram,
			ProfileID:  99,
			Handle:     "cafe.azul",
			CycleDate:  "2026-08-26",
		},
		Reason:     "token expired",
		ErrorKind:  "auth",
		RetryCount: 5,
		DeadAt:     time.Date(2026, 8, 26, 4, 0, 0, 0, time.UTC),
	}
	data, err := adapter.NewJSON().Marshal(letter)
	require.NoError(t, err)
	return letter, data
}

func setupInspection(t *testing.T, ctrl *gomock.Controller, jsc *mocks.MockJetStream, payloads ...[]byte) []*mocks.MockJetStreamMessage {
	t.Helper()

	msgs := make([]*mocks.MockJetStreamMessage, 0, len(payloads))
	ch := make(chan adapter.Message, len(payloads))
	for _, payload := range payloads {
		msg := mocks.NewMockJetStreamMessage(ctrl)
		msg.EXPECT().Data().Return(payload).AnyTimes()
		msgs = append(msgs, msg)
		ch <- msg
	}
	close(ch)

	batch := mocks.NewMockMessageBatch(ctrl)
	batch.EXPECT().Messages().Return(ch).AnyTimes()
	batch.EXPECT().Error().Return(nil)

	consumer := mocks.NewMockNatsConsumer(ctrl)
	consumer.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(batch, nil)

	jsc.EXPECT().CreateOrUpdateConsumer(gomock.Any(), "INGEST", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, cfg natsjs.ConsumerConfig) (adapter.Consumer, error) {
			assert.Equal(t, inspectDurable, cfg.Durable)
			return consumer, nil
		})

	return msgs
}

func TestRunReplayMarksItemForced(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	letter, data := testDeadLetter(t)
	jsc := mocks.NewMockJetStream(ctrl)
	msgs := setupInspection(t, ctrl, jsc, data)

	jsc.EXPECT().Publish(gomock.Any(), "ingest.requests.instagram", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, payload []byte, _ ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
			var item domain.WorkItem
			require.NoError(t, adapter.NewJSON().Unmarshal(payload, &item))
			assert.Equal(t, letter.WorkItem.ID, item.ID)
			assert.Equal(t, letter.WorkItem.CycleDate, item.CycleDate)
			// The original cycle's ledger row is terminal; the consumer
			// only reruns it when the item is forced
			assert.True(t, item.Forced)
			return &natsjs.PubAck{}, nil
		})
	msgs[0].EXPECT().Ack().Return(nil)

	err := run(context.Background(), jsc, "INGEST", true, false, 50)
	require.NoError(t, err)
}

func TestRunListLeavesLettersOnStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, data := testDeadLetter(t)
	jsc := mocks.NewMockJetStream(ctrl)
	msgs := setupInspection(t, ctrl, jsc, data)

	// No Publish, no Ack: listing only naks so the letter stays
	msgs[0].EXPECT().Nak().Return(nil)

	err := run(context.Background(), jsc, "INGEST", false, false, 50)
	require.NoError(t, err)
}

func TestRunTermsUndecodableLetter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jsc := mocks.NewMockJetStream(ctrl)
	msgs := setupInspection(t, ctrl, jsc, []byte("not json"))

	msgs[0].EXPECT().Term().Return(nil)

	err := run(context.Background(), jsc, "INGEST", true, false, 50)
	require.NoError(t, err)
}
