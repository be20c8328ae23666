package messaging

import (
	"context"
	"time"

	"github.com/venuelens/social-indexer/internal/domain"
)

// Delivery is one in-flight work item with its bus acknowledgement controls.
// Exactly one of Ack, Retry, or Bury must be called per delivery; doing
// nothing lets the visibility window expire and the bus redeliver.
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Delivery=MockDelivery
type Delivery interface {
	// Item returns the decoded work item
	Item() *domain.WorkItem
	// Attempt returns the 1-based delivery attempt number
	Attempt() int
	// Ack marks the work item done; it will not be redelivered
	Ack() error
	// Retry schedules a redelivery after the given delay
	Retry(delay time.Duration) error
	// Bury terminates delivery without success; the caller is responsible
	// for dead-lettering first
	Bury() error
}

// DeliveryHandler is called once per delivered work item
type DeliveryHandler func(ctx context.Context, delivery Delivery)

// Subscriber defines the interface for consuming work items from the bus
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Subscriber=MockSubscriber
type Subscriber interface {
	// Subscribe starts delivering work items for one source to the handler.
	// Deliveries arrive concurrently; the handler must be safe for
	// concurrent use. Blocks until ctx is canceled.
	Subscribe(ctx context.Context, source domain.SourceName, handler DeliveryHandler) error

	// Close drains in-flight deliveries and closes the connection
	Close()
}
