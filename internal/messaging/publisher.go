package messaging

import (
	"context"

	"github.com/venuelens/social-indexer/internal/domain"
)

// Publisher defines the interface for publishing work to the message bus
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishWorkItem enqueues one scheduled fetch onto the per-source subject
	PublishWorkItem(ctx context.Context, item *domain.WorkItem) error
	// PublishDeadLetter parks a terminally failed work item for operator triage
	PublishDeadLetter(ctx context.Context, letter *domain.DeadLetter) error
	// Close closes the connection
	Close()
}
