package ingest

import (
	"time"

	"github.com/venuelens/social-indexer/internal/domain"
)

// Action is what the consumer does with a delivery after processing
type Action string

const (
	// ActionAck removes the work item from the bus
	ActionAck Action = "ack"
	// ActionRetry schedules a redelivery after Disposition.Delay
	ActionRetry Action = "retry"
	// ActionDead dead-letters the work item and removes it from the bus
	ActionDead Action = "dead"
)

// Disposition is the retry manager's decision for one delivery
type Disposition struct {
	Action Action
	// Delay applies to ActionRetry only
	Delay time.Duration
}

// RetryPolicy decides what happens to a work item after each attempt.
// MaxRetries counts redeliveries, so an item gets MaxRetries+1 attempts
// in total before it is dead-lettered.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Decide maps a processing outcome and the 1-based attempt number to a
// disposition. Success and partial both ack: partial keeps what landed and
// the profile is picked up again next cycle rather than retried now.
func (p RetryPolicy) Decide(outcome domain.Outcome, attempt int) Disposition {
	switch outcome.Kind {
	case domain.OutcomeSuccess, domain.OutcomePartial:
		return Disposition{Action: ActionAck}
	case domain.OutcomeDead:
		return Disposition{Action: ActionDead}
	}

	// OutcomeRetry: dead-letter once the retry budget is spent
	if attempt > p.MaxRetries {
		return Disposition{Action: ActionDead}
	}

	return Disposition{Action: ActionRetry, Delay: p.delay(outcome, attempt)}
}

// delay computes the redelivery delay: exponential backoff on the attempt
// number, overridden upward by the source's retry-after hint when present
func (p RetryPolicy) delay(outcome domain.Outcome, attempt int) time.Duration {
	backoff := p.BackoffBase
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= p.BackoffMax {
			backoff = p.BackoffMax
			break
		}
	}
	if backoff > p.BackoffMax {
		backoff = p.BackoffMax
	}

	if outcome.RetryAfter > backoff {
		if outcome.RetryAfter > p.BackoffMax {
			return p.BackoffMax
		}
		return outcome.RetryAfter
	}
	return backoff
}
