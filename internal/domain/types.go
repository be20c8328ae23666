package domain

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SourceName identifies an external social platform
type SourceName string

const (
	SourceInstagram SourceName = "instagram"
	SourceFacebook  SourceName = "facebook"
	SourceTikTok    SourceName = "tiktok"
)

// AllSources lists every supported source. Sources are static reference data;
// adding one requires a client implementation and a config entry.
var AllSources = []SourceName{SourceInstagram, SourceFacebook, SourceTikTok}

// IsValidSource checks if a source name is one of the supported platforms
func IsValidSource(name SourceName) bool {
	for _, s := range AllSources {
		if s == name {
			return true
		}
	}
	return false
}

// AuthType describes how a source API authenticates requests
type AuthType string

const (
	AuthTypeBearer AuthType = "bearer"
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeNone   AuthType = "none"
)

// FetchStatus is the per-cycle state of a profile fetch attempt.
// It only moves toward a terminal state within one cycle; the next cycle
// starts a new fetch_log row.
type FetchStatus string

const (
	FetchStatusPending FetchStatus = "pending"
	FetchStatusSuccess FetchStatus = "success"
	FetchStatusPartial FetchStatus = "partial"
	FetchStatusFailed  FetchStatus = "failed"
)

// Terminal reports whether the status is a final disposition for the cycle
func (s FetchStatus) Terminal() bool {
	return s == FetchStatusSuccess || s == FetchStatusPartial || s == FetchStatusFailed
}

// CycleDateLayout is the wire format for WorkItem.CycleDate
const CycleDateLayout = "2006-01-02"

// WorkItem is one unit of scheduled work: "fetch this profile now".
// This is the standard format published to the bus.
type WorkItem struct {
	ID         string     `json:"id"`          // ULID, unique per scheduled item
	EntityID   int64      `json:"entity_id"`   // venue being tracked
	SourceID   int64      `json:"source_id"`   // source reference row
	SourceName SourceName `json:"source_name"` // routing key for the per-source subject
	ProfileID  int64      `json:"profile_id"`  // (entity, source) binding
	Handle     string     `json:"handle"`      // source-native account identifier
	CycleDate  string     `json:"cycle_date"`  // yyyy-mm-dd of the scheduling cycle
	Since      *time.Time `json:"since,omitempty"`
	// Forced marks an operator-initiated item (ad-hoc refresh, dead-letter
	// replay) that must run even when the cycle's ledger row is terminal
	Forced bool `json:"forced,omitempty"`
}

// Valid checks that a work item carries everything a consumer needs
func (w *WorkItem) Valid() bool {
	if w.ID == "" || w.Handle == "" || w.CycleDate == "" {
		return false
	}
	if w.EntityID <= 0 || w.SourceID <= 0 || w.ProfileID <= 0 {
		return false
	}
	if !IsValidSource(w.SourceName) {
		return false
	}
	if _, err := time.Parse(CycleDateLayout, w.CycleDate); err != nil {
		return false
	}
	return true
}

// RawItem is one unit of content as returned by a source adapter,
// before normalization
type RawItem struct {
	PostID       string         `json:"post_id"`
	URL          string         `json:"url"`
	Caption      string         `json:"caption"`
	LikeCount    int64          `json:"like_count"`
	CommentCount int64          `json:"comment_count"`
	CreatedTime  time.Time      `json:"created_time"`
	RawJSON      datatypes.JSON `json:"raw_json"`
}

// OutcomeKind is the terminal disposition of one processing attempt
type OutcomeKind string

const (
	// OutcomeSuccess means every raw item landed in both sinks
	OutcomeSuccess OutcomeKind = "success"
	// OutcomePartial means at least one raw item landed before a failure;
	// captured data is kept and the cycle is not retried
	OutcomePartial OutcomeKind = "partial"
	// OutcomeRetry means nothing was written and the error is retryable
	OutcomeRetry OutcomeKind = "retry"
	// OutcomeDead means the item is terminally failed and dead-lettered
	OutcomeDead OutcomeKind = "dead"
)

// Outcome reports what a single Process attempt did with a work item
type Outcome struct {
	Kind       OutcomeKind
	Written    int           // raw items landed in both sinks
	Err        error         // nil for OutcomeSuccess
	RetryAfter time.Duration // only meaningful for OutcomeRetry
}

// DeadLetter wraps a work item that exhausted its retries or hit a
// non-retryable error, with full context for operator triage
type DeadLetter struct {
	WorkItem   WorkItem  `json:"work_item"`
	Reason     string    `json:"reason"`
	ErrorKind  string    `json:"error_kind"`
	RetryCount int       `json:"retry_count"`
	DeadAt     time.Time `json:"dead_at"`
}

// String returns a short description for logging
func (d *DeadLetter) String() string {
	return fmt.Sprintf("%s/%s profile=%d retries=%d: %s",
		d.WorkItem.SourceName, d.WorkItem.Handle, d.WorkItem.ProfileID, d.RetryCount, d.Reason)
}
