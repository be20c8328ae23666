package schema

import (
	"time"

	"github.com/venuelens/social-indexer/internal/domain"
)

// FetchLog represents the fetch_log table - the per-cycle ledger of what
// happened to each profile. The (profile_id, cycle_date) pair is unique,
// which is how the scheduler stays idempotent across re-runs: inserting the
// pending row is the enqueue gate.
type FetchLog struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ProfileID references the profile this attempt covers
	ProfileID int64 `gorm:"column:profile_id;not null;uniqueIndex:idx_fetch_log_profile_cycle,priority:1"`
	// CycleDate is the yyyy-mm-dd of the scheduling cycle
	CycleDate string `gorm:"column:cycle_date;not null;type:text;uniqueIndex:idx_fetch_log_profile_cycle,priority:2"`
	// WorkItemID is the ULID of the enqueued work item, for tracing
	WorkItemID string `gorm:"column:work_item_id;not null;type:text;index"`
	// Status is the current state of the attempt (pending, success, partial, failed)
	Status domain.FetchStatus `gorm:"column:status;not null;type:text;index"`
	// RetryCount is the number of redeliveries consumed so far
	RetryCount int `gorm:"column:retry_count;not null;default:0"`
	// ItemsWritten is how many content rows the attempt landed
	ItemsWritten int `gorm:"column:items_written;not null;default:0"`
	// ErrorKind classifies the failure for terminal non-success statuses
	ErrorKind string `gorm:"column:error_kind;type:text"`
	// Message holds the last error text, truncated for storage
	Message string `gorm:"column:message;type:text"`
	// StartedAt is when the pending row was created
	StartedAt time.Time `gorm:"column:started_at;not null;default:now()"`
	// CompletedAt is when the attempt reached a terminal status
	CompletedAt *time.Time `gorm:"column:completed_at"`

	// Associations
	Profile *Profile `gorm:"foreignKey:ProfileID"`
}

// TableName specifies the table name for the FetchLog model
func (FetchLog) TableName() string {
	return "fetch_log"
}
