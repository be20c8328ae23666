package store

import (
	"context"
	"time"

	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/store/schema"
)

// FetchLogFilter narrows ListFetchLogs results. Zero values mean "any".
type FetchLogFilter struct {
	CycleDate string
	Status    domain.FetchStatus
	ProfileID int64
	Limit     int
	Offset    int
}

// CycleStats summarizes one scheduling cycle for operators
type CycleStats struct {
	CycleDate string `json:"cycle_date"`
	Pending   int64  `json:"pending"`
	Success   int64  `json:"success"`
	Partial   int64  `json:"partial"`
	Failed    int64  `json:"failed"`
}

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Migrate creates or updates the database schema
	Migrate(ctx context.Context) error
	// SeedSources inserts the supported source rows if they do not exist
	SeedSources(ctx context.Context) error
	// GetSourceByName retrieves a source by its platform name
	GetSourceByName(ctx context.Context, name domain.SourceName) (*schema.Source, error)

	// CreateEntity registers a new venue
	CreateEntity(ctx context.Context, entity *schema.Entity) error
	// GetEntityByID retrieves a venue by its internal ID
	GetEntityByID(ctx context.Context, id int64) (*schema.Entity, error)
	// ListEntities retrieves venues with their profiles, paginated
	ListEntities(ctx context.Context, limit, offset int) ([]*schema.Entity, int64, error)

	// CreateProfile registers a social account for a venue
	CreateProfile(ctx context.Context, profile *schema.Profile) error
	// GetProfileByID retrieves a profile by its internal ID
	GetProfileByID(ctx context.Context, id int64) (*schema.Profile, error)
	// GetProfileWithSource retrieves a profile with its source and entity preloaded
	GetProfileWithSource(ctx context.Context, id int64) (*schema.Profile, error)
	// SetProfileActive pauses or resumes scheduling for a profile
	SetProfileActive(ctx context.Context, id int64, active bool) error
	// GetProfilesDueForRefresh returns the next keyset page of active profiles
	// whose watermark is older than cutoff (or never set), ordered by ID
	GetProfilesDueForRefresh(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]*schema.Profile, error)
	// AdvanceProfileLastChecked moves the profile watermark forward, never backward
	AdvanceProfileLastChecked(ctx context.Context, profileID int64, checkedAt time.Time) error

	// CreatePendingFetchLog inserts the pending ledger row for a cycle.
	// Returns false when the (profile, cycle) row already exists, which is
	// the signal not to enqueue the work item again.
	CreatePendingFetchLog(ctx context.Context, log *schema.FetchLog) (bool, error)
	// GetFetchLog retrieves the ledger row for one profile and cycle
	GetFetchLog(ctx context.Context, profileID int64, cycleDate string) (*schema.FetchLog, error)
	// SetFetchLogOutcome records a terminal status with its context
	SetFetchLogOutcome(ctx context.Context, profileID int64, cycleDate string, status domain.FetchStatus, itemsWritten int, errorKind, message string) error
	// SetFetchLogRetryCount persists the redelivery count observed by the consumer
	SetFetchLogRetryCount(ctx context.Context, profileID int64, cycleDate string, count int) error
	// ReopenFetchLog resets a terminal ledger row to pending so an
	// operator-forced rerun can record a fresh outcome
	ReopenFetchLog(ctx context.Context, profileID int64, cycleDate string, workItemID string) error
	// DeletePendingFetchLog removes a pending ledger row whose work item was
	// never published, releasing the enqueue gate for a cycle re-run
	DeletePendingFetchLog(ctx context.Context, profileID int64, cycleDate string) error
	// ListFetchLogs retrieves ledger rows matching the filter, newest first
	ListFetchLogs(ctx context.Context, filter FetchLogFilter) ([]*schema.FetchLog, int64, error)
	// GetCycleStats aggregates ledger statuses for one cycle date
	GetCycleStats(ctx context.Context, cycleDate string) (*CycleStats, error)

	// UpsertMetadataRecord inserts or updates one piece of content keyed on
	// (profile_id, post_id)
	UpsertMetadataRecord(ctx context.Context, record *schema.MetadataRecord) error
	// GetMetadataRecord retrieves one piece of content by its natural key
	GetMetadataRecord(ctx context.Context, profileID int64, postID string) (*schema.MetadataRecord, error)
	// ListMetadataRecords retrieves a profile's content, newest first
	ListMetadataRecords(ctx context.Context, profileID int64, limit, offset int) ([]*schema.MetadataRecord, int64, error)
}
