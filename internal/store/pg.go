package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/store/schema"
)

// maxMessageLen bounds the error text persisted to fetch_log
const maxMessageLen = 2048

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// Migrate creates or updates the database schema
func (s *pgStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&schema.Entity{},
		&schema.Source{},
		&schema.Profile{},
		&schema.MetadataRecord{},
		&schema.FetchLog{},
	)
}

// SeedSources inserts the supported source rows if they do not exist
func (s *pgStore) SeedSources(ctx context.Context) error {
	authTypes := map[domain.SourceName]domain.AuthType{
		domain.SourceInstagram: domain.AuthTypeBearer,
		domain.SourceFacebook:  domain.AuthTypeBearer,
		domain.SourceTikTok:    domain.AuthTypeBearer,
	}

	for _, name := range domain.AllSources {
		source := schema.Source{
			Name:     name,
			AuthType: authTypes[name],
			Enabled:  true,
		}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&source).Error; err != nil {
			return fmt.Errorf("failed to seed source %s: %w", name, err)
		}
	}

	return nil
}

// GetSourceByName retrieves a source by its platform name
func (s *pgStore) GetSourceByName(ctx context.Context, name domain.SourceName) (*schema.Source, error) {
	var source schema.Source
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&source).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &source, nil
}

// CreateEntity registers a new venue
func (s *pgStore) CreateEntity(ctx context.Context, entity *schema.Entity) error {
	if err := s.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// GetEntityByID retrieves a venue by its internal ID
func (s *pgStore) GetEntityByID(ctx context.Context, id int64) (*schema.Entity, error) {
	var entity schema.Entity
	err := s.db.WithContext(ctx).Preload("Profiles").Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return &entity, nil
}

// ListEntities retrieves venues with their profiles, paginated
func (s *pgStore) ListEntities(ctx context.Context, limit, offset int) ([]*schema.Entity, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&schema.Entity{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count entities: %w", err)
	}

	var entities []*schema.Entity
	err := s.db.WithContext(ctx).
		Preload("Profiles").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&entities).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list entities: %w", err)
	}

	return entities, total, nil
}

// CreateProfile registers a social account for a venue
func (s *pgStore) CreateProfile(ctx context.Context, profile *schema.Profile) error {
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetProfileByID retrieves a profile by its internal ID
func (s *pgStore) GetProfileByID(ctx context.Context, id int64) (*schema.Profile, error) {
	var profile schema.Profile
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// GetProfileWithSource retrieves a profile with its source and entity preloaded
func (s *pgStore) GetProfileWithSource(ctx context.Context, id int64) (*schema.Profile, error) {
	var profile schema.Profile
	err := s.db.WithContext(ctx).
		Preload("Source").
		Preload("Entity").
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile with source: %w", err)
	}
	return &profile, nil
}

// SetProfileActive pauses or resumes scheduling for a profile
func (s *pgStore) SetProfileActive(ctx context.Context, id int64, active bool) error {
	result := s.db.WithContext(ctx).
		Model(&schema.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":     active,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// GetProfilesDueForRefresh returns the next keyset page of active profiles
// whose watermark is older than cutoff (or never set), ordered by ID.
// Keyset pagination keeps the scan stable while the consumer advances
// watermarks concurrently.
func (s *pgStore) GetProfilesDueForRefresh(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]*schema.Profile, error) {
	var profiles []*schema.Profile
	err := s.db.WithContext(ctx).
		Joins("JOIN entities ON entities.id = profiles.entity_id").
		Joins("JOIN sources ON sources.id = profiles.source_id").
		Where("profiles.active = ?", true).
		Where("entities.active = ?", true).
		Where("sources.enabled = ?", true).
		Where("profiles.last_checked IS NULL OR profiles.last_checked < ?", cutoff).
		Where("profiles.id > ?", afterID).
		Order("profiles.id ASC").
		Limit(limit).
		Preload("Source").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles due for refresh: %w", err)
	}
	return profiles, nil
}

// AdvanceProfileLastChecked moves the profile watermark forward, never
// backward. Redelivered or reordered completions carry older timestamps;
// the guard makes them no-ops.
func (s *pgStore) AdvanceProfileLastChecked(ctx context.Context, profileID int64, checkedAt time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&schema.Profile{}).
		Where("id = ?", profileID).
		Where("last_checked IS NULL OR last_checked < ?", checkedAt).
		Updates(map[string]interface{}{
			"last_checked": checkedAt,
			"updated_at":   time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to advance last_checked: %w", err)
	}
	return nil
}

// CreatePendingFetchLog inserts the pending ledger row for a cycle.
// ON CONFLICT DO NOTHING on (profile_id, cycle_date) makes the scheduler's
// enqueue decision idempotent: only the insert that created the row wins.
func (s *pgStore) CreatePendingFetchLog(ctx context.Context, log *schema.FetchLog) (bool, error) {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "cycle_date"}},
		DoNothing: true,
	}).Create(log)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create pending fetch log: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetFetchLog retrieves the ledger row for one profile and cycle
func (s *pgStore) GetFetchLog(ctx context.Context, profileID int64, cycleDate string) (*schema.FetchLog, error) {
	var log schema.FetchLog
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND cycle_date = ?", profileID, cycleDate).
		First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fetch log: %w", err)
	}
	return &log, nil
}

// SetFetchLogOutcome records a terminal status with its context. Terminal
// statuses are never overwritten; a redelivered message that races a
// completed attempt leaves the ledger untouched.
func (s *pgStore) SetFetchLogOutcome(ctx context.Context, profileID int64, cycleDate string, status domain.FetchStatus, itemsWritten int, errorKind, message string) error {
	if len(message) > maxMessageLen {
		message = message[:maxMessageLen]
	}

	updates := map[string]interface{}{
		"status":        status,
		"items_written": itemsWritten,
		"error_kind":    errorKind,
		"message":       message,
	}
	if status.Terminal() {
		now := time.Now()
		updates["completed_at"] = &now
	}

	err := s.db.WithContext(ctx).
		Model(&schema.FetchLog{}).
		Where("profile_id = ? AND cycle_date = ?", profileID, cycleDate).
		Where("status = ?", domain.FetchStatusPending).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to set fetch log outcome: %w", err)
	}
	return nil
}

// SetFetchLogRetryCount persists the redelivery count observed by the consumer.
// Counts only move up; a reordered redelivery cannot lower them.
func (s *pgStore) SetFetchLogRetryCount(ctx context.Context, profileID int64, cycleDate string, count int) error {
	err := s.db.WithContext(ctx).
		Model(&schema.FetchLog{}).
		Where("profile_id = ? AND cycle_date = ?", profileID, cycleDate).
		Where("retry_count < ?", count).
		Update("retry_count", count).Error
	if err != nil {
		return fmt.Errorf("failed to set fetch log retry count: %w", err)
	}
	return nil
}

// ReopenFetchLog resets a terminal ledger row to pending. This is the one
// sanctioned way backward through the status machine: operator-forced reruns
// (ad-hoc refresh, dead-letter replay) need the row writable again so the new
// attempt can record its outcome. The work item ID is replaced so tracing
// follows the forced attempt.
func (s *pgStore) ReopenFetchLog(ctx context.Context, profileID int64, cycleDate string, workItemID string) error {
	err := s.db.WithContext(ctx).
		Model(&schema.FetchLog{}).
		Where("profile_id = ? AND cycle_date = ?", profileID, cycleDate).
		Updates(map[string]interface{}{
			"status":       domain.FetchStatusPending,
			"work_item_id": workItemID,
			"error_kind":   "",
			"message":      "",
			"completed_at": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to reopen fetch log: %w", err)
	}
	return nil
}

// DeletePendingFetchLog removes a pending ledger row. Only rows still pending
// are deleted; once the consumer records an outcome the row stays.
func (s *pgStore) DeletePendingFetchLog(ctx context.Context, profileID int64, cycleDate string) error {
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND cycle_date = ?", profileID, cycleDate).
		Where("status = ?", domain.FetchStatusPending).
		Delete(&schema.FetchLog{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete pending fetch log: %w", err)
	}
	return nil
}

// ListFetchLogs retrieves ledger rows matching the filter, newest first
func (s *pgStore) ListFetchLogs(ctx context.Context, filter FetchLogFilter) ([]*schema.FetchLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.FetchLog{})
	if filter.CycleDate != "" {
		query = query.Where("cycle_date = ?", filter.CycleDate)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProfileID > 0 {
		query = query.Where("profile_id = ?", filter.ProfileID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count fetch logs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var logs []*schema.FetchLog
	err := query.
		Order("started_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list fetch logs: %w", err)
	}

	return logs, total, nil
}

// GetCycleStats aggregates ledger statuses for one cycle date
func (s *pgStore) GetCycleStats(ctx context.Context, cycleDate string) (*CycleStats, error) {
	type row struct {
		Status domain.FetchStatus
		Count  int64
	}

	var rows []row
	err := s.db.WithContext(ctx).
		Model(&schema.FetchLog{}).
		Select("status, count(*) as count").
		Where("cycle_date = ?", cycleDate).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle stats: %w", err)
	}

	stats := &CycleStats{CycleDate: cycleDate}
	for _, r := range rows {
		switch r.Status {
		case domain.FetchStatusPending:
			stats.Pending = r.Count
		case domain.FetchStatusSuccess:
			stats.Success = r.Count
		case domain.FetchStatusPartial:
			stats.Partial = r.Count
		case domain.FetchStatusFailed:
			stats.Failed = r.Count
		}
	}

	return stats, nil
}

// UpsertMetadataRecord inserts or updates one piece of content keyed on
// (profile_id, post_id). A redelivered work item writing the same post is a
// row-level overwrite, not a duplicate.
func (s *pgStore) UpsertMetadataRecord(ctx context.Context, record *schema.MetadataRecord) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "profile_id"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"url", "caption", "like_count", "comment_count",
			"posted_at", "normalized", "raw_ref", "raw_hash", "fetched_at",
		}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert metadata record: %w", err)
	}
	return nil
}

// GetMetadataRecord retrieves one piece of content by its natural key
func (s *pgStore) GetMetadataRecord(ctx context.Context, profileID int64, postID string) (*schema.MetadataRecord, error) {
	var record schema.MetadataRecord
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND post_id = ?", profileID, postID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get metadata record: %w", err)
	}
	return &record, nil
}

// ListMetadataRecords retrieves a profile's content, newest first
func (s *pgStore) ListMetadataRecords(ctx context.Context, profileID int64, limit, offset int) ([]*schema.MetadataRecord, int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&schema.MetadataRecord{}).
		Where("profile_id = ?", profileID).
		Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count metadata records: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}

	var records []*schema.MetadataRecord
	err = s.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("posted_at DESC NULLS LAST, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list metadata records: %w", err)
	}

	return records, total, nil
}
