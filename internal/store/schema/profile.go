package schema

import (
	"time"
)

// Profile represents the profiles table - one social account of one entity
// on one source. The (entity_id, source_id) pair is unique: an entity has at
// most one tracked account per platform.
type Profile struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EntityID references the venue this profile belongs to
	EntityID int64 `gorm:"column:entity_id;not null;uniqueIndex:idx_profiles_entity_source,priority:1"`
	// SourceID references the platform this profile lives on
	SourceID int64 `gorm:"column:source_id;not null;uniqueIndex:idx_profiles_entity_source,priority:2"`
	// Handle is the source-native account identifier (username, page id)
	Handle string `gorm:"column:handle;not null;type:text"`
	// Active controls whether the scheduler enqueues this profile
	Active bool `gorm:"column:active;not null;default:true"`
	// LastChecked is the watermark of the most recent successful or partial
	// ingestion. Nil means the profile has never been fetched. Advanced
	// monotonically; a late-arriving older completion never moves it back.
	LastChecked *time.Time `gorm:"column:last_checked;index"`
	// CreatedAt is the timestamp when this profile was registered
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp of the last change to this row
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`

	// Associations
	Entity          *Entity          `gorm:"foreignKey:EntityID"`
	Source          *Source          `gorm:"foreignKey:SourceID"`
	MetadataRecords []MetadataRecord `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	FetchLogs       []FetchLog       `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}
