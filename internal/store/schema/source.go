package schema

import (
	"time"

	"github.com/venuelens/social-indexer/internal/domain"
)

// Source represents the sources table - static reference data for the
// supported social platforms. Rows are seeded at startup, never deleted.
type Source struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Name is the platform identifier (instagram, facebook, tiktok)
	Name domain.SourceName `gorm:"column:name;not null;uniqueIndex;type:text"`
	// AuthType describes how the platform API authenticates requests
	AuthType domain.AuthType `gorm:"column:auth_type;not null;type:text"`
	// Enabled allows a platform to be paused without deleting its rows
	Enabled bool `gorm:"column:enabled;not null;default:true"`
	// CreatedAt is the timestamp when this source was seeded
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the Source model
func (Source) TableName() string {
	return "sources"
}
