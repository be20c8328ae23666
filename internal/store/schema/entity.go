package schema

import (
	"time"
)

// Entity represents the entities table - a tracked venue (restaurant, bar, etc.)
type Entity struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Name is the human-readable venue name
	Name string `gorm:"column:name;not null;type:text"`
	// ExternalRef is the identifier of this venue in the upstream catalog
	ExternalRef string `gorm:"column:external_ref;not null;uniqueIndex;type:text"`
	// Active controls whether the scheduler considers this entity's profiles
	Active bool `gorm:"column:active;not null;default:true"`
	// CreatedAt is the timestamp when this venue was first registered
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp of the last change to this row
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`

	// Associations
	Profiles []Profile `gorm:"foreignKey:EntityID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Entity model
func (Entity) TableName() string {
	return "entities"
}
