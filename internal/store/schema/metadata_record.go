package schema

import (
	"time"

	"gorm.io/datatypes"
)

// MetadataRecord represents the metadata_records table - one piece of content
// (a post, video, or story) harvested from a profile. The (profile_id, post_id)
// pair is unique; redelivered work items upsert into the same row, which is
// what makes at-least-once delivery safe.
type MetadataRecord struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ProfileID references the profile this content belongs to
	ProfileID int64 `gorm:"column:profile_id;not null;uniqueIndex:idx_metadata_profile_post,priority:1"`
	// PostID is the source-native content identifier
	PostID string `gorm:"column:post_id;not null;type:text;uniqueIndex:idx_metadata_profile_post,priority:2"`
	// URL is the public permalink of the content
	URL string `gorm:"column:url;type:text"`
	// Caption is the text body of the post
	Caption string `gorm:"column:caption;type:text"`
	// LikeCount is the engagement counter at fetch time
	LikeCount int64 `gorm:"column:like_count;not null;default:0"`
	// CommentCount is the engagement counter at fetch time
	CommentCount int64 `gorm:"column:comment_count;not null;default:0"`
	// PostedAt is when the content was published on the platform
	PostedAt *time.Time `gorm:"column:posted_at;index"`
	// Normalized is the parsed representation stored for querying
	Normalized datatypes.JSON `gorm:"column:normalized;type:jsonb"`
	// RawRef is the archive object path holding the unmodified API payload
	RawRef string `gorm:"column:raw_ref;type:text"`
	// RawHash is the canonical-JSON hash of the raw payload, used to skip
	// rewriting rows whose content has not changed
	RawHash string `gorm:"column:raw_hash;type:text"`
	// FetchedAt is when this version of the content was ingested
	FetchedAt time.Time `gorm:"column:fetched_at;not null;default:now()"`
	// CreatedAt is the timestamp when this content was first seen
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`

	// Associations
	Profile *Profile `gorm:"foreignKey:ProfileID"`
}

// TableName specifies the table name for the MetadataRecord model
func (MetadataRecord) TableName() string {
	return "metadata_records"
}
