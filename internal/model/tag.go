package model

import (
	"database/sql"
	"time"
)

// Tag is a space-scoped label as stored in the `tags` table.
//
// Fields:
//  ID          – primary key identifier.
//  SpaceID     – owning space.
//  Name        – label text.
//  Color       – optional display color as "#RRGGBB" (nullable).
//  CreatedByID – member who created the tag.
//  CreatedAt   – timestamp of creation.
type Tag struct {
	ID          uint64         // tags.id
	SpaceID     uint64         // tags.space_id
	Name        string         // tags.name
	Color       sql.NullString // tags.color
	CreatedByID uint64         // tags.created_by_id
	CreatedAt   time.Time      // tags.created_at
}

// ItemTag joins items to tags. The (item_id, tag_id) pair is unique.
type ItemTag struct {
	ItemID    uint64    // item_tags.item_id
	TagID     uint64    // item_tags.tag_id
	CreatedAt time.Time // item_tags.created_at
}
