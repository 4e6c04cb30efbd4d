package model

import (
	"database/sql"
	"time"
)

// Item represents a physical thing stored at exactly one location,
// as persisted in the `items` table. Tags attach through the
// `item_tags` join table.
//
// Fields:
//  ID            – primary key identifier.
//  SpaceID       – owning space.
//  Name          – human readable name.
//  Description   – optional free text.
//  Quantity      – non-negative count of the item.
//  ImageURL      – optional image URL.
//  LocationID    – the location the item currently sits at.
//  ReferenceID   – optional scannable identifier (nullable).
//  ReferenceType – kind of the identifier (nullable).
//  CreatedByID   – member who created the item.
//  LastMovedByID – member who last moved the item (nullable).
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type Item struct {
	ID            uint64         // items.id
	SpaceID       uint64         // items.space_id
	Name          string         // items.name
	Description   sql.NullString // items.description
	Quantity      uint32         // items.quantity
	ImageURL      sql.NullString // items.image_url
	LocationID    uint64         // items.location_id
	ReferenceID   sql.NullString // items.reference_id
	ReferenceType sql.NullString // items.reference_type
	CreatedByID   uint64         // items.created_by_id
	LastMovedByID *uint64        // items.last_moved_by_id (nullable)
	CreatedAt     time.Time      // items.created_at
	UpdatedAt     time.Time      // items.updated_at
}
