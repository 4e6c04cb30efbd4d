package model

import (
	"database/sql"
	"time"
)

// Movement models a row in the append-only `movement_history` table.
// Rows are written in the same transaction that relocates an item and
// are never updated or deleted afterwards. Deleting an item or a
// location nullifies the corresponding references here instead of
// removing rows, so the audit trail survives its subjects.
//
// Fields:
//  ID             – primary key identifier.
//  ItemID         – the moved item (nullable once the item is deleted).
//  FromLocationID – where the item came from (nullable).
//  ToLocationID   – where the item went (nullable once the location is deleted).
//  MovedByID      – member who performed the move (nullable once deleted).
//  Notes          – optional free text supplied with the move.
//  MovedAt        – when the move happened.
type Movement struct {
	ID             uint64         // movement_history.id
	ItemID         *uint64        // movement_history.item_id (nullable)
	FromLocationID *uint64        // movement_history.from_location_id (nullable)
	ToLocationID   *uint64        // movement_history.to_location_id (nullable)
	MovedByID      *uint64        // movement_history.moved_by_id (nullable)
	Notes          sql.NullString // movement_history.notes
	MovedAt        time.Time      // movement_history.moved_at
}
