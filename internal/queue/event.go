// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// ItemMovedEvent is published after an item relocation commits. It
// carries enough context for downstream consumers to log or notify
// without querying the primary database.
type ItemMovedEvent struct {
	ItemID         uint64    `json:"item_id"`
	ItemName       string    `json:"item_name"`
	SpaceID        uint64    `json:"space_id"`
	FromLocationID uint64    `json:"from_location_id"`
	ToLocationID   uint64    `json:"to_location_id"`
	MovedByID      uint64    `json:"moved_by_id"`
	Notes          *string   `json:"notes,omitempty"`
	MovedAt        time.Time `json:"moved_at"`
}
