package repository

import (
	"context"
	"database/sql"
	"time"
)

// MovementRepo reads the append-only movement ledger. Writing happens
// exclusively inside ItemRepo.Move, in the same transaction as the
// item's location update; no update or delete operation exists for
// ledger rows.
type MovementRepo struct {
	db *sql.DB
}

// NewMovementRepo constructs a MovementRepo with the given DB handle.
func NewMovementRepo(db *sql.DB) *MovementRepo {
	return &MovementRepo{db: db}
}

// EntityRef is a minimal id+name reference used to annotate ledger
// rows with item, location and member identity. A nil EntityRef means
// the referenced entity has since been deleted (the ledger keeps the
// row either way).
type EntityRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// MovementDetail is a ledger row annotated for display.
type MovementDetail struct {
	ID           uint64     `json:"id"`
	Item         *EntityRef `json:"item"`
	FromLocation *EntityRef `json:"from_location"`
	ToLocation   *EntityRef `json:"to_location"`
	MovedBy      *EntityRef `json:"moved_by"`
	Notes        *string    `json:"notes"`
	MovedAt      time.Time  `json:"moved_at"`
}

// MovementFilter narrows space-wide history listings. The location
// filter matches rows where the location appears as either endpoint.
type MovementFilter struct {
	LocationID *uint64
	MemberID   *uint64
}

const movementSelect = `SELECT mh.id, mh.notes, mh.moved_at,
       i.id, i.name, fl.id, fl.name, tl.id, tl.name, m.id, m.name
FROM movement_history mh
LEFT JOIN items i ON i.id = mh.item_id
LEFT JOIN locations fl ON fl.id = mh.from_location_id
LEFT JOIN locations tl ON tl.id = mh.to_location_id
LEFT JOIN members m ON m.id = mh.moved_by_id`

// ListByItem returns the ledger rows for one item, newest first.
// Callers are expected to have verified that the item belongs to the
// requesting space.
func (r *MovementRepo) ListByItem(ctx context.Context, itemID uint64, limit, offset int) ([]MovementDetail, error) {
	q := movementSelect + `
WHERE mh.item_id = ?
ORDER BY mh.moved_at DESC, mh.id DESC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, itemID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

// CountByItem returns the total ledger rows for one item.
func (r *MovementRepo) CountByItem(ctx context.Context, itemID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM movement_history WHERE item_id = ?", itemID).Scan(&n)
	return n, err
}

// ListBySpace returns ledger rows across all items of a space, newest
// first, optionally filtered by an endpoint location or by the member
// who moved.
func (r *MovementRepo) ListBySpace(ctx context.Context, spaceID uint64, f MovementFilter, limit, offset int) ([]MovementDetail, error) {
	where, args := spaceHistoryWhere(spaceID, f)
	q := movementSelect + "\n" + where + `
ORDER BY mh.moved_at DESC, mh.id DESC
LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

// CountBySpace returns the total ledger rows for a space under the
// same filter used by ListBySpace.
func (r *MovementRepo) CountBySpace(ctx context.Context, spaceID uint64, f MovementFilter) (int64, error) {
	where, args := spaceHistoryWhere(spaceID, f)
	q := `SELECT COUNT(*) FROM movement_history mh
JOIN items i ON i.id = mh.item_id
` + where
	var n int64
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// spaceHistoryWhere builds the shared WHERE clause for space-wide
// history queries. Rows are tied to a space through their item, so
// entries whose item was deleted drop out of the space view while the
// per-item history remains reachable until then.
func spaceHistoryWhere(spaceID uint64, f MovementFilter) (string, []interface{}) {
	where := "WHERE i.space_id = ?"
	args := []interface{}{spaceID}
	if f.LocationID != nil {
		where += " AND (mh.from_location_id = ? OR mh.to_location_id = ?)"
		args = append(args, *f.LocationID, *f.LocationID)
	}
	if f.MemberID != nil {
		where += " AND mh.moved_by_id = ?"
		args = append(args, *f.MemberID)
	}
	return where, args
}

// scanMovements reads annotated ledger rows from a cursor.
func scanMovements(rows *sql.Rows) ([]MovementDetail, error) {
	out := make([]MovementDetail, 0)
	for rows.Next() {
		var d MovementDetail
		var notes sql.NullString
		var itemID, fromID, toID, memberID sql.NullInt64
		var itemName, fromName, toName, memberName sql.NullString
		if err := rows.Scan(&d.ID, &notes, &d.MovedAt,
			&itemID, &itemName, &fromID, &fromName, &toID, &toName, &memberID, &memberName); err != nil {
			return nil, err
		}
		d.Notes = nullableString(notes)
		d.Item = entityRef(itemID, itemName)
		d.FromLocation = entityRef(fromID, fromName)
		d.ToLocation = entityRef(toID, toName)
		d.MovedBy = entityRef(memberID, memberName)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// entityRef assembles an EntityRef from nullable scan targets.
func entityRef(id sql.NullInt64, name sql.NullString) *EntityRef {
	if !id.Valid {
		return nil
	}
	return &EntityRef{ID: uint64(id.Int64), Name: name.String}
}
