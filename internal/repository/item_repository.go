package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/stashpoint/space-inventory/internal/model"
)

// ErrItemNotFound is returned when a scoped item lookup fails.
var ErrItemNotFound = errors.New("item not found")

// ErrInvalidLocation is returned when an item operation references a
// location that does not exist in the item's space.
var ErrInvalidLocation = errors.New("location not in space")

// ItemRepo provides persistence for items, including the one
// cross-entity transaction in the system: relocating an item together
// with its movement-history append.
type ItemRepo struct {
	db        *sql.DB
	locations *LocationRepo
}

// NewItemRepo constructs an ItemRepo. It borrows the location
// repository for path resolution and same-space checks so that the
// walk logic lives in exactly one place.
func NewItemRepo(db *sql.DB, locations *LocationRepo) *ItemRepo {
	return &ItemRepo{db: db, locations: locations}
}

// TagRef is the flattened tag shape embedded in item responses.
type TagRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// ItemLocation is the location shape embedded in item responses,
// annotated with the resolved display path.
type ItemLocation struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// ItemDetail is an item row decorated with its location path and
// flattened tag list, as returned by list and get endpoints.
type ItemDetail struct {
	ID            uint64       `json:"id"`
	SpaceID       uint64       `json:"space_id"`
	Name          string       `json:"name"`
	Description   *string      `json:"description"`
	Quantity      uint32       `json:"quantity"`
	ImageURL      *string      `json:"image_url"`
	ReferenceID   *string      `json:"reference_id"`
	ReferenceType *string      `json:"reference_type"`
	Location      ItemLocation `json:"location"`
	Tags          []TagRef     `json:"tags"`
	CreatedByID   uint64       `json:"created_by_id"`
	LastMovedByID *uint64      `json:"last_moved_by_id"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// ItemFilter narrows item listings. Zero values mean "no filter".
type ItemFilter struct {
	LocationID *uint64 // only items at this location
	TagID      *uint64 // only items carrying this tag
	Search     string  // case-insensitive substring match on name
}

// Create inserts a new item after verifying its location belongs to
// the same space (ErrInvalidLocation otherwise). On success the ID
// and timestamps are populated.
func (r *ItemRepo) Create(ctx context.Context, it *model.Item) error {
	ok, err := r.locations.existsInSpace(ctx, it.LocationID, it.SpaceID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidLocation
	}

	const qInsert = `INSERT INTO items
	                 (space_id, name, description, quantity, image_url, location_id, reference_id, reference_type, created_by_id)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		it.SpaceID, it.Name, it.Description, it.Quantity, it.ImageURL,
		it.LocationID, it.ReferenceID, it.ReferenceType, it.CreatedByID)
	if err != nil {
		// The location can vanish between the pre-check and the
		// insert; the FK failure maps onto the same sentinel.
		if isFKViolation(err) {
			return ErrInvalidLocation
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return r.scanItem(ctx, it)
}

// GetByIDAndSpace fetches a plain item row scoped by (id, space).
func (r *ItemRepo) GetByIDAndSpace(ctx context.Context, id, spaceID uint64) (*model.Item, error) {
	it := &model.Item{ID: id}
	const q = `SELECT space_id, name, description, quantity, image_url, location_id,
	                  reference_id, reference_type, created_by_id, last_moved_by_id, created_at, updated_at
	           FROM items WHERE id = ? AND space_id = ?`
	var lastMovedBy sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, id, spaceID).
		Scan(&it.SpaceID, &it.Name, &it.Description, &it.Quantity, &it.ImageURL, &it.LocationID,
			&it.ReferenceID, &it.ReferenceType, &it.CreatedByID, &lastMovedBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	it.LastMovedByID = nullableID(lastMovedBy)
	return it, nil
}

// GetDetail fetches an item scoped by (id, space) decorated with its
// location path and tag list.
func (r *ItemRepo) GetDetail(ctx context.Context, id, spaceID uint64) (*ItemDetail, error) {
	details, err := r.queryDetails(ctx,
		"WHERE i.id = ? AND i.space_id = ?", []interface{}{id, spaceID}, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, ErrItemNotFound
	}
	return &details[0], nil
}

// FindByReference returns the first item in the space whose scannable
// reference equals identifier, decorated like GetDetail.
func (r *ItemRepo) FindByReference(ctx context.Context, spaceID uint64, identifier string) (*ItemDetail, error) {
	details, err := r.queryDetails(ctx,
		"WHERE i.space_id = ? AND i.reference_id = ?", []interface{}{spaceID, identifier}, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, ErrItemNotFound
	}
	return &details[0], nil
}

// List returns items of a space matching the filter, newest first,
// decorated with paths and tags, together with the total count under
// the same filter for pagination metadata.
func (r *ItemRepo) List(ctx context.Context, spaceID uint64, f ItemFilter, limit, offset int) ([]ItemDetail, int64, error) {
	where := "WHERE i.space_id = ?"
	args := []interface{}{spaceID}
	if f.LocationID != nil {
		where += " AND i.location_id = ?"
		args = append(args, *f.LocationID)
	}
	if f.TagID != nil {
		where += " AND EXISTS (SELECT 1 FROM item_tags it WHERE it.item_id = i.id AND it.tag_id = ?)"
		args = append(args, *f.TagID)
	}
	if f.Search != "" {
		where += " AND LOWER(i.name) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
	}

	details, err := r.queryDetails(ctx, where, args, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	countQ := "SELECT COUNT(*) FROM items i " + where
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// queryDetails runs the shared detail query with the given WHERE
// clause, then annotates every row with its location path and loads
// tags for all rows in a single IN query.
func (r *ItemRepo) queryDetails(ctx context.Context, where string, args []interface{}, limit, offset int) ([]ItemDetail, error) {
	q := `SELECT i.id, i.space_id, i.name, i.description, i.quantity, i.image_url,
	             i.reference_id, i.reference_type, i.created_by_id, i.last_moved_by_id,
	             i.created_at, i.updated_at, l.id, l.name
	      FROM items i
	      JOIN locations l ON l.id = i.location_id ` + where + `
	      ORDER BY i.created_at DESC LIMIT ? OFFSET ?`
	args = append(append([]interface{}{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]ItemDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var d ItemDetail
		var desc, imageURL, refID, refType sql.NullString
		var lastMovedBy sql.NullInt64
		if err := rows.Scan(&d.ID, &d.SpaceID, &d.Name, &desc, &d.Quantity, &imageURL,
			&refID, &refType, &d.CreatedByID, &lastMovedBy,
			&d.CreatedAt, &d.UpdatedAt, &d.Location.ID, &d.Location.Name); err != nil {
			return nil, err
		}
		d.Description = nullableString(desc)
		d.ImageURL = nullableString(imageURL)
		d.ReferenceID = nullableString(refID)
		d.ReferenceType = nullableString(refType)
		d.LastMovedByID = nullableID(lastMovedBy)
		d.Tags = []TagRef{}
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}

	for i := range details {
		p, err := r.locations.ResolvePath(ctx, details[i].Location.ID)
		if err != nil {
			return nil, err
		}
		details[i].Location.Path = p
	}

	// Load tags for all returned items in one query.
	ids := make([]interface{}, 0, len(details))
	placeholders := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
		placeholders = append(placeholders, "?")
	}
	tagQ := `SELECT it.item_id, t.id, t.name
	         FROM item_tags it
	         JOIN tags t ON t.id = it.tag_id
	         WHERE it.item_id IN (` + strings.Join(placeholders, ",") + `)
	         ORDER BY it.item_id, t.name`
	trows, err := r.db.QueryContext(ctx, tagQ, ids...)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var itemID uint64
		var ref TagRef
		if err := trows.Scan(&itemID, &ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		if idx, ok := index[itemID]; ok {
			details[idx].Tags = append(details[idx].Tags, ref)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// UpdateItemParams carries the partial-update fields for an item.
// Nil fields are not touched.
type UpdateItemParams struct {
	Name          *string
	Description   *string
	Quantity      *uint32
	ImageURL      *string
	ReferenceID   *string
	ReferenceType *string
}

// Update applies a partial update scoped by (id, space) and returns
// the updated row. Returns ErrItemNotFound when no row matches.
func (r *ItemRepo) Update(ctx context.Context, id, spaceID uint64, p UpdateItemParams) (*model.Item, error) {
	q := "UPDATE items SET updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	if p.Name != nil {
		q += ", name = ?"
		args = append(args, *p.Name)
	}
	if p.Description != nil {
		q += ", description = ?"
		args = append(args, *p.Description)
	}
	if p.Quantity != nil {
		q += ", quantity = ?"
		args = append(args, *p.Quantity)
	}
	if p.ImageURL != nil {
		q += ", image_url = ?"
		args = append(args, *p.ImageURL)
	}
	if p.ReferenceID != nil {
		q += ", reference_id = ?"
		args = append(args, *p.ReferenceID)
	}
	if p.ReferenceType != nil {
		q += ", reference_type = ?"
		args = append(args, *p.ReferenceType)
	}
	q += " WHERE id = ? AND space_id = ?"
	args = append(args, id, spaceID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrItemNotFound
	}
	return r.GetByIDAndSpace(ctx, id, spaceID)
}

// Move relocates an item and appends the movement-history row in one
// transaction. The item row is read with FOR UPDATE so concurrent
// moves of the same item serialize; the location update and the
// ledger append then either both commit or both roll back. Returns
// the updated item and the id of the location it came from.
func (r *ItemRepo) Move(ctx context.Context, itemID, spaceID, toLocationID, movedByID uint64, notes *string) (it *model.Item, fromLocationID uint64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	// Step 1: read the current location, scoped to the space and
	// locked for the duration of the transaction.
	err = tx.QueryRowContext(ctx,
		"SELECT location_id FROM items WHERE id = ? AND space_id = ? FOR UPDATE",
		itemID, spaceID).Scan(&fromLocationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrItemNotFound
		}
		return nil, 0, err
	}

	// The destination must exist in the same space.
	var dest uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM locations WHERE id = ? AND space_id = ?",
		toLocationID, spaceID).Scan(&dest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrInvalidLocation
		}
		return nil, 0, err
	}

	// Step 2: relocate the item.
	if _, err = tx.ExecContext(ctx,
		`UPDATE items SET location_id = ?, last_moved_by_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, toLocationID, movedByID, itemID); err != nil {
		return nil, 0, err
	}

	// Step 3: append the ledger row.
	var noteVal sql.NullString
	if notes != nil {
		noteVal = sql.NullString{String: *notes, Valid: true}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO movement_history (item_id, from_location_id, to_location_id, moved_by_id, notes)
		 VALUES (?, ?, ?, ?, ?)`,
		itemID, fromLocationID, toLocationID, movedByID, noteVal); err != nil {
		return nil, 0, err
	}

	it = &model.Item{ID: itemID}
	var lastMovedBy sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT space_id, name, description, quantity, image_url, location_id,
		        reference_id, reference_type, created_by_id, last_moved_by_id, created_at, updated_at
		 FROM items WHERE id = ?`, itemID).
		Scan(&it.SpaceID, &it.Name, &it.Description, &it.Quantity, &it.ImageURL, &it.LocationID,
			&it.ReferenceID, &it.ReferenceType, &it.CreatedByID, &lastMovedBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, 0, err
	}
	it.LastMovedByID = nullableID(lastMovedBy)
	return it, fromLocationID, nil
}

// Delete removes an item scoped by (id, space). Tag assignments go
// with it via cascade; movement history rows survive with their
// item reference nullified.
func (r *ItemRepo) Delete(ctx context.Context, id, spaceID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM items WHERE id = ? AND space_id = ?", id, spaceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// scanItem reads an item row by primary key into it.
func (r *ItemRepo) scanItem(ctx context.Context, it *model.Item) error {
	const q = `SELECT space_id, name, description, quantity, image_url, location_id,
	                  reference_id, reference_type, created_by_id, last_moved_by_id, created_at, updated_at
	           FROM items WHERE id = ?`
	var lastMovedBy sql.NullInt64
	if err := r.db.QueryRowContext(ctx, q, it.ID).
		Scan(&it.SpaceID, &it.Name, &it.Description, &it.Quantity, &it.ImageURL, &it.LocationID,
			&it.ReferenceID, &it.ReferenceType, &it.CreatedByID, &lastMovedBy, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return err
	}
	it.LastMovedByID = nullableID(lastMovedBy)
	return nil
}
