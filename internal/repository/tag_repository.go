package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/stashpoint/space-inventory/internal/model"
)

// ErrTagNotFound is returned when a scoped tag lookup fails.
var ErrTagNotFound = errors.New("tag not found")

// ErrTagAlreadyAssigned is returned when a tag is assigned to an item
// that already carries it.
var ErrTagAlreadyAssigned = errors.New("tag already assigned to item")

// ErrAssignmentNotFound is returned when an (item, tag) assignment to
// be removed does not exist.
var ErrAssignmentNotFound = errors.New("tag assignment not found")

// TagRepo provides persistence for tags and their item assignments.
type TagRepo struct {
	db *sql.DB
}

// NewTagRepo constructs a TagRepo with the given DB handle.
func NewTagRepo(db *sql.DB) *TagRepo {
	return &TagRepo{db: db}
}

// TagWithCount is a tag row annotated with how many items carry it.
type TagWithCount struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	ItemCount int64     `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Create inserts a new tag scoped to its space. On success the ID and
// creation timestamp are populated.
func (r *TagRepo) Create(ctx context.Context, t *model.Tag) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tags (space_id, name, color, created_by_id) VALUES (?, ?, ?, ?)",
		t.SpaceID, t.Name, t.Color, t.CreatedByID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		"SELECT space_id, name, color, created_by_id, created_at FROM tags WHERE id = ?", t.ID).
		Scan(&t.SpaceID, &t.Name, &t.Color, &t.CreatedByID, &t.CreatedAt)
}

// GetByIDAndSpace fetches a tag scoped by (id, space).
func (r *TagRepo) GetByIDAndSpace(ctx context.Context, id, spaceID uint64) (*model.Tag, error) {
	const q = "SELECT id, space_id, name, color, created_by_id, created_at FROM tags WHERE id = ? AND space_id = ?"
	var t model.Tag
	err := r.db.QueryRowContext(ctx, q, id, spaceID).
		Scan(&t.ID, &t.SpaceID, &t.Name, &t.Color, &t.CreatedByID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns all tags of a space annotated with assignment counts,
// newest first.
func (r *TagRepo) List(ctx context.Context, spaceID uint64) ([]TagWithCount, error) {
	const q = `SELECT t.id, t.name, t.color, t.created_at,
	                  (SELECT COUNT(*) FROM item_tags it WHERE it.tag_id = t.id) AS item_count
	           FROM tags t
	           WHERE t.space_id = ?
	           ORDER BY t.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TagWithCount, 0)
	for rows.Next() {
		var t TagWithCount
		var color sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &color, &t.CreatedAt, &t.ItemCount); err != nil {
			return nil, err
		}
		t.Color = nullableString(color)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a tag scoped by (id, space). Its item assignments go
// with it via cascade.
func (r *TagRepo) Delete(ctx context.Context, id, spaceID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM tags WHERE id = ? AND space_id = ?", id, spaceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTagNotFound
	}
	return nil
}

// Assign inserts an (item, tag) pair. The caller verifies that both
// entities belong to the space; the unique pair constraint maps to
// ErrTagAlreadyAssigned.
func (r *TagRepo) Assign(ctx context.Context, itemID, tagID uint64) (*model.ItemTag, error) {
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO item_tags (item_id, tag_id) VALUES (?, ?)", itemID, tagID); err != nil {
		if isDup(err) {
			return nil, ErrTagAlreadyAssigned
		}
		return nil, err
	}
	var it model.ItemTag
	err := r.db.QueryRowContext(ctx,
		"SELECT item_id, tag_id, created_at FROM item_tags WHERE item_id = ? AND tag_id = ?",
		itemID, tagID).Scan(&it.ItemID, &it.TagID, &it.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Unassign deletes an (item, tag) pair. Returns ErrAssignmentNotFound
// when the pair does not exist.
func (r *TagRepo) Unassign(ctx context.Context, itemID, tagID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM item_tags WHERE item_id = ? AND tag_id = ?", itemID, tagID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}
