package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/stashpoint/space-inventory/internal/model"
)

// ErrSpaceNotFound is returned when a space cannot be found.
var ErrSpaceNotFound = errors.New("space not found")

// ErrAlreadyMember is returned when a member is added to a space they
// already belong to.
var ErrAlreadyMember = errors.New("member already in space")

// ErrMembershipNotFound is returned when a (member, space) membership
// row does not exist.
var ErrMembershipNotFound = errors.New("membership not found")

// SpaceRepo encapsulates all database queries related to spaces and
// their memberships.
type SpaceRepo struct {
	db *sql.DB
}

// NewSpaceRepo constructs a SpaceRepo with the provided DB handle.
func NewSpaceRepo(db *sql.DB) *SpaceRepo {
	return &SpaceRepo{db: db}
}

// MembershipDetail is a membership row annotated with the member's
// identity, as returned by membership listing endpoints.
type MembershipDetail struct {
	MemberID uint64    `json:"member_id"`
	SpaceID  uint64    `json:"space_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	Member   struct {
		ID    uint64 `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"member"`
}

// Create inserts a new space and grants the owner an ADMIN membership
// in the same transaction, so a space can never exist without its
// owner being a member. The caller must have verified that the owner
// member exists. On success the space's ID and timestamps are
// populated.
func (r *SpaceRepo) Create(ctx context.Context, s *model.Space) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO spaces (owner_id, name, description) VALUES (?, ?, ?)",
		s.OwnerID, s.Name, s.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO space_memberships (member_id, space_id, role) VALUES (?, ?, ?)",
		s.OwnerID, s.ID, model.RoleAdmin); err != nil {
		return err
	}

	const qSelect = "SELECT owner_id, name, description, created_at, updated_at FROM spaces WHERE id = ?"
	err = tx.QueryRowContext(ctx, qSelect, s.ID).
		Scan(&s.OwnerID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	return err
}

// GetByID fetches a space by its ID. Returns ErrSpaceNotFound when no
// row is found.
func (r *SpaceRepo) GetByID(ctx context.Context, id uint64) (*model.Space, error) {
	const q = "SELECT id, owner_id, name, description, created_at, updated_at FROM spaces WHERE id = ?"
	var s model.Space
	if err := r.db.QueryRowContext(ctx, q, id).
		Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List returns spaces ordered by creation time descending.
func (r *SpaceRepo) List(ctx context.Context, limit, offset int) ([]*model.Space, error) {
	const q = `SELECT id, owner_id, name, description, created_at, updated_at
	           FROM spaces ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Space
	for rows.Next() {
		s := new(model.Space)
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the total number of spaces.
func (r *SpaceRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spaces").Scan(&n)
	return n, err
}

// Update applies a partial update to a space. Nil fields are left
// untouched. Returns ErrSpaceNotFound when no row matches.
func (r *SpaceRepo) Update(ctx context.Context, id uint64, name, description *string) error {
	q := "UPDATE spaces SET updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	if name != nil {
		q += ", name = ?"
		args = append(args, *name)
	}
	if description != nil {
		q += ", description = ?"
		args = append(args, *description)
	}
	q += " WHERE id = ?"
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSpaceNotFound
	}
	return nil
}

// Delete removes a space and its dependent records inside one
// transaction. Locations, items, tags, memberships and item/tag
// assignments are destroyed; movement history rows belonging to the
// space are removed with it, since the space is the audit boundary.
// Deletion order respects foreign keys: history and join rows first,
// then items, locations, tags, memberships and finally the space.
func (r *SpaceRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	// Verify the space exists first so callers can report 404.
	var exists uint64
	if err = tx.QueryRowContext(ctx, "SELECT id FROM spaces WHERE id = ?", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSpaceNotFound
		}
		return err
	}

	// Movement history referencing the space's items or locations.
	if _, err = tx.ExecContext(ctx,
		`DELETE mh FROM movement_history mh
		 LEFT JOIN items i ON i.id = mh.item_id
		 LEFT JOIN locations fl ON fl.id = mh.from_location_id
		 LEFT JOIN locations tl ON tl.id = mh.to_location_id
		 WHERE i.space_id = ? OR fl.space_id = ? OR tl.space_id = ?`, id, id, id); err != nil {
		return err
	}
	// Tag assignments for items in this space.
	if _, err = tx.ExecContext(ctx,
		`DELETE it FROM item_tags it
		 JOIN items i ON i.id = it.item_id
		 WHERE i.space_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM items WHERE space_id = ?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM locations WHERE space_id = ?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM tags WHERE space_id = ?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM space_memberships WHERE space_id = ?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM spaces WHERE id = ?", id); err != nil {
		return err
	}
	return nil
}

// AddMember inserts a membership row after verifying both the space
// and the member exist. Returns ErrAlreadyMember when the pair is
// already present.
func (r *SpaceRepo) AddMember(ctx context.Context, spaceID, memberID uint64, role string) (*MembershipDetail, error) {
	var ownerID uint64
	if err := r.db.QueryRowContext(ctx, "SELECT owner_id FROM spaces WHERE id = ?", spaceID).Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}
	var memberExists uint64
	if err := r.db.QueryRowContext(ctx, "SELECT id FROM members WHERE id = ?", memberID).Scan(&memberExists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO space_memberships (member_id, space_id, role) VALUES (?, ?, ?)",
		memberID, spaceID, role); err != nil {
		if isDup(err) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	const q = `SELECT sm.member_id, sm.space_id, sm.role, sm.joined_at, m.id, m.name, m.email
	           FROM space_memberships sm
	           JOIN members m ON m.id = sm.member_id
	           WHERE sm.member_id = ? AND sm.space_id = ?`
	var d MembershipDetail
	if err := r.db.QueryRowContext(ctx, q, memberID, spaceID).
		Scan(&d.MemberID, &d.SpaceID, &d.Role, &d.JoinedAt, &d.Member.ID, &d.Member.Name, &d.Member.Email); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListMembers returns all memberships of a space annotated with member
// identity, newest joined first.
func (r *SpaceRepo) ListMembers(ctx context.Context, spaceID uint64) ([]MembershipDetail, error) {
	const q = `SELECT sm.member_id, sm.space_id, sm.role, sm.joined_at, m.id, m.name, m.email
	           FROM space_memberships sm
	           JOIN members m ON m.id = sm.member_id
	           WHERE sm.space_id = ?
	           ORDER BY sm.joined_at DESC`
	rows, err := r.db.QueryContext(ctx, q, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MembershipDetail, 0)
	for rows.Next() {
		var d MembershipDetail
		if err := rows.Scan(&d.MemberID, &d.SpaceID, &d.Role, &d.JoinedAt,
			&d.Member.ID, &d.Member.Name, &d.Member.Email); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveMember deletes a membership row. The space owner cannot be
// removed; attempting to do so returns ErrConflict. A missing
// membership returns ErrMembershipNotFound.
func (r *SpaceRepo) RemoveMember(ctx context.Context, spaceID, memberID uint64) error {
	var ownerID uint64
	if err := r.db.QueryRowContext(ctx, "SELECT owner_id FROM spaces WHERE id = ?", spaceID).Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSpaceNotFound
		}
		return err
	}
	if ownerID == memberID {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM space_memberships WHERE member_id = ? AND space_id = ?",
		memberID, spaceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMembershipNotFound
	}
	return nil
}
