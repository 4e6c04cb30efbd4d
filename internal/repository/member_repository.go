package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/stashpoint/space-inventory/internal/model"
	"github.com/stashpoint/space-inventory/internal/utils"
)

// ErrMemberNotFound is returned when a member lookup fails.
var ErrMemberNotFound = errors.New("member not found")

// ErrEmailExists is returned when a signup collides with an existing
// email address.
var ErrEmailExists = errors.New("email already exists")

// MemberRepo encapsulates all database queries related to members.
type MemberRepo struct{ DB *sql.DB }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{DB: db} }

// MemberSpace describes one space a member belongs to, including the
// role held there. It is embedded in member detail responses.
type MemberSpace struct {
	SpaceID   uint64    `json:"space_id"`
	SpaceName string    `json:"space_name"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Create inserts a new member with a bcrypt-hashed password and
// returns the stored row. The email is normalized to lower case so
// the unique index is effectively case-insensitive. Returns
// ErrEmailExists on a duplicate email.
func (r *MemberRepo) Create(ctx context.Context, name, email, password string, cost int) (*model.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO members (name, email, password_hash) VALUES (?,?,?)",
		name, email, hash)
	if err != nil {
		if isDup(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a member by primary key. Returns ErrMemberNotFound
// when no row exists.
func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (*model.Member, error) {
	const q = "SELECT id, name, email, password_hash, created_at, updated_at FROM members WHERE id = ?"
	var m model.Member
	err := r.DB.QueryRowContext(ctx, q, id).
		Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByEmail fetches a member by normalized email.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*model.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	const q = "SELECT id, name, email, password_hash, created_at, updated_at FROM members WHERE email = ? LIMIT 1"
	var m model.Member
	err := r.DB.QueryRowContext(ctx, q, email).
		Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns members ordered by creation time descending. The
// password hash column is not selected.
func (r *MemberRepo) List(ctx context.Context, limit, offset int) ([]*model.Member, error) {
	const q = `SELECT id, name, email, created_at, updated_at
	           FROM members ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Member
	for rows.Next() {
		m := new(model.Member)
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the total number of members.
func (r *MemberRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM members").Scan(&n)
	return n, err
}

// UpdateName updates a member's display name. Returns
// ErrMemberNotFound when no row matches.
func (r *MemberRepo) UpdateName(ctx context.Context, id uint64, name string) error {
	const q = "UPDATE members SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	res, err := r.DB.ExecContext(ctx, q, name, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// SpacesForMember lists the spaces a member belongs to along with the
// role held in each, newest membership first.
func (r *MemberRepo) SpacesForMember(ctx context.Context, memberID uint64) ([]MemberSpace, error) {
	const q = `SELECT sm.space_id, s.name, sm.role, sm.joined_at
	           FROM space_memberships sm
	           JOIN spaces s ON s.id = sm.space_id
	           WHERE sm.member_id = ?
	           ORDER BY sm.joined_at DESC`
	rows, err := r.DB.QueryContext(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MemberSpace, 0)
	for rows.Next() {
		var ms MemberSpace
		if err := rows.Scan(&ms.SpaceID, &ms.SpaceName, &ms.Role, &ms.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
