package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/stashpoint/space-inventory/internal/model"
)

// ErrLocationNotFound is returned when a scoped location lookup fails.
var ErrLocationNotFound = errors.New("location not found")

// ErrInvalidParent is returned when a parent reference points at a
// location that does not exist in the same space.
var ErrInvalidParent = errors.New("parent location not in space")

// ErrLocationCycle is returned when a parent assignment would make a
// location its own ancestor.
var ErrLocationCycle = errors.New("parent assignment creates a cycle")

// ErrCorruptHierarchy is returned when a parent-chain walk exceeds
// maxPathDepth, which means the stored hierarchy is no longer a tree.
var ErrCorruptHierarchy = errors.New("location hierarchy exceeds maximum depth")

// pathSeparator joins location names when rendering a root-to-leaf path.
const pathSeparator = " / "

// maxPathDepth bounds every parent-chain walk. A chain longer than
// this is treated as corrupt rather than walked further, so a cycle
// in the data can never hang a request.
const maxPathDepth = 64

// LocationRepo provides persistence for the location hierarchy of a
// space and resolves display paths by walking parent chains.
type LocationRepo struct {
	db *sql.DB
}

// NewLocationRepo constructs a LocationRepo with the given DB handle.
func NewLocationRepo(db *sql.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

// LocationWithPath is a location row annotated with its resolved
// root-to-leaf display path, as returned by list endpoints.
type LocationWithPath struct {
	ID            uint64    `json:"id"`
	SpaceID       uint64    `json:"space_id"`
	Name          string    `json:"name"`
	ParentID      *uint64   `json:"parent_location_id"`
	LocationType  string    `json:"location_type"`
	ReferenceID   *string   `json:"reference_id"`
	ReferenceType *string   `json:"reference_type"`
	CreatedByID   uint64    `json:"created_by_id"`
	Path          string    `json:"path"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Create inserts a new location scoped to its space. When a parent is
// given it must already exist in the same space, otherwise
// ErrInvalidParent is returned. After the insert the row is read back
// to populate ID and timestamps.
func (r *LocationRepo) Create(ctx context.Context, loc *model.Location) error {
	if loc.ParentID != nil {
		ok, err := r.existsInSpace(ctx, *loc.ParentID, loc.SpaceID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidParent
		}
	}

	const qInsert = `INSERT INTO locations
	                 (space_id, name, parent_location_id, location_type, reference_id, reference_type, created_by_id)
	                 VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		loc.SpaceID, loc.Name, loc.ParentID, loc.LocationType, loc.ReferenceID, loc.ReferenceType, loc.CreatedByID)
	if err != nil {
		// The parent can vanish between the pre-check and the insert;
		// the FK failure maps onto the same sentinel.
		if isFKViolation(err) {
			return ErrInvalidParent
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	loc.ID = uint64(id)

	const qSelect = `SELECT space_id, name, parent_location_id, location_type, reference_id, reference_type,
	                        created_by_id, created_at, updated_at
	                 FROM locations WHERE id = ?`
	var parent sql.NullInt64
	if err := r.db.QueryRowContext(ctx, qSelect, loc.ID).
		Scan(&loc.SpaceID, &loc.Name, &parent, &loc.LocationType, &loc.ReferenceID, &loc.ReferenceType,
			&loc.CreatedByID, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
		return err
	}
	loc.ParentID = nullableID(parent)
	return nil
}

// GetByIDAndSpace fetches a location only if it belongs to the given
// space. A location outside the space reports ErrLocationNotFound so
// cross-tenant requests cannot learn that the id exists.
func (r *LocationRepo) GetByIDAndSpace(ctx context.Context, id, spaceID uint64) (*model.Location, error) {
	const q = `SELECT id, space_id, name, parent_location_id, location_type, reference_id, reference_type,
	                  created_by_id, created_at, updated_at
	           FROM locations WHERE id = ? AND space_id = ?`
	var loc model.Location
	var parent sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, id, spaceID).
		Scan(&loc.ID, &loc.SpaceID, &loc.Name, &parent, &loc.LocationType, &loc.ReferenceID, &loc.ReferenceType,
			&loc.CreatedByID, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	loc.ParentID = nullableID(parent)
	return &loc, nil
}

// List returns all locations of a space matching the optional parent
// and type filters, ordered by creation time descending, each
// annotated with its resolved path.
func (r *LocationRepo) List(ctx context.Context, spaceID uint64, parentID *uint64, locationType string) ([]LocationWithPath, error) {
	q := `SELECT id, space_id, name, parent_location_id, location_type, reference_id, reference_type,
	             created_by_id, created_at, updated_at
	      FROM locations WHERE space_id = ?`
	args := []interface{}{spaceID}
	if parentID != nil {
		q += " AND parent_location_id = ?"
		args = append(args, *parentID)
	}
	if locationType != "" {
		q += " AND location_type = ?"
		args = append(args, locationType)
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LocationWithPath, 0)
	for rows.Next() {
		var l LocationWithPath
		var parent sql.NullInt64
		var refID, refType sql.NullString
		if err := rows.Scan(&l.ID, &l.SpaceID, &l.Name, &parent, &l.LocationType, &refID, &refType,
			&l.CreatedByID, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		l.ParentID = nullableID(parent)
		l.ReferenceID = nullableString(refID)
		l.ReferenceType = nullableString(refType)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Annotate after the row cursor is closed; each path resolution
	// runs its own bounded chain of lookups.
	for i := range out {
		p, err := r.ResolvePath(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Path = p
	}
	return out, nil
}

// FindByReference returns the first location in the space whose
// scannable reference equals identifier. Returns ErrLocationNotFound
// when nothing matches.
func (r *LocationRepo) FindByReference(ctx context.Context, spaceID uint64, identifier string) (*model.Location, error) {
	const q = `SELECT id, space_id, name, parent_location_id, location_type, reference_id, reference_type,
	                  created_by_id, created_at, updated_at
	           FROM locations WHERE space_id = ? AND reference_id = ? LIMIT 1`
	var loc model.Location
	var parent sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, spaceID, identifier).
		Scan(&loc.ID, &loc.SpaceID, &loc.Name, &parent, &loc.LocationType, &loc.ReferenceID, &loc.ReferenceType,
			&loc.CreatedByID, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	loc.ParentID = nullableID(parent)
	return &loc, nil
}

// UpdateLocationParams carries the partial-update fields for a
// location. Nil fields are not touched. SetParent distinguishes
// "reparent to nil" (make root) from "leave parent alone".
type UpdateLocationParams struct {
	Name          *string
	LocationType  *string
	SetParent     bool
	ParentID      *uint64
	ReferenceID   *string
	ReferenceType *string
}

// Update applies a partial update to a location scoped by (id, space).
// Reparenting validates that the new parent exists in the same space
// and that the assignment does not make the location its own
// ancestor.
func (r *LocationRepo) Update(ctx context.Context, id, spaceID uint64, p UpdateLocationParams) error {
	// Scoped existence check first; everything after may assume the
	// location belongs to the space.
	if _, err := r.GetByIDAndSpace(ctx, id, spaceID); err != nil {
		return err
	}

	if p.SetParent && p.ParentID != nil {
		if *p.ParentID == id {
			return ErrLocationCycle
		}
		ok, err := r.existsInSpace(ctx, *p.ParentID, spaceID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidParent
		}
		cycle, err := r.isAncestor(ctx, id, *p.ParentID)
		if err != nil {
			return err
		}
		if cycle {
			return ErrLocationCycle
		}
	}

	q := "UPDATE locations SET updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	if p.Name != nil {
		q += ", name = ?"
		args = append(args, *p.Name)
	}
	if p.LocationType != nil {
		q += ", location_type = ?"
		args = append(args, *p.LocationType)
	}
	if p.SetParent {
		q += ", parent_location_id = ?"
		args = append(args, p.ParentID)
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

	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// ErrLocationInUse is returned when a delete is blocked because items
// still sit at the location (or inside its subtree).
var ErrLocationInUse = errors.New("location still holds items")

// Delete removes a location scoped by (id, space). Descendant
// locations go with it via the self-referential cascade; movement
// history rows keep their audit value because the history foreign
// keys nullify instead of cascading. Items block the delete.
func (r *LocationRepo) Delete(ctx context.Context, id, spaceID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM locations WHERE id = ? AND space_id = ?", id, spaceID)
	if err != nil {
		if isRowReferenced(err) {
			return ErrLocationInUse
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLocationNotFound
	}
	return nil
}

// ResolvePath walks the parent chain from the given location to its
// root and joins the collected names in root-to-leaf order. A missing
// starting location yields "" — the walk just stops and returns what
// it collected. The walk is capped at maxPathDepth steps; exceeding
// the cap reports ErrCorruptHierarchy instead of looping forever on
// cyclic data.
func (r *LocationRepo) ResolvePath(ctx context.Context, id uint64) (string, error) {
	const q = "SELECT name, parent_location_id FROM locations WHERE id = ?"

	names := make([]string, 0, 4) // leaf first, reversed at the end
	current := id
	for depth := 0; ; depth++ {
		if depth >= maxPathDepth {
			return "", ErrCorruptHierarchy
		}
		var name string
		var parent sql.NullInt64
		err := r.db.QueryRowContext(ctx, q, current).Scan(&name, &parent)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return "", err
		}
		names = append(names, name)
		if !parent.Valid {
			break
		}
		current = uint64(parent.Int64)
	}
	return joinPathLeafFirst(names), nil
}

// isAncestor walks up the parent chain starting at from and reports
// whether node appears on it. Used to reject parent assignments that
// would close a cycle.
func (r *LocationRepo) isAncestor(ctx context.Context, node, from uint64) (bool, error) {
	const q = "SELECT parent_location_id FROM locations WHERE id = ?"
	current := from
	for depth := 0; ; depth++ {
		if depth >= maxPathDepth {
			return false, ErrCorruptHierarchy
		}
		if current == node {
			return true, nil
		}
		var parent sql.NullInt64
		err := r.db.QueryRowContext(ctx, q, current).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !parent.Valid {
			return false, nil
		}
		current = uint64(parent.Int64)
	}
}

// existsInSpace reports whether a location id belongs to the space.
func (r *LocationRepo) existsInSpace(ctx context.Context, id, spaceID uint64) (bool, error) {
	var found uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM locations WHERE id = ? AND space_id = ?", id, spaceID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// joinPathLeafFirst reverses a leaf-to-root name slice in place and
// joins it with the display separator.
func joinPathLeafFirst(names []string) string {
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, pathSeparator)
}

// nullableID converts a scanned nullable BIGINT into *uint64.
func nullableID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	u := uint64(v.Int64)
	return &u
}

// nullableString converts a scanned nullable column into *string.
func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
