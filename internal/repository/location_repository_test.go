package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashpoint/space-inventory/internal/model"
)

func newMockLocationRepo(t *testing.T) (*LocationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLocationRepo(db), mock
}

func TestJoinPathLeafFirst(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{"empty", []string{}, ""},
		{"single", []string{"Garage"}, "Garage"},
		// Input is leaf-first: Shelf B under Garage under Home.
		{"chain", []string{"Shelf B", "Garage", "Home"}, "Home / Garage / Shelf B"},
		{"two", []string{"Box", "Attic"}, "Attic / Box"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinPathLeafFirst(tt.names))
		})
	}
}

func TestResolvePathStopsOnCyclicChain(t *testing.T) {
	repo, mock := newMockLocationRepo(t)

	// Two locations pointing at each other: the walk must give up at
	// the depth cap instead of looping.
	q := regexp.QuoteMeta("SELECT name, parent_location_id FROM locations WHERE id = ?")
	for depth := 0; depth < maxPathDepth; depth++ {
		if depth%2 == 0 {
			mock.ExpectQuery(q).WithArgs(uint64(1)).
				WillReturnRows(sqlmock.NewRows([]string{"name", "parent_location_id"}).AddRow("Box", 2))
		} else {
			mock.ExpectQuery(q).WithArgs(uint64(2)).
				WillReturnRows(sqlmock.NewRows([]string{"name", "parent_location_id"}).AddRow("Shelf", 1))
		}
	}

	_, err := repo.ResolvePath(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCorruptHierarchy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolvePathJoinsRootToLeaf(t *testing.T) {
	repo, mock := newMockLocationRepo(t)

	q := regexp.QuoteMeta("SELECT name, parent_location_id FROM locations WHERE id = ?")
	mock.ExpectQuery(q).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "parent_location_id"}).AddRow("Shelf B", 2))
	mock.ExpectQuery(q).WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "parent_location_id"}).AddRow("Garage", 1))
	mock.ExpectQuery(q).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "parent_location_id"}).AddRow("Home", nil))

	path, err := repo.ResolvePath(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Home / Garage / Shelf B", path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRejectsCycleClosingParent(t *testing.T) {
	repo, mock := newMockLocationRepo(t)

	// Location 3 already sits under 2; reparenting 2 under 3 would
	// close the loop. No UPDATE may reach the database.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, space_id, name, parent_location_id")).
		WithArgs(uint64(2), uint64(1)).
		WillReturnRows(locationRow(2, 1, "Garage", nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM locations WHERE id = ? AND space_id = ?")).
		WithArgs(uint64(3), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT parent_location_id FROM locations WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"parent_location_id"}).AddRow(2))

	parent := uint64(3)
	err := repo.Update(context.Background(), 2, 1, UpdateLocationParams{SetParent: true, ParentID: &parent})
	assert.ErrorIs(t, err, ErrLocationCycle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	repo, mock := newMockLocationRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, space_id, name, parent_location_id")).
		WithArgs(uint64(2), uint64(1)).
		WillReturnRows(locationRow(2, 1, "Garage", nil))

	parent := uint64(2)
	err := repo.Update(context.Background(), 2, 1, UpdateLocationParams{SetParent: true, ParentID: &parent})
	assert.ErrorIs(t, err, ErrLocationCycle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationGetScopedToSpace(t *testing.T) {
	repo, mock := newMockLocationRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, space_id, name, parent_location_id")).
		WithArgs(uint64(7), uint64(2)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIDAndSpace(context.Background(), 7, 2)
	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationCreateMapsRacedParentDelete(t *testing.T) {
	repo, mock := newMockLocationRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM locations WHERE id = ? AND space_id = ?")).
		WithArgs(uint64(5), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO locations")).
		WillReturnError(errors.New("Error 1452 (23000): Cannot add or update a child row: a foreign key constraint fails (`inventory`.`locations`, CONSTRAINT `fk_locations_parent`)"))

	parent := uint64(5)
	loc := &model.Location{SpaceID: 1, Name: "Shelf", ParentID: &parent, LocationType: model.LocationTypeContainer, CreatedByID: 4}
	err := repo.Create(context.Background(), loc)
	assert.ErrorIs(t, err, ErrInvalidParent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// locationRow builds the full column set of a scoped location select.
func locationRow(id, spaceID uint64, name string, parent interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "space_id", "name", "parent_location_id", "location_type",
		"reference_id", "reference_type", "created_by_id", "created_at", "updated_at",
	}).AddRow(id, spaceID, name, parent, "ROOM", nil, nil, 4, now, now)
}

func TestNullableHelpers(t *testing.T) {
	assert.Nil(t, nullableID(sql.NullInt64{}))
	id := nullableID(sql.NullInt64{Int64: 7, Valid: true})
	if assert.NotNil(t, id) {
		assert.Equal(t, uint64(7), *id)
	}

	assert.Nil(t, nullableString(sql.NullString{}))
	s := nullableString(sql.NullString{String: "QR_CODE", Valid: true})
	if assert.NotNil(t, s) {
		assert.Equal(t, "QR_CODE", *s)
	}
}
