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

func newMockItemRepo(t *testing.T) (*ItemRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewItemRepo(db, NewLocationRepo(db)), mock
}

// itemRow builds the full column set of an item select.
func itemRow(locationID, movedBy uint64, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"space_id", "name", "description", "quantity", "image_url", "location_id",
		"reference_id", "reference_type", "created_by_id", "last_moved_by_id", "created_at", "updated_at",
	}).AddRow(1, "Drill", nil, 1, nil, locationID, nil, nil, 4, movedBy, now, now)
}

func TestMoveCommitsRelocationAndLedgerTogether(t *testing.T) {
	repo, mock := newMockItemRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT location_id FROM items WHERE id = ? AND space_id = ? FOR UPDATE")).
		WithArgs(uint64(10), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"location_id"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM locations WHERE id = ? AND space_id = ?")).
		WithArgs(uint64(8), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE items SET location_id = ?, last_moved_by_id = ?")).
		WithArgs(uint64(8), uint64(4), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movement_history")).
		WithArgs(uint64(10), uint64(5), uint64(8), uint64(4), nil).
		WillReturnResult(sqlmock.NewResult(99, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT space_id, name, description")).
		WillReturnRows(itemRow(8, 4, now))
	mock.ExpectCommit()

	it, from, err := repo.Move(context.Background(), 10, 1, 8, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), from)
	assert.Equal(t, uint64(8), it.LocationID)
	if assert.NotNil(t, it.LastMovedByID) {
		assert.Equal(t, uint64(4), *it.LastMovedByID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveRollsBackWhenLedgerAppendFails(t *testing.T) {
	repo, mock := newMockItemRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT location_id FROM items WHERE id = ? AND space_id = ? FOR UPDATE")).
		WithArgs(uint64(10), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"location_id"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM locations WHERE id = ? AND space_id = ?")).
		WithArgs(uint64(8), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE items SET location_id = ?, last_moved_by_id = ?")).
		WithArgs(uint64(8), uint64(4), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The item update has already run inside the transaction; a failed
	// ledger append must take it down too.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movement_history")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, _, err := repo.Move(context.Background(), 10, 1, 8, 4, nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveScopedMisses(t *testing.T) {
	t.Run("item outside space", func(t *testing.T) {
		repo, mock := newMockItemRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT location_id FROM items WHERE id = ? AND space_id = ? FOR UPDATE")).
			WithArgs(uint64(10), uint64(2)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, _, err := repo.Move(context.Background(), 10, 2, 8, 4, nil)
		assert.ErrorIs(t, err, ErrItemNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("destination outside space", func(t *testing.T) {
		repo, mock := newMockItemRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT location_id FROM items WHERE id = ? AND space_id = ? FOR UPDATE")).
			WithArgs(uint64(10), uint64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"location_id"}).AddRow(5))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM locations WHERE id = ? AND space_id = ?")).
			WithArgs(uint64(99), uint64(1)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, _, err := repo.Move(context.Background(), 10, 1, 99, 4, nil)
		assert.ErrorIs(t, err, ErrInvalidLocation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestItemGetScopedToSpace(t *testing.T) {
	repo, mock := newMockItemRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM items WHERE id = ? AND space_id = ?")).
		WithArgs(uint64(10), uint64(2)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIDAndSpace(context.Background(), 10, 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemCreateMapsRacedLocationDelete(t *testing.T) {
	repo, mock := newMockItemRepo(t)

	// Pre-check passes, then the location is gone by insert time and
	// the FK fires.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM locations WHERE id = ? AND space_id = ?")).
		WithArgs(uint64(8), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO items")).
		WillReturnError(errors.New("Error 1452 (23000): Cannot add or update a child row: a foreign key constraint fails (`inventory`.`items`, CONSTRAINT `fk_items_location`)"))

	it := &model.Item{SpaceID: 1, Name: "Drill", Quantity: 1, LocationID: 8, CreatedByID: 4}
	err := repo.Create(context.Background(), it)
	assert.ErrorIs(t, err, ErrInvalidLocation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
