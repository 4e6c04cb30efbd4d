package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockMovementRepo(t *testing.T) (*MovementRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMovementRepo(db), mock
}

var movementCols = []string{
	"id", "notes", "moved_at",
	"item_id", "item_name", "from_id", "from_name", "to_id", "to_name", "member_id", "member_name",
}

func TestListByItemNewestFirstChained(t *testing.T) {
	repo, mock := newMockMovementRepo(t)

	later := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)
	rows := sqlmock.NewRows(movementCols).
		AddRow(12, "into the attic", later, 7, "Drill", 2, "Garage", 3, "Attic", 4, "Dana").
		AddRow(11, nil, earlier, 7, "Drill", nil, nil, 2, "Garage", nil, nil)

	// The expectation pins the ordering clause, so a query that stops
	// sorting newest first fails here.
	mock.ExpectQuery(regexp.QuoteMeta("WHERE mh.item_id = ?\nORDER BY mh.moved_at DESC, mh.id DESC")).
		WithArgs(uint64(7), 50, 0).
		WillReturnRows(rows)

	out, err := repo.ListByItem(context.Background(), 7, 50, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, uint64(12), out[0].ID)
	assert.True(t, out[0].MovedAt.After(out[1].MovedAt))

	// Consecutive rows chain: the older row's destination is the newer
	// row's origin.
	require.NotNil(t, out[0].FromLocation)
	require.NotNil(t, out[1].ToLocation)
	assert.Equal(t, out[1].ToLocation.ID, out[0].FromLocation.ID)

	// Deleted entities stay on the ledger with nil references.
	assert.Nil(t, out[1].FromLocation)
	assert.Nil(t, out[1].MovedBy)
	assert.Nil(t, out[1].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBySpaceAppliesOrderingAndFilters(t *testing.T) {
	repo, mock := newMockMovementRepo(t)

	loc := uint64(2)
	member := uint64(4)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE i.space_id = ? AND (mh.from_location_id = ? OR mh.to_location_id = ?) AND mh.moved_by_id = ?\nORDER BY mh.moved_at DESC, mh.id DESC")).
		WithArgs(uint64(1), loc, loc, member, 50, 0).
		WillReturnRows(sqlmock.NewRows(movementCols))

	out, err := repo.ListBySpace(context.Background(), 1, MovementFilter{LocationID: &loc, MemberID: &member}, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpaceHistoryWhere(t *testing.T) {
	loc := uint64(2)
	member := uint64(4)

	where, args := spaceHistoryWhere(1, MovementFilter{})
	assert.Equal(t, "WHERE i.space_id = ?", where)
	assert.Equal(t, []interface{}{uint64(1)}, args)

	where, args = spaceHistoryWhere(1, MovementFilter{LocationID: &loc, MemberID: &member})
	assert.Equal(t,
		"WHERE i.space_id = ? AND (mh.from_location_id = ? OR mh.to_location_id = ?) AND mh.moved_by_id = ?",
		where)
	assert.Equal(t, []interface{}{uint64(1), loc, loc, member}, args)
}
