package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMySQLErrorClassifiers(t *testing.T) {
	dup := errors.New("Error 1062 (23000): Duplicate entry 'a@b.c' for key 'members.uq_members_email'")
	fk := errors.New("Error 1452 (23000): Cannot add or update a child row: a foreign key constraint fails")
	restrict := errors.New("Error 1451 (23000): Cannot delete or update a parent row: a foreign key constraint fails")

	assert.True(t, isDup(dup))
	assert.False(t, isDup(fk))
	assert.False(t, isDup(nil))

	assert.True(t, isFKViolation(fk))
	assert.False(t, isFKViolation(restrict))
	assert.False(t, isFKViolation(nil))

	assert.True(t, isRowReferenced(restrict))
	assert.False(t, isRowReferenced(dup))
	assert.False(t, isRowReferenced(nil))
}
