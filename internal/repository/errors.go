// Package repository defines error values and helpers that are reused
// across multiple repositories. The sentinel values let handlers
// distinguish failure scenarios without string matching: scoped
// lookups that miss report the entity-specific not-found sentinel,
// uniqueness violations surface as duplicate sentinels, and broken
// cross-references surface as invalid-reference sentinels.
package repository

import (
	"errors"
	"strings"
)

// ErrConflict is returned when an operation cannot proceed because of
// conflicting domain state, such as removing a space owner from their
// own space. Handlers should translate this into an HTTP 400 response
// with a conflict code.
var ErrConflict = errors.New("conflict")

// isDup reports whether err is a MySQL duplicate-key violation
// (errno 1062). Repositories use it to map unique-constraint failures
// onto their duplicate sentinels.
func isDup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

// isFKViolation reports whether err is a MySQL foreign-key failure on
// insert or update (errno 1452).
func isFKViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1452")
}

// isRowReferenced reports whether err is a MySQL restrict failure on
// delete (errno 1451): the row is still referenced by dependent rows.
func isRowReferenced(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1451")
}
