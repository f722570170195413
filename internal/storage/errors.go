package storage

import (
	"errors"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Sentinel errors returned by the store. Handlers match on these instead of
// inspecting driver error codes.
var (
	// ErrNotFound indicates the requested row (or a row referenced by a
	// write) does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a uniqueness violation, e.g. a duplicate
	// category or funding source name.
	ErrConflict = errors.New("record already exists")

	// ErrIntegrity indicates a delete was blocked by referencing rows.
	ErrIntegrity = errors.New("record is referenced by existing rows")
)

// mapConstraintErr translates sqlite constraint violations into sentinels.
// onFK decides what a foreign-key violation means for the operation at hand:
// a missing referenced row on insert/update (ErrNotFound) or a blocked
// delete (ErrIntegrity).
func mapConstraintErr(err error, onFK error) error {
	if err == nil {
		return nil
	}
	var serr *sqlite3.Error
	if !errors.As(err, &serr) {
		return err
	}
	switch serr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return ErrConflict
	case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3lib.SQLITE_CONSTRAINT_TRIGGER:
		return onFK
	}
	return err
}
