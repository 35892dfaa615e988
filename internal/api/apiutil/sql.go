package apiutil

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// IsSQLiteConstraintViolation reports whether err is a CHECK, NOT NULL,
// UNIQUE or foreign key failure.
func IsSQLiteConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrConstraint
}

func IsSQLiteForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
