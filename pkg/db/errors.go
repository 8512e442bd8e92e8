package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
)

const sqlStateUniqueViolation = "23505"

// IsUniqueViolation reports a unique constraint failure, optionally on the
// named constraint. Postgres errors are matched on SQLSTATE; sqlite only
// reports through the message text.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.Postgres(err); ok {
		return pg.Code == sqlStateUniqueViolation && (constraint == "" || pg.Constraint == constraint)
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraint == "" || strings.Contains(msg, constraint)
}

// IsNotFound reports whether err is GORM's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
