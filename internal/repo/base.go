// Package repo holds the pieces every GORM repository shares.
package repo

import (
	"context"

	"gorm.io/gorm"

	dbpkg "github.com/wedanddone/wedanddone-backend/pkg/db"
)

// Base binds a repository to its connection.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the connection to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// First loads the single row matching query. A miss surfaces as
// gorm.ErrRecordNotFound so callers can map it with errors.Is.
func First[T any](db *gorm.DB, query any, args ...any) (*T, error) {
	var row T
	if err := db.Where(query, args...).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Locked is First under SELECT ... FOR UPDATE on postgres.
func Locked[T any](tx *gorm.DB, query any, args ...any) (*T, error) {
	return First[T](dbpkg.ForUpdate(tx), query, args...)
}
