package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

// SourceDir is where new migrations are scaffolded, relative to the repo root.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Files exposes the migrations compiled into the binary.
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrator applies the embedded booking schema. The SQL relies on postgres
// enums and partial indexes, so only the postgres dialect is supported.
type Migrator struct {
	provider *goose.Provider
}

func New(db *sql.DB) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, Files())
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Up applies every pending migration and returns the versions it ran.
func (m *Migrator) Up(ctx context.Context) ([]int64, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return appliedVersions(results), nil
}

// Down rolls back the latest applied migration.
func (m *Migrator) Down(ctx context.Context) (int64, error) {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose down: %w", err)
	}
	return result.Source.Version, nil
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	return statuses, nil
}

// To moves the schema up or down until target is the current version.
func (m *Migrator) To(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current < version:
		_, err = m.provider.UpTo(ctx, version)
	case current > version:
		_, err = m.provider.DownTo(ctx, version)
	}
	if err != nil {
		return fmt.Errorf("migrate to %d: %w", version, err)
	}
	return nil
}

func appliedVersions(results []*goose.MigrationResult) []int64 {
	versions := make([]int64, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		versions = append(versions, res.Source.Version)
	}
	return versions
}
