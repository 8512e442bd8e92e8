package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "doomed"}).Error; err != nil {
				return err
			}
			panic("mid-transaction")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Where("name = ?", "doomed").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("panicking transaction left %d rows", count)
	}
}

func TestDialectorFor(t *testing.T) {
	if _, err := dialectorFor(config.DBConfig{Driver: DriverPostgres}); err == nil {
		t.Fatal("expected missing DSN to fail")
	}
	if _, err := dialectorFor(config.DBConfig{DSN: "x", Driver: "mysql"}); err == nil {
		t.Fatal("expected unsupported driver to fail")
	}
	d, err := dialectorFor(config.DBConfig{DSN: "file::memory:", Driver: DriverSQLite})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name() != DriverSQLite {
		t.Fatalf("expected sqlite dialector, got %s", d.Name())
	}
	d, err = dialectorFor(config.DBConfig{DSN: "postgres://localhost/wed"})
	if err != nil || d.Name() != DriverPostgres {
		t.Fatalf("empty driver should default to postgres, got %v %v", d, err)
	}
}

func TestForUpdateSkipsSQLite(t *testing.T) {
	db := newTestDB(t)
	locked := ForUpdate(db.Session(&gorm.Session{DryRun: true}))
	stmt := locked.Find(&[]testModel{}).Statement
	if got := stmt.SQL.String(); strings.Contains(got, "FOR UPDATE") {
		t.Fatalf("sqlite query should not carry a row lock: %s", got)
	}
}

func TestErrorHelpers(t *testing.T) {
	if !IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)) {
		t.Fatal("expected wrapped not found to be detected")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatal("unexpected not found match")
	}
	if !IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "ux_charges_contract"`), "ux_charges_contract") {
		t.Fatal("expected named constraint match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: charges.contract_id"), "") {
		t.Fatal("expected sqlite unique violation match")
	}
	pgErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_outbox_events_once"})
	if !IsUniqueViolation(pgErr, "ux_outbox_events_once") {
		t.Fatal("expected SQLSTATE match")
	}
	if IsUniqueViolation(pgErr, "ux_charges_contract") {
		t.Fatal("constraint name must match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("foreign key violation is not a unique violation")
	}
}
