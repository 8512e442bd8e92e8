package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wedanddone/wedanddone-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("migration missing %q", check)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestGuestCountMigrationEnforcesLatch(t *testing.T) {
	content := readMigration(t, "create_accounts_and_guest_counts")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS guest_counts",
		"lock_reasons text[] NOT NULL DEFAULT '{}'",
		"CHECK (value >= 0 AND value <= 250)",
		"CHECK (locked = (cardinality(lock_reasons) > 0))",
		"ux_accounts_claimed_guest_session",
		"DROP TABLE IF EXISTS guest_counts",
	})
}

func TestContractsMigrationKeepsPlanConsistent(t *testing.T) {
	content := readMigration(t, "create_contracts_and_charges")
	assertContains(t, content, []string{
		"deposit_cents + remaining_cents = total_cents",
		"ux_contracts_active_module",
		"idempotency_key text NOT NULL UNIQUE",
		"DROP TABLE IF EXISTS charges",
	})
}

func TestOutboxMigrationIndexesUnpublished(t *testing.T) {
	content := readMigration(t, "create_outbox")
	assertContains(t, content, []string{
		"WHERE published_at IS NULL",
		"ux_outbox_events_once",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"payload_json jsonb NOT NULL",
	})
}

func TestEnumMigrationMatchesEventTypes(t *testing.T) {
	content := readMigration(t, "create_booking_enums")
	assertContains(t, content, []string{
		"'guest_count_locked'",
		"'guest_session_claimed'",
		"'contract_paid'",
		"CREATE TYPE boutique_module AS ENUM",
	})
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.Validate(migrate.Files()); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	embedded, err := fs.Glob(migrate.Files(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(embedded) != len(onDisk) {
		t.Fatalf("embedded %d migrations, disk has %d", len(embedded), len(onDisk))
	}
}

func TestScaffoldSlugsName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, time.October, 15, 8, 4, 5, 0, time.UTC)
	path, err := migrate.Scaffold(dir, "Add Reminder Flags!", now)
	if err != nil {
		t.Fatalf("scaffold migration: %v", err)
	}
	if filepath.Base(path) != "20261015080405_add_reminder_flags.sql" {
		t.Fatalf("unexpected filename %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("scaffolded migration should validate: %v", err)
	}
	if _, err := migrate.Scaffold(dir, "Add Reminder Flags!", now); err == nil {
		t.Fatalf("expected error when the version already exists")
	}
	if _, err := migrate.Scaffold(dir, "!!!", now); err == nil {
		t.Fatalf("expected error for empty slug")
	}
}

func TestValidateRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\nSELECT 1;\n"
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_only_up.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil || !strings.Contains(err.Error(), "+goose Down") {
		t.Fatalf("expected missing down marker error, got %v", err)
	}
}
