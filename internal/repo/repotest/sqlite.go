// Package repotest opens isolated in-memory sqlite databases carrying the
// booking schema so repository and service tests can run without Postgres.
package repotest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  external_subject TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  display_name TEXT,
  wedding_date DATE,
  claimed_guest_session TEXT,
  guest_session_merged_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS guest_counts (
  account_id TEXT PRIMARY KEY,
  value INTEGER NOT NULL DEFAULT 0,
  locked BOOLEAN NOT NULL DEFAULT 0,
  lock_reasons TEXT NOT NULL DEFAULT '{}',
  updated_at DATETIME NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS guest_count_change_requests (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  current_value INTEGER NOT NULL,
  requested_value INTEGER NOT NULL,
  note TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  reviewed_by TEXT,
  review_note TEXT,
  reviewed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS contracts (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  module TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'signed',
  plan_type TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  total_cents INTEGER NOT NULL,
  deposit_cents INTEGER NOT NULL,
  remaining_cents INTEGER NOT NULL,
  lead_days INTEGER NOT NULL,
  final_due_date DATETIME,
  installment_months INTEGER NOT NULL DEFAULT 0,
  per_installment_cents INTEGER NOT NULL DEFAULT 0,
  last_installment_cents INTEGER NOT NULL DEFAULT 0,
  next_charge_date DATETIME,
  plan_fingerprint TEXT NOT NULL,
  line_items TEXT NOT NULL DEFAULT '{}',
  signature_ref TEXT NOT NULL,
  signed_at DATETIME NOT NULL,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS charges (
  id TEXT PRIMARY KEY,
  contract_id TEXT NOT NULL,
  account_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  status TEXT NOT NULL DEFAULT 'pending',
  processor_payment_id TEXT UNIQUE,
  idempotency_key TEXT NOT NULL UNIQUE,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);
`

// Open returns a fresh database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:booking_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// Keep one connection so the shared in-memory database outlives pool churn.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
