package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutboxMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_outbox.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no outbox migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"payload JSONB NOT NULL",
		"attempt_count INTEGER NOT NULL DEFAULT 0",
		"idx_outbox_events_unpublished",
		"WHERE published_at IS NULL",
		"DROP TABLE IF EXISTS outbox_events",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDLQMigrationContainsErrorReason(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_outbox_dlq.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no outbox dlq migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"outbox_dlq_error_reason_enum",
		"'max_attempts', 'non_retryable'",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_outbox_dlq_event_id",
		"DROP TABLE IF EXISTS outbox_dlq",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationFilenamesAreValid(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("migrations directory is empty")
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			t.Errorf("unexpected non-sql file %q", name)
		}
	}
}
