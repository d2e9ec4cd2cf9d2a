package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q found", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestOrderGroupsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_order_groups.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS order_groups",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_order_groups_ref",
		"CREATE TABLE IF NOT EXISTS order_line_items",
		"CHECK (quantity > 0)",
		"FOREIGN KEY (order_group_id) REFERENCES order_groups(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS order_line_items",
		"DROP TABLE IF EXISTS order_groups",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestStockMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_medicines_stock.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS stock_entries",
		"CHECK (quantity >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_stock_entries_medicine",
		"DROP TABLE IF EXISTS stock_entries",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDeliveriesMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_deliveries.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS deliveries",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_deliveries_group",
		"DROP TABLE IF EXISTS deliveries",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_outbox.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"DROP TABLE IF EXISTS outbox_dlq",
		"DROP TABLE IF EXISTS outbox_events",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
