package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/evacurves/store-backend/pkg/migrate"
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
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInventoryEntriesMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_inventory_entries"), []string{
		"CREATE TABLE IF NOT EXISTS inventory_entries",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CHECK (quantity >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_entries_variant",
		"DROP TABLE IF EXISTS inventory_entries",
	})
}

func TestInventoryHistoryMigrationIsNotCascaded(t *testing.T) {
	content := readMigration(t, "create_inventory_history")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS inventory_history",
		"CHECK (quantity >= 0)",
		"CHECK (type IN ('increase', 'decrease', 'update'))",
	})
	if strings.Contains(content, "REFERENCES products") {
		t.Errorf("history must not reference products")
	}
}

func TestOrdersMigrationContainsUniqueNumber(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number",
		"CHECK (payment_method IN ('card', 'cod'))",
	})
}

func TestProductsMigrationContainsAggregate(t *testing.T) {
	assertContains(t, readMigration(t, "create_products"), []string{
		"CREATE TABLE IF NOT EXISTS products",
		"stock integer NOT NULL DEFAULT 0 CHECK (stock >= 0)",
		"stock_version bigint NOT NULL DEFAULT 0",
	})
}

func TestValidateAcceptsEmbeddedMigrations(t *testing.T) {
	if err := migrate.Validate(migrate.Migrations()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsBrokenFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {"create_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
		"no down":  {"20260101000000_things.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"unbalanced": {"20260101000000_things.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")}},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if err := migrate.Validate(fsys); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!", now)
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if filepath.Base(path) != "20260302093000_add_order_notes.sql" {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add order notes", now); err == nil {
		t.Fatalf("expected existing migration to be refused")
	}
}
