package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/cellar-backend/pkg/migrate"
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

func TestItemsMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_items"), []string{
		"CREATE TABLE IF NOT EXISTS items",
		"CHECK (stock >= 0)",
		"CHECK (quantity_sold >= 0)",
		"retail_price numeric(8,2)",
		"REFERENCES users(id) ON DELETE SET NULL",
		"DROP TABLE IF EXISTS items",
	})
}

func TestSaleRecordsMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_sale_records"), []string{
		"CREATE TABLE IF NOT EXISTS sale_records",
		"CHECK (quantity_sold >= 0)",
		"CHECK (refunded_qty >= 0)",
		"CHECK (quantity_sold + refunded_qty > 0)",
		"REFERENCES items(id) ON DELETE RESTRICT",
		"DROP TABLE IF EXISTS sale_records",
	})
}

func TestAuditMigrationKeepsEntriesOnUserDelete(t *testing.T) {
	assertContains(t, readMigration(t, "create_audit_entries"), []string{
		"CREATE TABLE IF NOT EXISTS audit_entries",
		"user_id uuid NULL",
		"REFERENCES users(id) ON DELETE SET NULL",
	})
}

func TestReferenceMigrationSeedsVocabularies(t *testing.T) {
	assertContains(t, readMigration(t, "create_reference_tables"), []string{
		"CONSTRAINT uq_regions_country_region UNIQUE (country, region)",
		"('off-dry', 'medium')",
		"('rose')",
	})
}

func TestValidateDirAcceptsRepoMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Tasting Notes!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_tasting_notes.sql") {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestValidateDirRequiresStockGuards(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\nCREATE TABLE items (\n    id bigserial PRIMARY KEY,\n    stock integer NOT NULL,\n" +
		"    quantity_sold integer NOT NULL,\n    CHECK (quantity_sold >= 0)\n);\n-- +goose Down\nDROP TABLE items;\n"
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_items.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "stock >= 0") {
		t.Fatalf("expected missing stock guard error, got %v", err)
	}
}

func TestCreateSQLMigrationSortsAfterExisting(t *testing.T) {
	dir := t.TempDir()
	future := "29991231235959_later.sql"
	if err := os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	path, err := migrate.CreateSQLMigration(dir, "next")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := filepath.Base(path); got != "30000101000000_next.sql" {
		t.Fatalf("expected version after existing migration, got %s", got)
	}
}
