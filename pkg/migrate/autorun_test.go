package migrate_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/cellar-backend/pkg/config"
	"github.com/angelmondragon/cellar-backend/pkg/db"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/migrate"
)

func TestAutoMigrateModelsSeedsVocabulariesOnce(t *testing.T) {
	ctx := context.Background()
	client, err := db.New(ctx, config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "migrate.db"),
	}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	for i := 0; i < 2; i++ {
		if err := migrate.AutoMigrateModels(ctx, client); err != nil {
			t.Fatalf("auto-migrate pass %d: %v", i, err)
		}
	}

	var types, styles int64
	if err := client.DB().Model(&models.WineType{}).Count(&types).Error; err != nil {
		t.Fatalf("count types: %v", err)
	}
	if err := client.DB().Model(&models.WineStyle{}).Count(&styles).Error; err != nil {
		t.Fatalf("count styles: %v", err)
	}
	if types != 6 || styles != 9 {
		t.Fatalf("expected 6 types and 9 styles, got %d/%d", types, styles)
	}
}

func TestDialect(t *testing.T) {
	if got := migrate.Dialect(config.DBConfig{Driver: config.DriverSQLite}); got != "sqlite3" {
		t.Fatalf("expected sqlite3, got %s", got)
	}
	if got := migrate.Dialect(config.DBConfig{Driver: config.DriverPostgres}); got != "postgres" {
		t.Fatalf("expected postgres, got %s", got)
	}
}
