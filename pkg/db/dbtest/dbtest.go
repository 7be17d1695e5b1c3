// Package dbtest opens throwaway SQLite databases shaped like production.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/cellar-backend/pkg/config"
	"github.com/angelmondragon/cellar-backend/pkg/db"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// New returns a migrated client backed by a file in the test's temp dir.
func New(t testing.TB) *db.Client {
	t.Helper()
	ctx := context.Background()
	client, err := db.New(ctx, config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "cellar.db") + "?_busy_timeout=5000",
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return client
}

// CreateUser inserts an active user with the given role.
func CreateUser(t testing.TB, client *db.Client, username string, role enums.Role) models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: "unused",
		Role:         role,
		IsActive:     true,
	}
	if err := client.DB().Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// ItemSpec describes the fields a test cares about when seeding an item.
type ItemSpec struct {
	Name         string
	Stock        int
	QuantitySold int
	RetailPrice  string
	UnitCost     string
}

// CreateItem inserts an item together with the reference rows it points at.
func CreateItem(t testing.TB, client *db.Client, spec ItemSpec) models.Item {
	t.Helper()
	conn := client.DB()

	region := models.Region{Country: "France", Region: "Bordeaux " + uuid.NewString()[:8]}
	wineType := models.WineType{Type: enums.WineTypeRed}
	style := models.WineStyle{Sweetness: enums.SweetnessDry, Body: enums.WineBodyFull}
	appellation := models.Appellation{Name: "Pauillac " + uuid.NewString()[:8]}

	if err := conn.Create(&region).Error; err != nil {
		t.Fatalf("create region: %v", err)
	}
	if err := conn.Where(models.WineType{Type: wineType.Type}).FirstOrCreate(&wineType).Error; err != nil {
		t.Fatalf("create wine type: %v", err)
	}
	if err := conn.Where(models.WineStyle{Sweetness: style.Sweetness, Body: style.Body}).FirstOrCreate(&style).Error; err != nil {
		t.Fatalf("create style: %v", err)
	}
	if err := conn.Create(&appellation).Error; err != nil {
		t.Fatalf("create appellation: %v", err)
	}

	name := spec.Name
	if name == "" {
		name = "Chateau Test"
	}
	item := models.Item{
		Name:          name,
		Vintage:       2015,
		RegionID:      region.ID,
		WineTypeID:    wineType.ID,
		StyleID:       style.ID,
		AppellationID: appellation.ID,
		Stock:         spec.Stock,
		QuantitySold:  spec.QuantitySold,
		UnitCost:      nullDecimal(t, spec.UnitCost),
		RetailPrice:   nullDecimal(t, spec.RetailPrice),
	}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

// ReloadItem fetches the current row for id.
func ReloadItem(t testing.TB, client *db.Client, id int64) models.Item {
	t.Helper()
	var item models.Item
	if err := client.DB().First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("reload item %d: %v", id, err)
	}
	return item
}

// CountAudit returns the number of audit entries with the given action.
func CountAudit(t testing.TB, client *db.Client, action enums.AuditAction) int64 {
	t.Helper()
	var count int64
	if err := client.DB().Model(&models.AuditEntry{}).Where("action = ?", action).Count(&count).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	return count
}

func nullDecimal(t testing.TB, raw string) decimal.NullDecimal {
	t.Helper()
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", raw, err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
