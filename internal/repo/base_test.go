package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/angelmondragon/cellar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	"gorm.io/gorm"
)

func TestBaseRebindUsesTransaction(t *testing.T) {
	client := dbtest.New(t)
	base := NewBase(client.DB())
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		bound := base.Rebind(tx)
		if err := bound.DB(ctx).Create(&models.Appellation{Name: "Margaux"}).Error; err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	if err == nil {
		t.Fatal("expected abort error")
	}

	var count int64
	if err := base.DB(ctx).Model(&models.Appellation{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback through rebound base, found %d rows", count)
	}
	if same := base.Rebind(nil); same.db != base.db {
		t.Fatal("nil tx should keep the original handle")
	}
}

func TestIsNotFound(t *testing.T) {
	client := dbtest.New(t)
	var user models.User
	err := NewBase(client.DB()).DB(context.Background()).First(&user, "role = ?", enums.RoleAdmin).Error
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if IsNotFound(nil) {
		t.Fatal("nil is not a not-found error")
	}
}
