package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/cellar-backend/internal/repo"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists items and the reference tables they point at.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateItem(ctx context.Context, item *models.Item) error
	FindItem(ctx context.Context, id int64) (*models.Item, error)
	LockItem(ctx context.Context, id int64) (*models.Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error)
	UpdateItemAttributes(ctx context.Context, id int64, updates map[string]any) error
	DeleteItem(ctx context.Context, id int64) error
	CountSaleRecords(ctx context.Context, itemID int64) (int64, error)

	CreateRegion(ctx context.Context, region *models.Region) error
	ListRegions(ctx context.Context) ([]models.Region, error)
	CreateWineType(ctx context.Context, wineType *models.WineType) error
	ListWineTypes(ctx context.Context) ([]models.WineType, error)
	CreateWineStyle(ctx context.Context, style *models.WineStyle) error
	ListWineStyles(ctx context.Context) ([]models.WineStyle, error)
	CreateAppellation(ctx context.Context, appellation *models.Appellation) error
	ListAppellations(ctx context.Context) ([]models.Appellation, error)
	ReferencesExist(ctx context.Context, refs ItemReferences) (bool, error)
}

// ItemFilter narrows ListItems. Rows come back by descending id.
type ItemFilter struct {
	Search   string
	BeforeID int64
	Limit    int
}

// ItemReferences names the reference rows an item points at.
type ItemReferences struct {
	RegionID      int64
	WineTypeID    int64
	StyleID       int64
	AppellationID int64
}

type repository struct {
	repo.Base
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) withReferences(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Preload("Region").
		Preload("WineType").
		Preload("Style").
		Preload("Appellation")
}

func (r *repository) CreateItem(ctx context.Context, item *models.Item) error {
	return r.DB(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *repository) FindItem(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	if err := r.withReferences(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) LockItem(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	query := r.withReferences(ctx).Order("id DESC")
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if filter.BeforeID > 0 {
		query = query.Where("id < ?", filter.BeforeID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var items []models.Item
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateItemAttributes(ctx context.Context, id int64, updates map[string]any) error {
	res := r.DB(ctx).Model(&models.Item{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, id int64) error {
	return r.DB(ctx).Delete(&models.Item{}, "id = ?", id).Error
}

func (r *repository) CountSaleRecords(ctx context.Context, itemID int64) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.SaleRecord{}).Where("item_id = ?", itemID).Count(&count).Error
	return count, err
}

func (r *repository) CreateRegion(ctx context.Context, region *models.Region) error {
	return r.DB(ctx).Create(region).Error
}

func (r *repository) ListRegions(ctx context.Context) ([]models.Region, error) {
	var rows []models.Region
	err := r.DB(ctx).Order("country ASC, region ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) CreateWineType(ctx context.Context, wineType *models.WineType) error {
	return r.DB(ctx).Create(wineType).Error
}

func (r *repository) ListWineTypes(ctx context.Context) ([]models.WineType, error) {
	var rows []models.WineType
	err := r.DB(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) CreateWineStyle(ctx context.Context, style *models.WineStyle) error {
	return r.DB(ctx).Create(style).Error
}

func (r *repository) ListWineStyles(ctx context.Context) ([]models.WineStyle, error) {
	var rows []models.WineStyle
	err := r.DB(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) CreateAppellation(ctx context.Context, appellation *models.Appellation) error {
	return r.DB(ctx).Create(appellation).Error
}

func (r *repository) ListAppellations(ctx context.Context) ([]models.Appellation, error) {
	var rows []models.Appellation
	err := r.DB(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) ReferencesExist(ctx context.Context, refs ItemReferences) (bool, error) {
	checks := []struct {
		model any
		id    int64
	}{
		{&models.Region{}, refs.RegionID},
		{&models.WineType{}, refs.WineTypeID},
		{&models.WineStyle{}, refs.StyleID},
		{&models.Appellation{}, refs.AppellationID},
	}
	for _, check := range checks {
		var count int64
		if err := r.DB(ctx).Model(check.model).Where("id = ?", check.id).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, nil
		}
	}
	return true, nil
}
