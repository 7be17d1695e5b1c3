package ledger

import (
	"context"
	"time"

	"github.com/angelmondragon/cellar-backend/internal/repo"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages the rows a ledger operation touches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	LockItem(ctx context.Context, id int64) (*models.Item, error)
	LockSaleRecord(ctx context.Context, id int64) (*models.SaleRecord, error)
	FindItem(ctx context.Context, id int64) (*models.Item, error)
	FindSaleRecord(ctx context.Context, id int64) (*models.SaleRecord, error)

	DecrementStock(ctx context.Context, itemID int64, qty int, at time.Time) (bool, error)
	IncrementStock(ctx context.Context, itemID int64, qty int, at time.Time) error
	ReverseSale(ctx context.Context, itemID int64, qty int, restock bool, at time.Time) (bool, error)
	ApplyRefund(ctx context.Context, saleID int64, qty int) (bool, error)
	CreateSaleRecord(ctx context.Context, record *models.SaleRecord) error
	ListSaleRecords(ctx context.Context, filter SaleFilter) ([]models.SaleRecord, error)
}

// SaleFilter narrows ListSaleRecords. Rows come back by descending id.
type SaleFilter struct {
	ItemID   int64
	Since    *time.Time
	BeforeID int64
	Limit    int
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
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

func (r *repository) LockSaleRecord(ctx context.Context, id int64) (*models.SaleRecord, error) {
	var record models.SaleRecord
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindItem(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	if err := r.DB(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindSaleRecord(ctx context.Context, id int64) (*models.SaleRecord, error) {
	var record models.SaleRecord
	if err := r.DB(ctx).
		Preload("Item").
		Preload("User").
		First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// DecrementStock takes qty bottles off the shelf. It reports false when the guard rejects the update.
func (r *repository) DecrementStock(ctx context.Context, itemID int64, qty int, at time.Time) (bool, error) {
	res := r.DB(ctx).Exec(`
		UPDATE items
		SET stock = stock - ?,
			quantity_sold = quantity_sold + ?,
			updated_at = ?
		WHERE id = ? AND stock >= ?
	`, qty, qty, at, itemID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) IncrementStock(ctx context.Context, itemID int64, qty int, at time.Time) error {
	res := r.DB(ctx).Exec(`
		UPDATE items
		SET stock = stock + ?,
			updated_at = ?
		WHERE id = ?
	`, qty, at, itemID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReverseSale lowers the sold counter and optionally puts the bottles back on the shelf.
func (r *repository) ReverseSale(ctx context.Context, itemID int64, qty int, restock bool, at time.Time) (bool, error) {
	stockDelta := 0
	if restock {
		stockDelta = qty
	}
	res := r.DB(ctx).Exec(`
		UPDATE items
		SET quantity_sold = quantity_sold - ?,
			stock = stock + ?,
			updated_at = ?
		WHERE id = ? AND quantity_sold >= ?
	`, qty, stockDelta, at, itemID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ApplyRefund(ctx context.Context, saleID int64, qty int) (bool, error) {
	res := r.DB(ctx).Exec(`
		UPDATE sale_records
		SET quantity_sold = quantity_sold - ?,
			refunded_qty = refunded_qty + ?
		WHERE id = ? AND quantity_sold >= ?
	`, qty, qty, saleID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateSaleRecord(ctx context.Context, record *models.SaleRecord) error {
	return r.DB(ctx).Omit(clause.Associations).Create(record).Error
}

func (r *repository) ListSaleRecords(ctx context.Context, filter SaleFilter) ([]models.SaleRecord, error) {
	query := r.DB(ctx).
		Preload("Item").
		Preload("User").
		Order("id DESC")
	if filter.ItemID > 0 {
		query = query.Where("item_id = ?", filter.ItemID)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", filter.Since.UTC())
	}
	if filter.BeforeID > 0 {
		query = query.Where("id < ?", filter.BeforeID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var records []models.SaleRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
