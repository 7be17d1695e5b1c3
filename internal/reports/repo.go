package reports

import (
	"context"
	"time"

	"github.com/angelmondragon/cellar-backend/internal/repo"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository reads the aggregates behind the reports. It never locks or writes.
type Repository interface {
	TopSelling(ctx context.Context) (*models.Item, error)
	LeastSelling(ctx context.Context, limit int) ([]models.Item, error)
	Unsold(ctx context.Context) ([]models.Item, error)
	LowStock(ctx context.Context, threshold int) ([]models.Item, error)
	SaleLines(ctx context.Context, filter SaleLineFilter) ([]SaleLine, error)
	CounterDrift(ctx context.Context) ([]DriftRow, error)
}

// SaleLineFilter narrows SaleLines.
type SaleLineFilter struct {
	ItemID int64
	Since  *time.Time
}

// SaleLine is a sale record joined with the price of its item and the seller's name.
type SaleLine struct {
	SaleID       int64
	ItemID       int64
	UserID       uuid.UUID
	Username     *string
	QuantitySold int
	RetailPrice  decimal.NullDecimal
	CreatedAt    time.Time
}

// Revenue is the outstanding quantity at the item's current retail price.
func (l SaleLine) Revenue() decimal.Decimal {
	if !l.RetailPrice.Valid {
		return decimal.Zero
	}
	return l.RetailPrice.Decimal.Mul(decimal.NewFromInt(int64(l.QuantitySold)))
}

// DriftRow is an item whose counters disagree with its sale records.
type DriftRow struct {
	ItemID       int64
	Name         string
	Stock        int
	QuantitySold int
	RecordedSold int
}

type repository struct {
	repo.Base
}

// NewRepository returns a reports repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) TopSelling(ctx context.Context) (*models.Item, error) {
	var item models.Item
	if err := r.DB(ctx).
		Order("quantity_sold DESC, id ASC").
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) LeastSelling(ctx context.Context, limit int) ([]models.Item, error) {
	var items []models.Item
	if err := r.DB(ctx).
		Order("quantity_sold ASC, id ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Unsold(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := r.DB(ctx).
		Where("quantity_sold = 0").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) LowStock(ctx context.Context, threshold int) ([]models.Item, error) {
	var items []models.Item
	if err := r.DB(ctx).
		Where("stock <= ?", threshold).
		Order("stock ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) SaleLines(ctx context.Context, filter SaleLineFilter) ([]SaleLine, error) {
	query := r.DB(ctx).
		Table("sale_records").
		Select(`sale_records.id AS sale_id,
			sale_records.item_id,
			sale_records.user_id,
			users.username,
			sale_records.quantity_sold,
			items.retail_price,
			sale_records.created_at`).
		Joins("JOIN items ON items.id = sale_records.item_id").
		Joins("LEFT JOIN users ON users.id = sale_records.user_id").
		Order("sale_records.id ASC")
	if filter.ItemID > 0 {
		query = query.Where("sale_records.item_id = ?", filter.ItemID)
	}
	if filter.Since != nil {
		query = query.Where("sale_records.created_at >= ?", filter.Since.UTC())
	}
	var lines []SaleLine
	if err := query.Scan(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// CounterDrift lists items whose sold counter differs from the outstanding total of their sale records
// or whose stock went negative.
func (r *repository) CounterDrift(ctx context.Context) ([]DriftRow, error) {
	var rows []DriftRow
	err := r.DB(ctx).Raw(`
		SELECT items.id AS item_id,
			items.name,
			items.stock,
			items.quantity_sold,
			COALESCE(totals.sold, 0) AS recorded_sold
		FROM items
		LEFT JOIN (
			SELECT item_id, SUM(quantity_sold) AS sold
			FROM sale_records
			GROUP BY item_id
		) totals ON totals.item_id = items.id
		WHERE items.quantity_sold <> COALESCE(totals.sold, 0)
			OR items.stock < 0
		ORDER BY items.id ASC
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
