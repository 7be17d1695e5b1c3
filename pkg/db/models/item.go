package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a stocked wine and the counters the ledger mutates.
type Item struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	Name          string              `gorm:"column:name;type:varchar(150);not null"`
	Vintage       int                 `gorm:"column:vintage;not null"`
	RegionID      int64               `gorm:"column:region_id;not null;index"`
	WineTypeID    int64               `gorm:"column:wine_type_id;not null;index"`
	StyleID       int64               `gorm:"column:style_id;not null;index"`
	AppellationID int64               `gorm:"column:appellation_id;not null;index"`
	AddedBy       *uuid.UUID          `gorm:"column:added_by;type:uuid"`
	UnitCost      decimal.NullDecimal `gorm:"column:unit_cost;type:numeric(8,2)"`
	RetailPrice   decimal.NullDecimal `gorm:"column:retail_price;type:numeric(8,2)"`
	Stock         int                 `gorm:"column:stock;not null;default:0;check:chk_items_stock_non_negative,stock >= 0"`
	QuantitySold  int                 `gorm:"column:quantity_sold;not null;default:0;check:chk_items_sold_non_negative,quantity_sold >= 0"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Region      *Region      `gorm:"foreignKey:RegionID"`
	WineType    *WineType    `gorm:"foreignKey:WineTypeID"`
	Style       *WineStyle   `gorm:"foreignKey:StyleID"`
	Appellation *Appellation `gorm:"foreignKey:AppellationID"`
}

// Revenue is retail price times quantity sold, zero without a price.
func (i Item) Revenue() decimal.Decimal {
	if !i.RetailPrice.Valid {
		return decimal.Zero
	}
	return i.RetailPrice.Decimal.Mul(decimal.NewFromInt(int64(i.QuantitySold)))
}
