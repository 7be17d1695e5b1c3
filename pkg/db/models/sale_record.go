package models

import (
	"time"

	"github.com/google/uuid"
)

// SaleRecord captures one sale. QuantitySold is the outstanding amount after refunds.
type SaleRecord struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID       int64     `gorm:"column:item_id;not null;index"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	QuantitySold int       `gorm:"column:quantity_sold;not null;check:chk_sale_records_sold_non_negative,quantity_sold >= 0"`
	RefundedQty  int       `gorm:"column:refunded_qty;not null;default:0;check:chk_sale_records_refunded_non_negative,refunded_qty >= 0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime;<-:create;index"`

	Item *Item `gorm:"foreignKey:ItemID"`
	User *User `gorm:"foreignKey:UserID"`
}

// OriginalQuantity is the amount sold before any refund.
func (s SaleRecord) OriginalQuantity() int {
	return s.QuantitySold + s.RefundedQty
}
