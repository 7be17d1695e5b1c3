package ledger

import (
	"fmt"
	"time"

	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/google/uuid"
)

// SaleInput asks the ledger to sell quantity bottles of an item.
type SaleInput struct {
	ItemID   int64
	Quantity int
}

// RefundInput reverses part or all of a recorded sale.
type RefundInput struct {
	SaleID        int64
	Quantity      int
	ReturnToStock bool
}

// RestockInput adds bottles to an item's shelf count.
type RestockInput struct {
	ItemID   int64
	Quantity int
	Note     string
}

// SaleConfirmation reports a committed sale.
type SaleConfirmation struct {
	SaleID   int64  `json:"sale_id"`
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item"`
	Quantity int    `json:"quantity"`
	Stock    int    `json:"stock"`
	Message  string `json:"message"`
}

// RefundConfirmation reports a committed refund.
type RefundConfirmation struct {
	SaleID          int64  `json:"sale_id"`
	ItemID          int64  `json:"item_id"`
	ItemName        string `json:"item"`
	Refunded        int    `json:"refunded"`
	Restocked       bool   `json:"restocked"`
	SaleOutstanding int    `json:"sale_outstanding"`
	Stock           int    `json:"stock"`
	Message         string `json:"message"`
}

// RestockConfirmation reports a committed restock.
type RestockConfirmation struct {
	ItemID int64  `json:"item_id"`
	Item   string `json:"item"`
	Added  int    `json:"added"`
	Stock  int    `json:"stock"`
}

// SaleListParams drives the sale record listing.
type SaleListParams struct {
	ItemID int64
	Days   int
	Limit  int
	Cursor string
}

// SaleView is the API projection of a sale record.
type SaleView struct {
	ID               int64     `json:"id"`
	ItemID           int64     `json:"item_id"`
	ItemName         string    `json:"item"`
	UserID           uuid.UUID `json:"user_id"`
	Username         string    `json:"username,omitempty"`
	QuantitySold     int       `json:"quantity_sold"`
	RefundedQty      int       `json:"refunded_qty"`
	OriginalQuantity int       `json:"original_quantity"`
	CreatedAt        time.Time `json:"created_at"`
}

func newSaleView(record models.SaleRecord) SaleView {
	view := SaleView{
		ID:               record.ID,
		ItemID:           record.ItemID,
		UserID:           record.UserID,
		QuantitySold:     record.QuantitySold,
		RefundedQty:      record.RefundedQty,
		OriginalQuantity: record.OriginalQuantity(),
		CreatedAt:        record.CreatedAt,
	}
	if record.Item != nil {
		view.ItemName = record.Item.Name
	}
	if record.User != nil {
		view.Username = record.User.Username
	}
	return view
}

func bottles(n int) string {
	if n == 1 {
		return "1 bottle"
	}
	return fmt.Sprintf("%d bottles", n)
}

func saleMessage(qty int, name string) string {
	return fmt.Sprintf("%s of %s sold.", bottles(qty), name)
}

func refundMessage(qty int, name string, restocked bool) string {
	if restocked {
		return fmt.Sprintf("%s of %s refunded and returned to stock.", bottles(qty), name)
	}
	return fmt.Sprintf("%s of %s refunded.", bottles(qty), name)
}

func refundDetail(saleID int64, qty int, name string, restocked bool) string {
	detail := fmt.Sprintf("sale #%d: %s of %s refunded", saleID, bottles(qty), name)
	if restocked {
		detail += ", returned to stock"
	}
	return detail
}

func restockDetail(name string, qty int, note string) string {
	detail := fmt.Sprintf("%s: +%d", name, qty)
	if note != "" {
		detail += " (" + note + ")"
	}
	return detail
}
