package reports

import (
	"fmt"

	"github.com/angelmondragon/cellar-backend/internal/catalog"
	"github.com/shopspring/decimal"
)

// RevenueParams selects the sales a revenue figure covers.
type RevenueParams struct {
	ItemID int64
	Days   int
}

// RevenueReport totals the outstanding sales of a window.
type RevenueReport struct {
	ItemID      int64           `json:"item_id,omitempty"`
	Days        int             `json:"days"`
	Revenue     decimal.Decimal `json:"revenue"`
	BottlesSold int             `json:"bottles_sold"`
	Message     string          `json:"message"`
}

// QuarterTrend maps "YYYY-Qn" to revenue for the previous and current year.
type QuarterTrend map[string]decimal.Decimal

// EmployeeRevenue ranks a seller by revenue.
type EmployeeRevenue struct {
	User    string          `json:"user"`
	Revenue decimal.Decimal `json:"revenue"`
}

// LowStockReport lists items at or under the threshold.
type LowStockReport struct {
	Threshold int                `json:"threshold"`
	Items     []catalog.ItemView `json:"items"`
}

func revenueMessage(days int, revenue decimal.Decimal, bottles int) string {
	return fmt.Sprintf("The total revenue for the last %d days is %s with a total of %d bottles sold",
		days, revenue.StringFixed(2), bottles)
}

func quarterKey(year, month int) string {
	return fmt.Sprintf("%d-Q%d", year, (month-1)/3+1)
}
