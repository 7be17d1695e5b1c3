package catalog

import (
	"time"

	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateItemInput is the payload for adding a wine to the catalog.
type CreateItemInput struct {
	Name          string           `json:"name" validate:"required,max=150"`
	Vintage       int              `json:"vintage" validate:"required,min=1"`
	RegionID      int64            `json:"region_id" validate:"required,min=1"`
	WineTypeID    int64            `json:"wine_type_id" validate:"required,min=1"`
	StyleID       int64            `json:"style_id" validate:"required,min=1"`
	AppellationID int64            `json:"appellation_id" validate:"required,min=1"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	RetailPrice   *decimal.Decimal `json:"retail_price,omitempty"`
	Stock         int              `json:"stock" validate:"min=0"`
}

// UpdateItemInput edits attributes and prices. Counters are not writable here.
type UpdateItemInput struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,max=150"`
	Vintage       *int             `json:"vintage,omitempty" validate:"omitempty,min=1"`
	RegionID      *int64           `json:"region_id,omitempty" validate:"omitempty,min=1"`
	WineTypeID    *int64           `json:"wine_type_id,omitempty" validate:"omitempty,min=1"`
	StyleID       *int64           `json:"style_id,omitempty" validate:"omitempty,min=1"`
	AppellationID *int64           `json:"appellation_id,omitempty" validate:"omitempty,min=1"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	RetailPrice   *decimal.Decimal `json:"retail_price,omitempty"`
	ClearPrices   bool             `json:"clear_prices,omitempty"`
}

// ListItemsParams drives the paginated item listing.
type ListItemsParams struct {
	Search string
	Limit  int
	Cursor string
}

type CreateRegionInput struct {
	Country string `json:"country" validate:"required,max=100"`
	Region  string `json:"region" validate:"required,max=100"`
}

type CreateWineTypeInput struct {
	Type enums.WineType `json:"type" validate:"required"`
}

type CreateWineStyleInput struct {
	Sweetness enums.Sweetness `json:"sweetness" validate:"required"`
	Body      enums.WineBody  `json:"body" validate:"required"`
}

type CreateAppellationInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type RegionView struct {
	ID      int64  `json:"id"`
	Country string `json:"country"`
	Region  string `json:"region"`
}

type WineTypeView struct {
	ID   int64          `json:"id"`
	Type enums.WineType `json:"type"`
}

type WineStyleView struct {
	ID        int64           `json:"id"`
	Sweetness enums.Sweetness `json:"sweetness"`
	Body      enums.WineBody  `json:"body"`
}

type AppellationView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ItemView is the API projection of an item, including derived revenue.
type ItemView struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Vintage      int              `json:"vintage"`
	Region       *RegionView      `json:"region,omitempty"`
	WineType     *WineTypeView    `json:"wine_type,omitempty"`
	Style        *WineStyleView   `json:"style,omitempty"`
	Appellation  *AppellationView `json:"appellation,omitempty"`
	AddedBy      *uuid.UUID       `json:"added_by,omitempty"`
	UnitCost     *decimal.Decimal `json:"unit_cost"`
	RetailPrice  *decimal.Decimal `json:"retail_price"`
	Stock        int              `json:"stock"`
	QuantitySold int              `json:"quantity_sold"`
	Revenue      decimal.Decimal  `json:"revenue"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Dashboard bundles every reference list for item forms.
type Dashboard struct {
	Regions      []RegionView      `json:"regions"`
	WineTypes    []WineTypeView    `json:"wine_types"`
	Styles       []WineStyleView   `json:"styles"`
	Appellations []AppellationView `json:"appellations"`
}

// NewItemView projects a model into its API shape.
func NewItemView(item models.Item) ItemView {
	view := ItemView{
		ID:           item.ID,
		Name:         item.Name,
		Vintage:      item.Vintage,
		AddedBy:      item.AddedBy,
		UnitCost:     nullableDecimal(item.UnitCost),
		RetailPrice:  nullableDecimal(item.RetailPrice),
		Stock:        item.Stock,
		QuantitySold: item.QuantitySold,
		Revenue:      item.Revenue(),
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
	if item.Region != nil {
		r := newRegionView(*item.Region)
		view.Region = &r
	}
	if item.WineType != nil {
		t := newWineTypeView(*item.WineType)
		view.WineType = &t
	}
	if item.Style != nil {
		s := newWineStyleView(*item.Style)
		view.Style = &s
	}
	if item.Appellation != nil {
		a := newAppellationView(*item.Appellation)
		view.Appellation = &a
	}
	return view
}

func newRegionView(m models.Region) RegionView {
	return RegionView{ID: m.ID, Country: m.Country, Region: m.Region}
}

func newWineTypeView(m models.WineType) WineTypeView {
	return WineTypeView{ID: m.ID, Type: m.Type}
}

func newWineStyleView(m models.WineStyle) WineStyleView {
	return WineStyleView{ID: m.ID, Sweetness: m.Sweetness, Body: m.Body}
}

func newAppellationView(m models.Appellation) AppellationView {
	return AppellationView{ID: m.ID, Name: m.Name}
}

func nullableDecimal(value decimal.NullDecimal) *decimal.Decimal {
	if !value.Valid {
		return nil
	}
	d := value.Decimal
	return &d
}

func toNullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *value, Valid: true}
}
