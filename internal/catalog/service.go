package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/internal/audit"
	"github.com/angelmondragon/cellar-backend/internal/repo"
	"github.com/angelmondragon/cellar-backend/pkg/db"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/angelmondragon/cellar-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages catalog entries and reference data.
type Service interface {
	CreateItem(ctx context.Context, actor access.Actor, input CreateItemInput) (*ItemView, error)
	GetItem(ctx context.Context, actor access.Actor, id int64) (*ItemView, error)
	ListItems(ctx context.Context, actor access.Actor, params ListItemsParams) (pagination.Page[ItemView], error)
	UpdateItem(ctx context.Context, actor access.Actor, id int64, input UpdateItemInput) (*ItemView, error)
	DeleteItem(ctx context.Context, actor access.Actor, id int64) error

	CreateRegion(ctx context.Context, actor access.Actor, input CreateRegionInput) (*RegionView, error)
	ListRegions(ctx context.Context, actor access.Actor) ([]RegionView, error)
	CreateWineType(ctx context.Context, actor access.Actor, input CreateWineTypeInput) (*WineTypeView, error)
	ListWineTypes(ctx context.Context, actor access.Actor) ([]WineTypeView, error)
	CreateWineStyle(ctx context.Context, actor access.Actor, input CreateWineStyleInput) (*WineStyleView, error)
	ListWineStyles(ctx context.Context, actor access.Actor) ([]WineStyleView, error)
	CreateAppellation(ctx context.Context, actor access.Actor, input CreateAppellationInput) (*AppellationView, error)
	ListAppellations(ctx context.Context, actor access.Actor) ([]AppellationView, error)
	Dashboard(ctx context.Context, actor access.Actor) (*Dashboard, error)
}

// ServiceParams groups the catalog collaborators.
type ServiceParams struct {
	Repo  Repository
	DB    txRunner
	Gate  access.Gate
	Audit audit.Writer
	Now   func() time.Time
}

type service struct {
	repo  Repository
	tx    txRunner
	gate  access.Gate
	audit audit.Writer
	now   func() time.Time
}

// NewService validates the collaborators and builds the catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("access gate required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit writer required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:  params.Repo,
		tx:    params.DB,
		gate:  params.Gate,
		audit: params.Audit,
		now:   now,
	}, nil
}

func (s *service) CreateItem(ctx context.Context, actor access.Actor, input CreateItemInput) (*ItemView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogWrite); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := s.validateVintage(input.Vintage); err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "stock cannot be negative")
	}
	if err := validatePrices(input.UnitCost, input.RetailPrice); err != nil {
		return nil, err
	}
	refs := ItemReferences{
		RegionID:      input.RegionID,
		WineTypeID:    input.WineTypeID,
		StyleID:       input.StyleID,
		AppellationID: input.AppellationID,
	}
	if err := s.ensureReferences(ctx, refs); err != nil {
		return nil, err
	}

	addedBy := actor.UserID
	item := &models.Item{
		Name:          name,
		Vintage:       input.Vintage,
		RegionID:      refs.RegionID,
		WineTypeID:    refs.WineTypeID,
		StyleID:       refs.StyleID,
		AppellationID: refs.AppellationID,
		AddedBy:       &addedBy,
		UnitCost:      toNullDecimal(input.UnitCost),
		RetailPrice:   toNullDecimal(input.RetailPrice),
		Stock:         input.Stock,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}
	return s.loadView(ctx, item.ID)
}

func (s *service) GetItem(ctx context.Context, actor access.Actor, id int64) (*ItemView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogRead); err != nil {
		return nil, err
	}
	return s.loadView(ctx, id)
}

func (s *service) ListItems(ctx context.Context, actor access.Actor, params ListItemsParams) (pagination.Page[ItemView], error) {
	if err := s.gate.Authorize(actor, access.OpCatalogRead); err != nil {
		return pagination.Page[ItemView]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[ItemView]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := ItemFilter{Search: params.Search, Limit: pagination.LimitWithBuffer(params.Limit)}
	if cursor != nil {
		filter.BeforeID = cursor.ID
	}
	items, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return pagination.Page[ItemView]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, NewItemView(item))
	}
	return pagination.Build(views, params.Limit, func(v ItemView) int64 { return v.ID }), nil
}

func (s *service) UpdateItem(ctx context.Context, actor access.Actor, id int64, input UpdateItemInput) (*ItemView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogWrite); err != nil {
		return nil, err
	}
	current, err := s.repo.FindItem(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load item")
	}

	updates := map[string]any{}
	refs := ItemReferences{
		RegionID:      current.RegionID,
		WineTypeID:    current.WineTypeID,
		StyleID:       current.StyleID,
		AppellationID: current.AppellationID,
	}
	refsChanged := false

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Vintage != nil {
		if err := s.validateVintage(*input.Vintage); err != nil {
			return nil, err
		}
		updates["vintage"] = *input.Vintage
	}
	if input.RegionID != nil {
		refs.RegionID, refsChanged = *input.RegionID, true
		updates["region_id"] = *input.RegionID
	}
	if input.WineTypeID != nil {
		refs.WineTypeID, refsChanged = *input.WineTypeID, true
		updates["wine_type_id"] = *input.WineTypeID
	}
	if input.StyleID != nil {
		refs.StyleID, refsChanged = *input.StyleID, true
		updates["style_id"] = *input.StyleID
	}
	if input.AppellationID != nil {
		refs.AppellationID, refsChanged = *input.AppellationID, true
		updates["appellation_id"] = *input.AppellationID
	}
	if err := validatePrices(input.UnitCost, input.RetailPrice); err != nil {
		return nil, err
	}
	if input.ClearPrices {
		updates["unit_cost"] = nil
		updates["retail_price"] = nil
	}
	if input.UnitCost != nil {
		updates["unit_cost"] = toNullDecimal(input.UnitCost)
	}
	if input.RetailPrice != nil {
		updates["retail_price"] = toNullDecimal(input.RetailPrice)
	}

	if refsChanged {
		if err := s.ensureReferences(ctx, refs); err != nil {
			return nil, err
		}
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now().UTC()
		if err := s.repo.UpdateItemAttributes(ctx, id, updates); err != nil {
			return nil, notFoundOr(err, "update item")
		}
	}
	return s.loadView(ctx, id)
}

func (s *service) DeleteItem(ctx context.Context, actor access.Actor, id int64) error {
	if err := s.gate.Authorize(actor, access.OpCatalogWrite); err != nil {
		return err
	}
	actorID := actor.UserID
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.LockItem(ctx, id)
		if err != nil {
			return notFoundOr(err, "lock item")
		}
		sales, err := repo.CountSaleRecords(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sale records")
		}
		if sales > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("%s has %d recorded sales and cannot be deleted", item.Name, sales))
		}
		if err := repo.DeleteItem(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
		}
		return s.audit.Append(ctx, tx, audit.Entry{
			UserID: &actorID,
			Action: enums.AuditActionItemDeleted,
			Detail: "deleted wine: " + item.Name,
		})
	})
}

func (s *service) CreateRegion(ctx context.Context, actor access.Actor, input CreateRegionInput) (*RegionView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogWrite); err != nil {
		return nil, err
	}
	country, region := strings.TrimSpace(input.Country), strings.TrimSpace(input.Region)
	if country == "" || region == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country and region are required")
	}
	row := &models.Region{Country: country, Region: region}
	if err := s.repo.CreateRegion(ctx, row); err != nil {
		return nil, uniqueOr(err, "region already exists", "create region")
	}
	view := newRegionView(*row)
	return &view, nil
}

func (s *service) ListRegions(ctx context.Context, actor access.Actor) ([]RegionView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogRead); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRegions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list regions")
	}
	return mapViews(rows, newRegionView), nil
}

func (s *service) CreateWineType(ctx context.Context, actor access.Actor, input CreateWineTypeInput) (*WineTypeView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogWrite); err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wine type %q", input.Type))
	}
	row := &models.WineType{Type: input.Type}
	if err := s.repo.CreateWineType(ctx, row); err != nil {
		return nil, uniqueOr(err, "wine type already exists", "create wine type")
	}
	view := newWineTypeView(*row)
	return &view, nil
}

func (s *service) ListWineTypes(ctx context.Context, actor access.Actor) ([]WineTypeView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogRead); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListWineTypes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wine types")
	}
	return mapViews(rows, newWineTypeView), nil
}

func (s *service) CreateWineStyle(ctx context.Context, actor access.Actor, input CreateWineStyleInput) (*WineStyleView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogWrite); err != nil {
		return nil, err
	}
	if !input.Sweetness.IsValid() || !input.Body.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid wine style").WithDetails(map[string]any{
			"sweetness": input.Sweetness,
			"body":      input.Body,
		})
	}
	row := &models.WineStyle{Sweetness: input.Sweetness, Body: input.Body}
	if err := s.repo.CreateWineStyle(ctx, row); err != nil {
		return nil, uniqueOr(err, "wine style already exists", "create wine style")
	}
	view := newWineStyleView(*row)
	return &view, nil
}

func (s *service) ListWineStyles(ctx context.Context, actor access.Actor) ([]WineStyleView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogRead); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListWineStyles(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wine styles")
	}
	return mapViews(rows, newWineStyleView), nil
}

func (s *service) CreateAppellation(ctx context.Context, actor access.Actor, input CreateAppellationInput) (*AppellationView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogWrite); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	row := &models.Appellation{Name: name}
	if err := s.repo.CreateAppellation(ctx, row); err != nil {
		return nil, uniqueOr(err, "appellation already exists", "create appellation")
	}
	view := newAppellationView(*row)
	return &view, nil
}

func (s *service) ListAppellations(ctx context.Context, actor access.Actor) ([]AppellationView, error) {
	if err := s.gate.Authorize(actor, access.OpCatalogRead); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAppellations(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list appellations")
	}
	return mapViews(rows, newAppellationView), nil
}

func (s *service) Dashboard(ctx context.Context, actor access.Actor) (*Dashboard, error) {
	regions, err := s.ListRegions(ctx, actor)
	if err != nil {
		return nil, err
	}
	types, err := s.ListWineTypes(ctx, actor)
	if err != nil {
		return nil, err
	}
	styles, err := s.ListWineStyles(ctx, actor)
	if err != nil {
		return nil, err
	}
	appellations, err := s.ListAppellations(ctx, actor)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Regions:      regions,
		WineTypes:    types,
		Styles:       styles,
		Appellations: appellations,
	}, nil
}

func (s *service) loadView(ctx context.Context, id int64) (*ItemView, error) {
	item, err := s.repo.FindItem(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load item")
	}
	view := NewItemView(*item)
	return &view, nil
}

func (s *service) validateVintage(vintage int) error {
	current := s.now().Year()
	if vintage < 1 || vintage > current {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("vintage must be between 1 and %d", current)).
			WithDetails(map[string]any{"vintage": vintage})
	}
	return nil
}

func (s *service) ensureReferences(ctx context.Context, refs ItemReferences) error {
	ok, err := s.repo.ReferencesExist(ctx, refs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check item references")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "region, wine type, style or appellation does not exist")
	}
	return nil
}

func validatePrices(prices ...*decimal.Decimal) error {
	for _, price := range prices {
		if price != nil && price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
		}
	}
	return nil
}

func notFoundOr(err error, action string) error {
	if repo.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "The wine does not exist")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func uniqueOr(err error, conflict, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, conflict)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func mapViews[M any, V any](rows []M, fn func(M) V) []V {
	out := make([]V, 0, len(rows))
	for _, row := range rows {
		out = append(out, fn(row))
	}
	return out
}
