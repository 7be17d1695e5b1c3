package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/internal/audit"
	"github.com/angelmondragon/cellar-backend/internal/repo"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/angelmondragon/cellar-backend/pkg/logger"
	"github.com/angelmondragon/cellar-backend/pkg/metrics"
	"github.com/angelmondragon/cellar-backend/pkg/pagination"
	"gorm.io/gorm"
)

const (
	opSale    = "sale"
	opRefund  = "refund"
	opRestock = "restock"

	maxNoteLength = 255
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies stock mutations. Every mutation runs in one transaction that locks the rows it touches.
type Service interface {
	RegisterSale(ctx context.Context, actor access.Actor, input SaleInput) (*SaleConfirmation, error)
	RegisterRefund(ctx context.Context, actor access.Actor, input RefundInput) (*RefundConfirmation, error)
	Restock(ctx context.Context, actor access.Actor, input RestockInput) (*RestockConfirmation, error)
	GetSale(ctx context.Context, actor access.Actor, id int64) (*SaleView, error)
	ListSales(ctx context.Context, actor access.Actor, params SaleListParams) (pagination.Page[SaleView], error)
}

// ServiceParams groups the ledger collaborators.
type ServiceParams struct {
	Repo    Repository
	DB      txRunner
	Gate    access.Gate
	Audit   audit.Writer
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	gate    access.Gate
	audit   audit.Writer
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService validates the collaborators and builds the ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
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
		repo:    params.Repo,
		tx:      params.DB,
		gate:    params.Gate,
		audit:   params.Audit,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) RegisterSale(ctx context.Context, actor access.Actor, input SaleInput) (result *SaleConfirmation, err error) {
	defer s.observe(ctx, opSale, s.now(), &err)

	if err = s.gate.Authorize(actor, access.OpSale); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, invalidQuantity("quantity must be a positive number", input.Quantity)
	}

	actorID := actor.UserID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		at := s.now().UTC()

		item, err := repo.LockItem(ctx, input.ItemID)
		if err != nil {
			return itemNotFoundOr(err, "lock item")
		}
		if input.Quantity > item.Stock {
			return insufficientStock(item, input.Quantity)
		}
		applied, err := repo.DecrementStock(ctx, item.ID, input.Quantity, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !applied {
			current, err := repo.FindItem(ctx, item.ID)
			if err != nil {
				return itemNotFoundOr(err, "reload item")
			}
			return insufficientStock(current, input.Quantity)
		}

		record := &models.SaleRecord{
			ItemID:       item.ID,
			UserID:       actorID,
			QuantitySold: input.Quantity,
		}
		if err := repo.CreateSaleRecord(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale record")
		}

		updated, err := repo.FindItem(ctx, item.ID)
		if err != nil {
			return itemNotFoundOr(err, "reload item")
		}
		message := saleMessage(input.Quantity, updated.Name)
		if err := s.audit.Append(ctx, tx, audit.Entry{
			UserID: &actorID,
			Action: enums.AuditActionSaleCreated,
			Detail: message,
		}); err != nil {
			return err
		}

		result = &SaleConfirmation{
			SaleID:   record.ID,
			ItemID:   updated.ID,
			ItemName: updated.Name,
			Quantity: input.Quantity,
			Stock:    updated.Stock,
			Message:  message,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddBottles(opSale, result.Quantity)
	s.info(ctx, "sale registered", map[string]any{
		"sale_id":  result.SaleID,
		"item_id":  result.ItemID,
		"quantity": result.Quantity,
		"stock":    result.Stock,
	})
	return result, nil
}

func (s *service) RegisterRefund(ctx context.Context, actor access.Actor, input RefundInput) (result *RefundConfirmation, err error) {
	defer s.observe(ctx, opRefund, s.now(), &err)

	if err = s.gate.Authorize(actor, access.OpRefund); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, invalidQuantity("refund quantity must be a positive number", input.Quantity)
	}

	actorID := actor.UserID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		at := s.now().UTC()

		// Sale record first, then its item. Every path that locks both follows this order.
		sale, err := repo.LockSaleRecord(ctx, input.SaleID)
		if err != nil {
			if isNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "The sale does not exist")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock sale record")
		}
		item, err := repo.LockItem(ctx, sale.ItemID)
		if err != nil {
			return itemNotFoundOr(err, "lock item")
		}

		if input.Quantity > sale.QuantitySold {
			return pkgerrors.New(pkgerrors.CodeInvalidQuantity,
				fmt.Sprintf("cannot refund %s, only %d outstanding on this sale", bottles(input.Quantity), sale.QuantitySold)).
				WithDetails(map[string]any{"requested": input.Quantity, "outstanding": sale.QuantitySold})
		}

		applied, err := repo.ApplyRefund(ctx, sale.ID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply refund")
		}
		if !applied {
			return invalidQuantity("refund exceeds the outstanding quantity", input.Quantity)
		}
		reversed, err := repo.ReverseSale(ctx, item.ID, input.Quantity, input.ReturnToStock, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse item counters")
		}
		if !reversed {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sold counter of %s is lower than the refund", item.Name))
		}

		updatedSale, err := repo.LockSaleRecord(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload sale record")
		}
		updatedItem, err := repo.FindItem(ctx, item.ID)
		if err != nil {
			return itemNotFoundOr(err, "reload item")
		}

		if err := s.audit.Append(ctx, tx, audit.Entry{
			UserID: &actorID,
			Action: enums.AuditActionSaleRefunded,
			Detail: refundDetail(sale.ID, input.Quantity, updatedItem.Name, input.ReturnToStock),
		}); err != nil {
			return err
		}

		result = &RefundConfirmation{
			SaleID:          updatedSale.ID,
			ItemID:          updatedItem.ID,
			ItemName:        updatedItem.Name,
			Refunded:        input.Quantity,
			Restocked:       input.ReturnToStock,
			SaleOutstanding: updatedSale.QuantitySold,
			Stock:           updatedItem.Stock,
			Message:         refundMessage(input.Quantity, updatedItem.Name, input.ReturnToStock),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddBottles(opRefund, result.Refunded)
	s.info(ctx, "refund registered", map[string]any{
		"sale_id":   result.SaleID,
		"item_id":   result.ItemID,
		"quantity":  result.Refunded,
		"restocked": result.Restocked,
	})
	return result, nil
}

func (s *service) Restock(ctx context.Context, actor access.Actor, input RestockInput) (result *RestockConfirmation, err error) {
	defer s.observe(ctx, opRestock, s.now(), &err)

	if err = s.gate.Authorize(actor, access.OpRestock); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, invalidQuantity("restock quantity must be a positive number", input.Quantity)
	}
	note := strings.TrimSpace(input.Note)
	if utf8.RuneCountInString(note) > maxNoteLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("note must be at most %d characters", maxNoteLength))
	}

	actorID := actor.UserID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.LockItem(ctx, input.ItemID)
		if err != nil {
			return itemNotFoundOr(err, "lock item")
		}
		if err := repo.IncrementStock(ctx, item.ID, input.Quantity, s.now().UTC()); err != nil {
			return itemNotFoundOr(err, "increment stock")
		}
		updated, err := repo.FindItem(ctx, item.ID)
		if err != nil {
			return itemNotFoundOr(err, "reload item")
		}

		if err := s.audit.Append(ctx, tx, audit.Entry{
			UserID: &actorID,
			Action: enums.AuditActionItemRestocked,
			Detail: restockDetail(updated.Name, input.Quantity, note),
		}); err != nil {
			return err
		}

		result = &RestockConfirmation{
			ItemID: updated.ID,
			Item:   updated.Name,
			Added:  input.Quantity,
			Stock:  updated.Stock,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddBottles(opRestock, result.Added)
	s.info(ctx, "item restocked", map[string]any{
		"item_id":  result.ItemID,
		"quantity": result.Added,
		"stock":    result.Stock,
	})
	return result, nil
}

func (s *service) GetSale(ctx context.Context, actor access.Actor, id int64) (*SaleView, error) {
	if err := s.gate.Authorize(actor, access.OpViewSales); err != nil {
		return nil, err
	}
	record, err := s.repo.FindSaleRecord(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "The sale does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale record")
	}
	view := newSaleView(*record)
	return &view, nil
}

func (s *service) ListSales(ctx context.Context, actor access.Actor, params SaleListParams) (pagination.Page[SaleView], error) {
	if err := s.gate.Authorize(actor, access.OpViewSales); err != nil {
		return pagination.Page[SaleView]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[SaleView]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := SaleFilter{ItemID: params.ItemID, Limit: pagination.LimitWithBuffer(params.Limit)}
	if cursor != nil {
		filter.BeforeID = cursor.ID
	}
	if params.Days > 0 {
		since := s.now().UTC().AddDate(0, 0, -params.Days)
		filter.Since = &since
	}
	records, err := s.repo.ListSaleRecords(ctx, filter)
	if err != nil {
		return pagination.Page[SaleView]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sale records")
	}
	views := make([]SaleView, 0, len(records))
	for _, record := range records {
		views = append(views, newSaleView(record))
	}
	return pagination.Build(views, params.Limit, func(v SaleView) int64 { return v.ID }), nil
}

func (s *service) observe(ctx context.Context, operation string, started time.Time, errp *error) {
	outcome := metrics.OutcomeSuccess
	if *errp != nil {
		outcome = classify(*errp)
		if outcome == metrics.OutcomeError && s.logg != nil {
			s.logg.Error(s.logg.WithOperation(ctx, operation), "ledger operation failed", *errp)
		}
	}
	s.metrics.Observe(operation, outcome, s.now().Sub(started))
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

// classify separates caller mistakes from infrastructure failures.
func classify(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return metrics.OutcomeError
	}
	switch typed.Code() {
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}

func invalidQuantity(message string, qty int) error {
	return pkgerrors.New(pkgerrors.CodeInvalidQuantity, message).WithDetails(map[string]any{"quantity": qty})
}

func insufficientStock(item *models.Item, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("Not enough bottles of %s, available: %d", item.Name, item.Stock)).
		WithDetails(map[string]any{"available": item.Stock, "requested": requested})
}

func itemNotFoundOr(err error, action string) error {
	if isNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "The wine does not exist")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func isNotFound(err error) bool {
	return repo.IsNotFound(err)
}
