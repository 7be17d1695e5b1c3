package audit

import (
	"context"
	"time"

	"github.com/angelmondragon/cellar-backend/internal/repo"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists audit entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditEntry) error
	ListSince(ctx context.Context, since time.Time, limit int) ([]EntryRow, error)
	DetachUser(ctx context.Context, userID uuid.UUID) error
}

// EntryRow is an audit entry joined with its author's username.
type EntryRow struct {
	ID        int64
	UserID    *uuid.UUID
	Username  *string
	Action    enums.AuditAction
	Detail    string
	CreatedAt time.Time
}

type repository struct {
	repo.Base
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditEntry) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) ListSince(ctx context.Context, since time.Time, limit int) ([]EntryRow, error) {
	var rows []EntryRow
	query := r.DB(ctx).
		Table("audit_entries").
		Select("audit_entries.id, audit_entries.user_id, users.username, audit_entries.action, audit_entries.detail, audit_entries.created_at").
		Joins("LEFT JOIN users ON users.id = audit_entries.user_id").
		Where("audit_entries.created_at >= ?", since).
		Order("audit_entries.created_at DESC, audit_entries.id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DetachUser clears the author of every entry written by userID so the trail outlives the account.
func (r *repository) DetachUser(ctx context.Context, userID uuid.UUID) error {
	return r.DB(ctx).
		Model(&models.AuditEntry{}).
		Where("user_id = ?", userID).
		UpdateColumn("user_id", nil).Error
}
