package models

import (
	"time"

	"github.com/angelmondragon/cellar-backend/pkg/enums"
	"github.com/google/uuid"
)

// AuditEntry is an append-only record of an action. UserID is cleared when the user is removed.
type AuditEntry struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	Action    enums.AuditAction `gorm:"column:action;type:varchar(50);not null;index"`
	Detail    string            `gorm:"column:detail;type:text;not null;default:''"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime;<-:create;index"`
}
