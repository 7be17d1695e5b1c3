package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultLogDays  = 30
	defaultLogLimit = 500
	maxLogLimit     = 5000
	unknownUsername = "deleted user"
)

// Entry is one action to record.
type Entry struct {
	UserID *uuid.UUID
	Action enums.AuditAction
	Detail string
}

// Writer appends audit entries. A non-nil tx makes the write part of the caller's unit of work.
type Writer interface {
	Append(ctx context.Context, tx *gorm.DB, entry Entry) error
}

// Service appends to and reads from the audit trail.
type Service interface {
	Writer
	Log(ctx context.Context, actor access.Actor, filter LogFilter) ([]UserActivity, error)
}

// LogFilter bounds the audit log view.
type LogFilter struct {
	Days  int
	Limit int
}

// ActivityItem is a single line in a user's activity.
type ActivityItem struct {
	ID        int64             `json:"id"`
	Action    enums.AuditAction `json:"action"`
	Detail    string            `json:"detail"`
	CreatedAt time.Time         `json:"created_at"`
}

// UserActivity groups recent entries by author.
type UserActivity struct {
	UserID   *uuid.UUID     `json:"user_id,omitempty"`
	Username string         `json:"username"`
	Entries  []ActivityItem `json:"entries"`
}

type service struct {
	repo Repository
	gate access.Gate
	now  func() time.Time
}

// NewService wires the audit trail.
func NewService(repo Repository, gate access.Gate) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if gate == nil {
		return nil, fmt.Errorf("access gate required")
	}
	return &service{repo: repo, gate: gate, now: time.Now}, nil
}

func (s *service) Append(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if !entry.Action.IsValid() || entry.Action.IsLegacy() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown audit action %q", entry.Action))
	}
	record := &models.AuditEntry{
		UserID: entry.UserID,
		Action: entry.Action,
		Detail: strings.TrimSpace(entry.Detail),
	}
	if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append audit entry")
	}
	return nil
}

func (s *service) Log(ctx context.Context, actor access.Actor, filter LogFilter) ([]UserActivity, error) {
	if err := s.gate.Authorize(actor, access.OpAuditRead); err != nil {
		return nil, err
	}
	days := filter.Days
	if days <= 0 {
		days = defaultLogDays
	}
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = defaultLogLimit
	case limit > maxLogLimit:
		limit = maxLogLimit
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	rows, err := s.repo.ListSince(ctx, since, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return groupByUser(rows), nil
}

// groupByUser keeps the order in which each author first appears.
func groupByUser(rows []EntryRow) []UserActivity {
	groups := make([]UserActivity, 0)
	index := make(map[string]int)
	for _, row := range rows {
		key := ""
		if row.UserID != nil {
			key = row.UserID.String()
		}
		pos, ok := index[key]
		if !ok {
			name := unknownUsername
			if row.Username != nil && row.UserID != nil {
				name = *row.Username
			}
			groups = append(groups, UserActivity{UserID: row.UserID, Username: name})
			pos = len(groups) - 1
			index[key] = pos
		}
		groups[pos].Entries = append(groups[pos].Entries, ActivityItem{
			ID:        row.ID,
			Action:    row.Action.Normalize(),
			Detail:    row.Detail,
			CreatedAt: row.CreatedAt,
		})
	}
	return groups
}
