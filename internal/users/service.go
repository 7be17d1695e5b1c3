package users

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/internal/audit"
	"github.com/angelmondragon/cellar-backend/internal/repo"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service lets admins manage shop accounts.
type Service interface {
	List(ctx context.Context, actor access.Actor) ([]UserDTO, error)
	Update(ctx context.Context, actor access.Actor, id uuid.UUID, req UpdateUserRequest) (*UserDTO, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
}

// ServiceParams groups the account management collaborators.
type ServiceParams struct {
	Repo  Repository
	DB    txRunner
	Gate  access.Gate
	Audit audit.Repository
}

type service struct {
	repo  Repository
	tx    txRunner
	gate  access.Gate
	audit audit.Repository
}

// NewService validates the collaborators.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("access gate required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: params.Repo, tx: params.DB, gate: params.Gate, audit: params.Audit}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor) ([]UserDTO, error) {
	if err := s.gate.Authorize(actor, access.OpManageUsers); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, req UpdateUserRequest) (*UserDTO, error) {
	if err := s.gate.Authorize(actor, access.OpManageUsers); err != nil {
		return nil, err
	}
	if req.Role == nil && req.IsActive == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if req.Role != nil && !req.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", *req.Role))
	}
	if id == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "admins cannot change their own account")
	}

	var updated *UserDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		users := s.repo.WithTx(tx)
		if req.Role != nil {
			if err := users.UpdateRole(ctx, id, *req.Role); err != nil {
				return notFoundOr(err, "update role")
			}
		}
		if req.IsActive != nil {
			if err := users.UpdateActive(ctx, id, *req.IsActive); err != nil {
				return notFoundOr(err, "update active flag")
			}
		}
		user, err := users.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "reload user")
		}
		updated = FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an account that never recorded a sale. Its audit entries stay, without an author.
func (s *service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := s.gate.Authorize(actor, access.OpManageUsers); err != nil {
		return err
	}
	if id == actor.UserID {
		return pkgerrors.New(pkgerrors.CodeConflict, "admins cannot delete their own account")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		users := s.repo.WithTx(tx)
		if _, err := users.FindByID(ctx, id); err != nil {
			return notFoundOr(err, "load user")
		}
		sales, err := users.CountSaleRecords(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sales")
		}
		if sales > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "user has recorded sales; deactivate the account instead")
		}
		if err := s.audit.WithTx(tx).DetachUser(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach audit entries")
		}
		if err := users.Delete(ctx, id); err != nil {
			return notFoundOr(err, "delete user")
		}
		return nil
	})
}

func notFoundOr(err error, action string) error {
	if repo.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
