package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/internal/audit"
	"github.com/angelmondragon/cellar-backend/internal/repo"
	"github.com/angelmondragon/cellar-backend/internal/users"
	pkgAuth "github.com/angelmondragon/cellar-backend/pkg/auth"
	"github.com/angelmondragon/cellar-backend/pkg/auth/session"
	"github.com/angelmondragon/cellar-backend/pkg/config"
	"github.com/angelmondragon/cellar-backend/pkg/db"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/angelmondragon/cellar-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	tokenTypeBearer           = "Bearer"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Logout(ctx context.Context, actor access.Actor, accessID string) (string, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Generate(ctx context.Context, userID uuid.UUID) (session.Session, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (session.Session, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          users.Repository
	DB             txRunner
	SessionManager sessionManager
	Audit          audit.Writer
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Now            func() time.Time
}

type service struct {
	users       users.Repository
	tx          txRunner
	session     sessionManager
	audit       audit.Writer
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

// NewService constructs the account service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit writer is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:       params.Users,
		tx:          params.DB,
		session:     params.SessionManager,
		audit:       params.Audit,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		now:         now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	username := strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(username) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username may contain only letters, digits and @/./+/-/_")
	}
	if problems := security.ValidatePassword(req.Password, username); len(problems) > 0 {
		messages := make([]string, 0, len(problems))
		for _, problem := range problems {
			messages = append(messages, problem.Error())
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password does not meet requirements").
			WithDetails(map[string]any{"password": messages})
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.users.WithTx(tx)

		if _, err := userRepo.FindByUsername(ctx, username); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "A user with that username already exists.")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
		}

		created, err := userRepo.Create(ctx, users.CreateUserDTO{
			Username:     username,
			PasswordHash: passwordHash,
			Role:         enums.RoleStaff,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "A user with that username already exists.")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		user = created

		return s.audit.Append(ctx, tx, audit.Entry{
			UserID: &created.ID,
			Action: enums.AuditActionUserRegistered,
			Detail: fmt.Sprintf("%s registered.", created.Username),
		})
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	resp.Message = fmt.Sprintf("%s registered.", user.Username)
	return resp, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	if err := s.recordLogin(ctx, user, req.Password); err != nil {
		return nil, err
	}
	message := fmt.Sprintf("%s Logged in.", user.Username)
	if err := s.audit.Append(ctx, nil, audit.Entry{
		UserID: &user.ID,
		Action: enums.AuditActionUserLoggedIn,
		Detail: message,
	}); err != nil {
		return nil, err
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	resp.Message = message
	return resp, nil
}

func (s *service) Logout(ctx context.Context, actor access.Actor, accessID string) (string, error) {
	if !actor.Authenticated() {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if repo.IsNotFound(err) {
			return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}

	message := fmt.Sprintf("%s Logged out.", user.Username)
	if err := s.audit.Append(ctx, nil, audit.Entry{
		UserID: &user.ID,
		Action: enums.AuditActionUserLoggedOut,
		Detail: message,
	}); err != nil {
		return "", err
	}
	return message, nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	next, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, next.UserID)
	if err != nil || !user.IsActive {
		_ = s.session.Revoke(ctx, next.AccessID)
		if err != nil && !repo.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return s.mint(user, next)
}

func (s *service) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	input := strings.TrimSpace(username)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByUsername(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// recordLogin stamps last_login_at and upgrades the stored hash when the argon2 cost changed.
func (s *service) recordLogin(ctx context.Context, user *models.User, password string) error {
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	if !security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		return nil
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rehash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upgraded password hash")
	}
	user.PasswordHash = hash
	return nil
}

func (s *service) issueTokens(ctx context.Context, user *models.User) (*TokenResponse, error) {
	sess, err := s.session.Generate(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return s.mint(user, sess)
}

func (s *service) mint(user *models.User, sess session.Session) (*TokenResponse, error) {
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		JTI:      sess.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    s.jwtCfg.ExpirationMinutes * 60,
		User:         users.FromModel(user),
	}, nil
}
