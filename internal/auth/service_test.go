package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/internal/audit"
	"github.com/angelmondragon/cellar-backend/internal/users"
	pkgAuth "github.com/angelmondragon/cellar-backend/pkg/auth"
	"github.com/angelmondragon/cellar-backend/pkg/auth/session"
	"github.com/angelmondragon/cellar-backend/pkg/config"
	"github.com/angelmondragon/cellar-backend/pkg/db"
	"github.com/angelmondragon/cellar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/angelmondragon/cellar-backend/pkg/security"
	"github.com/google/uuid"
)

var testJWT = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "cellar",
	ExpirationMinutes:      30,
	RefreshTokenTTLMinutes: 600,
}

type stubSessionManager struct {
	sessions map[string]session.Session
	revoked  []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{sessions: map[string]session.Session{}}
}

func (s *stubSessionManager) Generate(ctx context.Context, userID uuid.UUID) (session.Session, error) {
	sess := session.Session{
		AccessID:     session.NewAccessID(),
		UserID:       userID,
		RefreshToken: fmt.Sprintf("refresh-%d", len(s.sessions)+1),
	}
	s.sessions[sess.AccessID] = sess
	return sess, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (session.Session, error) {
	stored, ok := s.sessions[oldAccessID]
	if !ok || stored.RefreshToken != provided {
		return session.Session{}, session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	return s.Generate(ctx, stored.UserID)
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.sessions, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

type testEnv struct {
	client   *db.Client
	svc      Service
	sessions *stubSessionManager
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	client := dbtest.New(t)
	writer, err := audit.NewService(audit.NewRepository(client.DB()), access.NewRoleGate(nil))
	if err != nil {
		t.Fatalf("audit service: %v", err)
	}
	sessions := newStubSessionManager()
	svc, err := NewService(ServiceParams{
		Users:          users.NewRepository(client.DB()),
		DB:             client,
		SessionManager: sessions,
		Audit:          writer,
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return testEnv{client: client, svc: svc, sessions: sessions}
}

func TestRegisterCreatesStaffAndIssuesTokens(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Register(context.Background(), RegisterRequest{Username: "marta", Password: "cork-and-barrel"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User == nil || resp.User.Role != enums.RoleStaff {
		t.Fatalf("expected staff user, got %+v", resp.User)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.RoleStaff || claims.Username != "marta" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, ok := env.sessions.sessions[claims.ID]; !ok {
		t.Fatalf("expected session bound to jti %s", claims.ID)
	}
	if got := dbtest.CountAudit(t, env.client, enums.AuditActionUserRegistered); got != 1 {
		t.Fatalf("expected one registration entry, got %d", got)
	}
}

func TestRegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Register(ctx, RegisterRequest{Username: "marta", Password: "cork-and-barrel"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := env.svc.Register(ctx, RegisterRequest{Username: "MARTA", Password: "cork-and-barrel"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	_, err = env.svc.Register(ctx, RegisterRequest{Username: "pedro", Password: "12345678"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for numeric password, got %v", err)
	}

	_, err = env.svc.Register(ctx, RegisterRequest{Username: "bad name", Password: "cork-and-barrel"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for username, got %v", err)
	}
	if got := dbtest.CountAudit(t, env.client, enums.AuditActionUserRegistered); got != 1 {
		t.Fatalf("expected one registration entry, got %d", got)
	}
}

func TestLoginAuditsAndUpdatesLastLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.svc.Register(ctx, RegisterRequest{Username: "marta", Password: "cork-and-barrel"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := env.svc.Login(ctx, LoginRequest{Username: "Marta", Password: "cork-and-barrel"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Message != "marta Logged in." {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if resp.User.LastLoginAt == nil {
		t.Fatal("expected last login to be set")
	}
	if got := dbtest.CountAudit(t, env.client, enums.AuditActionUserLoggedIn); got != 1 {
		t.Fatalf("expected one login entry, got %d", got)
	}

	_, err = env.svc.Login(ctx, LoginRequest{Username: "marta", Password: "wrong-password"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	_, err = env.svc.Login(ctx, LoginRequest{Username: "nobody", Password: "cork-and-barrel"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginUpgradesOutdatedPasswordHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := users.NewRepository(env.client.DB())

	legacy, err := security.HashPassword("cork-and-barrel", config.PasswordConfig{ArgonTime: 2})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	active := true
	user, err := repo.Create(ctx, users.CreateUserDTO{Username: "bruno", PasswordHash: legacy, Role: enums.RoleStaff, IsActive: &active})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := env.svc.Login(ctx, LoginRequest{Username: "bruno", Password: "cork-and-barrel"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	stored, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.PasswordHash == legacy || security.NeedsRehash(stored.PasswordHash, config.PasswordConfig{}) {
		t.Fatalf("expected hash upgraded to current params, got %q", stored.PasswordHash)
	}
	if _, err := env.svc.Login(ctx, LoginRequest{Username: "bruno", Password: "cork-and-barrel"}); err != nil {
		t.Fatalf("login with upgraded hash: %v", err)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp, err := env.svc.Register(ctx, RegisterRequest{Username: "gone", Password: "cork-and-barrel"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := users.NewRepository(env.client.DB()).UpdateActive(ctx, resp.User.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err = env.svc.Login(ctx, LoginRequest{Username: "gone", Password: "cork-and-barrel"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp, err := env.svc.Register(ctx, RegisterRequest{Username: "marta", Password: "cork-and-barrel"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	actor := access.Actor{UserID: claims.UserID, Role: claims.Role}
	message, err := env.svc.Logout(ctx, actor, claims.ID)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if message != "marta Logged out." {
		t.Fatalf("unexpected message %q", message)
	}
	if _, ok := env.sessions.sessions[claims.ID]; ok {
		t.Fatal("expected session to be revoked")
	}
	if got := dbtest.CountAudit(t, env.client, enums.AuditActionUserLoggedOut); got != 1 {
		t.Fatalf("expected one logout entry, got %d", got)
	}

	if _, err := env.svc.Logout(ctx, access.Actor{}, claims.ID); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first, err := env.svc.Register(ctx, RegisterRequest{Username: "marta", Password: "cork-and-barrel"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	next, err := env.svc.Refresh(ctx, RefreshRequest{AccessToken: first.AccessToken, RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == first.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	_, err = env.svc.Refresh(ctx, RefreshRequest{AccessToken: first.AccessToken, RefreshToken: first.RefreshToken})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected reused refresh token to fail, got %v", err)
	}
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first, err := env.svc.Register(ctx, RegisterRequest{Username: "marta", Password: "cork-and-barrel"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, first.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	expired, err := pkgAuth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    claims.ID,
	})
	if err != nil {
		t.Fatalf("mint expired: %v", err)
	}

	if _, err := env.svc.Refresh(ctx, RefreshRequest{AccessToken: expired, RefreshToken: first.RefreshToken}); err != nil {
		t.Fatalf("refresh with expired token: %v", err)
	}
}
