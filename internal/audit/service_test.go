package audit

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.New(t)
	svc, err := NewService(NewRepository(client.DB()), access.NewRoleGate(nil))
	require.NoError(t, err)
	return svc, client.DB()
}

func TestAppendRejectsUnknownAndLegacyActions(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	err := svc.Append(ctx, nil, Entry{Action: "bogus"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.Append(ctx, nil, Entry{Action: enums.AuditActionLegacyLogout})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.Append(ctx, nil, Entry{Action: enums.AuditActionLegacyItemDeleted})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, conn.Model(&models.AuditEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAppendInsideTransactionRollsBackWithCaller(t *testing.T) {
	client := dbtest.New(t)
	svc, err := NewService(NewRepository(client.DB()), access.NewRoleGate(nil))
	require.NoError(t, err)
	ctx := context.Background()

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.Append(ctx, tx, Entry{Action: enums.AuditActionItemRestocked, Detail: "x: +1"}); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "abort")
	})
	require.Error(t, err)
	assert.Zero(t, dbtest.CountAudit(t, client, enums.AuditActionItemRestocked))
}

func TestLogGroupsByUserAndNormalizesLegacyActions(t *testing.T) {
	client := dbtest.New(t)
	svc, err := NewService(NewRepository(client.DB()), access.NewRoleGate(nil))
	require.NoError(t, err)
	ctx := context.Background()

	alice := dbtest.CreateUser(t, client, "alice", enums.RoleStaff)
	bob := dbtest.CreateUser(t, client, "bob", enums.RoleManager)

	require.NoError(t, svc.Append(ctx, nil, Entry{UserID: &alice.ID, Action: enums.AuditActionUserLoggedIn, Detail: "alice Logged in."}))
	require.NoError(t, svc.Append(ctx, nil, Entry{UserID: &bob.ID, Action: enums.AuditActionSaleCreated, Detail: "1 bottle of Rioja sold."}))
	require.NoError(t, svc.Append(ctx, nil, Entry{UserID: &alice.ID, Action: enums.AuditActionSaleCreated, Detail: "2 bottles of Rioja sold."}))
	require.NoError(t, client.DB().Create(&models.AuditEntry{UserID: &alice.ID, Action: enums.AuditActionLegacyLogout, Detail: "alice Logged out."}).Error)
	require.NoError(t, client.DB().Create(&models.AuditEntry{UserID: &bob.ID, Action: enums.AuditActionLegacyItemDeleted, Detail: "Rioja deleted."}).Error)
	require.NoError(t, client.DB().Create(&models.AuditEntry{
		UserID:    &bob.ID,
		Action:    enums.AuditActionUserLoggedIn,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -90),
	}).Error)

	manager := access.Actor{UserID: bob.ID, Role: enums.RoleManager}
	groups, err := svc.Log(ctx, manager, LogFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	byName := map[string]UserActivity{}
	for _, g := range groups {
		byName[g.Username] = g
	}
	require.Len(t, byName["alice"].Entries, 3)
	require.Len(t, byName["bob"].Entries, 2, "entries older than the window are excluded")

	var sawLogout bool
	for _, e := range byName["alice"].Entries {
		if e.Action == enums.AuditActionUserLoggedOut {
			sawLogout = true
		}
	}
	assert.True(t, sawLogout, "legacy logout rows are reported with the current action")

	var sawDeletion bool
	for _, e := range byName["bob"].Entries {
		assert.NotEqual(t, enums.AuditActionLegacyItemDeleted, e.Action)
		if e.Action == enums.AuditActionItemDeleted {
			sawDeletion = true
		}
	}
	assert.True(t, sawDeletion, "legacy deletion rows are reported with the current action")
}

func TestLogKeepsEntriesOfDetachedUsers(t *testing.T) {
	client := dbtest.New(t)
	repository := NewRepository(client.DB())
	svc, err := NewService(repository, access.NewRoleGate(nil))
	require.NoError(t, err)
	ctx := context.Background()

	gone := dbtest.CreateUser(t, client, "gone", enums.RoleStaff)
	require.NoError(t, svc.Append(ctx, nil, Entry{UserID: &gone.ID, Action: enums.AuditActionUserRegistered}))
	require.NoError(t, repository.DetachUser(ctx, gone.ID))

	groups, err := svc.Log(ctx, access.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, LogFilter{Days: 1})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Nil(t, groups[0].UserID)
	assert.Equal(t, unknownUsername, groups[0].Username)
}

func TestLogRequiresManager(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Log(context.Background(), access.Actor{UserID: uuid.New(), Role: enums.RoleStaff}, LogFilter{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
