package access

import (
	"testing"

	"github.com/angelmondragon/cellar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/google/uuid"
)

func TestRoleGateDefaultPolicy(t *testing.T) {
	gate := NewRoleGate(nil)
	cases := []struct {
		role    enums.Role
		op      Operation
		allowed bool
	}{
		{enums.RoleStaff, OpSale, true},
		{enums.RoleManager, OpSale, true},
		{enums.RoleAdmin, OpSale, true},
		{enums.RoleStaff, OpRefund, false},
		{enums.RoleManager, OpRefund, true},
		{enums.RoleStaff, OpRestock, false},
		{enums.RoleAdmin, OpRestock, true},
		{enums.RoleManager, OpReports, true},
		{enums.RoleManager, OpFinance, false},
		{enums.RoleAdmin, OpFinance, true},
		{enums.RoleAdmin, Operation("unknown"), false},
	}

	for _, tc := range cases {
		err := gate.Authorize(Actor{UserID: uuid.New(), Role: tc.role}, tc.op)
		if tc.allowed && err != nil {
			t.Fatalf("%s/%s: expected allowed, got %v", tc.role, tc.op, err)
		}
		if !tc.allowed && !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
			t.Fatalf("%s/%s: expected forbidden, got %v", tc.role, tc.op, err)
		}
	}
}

func TestRoleGateRejectsAnonymous(t *testing.T) {
	gate := NewRoleGate(nil)
	if err := gate.Authorize(Actor{Role: enums.RoleAdmin}, OpSale); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized without user, got %v", err)
	}
	if err := gate.Authorize(Actor{UserID: uuid.New(), Role: "owner"}, OpSale); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown role, got %v", err)
	}
}

func TestRoleGateCustomPolicy(t *testing.T) {
	gate := NewRoleGate(Policy{OpRefund: {enums.RoleStaff}})
	if !gate.Allows(enums.RoleStaff, OpRefund) {
		t.Fatal("custom policy should allow staff refunds")
	}
	if gate.Allows(enums.RoleStaff, OpSale) {
		t.Fatal("operations missing from a custom policy are denied")
	}
}
