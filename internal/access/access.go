// Package access resolves which roles may run which operations.
package access

import (
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/google/uuid"
)

// Operation names a gated action.
type Operation string

const (
	OpSale         Operation = "sale"
	OpRefund       Operation = "refund"
	OpRestock      Operation = "restock"
	OpViewSales    Operation = "view_sales"
	OpCatalogRead  Operation = "catalog_read"
	OpCatalogWrite Operation = "catalog_write"
	OpAuditRead    Operation = "audit_read"
	OpReports      Operation = "reports"
	OpFinance      Operation = "finance_reports"
	OpManageUsers  Operation = "manage_users"
)

// Actor is the authenticated caller passed explicitly into domain services.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// Authenticated reports whether the actor carries a user and a known role.
func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil && a.Role.IsValid()
}

// Gate decides whether an actor may run an operation.
type Gate interface {
	Authorize(actor Actor, op Operation) error
}

// Policy maps each operation to the roles allowed to run it.
type Policy map[Operation][]enums.Role

var (
	everyone   = []enums.Role{enums.RoleStaff, enums.RoleManager, enums.RoleAdmin}
	managers   = []enums.Role{enums.RoleManager, enums.RoleAdmin}
	adminsOnly = []enums.Role{enums.RoleAdmin}
)

// DefaultPolicy is the shop's role matrix.
func DefaultPolicy() Policy {
	return Policy{
		OpSale:         everyone,
		OpCatalogRead:  everyone,
		OpRefund:       managers,
		OpRestock:      managers,
		OpViewSales:    managers,
		OpCatalogWrite: managers,
		OpAuditRead:    managers,
		OpReports:      managers,
		OpFinance:      adminsOnly,
		OpManageUsers:  adminsOnly,
	}
}

// RoleGate enforces a Policy.
type RoleGate struct {
	policy Policy
}

// NewRoleGate builds a gate from policy, falling back to DefaultPolicy when nil.
func NewRoleGate(policy Policy) *RoleGate {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &RoleGate{policy: policy}
}

// Authorize returns Unauthorized for anonymous actors and Forbidden when the role is not allowed.
// Unknown operations are denied.
func (g *RoleGate) Authorize(actor Actor, op Operation) error {
	if !actor.Authenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	for _, role := range g.policy[op] {
		if role == actor.Role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "you do not have permission to perform this action")
}

// Allows reports whether role may run op under the gate's policy.
func (g *RoleGate) Allows(role enums.Role, op Operation) bool {
	for _, candidate := range g.policy[op] {
		if candidate == role {
			return true
		}
	}
	return false
}
