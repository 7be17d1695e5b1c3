package enums

import "fmt"

// AuditAction identifies what an audit entry records.
type AuditAction string

const (
	AuditActionSaleCreated    AuditAction = "sale_created"
	AuditActionSaleRefunded   AuditAction = "sale_refunded"
	AuditActionItemRestocked  AuditAction = "item_restocked"
	AuditActionItemDeleted    AuditAction = "item_deleted"
	AuditActionUserRegistered AuditAction = "user_registered"
	AuditActionUserLoggedIn   AuditAction = "user_logged_in"
	AuditActionUserLoggedOut  AuditAction = "user_logged_out"

	// Legacy tags are accepted when reading old rows but never written.
	AuditActionLegacyLogout      AuditAction = "out"
	AuditActionLegacyItemDeleted AuditAction = "wine_deleted"
)

var validAuditActions = []AuditAction{
	AuditActionSaleCreated,
	AuditActionSaleRefunded,
	AuditActionItemRestocked,
	AuditActionItemDeleted,
	AuditActionUserRegistered,
	AuditActionUserLoggedIn,
	AuditActionUserLoggedOut,
	AuditActionLegacyLogout,
	AuditActionLegacyItemDeleted,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsLegacy reports whether the value is a read-only spelling from older rows.
func (a AuditAction) IsLegacy() bool {
	return a == AuditActionLegacyLogout || a == AuditActionLegacyItemDeleted
}

// Normalize maps legacy spellings onto their current action.
func (a AuditAction) Normalize() AuditAction {
	switch a {
	case AuditActionLegacyLogout:
		return AuditActionUserLoggedOut
	case AuditActionLegacyItemDeleted:
		return AuditActionItemDeleted
	}
	return a
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
