package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Region{},
		&WineType{},
		&WineStyle{},
		&Appellation{},
		&Item{},
		&SaleRecord{},
		&AuditEntry{},
	}
}
