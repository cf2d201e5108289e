package models

// All lists the models in dependency order, used for local auto-migration.
func All() []any {
	return []any{
		&Product{},
		&InventoryEntry{},
		&InventoryHistory{},
		&Order{},
		&DeliveryCompany{},
		&StoreSettings{},
	}
}
