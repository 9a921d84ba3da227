package models

// All lists every table the engine owns, in dependency order. Tests feed it to
// AutoMigrate; production schemas come from goose migrations.
func All() []any {
	return []any{
		&Product{},
		&Location{},
		&InventoryUnit{},
		&UnitScan{},
		&TransferPackage{},
		&TransferItem{},
		&InventoryLevel{},
		&InventoryTransaction{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
