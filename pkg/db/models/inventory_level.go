package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
)

// InventoryLevel is the bulk on-hand quantity of one product at one location.
type InventoryLevel struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	LocationID uuid.UUID       `gorm:"column:location_id;type:uuid;not null;uniqueIndex:inventory_levels_location_product_key,priority:1"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:inventory_levels_location_product_key,priority:2"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryLevel) TableName() string { return "inventory_levels" }

func (l *InventoryLevel) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// InventoryTransaction is an immutable movement row of the bulk ledger.
type InventoryTransaction struct {
	ID             uuid.UUID                      `gorm:"column:id;type:uuid;primaryKey"`
	LocationID     uuid.UUID                      `gorm:"column:location_id;type:uuid;not null;index"`
	ProductID      uuid.UUID                      `gorm:"column:product_id;type:uuid;not null;index"`
	Type           enums.InventoryTransactionType `gorm:"column:type;type:text;not null"`
	Quantity       decimal.Decimal                `gorm:"column:quantity;type:numeric(14,3);not null"`
	QuantityBefore decimal.Decimal                `gorm:"column:quantity_before;type:numeric(14,3);not null"`
	QuantityAfter  decimal.Decimal                `gorm:"column:quantity_after;type:numeric(14,3);not null"`
	ReferenceType  *string                        `gorm:"column:reference_type;type:text"`
	ReferenceID    *uuid.UUID                     `gorm:"column:reference_id;type:uuid"`
	OperatorID     *uuid.UUID                     `gorm:"column:operator_id;type:uuid"`
	Notes          *string                        `gorm:"column:notes;type:text"`
	CreatedAt      time.Time                      `gorm:"column:created_at;autoCreateTime"`
}

func (InventoryTransaction) TableName() string { return "inventory_transactions" }

func (t *InventoryTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
