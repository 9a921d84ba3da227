package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
)

// InventoryUnit is one physically labelled quantity of product (bag, box, pallet).
type InventoryUnit struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	QRCode    string    `gorm:"column:qr_code;type:text;not null;uniqueIndex:inventory_units_qr_code_key"`
	TierID    string    `gorm:"column:tier_id;type:text;not null"`
	TierLabel string    `gorm:"column:tier_label;type:text;not null"`

	Quantity        decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	InitialQuantity decimal.Decimal `gorm:"column:initial_quantity;type:numeric(14,3);not null"`
	BaseUnit        string          `gorm:"column:base_unit;type:text;not null;default:g"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	BatchID         *uuid.UUID      `gorm:"column:batch_id;type:uuid"`
	BatchNumber     *string         `gorm:"column:batch_number;type:text"`

	CurrentLocationID uuid.UUID  `gorm:"column:current_location_id;type:uuid;not null;index"`
	BinLocation       *string    `gorm:"column:bin_location;type:text"`
	TransferID        *uuid.UUID `gorm:"column:transfer_id;type:uuid;index"`

	ParentUnitID    *uuid.UUID `gorm:"column:parent_unit_id;type:uuid;index"`
	ParentUnitIndex *int       `gorm:"column:parent_unit_index"`
	ConversionID    *uuid.UUID `gorm:"column:conversion_id;type:uuid;index"`
	Generation      int        `gorm:"column:generation;not null;default:0"`

	Status          enums.UnitStatus `gorm:"column:status;type:text;not null"`
	StatusChangedAt time.Time        `gorm:"column:status_changed_at;not null"`

	SourceType enums.UnitSourceType `gorm:"column:source_type;type:text;not null"`
	SourceID   *uuid.UUID           `gorm:"column:source_id;type:uuid"`
	ReceivedAt *time.Time           `gorm:"column:received_at"`
	ReceivedBy *uuid.UUID           `gorm:"column:received_by;type:uuid"`

	ConsumedAt        *time.Time `gorm:"column:consumed_at"`
	ConsumedBy        *uuid.UUID `gorm:"column:consumed_by;type:uuid"`
	ConsumedReason    *string    `gorm:"column:consumed_reason;type:text"`
	ConsumedReference *string    `gorm:"column:consumed_reference;type:text"`

	OrderID    *uuid.UUID `gorm:"column:order_id;type:uuid"`
	CustomerID *uuid.UUID `gorm:"column:customer_id;type:uuid"`

	Notes     *string   `gorm:"column:notes;type:text"`
	Version   int64     `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryUnit) TableName() string { return "inventory_units" }

func (u *InventoryUnit) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.Version == 0 {
		u.Version = 1
	}
	return nil
}

// IsConsumed reports whether the unit has been used up by conversion or sale.
func (u *InventoryUnit) IsConsumed() bool {
	return u.ConsumedAt != nil
}
