package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
)

// TransferPackage records intent to move stock between two locations.
type TransferPackage struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	TransferNumber        string               `gorm:"column:transfer_number;type:text;not null;uniqueIndex:transfer_packages_number_key"`
	QRCode                string               `gorm:"column:qr_code;type:text;not null"`
	SourceLocationID      uuid.UUID            `gorm:"column:source_location_id;type:uuid;not null;index"`
	DestinationLocationID uuid.UUID            `gorm:"column:destination_location_id;type:uuid;not null;index"`
	Status                enums.TransferStatus `gorm:"column:status;type:text;not null"`
	Notes                 *string              `gorm:"column:notes;type:text"`
	ShippedAt             time.Time            `gorm:"column:shipped_at;not null"`
	ShippedBy             *uuid.UUID           `gorm:"column:shipped_by;type:uuid"`
	ReceivedAt            *time.Time           `gorm:"column:received_at"`
	ReceivedBy            *uuid.UUID           `gorm:"column:received_by;type:uuid"`
	CancelledAt           *time.Time           `gorm:"column:cancelled_at"`
	CancelledBy           *uuid.UUID           `gorm:"column:cancelled_by;type:uuid"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`

	Items []TransferItem `gorm:"foreignKey:TransferID;references:ID"`
}

func (TransferPackage) TableName() string { return "transfer_packages" }

func (p *TransferPackage) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// TransferItem is one ordered line of a transfer package.
type TransferItem struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	TransferID       uuid.UUID            `gorm:"column:transfer_id;type:uuid;not null;index"`
	LineNumber       int                  `gorm:"column:line_number;not null"`
	ProductID        uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	Quantity         decimal.Decimal      `gorm:"column:quantity;type:numeric(14,3);not null"`
	UnitID           *uuid.UUID           `gorm:"column:unit_id;type:uuid"`
	ReceivedQuantity *decimal.Decimal     `gorm:"column:received_quantity;type:numeric(14,3)"`
	Condition        *enums.ItemCondition `gorm:"column:condition;type:text"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (TransferItem) TableName() string { return "transfer_items" }

func (i *TransferItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
