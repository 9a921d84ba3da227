package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
)

// UnitScan is the append-only audit row written for every recorded scan.
type UnitScan struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UnitID           uuid.UUID           `gorm:"column:unit_id;type:uuid;not null;index"`
	QRCode           string              `gorm:"column:qr_code;type:text;not null"`
	Operation        enums.ScanOperation `gorm:"column:operation;type:text;not null"`
	PreviousStatus   *enums.UnitStatus   `gorm:"column:previous_status;type:text"`
	NewStatus        *enums.UnitStatus   `gorm:"column:new_status;type:text"`
	PreviousLocation *uuid.UUID          `gorm:"column:previous_location_id;type:uuid"`
	NewLocation      *uuid.UUID          `gorm:"column:new_location_id;type:uuid"`
	QuantityAffected *decimal.Decimal    `gorm:"column:quantity_affected;type:numeric(14,3)"`
	OperatorID       *uuid.UUID          `gorm:"column:operator_id;type:uuid"`
	Notes            *string             `gorm:"column:notes;type:text"`
	TransferID       *uuid.UUID          `gorm:"column:transfer_id;type:uuid"`
	OrderID          *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (UnitScan) TableName() string { return "unit_scans" }

func (s *UnitScan) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
