package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
)

// UnitRegisteredEvent is emitted when a new unit identity is minted.
type UnitRegisteredEvent struct {
	UnitID     uuid.UUID            `json:"unit_id"`
	QRCode     string               `json:"qr_code"`
	TierID     string               `json:"tier_id"`
	ProductID  uuid.UUID            `json:"product_id"`
	LocationID uuid.UUID            `json:"location_id"`
	Quantity   decimal.Decimal      `json:"quantity"`
	SourceType enums.UnitSourceType `json:"source_type"`
}

// UnitConvertedEvent is emitted when a parent unit is split into children.
type UnitConvertedEvent struct {
	ParentUnitID     uuid.UUID       `json:"parent_unit_id"`
	ParentQRCode     string          `json:"parent_qr_code"`
	TargetTierID     string          `json:"target_tier_id"`
	ChildUnitIDs     []uuid.UUID     `json:"child_unit_ids"`
	ChildQRCodes     []string        `json:"child_qr_codes"`
	QuantityConsumed decimal.Decimal `json:"quantity_consumed"`
	ParentRemaining  decimal.Decimal `json:"parent_remaining"`
	OrderID          *uuid.UUID      `json:"order_id,omitempty"`
}

// PortionSoldEvent is emitted for each weighed sale drawn from a portion unit.
type PortionSoldEvent struct {
	UnitID       uuid.UUID        `json:"unit_id"`
	QRCode       string           `json:"qr_code"`
	ProductID    uuid.UUID        `json:"product_id"`
	QuantitySold decimal.Decimal  `json:"quantity_sold"`
	Remaining    decimal.Decimal  `json:"remaining"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	OrderID      *uuid.UUID       `json:"order_id,omitempty"`
	CustomerID   *uuid.UUID       `json:"customer_id,omitempty"`
	Consumed     bool             `json:"consumed"`
}

// TransferCreatedEvent is emitted when a package is built and marked in transit.
type TransferCreatedEvent struct {
	TransferID            uuid.UUID   `json:"transfer_id"`
	TransferNumber        string      `json:"transfer_number"`
	SourceLocationID      uuid.UUID   `json:"source_location_id"`
	DestinationLocationID uuid.UUID   `json:"destination_location_id"`
	UnitIDs               []uuid.UUID `json:"unit_ids"`
}

// TransferReceivedEvent is emitted once per package receipt.
type TransferReceivedEvent struct {
	TransferID            uuid.UUID `json:"transfer_id"`
	TransferNumber        string    `json:"transfer_number"`
	DestinationLocationID uuid.UUID `json:"destination_location_id"`
	UnitCount             int       `json:"unit_count"`
	ReceivedAt            time.Time `json:"received_at"`
}

// TransferCancelledEvent is emitted when an in-transit package is abandoned.
type TransferCancelledEvent struct {
	TransferID     uuid.UUID `json:"transfer_id"`
	TransferNumber string    `json:"transfer_number"`
	Reason         string    `json:"reason,omitempty"`
	CancelledAt    time.Time `json:"cancelled_at"`
}
