package transfers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
)

// CreateItemInput is one product line. UnitID links the line to a tracked unit.
type CreateItemInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitID    *uuid.UUID      `json:"unit_id,omitempty"`
}

type CreateTransferInput struct {
	SourceLocationID      uuid.UUID         `json:"source_location_id" validate:"required"`
	DestinationLocationID uuid.UUID         `json:"destination_location_id" validate:"required"`
	Items                 []CreateItemInput `json:"items" validate:"required,min=1,dive"`
	OperatorID            *uuid.UUID        `json:"operator_id,omitempty"`
	Notes                 *string           `json:"notes,omitempty"`
}

func (in CreateTransferInput) Validate() error {
	if in.SourceLocationID == uuid.Nil || in.DestinationLocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "source and destination locations are required")
	}
	if in.SourceLocationID == in.DestinationLocationID {
		return pkgerrors.New(pkgerrors.CodeValidation, "source and destination must differ")
	}
	if len(in.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	seen := make(map[uuid.UUID]struct{})
	for i, item := range in.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: product id is required", i+1)
		}
		if !item.Quantity.IsPositive() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: quantity must be greater than zero", i+1)
		}
		if item.UnitID != nil {
			if _, dup := seen[*item.UnitID]; dup {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: unit listed twice", i+1)
			}
			seen[*item.UnitID] = struct{}{}
		}
	}
	return nil
}

// ReceivedItemInput overrides what arrived for one line. Omitted lines are
// received in full and in good condition.
type ReceivedItemInput struct {
	LineNumber       int                  `json:"line_number" validate:"required,min=1"`
	ReceivedQuantity *decimal.Decimal     `json:"received_quantity,omitempty"`
	Condition        *enums.ItemCondition `json:"condition,omitempty"`
}

type ReceiveTransferInput struct {
	TransferID uuid.UUID           `json:"transfer_id" validate:"required"`
	LocationID uuid.UUID           `json:"location_id" validate:"required"`
	OperatorID *uuid.UUID          `json:"operator_id,omitempty"`
	Items      []ReceivedItemInput `json:"items,omitempty" validate:"dive"`
}

func (in ReceiveTransferInput) Validate() error {
	if in.TransferID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer id is required")
	}
	if in.LocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "receiving location is required")
	}
	for _, item := range in.Items {
		if item.ReceivedQuantity != nil && item.ReceivedQuantity.IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "line %d: received quantity cannot be negative", item.LineNumber)
		}
		if item.Condition != nil && !item.Condition.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "line %d: unknown condition %q", item.LineNumber, *item.Condition)
		}
	}
	return nil
}

type CancelTransferInput struct {
	TransferID uuid.UUID  `json:"transfer_id" validate:"required"`
	OperatorID *uuid.UUID `json:"operator_id,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}
