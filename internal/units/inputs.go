package units

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
)

// RegisterInput asks for a new root unit. Quantity defaults to the tier quantity.
type RegisterInput struct {
	TierID      string           `json:"tier_id"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	ProductID   uuid.UUID        `json:"product_id"`
	LocationID  uuid.UUID        `json:"location_id"`
	BatchID     *uuid.UUID       `json:"batch_id,omitempty"`
	BatchNumber *string          `json:"batch_number,omitempty"`
	BinLocation *string          `json:"bin_location,omitempty"`
	OperatorID  *uuid.UUID       `json:"operator_id,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
}

func (in RegisterInput) Validate() error {
	if strings.TrimSpace(in.TierID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tier id is required")
	}
	if in.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if in.LocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if in.Quantity != nil && !in.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	return nil
}

// ConvertInput splits SourceCode into TargetQuantity units of TargetTierID.
type ConvertInput struct {
	SourceCode      string     `json:"source_code"`
	TargetTierID    string     `json:"target_tier_id"`
	TargetTierLabel string     `json:"target_tier_label,omitempty"`
	TargetQuantity  int        `json:"target_quantity"`
	LocationID      uuid.UUID  `json:"location_id"`
	OperatorID      uuid.UUID  `json:"operator_id"`
	Notes           *string    `json:"notes,omitempty"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
}

func (in ConvertInput) Validate() error {
	if strings.TrimSpace(in.SourceCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "source code is required")
	}
	if strings.TrimSpace(in.TargetTierID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "target tier id is required")
	}
	if in.TargetQuantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "target quantity must be at least 1")
	}
	if in.LocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if in.OperatorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "operator id is required")
	}
	return nil
}

// LookupInput resolves a scanned code, optionally scoped to a store.
type LookupInput struct {
	Code    string     `json:"code"`
	StoreID *uuid.UUID `json:"store_id,omitempty"`
}

func (in LookupInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	return nil
}

// Admits reports whether a unit at location may be shown to this lookup. A
// scoped lookup needs a location known to belong to the requested store.
func (in LookupInput) Admits(location *models.Location) bool {
	if in.StoreID == nil {
		return true
	}
	return location != nil && location.StoreID != nil && *location.StoreID == *in.StoreID
}

// SellPortionInput sells Quantity base units out of SourceCode.
type SellPortionInput struct {
	SourceCode    string           `json:"source_code"`
	Quantity      decimal.Decimal  `json:"quantity"`
	LocationID    uuid.UUID        `json:"location_id"`
	OrderID       *uuid.UUID       `json:"order_id,omitempty"`
	CustomerID    *uuid.UUID       `json:"customer_id,omitempty"`
	OperatorID    uuid.UUID        `json:"operator_id"`
	PricingTierID *string          `json:"pricing_tier_id,omitempty"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty"`
}

func (in SellPortionInput) Validate() error {
	if strings.TrimSpace(in.SourceCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "source code is required")
	}
	if !in.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	if in.LocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if in.OperatorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "operator id is required")
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	return nil
}
