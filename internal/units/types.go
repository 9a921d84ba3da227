package units

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	"github.com/angelmondragon/packfinderz-inventory/pkg/qr"
	"github.com/angelmondragon/packfinderz-inventory/pkg/types"
)

// Unit is the wire shape of a tracked unit shared by the engine and its clients.
type Unit struct {
	ID                uuid.UUID            `json:"id"`
	QRCode            string               `json:"qr_code"`
	TierID            string               `json:"tier_id"`
	TierLabel         string               `json:"tier_label"`
	Quantity          decimal.Decimal      `json:"quantity"`
	InitialQuantity   decimal.Decimal      `json:"initial_quantity"`
	BaseUnit          string               `json:"base_unit"`
	ProductID         uuid.UUID            `json:"product_id"`
	BatchID           *uuid.UUID           `json:"batch_id,omitempty"`
	BatchNumber       *string              `json:"batch_number,omitempty"`
	CurrentLocationID uuid.UUID            `json:"current_location_id"`
	BinLocation       *string              `json:"bin_location,omitempty"`
	TransferID        *uuid.UUID           `json:"transfer_id,omitempty"`
	ParentUnitID      *uuid.UUID           `json:"parent_unit_id,omitempty"`
	ParentUnitIndex   *int                 `json:"parent_unit_index,omitempty"`
	ConversionID      *uuid.UUID           `json:"conversion_id,omitempty"`
	Generation        int                  `json:"generation"`
	Status            enums.UnitStatus     `json:"status"`
	StatusChangedAt   types.Timestamp      `json:"status_changed_at"`
	SourceType        enums.UnitSourceType `json:"source_type"`
	SourceID          *uuid.UUID           `json:"source_id,omitempty"`
	ReceivedAt        *types.Timestamp     `json:"received_at,omitempty"`
	ReceivedBy        *uuid.UUID           `json:"received_by,omitempty"`
	ConsumedAt        *types.Timestamp     `json:"consumed_at,omitempty"`
	ConsumedBy        *uuid.UUID           `json:"consumed_by,omitempty"`
	ConsumedReason    *string              `json:"consumed_reason,omitempty"`
	ConsumedReference *string              `json:"consumed_reference,omitempty"`
	OrderID           *uuid.UUID           `json:"order_id,omitempty"`
	CustomerID        *uuid.UUID           `json:"customer_id,omitempty"`
	Notes             *string              `json:"notes,omitempty"`
	Version           int64                `json:"version"`
	CreatedAt         types.Timestamp      `json:"created_at"`
	UpdatedAt         types.Timestamp      `json:"updated_at"`
}

// FromModel maps a persisted unit onto its wire shape.
func FromModel(m *models.InventoryUnit) *Unit {
	if m == nil {
		return nil
	}
	return &Unit{
		ID:                m.ID,
		QRCode:            m.QRCode,
		TierID:            m.TierID,
		TierLabel:         m.TierLabel,
		Quantity:          m.Quantity,
		InitialQuantity:   m.InitialQuantity,
		BaseUnit:          m.BaseUnit,
		ProductID:         m.ProductID,
		BatchID:           m.BatchID,
		BatchNumber:       m.BatchNumber,
		CurrentLocationID: m.CurrentLocationID,
		BinLocation:       m.BinLocation,
		TransferID:        m.TransferID,
		ParentUnitID:      m.ParentUnitID,
		ParentUnitIndex:   m.ParentUnitIndex,
		ConversionID:      m.ConversionID,
		Generation:        m.Generation,
		Status:            m.Status,
		StatusChangedAt:   types.NewTimestamp(m.StatusChangedAt),
		SourceType:        m.SourceType,
		SourceID:          m.SourceID,
		ReceivedAt:        types.TimestampPtr(m.ReceivedAt),
		ReceivedBy:        m.ReceivedBy,
		ConsumedAt:        types.TimestampPtr(m.ConsumedAt),
		ConsumedBy:        m.ConsumedBy,
		ConsumedReason:    m.ConsumedReason,
		ConsumedReference: m.ConsumedReference,
		OrderID:           m.OrderID,
		CustomerID:        m.CustomerID,
		Notes:             m.Notes,
		Version:           m.Version,
		CreatedAt:         types.NewTimestamp(m.CreatedAt),
		UpdatedAt:         types.NewTimestamp(m.UpdatedAt),
	}
}

// FromModels maps a slice of persisted units.
func FromModels(list []models.InventoryUnit) []*Unit {
	out := make([]*Unit, 0, len(list))
	for i := range list {
		out = append(out, FromModel(&list[i]))
	}
	return out
}

// IsConsumed reports whether the unit can no longer be moved.
func (u *Unit) IsConsumed() bool {
	return u != nil && u.ConsumedAt != nil
}

// Class returns the magnitude class encoded in the unit's code.
func (u *Unit) Class() qr.Class {
	if u == nil || u.QRCode == "" {
		return ""
	}
	return qr.Class(strings.ToUpper(u.QRCode[:1]))
}

type ConversionSummary struct {
	PortionsCreated  int             `json:"portions_created"`
	QuantityConsumed decimal.Decimal `json:"quantity_consumed"`
	SourceRemaining  decimal.Decimal `json:"source_remaining"`
}

// ConversionResult is returned by a successful split.
type ConversionResult struct {
	Source       *Unit             `json:"source"`
	Children     []*Unit           `json:"children"`
	ConversionID uuid.UUID         `json:"conversion_id"`
	Summary      ConversionSummary `json:"summary"`
}

// LookupSource tells callers which path answered a lookup.
type LookupSource string

const (
	LookupSourceDirect    LookupSource = "direct"
	LookupSourceValidated LookupSource = "validated"
)

type ProductInfo struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	SKU      string    `json:"sku"`
	Category *string   `json:"category,omitempty"`
	BaseUnit string    `json:"base_unit"`
}

func ProductFromModel(m *models.Product) *ProductInfo {
	if m == nil {
		return nil
	}
	return &ProductInfo{ID: m.ID, Name: m.Name, SKU: m.SKU, Category: m.Category, BaseUnit: m.BaseUnit}
}

type LocationInfo struct {
	ID      uuid.UUID          `json:"id"`
	Name    string             `json:"name"`
	Type    enums.LocationType `json:"type"`
	StoreID *uuid.UUID         `json:"store_id,omitempty"`
}

func LocationFromModel(m *models.Location) *LocationInfo {
	if m == nil {
		return nil
	}
	return &LocationInfo{ID: m.ID, Name: m.Name, Type: m.Type, StoreID: m.StoreID}
}

// ScanRecord is the wire shape of one scan history row.
type ScanRecord struct {
	ID                 uuid.UUID           `json:"id"`
	Operation          enums.ScanOperation `json:"operation"`
	PreviousStatus     *enums.UnitStatus   `json:"previous_status,omitempty"`
	NewStatus          *enums.UnitStatus   `json:"new_status,omitempty"`
	PreviousLocationID *uuid.UUID          `json:"previous_location_id,omitempty"`
	NewLocationID      *uuid.UUID          `json:"new_location_id,omitempty"`
	QuantityAffected   *decimal.Decimal    `json:"quantity_affected,omitempty"`
	OperatorID         *uuid.UUID          `json:"operator_id,omitempty"`
	Notes              *string             `json:"notes,omitempty"`
	TransferID         *uuid.UUID          `json:"transfer_id,omitempty"`
	OrderID            *uuid.UUID          `json:"order_id,omitempty"`
	CreatedAt          types.Timestamp     `json:"created_at"`
}

func ScanFromModel(m models.UnitScan) ScanRecord {
	return ScanRecord{
		ID:                 m.ID,
		Operation:          m.Operation,
		PreviousStatus:     m.PreviousStatus,
		NewStatus:          m.NewStatus,
		PreviousLocationID: m.PreviousLocation,
		NewLocationID:      m.NewLocation,
		QuantityAffected:   m.QuantityAffected,
		OperatorID:         m.OperatorID,
		Notes:              m.Notes,
		TransferID:         m.TransferID,
		OrderID:            m.OrderID,
		CreatedAt:          types.NewTimestamp(m.CreatedAt),
	}
}

// LookupResult carries a unit and whatever context the answering path assembled.
type LookupResult struct {
	Found    bool          `json:"found"`
	Source   LookupSource  `json:"source,omitempty"`
	Unit     *Unit         `json:"unit,omitempty"`
	Product  *ProductInfo  `json:"product,omitempty"`
	Location *LocationInfo `json:"location,omitempty"`
	Parent   *Unit         `json:"parent,omitempty"`
	Children []*Unit       `json:"children,omitempty"`
	Scans    []ScanRecord  `json:"scans,omitempty"`
}

// SaleResult is returned by a portion sale.
type SaleResult struct {
	Unit         *Unit            `json:"unit"`
	QuantitySold decimal.Decimal  `json:"quantity_sold"`
	Remaining    decimal.Decimal  `json:"remaining"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	LineTotal    *decimal.Decimal `json:"line_total,omitempty"`
	Consumed     bool             `json:"consumed"`
}
