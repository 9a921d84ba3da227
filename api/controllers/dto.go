package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/internal/registrar"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
)

type transferItemDTO struct {
	LineNumber       int                  `json:"line_number"`
	ProductID        uuid.UUID            `json:"product_id"`
	Quantity         decimal.Decimal      `json:"quantity"`
	UnitID           *uuid.UUID           `json:"unit_id,omitempty"`
	ReceivedQuantity *decimal.Decimal     `json:"received_quantity,omitempty"`
	Condition        *enums.ItemCondition `json:"condition,omitempty"`
}

type transferDTO struct {
	ID                    uuid.UUID            `json:"id"`
	TransferNumber        string               `json:"transfer_number"`
	QRCode                string               `json:"qr_code"`
	SourceLocationID      uuid.UUID            `json:"source_location_id"`
	DestinationLocationID uuid.UUID            `json:"destination_location_id"`
	Status                enums.TransferStatus `json:"status"`
	Notes                 *string              `json:"notes,omitempty"`
	ShippedAt             time.Time            `json:"shipped_at"`
	ShippedBy             *uuid.UUID           `json:"shipped_by,omitempty"`
	ReceivedAt            *time.Time           `json:"received_at,omitempty"`
	ReceivedBy            *uuid.UUID           `json:"received_by,omitempty"`
	CancelledAt           *time.Time           `json:"cancelled_at,omitempty"`
	CancelledBy           *uuid.UUID           `json:"cancelled_by,omitempty"`
	Items                 []transferItemDTO    `json:"items"`
}

func newTransferDTO(m *models.TransferPackage) *transferDTO {
	if m == nil {
		return nil
	}
	items := make([]transferItemDTO, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, transferItemDTO{
			LineNumber:       item.LineNumber,
			ProductID:        item.ProductID,
			Quantity:         item.Quantity,
			UnitID:           item.UnitID,
			ReceivedQuantity: item.ReceivedQuantity,
			Condition:        item.Condition,
		})
	}
	return &transferDTO{
		ID:                    m.ID,
		TransferNumber:        m.TransferNumber,
		QRCode:                m.QRCode,
		SourceLocationID:      m.SourceLocationID,
		DestinationLocationID: m.DestinationLocationID,
		Status:                m.Status,
		Notes:                 m.Notes,
		ShippedAt:             m.ShippedAt,
		ShippedBy:             m.ShippedBy,
		ReceivedAt:            m.ReceivedAt,
		ReceivedBy:            m.ReceivedBy,
		CancelledAt:           m.CancelledAt,
		CancelledBy:           m.CancelledBy,
		Items:                 items,
	}
}

func newTransferList(list []models.TransferPackage) []*transferDTO {
	out := make([]*transferDTO, 0, len(list))
	for i := range list {
		out = append(out, newTransferDTO(&list[i]))
	}
	return out
}

type ledgerEntryDTO struct {
	ID             uuid.UUID                      `json:"id"`
	Type           enums.InventoryTransactionType `json:"type"`
	Quantity       decimal.Decimal                `json:"quantity"`
	QuantityBefore decimal.Decimal                `json:"quantity_before"`
	QuantityAfter  decimal.Decimal                `json:"quantity_after"`
	ReferenceType  *string                        `json:"reference_type,omitempty"`
	ReferenceID    *uuid.UUID                     `json:"reference_id,omitempty"`
	OperatorID     *uuid.UUID                     `json:"operator_id,omitempty"`
	Notes          *string                        `json:"notes,omitempty"`
	CreatedAt      time.Time                      `json:"created_at"`
}

type ledgerDTO struct {
	LocationID uuid.UUID        `json:"location_id"`
	ProductID  uuid.UUID        `json:"product_id"`
	Quantity   decimal.Decimal  `json:"quantity"`
	History    []ledgerEntryDTO `json:"history,omitempty"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func newLedgerEntries(rows []models.InventoryTransaction) []ledgerEntryDTO {
	out := make([]ledgerEntryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ledgerEntryDTO{
			ID:             row.ID,
			Type:           row.Type,
			Quantity:       row.Quantity,
			QuantityBefore: row.QuantityBefore,
			QuantityAfter:  row.QuantityAfter,
			ReferenceType:  row.ReferenceType,
			ReferenceID:    row.ReferenceID,
			OperatorID:     row.OperatorID,
			Notes:          row.Notes,
			CreatedAt:      row.CreatedAt,
		})
	}
	return out
}

type bulkFailureDTO struct {
	Index   int    `json:"index"`
	TierID  string `json:"tier_id"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type bulkRegisterDTO struct {
	Units    []*units.Unit    `json:"units"`
	Failures []bulkFailureDTO `json:"failures,omitempty"`
}

func newBulkRegisterDTO(result *registrar.BulkResult) bulkRegisterDTO {
	out := bulkRegisterDTO{Units: []*units.Unit{}}
	if result == nil {
		return out
	}
	out.Units = append(out.Units, result.Units...)
	for _, failure := range result.Failures {
		failed := units.FailureResponse(failure.Err)
		out.Failures = append(out.Failures, bulkFailureDTO{
			Index:   failure.Index,
			TierID:  failure.Input.TierID,
			Code:    failed.Code,
			Message: failed.Error,
		})
	}
	return out
}
