package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/api/middleware"
	"github.com/angelmondragon/packfinderz-inventory/api/responses"
	"github.com/angelmondragon/packfinderz-inventory/api/validators"
	"github.com/angelmondragon/packfinderz-inventory/internal/ledger"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
	"github.com/angelmondragon/packfinderz-inventory/pkg/pagination"
)

type LedgerBook interface {
	Level(ctx context.Context, locationID, productID uuid.UUID) (decimal.Decimal, error)
	History(ctx context.Context, locationID, productID uuid.UUID, params pagination.Params) (*ledger.HistoryPage, error)
	Record(ctx context.Context, input ledger.RecordInput) (*models.InventoryTransaction, error)
}

type ledgerMovementPayload struct {
	Type          enums.InventoryTransactionType `json:"type" validate:"required"`
	Quantity      decimal.Decimal                `json:"quantity"`
	ReferenceType *string                        `json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID                     `json:"reference_id,omitempty"`
	Notes         *string                        `json:"notes,omitempty"`
}

// LedgerLevel returns the bulk on-hand quantity. history=true adds a page of
// movement rows, oldest first, driven by limit and cursor.
func LedgerLevel(svc LedgerBook, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}

		locationID, productID, err := ledgerKeys(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		qty, err := svc.Level(ctx, locationID, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := ledgerDTO{LocationID: locationID, ProductID: productID, Quantity: qty}
		if strings.EqualFold(r.URL.Query().Get("history"), "true") {
			limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			page, err := svc.History(ctx, locationID, productID, pagination.Params{
				Limit:  limit,
				Cursor: r.URL.Query().Get("cursor"),
			})
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			out.History = newLedgerEntries(page.Rows)
			out.NextCursor = page.NextCursor
		}
		responses.WriteSuccess(w, out)
	}
}

// RecordLedgerMovement books a receiving, sale or adjustment against a
// location. Transfer movements are only written by transfer receipt.
func RecordLedgerMovement(svc LedgerBook, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}

		locationID, productID, err := ledgerKeys(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload ledgerMovementPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		switch payload.Type {
		case enums.InventoryTxTransferIn, enums.InventoryTxTransferOut:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "transfer movements are recorded by transfer receipt"))
			return
		}

		input := ledger.RecordInput{
			LocationID: locationID,
			ProductID:  productID,
			Type:       payload.Type,
			Quantity:   payload.Quantity,
			OperatorID: middleware.OperatorIDFromContext(ctx),
			Notes:      payload.Notes,
		}
		if payload.ReferenceType != nil && payload.ReferenceID != nil {
			input.Reference = &ledger.Reference{Type: *payload.ReferenceType, ID: *payload.ReferenceID}
		}

		txn, err := svc.Record(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newLedgerEntries([]models.InventoryTransaction{*txn})[0])
	}
}

func ledgerKeys(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	locationID, err := validators.ParseUUIDParam(r, "locationId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	productID, err := validators.ParseUUIDParam(r, "productId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return locationID, productID, nil
}
