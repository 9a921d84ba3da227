package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-inventory/api/middleware"
	"github.com/angelmondragon/packfinderz-inventory/api/responses"
	"github.com/angelmondragon/packfinderz-inventory/api/validators"
	"github.com/angelmondragon/packfinderz-inventory/internal/transfers"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
)

type TransferService interface {
	CreateTransfer(ctx context.Context, input transfers.CreateTransferInput) (*models.TransferPackage, error)
	LookupTransfer(ctx context.Context, code string) (*models.TransferPackage, error)
	ReceiveTransfer(ctx context.Context, input transfers.ReceiveTransferInput) (bool, error)
	CancelTransfer(ctx context.Context, input transfers.CancelTransferInput) (*models.TransferPackage, error)
	ListIncoming(ctx context.Context, destinationID uuid.UUID) ([]models.TransferPackage, error)
}

type receiveTransferPayload struct {
	LocationID *uuid.UUID                    `json:"location_id,omitempty"`
	Items      []transfers.ReceivedItemInput `json:"items,omitempty" validate:"dive"`
}

type cancelTransferPayload struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type receiveTransferResponse struct {
	Received bool `json:"received"`
}

func CreateTransfer(svc TransferService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		var input transfers.CreateTransferInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if input.OperatorID == nil {
			input.OperatorID = middleware.OperatorIDFromContext(ctx)
		}

		pkg, err := svc.CreateTransfer(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newTransferDTO(pkg))
	}
}

// LookupTransfer resolves a scanned package label.
func LookupTransfer(svc TransferService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		code := validators.SanitizeCode(chi.URLParam(r, "code"))
		pkg, err := svc.LookupTransfer(ctx, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if pkg == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found"))
			return
		}
		responses.WriteSuccess(w, newTransferDTO(pkg))
	}
}

// ReceiveTransfer completes a package at the operator's location. A package
// that was already received answers 200 with received=false.
func ReceiveTransfer(svc TransferService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		transferID, err := validators.ParseUUIDParam(r, "transferId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload receiveTransferPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := transfers.ReceiveTransferInput{
			TransferID: transferID,
			OperatorID: middleware.OperatorIDFromContext(ctx),
			Items:      payload.Items,
		}
		switch {
		case payload.LocationID != nil:
			input.LocationID = *payload.LocationID
		case middleware.LocationIDFromContext(ctx) != nil:
			input.LocationID = *middleware.LocationIDFromContext(ctx)
		}

		received, err := svc.ReceiveTransfer(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, receiveTransferResponse{Received: received})
	}
}

func CancelTransfer(svc TransferService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		transferID, err := validators.ParseUUIDParam(r, "transferId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload cancelTransferPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pkg, err := svc.CancelTransfer(ctx, transfers.CancelTransferInput{
			TransferID: transferID,
			OperatorID: middleware.OperatorIDFromContext(ctx),
			Reason:     validators.SanitizeString(payload.Reason, 500),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransferDTO(pkg))
	}
}

// IncomingTransfers lists packages in transit to a location, oldest first.
func IncomingTransfers(svc TransferService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		locationID, err := validators.ParseUUIDParam(r, "locationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.ListIncoming(ctx, locationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransferList(list))
	}
}
