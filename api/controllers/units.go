package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-inventory/api/middleware"
	"github.com/angelmondragon/packfinderz-inventory/api/responses"
	"github.com/angelmondragon/packfinderz-inventory/api/validators"
	"github.com/angelmondragon/packfinderz-inventory/internal/registrar"
	"github.com/angelmondragon/packfinderz-inventory/internal/scans"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
)

const maxBulkRegistrations = 200

type ScanRecorder interface {
	Scan(ctx context.Context, input scans.ScanInput) (*scans.ScanResult, error)
}

type UnitResolver interface {
	Lookup(ctx context.Context, code string, storeID *uuid.UUID) (*units.LookupResult, error)
}

type UnitRegistrar interface {
	Register(ctx context.Context, input units.RegisterInput) (*units.Unit, error)
	RegisterBulk(ctx context.Context, inputs []units.RegisterInput) (*registrar.BulkResult, error)
}

type UnitConverter interface {
	Convert(ctx context.Context, input units.ConvertInput) (*units.ConversionResult, error)
}

type PortionSeller interface {
	SellPortion(ctx context.Context, input units.SellPortionInput) (*units.SaleResult, error)
}

type bulkRegisterPayload struct {
	Units []units.RegisterInput `json:"units" validate:"required,min=1"`
}

// RecordScan applies a scanner event. An unknown code answers 404 with the
// found flag so handhelds can prompt for registration.
func RecordScan(svc ScanRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
			return
		}

		var input scans.ScanInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input.Code = validators.SanitizeCode(input.Code)
		input.BinLocation = validators.SanitizeBin(input.BinLocation)
		input.Notes = validators.SanitizeNotes(input.Notes)
		if input.OperatorID == nil {
			input.OperatorID = middleware.OperatorIDFromContext(ctx)
		}

		result, err := svc.Scan(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result == nil || !result.Found {
			responses.WriteSuccessStatus(w, http.StatusNotFound, result)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// LookupUnit resolves a scanned code. store_id narrows the lookup to one
// store's locations.
func LookupUnit(svc UnitResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lookup service unavailable"))
			return
		}

		code := validators.SanitizeCode(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code is required"))
			return
		}
		storeID, err := validators.ParseQueryUUID(r, "store_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Lookup(ctx, code, storeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result == nil || !result.Found {
			responses.WriteSuccessStatus(w, http.StatusNotFound, result)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func RegisterUnit(svc UnitRegistrar, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		var input units.RegisterInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		applyRegisterDefaults(ctx, &input)

		unit, err := svc.Register(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, unit)
	}
}

// RegisterUnitsBulk registers every entry independently. The response lists
// created units and per-entry failures; it is 201 only when nothing failed.
func RegisterUnitsBulk(svc UnitRegistrar, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		var payload bulkRegisterPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if len(payload.Units) > maxBulkRegistrations {
			responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d units per request", maxBulkRegistrations))
			return
		}
		for i := range payload.Units {
			applyRegisterDefaults(ctx, &payload.Units[i])
		}

		result, err := svc.RegisterBulk(ctx, payload.Units)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status := http.StatusCreated
		if len(result.Failures) > 0 {
			status = http.StatusMultiStatus
		}
		responses.WriteSuccessStatus(w, status, newBulkRegisterDTO(result))
	}
}

func ConvertUnit(svc UnitConverter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversion service unavailable"))
			return
		}

		var input units.ConvertInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input.SourceCode = validators.SanitizeCode(chi.URLParam(r, "code"))
		if input.OperatorID == uuid.Nil {
			if operator := middleware.OperatorIDFromContext(ctx); operator != nil {
				input.OperatorID = *operator
			}
		}
		if input.LocationID == uuid.Nil {
			if location := middleware.LocationIDFromContext(ctx); location != nil {
				input.LocationID = *location
			}
		}

		result, err := svc.Convert(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func SellPortion(svc PortionSeller, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sale service unavailable"))
			return
		}

		var input units.SellPortionInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input.SourceCode = validators.SanitizeCode(chi.URLParam(r, "code"))
		if input.OperatorID == uuid.Nil {
			if operator := middleware.OperatorIDFromContext(ctx); operator != nil {
				input.OperatorID = *operator
			}
		}
		if input.LocationID == uuid.Nil {
			if location := middleware.LocationIDFromContext(ctx); location != nil {
				input.LocationID = *location
			}
		}

		result, err := svc.SellPortion(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func applyRegisterDefaults(ctx context.Context, input *units.RegisterInput) {
	input.BinLocation = validators.SanitizeBin(input.BinLocation)
	input.Notes = validators.SanitizeNotes(input.Notes)
	if input.OperatorID == nil {
		input.OperatorID = middleware.OperatorIDFromContext(ctx)
	}
	if input.LocationID == uuid.Nil {
		if location := middleware.LocationIDFromContext(ctx); location != nil {
			input.LocationID = *location
		}
	}
}
