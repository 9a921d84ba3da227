package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-inventory/api/middleware"
	"github.com/angelmondragon/packfinderz-inventory/api/responses"
	"github.com/angelmondragon/packfinderz-inventory/api/validators"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
)

const maxActionBodyBytes = 1 << 20

// UnitsActions serves the validating endpoint. Every outcome, including
// rejections, is rendered as a units.ActionResponse so remote clients can map
// the code back onto a typed error.
func UnitsActions(ops units.ValidatedUnitOps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ops == nil {
			writeActionFailure(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "unit engine unavailable"))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionBodyBytes))
		if err != nil {
			writeActionFailure(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		action, payload, err := units.DecodeAction(body)
		if err != nil {
			writeActionFailure(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithField(ctx, "action", string(action))
		}

		resp, err := dispatchAction(ctx, ops, action, payload)
		if err != nil {
			writeActionFailure(ctx, logg, w, err)
			return
		}
		resp.Success = true
		responses.WriteJSON(w, http.StatusOK, resp)
	}
}

func dispatchAction(ctx context.Context, ops units.ValidatedUnitOps, action units.Action, payload []byte) (units.ActionResponse, error) {
	operator := middleware.OperatorIDFromContext(ctx)

	switch action {
	case units.ActionRegister:
		var input units.RegisterInput
		if err := validators.DecodeJSONBytes(payload, &input); err != nil {
			return units.ActionResponse{}, err
		}
		if input.OperatorID == nil {
			input.OperatorID = operator
		}
		unit, err := ops.Register(ctx, input)
		return units.ActionResponse{Unit: unit}, err

	case units.ActionConvert:
		var input units.ConvertInput
		if err := validators.DecodeJSONBytes(payload, &input); err != nil {
			return units.ActionResponse{}, err
		}
		if operator != nil && input.OperatorID == uuid.Nil {
			input.OperatorID = *operator
		}
		result, err := ops.Convert(ctx, input)
		return units.ActionResponse{Conversion: result}, err

	case units.ActionLookup:
		var input units.LookupInput
		if err := validators.DecodeJSONBytes(payload, &input); err != nil {
			return units.ActionResponse{}, err
		}
		result, err := ops.Lookup(ctx, input)
		return units.ActionResponse{Lookup: result}, err

	case units.ActionSellPortion:
		var input units.SellPortionInput
		if err := validators.DecodeJSONBytes(payload, &input); err != nil {
			return units.ActionResponse{}, err
		}
		if operator != nil && input.OperatorID == uuid.Nil {
			input.OperatorID = *operator
		}
		result, err := ops.SellPortion(ctx, input)
		return units.ActionResponse{Sale: result}, err
	}
	return units.ActionResponse{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported action %q", action)
}

func writeActionFailure(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	responses.LogError(ctx, logg, err)
	responses.WriteJSON(w, responses.StatusFor(err), units.FailureResponse(err))
}
