// Package scans records barcode scans on the hot path, straight against the store.
package scans

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
	"github.com/angelmondragon/packfinderz-inventory/pkg/metrics"
)

// ScanInput is one scan event from a handheld or POS scanner.
type ScanInput struct {
	Code        string              `json:"code" validate:"required"`
	Operation   enums.ScanOperation `json:"operation" validate:"required"`
	LocationID  uuid.UUID           `json:"location_id" validate:"required"`
	BinLocation *string             `json:"bin_location,omitempty"`
	Status      *enums.UnitStatus   `json:"status,omitempty"`
	Quantity    *decimal.Decimal    `json:"quantity,omitempty"`
	OperatorID  *uuid.UUID          `json:"operator_id,omitempty"`
	TransferID  *uuid.UUID          `json:"transfer_id,omitempty"`
	OrderID     *uuid.UUID          `json:"order_id,omitempty"`
	Notes       *string             `json:"notes,omitempty"`
}

// ScanResult reports what a scan did. Found is false for codes no unit carries.
type ScanResult struct {
	Found            bool                `json:"found"`
	Success          bool                `json:"success"`
	Operation        enums.ScanOperation `json:"operation,omitempty"`
	TransferInferred bool                `json:"transfer_inferred"`
	Previous         *units.Unit         `json:"previous,omitempty"`
	Updated          *units.Unit         `json:"updated,omitempty"`
}

type Recorder struct {
	ops     units.DirectUnitOps
	metrics *metrics.InventoryMetrics
	logg    *logger.Logger
}

func NewRecorder(ops units.DirectUnitOps, m *metrics.InventoryMetrics, logg *logger.Logger) (*Recorder, error) {
	if ops == nil {
		return nil, fmt.Errorf("direct unit ops required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Recorder{ops: ops, metrics: m, logg: logg}, nil
}

func (in ScanInput) validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if !in.Operation.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown scan operation %q", in.Operation)
	}
	if in.LocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if in.Status != nil && !in.Status.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown unit status %q", *in.Status)
	}
	return nil
}

// Scan records one scan and applies its placement change under the unit's
// version guard. A live unit always moves to the scanning location; a terminal
// status also stamps it consumed. Consumed units only take non-placement scans
// and stay put. A concurrent writer makes the scan fail with CONFLICT and
// leaves no scan row behind.
func (r *Recorder) Scan(ctx context.Context, input ScanInput) (*ScanResult, error) {
	started := time.Now()
	if err := input.validate(); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(input.Code)
	ctx = r.logg.WithUnitCode(ctx, code)

	unit, err := r.ops.FindUnitByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load unit")
	}
	if unit == nil {
		r.metrics.IncScan(string(input.Operation), false)
		return &ScanResult{Found: false, Success: false, Operation: input.Operation}, nil
	}
	retired := unit.IsConsumed() || unit.Status.IsTerminal()
	if retired && input.Operation.MutatesPlacement() {
		r.metrics.IncScan(string(input.Operation), false)
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict,
			"unit %s is %s and cannot take a %s scan", code, unit.Status, input.Operation)
	}

	effective, inferred := inferOperation(input.Operation, unit.CurrentLocationID, input.LocationID)
	notes := input.Notes
	if inferred {
		notes = appendNote(notes, fmt.Sprintf("Auto-transfer: %s → %s",
			r.locationName(ctx, unit.CurrentLocationID), r.locationName(ctx, input.LocationID)))
	}

	previous := unit.Status
	mutation := units.ScanMutation{
		UnitID:          unit.ID,
		ExpectedVersion: unit.Version,
		Scan: models.UnitScan{
			UnitID:           unit.ID,
			QRCode:           unit.QRCode,
			Operation:        effective,
			PreviousStatus:   &previous,
			PreviousLocation: &unit.CurrentLocationID,
			QuantityAffected: input.Quantity,
			OperatorID:       input.OperatorID,
			Notes:            notes,
			TransferID:       input.TransferID,
			OrderID:          input.OrderID,
		},
	}
	newStatus := previous
	newLocation := unit.CurrentLocationID
	if !retired {
		location := input.LocationID
		newLocation = location
		mutation.Update.LocationID = &location
		mutation.Update.BinLocation = input.BinLocation
		if input.Status != nil {
			status := *input.Status
			newStatus = status
			mutation.Update.Status = &status
			if status.IsTerminal() {
				mutation.Update.Consume = &units.Consumption{
					By:        input.OperatorID,
					Reason:    string(status),
					Reference: orderReference(input.OrderID),
				}
			}
		}
	}
	mutation.Scan.NewStatus = &newStatus
	mutation.Scan.NewLocation = &newLocation

	updated, err := r.ops.ApplyScan(ctx, mutation)
	if err != nil {
		r.metrics.IncScan(string(effective), false)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record scan")
	}

	r.metrics.IncScan(string(effective), true)
	r.metrics.Observe("scan_"+string(effective), metrics.OutcomeSuccess, time.Since(started))
	if inferred {
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"from_location_id": unit.CurrentLocationID.String(),
			"to_location_id":   input.LocationID.String(),
		}), "receiving scan inferred as transfer_in")
	}
	return &ScanResult{
		Found:            true,
		Success:          true,
		Operation:        effective,
		TransferInferred: inferred,
		Previous:         units.FromModel(unit),
		Updated:          units.FromModel(updated),
	}, nil
}

func orderReference(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	ref := id.String()
	return &ref
}

// inferOperation turns a receiving scan at a different location into a transfer_in.
func inferOperation(op enums.ScanOperation, current, scannedAt uuid.UUID) (enums.ScanOperation, bool) {
	switch op {
	case enums.ScanReceiving:
		if current != scannedAt {
			return enums.ScanTransferIn, true
		}
		return op, false
	case enums.ScanTransferOut, enums.ScanTransferIn,
		enums.ScanConversionIn, enums.ScanConversionOut,
		enums.ScanAudit, enums.ScanSale, enums.ScanDamage, enums.ScanAdjustment,
		enums.ScanLookup, enums.ScanReprint, enums.ScanBinMove:
		return op, false
	default:
		return op, false
	}
}

// locationName falls back to the id when the name cannot be resolved.
func (r *Recorder) locationName(ctx context.Context, id uuid.UUID) string {
	location, err := r.ops.FindLocation(ctx, id)
	if err != nil || location == nil || location.Name == "" {
		if err != nil {
			r.logg.Warn(r.logg.WithField(ctx, "location_id", id.String()), "location name lookup failed")
		}
		return id.String()
	}
	return location.Name
}

func appendNote(existing *string, note string) *string {
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return &note
	}
	combined := strings.TrimSpace(*existing) + "; " + note
	return &combined
}
