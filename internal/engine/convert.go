package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox/payloads"
	"github.com/angelmondragon/packfinderz-inventory/pkg/qr"
)

const consumedReasonConversion = "conversion"

// Convert splits a source unit into TargetQuantity children of the target tier.
func (s *Service) Convert(ctx context.Context, input units.ConvertInput) (result *units.ConversionResult, err error) {
	started := time.Now()
	defer func() { s.observe("convert", started, err) }()

	if err := input.Validate(); err != nil {
		return nil, err
	}
	target, ok := s.tiers.Get(input.TargetTierID)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown target tier %q", input.TargetTierID)
	}
	code := strings.TrimSpace(input.SourceCode)

	err = s.withUnitLock(ctx, code, func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			res, err := s.convertTx(ctx, tx, code, target.ID, input)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddChildren(len(result.Children))
	s.logg.Info(s.logg.WithFields(s.logg.WithUnitCode(ctx, code), map[string]any{
		"conversion_id": result.ConversionID.String(),
		"target_tier":   target.ID,
		"children":      len(result.Children),
		"remaining":     result.Summary.SourceRemaining.String(),
	}), "unit converted")
	return result, nil
}

func (s *Service) convertTx(ctx context.Context, tx *gorm.DB, code, targetID string, input units.ConvertInput) (*units.ConversionResult, error) {
	repo := s.units.WithTx(tx)
	target, _ := s.tiers.Get(targetID)

	source, err := repo.FindUnitByCode(ctx, code)
	if err != nil {
		return nil, internal(err, "load source unit")
	}
	if source == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "unit %s not found", code)
	}
	if source.IsConsumed() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "unit %s is already consumed", code)
	}
	if source.Status.IsTerminal() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "unit %s is %s", code, source.Status)
	}
	if source.Status == enums.UnitStatusInTransit {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "unit %s is in transit", code)
	}

	sourceTier, ok := s.tiers.Get(source.TierID)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "source tier %q is not in the catalog", source.TierID)
	}
	if !sourceTier.CanConvertTo(target.ID) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "tier %s cannot be converted to %s", sourceTier.ID, target.ID)
	}

	location, err := repo.FindLocation(ctx, input.LocationID)
	if err != nil {
		return nil, notFound(err, "location")
	}
	if !target.AllowsLocation(location.Type) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "tier %s is not allowed at a %s", target.ID, location.Type)
	}

	consumed := target.Quantity.Mul(decimal.NewFromInt(int64(input.TargetQuantity)))
	if consumed.GreaterThan(source.Quantity) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation,
			"insufficient quantity: need %s%s, unit has %s%s",
			consumed.String(), source.BaseUnit, source.Quantity.String(), source.BaseUnit)
	}

	now := s.now()
	conversionID := uuid.New()
	remaining := source.Quantity.Sub(consumed)
	operator := input.OperatorID
	previousStatus := source.Status
	newStatus := source.Status

	cols := map[string]any{"quantity": remaining}
	if remaining.IsZero() {
		newStatus = enums.UnitStatusConsumed
		cols["status"] = newStatus
		cols["status_changed_at"] = now
		cols["consumed_at"] = now
		cols["consumed_by"] = operator
		cols["consumed_reason"] = consumedReasonConversion
		cols["consumed_reference"] = conversionID.String()
	}
	if err := repo.UpdateUnit(ctx, source.ID, source.Version, cols); err != nil {
		return nil, internal(err, "update source unit")
	}

	if err := repo.InsertScan(ctx, &models.UnitScan{
		UnitID:           source.ID,
		QRCode:           source.QRCode,
		Operation:        enums.ScanConversionOut,
		PreviousStatus:   &previousStatus,
		NewStatus:        &newStatus,
		PreviousLocation: uuidPtr(source.CurrentLocationID),
		NewLocation:      uuidPtr(source.CurrentLocationID),
		QuantityAffected: &consumed,
		OperatorID:       &operator,
		Notes:            input.Notes,
		OrderID:          input.OrderID,
	}); err != nil {
		return nil, internal(err, "record conversion_out scan")
	}

	label := strings.TrimSpace(input.TargetTierLabel)
	if label == "" {
		label = target.Label
	}
	children := make([]models.InventoryUnit, 0, input.TargetQuantity)
	for i := 0; i < input.TargetQuantity; i++ {
		id := uuid.New()
		index := i
		child := models.InventoryUnit{
			ID:                id,
			QRCode:            qr.EncodeUnit(target.QRPrefix, id),
			TierID:            target.ID,
			TierLabel:         label,
			Quantity:          target.Quantity,
			InitialQuantity:   target.Quantity,
			BaseUnit:          source.BaseUnit,
			ProductID:         source.ProductID,
			BatchID:           source.BatchID,
			BatchNumber:       source.BatchNumber,
			CurrentLocationID: location.ID,
			ParentUnitID:      uuidPtr(source.ID),
			ParentUnitIndex:   &index,
			ConversionID:      uuidPtr(conversionID),
			Generation:        source.Generation + 1,
			Status:            enums.UnitStatusAvailable,
			StatusChangedAt:   now,
			SourceType:        enums.UnitSourceConversion,
			SourceID:          uuidPtr(source.ID),
			ReceivedAt:        &now,
			ReceivedBy:        &operator,
			OrderID:           input.OrderID,
			Notes:             input.Notes,
		}
		if err := repo.CreateUnit(ctx, &child); err != nil {
			return nil, internal(err, "create child unit")
		}
		qty := target.Quantity
		if err := repo.InsertScan(ctx, &models.UnitScan{
			UnitID:           child.ID,
			QRCode:           child.QRCode,
			Operation:        enums.ScanConversionIn,
			NewStatus:        statusPtr(enums.UnitStatusAvailable),
			PreviousLocation: uuidPtr(source.CurrentLocationID),
			NewLocation:      uuidPtr(location.ID),
			QuantityAffected: &qty,
			OperatorID:       &operator,
			Notes:            input.Notes,
			OrderID:          input.OrderID,
		}); err != nil {
			return nil, internal(err, "record conversion_in scan")
		}
		children = append(children, child)
	}

	updated, err := repo.FindUnitByID(ctx, source.ID)
	if err != nil {
		return nil, internal(err, "reload source unit")
	}

	childIDs := make([]uuid.UUID, 0, len(children))
	childCodes := make([]string, 0, len(children))
	for _, child := range children {
		childIDs = append(childIDs, child.ID)
		childCodes = append(childCodes, child.QRCode)
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventUnitConverted,
		AggregateType: enums.AggregateInventoryUnit,
		AggregateID:   source.ID,
		Actor:         actor(&operator, location.ID),
		Data: payloads.UnitConvertedEvent{
			ParentUnitID:     source.ID,
			ParentQRCode:     source.QRCode,
			TargetTierID:     target.ID,
			ChildUnitIDs:     childIDs,
			ChildQRCodes:     childCodes,
			QuantityConsumed: consumed,
			ParentRemaining:  remaining,
			OrderID:          input.OrderID,
		},
		OccurredAt: now,
	}); err != nil {
		return nil, internal(err, "emit unit converted")
	}

	return &units.ConversionResult{
		Source:       units.FromModel(updated),
		Children:     units.FromModels(children),
		ConversionID: conversionID,
		Summary: units.ConversionSummary{
			PortionsCreated:  len(children),
			QuantityConsumed: consumed,
			SourceRemaining:  remaining,
		},
	}, nil
}
