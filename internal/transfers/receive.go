package transfers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/internal/ledger"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox/payloads"
)

// ReceiveTransfer books a package in at its destination in one transaction.
// It returns false, nil when the package was already received, leaving the
// ledger untouched.
func (s *Service) ReceiveTransfer(ctx context.Context, input ReceiveTransferInput) (received bool, err error) {
	started := time.Now()
	defer func() { s.observe("transfer_receive", started, err) }()

	if err := input.Validate(); err != nil {
		return false, err
	}

	var pkg *models.TransferPackage
	var unitCount int
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		pkg, unitCount, received, err = s.receiveTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return false, err
	}
	if !received {
		s.logg.Info(s.logg.WithField(ctx, "transfer_id", input.TransferID.String()), "transfer already received")
		return false, nil
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transfer_id":     pkg.ID.String(),
		"transfer_number": pkg.TransferNumber,
		"units":           unitCount,
	}), "transfer received")
	return true, nil
}

func (s *Service) receiveTx(ctx context.Context, tx *gorm.DB, input ReceiveTransferInput) (*models.TransferPackage, int, bool, error) {
	repo := s.repo.WithTx(tx)
	pkg, err := repo.FindByID(ctx, input.TransferID)
	if err != nil {
		return nil, 0, false, internal(err, "load transfer")
	}
	if pkg == nil {
		return nil, 0, false, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
	}
	if pkg.DestinationLocationID != input.LocationID {
		return nil, 0, false, pkgerrors.New(pkgerrors.CodeValidation, "transfer is addressed to a different location")
	}
	switch pkg.Status {
	case enums.TransferStatusCompleted:
		return pkg, 0, false, nil
	case enums.TransferStatusCancelled:
		return nil, 0, false, pkgerrors.Newf(pkgerrors.CodeStateConflict, "transfer %s was cancelled", pkg.TransferNumber)
	case enums.TransferStatusInTransit:
	default:
		return nil, 0, false, pkgerrors.Newf(pkgerrors.CodeStateConflict, "transfer %s has unknown status %q", pkg.TransferNumber, pkg.Status)
	}

	now := s.now()
	claimed, err := repo.TransitionStatus(ctx, pkg.ID, enums.TransferStatusInTransit, enums.TransferStatusCompleted, map[string]any{
		"received_at": now,
		"received_by": input.OperatorID,
	})
	if err != nil {
		return nil, 0, false, internal(err, "complete transfer")
	}
	if !claimed {
		return pkg, 0, false, nil
	}

	overrides := make(map[int]ReceivedItemInput, len(input.Items))
	for _, item := range input.Items {
		overrides[item.LineNumber] = item
	}
	unitRepo := s.units.WithTx(tx)
	ledgerSvc := s.ledger.WithTx(tx)

	unitCount := 0
	for _, item := range pkg.Items {
		receivedQty, condition := item.Quantity, enums.ItemConditionGood
		if override, ok := overrides[item.LineNumber]; ok {
			if override.ReceivedQuantity != nil {
				receivedQty = *override.ReceivedQuantity
			}
			if override.Condition != nil {
				condition = *override.Condition
			}
		}
		if condition == enums.ItemConditionMissing {
			receivedQty = decimal.Zero
		}
		if err := repo.UpdateItemReceipt(ctx, item.ID, receivedQty, condition); err != nil {
			return nil, 0, false, internal(err, "stamp received quantity")
		}

		if item.UnitID != nil {
			if err := s.receiveUnit(ctx, unitRepo, pkg, *item.UnitID, condition, input.OperatorID, now); err != nil {
				return nil, 0, false, err
			}
			unitCount++
			continue
		}
		if !item.Quantity.IsPositive() {
			continue
		}
		arrived := decimal.Min(decimal.Max(receivedQty, decimal.Zero), item.Quantity)
		if _, err := ledgerSvc.Move(ctx, ledger.MoveInput{
			ProductID:      item.ProductID,
			FromLocationID: pkg.SourceLocationID,
			ToLocationID:   pkg.DestinationLocationID,
			Quantity:       item.Quantity,
			Received:       &arrived,
			Reference:      &ledger.Reference{Type: ledgerReferenceTyp, ID: pkg.ID},
			OperatorID:     input.OperatorID,
			Notes:          shortfallNote(item.LineNumber, item.Quantity, arrived, condition),
		}); err != nil {
			return nil, 0, false, err
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTransferReceived,
		AggregateType: enums.AggregateTransferPackage,
		AggregateID:   pkg.ID,
		Actor:         actor(input.OperatorID, pkg.DestinationLocationID),
		Data: payloads.TransferReceivedEvent{
			TransferID:            pkg.ID,
			TransferNumber:        pkg.TransferNumber,
			DestinationLocationID: pkg.DestinationLocationID,
			UnitCount:             unitCount,
			ReceivedAt:            now,
		},
		OccurredAt: now,
	}); err != nil {
		return nil, 0, false, internal(err, "emit transfer received")
	}
	return pkg, unitCount, true, nil
}

// receiveUnit places a linked unit at the destination and detaches it from the
// package. Only the unit changes; the bulk ledger is not touched. A unit that
// went terminal while in transit keeps its status whatever the line condition.
func (s *Service) receiveUnit(ctx context.Context, repo units.Repository, pkg *models.TransferPackage, unitID uuid.UUID, condition enums.ItemCondition, operatorID *uuid.UUID, now time.Time) error {
	unit, err := repo.FindUnitByID(ctx, unitID)
	if err != nil {
		return notFound(err, "unit")
	}
	status := statusForCondition(condition)
	if unit.IsConsumed() || unit.Status.IsTerminal() {
		status = unit.Status
	}
	destination := pkg.DestinationLocationID
	cols := units.PlacementUpdate{
		LocationID:     &destination,
		Status:         &status,
		DetachTransfer: true,
	}.Columns(now)
	cols["received_at"] = now
	cols["received_by"] = operatorID
	if err := repo.UpdateUnit(ctx, unit.ID, unit.Version, cols); err != nil {
		return internal(err, "receive unit")
	}

	previous := unit.Status
	if err := repo.InsertScan(ctx, &models.UnitScan{
		UnitID:           unit.ID,
		QRCode:           unit.QRCode,
		Operation:        enums.ScanTransferIn,
		PreviousStatus:   &previous,
		NewStatus:        &status,
		PreviousLocation: &unit.CurrentLocationID,
		NewLocation:      &destination,
		OperatorID:       operatorID,
		TransferID:       &pkg.ID,
	}); err != nil {
		return internal(err, "record transfer_in scan")
	}
	return nil
}

// shortfallNote describes a bulk line that arrived short; nil when complete.
func shortfallNote(line int, shipped, arrived decimal.Decimal, condition enums.ItemCondition) *string {
	if arrived.Equal(shipped) {
		return nil
	}
	note := fmt.Sprintf("line %d short: shipped %s, received %s (%s)", line, shipped.String(), arrived.String(), condition)
	return &note
}

func statusForCondition(condition enums.ItemCondition) enums.UnitStatus {
	switch condition {
	case enums.ItemConditionGood:
		return enums.UnitStatusAvailable
	case enums.ItemConditionDamaged:
		return enums.UnitStatusDamaged
	case enums.ItemConditionMissing:
		return enums.UnitStatusOnHold
	default:
		return enums.UnitStatusAvailable
	}
}
