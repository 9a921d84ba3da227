package transfers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox/payloads"
)

const cancelNote = "transfer cancelled"

// CancelTransfer abandons an in-transit package and releases its units back
// to available at the source. Units that went terminal in transit keep their
// status.
func (s *Service) CancelTransfer(ctx context.Context, input CancelTransferInput) (result *models.TransferPackage, err error) {
	started := time.Now()
	defer func() { s.observe("transfer_cancel", started, err) }()

	if input.TransferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer id is required")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		pkg, err := s.cancelTx(ctx, tx, input)
		if err != nil {
			return err
		}
		result = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "transfer_number", result.TransferNumber), "transfer cancelled")
	return result, nil
}

func (s *Service) cancelTx(ctx context.Context, tx *gorm.DB, input CancelTransferInput) (*models.TransferPackage, error) {
	repo := s.repo.WithTx(tx)
	pkg, err := repo.FindByID(ctx, input.TransferID)
	if err != nil {
		return nil, internal(err, "load transfer")
	}
	if pkg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
	}

	now := s.now()
	moved, err := repo.TransitionStatus(ctx, pkg.ID, enums.TransferStatusInTransit, enums.TransferStatusCancelled, map[string]any{
		"cancelled_at": now,
		"cancelled_by": input.OperatorID,
	})
	if err != nil {
		return nil, internal(err, "cancel transfer")
	}
	if !moved {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "transfer %s is no longer in transit", pkg.TransferNumber)
	}

	unitRepo := s.units.WithTx(tx)
	released, err := unitRepo.ListByTransfer(ctx, pkg.ID)
	if err != nil {
		return nil, internal(err, "list transfer units")
	}
	note := cancelNote
	if input.Reason != "" {
		note = cancelNote + ": " + input.Reason
	}
	for _, unit := range released {
		status := enums.UnitStatusAvailable
		if unit.IsConsumed() || unit.Status.IsTerminal() {
			status = unit.Status
		}
		if err := unitRepo.UpdateUnit(ctx, unit.ID, unit.Version, units.PlacementUpdate{
			Status:         &status,
			DetachTransfer: true,
		}.Columns(now)); err != nil {
			return nil, internal(err, "release unit")
		}
		previous := unit.Status
		if err := unitRepo.InsertScan(ctx, &models.UnitScan{
			UnitID:           unit.ID,
			QRCode:           unit.QRCode,
			Operation:        enums.ScanAdjustment,
			PreviousStatus:   &previous,
			NewStatus:        &status,
			PreviousLocation: &unit.CurrentLocationID,
			NewLocation:      &unit.CurrentLocationID,
			OperatorID:       input.OperatorID,
			Notes:            &note,
			TransferID:       &pkg.ID,
		}); err != nil {
			return nil, internal(err, "record release scan")
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTransferCancelled,
		AggregateType: enums.AggregateTransferPackage,
		AggregateID:   pkg.ID,
		Actor:         actor(input.OperatorID, pkg.SourceLocationID),
		Data: payloads.TransferCancelledEvent{
			TransferID:     pkg.ID,
			TransferNumber: pkg.TransferNumber,
			Reason:         input.Reason,
			CancelledAt:    now,
		},
		OccurredAt: now,
	}); err != nil {
		return nil, internal(err, "emit transfer cancelled")
	}

	pkg.Status = enums.TransferStatusCancelled
	pkg.CancelledAt = &now
	pkg.CancelledBy = input.OperatorID
	return pkg, nil
}
