package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox/payloads"
	"github.com/angelmondragon/packfinderz-inventory/pkg/qr"
)

const defaultBaseUnit = "g"

// Register mints a root unit with a fresh qr code and records its receiving scan.
func (s *Service) Register(ctx context.Context, input units.RegisterInput) (result *units.Unit, err error) {
	started := time.Now()
	defer func() { s.observe("register", started, err) }()

	if err := input.Validate(); err != nil {
		return nil, err
	}
	tier, ok := s.tiers.Get(input.TierID)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown tier %q", input.TierID)
	}
	quantity := tier.Quantity
	if input.Quantity != nil {
		quantity = *input.Quantity
	}

	var created *models.InventoryUnit
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.units.WithTx(tx)

		location, err := repo.FindLocation(ctx, input.LocationID)
		if err != nil {
			return notFound(err, "location")
		}
		if !tier.AllowsLocation(location.Type) {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "tier %s is not allowed at a %s", tier.ID, location.Type)
		}
		product, err := repo.FindProduct(ctx, input.ProductID)
		if err != nil {
			return notFound(err, "product")
		}

		now := s.now()
		id := uuid.New()
		baseUnit := product.BaseUnit
		if baseUnit == "" {
			baseUnit = defaultBaseUnit
		}
		unit := &models.InventoryUnit{
			ID:                id,
			QRCode:            qr.EncodeUnit(tier.QRPrefix, id),
			TierID:            tier.ID,
			TierLabel:         tier.Label,
			Quantity:          quantity,
			InitialQuantity:   quantity,
			BaseUnit:          baseUnit,
			ProductID:         product.ID,
			BatchID:           input.BatchID,
			BatchNumber:       input.BatchNumber,
			CurrentLocationID: location.ID,
			BinLocation:       input.BinLocation,
			Generation:        0,
			Status:            enums.UnitStatusAvailable,
			StatusChangedAt:   now,
			SourceType:        enums.UnitSourceRegistration,
			ReceivedAt:        &now,
			ReceivedBy:        input.OperatorID,
			Notes:             input.Notes,
		}
		if err := repo.CreateUnit(ctx, unit); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "qr code already registered")
			}
			return internal(err, "create unit")
		}

		qty := quantity
		if err := repo.InsertScan(ctx, &models.UnitScan{
			UnitID:           unit.ID,
			QRCode:           unit.QRCode,
			Operation:        enums.ScanReceiving,
			NewStatus:        statusPtr(enums.UnitStatusAvailable),
			NewLocation:      uuidPtr(location.ID),
			QuantityAffected: &qty,
			OperatorID:       input.OperatorID,
			Notes:            input.Notes,
		}); err != nil {
			return internal(err, "record receiving scan")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUnitRegistered,
			AggregateType: enums.AggregateInventoryUnit,
			AggregateID:   unit.ID,
			Actor:         actor(input.OperatorID, location.ID),
			Data: payloads.UnitRegisteredEvent{
				UnitID:     unit.ID,
				QRCode:     unit.QRCode,
				TierID:     unit.TierID,
				ProductID:  unit.ProductID,
				LocationID: location.ID,
				Quantity:   unit.Quantity,
				SourceType: unit.SourceType,
			},
			OccurredAt: now,
		}); err != nil {
			return internal(err, "emit unit registered")
		}

		created = unit
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithUnitCode(ctx, created.QRCode), map[string]any{
		"tier_id":     created.TierID,
		"location_id": created.CurrentLocationID.String(),
	}), "unit registered")
	return units.FromModel(created), nil
}
