package engine

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox/payloads"
)

const consumedReasonSale = "sale"

// SellPortion draws a weighed quantity out of a unit. A unit drawn to zero is
// marked sold and linked to the order and customer.
func (s *Service) SellPortion(ctx context.Context, input units.SellPortionInput) (result *units.SaleResult, err error) {
	started := time.Now()
	defer func() { s.observe("sale_from_portion", started, err) }()

	if err := input.Validate(); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(input.SourceCode)

	err = s.withUnitLock(ctx, code, func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			res, err := s.sellTx(ctx, tx, code, input)
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

	s.logg.Info(s.logg.WithFields(s.logg.WithUnitCode(ctx, code), map[string]any{
		"quantity":  result.QuantitySold.String(),
		"remaining": result.Remaining.String(),
		"consumed":  result.Consumed,
	}), "portion sold")
	return result, nil
}

func (s *Service) sellTx(ctx context.Context, tx *gorm.DB, code string, input units.SellPortionInput) (*units.SaleResult, error) {
	repo := s.units.WithTx(tx)

	unit, err := repo.FindUnitByCode(ctx, code)
	if err != nil {
		return nil, internal(err, "load unit")
	}
	if unit == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "unit %s not found", code)
	}
	if unit.IsConsumed() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "unit %s is already consumed", code)
	}
	if unit.Status != enums.UnitStatusAvailable {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "unit %s is %s", code, unit.Status)
	}
	if unit.CurrentLocationID != input.LocationID {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "unit %s is not at this location", code)
	}
	if input.Quantity.GreaterThan(unit.Quantity) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation,
			"insufficient quantity: requested %s%s, unit has %s%s",
			input.Quantity.String(), unit.BaseUnit, unit.Quantity.String(), unit.BaseUnit)
	}

	now := s.now()
	operator := input.OperatorID
	remaining := unit.Quantity.Sub(input.Quantity)
	previousStatus := unit.Status
	newStatus := unit.Status
	consumed := remaining.IsZero()

	cols := map[string]any{"quantity": remaining}
	if consumed {
		newStatus = enums.UnitStatusSold
		cols["status"] = newStatus
		cols["status_changed_at"] = now
		cols["consumed_at"] = now
		cols["consumed_by"] = operator
		cols["consumed_reason"] = consumedReasonSale
		if input.OrderID != nil {
			cols["consumed_reference"] = input.OrderID.String()
			cols["order_id"] = *input.OrderID
		}
		if input.CustomerID != nil {
			cols["customer_id"] = *input.CustomerID
		}
	}
	if err := repo.UpdateUnit(ctx, unit.ID, unit.Version, cols); err != nil {
		return nil, internal(err, "update unit")
	}

	quantity := input.Quantity
	if err := repo.InsertScan(ctx, &models.UnitScan{
		UnitID:           unit.ID,
		QRCode:           unit.QRCode,
		Operation:        enums.ScanSale,
		PreviousStatus:   &previousStatus,
		NewStatus:        &newStatus,
		PreviousLocation: uuidPtr(unit.CurrentLocationID),
		NewLocation:      uuidPtr(unit.CurrentLocationID),
		QuantityAffected: &quantity,
		OperatorID:       &operator,
		OrderID:          input.OrderID,
		Notes:            pricingNote(input.PricingTierID),
	}); err != nil {
		return nil, internal(err, "record sale scan")
	}

	var lineTotal *decimal.Decimal
	if input.UnitPrice != nil {
		total := input.UnitPrice.Mul(quantity)
		lineTotal = &total
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPortionSold,
		AggregateType: enums.AggregateInventoryUnit,
		AggregateID:   unit.ID,
		Actor:         actor(&operator, unit.CurrentLocationID),
		Data: payloads.PortionSoldEvent{
			UnitID:       unit.ID,
			QRCode:       unit.QRCode,
			ProductID:    unit.ProductID,
			QuantitySold: quantity,
			Remaining:    remaining,
			UnitPrice:    input.UnitPrice,
			OrderID:      input.OrderID,
			CustomerID:   input.CustomerID,
			Consumed:     consumed,
		},
		OccurredAt: now,
	}); err != nil {
		return nil, internal(err, "emit portion sold")
	}

	updated, err := repo.FindUnitByID(ctx, unit.ID)
	if err != nil {
		return nil, internal(err, "reload unit")
	}
	return &units.SaleResult{
		Unit:         units.FromModel(updated),
		QuantitySold: quantity,
		Remaining:    remaining,
		UnitPrice:    input.UnitPrice,
		LineTotal:    lineTotal,
		Consumed:     consumed,
	}, nil
}

func pricingNote(pricingTierID *string) *string {
	if pricingTierID == nil || strings.TrimSpace(*pricingTierID) == "" {
		return nil
	}
	note := "pricing tier " + strings.TrimSpace(*pricingTierID)
	return &note
}
