// Package transfers moves stock between locations as packages that are
// shipped, then received or cancelled.
package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/internal/ledger"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
	"github.com/angelmondragon/packfinderz-inventory/pkg/metrics"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox/payloads"
	"github.com/angelmondragon/packfinderz-inventory/pkg/qr"
	pkgredis "github.com/angelmondragon/packfinderz-inventory/pkg/redis"
)

const (
	maxNumberAttempts  = 3
	ledgerReferenceTyp = "transfer_package"
)

var numberConstraint = db.UniqueConstraint{
	Name:   "transfer_packages_number_key",
	Target: "transfer_packages.transfer_number",
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the transfer collaborators. Counters is optional.
type ServiceParams struct {
	Tx       txRunner
	Repo     Repository
	Units    units.Repository
	Ledger   *ledger.Service
	Outbox   outbox.Emitter
	Counters pkgredis.CounterStore
	Metrics  *metrics.InventoryMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type Service struct {
	tx       txRunner
	repo     Repository
	units    units.Repository
	ledger   *ledger.Service
	outbox   outbox.Emitter
	counters pkgredis.CounterStore
	metrics  *metrics.InventoryMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("transfer repository required")
	}
	if params.Units == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		tx:       params.Tx,
		repo:     params.Repo,
		units:    params.Units,
		ledger:   params.Ledger,
		outbox:   params.Outbox,
		counters: params.Counters,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

// CreateTransfer ships a package. Linked units go in_transit and stay at the
// source until the package is received; their lines carry the unit's product
// and remaining quantity.
func (s *Service) CreateTransfer(ctx context.Context, input CreateTransferInput) (result *models.TransferPackage, err error) {
	started := time.Now()
	defer func() { s.observe("transfer_create", started, err) }()

	if err := input.Validate(); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		now := s.now()
		number := s.nextNumber(ctx, now)
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			pkg, err := s.createTx(ctx, tx, input, number, now)
			if err != nil {
				return err
			}
			result = pkg
			return nil
		})
		if err == nil || !numberConstraint.Matches(err) {
			break
		}
		s.logg.Warn(s.logg.WithField(ctx, "transfer_number", number), "transfer number taken, retrying")
	}
	if err != nil {
		if numberConstraint.Matches(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate a transfer number")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transfer_id":     result.ID.String(),
		"transfer_number": result.TransferNumber,
		"items":           len(result.Items),
	}), "transfer created")
	return result, nil
}

func (s *Service) createTx(ctx context.Context, tx *gorm.DB, input CreateTransferInput, number string, now time.Time) (*models.TransferPackage, error) {
	unitRepo := s.units.WithTx(tx)
	if _, err := unitRepo.FindLocation(ctx, input.SourceLocationID); err != nil {
		return nil, notFound(err, "source location")
	}
	if _, err := unitRepo.FindLocation(ctx, input.DestinationLocationID); err != nil {
		return nil, notFound(err, "destination location")
	}

	id := uuid.New()
	pkg := &models.TransferPackage{
		ID:                    id,
		TransferNumber:        number,
		QRCode:                qr.EncodeTransfer(id),
		SourceLocationID:      input.SourceLocationID,
		DestinationLocationID: input.DestinationLocationID,
		Status:                enums.TransferStatusInTransit,
		Notes:                 input.Notes,
		ShippedAt:             now,
		ShippedBy:             input.OperatorID,
	}

	var linked []*models.InventoryUnit
	for i, item := range input.Items {
		line := models.TransferItem{
			LineNumber: i + 1,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitID:     item.UnitID,
		}
		if item.UnitID != nil {
			unit, err := unitRepo.FindUnitByID(ctx, *item.UnitID)
			if err != nil {
				return nil, notFound(err, "unit")
			}
			if err := checkShippable(unit, input.SourceLocationID); err != nil {
				return nil, err
			}
			line.ProductID = unit.ProductID
			line.Quantity = unit.Quantity
			linked = append(linked, unit)
		}
		pkg.Items = append(pkg.Items, line)
	}

	if err := s.repo.WithTx(tx).Create(ctx, pkg); err != nil {
		if numberConstraint.Matches(err) {
			return nil, err
		}
		return nil, internal(err, "create transfer")
	}

	unitIDs := make([]uuid.UUID, 0, len(linked))
	for _, unit := range linked {
		inTransit := enums.UnitStatusInTransit
		if err := unitRepo.UpdateUnit(ctx, unit.ID, unit.Version, units.PlacementUpdate{
			Status:     &inTransit,
			TransferID: &pkg.ID,
		}.Columns(now)); err != nil {
			return nil, internal(err, "ship unit")
		}
		previous := unit.Status
		if err := unitRepo.InsertScan(ctx, &models.UnitScan{
			UnitID:           unit.ID,
			QRCode:           unit.QRCode,
			Operation:        enums.ScanTransferOut,
			PreviousStatus:   &previous,
			NewStatus:        &inTransit,
			PreviousLocation: &unit.CurrentLocationID,
			NewLocation:      &unit.CurrentLocationID,
			OperatorID:       input.OperatorID,
			TransferID:       &pkg.ID,
		}); err != nil {
			return nil, internal(err, "record transfer_out scan")
		}
		unitIDs = append(unitIDs, unit.ID)
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTransferCreated,
		AggregateType: enums.AggregateTransferPackage,
		AggregateID:   pkg.ID,
		Actor:         actor(input.OperatorID, input.SourceLocationID),
		Data: payloads.TransferCreatedEvent{
			TransferID:            pkg.ID,
			TransferNumber:        pkg.TransferNumber,
			SourceLocationID:      pkg.SourceLocationID,
			DestinationLocationID: pkg.DestinationLocationID,
			UnitIDs:               unitIDs,
		},
		OccurredAt: now,
	}); err != nil {
		return nil, internal(err, "emit transfer created")
	}
	return pkg, nil
}

func checkShippable(unit *models.InventoryUnit, sourceID uuid.UUID) error {
	switch {
	case unit.IsConsumed() || unit.Status.IsTerminal():
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "unit %s is %s and cannot be shipped", unit.QRCode, unit.Status)
	case unit.Status == enums.UnitStatusInTransit || unit.TransferID != nil:
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "unit %s is already on a transfer", unit.QRCode)
	case unit.CurrentLocationID != sourceID:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unit %s is not at the source location", unit.QRCode)
	}
	return nil
}

// LookupTransfer resolves a scanned package code. Unknown packages return nil, nil.
func (s *Service) LookupTransfer(ctx context.Context, code string) (*models.TransferPackage, error) {
	id, err := qr.DecodeTransferCode(strings.TrimSpace(code))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed transfer code")
	}
	pkg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internal(err, "load transfer")
	}
	return pkg, nil
}

// ListIncoming returns in-transit packages addressed to destinationID, oldest first.
func (s *Service) ListIncoming(ctx context.Context, destinationID uuid.UUID) ([]models.TransferPackage, error) {
	if destinationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination location is required")
	}
	list, err := s.repo.ListIncoming(ctx, destinationID)
	if err != nil {
		return nil, internal(err, "list incoming transfers")
	}
	return list, nil
}

// ListStale returns packages still in transit after maxAge.
func (s *Service) ListStale(ctx context.Context, maxAge time.Duration, limit int) ([]models.TransferPackage, error) {
	list, err := s.repo.ListInTransitBefore(ctx, s.now().Add(-maxAge), limit)
	if err != nil {
		return nil, internal(err, "list stale transfers")
	}
	return list, nil
}

func (s *Service) observe(operation string, started time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		if te := pkgerrors.As(err); te != nil && te.Code() != pkgerrors.CodeInternal && te.Code() != pkgerrors.CodeDependency {
			outcome = metrics.OutcomeRejected
		}
	}
	s.metrics.Observe(operation, outcome, time.Since(started))
}

func notFound(err error, what string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+what)
}

func internal(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}

func actor(operatorID *uuid.UUID, locationID uuid.UUID) *outbox.ActorRef {
	ref := &outbox.ActorRef{LocationID: &locationID}
	if operatorID != nil {
		ref.OperatorID = *operatorID
	}
	return ref
}
