// Package engine is the server side of the validated unit operations. Every
// structural change runs in one transaction, guarded by the unit version and,
// when Redis is configured, a per-unit lock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/internal/tiers"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
	"github.com/angelmondragon/packfinderz-inventory/pkg/metrics"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the engine collaborators.
type ServiceParams struct {
	Tx      txRunner
	Units   units.Repository
	Tiers   *tiers.Catalog
	Outbox  outboxPublisher
	Locker  UnitLocker
	Metrics *metrics.InventoryMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

// Service implements units.ValidatedUnitOps against the relational store.
type Service struct {
	tx      txRunner
	units   units.Repository
	tiers   *tiers.Catalog
	outbox  outboxPublisher
	locker  UnitLocker
	metrics *metrics.InventoryMetrics
	logg    *logger.Logger
	now     func() time.Time
}

var _ units.ValidatedUnitOps = (*Service)(nil)

// NewService validates the params and builds the engine.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Units == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	if params.Tiers == nil {
		return nil, fmt.Errorf("tier catalog required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		tx:      params.Tx,
		units:   params.Units,
		tiers:   params.Tiers,
		outbox:  params.Outbox,
		locker:  params.Locker,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     params.Now,
	}, nil
}

// withUnitLock runs fn while holding the unit lock. Without a locker fn runs
// directly and the version check alone serializes writers.
func (s *Service) withUnitLock(ctx context.Context, code string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}
	lock, err := s.locker.UnitLock(code)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unit lock unavailable")
	}
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unit lock unavailable")
	}
	if !acquired {
		return pkgerrors.New(pkgerrors.CodeConflict, "unit is busy with another operation; retry")
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to release unit lock")
		}
	}()
	return fn()
}

func (s *Service) observe(operation string, started time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case isRejection(err):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.Observe(operation, outcome, time.Since(started))
}

func isRejection(err error) bool {
	te := pkgerrors.As(err)
	if te == nil {
		return false
	}
	switch te.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict, pkgerrors.CodeStateConflict:
		return true
	default:
		return false
	}
}

// notFound turns a missing row into a typed NOT_FOUND error.
func notFound(err error, what string) error {
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

func statusPtr(status enums.UnitStatus) *enums.UnitStatus {
	return &status
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
