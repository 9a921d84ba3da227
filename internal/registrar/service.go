// Package registrar mints identities for newly received inventory.
package registrar

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
)

// BulkFailure records one input that could not be registered.
type BulkFailure struct {
	Index int
	Input units.RegisterInput
	Err   error
}

// BulkResult lists what a bulk registration produced, in input order.
type BulkResult struct {
	Units    []*units.Unit
	Failures []BulkFailure
}

// Err combines every per-item failure, or nil when all succeeded.
func (r *BulkResult) Err() error {
	if r == nil {
		return nil
	}
	var combined error
	for _, failure := range r.Failures {
		combined = multierr.Append(combined, fmt.Errorf("item %d: %w", failure.Index, failure.Err))
	}
	return combined
}

type Service struct {
	ops  units.ValidatedUnitOps
	logg *logger.Logger
}

func NewService(ops units.ValidatedUnitOps, logg *logger.Logger) (*Service, error) {
	if ops == nil {
		return nil, fmt.Errorf("validated unit ops required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{ops: ops, logg: logg}, nil
}

// Register validates locally and then asks the validating endpoint for a new unit.
func (s *Service) Register(ctx context.Context, input units.RegisterInput) (*units.Unit, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return s.ops.Register(ctx, input)
}

// RegisterBulk registers inputs one at a time. A failed item is logged and
// collected without stopping the batch. Cancellation stops issuing further
// items and returns what already succeeded together with ctx.Err().
func (s *Service) RegisterBulk(ctx context.Context, inputs []units.RegisterInput) (*BulkResult, error) {
	result := &BulkResult{Units: make([]*units.Unit, 0, len(inputs))}
	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		unit, err := s.Register(ctx, input)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.Failures = append(result.Failures, BulkFailure{Index: i, Input: input, Err: err})
				return result, ctxErr
			}
			s.logg.Error(s.logg.WithFields(ctx, map[string]any{
				"index":   i,
				"tier_id": input.TierID,
			}), "bulk registration item failed", err)
			result.Failures = append(result.Failures, BulkFailure{Index: i, Input: input, Err: err})
			continue
		}
		result.Units = append(result.Units, unit)
	}
	return result, nil
}
