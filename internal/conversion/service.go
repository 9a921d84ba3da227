// Package conversion splits a unit into smaller tiers through the validating endpoint.
package conversion

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
)

type Service struct {
	ops units.ValidatedUnitOps
}

func NewService(ops units.ValidatedUnitOps) (*Service, error) {
	if ops == nil {
		return nil, fmt.Errorf("validated unit ops required")
	}
	return &Service{ops: ops}, nil
}

// Convert rejects malformed requests locally; failures from the endpoint are
// returned as-is and never retried.
func (s *Service) Convert(ctx context.Context, input units.ConvertInput) (*units.ConversionResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return s.ops.Convert(ctx, input)
}
