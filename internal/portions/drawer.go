// Package portions sells weighed quantities out of portion units.
package portions

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
)

type Drawer struct {
	ops units.ValidatedUnitOps
}

func NewDrawer(ops units.ValidatedUnitOps) (*Drawer, error) {
	if ops == nil {
		return nil, fmt.Errorf("validated unit ops required")
	}
	return &Drawer{ops: ops}, nil
}

func (d *Drawer) SellPortion(ctx context.Context, input units.SellPortionInput) (*units.SaleResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return d.ops.SellPortion(ctx, input)
}
