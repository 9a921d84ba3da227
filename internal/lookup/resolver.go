// Package lookup resolves scanned codes, reading the store first and falling
// back to the validating endpoint for lineage.
package lookup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
	"github.com/angelmondragon/packfinderz-inventory/pkg/metrics"
)

type Resolver struct {
	direct    units.DirectUnitOps
	validated units.ValidatedUnitOps
	metrics   *metrics.InventoryMetrics
	logg      *logger.Logger
}

func NewResolver(direct units.DirectUnitOps, validated units.ValidatedUnitOps, m *metrics.InventoryMetrics, logg *logger.Logger) (*Resolver, error) {
	if direct == nil {
		return nil, fmt.Errorf("direct unit ops required")
	}
	if validated == nil {
		return nil, fmt.Errorf("validated unit ops required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{direct: direct, validated: validated, metrics: m, logg: logg}, nil
}

// Lookup answers from a direct read when it can. Product and location joins
// are best-effort, except that a store-scoped lookup whose location cannot be
// read falls through like a miss or a failed read to the validating endpoint.
func (r *Resolver) Lookup(ctx context.Context, code string, storeID *uuid.UUID) (*units.LookupResult, error) {
	started := time.Now()
	input := units.LookupInput{Code: strings.TrimSpace(code), StoreID: storeID}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	ctx = r.logg.WithUnitCode(ctx, input.Code)

	result, ok := r.lookupDirect(ctx, input)
	if ok {
		r.metrics.Observe("lookup_direct", metrics.OutcomeSuccess, time.Since(started))
		return result, nil
	}

	result, err := r.validated.Lookup(ctx, input)
	if err != nil {
		r.metrics.Observe("lookup_validated", metrics.OutcomeError, time.Since(started))
		return nil, err
	}
	if result == nil {
		result = &units.LookupResult{Found: false}
	}
	result.Source = units.LookupSourceValidated
	r.metrics.Observe("lookup_validated", metrics.OutcomeSuccess, time.Since(started))
	return result, nil
}

// lookupDirect reports false when the caller should fall back.
func (r *Resolver) lookupDirect(ctx context.Context, input units.LookupInput) (*units.LookupResult, bool) {
	unit, err := r.direct.FindUnitByCode(ctx, input.Code)
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "direct lookup failed, falling back")
		return nil, false
	}
	if unit == nil {
		return nil, false
	}

	out := &units.LookupResult{Found: true, Source: units.LookupSourceDirect, Unit: units.FromModel(unit)}
	location, err := r.direct.FindLocation(ctx, unit.CurrentLocationID)
	switch {
	case err != nil && input.StoreID != nil:
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "store scope unverifiable, falling back")
		return nil, false
	case err != nil:
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "lookup location join failed")
	case !input.Admits(location):
		return &units.LookupResult{Found: false, Source: units.LookupSourceDirect}, true
	case location != nil:
		out.Location = units.LocationFromModel(location)
	}
	product, err := r.direct.FindProduct(ctx, unit.ProductID)
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "lookup product join failed")
	} else {
		out.Product = units.ProductFromModel(product)
	}
	return out, true
}
