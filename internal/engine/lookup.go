package engine

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
)

// Lookup resolves a code with full lineage: parent, children and recent scans.
// A scoped lookup reports not found unless the unit's location is known to
// belong to StoreID.
func (s *Service) Lookup(ctx context.Context, input units.LookupInput) (result *units.LookupResult, err error) {
	started := time.Now()
	defer func() { s.observe("lookup", started, err) }()

	if err := input.Validate(); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(input.Code)
	miss := &units.LookupResult{Found: false, Source: units.LookupSourceValidated}

	unit, err := s.units.FindUnitByCode(ctx, code)
	if err != nil {
		return nil, internal(err, "load unit")
	}
	if unit == nil {
		return miss, nil
	}

	out := &units.LookupResult{
		Found:  true,
		Source: units.LookupSourceValidated,
		Unit:   units.FromModel(unit),
	}
	location, err := s.units.FindLocation(ctx, unit.CurrentLocationID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "lookup location join failed")
		location = nil
	}
	if !input.Admits(location) {
		return miss, nil
	}
	if location != nil {
		out.Location = units.LocationFromModel(location)
	}
	if product, err := s.units.FindProduct(ctx, unit.ProductID); err == nil {
		out.Product = units.ProductFromModel(product)
	} else {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "lookup product join failed")
	}

	if unit.ParentUnitID != nil {
		parent, err := s.units.FindUnitByID(ctx, *unit.ParentUnitID)
		if err != nil {
			return nil, notFound(err, "parent unit")
		}
		out.Parent = units.FromModel(parent)
	}
	children, err := s.units.ListChildren(ctx, unit.ID)
	if err != nil {
		return nil, internal(err, "list children")
	}
	if len(children) > 0 {
		out.Children = units.FromModels(children)
	}
	scans, err := s.units.ListScans(ctx, unit.ID, 0)
	if err != nil {
		return nil, internal(err, "list scans")
	}
	for _, scan := range scans {
		out.Scans = append(out.Scans, units.ScanFromModel(scan))
	}
	return out, nil
}
