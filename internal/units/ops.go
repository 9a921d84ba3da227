package units

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
)

// ValidatedUnitOps are the structural operations that must be serialized by
// the validating endpoint. units.Client implements it over HTTP and
// engine.Service implements it in-process.
type ValidatedUnitOps interface {
	Register(ctx context.Context, input RegisterInput) (*Unit, error)
	Convert(ctx context.Context, input ConvertInput) (*ConversionResult, error)
	Lookup(ctx context.Context, input LookupInput) (*LookupResult, error)
	SellPortion(ctx context.Context, input SellPortionInput) (*SaleResult, error)
}

// DirectUnitOps are the hot-path reads and writes that go straight to the store.
type DirectUnitOps interface {
	// FindUnitByCode returns nil, nil when no unit carries the code.
	FindUnitByCode(ctx context.Context, code string) (*models.InventoryUnit, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
	ApplyScan(ctx context.Context, mutation ScanMutation) (*models.InventoryUnit, error)
}

// PlacementUpdate lists the unit fields a scan may change. Nil means untouched.
type PlacementUpdate struct {
	LocationID  *uuid.UUID
	BinLocation *string
	Status      *enums.UnitStatus
	TransferID  *uuid.UUID
	// DetachTransfer clears transfer_id; it wins over TransferID.
	DetachTransfer bool
	// Consume stamps the consumed_* columns. Set when a terminal status is written.
	Consume *Consumption
}

// Consumption records who took a unit out of stock and why.
type Consumption struct {
	By        *uuid.UUID
	Reason    string
	Reference *string
}

// IsEmpty reports whether the update changes nothing.
func (p PlacementUpdate) IsEmpty() bool {
	return p.LocationID == nil && p.BinLocation == nil && p.Status == nil && p.TransferID == nil && !p.DetachTransfer && p.Consume == nil
}

// ScanMutation is one scan row plus the guarded unit update it implies.
type ScanMutation struct {
	UnitID          uuid.UUID
	ExpectedVersion int64
	Scan            models.UnitScan
	Update          PlacementUpdate
}

// Columns renders the update as column assignments.
func (p PlacementUpdate) Columns(now time.Time) map[string]any {
	cols := map[string]any{}
	if p.LocationID != nil {
		cols["current_location_id"] = *p.LocationID
	}
	if p.BinLocation != nil {
		cols["bin_location"] = *p.BinLocation
	}
	if p.Status != nil {
		cols["status"] = *p.Status
		cols["status_changed_at"] = now
	}
	if p.DetachTransfer {
		cols["transfer_id"] = nil
	} else if p.TransferID != nil {
		cols["transfer_id"] = *p.TransferID
	}
	if p.Consume != nil {
		cols["consumed_at"] = now
		cols["consumed_by"] = p.Consume.By
		cols["consumed_reason"] = p.Consume.Reason
		cols["consumed_reference"] = p.Consume.Reference
	}
	return cols
}
