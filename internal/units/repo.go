package units

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
)

const defaultScanHistoryLimit = 50

// Repository persists tracked units and their scan history.
type Repository interface {
	DirectUnitOps
	WithTx(tx *gorm.DB) Repository
	FindUnitByID(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error)
	CreateUnit(ctx context.Context, unit *models.InventoryUnit) error
	// UpdateUnit applies cols when the stored version still equals version and
	// bumps it. A lost race returns a CONFLICT error.
	UpdateUnit(ctx context.Context, id uuid.UUID, version int64, cols map[string]any) error
	InsertScan(ctx context.Context, scan *models.UnitScan) error
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.InventoryUnit, error)
	ListScans(ctx context.Context, unitID uuid.UUID, limit int) ([]models.UnitScan, error)
	ListByTransfer(ctx context.Context, transferID uuid.UUID) ([]models.InventoryUnit, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository returns a unit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) FindUnitByCode(ctx context.Context, code string) (*models.InventoryUnit, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var unit models.InventoryUnit
	err := r.db.WithContext(ctx).Where("qr_code = ?", code).Take(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindUnitByID(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error) {
	var unit models.InventoryUnit
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *repository) CreateUnit(ctx context.Context, unit *models.InventoryUnit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *repository) UpdateUnit(ctx context.Context, id uuid.UUID, version int64, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	updates := make(map[string]any, len(cols)+2)
	for k, v := range cols {
		updates[k] = v
	}
	updates["version"] = version + 1
	updates["updated_at"] = r.now()

	result := r.db.WithContext(ctx).
		Model(&models.InventoryUnit{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "unit was modified concurrently; retry the operation")
	}
	return nil
}

func (r *repository) InsertScan(ctx context.Context, scan *models.UnitScan) error {
	return r.db.WithContext(ctx).Create(scan).Error
}

func (r *repository) ApplyScan(ctx context.Context, mutation ScanMutation) (*models.InventoryUnit, error) {
	var updated *models.InventoryUnit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := r.WithTx(tx)
		scan := mutation.Scan
		if err := txRepo.InsertScan(ctx, &scan); err != nil {
			return err
		}
		if !mutation.Update.IsEmpty() {
			if err := txRepo.UpdateUnit(ctx, mutation.UnitID, mutation.ExpectedVersion, mutation.Update.Columns(r.now())); err != nil {
				return err
			}
		}
		unit, err := txRepo.FindUnitByID(ctx, mutation.UnitID)
		if err != nil {
			return err
		}
		updated = unit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *repository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.InventoryUnit, error) {
	var children []models.InventoryUnit
	if err := r.db.WithContext(ctx).
		Where("parent_unit_id = ?", parentID).
		Order("parent_unit_index ASC").
		Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

func (r *repository) ListScans(ctx context.Context, unitID uuid.UUID, limit int) ([]models.UnitScan, error) {
	if limit <= 0 {
		limit = defaultScanHistoryLimit
	}
	var scans []models.UnitScan
	if err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("created_at DESC").
		Limit(limit).
		Find(&scans).Error; err != nil {
		return nil, err
	}
	return scans, nil
}

func (r *repository) ListByTransfer(ctx context.Context, transferID uuid.UUID) ([]models.InventoryUnit, error) {
	var list []models.InventoryUnit
	if err := r.db.WithContext(ctx).
		Where("transfer_id = ?", transferID).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
