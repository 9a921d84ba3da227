package transfers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
)

// Repository persists transfer packages and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Create inserts the package together with its items.
	Create(ctx context.Context, pkg *models.TransferPackage) error
	// FindByID returns nil, nil for unknown packages. Items are ordered by line.
	FindByID(ctx context.Context, id uuid.UUID) (*models.TransferPackage, error)
	// TransitionStatus moves a package out of from; it reports false when
	// another writer already moved it.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TransferStatus, cols map[string]any) (bool, error)
	UpdateItemReceipt(ctx context.Context, itemID uuid.UUID, received decimal.Decimal, condition enums.ItemCondition) error
	ListIncoming(ctx context.Context, destinationID uuid.UUID) ([]models.TransferPackage, error)
	ListInTransitBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.TransferPackage, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transfer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pkg *models.TransferPackage) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TransferPackage, error) {
	var pkg models.TransferPackage
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_number ASC") }).
		Where("id = ?", id).
		Take(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TransferStatus, cols map[string]any) (bool, error) {
	updates := make(map[string]any, len(cols)+1)
	for k, v := range cols {
		updates[k] = v
	}
	updates["status"] = to
	result := r.db.WithContext(ctx).
		Model(&models.TransferPackage{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateItemReceipt(ctx context.Context, itemID uuid.UUID, received decimal.Decimal, condition enums.ItemCondition) error {
	return r.db.WithContext(ctx).
		Model(&models.TransferItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"received_quantity": received,
			"condition":         condition,
		}).Error
}

func (r *repository) ListIncoming(ctx context.Context, destinationID uuid.UUID) ([]models.TransferPackage, error) {
	var list []models.TransferPackage
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_number ASC") }).
		Where("destination_location_id = ? AND status = ?", destinationID, enums.TransferStatusInTransit).
		Order("shipped_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) ListInTransitBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.TransferPackage, error) {
	var list []models.TransferPackage
	q := r.db.WithContext(ctx).
		Where("status = ? AND shipped_at < ?", enums.TransferStatusInTransit, cutoff).
		Order("shipped_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
