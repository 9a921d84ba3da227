package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/pagination"
)

// Repository manages persistence for bulk levels and their movement rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindLevel returns nil, nil when the location has never held the product.
	// On Postgres the row is locked for the rest of the transaction.
	FindLevel(ctx context.Context, locationID, productID uuid.UUID) (*models.InventoryLevel, error)
	CreateLevel(ctx context.Context, level *models.InventoryLevel) error
	SetLevelQuantity(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.InventoryTransaction) error
	// ListTransactionsAfter returns up to limit rows strictly after the cursor,
	// oldest first.
	ListTransactionsAfter(ctx context.Context, locationID, productID uuid.UUID, after *pagination.Cursor, limit int) ([]models.InventoryTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindLevel(ctx context.Context, locationID, productID uuid.UUID) (*models.InventoryLevel, error) {
	var level models.InventoryLevel
	query := r.db.WithContext(ctx).Where("location_id = ? AND product_id = ?", locationID, productID)
	if r.db.Dialector != nil && r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.Take(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *repository) CreateLevel(ctx context.Context, level *models.InventoryLevel) error {
	return r.db.WithContext(ctx).Create(level).Error
}

func (r *repository) SetLevelQuantity(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryLevel{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactionsAfter(ctx context.Context, locationID, productID uuid.UUID, after *pagination.Cursor, limit int) ([]models.InventoryTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("location_id = ? AND product_id = ?", locationID, productID)
	if after != nil {
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var txns []models.InventoryTransaction
	if err := query.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
