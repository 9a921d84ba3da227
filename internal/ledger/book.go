package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Book is the standalone entry point for manual movements. Each movement runs
// in its own transaction; transfers use a tx-bound Service instead.
type Book struct {
	tx  txRunner
	svc *Service
}

func NewBook(tx txRunner, svc *Service) (*Book, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if svc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &Book{tx: tx, svc: svc}, nil
}

func (b *Book) Level(ctx context.Context, locationID, productID uuid.UUID) (decimal.Decimal, error) {
	return b.svc.Level(ctx, locationID, productID)
}

func (b *Book) History(ctx context.Context, locationID, productID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	return b.svc.HistoryPage(ctx, locationID, productID, params)
}

// Record applies input atomically with its level update.
func (b *Book) Record(ctx context.Context, input RecordInput) (*models.InventoryTransaction, error) {
	var out *models.InventoryTransaction
	err := b.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txn, err := b.svc.WithTx(tx).Record(ctx, input)
		if err != nil {
			return err
		}
		out = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
