// Package ledger keeps per-location running quantities for stock that is not
// tracked unit by unit.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
)

// Reference points a movement back at the document that caused it.
type Reference struct {
	Type string
	ID   uuid.UUID
}

// RecordInput is a one-sided movement at a single location.
type RecordInput struct {
	LocationID uuid.UUID
	ProductID  uuid.UUID
	Type       enums.InventoryTransactionType
	// Quantity is a magnitude for signed types and a signed delta for adjustments.
	Quantity   decimal.Decimal
	Reference  *Reference
	OperatorID *uuid.UUID
	Notes      *string
}

// MoveInput relocates bulk stock between two locations.
type MoveInput struct {
	ProductID      uuid.UUID
	FromLocationID uuid.UUID
	ToLocationID   uuid.UUID
	// Quantity leaves the source.
	Quantity decimal.Decimal
	// Received arrives at the destination when it falls short of Quantity.
	// Nil means all of it; zero books nothing in.
	Received   *decimal.Decimal
	Reference  *Reference
	OperatorID *uuid.UUID
	Notes      *string
}

// MoveResult holds both sides of a move. In is nil when nothing arrived.
type MoveResult struct {
	Out *models.InventoryTransaction
	In  *models.InventoryTransaction
}

type Service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &Service{repo: repo}, nil
}

// WithTx binds the service to an open transaction.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{repo: s.repo.WithTx(tx)}
}

// Level returns the on-hand quantity, zero when no row exists.
func (s *Service) Level(ctx context.Context, locationID, productID uuid.UUID) (decimal.Decimal, error) {
	level, err := s.repo.FindLevel(ctx, locationID, productID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory level")
	}
	if level == nil {
		return decimal.Zero, nil
	}
	return level.Quantity, nil
}

// Move decrements the source by Quantity, floored at zero, and increments the
// destination by the received quantity, creating its level row when missing. A source without a row reads as zero
// and is left without one. Callers wanting atomicity pass a tx-bound service.
func (s *Service) Move(ctx context.Context, input MoveInput) (*MoveResult, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.FromLocationID == uuid.Nil || input.ToLocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination locations are required")
	}
	if input.FromLocationID == input.ToLocationID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination must differ")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	received := input.Quantity
	if input.Received != nil {
		received = *input.Received
		if received.IsNegative() || received.GreaterThan(input.Quantity) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "received quantity must be between zero and the moved quantity")
		}
	}

	out, err := s.apply(ctx, RecordInput{
		LocationID: input.FromLocationID,
		ProductID:  input.ProductID,
		Type:       enums.InventoryTxTransferOut,
		Quantity:   input.Quantity,
		Reference:  input.Reference,
		OperatorID: input.OperatorID,
		Notes:      input.Notes,
	}, false)
	if err != nil {
		return nil, err
	}
	result := &MoveResult{Out: out}
	if received.IsZero() {
		return result, nil
	}
	result.In, err = s.apply(ctx, RecordInput{
		LocationID: input.ToLocationID,
		ProductID:  input.ProductID,
		Type:       enums.InventoryTxTransferIn,
		Quantity:   received,
		Reference:  input.Reference,
		OperatorID: input.OperatorID,
		Notes:      input.Notes,
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Record applies a one-sided movement such as a receiving, sale or adjustment.
func (s *Service) Record(ctx context.Context, input RecordInput) (*models.InventoryTransaction, error) {
	if input.LocationID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location and product are required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid inventory transaction type %q", input.Type)
	}
	if input.Quantity.IsZero() || (input.Type != enums.InventoryTxAdjustment && input.Quantity.IsNegative()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-zero and positive unless adjusting")
	}
	return s.apply(ctx, input, true)
}

func (s *Service) apply(ctx context.Context, input RecordInput, createMissing bool) (*models.InventoryTransaction, error) {
	level, err := s.repo.FindLevel(ctx, input.LocationID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory level")
	}
	before := decimal.Zero
	if level != nil {
		before = level.Quantity
	}

	var after decimal.Decimal
	switch input.Type.Sign() {
	case 1:
		after = before.Add(input.Quantity)
	case -1:
		after = before.Sub(input.Quantity)
	default:
		after = before.Add(input.Quantity)
	}
	if after.IsNegative() {
		after = decimal.Zero
	}

	switch {
	case level != nil:
		if err := s.repo.SetLevelQuantity(ctx, level.ID, after); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update inventory level")
		}
	case createMissing:
		level = &models.InventoryLevel{LocationID: input.LocationID, ProductID: input.ProductID, Quantity: after}
		if err := s.repo.CreateLevel(ctx, level); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create inventory level")
		}
	}

	txn := &models.InventoryTransaction{
		LocationID:     input.LocationID,
		ProductID:      input.ProductID,
		Type:           input.Type,
		Quantity:       input.Quantity,
		QuantityBefore: before,
		QuantityAfter:  after,
		OperatorID:     input.OperatorID,
		Notes:          input.Notes,
	}
	if input.Reference != nil {
		refType, refID := input.Reference.Type, input.Reference.ID
		txn.ReferenceType = &refType
		txn.ReferenceID = &refID
	}
	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append inventory transaction")
	}
	return txn, nil
}
