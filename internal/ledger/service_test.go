package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/dbtest"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/pagination"
)

type fakeRepository struct {
	findErr error
	created []models.InventoryTransaction
}

func (f *fakeRepository) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepository) FindLevel(context.Context, uuid.UUID, uuid.UUID) (*models.InventoryLevel, error) {
	return nil, f.findErr
}

func (f *fakeRepository) CreateLevel(context.Context, *models.InventoryLevel) error { return nil }

func (f *fakeRepository) SetLevelQuantity(context.Context, uuid.UUID, decimal.Decimal) error {
	return nil
}

func (f *fakeRepository) CreateTransaction(_ context.Context, txn *models.InventoryTransaction) error {
	f.created = append(f.created, *txn)
	return nil
}

func (f *fakeRepository) ListTransactionsAfter(context.Context, uuid.UUID, uuid.UUID, *pagination.Cursor, int) ([]models.InventoryTransaction, error) {
	return f.created, nil
}

func newSQLiteService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, db
}

func seedLevel(t *testing.T, db *gorm.DB, locationID, productID uuid.UUID, qty int64) {
	t.Helper()
	level := models.InventoryLevel{LocationID: locationID, ProductID: productID, Quantity: decimal.NewFromInt(qty)}
	if err := db.Create(&level).Error; err != nil {
		t.Fatalf("seed level: %v", err)
	}
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}

func TestServiceMoveValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	a, b, product := uuid.New(), uuid.New(), uuid.New()
	cases := map[string]MoveInput{
		"missing product":   {FromLocationID: a, ToLocationID: b, Quantity: decimal.NewFromInt(1)},
		"same location":     {ProductID: product, FromLocationID: a, ToLocationID: a, Quantity: decimal.NewFromInt(1)},
		"zero quantity":     {ProductID: product, FromLocationID: a, ToLocationID: b},
		"missing location":  {ProductID: product, FromLocationID: a, Quantity: decimal.NewFromInt(1)},
		"received above":    {ProductID: product, FromLocationID: a, ToLocationID: b, Quantity: decimal.NewFromInt(1), Received: decimalPtr(2)},
		"negative received": {ProductID: product, FromLocationID: a, ToLocationID: b, Quantity: decimal.NewFromInt(1), Received: decimalPtr(-1)},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Move(context.Background(), input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestServiceMoveWrapsRepositoryErrors(t *testing.T) {
	svc, _ := NewService(&fakeRepository{findErr: errors.New("boom")})
	_, err := svc.Move(context.Background(), MoveInput{
		ProductID:      uuid.New(),
		FromLocationID: uuid.New(),
		ToLocationID:   uuid.New(),
		Quantity:       decimal.NewFromInt(2),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestServiceMoveFloorsSourceAndCreatesDestination(t *testing.T) {
	svc, db := newSQLiteService(t)
	ctx := context.Background()
	from, to, product := uuid.New(), uuid.New(), uuid.New()
	seedLevel(t, db, from, product, 6)
	ref := &Reference{Type: "transfer", ID: uuid.New()}

	res, err := svc.Move(ctx, MoveInput{
		ProductID:      product,
		FromLocationID: from,
		ToLocationID:   to,
		Quantity:       decimal.NewFromInt(10),
		Reference:      ref,
	})
	if err != nil {
		t.Fatalf("Move error: %v", err)
	}
	if !res.Out.QuantityBefore.Equal(decimal.NewFromInt(6)) || !res.Out.QuantityAfter.IsZero() {
		t.Fatalf("unexpected source before/after: %s/%s", res.Out.QuantityBefore, res.Out.QuantityAfter)
	}
	if !res.In.QuantityBefore.IsZero() || !res.In.QuantityAfter.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected destination before/after: %s/%s", res.In.QuantityBefore, res.In.QuantityAfter)
	}
	if res.Out.Type != enums.InventoryTxTransferOut || res.In.Type != enums.InventoryTxTransferIn {
		t.Fatalf("unexpected transaction types: %s/%s", res.Out.Type, res.In.Type)
	}
	if res.In.ReferenceID == nil || *res.In.ReferenceID != ref.ID {
		t.Fatalf("reference not stamped: %+v", res.In)
	}

	fromQty, _ := svc.Level(ctx, from, product)
	toQty, _ := svc.Level(ctx, to, product)
	if !fromQty.IsZero() || !toQty.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected levels: from=%s to=%s", fromQty, toQty)
	}

	var rows int64
	if err := db.Model(&models.InventoryTransaction{}).Count(&rows).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected 2 transaction rows, got %d", rows)
	}
}

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestServiceMoveShortReceiptDecrementsFullQuantity(t *testing.T) {
	svc, db := newSQLiteService(t)
	ctx := context.Background()
	from, to, product := uuid.New(), uuid.New(), uuid.New()
	seedLevel(t, db, from, product, 10)

	res, err := svc.Move(ctx, MoveInput{
		ProductID:      product,
		FromLocationID: from,
		ToLocationID:   to,
		Quantity:       decimal.NewFromInt(10),
		Received:       decimalPtr(7),
	})
	if err != nil {
		t.Fatalf("Move error: %v", err)
	}
	if !res.Out.Quantity.Equal(decimal.NewFromInt(10)) || !res.Out.QuantityAfter.IsZero() {
		t.Fatalf("unexpected source row: qty=%s after=%s", res.Out.Quantity, res.Out.QuantityAfter)
	}
	if res.In == nil || !res.In.Quantity.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected destination row: %+v", res.In)
	}
	toQty, _ := svc.Level(ctx, to, product)
	if !toQty.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected destination level 7, got %s", toQty)
	}
}

func TestServiceMoveNothingReceivedWritesOnlySourceSide(t *testing.T) {
	svc, db := newSQLiteService(t)
	ctx := context.Background()
	from, to, product := uuid.New(), uuid.New(), uuid.New()
	seedLevel(t, db, from, product, 10)

	res, err := svc.Move(ctx, MoveInput{
		ProductID:      product,
		FromLocationID: from,
		ToLocationID:   to,
		Quantity:       decimal.NewFromInt(4),
		Received:       decimalPtr(0),
	})
	if err != nil {
		t.Fatalf("Move error: %v", err)
	}
	if res.In != nil {
		t.Fatalf("expected no destination row, got %+v", res.In)
	}
	fromQty, _ := svc.Level(ctx, from, product)
	if !fromQty.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected source level 6, got %s", fromQty)
	}
	var levels int64
	if err := db.Model(&models.InventoryLevel{}).Where("location_id = ?", to).Count(&levels).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if levels != 0 {
		t.Fatalf("destination level should not be created, got %d rows", levels)
	}
}

func TestServiceMoveFromMissingSourceLeavesNoRow(t *testing.T) {
	svc, db := newSQLiteService(t)
	ctx := context.Background()
	from, to, product := uuid.New(), uuid.New(), uuid.New()
	seedLevel(t, db, to, product, 4)

	res, err := svc.Move(ctx, MoveInput{ProductID: product, FromLocationID: from, ToLocationID: to, Quantity: decimal.NewFromInt(3)})
	if err != nil {
		t.Fatalf("Move error: %v", err)
	}
	if !res.In.QuantityBefore.Equal(decimal.NewFromInt(4)) || !res.In.QuantityAfter.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected destination before/after: %s/%s", res.In.QuantityBefore, res.In.QuantityAfter)
	}
	var levels int64
	if err := db.Model(&models.InventoryLevel{}).Where("location_id = ?", from).Count(&levels).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if levels != 0 {
		t.Fatalf("source level should not be created, got %d rows", levels)
	}
}

func TestServiceRecord(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	location, product := uuid.New(), uuid.New()

	if _, err := svc.Record(ctx, RecordInput{LocationID: location, ProductID: product, Type: enums.InventoryTxReceiving, Quantity: decimal.NewFromInt(20)}); err != nil {
		t.Fatalf("receiving: %v", err)
	}
	if _, err := svc.Record(ctx, RecordInput{LocationID: location, ProductID: product, Type: enums.InventoryTxSale, Quantity: decimal.NewFromInt(5)}); err != nil {
		t.Fatalf("sale: %v", err)
	}
	adj, err := svc.Record(ctx, RecordInput{LocationID: location, ProductID: product, Type: enums.InventoryTxAdjustment, Quantity: decimal.NewFromInt(-2)})
	if err != nil {
		t.Fatalf("adjustment: %v", err)
	}
	if !adj.QuantityBefore.Equal(decimal.NewFromInt(15)) || !adj.QuantityAfter.Equal(decimal.NewFromInt(13)) {
		t.Fatalf("unexpected adjustment before/after: %s/%s", adj.QuantityBefore, adj.QuantityAfter)
	}

	history, err := svc.HistoryPage(ctx, location, product, pagination.Params{})
	if err != nil {
		t.Fatalf("HistoryPage error: %v", err)
	}
	if len(history.Rows) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(history.Rows))
	}

	if _, err := svc.Record(ctx, RecordInput{LocationID: location, ProductID: product, Type: enums.InventoryTxSale, Quantity: decimal.NewFromInt(-1)}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative sale, got %v", err)
	}
	if _, err := svc.Record(ctx, RecordInput{LocationID: location, ProductID: product, Type: "shrinkage", Quantity: decimal.NewFromInt(1)}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}
