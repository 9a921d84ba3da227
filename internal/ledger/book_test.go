package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/pagination"
)

func TestNewBookRequiresCollaborators(t *testing.T) {
	svc, conn := newSQLiteService(t)
	if _, err := NewBook(nil, svc); err == nil {
		t.Fatalf("expected error without tx runner")
	}
	if _, err := NewBook(db.FromGorm(conn), nil); err == nil {
		t.Fatalf("expected error without service")
	}
}

func TestBookRecordCommitsLevelAndRow(t *testing.T) {
	svc, conn := newSQLiteService(t)
	book, err := NewBook(db.FromGorm(conn), svc)
	if err != nil {
		t.Fatalf("NewBook: %v", err)
	}
	ctx := context.Background()
	location, product := uuid.New(), uuid.New()

	txn, err := book.Record(ctx, RecordInput{
		LocationID: location,
		ProductID:  product,
		Type:       enums.InventoryTxReceiving,
		Quantity:   decimal.NewFromInt(12),
		Reference:  &Reference{Type: "purchase_order", ID: uuid.New()},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if txn.ReferenceType == nil || *txn.ReferenceType != "purchase_order" {
		t.Fatalf("expected reference to be stored, got %v", txn.ReferenceType)
	}

	level, err := book.Level(ctx, location, product)
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	if !level.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected level 12, got %s", level)
	}
	history, err := book.History(ctx, location, product, pagination.Params{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history.Rows) != 1 || history.NextCursor != "" {
		t.Fatalf("expected 1 transaction on a single page, got %d (cursor %q)", len(history.Rows), history.NextCursor)
	}
}

func TestBookRecordRejectsWithoutWriting(t *testing.T) {
	svc, conn := newSQLiteService(t)
	book, err := NewBook(db.FromGorm(conn), svc)
	if err != nil {
		t.Fatalf("NewBook: %v", err)
	}

	_, err = book.Record(context.Background(), RecordInput{
		LocationID: uuid.New(),
		ProductID:  uuid.New(),
		Type:       enums.InventoryTxSale,
		Quantity:   decimal.Zero,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var count int64
	if err := conn.Model(&models.InventoryLevel{}).Count(&count).Error; err != nil {
		t.Fatalf("count levels: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no level rows, got %d", count)
	}
}
