package transfers_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packfinderz-inventory/internal/conversion"
	"github.com/angelmondragon/packfinderz-inventory/internal/engine"
	"github.com/angelmondragon/packfinderz-inventory/internal/ledger"
	"github.com/angelmondragon/packfinderz-inventory/internal/portions"
	"github.com/angelmondragon/packfinderz-inventory/internal/registrar"
	"github.com/angelmondragon/packfinderz-inventory/internal/scans"
	"github.com/angelmondragon/packfinderz-inventory/internal/tiers"
	"github.com/angelmondragon/packfinderz-inventory/internal/transfers"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/dbtest"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox"
	"github.com/angelmondragon/packfinderz-inventory/pkg/pagination"
)

func TestOunceSplitShippedAndSoldByTheGram(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	unitRepo := units.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)

	eng, err := engine.NewService(engine.ServiceParams{
		Tx:     db.FromGorm(conn),
		Units:  unitRepo,
		Tiers:  tiers.Default(),
		Outbox: emitter,
	})
	require.NoError(t, err)
	reg, err := registrar.NewService(eng, nil)
	require.NoError(t, err)
	conv, err := conversion.NewService(eng)
	require.NoError(t, err)
	drawer, err := portions.NewDrawer(eng)
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	svc, err := transfers.NewService(transfers.ServiceParams{
		Tx:     db.FromGorm(conn),
		Repo:   transfers.NewRepository(conn),
		Units:  unitRepo,
		Ledger: ledgerSvc,
		Outbox: emitter,
	})
	require.NoError(t, err)

	dc := dbtest.SeedLocation(t, conn, "North DC", enums.LocationDistributionCenter)
	store := dbtest.SeedLocation(t, conn, "Downtown", enums.LocationRetailStore)
	product := dbtest.SeedProduct(t, conn, "Blue Dream")
	operator := uuid.New()

	ounce, err := reg.Register(ctx, units.RegisterInput{TierID: tiers.Ounce, ProductID: product.ID, LocationID: dc.ID, OperatorID: &operator})
	require.NoError(t, err)

	split, err := conv.Convert(ctx, units.ConvertInput{
		SourceCode:     ounce.QRCode,
		TargetTierID:   tiers.QuarterOunce,
		TargetQuantity: 4,
		LocationID:     dc.ID,
		OperatorID:     operator,
	})
	require.NoError(t, err)
	require.Len(t, split.Children, 4)
	assert.True(t, split.Source.Quantity.IsZero())
	assert.Equal(t, enums.UnitStatusConsumed, split.Source.Status)

	items := make([]transfers.CreateItemInput, 0, len(split.Children))
	for _, child := range split.Children {
		id := child.ID
		items = append(items, transfers.CreateItemInput{ProductID: product.ID, Quantity: child.Quantity, UnitID: &id})
	}
	pkg, err := svc.CreateTransfer(ctx, transfers.CreateTransferInput{
		SourceLocationID:      dc.ID,
		DestinationLocationID: store.ID,
		Items:                 items,
		OperatorID:            &operator,
	})
	require.NoError(t, err)

	_, err = drawer.SellPortion(ctx, units.SellPortionInput{
		SourceCode: split.Children[0].QRCode,
		Quantity:   decimal.NewFromInt(3),
		LocationID: dc.ID,
		OperatorID: operator,
	})
	require.Error(t, err, "units in transit cannot be sold")

	ok, err := svc.ReceiveTransfer(ctx, transfers.ReceiveTransferInput{TransferID: pkg.ID, LocationID: store.ID, OperatorID: &operator})
	require.NoError(t, err)
	require.True(t, ok)

	target := split.Children[0].QRCode
	first, err := drawer.SellPortion(ctx, units.SellPortionInput{SourceCode: target, Quantity: decimal.NewFromInt(3), LocationID: store.ID, OperatorID: operator})
	require.NoError(t, err)
	assert.True(t, first.Remaining.Equal(decimal.NewFromInt(4)))
	assert.False(t, first.Consumed)

	orderID := uuid.New()
	second, err := drawer.SellPortion(ctx, units.SellPortionInput{SourceCode: target, Quantity: decimal.NewFromInt(4), LocationID: store.ID, OperatorID: operator, OrderID: &orderID})
	require.NoError(t, err)
	assert.True(t, second.Remaining.IsZero())
	assert.True(t, second.Consumed)
	assert.Equal(t, enums.UnitStatusSold, second.Unit.Status)
	require.NotNil(t, second.Unit.OrderID)
	assert.Equal(t, orderID, *second.Unit.OrderID)

	var levels int64
	require.NoError(t, conn.Model(&models.InventoryLevel{}).Count(&levels).Error)
	assert.Zero(t, levels, "unit-tracked receipts never touch the bulk ledger")

	for _, child := range split.Children[1:] {
		stored, err := unitRepo.FindUnitByID(ctx, child.ID)
		require.NoError(t, err)
		assert.Equal(t, store.ID, stored.CurrentLocationID)
		assert.Equal(t, enums.UnitStatusAvailable, stored.Status)
	}
}

func TestOunceSplitCarriedToStoreBySingleScan(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	unitRepo := units.NewRepository(conn)

	eng, err := engine.NewService(engine.ServiceParams{
		Tx:     db.FromGorm(conn),
		Units:  unitRepo,
		Tiers:  tiers.Default(),
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	reg, err := registrar.NewService(eng, nil)
	require.NoError(t, err)
	conv, err := conversion.NewService(eng)
	require.NoError(t, err)
	drawer, err := portions.NewDrawer(eng)
	require.NoError(t, err)
	recorder, err := scans.NewRecorder(unitRepo, nil, nil)
	require.NoError(t, err)

	a := dbtest.SeedLocation(t, conn, "North DC", enums.LocationDistributionCenter)
	b := dbtest.SeedLocation(t, conn, "Downtown", enums.LocationRetailStore)
	product := dbtest.SeedProduct(t, conn, "Blue Dream")
	operator := uuid.New()

	ounce, err := reg.Register(ctx, units.RegisterInput{TierID: tiers.Ounce, ProductID: product.ID, LocationID: a.ID, OperatorID: &operator})
	require.NoError(t, err)
	assert.True(t, ounce.Quantity.Equal(decimal.NewFromInt(28)))

	split, err := conv.Convert(ctx, units.ConvertInput{
		SourceCode:     ounce.QRCode,
		TargetTierID:   tiers.QuarterOunce,
		TargetQuantity: 4,
		LocationID:     a.ID,
		OperatorID:     operator,
	})
	require.NoError(t, err)
	require.Len(t, split.Children, 4)
	require.NotNil(t, split.Source.ConsumedAt)
	for _, child := range split.Children {
		assert.Equal(t, 1, child.Generation)
		require.NotNil(t, child.ConversionID)
		assert.Equal(t, split.ConversionID, *child.ConversionID)
	}

	child := split.Children[0]
	res, err := recorder.Scan(ctx, scans.ScanInput{
		Code:       child.QRCode,
		Operation:  enums.ScanReceiving,
		LocationID: b.ID,
		OperatorID: &operator,
	})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.True(t, res.TransferInferred)
	assert.Equal(t, enums.ScanTransferIn, res.Operation)

	stored, err := unitRepo.FindUnitByID(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, stored.CurrentLocationID)
	history, err := unitRepo.ListScans(ctx, child.ID, 0)
	require.NoError(t, err)
	var persisted []enums.ScanOperation
	for _, scan := range history {
		persisted = append(persisted, scan.Operation)
	}
	assert.Contains(t, persisted, enums.ScanTransferIn)
	assert.NotContains(t, persisted, enums.ScanReceiving)

	first, err := drawer.SellPortion(ctx, units.SellPortionInput{SourceCode: child.QRCode, Quantity: decimal.NewFromInt(3), LocationID: b.ID, OperatorID: operator})
	require.NoError(t, err)
	assert.True(t, first.Remaining.Equal(decimal.NewFromInt(4)))
	assert.False(t, first.Consumed)

	orderID := uuid.New()
	second, err := drawer.SellPortion(ctx, units.SellPortionInput{SourceCode: child.QRCode, Quantity: decimal.NewFromInt(4), LocationID: b.ID, OperatorID: operator, OrderID: &orderID})
	require.NoError(t, err)
	assert.True(t, second.Consumed)

	sold, err := unitRepo.FindUnitByID(ctx, child.ID)
	require.NoError(t, err)
	assert.True(t, sold.IsConsumed())
	assert.True(t, sold.Quantity.IsZero())
	require.NotNil(t, sold.OrderID)
	assert.Equal(t, orderID, *sold.OrderID)
}

func TestBulkTransferMovesLedgerOnce(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	svc, err := transfers.NewService(transfers.ServiceParams{
		Tx:     db.FromGorm(conn),
		Repo:   transfers.NewRepository(conn),
		Units:  units.NewRepository(conn),
		Ledger: ledgerSvc,
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)

	a := dbtest.SeedLocation(t, conn, "Warehouse A", enums.LocationWarehouse)
	b := dbtest.SeedLocation(t, conn, "Store B", enums.LocationRetailStore)
	product := dbtest.SeedProduct(t, conn, "Pre-roll Pack")
	_, err = ledgerSvc.Record(ctx, ledger.RecordInput{LocationID: a.ID, ProductID: product.ID, Type: enums.InventoryTxReceiving, Quantity: decimal.NewFromInt(6)})
	require.NoError(t, err)

	pkg, err := svc.CreateTransfer(ctx, transfers.CreateTransferInput{
		SourceLocationID:      a.ID,
		DestinationLocationID: b.ID,
		Items:                 []transfers.CreateItemInput{{ProductID: product.ID, Quantity: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)

	ok, err := svc.ReceiveTransfer(ctx, transfers.ReceiveTransferInput{TransferID: pkg.ID, LocationID: b.ID})
	require.NoError(t, err)
	require.True(t, ok)

	levelA, err := ledgerSvc.Level(ctx, a.ID, product.ID)
	require.NoError(t, err)
	levelB, err := ledgerSvc.Level(ctx, b.ID, product.ID)
	require.NoError(t, err)
	assert.True(t, levelA.IsZero(), "source floors at zero, got %s", levelA)
	assert.True(t, levelB.Equal(decimal.NewFromInt(10)), "destination row created with 10, got %s", levelB)

	outPage, err := ledgerSvc.HistoryPage(ctx, a.ID, product.ID, pagination.Params{})
	require.NoError(t, err)
	out := outPage.Rows
	require.Len(t, out, 2)
	assert.Equal(t, enums.InventoryTxTransferOut, out[1].Type)
	assert.True(t, out[1].QuantityBefore.Equal(decimal.NewFromInt(6)))
	assert.True(t, out[1].QuantityAfter.IsZero())

	inPage, err := ledgerSvc.HistoryPage(ctx, b.ID, product.ID, pagination.Params{})
	require.NoError(t, err)
	in := inPage.Rows
	require.Len(t, in, 1)
	assert.Equal(t, enums.InventoryTxTransferIn, in[0].Type)
	assert.True(t, in[0].QuantityBefore.IsZero())
	assert.True(t, in[0].QuantityAfter.Equal(decimal.NewFromInt(10)))

	again, err := svc.ReceiveTransfer(ctx, transfers.ReceiveTransferInput{TransferID: pkg.ID, LocationID: b.ID})
	require.NoError(t, err)
	assert.False(t, again)

	levelB, err = ledgerSvc.Level(ctx, b.ID, product.ID)
	require.NoError(t, err)
	assert.True(t, levelB.Equal(decimal.NewFromInt(10)), "second receipt must not move stock")
	var txns int64
	require.NoError(t, conn.Model(&models.InventoryTransaction{}).Count(&txns).Error)
	assert.EqualValues(t, 3, txns)
}

func TestBulkReceiptShortfallStaysOffTheSource(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	svc, err := transfers.NewService(transfers.ServiceParams{
		Tx:     db.FromGorm(conn),
		Repo:   transfers.NewRepository(conn),
		Units:  units.NewRepository(conn),
		Ledger: ledgerSvc,
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)

	a := dbtest.SeedLocation(t, conn, "Warehouse A", enums.LocationWarehouse)
	b := dbtest.SeedLocation(t, conn, "Store B", enums.LocationRetailStore)
	gummies := dbtest.SeedProduct(t, conn, "Gummies")
	vapes := dbtest.SeedProduct(t, conn, "Vape Carts")
	for _, p := range []models.Product{gummies, vapes} {
		_, err = ledgerSvc.Record(ctx, ledger.RecordInput{LocationID: a.ID, ProductID: p.ID, Type: enums.InventoryTxReceiving, Quantity: decimal.NewFromInt(10)})
		require.NoError(t, err)
	}

	pkg, err := svc.CreateTransfer(ctx, transfers.CreateTransferInput{
		SourceLocationID:      a.ID,
		DestinationLocationID: b.ID,
		Items: []transfers.CreateItemInput{
			{ProductID: gummies.ID, Quantity: decimal.NewFromInt(10)},
			{ProductID: vapes.ID, Quantity: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)

	missing := enums.ItemConditionMissing
	seven := decimal.NewFromInt(7)
	ok, err := svc.ReceiveTransfer(ctx, transfers.ReceiveTransferInput{
		TransferID: pkg.ID,
		LocationID: b.ID,
		Items: []transfers.ReceivedItemInput{
			{LineNumber: 1, Condition: &missing},
			{LineNumber: 2, ReceivedQuantity: &seven},
		},
	})
	require.NoError(t, err)
	require.True(t, ok)

	level := func(location, product uuid.UUID) decimal.Decimal {
		t.Helper()
		qty, err := ledgerSvc.Level(ctx, location, product)
		require.NoError(t, err)
		return qty
	}
	assert.True(t, level(a.ID, gummies.ID).IsZero(), "missing stock left the source")
	assert.True(t, level(b.ID, gummies.ID).IsZero())
	assert.True(t, level(a.ID, vapes.ID).IsZero(), "short line decrements the shipped quantity")
	assert.True(t, level(b.ID, vapes.ID).Equal(seven))

	page, err := ledgerSvc.HistoryPage(ctx, a.ID, gummies.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)
	var out *models.InventoryTransaction
	for i := range page.Rows {
		if page.Rows[i].Type == enums.InventoryTxTransferOut {
			out = &page.Rows[i]
		}
	}
	require.NotNil(t, out, "missing line still writes transfer_out")
	assert.True(t, out.Quantity.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, out.Notes)
	assert.Contains(t, *out.Notes, "received 0")

	page, err = ledgerSvc.HistoryPage(ctx, b.ID, vapes.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.True(t, page.Rows[0].Quantity.Equal(seven))
}
