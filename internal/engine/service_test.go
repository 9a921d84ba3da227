package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/internal/tiers"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/dbtest"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/metrics"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox"
	pkgredis "github.com/angelmondragon/packfinderz-inventory/pkg/redis"
)

type fixture struct {
	db        *gorm.DB
	svc       *Service
	warehouse models.Location
	dc        models.Location
	store     models.Location
	product   models.Product
	operator  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Tx:      db.FromGorm(conn),
		Units:   units.NewRepository(conn),
		Tiers:   tiers.Default(),
		Outbox:  outbox.NewService(outbox.NewRepository(conn), nil),
		Metrics: metrics.NewInventoryMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return &fixture{
		db:        conn,
		svc:       svc,
		warehouse: dbtest.SeedLocation(t, conn, "Main Warehouse", enums.LocationWarehouse),
		dc:        dbtest.SeedLocation(t, conn, "North DC", enums.LocationDistributionCenter),
		store:     dbtest.SeedLocation(t, conn, "Downtown", enums.LocationRetailStore),
		product:   dbtest.SeedProduct(t, conn, "Blue Dream"),
		operator:  uuid.New(),
	}
}

func (f *fixture) register(t *testing.T, tierID string, location models.Location) *units.Unit {
	t.Helper()
	unit, err := f.svc.Register(context.Background(), units.RegisterInput{
		TierID:     tierID,
		ProductID:  f.product.ID,
		LocationID: location.ID,
		OperatorID: &f.operator,
	})
	require.NoError(t, err)
	return unit
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	te := pkgerrors.As(err)
	require.NotNil(t, te, "expected typed error, got %v", err)
	assert.Equal(t, code, te.Code(), te.Error())
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestRegisterMintsUnitWithReceivingScan(t *testing.T) {
	f := newFixture(t)
	unit := f.register(t, tiers.Ounce, f.warehouse)

	assert.Equal(t, "D", unit.QRCode[:1])
	assert.True(t, unit.Quantity.Equal(decimal.NewFromInt(28)))
	assert.True(t, unit.InitialQuantity.Equal(decimal.NewFromInt(28)))
	assert.Equal(t, 0, unit.Generation)
	assert.Equal(t, enums.UnitStatusAvailable, unit.Status)
	assert.Equal(t, enums.UnitSourceRegistration, unit.SourceType)
	assert.Equal(t, "g", unit.BaseUnit)
	assert.Equal(t, int64(1), unit.Version)

	assert.Equal(t, int64(1), f.count(t, &models.UnitScan{}, "unit_id = ? AND operation = ?", unit.ID, enums.ScanReceiving))
	assert.Equal(t, int64(1), f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventUnitRegistered))
}

func TestRegisterQuantityOverride(t *testing.T) {
	f := newFixture(t)
	qty := decimal.RequireFromString("26.4")
	unit, err := f.svc.Register(context.Background(), units.RegisterInput{
		TierID:     tiers.Ounce,
		Quantity:   &qty,
		ProductID:  f.product.ID,
		LocationID: f.warehouse.ID,
	})
	require.NoError(t, err)
	assert.True(t, unit.Quantity.Equal(qty))
	assert.Equal(t, "D", unit.QRCode[:1], "class follows the tier, not the override")
}

func TestRegisterRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, units.RegisterInput{TierID: tiers.Gram, ProductID: f.product.ID, LocationID: f.warehouse.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Register(ctx, units.RegisterInput{TierID: "kilo", ProductID: f.product.ID, LocationID: f.warehouse.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Register(ctx, units.RegisterInput{TierID: tiers.Ounce, ProductID: f.product.ID, LocationID: uuid.New()})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.Register(ctx, units.RegisterInput{TierID: tiers.Ounce, ProductID: uuid.New(), LocationID: f.warehouse.ID})
	requireCode(t, err, pkgerrors.CodeNotFound)

	assert.Zero(t, f.count(t, &models.InventoryUnit{}, ""))
	assert.Zero(t, f.count(t, &models.UnitScan{}, ""))
	assert.Zero(t, f.count(t, &models.OutboxEvent{}, ""))
}

func TestConvertFullSplitConsumesSource(t *testing.T) {
	f := newFixture(t)
	ounce := f.register(t, tiers.Ounce, f.dc)

	result, err := f.svc.Convert(context.Background(), units.ConvertInput{
		SourceCode:     ounce.QRCode,
		TargetTierID:   tiers.QuarterOunce,
		TargetQuantity: 4,
		LocationID:     f.dc.ID,
		OperatorID:     f.operator,
	})
	require.NoError(t, err)

	require.Len(t, result.Children, 4)
	assert.Equal(t, 4, result.Summary.PortionsCreated)
	assert.True(t, result.Summary.QuantityConsumed.Equal(decimal.NewFromInt(28)))
	assert.True(t, result.Summary.SourceRemaining.IsZero())

	source := result.Source
	assert.Equal(t, enums.UnitStatusConsumed, source.Status)
	require.NotNil(t, source.ConsumedAt)
	require.NotNil(t, source.ConsumedReason)
	assert.Equal(t, "conversion", *source.ConsumedReason)
	require.NotNil(t, source.ConsumedReference)
	assert.Equal(t, result.ConversionID.String(), *source.ConsumedReference)
	assert.Equal(t, int64(2), source.Version)

	total := decimal.Zero
	seen := map[int]bool{}
	for _, child := range result.Children {
		total = total.Add(child.Quantity)
		assert.Equal(t, "I", child.QRCode[:1])
		assert.Equal(t, 1, child.Generation)
		require.NotNil(t, child.ParentUnitID)
		assert.Equal(t, ounce.ID, *child.ParentUnitID)
		require.NotNil(t, child.ConversionID)
		assert.Equal(t, result.ConversionID, *child.ConversionID)
		require.NotNil(t, child.ParentUnitIndex)
		seen[*child.ParentUnitIndex] = true
		assert.Equal(t, f.dc.ID, child.CurrentLocationID)
		assert.Equal(t, enums.UnitSourceConversion, child.SourceType)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(28)))
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true, 3: true}, seen)

	assert.Equal(t, int64(1), f.count(t, &models.UnitScan{}, "operation = ?", enums.ScanConversionOut))
	assert.Equal(t, int64(4), f.count(t, &models.UnitScan{}, "operation = ?", enums.ScanConversionIn))
	assert.Equal(t, int64(1), f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventUnitConverted))
}

func TestConvertPartialKeepsSourceAvailable(t *testing.T) {
	f := newFixture(t)
	pound := f.register(t, tiers.Pound, f.warehouse)

	result, err := f.svc.Convert(context.Background(), units.ConvertInput{
		SourceCode:      pound.QRCode,
		TargetTierID:    tiers.Ounce,
		TargetTierLabel: "Ounce Bag",
		TargetQuantity:  2,
		LocationID:      f.warehouse.ID,
		OperatorID:      f.operator,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusAvailable, result.Source.Status)
	assert.Nil(t, result.Source.ConsumedAt)
	assert.True(t, result.Source.Quantity.Equal(decimal.NewFromInt(392)))
	assert.Equal(t, "Ounce Bag", result.Children[0].TierLabel)

	sum := result.Source.Quantity
	for _, child := range result.Children {
		sum = sum.Add(child.Quantity)
	}
	assert.True(t, sum.Equal(pound.InitialQuantity))
}

func TestConvertRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ounce := f.register(t, tiers.Ounce, f.dc)
	quarter := f.register(t, tiers.QuarterOunce, f.store)

	cases := []struct {
		name  string
		input units.ConvertInput
		code  pkgerrors.Code
	}{
		{"insufficient quantity", units.ConvertInput{SourceCode: ounce.QRCode, TargetTierID: tiers.QuarterOunce, TargetQuantity: 5, LocationID: f.dc.ID, OperatorID: f.operator}, pkgerrors.CodeValidation},
		{"upward conversion", units.ConvertInput{SourceCode: quarter.QRCode, TargetTierID: tiers.Ounce, TargetQuantity: 1, LocationID: f.store.ID, OperatorID: f.operator}, pkgerrors.CodeValidation},
		{"tier not allowed at destination", units.ConvertInput{SourceCode: ounce.QRCode, TargetTierID: tiers.Gram, TargetQuantity: 1, LocationID: f.dc.ID, OperatorID: f.operator}, pkgerrors.CodeValidation},
		{"unknown unit", units.ConvertInput{SourceCode: "D-unknown", TargetTierID: tiers.Gram, TargetQuantity: 1, LocationID: f.store.ID, OperatorID: f.operator}, pkgerrors.CodeNotFound},
		{"zero quantity", units.ConvertInput{SourceCode: ounce.QRCode, TargetTierID: tiers.Gram, TargetQuantity: 0, LocationID: f.store.ID, OperatorID: f.operator}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Convert(ctx, tc.input)
			requireCode(t, err, tc.code)
		})
	}

	var stored models.InventoryUnit
	require.NoError(t, f.db.First(&stored, "id = ?", ounce.ID).Error)
	assert.True(t, stored.Quantity.Equal(decimal.NewFromInt(28)))
	assert.Equal(t, int64(1), stored.Version)
	assert.Zero(t, f.count(t, &models.InventoryUnit{}, "parent_unit_id IS NOT NULL"))
}

func TestConvertConsumedSourceIsStateConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ounce := f.register(t, tiers.Ounce, f.dc)
	input := units.ConvertInput{
		SourceCode:     ounce.QRCode,
		TargetTierID:   tiers.QuarterOunce,
		TargetQuantity: 4,
		LocationID:     f.dc.ID,
		OperatorID:     f.operator,
	}
	_, err := f.svc.Convert(ctx, input)
	require.NoError(t, err)

	input.TargetQuantity = 1
	_, err = f.svc.Convert(ctx, input)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestConvertDamagedSourceIsStateConflict(t *testing.T) {
	f := newFixture(t)
	ounce := f.register(t, tiers.Ounce, f.dc)
	require.NoError(t, f.db.Model(&models.InventoryUnit{}).
		Where("id = ?", ounce.ID).
		Update("status", enums.UnitStatusDamaged).Error)

	_, err := f.svc.Convert(context.Background(), units.ConvertInput{
		SourceCode:     ounce.QRCode,
		TargetTierID:   tiers.Gram,
		TargetQuantity: 7,
		LocationID:     f.dc.ID,
		OperatorID:     f.operator,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Zero(t, f.count(t, &models.InventoryUnit{}, "parent_unit_id = ?", ounce.ID))
}

func TestSellPortionDrawsDownAndMarksSold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unit := f.register(t, tiers.QuarterOunce, f.store)
	orderID := uuid.New()
	customerID := uuid.New()
	price := decimal.RequireFromString("12.50")

	first, err := f.svc.SellPortion(ctx, units.SellPortionInput{
		SourceCode: unit.QRCode,
		Quantity:   decimal.NewFromInt(3),
		LocationID: f.store.ID,
		OperatorID: f.operator,
		UnitPrice:  &price,
	})
	require.NoError(t, err)
	assert.False(t, first.Consumed)
	assert.True(t, first.Remaining.Equal(decimal.NewFromInt(4)))
	require.NotNil(t, first.LineTotal)
	assert.True(t, first.LineTotal.Equal(decimal.RequireFromString("37.5")))
	assert.Equal(t, enums.UnitStatusAvailable, first.Unit.Status)

	second, err := f.svc.SellPortion(ctx, units.SellPortionInput{
		SourceCode: unit.QRCode,
		Quantity:   decimal.NewFromInt(4),
		LocationID: f.store.ID,
		OperatorID: f.operator,
		OrderID:    &orderID,
		CustomerID: &customerID,
	})
	require.NoError(t, err)
	assert.True(t, second.Consumed)
	assert.True(t, second.Remaining.IsZero())
	assert.Nil(t, second.LineTotal)
	assert.Equal(t, enums.UnitStatusSold, second.Unit.Status)
	require.NotNil(t, second.Unit.ConsumedAt)
	require.NotNil(t, second.Unit.OrderID)
	assert.Equal(t, orderID, *second.Unit.OrderID)
	require.NotNil(t, second.Unit.CustomerID)
	assert.Equal(t, customerID, *second.Unit.CustomerID)

	assert.Equal(t, int64(2), f.count(t, &models.UnitScan{}, "unit_id = ? AND operation = ?", unit.ID, enums.ScanSale))
	assert.Equal(t, int64(2), f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventPortionSold))

	_, err = f.svc.SellPortion(ctx, units.SellPortionInput{
		SourceCode: unit.QRCode,
		Quantity:   decimal.NewFromInt(1),
		LocationID: f.store.ID,
		OperatorID: f.operator,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestSellPortionOversellLeavesUnitUntouched(t *testing.T) {
	f := newFixture(t)
	unit := f.register(t, tiers.QuarterOunce, f.store)

	_, err := f.svc.SellPortion(context.Background(), units.SellPortionInput{
		SourceCode: unit.QRCode,
		Quantity:   decimal.RequireFromString("7.5"),
		LocationID: f.store.ID,
		OperatorID: f.operator,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Contains(t, err.Error(), "insufficient quantity")

	var stored models.InventoryUnit
	require.NoError(t, f.db.First(&stored, "id = ?", unit.ID).Error)
	assert.True(t, stored.Quantity.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, int64(1), stored.Version)
	assert.Zero(t, f.count(t, &models.UnitScan{}, "operation = ?", enums.ScanSale))
}

func TestSellPortionWrongLocation(t *testing.T) {
	f := newFixture(t)
	unit := f.register(t, tiers.QuarterOunce, f.store)
	_, err := f.svc.SellPortion(context.Background(), units.SellPortionInput{
		SourceCode: unit.QRCode,
		Quantity:   decimal.NewFromInt(1),
		LocationID: f.dc.ID,
		OperatorID: f.operator,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestLookupReturnsLineage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ounce := f.register(t, tiers.Ounce, f.dc)
	conv, err := f.svc.Convert(ctx, units.ConvertInput{
		SourceCode:     ounce.QRCode,
		TargetTierID:   tiers.QuarterOunce,
		TargetQuantity: 2,
		LocationID:     f.dc.ID,
		OperatorID:     f.operator,
	})
	require.NoError(t, err)

	parent, err := f.svc.Lookup(ctx, units.LookupInput{Code: ounce.QRCode})
	require.NoError(t, err)
	assert.True(t, parent.Found)
	assert.Equal(t, units.LookupSourceValidated, parent.Source)
	assert.Len(t, parent.Children, 2)
	assert.Len(t, parent.Scans, 2)
	require.NotNil(t, parent.Product)
	assert.Equal(t, "Blue Dream", parent.Product.Name)
	require.NotNil(t, parent.Location)
	assert.Equal(t, f.dc.ID, parent.Location.ID)

	child, err := f.svc.Lookup(ctx, units.LookupInput{Code: conv.Children[1].QRCode})
	require.NoError(t, err)
	require.NotNil(t, child.Parent)
	assert.Equal(t, ounce.ID, child.Parent.ID)
	assert.Empty(t, child.Children)

	miss, err := f.svc.Lookup(ctx, units.LookupInput{Code: "D-missing"})
	require.NoError(t, err)
	assert.False(t, miss.Found)
}

func TestLookupScopedToStore(t *testing.T) {
	f := newFixture(t)
	storeID := uuid.New()
	require.NoError(t, f.db.Model(&models.Location{}).Where("id = ?", f.store.ID).Update("store_id", storeID).Error)
	unit := f.register(t, tiers.QuarterOunce, f.store)

	other := uuid.New()
	res, err := f.svc.Lookup(context.Background(), units.LookupInput{Code: unit.QRCode, StoreID: &other})
	require.NoError(t, err)
	assert.False(t, res.Found)

	res, err = f.svc.Lookup(context.Background(), units.LookupInput{Code: unit.QRCode, StoreID: &storeID})
	require.NoError(t, err)
	assert.True(t, res.Found)
}

// brokenLocations fails every location read.
type brokenLocations struct {
	units.Repository
}

func (brokenLocations) FindLocation(context.Context, uuid.UUID) (*models.Location, error) {
	return nil, errors.New("locations offline")
}

func TestLookupScopedNeedsVerifiedLocation(t *testing.T) {
	f := newFixture(t)
	storeID := uuid.New()
	unit := f.register(t, tiers.QuarterOunce, f.dc)

	res, err := f.svc.Lookup(context.Background(), units.LookupInput{Code: unit.QRCode, StoreID: &storeID})
	require.NoError(t, err)
	assert.False(t, res.Found, "a location outside any store never matches a scope")

	broken, err := NewService(ServiceParams{
		Tx:     db.FromGorm(f.db),
		Units:  brokenLocations{Repository: units.NewRepository(f.db)},
		Tiers:  tiers.Default(),
		Outbox: outbox.NewService(outbox.NewRepository(f.db), nil),
	})
	require.NoError(t, err)
	res, err = broken.Lookup(context.Background(), units.LookupInput{Code: unit.QRCode, StoreID: &storeID})
	require.NoError(t, err)
	assert.False(t, res.Found)

	res, err = broken.Lookup(context.Background(), units.LookupInput{Code: unit.QRCode})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Nil(t, res.Location)
}

type stubLock struct {
	acquire    bool
	acquireErr error
	released   *int
}

func (l stubLock) Acquire(context.Context) (bool, error) { return l.acquire, l.acquireErr }

func (l stubLock) Release(context.Context) error {
	*l.released++
	return nil
}

type stubLocker struct {
	lock stubLock
	keys []string
}

func (s *stubLocker) UnitLock(code string) (pkgredis.Lock, error) {
	s.keys = append(s.keys, code)
	return s.lock, nil
}

func TestUnitLockGuardsStructuralOperations(t *testing.T) {
	f := newFixture(t)
	unit := f.register(t, tiers.QuarterOunce, f.store)
	released := 0

	locker := &stubLocker{lock: stubLock{acquire: false, released: &released}}
	f.svc.locker = locker
	_, err := f.svc.SellPortion(context.Background(), units.SellPortionInput{
		SourceCode: unit.QRCode,
		Quantity:   decimal.NewFromInt(1),
		LocationID: f.store.ID,
		OperatorID: f.operator,
	})
	requireCode(t, err, pkgerrors.CodeConflict)
	assert.Equal(t, []string{unit.QRCode}, locker.keys)
	assert.Zero(t, released)

	locker.lock = stubLock{acquireErr: errors.New("redis down"), released: &released}
	_, err = f.svc.SellPortion(context.Background(), units.SellPortionInput{
		SourceCode: unit.QRCode,
		Quantity:   decimal.NewFromInt(1),
		LocationID: f.store.ID,
		OperatorID: f.operator,
	})
	requireCode(t, err, pkgerrors.CodeDependency)

	locker.lock = stubLock{acquire: true, released: &released}
	_, err = f.svc.SellPortion(context.Background(), units.SellPortionInput{
		SourceCode: unit.QRCode,
		Quantity:   decimal.NewFromInt(1),
		LocationID: f.store.ID,
		OperatorID: f.operator,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, released)
}
