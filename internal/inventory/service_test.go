package inventory

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/pkg/config"
	"github.com/evacurves/store-backend/pkg/db"
	"github.com/evacurves/store-backend/pkg/db/testdb"
	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
)

type fakeMetrics struct {
	mutations map[string]int
	lowStock  int
}

func (f *fakeMetrics) IncStockMutation(t string) {
	if f.mutations == nil {
		f.mutations = map[string]int{}
	}
	f.mutations[t]++
}

func (f *fakeMetrics) SetLowStockEntries(n int) { f.lowStock = n }

func newTestService(t *testing.T, batch int) (Service, *gorm.DB, *fakeMetrics) {
	t.Helper()
	conn := testdb.Open(t)
	m := &fakeMetrics{}
	svc, err := NewService(ServiceParams{
		DB: db.FromConn(conn),
		Config: config.InventoryConfig{
			DefaultLowStockThreshold: 5,
			DefaultLocation:          "Main Warehouse",
			BulkBatchSize:            batch,
		},
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Metrics: m,
	})
	require.NoError(t, err)
	return svc, conn, m
}

func TestAddInventoryWritesHistoryAndAggregate(t *testing.T) {
	svc, conn, m := newTestService(t, 100)
	ctx := context.Background()
	actor := uuid.New()
	product := testdb.SeedProduct(t, conn, "Wrap Dress", "40.00")

	entry, err := svc.AddInventory(ctx, AddInventoryInput{ProductID: product.ID, Size: "M", Color: "red", Quantity: 7}, actor)
	require.NoError(t, err)
	assert.Equal(t, enums.InventoryStatusInStock, entry.Status)
	assert.Equal(t, "Main Warehouse", entry.Location)
	assert.Equal(t, 5, entry.LowStockThreshold)

	assert.Equal(t, 7, testdb.ProductStock(t, conn, product.ID))
	history := testdb.History(t, conn, product.ID)
	require.Len(t, history, 1)
	assert.Equal(t, enums.HistoryTypeIncrease, history[0].Type)
	assert.Equal(t, 7, history[0].Quantity)
	assert.Equal(t, ReasonInitialStock, history[0].Reason)
	require.NotNil(t, history[0].ActorID)
	assert.Equal(t, actor, *history[0].ActorID)
	assert.Equal(t, 1, m.mutations["increase"])
}

func TestAddInventoryRejectsInvalidInput(t *testing.T) {
	svc, conn, _ := newTestService(t, 100)
	ctx := context.Background()
	product := testdb.SeedProduct(t, conn, "Blazer", "80.00")

	_, err := svc.AddInventory(ctx, AddInventoryInput{ProductID: product.ID, Size: "M", Color: "red", Quantity: -1}, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.AddInventory(ctx, AddInventoryInput{ProductID: uuid.New(), Size: "M", Color: "red", Quantity: 1}, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = svc.AddInventory(ctx, AddInventoryInput{ProductID: product.ID, Size: "M", Color: "red", Quantity: 1}, uuid.New())
	require.NoError(t, err)
	_, err = svc.AddInventory(ctx, AddInventoryInput{ProductID: product.ID, Size: "M", Color: "red", Quantity: 1}, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	assert.Equal(t, 1, testdb.ProductStock(t, conn, product.ID))
	assert.Len(t, testdb.History(t, conn, product.ID), 1)
}

func TestUpdateInventoryRecordsTrueDelta(t *testing.T) {
	svc, conn, _ := newTestService(t, 100)
	ctx := context.Background()
	product := testdb.SeedProduct(t, conn, "Skirt", "25.00")
	entry := testdb.SeedEntry(t, conn, product.ID, "S", "black", 10, 5)

	updated, err := svc.UpdateInventory(ctx, entry.ID, 3, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, enums.InventoryStatusLowStock, updated.Status)

	history := testdb.History(t, conn, product.ID)
	require.Len(t, history, 1)
	assert.Equal(t, enums.HistoryTypeUpdate, history[0].Type)
	assert.Equal(t, 7, history[0].Quantity)
	assert.Equal(t, 10, *history[0].QuantityBefore)
	assert.Equal(t, 3, *history[0].QuantityAfter)
	assert.Equal(t, 3, testdb.ProductStock(t, conn, product.ID))

	// unchanged value is not a change
	_, err = svc.UpdateInventory(ctx, entry.ID, 3, uuid.New())
	require.NoError(t, err)
	assert.Len(t, testdb.History(t, conn, product.ID), 1)
}

func TestUpdateInventoryErrors(t *testing.T) {
	svc, conn, _ := newTestService(t, 100)
	ctx := context.Background()
	product := testdb.SeedProduct(t, conn, "Coat", "120.00")
	entry := testdb.SeedEntry(t, conn, product.ID, "L", "camel", 4, 5)

	_, err := svc.UpdateInventory(ctx, uuid.New(), 3, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = svc.UpdateInventory(ctx, entry.ID, -2, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.UpdateInventory(ctx, entry.ID, 2, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)

	assert.Empty(t, testdb.History(t, conn, product.ID))
}

func TestBulkUpdateReportsPerItemOutcome(t *testing.T) {
	svc, conn, _ := newTestService(t, 100)
	ctx := context.Background()
	p1 := testdb.SeedProduct(t, conn, "Top", "15.00")
	p2 := testdb.SeedProduct(t, conn, "Jeans", "55.00")
	untouched := testdb.SeedProduct(t, conn, "Scarf", "10.00")
	e1 := testdb.SeedEntry(t, conn, p1.ID, "M", "white", 2, 5)
	e3 := testdb.SeedEntry(t, conn, p2.ID, "32", "blue", 1, 5)
	testdb.SeedEntry(t, conn, untouched.ID, "OS", "grey", 9, 5)
	missing := uuid.New()

	res, err := svc.BulkUpdateInventory(ctx, []BulkItem{
		{EntryID: e1.ID, Quantity: 12},
		{EntryID: missing, Quantity: 4},
		{EntryID: e3.ID, Quantity: 6},
	}, uuid.New())
	require.NoError(t, err)
	require.True(t, res.Partial())
	require.Len(t, res.Updated, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Failed[0].Index)
	assert.Equal(t, missing, res.Failed[0].EntryID)
	assert.Equal(t, pkgerrors.CodeNotFound, res.Failed[0].Code)

	assert.Equal(t, 12, testdb.ProductStock(t, conn, p1.ID))
	assert.Equal(t, 6, testdb.ProductStock(t, conn, p2.ID))
	// seeded without the aggregator, so an untouched product keeps stock 0
	assert.Equal(t, 0, testdb.ProductStock(t, conn, untouched.ID))

	h1 := testdb.History(t, conn, p1.ID)
	require.Len(t, h1, 1)
	assert.Equal(t, 10, h1[0].Quantity)
	assert.Equal(t, ReasonBulkUpdate, h1[0].Reason)
	assert.Len(t, testdb.History(t, conn, p2.ID), 1)
}

func TestBulkUpdateValidatesItemsIndividually(t *testing.T) {
	svc, conn, _ := newTestService(t, 1)
	ctx := context.Background()
	product := testdb.SeedProduct(t, conn, "Cardigan", "45.00")
	a := testdb.SeedEntry(t, conn, product.ID, "S", "navy", 1, 5)
	b := testdb.SeedEntry(t, conn, product.ID, "M", "navy", 1, 5)

	res, err := svc.BulkUpdateInventory(ctx, []BulkItem{
		{EntryID: a.ID, Quantity: -1},
		{EntryID: b.ID, Quantity: 8},
		{EntryID: uuid.Nil, Quantity: 3},
		{EntryID: a.ID, Quantity: 4},
	}, uuid.New())
	require.NoError(t, err)
	assert.Len(t, res.Updated, 2)
	require.Len(t, res.Failed, 2)
	for _, f := range res.Failed {
		assert.Equal(t, pkgerrors.CodeValidation, f.Code)
	}
	assert.Equal(t, 12, testdb.ProductStock(t, conn, product.ID))
	assert.Equal(t, testdb.LedgerSum(t, conn, product.ID), testdb.ProductStock(t, conn, product.ID))

	_, err = svc.BulkUpdateInventory(ctx, nil, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLowStockAndListings(t *testing.T) {
	svc, conn, m := newTestService(t, 100)
	ctx := context.Background()
	actor := uuid.New()
	b := testdb.SeedProduct(t, conn, "B Product", "10.00")
	a := testdb.SeedProduct(t, conn, "A Product", "10.00")
	threshold := 3

	for _, in := range []AddInventoryInput{
		{ProductID: b.ID, Size: "M", Color: "red", Quantity: 2},
		{ProductID: b.ID, Size: "L", Color: "red", Quantity: 20},
		{ProductID: a.ID, Size: "S", Color: "blue", Quantity: 0, LowStockThreshold: &threshold},
		{ProductID: a.ID, Size: "M", Color: "blue", Quantity: 4, LowStockThreshold: &threshold},
	} {
		_, err := svc.AddInventory(ctx, in, actor)
		require.NoError(t, err)
	}

	low, err := svc.GetLowStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, 0, low[0].Quantity)
	assert.Equal(t, 2, low[1].Quantity)
	assert.Equal(t, 2, m.lowStock)

	all, err := svc.GetAllInventory(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "A Product", all[0].ProductName)
	assert.Equal(t, "M", all[0].Size)
	assert.Equal(t, "S", all[1].Size)
	assert.Equal(t, "L", all[2].Size)

	byProduct, err := svc.GetProductInventory(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, byProduct, 2)

	lowOnly := enums.InventoryStatusLowStock
	filtered, err := svc.GetAllInventory(ctx, &lowOnly)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, e := range filtered {
		assert.Equal(t, enums.InventoryStatusLowStock, e.Status)
	}

	history, err := svc.History(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	decrease := enums.HistoryTypeDecrease
	history, err = svc.History(ctx, a.ID, &decrease)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecomputeIsIdempotentAndRepairsDrift(t *testing.T) {
	conn := testdb.Open(t)
	ctx := context.Background()
	product := testdb.SeedProduct(t, conn, "Shirt", "20.00")
	testdb.SeedEntry(t, conn, product.ID, "M", "white", 4, 5)
	testdb.SeedEntry(t, conn, product.ID, "L", "white", 6, 5)

	agg := NewAggregator()
	drifts, err := agg.RecomputeAll(ctx, db.FromConn(conn))
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, Drift{ProductID: product.ID, Stored: 0, Ledger: 10}, drifts[0])

	first, err := agg.Recompute(ctx, conn, product.ID)
	require.NoError(t, err)
	second, err := agg.Recompute(ctx, conn, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, first)
	assert.Equal(t, first, second)

	drifts, err = agg.RecomputeAll(ctx, db.FromConn(conn))
	require.NoError(t, err)
	assert.Empty(t, drifts)

	_, err = agg.Recompute(ctx, conn, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
