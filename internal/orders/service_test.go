package orders

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/inventory"
	"github.com/evacurves/store-backend/pkg/db"
	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/db/testdb"
	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
	"github.com/evacurves/store-backend/pkg/pagination"
	"github.com/evacurves/store-backend/pkg/types"
)

type fakeMetrics struct {
	mu        sync.Mutex
	created   map[string]int
	failures  map[string]int
	mutations map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{created: map[string]int{}, failures: map[string]int{}, mutations: map[string]int{}}
}

func (f *fakeMetrics) IncOrderCreated(m string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created[m]++
}

func (f *fakeMetrics) IncReservationFailure(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[code]++
}

func (f *fakeMetrics) IncStockMutation(t string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations[t]++
}

func newTestService(t *testing.T) (Service, *gorm.DB, *fakeMetrics) {
	t.Helper()
	conn := testdb.Open(t)
	m := newFakeMetrics()
	svc, err := NewService(ServiceParams{
		DB:      db.FromConn(conn),
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Metrics: m,
		Now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc, conn, m
}

func checkoutInput(items ...ItemInput) CreateOrderInput {
	return CreateOrderInput{
		Items: items,
		ShippingAddress: types.ShippingAddress{
			Street:  "12 Rainbow St",
			City:    "Amman",
			Country: "jo",
		},
		CustomerInfo: types.CustomerInfo{
			FirstName: "Lina",
			LastName:  "Haddad",
			Email:     "lina@example.com",
			Mobile:    "+962791234567",
		},
		PaymentMethod: "cod",
	}
}

// seedStocked creates a product with one variant and a settled aggregate.
func seedStocked(t *testing.T, conn *gorm.DB, name, price, size, color string, qty int) (*models.Product, *models.InventoryEntry) {
	t.Helper()
	product := testdb.SeedProduct(t, conn, name, price)
	entry := testdb.SeedEntry(t, conn, product.ID, size, color, qty, 2)
	_, err := inventory.NewAggregator().Recompute(context.Background(), conn, product.ID)
	require.NoError(t, err)
	return product, entry
}

func TestCreateOrderDecrementsLedgerAndAggregate(t *testing.T) {
	svc, conn, m := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()
	product, _ := seedStocked(t, conn, "Midi Dress", "25.50", "M", "red", 5)

	order, err := svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: product.ID, Size: "M", Color: "red", Quantity: 2}), actor)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, "JO", order.ShippingAddress.Country)
	assert.Regexp(t, `^ORD\d+[0-9A-F]{6}$`, order.OrderNumber)
	assert.True(t, decimal.RequireFromString("51.00").Equal(order.TotalAmount), order.TotalAmount.String())
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Midi Dress", order.Items[0].Name)

	assert.Equal(t, 3, testdb.LedgerSum(t, conn, product.ID))
	assert.Equal(t, 3, testdb.ProductStock(t, conn, product.ID))
	history := testdb.History(t, conn, product.ID)
	require.Len(t, history, 1)
	assert.Equal(t, enums.HistoryTypeDecrease, history[0].Type)
	assert.Equal(t, 2, history[0].Quantity)
	assert.Equal(t, inventory.ReasonOrderPlaced, history[0].Reason)
	assert.Equal(t, 1, m.created["cod"])
}

func TestCreateOrderRejectsOversell(t *testing.T) {
	svc, conn, m := newTestService(t)
	ctx := context.Background()
	product, _ := seedStocked(t, conn, "Linen Shirt", "30.00", "L", "blue", 1)

	_, err := svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: product.ID, Size: "L", Color: "blue", Quantity: 2}), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficient))
	assert.Equal(t, "insufficient stock for Linen Shirt", pkgerrors.Message(err))

	assert.Equal(t, 1, testdb.LedgerSum(t, conn, product.ID))
	assert.Equal(t, 1, testdb.ProductStock(t, conn, product.ID))
	assert.Empty(t, testdb.History(t, conn, product.ID))

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 1, m.failures[string(pkgerrors.CodeInsufficient)])
}

func TestCreateOrderIsAtomicAcrossItems(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	first, _ := seedStocked(t, conn, "Skirt", "20.00", "S", "black", 4)
	second, _ := seedStocked(t, conn, "Scarf", "10.00", "One", "green", 1)

	_, err := svc.CreateOrder(ctx, checkoutInput(
		ItemInput{ProductID: first.ID, Size: "S", Color: "black", Quantity: 2},
		ItemInput{ProductID: second.ID, Size: "One", Color: "green", Quantity: 3},
	), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficient), "got %v", err)

	assert.Equal(t, 4, testdb.LedgerSum(t, conn, first.ID))
	assert.Equal(t, 4, testdb.ProductStock(t, conn, first.ID))
	assert.Empty(t, testdb.History(t, conn, first.ID))
	assert.Equal(t, 1, testdb.LedgerSum(t, conn, second.ID))
}

// The sqlite pool holds one connection, so these checkouts serialize; the
// conditional decrement itself is covered in TestLedgerLastUnitDecrementsOnceInTx.
func TestCreateOrderLastUnitSellsOnce(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	product, _ := seedStocked(t, conn, "Silk Top", "45.00", "M", "ivory", 1)

	const buyers = 8
	var wg sync.WaitGroup
	errs := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: product.ID, Size: "M", Color: "ivory", Quantity: 1}), uuid.New())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficient), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, testdb.LedgerSum(t, conn, product.ID))
	assert.Equal(t, 0, testdb.ProductStock(t, conn, product.ID))
}

func TestCreateOrderResolvesVariants(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()

	single, _ := seedStocked(t, conn, "Tote", "15.00", "One", "tan", 3)
	order, err := svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: single.ID, Quantity: 1}), actor)
	require.NoError(t, err)
	assert.Equal(t, "One", order.Items[0].Size)
	assert.Equal(t, "tan", order.Items[0].Color)

	multi, _ := seedStocked(t, conn, "Jeans", "60.00", "30", "blue", 3)
	testdb.SeedEntry(t, conn, multi.ID, "32", "blue", 3, 2)
	_, err = svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: multi.ID, Quantity: 1}), actor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: multi.ID, Size: "34", Color: "blue", Quantity: 1}), actor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	missing := uuid.New()
	_, err = svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: missing, Quantity: 1}), actor)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
	assert.Contains(t, pkgerrors.Message(err), missing.String())
}

func TestCreateOrderConvertsCurrency(t *testing.T) {
	svc, conn, m := newTestService(t)
	product, _ := seedStocked(t, conn, "Cardigan", "10.00", "M", "grey", 4)

	input := checkoutInput(ItemInput{ProductID: product.ID, Size: "M", Color: "grey", Quantity: 2})
	input.Currency = "jod"
	input.PaymentMethod = "card"
	order, err := svc.CreateOrder(context.Background(), input, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, "JOD", order.Currency)
	assert.Equal(t, enums.PaymentStatusCompleted, order.PaymentStatus)
	expectedUnit := order.Items[0].Price
	assert.True(t, expectedUnit.Mul(decimal.NewFromInt(2)).Equal(order.TotalAmount))
	assert.False(t, order.ExchangeRate.IsZero())
	assert.Equal(t, 1, m.created["card"])
}

func TestCreateOrderValidation(t *testing.T) {
	svc, conn, _ := newTestService(t)
	product, _ := seedStocked(t, conn, "Belt", "12.00", "M", "brown", 4)
	item := ItemInput{ProductID: product.ID, Size: "M", Color: "brown", Quantity: 1}

	cases := map[string]func(in *CreateOrderInput){
		"no items":         func(in *CreateOrderInput) { in.Items = nil },
		"zero quantity":    func(in *CreateOrderInput) { in.Items[0].Quantity = 0 },
		"bad email":        func(in *CreateOrderInput) { in.CustomerInfo.Email = "not-an-email" },
		"bad mobile":       func(in *CreateOrderInput) { in.CustomerInfo.Mobile = "0791234567" },
		"missing city":     func(in *CreateOrderInput) { in.ShippingAddress.City = " " },
		"unsupported ship": func(in *CreateOrderInput) { in.ShippingAddress.Country = "US" },
		"bad currency":     func(in *CreateOrderInput) { in.Currency = "XXX" },
		"bad payment":      func(in *CreateOrderInput) { in.PaymentMethod = "paypal" },
	}
	for name, mutate := range cases {
		input := checkoutInput(item)
		mutate(&input)
		_, err := svc.CreateOrder(context.Background(), input, uuid.New())
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: got %v", name, err)
	}

	_, err := svc.CreateOrder(context.Background(), checkoutInput(item), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, 4, testdb.LedgerSum(t, conn, product.ID))
}

func TestCancelOrderRestoresStock(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()
	product, _ := seedStocked(t, conn, "Parka", "90.00", "L", "olive", 5)

	order, err := svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: product.ID, Size: "L", Color: "olive", Quantity: 3}), actor)
	require.NoError(t, err)
	require.Equal(t, 2, testdb.ProductStock(t, conn, product.ID))

	updated, err := svc.UpdateOrderStatus(ctx, order.ID, "processing", actor)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)

	cancelled, err := svc.UpdateOrderStatus(ctx, order.ID, "cancelled", actor)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	assert.Equal(t, 5, testdb.LedgerSum(t, conn, product.ID))
	assert.Equal(t, 5, testdb.ProductStock(t, conn, product.ID))
	history := testdb.History(t, conn, product.ID)
	require.Len(t, history, 2)
	assert.Equal(t, enums.HistoryTypeIncrease, history[1].Type)
	assert.Equal(t, 3, history[1].Quantity)
	assert.Equal(t, "Order "+order.OrderNumber+" cancelled", history[1].Reason)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, "pending", actor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	assert.Equal(t, 5, testdb.ProductStock(t, conn, product.ID))
}

func TestCancelOrderSkipsDeletedVariant(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()
	product, entry := seedStocked(t, conn, "Cap", "8.00", "One", "navy", 2)

	order, err := svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: product.ID, Quantity: 1}), actor)
	require.NoError(t, err)
	require.NoError(t, conn.Delete(&models.InventoryEntry{}, "id = ?", entry.ID).Error)

	cancelled, err := svc.UpdateOrderStatus(ctx, order.ID, "cancelled", actor)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 0, testdb.ProductStock(t, conn, product.ID))
}

func TestUpdateOrderStatusRejectsInvalidInput(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()
	product, _ := seedStocked(t, conn, "Sandals", "35.00", "38", "gold", 2)
	order, err := svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: product.ID, Quantity: 1}), actor)
	require.NoError(t, err)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, "returned", actor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, "shipped", actor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = svc.UpdateOrderStatus(ctx, uuid.New(), "processing", actor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	same, err := svc.UpdateOrderStatus(ctx, order.ID, "pending", actor)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, same.Status)
	assert.Equal(t, 1, testdb.ProductStock(t, conn, product.ID))
}

func TestListAndGetOrders(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	actor := uuid.New()
	product, _ := seedStocked(t, conn, "Socks", "5.00", "One", "white", 10)

	var placed []*OrderDTO
	for i := 0; i < 3; i++ {
		order, err := svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: product.ID, Quantity: 1}), actor)
		require.NoError(t, err)
		placed = append(placed, order)
	}
	_, err := svc.UpdateOrderStatus(ctx, placed[0].ID, "cancelled", actor)
	require.NoError(t, err)

	page, err := svc.ListOrders(ctx, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.NotEmpty(t, page.NextCursor)

	cancelled := enums.OrderStatusCancelled
	filtered, err := svc.ListOrders(ctx, pagination.Params{Limit: 10}, ListFilters{Status: &cancelled})
	require.NoError(t, err)
	require.Len(t, filtered.Orders, 1)
	assert.Equal(t, placed[0].ID, filtered.Orders[0].ID)

	got, err := svc.GetOrder(ctx, placed[1].ID)
	require.NoError(t, err)
	assert.Equal(t, placed[1].OrderNumber, got.OrderNumber)

	_, err = svc.GetOrder(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListCustomerOrdersAndLookupByNumber(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	product, _ := seedStocked(t, conn, "Beanie", "12.00", "One", "grey", 10)

	mine, err := svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: product.ID, Quantity: 1}), alice)
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, checkoutInput(ItemInput{ProductID: product.ID, Quantity: 1}), bob)
	require.NoError(t, err)
	card := checkoutInput(ItemInput{ProductID: product.ID, Quantity: 1})
	card.PaymentMethod = "card"
	paid, err := svc.CreateOrder(ctx, card, alice)
	require.NoError(t, err)

	list, err := svc.ListCustomerOrders(ctx, pagination.Params{Limit: 10}, alice, nil)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(list.Orders))
	for _, o := range list.Orders {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{mine.ID, paid.ID}, ids)

	completed := enums.PaymentStatusCompleted
	byPayment, err := svc.ListOrders(ctx, pagination.Params{Limit: 10}, ListFilters{PaymentStatus: &completed})
	require.NoError(t, err)
	require.Len(t, byPayment.Orders, 1)
	assert.Equal(t, paid.ID, byPayment.Orders[0].ID)

	_, err = svc.ListCustomerOrders(ctx, pagination.Params{}, uuid.Nil, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	found, err := svc.GetOrderByNumber(ctx, " "+strings.ToLower(mine.OrderNumber)+" ")
	require.NoError(t, err)
	assert.Equal(t, mine.ID, found.ID)

	_, err = svc.GetOrderByNumber(ctx, "ORD0")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.GetOrderByNumber(ctx, "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
