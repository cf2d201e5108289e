package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/pkg/db"
	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/db/testdb"
	partner "github.com/evacurves/store-backend/pkg/delivery"
	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
	"github.com/evacurves/store-backend/pkg/types"
)

func newTestService(t *testing.T, client *http.Client) (Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	svc, err := NewService(ServiceParams{
		DB:     db.FromConn(conn),
		Client: partner.NewClient(partner.WithHTTPClient(client)),
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, conn
}

func seedOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber: "ORD" + uuid.NewString()[:8],
		Items: types.OrderItemList{
			{ProductID: uuid.New(), Name: "Dress", Size: "M", Color: "red", Quantity: 2, Price: decimal.RequireFromString("20.00")},
			{ProductID: uuid.New(), Name: "Scarf", Size: "One", Color: "blue", Quantity: 1, Price: decimal.RequireFromString("5.00")},
		},
		TotalAmount:     decimal.RequireFromString("45.00"),
		Currency:        "USD",
		ExchangeRate:    decimal.NewFromInt(1),
		ShippingAddress: types.ShippingAddress{Street: "12 Rainbow St", City: "Amman", Country: "JO"},
		CustomerInfo:    types.CustomerInfo{FirstName: "Lina", LastName: "Haddad", Email: "lina@example.com", Mobile: "+962791234567"},
		PaymentMethod:   enums.PaymentMethodCOD,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          status,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func TestCompanyCRUDHidesCredentials(t *testing.T) {
	svc, _ := newTestService(t, http.DefaultClient)
	ctx := context.Background()

	created, err := svc.CreateCompany(ctx, CompanyInput{
		Name:        "Three Minds",
		Code:        "three_minds",
		APIURL:      "https://partner.example.com/api",
		Credentials: map[string]string{"login": "u", "password": "p", "database": "d"},
		IsActive:    true,
		Settings:    types.DeliverySettings{PriceCalculation: "Fixed", BasePrice: decimal.RequireFromString("3.50")},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryCompanyCodeThreeMinds, created.Code)
	assert.Equal(t, "fixed", created.Settings.PriceCalculation)

	raw, err := json.Marshal(created)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")

	_, err = svc.CreateCompany(ctx, CompanyInput{Name: "Three Minds", Code: "ARAMEX", APIURL: "https://a.example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = svc.CreateCompany(ctx, CompanyInput{Name: "Other", Code: "FEDEX", APIURL: "https://a.example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateCompany(ctx, CompanyInput{Name: "Other", Code: "ARAMEX", APIURL: "not a url"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	inactive := false
	updated, err := svc.UpdateCompany(ctx, created.ID, CompanyUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	list, err := svc.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteCompany(ctx, created.ID))
	assert.True(t, pkgerrors.IsCode(svc.DeleteCompany(ctx, created.ID), pkgerrors.CodeNotFound))
}

func TestSendToDeliveryMovesOrderToProcessing(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"success":true,"data":{"tracking_number":"AX-42","status":"created"}}`))
	}))
	defer srv.Close()

	svc, conn := newTestService(t, srv.Client())
	ctx := context.Background()
	company, err := svc.CreateCompany(ctx, CompanyInput{Name: "Aramex", Code: "ARAMEX", APIURL: srv.URL, IsActive: true})
	require.NoError(t, err)
	order := seedOrder(t, conn, enums.OrderStatusPending)

	dispatch, err := svc.SendToDelivery(ctx, order.ID, company.ID)
	require.NoError(t, err)
	assert.Equal(t, "AX-42", dispatch.TrackingNumber)
	assert.Equal(t, enums.OrderStatusProcessing, dispatch.OrderStatus)

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusProcessing, stored.Status)
	require.NotNil(t, stored.TrackingNumber)
	assert.Equal(t, "AX-42", *stored.TrackingNumber)
	require.NotNil(t, stored.DeliveryCompanyID)
	assert.Equal(t, company.ID, *stored.DeliveryCompanyID)

	_, err = svc.SendToDelivery(ctx, order.ID, company.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSendToDeliveryPartnerFailureLeavesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"partner down"}`))
	}))
	defer srv.Close()

	svc, conn := newTestService(t, srv.Client())
	ctx := context.Background()
	company, err := svc.CreateCompany(ctx, CompanyInput{Name: "Aramex", Code: "ARAMEX", APIURL: srv.URL, IsActive: true})
	require.NoError(t, err)
	order := seedOrder(t, conn, enums.OrderStatusPending)

	_, err = svc.SendToDelivery(ctx, order.ID, company.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
	assert.Equal(t, "partner down", pkgerrors.Message(err))

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
	assert.Nil(t, stored.TrackingNumber)
}

func TestSendToDeliveryConcurrentSendsReachPartnerOnce(t *testing.T) {
	var calls int32
	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-hold
		_, _ = w.Write([]byte(`{"success":true,"data":{"tracking_number":"AX-7","status":"created"}}`))
	}))
	defer srv.Close()

	svc, conn := newTestService(t, srv.Client())
	ctx := context.Background()
	company, err := svc.CreateCompany(ctx, CompanyInput{Name: "Aramex", Code: "ARAMEX", APIURL: srv.URL, IsActive: true})
	require.NoError(t, err)
	order := seedOrder(t, conn, enums.OrderStatusPending)

	results := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := svc.SendToDelivery(ctx, order.ID, company.ID)
			results <- err
		}()
	}

	// The loser returns while the winner is still waiting on the partner.
	var first error
	select {
	case first = <-results:
	case <-time.After(5 * time.Second):
		close(hold)
		t.Fatal("both hand-offs reached the partner")
	}
	assert.True(t, pkgerrors.IsCode(first, pkgerrors.CodeConflict), "got %v", first)

	close(hold)
	require.NoError(t, <-results)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusProcessing, stored.Status)
	require.NotNil(t, stored.TrackingNumber)
	assert.Equal(t, "AX-7", *stored.TrackingNumber)
}

func TestSendToDeliveryReportsCancelDuringHandOff(t *testing.T) {
	var conn *gorm.DB
	var orderID uuid.UUID
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// an admin cancels while the partner is still answering
		conn.Model(&models.Order{}).Where("id = ?", orderID).Update("status", enums.OrderStatusCancelled)
		_, _ = w.Write([]byte(`{"success":true,"data":{"tracking_number":"AX-8","status":"created"}}`))
	}))
	defer srv.Close()

	svc, c := newTestService(t, srv.Client())
	conn = c
	ctx := context.Background()
	company, err := svc.CreateCompany(ctx, CompanyInput{Name: "Aramex", Code: "ARAMEX", APIURL: srv.URL, IsActive: true})
	require.NoError(t, err)
	order := seedOrder(t, conn, enums.OrderStatusPending)
	orderID = order.ID

	dispatch, err := svc.SendToDelivery(ctx, order.ID, company.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, dispatch.OrderStatus)
	assert.Equal(t, "AX-8", dispatch.TrackingNumber)

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	require.NotNil(t, stored.TrackingNumber)
	assert.Equal(t, "AX-8", *stored.TrackingNumber)
}

func TestDeliveryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"tracking_number":"TM-9","status":"in_transit"}}`))
	}))
	defer srv.Close()

	svc, conn := newTestService(t, srv.Client())
	ctx := context.Background()
	order := seedOrder(t, conn, enums.OrderStatusPending)

	before, err := svc.DeliveryStatus(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, before.OrderStatus)
	assert.Nil(t, before.CompanyID)
	assert.Empty(t, before.TrackingNumber)

	company, err := svc.CreateCompany(ctx, CompanyInput{Name: "Aramex", Code: "ARAMEX", APIURL: srv.URL, IsActive: true})
	require.NoError(t, err)
	_, err = svc.SendToDelivery(ctx, order.ID, company.ID)
	require.NoError(t, err)

	after, err := svc.DeliveryStatus(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, after.OrderStatus)
	require.NotNil(t, after.CompanyID)
	assert.Equal(t, company.ID, *after.CompanyID)
	assert.Equal(t, "Aramex", after.CompanyName)
	assert.Equal(t, "TM-9", after.TrackingNumber)
	assert.Equal(t, "in_transit", after.DeliveryStatus)

	_, err = svc.DeliveryStatus(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSendToDeliveryRejectsInactiveCompany(t *testing.T) {
	svc, conn := newTestService(t, http.DefaultClient)
	ctx := context.Background()
	company, err := svc.CreateCompany(ctx, CompanyInput{Name: "Aramex", Code: "ARAMEX", APIURL: "https://a.example.com", IsActive: false})
	require.NoError(t, err)
	order := seedOrder(t, conn, enums.OrderStatusPending)

	_, err = svc.SendToDelivery(ctx, order.ID, company.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.SendToDelivery(ctx, uuid.New(), company.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeliveryFee(t *testing.T) {
	svc, conn := newTestService(t, http.DefaultClient)
	ctx := context.Background()
	order := seedOrder(t, conn, enums.OrderStatusPending)

	fixed, err := svc.CreateCompany(ctx, CompanyInput{
		Name: "Fixed Co", Code: "ARAMEX", APIURL: "https://a.example.com",
		Settings: types.DeliverySettings{PriceCalculation: "fixed", BasePrice: decimal.RequireFromString("4.00")},
	})
	require.NoError(t, err)
	quote, err := svc.DeliveryFee(ctx, order.ID, fixed.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("4.00").Equal(quote.Fee), quote.Fee.String())

	weighted, err := svc.CreateCompany(ctx, CompanyInput{
		Name: "Weight Co", Code: "THREE_MINDS", APIURL: "https://b.example.com",
		Settings: types.DeliverySettings{PriceCalculation: "weight", BasePrice: decimal.RequireFromString("1.50")},
	})
	require.NoError(t, err)
	quote, err = svc.DeliveryFee(ctx, order.ID, weighted.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("4.50").Equal(quote.Fee), quote.Fee.String())
	assert.Equal(t, enums.PriceCalculationWeight, quote.Method)
}
