package delivery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/orders"
	"github.com/evacurves/store-backend/pkg/currency"
	"github.com/evacurves/store-backend/pkg/db/models"
	partner "github.com/evacurves/store-backend/pkg/delivery"
	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
	"github.com/evacurves/store-backend/pkg/types"
)

const minMobileDigits = 10

type dbProvider interface {
	DB() *gorm.DB
}

type sender interface {
	Send(ctx context.Context, apiURL string, adapter partner.Adapter, payload any) (*partner.Result, error)
}

// Service manages delivery partners and hands orders off to them.
type Service interface {
	ListCompanies(ctx context.Context) ([]CompanyDTO, error)
	CreateCompany(ctx context.Context, input CompanyInput) (*CompanyDTO, error)
	UpdateCompany(ctx context.Context, id uuid.UUID, input CompanyUpdate) (*CompanyDTO, error)
	DeleteCompany(ctx context.Context, id uuid.UUID) error
	SendToDelivery(ctx context.Context, orderID, companyID uuid.UUID) (*Dispatch, error)
	DeliveryStatus(ctx context.Context, orderID uuid.UUID) (*Status, error)
	DeliveryFee(ctx context.Context, orderID, companyID uuid.UUID) (*FeeQuote, error)
}

// ServiceParams wires the delivery service.
type ServiceParams struct {
	DB     dbProvider
	Orders orders.Repository
	Client sender
	Logger *logger.Logger
}

type service struct {
	companies *Repository
	orders    orders.Repository
	client    sender
	logg      *logger.Logger
}

// NewService builds the delivery service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("delivery client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	orderRepo := params.Orders
	if orderRepo == nil {
		orderRepo = orders.NewRepository(params.DB.DB())
	}
	return &service{
		companies: NewRepository(params.DB.DB()),
		orders:    orderRepo,
		client:    params.Client,
		logg:      params.Logger,
	}, nil
}

func (s *service) ListCompanies(ctx context.Context) ([]CompanyDTO, error) {
	rows, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CompanyDTO, 0, len(rows))
	for _, c := range rows {
		out = append(out, fromCompany(c))
	}
	return out, nil
}

func (s *service) CreateCompany(ctx context.Context, input CompanyInput) (*CompanyDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company name is required")
	}
	code, err := enums.ParseDeliveryCompanyCode(strings.ToUpper(strings.TrimSpace(input.Code)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported delivery company code")
	}
	apiURL, err := checkURL(input.APIURL)
	if err != nil {
		return nil, err
	}
	settings, err := checkSettings(input.Settings)
	if err != nil {
		return nil, err
	}

	company := &models.DeliveryCompany{
		Name:        name,
		Code:        code,
		APIURL:      apiURL,
		Credentials: types.Credentials(input.Credentials),
		IsActive:    input.IsActive,
		Settings:    settings,
	}
	if company.Credentials == nil {
		company.Credentials = types.Credentials{}
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "company_code", string(code)), "delivery company created")
	dto := fromCompany(*company)
	return &dto, nil
}

func (s *service) UpdateCompany(ctx context.Context, id uuid.UUID, input CompanyUpdate) (*CompanyDTO, error) {
	company, err := s.companies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "company name is required")
		}
		company.Name = name
	}
	if input.APIURL != nil {
		apiURL, err := checkURL(*input.APIURL)
		if err != nil {
			return nil, err
		}
		company.APIURL = apiURL
	}
	if input.Credentials != nil {
		company.Credentials = types.Credentials(input.Credentials)
	}
	if input.IsActive != nil {
		company.IsActive = *input.IsActive
	}
	if input.Settings != nil {
		settings, err := checkSettings(*input.Settings)
		if err != nil {
			return nil, err
		}
		company.Settings = settings
	}
	if err := s.companies.Save(ctx, company); err != nil {
		return nil, err
	}
	dto := fromCompany(*company)
	return &dto, nil
}

func (s *service) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	return s.companies.Delete(ctx, id)
}

// SendToDelivery claims a pending order by moving it to processing, posts it
// to the partner and records the partner's tracking details. Only one caller
// can win the claim, so an order reaches the partner at most once at a time.
// A partner failure returns the order to pending; stock is never touched.
func (s *service) SendToDelivery(ctx context.Context, orderID, companyID uuid.UUID) (*Dispatch, error) {
	order, company, err := s.load(ctx, orderID, companyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery company is not active")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order is %s and cannot be sent to delivery", order.Status))
	}
	if strings.TrimSpace(order.ShippingAddress.Street) == "" || strings.TrimSpace(order.CustomerInfo.Mobile) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required order information")
	}
	if digits(order.CustomerInfo.Mobile) < minMobileDigits {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid mobile number")
	}

	adapter, err := partner.AdapterFor(company.Code)
	if err != nil {
		return nil, err
	}
	payload, err := adapter.Format(partner.Shipment{
		OrderNumber: order.OrderNumber,
		Customer:    order.CustomerInfo,
		Address:     order.ShippingAddress,
		TotalAmount: order.TotalAmount,
	}, company.Credentials)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	if err := s.orders.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusProcessing); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already being sent to delivery").
				WithDetails(map[string]any{"order_id": order.ID})
		}
		return nil, err
	}

	result, err := s.client.Send(ctx, company.APIURL, adapter, payload)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "company_code", string(company.Code)), "delivery hand-off failed", err)
		s.release(ctx, order.ID)
		return nil, err
	}

	err = s.orders.UpdateDelivery(ctx, order.ID, orders.DeliveryUpdate{
		CompanyID:      company.ID,
		TrackingNumber: result.TrackingNumber,
		DeliveryStatus: result.Status,
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "tracking_number", result.TrackingNumber), "recording delivery hand-off failed", err)
		return nil, err
	}

	ctx = s.logg.WithField(ctx, "tracking_number", result.TrackingNumber)
	current := enums.OrderStatusProcessing
	// The claim does not stop an admin from cancelling while the partner call
	// is out; surface that so the shipment can be recalled.
	if latest, err := s.orders.FindByID(ctx, order.ID); err == nil && latest.Status != current {
		current = latest.Status
		s.logg.Warn(s.logg.WithField(ctx, "order_status", string(current)), "order changed during delivery hand-off")
	}
	s.logg.Info(ctx, "order sent to delivery")
	return &Dispatch{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CompanyID:      company.ID,
		TrackingNumber: result.TrackingNumber,
		DeliveryStatus: result.Status,
		OrderStatus:    current,
	}, nil
}

// release hands a claimed order back to pending after a failed hand-off. An
// order that moved on in the meantime is left alone.
func (s *service) release(ctx context.Context, orderID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	if err := s.orders.TransitionStatus(ctx, orderID, enums.OrderStatusProcessing, enums.OrderStatusPending); err != nil {
		s.logg.Error(ctx, "releasing delivery claim failed", err)
	}
}

// DeliveryStatus reports the hand-off state stored on the order.
func (s *service) DeliveryStatus(ctx context.Context, orderID uuid.UUID) (*Status, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	status := &Status{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OrderStatus: order.Status,
		CompanyID:   order.DeliveryCompanyID,
		UpdatedAt:   order.UpdatedAt,
	}
	if order.TrackingNumber != nil {
		status.TrackingNumber = *order.TrackingNumber
	}
	if order.DeliveryStatus != nil {
		status.DeliveryStatus = *order.DeliveryStatus
	}
	if order.DeliveryCompanyID != nil {
		company, err := s.companies.FindByID(ctx, *order.DeliveryCompanyID)
		switch {
		case err == nil:
			status.CompanyName = company.Name
		case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			return nil, err
		}
	}
	return status, nil
}

// DeliveryFee prices delivery of the order with the company's settings. Items
// carry no weight, so each unit counts as one weight unit.
func (s *service) DeliveryFee(ctx context.Context, orderID, companyID uuid.UUID) (*FeeQuote, error) {
	order, company, err := s.load(ctx, orderID, companyID)
	if err != nil {
		return nil, err
	}
	units := 0
	for _, item := range order.Items {
		units += item.Quantity
	}
	base := partner.Fee(company.Settings, decimal.NewFromInt(int64(units)))
	rate := order.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	return &FeeQuote{
		OrderID:   order.ID,
		CompanyID: company.ID,
		Method:    enums.PriceCalculation(company.Settings.PriceCalculation),
		Fee:       currency.Apply(base, rate, order.Currency),
		Currency:  order.Currency,
	}, nil
}

func (s *service) load(ctx context.Context, orderID, companyID uuid.UUID) (*models.Order, *models.DeliveryCompany, error) {
	if orderID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if companyID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery company id is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}
	return order, company, nil
}

func checkURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "api url must be an absolute http(s) url")
	}
	return raw, nil
}

func checkSettings(settings types.DeliverySettings) (types.DeliverySettings, error) {
	method := strings.ToLower(strings.TrimSpace(settings.PriceCalculation))
	if method == "" {
		method = string(enums.PriceCalculationFixed)
	}
	if !enums.PriceCalculation(method).IsValid() {
		return settings, pkgerrors.New(pkgerrors.CodeValidation, "invalid price calculation").
			WithDetails(map[string]any{"price_calculation": settings.PriceCalculation})
	}
	if settings.BasePrice.IsNegative() {
		return settings, pkgerrors.New(pkgerrors.CodeValidation, "base price must be >= 0")
	}
	settings.PriceCalculation = method
	if settings.SupportedRegions == nil {
		settings.SupportedRegions = []string{}
	}
	return settings, nil
}

func digits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
