package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/enums"
	"github.com/evacurves/store-backend/pkg/types"
)

// CompanyInput is the payload to create a delivery company.
type CompanyInput struct {
	Name        string
	Code        string
	APIURL      string
	Credentials map[string]string
	IsActive    bool
	Settings    types.DeliverySettings
}

// CompanyUpdate carries optional company changes. A non-nil Credentials map
// replaces the stored credentials.
type CompanyUpdate struct {
	Name        *string
	APIURL      *string
	Credentials map[string]string
	IsActive    *bool
	Settings    *types.DeliverySettings
}

// CompanyDTO is the client shape of a company. Credentials are never included.
type CompanyDTO struct {
	ID        uuid.UUID                 `json:"id"`
	Name      string                    `json:"name"`
	Code      enums.DeliveryCompanyCode `json:"code"`
	APIURL    string                    `json:"api_url"`
	IsActive  bool                      `json:"is_active"`
	Settings  types.DeliverySettings    `json:"settings"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

func fromCompany(c models.DeliveryCompany) CompanyDTO {
	return CompanyDTO{
		ID:        c.ID,
		Name:      c.Name,
		Code:      c.Code,
		APIURL:    c.APIURL,
		IsActive:  c.IsActive,
		Settings:  c.Settings,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// Dispatch reports a successful hand-off to a partner.
type Dispatch struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	CompanyID      uuid.UUID         `json:"company_id"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
	DeliveryStatus string            `json:"delivery_status"`
	OrderStatus    enums.OrderStatus `json:"order_status"`
}

// Status is the delivery state recorded on an order. Company and tracking
// fields stay empty until the order has been handed off.
type Status struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	OrderStatus    enums.OrderStatus `json:"order_status"`
	CompanyID      *uuid.UUID        `json:"company_id,omitempty"`
	CompanyName    string            `json:"company_name,omitempty"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
	DeliveryStatus string            `json:"delivery_status,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// FeeQuote is the delivery charge for an order, in the order currency.
type FeeQuote struct {
	OrderID   uuid.UUID              `json:"order_id"`
	CompanyID uuid.UUID              `json:"company_id"`
	Method    enums.PriceCalculation `json:"price_calculation"`
	Fee       decimal.Decimal        `json:"fee"`
	Currency  string                 `json:"currency"`
}
