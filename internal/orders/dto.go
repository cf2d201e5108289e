package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/enums"
	"github.com/evacurves/store-backend/pkg/types"
)

// ItemInput is one requested line. Size and color may be omitted when the
// product has a single variant.
type ItemInput struct {
	ProductID uuid.UUID
	Size      string
	Color     string
	Quantity  int
}

// CreateOrderInput captures a checkout request.
type CreateOrderInput struct {
	Items           []ItemInput
	ShippingAddress types.ShippingAddress
	CustomerInfo    types.CustomerInfo
	PaymentMethod   string
	Currency        string
}

// ListFilters narrow an order list. UserID restricts it to one customer.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	UserID        *uuid.UUID
}

// DeliveryUpdate records a successful hand-off to a delivery partner.
type DeliveryUpdate struct {
	CompanyID      uuid.UUID
	TrackingNumber string
	DeliveryStatus string
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID                uuid.UUID             `json:"id"`
	OrderNumber       string                `json:"order_number"`
	UserID            *uuid.UUID            `json:"user_id,omitempty"`
	Items             []types.OrderItem     `json:"items"`
	TotalAmount       decimal.Decimal       `json:"total_amount"`
	Currency          string                `json:"currency"`
	ExchangeRate      decimal.Decimal       `json:"exchange_rate"`
	ShippingAddress   types.ShippingAddress `json:"shipping_address"`
	CustomerInfo      types.CustomerInfo    `json:"customer_info"`
	PaymentMethod     enums.PaymentMethod   `json:"payment_method"`
	PaymentStatus     enums.PaymentStatus   `json:"payment_status"`
	Status            enums.OrderStatus     `json:"status"`
	DeliveryCompanyID *uuid.UUID            `json:"delivery_company_id,omitempty"`
	TrackingNumber    *string               `json:"tracking_number,omitempty"`
	DeliveryStatus    *string               `json:"delivery_status,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// FromModel maps an order model to its DTO.
func FromModel(o models.Order) OrderDTO {
	items := []types.OrderItem(o.Items)
	if items == nil {
		items = []types.OrderItem{}
	}
	return OrderDTO{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		UserID:            o.UserID,
		Items:             items,
		TotalAmount:       o.TotalAmount,
		Currency:          o.Currency,
		ExchangeRate:      o.ExchangeRate,
		ShippingAddress:   o.ShippingAddress,
		CustomerInfo:      o.CustomerInfo,
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     o.PaymentStatus,
		Status:            o.Status,
		DeliveryCompanyID: o.DeliveryCompanyID,
		TrackingNumber:    o.TrackingNumber,
		DeliveryStatus:    o.DeliveryStatus,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}
