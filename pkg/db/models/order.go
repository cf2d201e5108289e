package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/pkg/enums"
	"github.com/evacurves/store-backend/pkg/types"
)

// Order is a placed order with its item, address and customer snapshots.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string                `gorm:"column:order_number;not null;uniqueIndex:idx_orders_order_number"`
	UserID            *uuid.UUID            `gorm:"column:user_id;type:uuid"`
	Items             types.OrderItemList   `gorm:"column:items;type:jsonb;not null"`
	TotalAmount       decimal.Decimal       `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Currency          string                `gorm:"column:currency;not null"`
	ExchangeRate      decimal.Decimal       `gorm:"column:exchange_rate;type:numeric(18,8);not null"`
	ShippingAddress   types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	CustomerInfo      types.CustomerInfo    `gorm:"column:customer_info;type:jsonb;not null"`
	PaymentMethod     enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	PaymentStatus     enums.PaymentStatus   `gorm:"column:payment_status;not null"`
	Status            enums.OrderStatus     `gorm:"column:status;not null;index"`
	DeliveryCompanyID *uuid.UUID            `gorm:"column:delivery_company_id;type:uuid"`
	TrackingNumber    *string               `gorm:"column:tracking_number"`
	DeliveryStatus    *string               `gorm:"column:delivery_status"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
