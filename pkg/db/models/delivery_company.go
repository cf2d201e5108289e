package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/pkg/enums"
	"github.com/evacurves/store-backend/pkg/types"
)

// DeliveryCompany is a configured delivery partner.
type DeliveryCompany struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	Name        string                    `gorm:"column:name;not null;uniqueIndex:idx_delivery_companies_name"`
	Code        enums.DeliveryCompanyCode `gorm:"column:code;not null;uniqueIndex:idx_delivery_companies_code"`
	APIURL      string                    `gorm:"column:api_url;not null"`
	Credentials types.Credentials         `gorm:"column:credentials;type:jsonb;not null"`
	IsActive    bool                      `gorm:"column:is_active;not null"`
	Settings    types.DeliverySettings    `gorm:"column:settings;type:jsonb;not null"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *DeliveryCompany) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
