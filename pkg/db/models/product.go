package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/pkg/types"
)

// Product is a catalog listing. Stock is the sum of the product's inventory
// entries and is only written by the stock aggregator.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Description   string           `gorm:"column:description;not null"`
	Category      string           `gorm:"column:category;not null"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	OriginalPrice *decimal.Decimal `gorm:"column:original_price;type:numeric(12,2)"`
	Images        types.StringList `gorm:"column:images;type:jsonb;not null"`
	Sizes         types.SizeList   `gorm:"column:sizes;type:jsonb;not null"`
	Colors        types.ColorList  `gorm:"column:colors;type:jsonb;not null"`
	Stock         int              `gorm:"column:stock;not null;default:0"`
	StockVersion  int64            `gorm:"column:stock_version;not null;default:0"`
	IsNew         bool             `gorm:"column:is_new;not null;default:false"`
	IsFeatured    bool             `gorm:"column:is_featured;not null;default:false"`
	DisplayOrder  int              `gorm:"column:display_order;not null;default:0"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
