package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/pkg/enums"
)

// InventoryEntry is the stock held for one (product, size, color) variant.
type InventoryEntry struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ProductID         uuid.UUID             `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_inventory_entries_variant,priority:1"`
	Size              string                `gorm:"column:size;not null;uniqueIndex:idx_inventory_entries_variant,priority:2"`
	Color             string                `gorm:"column:color;not null;uniqueIndex:idx_inventory_entries_variant,priority:3"`
	Quantity          int                   `gorm:"column:quantity;not null;default:0;check:chk_inventory_entries_quantity,quantity >= 0"`
	LowStockThreshold int                   `gorm:"column:low_stock_threshold;not null"`
	Location          string                `gorm:"column:location;not null"`
	Status            enums.InventoryStatus `gorm:"column:status;not null;default:in_stock"`
	Product           *Product              `gorm:"foreignKey:ProductID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryEntry) TableName() string {
	return "inventory_entries"
}

func (e *InventoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Status = enums.InventoryStatusFor(e.Quantity, e.LowStockThreshold)
	return nil
}
