package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/pkg/enums"
)

// InventoryHistory is an append-only record of one stock change. Quantity is
// the magnitude of the change; QuantityBefore/After are set where known.
type InventoryHistory struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	EntryID        *uuid.UUID        `gorm:"column:entry_id;type:uuid"`
	Type           enums.HistoryType `gorm:"column:type;not null"`
	Quantity       int               `gorm:"column:quantity;not null;check:chk_inventory_history_quantity,quantity >= 0"`
	QuantityBefore *int              `gorm:"column:quantity_before"`
	QuantityAfter  *int              `gorm:"column:quantity_after"`
	Reason         string            `gorm:"column:reason;not null"`
	ActorID        *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (InventoryHistory) TableName() string {
	return "inventory_history"
}

func (h *InventoryHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
