package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StoreSettings is the single store profile row.
type StoreSettings struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null"`
	Phone     string    `gorm:"column:phone;not null;default:''"`
	Address   string    `gorm:"column:address;not null;default:''"`
	Currency  string    `gorm:"column:currency;not null;default:USD"`
	Timezone  string    `gorm:"column:timezone;not null;default:UTC"`
	Logo      string    `gorm:"column:logo;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *StoreSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
