// Package settings manages the single store profile row.
package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evacurves/store-backend/internal/repo"
	"github.com/evacurves/store-backend/pkg/currency"
	"github.com/evacurves/store-backend/pkg/db/models"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
)

// singletonID keys the store profile so concurrent first reads create one row.
var singletonID = uuid.MustParse("5e771165-0000-4000-8000-000000000001")

// Defaults applied when the profile is first created.
var Defaults = models.StoreSettings{
	Name:     "Eva Curves Fashion Store",
	Email:    "contact@evacurves.com",
	Phone:    "+1 (555) 123-4567",
	Address:  "123 Fashion Street, NY 10001",
	Currency: currency.Base,
	Timezone: "UTC-5",
}

// UpdateInput carries optional profile changes.
type UpdateInput struct {
	Name     *string `validate:"omitempty,min=1,max=200"`
	Email    *string `validate:"omitempty,email"`
	Phone    *string `validate:"omitempty,max=40"`
	Address  *string `validate:"omitempty,max=500"`
	Currency *string `validate:"omitempty,len=3"`
	Timezone *string `validate:"omitempty,max=64"`
	Logo     *string `validate:"omitempty,max=2048"`
}

// SettingsDTO is the client shape of the store profile.
type SettingsDTO struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Currency  string    `json:"currency"`
	Timezone  string    `json:"timezone"`
	Logo      string    `json:"logo,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func fromModel(m *models.StoreSettings) *SettingsDTO {
	return &SettingsDTO{
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Address:   m.Address,
		Currency:  m.Currency,
		Timezone:  m.Timezone,
		Logo:      m.Logo,
		UpdatedAt: m.UpdatedAt,
	}
}

// Service reads and updates the store profile.
type Service interface {
	Get(ctx context.Context) (*SettingsDTO, error)
	Update(ctx context.Context, input UpdateInput) (*SettingsDTO, error)
}

type service struct {
	base     repo.Base
	logg     *logger.Logger
	validate *validator.Validate
}

// NewService builds the settings service.
func NewService(db *gorm.DB, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{base: repo.NewBase(db), logg: logg, validate: validator.New()}, nil
}

// load returns the profile row, creating it with Defaults when absent.
func (s *service) load(ctx context.Context) (*models.StoreSettings, error) {
	row := Defaults
	row.ID = singletonID
	if err := s.base.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, repo.Classify(err, "db: create store settings", "store settings not found")
	}
	var current models.StoreSettings
	if err := s.base.DB(ctx).First(&current, "id = ?", singletonID).Error; err != nil {
		return nil, repo.Classify(err, "db: load store settings", "store settings not found")
	}
	return &current, nil
}

func (s *service) Get(ctx context.Context) (*SettingsDTO, error) {
	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return fromModel(current), nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*SettingsDTO, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store settings")
	}
	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&current.Name, input.Name)
	set(&current.Email, input.Email)
	set(&current.Phone, input.Phone)
	set(&current.Address, input.Address)
	set(&current.Timezone, input.Timezone)
	set(&current.Logo, input.Logo)
	if input.Currency != nil {
		code := currency.Normalize(*input.Currency)
		if !currency.IsSupported(code) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency").
				WithDetails(map[string]any{"currency": *input.Currency})
		}
		current.Currency = code
	}
	if current.Name == "" || current.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name and email are required")
	}

	if err := s.base.DB(ctx).Save(current).Error; err != nil {
		return nil, repo.Classify(err, "db: update store settings", "store settings not found")
	}
	s.logg.Info(ctx, "store settings updated")
	return fromModel(current), nil
}
