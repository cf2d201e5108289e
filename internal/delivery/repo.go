package delivery

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/repo"
	"github.com/evacurves/store-backend/pkg/db/models"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

const msgCompanyNotFound = "delivery company not found"

// Repository persists delivery companies.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// List returns every company ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.DeliveryCompany, error) {
	var rows []models.DeliveryCompany
	if err := r.DB(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, repo.Classify(err, "db: list delivery companies", msgCompanyNotFound)
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryCompany, error) {
	var company models.DeliveryCompany
	if err := r.DB(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, repo.Classify(err, "db: load delivery company", msgCompanyNotFound)
	}
	return &company, nil
}

// Create inserts company; a duplicate name or code is a Conflict.
func (r *Repository) Create(ctx context.Context, company *models.DeliveryCompany) error {
	if err := r.DB(ctx).Create(company).Error; err != nil {
		return repo.Classify(err, "db: insert delivery company", msgCompanyNotFound)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, company *models.DeliveryCompany) error {
	if err := r.DB(ctx).Save(company).Error; err != nil {
		return repo.Classify(err, "db: update delivery company", msgCompanyNotFound)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.DeliveryCompany{})
	if res.Error != nil {
		return repo.Classify(res.Error, "db: delete delivery company", msgCompanyNotFound)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgCompanyNotFound)
	}
	return nil
}
