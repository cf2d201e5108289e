package product

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/repo"
	"github.com/evacurves/store-backend/pkg/db/models"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

const msgProductNotFound = "product not found"

// editableColumns are the product columns an update may write. stock and
// stock_version belong to the inventory engine.
var editableColumns = []string{
	"name", "description", "category", "price", "original_price", "images",
	"sizes", "colors", "is_new", "is_featured", "display_order", "updated_at",
}

// Repository wires together the product persistence helpers.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// FindByID loads the product without its inventory.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, repo.Classify(err, "db: load product", msgProductNotFound)
	}
	return &product, nil
}

// CreateProduct inserts the product. Stock starts at zero.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	product.Stock = 0
	if err := r.DB(ctx).Create(product).Error; err != nil {
		return repo.Classify(err, "db: insert product", msgProductNotFound)
	}
	return nil
}

// UpdateProduct writes the editable columns of product.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) error {
	res := r.DB(ctx).Model(product).Select(editableColumns).Updates(product)
	if res.Error != nil {
		return repo.Classify(res.Error, "db: update product", msgProductNotFound)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound)
	}
	return nil
}

// SetDisplayOrder writes one product's display_order.
func (r *Repository) SetDisplayOrder(ctx context.Context, id uuid.UUID, order int) error {
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).
		Updates(map[string]any{"display_order": order, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return repo.Classify(res.Error, "db: reorder product", msgProductNotFound)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound).
			WithDetails(map[string]any{"product_id": id})
	}
	return nil
}

// DeleteProduct removes the product row.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return repo.Classify(res.Error, "db: delete product", msgProductNotFound)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound)
	}
	return nil
}

// ListProducts returns every product, featured first, then by display order,
// newest last among equals.
func (r *Repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.DB(ctx).
		Order("is_featured DESC, display_order ASC, created_at DESC, id ASC").
		Find(&products).Error; err != nil {
		return nil, repo.Classify(err, "db: list products", msgProductNotFound)
	}
	return products, nil
}

// CountFeatured returns the number of featured products.
func (r *Repository) CountFeatured(ctx context.Context) (int, error) {
	var n int64
	if err := r.DB(ctx).Model(&models.Product{}).Where("is_featured = ?", true).Count(&n).Error; err != nil {
		return 0, repo.Classify(err, "db: count featured products", msgProductNotFound)
	}
	return int(n), nil
}

// EntriesByProduct loads the ledger entries of every product in ids with one
// query, grouped by product and ordered by size then color.
func (r *Repository) EntriesByProduct(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.InventoryEntry, error) {
	out := make(map[uuid.UUID][]models.InventoryEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var entries []models.InventoryEntry
	if err := r.DB(ctx).
		Where("product_id IN ?", ids).
		Order("size ASC, color ASC").
		Find(&entries).Error; err != nil {
		return nil, repo.Classify(err, "db: list product inventory", "inventory entry not found")
	}
	for _, e := range entries {
		out[e.ProductID] = append(out[e.ProductID], e)
	}
	return out, nil
}
