package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/repo"
	"github.com/evacurves/store-backend/pkg/db/models"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

// Aggregator keeps products.stock equal to the sum of the product's ledger
// entries. It is the only writer of that column.
type Aggregator struct{}

// NewAggregator returns the stock aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Recompute sums the product's entries and writes the total. Run it inside the
// transaction that mutated the ledger so a failure rolls the mutation back.
func (a *Aggregator) Recompute(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	total, err := a.sum(ctx, tx, productID)
	if err != nil {
		return 0, err
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", total)
	if res.Error != nil {
		return 0, repo.Classify(res.Error, "db: write product stock", msgProductNotFound)
	}
	if res.RowsAffected == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound).
			WithDetails(map[string]any{"product_id": productID})
	}
	return total, nil
}

func (a *Aggregator) sum(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	var total int64
	if err := tx.WithContext(ctx).
		Model(&models.InventoryEntry{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, repo.Classify(err, "db: sum product inventory", msgProductNotFound)
	}
	return int(total), nil
}

// Drift describes a product whose stored aggregate disagreed with its ledger.
type Drift struct {
	ProductID uuid.UUID `json:"product_id"`
	Stored    int       `json:"stored"`
	Ledger    int       `json:"ledger"`
}

// RecomputeAll reconciles every product, one transaction per product so each
// correction holds the product lock only briefly. It returns the products
// that were corrected. A failing product does not stop the sweep; failures
// are combined into the returned error.
func (a *Aggregator) RecomputeAll(ctx context.Context, runner txRunner) ([]Drift, error) {
	var ids []uuid.UUID
	if err := runner.DB().WithContext(ctx).
		Model(&models.Product{}).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, repo.Classify(err, "db: list products", msgProductNotFound)
	}

	var (
		drifts []Drift
		errs   error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return drifts, multierr.Append(errs, err)
		}
		err := runner.WithTx(ctx, func(tx *gorm.DB) error {
			ledger := NewLedgerRepository(tx)
			if err := ledger.LockProduct(ctx, id); err != nil {
				return err
			}
			var stored int
			if err := tx.WithContext(ctx).
				Model(&models.Product{}).
				Where("id = ?", id).
				Select("stock").
				Scan(&stored).Error; err != nil {
				return repo.Classify(err, "db: read product stock", msgProductNotFound)
			}
			total, err := a.Recompute(ctx, tx, id)
			if err != nil {
				return err
			}
			if total != stored {
				drifts = append(drifts, Drift{ProductID: id, Stored: stored, Ledger: total})
			}
			return nil
		})
		if err != nil {
			// deleted between listing and locking
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("product %s: %w", id, err))
		}
	}
	return drifts, errs
}
