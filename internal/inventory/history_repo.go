package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/repo"
	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

// Reasons written to the history log.
const (
	ReasonInitialStock   = "Initial stock"
	ReasonManualUpdate   = "Manual update"
	ReasonBulkUpdate     = "Bulk update"
	ReasonStockUpdate    = "Stock update"
	ReasonVariantAdded   = "New size/color added"
	ReasonVariantRemoved = "Size/color removed"
	ReasonProductDeleted = "Product deleted"
	ReasonOrderPlaced    = "Order placed"
)

// Record is one history entry to append.
type Record struct {
	ProductID uuid.UUID
	EntryID   *uuid.UUID
	Type      enums.HistoryType
	Quantity  int
	Before    *int
	After     *int
	Reason    string
	ActorID   *uuid.UUID
}

// HistoryRepository appends to and reads the inventory history log. There is
// no update or delete path.
type HistoryRepository struct {
	repo.Base
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{Base: repo.NewBase(db)}
}

func (r *HistoryRepository) WithTx(tx *gorm.DB) *HistoryRepository {
	return NewHistoryRepository(tx)
}

// Append writes a history entry. Quantity is the magnitude of the change.
func (r *HistoryRepository) Append(ctx context.Context, rec Record) (*models.InventoryHistory, error) {
	if rec.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if rec.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "history quantity must be >= 0")
	}
	if !rec.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid history type").
			WithDetails(map[string]any{"type": rec.Type})
	}
	entry := &models.InventoryHistory{
		ProductID:      rec.ProductID,
		EntryID:        rec.EntryID,
		Type:           rec.Type,
		Quantity:       rec.Quantity,
		QuantityBefore: rec.Before,
		QuantityAfter:  rec.After,
		Reason:         rec.Reason,
		ActorID:        rec.ActorID,
	}
	if err := r.DB(ctx).Create(entry).Error; err != nil {
		return nil, repo.Classify(err, "db: append inventory history", "history entry not found")
	}
	return entry, nil
}

// ListByProduct returns the product's history, oldest first, optionally
// narrowed to one change type.
func (r *HistoryRepository) ListByProduct(ctx context.Context, productID uuid.UUID, typ *enums.HistoryType) ([]models.InventoryHistory, error) {
	query := r.DB(ctx).Where("product_id = ?", productID)
	if typ != nil {
		query = query.Where("type = ?", *typ)
	}
	var rows []models.InventoryHistory
	if err := query.
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, repo.Classify(err, "db: list inventory history", "history entry not found")
	}
	return rows, nil
}

// Change builds the record for moving an entry from before to after. A zero
// delta yields ok=false. Typed updates keep the audit columns.
func Change(entry *models.InventoryEntry, typ enums.HistoryType, before, after int, reason string, actorID *uuid.UUID) (Record, bool) {
	delta := after - before
	if delta == 0 {
		return Record{}, false
	}
	if typ == "" {
		typ = enums.HistoryTypeForDelta(delta)
	}
	if delta < 0 {
		delta = -delta
	}
	entryID := entry.ID
	b, a := before, after
	return Record{
		ProductID: entry.ProductID,
		EntryID:   &entryID,
		Type:      typ,
		Quantity:  delta,
		Before:    &b,
		After:     &a,
		Reason:    reason,
		ActorID:   actorID,
	}, true
}
