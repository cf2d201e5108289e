package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/repo"
	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/types"
)

const (
	msgEntryNotFound   = "inventory record not found"
	msgProductNotFound = "product not found"
)

// statusExpr derives the entry status from the quantity expression q in the
// same statement that writes the quantity.
func statusExpr(q string) string {
	return "CASE WHEN " + q + " <= low_stock_threshold THEN '" + string(enums.InventoryStatusLowStock) +
		"' ELSE '" + string(enums.InventoryStatusInStock) + "' END"
}

var (
	setQuantitySQL = "UPDATE inventory_entries SET quantity = ?, status = " + statusExpr("?") +
		", updated_at = ? WHERE id = ?"
	decrementSQL = "UPDATE inventory_entries SET quantity = quantity - ?, status = " + statusExpr("quantity - ?") +
		", updated_at = ? WHERE id = ? AND quantity >= ?"
	incrementSQL = "UPDATE inventory_entries SET quantity = quantity + ?, status = " + statusExpr("quantity + ?") +
		", updated_at = ? WHERE id = ?"
	lockProductSQL = "UPDATE products SET stock_version = stock_version + 1 WHERE id = ?"
)

// EntryView is a ledger entry joined with the owning product's display fields.
type EntryView struct {
	ID                uuid.UUID             `gorm:"column:id"`
	ProductID         uuid.UUID             `gorm:"column:product_id"`
	ProductName       string                `gorm:"column:product_name"`
	ProductImages     types.StringList      `gorm:"column:product_images"`
	Size              string                `gorm:"column:size"`
	Color             string                `gorm:"column:color"`
	Quantity          int                   `gorm:"column:quantity"`
	LowStockThreshold int                   `gorm:"column:low_stock_threshold"`
	Location          string                `gorm:"column:location"`
	Status            enums.InventoryStatus `gorm:"column:status"`
	UpdatedAt         time.Time             `gorm:"column:updated_at"`
}

// UpsertInput describes the desired state of one variant.
type UpsertInput struct {
	ProductID         uuid.UUID
	Size              string
	Color             string
	Quantity          int
	LowStockThreshold int
	Location          string
}

// LedgerRepository persists per-variant stock. Mutating methods expect the
// caller to hold the product lock (see LockProduct) inside a transaction.
type LedgerRepository struct {
	repo.Base
}

// NewLedgerRepository builds a repository tied to the provided GORM DB.
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *LedgerRepository) WithTx(tx *gorm.DB) *LedgerRepository {
	return NewLedgerRepository(tx)
}

// LockProduct bumps the product's stock_version, taking its row lock until the
// enclosing transaction ends.
func (r *LedgerRepository) LockProduct(ctx context.Context, productID uuid.UUID) error {
	res := r.DB(ctx).Exec(lockProductSQL, productID)
	if res.Error != nil {
		return repo.Classify(res.Error, "db: lock product", msgProductNotFound)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound).
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil
}

// LockProducts locks each distinct product in ascending id order.
func (r *LedgerRepository) LockProducts(ctx context.Context, productIDs []uuid.UUID) error {
	for _, id := range SortedIDs(productIDs) {
		if err := r.LockProduct(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// LoadProducts returns the products among ids, keyed by id.
func (r *LedgerRepository) LoadProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, repo.Classify(err, "db: load products", msgProductNotFound)
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// Get returns the product's entries ordered by size then color.
func (r *LedgerRepository) Get(ctx context.Context, productID uuid.UUID) ([]models.InventoryEntry, error) {
	var entries []models.InventoryEntry
	if err := r.DB(ctx).
		Where("product_id = ?", productID).
		Order("size ASC, color ASC").
		Find(&entries).Error; err != nil {
		return nil, repo.Classify(err, "db: list product inventory", msgEntryNotFound)
	}
	return entries, nil
}

// GetVariant loads one variant by its natural key.
func (r *LedgerRepository) GetVariant(ctx context.Context, productID uuid.UUID, size, color string) (*models.InventoryEntry, error) {
	var entry models.InventoryEntry
	if err := r.DB(ctx).
		Where("product_id = ? AND size = ? AND color = ?", productID, size, color).
		First(&entry).Error; err != nil {
		return nil, repo.Classify(err, "db: load variant", msgEntryNotFound)
	}
	return &entry, nil
}

// FindByID loads one entry.
func (r *LedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryEntry, error) {
	var entry models.InventoryEntry
	if err := r.DB(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, repo.Classify(err, "db: load inventory entry", msgEntryNotFound)
	}
	return &entry, nil
}

// FindByIDs loads the entries that exist among ids, keyed by id.
func (r *LedgerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.InventoryEntry, error) {
	out := make(map[uuid.UUID]models.InventoryEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var entries []models.InventoryEntry
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&entries).Error; err != nil {
		return nil, repo.Classify(err, "db: load inventory entries", msgEntryNotFound)
	}
	for _, e := range entries {
		out[e.ID] = e
	}
	return out, nil
}

// Create inserts a new variant. An existing (product, size, color) is a Conflict.
func (r *LedgerRepository) Create(ctx context.Context, entry *models.InventoryEntry) error {
	if entry.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be >= 0")
	}
	if err := r.DB(ctx).Create(entry).Error; err != nil {
		err = repo.Classify(err, "db: insert inventory entry", msgEntryNotFound)
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "inventory record already exists for this size and color").
				WithDetails(map[string]any{"product_id": entry.ProductID, "size": entry.Size, "color": entry.Color})
		}
		return err
	}
	return nil
}

// Upsert sets the variant's quantity, creating it when absent. It returns the
// entry, the previous quantity and whether the entry was created.
func (r *LedgerRepository) Upsert(ctx context.Context, in UpsertInput) (*models.InventoryEntry, int, bool, error) {
	existing, err := r.GetVariant(ctx, in.ProductID, in.Size, in.Color)
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, 0, false, err
	}
	if existing == nil {
		entry := &models.InventoryEntry{
			ProductID:         in.ProductID,
			Size:              in.Size,
			Color:             in.Color,
			Quantity:          in.Quantity,
			LowStockThreshold: in.LowStockThreshold,
			Location:          in.Location,
		}
		if err := r.Create(ctx, entry); err != nil {
			return nil, 0, false, err
		}
		return entry, 0, true, nil
	}
	updated, before, err := r.SetQuantity(ctx, existing.ID, in.Quantity)
	if err != nil {
		return nil, 0, false, err
	}
	return updated, before, false, nil
}

// SetQuantity overwrites an entry's quantity and returns the updated entry
// with the previous quantity.
func (r *LedgerRepository) SetQuantity(ctx context.Context, entryID uuid.UUID, quantity int) (*models.InventoryEntry, int, error) {
	if quantity < 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be >= 0").
			WithDetails(map[string]any{"entry_id": entryID, "quantity": quantity})
	}
	entry, err := r.FindByID(ctx, entryID)
	if err != nil {
		return nil, 0, err
	}
	before := entry.Quantity
	now := time.Now().UTC()
	res := r.DB(ctx).Exec(setQuantitySQL, quantity, quantity, now, entryID)
	if res.Error != nil {
		return nil, 0, repo.Classify(res.Error, "db: set inventory quantity", msgEntryNotFound)
	}
	if res.RowsAffected == 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, msgEntryNotFound)
	}
	entry.Quantity = quantity
	entry.Status = enums.InventoryStatusFor(quantity, entry.LowStockThreshold)
	entry.UpdatedAt = now
	return entry, before, nil
}

// Decrement removes qty units only if at least qty remain. A failed floor
// check is InsufficientStock.
func (r *LedgerRepository) Decrement(ctx context.Context, entryID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be >= 1")
	}
	res := r.DB(ctx).Exec(decrementSQL, qty, qty, time.Now().UTC(), entryID, qty)
	if res.Error != nil {
		return repo.Classify(res.Error, "db: decrement inventory", msgEntryNotFound)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient stock").
			WithDetails(map[string]any{"entry_id": entryID, "requested": qty})
	}
	return nil
}

// Increment returns qty units to an entry.
func (r *LedgerRepository) Increment(ctx context.Context, entryID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be >= 1")
	}
	res := r.DB(ctx).Exec(incrementSQL, qty, qty, time.Now().UTC(), entryID)
	if res.Error != nil {
		return repo.Classify(res.Error, "db: increment inventory", msgEntryNotFound)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgEntryNotFound)
	}
	return nil
}

// Delete hard-deletes one entry.
func (r *LedgerRepository) Delete(ctx context.Context, entryID uuid.UUID) error {
	res := r.DB(ctx).Where("id = ?", entryID).Delete(&models.InventoryEntry{})
	if res.Error != nil {
		return repo.Classify(res.Error, "db: delete inventory entry", msgEntryNotFound)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgEntryNotFound)
	}
	return nil
}

// DeleteAllForProduct removes every entry of the product.
func (r *LedgerRepository) DeleteAllForProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("product_id = ?", productID).Delete(&models.InventoryEntry{})
	if res.Error != nil {
		return 0, repo.Classify(res.Error, "db: delete product inventory", msgEntryNotFound)
	}
	return res.RowsAffected, nil
}

func (r *LedgerRepository) views(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Table("inventory_entries AS e").
		Select("e.id, e.product_id, p.name AS product_name, p.images AS product_images, e.size, e.color, " +
			"e.quantity, e.low_stock_threshold, e.location, e.status, e.updated_at").
		Joins("JOIN products p ON p.id = e.product_id")
}

// ListViews returns every entry ordered by product name, product, size, color.
// A non-nil status keeps only entries in that state.
func (r *LedgerRepository) ListViews(ctx context.Context, status *enums.InventoryStatus) ([]EntryView, error) {
	query := r.views(ctx)
	if status != nil {
		query = query.Where("e.status = ?", *status)
	}
	var rows []EntryView
	if err := query.
		Order("p.name ASC, e.product_id ASC, e.size ASC, e.color ASC").
		Scan(&rows).Error; err != nil {
		return nil, repo.Classify(err, "db: list inventory", msgEntryNotFound)
	}
	return rows, nil
}

// ListViewsByProduct returns the product's entries ordered by size, color.
func (r *LedgerRepository) ListViewsByProduct(ctx context.Context, productID uuid.UUID) ([]EntryView, error) {
	var rows []EntryView
	if err := r.views(ctx).
		Where("e.product_id = ?", productID).
		Order("e.size ASC, e.color ASC").
		Scan(&rows).Error; err != nil {
		return nil, repo.Classify(err, "db: list product inventory", msgEntryNotFound)
	}
	return rows, nil
}

// ListLowStock returns low-stock entries ordered by ascending quantity.
func (r *LedgerRepository) ListLowStock(ctx context.Context) ([]EntryView, error) {
	var rows []EntryView
	if err := r.views(ctx).
		Where("e.status = ?", enums.InventoryStatusLowStock).
		Order("e.quantity ASC, p.name ASC, e.size ASC, e.color ASC").
		Scan(&rows).Error; err != nil {
		return nil, repo.Classify(err, "db: list low stock", msgEntryNotFound)
	}
	return rows, nil
}

// SortedIDs returns the distinct ids in ascending string order, the global
// lock order for multi-product operations.
func SortedIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].String(), out[j].String()) < 0
	})
	return out
}
