package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/pkg/config"
	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
)

const maxBulkItems = 5000

type lowStockReporter interface {
	mutationRecorder
	SetLowStockEntries(n int)
}

// Service manages inventory entries and their history.
type Service interface {
	AddInventory(ctx context.Context, input AddInventoryInput, actorID uuid.UUID) (*EntryDTO, error)
	UpdateInventory(ctx context.Context, entryID uuid.UUID, quantity int, actorID uuid.UUID) (*EntryDTO, error)
	BulkUpdateInventory(ctx context.Context, items []BulkItem, actorID uuid.UUID) (*BulkResult, error)
	GetLowStockItems(ctx context.Context) ([]EntryDTO, error)
	GetProductInventory(ctx context.Context, productID uuid.UUID) ([]EntryDTO, error)
	GetAllInventory(ctx context.Context, status *enums.InventoryStatus) ([]EntryDTO, error)
	History(ctx context.Context, productID uuid.UUID, typ *enums.HistoryType) ([]HistoryDTO, error)
}

// ServiceParams wires the inventory service.
type ServiceParams struct {
	DB      txRunner
	Config  config.InventoryConfig
	Logger  *logger.Logger
	Metrics lowStockReporter
}

type service struct {
	db      txRunner
	ledger  *LedgerRepository
	history *HistoryRepository
	cfg     config.InventoryConfig
	logg    *logger.Logger
	metrics lowStockReporter
}

// NewService builds the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Config
	if cfg.BulkBatchSize <= 0 {
		cfg.BulkBatchSize = 100
	}
	if strings.TrimSpace(cfg.DefaultLocation) == "" {
		cfg.DefaultLocation = "Main Warehouse"
	}
	return &service{
		db:      params.DB,
		ledger:  NewLedgerRepository(params.DB.DB()),
		history: NewHistoryRepository(params.DB.DB()),
		cfg:     cfg,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

func (s *service) recorder() mutationRecorder {
	if s.metrics == nil {
		return nil
	}
	return s.metrics
}

func (s *service) AddInventory(ctx context.Context, input AddInventoryInput, actorID uuid.UUID) (*EntryDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	entry, err := s.newEntry(input)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stock := NewStockTx(tx, s.recorder())
		if err := stock.Ledger.LockProduct(ctx, entry.ProductID); err != nil {
			return err
		}
		if err := stock.Ledger.Create(ctx, entry); err != nil {
			return err
		}
		if err := stock.RecordCreated(ctx, entry, ReasonInitialStock, &actorID); err != nil {
			return err
		}
		return stock.Settle(ctx)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithProductID(ctx, entry.ProductID.String())
	s.logg.Info(s.logg.WithField(ctx, "entry_id", entry.ID.String()), "inventory entry created")
	dto := FromEntry(*entry)
	return &dto, nil
}

func (s *service) newEntry(input AddInventoryInput) (*models.InventoryEntry, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	size := strings.TrimSpace(input.Size)
	color := strings.TrimSpace(input.Color)
	if size == "" || color == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size and color are required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be >= 0")
	}
	threshold := s.cfg.DefaultLowStockThreshold
	if input.LowStockThreshold != nil {
		threshold = *input.LowStockThreshold
	}
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold must be >= 0")
	}
	location := strings.TrimSpace(input.Location)
	if location == "" {
		location = s.cfg.DefaultLocation
	}
	return &models.InventoryEntry{
		ProductID:         input.ProductID,
		Size:              size,
		Color:             color,
		Quantity:          input.Quantity,
		LowStockThreshold: threshold,
		Location:          location,
	}, nil
}

func (s *service) UpdateInventory(ctx context.Context, entryID uuid.UUID, quantity int, actorID uuid.UUID) (*EntryDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if entryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be >= 0")
	}

	current, err := s.ledger.FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	var updated *models.InventoryEntry
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stock := NewStockTx(tx, s.recorder())
		if err := stock.Ledger.LockProduct(ctx, current.ProductID); err != nil {
			return err
		}
		entry, before, err := stock.Ledger.SetQuantity(ctx, entryID, quantity)
		if err != nil {
			return err
		}
		if err := stock.RecordChange(ctx, entry, enums.HistoryTypeUpdate, before, quantity, ReasonManualUpdate, &actorID); err != nil {
			return err
		}
		updated = entry
		return stock.Settle(ctx)
	})
	if err != nil {
		return nil, err
	}

	dto := FromEntry(*updated)
	return &dto, nil
}

func (s *service) BulkUpdateInventory(ctx context.Context, items []BulkItem, actorID uuid.UUID) (*BulkResult, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if len(items) > maxBulkItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d items per request", maxBulkItems))
	}

	result := &BulkResult{Updated: []BulkItemResult{}, Failed: []BulkItemFailure{}}
	valid := make([]int, 0, len(items))
	for i, item := range items {
		switch {
		case item.EntryID == uuid.Nil:
			result.fail(i, item.EntryID, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required"))
		case item.Quantity < 0:
			result.fail(i, item.EntryID, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be >= 0"))
		default:
			valid = append(valid, i)
		}
	}

	for start := 0; start < len(valid); start += s.cfg.BulkBatchSize {
		end := start + s.cfg.BulkBatchSize
		if end > len(valid) {
			end = len(valid)
		}
		s.applyBatch(ctx, items, valid[start:end], actorID, result)
	}

	if result.Partial() {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"updated": len(result.Updated),
			"failed":  len(result.Failed),
		})
		s.logg.Warn(ctx, "bulk inventory update finished with failures")
	}
	return result, nil
}

// applyBatch runs one batch in a transaction. Each item runs in its own
// savepoint so a failing item leaves the rest of the batch intact; touched
// products are recomputed once after every item of the batch has landed.
func (s *service) applyBatch(ctx context.Context, items []BulkItem, indexes []int, actorID uuid.UUID, result *BulkResult) {
	ids := make([]uuid.UUID, 0, len(indexes))
	for _, i := range indexes {
		ids = append(ids, items[i].EntryID)
	}

	var applied []BulkItemResult
	var failed []BulkItemFailure
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		applied, failed = nil, nil
		stock := NewStockTx(tx, s.recorder())
		entries, err := stock.Ledger.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		productIDs := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			productIDs = append(productIDs, e.ProductID)
		}
		if err := stock.Ledger.LockProducts(ctx, productIDs); err != nil {
			return err
		}

		for _, i := range indexes {
			item := items[i]
			if _, ok := entries[item.EntryID]; !ok {
				failed = append(failed, itemFailure(i, item.EntryID,
					pkgerrors.New(pkgerrors.CodeNotFound, msgEntryNotFound)))
				continue
			}
			var res BulkItemResult
			itemErr := tx.Transaction(func(itx *gorm.DB) error {
				itemStock := NewStockTx(itx, s.recorder())
				entry, before, err := itemStock.Ledger.SetQuantity(ctx, item.EntryID, item.Quantity)
				if err != nil {
					return err
				}
				if err := itemStock.RecordChange(ctx, entry, enums.HistoryTypeUpdate, before, item.Quantity, ReasonBulkUpdate, &actorID); err != nil {
					return err
				}
				res = BulkItemResult{EntryID: entry.ID, ProductID: entry.ProductID, Before: before, Quantity: item.Quantity}
				return nil
			})
			if itemErr != nil {
				failed = append(failed, itemFailure(i, item.EntryID, itemErr))
				continue
			}
			stock.Touch(res.ProductID)
			applied = append(applied, res)
		}
		return stock.Settle(ctx)
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "batch_size", len(indexes)), "bulk inventory batch failed", err)
		for _, i := range indexes {
			result.fail(i, items[i].EntryID, err)
		}
		return
	}
	result.Updated = append(result.Updated, applied...)
	result.Failed = append(result.Failed, failed...)
}

func itemFailure(index int, entryID uuid.UUID, err error) BulkItemFailure {
	return BulkItemFailure{
		Index:   index,
		EntryID: entryID,
		Code:    pkgerrors.CodeOf(err),
		Message: pkgerrors.Message(err),
	}
}

func (s *service) GetLowStockItems(ctx context.Context) ([]EntryDTO, error) {
	rows, err := s.ledger.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SetLowStockEntries(len(rows))
	}
	return fromViews(rows), nil
}

func (s *service) GetProductInventory(ctx context.Context, productID uuid.UUID) ([]EntryDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	rows, err := s.ledger.ListViewsByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return fromViews(rows), nil
}

func (s *service) GetAllInventory(ctx context.Context, status *enums.InventoryStatus) ([]EntryDTO, error) {
	rows, err := s.ledger.ListViews(ctx, status)
	if err != nil {
		return nil, err
	}
	return fromViews(rows), nil
}

func (s *service) History(ctx context.Context, productID uuid.UUID, typ *enums.HistoryType) ([]HistoryDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	rows, err := s.history.ListByProduct(ctx, productID, typ)
	if err != nil {
		return nil, err
	}
	return fromHistory(rows), nil
}
