package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

// AddInventoryInput describes a new ledger entry. Nil threshold and empty
// location fall back to the configured defaults.
type AddInventoryInput struct {
	ProductID         uuid.UUID
	Size              string
	Color             string
	Quantity          int
	LowStockThreshold *int
	Location          string
}

// BulkItem sets one entry to Quantity.
type BulkItem struct {
	EntryID  uuid.UUID `json:"entry_id"`
	Quantity int       `json:"quantity"`
}

// BulkItemResult is a successfully applied bulk item.
type BulkItemResult struct {
	EntryID   uuid.UUID `json:"entry_id"`
	ProductID uuid.UUID `json:"product_id"`
	Before    int       `json:"before"`
	Quantity  int       `json:"quantity"`
}

// BulkItemFailure is a bulk item that was not applied.
type BulkItemFailure struct {
	Index   int            `json:"index"`
	EntryID uuid.UUID      `json:"entry_id"`
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
}

// BulkResult reports per-item outcomes of a bulk update.
type BulkResult struct {
	Updated []BulkItemResult  `json:"updated"`
	Failed  []BulkItemFailure `json:"failed"`
}

// Partial reports whether at least one item failed.
func (r *BulkResult) Partial() bool {
	return r != nil && len(r.Failed) > 0
}

func (r *BulkResult) fail(index int, entryID uuid.UUID, err error) {
	r.Failed = append(r.Failed, itemFailure(index, entryID, err))
}

// EntryDTO is the API shape of a ledger entry.
type EntryDTO struct {
	ID                uuid.UUID             `json:"id"`
	ProductID         uuid.UUID             `json:"product_id"`
	ProductName       string                `json:"product_name,omitempty"`
	ProductImage      string                `json:"product_image,omitempty"`
	Size              string                `json:"size"`
	Color             string                `json:"color"`
	Quantity          int                   `json:"quantity"`
	LowStockThreshold int                   `json:"low_stock_threshold"`
	Location          string                `json:"location"`
	Status            enums.InventoryStatus `json:"status"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// FromEntry maps a model to its DTO.
func FromEntry(e models.InventoryEntry) EntryDTO {
	return EntryDTO{
		ID:                e.ID,
		ProductID:         e.ProductID,
		Size:              e.Size,
		Color:             e.Color,
		Quantity:          e.Quantity,
		LowStockThreshold: e.LowStockThreshold,
		Location:          e.Location,
		Status:            e.Status,
		UpdatedAt:         e.UpdatedAt,
	}
}

func fromViews(rows []EntryView) []EntryDTO {
	out := make([]EntryDTO, 0, len(rows))
	for _, v := range rows {
		dto := EntryDTO{
			ID:                v.ID,
			ProductID:         v.ProductID,
			ProductName:       v.ProductName,
			Size:              v.Size,
			Color:             v.Color,
			Quantity:          v.Quantity,
			LowStockThreshold: v.LowStockThreshold,
			Location:          v.Location,
			Status:            v.Status,
			UpdatedAt:         v.UpdatedAt,
		}
		if len(v.ProductImages) > 0 {
			dto.ProductImage = v.ProductImages[0]
		}
		out = append(out, dto)
	}
	return out
}

// HistoryDTO is the API shape of a history entry.
type HistoryDTO struct {
	ID             uuid.UUID         `json:"id"`
	ProductID      uuid.UUID         `json:"product_id"`
	EntryID        *uuid.UUID        `json:"entry_id,omitempty"`
	Type           enums.HistoryType `json:"type"`
	Quantity       int               `json:"quantity"`
	QuantityBefore *int              `json:"quantity_before,omitempty"`
	QuantityAfter  *int              `json:"quantity_after,omitempty"`
	Reason         string            `json:"reason"`
	ActorID        *uuid.UUID        `json:"actor_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func fromHistory(rows []models.InventoryHistory) []HistoryDTO {
	out := make([]HistoryDTO, 0, len(rows))
	for _, h := range rows {
		out = append(out, HistoryDTO{
			ID:             h.ID,
			ProductID:      h.ProductID,
			EntryID:        h.EntryID,
			Type:           h.Type,
			Quantity:       h.Quantity,
			QuantityBefore: h.QuantityBefore,
			QuantityAfter:  h.QuantityAfter,
			Reason:         h.Reason,
			ActorID:        h.ActorID,
			CreatedAt:      h.CreatedAt,
		})
	}
	return out
}
