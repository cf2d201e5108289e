package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evacurves/store-backend/internal/inventory"
	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/types"
)

// ProductDTO is the catalog payload returned to clients. Prices are expressed
// in Currency.
type ProductDTO struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	Category      string               `json:"category"`
	Price         decimal.Decimal      `json:"price"`
	OriginalPrice *decimal.Decimal     `json:"original_price,omitempty"`
	Currency      string               `json:"currency"`
	Images        []string             `json:"images"`
	Sizes         []types.Size         `json:"sizes"`
	Colors        []types.Color        `json:"colors"`
	Stock         int                  `json:"stock"`
	IsNew         bool                 `json:"is_new"`
	IsFeatured    bool                 `json:"is_featured"`
	DisplayOrder  int                  `json:"display_order"`
	Inventory     []inventory.EntryDTO `json:"inventory"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewProductDTO builds a DTO in the base currency from the persisted model and
// its ledger entries.
func NewProductDTO(product *models.Product, entries []models.InventoryEntry) *ProductDTO {
	dto := &ProductDTO{
		ID:            product.ID,
		Name:          product.Name,
		Description:   product.Description,
		Category:      product.Category,
		Price:         product.Price,
		OriginalPrice: product.OriginalPrice,
		Images:        append([]string{}, product.Images...),
		Sizes:         append([]types.Size{}, product.Sizes...),
		Colors:        append([]types.Color{}, product.Colors...),
		Stock:         product.Stock,
		IsNew:         product.IsNew,
		IsFeatured:    product.IsFeatured,
		DisplayOrder:  product.DisplayOrder,
		Inventory:     make([]inventory.EntryDTO, 0, len(entries)),
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
	for _, e := range entries {
		dto.Inventory = append(dto.Inventory, inventory.FromEntry(e))
	}
	return dto
}
