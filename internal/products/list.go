package product

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evacurves/store-backend/pkg/types"
)

// CreateProductInput holds the payload to create a product. Price and
// OriginalPrice are in Currency and stored in the base currency.
type CreateProductInput struct {
	Name          string
	Description   string
	Category      string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	Currency      string
	Images        []string
	Sizes         []types.Size
	Colors        []types.Color
	IsNew         bool
	IsFeatured    bool
}

// UpdateProductInput holds optional mutation values for a product. When
// Sizes or Colors is set the variant ledger is reconciled against the new
// size x color matrix.
type UpdateProductInput struct {
	Name          *string
	Description   *string
	Category      *string
	Price         *decimal.Decimal
	OriginalPrice *decimal.Decimal
	Currency      string
	Images        *[]string
	Sizes         *[]types.Size
	Colors        *[]types.Color
	IsNew         *bool
	IsFeatured    *bool
	DisplayOrder  *int
}

// ReorderItem places one product in the catalog order.
type ReorderItem struct {
	ID           uuid.UUID
	DisplayOrder int
}

// ListProductsInput captures the read options for the catalog list.
type ListProductsInput struct {
	Currency string
}
