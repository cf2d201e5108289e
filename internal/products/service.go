package product

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/inventory"
	"github.com/evacurves/store-backend/pkg/config"
	"github.com/evacurves/store-backend/pkg/currency"
	"github.com/evacurves/store-backend/pkg/db/models"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
	"github.com/evacurves/store-backend/pkg/types"
)

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Service exposes catalog management operations.
type Service interface {
	CreateProduct(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID, currencyCode string) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) ([]ProductDTO, error)
	UpdateProduct(ctx context.Context, actorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actorID, productID uuid.UUID) error
	ReorderProducts(ctx context.Context, actorID uuid.UUID, items []ReorderItem) error
}

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockMetrics interface {
	IncStockMutation(historyType string)
}

// ServiceParams wires the product service.
type ServiceParams struct {
	DB      txRunner
	Config  config.InventoryConfig
	Logger  *logger.Logger
	Metrics stockMetrics
}

type service struct {
	db       txRunner
	repo     *Repository
	defaults entryDefaults
	logg     *logger.Logger
	metrics  stockMetrics
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	defaults := entryDefaults{
		threshold: params.Config.DefaultLowStockThreshold,
		location:  strings.TrimSpace(params.Config.DefaultLocation),
	}
	if defaults.location == "" {
		defaults.location = "Main Warehouse"
	}
	return &service{
		db:       params.DB,
		repo:     NewRepository(params.DB.DB()),
		defaults: defaults,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) stockTx(tx *gorm.DB) *inventory.StockTx {
	return inventory.NewStockTx(tx, s.metrics)
}

// CreateProduct stores the product and one ledger entry per size x color.
func (s *service) CreateProduct(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if err := validateCreate(&input); err != nil {
		return nil, err
	}
	price, original, err := toBase(input.Price, input.OriginalPrice, input.Currency)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:          input.Name,
		Description:   input.Description,
		Category:      input.Category,
		Price:         price,
		OriginalPrice: original,
		Images:        types.StringList(input.Images),
		Sizes:         types.SizeList(input.Sizes),
		Colors:        types.ColorList(input.Colors),
		IsNew:         input.IsNew,
		IsFeatured:    input.IsFeatured,
	}

	var entries []models.InventoryEntry
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if product.IsFeatured {
			n, err := txRepo.CountFeatured(ctx)
			if err != nil {
				return err
			}
			product.DisplayOrder = n
		}
		if err := txRepo.CreateProduct(ctx, product); err != nil {
			return err
		}

		stock := s.stockTx(tx)
		for _, v := range matrix(input.Sizes, input.Colors) {
			entry := &models.InventoryEntry{
				ProductID:         product.ID,
				Size:              v.Size,
				Color:             v.Color,
				Quantity:          v.Stock,
				LowStockThreshold: s.defaults.threshold,
				Location:          s.defaults.location,
			}
			if err := stock.Ledger.Create(ctx, entry); err != nil {
				return err
			}
			if err := stock.RecordCreated(ctx, entry, inventory.ReasonInitialStock, &actorID); err != nil {
				return err
			}
			entries = append(entries, *entry)
		}
		if err := stock.Settle(ctx); err != nil {
			return err
		}
		product.Stock, _ = stock.Total(product.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithProductID(ctx, product.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "variants", len(entries)), "product created")
	dto := NewProductDTO(product, entries)
	dto.Currency = currency.Base
	return dto, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID, currencyCode string) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	code, err := displayCurrency(currencyCode)
	if err != nil {
		return nil, err
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.EntriesByProduct(ctx, []uuid.UUID{productID})
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(product, entries[productID])
	if err := convertDTO(dto, code); err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) ([]ProductDTO, error) {
	code, err := displayCurrency(input.Currency)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	entries, err := s.repo.EntriesByProduct(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		dto := NewProductDTO(&products[i], entries[products[i].ID])
		if err := convertDTO(dto, code); err != nil {
			return nil, err
		}
		out = append(out, *dto)
	}
	return out, nil
}

// UpdateProduct applies the provided fields and, when the size or color
// matrix is part of the update, reconciles the ledger in the same transaction.
func (s *service) UpdateProduct(ctx context.Context, actorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := validateUpdate(&input); err != nil {
		return nil, err
	}

	var product *models.Product
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stock := s.stockTx(tx)
		if err := stock.Ledger.LockProduct(ctx, productID); err != nil {
			return err
		}
		txRepo := s.repo.WithTx(tx)
		current, err := txRepo.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := applyUpdate(current, input); err != nil {
			return err
		}
		if err := txRepo.UpdateProduct(ctx, current); err != nil {
			return err
		}

		if input.Sizes != nil || input.Colors != nil {
			desired := matrix(current.Sizes, current.Colors)
			if err := reconcileVariants(ctx, stock, productID, desired, s.defaults, &actorID); err != nil {
				return err
			}
		}
		if err := stock.Settle(ctx); err != nil {
			return err
		}
		if total, ok := stock.Total(productID); ok {
			current.Stock = total
		}
		product = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.EntriesByProduct(ctx, []uuid.UUID{productID})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithProductID(ctx, productID.String()), "product updated")
	dto := NewProductDTO(product, entries[productID])
	dto.Currency = currency.Base
	return dto, nil
}

// DeleteProduct logs the remaining stock of every variant as removed, then
// deletes the variants and the product. History rows are kept.
func (s *service) DeleteProduct(ctx context.Context, actorID, productID uuid.UUID) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stock := s.stockTx(tx)
		if err := stock.Ledger.LockProduct(ctx, productID); err != nil {
			return err
		}
		entries, err := stock.Ledger.Get(ctx, productID)
		if err != nil {
			return err
		}
		for i := range entries {
			e := &entries[i]
			if err := stock.RecordChange(ctx, e, "", e.Quantity, 0, inventory.ReasonProductDeleted, &actorID); err != nil {
				return err
			}
		}
		if _, err := stock.Ledger.DeleteAllForProduct(ctx, productID); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).DeleteProduct(ctx, productID); err != nil {
			return err
		}
		stock.Forget(productID)
		return nil
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithProductID(ctx, productID.String()), "product deleted")
	return nil
}

// ReorderProducts sets display_order for every listed product in one
// transaction. An unknown id rolls the whole batch back.
func (s *service) ReorderProducts(ctx context.Context, actorID uuid.UUID, items []ReorderItem) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "products are required")
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	var problems []string
	for i, it := range items {
		switch {
		case it.ID == uuid.Nil:
			problems = append(problems, fmt.Sprintf("products[%d].id is required", i))
		case it.DisplayOrder < 0:
			problems = append(problems, fmt.Sprintf("products[%d].order must be >= 0", i))
		}
		if _, dup := seen[it.ID]; dup && it.ID != uuid.Nil {
			problems = append(problems, fmt.Sprintf("products[%d].id is listed twice", i))
		}
		seen[it.ID] = struct{}{}
	}
	if len(problems) > 0 {
		return invalidProduct(problems)
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for _, it := range items {
			if err := txRepo.SetDisplayOrder(ctx, it.ID, it.DisplayOrder); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "count", len(items)), "products reordered")
	return nil
}

func validateCreate(input *CreateProductInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)

	var problems []string
	if input.Name == "" {
		problems = append(problems, "Product name is required")
	}
	if input.Description == "" {
		problems = append(problems, "Product description is required")
	}
	if !input.Price.IsPositive() {
		problems = append(problems, "Valid price is required")
	}
	if input.Category == "" {
		problems = append(problems, "Category is required")
	}
	problems = append(problems, checkImages(input.Images)...)
	problems = append(problems, checkColors(input.Colors)...)
	problems = append(problems, checkSizes(input.Sizes)...)
	return invalidProduct(problems)
}

func validateUpdate(input *UpdateProductInput) error {
	var problems []string
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		problems = append(problems, "Product name is required")
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) == "" {
		problems = append(problems, "Product description is required")
	}
	if input.Category != nil && strings.TrimSpace(*input.Category) == "" {
		problems = append(problems, "Category is required")
	}
	if input.Price != nil && !input.Price.IsPositive() {
		problems = append(problems, "Valid price is required")
	}
	if input.DisplayOrder != nil && *input.DisplayOrder < 0 {
		problems = append(problems, "Display order must be >= 0")
	}
	if input.Images != nil {
		problems = append(problems, checkImages(*input.Images)...)
	}
	if input.Colors != nil {
		problems = append(problems, checkColors(*input.Colors)...)
	}
	if input.Sizes != nil {
		problems = append(problems, checkSizes(*input.Sizes)...)
	}
	return invalidProduct(problems)
}

func invalidProduct(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid product data").
		WithDetails(map[string]any{"errors": problems})
}

func checkImages(images []string) []string {
	if len(images) == 0 {
		return []string{"At least one product image is required"}
	}
	for i, img := range images {
		if strings.TrimSpace(img) == "" {
			return []string{fmt.Sprintf("Image #%d is empty", i+1)}
		}
	}
	return nil
}

func checkColors(colors []types.Color) []string {
	if len(colors) == 0 {
		return []string{"At least one color is required"}
	}
	var problems []string
	seen := make(map[string]struct{}, len(colors))
	for i := range colors {
		c := &colors[i]
		c.Name = strings.TrimSpace(c.Name)
		label := c.Name
		if label == "" {
			label = fmt.Sprintf("color #%d", i+1)
			problems = append(problems, fmt.Sprintf("Color name is required for color #%d", i+1))
		}
		if !hexColorRe.MatchString(c.Code) {
			problems = append(problems, fmt.Sprintf("Invalid color code for %s", label))
		}
		if _, dup := seen[c.Name]; dup && c.Name != "" {
			problems = append(problems, fmt.Sprintf("Duplicate color %s", c.Name))
		}
		seen[c.Name] = struct{}{}
	}
	return problems
}

func checkSizes(sizes []types.Size) []string {
	if len(sizes) == 0 {
		return []string{"At least one size is required"}
	}
	var problems []string
	seen := make(map[string]struct{}, len(sizes))
	for i := range sizes {
		sz := &sizes[i]
		sz.Name = strings.TrimSpace(sz.Name)
		label := sz.Name
		if label == "" {
			label = fmt.Sprintf("size #%d", i+1)
			problems = append(problems, fmt.Sprintf("Size name is required for size #%d", i+1))
		}
		if sz.Stock < 0 {
			problems = append(problems, fmt.Sprintf("Invalid stock quantity for %s", label))
		}
		if _, dup := seen[sz.Name]; dup && sz.Name != "" {
			problems = append(problems, fmt.Sprintf("Duplicate size %s", sz.Name))
		}
		seen[sz.Name] = struct{}{}
	}
	return problems
}

func applyUpdate(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Price != nil || input.OriginalPrice != nil {
		price := product.Price
		if input.Price != nil {
			price = *input.Price
		}
		converted, original, err := toBase(price, input.OriginalPrice, input.Currency)
		if err != nil {
			return err
		}
		if input.Price != nil {
			product.Price = converted
		}
		if original != nil {
			product.OriginalPrice = original
		}
	}
	if input.Images != nil {
		product.Images = append(types.StringList{}, *input.Images...)
	}
	if input.Sizes != nil {
		product.Sizes = append(types.SizeList{}, *input.Sizes...)
	}
	if input.Colors != nil {
		product.Colors = append(types.ColorList{}, *input.Colors...)
	}
	if input.IsNew != nil {
		product.IsNew = *input.IsNew
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if input.DisplayOrder != nil {
		product.DisplayOrder = *input.DisplayOrder
	}
	return nil
}

// toBase converts request prices from code into the base currency.
func toBase(price decimal.Decimal, original *decimal.Decimal, code string) (decimal.Decimal, *decimal.Decimal, error) {
	if strings.TrimSpace(code) == "" {
		code = currency.Base
	}
	converted, err := currency.Convert(price, code, currency.Base)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if original == nil {
		return converted, nil, nil
	}
	orig, err := currency.Convert(*original, code, currency.Base)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return converted, &orig, nil
}

func displayCurrency(code string) (string, error) {
	code = currency.Normalize(code)
	if code == "" {
		return currency.Base, nil
	}
	if _, err := currency.Lookup(code); err != nil {
		return "", err
	}
	return code, nil
}

func convertDTO(dto *ProductDTO, code string) error {
	dto.Currency = code
	if code == currency.Base {
		return nil
	}
	price, err := currency.Convert(dto.Price, currency.Base, code)
	if err != nil {
		return err
	}
	dto.Price = price
	if dto.OriginalPrice != nil {
		orig, err := currency.Convert(*dto.OriginalPrice, currency.Base, code)
		if err != nil {
			return err
		}
		dto.OriginalPrice = &orig
	}
	return nil
}
