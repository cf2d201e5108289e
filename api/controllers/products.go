package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evacurves/store-backend/api/responses"
	"github.com/evacurves/store-backend/api/validators"
	product "github.com/evacurves/store-backend/internal/products"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
	"github.com/evacurves/store-backend/pkg/types"
)

type createProductRequest struct {
	Name          string           `json:"name" validate:"max=200"`
	Description   string           `json:"description" validate:"max=5000"`
	Category      string           `json:"category" validate:"max=100"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	Images        []string         `json:"images"`
	Sizes         []types.Size     `json:"sizes"`
	Colors        []types.Color    `json:"colors"`
	IsNew         bool             `json:"is_new"`
	IsFeatured    bool             `json:"is_featured"`
}

type updateProductRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	Images        *[]string        `json:"images,omitempty"`
	Sizes         *[]types.Size    `json:"sizes,omitempty"`
	Colors        *[]types.Color   `json:"colors,omitempty"`
	IsNew         *bool            `json:"is_new,omitempty"`
	IsFeatured    *bool            `json:"is_featured,omitempty"`
	DisplayOrder  *int             `json:"display_order,omitempty" validate:"omitempty,min=0"`
}

type reorderProductsRequest struct {
	Products []struct {
		ID    uuid.UUID `json:"id" validate:"required"`
		Order int       `json:"order" validate:"min=0"`
	} `json:"products" validate:"required,min=1,dive"`
}

// ListProducts returns the catalog, featured products first.
func ListProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		list, err := svc.ListProducts(r.Context(), product.ListProductsInput{
			Currency: strings.TrimSpace(r.URL.Query().Get("currency")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := uuidParam(r, "id", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.GetProduct(r.Context(), productID, strings.TrimSpace(r.URL.Query().Get("currency")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func CreateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createProductRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.CreateProduct(r.Context(), uid, product.CreateProductInput{
			Name:          validators.SanitizeString(payload.Name, 200),
			Description:   strings.TrimSpace(payload.Description),
			Category:      validators.SanitizeString(payload.Category, 100),
			Price:         payload.Price,
			OriginalPrice: payload.OriginalPrice,
			Currency:      payload.Currency,
			Images:        payload.Images,
			Sizes:         payload.Sizes,
			Colors:        payload.Colors,
			IsNew:         payload.IsNew,
			IsFeatured:    payload.IsFeatured,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func UpdateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "id", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.UpdateProduct(r.Context(), uid, productID, product.UpdateProductInput{
			Name:          payload.Name,
			Description:   payload.Description,
			Category:      payload.Category,
			Price:         payload.Price,
			OriginalPrice: payload.OriginalPrice,
			Currency:      payload.Currency,
			Images:        payload.Images,
			Sizes:         payload.Sizes,
			Colors:        payload.Colors,
			IsNew:         payload.IsNew,
			IsFeatured:    payload.IsFeatured,
			DisplayOrder:  payload.DisplayOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func DeleteProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "id", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), uid, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": productID, "deleted": true})
	}
}

// ReorderProducts applies a batch of display_order changes.
func ReorderProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reorderProductsRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]product.ReorderItem, 0, len(payload.Products))
		for _, p := range payload.Products {
			items = append(items, product.ReorderItem{ID: p.ID, DisplayOrder: p.Order})
		}
		if err := svc.ReorderProducts(r.Context(), uid, items); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"updated": len(items)})
	}
}
