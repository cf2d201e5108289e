package controllers

import (
	"net/http"

	"github.com/evacurves/store-backend/api/responses"
	"github.com/evacurves/store-backend/api/validators"
	"github.com/evacurves/store-backend/internal/delivery"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
	"github.com/evacurves/store-backend/pkg/types"
)

type companyRequest struct {
	Name        string                 `json:"name" validate:"required,max=200"`
	Code        string                 `json:"code" validate:"required"`
	APIURL      string                 `json:"api_url" validate:"required"`
	Credentials map[string]string      `json:"credentials,omitempty"`
	IsActive    *bool                  `json:"is_active,omitempty"`
	Settings    types.DeliverySettings `json:"settings"`
}

type companyUpdateRequest struct {
	Name        *string                 `json:"name,omitempty" validate:"omitempty,max=200"`
	APIURL      *string                 `json:"api_url,omitempty"`
	Credentials map[string]string       `json:"credentials,omitempty"`
	IsActive    *bool                   `json:"is_active,omitempty"`
	Settings    *types.DeliverySettings `json:"settings,omitempty"`
}

func ListDeliveryCompanies(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		companies, err := svc.ListCompanies(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, companies)
	}
}

// CreateDeliveryCompany registers a partner. Companies are active unless
// is_active is sent as false.
func CreateDeliveryCompany(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		var payload companyRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active := true
		if payload.IsActive != nil {
			active = *payload.IsActive
		}
		company, err := svc.CreateCompany(r.Context(), delivery.CompanyInput{
			Name:        payload.Name,
			Code:        payload.Code,
			APIURL:      payload.APIURL,
			Credentials: payload.Credentials,
			IsActive:    active,
			Settings:    payload.Settings,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, company)
	}
}

func UpdateDeliveryCompany(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		id, err := uuidParam(r, "id", "delivery company id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload companyUpdateRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		company, err := svc.UpdateCompany(r.Context(), id, delivery.CompanyUpdate{
			Name:        payload.Name,
			APIURL:      payload.APIURL,
			Credentials: payload.Credentials,
			IsActive:    payload.IsActive,
			Settings:    payload.Settings,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, company)
	}
}

func DeleteDeliveryCompany(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		id, err := uuidParam(r, "id", "delivery company id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCompany(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

type sendToDeliveryRequest struct {
	CompanyID string `json:"company_id" validate:"required,uuid"`
}

func SendOrderToDelivery(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		orderID, err := uuidParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload sendToDeliveryRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		companyID, err := parseUUID(payload.CompanyID, "delivery company id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispatch, err := svc.SendToDelivery(r.Context(), orderID, companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispatch)
	}
}

func OrderDeliveryFee(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		orderID, err := uuidParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		companyID, err := parseUUID(r.URL.Query().Get("company_id"), "delivery company id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.DeliveryFee(r.Context(), orderID, companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// OrderDeliveryStatus reports the partner, tracking number and last known
// delivery status stored for an order.
func OrderDeliveryStatus(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		orderID, err := uuidParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.DeliveryStatus(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
