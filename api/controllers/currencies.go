package controllers

import (
	"net/http"

	"github.com/evacurves/store-backend/api/responses"
	"github.com/evacurves/store-backend/pkg/currency"
)

// ListCurrencies returns the supported currencies and their rates against the base.
func ListCurrencies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"base":       currency.Base,
			"currencies": currency.List(),
		})
	}
}
