package delivery

import (
	"github.com/shopspring/decimal"

	"github.com/evacurves/store-backend/pkg/enums"
	"github.com/evacurves/store-backend/pkg/types"
)

// Fee computes the delivery charge for an order. Weight pricing multiplies the
// base price by the total item weight; distance pricing has no mapping
// integration and charges the base price.
func Fee(settings types.DeliverySettings, totalWeight decimal.Decimal) decimal.Decimal {
	switch enums.PriceCalculation(settings.PriceCalculation) {
	case enums.PriceCalculationWeight:
		return settings.BasePrice.Mul(totalWeight)
	case enums.PriceCalculationFixed, enums.PriceCalculationDistance:
		return settings.BasePrice
	default:
		return settings.BasePrice
	}
}
