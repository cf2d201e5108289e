package enums

// DeliveryCompanyCode selects the partner adapter.
type DeliveryCompanyCode string

const (
	DeliveryCompanyCodeThreeMinds DeliveryCompanyCode = "THREE_MINDS"
	DeliveryCompanyCodeAramex     DeliveryCompanyCode = "ARAMEX"
)

var deliveryCompanyCodes = upper("delivery company code", DeliveryCompanyCodeThreeMinds, DeliveryCompanyCodeAramex)

func (d DeliveryCompanyCode) String() string { return string(d) }
func (d DeliveryCompanyCode) IsValid() bool  { return deliveryCompanyCodes.has(d) }

func ParseDeliveryCompanyCode(raw string) (DeliveryCompanyCode, error) {
	return deliveryCompanyCodes.parse(raw)
}

// PriceCalculation selects how a delivery fee is computed.
type PriceCalculation string

const (
	PriceCalculationFixed    PriceCalculation = "fixed"
	PriceCalculationWeight   PriceCalculation = "weight"
	PriceCalculationDistance PriceCalculation = "distance"
)

var priceCalculations = lower("price calculation", PriceCalculationFixed, PriceCalculationWeight, PriceCalculationDistance)

func (p PriceCalculation) String() string { return string(p) }
func (p PriceCalculation) IsValid() bool  { return priceCalculations.has(p) }

func ParsePriceCalculation(raw string) (PriceCalculation, error) { return priceCalculations.parse(raw) }
