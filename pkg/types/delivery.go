package types

import (
	"database/sql/driver"

	"github.com/shopspring/decimal"
)

// DeliverySettings configures how a delivery company is priced.
type DeliverySettings struct {
	SupportedRegions []string        `json:"supported_regions"`
	PriceCalculation string          `json:"price_calculation"`
	BasePrice        decimal.Decimal `json:"base_price"`
}

func (s DeliverySettings) Value() (driver.Value, error) {
	return valueJSON("delivery settings", s)
}

func (s *DeliverySettings) Scan(value any) error {
	*s = DeliverySettings{}
	if value == nil {
		return nil
	}
	return scanJSON("delivery settings", value, s)
}

// Credentials holds partner API secrets. Never serialize to clients.
type Credentials map[string]string

func (c Credentials) Value() (driver.Value, error) {
	if c == nil {
		c = Credentials{}
	}
	return valueJSON("credentials", map[string]string(c))
}

func (c *Credentials) Scan(value any) error {
	*c = Credentials{}
	if value == nil {
		return nil
	}
	return scanJSON("credentials", value, (*map[string]string)(c))
}
