package types

import "database/sql/driver"

// ShippingAddress is the destination snapshot stored on an order.
type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code,omitempty"`
	Latitude   string `json:"latitude,omitempty"`
	Longitude  string `json:"longitude,omitempty"`
}

func (a ShippingAddress) Value() (driver.Value, error) {
	return valueJSON("shipping address", a)
}

func (a *ShippingAddress) Scan(value any) error {
	*a = ShippingAddress{}
	if value == nil {
		return nil
	}
	return scanJSON("shipping address", value, a)
}

// CustomerInfo is the buyer contact snapshot stored on an order.
type CustomerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
}

// FullName joins first and last name.
func (c CustomerInfo) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

func (c CustomerInfo) Value() (driver.Value, error) {
	return valueJSON("customer info", c)
}

func (c *CustomerInfo) Scan(value any) error {
	*c = CustomerInfo{}
	if value == nil {
		return nil
	}
	return scanJSON("customer info", value, c)
}
