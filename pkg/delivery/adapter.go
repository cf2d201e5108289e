// Package delivery formats orders for delivery partners and parses their replies.
package delivery

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/types"
)

const (
	defaultStatus = "pending"

	// Fallback drop-off coordinates used when the address carries none.
	defaultLatitude  = "31.889883437603157"
	defaultLongitude = "35.01046782913909"
)

var nonDigitRe = regexp.MustCompile(`\D`)

// Shipment is the order data a partner needs for a pickup request.
type Shipment struct {
	OrderNumber string
	Customer    types.CustomerInfo
	Address     types.ShippingAddress
	TotalAmount decimal.Decimal
}

// Result is the normalized partner reply.
type Result struct {
	Success        bool   `json:"success"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
}

// Adapter converts between a shipment and one partner's wire format.
type Adapter interface {
	Code() enums.DeliveryCompanyCode
	Format(shipment Shipment, creds types.Credentials) (any, error)
	Parse(body []byte) (*Result, error)
}

// AdapterFor returns the adapter registered for code.
func AdapterFor(code enums.DeliveryCompanyCode) (Adapter, error) {
	switch code {
	case enums.DeliveryCompanyCodeThreeMinds:
		return threeMindsAdapter{}, nil
	case enums.DeliveryCompanyCodeAramex:
		return aramexAdapter{}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported delivery company: %s", code))
	}
}

type threeMindsAdapter struct{}

type threeMindsOrder struct {
	CustomerAddress string          `json:"customer_address"`
	CustomerMobile  string          `json:"customer_mobile"`
	CustomerName    string          `json:"customer_name"`
	CustomerArea    string          `json:"customer_area"`
	Cost            decimal.Decimal `json:"cost"`
	OrderTypeID     string          `json:"order_type_id"`
	Latitude        string          `json:"latitude"`
	Longitude       string          `json:"longitude"`
}

type threeMindsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Params  struct {
		Login      string            `json:"login"`
		Password   string            `json:"password"`
		DB         string            `json:"db"`
		OrdersList []threeMindsOrder `json:"orders_list"`
	} `json:"params"`
}

func (threeMindsAdapter) Code() enums.DeliveryCompanyCode {
	return enums.DeliveryCompanyCodeThreeMinds
}

func (threeMindsAdapter) Format(s Shipment, creds types.Credentials) (any, error) {
	for _, key := range []string{"login", "password", "database"} {
		if creds[key] == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery company credentials incomplete").
				WithDetails(map[string]any{"missing": key})
		}
	}
	lat, lng := s.Address.Latitude, s.Address.Longitude
	if lat == "" {
		lat = defaultLatitude
	}
	if lng == "" {
		lng = defaultLongitude
	}

	req := threeMindsRequest{JSONRPC: "2.0"}
	req.Params.Login = creds["login"]
	req.Params.Password = creds["password"]
	req.Params.DB = creds["database"]
	req.Params.OrdersList = []threeMindsOrder{{
		CustomerAddress: s.Address.Street,
		CustomerMobile:  nonDigitRe.ReplaceAllString(s.Customer.Mobile, ""),
		CustomerName:    s.Customer.FullName(),
		CustomerArea:    s.Address.City,
		Cost:            s.TotalAmount,
		OrderTypeID:     "1",
		Latitude:        lat,
		Longitude:       lng,
	}}
	return req, nil
}

func (threeMindsAdapter) Parse(body []byte) (*Result, error) {
	var resp struct {
		Result *struct {
			TrackingNumber string `json:"tracking_number"`
			Status         string `json:"status"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode delivery response")
	}
	out := &Result{Success: resp.Error == nil, Status: defaultStatus}
	if resp.Result != nil {
		out.TrackingNumber = resp.Result.TrackingNumber
		if resp.Result.Status != "" {
			out.Status = resp.Result.Status
		}
	}
	if resp.Error != nil {
		out.Message = resp.Error.Message
	}
	return out, nil
}

type aramexAdapter struct{}

type aramexAddress struct {
	Line1   string `json:"line1"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type aramexRecipient struct {
	Name    string        `json:"name"`
	Phone   string        `json:"phone"`
	Email   string        `json:"email"`
	Address aramexAddress `json:"address"`
}

type aramexShipment struct {
	Reference string          `json:"reference"`
	Recipient aramexRecipient `json:"recipient"`
	Weight    int             `json:"weight"`
	CODAmount decimal.Decimal `json:"cod_amount"`
}

type aramexRequest struct {
	Shipments []aramexShipment `json:"shipments"`
}

func (aramexAdapter) Code() enums.DeliveryCompanyCode {
	return enums.DeliveryCompanyCodeAramex
}

func (aramexAdapter) Format(s Shipment, _ types.Credentials) (any, error) {
	return aramexRequest{Shipments: []aramexShipment{{
		Reference: s.OrderNumber,
		Recipient: aramexRecipient{
			Name:  s.Customer.FullName(),
			Phone: s.Customer.Mobile,
			Email: s.Customer.Email,
			Address: aramexAddress{
				Line1:   s.Address.Street,
				City:    s.Address.City,
				Country: s.Address.Country,
			},
		},
		Weight:    1,
		CODAmount: s.TotalAmount,
	}}}, nil
}

func (aramexAdapter) Parse(body []byte) (*Result, error) {
	var resp struct {
		Success bool `json:"success"`
		Data    *struct {
			TrackingNumber string `json:"tracking_number"`
			Status         string `json:"status"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode delivery response")
	}
	out := &Result{Success: resp.Success, Status: defaultStatus, Message: resp.Error}
	if resp.Data != nil {
		out.TrackingNumber = resp.Data.TrackingNumber
		if resp.Data.Status != "" {
			out.Status = resp.Data.Status
		}
	}
	return out, nil
}
