// Package currency converts prices between the store's supported currencies
// using a static rate table keyed against USD.
package currency

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

// Base is the reference currency all catalog prices are stored in.
const Base = "USD"

// Currency describes one supported currency.
type Currency struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Symbol   string          `json:"symbol"`
	Decimals int32           `json:"decimals"`
	Rate     decimal.Decimal `json:"rate"`
}

var supported = map[string]Currency{
	"USD": {Code: "USD", Name: "US Dollar", Symbol: "$", Decimals: 2, Rate: decimal.NewFromInt(1)},
	"EUR": {Code: "EUR", Name: "Euro", Symbol: "€", Decimals: 2, Rate: decimal.RequireFromString("0.92")},
	"GBP": {Code: "GBP", Name: "British Pound", Symbol: "£", Decimals: 2, Rate: decimal.RequireFromString("0.79")},
	"AED": {Code: "AED", Name: "UAE Dirham", Symbol: "د.إ", Decimals: 2, Rate: decimal.RequireFromString("3.6725")},
	"SAR": {Code: "SAR", Name: "Saudi Riyal", Symbol: "﷼", Decimals: 2, Rate: decimal.RequireFromString("3.75")},
	"QAR": {Code: "QAR", Name: "Qatari Riyal", Symbol: "ر.ق", Decimals: 2, Rate: decimal.RequireFromString("3.64")},
	"KWD": {Code: "KWD", Name: "Kuwaiti Dinar", Symbol: "د.ك", Decimals: 3, Rate: decimal.RequireFromString("0.307")},
	"BHD": {Code: "BHD", Name: "Bahraini Dinar", Symbol: "د.ب", Decimals: 3, Rate: decimal.RequireFromString("0.376")},
	"OMR": {Code: "OMR", Name: "Omani Rial", Symbol: "ر.ع.", Decimals: 3, Rate: decimal.RequireFromString("0.385")},
	"JOD": {Code: "JOD", Name: "Jordanian Dinar", Symbol: "د.ا", Decimals: 3, Rate: decimal.RequireFromString("0.709")},
	"LBP": {Code: "LBP", Name: "Lebanese Pound", Symbol: "ل.ل", Decimals: 0, Rate: decimal.NewFromInt(89500)},
	"EGP": {Code: "EGP", Name: "Egyptian Pound", Symbol: "E£", Decimals: 2, Rate: decimal.RequireFromString("48.50")},
	"IQD": {Code: "IQD", Name: "Iraqi Dinar", Symbol: "ع.د", Decimals: 0, Rate: decimal.NewFromInt(1310)},
	"ILS": {Code: "ILS", Name: "Israeli New Shekel", Symbol: "₪", Decimals: 2, Rate: decimal.RequireFromString("3.70")},
}

// Normalize upper-cases and trims a currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsSupported reports whether code is a known currency.
func IsSupported(code string) bool {
	_, ok := supported[Normalize(code)]
	return ok
}

// Lookup returns the currency for code.
func Lookup(code string) (Currency, error) {
	c, ok := supported[Normalize(code)]
	if !ok {
		return Currency{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency").
			WithDetails(map[string]any{"currency": code})
	}
	return c, nil
}

// List returns every supported currency ordered by code.
func List() []Currency {
	out := make([]Currency, 0, len(supported))
	for _, c := range supported {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Rate returns the multiplier that converts one unit of from into to.
func Rate(from, to string) (decimal.Decimal, error) {
	src, err := Lookup(from)
	if err != nil {
		return decimal.Zero, err
	}
	dst, err := Lookup(to)
	if err != nil {
		return decimal.Zero, err
	}
	if src.Code == dst.Code {
		return decimal.NewFromInt(1), nil
	}
	return dst.Rate.DivRound(src.Rate, 8), nil
}

// Convert converts amount from one currency to another, rounded to the
// target currency's minor units.
func Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := Rate(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	dst := supported[Normalize(to)]
	return amount.Mul(rate).Round(dst.Decimals), nil
}

// Apply converts a base-currency amount with a previously captured rate.
func Apply(amount, rate decimal.Decimal, to string) decimal.Decimal {
	places := int32(2)
	if c, ok := supported[Normalize(to)]; ok {
		places = c.Decimals
	}
	return amount.Mul(rate).Round(places)
}
