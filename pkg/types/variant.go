package types

import "database/sql/driver"

// Size is one entry of a product's size matrix with its per-color stock.
type Size struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// Color is one entry of a product's color matrix.
type Color struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type SizeList []Size

func (l SizeList) Value() (driver.Value, error) {
	if l == nil {
		l = SizeList{}
	}
	return valueJSON("sizes", []Size(l))
}

func (l *SizeList) Scan(value any) error {
	*l = SizeList{}
	if value == nil {
		return nil
	}
	return scanJSON("sizes", value, (*[]Size)(l))
}

type ColorList []Color

func (l ColorList) Value() (driver.Value, error) {
	if l == nil {
		l = ColorList{}
	}
	return valueJSON("colors", []Color(l))
}

func (l *ColorList) Scan(value any) error {
	*l = ColorList{}
	if value == nil {
		return nil
	}
	return scanJSON("colors", value, (*[]Color)(l))
}

// StringList stores a list of strings as a json array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return valueJSON("string list", []string(l))
}

func (l *StringList) Scan(value any) error {
	*l = StringList{}
	if value == nil {
		return nil
	}
	return scanJSON("string list", value, (*[]string)(l))
}
