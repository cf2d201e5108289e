// Package enums holds the closed string sets stored in the database and
// exchanged over the API.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// set is the allowed values of one enum type. Input is trimmed and case
// folded with fold before matching.
type set[T ~string] struct {
	kind   string
	fold   func(string) string
	values []T
}

func lower[T ~string](kind string, values ...T) set[T] {
	return set[T]{kind: kind, fold: strings.ToLower, values: values}
}

func upper[T ~string](kind string, values ...T) set[T] {
	return set[T]{kind: kind, fold: strings.ToUpper, values: values}
}

func (s set[T]) has(v T) bool { return slices.Contains(s.values, v) }

func (s set[T]) parse(raw string) (T, error) {
	v := T(s.fold(strings.TrimSpace(raw)))
	if s.has(v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", s.kind, raw)
}

func (s set[T]) all() []T { return slices.Clone(s.values) }
