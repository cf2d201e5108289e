package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// scanJSON decodes a json/jsonb column value into dst.
func scanJSON(name string, value any, dst any) error {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("%s: unsupported scan type %T", name, value)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: decode: %w", name, err)
	}
	return nil
}

// valueJSON encodes v as a json string. Strings keep pgx from sending the
// payload as bytea under the simple protocol.
func valueJSON(name string, v any) (driver.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", name, err)
	}
	return string(raw), nil
}
