package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter bounded to
// [lo, hi]. Absent means def.
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be an integer", key).
			WithDetails([]FieldProblem{{Field: key, Message: "must be an integer"}})
	}
	if n < lo || n > hi {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", key, lo, hi).
			WithDetails([]FieldProblem{{Field: key, Message: "out of range"}})
	}
	return n, nil
}
