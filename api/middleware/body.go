package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/evacurves/store-backend/api/validators"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

// bufferBody reads the request body, capped like the JSON decoder caps it,
// and rewinds r.Body so the handler can read it again.
func bufferBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return []byte{}, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body too large")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
