package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
)

func decodeFailure(t *testing.T, w *httptest.ResponseRecorder) Problem {
	t.Helper()
	var body Failure
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())
}

func TestWriteErrorInsufficientStockKeepsMessageAndDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient stock for Dress").
		WithDetails(map[string]any{"product_id": "p1", "available": 0})
	WriteError(WithRequestID(context.Background(), "req-42"), nil, w, err)

	require.Equal(t, http.StatusConflict, w.Code)
	p := decodeFailure(t, w)
	assert.Equal(t, string(pkgerrors.CodeInsufficient), p.Code)
	assert.Equal(t, "insufficient stock for Dress", p.Message)
	assert.Equal(t, "req-42", p.RequestID)
	assert.NotNil(t, p.Details)
}

func TestWriteErrorHidesUncodedErrors(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})
	w := httptest.NewRecorder()
	WriteError(context.Background(), logg, w, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	p := decodeFailure(t, w)
	assert.Equal(t, string(pkgerrors.CodeInternal), p.Code)
	assert.Equal(t, "internal server error", p.Message)
	assert.Nil(t, p.Details)
	assert.Empty(t, p.RequestID)
	assert.Contains(t, logs.String(), "request failed")
}

func TestWriteErrorStorageIsRetryable503(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.Wrap(pkgerrors.CodeStorage, errors.New("conn reset"), "db: insert order"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "storage unavailable", decodeFailure(t, w).Message)
}

func TestWriteErrorRateLimitedSetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	w = httptest.NewRecorder()
	w.Header().Set("Retry-After", "12")
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "slow down"))
	assert.Equal(t, "12", w.Header().Get("Retry-After"))
}
