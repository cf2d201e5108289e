package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evacurves/store-backend/api/responses"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	// CriticalIdempotencyTTL covers money and stock moving requests.
	CriticalIdempotencyTTL = 7 * 24 * time.Hour

	defaultIdempotencyTTL = 24 * time.Hour
	inFlightTTL           = 2 * time.Minute
)

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// storedResponse is what a key resolves to. A record without a status is a
// claim by a request that has not finished yet.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (s storedResponse) pending() bool { return s.Status == 0 }

// Idempotency claims an Idempotency-Key before the handler runs and replays
// the finished response to later requests with the same key and body.
type Idempotency struct {
	store idempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewIdempotency builds the guard. A nil store disables it.
func NewIdempotency(store idempotencyStore, ttl time.Duration, logg *logger.Logger) *Idempotency {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &Idempotency{store: store, ttl: ttl, logg: logg}
}

// Require guards a route. ttl <= 0 uses the configured lifetime.
func (i *Idempotency) Require(ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = i.ttl
	}
	return func(next http.Handler) http.Handler {
		if i.store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if id == "" {
				responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
				return
			}
			body, err := bufferBody(w, r)
			if err != nil {
				responses.WriteError(ctx, i.logg, w, err)
				return
			}

			key := i.store.IdempotencyKey(actorScope(ctx)+"|"+r.Method+"|"+r.URL.Path, id)
			fp := fingerprint(body)

			if prior, ok, err := i.lookup(ctx, key); err != nil {
				responses.WriteError(ctx, i.logg, w, err)
				return
			} else if ok {
				i.replay(ctx, w, prior, fp)
				return
			}

			claim, _ := json.Marshal(storedResponse{Fingerprint: fp})
			won, err := i.store.SetNX(ctx, key, string(claim), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, i.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !won {
				responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is in progress"))
				return
			}

			// A panicking handler leaves no response to store; free the key
			// and let the panic reach Recoverer.
			settled := false
			defer func() {
				if !settled {
					i.release(ctx, key)
				}
			}()

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			settled = true
			i.settle(ctx, key, fp, capture, ttl)
		})
	}
}

func (i *Idempotency) lookup(ctx context.Context, key string) (storedResponse, bool, error) {
	var rec storedResponse
	raw, err := i.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency key")
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record")
	}
	return rec, true, nil
}

func (i *Idempotency) replay(ctx context.Context, w http.ResponseWriter, rec storedResponse, fp string) {
	switch {
	case rec.Fingerprint != fp:
		responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
	case rec.pending():
		responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is in progress"))
	default:
		if rec.ContentType != "" {
			w.Header().Set("Content-Type", rec.ContentType)
		}
		w.Header().Set(ReplayedHeader, "true")
		w.WriteHeader(rec.Status)
		_, _ = w.Write(rec.Body)
	}
}

func (i *Idempotency) release(ctx context.Context, key string) {
	ctx = context.WithoutCancel(ctx)
	if err := i.store.Del(ctx, key); err != nil && i.logg != nil {
		i.logg.Error(ctx, "release idempotency key", err)
	}
}

// settle stores the finished response. Server errors release the key so the
// client can retry.
func (i *Idempotency) settle(ctx context.Context, key, fp string, c *responseCapture, ttl time.Duration) {
	ctx = context.WithoutCancel(ctx)
	status := c.statusCode()
	if status >= http.StatusInternalServerError {
		i.release(ctx, key)
		return
	}
	rec, err := json.Marshal(storedResponse{
		Fingerprint: fp,
		Status:      status,
		ContentType: c.Header().Get("Content-Type"),
		Body:        c.body.Bytes(),
	})
	if err == nil {
		err = i.store.Set(ctx, key, string(rec), ttl)
	}
	if err != nil && i.logg != nil {
		i.logg.Error(ctx, "store idempotent response", err)
	}
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
