package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evacurves/store-backend/api/responses"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
)

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

// Limit caps the requests sharing one identity inside the limiter's window.
// An empty identity is not counted.
type Limit struct {
	Scope    string
	Max      int
	identify func(r *http.Request, body []byte) string
	needBody bool
}

// ByIP counts requests per client address. Put chi's RealIP ahead of the
// limiter when the service sits behind a proxy.
func ByIP(max int) Limit {
	return Limit{Scope: "ip", Max: max, identify: func(r *http.Request, _ []byte) string {
		return remoteHost(r)
	}}
}

// ByCustomerEmail counts requests per hashed customer_info.email of a JSON
// order payload.
func ByCustomerEmail(max int) Limit {
	return Limit{Scope: "email", Max: max, needBody: true, identify: func(_ *http.Request, body []byte) string {
		var payload struct {
			CustomerInfo struct {
				Email string `json:"email"`
			} `json:"customer_info"`
		}
		if json.Unmarshal(body, &payload) != nil {
			return ""
		}
		email := strings.ToLower(strings.TrimSpace(payload.CustomerInfo.Email))
		if email == "" {
			return ""
		}
		sum := sha256.Sum256([]byte(email))
		return hex.EncodeToString(sum[:])
	}}
}

// RateLimiter applies fixed-window counters kept in redis.
type RateLimiter struct {
	name   string
	window time.Duration
	limits []Limit
	store  counterStore
	logg   *logger.Logger
}

// NewRateLimiter drops limits with a non-positive Max. A nil store or an empty
// window disables the limiter entirely.
func NewRateLimiter(name string, window time.Duration, store counterStore, logg *logger.Logger, limits ...Limit) *RateLimiter {
	active := make([]Limit, 0, len(limits))
	for _, l := range limits {
		if l.Max > 0 && l.identify != nil {
			active = append(active, l)
		}
	}
	return &RateLimiter{
		name:   strings.ToLower(strings.TrimSpace(name)),
		window: window,
		limits: active,
		store:  store,
		logg:   logg,
	}
}

func (rl *RateLimiter) disabled() bool {
	return rl == nil || rl.store == nil || rl.window <= 0 || len(rl.limits) == 0
}

// Handler is the middleware. Counter failures let the request through.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl.disabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body []byte
		for _, limit := range rl.limits {
			if limit.needBody && body == nil {
				var err error
				if body, err = bufferBody(w, r); err != nil {
					responses.WriteError(ctx, rl.logg, w, err)
					return
				}
			}
			id := limit.identify(r, body)
			if id == "" {
				continue
			}
			count, err := rl.store.IncrWithTTL(ctx, rl.store.RateLimitKey(rl.name, limit.Scope, id), rl.window)
			if err != nil {
				if rl.logg != nil {
					rl.logg.Error(rl.logg.WithField(ctx, "policy", rl.name), "rate limit counter unavailable", err)
				}
				break
			}
			if count > int64(limit.Max) {
				rl.reject(ctx, w, limit, count)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) reject(ctx context.Context, w http.ResponseWriter, limit Limit, count int64) {
	retryAfter := int(rl.window.Round(time.Second).Seconds())
	if rl.logg != nil {
		rl.logg.Warn(rl.logg.WithFields(ctx, map[string]any{
			"policy":         rl.name,
			"scope":          limit.Scope,
			"attempts":       count,
			"limit":          limit.Max,
			"window_seconds": retryAfter,
		}), "request throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(max(retryAfter, 1)))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, slow down"))
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
