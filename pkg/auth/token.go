// Package auth signs and verifies the HS256 bearer tokens the API accepts.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/evacurves/store-backend/pkg/config"
	"github.com/evacurves/store-backend/pkg/enums"
)

const clockSkew = 30 * time.Second

// Identity is the verified caller behind a token.
type Identity struct {
	UserID    uuid.UUID
	Email     string
	Role      enums.Role
	TokenID   string
	ExpiresAt time.Time
}

type claims struct {
	Email string     `json:"email,omitempty"`
	Role  enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Signer mints and verifies tokens for one issuer and secret.
type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewSigner(cfg config.JWTConfig) (*Signer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwt issuer is required")
	}
	if cfg.Expiration() <= 0 {
		return nil, errors.New("jwt expiration must be positive")
	}
	return &Signer{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.Expiration(),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Mint issues a token for id valid from now. An empty TokenID gets a random
// one.
func (s *Signer) Mint(now time.Time, id Identity) (string, error) {
	if id.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if !id.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", id.Role)
	}
	jti := strings.TrimSpace(id.TokenID)
	if jti == "" {
		jti = uuid.NewString()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        jti,
		},
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the caller.
func (s *Signer) Verify(raw string) (*Identity, error) {
	var c claims
	if _, err := s.parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return s.key, nil }); err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(c.Subject)
	if err != nil || userID == uuid.Nil {
		return nil, errors.New("token subject is not a user id")
	}
	if !c.Role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", c.Role)
	}
	return &Identity{
		UserID:    userID,
		Email:     c.Email,
		Role:      c.Role,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
