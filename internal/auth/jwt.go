// Package auth issues and verifies operator bearer tokens for the admin API.
//
// Tokens are HS256 JWTs carrying the operator's name as subject and a role
// claim. Only the operator role may call admin endpoints.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long issued operator tokens stay valid.
const DefaultTokenTTL = 12 * time.Hour

// RoleOperator may change supervisor state.
const RoleOperator = "operator"

// Predefined token errors.
var (
	ErrInvalidToken     = errors.New("invalid operator token")
	ErrTokenExpired     = errors.New("operator token has expired")
	ErrMissingSecret    = errors.New("token signing secret is empty")
	ErrInsufficientRole = errors.New("operator role required")
)

// Claims are the claims of an operator token.
type Claims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

// Config holds configuration for a TokenService.
type Config struct {
	// Secret signs and verifies tokens.
	Secret string

	// Issuer is the iss claim, e.g. "hearth".
	Issuer string

	// Audience is the aud claim, e.g. "hearth-operators".
	Audience string

	// TTL is the lifetime of issued tokens.
	// Default: 12 hours
	TTL time.Duration

	// Now overrides the clock. Optional.
	Now func() time.Time
}

// TokenService creates and validates operator tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(cfg Config) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      cfg.Now,
	}, nil
}

// Issue signs a token for subject with the given role.
func (s *TokenService) Issue(subject, role string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        tokenID(),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing operator token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates a token and returns its claims.
func (s *TokenService) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyOperator validates a token and requires the operator role. It
// returns the operator name.
func (s *TokenService) VerifyOperator(token string) (string, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return "", err
	}
	if claims.Role != RoleOperator {
		return "", ErrInsufficientRole
	}
	return claims.Subject, nil
}

func tokenID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
