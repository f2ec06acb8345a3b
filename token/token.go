// Package token issues and verifies the signed session tokens that
// carry identity between requests.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/quizdesk/quizdesk/domain"
	"github.com/quizdesk/quizdesk/internal/metrics"
)

const minSecretLen = 32

// Token kinds. Access tokens are short-lived; refresh tokens are only
// accepted by the refresh flow.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	// ErrTokenExpired is returned when the token's own expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers signature and format mismatches.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the payload embedded in every issued token.
type Claims struct {
	Role     domain.Role `json:"role"`
	Verified bool        `json:"verified"`
	Kind     string      `json:"kind"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token was issued with the admin role
// embedded.
func (c *Claims) IsAdmin() bool { return c.Role == domain.RoleAdmin }

// Expired checks the payload's own expiry. Consumers of cached claims
// must call this even on a cache hit.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(c.ExpiresAt.Time)
}

// Pair bundles the two tokens issued at sign-in.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service signs and verifies session tokens with a single shared
// secret and a fixed algorithm (HS256).
type Service struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration

	// devMode gates DecodeUnverified. It must never be enabled in a
	// production configuration; NewService enforces nothing here beyond
	// what the caller passes, so the config layer is the gatekeeper.
	devMode bool
}

// NewService validates the shared secret once at construction. A
// missing or short secret is a hard failure.
func NewService(secret, issuer string, accessTTL, refreshTTL time.Duration, devMode bool) (*Service, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d characters", minSecretLen)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Service{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		devMode:    devMode,
	}, nil
}

// AccessTTL exposes the access-token lifetime so cache writers can
// bound their entry TTL by it.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// Issue creates an access/refresh pair for the user. Both tokens carry
// the same payload shape with different expiries.
func (s *Service) Issue(user *domain.User) (*Pair, error) {
	now := time.Now()

	access, err := s.sign(user, KindAccess, now, now.Add(s.accessTTL))
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user, KindRefresh, now, now.Add(s.refreshTTL))
	if err != nil {
		return nil, err
	}

	metrics.TokensIssuedTotal.Inc()

	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) sign(user *domain.User, kind string, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Role:     user.Role,
		Verified: user.IsVerified,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify parses and validates a token. Expired tokens yield
// ErrTokenExpired; any other defect yields ErrTokenInvalid.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// DecodeUnverified reads the payload without checking the signature.
// This is a deliberate security boundary: it only works when the
// service was constructed in dev mode and must never activate in a
// production configuration.
func (s *Service) DecodeUnverified(tokenString string) (*Claims, error) {
	if !s.devMode {
		return nil, ErrTokenInvalid
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
