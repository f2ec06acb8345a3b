// Package middleware implements the per-request authentication chain
// and the admin gate layered on top of it.
package middleware

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quizdesk/quizdesk/cache"
	"github.com/quizdesk/quizdesk/domain"
	apperrors "github.com/quizdesk/quizdesk/errors"
	"github.com/quizdesk/quizdesk/log"
	"github.com/quizdesk/quizdesk/token"
)

// AccessTokenCookie is the fallback cookie consulted when no
// Authorization header is present.
const AccessTokenCookie = "access_token"

const tokenCachePrefix = "token:"

// TokenVerifier is the slice of the token service the chain needs.
// Verification is behind an interface so tests can count calls.
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
	AccessTTL() time.Duration
}

// AuthConfig wires the auth chain's collaborators.
type AuthConfig struct {
	Tokens TokenVerifier
	Cache  cache.Cache
	Users  domain.UserRepository
	Logger log.Logger
}

// Authenticate builds the per-request pipeline: extract token, check
// the cache, verify the signature on a miss, reload the user, attach
// the identity. Only signature verification is cached; the user record
// is re-read on every request so role and active-flag changes take
// effect without waiting for token expiry.
func Authenticate(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			raw := extractToken(c)
			if raw == "" {
				return apperrors.NewAuthentication("no token")
			}

			claims, err := cfg.lookupClaims(c, raw)
			if err != nil {
				return err
			}

			// Cached entries are never trusted past the payload's own
			// expiry, even when the cache TTL has not elapsed.
			if claims.Expired(time.Now()) {
				_ = cfg.Cache.Delete(ctx, tokenCachePrefix+raw)
				return apperrors.NewAuthentication("token expired")
			}

			user, err := cfg.Users.FindActiveUserByID(ctx, claims.Subject)
			if err != nil {
				cfg.Logger.Error(ctx, "credential store lookup failed", err, map[string]interface{}{
					"user_id": claims.Subject,
				})
				return apperrors.NewAuthentication("user not found or inactive")
			}
			if user == nil {
				return apperrors.NewAuthentication("user not found or inactive")
			}

			SetIdentity(c, domain.Identity{
				ID:         user.ID,
				IsAdmin:    user.IsAdmin(),
				IsVerified: user.IsVerified,
			})

			return next(c)
		}
	}
}

// lookupClaims resolves the token payload from the cache or, on a
// miss, from signature verification. Cache failures count as misses;
// they are never surfaced.
func (cfg AuthConfig) lookupClaims(c echo.Context, raw string) (*token.Claims, error) {
	ctx := c.Request().Context()
	key := tokenCachePrefix + raw

	if cached, ok, err := cfg.Cache.Get(ctx, key); err == nil && ok {
		claims := &token.Claims{}
		if jsonErr := json.Unmarshal([]byte(cached), claims); jsonErr == nil {
			return claims, nil
		}
		// Unreadable entry: drop it and fall through to verification.
		_ = cfg.Cache.Delete(ctx, key)
	}

	claims, err := cfg.Tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return nil, apperrors.NewAuthentication("token expired")
		}
		return nil, apperrors.NewAuthentication("invalid token")
	}

	if payload, jsonErr := json.Marshal(claims); jsonErr == nil {
		ttl := cfg.Tokens.AccessTTL()
		if claims.ExpiresAt != nil {
			if remaining := time.Until(claims.ExpiresAt.Time); remaining < ttl {
				ttl = remaining
			}
		}
		if ttl > 0 {
			_ = cfg.Cache.Set(ctx, key, string(payload), ttl)
		}
	}

	return claims, nil
}

// extractToken prefers the Authorization header and falls back to the
// access-token cookie.
func extractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
