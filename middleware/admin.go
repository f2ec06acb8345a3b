package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quizdesk/quizdesk/cache"
	"github.com/quizdesk/quizdesk/domain"
	apperrors "github.com/quizdesk/quizdesk/errors"
	"github.com/quizdesk/quizdesk/internal/audit"
	"github.com/quizdesk/quizdesk/log"
)

const (
	adminCachePrefix = "admin:"
	// adminCacheTTL bounds how stale a cached admin flag may be. Role
	// changes are eventually consistent within this window.
	adminCacheTTL = 5 * time.Minute
)

// AdminConfig wires the admin gate's collaborators.
type AdminConfig struct {
	Cache  cache.Cache
	Users  domain.UserRepository
	Audit  *audit.Recorder
	Logger log.Logger
}

// RequireAdmin layers privileged-route authorization on top of the
// auth chain. An identity that already carries the admin flag passes
// immediately; otherwise the cached admin status is consulted before
// falling back to the credential store. Every denial emits exactly one
// audit record.
func RequireAdmin(cfg AdminConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			ident, ok := IdentityFrom(c)
			if !ok {
				return apperrors.NewAuthentication("no authenticated identity")
			}

			if ident.IsAdmin {
				c.Set(adminContextKey, true)
				return next(c)
			}

			isAdmin, resolved := cfg.cachedAdminFlag(c, ident.ID)
			if !resolved {
				user, err := cfg.Users.FindActiveUserByID(ctx, ident.ID)
				if err != nil || user == nil {
					return apperrors.NewAuthentication("user not found or inactive")
				}
				isAdmin = user.IsAdmin()
				cfg.storeAdminFlag(c, ident.ID, isAdmin)
			}

			if !isAdmin {
				cfg.Audit.Record(audit.Event{
					Action:  "admin_access_denied",
					User:    ident.ID,
					Path:    c.Request().URL.Path,
					Method:  c.Request().Method,
					Success: false,
				})
				return apperrors.NewAuthorization("admin privileges required")
			}

			c.Set(adminContextKey, true)
			return next(c)
		}
	}
}

func (cfg AdminConfig) cachedAdminFlag(c echo.Context, userID string) (isAdmin, resolved bool) {
	val, ok, err := cfg.Cache.Get(c.Request().Context(), adminCachePrefix+userID)
	if err != nil || !ok {
		return false, false
	}
	return val == "true", true
}

func (cfg AdminConfig) storeAdminFlag(c echo.Context, userID string, isAdmin bool) {
	val := "false"
	if isAdmin {
		val = "true"
	}
	_ = cfg.Cache.Set(c.Request().Context(), adminCachePrefix+userID, val, adminCacheTTL)
}

// EvictAdminFlag removes a user's cached admin status. Call it after
// any role change so the new role takes effect within the request that
// changed it rather than the full staleness window.
func EvictAdminFlag(ctx context.Context, c cache.Cache, userID string) {
	_ = c.Delete(ctx, adminCachePrefix+userID)
}
