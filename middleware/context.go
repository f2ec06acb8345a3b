package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/quizdesk/quizdesk/domain"
)

const (
	identityContextKey = "auth.identity"
	adminContextKey    = "auth.admin"
)

// SetIdentity attaches the request-scoped identity. Exported so tests
// and the realtime handshake can seed a context directly.
func SetIdentity(c echo.Context, ident domain.Identity) {
	c.Set(identityContextKey, ident)
}

// IdentityFrom retrieves the identity attached by the auth chain.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	ident, ok := c.Get(identityContextKey).(domain.Identity)
	return ident, ok
}

// IsAdminRequest reports whether the admin gate approved this request.
func IsAdminRequest(c echo.Context) bool {
	ok, _ := c.Get(adminContextKey).(bool)
	return ok
}
