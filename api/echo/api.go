// Package echo exposes the HTTP surface of the quiz backend.
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quizdesk/quizdesk/cache"
	apperrors "github.com/quizdesk/quizdesk/errors"
	"github.com/quizdesk/quizdesk/log"
	"github.com/quizdesk/quizdesk/middleware"
	"github.com/quizdesk/quizdesk/realtime"
	"github.com/quizdesk/quizdesk/services"
)

// API holds the handler dependencies.
type API struct {
	auth    *services.AuthService
	quiz    *services.QuizService
	cache   *cache.Supervisor
	hub     *realtime.Hub
	logger  log.Logger
	devMode bool
}

// Config wires the API.
type Config struct {
	Auth    *services.AuthService
	Quiz    *services.QuizService
	Cache   *cache.Supervisor
	Hub     *realtime.Hub
	Logger  log.Logger
	DevMode bool
}

// New creates the API.
func New(cfg Config) *API {
	return &API{
		auth:    cfg.Auth,
		quiz:    cfg.Quiz,
		cache:   cfg.Cache,
		hub:     cfg.Hub,
		logger:  cfg.Logger,
		devMode: cfg.DevMode,
	}
}

// RegisterRoutes mounts every route. authChain is the per-request
// authentication pipeline; adminGate layers the privilege check on top.
func (a *API) RegisterRoutes(e *echo.Echo, corsOrigins []string, authChain, adminGate echo.MiddlewareFunc) {
	e.HTTPErrorHandler = a.errorHandler

	if len(corsOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: corsOrigins}))
	}

	e.GET("/healthz", a.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	// Credential endpoints are brute-force targets, so they get a
	// per-IP rate limit on top of the global surface.
	authGroup := api.Group("/auth", echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(10)))
	authGroup.POST("/register", a.Register)
	authGroup.POST("/login", a.Login)
	authGroup.POST("/refresh", a.Refresh)
	authGroup.POST("/logout", a.Logout, authChain)

	api.GET("/questions", a.ListQuestions, authChain)
	api.POST("/tests", a.SubmitTest, authChain)
	api.GET("/tests", a.ListSubmissions, authChain)
	api.GET("/dashboard", a.Dashboard, authChain)

	admin := api.Group("/admin", authChain, adminGate)
	admin.GET("/stats", a.AdminStats)
	admin.POST("/questions", a.CreateQuestion)
	admin.PATCH("/users/:id/role", a.SetUserRole)

	e.GET("/ws", a.hub.ServeWS, authChain)
}

// Health reports liveness plus which cache backend is active.
func (a *API) Health(c echo.Context) error {
	return respondOK(c, map[string]interface{}{
		"status": "ok",
		"cache":  a.cache.Status(),
	})
}

// errorHandler maps the application error taxonomy onto the JSON
// envelope. Internals never leak outside dev mode.
func (a *API) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if appErr := apperrors.AsError(err); appErr != nil {
		status := appErr.Status()
		if status >= http.StatusInternalServerError {
			a.logger.Error(c.Request().Context(), "request failed", err, map[string]interface{}{
				"path": c.Path(),
			})
			message := "internal server error"
			if a.devMode {
				message = appErr.Error()
			}
			_ = respondError(c, status, message)
			return
		}
		_ = respondError(c, status, appErr.Message, appErr.Details...)
		return
	}

	if httpErr, ok := err.(*echo.HTTPError); ok {
		msg, _ := httpErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		_ = respondError(c, httpErr.Code, msg)
		return
	}

	a.logger.Error(c.Request().Context(), "unhandled error", err, map[string]interface{}{
		"path": c.Path(),
	})
	message := "internal server error"
	if a.devMode {
		message = err.Error()
	}
	_ = respondError(c, http.StatusInternalServerError, message)
}

// identity fetches the request identity or fails the request.
func identity(c echo.Context) (string, error) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return "", apperrors.NewAuthentication("no authenticated identity")
	}
	return ident.ID, nil
}
