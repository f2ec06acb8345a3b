package echo

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/quizdesk/quizdesk/errors"
	"github.com/quizdesk/quizdesk/middleware"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userView struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

// Register creates a new account.
func (a *API) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.NewValidation("malformed request body")
	}

	user, err := a.auth.Register(c.Request().Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return err
	}

	return respondCreated(c, userView{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      string(user.Role),
	})
}

// Login verifies credentials and returns the token pair. The refresh
// token is also set as an HTTP-only cookie.
func (a *API) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.NewValidation("malformed request body")
	}

	user, pair, err := a.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     "refresh_token",
		Value:    pair.RefreshToken,
		HttpOnly: true,
		Secure:   !a.devMode,
		Path:     "/api/auth",
		SameSite: http.SameSiteStrictMode,
	})

	return respondOK(c, map[string]interface{}{
		"user": userView{
			ID:         user.ID,
			Email:      user.Email,
			FirstName:  user.FirstName,
			LastName:   user.LastName,
			Role:       string(user.Role),
			IsVerified: user.IsVerified,
		},
		"tokens": pair,
	})
}

// Refresh exchanges a refresh token (body or cookie) for a new pair.
func (a *API) Refresh(c echo.Context) error {
	var req refreshRequest
	_ = c.Bind(&req)

	raw := req.RefreshToken
	if raw == "" {
		if cookie, err := c.Cookie("refresh_token"); err == nil {
			raw = cookie.Value
		}
	}
	if raw == "" {
		return apperrors.NewAuthentication("no refresh token")
	}

	pair, err := a.auth.Refresh(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	return respondOK(c, pair)
}

// Logout evicts the caller's cached access token.
func (a *API) Logout(c echo.Context) error {
	raw := ""
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 {
		raw = parts[1]
	} else if cookie, err := c.Cookie(middleware.AccessTokenCookie); err == nil {
		raw = cookie.Value
	}

	if err := a.auth.Logout(c.Request().Context(), raw); err != nil {
		return err
	}
	return respondOK(c, nil)
}
