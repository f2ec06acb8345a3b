// Package services holds the application services between the HTTP
// surface and the repositories.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/quizdesk/quizdesk/cache"
	"github.com/quizdesk/quizdesk/domain"
	apperrors "github.com/quizdesk/quizdesk/errors"
	"github.com/quizdesk/quizdesk/internal/auth"
	"github.com/quizdesk/quizdesk/internal/metrics"
	"github.com/quizdesk/quizdesk/log"
	"github.com/quizdesk/quizdesk/token"
)

const tokenCachePrefix = "token:"

// AuthService implements signup, login, refresh and logout.
type AuthService struct {
	users  domain.UserRepository
	hasher auth.PasswordHasher
	tokens *token.Service
	cache  cache.Cache
	logger log.Logger
}

// NewAuthService wires the auth flows.
func NewAuthService(
	users domain.UserRepository,
	hasher auth.PasswordHasher,
	tokens *token.Service,
	tokenCache cache.Cache,
	logger log.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		cache:  tokenCache,
		logger: logger,
	}
}

// Register creates a new student account.
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidation("a valid email is required")
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidation("password must be at least 8 characters")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.NewInfrastructure("failed to hash password", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         domain.RoleStudent,
		IsActive:     true,
		IsVerified:   false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", map[string]interface{}{"user_id": user.ID})
	return user, nil
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *token.Pair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, apperrors.NewInfrastructure("credential store unavailable", err)
	}
	if user == nil || !user.IsActive {
		metrics.LoginFailureTotal.Inc()
		return nil, nil, apperrors.NewAuthentication("invalid credentials")
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		metrics.LoginFailureTotal.Inc()
		return nil, nil, apperrors.NewAuthentication("invalid credentials")
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, apperrors.NewInfrastructure("failed to issue tokens", err)
	}

	now := time.Now().UTC()
	if _, err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		s.logger.Warn(ctx, "failed to record last login", map[string]interface{}{
			"user_id": user.ID, "error": err.Error(),
		})
	}

	metrics.LoginSuccessTotal.Inc()
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The user is
// reloaded so deactivated accounts cannot refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return nil, apperrors.NewAuthentication("refresh token expired")
		}
		return nil, apperrors.NewAuthentication("invalid refresh token")
	}
	if claims.Kind != token.KindRefresh {
		return nil, apperrors.NewAuthentication("invalid refresh token")
	}

	user, err := s.users.FindActiveUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, apperrors.NewInfrastructure("credential store unavailable", err)
	}
	if user == nil {
		return nil, apperrors.NewAuthentication("user not found or inactive")
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.NewInfrastructure("failed to issue tokens", err)
	}
	return pair, nil
}

// Logout evicts the access token's cached verification entry so the
// session dies before the token's own expiry.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return s.cache.Delete(ctx, tokenCachePrefix+accessToken)
}
