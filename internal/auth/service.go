package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/humon/server/internal/lib/logger/sl"
	"github.com/humon/server/internal/metrics"
	"github.com/humon/server/internal/model"
	"github.com/humon/server/internal/repo"
)

// AuthService issues credentials and resolves auth tokens to users.
//
// Trust model: the server issues opaque auth tokens, and only an auth token
// identifies a caller. Device tokens are accepted solely by Issue, behind the
// app secret.
type AuthService struct {
	log       *slog.Logger
	userRepo  repo.UserRepo
	metrics   *metrics.Metrics
	appSecret string
	newToken  func() string
}

// NewAuthService creates a new auth service
func NewAuthService(log *slog.Logger, userRepo repo.UserRepo, m *metrics.Metrics, appSecret string) *AuthService {
	return &AuthService{
		log:       log,
		userRepo:  userRepo,
		metrics:   m,
		appSecret: appSecret,
		newToken:  NewToken,
	}
}

// Issue exchanges the app secret for the user bound to deviceToken, creating
// the user on first use. An empty deviceToken is replaced by a generated one.
// Calls with the same device token return the same user and auth token.
func (s *AuthService) Issue(ctx context.Context, appSecret, deviceToken string) (model.User, bool, error) {
	const op = "auth.Issue"
	log := s.log.With(slog.String("op", op))

	if !secretMatches(s.appSecret, appSecret) {
		s.metrics.AuthFailures.WithLabelValues("app_secret").Inc()
		log.Warn("rejected credential request with invalid app secret")
		return model.User{}, false, fmt.Errorf("%s: %w", op, ErrInvalidAppSecret)
	}

	deviceToken = strings.TrimSpace(deviceToken)
	if len(deviceToken) > maxDeviceTokenLength {
		return model.User{}, false, fmt.Errorf("%s: %w", op, ErrInvalidDeviceToken)
	}
	if deviceToken == "" {
		deviceToken = s.newToken()
	}

	user, created, err := s.userRepo.GetOrCreateByDeviceToken(ctx, deviceToken, s.newToken())
	if err != nil {
		log.Error("failed to get or create user", sl.Err(err))
		return model.User{}, false, fmt.Errorf("%s: %w", op, err)
	}

	if created {
		s.metrics.CredentialsIssued.WithLabelValues("created").Inc()
		log.Info("user created", slog.Int64("user_id", user.ID))
	} else {
		s.metrics.CredentialsIssued.WithLabelValues("existing").Inc()
	}

	return user, created, nil
}

// Authenticate resolves an auth token to its user. Unknown or empty tokens
// yield ErrUnauthorized; an empty token never reaches the store.
func (s *AuthService) Authenticate(ctx context.Context, authToken string) (model.User, error) {
	const op = "auth.Authenticate"

	if authToken == "" {
		s.metrics.AuthFailures.WithLabelValues("missing_token").Inc()
		return model.User{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	user, err := s.userRepo.GetByAuthToken(ctx, authToken)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.metrics.AuthFailures.WithLabelValues("unknown_token").Inc()
			return model.User{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		s.log.Error("failed to look up auth token", slog.String("op", op), sl.Err(err))
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// RotateToken replaces the user's auth token. The old token stops resolving
// as soon as this returns.
func (s *AuthService) RotateToken(ctx context.Context, user model.User) (model.User, error) {
	const op = "auth.RotateToken"

	rotated, err := s.userRepo.RotateAuthToken(ctx, user.ID, s.newToken())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		s.log.Error("failed to rotate auth token", slog.String("op", op), sl.Err(err))
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("auth token rotated", slog.String("op", op), slog.Int64("user_id", rotated.ID))
	return rotated, nil
}
