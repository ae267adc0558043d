package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/clubroster/roster/internal/shared"
)

// EventRecorder counts auth outcomes. observability.Metrics implements it.
type EventRecorder interface {
	AuthEvent(event, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) AuthEvent(string, string) {}

// Service wraps authentication business rules.
type Service struct {
	credentials *CredentialStore
	tokens      *TokenIssuer
	registry    *Registry
	users       UserRepository
	events      EventRecorder
	logger      *slog.Logger
}

// ServiceParams groups Service dependencies.
type ServiceParams struct {
	Credentials *CredentialStore
	Tokens      *TokenIssuer
	Registry    *Registry
	Users       UserRepository
	Events      EventRecorder
	Logger      *slog.Logger
}

// NewService constructs a new Service.
func NewService(p ServiceParams) *Service {
	if p.Events == nil {
		p.Events = noopRecorder{}
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &Service{
		credentials: p.Credentials,
		tokens:      p.Tokens,
		registry:    p.Registry,
		users:       p.Users,
		events:      p.Events,
		logger:      p.Logger,
	}
}

// RefreshTTL reports how long issued refresh tokens remain valid.
func (s *Service) RefreshTTL() time.Duration {
	return s.tokens.RefreshTTL()
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, username, password, role string) (*User, error) {
	user, err := s.credentials.Register(ctx, username, password, role)
	if err != nil {
		s.events.AuthEvent("register", outcome(err))
		return nil, err
	}
	s.events.AuthEvent("register", "success")
	s.logger.Info("user registered", slog.String("user_id", user.ID), slog.String("role", user.Role.String()))
	return user, nil
}

// Login verifies credentials, then issues an access token and a registered
// refresh token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.credentials.Verify(ctx, username, password)
	if err != nil {
		s.events.AuthEvent("login", outcome(err))
		return nil, err
	}
	access, accessExp, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Store(ctx, refresh, user.ID, refreshExp); err != nil {
		s.events.AuthEvent("login", "error")
		return nil, err
	}
	s.events.AuthEvent("login", "success")
	return &Session{
		User:             user,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a valid, registered refresh token for a new access token.
// The refresh token itself is not rotated. The role in the new token is read
// from the account, so role changes take effect on the next refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if refreshToken == "" {
		s.events.AuthEvent("refresh", "rejected")
		return "", time.Time{}, shared.ErrInvalidRefreshToken
	}
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		s.events.AuthEvent("refresh", "rejected")
		return "", time.Time{}, err
	}
	ok, err := s.registry.Exists(ctx, refreshToken)
	if err != nil {
		s.events.AuthEvent("refresh", "error")
		return "", time.Time{}, err
	}
	if !ok {
		s.events.AuthEvent("refresh", "rejected")
		return "", time.Time{}, shared.ErrInvalidRefreshToken
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.events.AuthEvent("refresh", "rejected")
			return "", time.Time{}, shared.ErrInvalidRefreshToken
		}
		s.events.AuthEvent("refresh", "error")
		return "", time.Time{}, err
	}
	access, exp, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return "", time.Time{}, err
	}
	s.events.AuthEvent("refresh", "success")
	return access, exp, nil
}

// Logout revokes refreshToken. Unknown or empty tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.registry.Revoke(ctx, refreshToken); err != nil {
		s.events.AuthEvent("logout", "error")
		return err
	}
	s.events.AuthEvent("logout", "success")
	return nil
}

// LogoutAll revokes every refresh token held by userID.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.registry.RevokeAll(ctx, userID)
	if err != nil {
		s.events.AuthEvent("logout_all", "error")
		return 0, err
	}
	s.events.AuthEvent("logout_all", "success")
	s.logger.Info("refresh tokens revoked", slog.String("user_id", userID), slog.Int64("count", n))
	return n, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return "invalid"
	case errors.Is(err, shared.ErrDuplicateUsername):
		return "duplicate"
	case errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, shared.ErrInvalidRefreshToken),
		errors.Is(err, shared.ErrInvalidOrExpiredToken):
		return "rejected"
	default:
		return "error"
	}
}
