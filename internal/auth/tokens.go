package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clubroster/roster/internal/rbac"
	"github.com/clubroster/roster/internal/shared"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenConfig configures a TokenIssuer. The two secrets must be distinct so a
// token of one kind never verifies as the other.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Now           func() time.Time
	// Logger receives the verification failure cause at debug level.
	Logger *slog.Logger
}

// TokenIssuer mints and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	cfg TokenConfig
}

type accessTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewTokenIssuer validates cfg and constructs a TokenIssuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("auth: token ttls must not be negative")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &TokenIssuer{cfg: cfg}, nil
}

// RefreshTTL reports the refresh token lifetime.
func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.cfg.RefreshTTL
}

// IssueAccessToken mints a short-lived token carrying the user's id and role.
func (i *TokenIssuer) IssueAccessToken(user *User) (string, time.Time, error) {
	now := i.cfg.Now()
	exp := jwt.NewNumericDate(now.Add(i.cfg.AccessTTL))
	claims := accessTokenClaims{
		Role: user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign access token: %w", err)
	}
	return signed, exp.Time, nil
}

// IssueRefreshToken mints a long-lived token carrying only the user's id and
// a unique token id.
func (i *TokenIssuer) IssueRefreshToken(user *User) (string, time.Time, error) {
	now := i.cfg.Now()
	exp := jwt.NewNumericDate(now.Add(i.cfg.RefreshTTL))
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   user.ID,
		Issuer:    i.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: exp,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.RefreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign refresh token: %w", err)
	}
	return signed, exp.Time, nil
}

func (i *TokenIssuer) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.cfg.Now),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	return opts
}

// ParseAccessToken verifies signature and expiry. Every failure maps to
// shared.ErrInvalidOrExpiredToken.
func (i *TokenIssuer) ParseAccessToken(raw string) (*AccessClaims, error) {
	var claims accessTokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.cfg.AccessSecret, nil
	}, i.parserOptions()...)
	if err != nil {
		i.cfg.Logger.Debug("access token rejected", slog.Any("cause", err))
		return nil, shared.ErrInvalidOrExpiredToken
	}
	role := rbac.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return nil, shared.ErrInvalidOrExpiredToken
	}
	out := &AccessClaims{
		UserID:    claims.Subject,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// ParseRefreshToken verifies signature and expiry. Every failure maps to
// shared.ErrInvalidRefreshToken. Callers must still consult the Registry.
func (i *TokenIssuer) ParseRefreshToken(raw string) (*RefreshClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.cfg.RefreshSecret, nil
	}, i.parserOptions()...)
	if err != nil {
		i.cfg.Logger.Debug("refresh token rejected", slog.Any("cause", err))
		return nil, shared.ErrInvalidRefreshToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, shared.ErrInvalidRefreshToken
	}
	return &RefreshClaims{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
