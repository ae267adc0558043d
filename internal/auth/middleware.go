package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clubroster/roster/internal/platform/httpx"
	"github.com/clubroster/roster/internal/rbac"
	"github.com/clubroster/roster/internal/shared"
)

type claimsKey struct{}

// ContextWithClaims attaches verified claims to ctx.
func ContextWithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims attached by Authenticator.Middleware.
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*AccessClaims)
	return claims, ok && claims != nil
}

// RoleFromRequest resolves the authenticated role for rbac.Middleware.
func RoleFromRequest(r *http.Request) (rbac.Role, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.Role, true
}

// Authenticator verifies bearer access tokens.
type Authenticator struct {
	tokens *TokenIssuer
	logger *slog.Logger
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(tokens *TokenIssuer, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{tokens: tokens, logger: logger}
}

// Authenticate extracts and verifies the bearer token in header.
func (a *Authenticator) Authenticate(header http.Header) (*AccessClaims, error) {
	raw, ok := bearerToken(header.Get("Authorization"))
	if !ok {
		return nil, shared.ErrMissingToken
	}
	return a.tokens.ParseAccessToken(raw)
}

// Middleware rejects requests without a valid access token and attaches the
// verified claims to the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Authenticate(r.Header)
		if err != nil {
			a.logger.Debug("authentication failed", slog.String("path", r.URL.Path), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
