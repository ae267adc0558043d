package auth

import (
	"context"
	"time"
)

// Registry tracks which refresh tokens are currently honored.
type Registry struct {
	tokens TokenRepository
	now    func() time.Time
}

// NewRegistry constructs a Registry over repo.
func NewRegistry(repo TokenRepository) *Registry {
	return &Registry{tokens: repo, now: time.Now}
}

// Store records token for userID until expiresAt.
func (r *Registry) Store(ctx context.Context, token, userID string, expiresAt time.Time) error {
	return r.tokens.Insert(ctx, RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: r.now(),
	})
}

// Exists reports whether token is recorded and not yet expired.
func (r *Registry) Exists(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return r.tokens.ExistsActive(ctx, token, r.now())
}

// Revoke deletes token. It is idempotent.
func (r *Registry) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return r.tokens.Delete(ctx, token)
}

// RevokeAll deletes every token of userID and returns how many were removed.
func (r *Registry) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return r.tokens.DeleteByUser(ctx, userID)
}

// DeleteExpired purges records that can no longer be honored.
func (r *Registry) DeleteExpired(ctx context.Context) (int64, error) {
	return r.tokens.DeleteExpired(ctx, r.now())
}
