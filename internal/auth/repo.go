package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clubroster/roster/internal/rbac"
	"github.com/clubroster/roster/internal/shared"
)

// uniqueViolation is the postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// DBTX is the subset of pgx used by the repositories. *pgxpool.Pool and pgx.Tx
// both satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository persists accounts.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateRole(ctx context.Context, id string, role rbac.Role) error
}

// TokenRepository persists refresh token records.
type TokenRepository interface {
	Insert(ctx context.Context, token RefreshToken) error
	ExistsActive(ctx context.Context, token string, now time.Time) (bool, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PGUserRepository implements UserRepository using PostgreSQL.
type PGUserRepository struct {
	db DBTX
}

// NewUserRepository constructs a PostgreSQL user repository.
func NewUserRepository(db DBTX) *PGUserRepository {
	return &PGUserRepository{db: db}
}

const selectUser = `SELECT id, username, password_hash, role, created_at FROM users`

// FindByUsername fetches a user by exact username.
func (r *PGUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectUser+` WHERE username = $1`, username))
}

// FindByID fetches a user by id.
func (r *PGUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

func (r *PGUserRepository) scanOne(row pgx.Row) (*User, error) {
	var (
		user User
		role string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scan user: %v", shared.ErrStorage, err)
	}
	user.Role = rbac.Role(role)
	return &user, nil
}

// Create inserts user. A taken username yields shared.ErrDuplicateUsername.
func (r *PGUserRepository) Create(ctx context.Context, user *User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.PasswordHash, string(user.Role), user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrDuplicateUsername
		}
		return fmt.Errorf("%w: insert user: %v", shared.ErrStorage, err)
	}
	return nil
}

// UpdateRole changes the role of an existing user.
func (r *PGUserRepository) UpdateRole(ctx context.Context, id string, role rbac.Role) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, string(role))
	if err != nil {
		return fmt.Errorf("%w: update role: %v", shared.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PGTokenRepository implements TokenRepository using PostgreSQL.
type PGTokenRepository struct {
	db DBTX
}

// NewTokenRepository constructs a PostgreSQL refresh token repository.
func NewTokenRepository(db DBTX) *PGTokenRepository {
	return &PGTokenRepository{db: db}
}

// Insert stores a refresh token record.
func (r *PGTokenRepository) Insert(ctx context.Context, token RefreshToken) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		token.Token, token.UserID, token.ExpiresAt.UTC(), token.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert refresh token: %v", shared.ErrStorage, err)
	}
	return nil
}

// ExistsActive reports whether token is recorded and unexpired at now.
func (r *PGTokenRepository) ExistsActive(ctx context.Context, token string, now time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE token = $1 AND expires_at > $2)`,
		token, now.UTC(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: lookup refresh token: %v", shared.ErrStorage, err)
	}
	return exists, nil
}

// Delete removes token. Removing an unknown token is not an error.
func (r *PGTokenRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("%w: delete refresh token: %v", shared.ErrStorage, err)
	}
	return nil
}

// DeleteByUser removes every token belonging to userID.
func (r *PGTokenRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete user refresh tokens: %v", shared.ErrStorage, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes tokens whose expiry is at or before now.
func (r *PGTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired refresh tokens: %v", shared.ErrStorage, err)
	}
	return tag.RowsAffected(), nil
}

var (
	_ UserRepository  = (*PGUserRepository)(nil)
	_ TokenRepository = (*PGTokenRepository)(nil)
)
