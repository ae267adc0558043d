package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubroster/roster/internal/rbac"
	"github.com/clubroster/roster/internal/shared"
)

type execCall struct {
	sql  string
	args []any
}

type stubDB struct {
	execs   []execCall
	execErr error
	tag     string
	row     *stubRow
}

func (s *stubDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{sql: sql, args: args})
	if s.execErr != nil {
		return pgconn.CommandTag{}, s.execErr
	}
	return pgconn.NewCommandTag(s.tag), nil
}

func (s *stubDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	s.execs = append(s.execs, execCall{sql: sql, args: args})
	if s.row == nil {
		return &stubRow{err: pgx.ErrNoRows}
	}
	return s.row
}

type stubRow struct {
	values []any
	err    error
}

func (r *stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *bool:
			*p = r.values[i].(bool)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

func TestUserRepositoryFind(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &stubDB{row: &stubRow{values: []any{"u1", "alice", "$2a$hash", "manager", created}}}
	repo := NewUserRepository(db)

	user, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "u1", Username: "alice", PasswordHash: "$2a$hash", Role: rbac.RoleManager, CreatedAt: created}, user)
	assert.Contains(t, db.execs[0].sql, "WHERE username = $1")
	assert.Equal(t, []any{"alice"}, db.execs[0].args)

	_, err = NewUserRepository(&stubDB{}).FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = NewUserRepository(&stubDB{row: &stubRow{err: errors.New("conn reset")}}).FindByID(context.Background(), "u1")
	assert.ErrorIs(t, err, shared.ErrStorage)
}

func TestUserRepositoryCreate(t *testing.T) {
	db := &stubDB{tag: "INSERT 0 1"}
	user := &User{ID: "u1", Username: "alice", PasswordHash: "h", Role: rbac.RoleViewer, CreatedAt: time.Now()}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	assert.True(t, strings.HasPrefix(db.execs[0].sql, "INSERT INTO users"))
	assert.Equal(t, "viewer", db.execs[0].args[3])

	dup := &stubDB{execErr: &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}}
	assert.ErrorIs(t, NewUserRepository(dup).Create(context.Background(), user), shared.ErrDuplicateUsername)

	broken := &stubDB{execErr: errors.New("timeout")}
	err := NewUserRepository(broken).Create(context.Background(), user)
	assert.ErrorIs(t, err, shared.ErrStorage)
	assert.False(t, errors.Is(err, shared.ErrDuplicateUsername))
}

func TestUserRepositoryUpdateRole(t *testing.T) {
	require.NoError(t, NewUserRepository(&stubDB{tag: "UPDATE 1"}).UpdateRole(context.Background(), "u1", rbac.RoleAdmin))
	assert.ErrorIs(t, NewUserRepository(&stubDB{tag: "UPDATE 0"}).UpdateRole(context.Background(), "u1", rbac.RoleAdmin), shared.ErrNotFound)
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	db := &stubDB{tag: "INSERT 0 1"}
	repo := NewTokenRepository(db)
	require.NoError(t, repo.Insert(ctx, RefreshToken{Token: "t", UserID: "u1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))
	assert.Equal(t, []any{"t", "u1", now.Add(time.Hour), now}, db.execs[0].args)

	db = &stubDB{row: &stubRow{values: []any{true}}}
	ok, err := NewTokenRepository(db).ExistsActive(ctx, "t", now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, db.execs[0].sql, "expires_at > $2")

	db = &stubDB{tag: "DELETE 4"}
	n, err := NewTokenRepository(db).DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	db = &stubDB{tag: "DELETE 2"}
	n, err = NewTokenRepository(db).DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Contains(t, db.execs[0].sql, "expires_at <= $1")

	broken := NewTokenRepository(&stubDB{execErr: errors.New("down")})
	assert.ErrorIs(t, broken.Delete(ctx, "t"), shared.ErrStorage)
	_, err = NewTokenRepository(&stubDB{row: &stubRow{err: errors.New("down")}}).ExistsActive(ctx, "t", now)
	assert.ErrorIs(t, err, shared.ErrStorage)
}
