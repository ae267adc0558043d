package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clubroster/roster/internal/rbac"
	"github.com/clubroster/roster/internal/shared"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memoryUsers struct {
	mu   sync.Mutex
	byID map[string]*User
	err  error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[string]*User)}
}

func (m *memoryUsers) FindByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) Create(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.byID {
		if u.Username == user.Username {
			return shared.ErrDuplicateUsername
		}
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memoryUsers) UpdateRole(_ context.Context, id string, role rbac.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Role = role
	return nil
}

type memoryTokens struct {
	mu   sync.Mutex
	rows map[string]RefreshToken
	err  error
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{rows: make(map[string]RefreshToken)}
}

func (m *memoryTokens) Insert(_ context.Context, token RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows[token.Token] = token
	return nil
}

func (m *memoryTokens) ExistsActive(_ context.Context, token string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	row, ok := m.rows[token]
	return ok && row.ExpiresAt.After(now), nil
}

func (m *memoryTokens) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.rows, token)
	return nil
}

func (m *memoryTokens) DeleteByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for k, row := range m.rows {
		if row.UserID == userID {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for k, row := range m.rows {
		if !row.ExpiresAt.After(now) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type recordedEvents struct {
	mu     sync.Mutex
	events map[string]int
}

func (r *recordedEvents) AuthEvent(event, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string]int)
	}
	r.events[event+"/"+outcome]++
}

func (r *recordedEvents) get(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[key]
}

type authFixture struct {
	clock       *testClock
	users       *memoryUsers
	tokens      *memoryTokens
	events      *recordedEvents
	credentials *CredentialStore
	issuer      *TokenIssuer
	registry    *Registry
	service     *Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := newTestClock()
	users := newMemoryUsers()
	tokens := newMemoryTokens()

	credentials, err := NewCredentialStore(users, bcrypt.MinCost)
	require.NoError(t, err)
	credentials.now = clock.Now

	issuer, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		Issuer:        "roster",
		Now:           clock.Now,
	})
	require.NoError(t, err)

	registry := NewRegistry(tokens)
	registry.now = clock.Now

	events := &recordedEvents{}
	service := NewService(ServiceParams{
		Credentials: credentials,
		Tokens:      issuer,
		Registry:    registry,
		Users:       users,
		Events:      events,
	})
	return &authFixture{
		clock:       clock,
		users:       users,
		tokens:      tokens,
		events:      events,
		credentials: credentials,
		issuer:      issuer,
		registry:    registry,
		service:     service,
	}
}
