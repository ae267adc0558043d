package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clubroster/roster/internal/rbac"
	"github.com/clubroster/roster/internal/shared"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// CredentialStore hashes and verifies account passwords.
type CredentialStore struct {
	users     UserRepository
	cost      int
	dummyHash []byte
	validator *validator.Validate
	now       func() time.Time
}

// NewCredentialStore constructs a CredentialStore hashing at the given cost.
// A zero cost selects DefaultBcryptCost.
func NewCredentialStore(users UserRepository, cost int) (*CredentialStore, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	// Compared against for unknown usernames so both failure paths hash once.
	dummy, err := bcrypt.GenerateFromPassword([]byte("roster-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("auth: dummy hash: %w", err)
	}
	return &CredentialStore{
		users:     users,
		cost:      cost,
		dummyHash: dummy,
		validator: shared.NewValidator(),
		now:       time.Now,
	}, nil
}

// Verify returns the user iff username exists and password matches its hash.
// Unknown usernames and wrong passwords yield the same error.
func (s *CredentialStore) Verify(ctx context.Context, username, password string) (*User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

type registration struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register creates a new account. The password is stored only as a bcrypt
// hash. An empty role selects rbac.DefaultRole.
func (s *CredentialStore) Register(ctx context.Context, username, password, role string) (*User, error) {
	if err := shared.ValidateStruct(s.validator, registration{Username: username, Password: password}); err != nil {
		return nil, err
	}
	if len(password) > maxPasswordBytes {
		return nil, shared.NewValidationError(map[string]string{"password": "must be at most 72 bytes"})
	}
	parsed, err := rbac.ParseRole(role)
	if err != nil {
		return nil, shared.NewValidationError(map[string]string{"role": "must be one of: admin manager viewer"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         parsed,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
