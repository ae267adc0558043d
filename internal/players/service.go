package players

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/clubroster/roster/internal/shared"
)

// Service applies roster rules on top of the repository.
type Service struct {
	repo      Repository
	validator *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: shared.NewValidator()}
}

// List returns the roster ordered by name.
func (s *Service) List(ctx context.Context) ([]Player, error) {
	return s.repo.List(ctx)
}

// Create validates in and stores a new player.
func (s *Service) Create(ctx context.Context, in CreateInput) (Player, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Position = strings.TrimSpace(in.Position)
	if err := shared.ValidateStruct(s.validator, in); err != nil {
		return Player{}, err
	}
	return s.repo.Create(ctx, Player{
		Name:     in.Name,
		Position: in.Position,
		Age:      *in.Age,
		Goals:    *in.Goals,
	})
}

// Delete removes a player by id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.NewValidationError(map[string]string{"id": "must be a positive integer"})
	}
	return s.repo.Delete(ctx, id)
}
