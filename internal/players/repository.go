package players

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clubroster/roster/internal/shared"
)

// DBTX is the subset of pgx used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists players.
type Repository interface {
	List(ctx context.Context) ([]Player, error)
	Create(ctx context.Context, p Player) (Player, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db DBTX) *PGRepository {
	return &PGRepository{db: db}
}

// List returns every player ordered by name.
func (r *PGRepository) List(ctx context.Context) ([]Player, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, position, age, goals, created_at FROM players ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list players: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	out := make([]Player, 0)
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Position, &p.Age, &p.Goals, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan player: %v", shared.ErrStorage, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list players: %v", shared.ErrStorage, err)
	}
	return out, nil
}

// Create inserts p and returns the stored row.
func (r *PGRepository) Create(ctx context.Context, p Player) (Player, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO players (name, position, age, goals) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		p.Name, p.Position, p.Age, p.Goals,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Player{}, fmt.Errorf("%w: insert player: %v", shared.ErrStorage, err)
	}
	return p, nil
}

// Delete removes the player. Deleting a missing id is not an error.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM players WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: delete player: %v", shared.ErrStorage, err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
