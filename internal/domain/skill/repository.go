package skill

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when the skill doesn't exist
var ErrNotFound = errors.New("skill not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Skill, error) {
	var s Skill
	err := r.db.GetContext(ctx, &s, `SELECT id, name, created_at FROM skills WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get skill: %w", err)
	}
	return &s, nil
}

func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM skills WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("skill exists: %w", err)
	}
	return exists, nil
}

func (r *Repository) Create(ctx context.Context, s *Skill) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO skills (id, name) VALUES ($1, $2)`, s.ID, s.Name)
	if err != nil {
		return fmt.Errorf("create skill: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]Skill, error) {
	skills := make([]Skill, 0)
	err := r.db.SelectContext(ctx, &skills, `SELECT id, name, created_at FROM skills ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return skills, nil
}
