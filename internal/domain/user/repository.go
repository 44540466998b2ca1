package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		SELECT id, display_name, credit_balance, sessions_completed, sessions_taught, level, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Exists reports whether a user row exists
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

// Create inserts a user row (used by provisioning hooks and tests)
func (r *Repository) Create(ctx context.Context, u *User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, credit_balance, sessions_completed, sessions_taught, level)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.DisplayName, u.CreditBalance, u.SessionsCompleted, u.SessionsTaught, u.Level)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// IncrementSessionCountersTx bumps the learner's completed count and the
// teacher's taught count, recomputing the teacher's level from the new
// count. Runs inside the settlement transaction.
func (r *Repository) IncrementSessionCountersTx(ctx context.Context, tx *sqlx.Tx, learnerID, teacherID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET sessions_completed = sessions_completed + 1, updated_at = NOW()
		WHERE id = $1
	`, learnerID)
	if err != nil {
		return fmt.Errorf("increment completed counter: %w", err)
	}

	var taught int
	err = tx.QueryRowContext(ctx, `
		UPDATE users
		SET sessions_taught = sessions_taught + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING sessions_taught
	`, teacherID).Scan(&taught)
	if err != nil {
		return fmt.Errorf("increment taught counter: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET level = $2 WHERE id = $1`, teacherID, LevelForTaught(taught))
	if err != nil {
		return fmt.Errorf("update level: %w", err)
	}
	return nil
}
