package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const sessionColumns = `id, learner_id, teacher_id, skill_id, status, credits_amount, credits_locked, message,
	scheduled_at, started_at, completed_at, cancelled_at, cancelled_by, cancellation_reason, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// CreateTx inserts a session row within a transaction
func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, s *Session) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO sessions (id, learner_id, teacher_id, skill_id, status, credits_amount, credits_locked, message, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, s.ID, s.LearnerID, s.TeacherID, s.SkillID, s.Status, s.CreditsAmount, s.CreditsLocked, s.Message, s.ScheduledAt).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// GetForUpdateTx locks the session row, serializing concurrent transitions
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Session, error) {
	var s Session
	err := tx.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return &s, nil
}

// ListByUser returns sessions where the user is learner or teacher,
// optionally narrowed to one status.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	sessions := make([]Session, 0)
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE (learner_id = $1 OR teacher_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// MarkAcceptedTx moves a session to accepted
func (r *Repository) MarkAcceptedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	return r.exec(ctx, tx, `UPDATE sessions SET status = 'accepted', updated_at = NOW() WHERE id = $1`, id)
}

// MarkScheduledTx moves a session to scheduled at the given time
func (r *Repository) MarkScheduledTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	return r.exec(ctx, tx, `UPDATE sessions SET status = 'scheduled', scheduled_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
}

// MarkStartedTx moves a session to in_progress
func (r *Repository) MarkStartedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	return r.exec(ctx, tx, `UPDATE sessions SET status = 'in_progress', started_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
}

// MarkCompletedTx finalizes a session and unlocks its credits flag
func (r *Repository) MarkCompletedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	return r.exec(ctx, tx, `
		UPDATE sessions
		SET status = 'completed', completed_at = $2, credits_locked = false, updated_at = NOW()
		WHERE id = $1
	`, id, at)
}

// MarkCancelledTx cancels a session, recording who and why
func (r *Repository) MarkCancelledTx(ctx context.Context, tx *sqlx.Tx, id, cancelledBy uuid.UUID, reason string, at time.Time) error {
	return r.exec(ctx, tx, `
		UPDATE sessions
		SET status = 'cancelled', cancelled_at = $2, cancelled_by = $3, cancellation_reason = $4,
		    credits_locked = false, updated_at = NOW()
		WHERE id = $1
	`, id, at, cancelledBy, reason)
}

// MarkDisputedTx flags a completed session for manual resolution
func (r *Repository) MarkDisputedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	return r.exec(ctx, tx, `UPDATE sessions SET status = 'disputed', updated_at = NOW() WHERE id = $1`, id)
}

func (r *Repository) exec(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
