package bounty

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const bountyColumns = `id, poster_id, skill_id, credits_amount, min_level, status, description, session_id, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, b *Bounty) error {
	query := `
		INSERT INTO bounties (id, poster_id, skill_id, credits_amount, min_level, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := tx.QueryRowxContext(ctx, query,
		b.ID, b.PosterID, b.SkillID, b.CreditsAmount, b.MinLevel, b.Status, b.Description,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert bounty: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Bounty, error) {
	var b Bounty
	query := fmt.Sprintf(`SELECT %s FROM bounties WHERE id = $1`, bountyColumns)
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get bounty: %w", err)
	}
	return &b, nil
}

// GetForUpdateTx locks the bounty row for the rest of the transaction
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Bounty, error) {
	var b Bounty
	query := fmt.Sprintf(`SELECT %s FROM bounties WHERE id = $1 FOR UPDATE`, bountyColumns)
	if err := tx.GetContext(ctx, &b, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock bounty: %w", err)
	}
	return &b, nil
}

// ListOpen returns open bounties, newest first
func (r *Repository) ListOpen(ctx context.Context, limit, offset int) ([]Bounty, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	bounties := []Bounty{}
	query := fmt.Sprintf(`
		SELECT %s FROM bounties
		WHERE status = 'open'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, bountyColumns)
	if err := r.db.SelectContext(ctx, &bounties, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list bounties: %w", err)
	}
	return bounties, nil
}

// ListByPoster returns all of one user's bounties, newest first
func (r *Repository) ListByPoster(ctx context.Context, posterID uuid.UUID, limit, offset int) ([]Bounty, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	bounties := []Bounty{}
	query := fmt.Sprintf(`
		SELECT %s FROM bounties
		WHERE poster_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, bountyColumns)
	if err := r.db.SelectContext(ctx, &bounties, query, posterID, limit, offset); err != nil {
		return nil, fmt.Errorf("list bounties by poster: %w", err)
	}
	return bounties, nil
}

func (r *Repository) MarkClaimedTx(ctx context.Context, tx *sqlx.Tx, id, sessionID uuid.UUID) error {
	return r.exec(ctx, tx, `
		UPDATE bounties
		SET status = 'claimed', session_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'open'`, id, sessionID)
}

func (r *Repository) MarkCancelledTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	return r.exec(ctx, tx, `
		UPDATE bounties
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'open'`, id)
}

func (r *Repository) exec(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update bounty: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotOpen
	}
	return nil
}
