package liveclass

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const classColumns = `id, host_id, skill_id, title, credits_per_seat, capacity, status, starts_at, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) Create(ctx context.Context, c *Class) error {
	query := `
		INSERT INTO live_classes (id, host_id, skill_id, title, credits_per_seat, capacity, status, starts_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID, c.HostID, c.SkillID, c.Title, c.CreditsPerSeat, c.Capacity, c.Status, c.StartsAt,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Class, error) {
	var c Class
	query := fmt.Sprintf(`SELECT %s FROM live_classes WHERE id = $1`, classColumns)
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get class: %w", err)
	}
	return &c, nil
}

// GetForUpdateTx locks the class row. Capacity checks and per-attendee
// settlement both serialize on this lock.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Class, error) {
	var c Class
	query := fmt.Sprintf(`SELECT %s FROM live_classes WHERE id = $1 FOR UPDATE`, classColumns)
	if err := tx.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock class: %w", err)
	}
	return &c, nil
}

// ListUpcoming returns scheduled classes ordered by start time
func (r *Repository) ListUpcoming(ctx context.Context, limit, offset int) ([]Class, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	classes := []Class{}
	query := fmt.Sprintf(`
		SELECT %s FROM live_classes
		WHERE status = 'scheduled'
		ORDER BY starts_at ASC
		LIMIT $1 OFFSET $2`, classColumns)
	if err := r.db.SelectContext(ctx, &classes, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

func (r *Repository) MarkStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to Status) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE live_classes
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("update class status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrInvalidStatus
	}
	return nil
}

// --- attendees ---

func (r *Repository) GetAttendeeTx(ctx context.Context, tx *sqlx.Tx, classID, userID uuid.UUID) (*Attendee, error) {
	var a Attendee
	err := tx.GetContext(ctx, &a, `
		SELECT class_id, user_id, status, joined_at, updated_at
		FROM class_attendees
		WHERE class_id = $1 AND user_id = $2`, classID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendee: %w", err)
	}
	return &a, nil
}

func (r *Repository) CountJoinedTx(ctx context.Context, tx *sqlx.Tx, classID uuid.UUID) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM class_attendees
		WHERE class_id = $1 AND status = 'joined'`, classID)
	if err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return n, nil
}

func (r *Repository) InsertAttendeeTx(ctx context.Context, tx *sqlx.Tx, classID, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO class_attendees (class_id, user_id, status)
		VALUES ($1, $2, 'joined')
		ON CONFLICT (class_id, user_id)
		DO UPDATE SET status = 'joined', joined_at = NOW(), updated_at = NOW()
		WHERE class_attendees.status = 'left'`, classID, userID)
	if err != nil {
		return fmt.Errorf("insert attendee: %w", err)
	}
	return nil
}

func (r *Repository) MarkAttendeeTx(ctx context.Context, tx *sqlx.Tx, classID, userID uuid.UUID, from, to AttendeeStatus) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE class_attendees
		SET status = $4, updated_at = NOW()
		WHERE class_id = $1 AND user_id = $2 AND status = $3`, classID, userID, from, to)
	if err != nil {
		return fmt.Errorf("update attendee: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotAttendee
	}
	return nil
}

// JoinedAttendeesTx lists attendees still holding a seat, in join order
func (r *Repository) JoinedAttendeesTx(ctx context.Context, tx *sqlx.Tx, classID uuid.UUID) ([]Attendee, error) {
	attendees := []Attendee{}
	err := tx.SelectContext(ctx, &attendees, `
		SELECT class_id, user_id, status, joined_at, updated_at
		FROM class_attendees
		WHERE class_id = $1 AND status = 'joined'
		ORDER BY joined_at ASC`, classID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return attendees, nil
}

// Attendees lists all attendees of a class regardless of status
func (r *Repository) Attendees(ctx context.Context, classID uuid.UUID) ([]Attendee, error) {
	attendees := []Attendee{}
	err := r.db.SelectContext(ctx, &attendees, `
		SELECT class_id, user_id, status, joined_at, updated_at
		FROM class_attendees
		WHERE class_id = $1
		ORDER BY joined_at ASC`, classID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return attendees, nil
}
