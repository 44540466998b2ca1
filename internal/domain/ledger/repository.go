package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const entryColumns = `id, user_id, amount, status, balance_after, reference_id, reference_type, related_entry_id, description, expires_at, created_at, updated_at`

// Repository provides ledger storage and balance derivation. Balance-mutating
// methods are Tx-scoped so orchestrating services compose them with their own
// row locks inside a single transaction.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// LockUserTx takes the row lock that serializes all balance mutations for a
// user, returning the cached balance.
func (r *Repository) LockUserTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx, `SELECT credit_balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("lock user row: %w", err)
	}
	return balance, nil
}

type balanceRow struct {
	Total    int64 `db:"total"`
	Reserved int64 `db:"reserved"`
}

const balanceQuery = `
	SELECT
		COALESCE(SUM(amount) FILTER (WHERE status IN ('spent','earned')), 0) AS total,
		COALESCE(SUM(-amount) FILTER (WHERE status = 'reserved'), 0) AS reserved
	FROM ledger_entries
	WHERE user_id = $1`

// Balance computes {total, reserved, available} from the ledger. Pure read.
func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (Balance, error) {
	var row balanceRow
	if err := r.db.GetContext(ctx, &row, balanceQuery, userID); err != nil {
		return Balance{}, fmt.Errorf("compute balance: %w", err)
	}
	return Balance{Total: row.Total, Reserved: row.Reserved, Available: row.Total - row.Reserved}, nil
}

// BalanceTx computes the balance inside a transaction, after the caller has
// taken the user row lock, so the read-check-write sequence is race-free.
func (r *Repository) BalanceTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (Balance, error) {
	var row balanceRow
	if err := tx.GetContext(ctx, &row, balanceQuery, userID); err != nil {
		return Balance{}, fmt.Errorf("compute balance: %w", err)
	}
	return Balance{Total: row.Total, Reserved: row.Reserved, Available: row.Total - row.Reserved}, nil
}

// ActiveHoldTx locks and returns the active reserved entry for
// (user, reference), or nil when none exists.
func (r *Repository) ActiveHoldTx(ctx context.Context, tx *sqlx.Tx, userID, referenceID uuid.UUID) (*Entry, error) {
	var e Entry
	err := tx.GetContext(ctx, &e, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1 AND reference_id = $2 AND status = 'reserved'
		FOR UPDATE
	`, userID, referenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock active hold: %w", err)
	}
	return &e, nil
}

// InsertEntryTx appends a ledger row and fills in generated fields
func (r *Repository) InsertEntryTx(ctx context.Context, tx *sqlx.Tx, e *Entry) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (user_id, amount, status, balance_after, reference_id, reference_type, related_entry_id, description, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, e.UserID, e.Amount, e.Status, e.BalanceAfter, e.ReferenceID, e.ReferenceType, e.RelatedEntryID, e.Description, e.ExpiresAt).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// MarkStatusTx transitions an entry between lifecycle states. The WHERE
// guard on the prior status makes concurrent transitions lose cleanly.
func (r *Repository) MarkStatusTx(ctx context.Context, tx *sqlx.Tx, entryID uuid.UUID, from, to EntryStatus) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, entryID, from, to)
	if err != nil {
		return fmt.Errorf("mark entry %s: %w", to, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark entry %s: %w", to, err)
	}
	if rows == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// MarkSpentTx finalizes a hold and refreshes its balance snapshot to the
// payer's total at settlement time.
func (r *Repository) MarkSpentTx(ctx context.Context, tx *sqlx.Tx, entryID uuid.UUID, balanceAfter int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries
		SET status = 'spent', balance_after = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'reserved'
	`, entryID, balanceAfter)
	if err != nil {
		return fmt.Errorf("mark entry spent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark entry spent: %w", err)
	}
	if rows == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// UpdateCachedBalanceTx adjusts the denormalized users.credit_balance column
// in the same transaction as the ledger write that changes the total.
func (r *Repository) UpdateCachedBalanceTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx, `
		UPDATE users
		SET credit_balance = credit_balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING credit_balance
	`, userID, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("update cached balance: %w", err)
	}
	return balance, nil
}

// ClearHoldExpiryTx removes the expiration deadline from an active hold
// (called when the session leaves the sweepable state)
func (r *Repository) ClearHoldExpiryTx(ctx context.Context, tx *sqlx.Tx, referenceID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries
		SET expires_at = NULL, updated_at = NOW()
		WHERE reference_id = $1 AND status = 'reserved'
	`, referenceID)
	if err != nil {
		return fmt.Errorf("clear hold expiry: %w", err)
	}
	return nil
}

// RepointHoldTx moves an active hold to a new reference (bounty claim ties
// the poster's hold to the spawned session)
func (r *Repository) RepointHoldTx(ctx context.Context, tx *sqlx.Tx, userID, fromRef uuid.UUID, to Reference) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries
		SET reference_id = $3, reference_type = $4, updated_at = NOW()
		WHERE user_id = $1 AND reference_id = $2 AND status = 'reserved'
	`, userID, fromRef, to.ID, to.Type)
	if err != nil {
		return fmt.Errorf("repoint hold: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("repoint hold: %w", err)
	}
	if rows == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// SettlementByReference returns the prior spent/earned entry pair for a
// reference, for idempotent settle returns. Both results are nil when the
// reference was never settled.
func (r *Repository) SettlementByReference(ctx context.Context, referenceID, payerID uuid.UUID) (debit, credit *Entry, err error) {
	var d Entry
	err = r.db.GetContext(ctx, &d, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1 AND reference_id = $2 AND status = 'spent'
		LIMIT 1
	`, payerID, referenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("load debit entry: %w", err)
	}

	var c Entry
	err = r.db.GetContext(ctx, &c, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE related_entry_id = $1 AND status = 'earned'
		LIMIT 1
	`, d.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &d, nil, nil
		}
		return nil, nil, fmt.Errorf("load credit entry: %w", err)
	}
	return &d, &c, nil
}

// Entries returns paginated history for a user, newest first
func (r *Repository) Entries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	entries := make([]Entry, 0)
	err := r.db.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// ExpiredSessionHolds finds reserved entries whose deadline has passed and
// whose session never progressed past the requested state
func (r *Repository) ExpiredSessionHolds(ctx context.Context, now time.Time, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 500
	}

	entries := make([]Entry, 0)
	err := r.db.SelectContext(ctx, &entries, `
		SELECT e.id, e.user_id, e.amount, e.status, e.balance_after, e.reference_id, e.reference_type,
		       e.related_entry_id, e.description, e.expires_at, e.created_at, e.updated_at
		FROM ledger_entries e
		JOIN sessions s ON s.id = e.reference_id
		WHERE e.status = 'reserved'
		  AND e.reference_type = 'session'
		  AND e.expires_at IS NOT NULL
		  AND e.expires_at < $1
		  AND s.status = 'requested'
		ORDER BY e.expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find expired holds: %w", err)
	}
	return entries, nil
}

// ReconcileUser returns the ledger-derived total alongside the cached
// balance column; the two must always agree after a committed transaction
func (r *Repository) ReconcileUser(ctx context.Context, userID uuid.UUID) (ledgerTotal, cached int64, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE((SELECT SUM(amount) FROM ledger_entries WHERE user_id = $1 AND status IN ('spent','earned')), 0),
			(SELECT credit_balance FROM users WHERE id = $1)
	`, userID).Scan(&ledgerTotal, &cached)
	if err != nil {
		return 0, 0, fmt.Errorf("reconcile balance: %w", err)
	}
	return ledgerTotal, cached, nil
}
