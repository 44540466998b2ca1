package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillswap/skillswap-api/internal/pkg/events"
)

// Service implements the reservation manager and settlement engine on top of
// the append-only ledger. All mutations lock the owning user row first, so
// read-check-write balance sequences are serialized per user.
type Service struct {
	repo      *Repository
	publisher *events.Publisher
}

func NewService(db *sqlx.DB, publisher *events.Publisher) *Service {
	return &Service{repo: NewRepository(db), publisher: publisher}
}

func (s *Service) Repo() *Repository { return s.repo }

// Balance returns {total, reserved, available} for a user. Pure read.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (Balance, error) {
	return s.repo.Balance(ctx, userID)
}

// Entries returns paginated ledger history for a user
func (s *Service) Entries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, error) {
	return s.repo.Entries(ctx, userID, limit, offset)
}

// Reserve holds amount credits against a reference in its own transaction
func (s *Service) Reserve(ctx context.Context, userID uuid.UUID, amount int64, ref Reference, expiresAt *time.Time) (*Entry, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	entry, err := s.ReserveTx(ctx, tx, userID, amount, ref, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return entry, nil
}

// ReserveTx holds amount credits within an external transaction. Idempotent:
// an existing active hold for the same (user, reference) is returned
// unchanged so callers may safely retry.
func (s *Service) ReserveTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, ref Reference, expiresAt *time.Time) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if _, err := s.repo.LockUserTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	if existing, err := s.repo.ActiveHoldTx(ctx, tx, userID, ref.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	balance, err := s.repo.BalanceTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if balance.Available < amount {
		return nil, &InsufficientBalanceError{Available: balance.Available, Required: amount}
	}

	entry := &Entry{
		UserID:        userID,
		Amount:        -amount,
		Status:        StatusReserved,
		BalanceAfter:  balance.Total, // a hold does not move the total
		ReferenceID:   uuid.NullUUID{UUID: ref.ID, Valid: true},
		ReferenceType: string(ref.Type),
		Description:   fmt.Sprintf("hold %d credits for %s", amount, ref.Type),
		ExpiresAt:     expiresAt,
	}
	if err := s.repo.InsertEntryTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Release cancels the active hold for (user, reference) in its own
// transaction. Returns nil (not an error) when no active hold exists,
// supporting cancel-after-already-released flows.
func (s *Service) Release(ctx context.Context, userID, referenceID uuid.UUID) (*Entry, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	entry, err := s.ReleaseTx(ctx, tx, userID, referenceID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return entry, nil
}

// ReleaseTx cancels the active hold within an external transaction
func (s *Service) ReleaseTx(ctx context.Context, tx *sqlx.Tx, userID, referenceID uuid.UUID) (*Entry, error) {
	hold, err := s.repo.ActiveHoldTx(ctx, tx, userID, referenceID)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, nil
	}

	if err := s.repo.MarkStatusTx(ctx, tx, hold.ID, StatusReserved, StatusCancelled); err != nil {
		return nil, err
	}
	hold.Status = StatusCancelled
	return hold, nil
}

// SettleTx converts the payer's hold into a permanent spent/earned pair
// within an external transaction. The settled amount comes from the locked
// hold, never from caller input; expectAmount is a defensive cross-check
// (pass 0 to skip). Rows are locked payer first, payee second.
func (s *Service) SettleTx(ctx context.Context, tx *sqlx.Tx, payerID, payeeID uuid.UUID, ref Reference, expectAmount int64) (*Settlement, error) {
	if _, err := s.repo.LockUserTx(ctx, tx, payerID); err != nil {
		return nil, err
	}
	if _, err := s.repo.LockUserTx(ctx, tx, payeeID); err != nil {
		return nil, err
	}

	hold, err := s.repo.ActiveHoldTx(ctx, tx, payerID, ref.ID)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, ErrReservationNotFound
	}

	amount := hold.HeldAmount()
	if expectAmount > 0 && amount < expectAmount {
		return nil, fmt.Errorf("%w: held %d, need %d", ErrInsufficientReservedAmount, amount, expectAmount)
	}

	payerBalance, err := s.repo.UpdateCachedBalanceTx(ctx, tx, payerID, -amount)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkSpentTx(ctx, tx, hold.ID, payerBalance); err != nil {
		return nil, err
	}

	payeeBalance, err := s.repo.UpdateCachedBalanceTx(ctx, tx, payeeID, amount)
	if err != nil {
		return nil, err
	}

	credit := &Entry{
		UserID:         payeeID,
		Amount:         amount,
		Status:         StatusEarned,
		BalanceAfter:   payeeBalance,
		ReferenceID:    hold.ReferenceID,
		ReferenceType:  hold.ReferenceType,
		RelatedEntryID: uuid.NullUUID{UUID: hold.ID, Valid: true},
		Description:    fmt.Sprintf("earned %d credits for %s", amount, hold.ReferenceType),
	}
	if err := s.repo.InsertEntryTx(ctx, tx, credit); err != nil {
		return nil, err
	}

	return &Settlement{
		Amount:        amount,
		PayerID:       payerID,
		PayeeID:       payeeID,
		PayerBalance:  payerBalance,
		PayeeBalance:  payeeBalance,
		DebitEntryID:  hold.ID,
		CreditEntryID: credit.ID,
	}, nil
}

// PriorSettlement reconstructs the settlement result from the existing
// spent/earned pair, for idempotent settle retries. Returns nil when the
// reference was never settled.
func (s *Service) PriorSettlement(ctx context.Context, referenceID, payerID uuid.UUID) (*Settlement, error) {
	debit, credit, err := s.repo.SettlementByReference(ctx, referenceID, payerID)
	if err != nil {
		return nil, err
	}
	if debit == nil || credit == nil {
		return nil, nil
	}
	return &Settlement{
		Amount:        credit.Amount,
		PayerID:       debit.UserID,
		PayeeID:       credit.UserID,
		PayerBalance:  debit.BalanceAfter,
		PayeeBalance:  credit.BalanceAfter,
		DebitEntryID:  debit.ID,
		CreditEntryID: credit.ID,
	}, nil
}

// Adjust grants (positive delta) or deducts (negative delta) credits as a
// permanent entry with no session attached. Deductions are bounded by the
// available balance so they can never strand an active hold.
func (s *Service) Adjust(ctx context.Context, userID uuid.UUID, delta int64, description string) (*Entry, error) {
	if delta == 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(description) == "" {
		description = "credit balance adjustment"
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.repo.LockUserTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	if delta < 0 {
		balance, err := s.repo.BalanceTx(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		if balance.Available < -delta {
			return nil, &InsufficientBalanceError{Available: balance.Available, Required: -delta}
		}
	}

	newBalance, err := s.repo.UpdateCachedBalanceTx(ctx, tx, userID, delta)
	if err != nil {
		return nil, err
	}

	status := StatusEarned
	if delta < 0 {
		status = StatusSpent
	}
	entry := &Entry{
		UserID:        userID,
		Amount:        delta,
		Status:        status,
		BalanceAfter:  newBalance,
		ReferenceType: string(ReferenceAdjustment),
		Description:   description,
	}
	if err := s.repo.InsertEntryTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publisher.Publish(ctx, events.TypeBalanceAdjusted, map[string]interface{}{
		"user_id":       userID,
		"delta":         delta,
		"balance_after": entry.BalanceAfter,
		"entry_id":      entry.ID,
	})
	return entry, nil
}
