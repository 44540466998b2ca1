package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned when amount is <= 0 (or zero for adjustments)
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrInsufficientBalance is returned when available balance is less than required
	ErrInsufficientBalance = errors.New("insufficient available balance")

	// ErrUserNotFound is returned when the balance owner doesn't exist
	ErrUserNotFound = errors.New("user not found")

	// ErrReservationNotFound means settle was called with no active hold.
	// reserve() always precedes settle(), so this indicates a bug or tampering.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrInsufficientReservedAmount is a defensive check: the locked hold
	// covers less than the amount the session says it should
	ErrInsufficientReservedAmount = errors.New("reserved amount less than settlement amount")

	// ErrEntryNotFound is returned when a status transition matched no row
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// InsufficientBalanceError carries the available/required amounts so the
// calling layer can surface them. errors.Is(err, ErrInsufficientBalance)
// matches it.
type InsufficientBalanceError struct {
	Available int64
	Required  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient available balance: have %d, need %d", e.Available, e.Required)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}
