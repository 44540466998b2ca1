package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/skillswap-api/internal/pkg/events"
)

// Sweeper cancels reservations whose deadline has passed while the session
// was never accepted. Each hold is cancelled in its own transaction, so a
// per-item failure never aborts the batch, and re-checking the hold under
// lock makes overlapping runs no-ops.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper creates an expiration sweeper
func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
	if interval == 0 {
		interval = 1 * time.Hour
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop
func (w *Sweeper) Start() {
	log.Info().Dur("interval", w.interval).Msg("Starting reservation sweeper...")
	go w.loop()
}

// Stop gracefully stops the sweeper
func (w *Sweeper) Stop() {
	log.Info().Msg("Stopping reservation sweeper...")
	close(w.stopCh)
}

func (w *Sweeper) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.runSweep()

	for {
		select {
		case <-ticker.C:
			w.runSweep()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Sweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := w.SweepOnce(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Reservation sweep failed")
		return
	}
	if result.CancelledCount > 0 {
		log.Info().Int("cancelled", result.CancelledCount).Msg("Released expired reservations")
	}
}

// SweepOnce scans for expired unaccepted holds and cancels each one.
// Safe to call concurrently and on demand.
func (w *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	result := SweepResult{CancelledIDs: make([]uuid.UUID, 0)}

	holds, err := w.svc.repo.ExpiredSessionHolds(ctx, time.Now(), 500)
	if err != nil {
		return result, err
	}

	for _, hold := range holds {
		cancelled, err := w.cancelExpiredHold(ctx, hold)
		if err != nil {
			// Per-item failures are logged and skipped
			log.Error().Err(err).
				Str("entry_id", hold.ID.String()).
				Str("user_id", hold.UserID.String()).
				Msg("Failed to release expired reservation")
			continue
		}
		if cancelled {
			result.CancelledCount++
			result.CancelledIDs = append(result.CancelledIDs, hold.ID)
		}
	}

	if result.CancelledCount > 0 {
		w.svc.publisher.Publish(ctx, events.TypeHoldsSwept, map[string]interface{}{
			"cancelled_count": result.CancelledCount,
			"cancelled_ids":   result.CancelledIDs,
		})
	}

	return result, nil
}

// cancelExpiredHold re-checks the session and the hold under row locks
// before cancelling, so a concurrent accept or a second sweeper pass sees
// the entry already gone and skips it.
func (w *Sweeper) cancelExpiredHold(ctx context.Context, hold Entry) (bool, error) {
	if !hold.ReferenceID.Valid {
		return false, nil
	}
	sessionID := hold.ReferenceID.UUID

	tx, err := w.svc.repo.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lock session row: %w", err)
	}
	if status != "requested" {
		// Session progressed since the scan; leave the hold alone
		return false, nil
	}

	current, err := w.svc.repo.ActiveHoldTx(ctx, tx, hold.UserID, sessionID)
	if err != nil {
		return false, err
	}
	if current == nil || current.ID != hold.ID {
		return false, nil
	}
	if current.ExpiresAt == nil || current.ExpiresAt.After(time.Now()) {
		return false, nil
	}

	if err := w.svc.repo.MarkStatusTx(ctx, tx, current.ID, StatusReserved, StatusCancelled); err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET credits_locked = false, updated_at = NOW() WHERE id = $1
	`, sessionID)
	if err != nil {
		return false, fmt.Errorf("unlock session credits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}
