package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillswap/skillswap-api/internal/domain/ledger"
	"github.com/skillswap/skillswap-api/internal/domain/skill"
	"github.com/skillswap/skillswap-api/internal/domain/user"
	"github.com/skillswap/skillswap-api/internal/pkg/events"
)

// Result bundles a session with the ledger side effects of the transition
// that produced it
type Result struct {
	Session    *Session
	Hold       *ledger.Entry      // set by request
	Released   *ledger.Entry      // set by cancel when a hold was released
	Settlement *ledger.Settlement // set by complete
}

// Service drives the session state machine, calling into the ledger at the
// transitions that move credits. Every transition runs as one database
// transaction that locks the session row first.
type Service struct {
	repo           *Repository
	ledger         *ledger.Service
	users          *user.Repository
	skills         *skill.Repository
	publisher      *events.Publisher
	reservationTTL time.Duration
}

func NewService(repo *Repository, ledgerSvc *ledger.Service, users *user.Repository, skills *skill.Repository, publisher *events.Publisher, reservationTTL time.Duration) *Service {
	if reservationTTL == 0 {
		reservationTTL = 24 * time.Hour
	}
	return &Service{
		repo:           repo,
		ledger:         ledgerSvc,
		users:          users,
		skills:         skills,
		publisher:      publisher,
		reservationTTL: reservationTTL,
	}
}

// RequestInput carries the parameters of a new exchange request
type RequestInput struct {
	TeacherID     uuid.UUID
	SkillID       uuid.UUID
	CreditsAmount int64
	Message       string
}

// Request creates a session in the requested state and reserves the
// learner's credits in the same transaction. The hold expires after the
// reservation TTL unless the teacher accepts first.
func (s *Service) Request(ctx context.Context, learnerID uuid.UUID, in RequestInput) (*Result, error) {
	if learnerID == in.TeacherID {
		return nil, ErrSelfSession
	}
	if in.CreditsAmount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	if exists, err := s.users.Exists(ctx, in.TeacherID); err != nil {
		return nil, err
	} else if !exists {
		return nil, fmt.Errorf("teacher: %w", user.ErrNotFound)
	}
	if exists, err := s.skills.Exists(ctx, in.SkillID); err != nil {
		return nil, err
	} else if !exists {
		return nil, skill.ErrNotFound
	}

	sess := &Session{
		ID:            uuid.New(),
		LearnerID:     learnerID,
		TeacherID:     in.TeacherID,
		SkillID:       in.SkillID,
		Status:        StatusRequested,
		CreditsAmount: in.CreditsAmount,
		CreditsLocked: true,
		Message:       in.Message,
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.repo.CreateTx(ctx, tx, sess); err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.reservationTTL)
	hold, err := s.ledger.ReserveTx(ctx, tx, learnerID, in.CreditsAmount,
		ledger.Reference{ID: sess.ID, Type: ledger.ReferenceSession}, &expiresAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publisher.Publish(ctx, events.TypeSessionRequested, map[string]interface{}{
		"session_id": sess.ID,
		"learner_id": sess.LearnerID,
		"teacher_id": sess.TeacherID,
		"credits":    sess.CreditsAmount,
	})

	return &Result{Session: sess, Hold: hold}, nil
}

// Accept moves a requested session to accepted (teacher only) and removes
// the hold's expiration so the sweeper never touches it.
func (s *Service) Accept(ctx context.Context, actorID, sessionID uuid.UUID) (*Result, error) {
	var sess *Session
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		sess, err = s.repo.GetForUpdateTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !sess.IsParticipant(actorID) || actorID != sess.TeacherID {
			return ErrRoleViolation
		}
		if sess.Status == StatusAccepted {
			return nil // already in target state
		}
		if !CanTransition(sess.Status, TransitionAccept) {
			return &InvalidTransitionError{From: sess.Status, Op: TransitionAccept}
		}

		if err := s.repo.MarkAcceptedTx(ctx, tx, sessionID); err != nil {
			return err
		}
		if err := s.ledger.Repo().ClearHoldExpiryTx(ctx, tx, sessionID); err != nil {
			return err
		}
		sess.Status = StatusAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeSessionAccepted, map[string]interface{}{
		"session_id": sess.ID,
		"teacher_id": sess.TeacherID,
	})
	return &Result{Session: sess}, nil
}

// Schedule records a future meeting time on an accepted session
func (s *Service) Schedule(ctx context.Context, actorID, sessionID uuid.UUID, at time.Time) (*Result, error) {
	var sess *Session
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		sess, err = s.repo.GetForUpdateTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !sess.IsParticipant(actorID) {
			return ErrRoleViolation
		}
		if sess.Status == StatusScheduled {
			return nil
		}
		if !CanTransition(sess.Status, TransitionSchedule) {
			return &InvalidTransitionError{From: sess.Status, Op: TransitionSchedule}
		}
		if !at.After(time.Now()) {
			return ErrScheduleInPast
		}

		if err := s.repo.MarkScheduledTx(ctx, tx, sessionID, at); err != nil {
			return err
		}
		sess.Status = StatusScheduled
		sess.ScheduledAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeSessionScheduled, map[string]interface{}{
		"session_id":   sess.ID,
		"scheduled_at": sess.ScheduledAt,
	})
	return &Result{Session: sess}, nil
}

// Start moves an accepted or scheduled session to in_progress
func (s *Service) Start(ctx context.Context, actorID, sessionID uuid.UUID) (*Result, error) {
	var sess *Session
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		sess, err = s.repo.GetForUpdateTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !sess.IsParticipant(actorID) {
			return ErrRoleViolation
		}
		if sess.Status == StatusInProgress {
			return nil
		}
		if !CanTransition(sess.Status, TransitionStart) {
			return &InvalidTransitionError{From: sess.Status, Op: TransitionStart}
		}

		now := time.Now()
		if err := s.repo.MarkStartedTx(ctx, tx, sessionID, now); err != nil {
			return err
		}
		sess.Status = StatusInProgress
		sess.StartedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeSessionStarted, map[string]interface{}{
		"session_id": sess.ID,
	})
	return &Result{Session: sess}, nil
}

// Complete settles the session: exactly once, the learner's hold becomes a
// permanent debit and the teacher earns the same amount. Calling complete
// on an already-completed session returns the prior settlement.
func (s *Service) Complete(ctx context.Context, actorID, sessionID uuid.UUID) (*Result, error) {
	var (
		sess        *Session
		settlement  *ledger.Settlement
		alreadyDone bool
	)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		sess, err = s.repo.GetForUpdateTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !sess.IsParticipant(actorID) {
			return ErrRoleViolation
		}
		if sess.Status == StatusCompleted {
			alreadyDone = true
			return nil
		}
		if !CanTransition(sess.Status, TransitionComplete) {
			return &InvalidTransitionError{From: sess.Status, Op: TransitionComplete}
		}

		// The settled amount comes from the locked hold, not caller input;
		// the session amount is only a cross-check.
		settlement, err = s.ledger.SettleTx(ctx, tx, sess.LearnerID, sess.TeacherID,
			ledger.Reference{ID: sess.ID, Type: ledger.ReferenceSession}, sess.CreditsAmount)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := s.repo.MarkCompletedTx(ctx, tx, sessionID, now); err != nil {
			return err
		}
		if err := s.users.IncrementSessionCountersTx(ctx, tx, sess.LearnerID, sess.TeacherID); err != nil {
			return err
		}
		sess.Status = StatusCompleted
		sess.CompletedAt = &now
		sess.CreditsLocked = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyDone {
		prior, err := s.ledger.PriorSettlement(ctx, sessionID, sess.LearnerID)
		if err != nil {
			return nil, err
		}
		return &Result{Session: sess, Settlement: prior}, nil
	}

	s.publisher.Publish(ctx, events.TypeSessionCompleted, map[string]interface{}{
		"session_id":    sess.ID,
		"learner_id":    sess.LearnerID,
		"teacher_id":    sess.TeacherID,
		"credits":       settlement.Amount,
		"payer_balance": settlement.PayerBalance,
		"payee_balance": settlement.PayeeBalance,
	})
	return &Result{Session: sess, Settlement: settlement}, nil
}

// Cancel aborts a session from any non-terminal state, releasing the hold
// if one is still active. Cancelling an already-cancelled session is a
// no-op; cancelling a completed or disputed session is a hard error.
func (s *Service) Cancel(ctx context.Context, actorID, sessionID uuid.UUID, reason string) (*Result, error) {
	var (
		sess     *Session
		released *ledger.Entry
	)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		sess, err = s.repo.GetForUpdateTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !sess.IsParticipant(actorID) {
			return ErrRoleViolation
		}
		if sess.Status == StatusCancelled {
			return nil
		}
		if !CanTransition(sess.Status, TransitionCancel) {
			return &InvalidTransitionError{From: sess.Status, Op: TransitionCancel}
		}

		// Full release, no partial settlement, regardless of how far the
		// session progressed.
		released, err = s.ledger.ReleaseTx(ctx, tx, sess.LearnerID, sessionID)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := s.repo.MarkCancelledTx(ctx, tx, sessionID, actorID, reason, now); err != nil {
			return err
		}
		sess.Status = StatusCancelled
		sess.CancelledAt = &now
		sess.CancelledBy = uuid.NullUUID{UUID: actorID, Valid: true}
		sess.CancellationReason = reason
		sess.CreditsLocked = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeSessionCancelled, map[string]interface{}{
		"session_id":   sess.ID,
		"cancelled_by": actorID,
		"reason":       reason,
	})
	return &Result{Session: sess, Released: released}, nil
}

// Dispute flags a completed session for manual resolution. No ledger effect.
func (s *Service) Dispute(ctx context.Context, actorID, sessionID uuid.UUID) (*Result, error) {
	var sess *Session
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		sess, err = s.repo.GetForUpdateTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !sess.IsParticipant(actorID) {
			return ErrRoleViolation
		}
		if sess.Status == StatusDisputed {
			return nil
		}
		if !CanTransition(sess.Status, TransitionDispute) {
			return &InvalidTransitionError{From: sess.Status, Op: TransitionDispute}
		}

		if err := s.repo.MarkDisputedTx(ctx, tx, sessionID); err != nil {
			return err
		}
		sess.Status = StatusDisputed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeSessionDisputed, map[string]interface{}{
		"session_id": sess.ID,
	})
	return &Result{Session: sess}, nil
}

// Get returns a session the actor participates in
func (s *Service) Get(ctx context.Context, actorID, sessionID uuid.UUID) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsParticipant(actorID) {
		return nil, ErrRoleViolation
	}
	return sess, nil
}

// ListByUser returns the actor's sessions, newest first. An empty
// status matches all.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]Session, error) {
	return s.repo.ListByUser(ctx, userID, status, limit, offset)
}

func (s *Service) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
