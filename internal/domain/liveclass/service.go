package liveclass

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/skillswap-api/internal/domain/ledger"
	"github.com/skillswap/skillswap-api/internal/domain/skill"
	"github.com/skillswap/skillswap-api/internal/pkg/events"
)

// Result bundles a class with the ledger side effects of the operation
// that produced it
type Result struct {
	Class       *Class
	Hold        *ledger.Entry
	Released    *ledger.Entry
	Settlements []ledger.Settlement
	// SettleFailures counts attendees whose settlement failed and will be
	// retried on the next complete call
	SettleFailures int
}

type Service struct {
	repo      *Repository
	ledger    *ledger.Service
	skills    *skill.Repository
	publisher *events.Publisher
}

func NewService(repo *Repository, ledgerSvc *ledger.Service, skills *skill.Repository, publisher *events.Publisher) *Service {
	return &Service{repo: repo, ledger: ledgerSvc, skills: skills, publisher: publisher}
}

type CreateInput struct {
	SkillID        uuid.UUID
	Title          string
	CreditsPerSeat int64
	Capacity       int
	StartsAt       time.Time
}

// Create schedules a new class. No credits move until attendees join.
func (s *Service) Create(ctx context.Context, hostID uuid.UUID, in CreateInput) (*Result, error) {
	if in.CreditsPerSeat <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if !in.StartsAt.After(time.Now()) {
		return nil, ErrStartsInPast
	}
	if exists, err := s.skills.Exists(ctx, in.SkillID); err != nil {
		return nil, err
	} else if !exists {
		return nil, skill.ErrNotFound
	}

	c := &Class{
		ID:             uuid.New(),
		HostID:         hostID,
		SkillID:        in.SkillID,
		Title:          in.Title,
		CreditsPerSeat: in.CreditsPerSeat,
		Capacity:       in.Capacity,
		Status:         StatusScheduled,
		StartsAt:       in.StartsAt,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeClassCreated, map[string]interface{}{
		"class_id":  c.ID,
		"host_id":   c.HostID,
		"capacity":  c.Capacity,
		"starts_at": c.StartsAt,
	})

	return &Result{Class: c}, nil
}

// Join takes a seat: the capacity check and the credit hold happen under
// the class row lock, so the class can never oversell. Joining twice
// returns the existing hold.
func (s *Service) Join(ctx context.Context, userID, classID uuid.UUID) (*Result, error) {
	var (
		c    *Class
		hold *ledger.Entry
	)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		c, err = s.repo.GetForUpdateTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		if c.HostID == userID {
			return ErrHostJoin
		}
		if c.Status != StatusScheduled {
			return ErrNotJoinable
		}

		attendee, err := s.repo.GetAttendeeTx(ctx, tx, classID, userID)
		if err != nil {
			return err
		}
		if attendee == nil || attendee.Status == AttendeeLeft {
			joined, err := s.repo.CountJoinedTx(ctx, tx, classID)
			if err != nil {
				return err
			}
			if joined >= c.Capacity {
				return ErrClassFull
			}
			if err := s.repo.InsertAttendeeTx(ctx, tx, classID, userID); err != nil {
				return err
			}
		}

		hold, err = s.ledger.ReserveTx(ctx, tx, userID, c.CreditsPerSeat,
			ledger.Reference{ID: classID, Type: ledger.ReferenceLiveClass}, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeClassJoined, map[string]interface{}{
		"class_id": classID,
		"user_id":  userID,
	})
	return &Result{Class: c, Hold: hold}, nil
}

// Leave gives up a seat any time before the class completes, releasing
// the hold. An attendee leaving a running class pays nothing: complete
// settles only attendees still joined. Leaving twice is a no-op.
func (s *Service) Leave(ctx context.Context, userID, classID uuid.UUID) (*Result, error) {
	var (
		c        *Class
		released *ledger.Entry
	)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		c, err = s.repo.GetForUpdateTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		if c.Status != StatusScheduled && c.Status != StatusInProgress {
			return ErrNotJoinable
		}

		attendee, err := s.repo.GetAttendeeTx(ctx, tx, classID, userID)
		if err != nil {
			return err
		}
		if attendee == nil {
			return ErrNotAttendee
		}
		if attendee.Status == AttendeeLeft {
			return nil
		}
		if attendee.Status != AttendeeJoined {
			return ErrNotAttendee
		}

		if err := s.repo.MarkAttendeeTx(ctx, tx, classID, userID, AttendeeJoined, AttendeeLeft); err != nil {
			return err
		}
		released, err = s.ledger.ReleaseTx(ctx, tx, userID, classID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeClassLeft, map[string]interface{}{
		"class_id": classID,
		"user_id":  userID,
	})
	return &Result{Class: c, Released: released}, nil
}

// Start moves the class to in_progress (host only). No new attendees can
// join from here on; leaving early is still allowed.
func (s *Service) Start(ctx context.Context, hostID, classID uuid.UUID) (*Result, error) {
	var c *Class
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		c, err = s.repo.GetForUpdateTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		if c.HostID != hostID {
			return ErrNotHost
		}
		if c.Status == StatusInProgress {
			return nil
		}
		if c.Status != StatusScheduled {
			return ErrInvalidStatus
		}
		if err := s.repo.MarkStatusTx(ctx, tx, classID, StatusScheduled, StatusInProgress); err != nil {
			return err
		}
		c.Status = StatusInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeClassStarted, map[string]interface{}{
		"class_id": classID,
	})
	return &Result{Class: c}, nil
}

// Complete settles each remaining attendee's hold to the host. Each
// settlement runs in its own transaction: one attendee's failure never
// blocks the others, and re-running complete retries only the attendees
// still unsettled.
func (s *Service) Complete(ctx context.Context, hostID, classID uuid.UUID) (*Result, error) {
	var (
		c         *Class
		attendees []Attendee
	)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		c, err = s.repo.GetForUpdateTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		if c.HostID != hostID {
			return ErrNotHost
		}
		switch c.Status {
		case StatusInProgress:
			if err := s.repo.MarkStatusTx(ctx, tx, classID, StatusInProgress, StatusCompleted); err != nil {
				return err
			}
			c.Status = StatusCompleted
		case StatusCompleted:
			// re-run: settle stragglers only
		default:
			return ErrInvalidStatus
		}

		attendees, err = s.repo.JoinedAttendeesTx(ctx, tx, classID)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Class: c}
	for _, a := range attendees {
		settlement, err := s.settleAttendee(ctx, c, a.UserID)
		if err != nil {
			log.Error().Err(err).
				Str("class_id", classID.String()).
				Str("user_id", a.UserID.String()).
				Msg("Failed to settle class attendee")
			result.SettleFailures++
			continue
		}
		result.Settlements = append(result.Settlements, *settlement)
	}

	s.publisher.Publish(ctx, events.TypeClassCompleted, map[string]interface{}{
		"class_id":         classID,
		"host_id":          c.HostID,
		"settled_count":    len(result.Settlements),
		"failed_count":     result.SettleFailures,
		"credits_per_seat": c.CreditsPerSeat,
	})

	return result, nil
}

// Cancel calls off the class and releases every remaining hold. Each
// release runs in its own transaction so one failure never blocks the
// rest; re-running cancel picks up the stragglers.
func (s *Service) Cancel(ctx context.Context, hostID, classID uuid.UUID) (*Result, error) {
	var (
		c         *Class
		attendees []Attendee
	)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		c, err = s.repo.GetForUpdateTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		if c.HostID != hostID {
			return ErrNotHost
		}
		switch c.Status {
		case StatusScheduled, StatusInProgress:
			if err := s.repo.MarkStatusTx(ctx, tx, classID, c.Status, StatusCancelled); err != nil {
				return err
			}
			c.Status = StatusCancelled
		case StatusCancelled:
			// re-run: release stragglers only
		default:
			return ErrInvalidStatus
		}

		attendees, err = s.repo.JoinedAttendeesTx(ctx, tx, classID)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Class: c}
	for _, a := range attendees {
		if err := s.releaseAttendee(ctx, classID, a.UserID); err != nil {
			log.Error().Err(err).
				Str("class_id", classID.String()).
				Str("user_id", a.UserID.String()).
				Msg("Failed to release class attendee hold")
			result.SettleFailures++
		}
	}

	s.publisher.Publish(ctx, events.TypeClassCancelled, map[string]interface{}{
		"class_id": classID,
		"host_id":  c.HostID,
	})

	return result, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Class, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUpcoming(ctx context.Context, limit, offset int) ([]Class, error) {
	return s.repo.ListUpcoming(ctx, limit, offset)
}

func (s *Service) Attendees(ctx context.Context, classID uuid.UUID) ([]Attendee, error) {
	return s.repo.Attendees(ctx, classID)
}

func (s *Service) settleAttendee(ctx context.Context, c *Class, userID uuid.UUID) (*ledger.Settlement, error) {
	var settlement *ledger.Settlement
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.repo.GetForUpdateTx(ctx, tx, c.ID); err != nil {
			return err
		}
		var err error
		settlement, err = s.ledger.SettleTx(ctx, tx, userID, c.HostID,
			ledger.Reference{ID: c.ID, Type: ledger.ReferenceLiveClass}, c.CreditsPerSeat)
		if err != nil {
			return err
		}
		return s.repo.MarkAttendeeTx(ctx, tx, c.ID, userID, AttendeeJoined, AttendeeSettled)
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *Service) releaseAttendee(ctx context.Context, classID, userID uuid.UUID) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.repo.GetForUpdateTx(ctx, tx, classID); err != nil {
			return err
		}
		if _, err := s.ledger.ReleaseTx(ctx, tx, userID, classID); err != nil {
			return err
		}
		return s.repo.MarkAttendeeTx(ctx, tx, classID, userID, AttendeeJoined, AttendeeLeft)
	})
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
