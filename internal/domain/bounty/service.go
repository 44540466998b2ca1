package bounty

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-api/internal/domain/ledger"
	"github.com/skillswap/skillswap-api/internal/domain/session"
	"github.com/skillswap/skillswap-api/internal/domain/skill"
	"github.com/skillswap/skillswap-api/internal/domain/user"
	"github.com/skillswap/skillswap-api/internal/pkg/events"
)

// Result bundles a bounty with the ledger and session side effects of the
// operation that produced it
type Result struct {
	Bounty   *Bounty
	Hold     *ledger.Entry
	Released *ledger.Entry
	Session  *session.Session
}

type Service struct {
	repo      *Repository
	sessions  *session.Repository
	ledger    *ledger.Service
	users     *user.Repository
	skills    *skill.Repository
	publisher *events.Publisher
}

func NewService(repo *Repository, sessions *session.Repository, ledgerSvc *ledger.Service, users *user.Repository, skills *skill.Repository, publisher *events.Publisher) *Service {
	return &Service{
		repo:      repo,
		sessions:  sessions,
		ledger:    ledgerSvc,
		users:     users,
		skills:    skills,
		publisher: publisher,
	}
}

type PostInput struct {
	SkillID       uuid.UUID
	CreditsAmount int64
	MinLevel      int
	Description   string
}

// Post creates an open bounty and reserves the poster's credits. The hold
// carries no expiration: a bounty stands until claimed or cancelled.
func (s *Service) Post(ctx context.Context, posterID uuid.UUID, in PostInput) (*Result, error) {
	if in.CreditsAmount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if in.MinLevel < 1 {
		in.MinLevel = 1
	}
	if exists, err := s.skills.Exists(ctx, in.SkillID); err != nil {
		return nil, err
	} else if !exists {
		return nil, skill.ErrNotFound
	}

	b := &Bounty{
		ID:            uuid.New(),
		PosterID:      posterID,
		SkillID:       in.SkillID,
		CreditsAmount: in.CreditsAmount,
		MinLevel:      in.MinLevel,
		Status:        StatusOpen,
		Description:   in.Description,
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.repo.CreateTx(ctx, tx, b); err != nil {
		return nil, err
	}

	hold, err := s.ledger.ReserveTx(ctx, tx, posterID, in.CreditsAmount,
		ledger.Reference{ID: b.ID, Type: ledger.ReferenceBounty}, nil)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publisher.Publish(ctx, events.TypeBountyPosted, map[string]interface{}{
		"bounty_id": b.ID,
		"poster_id": b.PosterID,
		"credits":   b.CreditsAmount,
		"min_level": b.MinLevel,
	})

	return &Result{Bounty: b, Hold: hold}, nil
}

// Claim converts an open bounty into an accepted session taught by the
// claimer. The poster's hold is re-pointed at the new session so the
// standard completion path settles it.
func (s *Service) Claim(ctx context.Context, claimerID, bountyID uuid.UUID) (*Result, error) {
	claimer, err := s.users.GetByID(ctx, claimerID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	b, err := s.repo.GetForUpdateTx(ctx, tx, bountyID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusOpen {
		return nil, ErrNotOpen
	}
	if b.PosterID == claimerID {
		return nil, ErrOwnBounty
	}
	if claimer.Level < b.MinLevel {
		return nil, fmt.Errorf("%w: level %d, need %d", ErrLevelTooLow, claimer.Level, b.MinLevel)
	}

	sess := &session.Session{
		ID:            uuid.New(),
		LearnerID:     b.PosterID,
		TeacherID:     claimerID,
		SkillID:       b.SkillID,
		Status:        session.StatusAccepted,
		CreditsAmount: b.CreditsAmount,
		CreditsLocked: true,
		Message:       b.Description,
	}
	if err := s.sessions.CreateTx(ctx, tx, sess); err != nil {
		return nil, err
	}

	if err := s.ledger.Repo().RepointHoldTx(ctx, tx, b.PosterID, b.ID,
		ledger.Reference{ID: sess.ID, Type: ledger.ReferenceSession}); err != nil {
		return nil, err
	}

	if err := s.repo.MarkClaimedTx(ctx, tx, b.ID, sess.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	b.Status = StatusClaimed
	b.SessionID = uuid.NullUUID{UUID: sess.ID, Valid: true}

	s.publisher.Publish(ctx, events.TypeBountyClaimed, map[string]interface{}{
		"bounty_id":  b.ID,
		"claimer_id": claimerID,
		"session_id": sess.ID,
	})

	return &Result{Bounty: b, Session: sess}, nil
}

// Cancel withdraws an open bounty and releases the poster's hold.
// Cancelling an already-cancelled bounty is a no-op.
func (s *Service) Cancel(ctx context.Context, actorID, bountyID uuid.UUID) (*Result, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	b, err := s.repo.GetForUpdateTx(ctx, tx, bountyID)
	if err != nil {
		return nil, err
	}
	if b.PosterID != actorID {
		return nil, ErrNotPoster
	}
	if b.Status == StatusCancelled {
		return &Result{Bounty: b}, nil
	}
	if b.Status != StatusOpen {
		return nil, ErrNotOpen
	}

	released, err := s.ledger.ReleaseTx(ctx, tx, b.PosterID, b.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkCancelledTx(ctx, tx, b.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	b.Status = StatusCancelled

	s.publisher.Publish(ctx, events.TypeBountyCancelled, map[string]interface{}{
		"bounty_id": b.ID,
		"poster_id": b.PosterID,
	})

	return &Result{Bounty: b, Released: released}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Bounty, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListOpen(ctx context.Context, limit, offset int) ([]Bounty, error) {
	return s.repo.ListOpen(ctx, limit, offset)
}

func (s *Service) ListByPoster(ctx context.Context, posterID uuid.UUID, limit, offset int) ([]Bounty, error) {
	return s.repo.ListByPoster(ctx, posterID, limit, offset)
}
