package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Event types emitted by the ledger/session core. External subsystems
// (notifications, reputation) subscribe to these channels; nothing here
// runs inside a database transaction.
const (
	TypeSessionRequested = "session.requested"
	TypeSessionAccepted  = "session.accepted"
	TypeSessionScheduled = "session.scheduled"
	TypeSessionStarted   = "session.started"
	TypeSessionCompleted = "session.completed"
	TypeSessionCancelled = "session.cancelled"
	TypeSessionDisputed  = "session.disputed"
	TypeBountyPosted     = "bounty.posted"
	TypeBountyClaimed    = "bounty.claimed"
	TypeBountyCancelled  = "bounty.cancelled"
	TypeClassCreated     = "class.created"
	TypeClassJoined      = "class.joined"
	TypeClassLeft        = "class.left"
	TypeClassStarted     = "class.started"
	TypeClassCompleted   = "class.completed"
	TypeClassCancelled   = "class.cancelled"
	TypeHoldsSwept       = "ledger.holds_swept"
	TypeBalanceAdjusted  = "ledger.balance_adjusted"
)

const channelPrefix = "events:"

// Event is the envelope published for every domain event
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Publisher publishes domain events to Redis pub/sub after commit.
// A nil Redis client disables publishing (events are logged and dropped).
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates an event publisher
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish sends the event on the "events:<type>" channel. Failures are
// logged, never returned: a dropped event must not fail the request whose
// transaction already committed.
func (p *Publisher) Publish(ctx context.Context, eventType string, data interface{}) {
	event := Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}

	if p == nil || p.rdb == nil {
		log.Debug().Str("event_type", eventType).Msg("Event publishing disabled, dropping event")
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to marshal domain event")
		return
	}

	if err := p.rdb.Publish(ctx, channelPrefix+eventType, payload).Err(); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to publish domain event")
	}
}
