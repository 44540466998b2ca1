package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const coreMigration = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS users (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    display_name text NOT NULL DEFAULT '',
    credit_balance bigint NOT NULL DEFAULT 0,
    sessions_completed int NOT NULL DEFAULT 0,
    sessions_taught int NOT NULL DEFAULT 0,
    level int NOT NULL DEFAULT 1,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS skills (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    name text NOT NULL UNIQUE,
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sessions (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    learner_id uuid NOT NULL REFERENCES users(id),
    teacher_id uuid NOT NULL REFERENCES users(id),
    skill_id uuid NOT NULL REFERENCES skills(id),
    status text NOT NULL DEFAULT 'requested'
        CHECK (status IN ('requested','accepted','scheduled','in_progress','completed','cancelled','disputed')),
    credits_amount bigint NOT NULL CHECK (credits_amount > 0),
    credits_locked boolean NOT NULL DEFAULT false,
    message text NOT NULL DEFAULT '',
    scheduled_at timestamptz,
    started_at timestamptz,
    completed_at timestamptz,
    cancelled_at timestamptz,
    cancelled_by uuid REFERENCES users(id),
    cancellation_reason text NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW(),
    CONSTRAINT sessions_distinct_parties CHECK (learner_id <> teacher_id)
);

CREATE INDEX IF NOT EXISTS sessions_learner_idx ON sessions (learner_id);
CREATE INDEX IF NOT EXISTS sessions_teacher_idx ON sessions (teacher_id);
CREATE INDEX IF NOT EXISTS sessions_status_idx ON sessions (status);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id uuid NOT NULL REFERENCES users(id),
    amount bigint NOT NULL CHECK (amount <> 0),
    status text NOT NULL
        CHECK (status IN ('reserved','spent','earned','cancelled')),
    balance_after bigint NOT NULL,
    reference_id uuid,
    reference_type text NOT NULL DEFAULT ''
        CHECK (reference_type IN ('','session','bounty','live_class','adjustment')),
    related_entry_id uuid REFERENCES ledger_entries(id),
    description text NOT NULL DEFAULT '',
    expires_at timestamptz,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

-- At most one active hold per (user, reference)
CREATE UNIQUE INDEX IF NOT EXISTS ledger_entries_active_hold_unique
ON ledger_entries (user_id, reference_id)
WHERE status = 'reserved';

CREATE INDEX IF NOT EXISTS ledger_entries_user_idx ON ledger_entries (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS ledger_entries_reference_idx ON ledger_entries (reference_id);
CREATE INDEX IF NOT EXISTS ledger_entries_expiry_idx ON ledger_entries (expires_at)
WHERE status = 'reserved' AND expires_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS bounties (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    poster_id uuid NOT NULL REFERENCES users(id),
    skill_id uuid NOT NULL REFERENCES skills(id),
    credits_amount bigint NOT NULL CHECK (credits_amount > 0),
    min_level int NOT NULL DEFAULT 1,
    status text NOT NULL DEFAULT 'open'
        CHECK (status IN ('open','claimed','cancelled')),
    description text NOT NULL DEFAULT '',
    session_id uuid REFERENCES sessions(id),
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS bounties_status_idx ON bounties (status);

CREATE TABLE IF NOT EXISTS live_classes (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    host_id uuid NOT NULL REFERENCES users(id),
    skill_id uuid NOT NULL REFERENCES skills(id),
    title text NOT NULL DEFAULT '',
    credits_per_seat bigint NOT NULL CHECK (credits_per_seat > 0),
    capacity int NOT NULL CHECK (capacity > 0),
    status text NOT NULL DEFAULT 'scheduled'
        CHECK (status IN ('scheduled','in_progress','completed','cancelled')),
    starts_at timestamptz NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS class_attendees (
    class_id uuid NOT NULL REFERENCES live_classes(id),
    user_id uuid NOT NULL REFERENCES users(id),
    status text NOT NULL DEFAULT 'joined'
        CHECK (status IN ('joined','left','settled')),
    joined_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW(),
    PRIMARY KEY (class_id, user_id)
);
`

// RunMigrations applies the idempotent core schema. It runs at startup and
// from integration tests.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, coreMigration)
	return err
}
