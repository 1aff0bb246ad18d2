package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates every table the server needs. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	unique_id     TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	avatar        TEXT,
	status        TEXT NOT NULL DEFAULT 'offline',
	is_online     BOOLEAN NOT NULL DEFAULT FALSE,
	last_seen     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS profiles_email_key ON profiles (LOWER(email));

CREATE TABLE IF NOT EXISTS contacts (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	requester_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	target_id    TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	status       TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'blocked')),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (requester_id <> target_id)
);
CREATE UNIQUE INDEX IF NOT EXISTS contacts_pair_key
	ON contacts (LEAST(requester_id, target_id), GREATEST(requester_id, target_id));
CREATE INDEX IF NOT EXISTS contacts_requester_idx ON contacts (requester_id);
CREATE INDEX IF NOT EXISTS contacts_target_idx ON contacts (target_id);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id      TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	actor_id     TEXT NOT NULL,
	type         TEXT NOT NULL,
	reference_id TEXT NOT NULL DEFAULT '',
	read         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL DEFAULT '',
	icon       TEXT,
	kind       TEXT NOT NULL CHECK (kind IN ('direct', 'group', 'vault')),
	created_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS room_members (
	room_id   TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id   TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (room_id, user_id)
);
CREATE INDEX IF NOT EXISTS room_members_user_idx ON room_members (user_id);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	room_id    TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	sender_id  TEXT NOT NULL,
	content    TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'text',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS messages_room_idx ON messages (room_id, created_at DESC);
`

// Migrate applies Schema
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
