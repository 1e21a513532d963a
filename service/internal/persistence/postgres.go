package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the SQL layout backing Postgres, kept here as the single source
// of truth for the table shapes Postgres's queries assume. The server
// applies it itself at startup when persistence is enabled; every statement
// is CREATE TABLE IF NOT EXISTS, so applying it again is harmless.
const Schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id            TEXT PRIMARY KEY,
	room_code     TEXT NOT NULL,
	status        TEXT NOT NULL,
	host_user_id  TEXT NOT NULL,
	version       INTEGER NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS room_snapshots (
	room_id          TEXT NOT NULL REFERENCES rooms(id),
	transition_type  TEXT NOT NULL,
	version          INTEGER NOT NULL,
	payload          JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matches (
	id              TEXT PRIMARY KEY,
	room_id         TEXT NOT NULL REFERENCES rooms(id),
	winner_user_id  TEXT,
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at        TIMESTAMPTZ,
	summary         JSONB
);

CREATE TABLE IF NOT EXISTS match_events (
	match_id    TEXT NOT NULL REFERENCES matches(id),
	event_type  TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres implements Journal over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an already-connected pool. Callers are expected to have
// applied Schema (or an equivalent migration) beforehand.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) UpsertRoomMetadata(ctx context.Context, meta RoomMetadata) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO rooms (id, room_code, status, host_user_id, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			room_code = EXCLUDED.room_code,
			status = EXCLUDED.status,
			host_user_id = EXCLUDED.host_user_id,
			version = EXCLUDED.version,
			updated_at = now()
	`, meta.RoomID, meta.RoomCode, meta.Status, meta.HostUserID, meta.Version)
	if err != nil {
		return fmt.Errorf("persistence: upsert room metadata %s: %w", meta.RoomID, err)
	}
	return nil
}

func (p *Postgres) WriteRoomSnapshot(ctx context.Context, roomID string, transition TransitionType, version int, payload []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO room_snapshots (room_id, transition_type, version, payload)
		VALUES ($1, $2, $3, $4)
	`, roomID, string(transition), version, payload)
	if err != nil {
		return fmt.Errorf("persistence: write room snapshot %s: %w", roomID, err)
	}
	return nil
}

func (p *Postgres) MarkRoomDeleted(ctx context.Context, roomID string) error {
	_, err := p.pool.Exec(ctx, `UPDATE rooms SET deleted_at = now() WHERE id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("persistence: mark room deleted %s: %w", roomID, err)
	}
	return nil
}

func (p *Postgres) StartMatch(ctx context.Context, roomID string) (string, error) {
	matchID := uuid.NewString()
	_, err := p.pool.Exec(ctx, `
		INSERT INTO matches (id, room_id, started_at) VALUES ($1, $2, now())
	`, matchID, roomID)
	if err != nil {
		return "", fmt.Errorf("persistence: start match for room %s: %w", roomID, err)
	}
	return matchID, nil
}

func (p *Postgres) FinishMatch(ctx context.Context, matchID string, winnerUserID *string, summary MatchSummary) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE matches SET winner_user_id = $2, ended_at = now(), summary = $3 WHERE id = $1
	`, matchID, winnerUserID, summary)
	if err != nil {
		return fmt.Errorf("persistence: finish match %s: %w", matchID, err)
	}
	return nil
}

func (p *Postgres) AppendMatchEvent(ctx context.Context, matchID string, eventType MatchEventType, payload []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO match_events (match_id, event_type, payload) VALUES ($1, $2, $3)
	`, matchID, string(eventType), payload)
	if err != nil {
		return fmt.Errorf("persistence: append match event %s: %w", matchID, err)
	}
	return nil
}

var _ Journal = (*Postgres)(nil)
