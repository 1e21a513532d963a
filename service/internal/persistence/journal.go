// Package persistence implements the append-only journal interface:
// room transitions and match events, written fire-and-forget so gameplay
// never blocks on a persistence failure.
package persistence

import (
	"context"

	"github.com/google/uuid"
)

// TransitionType is a room_snapshots.transition_type value.
type TransitionType string

const (
	TransitionCreate TransitionType = "CREATE"
	TransitionJoin   TransitionType = "JOIN"
	TransitionLeave  TransitionType = "LEAVE"
	TransitionStart  TransitionType = "START"
	TransitionStop   TransitionType = "STOP"
	TransitionFinish TransitionType = "FINISH"
	TransitionDelete TransitionType = "DELETE"
	TransitionUpdate TransitionType = "UPDATE"
)

// MatchEventType is a match_events.event_type value.
type MatchEventType string

const (
	MatchEventSlapResult MatchEventType = "SLAP_RESULT"
	MatchEventPenalty    MatchEventType = "PENALTY"
	MatchEventTimeout    MatchEventType = "TIMEOUT"
	MatchEventWin        MatchEventType = "WIN"
)

// MatchSummary is the shape of matches.summary, computed by the
// orchestrator from the effects it observed over a match's lifetime.
type MatchSummary struct {
	DurationMs       int64          `json:"durationMs"`
	TotalFlips       int            `json:"totalFlips"`
	TotalSlapWindows int            `json:"totalSlapWindows"`
	PenaltiesByType  map[string]int `json:"penaltiesByType"`
	FinalHandSizes   map[string]int `json:"finalHandSizes"`
}

// RoomMetadata is the row shape of the rooms table.
type RoomMetadata struct {
	RoomID     string
	RoomCode   string
	Status     string
	HostUserID string
	Version    int
}

// Journal is the abstract persistence boundary. Implementations must
// never allow a failure to propagate into gameplay; RetryOnce provides that
// guarantee for any Journal.
type Journal interface {
	UpsertRoomMetadata(ctx context.Context, meta RoomMetadata) error
	WriteRoomSnapshot(ctx context.Context, roomID string, transition TransitionType, version int, payload []byte) error
	MarkRoomDeleted(ctx context.Context, roomID string) error

	StartMatch(ctx context.Context, roomID string) (matchID string, err error)
	FinishMatch(ctx context.Context, matchID string, winnerUserID *string, summary MatchSummary) error
	AppendMatchEvent(ctx context.Context, matchID string, eventType MatchEventType, payload []byte) error
}

// NoopJournal discards every write. It backs the orchestrator when
// ENABLE_DB_PERSISTENCE is unset, so the rest of the system never needs a
// nil check for the durability layer.
type NoopJournal struct{}

func (NoopJournal) UpsertRoomMetadata(context.Context, RoomMetadata) error { return nil }
func (NoopJournal) WriteRoomSnapshot(context.Context, string, TransitionType, int, []byte) error {
	return nil
}
func (NoopJournal) MarkRoomDeleted(context.Context, string) error { return nil }
func (NoopJournal) StartMatch(context.Context, string) (string, error) {
	return uuid.NewString(), nil
}
func (NoopJournal) FinishMatch(context.Context, string, *string, MatchSummary) error { return nil }
func (NoopJournal) AppendMatchEvent(context.Context, string, MatchEventType, []byte) error {
	return nil
}

var _ Journal = NoopJournal{}
