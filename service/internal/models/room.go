// Package models holds the room-level domain types shared across the
// store, persistence, and orchestrator packages — the service layer's
// analogue of the engine's GameState, but for room/lobby bookkeeping.
package models

import "time"

// RoomStatus is the lobby/in-game/finished lifecycle of a room.
type RoomStatus string

const (
	RoomStatusLobby    RoomStatus = "LOBBY"
	RoomStatusInGame   RoomStatus = "IN_GAME"
	RoomStatusFinished RoomStatus = "FINISHED"
)

// RoomPlayer is a room member's public (lobby-level) view: identity and
// membership state, independent of whether a match is in progress.
type RoomPlayer struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	SeatIndex   int    `json:"seatIndex"`
	Connected   bool   `json:"connected"`
	Ready       bool   `json:"ready"`
	IsHost      bool   `json:"isHost"`
}

// EngineSnapshot is the serialized form of engine.GameState kept on
// RoomState between mutations. The orchestrator is the only package that
// knows how to turn it into a live engine.GameState and back; models stays
// engine-agnostic so store/persistence never import the engine package
// directly.
type EngineSnapshot struct {
	Blob []byte `json:"blob"`
}

// RoomState is the store's unit of storage. It carries a
// lobby-level view of membership plus an optional serialized game state;
// GameState is present only while Status is IN_GAME or FINISHED.
type RoomState struct {
	RoomID     string          `json:"roomId"`
	RoomCode   string          `json:"roomCode"`
	Status     RoomStatus      `json:"status"`
	HostUserID string          `json:"hostUserId"`
	Players    []RoomPlayer    `json:"players"`
	GameState  *EngineSnapshot `json:"gameState,omitempty"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy of r, so a caller holding a RoomState returned
// from the store never observes another caller's in-place edits.
func (r *RoomState) Clone() *RoomState {
	out := *r
	out.Players = make([]RoomPlayer, len(r.Players))
	copy(out.Players, r.Players)
	if r.GameState != nil {
		blob := make([]byte, len(r.GameState.Blob))
		copy(blob, r.GameState.Blob)
		out.GameState = &EngineSnapshot{Blob: blob}
	}
	return &out
}

// PlayerBySeat returns a pointer into r.Players for the given seat, or nil.
func (r *RoomState) PlayerBySeat(seat int) *RoomPlayer {
	for i := range r.Players {
		if r.Players[i].SeatIndex == seat {
			return &r.Players[i]
		}
	}
	return nil
}

// PlayerByUserID returns a pointer into r.Players for the given user, or nil.
func (r *RoomState) PlayerByUserID(userID string) *RoomPlayer {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return &r.Players[i]
		}
	}
	return nil
}

// RenumberSeats re-establishes the dense [0,n) seatIndex invariant after a
// departure.
func (r *RoomState) RenumberSeats() {
	for i := range r.Players {
		r.Players[i].SeatIndex = i
	}
}
