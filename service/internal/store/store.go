// Package store implements the room store interface: an abstract CRUD
// layer over models.RoomState with by-id, by-code, and by-user-id indexes,
// each entry TTL-bound.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/slaphard/slaphard/service/internal/models"
)

// DefaultTTL is the default room entry lifetime.
const DefaultTTL = 3600 * time.Second

// ErrNotFound is returned when a lookup finds no entry (expired or absent).
var ErrNotFound = errors.New("store: not found")

// RoomStore is the abstract room persistence boundary the orchestrator uses
// for hot-path reads/writes. Implementations must:
//   - establish the by-id, by-code, and by-user-id indexes atomically on
//     SaveRoom, all sharing the same TTL;
//   - return a deep copy from every read so callers never observe each
//     other's in-place mutations;
//   - remove all three indexes on DeleteRoom.
type RoomStore interface {
	GetRoomByID(ctx context.Context, roomID string) (*models.RoomState, error)
	GetRoomByCode(ctx context.Context, roomCode string) (*models.RoomState, error)
	SaveRoom(ctx context.Context, room *models.RoomState) error
	DeleteRoom(ctx context.Context, roomID string) error

	SetUserRoom(ctx context.Context, userID, roomID string) error
	GetUserRoom(ctx context.Context, userID string) (string, error)
	ClearUserRoom(ctx context.Context, userID string) error
}
