package store

import (
	"context"
	"sync"
	"time"

	"github.com/slaphard/slaphard/service/internal/models"
)

var _ RoomStore = (*MemoryStore)(nil)

type memoryEntry struct {
	room      *models.RoomState
	expiresAt time.Time
}

// MemoryStore is the authoritative single-process RoomStore fallback: a
// mutex-guarded room-keyed map with lazy TTL expiry checked on read rather
// than a background sweep — the periodic active sweep lives in
// orchestrator.Sweeper instead.
type MemoryStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	byID map[string]*memoryEntry
	// codeToID and userToID hold plain string values rather than their own
	// TTL, since their lifetime is derived from the byID entry they point
	// at (checked lazily on read).
	codeToID map[string]string
	userToID map[string]string
}

// membersOf returns the user ids currently seated in a stored room.
func membersOf(room *models.RoomState) []string {
	ids := make([]string, len(room.Players))
	for i, p := range room.Players {
		ids[i] = p.UserID
	}
	return ids
}

// NewMemoryStore constructs an empty MemoryStore. ttl<=0 uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		byID:     make(map[string]*memoryEntry),
		codeToID: make(map[string]string),
		userToID: make(map[string]string),
	}
}

func (m *MemoryStore) lookupLocked(roomID string) *models.RoomState {
	entry, ok := m.byID[roomID]
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.room
}

// GetRoomByID returns a deep copy of the room, or ErrNotFound.
func (m *MemoryStore) GetRoomByID(_ context.Context, roomID string) (*models.RoomState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room := m.lookupLocked(roomID)
	if room == nil {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

// GetRoomByCode resolves the by-code index, then the by-id map.
func (m *MemoryStore) GetRoomByCode(_ context.Context, roomCode string) (*models.RoomState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.codeToID[roomCode]
	if !ok {
		return nil, ErrNotFound
	}
	room := m.lookupLocked(roomID)
	if room == nil {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

// SaveRoom atomically establishes all three indexes — by id, by code, and
// by every seated member's userId — sharing one TTL, so ordinary gameplay
// activity (which calls this on every mutation) keeps a room's membership
// index alive for as long as the room itself is alive.
func (m *MemoryStore) SaveRoom(_ context.Context, room *models.RoomState) error {
	stored := room.Clone()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[stored.RoomID] = &memoryEntry{room: stored, expiresAt: time.Now().Add(m.ttl)}
	m.codeToID[stored.RoomCode] = stored.RoomID
	for _, userID := range membersOf(stored) {
		m.userToID[userID] = stored.RoomID
	}
	return nil
}

// DeleteRoom removes the by-id and by-code indexes for roomID, along with
// every userToID entry still pointing at it.
func (m *MemoryStore) DeleteRoom(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.byID[roomID]
	if ok {
		delete(m.codeToID, entry.room.RoomCode)
		for _, userID := range membersOf(entry.room) {
			if m.userToID[userID] == roomID {
				delete(m.userToID, userID)
			}
		}
	}
	delete(m.byID, roomID)
	return nil
}

// SetUserRoom records that userID currently belongs to roomID.
func (m *MemoryStore) SetUserRoom(_ context.Context, userID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userToID[userID] = roomID
	return nil
}

// GetUserRoom returns the roomID userID last joined, or ErrNotFound if
// either no such membership was recorded or the room it points at has since
// expired or been deleted.
func (m *MemoryStore) GetUserRoom(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.userToID[userID]
	if !ok {
		return "", ErrNotFound
	}
	if m.lookupLocked(roomID) == nil {
		return "", ErrNotFound
	}
	return roomID, nil
}

// ClearUserRoom removes userID's membership index entry.
func (m *MemoryStore) ClearUserRoom(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.userToID, userID)
	return nil
}

// Sweep deletes every entry whose TTL has elapsed and reports how many were
// removed. Called periodically by orchestrator.Sweeper.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, entry := range m.byID {
		if now.After(entry.expiresAt) {
			delete(m.codeToID, entry.room.RoomCode)
			for _, userID := range membersOf(entry.room) {
				if m.userToID[userID] == id {
					delete(m.userToID, userID)
				}
			}
			delete(m.byID, id)
			removed++
		}
	}
	return removed
}
