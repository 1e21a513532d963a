// Package registry is the in-memory connection identity map: which sockets
// belong to which user, and which room that user currently sits in. It is
// pure bookkeeping — no I/O, no persistence — guarded by its own mutex.
// Mutations are not confined to the affected room's command loop: room
// creation and socket disconnects update it from the caller's goroutine.
package registry

import "sync"

// connInfo is what a socketId resolves to.
type connInfo struct {
	userID string
	roomID string
}

// Registry tracks socketId -> {userId, roomId} and userId -> set<socketId>,
// generalizing the single-connection-per-player assumption a simpler hub
// would make: a user may hold multiple concurrent sockets (e.g. two tabs),
// and is only Disconnected once every one of them has gone away.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]connInfo            // socketId -> connInfo
	sockets map[string]map[string]struct{} // userId -> set<socketId>
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		conns:   make(map[string]connInfo),
		sockets: make(map[string]map[string]struct{}),
	}
}

// Connect associates socketID with userID/roomID. Reconnecting an existing
// socketID moves it (and only it) to the new identity.
func (r *Registry) Connect(socketID, userID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[socketID]; ok {
		r.removeSocketLocked(socketID, prev.userID)
	}
	r.conns[socketID] = connInfo{userID: userID, roomID: roomID}
	if r.sockets[userID] == nil {
		r.sockets[userID] = make(map[string]struct{})
	}
	r.sockets[userID][socketID] = struct{}{}
}

// Disconnect removes socketID. It returns the userID that owned it and
// whether that user has no remaining sockets (i.e. should now be marked
// disconnected in the room).
func (r *Registry) Disconnect(socketID string) (userID string, becameEmpty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.conns[socketID]
	if !ok {
		return "", false
	}
	r.removeSocketLocked(socketID, info.userID)
	remaining := len(r.sockets[info.userID])
	if remaining == 0 {
		delete(r.sockets, info.userID)
	}
	return info.userID, remaining == 0
}

func (r *Registry) removeSocketLocked(socketID, userID string) {
	delete(r.conns, socketID)
	if set, ok := r.sockets[userID]; ok {
		delete(set, socketID)
	}
}

// Lookup resolves socketID to its current userID/roomID.
func (r *Registry) Lookup(socketID string) (userID, roomID string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.conns[socketID]
	return info.userID, info.roomID, ok
}

// IsConnected reports whether userID currently holds at least one socket.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sockets[userID]) > 0
}

// SocketCount returns how many sockets userID currently holds.
func (r *Registry) SocketCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sockets[userID])
}

// SocketsForUser returns a snapshot of userID's current socketIds, for
// broadcasting to every connection a user holds.
func (r *Registry) SocketsForUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.sockets[userID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
