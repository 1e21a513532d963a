// Package orchestrator is the per-room actor system: it owns every live
// engine.GameState, serializes all mutation of a room through one goroutine
// per room, and fans effects out to sockets via the registry and a
// Broadcaster. It is the only package that knows how to turn a
// models.EngineSnapshot into a live engine.GameState and back.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/slaphard/slaphard/engine"
	"github.com/slaphard/slaphard/service/internal/auth"
	"github.com/slaphard/slaphard/service/internal/models"
	"github.com/slaphard/slaphard/service/internal/persistence"
	"github.com/slaphard/slaphard/service/internal/registry"
	"github.com/slaphard/slaphard/service/internal/store"
	"github.com/slaphard/slaphard/service/internal/wire"
)

// Broadcaster delivers an outbound envelope to one socket. Implementations
// must not block the caller on network I/O — the transport layer queues
// onto each connection's own write pump.
type Broadcaster interface {
	Send(socketID string, env wire.OutEnvelope)
}

// minGapMs is the minimum spacing the orchestrator enforces between two
// gameplay events from the same connection.
const minGapMs = 40

// Manager is the entry point transport connections dispatch inbound
// envelopes into. It owns room lifecycle (creation, teardown) and routes
// every other command to the addressed room's actor.
type Manager struct {
	store   store.RoomStore
	journal persistence.Journal
	reg     *registry.Registry
	bcast   Broadcaster
	log     *logrus.Logger
	cfg     engine.Config
	auth    *auth.Issuer

	mu      sync.Mutex
	rooms   map[string]*Room
	lastCmd map[string]int64 // socketId -> last gameplay command server-time ms
}

// NewManager wires the orchestrator's dependencies together.
func NewManager(st store.RoomStore, jr persistence.Journal, reg *registry.Registry, bcast Broadcaster, log *logrus.Logger, cfg engine.Config, issuer *auth.Issuer) *Manager {
	return &Manager{
		store:   st,
		journal: jr,
		reg:     reg,
		bcast:   bcast,
		log:     log,
		cfg:     cfg,
		auth:    issuer,
		rooms:   make(map[string]*Room),
		lastCmd: make(map[string]int64),
	}
}

// issueToken mints a join token for userID/roomID, logging and returning
// an empty string if issuance fails — a socket without a token simply
// can't use the reconnect fast path and must join.rejoin-as-a-new-player.
func (m *Manager) issueToken(userID, roomID string) string {
	tok, err := m.auth.Issue(userID, roomID)
	if err != nil {
		m.log.WithError(err).WithField("userId", userID).Warn("orchestrator: issue join token")
		return ""
	}
	return tok
}

func (m *Manager) send(socketID, evt string, payload any) {
	m.bcast.Send(socketID, wire.OutEnvelope{Evt: evt, Payload: payload})
}

func (m *Manager) sendError(socketID string, code wire.Code, msg string) {
	m.send(socketID, wire.EvtError, wire.NewError(code, msg))
}

// actorFor returns the live actor for roomID, starting one if none is
// running yet.
func (m *Manager) actorFor(roomID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[roomID]; ok {
		return r
	}
	r := newRoom(roomID, m)
	m.rooms[roomID] = r
	go r.run()
	return r
}

func (m *Manager) dropActor(roomID string) {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	delete(m.rooms, roomID)
	m.mu.Unlock()
	if ok {
		r.stop()
	}
}

func (m *Manager) rateLimited(socketID string, now int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, seen := m.lastCmd[socketID]
	m.lastCmd[socketID] = now
	return seen && now-last < minGapMs
}

func (m *Manager) forgetSocket(socketID string) {
	m.mu.Lock()
	delete(m.lastCmd, socketID)
	m.mu.Unlock()
}

func (m *Manager) generateUniqueRoomCode(ctx context.Context) (string, error) {
	for i := 0; i < models.MaxRoomCodeCollisionRetries; i++ {
		code, err := models.GenerateRoomCode()
		if err != nil {
			return "", err
		}
		if _, err := m.store.GetRoomByCode(ctx, code); errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
	}
	return "", fmt.Errorf("orchestrator: exhausted %d room code attempts", models.MaxRoomCodeCollisionRetries)
}

func (m *Manager) writeSnapshot(ctx context.Context, state *models.RoomState, t persistence.TransitionType) {
	blob, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := m.journal.WriteRoomSnapshot(ctx, state.RoomID, t, state.Version, blob); err != nil {
		m.log.WithError(err).WithField("roomId", state.RoomID).Warn("orchestrator: write room snapshot")
	}
}

// Dispatch decodes and routes one inbound envelope from socketID. now is
// the server clock in epoch milliseconds, supplied by the transport layer
// so the orchestrator, like the engine underneath it, never calls
// time.Now itself on the hot path.
func (m *Manager) Dispatch(ctx context.Context, socketID string, env wire.Envelope, now int64) {
	switch env.Cmd {
	case wire.CmdRoomCreate:
		m.handleRoomCreate(ctx, socketID, env, now)
		return
	case wire.CmdRoomJoin:
		m.handleRoomJoin(ctx, socketID, env, now)
		return
	case wire.CmdPing:
		m.handlePing(socketID, env, now)
		return
	}

	userID, roomID, ok := m.reg.Lookup(socketID)
	if !ok {
		m.sendError(socketID, wire.CodeRoomNotFound, "not joined to a room")
		return
	}

	if env.Cmd == wire.CmdGameFlip || env.Cmd == wire.CmdGameSlap {
		if m.rateLimited(socketID, now) {
			m.sendError(socketID, wire.CodeRateLimited, "sending too fast")
			return
		}
	}

	room := m.actorFor(roomID)
	room.enqueue(func() {
		room.handle(userID, socketID, env, now)
	})
}

// HandleDisconnect is called by the transport layer when socketID's
// connection closes. It clears the registry entry and, if that emptied the
// user's socket set, notifies the room actor.
func (m *Manager) HandleDisconnect(socketID string, now int64) {
	m.forgetSocket(socketID)
	_, roomID, ok := m.reg.Lookup(socketID)
	if !ok {
		return
	}
	userID, becameEmpty := m.reg.Disconnect(socketID)

	m.mu.Lock()
	room, ok := m.rooms[roomID]
	m.mu.Unlock()
	if !ok {
		return
	}
	room.enqueue(func() {
		room.handleDisconnect(userID, becameEmpty, now)
	})
}
