// Package ws is the websocket transport: it terminates connections, decodes
// and encodes wire.Envelope/wire.OutEnvelope, and implements
// orchestrator.Broadcaster by routing an outbound envelope to whichever
// connection currently owns the addressed socket id.
package ws

import (
	"sync"

	"github.com/slaphard/slaphard/service/internal/wire"
)

// Hub is the live socketId -> connection table. It is the transport
// layer's half of what registry.Registry is on the orchestrator side: the
// registry maps userId/roomId to socketId, this maps socketId to the
// connection actually holding the TCP socket.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*Conn
}

// NewHub creates an empty connection table. Construct one before the
// orchestrator.Manager it will back, since Manager takes a Broadcaster at
// construction time.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*Conn)}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.id] = c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

// Send implements orchestrator.Broadcaster. A socket that has already
// disconnected is a silent no-op — the orchestrator learns about that via
// HandleDisconnect on its own schedule, not via this call failing.
func (h *Hub) Send(socketID string, env wire.OutEnvelope) {
	h.mu.Lock()
	c, ok := h.conns[socketID]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case c.outbox <- env:
	default:
		// Slow consumer: drop rather than block the room actor that called
		// Send. The client will resync on its next game.state broadcast.
		c.log.WithField("socketId", socketID).Warn("ws: outbox full, dropping message")
	}
}
