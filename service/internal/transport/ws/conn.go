package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/slaphard/slaphard/service/internal/orchestrator"
	"github.com/slaphard/slaphard/service/internal/wire"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// idleTimeout is how long a socket may go without a ping or gameplay
	// event before the transport treats it as disconnected on its own,
	// independent of whether the underlying TCP connection has errored.
	idleTimeout    = 2 * pongWait
	maxMessageSize = 4096
	outboxSize     = 32
)

// Conn is one client's websocket connection. It owns nothing but the
// socket itself and a write-side buffer; all game state lives behind
// mgr.
type Conn struct {
	id  string
	ws  *websocket.Conn
	mgr *orchestrator.Manager
	log *logrus.Logger

	outbox chan wire.OutEnvelope
}

func newConn(id string, ws *websocket.Conn, mgr *orchestrator.Manager, log *logrus.Logger) *Conn {
	ws.SetReadLimit(maxMessageSize)
	return &Conn{
		id:     id,
		ws:     ws,
		mgr:    mgr,
		log:    log,
		outbox: make(chan wire.OutEnvelope, outboxSize),
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// readPump decodes inbound envelopes and dispatches them into the
// orchestrator until the socket errors or is closed by writePump. It runs
// on the goroutine that called ServeHTTP and blocks until the connection
// is done.
func (c *Conn) readPump(ctx context.Context) {
	for {
		readCtx, cancel := context.WithTimeout(ctx, idleTimeout)
		_, data, err := c.ws.Read(readCtx)
		cancel()
		if err != nil {
			return
		}
		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.WithError(err).WithField("socketId", c.id).Warn("ws: malformed envelope")
			continue
		}
		c.mgr.Dispatch(ctx, c.id, env, nowMillis())
	}
}

// writePump drains outbox to the socket and pings it on an interval,
// closing the connection if either a write or a ping fails. It owns the
// only code path that ever calls c.ws.Write, since coder/websocket
// connections aren't safe for concurrent writers.
func (c *Conn) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer cancel()

	for {
		select {
		case env, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.writeJSON(ctx, env); err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, writeWait)
			err := c.ws.Ping(pingCtx)
			cancelPing()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Conn) writeJSON(ctx context.Context, env wire.OutEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return c.ws.Write(wctx, websocket.MessageText, data)
}
