package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/slaphard/slaphard/service/internal/orchestrator"
)

// Handler upgrades incoming HTTP requests to websocket connections and
// wires each one into the orchestrator. One Handler serves every room —
// room routing happens inside Manager.Dispatch once a room.create or
// room.join envelope arrives, not at the HTTP layer.
type Handler struct {
	hub            *Hub
	mgr            *orchestrator.Manager
	log            *logrus.Logger
	allowedOrigins []string
}

// NewHandler builds a Handler around a Hub that was already handed to
// orchestrator.NewManager as its Broadcaster. allowedOrigins is the
// CORS_ORIGINS list from config; a single "*" entry disables origin
// checking entirely.
func NewHandler(hub *Hub, mgr *orchestrator.Manager, log *logrus.Logger, allowedOrigins []string) *Handler {
	return &Handler{hub: hub, mgr: mgr, log: log, allowedOrigins: allowedOrigins}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(h.allowedOrigins) == 1 && h.allowedOrigins[0] == "*" {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.allowedOrigins
	}

	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.log.WithError(err).Warn("ws: accept failed")
		return
	}

	socketID := uuid.NewString()
	conn := newConn(socketID, ws, h.mgr, h.log)
	h.hub.register(conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if token := r.URL.Query().Get("token"); token != "" {
		h.mgr.ReconnectByToken(ctx, socketID, token, nowMillis())
	}

	go conn.writePump(ctx, cancel)

	conn.readPump(ctx)

	h.hub.unregister(socketID)
	h.mgr.HandleDisconnect(socketID, nowMillis())
	ws.CloseNow()
}
