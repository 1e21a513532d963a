package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slaphard/slaphard/engine"
	"github.com/slaphard/slaphard/service/internal/models"
	"github.com/slaphard/slaphard/service/internal/persistence"
	"github.com/slaphard/slaphard/service/internal/wire"
)

func validDisplayName(s string) bool {
	n := len(strings.TrimSpace(s))
	return n >= 1 && n <= 24
}

func parseCard(name string) (engine.Card, bool) {
	for _, c := range engine.AllCards {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

func mapEngineError(err error) wire.Code {
	switch {
	case errors.Is(err, engine.ErrNotInGame):
		return wire.CodeNotInGame
	case errors.Is(err, engine.ErrSlapWindowActive):
		return wire.CodeSlapWindowActive
	case errors.Is(err, engine.ErrNotYourTurn):
		return wire.CodeNotYourTurn
	case errors.Is(err, engine.ErrNoSlapWindow):
		return wire.CodeNoSlapWindow
	case errors.Is(err, engine.ErrAlreadySlapped):
		return wire.CodeAlreadySlapped
	default:
		return wire.CodeInternalError
	}
}

// handleRoomCreate mints a fresh room and its host player, then hands the
// new room off to a freshly started actor.
func (m *Manager) handleRoomCreate(ctx context.Context, socketID string, env wire.Envelope, now int64) {
	var payload wire.RoomCreatePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		m.sendError(socketID, wire.CodeInvalidName, "malformed room.create payload")
		return
	}
	if !validDisplayName(payload.DisplayName) {
		m.sendError(socketID, wire.CodeInvalidName, "display name must be 1-24 characters")
		return
	}

	roomCode, err := m.generateUniqueRoomCode(ctx)
	if err != nil {
		m.log.WithError(err).Error("orchestrator: room code generation exhausted retries")
		m.sendError(socketID, wire.CodeInternalError, "could not allocate a room code")
		return
	}

	userID := uuid.NewString()
	roomID := uuid.NewString()
	nowT := time.Now()
	state := &models.RoomState{
		RoomID:     roomID,
		RoomCode:   roomCode,
		Status:     models.RoomStatusLobby,
		HostUserID: userID,
		Players: []models.RoomPlayer{{
			UserID:      userID,
			DisplayName: payload.DisplayName,
			SeatIndex:   0,
			Connected:   true,
			IsHost:      true,
		}},
		Version:   1,
		CreatedAt: nowT,
		UpdatedAt: nowT,
	}

	if err := m.store.SaveRoom(ctx, state); err != nil {
		m.log.WithError(err).Error("orchestrator: save new room")
		m.sendError(socketID, wire.CodeInternalError, "could not create room")
		return
	}
	_ = m.store.SetUserRoom(ctx, userID, roomID)
	m.reg.Connect(socketID, userID, roomID)
	go func() {
		bg := context.Background()
		if err := m.journal.UpsertRoomMetadata(bg, persistence.RoomMetadata{
			RoomID: roomID, RoomCode: roomCode, Status: string(state.Status), HostUserID: userID, Version: state.Version,
		}); err != nil {
			m.log.WithError(err).WithField("roomId", roomID).Warn("orchestrator: upsert room metadata")
			return
		}
		m.writeSnapshot(bg, state, persistence.TransitionCreate)
	}()

	room := m.actorFor(roomID)
	room.enqueue(func() {
		room.prime(state)
		room.broadcastRoomState()
		m.send(socketID, wire.EvtRoomJoined, wire.RoomJoinedPayload{
			UserID: userID, RoomID: roomID, RoomCode: roomCode, Token: m.issueToken(userID, roomID),
		})
	})
}

// handleRoomJoin resolves a room code, then hands the join off to that
// room's actor (starting it if it isn't already running).
func (m *Manager) handleRoomJoin(ctx context.Context, socketID string, env wire.Envelope, now int64) {
	var payload wire.RoomJoinPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		m.sendError(socketID, wire.CodeInvalidName, "malformed room.join payload")
		return
	}
	if !validDisplayName(payload.DisplayName) {
		m.sendError(socketID, wire.CodeInvalidName, "display name must be 1-24 characters")
		return
	}

	seed, err := m.store.GetRoomByCode(ctx, payload.RoomCode)
	if err != nil {
		m.sendError(socketID, wire.CodeRoomNotFound, "no room with that code")
		return
	}

	room := m.actorFor(seed.RoomID)
	room.enqueue(func() {
		room.ensureLoaded(seed)
		room.handleJoin(socketID, payload, now)
	})
}

// ReconnectByToken validates a join token presented at websocket accept
// time and, if it still names a seat the room recognizes, reassociates
// socketID with that seat without waiting for an explicit room.join
// command. A token whose room membership was cleared since issuance (the
// user left, was kicked, or the room expired) is silently ignored — the
// client falls back to a normal room.join.
func (m *Manager) ReconnectByToken(ctx context.Context, socketID, token string, now int64) {
	if token == "" {
		return
	}
	claims, err := m.auth.Validate(token)
	if err != nil {
		return
	}
	if roomID, err := m.store.GetUserRoom(ctx, claims.UserID); err != nil || roomID != claims.RoomID {
		return
	}
	seed, err := m.store.GetRoomByID(ctx, claims.RoomID)
	if err != nil {
		return
	}

	room := m.actorFor(claims.RoomID)
	room.enqueue(func() {
		room.ensureLoaded(seed)
		room.reconnect(socketID, claims.UserID, now)
	})
}

func (m *Manager) handlePing(socketID string, env wire.Envelope, now int64) {
	var payload wire.PingPayload
	_ = json.Unmarshal(env.Payload, &payload)
	m.send(socketID, wire.EvtPong, wire.PongPayload{ServerTime: now, ClientTimeEcho: payload.ClientTime})
}

// handle dispatches every in-room command once the actor is confirmed live.
func (r *Room) handle(userID, socketID string, env wire.Envelope, now int64) {
	if r.state == nil {
		r.m.sendError(socketID, wire.CodeRoomNotFound, "room no longer exists")
		return
	}
	switch env.Cmd {
	case wire.CmdRoomLeave:
		r.handleLeave(userID, now)

	case wire.CmdLobbyReady:
		var p wire.LobbyReadyPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			r.m.sendError(socketID, wire.CodeInvalidName, "malformed lobby.ready payload")
			return
		}
		r.handleReady(userID, p)

	case wire.CmdLobbyKick:
		var p wire.LobbyKickPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			r.m.sendError(socketID, wire.CodeInvalidName, "malformed lobby.kick payload")
			return
		}
		r.handleKick(userID, socketID, p)

	case wire.CmdLobbyStart:
		r.handleStart(userID, socketID, now)

	case wire.CmdGameStop:
		r.handleStop(userID, socketID, now)

	case wire.CmdGameFlip:
		var p wire.GameFlipPayload
		_ = json.Unmarshal(env.Payload, &p)
		r.handleFlip(userID, socketID, now)

	case wire.CmdGameSlap:
		var p wire.GameSlapPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			r.m.sendError(socketID, wire.CodeInvalidName, "malformed game.slap payload")
			return
		}
		r.handleSlap(userID, socketID, p, now)

	default:
		r.m.sendError(socketID, wire.CodeInvalidName, "unknown command")
	}
}

// reconnect reassociates socketID with userID's existing seat, marking it
// connected and pushing a fresh room.joined plus a resync snapshot. Reports
// whether userID actually holds a seat in this room.
func (r *Room) reconnect(socketID, userID string, now int64) bool {
	p := r.state.PlayerByUserID(userID)
	if p == nil {
		return false
	}
	p.Connected = true
	if r.eng != nil {
		if ep := r.eng.PlayerByUserID(userID); ep != nil {
			ep.Connected = true
		}
	}
	r.m.reg.Connect(socketID, p.UserID, r.state.RoomID)
	_ = r.m.store.SetUserRoom(context.Background(), p.UserID, r.state.RoomID)
	r.persist(persistence.TransitionUpdate)
	r.broadcastRoomState()
	r.m.send(socketID, wire.EvtRoomJoined, wire.RoomJoinedPayload{
		UserID: p.UserID, RoomID: r.state.RoomID, RoomCode: r.state.RoomCode, Token: r.m.issueToken(p.UserID, r.state.RoomID),
	})
	r.sendResyncTo(socketID, p.UserID, now)
	return true
}

// handleJoin either reconnects an existing player (payload.UserID present
// and seated) or seats a brand-new one. Reconnection reuses the existing
// seat unconditionally, in the lobby or mid-game.
func (r *Room) handleJoin(socketID string, payload wire.RoomJoinPayload, now int64) {
	if payload.UserID != nil && r.reconnect(socketID, *payload.UserID, now) {
		return
	}

	if r.state.Status != models.RoomStatusLobby {
		r.m.sendError(socketID, wire.CodeNotInLobby, "room is not accepting new players")
		return
	}
	if len(r.state.Players) >= engine.MaxPlayers {
		r.m.sendError(socketID, wire.CodeRoomFull, "room is full")
		return
	}

	userID := uuid.NewString()
	r.state.Players = append(r.state.Players, models.RoomPlayer{
		UserID:      userID,
		DisplayName: payload.DisplayName,
		SeatIndex:   len(r.state.Players),
		Connected:   true,
	})
	r.m.reg.Connect(socketID, userID, r.state.RoomID)
	_ = r.m.store.SetUserRoom(context.Background(), userID, r.state.RoomID)
	r.persist(persistence.TransitionJoin)
	r.broadcastRoomState()
	r.m.send(socketID, wire.EvtRoomJoined, wire.RoomJoinedPayload{
		UserID: userID, RoomID: r.state.RoomID, RoomCode: r.state.RoomCode, Token: r.m.issueToken(userID, r.state.RoomID),
	})
}

// handleLeave removes userID from the lobby outright, or marks them
// disconnected without vacating their seat mid-game. The last lobby member
// leaving deletes the room.
func (r *Room) handleLeave(userID string, now int64) {
	idx := -1
	for i, p := range r.state.Players {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	if r.state.Status == models.RoomStatusInGame {
		r.state.Players[idx].Connected = false
		if r.eng != nil {
			if ep := r.eng.PlayerByUserID(userID); ep != nil {
				ep.Connected = false
			}
		}
		r.persist(persistence.TransitionUpdate)
		r.broadcastRoomState()
		r.forgetUser(userID)
		return
	}

	wasHost := r.state.Players[idx].IsHost
	r.state.Players = append(r.state.Players[:idx], r.state.Players[idx+1:]...)
	r.state.RenumberSeats()

	if len(r.state.Players) == 0 {
		r.deleteRoom()
		r.forgetUser(userID)
		return
	}
	if wasHost {
		r.state.Players[0].IsHost = true
		r.state.HostUserID = r.state.Players[0].UserID
	}
	r.persist(persistence.TransitionLeave)
	r.broadcastRoomState()
	r.forgetUser(userID)
}

// handleDisconnect marks a player disconnected once every socket they held
// has gone away — a mid-game seat is never vacated by a disconnect alone.
func (r *Room) handleDisconnect(userID string, becameEmpty bool, now int64) {
	if !becameEmpty || r.state == nil {
		return
	}
	p := r.state.PlayerByUserID(userID)
	if p == nil {
		return
	}
	p.Connected = false
	if r.eng != nil {
		if ep := r.eng.PlayerByUserID(userID); ep != nil {
			ep.Connected = false
		}
	}
	r.persist(persistence.TransitionUpdate)
	r.broadcastRoomState()
}

// handleReady toggles a player's ready flag. Any member touching this
// command bounces a FINISHED room back to LOBBY first — the only way back,
// since there's no dedicated reset command on the wire.
func (r *Room) handleReady(userID string, payload wire.LobbyReadyPayload) {
	if r.state.Status == models.RoomStatusFinished {
		r.resetToLobby()
	}
	if r.state.Status != models.RoomStatusLobby {
		return
	}
	p := r.state.PlayerByUserID(userID)
	if p == nil {
		return
	}
	p.Ready = payload.Ready
	r.persist(persistence.TransitionUpdate)
	r.broadcastRoomState()
}

func (r *Room) resetToLobby() {
	r.cancelTimer()
	r.eng = nil
	r.matchID = ""
	r.state.Status = models.RoomStatusLobby
	for i := range r.state.Players {
		r.state.Players[i].Ready = false
	}
}

// handleKick is host-only. The host can't kick itself or a player who has
// already readied up.
func (r *Room) handleKick(hostUserID, socketID string, payload wire.LobbyKickPayload) {
	if hostUserID != r.state.HostUserID {
		r.m.sendError(socketID, wire.CodeNotHost, "only the host can kick")
		return
	}
	if payload.UserID == hostUserID {
		r.m.sendError(socketID, wire.CodeInvalidTarget, "host cannot kick itself")
		return
	}
	target := r.state.PlayerByUserID(payload.UserID)
	if target == nil {
		r.m.sendError(socketID, wire.CodeInvalidTarget, "no such player")
		return
	}
	if target.Ready {
		r.m.sendError(socketID, wire.CodeInvalidTarget, "cannot kick a ready player")
		return
	}

	kickedUserID := target.UserID
	idx := -1
	for i, p := range r.state.Players {
		if p.UserID == kickedUserID {
			idx = i
			break
		}
	}
	r.state.Players = append(r.state.Players[:idx], r.state.Players[idx+1:]...)
	r.state.RenumberSeats()

	for _, sock := range r.m.reg.SocketsForUser(kickedUserID) {
		r.m.send(sock, wire.EvtRoomKicked, wire.RoomKickedPayload{RoomCode: r.state.RoomCode, ByUserID: hostUserID})
		r.m.reg.Disconnect(sock)
	}
	_ = r.m.store.ClearUserRoom(context.Background(), kickedUserID)

	r.persist(persistence.TransitionLeave)
	r.broadcastRoomState()
}

// handleStart is host-only and deals a fresh game to every current player.
func (r *Room) handleStart(hostUserID, socketID string, now int64) {
	if hostUserID != r.state.HostUserID {
		r.m.sendError(socketID, wire.CodeNotHost, "only the host can start the game")
		return
	}
	if r.state.Status != models.RoomStatusLobby {
		r.m.sendError(socketID, wire.CodeNotInLobby, "room is not in the lobby")
		return
	}
	if !engine.ValidatePlayerCount(len(r.state.Players)) {
		r.m.sendError(socketID, wire.CodeInvalidTarget, fmt.Sprintf("need %d-%d players", engine.MinPlayers, engine.MaxPlayers))
		return
	}

	players := make([]engine.Player, len(r.state.Players))
	for i, p := range r.state.Players {
		players[i] = engine.Player{UserID: p.UserID, DisplayName: p.DisplayName}
	}

	gs, err := engine.NewGame(engine.NewGameParams{
		Players: players,
		Deck:    engine.DefaultDeck(),
		Seed:    uuid.NewString(),
		Shuffle: true,
		Config:  r.m.cfg,
	})
	if err != nil {
		r.m.log.WithError(err).WithField("roomId", r.id).Error("orchestrator: start game")
		r.m.sendError(socketID, wire.CodeInternalError, "could not start game")
		return
	}

	r.eng = &gs
	r.state.Status = models.RoomStatusInGame
	r.totalFlips, r.totalWindows = 0, 0
	r.penaltiesByType = make(map[string]int)
	r.matchStartedAt = now

	matchID, err := r.m.journal.StartMatch(context.Background(), r.state.RoomID)
	if err != nil {
		r.m.log.WithError(err).WithField("roomId", r.id).Warn("orchestrator: start match record")
		r.matchID = ""
	} else {
		r.matchID = matchID
	}

	r.persist(persistence.TransitionStart)
	r.broadcastRoomState()
	r.broadcastGameState(now)
	r.rescheduleTimer()
}

// handleStop is host-only: it aborts an in-progress game with no winner.
func (r *Room) handleStop(hostUserID, socketID string, now int64) {
	if hostUserID != r.state.HostUserID {
		r.m.sendError(socketID, wire.CodeNotHost, "only the host can stop the game")
		return
	}
	if r.state.Status != models.RoomStatusInGame || r.eng == nil {
		r.m.sendError(socketID, wire.CodeNotInGame, "no game in progress")
		return
	}

	r.finishMatch(now)
	r.resetToLobby()

	r.persist(persistence.TransitionStop)
	r.broadcastRoomState()
}

func (r *Room) handleFlip(userID, socketID string, now int64) {
	if r.state.Status != models.RoomStatusInGame || r.eng == nil {
		r.m.sendError(socketID, wire.CodeNotInGame, "no game in progress")
		return
	}
	if err := r.applyEngineEvent(engine.NewFlipEvent(userID), now); err != nil {
		r.reportEngineError(socketID, userID, err, now)
		return
	}
	r.totalFlips++
}

func (r *Room) handleSlap(userID, socketID string, payload wire.GameSlapPayload, now int64) {
	if r.state.Status != models.RoomStatusInGame || r.eng == nil {
		r.m.sendError(socketID, wire.CodeNotInGame, "no game in progress")
		return
	}
	// Slap window ids are minted by the engine as "sw-" plus lowercase hex.
	if rest, ok := strings.CutPrefix(payload.EventID, "sw-"); !ok || rest == "" || strings.Trim(rest, "0123456789abcdef") != "" {
		r.m.sendError(socketID, wire.CodeInvalidEventID, "malformed event id")
		r.sendResyncTo(socketID, userID, now)
		return
	}
	if r.dedup.isStaleResolved(payload.EventID, userID, now) {
		return
	}

	var gesture *engine.Card
	if payload.Gesture != nil {
		c, ok := parseCard(*payload.Gesture)
		if !ok {
			r.m.sendError(socketID, wire.CodeInvalidTarget, "unknown gesture card")
			return
		}
		gesture = &c
	}

	ev := engine.NewSlapEvent(userID, payload.EventID, gesture, payload.ClientSeq, payload.ClientTime, payload.OffsetMs, payload.RTTMs)
	if err := r.applyEngineEvent(ev, now); err != nil {
		r.reportEngineError(socketID, userID, err, now)
	}
}

func (r *Room) reportEngineError(socketID, userID string, err error, now int64) {
	code := mapEngineError(err)
	// ALREADY_SLAPPED is a silent dedup, not a protocol violation: resync
	// the socket but never surface an error event for it.
	if code != wire.CodeAlreadySlapped {
		r.m.sendError(socketID, code, err.Error())
	}
	if wire.Recoverable(code) {
		r.sendResyncTo(socketID, userID, now)
	}
}
