package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/slaphard/slaphard/engine"
	"github.com/slaphard/slaphard/service/internal/game"
	"github.com/slaphard/slaphard/service/internal/models"
	"github.com/slaphard/slaphard/service/internal/persistence"
	"github.com/slaphard/slaphard/service/internal/wire"
)

// Room is a single room's actor: a serialized command loop that owns the
// room's models.RoomState and, once a match has started, its live
// engine.GameState. Every field below is touched only from within run's
// goroutine — the actor model is what keeps that safe without a mutex.
type Room struct {
	id string
	m  *Manager

	cmds     chan func()
	done     chan struct{}
	stopOnce sync.Once

	state *models.RoomState
	eng   *engine.GameState

	timerGen uint64
	timer    *time.Timer

	matchID         string
	matchStartedAt  int64
	totalFlips      int
	totalWindows    int
	penaltiesByType map[string]int

	dedup *slapDedup
}

func newRoom(id string, m *Manager) *Room {
	return &Room{
		id:              id,
		m:               m,
		cmds:            make(chan func(), 64),
		done:            make(chan struct{}),
		penaltiesByType: make(map[string]int),
		dedup:           newSlapDedup(),
	}
}

// run drains cmds until stop is called. It is the only goroutine that ever
// touches this room's mutable fields.
func (r *Room) run() {
	for {
		select {
		case fn := <-r.cmds:
			fn()
		case <-r.done:
			return
		}
	}
}

// enqueue schedules fn on the room's actor loop. It never blocks past the
// buffer filling or the room stopping.
func (r *Room) enqueue(fn func()) {
	select {
	case r.cmds <- fn:
	case <-r.done:
	}
}

func (r *Room) stop() {
	r.stopOnce.Do(func() {
		r.cancelTimer()
		close(r.done)
	})
}

// prime installs a freshly created RoomState into an actor that has none
// yet. Manager calls this once, right after minting the room, before any
// other command reaches the actor.
func (r *Room) prime(state *models.RoomState) {
	r.state = state
}

// ensureLoaded backs a brand-new actor with seed the first time a command
// reaches it (the room.join path, where the actor didn't exist until the
// joining player's room code lookup resolved it). Once state is non-nil the
// in-memory actor is authoritative and seed is ignored.
func (r *Room) ensureLoaded(seed *models.RoomState) {
	if r.state != nil {
		return
	}
	r.state = seed
	if seed.GameState != nil {
		var gs engine.GameState
		if err := json.Unmarshal(seed.GameState.Blob, &gs); err != nil {
			r.m.log.WithError(err).WithField("roomId", r.id).Error("orchestrator: decode engine snapshot")
			return
		}
		r.eng = &gs
	}
}

func (r *Room) broadcastAll(evt string, payload any) {
	for _, p := range r.state.Players {
		for _, sock := range r.m.reg.SocketsForUser(p.UserID) {
			r.m.send(sock, evt, payload)
		}
	}
}

func (r *Room) broadcastRoomState() {
	payload := wire.RoomStatePayload{
		RoomID:     r.state.RoomID,
		RoomCode:   r.state.RoomCode,
		Status:     string(r.state.Status),
		HostUserID: r.state.HostUserID,
		Version:    r.state.Version,
	}
	for _, p := range r.state.Players {
		payload.Players = append(payload.Players, wire.RoomPlayerPayload{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			SeatIndex:   p.SeatIndex,
			Connected:   p.Connected,
			Ready:       p.Ready,
			IsHost:      p.IsHost,
		})
	}
	r.broadcastAll(wire.EvtRoomState, payload)
}

func (r *Room) broadcastGameState(now int64) {
	if r.eng == nil {
		return
	}
	for _, p := range r.state.Players {
		view := game.Project(r.eng, p.UserID)
		payload := wire.GameStatePayload{Snapshot: view, ServerTime: now, Version: r.eng.Version}
		for _, sock := range r.m.reg.SocketsForUser(p.UserID) {
			r.m.send(sock, wire.EvtGameState, payload)
		}
	}
}

// sendResyncTo pushes a fresh projected game.state to a single socket —
// used after a Recoverable wire error so a client that fell out of sync
// gets pulled back without waiting for the next natural broadcast.
func (r *Room) sendResyncTo(socketID, userID string, now int64) {
	if r.eng == nil {
		return
	}
	view := game.Project(r.eng, userID)
	r.m.send(socketID, wire.EvtGameState, wire.GameStatePayload{Snapshot: view, ServerTime: now, Version: r.eng.Version})
}

func (r *Room) syncSnapshotBlob() {
	if r.eng == nil {
		r.state.GameState = nil
		return
	}
	blob, err := json.Marshal(r.eng)
	if err != nil {
		r.m.log.WithError(err).WithField("roomId", r.id).Error("orchestrator: encode engine snapshot")
		return
	}
	r.state.GameState = &models.EngineSnapshot{Blob: blob}
}

// persist saves the room's current state to the hot-path store
// synchronously (the store is what a reconnecting client or another
// process reads next) and journals a durability snapshot in the
// background, never blocking gameplay on it.
func (r *Room) persist(transition persistence.TransitionType) {
	r.state.Version++
	r.state.UpdatedAt = time.Now()
	r.syncSnapshotBlob()

	stateCopy := r.state.Clone()
	if err := r.m.store.SaveRoom(context.Background(), stateCopy); err != nil {
		r.m.log.WithError(err).WithField("roomId", r.id).Error("orchestrator: save room")
	}

	go func() {
		ctx := context.Background()
		// Metadata first: room_snapshots.room_id references rooms(id), so the
		// rooms row must exist before the snapshot insert.
		if err := r.m.journal.UpsertRoomMetadata(ctx, persistence.RoomMetadata{
			RoomID:     stateCopy.RoomID,
			RoomCode:   stateCopy.RoomCode,
			Status:     string(stateCopy.Status),
			HostUserID: stateCopy.HostUserID,
			Version:    stateCopy.Version,
		}); err != nil {
			r.m.log.WithError(err).WithField("roomId", stateCopy.RoomID).Warn("orchestrator: upsert room metadata")
			return
		}
		r.m.writeSnapshot(ctx, stateCopy, transition)
	}()
}

func (r *Room) deleteRoom() {
	r.cancelTimer()
	roomID := r.state.RoomID
	_ = r.m.store.DeleteRoom(context.Background(), roomID)
	go func() {
		if err := r.m.journal.MarkRoomDeleted(context.Background(), roomID); err != nil {
			r.m.log.WithError(err).WithField("roomId", roomID).Warn("orchestrator: mark room deleted")
		}
	}()
	r.m.dropActor(roomID)
}

func (r *Room) forgetUser(userID string) {
	for _, sock := range r.m.reg.SocketsForUser(userID) {
		r.m.reg.Disconnect(sock)
	}
	_ = r.m.store.ClearUserRoom(context.Background(), userID)
}

// applyEngineEvent runs ev against the live engine state, broadcasts and
// journals every resulting effect, persists, and reschedules the room's
// timer. It is the single funnel every gameplay-mutating path (a client
// command or a fired timer) runs through.
func (r *Room) applyEngineEvent(ev engine.Event, now int64) error {
	if r.eng == nil {
		return engine.ErrNotInGame
	}
	result := engine.Apply(*r.eng, ev, now)
	if result.Err != nil {
		return result.Err
	}
	r.eng = &result.State
	r.recordEffects(result.Effects)
	r.broadcastEffects(result.Effects, now)
	r.broadcastGameState(now)

	transition := persistence.TransitionUpdate
	if r.eng.Status == engine.StatusFinished {
		r.finishMatch(now)
		r.state.Status = models.RoomStatusFinished
		transition = persistence.TransitionFinish
	}
	r.persist(transition)
	r.rescheduleTimer()
	return nil
}

func (r *Room) recordEffects(effects []engine.Effect) {
	for _, e := range effects {
		switch e.Kind {
		case engine.EffectSlapWindowOpen:
			r.totalWindows++
		case engine.EffectPenalty:
			r.penaltiesByType[e.PenaltyType.String()]++
		}
	}
}

func (r *Room) appendMatchEvent(t persistence.MatchEventType, payload any) {
	if r.matchID == "" {
		return
	}
	blob, err := json.Marshal(payload)
	if err != nil {
		return
	}
	matchID := r.matchID
	go func() {
		if err := r.m.journal.AppendMatchEvent(context.Background(), matchID, t, blob); err != nil {
			r.m.log.WithError(err).WithField("matchId", matchID).Warn("orchestrator: append match event")
		}
	}()
}

func (r *Room) broadcastEffects(effects []engine.Effect, now int64) {
	for _, e := range effects {
		switch e.Kind {
		case engine.EffectSlapWindowOpen:
			var actionCard *string
			if e.ActionCard != nil {
				s := e.ActionCard.String()
				actionCard = &s
			}
			payload := wire.SlapWindowOpenPayload{
				EventID:            e.EventID,
				Reason:             e.Reason.String(),
				ActionCard:         actionCard,
				StartServerTime:    e.StartServerTime,
				DeadlineServerTime: e.DeadlineServerTime,
				SlapWindowMs:       e.SlapWindowMs,
			}
			r.broadcastAll(wire.EvtSlapWindowOpen, payload)

		case engine.EffectSlapResult:
			r.dedup.remember(e.EventID, now, e.OrderedUserIDs)
			payload := wire.SlapResultPayload{
				EventID:        e.EventID,
				OrderedUserIDs: e.OrderedUserIDs,
				LoserUserID:    e.LoserUserID,
				Reason:         e.ResultReason.String(),
				PileTaken:      e.PileTaken,
			}
			r.broadcastAll(wire.EvtSlapResult, payload)
			r.appendMatchEvent(persistence.MatchEventSlapResult, payload)

		case engine.EffectPenalty:
			payload := wire.PenaltyPayload{UserID: e.UserID, Type: e.PenaltyType.String(), PileTaken: e.PileTaken}
			r.broadcastAll(wire.EvtPenalty, payload)
			evType := persistence.MatchEventPenalty
			if e.PenaltyType == engine.PenaltyTurnTimeout {
				evType = persistence.MatchEventTimeout
			}
			r.appendMatchEvent(evType, payload)

		case engine.EffectGameFinished:
			r.appendMatchEvent(persistence.MatchEventWin, map[string]string{"winnerUserId": e.WinnerUserID})
		}
	}
}

func (r *Room) finishMatch(now int64) {
	winner := r.eng.WinnerUserID
	summary := persistence.MatchSummary{
		DurationMs:       now - r.matchStartedAt,
		TotalFlips:       r.totalFlips,
		TotalSlapWindows: r.totalWindows,
		PenaltiesByType:  r.penaltiesByType,
		FinalHandSizes:   make(map[string]int, len(r.eng.Players)),
	}
	for _, p := range r.eng.Players {
		summary.FinalHandSizes[p.UserID] = len(p.Hand)
	}
	matchID := r.matchID
	if matchID == "" {
		return
	}
	go func() {
		if err := r.m.journal.FinishMatch(context.Background(), matchID, winner, summary); err != nil {
			r.m.log.WithError(err).WithField("matchId", matchID).Warn("orchestrator: finish match")
		}
	}()
}

func nowMillis() int64 { return time.Now().UnixMilli() }
