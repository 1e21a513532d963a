package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slaphard/slaphard/engine"
	"github.com/slaphard/slaphard/service/internal/models"
	"github.com/slaphard/slaphard/service/internal/wire"
)

func TestReportEngineErrorSuppressesAlreadySlappedButStillResyncs(t *testing.T) {
	m, bcast := newTestManager()
	r := newRoom("r1", m)
	r.state = &models.RoomState{RoomID: "r1", RoomCode: "AAAAAA", Players: []models.RoomPlayer{{UserID: "u1"}}}

	r.reportEngineError("s1", "u1", engine.ErrAlreadySlapped, 1000)

	require.Equal(t, 0, bcast.count("s1", wire.EvtError))
}

func TestReportEngineErrorSurfacesOtherRecoverableCodes(t *testing.T) {
	m, bcast := newTestManager()
	r := newRoom("r1", m)
	r.state = &models.RoomState{RoomID: "r1", RoomCode: "AAAAAA", Players: []models.RoomPlayer{{UserID: "u1"}}}

	r.reportEngineError("s1", "u1", engine.ErrNotYourTurn, 1000)

	errPayload := bcast.last("s1", wire.EvtError).Payload.(*wire.Error)
	require.Equal(t, wire.CodeNotYourTurn, errPayload.Code)
}

func TestHandleSlapRejectsMalformedEventID(t *testing.T) {
	m, bcast := newTestManager()
	ctx := context.Background()

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdRoomCreate, wire.RoomCreatePayload{DisplayName: "Alice"}), 1000)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtRoomJoined) == 1 })
	joined := bcast.last("s1", wire.EvtRoomJoined).Payload.(wire.RoomJoinedPayload)

	m.Dispatch(ctx, "s2", mustEnvelope(t, wire.CmdRoomJoin, wire.RoomJoinPayload{RoomCode: joined.RoomCode, DisplayName: "Bob"}), 1001)
	waitFor(t, func() bool { return bcast.count("s2", wire.EvtRoomJoined) == 1 })

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdLobbyStart, nil), 1002)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtGameState) == 1 })

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdGameSlap, wire.GameSlapPayload{EventID: "not-a-uuid"}), 1100)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtError) == 1 })

	errPayload := bcast.last("s1", wire.EvtError).Payload.(*wire.Error)
	require.Equal(t, wire.CodeInvalidEventID, errPayload.Code)
}

func TestReconnectByTokenReassociatesSocketWithoutRoomJoin(t *testing.T) {
	m, bcast := newTestManager()
	ctx := context.Background()

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdRoomCreate, wire.RoomCreatePayload{DisplayName: "Alice"}), 1000)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtRoomJoined) == 1 })
	joined := bcast.last("s1", wire.EvtRoomJoined).Payload.(wire.RoomJoinedPayload)
	require.NotEmpty(t, joined.Token)

	m.ReconnectByToken(ctx, "s1-new", joined.Token, 1500)
	waitFor(t, func() bool { return bcast.count("s1-new", wire.EvtRoomJoined) == 1 })

	reconnected := bcast.last("s1-new", wire.EvtRoomJoined).Payload.(wire.RoomJoinedPayload)
	require.Equal(t, joined.UserID, reconnected.UserID)
	require.Equal(t, joined.RoomID, reconnected.RoomID)
}

func TestReconnectByTokenIgnoresUnknownToken(t *testing.T) {
	m, bcast := newTestManager()
	ctx := context.Background()

	m.ReconnectByToken(ctx, "s1", "garbage-token", 1000)

	require.Empty(t, bcast.msgs["s1"])
}

func TestHostStopReturnsRoomDirectlyToLobby(t *testing.T) {
	m, bcast := newTestManager()
	ctx := context.Background()

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdRoomCreate, wire.RoomCreatePayload{DisplayName: "Alice"}), 1000)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtRoomJoined) == 1 })
	joined := bcast.last("s1", wire.EvtRoomJoined).Payload.(wire.RoomJoinedPayload)

	m.Dispatch(ctx, "s2", mustEnvelope(t, wire.CmdRoomJoin, wire.RoomJoinPayload{RoomCode: joined.RoomCode, DisplayName: "Bob"}), 1001)
	waitFor(t, func() bool { return bcast.count("s2", wire.EvtRoomJoined) == 1 })

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdLobbyStart, nil), 1002)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtGameState) == 1 })

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdGameStop, nil), 1100)

	waitFor(t, func() bool {
		state := bcast.last("s1", wire.EvtRoomState)
		return state != nil && state.Payload.(wire.RoomStatePayload).Status == string(models.RoomStatusLobby)
	})

	actor := m.actorFor(joined.RoomID)
	done := make(chan struct{})
	actor.enqueue(func() {
		require.Nil(t, actor.eng)
		require.Equal(t, models.RoomStatusLobby, actor.state.Status)
		close(done)
	})
	<-done
}

func TestHostStopRejectsWhenNotInGame(t *testing.T) {
	m, bcast := newTestManager()
	ctx := context.Background()

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdRoomCreate, wire.RoomCreatePayload{DisplayName: "Alice"}), 1000)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtRoomJoined) == 1 })

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdGameStop, nil), 1001)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtError) == 1 })

	errPayload := bcast.last("s1", wire.EvtError).Payload.(*wire.Error)
	require.Equal(t, wire.CodeNotInGame, errPayload.Code)
}
