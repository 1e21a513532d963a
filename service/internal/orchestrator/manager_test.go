package orchestrator

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/slaphard/slaphard/engine"
	"github.com/slaphard/slaphard/service/internal/auth"
	"github.com/slaphard/slaphard/service/internal/game"
	"github.com/slaphard/slaphard/service/internal/persistence"
	"github.com/slaphard/slaphard/service/internal/registry"
	"github.com/slaphard/slaphard/service/internal/store"
	"github.com/slaphard/slaphard/service/internal/wire"
)

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs map[string][]wire.OutEnvelope
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{msgs: make(map[string][]wire.OutEnvelope)}
}

func (b *fakeBroadcaster) Send(socketID string, env wire.OutEnvelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs[socketID] = append(b.msgs[socketID], env)
}

func (b *fakeBroadcaster) last(socketID, evt string) *wire.OutEnvelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.msgs[socketID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Evt == evt {
			cp := msgs[i]
			return &cp
		}
	}
	return nil
}

func (b *fakeBroadcaster) count(socketID, evt string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.msgs[socketID] {
		if m.Evt == evt {
			n++
		}
	}
	return n
}

// fakeJournal is a no-op Journal: every write succeeds instantly, and
// StartMatch mints a real id the way postgres.Postgres would.
type fakeJournal struct{}

func (fakeJournal) UpsertRoomMetadata(context.Context, persistence.RoomMetadata) error { return nil }
func (fakeJournal) WriteRoomSnapshot(context.Context, string, persistence.TransitionType, int, []byte) error {
	return nil
}
func (fakeJournal) MarkRoomDeleted(context.Context, string) error { return nil }
func (fakeJournal) StartMatch(context.Context, string) (string, error) {
	return uuid.NewString(), nil
}
func (fakeJournal) FinishMatch(context.Context, string, *string, persistence.MatchSummary) error {
	return nil
}
func (fakeJournal) AppendMatchEvent(context.Context, string, persistence.MatchEventType, []byte) error {
	return nil
}

var _ persistence.Journal = fakeJournal{}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

func mustEnvelope(t *testing.T, cmd string, payload any) wire.Envelope {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return wire.Envelope{Cmd: cmd, Payload: b}
}

func newTestManager() (*Manager, *fakeBroadcaster) {
	bcast := newFakeBroadcaster()
	m := NewManager(
		store.NewMemoryStore(time.Hour),
		fakeJournal{},
		registry.New(),
		bcast,
		discardLogger(),
		engine.DefaultConfig(),
		auth.NewIssuer([]byte("test-secret")),
	)
	return m, bcast
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestRoomCreateThenJoinReachesLobby(t *testing.T) {
	m, bcast := newTestManager()
	ctx := context.Background()

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdRoomCreate, wire.RoomCreatePayload{DisplayName: "Alice"}), 1000)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtRoomJoined) == 1 })

	joined := bcast.last("s1", wire.EvtRoomJoined).Payload.(wire.RoomJoinedPayload)
	require.NotEmpty(t, joined.RoomCode)

	m.Dispatch(ctx, "s2", mustEnvelope(t, wire.CmdRoomJoin, wire.RoomJoinPayload{RoomCode: joined.RoomCode, DisplayName: "Bob"}), 1001)
	waitFor(t, func() bool { return bcast.count("s2", wire.EvtRoomJoined) == 1 })

	waitFor(t, func() bool {
		state := bcast.last("s1", wire.EvtRoomState)
		if state == nil {
			return false
		}
		return len(state.Payload.(wire.RoomStatePayload).Players) == 2
	})
}

func TestLobbyStartDealsGameToBothPlayers(t *testing.T) {
	m, bcast := newTestManager()
	ctx := context.Background()

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdRoomCreate, wire.RoomCreatePayload{DisplayName: "Alice"}), 1000)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtRoomJoined) == 1 })
	joined := bcast.last("s1", wire.EvtRoomJoined).Payload.(wire.RoomJoinedPayload)

	m.Dispatch(ctx, "s2", mustEnvelope(t, wire.CmdRoomJoin, wire.RoomJoinPayload{RoomCode: joined.RoomCode, DisplayName: "Bob"}), 1001)
	waitFor(t, func() bool { return bcast.count("s2", wire.EvtRoomJoined) == 1 })

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdLobbyStart, nil), 1002)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtGameState) == 1 })
	waitFor(t, func() bool { return bcast.count("s2", wire.EvtGameState) == 1 })

	view := bcast.last("s1", wire.EvtGameState).Payload.(wire.GameStatePayload).Snapshot.(game.GameStateView)
	require.Equal(t, "IN_GAME", view.Status)
	require.Len(t, view.Players, 2)
}

func TestLobbyStartRejectsNonHost(t *testing.T) {
	m, bcast := newTestManager()
	ctx := context.Background()

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdRoomCreate, wire.RoomCreatePayload{DisplayName: "Alice"}), 1000)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtRoomJoined) == 1 })
	joined := bcast.last("s1", wire.EvtRoomJoined).Payload.(wire.RoomJoinedPayload)

	m.Dispatch(ctx, "s2", mustEnvelope(t, wire.CmdRoomJoin, wire.RoomJoinPayload{RoomCode: joined.RoomCode, DisplayName: "Bob"}), 1001)
	waitFor(t, func() bool { return bcast.count("s2", wire.EvtRoomJoined) == 1 })

	m.Dispatch(ctx, "s2", mustEnvelope(t, wire.CmdLobbyStart, nil), 1002)
	waitFor(t, func() bool { return bcast.count("s2", wire.EvtError) == 1 })

	errPayload := bcast.last("s2", wire.EvtError).Payload.(*wire.Error)
	require.Equal(t, wire.CodeNotHost, errPayload.Code)
}

func TestLastLobbyMemberLeavingDeletesRoom(t *testing.T) {
	m, bcast := newTestManager()
	ctx := context.Background()

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdRoomCreate, wire.RoomCreatePayload{DisplayName: "Alice"}), 1000)
	waitFor(t, func() bool { return bcast.count("s1", wire.EvtRoomJoined) == 1 })
	joined := bcast.last("s1", wire.EvtRoomJoined).Payload.(wire.RoomJoinedPayload)

	m.Dispatch(ctx, "s1", mustEnvelope(t, wire.CmdRoomLeave, nil), 1001)

	waitFor(t, func() bool {
		_, err := m.store.GetRoomByID(ctx, joined.RoomID)
		return err != nil
	})
}
