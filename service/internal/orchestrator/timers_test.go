package orchestrator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slaphard/slaphard/engine"
)

func newTimerTestRoom() *Room {
	m, _ := newTestManager()
	return newRoom("room-timer-test", m)
}

func connectedPlayers(n int) []engine.Player {
	players := make([]engine.Player, n)
	for i := range players {
		players[i] = engine.Player{UserID: fmt.Sprintf("u%d", i), SeatIndex: i, Connected: true}
	}
	return players
}

func TestRescheduleTimerSkipsDeadlineForSameCardWindow(t *testing.T) {
	r := newTimerTestRoom()
	r.eng = &engine.GameState{
		Status:  engine.StatusInGame,
		Players: connectedPlayers(2),
		SlapWindow: engine.SlapWindow{
			Active:             true,
			Resolved:           false,
			Reason:             engine.ReasonSameCard,
			DeadlineServerTime: nowMillis() + 5000,
		},
	}

	r.rescheduleTimer()
	defer r.cancelTimer()

	assert.Nil(t, r.timer)
}

func TestRescheduleTimerSkipsDeadlineForActionWindowAtFivePlayers(t *testing.T) {
	r := newTimerTestRoom()
	card := engine.CardGorilla
	r.eng = &engine.GameState{
		Status:  engine.StatusInGame,
		Players: connectedPlayers(5),
		SlapWindow: engine.SlapWindow{
			Active:             true,
			Resolved:           false,
			Reason:             engine.ReasonAction,
			ActionCard:         &card,
			DeadlineServerTime: nowMillis() + 5000,
		},
	}

	r.rescheduleTimer()
	defer r.cancelTimer()

	assert.Nil(t, r.timer)
}

func TestRescheduleTimerArmsDeadlineForActionWindowUnderFivePlayers(t *testing.T) {
	r := newTimerTestRoom()
	card := engine.CardGorilla
	r.eng = &engine.GameState{
		Status:  engine.StatusInGame,
		Players: connectedPlayers(2),
		SlapWindow: engine.SlapWindow{
			Active:             true,
			Resolved:           false,
			Reason:             engine.ReasonAction,
			ActionCard:         &card,
			DeadlineServerTime: nowMillis() + 5000,
		},
	}

	r.rescheduleTimer()
	defer r.cancelTimer()

	assert.NotNil(t, r.timer)
}

func TestRescheduleTimerArmsTurnClockWhenNoWindowOpen(t *testing.T) {
	r := newTimerTestRoom()
	r.eng = &engine.GameState{
		Status:  engine.StatusInGame,
		Players: connectedPlayers(2),
		Config:  engine.DefaultConfig(),
	}

	r.rescheduleTimer()
	defer r.cancelTimer()

	assert.NotNil(t, r.timer)
}
