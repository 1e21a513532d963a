package orchestrator

import (
	"time"

	"github.com/slaphard/slaphard/engine"
)

type timerKind int

const (
	timerNone timerKind = iota
	timerTurn
	timerSlap
)

// cancelTimer stops any pending timer and bumps the generation counter, so
// a callback already in flight becomes a stale no-op the moment it checks
// its captured generation.
func (r *Room) cancelTimer() {
	r.timerGen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// requiresAllConnectedSlaps reports whether the currently open slap window
// can only be closed by every connected player slapping — SAME_CARD always,
// ACTION once the table is at least 5 players. Such a window gets no
// deadline timer; only the slap count itself can resolve it.
func requiresAllConnectedSlaps(eng *engine.GameState) bool {
	switch eng.SlapWindow.Reason {
	case engine.ReasonSameCard:
		return true
	case engine.ReasonAction:
		return eng.ConnectedCount() >= 5
	default:
		return false
	}
}

// rescheduleTimer cancels any pending timer and, if a game is live, arms
// the next one: a slap-window deadline if a window is open, otherwise the
// turn clock. Called after every state-changing operation, so the fired
// callback's generation check is sufficient to detect a state change that
// happened between scheduling and firing — nothing else could have changed
// the timer-relevant state without also calling this.
func (r *Room) rescheduleTimer() {
	r.cancelTimer()
	if r.eng == nil || r.eng.Status != engine.StatusInGame {
		return
	}
	if r.eng.SlapWindow.Active && !r.eng.SlapWindow.Resolved && requiresAllConnectedSlaps(r.eng) {
		return
	}

	gen := r.timerGen
	var d time.Duration
	var kind timerKind

	if r.eng.SlapWindow.Active && !r.eng.SlapWindow.Resolved {
		kind = timerSlap
		remaining := r.eng.SlapWindow.DeadlineServerTime - nowMillis()
		if remaining < 0 {
			remaining = 0
		}
		d = time.Duration(remaining) * time.Millisecond
	} else {
		kind = timerTurn
		ms := r.eng.Config.TurnTimeoutMs
		if ms <= 0 {
			ms = engine.DefaultConfig().TurnTimeoutMs
		}
		d = time.Duration(ms) * time.Millisecond
	}

	r.timer = time.AfterFunc(d, func() {
		r.enqueue(func() { r.onTimerFire(gen, kind) })
	})
}

// onTimerFire runs the deadline event that armed it, unless a later
// rescheduleTimer call has already superseded this callback.
func (r *Room) onTimerFire(gen uint64, kind timerKind) {
	if gen != r.timerGen {
		return
	}
	var ev engine.Event
	switch kind {
	case timerSlap:
		ev = engine.NewResolveSlapWindowEvent()
	case timerTurn:
		ev = engine.NewTurnTimeoutEvent()
	default:
		return
	}
	if err := r.applyEngineEvent(ev, nowMillis()); err != nil {
		r.m.log.WithError(err).WithField("roomId", r.id).Warn("orchestrator: timer-driven event rejected")
	}
}
