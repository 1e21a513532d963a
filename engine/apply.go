package engine

import "fmt"

// Apply is the engine's single pure entry point: a total function
// (state, event, now) → Result with no side effects, no clock reads, and no
// in-place mutation of the caller's state. now is server time in
// milliseconds, supplied by the caller — the engine never calls time.Now.
func Apply(state GameState, event Event, now int64) Result {
	s := state.Clone()

	switch event.Kind {
	case EventFlip:
		return applyFlip(s, event, now)
	case EventSlap:
		return applySlap(s, event, now)
	case EventResolveSlapWindow:
		return applyResolveSlapWindow(s, now)
	case EventTurnTimeout:
		return applyTurnTimeout(s, now)
	case EventSkipSlapWindow:
		return applySkipSlapWindow(s, now)
	default:
		return Result{State: s, Err: fmt.Errorf("%w: unknown event kind %d", ErrInternal, event.Kind)}
	}
}

// reject returns a Result carrying err and the state exactly as it was
// before this Apply call attempted any mutation: a rejected event never
// partially applies.
func reject(s GameState, err error) Result {
	return Result{State: s, Err: err}
}

// nextEventID mints the deterministic, monotone event id for a new slap
// window and advances the nonce. The zero-padded hex encoding with a fixed
// prefix means identical event sequences from the same initial state always
// produce identical ids.
func (g *GameState) nextEventID() string {
	id := fmt.Sprintf("sw-%08x", g.NextSlapEventNonce)
	g.NextSlapEventNonce++
	return id
}

// normalizeTurnSeat ensures CurrentTurnSeat points at a nonempty hand when
// one exists, walking forward from the seat after the current one. It is a
// no-op if the current seat already has cards, and a no-op if every seat is
// empty (the caller is expected to have already finished the game in that
// case).
func (g *GameState) normalizeTurnSeat() {
	n := len(g.Players)
	if n == 0 {
		return
	}
	if cur := g.PlayerBySeat(g.CurrentTurnSeat); cur != nil && len(cur.Hand) > 0 {
		return
	}
	for i := 1; i <= n; i++ {
		seat := (g.CurrentTurnSeat + i) % n
		if p := g.PlayerBySeat(seat); p != nil && len(p.Hand) > 0 {
			g.CurrentTurnSeat = seat
			return
		}
	}
}

// takePile moves the entire pile onto the bottom of the given seat's hand,
// in pile order, and clears the pile.
func (g *GameState) takePile(seat int) int {
	taken := len(g.Pile)
	if taken == 0 {
		return 0
	}
	p := g.PlayerBySeat(seat)
	if p == nil {
		g.Pile = nil
		return taken
	}
	p.Hand = append(p.Hand, g.Pile...)
	g.Pile = nil
	return taken
}

// resetSlapWindow clears the slap window back to its inactive zero value.
func (g *GameState) resetSlapWindow() {
	g.SlapWindow = SlapWindow{}
}

// finish transitions the game to FINISHED with the given winner, clearing
// any in-flight slap window.
func (g *GameState) finish(winnerUserID string) {
	g.Status = StatusFinished
	w := winnerUserID
	g.WinnerUserID = &w
	g.resetSlapWindow()
}
