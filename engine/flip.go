package engine

import "fmt"

// applyFlip implements FLIP semantics.
func applyFlip(s GameState, event Event, now int64) Result {
	if s.Status != StatusInGame {
		return reject(s, ErrNotInGame)
	}
	if s.SlapWindow.Active && !s.SlapWindow.Resolved {
		return reject(s, ErrSlapWindowActive)
	}

	// Normalize current turn before checking whose turn it is — a seat that
	// emptied its hand on a prior flip (with no window open) is skipped here
	// rather than at resolution time.
	orig := s.Clone()
	s.normalizeTurnSeat()

	flipper := s.PlayerBySeat(s.CurrentTurnSeat)
	if flipper == nil {
		return reject(orig, fmt.Errorf("%w: no player seated at %d", ErrInternal, s.CurrentTurnSeat))
	}
	if flipper.UserID != event.UserID {
		return reject(orig, ErrNotYourTurn)
	}
	if len(flipper.Hand) == 0 {
		return reject(orig, fmt.Errorf("%w: current turn seat has empty hand after normalization", ErrInternal))
	}

	priorLastRevealed := s.LastRevealed

	flipped := flipper.Hand[0]
	flipper.Hand = flipper.Hand[1:]
	s.Pile = append(s.Pile, flipped)
	s.LastRevealed = &LastRevealed{Card: flipped, FlipperSeat: s.CurrentTurnSeat}

	// Empty-handed flipper finishes the game immediately, even on a card
	// that would otherwise open a window (see DESIGN.md, decision #1).
	if len(flipper.Hand) == 0 {
		winner := flipper.UserID
		s.finish(winner)
		s.ChantIndex = (s.ChantIndex + 1) % len(ChantOrder)
		s.Version++
		return Result{
			State:   s,
			Effects: []Effect{{Kind: EffectGameFinished, WinnerUserID: winner}},
		}
	}

	reason, triggered := s.windowTrigger(flipped, priorLastRevealed)
	if triggered {
		effect := s.openSlapWindow(reason, now)
		s.ChantIndex = (s.ChantIndex + 1) % len(ChantOrder)
		s.Version++
		return Result{State: s, Effects: []Effect{effect}}
	}

	s.CurrentTurnSeat = (s.CurrentTurnSeat + 1) % len(s.Players)
	s.normalizeTurnSeat()
	s.ChantIndex = (s.ChantIndex + 1) % len(ChantOrder)
	s.Version++
	return Result{State: s}
}

// windowTrigger evaluates the three window conditions in priority order:
// ACTION, then SAME_CARD, then MATCH.
func (s *GameState) windowTrigger(flipped Card, priorLastRevealed *LastRevealed) (SlapWindowReason, bool) {
	if flipped.IsAction() {
		return ReasonAction, true
	}
	if priorLastRevealed != nil && flipped.IsNormal() && flipped == priorLastRevealed.Card {
		return ReasonSameCard, true
	}
	if flipped.IsNormal() && flipped == s.ChantWord() {
		return ReasonMatch, true
	}
	return 0, false
}

// openSlapWindow opens a new slap window of the given reason and returns
// the SLAP_WINDOW_OPEN effect describing it.
func (s *GameState) openSlapWindow(reason SlapWindowReason, now int64) Effect {
	windowMs := s.Config.withDefaults().windowMs(reason)
	eventID := s.nextEventID()

	var actionCard *Card
	if reason == ReasonAction {
		c := *s.PileTopCard()
		actionCard = &c
	}

	s.SlapWindow = SlapWindow{
		Active:             true,
		Resolved:           false,
		EventID:            eventID,
		Reason:             reason,
		ActionCard:         actionCard,
		StartServerTime:    now,
		DeadlineServerTime: now + int64(windowMs),
		SlapWindowMs:       windowMs,
		FlipperSeat:        s.CurrentTurnSeat,
	}

	return Effect{
		Kind:               EffectSlapWindowOpen,
		EventID:            eventID,
		Reason:             reason,
		ActionCard:         actionCard,
		StartServerTime:    now,
		DeadlineServerTime: now + int64(windowMs),
		SlapWindowMs:       windowMs,
	}
}
