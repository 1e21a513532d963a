package engine

// applySlap implements SLAP semantics.
func applySlap(s GameState, event Event, now int64) Result {
	if s.Status != StatusInGame {
		return reject(s, ErrNotInGame)
	}

	slapper := s.PlayerByUserID(event.UserID)
	if slapper == nil {
		return reject(s, ErrInternal)
	}

	windowOpen := s.SlapWindow.Active && !s.SlapWindow.Resolved
	if !windowOpen || s.SlapWindow.EventID != event.EventID {
		// Wrong or stale event id: immediate FALSE_SLAP penalty.
		effects := s.applyPenalty(PenaltyFalseSlap, slapper.SeatIndex)
		s.Version++
		return Result{State: s, Effects: effects}
	}

	for _, a := range s.SlapWindow.Attempts {
		if a.UserID == event.UserID {
			// Duplicate within the same window: silent dedup, no state change.
			return reject(s, ErrAlreadySlapped)
		}
	}

	if s.SlapWindow.Reason == ReasonAction {
		if event.Gesture == nil || *event.Gesture != *s.SlapWindow.ActionCard {
			effects := s.applyPenalty(PenaltyWrongGesture, slapper.SeatIndex)
			s.Version++
			return Result{State: s, Effects: effects}
		}
	}

	s.SlapWindow.Attempts = append(s.SlapWindow.Attempts, SlapAttempt{
		UserID:               event.UserID,
		EventID:              event.EventID,
		Gesture:              event.Gesture,
		ClientSeq:            event.ClientSeq,
		ClientTime:           event.ClientTime,
		OffsetMs:             event.OffsetMs,
		RTTMs:                event.RTTMs,
		ReceivedAtServerTime: now,
	})

	// First-valid-slap win short-circuit: the first attempt against this
	// window, from a player already holding no cards, ends the game
	// immediately regardless of required slap count.
	if len(s.SlapWindow.Attempts) == 1 && len(slapper.Hand) == 0 {
		winner := slapper.UserID
		eventID := s.SlapWindow.EventID
		s.finish(winner)
		s.Version++
		return Result{
			State: s,
			Effects: []Effect{
				{Kind: EffectSlapResult, EventID: eventID, OrderedUserIDs: []string{winner}, ResultReason: ReasonFirstValidSlapWin},
				{Kind: EffectGameFinished, WinnerUserID: winner},
			},
		}
	}

	if s.SlapWindow.ReceivedSlapsCount() >= s.requiredSlapCount() {
		effects := s.doResolveSlapWindow(now)
		s.Version++
		return Result{State: s, Effects: effects}
	}

	s.Version++
	return Result{State: s}
}

// requiredSlapCount is the number of attempts needed to auto-resolve the
// active window: SAME_CARD/ACTION need every connected player, MATCH needs
// every seated player, kept literal including the flipper (see DESIGN.md,
// decision #2).
func (s *GameState) requiredSlapCount() int {
	switch s.SlapWindow.Reason {
	case ReasonSameCard, ReasonAction:
		if c := s.ConnectedCount(); c > 0 {
			return c
		}
		return 1
	default:
		return len(s.Players)
	}
}

// applyPenalty implements the shared FALSE_SLAP / WRONG_GESTURE /
// TURN_TIMEOUT penalty algorithm: the penalized player takes the pile,
// becomes the current turn, the window resets, and turn-seat normalization
// runs.
func (s *GameState) applyPenalty(kind PenaltyType, seat int) []Effect {
	p := s.PlayerBySeat(seat)
	userID := ""
	if p != nil {
		userID = p.UserID
	}
	pileTaken := s.takePile(seat)
	s.CurrentTurnSeat = seat
	s.resetSlapWindow()
	s.normalizeTurnSeat()
	return []Effect{{Kind: EffectPenalty, UserID: userID, PenaltyType: kind, PileTaken: pileTaken}}
}
