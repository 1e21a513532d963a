package engine

import "sort"

// applyResolveSlapWindow implements the RESOLVE_SLAP_WINDOW event.
func applyResolveSlapWindow(s GameState, now int64) Result {
	if s.Status != StatusInGame {
		return reject(s, ErrNotInGame)
	}
	if !s.SlapWindow.Active || s.SlapWindow.Resolved {
		return reject(s, ErrNoSlapWindow)
	}
	effects := s.doResolveSlapWindow(now)
	s.Version++
	return Result{State: s, Effects: effects}
}

// applySkipSlapWindow implements SKIP_SLAP_WINDOW: an orchestrator-initiated
// force-close (e.g. a host skip) rather than a distinct game rule, so it
// runs the same window-resolution algorithm as RESOLVE_SLAP_WINDOW.
func applySkipSlapWindow(s GameState, now int64) Result {
	if s.Status != StatusInGame {
		return reject(s, ErrNotInGame)
	}
	if !s.SlapWindow.Active || s.SlapWindow.Resolved {
		return reject(s, ErrNoSlapWindow)
	}
	effects := s.doResolveSlapWindow(now)
	s.Version++
	return Result{State: s, Effects: effects}
}

// applyTurnTimeout implements TURN_TIMEOUT: the seated player who let the
// turn clock run out takes the pile as a penalty.
func applyTurnTimeout(s GameState, now int64) Result {
	if s.Status != StatusInGame {
		return reject(s, ErrNotInGame)
	}
	if s.SlapWindow.Active && !s.SlapWindow.Resolved {
		return reject(s, ErrSlapWindowActive)
	}
	effects := s.applyPenalty(PenaltyTurnTimeout, s.CurrentTurnSeat)
	s.Version++
	return Result{State: s, Effects: effects}
}

// reactionMs estimates a slap's reaction time, clamped into
// [minHumanMs, slapWindowMs+2000] with negative raw values floored to 0
// before the floor is applied.
func reactionMs(a SlapAttempt, w SlapWindow, minHumanMs int) int64 {
	raw := (a.ClientTime + a.OffsetMs) - w.StartServerTime
	if raw < 0 {
		raw = 0
	}
	if raw < int64(minHumanMs) {
		raw = int64(minHumanMs)
	}
	cap := int64(w.SlapWindowMs + 2000)
	if raw > cap {
		raw = cap
	}
	return raw
}

// orderAttempts sorts a copy of w.Attempts by the window's ordering rule.
func orderAttempts(w SlapWindow, minHumanMs int) []SlapAttempt {
	ordered := make([]SlapAttempt, len(w.Attempts))
	copy(ordered, w.Attempts)

	if w.Reason == ReasonSameCard {
		sort.SliceStable(ordered, func(i, j int) bool {
			a, b := ordered[i], ordered[j]
			if a.ReceivedAtServerTime != b.ReceivedAtServerTime {
				return a.ReceivedAtServerTime < b.ReceivedAtServerTime
			}
			if a.ClientSeq != b.ClientSeq {
				return a.ClientSeq < b.ClientSeq
			}
			return a.UserID < b.UserID
		})
		return ordered
	}

	reactions := make(map[string]int64, len(ordered))
	for _, a := range ordered {
		reactions[a.UserID+"#"+a.EventID] = reactionMs(a, w, minHumanMs)
	}
	key := func(a SlapAttempt) int64 { return reactions[a.UserID+"#"+a.EventID] }

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		ra, rb := key(a), key(b)
		if ra != rb {
			return ra < rb
		}
		if a.ReceivedAtServerTime != b.ReceivedAtServerTime {
			return a.ReceivedAtServerTime < b.ReceivedAtServerTime
		}
		if a.ClientSeq != b.ClientSeq {
			return a.ClientSeq < b.ClientSeq
		}
		return a.UserID < b.UserID
	})
	return ordered
}

// doResolveSlapWindow runs the full window-resolution algorithm: ordering,
// loser determination, pile transfer, and window/turn reset. It is shared
// by auto-resolution (SLAP reaching the required count), RESOLVE_SLAP_WINDOW,
// SKIP_SLAP_WINDOW, and the orchestrator's deadline timer (which posts
// RESOLVE_SLAP_WINDOW).
func (s *GameState) doResolveSlapWindow(now int64) []Effect {
	w := s.SlapWindow
	eventID := w.EventID
	minHumanMs := s.Config.withDefaults().MinHumanMs

	ordered := orderAttempts(w, minHumanMs)
	orderedUserIDs := make([]string, len(ordered))
	for i, a := range ordered {
		orderedUserIDs[i] = a.UserID
	}

	if len(ordered) == 0 {
		loserSeat := w.FlipperSeat
		loser := s.PlayerBySeat(loserSeat)
		loserID := ""
		if loser != nil {
			loserID = loser.UserID
		}
		pileTaken := s.takePile(loserSeat)
		s.CurrentTurnSeat = loserSeat
		s.resetSlapWindow()
		s.normalizeTurnSeat()
		return []Effect{
			{Kind: EffectPenalty, UserID: loserID, PenaltyType: PenaltyNoSlaps, PileTaken: pileTaken},
			{Kind: EffectSlapResult, EventID: eventID, OrderedUserIDs: orderedUserIDs, LoserUserID: loserID, ResultReason: ReasonNoSlaps, PileTaken: pileTaken},
		}
	}

	firstUserID := ordered[0].UserID
	if first := s.PlayerByUserID(firstUserID); first != nil && len(first.Hand) == 0 {
		s.finish(firstUserID)
		return []Effect{
			{Kind: EffectSlapResult, EventID: eventID, OrderedUserIDs: orderedUserIDs, ResultReason: ReasonFirstValidSlapWin},
			{Kind: EffectGameFinished, WinnerUserID: firstUserID},
		}
	}

	var loserID string
	var reason SlapResultReason

	if w.Reason == ReasonSameCard {
		loserID = ordered[len(ordered)-1].UserID
		reason = ReasonLastSlapper
	} else {
		attempted := make(map[string]bool, len(ordered))
		for _, a := range ordered {
			attempted[a.UserID] = true
		}
		var nonSlappers []string
		for i := 0; i < len(s.Players); i++ {
			seat := i
			if p := s.PlayerBySeat(seat); p != nil && !attempted[p.UserID] {
				nonSlappers = append(nonSlappers, p.UserID)
			}
		}
		if len(nonSlappers) > 0 {
			loserID = nonSlappers[len(nonSlappers)-1]
			reason = ReasonNonSlapper
		} else {
			// Everyone slapped: last in ordered list loses. Deliberate, not a bug.
			loserID = ordered[len(ordered)-1].UserID
			reason = ReasonLastSlapper
		}
	}

	loserPlayer := s.PlayerByUserID(loserID)
	loserSeat := s.CurrentTurnSeat
	if loserPlayer != nil {
		loserSeat = loserPlayer.SeatIndex
	}
	pileTaken := s.takePile(loserSeat)
	s.CurrentTurnSeat = loserSeat
	s.resetSlapWindow()
	s.normalizeTurnSeat()

	return []Effect{
		{Kind: EffectSlapResult, EventID: eventID, OrderedUserIDs: orderedUserIDs, LoserUserID: loserID, ResultReason: reason, PileTaken: pileTaken},
	}
}
