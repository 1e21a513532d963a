// Package game implements the state view projector: turning an
// authoritative engine.GameState into the per-recipient JSON view a
// specific client is allowed to see.
package game

import (
	engine "github.com/slaphard/slaphard/engine"
)

// PlayerView is one player's projected state: handCount only, except
// for the requesting player, who additionally receives Hand.
type PlayerView struct {
	UserID      string        `json:"userId"`
	DisplayName string        `json:"displayName"`
	SeatIndex   int           `json:"seatIndex"`
	Connected   bool          `json:"connected"`
	Ready       bool          `json:"ready"`
	HandCount   int           `json:"handCount"`
	Hand        []engine.Card `json:"hand,omitempty"`
}

// SlapWindowView is the projected slap window: attempts[] is replaced by
// slappedUserIds[] and flipperSeat is stripped entirely.
type SlapWindowView struct {
	Active             bool         `json:"active"`
	Resolved           bool         `json:"resolved"`
	EventID            string       `json:"eventId,omitempty"`
	Reason             string       `json:"reason,omitempty"`
	ActionCard         *engine.Card `json:"actionCard,omitempty"`
	StartServerTime    int64        `json:"startServerTime,omitempty"`
	DeadlineServerTime int64        `json:"deadlineServerTime,omitempty"`
	SlapWindowMs       int          `json:"slapWindowMs,omitempty"`
	SlappedUserIDs     []string     `json:"slappedUserIds"`
	ReceivedSlapsCount int          `json:"receivedSlapsCount"`
}

// LastRevealedView mirrors engine.LastRevealed for the wire (flipperSeat is
// public here — unlike the slap window's, it isn't sensitive).
type LastRevealedView struct {
	Card        engine.Card `json:"card"`
	FlipperSeat int         `json:"flipperSeat"`
}

// GameStateView is the complete projected snapshot sent to one recipient.
// It never includes another player's hand contents.
type GameStateView struct {
	Status          string            `json:"status"`
	CurrentTurnSeat int               `json:"currentTurnSeat"`
	ChantIndex      int               `json:"chantIndex"`
	Players         []PlayerView      `json:"players"`
	PileCount       int               `json:"pileCount"`
	PileTopCard     *engine.Card      `json:"pileTopCard,omitempty"`
	LastRevealed    *LastRevealedView `json:"lastRevealed,omitempty"`
	SlapWindow      SlapWindowView    `json:"slapWindow"`
	WinnerUserID    *string           `json:"winnerUserId,omitempty"`
	Version         int               `json:"version"`
}

func statusString(s engine.Status) string {
	if s == engine.StatusFinished {
		return "FINISHED"
	}
	return "IN_GAME"
}

func reasonString(r engine.SlapWindowReason) string {
	switch r {
	case engine.ReasonAction:
		return "ACTION"
	case engine.ReasonSameCard:
		return "SAME_CARD"
	default:
		return "MATCH"
	}
}

// Project builds the GameStateView of state as seen by meUserID. It
// is pure and side-effect-free: it never mutates state and never leaks
// another player's hand.
func Project(state *engine.GameState, meUserID string) GameStateView {
	view := GameStateView{
		Status:          statusString(state.Status),
		CurrentTurnSeat: state.CurrentTurnSeat,
		ChantIndex:      state.ChantIndex,
		PileCount:       state.PileCount(),
		PileTopCard:     state.PileTopCard(),
		WinnerUserID:    state.WinnerUserID,
		Version:         state.Version,
	}

	if state.LastRevealed != nil {
		view.LastRevealed = &LastRevealedView{
			Card:        state.LastRevealed.Card,
			FlipperSeat: state.LastRevealed.FlipperSeat,
		}
	}

	view.Players = make([]PlayerView, len(state.Players))
	for i, p := range state.Players {
		pv := PlayerView{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			SeatIndex:   p.SeatIndex,
			Connected:   p.Connected,
			Ready:       p.Ready,
			HandCount:   len(p.Hand),
		}
		if p.UserID == meUserID {
			hand := make([]engine.Card, len(p.Hand))
			copy(hand, p.Hand)
			pv.Hand = hand
		}
		view.Players[i] = pv
	}

	w := state.SlapWindow
	slapped := make([]string, len(w.Attempts))
	for i, a := range w.Attempts {
		slapped[i] = a.UserID
	}
	view.SlapWindow = SlapWindowView{
		Active:             w.Active,
		Resolved:           w.Resolved,
		SlappedUserIDs:     slapped,
		ReceivedSlapsCount: w.ReceivedSlapsCount(),
	}
	if w.Active {
		view.SlapWindow.EventID = w.EventID
		view.SlapWindow.Reason = reasonString(w.Reason)
		view.SlapWindow.ActionCard = w.ActionCard
		view.SlapWindow.StartServerTime = w.StartServerTime
		view.SlapWindow.DeadlineServerTime = w.DeadlineServerTime
		view.SlapWindow.SlapWindowMs = w.SlapWindowMs
	}

	return view
}
