package engine

import "testing"

// TestApplyIsDeterministic checks that identical arguments to Apply always
// produce identical results.
func TestApplyIsDeterministic(t *testing.T) {
	players := []Player{{UserID: "u1"}, {UserID: "u2"}}
	deck := []Card{CardTaco, CardCat, CardGoat, CardCheese}
	gs := newUnshuffledGame(t, players, deck)

	a := Apply(gs, NewFlipEvent("u1"), 1234)
	b := Apply(gs, NewFlipEvent("u1"), 1234)

	if a.State.Version != b.State.Version || a.State.ChantIndex != b.State.ChantIndex {
		t.Fatalf("Apply produced divergent states: %+v vs %+v", a.State, b.State)
	}
	if len(a.Effects) != len(b.Effects) {
		t.Fatalf("Apply produced divergent effect counts: %d vs %d", len(a.Effects), len(b.Effects))
	}
}

// TestApplyNeverMutatesCallerState checks that state passed into Apply is
// never observed to change, even when the event mutates a field the caller
// still holds a reference into (Players/Pile slices).
func TestApplyNeverMutatesCallerState(t *testing.T) {
	players := []Player{{UserID: "u1"}, {UserID: "u2"}}
	deck := []Card{CardCat, CardGoat, CardCheese, CardPizza}
	gs := newUnshuffledGame(t, players, deck)

	originalHandLen := len(gs.Players[0].Hand)
	originalVersion := gs.Version

	_ = Apply(gs, NewFlipEvent("u1"), 1000)

	if len(gs.Players[0].Hand) != originalHandLen {
		t.Errorf("caller's hand length changed: %d vs %d", len(gs.Players[0].Hand), originalHandLen)
	}
	if gs.Version != originalVersion {
		t.Errorf("caller's version changed: %d vs %d", gs.Version, originalVersion)
	}
}

// TestApplyRejectedEventLeavesStateUnchanged checks that a rejected event's
// Result.State is exactly the input state.
func TestApplyRejectedEventLeavesStateUnchanged(t *testing.T) {
	players := []Player{{UserID: "u1"}, {UserID: "u2"}}
	deck := []Card{CardCat, CardGoat, CardCheese, CardPizza}
	gs := newUnshuffledGame(t, players, deck)

	res := Apply(gs, NewFlipEvent("u2"), 1000)
	if res.Err == nil {
		t.Fatal("expected rejection")
	}
	if res.State.Version != gs.Version {
		t.Errorf("version changed on rejection: %d vs %d", res.State.Version, gs.Version)
	}
	if len(res.Effects) != 0 {
		t.Errorf("expected no effects on rejection, got %+v", res.Effects)
	}
}

// TestEventIDStability checks the nonce-derived event id scheme: replaying
// the same sequence of events from the same initial state issues identical
// ids.
func TestEventIDStability(t *testing.T) {
	build := func() GameState {
		players := []Player{{UserID: "u1"}, {UserID: "u2"}}
		deck := []Card{CardGorilla, CardCat, CardGoat, CardCheese, CardGorilla, CardPizza}
		return newUnshuffledGame(t, players, deck)
	}

	runOnce := func() []string {
		gs := build()
		var ids []string
		flip1 := Apply(gs, NewFlipEvent("u1"), 1000)
		ids = append(ids, flip1.Effects[0].EventID)
		resolved := Apply(flip1.State, NewResolveSlapWindowEvent(), 5000)
		_ = resolved
		return ids
	}

	a := runOnce()
	b := runOnce()
	if len(a) != len(b) || a[0] != b[0] {
		t.Fatalf("event ids diverged across identical replays: %v vs %v", a, b)
	}
}
