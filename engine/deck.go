package engine

import "fmt"

// DefaultDeck returns a freshly built 47-card deck: 7x each normal card and
// 4x each action card.
func DefaultDeck() []Card {
	deck := make([]Card, 0, len(NormalCards)*NormalCardCount+len(ActionCards)*ActionCardCount)
	for _, c := range NormalCards {
		for i := 0; i < NormalCardCount; i++ {
			deck = append(deck, c)
		}
	}
	for _, c := range ActionCards {
		for i := 0; i < ActionCardCount; i++ {
			deck = append(deck, c)
		}
	}
	return deck
}

// ValidateDeck reports whether every card in deck belongs to AllCards.
func ValidateDeck(deck []Card) bool {
	for _, c := range deck {
		if !IsValidCard(c) {
			return false
		}
	}
	return true
}

// ValidatePlayerCount reports whether n is within [MinPlayers, MaxPlayers].
func ValidatePlayerCount(n int) bool {
	return n >= MinPlayers && n <= MaxPlayers
}

// shuffleDeck returns a Fisher-Yates shuffled copy of deck, from the last
// index down to 1, using g for randomness. The input slice is never mutated.
func shuffleDeck(deck []Card, g *rng) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	for i := len(out) - 1; i > 0; i-- {
		j := int(g.next() * float64(i+1))
		if j > i {
			j = i // guard against the 1.0 boundary case
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ShuffleDeckSeeded shuffles deck deterministically using a string seed.
// Two calls with identical seed and deck are pointwise equal.
func ShuffleDeckSeeded(deck []Card, seed string) []Card {
	return shuffleDeck(deck, newRNG(seed))
}

// ShuffleDeckSeededInt is ShuffleDeckSeeded for integer seeds.
func ShuffleDeckSeededInt(deck []Card, seed int64) []Card {
	return shuffleDeck(deck, newRNGFromInt(seed))
}

// NewGameParams configures NewGame's initial deal.
type NewGameParams struct {
	// Players lists the seated users in seat order; SeatIndex/Hand/Connected
	// on each entry are ignored and overwritten.
	Players []Player
	// Deck is dealt as given if Shuffle is false, or a copy of it shuffled
	// with Seed otherwise. Callers wanting DefaultDeck() pass it explicitly.
	Deck    []Card
	Seed    string
	Shuffle bool
	Config  Config
}

// NewGame validates params and deals a fresh round-robin game. Deck entries
// are dealt one at a time to seat (i mod n); when len(Deck) isn't a multiple
// of n, the deal is uneven by construction, not by omission.
func NewGame(params NewGameParams) (GameState, error) {
	n := len(params.Players)
	if !ValidatePlayerCount(n) {
		return GameState{}, fmt.Errorf("%w: invalid player count %d", ErrInternal, n)
	}
	if !ValidateDeck(params.Deck) {
		return GameState{}, fmt.Errorf("%w: invalid deck", ErrInternal)
	}

	deck := params.Deck
	if params.Shuffle {
		deck = ShuffleDeckSeeded(deck, params.Seed)
	}

	players := make([]Player, n)
	for i, p := range params.Players {
		p.SeatIndex = i
		p.Connected = true
		p.Hand = nil
		players[i] = p
	}
	for i, c := range deck {
		seat := i % n
		players[seat].Hand = append(players[seat].Hand, c)
	}

	return GameState{
		Status:             StatusInGame,
		Players:            players,
		CurrentTurnSeat:    0,
		ChantIndex:         0,
		Version:            1,
		NextSlapEventNonce: 1,
		Config:             params.Config,
	}, nil
}
