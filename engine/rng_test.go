package engine

import "testing"

// TestNewRNGDeterministic checks that a given string seed always produces
// the same sequence, and that different seeds diverge.
func TestNewRNGDeterministic(t *testing.T) {
	a := newRNG("seed-1")
	b := newRNG("seed-1")
	for i := 0; i < 10; i++ {
		x, y := a.next(), b.next()
		if x != y {
			t.Fatalf("step %d: %v vs %v", i, x, y)
		}
		if x < 0 || x >= 1 {
			t.Fatalf("step %d: %v out of [0,1)", i, x)
		}
	}

	c := newRNG("seed-2")
	d := newRNG("seed-1")
	same := true
	for i := 0; i < 10; i++ {
		if d.next() != c.next() {
			same = false
			break
		}
	}
	// Divergence isn't guaranteed on every step, only over the sequence.
	if same {
		t.Error("seed-1 and seed-2 produced identical 10-step sequences")
	}
}

// TestNewRNGZeroStateGuard checks that zero is a fixed point of the xorshift
// stepper, and that newRNG does not hand out that zero state for the empty
// seed.
func TestNewRNGZeroStateGuard(t *testing.T) {
	g := &rng{state: 0}
	// Directly exercise the xorshift stepper: zero is a fixed point of
	// xorshift, so newRNG must never hand out state==0 (see newRNG's guard).
	for i := 0; i < 3; i++ {
		if g.next() != 0 {
			t.Fatalf("xorshift on zero state should stay zero, got nonzero at step %d", i)
		}
	}

	guarded := newRNG("")
	if guarded.state == 0 {
		t.Fatal("newRNG must guard against a zero-hashing seed")
	}
}

// TestShuffleDeckSeededIntMatchesStringPath checks the integer-seed entry
// point is deterministic and runs the same shuffleDeck algorithm the
// string-seed one does, differing only in the seed hash feeding it.
func TestShuffleDeckSeededIntMatchesStringPath(t *testing.T) {
	deck := DefaultDeck()
	a := ShuffleDeckSeededInt(deck, 42)
	b := ShuffleDeckSeededInt(deck, 42)
	c := shuffleDeck(deck, newRNGFromInt(42))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d: %v vs %v", i, a[i], b[i])
		}
		if a[i] != c[i] {
			t.Fatalf("index %d: ShuffleDeckSeededInt %v vs shuffleDeck %v", i, a[i], c[i])
		}
	}
}
