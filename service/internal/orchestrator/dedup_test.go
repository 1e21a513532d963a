package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlapDedupFreshEventIsNotStale(t *testing.T) {
	d := newSlapDedup()
	assert.False(t, d.isStaleResolved("sw-1", "u1", 1000))
}

func TestSlapDedupWithinGraceWindowIsStaleForParticipant(t *testing.T) {
	d := newSlapDedup()
	d.remember("sw-1", 1000, []string{"u1", "u2"})
	assert.True(t, d.isStaleResolved("sw-1", "u1", 1000+dedupGraceMs))
}

func TestSlapDedupWithinGraceWindowIsNotStaleForNonParticipant(t *testing.T) {
	d := newSlapDedup()
	d.remember("sw-1", 1000, []string{"u1", "u2"})
	assert.False(t, d.isStaleResolved("sw-1", "u3", 1000+dedupGraceMs))
}

func TestSlapDedupPastGraceWindowIsNotStale(t *testing.T) {
	d := newSlapDedup()
	d.remember("sw-1", 1000, []string{"u1"})
	assert.False(t, d.isStaleResolved("sw-1", "u1", 1000+dedupGraceMs+1))
}

func TestSlapDedupSweepsOldEntriesOnRemember(t *testing.T) {
	d := newSlapDedup()
	d.remember("sw-1", 0, []string{"u1"})
	d.remember("sw-2", dedupGraceMs+1000, []string{"u2"})
	_, stillPresent := d.resolvedAt["sw-1"]
	assert.False(t, stillPresent)
}
