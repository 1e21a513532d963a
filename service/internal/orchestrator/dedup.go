package orchestrator

// dedupGraceMs is how long a resolved slap window's eventId is remembered
// after resolution. A slap that arrives against it inside this window is
// network jitter or a client retry, not a protocol violation, so it's
// dropped silently instead of reaching the engine, which would treat a slap
// against the already-reset window as a FALSE_SLAP and penalize a client
// that hasn't even seen the resolution yet.
const dedupGraceMs = 250

type resolvedWindow struct {
	resolvedAt   int64
	participants map[string]bool
}

type slapDedup struct {
	resolvedAt map[string]resolvedWindow
}

func newSlapDedup() *slapDedup {
	return &slapDedup{resolvedAt: make(map[string]resolvedWindow)}
}

// remember records that eventID resolved at serverNow with the given
// participants — the userIds whose slap attempts were part of that window —
// and sweeps entries that have already aged out of the grace window.
func (d *slapDedup) remember(eventID string, serverNow int64, participantUserIDs []string) {
	participants := make(map[string]bool, len(participantUserIDs))
	for _, id := range participantUserIDs {
		participants[id] = true
	}
	d.resolvedAt[eventID] = resolvedWindow{resolvedAt: serverNow, participants: participants}
	for id, w := range d.resolvedAt {
		if serverNow-w.resolvedAt > dedupGraceMs {
			delete(d.resolvedAt, id)
		}
	}
}

// isStaleResolved reports whether eventID resolved within the grace window
// ending at serverNow, and userID was one of that window's participants. A
// same-eventId slap from anyone else still reaches the engine, which will
// reject it on its own terms rather than being silently swallowed here.
func (d *slapDedup) isStaleResolved(eventID, userID string, serverNow int64) bool {
	w, ok := d.resolvedAt[eventID]
	return ok && serverNow-w.resolvedAt <= dedupGraceMs && w.participants[userID]
}
