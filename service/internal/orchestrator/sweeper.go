package orchestrator

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically reaps expired rooms from a store that doesn't expire
// its own entries. store.RedisStore needs none of this — Redis expires its
// own keys — so Sweeper only ever wraps a *store.MemoryStore's Sweep method.
type Sweeper struct {
	sweep    func() int
	interval time.Duration
	log      *logrus.Logger
	done     chan struct{}
}

// NewSweeper wraps sweep, a store's lazy-expiry reaper. interval<=0 uses a
// one-minute default.
func NewSweeper(sweep func() int, interval time.Duration, log *logrus.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{sweep: sweep, interval: interval, log: log, done: make(chan struct{})}
}

// Run blocks, sweeping on every tick, until Stop is called. Callers run it
// in its own goroutine.
func (s *Sweeper) Run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				s.log.WithField("removed", n).Info("orchestrator: swept expired rooms")
			}
		case <-s.done:
			return
		}
	}
}

// Stop ends the sweep loop.
func (s *Sweeper) Stop() { close(s.done) }
