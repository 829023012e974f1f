package tracker

import (
	"sync"
	"time"
)

// TickFunc receives the elapsed time once per second while a habit is in
// progress. The callback is cosmetic: completion never depends on it.
type TickFunc func(elapsed time.Duration)

// session is the explicit in-progress record for one habit on one date. It
// replaces start times held implicitly in view memory so cancellation and
// restart are operations on a named object.
type session struct {
	habitID   int
	date      string
	startedAt time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func newSession(habitID int, date string, startedAt time.Time, onTick TickFunc) *session {
	s := &session{
		habitID:   habitID,
		date:      date,
		startedAt: startedAt,
		stop:      make(chan struct{}),
	}
	if onTick != nil {
		go s.run(onTick)
	}
	return s
}

func (s *session) run(onTick TickFunc) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			onTick(now.Sub(s.startedAt))
		}
	}
}

// cancel stops the tick goroutine. Safe to call more than once; called on
// every state transition and on tracker teardown so no stale ticker can fire
// after its owning state left InProgress.
func (s *session) cancel() {
	s.stopOnce.Do(func() { close(s.stop) })
}
