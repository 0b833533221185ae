package gameserver

import (
	"time"

	"github.com/cfoust/skeld/pkg/game/phase"
	"github.com/cfoust/skeld/pkg/gameserver/timer"
)

// scheduler owns the single phase timer slot. A session is only ever in one
// timed phase, so arming the slot always disarms whatever was in flight;
// this is what keeps a report and a call_meeting racing each other from
// double-firing the voting transition. Expiries are delivered into the
// engine queue, never applied directly.
//
// Only the engine goroutine touches the scheduler.
type scheduler struct {
	events chan<- event

	slot *timer.Timer
	seq  uint64
}

func newScheduler(events chan<- event) *scheduler {
	return &scheduler{events: events}
}

// Schedule arms the slot to advance to the given phase after d, canceling
// any pending expiry.
func (s *scheduler) Schedule(d time.Duration, to phase.ID) {
	s.Cancel()

	seq := s.seq
	t := timer.AfterFunc(d, func() {
		s.events <- phaseExpiry{seq: seq, to: to}
	})
	s.slot = t
	t.Start()
}

// Cancel disarms the slot. An expiry that already fired is recognized as
// stale by its sequence number.
func (s *scheduler) Cancel() {
	if s.slot != nil {
		s.slot.Stop()
		s.slot = nil
	}
	s.seq++
}

// Stale reports whether an expiry belongs to a slot that has since been
// rescheduled or canceled.
func (s *scheduler) Stale(e phaseExpiry) bool {
	return e.seq != s.seq
}

func (s *scheduler) TimeLeft() time.Duration {
	return s.slot.TimeLeft()
}
