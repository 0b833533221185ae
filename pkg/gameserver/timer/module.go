package timer

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

const (
	stateIdle = iota
	stateActive
	stateExpired
)

// Timer is a single-shot timer that calls a function when it expires. Unlike
// time.AfterFunc it does not run until Start is called, and its state can be
// inspected safely from other goroutines.
type Timer struct {
	t  *time.Timer
	fn func()

	l         *deadlock.Mutex // to synchronize access to the fields below
	state     int
	duration  time.Duration
	startedAt time.Time
}

// AfterFunc returns a Timer that, once started, waits for the duration to
// elapse and then calls f in its own goroutine. The call can be canceled
// with Stop.
func AfterFunc(d time.Duration, f func()) *Timer {
	t := &Timer{
		duration: d,
		l:        new(deadlock.Mutex),
	}
	t.fn = func() {
		t.l.Lock()
		t.state = stateExpired
		t.l.Unlock()
		f()
	}
	return t
}

// Start arms the timer. It returns false if the timer was already started.
func (t *Timer) Start() bool {
	t.l.Lock()
	defer t.l.Unlock()
	if t.state != stateIdle {
		return false
	}
	t.startedAt = time.Now()
	t.state = stateActive
	t.t = time.AfterFunc(t.duration, t.fn)
	return true
}

// Stop prevents the Timer from firing. It returns true if the call stops the
// timer, false if the timer has already expired or been stopped.
func (t *Timer) Stop() bool {
	t.l.Lock()
	defer t.l.Unlock()
	if t.state != stateActive {
		return false
	}
	t.state = stateExpired
	return t.t.Stop()
}

// TimeLeft returns the duration left to run before the timer expires.
// TimeLeft is safe to be called on a nil timer and will return 0 in that
// case.
func (t *Timer) TimeLeft() time.Duration {
	if t == nil {
		return 0
	}

	t.l.Lock()
	defer t.l.Unlock()

	switch t.state {
	case stateIdle:
		return t.duration
	case stateActive:
		return t.duration - time.Since(t.startedAt)
	default:
		return 0
	}
}
