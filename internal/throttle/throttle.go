// Package throttle rate-limits a call to one run per window, always running
// the last call made inside the window once it closes.
package throttle

import (
	"time"

	"github.com/republik/appshell/internal/loop"
)

// Throttle is owned by the event loop and is not safe for concurrent use.
type Throttle struct {
	sched   loop.Scheduler
	wait    time.Duration
	pending func()
	timer   loop.Timer
}

func New(sched loop.Scheduler, wait time.Duration) *Throttle {
	return &Throttle{sched: sched, wait: wait}
}

// Call records fn as the latest call. The first call of a window opens it;
// fn runs when the window closes unless a later Call replaced it.
func (t *Throttle) Call(fn func()) {
	t.pending = fn
	if t.timer == nil {
		t.timer = t.sched.AfterFunc(t.wait, t.flush)
	}
}

// Cancel drops the pending call and closes the window.
func (t *Throttle) Cancel() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = nil
}

func (t *Throttle) Pending() bool {
	return t.pending != nil
}

func (t *Throttle) flush() {
	fn := t.pending
	t.pending = nil
	t.timer = nil
	if fn != nil {
		fn()
	}
}
