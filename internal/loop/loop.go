// Package loop runs the shell's single-threaded event loop.
//
// Every store mutation, queue operation and component handler executes on the
// loop goroutine. Host callbacks, audio engine snapshots and timers never touch
// state directly; they post closures that run to completion one at a time.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

var ErrStopped = errors.New("loop: stopped")

// Timer is a cancelable one-shot task.
type Timer interface {
	// Stop prevents the task from running. It reports whether the call
	// stopped the task; false means it already ran or was stopped before.
	Stop() bool
}

// Scheduler creates one-shot tasks that run on the event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type Loop struct {
	logger *slog.Logger

	inbox  chan func()
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	timerID atomic.Uint64
	timers  *xsync.Map[uint64, *timer]
}

var _ Scheduler = (*Loop)(nil)

func New(logger *slog.Logger, mailbox int) *Loop {
	if mailbox <= 0 {
		mailbox = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		logger: logger,
		inbox:  make(chan func(), mailbox),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		timers: xsync.NewMap[uint64, *timer](),
	}
}

// Start launches the loop goroutine. Calling it again has no effect.
func (l *Loop) Start() {
	l.once.Do(func() { go l.run() })
}

// Stop cancels pending timers and ends the loop after the running task.
func (l *Loop) Stop() {
	l.cancel()
	l.timers.Range(func(_ uint64, t *timer) bool {
		t.Stop()
		return true
	})
}

func (l *Loop) Done() <-chan struct{} { return l.done }

// Post queues fn for execution on the loop. It blocks while the mailbox is
// full and returns false once the loop is stopped. Tasks already running on
// the loop must call their collaborators directly instead of posting.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.ctx.Done():
		return false
	default:
	}
	select {
	case l.inbox <- fn:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &timer{loop: l, id: l.timerID.Add(1)}
	l.timers.Store(t.id, t)
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.Swap(true) {
				return
			}
			l.timers.Delete(t.id)
			fn()
		})
	})
	return t
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case fn := <-l.inbox:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop task panicked", "panic", r)
		}
	}()
	fn()
}

type timer struct {
	loop    *Loop
	id      uint64
	t       *time.Timer
	stopped atomic.Bool
}

// Stop also covers the window where the timer fired but its task is still
// waiting in the mailbox.
func (t *timer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	t.t.Stop()
	t.loop.timers.Delete(t.id)
	return true
}
