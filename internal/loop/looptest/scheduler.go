// Package looptest provides a deterministic scheduler for tests.
package looptest

import (
	"sort"
	"sync"
	"time"

	"github.com/republik/appshell/internal/loop"
)

// Scheduler runs tasks only when Advance moves its clock past their deadline.
// Tasks run on the goroutine calling Advance.
type Scheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks []*task
}

var _ loop.Scheduler = (*Scheduler)(nil)

func New() *Scheduler {
	return &Scheduler{}
}

type task struct {
	s       *Scheduler
	due     time.Duration
	seq     uint64
	fn      func()
	stopped bool
}

func (t *task) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (s *Scheduler) AfterFunc(d time.Duration, fn func()) loop.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &task{s: s, due: s.now + d, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock forward by d, running every task that becomes due
// in deadline order. Tasks scheduled while advancing run too if they fall
// inside the window.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		t := s.popDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

// Elapsed returns the total time advanced so far.
func (s *Scheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending counts tasks that are scheduled and not stopped.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (s *Scheduler) popDue(target time.Duration) *task {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.tasks = live

	sort.SliceStable(s.tasks, func(i, j int) bool {
		if s.tasks[i].due == s.tasks[j].due {
			return s.tasks[i].seq < s.tasks[j].seq
		}
		return s.tasks[i].due < s.tasks[j].due
	})
	if len(s.tasks) == 0 || s.tasks[0].due > target {
		return nil
	}
	t := s.tasks[0]
	s.tasks = s.tasks[1:]
	t.stopped = true
	if t.due > s.now {
		s.now = t.due
	}
	return t
}
