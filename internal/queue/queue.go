// Package queue holds outbound bridge messages until the embedded content
// acknowledges them.
package queue

import (
	"errors"

	"github.com/tidwall/btree"

	"github.com/republik/appshell/internal/message"
)

var (
	ErrDuplicateID = errors.New("queue: duplicate message id")
	ErrNotFound    = errors.New("queue: message not found")
)

// Entry is a queued message with its delivery bookkeeping.
type Entry struct {
	Message message.Outbound
	// Marked is true while a delivery attempt is unacknowledged.
	Marked bool
	// Attempts counts how many times the message was marked for delivery.
	Attempts int

	seq uint64
}

func bySeq(a, b *Entry) bool {
	return a.seq < b.seq
}

// Queue is an ordered set of pending messages. It is not safe for concurrent
// use; the event loop owns it.
type Queue struct {
	tree     *btree.BTreeG[*Entry]
	byID     map[string]*Entry
	seq      uint64
	onChange func()
}

func New() *Queue {
	return &Queue{
		tree: btree.NewBTreeGOptions(bySeq, btree.Options{NoLocks: true}),
		byID: make(map[string]*Entry),
	}
}

// OnChange registers the hook run after every enqueue, mark and clear.
func (q *Queue) OnChange(fn func()) {
	q.onChange = fn
}

func (q *Queue) Enqueue(msg message.Outbound) error {
	if _, ok := q.byID[msg.ID]; ok {
		return ErrDuplicateID
	}
	q.seq++
	e := &Entry{Message: msg, seq: q.seq}
	q.tree.Set(e)
	q.byID[msg.ID] = e
	q.changed()
	return nil
}

// NextDeliverable returns the earliest-enqueued unmarked message.
func (q *Queue) NextDeliverable() (Entry, bool) {
	var found *Entry
	q.tree.Scan(func(e *Entry) bool {
		if !e.Marked {
			found = e
			return false
		}
		return true
	})
	if found == nil {
		return Entry{}, false
	}
	return *found, true
}

func (q *Queue) Mark(id string, v bool) error {
	e, ok := q.byID[id]
	if !ok {
		return ErrNotFound
	}
	if v && !e.Marked {
		e.Attempts++
	}
	e.Marked = v
	q.changed()
	return nil
}

// Clear removes a message for good.
func (q *Queue) Clear(id string) error {
	e, ok := q.byID[id]
	if !ok {
		return ErrNotFound
	}
	q.tree.Delete(e)
	delete(q.byID, id)
	q.changed()
	return nil
}

func (q *Queue) Has(id string) bool {
	_, ok := q.byID[id]
	return ok
}

// InFlight counts marked messages.
func (q *Queue) InFlight() int {
	n := 0
	q.tree.Scan(func(e *Entry) bool {
		if e.Marked {
			n++
		}
		return true
	})
	return n
}

func (q *Queue) Len() int {
	return q.tree.Len()
}

// Entries returns a copy of the queue in delivery order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, 0, q.tree.Len())
	q.tree.Scan(func(e *Entry) bool {
		out = append(out, *e)
		return true
	})
	return out
}

// Reset drops every message without notifying. It is used when the content
// host is recreated.
func (q *Queue) Reset() {
	q.tree = btree.NewBTreeGOptions(bySeq, btree.Options{NoLocks: true})
	q.byID = make(map[string]*Entry)
}

func (q *Queue) changed() {
	if q.onChange != nil {
		q.onChange()
	}
}
