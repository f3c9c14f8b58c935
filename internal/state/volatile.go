package state

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// VolatileKey identifies what changed in a VolatileStore notification.
type VolatileKey string

const (
	KeyGate       VolatileKey = "gate"
	KeyPendingURL VolatileKey = "pendingUrl"
	KeyAutoplay   VolatileKey = "autoplay"
	KeyFlag       VolatileKey = "flag"
)

// FlagPlayerExpanded is set while the audio player shows its full controls.
const FlagPlayerExpanded = "playerExpanded"

// VolatileChange describes one mutation. Name is the gate or flag name for
// KeyGate and KeyFlag changes.
type VolatileChange struct {
	Key  VolatileKey
	Name string
}

// VolatileStore keeps process-lifetime flags. Nothing here is written to
// disk.
type VolatileStore struct {
	required []Gate
	gates    *xsync.Map[Gate, bool]
	flags    *xsync.Map[string, bool]

	mu         sync.Mutex
	pendingURL string
	autoplay   bool

	subID     uint64
	listeners []volatileSub
}

type volatileSub struct {
	id uint64
	fn func(VolatileChange)
}

// NewVolatileStore tracks the given gates; with none it uses DefaultGates.
func NewVolatileStore(required ...Gate) *VolatileStore {
	if len(required) == 0 {
		required = DefaultGates
	}
	s := &VolatileStore{
		required: append([]Gate(nil), required...),
		gates:    xsync.NewMap[Gate, bool](),
		flags:    xsync.NewMap[string, bool](),
	}
	for _, g := range s.required {
		s.gates.Store(g, false)
	}
	return s
}

// SetReady opens a gate. Gates never close again; repeated calls are no-ops.
func (s *VolatileStore) SetReady(g Gate) bool {
	opened := false
	s.gates.Compute(g, func(old bool, _ bool) (bool, xsync.ComputeOp) {
		opened = !old
		return true, xsync.UpdateOp
	})
	if opened {
		s.notify(VolatileChange{Key: KeyGate, Name: string(g)})
	}
	return opened
}

func (s *VolatileStore) Ready(g Gate) bool {
	v, _ := s.gates.Load(g)
	return v
}

// AllReady reports whether every required gate is open.
func (s *VolatileStore) AllReady() bool {
	for _, g := range s.required {
		if !s.Ready(g) {
			return false
		}
	}
	return true
}

func (s *VolatileStore) Gates() map[Gate]bool {
	out := make(map[Gate]bool, s.gates.Size())
	s.gates.Range(func(g Gate, v bool) bool {
		out[g] = v
		return true
	})
	return out
}

func (s *VolatileStore) PendingURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingURL
}

func (s *VolatileStore) SetPendingURL(u string) {
	s.mu.Lock()
	changed := s.pendingURL != u
	s.pendingURL = u
	s.mu.Unlock()
	if changed {
		s.notify(VolatileChange{Key: KeyPendingURL})
	}
}

// TakePendingURL returns the pending url and clears it.
func (s *VolatileStore) TakePendingURL() (string, bool) {
	s.mu.Lock()
	u := s.pendingURL
	s.pendingURL = ""
	s.mu.Unlock()
	if u == "" {
		return "", false
	}
	s.notify(VolatileChange{Key: KeyPendingURL})
	return u, true
}

func (s *VolatileStore) AutoplayRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoplay
}

func (s *VolatileStore) RequestAutoplay(v bool) {
	s.mu.Lock()
	changed := s.autoplay != v
	s.autoplay = v
	s.mu.Unlock()
	if changed {
		s.notify(VolatileChange{Key: KeyAutoplay})
	}
}

// Flag reads a transient UI flag.
func (s *VolatileStore) Flag(name string) bool {
	v, _ := s.flags.Load(name)
	return v
}

func (s *VolatileStore) SetFlag(name string, v bool) {
	if old, _ := s.flags.LoadAndStore(name, v); old != v {
		s.notify(VolatileChange{Key: KeyFlag, Name: name})
	}
}

func (s *VolatileStore) Subscribe(fn func(VolatileChange)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subID++
	id := s.subID
	s.listeners = append(s.listeners, volatileSub{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *VolatileStore) notify(c VolatileChange) {
	s.mu.Lock()
	listeners := append([]volatileSub(nil), s.listeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l.fn(c)
	}
}
