package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const persistedKey = "persisted_state"

// ErrNotFound is what a Backend returns for a key it has never stored.
var ErrNotFound = errors.New("state: not found")

// Backend is the durable key/value layer behind PersistedStore.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// PersistedListener observes a committed change.
type PersistedListener func(prev, next PersistedState)

type PersistedStore struct {
	mu       sync.RWMutex
	backend  Backend
	logger   *slog.Logger
	state    PersistedState
	notFound func(error) bool

	subID     uint64
	listeners []persistedSub
}

type persistedSub struct {
	id uint64
	fn PersistedListener
}

// NewPersistedStore starts from defaults until Load reads the backend.
// isNotFound tells backend "missing key" errors apart from real failures.
func NewPersistedStore(
	backend Backend,
	defaults PersistedState,
	isNotFound func(error) bool,
	logger *slog.Logger,
) *PersistedStore {
	if isNotFound == nil {
		isNotFound = func(err error) bool { return errors.Is(err, ErrNotFound) }
	}
	return &PersistedStore{
		backend:  backend,
		logger:   logger,
		state:    defaults.Clone(),
		notFound: isNotFound,
	}
}

// Load merges the stored blob over the defaults. A missing blob is not an
// error; an unreadable one is logged and ignored so startup can continue.
func (s *PersistedStore) Load() error {
	raw, err := s.backend.Get(persistedKey)
	if err != nil {
		if s.notFound(err) {
			return nil
		}
		return fmt.Errorf("load persisted state: %w", err)
	}

	s.mu.Lock()
	next := s.state.Clone()
	if err := json.Unmarshal(raw, &next); err != nil {
		s.mu.Unlock()
		s.logger.Warn("discarding unreadable persisted state", "err", err)
		return nil
	}
	if next.PlaybackRate <= 0 {
		next.PlaybackRate = s.state.PlaybackRate
	}
	if next.URL == "" {
		next.URL = s.state.URL
	}
	s.state = next
	s.mu.Unlock()
	return nil
}

func (s *PersistedStore) Get() PersistedState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Update applies fn to a copy of the state. Unchanged results are dropped
// without a write or a notification.
func (s *PersistedStore) Update(fn func(*PersistedState)) bool {
	s.mu.Lock()
	prev := s.state.Clone()
	next := s.state.Clone()
	fn(&next)
	if next.Equal(prev) {
		s.mu.Unlock()
		return false
	}
	s.state = next.Clone()
	listeners := append([]persistedSub(nil), s.listeners...)
	s.mu.Unlock()

	s.save(next)
	for _, l := range listeners {
		l.fn(prev, next.Clone())
	}
	return true
}

func (s *PersistedStore) SetURL(url string) bool {
	return s.Update(func(st *PersistedState) { st.URL = url })
}

// SetAudio stores a copy of a; nil clears the current track.
func (s *PersistedStore) SetAudio(a *AudioDescriptor) bool {
	return s.Update(func(st *PersistedState) {
		if a == nil {
			st.Audio = nil
			return
		}
		cp := *a
		st.Audio = &cp
	})
}

func (s *PersistedStore) SetPlaybackRate(rate float64) bool {
	return s.Update(func(st *PersistedState) { st.PlaybackRate = rate })
}

func (s *PersistedStore) SetSignedIn(v bool) bool {
	return s.Update(func(st *PersistedState) { st.IsSignedIn = v })
}

func (s *PersistedStore) SetFullscreen(v bool) bool {
	return s.Update(func(st *PersistedState) { st.IsFullscreen = v })
}

func (s *PersistedStore) SetColorScheme(key string) bool {
	return s.Update(func(st *PersistedState) { st.UserSetColorScheme = key })
}

// Subscribe registers fn for every committed change and returns a function
// that removes it.
func (s *PersistedStore) Subscribe(fn PersistedListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subID++
	id := s.subID
	s.listeners = append(s.listeners, persistedSub{id: id, fn: fn})
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

func (s *PersistedStore) save(st PersistedState) {
	raw, err := json.Marshal(st)
	if err != nil {
		s.logger.Error("failed to encode persisted state", "err", err)
		return
	}
	if err := s.backend.Put(persistedKey, raw); err != nil {
		s.logger.Error("failed to write persisted state", "err", err)
	}
}
