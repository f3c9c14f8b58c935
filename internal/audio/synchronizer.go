// Package audio keeps native playback in step with the persisted audio
// descriptor and reports progress back to the content.
package audio

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/republik/appshell/internal/loop"
	"github.com/republik/appshell/internal/message"
	"github.com/republik/appshell/internal/state"
	"github.com/republik/appshell/internal/throttle"
)

const (
	DefaultProgressInterval = time.Second
	// NearEnd is how close to the end a resume position counts as finished.
	NearEnd = 5.0

	durationCacheSize = 64
)

type Phase int

const (
	PhaseNoTrack Phase = iota
	PhaseLoading
	PhaseLoaded
)

func (p Phase) String() string {
	switch p {
	case PhaseNoTrack:
		return "noTrack"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Outbox queues messages for the content.
type Outbox interface {
	Post(kind message.Kind, payload any) error
}

type Config struct {
	// BaseURL resolves a descriptor's source path.
	BaseURL string
	// ProgressInterval is the progress persistence window.
	ProgressInterval time.Duration
}

// Synchronizer must only be used from the event loop.
type Synchronizer struct {
	logger    *slog.Logger
	engine    Engine
	persisted *state.PersistedStore
	volatile  *state.VolatileStore
	outbox    Outbox
	progress  *throttle.Throttle
	durations *lru.Cache[string, float64]
	base      *url.URL

	phase   Phase
	mediaID string
	unsub   []func()
}

func NewSynchronizer(
	cfg Config,
	engine Engine,
	sched loop.Scheduler,
	persisted *state.PersistedStore,
	volatile *state.VolatileStore,
	outbox Outbox,
	logger *slog.Logger,
) (*Synchronizer, error) {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("audio: parse base url: %w", err)
	}
	durations, err := lru.New[string, float64](durationCacheSize)
	if err != nil {
		return nil, fmt.Errorf("audio: duration cache: %w", err)
	}

	return &Synchronizer{
		logger:    logger,
		engine:    engine,
		persisted: persisted,
		volatile:  volatile,
		outbox:    outbox,
		progress:  throttle.New(sched, cfg.ProgressInterval),
		durations: durations,
		base:      base,
	}, nil
}

// Start subscribes to the stores and loads the persisted track, if any,
// without starting playback.
func (s *Synchronizer) Start() {
	s.unsub = append(s.unsub,
		s.persisted.Subscribe(func(prev, next state.PersistedState) {
			if !state.SameAudio(prev.Audio, next.Audio) {
				s.reconcile()
			}
			if prev.PlaybackRate != next.PlaybackRate && s.phase != PhaseNoTrack {
				s.call("set rate", s.engine.SetRate(next.PlaybackRate))
			}
		}),
		s.volatile.Subscribe(func(ch state.VolatileChange) {
			if ch.Key == state.KeyAutoplay {
				s.autoplay()
			}
		}),
	)
	s.reconcile()
}

// Close stops listening and drops any pending progress write. Playback
// itself is left to the engine owner.
func (s *Synchronizer) Close() {
	for _, u := range s.unsub {
		u()
	}
	s.unsub = nil
	s.progress.Cancel()
}

func (s *Synchronizer) Phase() Phase { return s.phase }

// MediaID returns the id of the track being synchronized.
func (s *Synchronizer) MediaID() string { return s.mediaID }

// reconcile moves the state machine to match the persisted descriptor.
func (s *Synchronizer) reconcile() {
	audio := s.persisted.Get().Audio

	if audio == nil {
		if s.phase == PhaseNoTrack {
			return
		}
		s.progress.Cancel()
		s.call("reset", s.engine.Reset())
		s.logger.Debug("audio cleared", "media_id", s.mediaID)
		s.phase = PhaseNoTrack
		s.mediaID = ""
		s.volatile.SetFlag(state.FlagPlayerExpanded, false)
		return
	}

	if s.phase != PhaseNoTrack && audio.MediaID == s.mediaID {
		return
	}
	s.load(*audio)
}

func (s *Synchronizer) load(audio state.AudioDescriptor) {
	s.progress.Cancel()
	if audio.MediaID == "" {
		s.logger.Warn("loading audio without media id", "url", audio.URL)
	}

	s.call("reset", s.engine.Reset())
	s.call("add", s.engine.Add(Track{ID: audio.MediaID, URL: audio.URL, Title: audio.Title}))
	s.call("set rate", s.engine.SetRate(s.persisted.Get().PlaybackRate))
	if audio.CurrentTime > 0 {
		s.call("seek", s.engine.SeekTo(s.resumePosition(audio)))
	}

	s.phase = PhaseLoading
	s.mediaID = audio.MediaID
	s.logger.Debug("audio loading", "media_id", audio.MediaID, "current_time", audio.CurrentTime)

	if id, ok := s.engine.CurrentTrack(); ok && id == s.mediaID {
		s.loaded()
	}
}

// resumePosition restarts tracks that were left within NearEnd seconds of
// their end.
func (s *Synchronizer) resumePosition(audio state.AudioDescriptor) float64 {
	d := audio.Duration
	if d <= 0 {
		d, _ = s.durations.Get(audio.MediaID)
	}
	if d > 0 && audio.CurrentTime >= d-NearEnd {
		return 0
	}
	return audio.CurrentTime
}

func (s *Synchronizer) loaded() {
	s.phase = PhaseLoaded
	s.logger.Debug("audio loaded", "media_id", s.mediaID)
	s.autoplay()
}

// autoplay honours a pending play request once the track is loaded.
func (s *Synchronizer) autoplay() {
	if s.phase != PhaseLoaded || !s.volatile.AutoplayRequested() {
		return
	}
	s.call("play", s.engine.Play())
	s.volatile.RequestAutoplay(false)
}

// OnSnapshot consumes one engine progress sample.
func (s *Synchronizer) OnSnapshot(snap Snapshot) {
	if s.phase == PhaseNoTrack || snap.TrackID != s.mediaID {
		return
	}
	if snap.Duration > 0 && s.mediaID != "" {
		s.durations.Add(s.mediaID, snap.Duration)
	}
	if s.phase == PhaseLoading {
		s.loaded()
	}
	if !snap.Playing || snap.Position <= 0 {
		return
	}

	audio := s.persisted.Get().Audio
	if audio == nil {
		return
	}
	if audio.MediaID == "" {
		s.logger.Warn("discarding progress for audio without media id", "position", snap.Position)
		return
	}

	id, position := audio.MediaID, snap.Position
	s.progress.Call(func() { s.writeProgress(id, position) })
}

func (s *Synchronizer) writeProgress(id string, position float64) {
	s.persisted.Update(func(st *state.PersistedState) {
		if st.Audio != nil && st.Audio.MediaID == id {
			st.Audio.CurrentTime = position
		}
	})
	if cur := s.persisted.Get().Audio; cur == nil || cur.MediaID != id {
		return
	}
	err := s.outbox.Post(message.KindMediaProgress, message.MediaProgress{MediaID: id, CurrentTime: position})
	if err != nil {
		s.logger.Warn("failed to queue progress update", "media_id", id, "err", err)
	}
}

// SetPlaybackRate persists rate; the engine follows through the
// subscription.
func (s *Synchronizer) SetPlaybackRate(rate float64) {
	if rate <= 0 {
		return
	}
	s.persisted.SetPlaybackRate(rate)
}

func (s *Synchronizer) Play() {
	if s.phase == PhaseNoTrack {
		return
	}
	s.call("play", s.engine.Play())
}

func (s *Synchronizer) Pause() {
	if s.phase == PhaseNoTrack {
		return
	}
	s.call("pause", s.engine.Pause())
}

func (s *Synchronizer) SeekTo(seconds float64) {
	if s.phase == PhaseNoTrack {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	s.call("seek", s.engine.SeekTo(seconds))
}

// Stop clears the current track.
func (s *Synchronizer) Stop() {
	s.persisted.SetAudio(nil)
}

// SetExpanded shows or hides the full player controls. There is nothing to
// expand without a track.
func (s *Synchronizer) SetExpanded(v bool) {
	if v && s.phase == PhaseNoTrack {
		return
	}
	s.volatile.SetFlag(state.FlagPlayerExpanded, v)
}

// OpenSource asks the shell to navigate to the page the track belongs to.
func (s *Synchronizer) OpenSource() bool {
	audio := s.persisted.Get().Audio
	if audio == nil || audio.SourcePath == "" {
		return false
	}
	ref, err := url.Parse(audio.SourcePath)
	if err != nil {
		s.logger.Warn("invalid audio source path", "source_path", audio.SourcePath, "err", err)
		return false
	}
	s.volatile.SetPendingURL(s.base.ResolveReference(ref).String())
	return true
}

// Engine failures are logged; the state machine moves on and the next
// snapshot corrects it.
func (s *Synchronizer) call(op string, err error) {
	if err != nil {
		s.logger.Warn("audio engine call failed", "op", op, "media_id", s.mediaID, "err", err)
	}
}
