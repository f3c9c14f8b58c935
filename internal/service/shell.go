package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/republik/appshell/internal/audio"
	"github.com/republik/appshell/internal/bridge"
	"github.com/republik/appshell/internal/controller"
	"github.com/republik/appshell/internal/cookies"
	"github.com/republik/appshell/internal/loop"
	"github.com/republik/appshell/internal/models"
	"github.com/republik/appshell/internal/state"
	"github.com/republik/appshell/internal/storage"
)

// Host is the embedded content surface the shell drives.
type Host interface {
	controller.ContentHost
	cookies.Injector
}

type ShellOptions struct {
	BaseURL         string
	DataDir         string
	CurtainBackdoor string

	Host   Host
	Native bridge.NativeBridge
	Engine audio.Engine

	// Gates defaults to state.DefaultGates.
	Gates  []state.Gate
	Logger *slog.Logger
}

// Shell wires the stores, the bridge controller and the audio synchronizer
// onto one event loop. Its methods are safe to call from any goroutine.
type Shell struct {
	logger    *slog.Logger
	loop      *loop.Loop
	store     *storage.Store
	persisted *state.PersistedStore
	volatile  *state.VolatileStore
	ctrl      *controller.Controller
	sync      *audio.Synchronizer

	host    Host
	baseURL string
	curtain string
}

func NewShell(opts ShellOptions) (*Shell, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Engine == nil {
		opts.Engine = audio.NopEngine{}
	}
	gates := opts.Gates
	if gates == nil {
		gates = state.DefaultGates
	}

	store, err := storage.Open(opts.DataDir, logger.With("component", "storage"))
	if err != nil {
		return nil, err
	}

	persisted := state.NewPersistedStore(
		store,
		state.PersistedState{URL: opts.BaseURL, PlaybackRate: 1},
		func(err error) bool { return errors.Is(err, storage.ErrNotFound) },
		logger.With("component", "persisted"),
	)
	if err := persisted.Load(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load persisted state: %w", err)
	}
	volatile := state.NewVolatileStore(gates...)

	l := loop.New(logger.With("component", "loop"), 0)

	ctrl, err := controller.New(
		controller.Config{BaseURL: opts.BaseURL},
		opts.Host, opts.Native, l, persisted, volatile,
		logger.With("component", "controller"),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	synchronizer, err := audio.NewSynchronizer(
		audio.Config{BaseURL: opts.BaseURL},
		opts.Engine, l, persisted, volatile, ctrl,
		logger.With("component", "audio"),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Shell{
		logger:    logger,
		loop:      l,
		store:     store,
		persisted: persisted,
		volatile:  volatile,
		ctrl:      ctrl,
		sync:      synchronizer,
		host:      opts.Host,
		baseURL:   opts.BaseURL,
		curtain:   opts.CurtainBackdoor,
	}, nil
}

// Start runs the event loop and opens the gates the shell owns itself.
func (s *Shell) Start(ctx context.Context) error {
	s.loop.Start()
	var bootErr error
	err := s.loop.Do(ctx, func() {
		s.ctrl.Start()
		s.sync.Start()
		s.volatile.SetReady(state.GatePersistedState)
		bootErr = cookies.Bootstrap(s.host, s.volatile, s.baseURL, s.curtain, s.logger)
	})
	if err != nil {
		return err
	}
	return bootErr
}

// Close stops the components, the loop and the store.
func (s *Shell) Close() error {
	ctx := context.Background()
	_ = s.loop.Do(ctx, func() {
		s.sync.Close()
		s.ctrl.Stop()
	})
	s.loop.Stop()
	<-s.loop.Done()
	return s.store.Close()
}

func (s *Shell) post(fn func()) {
	if !s.loop.Post(fn) {
		s.logger.Debug("event dropped after shutdown")
	}
}

// SetReady opens a readiness gate owned by the platform (deep links, push).
func (s *Shell) SetReady(g state.Gate) {
	s.post(func() { s.volatile.SetReady(g) })
}

// OpenURL requests navigation to u, e.g. from a deep link.
func (s *Shell) OpenURL(u string) {
	s.post(func() { s.volatile.SetPendingURL(u) })
}

func (s *Shell) LoadStarted() {
	s.post(s.ctrl.OnLoadStart)
}

func (s *Shell) ContentReady() {
	s.post(s.ctrl.OnContentReady)
}

func (s *Shell) NavigationChanged(u string) {
	s.post(func() { s.ctrl.OnNavigationStateChanged(u) })
}

func (s *Shell) Message(data []byte) {
	data = append([]byte(nil), data...)
	s.post(func() { s.ctrl.HandleMessage(data) })
}

// ContentReset is reported when the host recreated its content view.
func (s *Shell) ContentReset() {
	s.post(s.ctrl.Remount)
}

// GoBack reports whether there was a page to go back to.
func (s *Shell) GoBack(ctx context.Context) (bool, error) {
	var ok bool
	err := s.loop.Do(ctx, func() { ok = s.ctrl.GoBack() })
	return ok, err
}

func (s *Shell) Snapshot(snap audio.Snapshot) {
	s.post(func() { s.sync.OnSnapshot(snap) })
}

func (s *Shell) Play()  { s.post(s.sync.Play) }
func (s *Shell) Pause() { s.post(s.sync.Pause) }
func (s *Shell) StopAudio() {
	s.post(s.sync.Stop)
}

func (s *Shell) SeekTo(seconds float64) {
	s.post(func() { s.sync.SeekTo(seconds) })
}

func (s *Shell) SetPlaybackRate(rate float64) {
	s.post(func() { s.sync.SetPlaybackRate(rate) })
}

// OpenAudioSource navigates to the article of the current track.
func (s *Shell) OpenAudioSource() {
	s.post(func() { s.sync.OpenSource() })
}

func (s *Shell) SetPlayerExpanded(v bool) {
	s.post(func() { s.sync.SetExpanded(v) })
}

func (s *Shell) State(ctx context.Context) (models.ShellState, error) {
	var out models.ShellState
	err := s.loop.Do(ctx, func() {
		out = models.ShellState{
			Persisted:      s.persisted.Get(),
			Gates:          s.volatile.Gates(),
			PendingURL:     s.volatile.PendingURL(),
			ContentReady:   s.ctrl.Ready(),
			AudioPhase:     s.sync.Phase().String(),
			AudioMediaID:   s.sync.MediaID(),
			PlayerExpanded: s.volatile.Flag(state.FlagPlayerExpanded),
		}
	})
	return out, err
}

func (s *Shell) Queue(ctx context.Context) ([]models.QueuedMessage, error) {
	var out []models.QueuedMessage
	err := s.loop.Do(ctx, func() {
		for _, e := range s.ctrl.Queue() {
			out = append(out, models.QueuedMessage{
				ID:       e.Message.ID,
				Type:     e.Message.Type,
				Marked:   e.Marked,
				Attempts: e.Attempts,
			})
		}
	})
	return out, err
}

func (s *Shell) History(ctx context.Context) ([]string, error) {
	var out []string
	err := s.loop.Do(ctx, func() { out = s.ctrl.History() })
	return out, err
}

// RequestURL sets the pending url after checking it belongs to the content
// origin.
func (s *Shell) RequestURL(ctx context.Context, u string) error {
	var valid bool
	err := s.loop.Do(ctx, func() {
		if valid = s.ctrl.Owns(u); valid {
			s.volatile.SetPendingURL(u)
		}
	})
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("%w: %q", controller.ErrForeignURL, u)
	}
	return nil
}
