package mobile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/republik/appshell/internal/audio"
	"github.com/republik/appshell/internal/bridge"
	"github.com/republik/appshell/internal/service"
	"github.com/republik/appshell/internal/state"
)

var ErrNotRunning = errors.New("mobile: shell not running")

// ContentHost is implemented by the native WebView wrapper.
type ContentHost interface {
	LoadURL(url string)
	PostMessage(data string) error
	// InjectScript runs js before page scripts on every load.
	InjectScript(js string)
}

// AudioEngine is implemented by the native player. CurrentTrack returns ""
// while nothing is loaded.
type AudioEngine interface {
	Reset() error
	Add(id string, url string, title string) error
	Play() error
	Pause() error
	SetRate(rate float64) error
	SeekTo(seconds float64) error
	CurrentTrack() string
}

var (
	mu    sync.Mutex
	shell *service.Shell
)

func RegisterBridge(b bridge.NativeBridge) {
	bridge.Register(b)
}

// Start opens the persisted state in dataDir and starts the shell. The
// native side still reports the deep link and push gates.
func Start(dataDir, baseURL, curtainBackdoor string, host ContentHost, engine AudioEngine) error {
	mu.Lock()
	defer mu.Unlock()

	if shell != nil {
		return fmt.Errorf("shell already running")
	}

	native, err := bridge.Safe()
	if err != nil {
		return fmt.Errorf("call RegisterBridge before Start: %w", err)
	}

	slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	stateDir := filepath.Join(dataDir, "state")
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	var eng audio.Engine = audio.NopEngine{}
	if engine != nil {
		eng = engineAdapter{engine}
	}

	s, err := service.NewShell(service.ShellOptions{
		BaseURL:         baseURL,
		DataDir:         stateDir,
		CurtainBackdoor: curtainBackdoor,
		Host:            hostAdapter{host},
		Native:          native,
		Engine:          eng,
		Logger:          slogger,
	})
	if err != nil {
		return err
	}
	if err := s.Start(context.Background()); err != nil {
		_ = s.Close()
		return err
	}

	shell = s
	slogger.Info("mobile shell started", "base_url", baseURL)
	return nil
}

func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if shell != nil {
		_ = shell.Close()
		shell = nil
	}
}

func current() *service.Shell {
	mu.Lock()
	defer mu.Unlock()
	return shell
}

func with(fn func(s *service.Shell)) {
	if s := current(); s != nil {
		fn(s)
	}
}

func SetDeepLinkingReady() { with(func(s *service.Shell) { s.SetReady(state.GateDeepLinking) }) }
func SetPushReady()        { with(func(s *service.Shell) { s.SetReady(state.GatePush) }) }

// OpenURL navigates to url, e.g. from a deep link or a notification.
func OpenURL(url string) { with(func(s *service.Shell) { s.OpenURL(url) }) }

func OnLoadStart()                        { with(func(s *service.Shell) { s.LoadStarted() }) }
func OnContentReady()                     { with(func(s *service.Shell) { s.ContentReady() }) }
func OnContentReset()                     { with(func(s *service.Shell) { s.ContentReset() }) }
func OnNavigationStateChanged(url string) { with(func(s *service.Shell) { s.NavigationChanged(url) }) }
func OnMessage(data string)               { with(func(s *service.Shell) { s.Message([]byte(data)) }) }

// OnProgress forwards one native playback sample.
func OnProgress(trackID string, position, duration, buffered float64, playing bool, rate float64) {
	with(func(s *service.Shell) {
		s.Snapshot(audio.Snapshot{
			TrackID:          trackID,
			Position:         position,
			Duration:         duration,
			BufferedPosition: buffered,
			Playing:          playing,
			Rate:             rate,
		})
	})
}

func Play()                     { with(func(s *service.Shell) { s.Play() }) }
func Pause()                    { with(func(s *service.Shell) { s.Pause() }) }
func SeekTo(seconds float64)    { with(func(s *service.Shell) { s.SeekTo(seconds) }) }
func SetPlaybackRate(r float64) { with(func(s *service.Shell) { s.SetPlaybackRate(r) }) }
func OpenAudioSource()          { with(func(s *service.Shell) { s.OpenAudioSource() }) }

// SetPlayerExpanded is called when the user opens or closes the full player.
func SetPlayerExpanded(expanded bool) {
	with(func(s *service.Shell) { s.SetPlayerExpanded(expanded) })
}

// GoBack reports whether the shell navigated back; false lets the platform
// handle the back gesture.
func GoBack() (bool, error) {
	s := current()
	if s == nil {
		return false, ErrNotRunning
	}
	return s.GoBack(context.Background())
}

type hostAdapter struct {
	h ContentHost
}

func (a hostAdapter) LoadURL(url string)            { a.h.LoadURL(url) }
func (a hostAdapter) PostMessage(data string) error { return a.h.PostMessage(data) }
func (a hostAdapter) Init(js string)                { a.h.InjectScript(js) }

type engineAdapter struct {
	e AudioEngine
}

func (a engineAdapter) Reset() error                 { return a.e.Reset() }
func (a engineAdapter) Add(t audio.Track) error      { return a.e.Add(t.ID, t.URL, t.Title) }
func (a engineAdapter) Play() error                  { return a.e.Play() }
func (a engineAdapter) Pause() error                 { return a.e.Pause() }
func (a engineAdapter) SetRate(rate float64) error   { return a.e.SetRate(rate) }
func (a engineAdapter) SeekTo(seconds float64) error { return a.e.SeekTo(seconds) }

func (a engineAdapter) CurrentTrack() (string, bool) {
	id := a.e.CurrentTrack()
	return id, id != ""
}
