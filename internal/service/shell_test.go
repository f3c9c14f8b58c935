package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/republik/appshell/internal/bridge"
	"github.com/republik/appshell/internal/controller"
	"github.com/republik/appshell/internal/state"
)

const testBase = "https://www.republik.ch"

type fakeHost struct {
	mu     sync.Mutex
	loads  []string
	posted []string
	inits  []string
}

func (h *fakeHost) LoadURL(u string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loads = append(h.loads, u)
}

func (h *fakeHost) PostMessage(data string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.posted = append(h.posted, data)
	return nil
}

func (h *fakeHost) Init(js string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inits = append(h.inits, js)
}

func (h *fakeHost) snapshot() (loads, posted, inits []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.loads...), append([]string(nil), h.posted...), append([]string(nil), h.inits...)
}

func newTestShell(t *testing.T, curtain string) (*Shell, *fakeHost) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	host := &fakeHost{}
	s, err := NewShell(ShellOptions{
		BaseURL:         testBase,
		CurtainBackdoor: curtain,
		Host:            host,
		Native:          bridge.NewDesktop(logger, nil),
		Logger:          logger,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s, host
}

func TestShellLoadsOnceAllGatesOpen(t *testing.T) {
	ctx := context.Background()
	s, host := newTestShell(t, "/~curtain")

	st, err := s.State(ctx)
	require.NoError(t, err)
	require.True(t, st.Gates[state.GatePersistedState])
	require.True(t, st.Gates[state.GateCookies])
	require.False(t, st.Gates[state.GatePush])

	s.SetReady(state.GatePush)
	s.OpenURL(testBase + "/2024/05/01/artikel")
	s.SetReady(state.GateDeepLinking)

	history, err := s.History(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{testBase + "/2024/05/01/artikel"}, history)

	loads, _, inits := host.snapshot()
	require.Equal(t, []string{testBase + "/2024/05/01/artikel"}, loads)
	require.Len(t, inits, 1)
}

func TestShellRoundTripsMessages(t *testing.T) {
	ctx := context.Background()
	s, host := newTestShell(t, "")

	s.ContentReady()
	s.Message([]byte(`{"type":"playAudio","payload":{"mediaId":"m1","url":"https://cdn.repub.ch/m1.mp3","title":"Folge"}}`))
	s.Message([]byte(`{"type":"isSignedIn","payload":true}`))

	st, err := s.State(ctx)
	require.NoError(t, err)
	require.True(t, st.Persisted.IsSignedIn)
	require.Equal(t, "m1", st.Persisted.Audio.MediaID)
	require.Equal(t, "loading", st.AudioPhase)
	require.True(t, st.ContentReady)

	queue, err := s.Queue(ctx)
	require.NoError(t, err)
	require.Empty(t, queue)
	_, posted, _ := host.snapshot()
	require.Empty(t, posted)
}

func TestShellRequestURLRejectsForeignOrigin(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShell(t, "")

	require.ErrorIs(t, s.RequestURL(ctx, "https://example.com/"), controller.ErrForeignURL)
	require.NoError(t, s.RequestURL(ctx, "/suche"))

	st, err := s.State(ctx)
	require.NoError(t, err)
	require.Equal(t, "/suche", st.PendingURL)
}

func TestShellContentResetReloadsIntoNewHost(t *testing.T) {
	ctx := context.Background()
	s, host := newTestShell(t, "")

	s.SetReady(state.GatePush)
	s.SetReady(state.GateDeepLinking)
	s.NavigationChanged(testBase + "/feed")
	s.ContentReset()

	_, err := s.History(ctx)
	require.NoError(t, err)
	loads, _, _ := host.snapshot()
	require.Len(t, loads, 2)
	require.Equal(t, testBase+"/feed", loads[1])
}

func TestShellPlayerExpandedFollowsTrack(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShell(t, "")

	s.Message([]byte(`{"type":"playAudio","payload":{"mediaId":"m1","url":"https://cdn.repub.ch/m1.mp3"}}`))
	s.SetPlayerExpanded(true)
	st, err := s.State(ctx)
	require.NoError(t, err)
	require.True(t, st.PlayerExpanded)

	s.StopAudio()
	st, err = s.State(ctx)
	require.NoError(t, err)
	require.False(t, st.PlayerExpanded)
}
