package player

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/require"

	"github.com/republik/appshell/internal/audio"
)

func newTestPlayer(t *testing.T, client *http.Client) *Player {
	t.Helper()
	p, err := New(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestRatio(t *testing.T) {
	require.InDelta(t, 1.0, ratio(speakerRate, 1), 1e-9)
	require.InDelta(t, 44100.0/48000.0*1.5, ratio(beep.SampleRate(44100), 1.5), 1e-9)
}

func TestClampSample(t *testing.T) {
	require.Equal(t, 0, clampSample(-5, 100))
	require.Equal(t, 99, clampSample(500, 100))
	require.Equal(t, 42, clampSample(42, 100))
}

func TestFetchCachesDownloads(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	p := newTestPlayer(t, srv.Client())
	for range 2 {
		data, err := p.fetch(srv.URL + "/a.mp3")
		require.NoError(t, err)
		require.Equal(t, []byte("ID3"), data)
	}
	require.EqualValues(t, 1, hits.Load())
}

func TestUndecodableDownloadIsEvicted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("not an mp3"))
	}))
	defer srv.Close()

	p := newTestPlayer(t, srv.Client())
	p.load(1, audio.Track{ID: "a", URL: srv.URL + "/a.mp3"})
	require.Zero(t, p.downloads.Len())

	_, err := p.fetch(srv.URL + "/a.mp3")
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load())
}

func TestFetchFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := newTestPlayer(t, srv.Client())
	_, err := p.fetch(srv.URL + "/missing.mp3")
	require.Error(t, err)
}

func TestNoTrackUntilLoaded(t *testing.T) {
	p := newTestPlayer(t, nil)

	_, ok := p.CurrentTrack()
	require.False(t, ok)
	_, err := p.Snapshot()
	require.ErrorIs(t, err, ErrNoTrack)

	require.Error(t, p.Add(audio.Track{ID: "a"}))
	require.NoError(t, p.SeekTo(30))
	require.NoError(t, p.SetRate(2))
	require.Error(t, p.SetRate(0))
	require.NoError(t, p.Play())
	require.NoError(t, p.Pause())
}

func TestRunStopsWithContext(t *testing.T) {
	p := newTestPlayer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx, func(audio.Snapshot) { t.Fatal("no snapshot expected") })
}
