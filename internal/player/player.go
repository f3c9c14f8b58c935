// Package player is the desktop audio engine. Tracks are downloaded whole,
// decoded from memory and played through the system speaker.
package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"

	"github.com/republik/appshell/internal/audio"
	"github.com/republik/appshell/internal/cache"
)

const (
	speakerRate     = beep.SampleRate(48000)
	resampleQuality = 4

	// SampleInterval is how often Run reports progress.
	SampleInterval = 500 * time.Millisecond

	downloadCacheSize = 8
	downloadTTL       = time.Hour
)

var ErrNoTrack = errors.New("player: no track")

// Player must be driven by a single owner; snapshots may be taken from any
// goroutine. Lock order is p.mu, then speaker.Lock.
type Player struct {
	logger    *slog.Logger
	client    *http.Client
	downloads *cache.Cache[[]byte]
	ctx       context.Context
	cancel    context.CancelFunc

	speakerOnce sync.Once
	speakerErr  error

	mu        sync.Mutex
	gen       uint64
	track     audio.Track
	hasTrack  bool
	stream    beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	rate      float64
	seek      float64
	playing   bool

	// ended is set from the speaker goroutine when the track runs out.
	ended atomic.Bool
}

var _ audio.Engine = (*Player)(nil)

// New returns a player that downloads with client, or http.DefaultClient
// when client is nil.
func New(client *http.Client, logger *slog.Logger) (*Player, error) {
	if client == nil {
		client = http.DefaultClient
	}
	downloads, err := cache.New[[]byte](downloadCacheSize, downloadTTL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Player{
		logger:    logger,
		client:    client,
		downloads: downloads,
		ctx:       ctx,
		cancel:    cancel,
		rate:      1,
	}, nil
}

// Close stops playback and aborts downloads.
func (p *Player) Close() error {
	p.cancel()
	return p.Reset()
}

func (p *Player) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	p.hasTrack = false
	p.track = audio.Track{}
	p.seek = 0
	p.playing = false
	p.ended.Store(false)
	return p.releaseLocked()
}

// Add starts loading t in the background. CurrentTrack reports it once it is
// decoded and queued on the speaker.
func (p *Player) Add(t audio.Track) error {
	if t.URL == "" {
		return fmt.Errorf("player: track %q without url", t.ID)
	}

	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.track = t
	p.hasTrack = false
	p.seek = 0
	p.ended.Store(false)
	if err := p.releaseLocked(); err != nil {
		p.logger.Warn("failed to release previous track", "err", err)
	}
	p.mu.Unlock()

	go p.load(gen, t)
	return nil
}

func (p *Player) load(gen uint64, t audio.Track) {
	data, err := p.fetch(t.URL)
	if err != nil {
		p.logger.Error("failed to download track", "media_id", t.ID, "url", t.URL, "err", err)
		return
	}
	stream, format, err := mp3.Decode(readSeekCloser{bytes.NewReader(data)})
	if err != nil {
		p.logger.Error("failed to decode track", "media_id", t.ID, "err", err)
		p.downloads.Remove(t.URL)
		return
	}
	if err := p.initSpeaker(); err != nil {
		p.logger.Error("failed to open speaker", "err", err)
		_ = stream.Close()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		_ = stream.Close()
		return
	}

	p.stream = stream
	p.format = format
	p.ctrl = &beep.Ctrl{Streamer: stream, Paused: !p.playing}
	p.resampler = beep.ResampleRatio(resampleQuality, ratio(format.SampleRate, p.rate), p.ctrl)
	if p.seek > 0 {
		if err := stream.Seek(clampSample(format.SampleRate.N(seconds(p.seek)), stream.Len())); err != nil {
			p.logger.Warn("failed to seek", "media_id", t.ID, "err", err)
		}
	}
	p.hasTrack = true
	p.queueLocked()
	p.logger.Debug("track loaded", "media_id", t.ID, "duration", format.SampleRate.D(stream.Len()))
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.playing = true
	if p.ctrl == nil {
		return nil
	}
	if p.ended.Swap(false) {
		speaker.Lock()
		err := p.stream.Seek(0)
		p.ctrl.Paused = false
		speaker.Unlock()
		if err != nil {
			return fmt.Errorf("player: rewind: %w", err)
		}
		p.queueLocked()
		return nil
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.playing = false
	if p.ctrl == nil {
		return nil
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (p *Player) SetRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("player: invalid rate %v", rate)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rate = rate
	if p.resampler == nil {
		return nil
	}
	speaker.Lock()
	p.resampler.SetRatio(ratio(p.format.SampleRate, rate))
	speaker.Unlock()
	return nil
}

func (p *Player) SeekTo(secs float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		p.seek = secs
		return nil
	}
	speaker.Lock()
	err := p.stream.Seek(clampSample(p.format.SampleRate.N(seconds(secs)), p.stream.Len()))
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("player: seek: %w", err)
	}
	return nil
}

func (p *Player) CurrentTrack() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasTrack {
		return "", false
	}
	return p.track.ID, true
}

// Snapshot samples the playback position.
func (p *Player) Snapshot() (audio.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasTrack || p.stream == nil {
		return audio.Snapshot{}, ErrNoTrack
	}
	sr := p.format.SampleRate
	speaker.Lock()
	pos, n, paused := p.stream.Position(), p.stream.Len(), p.ctrl.Paused
	speaker.Unlock()

	duration := sr.D(n).Seconds()
	return audio.Snapshot{
		TrackID:          p.track.ID,
		Position:         sr.D(pos).Seconds(),
		Duration:         duration,
		BufferedPosition: duration,
		Playing:          !paused && !p.ended.Load(),
		Rate:             p.rate,
	}, nil
}

// Run reports a snapshot every SampleInterval until ctx is done.
func (p *Player) Run(ctx context.Context, fn func(audio.Snapshot)) {
	t := time.NewTicker(SampleInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if snap, err := p.Snapshot(); err == nil {
				fn(snap)
			}
		}
	}
}

func (p *Player) fetch(url string) ([]byte, error) {
	return p.downloads.Get(url, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(p.ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download %s: %s", url, resp.Status)
		}
		return io.ReadAll(resp.Body)
	})
}

func (p *Player) initSpeaker() error {
	p.speakerOnce.Do(func() {
		p.speakerErr = speaker.Init(speakerRate, speakerRate.N(100*time.Millisecond))
	})
	return p.speakerErr
}

func (p *Player) queueLocked() {
	speaker.Play(beep.Seq(p.resampler, beep.Callback(func() {
		p.ended.Store(true)
	})))
}

func (p *Player) releaseLocked() error {
	if p.stream == nil {
		return nil
	}
	speaker.Clear()
	err := p.stream.Close()
	p.stream = nil
	p.ctrl = nil
	p.resampler = nil
	return err
}

// ratio converts a track's sample rate and playback speed into the
// resampling ratio for the speaker.
func ratio(src beep.SampleRate, rate float64) float64 {
	return float64(src) / float64(speakerRate) * rate
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clampSample(n, length int) int {
	if n < 0 {
		return 0
	}
	if length > 0 && n >= length {
		return length - 1
	}
	return n
}

type readSeekCloser struct {
	*bytes.Reader
}

func (readSeekCloser) Close() error { return nil }
