package audio

// Track is what the engine needs to play one descriptor.
type Track struct {
	ID    string
	URL   string
	Title string
}

// Engine is the native audio player. Exactly one Synchronizer drives it.
// Calls may start asynchronous work; completion is observed through
// snapshots and CurrentTrack.
type Engine interface {
	// Reset stops playback and releases the current track.
	Reset() error
	Add(t Track) error
	Play() error
	Pause() error
	SetRate(rate float64) error
	SeekTo(seconds float64) error
	// CurrentTrack reports the id of the track the engine has active.
	CurrentTrack() (string, bool)
}

// Snapshot is one progress sample reported by the engine.
type Snapshot struct {
	TrackID          string
	Position         float64
	Duration         float64
	BufferedPosition float64
	Playing          bool
	Rate             float64
}

// NopEngine accepts every call and never has a track. Hosts without native
// playback use it.
type NopEngine struct{}

var _ Engine = NopEngine{}

func (NopEngine) Reset() error                 { return nil }
func (NopEngine) Add(Track) error              { return nil }
func (NopEngine) Play() error                  { return nil }
func (NopEngine) Pause() error                 { return nil }
func (NopEngine) SetRate(float64) error        { return nil }
func (NopEngine) SeekTo(float64) error         { return nil }
func (NopEngine) CurrentTrack() (string, bool) { return "", false }
