// Package state holds the two stores shared by the shell components: the
// persisted application state that survives restarts and the volatile,
// process-lifetime flags.
package state

// AudioDescriptor identifies the currently selected track.
type AudioDescriptor struct {
	MediaID    string `json:"mediaId"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	SourcePath string `json:"sourcePath,omitempty"`
	// CurrentTime is the resume position in seconds.
	CurrentTime float64 `json:"currentTime,omitempty"`
	// Duration is set when the content already knows the track length.
	Duration float64 `json:"duration,omitempty"`
}

// PersistedState is the on-disk application state.
type PersistedState struct {
	URL                string           `json:"url"`
	Audio              *AudioDescriptor `json:"audio"`
	PlaybackRate       float64          `json:"playbackRate"`
	IsSignedIn         bool             `json:"isSignedIn"`
	IsFullscreen       bool             `json:"isFullscreen"`
	UserSetColorScheme string           `json:"userSetColorScheme"`
}

// Clone returns a copy that shares no memory with s.
func (s PersistedState) Clone() PersistedState {
	if s.Audio != nil {
		a := *s.Audio
		s.Audio = &a
	}
	return s
}

func (s PersistedState) Equal(o PersistedState) bool {
	if !SameAudio(s.Audio, o.Audio) {
		return false
	}
	s.Audio, o.Audio = nil, nil
	return s == o
}

// SameAudio compares two descriptors by value.
func SameAudio(a, b *AudioDescriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Gate names a startup precondition for the first navigation.
type Gate string

const (
	GateDeepLinking    Gate = "deepLinking"
	GatePush           Gate = "push"
	GatePersistedState Gate = "persistedState"
	GateCookies        Gate = "cookies"
)

// DefaultGates is the gate set the shell waits for before loading content.
var DefaultGates = []Gate{GateDeepLinking, GatePush, GatePersistedState, GateCookies}
