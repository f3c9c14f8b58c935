// Package message defines the bridge vocabulary exchanged with the embedded
// content and its JSON wire format.
package message

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/republik/appshell/internal/state"
)

var ErrMalformed = errors.New("message: malformed")

type Kind string

const (
	KindRouteChange     Kind = "routeChange"
	KindShare           Kind = "share"
	KindHaptic          Kind = "haptic"
	KindPlayAudio       Kind = "playAudio"
	KindIsSignedIn      Kind = "isSignedIn"
	KindFullscreenEnter Kind = "fullscreenEnter"
	KindFullscreenExit  Kind = "fullscreenExit"
	KindSetColorScheme  Kind = "setColorScheme"
	KindAckMessage      Kind = "ackMessage"
	KindClearMessage    Kind = "clearMessage"

	KindMediaProgress Kind = "onAppMediaProgressUpdate"
)

// aliases maps legacy wire spellings onto their canonical kind.
var aliases = map[Kind]Kind{
	"play-audio":       KindPlayAudio,
	"fullscreen-enter": KindFullscreenEnter,
	"fullscreen-exit":  KindFullscreenExit,
}

// Envelope is the JSON object carried over the bridge in both directions.
type Envelope struct {
	Type           Kind            `json:"type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	ID             string          `json:"id,omitempty"`
	ColorSchemeKey string          `json:"colorSchemeKey,omitempty"`
}

// Inbound is a decoded message from the embedded content. The set of
// implementations is closed; consumers switch over the concrete types.
type Inbound interface {
	MessageID() string
	isInbound()
}

type base struct {
	ID string
}

func (b base) MessageID() string { return b.ID }
func (base) isInbound()           {}

// RouteChange reports an in-page navigation. URL is usually a path relative
// to the content origin.
type RouteChange struct {
	base
	URL string
}

type Share struct {
	base
	URL         string `json:"url"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Subject     string `json:"subject"`
	DialogTitle string `json:"dialogTitle"`
}

type Haptic struct {
	base
	Pattern string
}

// PlayAudio selects a track. A nil Audio clears the current one.
type PlayAudio struct {
	base
	Audio *state.AudioDescriptor
}

type IsSignedIn struct {
	base
	SignedIn bool
}

type FullscreenEnter struct{ base }

type FullscreenExit struct{ base }

type SetColorScheme struct {
	base
	Key string
}

// Ack confirms an outbound message by id. Both ackMessage and clearMessage
// decode to Ack.
type Ack struct{ base }

// Unknown carries a kind this version does not handle.
type Unknown struct {
	base
	Type Kind
}

// Outbound is a message queued for delivery into the content.
type Outbound struct {
	ID      string `json:"id"`
	Type    Kind   `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func NewOutbound(kind Kind, payload any) Outbound {
	return Outbound{
		ID:      uuid.NewString(),
		Type:    kind,
		Payload: payload,
	}
}

func (o Outbound) Encode() ([]byte, error) {
	return json.Marshal(o)
}

// MediaProgress is the payload of onAppMediaProgressUpdate.
type MediaProgress struct {
	MediaID     string  `json:"mediaId"`
	CurrentTime float64 `json:"currentTime"`
}
