package message

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/republik/appshell/internal/state"
)

// Decode parses one inbound wire message. Kinds it does not know come back as
// Unknown; a payload that does not fit its kind fails with ErrMalformed.
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	kind := env.Type
	if canonical, ok := aliases[kind]; ok {
		kind = canonical
	}
	b := base{ID: env.ID}

	switch kind {
	case KindRouteChange:
		var p struct {
			URL string `json:"url"`
		}
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.URL == "" {
			return nil, fmt.Errorf("%w: routeChange without url", ErrMalformed)
		}
		return RouteChange{base: b, URL: p.URL}, nil

	case KindShare:
		var m Share
		if err := decodePayload(env.Payload, &m); err != nil {
			return nil, err
		}
		m.base = b
		return m, nil

	case KindHaptic:
		pattern, err := decodeHaptic(env.Payload)
		if err != nil {
			return nil, err
		}
		return Haptic{base: b, Pattern: pattern}, nil

	case KindPlayAudio:
		audio, err := decodeAudio(env.Payload)
		if err != nil {
			return nil, err
		}
		return PlayAudio{base: b, Audio: audio}, nil

	case KindIsSignedIn:
		var v bool
		if err := decodePayload(env.Payload, &v); err != nil {
			return nil, err
		}
		return IsSignedIn{base: b, SignedIn: v}, nil

	case KindFullscreenEnter:
		return FullscreenEnter{base: b}, nil

	case KindFullscreenExit:
		return FullscreenExit{base: b}, nil

	case KindSetColorScheme:
		key := env.ColorSchemeKey
		if key == "" && !isNull(env.Payload) {
			if err := decodePayload(env.Payload, &key); err != nil {
				return nil, err
			}
		}
		return SetColorScheme{base: b, Key: key}, nil

	case KindAckMessage, KindClearMessage:
		if env.ID == "" {
			return nil, fmt.Errorf("%w: %s without id", ErrMalformed, kind)
		}
		return Ack{base: b}, nil

	default:
		return Unknown{base: b, Type: env.Type}, nil
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodePayload(raw json.RawMessage, v any) error {
	if isNull(raw) {
		return fmt.Errorf("%w: missing payload", ErrMalformed)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// decodeHaptic accepts a bare pattern name or an object naming it.
func decodeHaptic(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", fmt.Errorf("%w: haptic without pattern", ErrMalformed)
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name, nil
	}
	var obj struct {
		Pattern string `json:"pattern"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if obj.Pattern != "" {
		return obj.Pattern, nil
	}
	if obj.Type != "" {
		return obj.Type, nil
	}
	return "", fmt.Errorf("%w: haptic without pattern", ErrMalformed)
}

// decodeAudio accepts the flat payload {currentTime, mediaId, url, ...} and
// the nested {currentTime, audio: {...}} shape. A null payload, a null audio
// object or a descriptor naming neither a media id nor a url clears the track.
func decodeAudio(raw json.RawMessage) (*state.AudioDescriptor, error) {
	if isNull(raw) {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var flat state.AudioDescriptor
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if nestedRaw, ok := fields["audio"]; ok {
		var nested *state.AudioDescriptor
		if err := json.Unmarshal(nestedRaw, &nested); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if nested != nil && flat.CurrentTime > 0 {
			nested.CurrentTime = flat.CurrentTime
		}
		return track(nested), nil
	}
	return track(&flat), nil
}

func track(d *state.AudioDescriptor) *state.AudioDescriptor {
	if d == nil || (d.MediaID == "" && d.URL == "") {
		return nil
	}
	return d
}
