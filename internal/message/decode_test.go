package message_test

import (
	"encoding/json"
	"testing"

	"github.com/republik/appshell/internal/message"
	"github.com/republik/appshell/internal/state"
	"github.com/stretchr/testify/require"
)

func TestDecodeKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want message.Inbound
	}{{
		name: "route change",
		raw:  `{"type":"routeChange","payload":{"url":"/feed"},"id":"1"}`,
		want: message.RouteChange{URL: "/feed"},
	}, {
		name: "share",
		raw:  `{"type":"share","payload":{"url":"https://r.ch/a","title":"T","message":"M","subject":"S","dialogTitle":"D","id":"nope"}}`,
		want: message.Share{URL: "https://r.ch/a", Title: "T", Message: "M", Subject: "S", DialogTitle: "D"},
	}, {
		name: "haptic string",
		raw:  `{"type":"haptic","payload":"impactLight"}`,
		want: message.Haptic{Pattern: "impactLight"},
	}, {
		name: "haptic object",
		raw:  `{"type":"haptic","payload":{"type":"notificationSuccess"}}`,
		want: message.Haptic{Pattern: "notificationSuccess"},
	}, {
		name: "signed in",
		raw:  `{"type":"isSignedIn","payload":true}`,
		want: message.IsSignedIn{SignedIn: true},
	}, {
		name: "fullscreen legacy spelling",
		raw:  `{"type":"fullscreen-enter"}`,
		want: message.FullscreenEnter{},
	}, {
		name: "fullscreen exit",
		raw:  `{"type":"fullscreenExit"}`,
		want: message.FullscreenExit{},
	}, {
		name: "color scheme top level key",
		raw:  `{"type":"setColorScheme","colorSchemeKey":"dark"}`,
		want: message.SetColorScheme{Key: "dark"},
	}, {
		name: "unknown kind",
		raw:  `{"type":"somethingNew","payload":{}}`,
		want: message.Unknown{Type: "somethingNew"},
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := message.Decode([]byte(tc.raw))
			require.NoError(t, err)
			require.IsType(t, tc.want, got)

			// Compare without the id, which is covered separately.
			switch g := got.(type) {
			case message.RouteChange:
				require.Equal(t, tc.want.(message.RouteChange).URL, g.URL)
			case message.Share:
				w := tc.want.(message.Share)
				require.Equal(t, w.URL, g.URL)
				require.Equal(t, w.Title, g.Title)
				require.Equal(t, w.Message, g.Message)
				require.Equal(t, w.Subject, g.Subject)
				require.Equal(t, w.DialogTitle, g.DialogTitle)
				require.Empty(t, g.MessageID())
			case message.Haptic:
				require.Equal(t, tc.want.(message.Haptic).Pattern, g.Pattern)
			case message.IsSignedIn:
				require.Equal(t, tc.want.(message.IsSignedIn).SignedIn, g.SignedIn)
			case message.SetColorScheme:
				require.Equal(t, tc.want.(message.SetColorScheme).Key, g.Key)
			case message.Unknown:
				require.Equal(t, tc.want.(message.Unknown).Type, g.Type)
			}
		})
	}
}

func TestDecodeAckKeepsID(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"ackMessage", "clearMessage"} {
		got, err := message.Decode([]byte(`{"type":"` + kind + `","id":"abc"}`))
		require.NoError(t, err)
		require.IsType(t, message.Ack{}, got)
		require.Equal(t, "abc", got.MessageID())
	}

	_, err := message.Decode([]byte(`{"type":"ackMessage"}`))
	require.ErrorIs(t, err, message.ErrMalformed)
}

func TestDecodePlayAudioShapes(t *testing.T) {
	t.Parallel()

	flat, err := message.Decode([]byte(`{"type":"play-audio","payload":{"currentTime":12.5,"mediaId":"m1","url":"https://cdn/a.mp3","title":"A","sourcePath":"/article"}}`))
	require.NoError(t, err)
	require.Equal(t, &state.AudioDescriptor{
		MediaID:     "m1",
		URL:         "https://cdn/a.mp3",
		Title:       "A",
		SourcePath:  "/article",
		CurrentTime: 12.5,
	}, flat.(message.PlayAudio).Audio)

	nested, err := message.Decode([]byte(`{"type":"playAudio","payload":{"currentTime":7,"audio":{"mediaId":"m2","url":"https://cdn/b.mp3","title":"B"}}}`))
	require.NoError(t, err)
	require.Equal(t, &state.AudioDescriptor{
		MediaID:     "m2",
		URL:         "https://cdn/b.mp3",
		Title:       "B",
		CurrentTime: 7,
	}, nested.(message.PlayAudio).Audio)

	cleared, err := message.Decode([]byte(`{"type":"playAudio","payload":{"audio":null}}`))
	require.NoError(t, err)
	require.Nil(t, cleared.(message.PlayAudio).Audio)

	null, err := message.Decode([]byte(`{"type":"playAudio","payload":null}`))
	require.NoError(t, err)
	require.Nil(t, null.(message.PlayAudio).Audio)

	for _, raw := range []string{
		`{"type":"playAudio","payload":{"currentTime":12}}`,
		`{"type":"playAudio","payload":{"currentTime":12,"audio":{"title":"A"}}}`,
	} {
		positionOnly, err := message.Decode([]byte(raw))
		require.NoError(t, err, raw)
		require.Nil(t, positionOnly.(message.PlayAudio).Audio, raw)
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`not json`,
		`{"type":"routeChange"}`,
		`{"type":"routeChange","payload":{"url":""}}`,
		`{"type":"isSignedIn","payload":"yes"}`,
		`{"type":"share","payload":[1,2]}`,
		`{"type":"haptic"}`,
		`{"type":"playAudio","payload":"x"}`,
	} {
		_, err := message.Decode([]byte(raw))
		require.ErrorIs(t, err, message.ErrMalformed, raw)
	}
}

func TestOutboundWireShape(t *testing.T) {
	t.Parallel()

	out := message.NewOutbound(message.KindMediaProgress, message.MediaProgress{MediaID: "m1", CurrentTime: 3})
	require.NotEmpty(t, out.ID)

	raw, err := out.Encode()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "onAppMediaProgressUpdate", got["type"])
	require.Equal(t, out.ID, got["id"])
	require.Equal(t, map[string]any{"mediaId": "m1", "currentTime": 3.0}, got["payload"])
}
