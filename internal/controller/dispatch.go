package controller

import (
	"strings"

	"github.com/republik/appshell/internal/bridge"
	"github.com/republik/appshell/internal/message"
)

const shareFailedNotice = "Teilen ist fehlgeschlagen."

// HandleMessage decodes and applies one inbound message from the content.
func (c *Controller) HandleMessage(data []byte) {
	in, err := message.Decode(data)
	if err != nil {
		c.logger.Warn("dropping malformed message", "err", err)
		return
	}

	switch m := in.(type) {
	case message.RouteChange:
		target, ok := c.resolve(m.URL)
		if !ok {
			c.logger.Debug("ignoring route change to foreign origin", "url", m.URL)
			return
		}
		c.reconcile(target)

	case message.Share:
		c.share(m)

	case message.Haptic:
		if err := c.native.Haptic(m.Pattern); err != nil {
			c.logger.Debug("haptic feedback failed", "pattern", m.Pattern, "err", err)
		}

	case message.PlayAudio:
		c.persisted.SetAudio(m.Audio)
		if m.Audio != nil {
			c.volatile.RequestAutoplay(true)
		}

	case message.IsSignedIn:
		c.persisted.SetSignedIn(m.SignedIn)

	case message.FullscreenEnter:
		c.persisted.SetFullscreen(true)

	case message.FullscreenExit:
		c.persisted.SetFullscreen(false)

	case message.SetColorScheme:
		c.persisted.SetColorScheme(m.Key)

	case message.Ack:
		c.acknowledge(m.MessageID())

	case message.Unknown:
		c.logger.Debug("ignoring unknown message", "type", m.Type)
	}
}

// share maps the payload onto the fields each platform's share sheet uses.
// iOS shows url and message separately; Android only has a text body.
func (c *Controller) share(m message.Share) {
	var err error
	switch c.native.Platform() {
	case bridge.PlatformIOS:
		err = c.native.Share(m.URL, m.Title, m.Message, m.Subject, "")
	default:
		body := strings.Join(nonEmpty(m.Message, m.URL), "\n")
		err = c.native.Share("", m.Title, body, "", m.DialogTitle)
	}
	if err == nil {
		return
	}

	c.logger.Warn("share failed", "url", m.URL, "err", err)
	if err := c.native.Alert(shareFailedNotice); err != nil {
		c.logger.Error("failed to show alert", "err", err)
	}
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
