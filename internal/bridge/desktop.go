package bridge

import (
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
)

// Desktop is the NativeBridge of the desktop shell. There is no share sheet
// on the desktop, so sharing copies the text to the clipboard.
type Desktop struct {
	logger *slog.Logger
	alert  func(message string)
}

var _ NativeBridge = (*Desktop)(nil)

// NewDesktop builds the desktop bridge. alert shows a notice inside the
// window; nil only logs.
func NewDesktop(logger *slog.Logger, alert func(message string)) *Desktop {
	return &Desktop{logger: logger, alert: alert}
}

func (d *Desktop) Platform() string { return PlatformDesktop }

func (d *Desktop) Share(url, title, message, subject, dialogTitle string) error {
	text := strings.Join(nonEmpty(title, message, url), "\n")
	if err := clipboard.WriteAll(text); err != nil {
		return err
	}
	d.logger.Info("shared to clipboard", "title", title, "url", url)
	return nil
}

func (d *Desktop) Haptic(pattern string) error {
	d.logger.Debug("haptic feedback unavailable on desktop", "pattern", pattern)
	return nil
}

func (d *Desktop) Alert(message string) error {
	d.logger.Warn("alert", "message", message)
	if d.alert != nil {
		d.alert(message)
	}
	return nil
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
