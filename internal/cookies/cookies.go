// Package cookies seeds the content origin with the cookies the shell needs
// before the first page load.
package cookies

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/republik/appshell/internal/state"
)

const OpenSesameName = "OpenSesame"

// openSesameExpiry matches the staging curtain's own cookie.
var openSesameExpiry = time.Date(2030, time.May, 30, 17, 30, 0, 0, time.UTC)

// Injector runs a script before any content script on every page load.
type Injector interface {
	Init(js string)
}

// componentUnescape turns url.QueryEscape output into what JavaScript's
// encodeURIComponent produces.
var componentUnescape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func componentEscape(s string) string {
	return componentUnescape.Replace(url.QueryEscape(s))
}

// OpenSesame returns the curtain bypass cookie for backdoorPath.
func OpenSesame(backdoorPath string) *http.Cookie {
	return &http.Cookie{
		Name:    OpenSesameName,
		Value:   componentEscape(backdoorPath),
		Path:    "/",
		Expires: openSesameExpiry,
	}
}

// InitScript sets every missing cookie on the base origin and reloads the
// page once so the server sees them.
func InitScript(baseURL string, cookies ...*http.Cookie) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("cookies: parse base url: %w", err)
	}
	origin, _ := json.Marshal(base.Scheme + "://" + base.Host)

	type entry struct {
		Name   string `json:"name"`
		Cookie string `json:"cookie"`
	}
	entries := make([]entry, 0, len(cookies))
	for _, c := range cookies {
		entries = append(entries, entry{Name: c.Name, Cookie: c.String()})
	}
	list, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("cookies: encode: %w", err)
	}

	return fmt.Sprintf(`(function() {
	if (window.location.origin !== %s) return;
	var have = document.cookie.split("; ").map(function(c) { return c.split("=")[0]; });
	var missing = false;
	%s.forEach(function(c) {
		if (have.indexOf(c.name) === -1) {
			document.cookie = c.cookie;
			missing = true;
		}
	});
	if (missing && !sessionStorage.getItem("appshellCookiesSet")) {
		sessionStorage.setItem("appshellCookiesSet", "1");
		window.location.reload();
	}
})();`, origin, list), nil
}

// Bootstrap installs the cookie script when there is something to set and
// opens the cookies gate. It runs on the event loop.
func Bootstrap(host Injector, volatile *state.VolatileStore, baseURL, backdoorPath string, logger *slog.Logger) error {
	defer volatile.SetReady(state.GateCookies)

	if backdoorPath == "" {
		return nil
	}
	js, err := InitScript(baseURL, OpenSesame(backdoorPath))
	if err != nil {
		return err
	}
	host.Init(js)
	logger.Debug("curtain cookie installed", "base_url", baseURL)
	return nil
}
