//go:build !android && !ios

package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/toqueteos/webbrowser"

	"github.com/republik/appshell/internal/webview"
)

const BASE_TITLE = "Republik"

var ErrWindowClosed = errors.New("service: window closed")

// ContentEvents receives what the page reports through the bindings.
type ContentEvents interface {
	LoadStarted()
	ContentReady()
	NavigationChanged(url string)
	Message(data []byte)
}

// hostScript runs at document start on every page. It exposes the message
// channel the web app expects and reports load and history changes.
const hostScript = `(function() {
	if (window.__appshellInstalled) return;
	window.__appshellInstalled = true;
	window.ReactNativeWebView = {
		postMessage: function(data) { __appshellMessage(String(data)); }
	};
	__appshellLoadStart();
	var report = function() { __appshellNavigation(window.location.href); };
	["pushState", "replaceState"].forEach(function(name) {
		var orig = history[name];
		history[name] = function() {
			var res = orig.apply(this, arguments);
			report();
			return res;
		};
	});
	window.addEventListener("popstate", report);
	var ready = function() {
		report();
		__appshellTitle(document.title);
		new MutationObserver(function() { __appshellTitle(document.title); })
			.observe(document.querySelector("title") || document.head, { childList: true, subtree: true });
		__appshellReady();
	};
	if (document.readyState === "loading") {
		document.addEventListener("DOMContentLoaded", ready);
	} else {
		ready();
	}
	document.addEventListener("click", function(e) {
		var a = e.target.closest("a");
		if (!a || !a.href) return;
		if (a.origin === %[1]s) return;
		e.preventDefault();
		__appshellOpenExternal(a.href);
	});
})();`

type WebViewOptions struct {
	BaseURL string
	Width   int
	Height  int
	Logger  *slog.Logger
}

// WebViewService is the desktop content host.
type WebViewService struct {
	logger *slog.Logger
	origin string

	mu         sync.Mutex
	mainWindow webview.WebView
	title      string
}

func NewWebViewService(w webview.WebView, opts WebViewOptions) (*WebViewService, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("service: parse base url: %w", err)
	}
	if opts.Width > 0 && opts.Height > 0 {
		w.SetSize(opts.Width, opts.Height, webview.HintNone)
	}
	w.SetTitle(BASE_TITLE)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WebViewService{
		logger:     logger,
		origin:     base.Scheme + "://" + base.Host,
		mainWindow: w,
		title:      BASE_TITLE,
	}, nil
}

// Attach installs the page bindings. It must run before the first load.
func (s *WebViewService) Attach(events ContentEvents) error {
	origin, _ := json.Marshal(s.origin)
	w := s.mainWindow

	bindings := map[string]interface{}{
		"__appshellMessage": func(data string) {
			events.Message([]byte(data))
		},
		"__appshellLoadStart": events.LoadStarted,
		"__appshellReady":     events.ContentReady,
		"__appshellNavigation": func(u string) {
			if s.external(u) {
				return
			}
			events.NavigationChanged(u)
		},
		"__appshellTitle":        s.SetTitle,
		"__appshellOpenExternal": s.OpenExternal,
	}
	for name, fn := range bindings {
		if err := w.Bind(name, fn); err != nil {
			return fmt.Errorf("service: bind %s: %w", name, err)
		}
	}
	w.Init(fmt.Sprintf(hostScript, origin))
	return nil
}

// Run blocks on the UI loop until the window closes.
func (s *WebViewService) Run() {
	s.mainWindow.Run()
}

func (s *WebViewService) LoadURL(u string) {
	if err := s.dispatch(func(w webview.WebView) { w.Navigate(u) }); err != nil {
		s.logger.Debug("dropping navigation", "url", u, "err", err)
	}
}

// PostMessage delivers data as a message event on the page window.
func (s *WebViewService) PostMessage(data string) error {
	quoted, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js := fmt.Sprintf(`window.dispatchEvent(new MessageEvent("message", { data: %s }));`, quoted)
	return s.dispatch(func(w webview.WebView) { w.Eval(js) })
}

// Init adds a script that runs before page scripts on every load.
func (s *WebViewService) Init(js string) {
	_ = s.dispatch(func(w webview.WebView) { w.Init(js) })
}

// Alert shows a notice inside the page.
func (s *WebViewService) Alert(message string) {
	quoted, _ := json.Marshal(message)
	_ = s.dispatch(func(w webview.WebView) { w.Eval(fmt.Sprintf("window.alert(%s);", quoted)) })
}

func (s *WebViewService) OpenExternal(u string) error {
	s.logger.Debug("opening external link", "url", u)
	return webbrowser.Open(u)
}

func (s *WebViewService) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(title)
	if trimmed == "" || trimmed == BASE_TITLE {
		s.title = BASE_TITLE
	} else {
		s.title = fmt.Sprintf("%s | %s", BASE_TITLE, trimmed)
	}

	if s.mainWindow != nil {
		newTitle := s.title
		w := s.mainWindow
		w.Dispatch(func() {
			w.SetTitle(newTitle)
		})
	}
}

// CloseMainWindow ends Run from any goroutine.
func (s *WebViewService) CloseMainWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mainWindow == nil {
		return
	}

	w := s.mainWindow
	w.Dispatch(func() {
		w.Terminate()
	})
	s.mainWindow = nil
}

func (s *WebViewService) external(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return true
	}
	return parsed.Scheme+"://"+parsed.Host != s.origin
}

func (s *WebViewService) dispatch(fn func(w webview.WebView)) error {
	s.mu.Lock()
	w := s.mainWindow
	s.mu.Unlock()
	if w == nil {
		return ErrWindowClosed
	}
	w.Dispatch(func() { fn(w) })
	return nil
}
