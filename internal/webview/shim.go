//go:build !android && !ios

// Package webview narrows webview_go to what the desktop shell uses so the
// host can be faked in tests.
package webview

import (
	webview "github.com/webview/webview_go"
)

type Hint = webview.Hint

// HintNone specifies that width and height are default size
const HintNone = webview.HintNone

// WebView is the subset of webview.WebView the shell calls.
type WebView interface {
	Run()
	Terminate()
	Dispatch(f func())
	Destroy()
	SetTitle(title string)
	SetSize(w int, h int, hint Hint)
	Navigate(url string)
	Init(js string)
	Eval(js string)
	Bind(name string, f interface{}) error
}

// New creates a new webview in a new window.
func New(debug bool) WebView {
	return webview.New(debug)
}
