package controller

import (
	"net/url"
	"strconv"
)

// navParam makes a repeated navigation to the loaded url look new to the
// content host. It is stripped again before urls are compared or persisted.
const navParam = "_nav"

// OnNavigationStateChanged is reported by the host for every committed
// navigation. Foreign origins are left to the host.
func (c *Controller) OnNavigationStateChanged(rawURL string) {
	c.current = rawURL
	target, ok := c.resolve(rawURL)
	if !ok {
		return
	}
	c.reconcile(target)
}

// GoBack loads the previous history entry. It reports false when there is
// nothing to go back to.
func (c *Controller) GoBack() bool {
	prev, ok := c.history.Back()
	if !ok {
		return false
	}
	c.persisted.SetURL(prev)
	c.load(prev)
	return true
}

// BaseURL returns the origin of the hosted content.
func (c *Controller) BaseURL() string {
	return c.base.String()
}

// reconcile accepts a navigation reported by either channel. The same
// transition reported twice writes once and adds one history entry.
func (c *Controller) reconcile(target string) {
	if prev, ok := c.resolve(c.persisted.Get().URL); ok && prev == target {
		return
	}
	c.persisted.SetURL(target)
	c.history.Push(target)
	c.logger.Debug("navigation accepted", "url", target)
}

// navigateIfReady picks the load target once every readiness gate is open.
// A pending url always wins; the persisted url is only loaded on first start
// and after a remount.
func (c *Controller) navigateIfReady() {
	if !c.volatile.AllReady() {
		return
	}

	if pending, ok := c.volatile.TakePendingURL(); ok {
		target, ok := c.resolve(pending)
		if !ok {
			c.logger.Warn("ignoring pending url outside content origin", "url", pending)
			return
		}
		if cur, ok := c.resolve(c.current); ok && cur == target {
			c.navSeq++
			target = withParam(target, navParam, strconv.Itoa(c.navSeq))
		}
		c.load(target)
		return
	}

	if c.started {
		return
	}
	target := c.persisted.Get().URL
	if _, ok := c.resolve(target); !ok {
		target = c.base.String()
	}
	c.load(target)
}

func (c *Controller) load(target string) {
	c.started = true
	c.current = target
	if normalized, ok := c.resolve(target); ok {
		c.history.Push(normalized)
	}
	c.logger.Info("loading content", "url", target)
	c.host.LoadURL(target)
}

// resolve turns a path or absolute url into a canonical absolute url on the
// content origin. It reports false for other origins.
func (c *Controller) resolve(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	u := c.base.ResolveReference(ref)
	if u.Scheme != c.base.Scheme || u.Host != c.base.Host {
		return "", false
	}
	if q := u.Query(); q.Has(navParam) {
		q.Del(navParam)
		u.RawQuery = q.Encode()
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), true
}

func withParam(raw, key, value string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// Owns reports whether raw resolves onto the content origin.
func (c *Controller) Owns(raw string) bool {
	_, ok := c.resolve(raw)
	return ok
}
