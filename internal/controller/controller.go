// Package controller is the bridge protocol engine between the native shell
// and the embedded web content.
package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/republik/appshell/internal/bridge"
	"github.com/republik/appshell/internal/loop"
	"github.com/republik/appshell/internal/message"
	"github.com/republik/appshell/internal/queue"
	"github.com/republik/appshell/internal/state"
)

const DefaultAckTimeout = 5 * time.Second

var (
	ErrInvalidBaseURL = errors.New("controller: invalid base url")
	ErrForeignURL     = errors.New("controller: url outside content origin")
)

// ContentHost is the embedded browser surface.
type ContentHost interface {
	LoadURL(url string)
	// PostMessage delivers one serialized message into the content.
	PostMessage(data string) error
}

type Config struct {
	// BaseURL is the origin of the hosted web experience.
	BaseURL string
	// AckTimeout bounds how long a delivered message blocks the queue.
	AckTimeout time.Duration
}

// Controller must only be used from the event loop.
type Controller struct {
	logger    *slog.Logger
	host      ContentHost
	native    bridge.NativeBridge
	sched     loop.Scheduler
	persisted *state.PersistedStore
	volatile  *state.VolatileStore
	queue     *queue.Queue

	base       *url.URL
	ackTimeout time.Duration

	history History
	ready   bool
	started bool
	// current is the url last loaded into or reported by the host.
	current string
	navSeq  int

	timers map[string]loop.Timer
	unsub  []func()
}

func New(
	cfg Config,
	host ContentHost,
	native bridge.NativeBridge,
	sched loop.Scheduler,
	persisted *state.PersistedStore,
	volatile *state.VolatileStore,
	logger *slog.Logger,
) (*Controller, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}

	c := &Controller{
		logger:     logger,
		host:       host,
		native:     native,
		sched:      sched,
		persisted:  persisted,
		volatile:   volatile,
		queue:      queue.New(),
		base:       base,
		ackTimeout: cfg.AckTimeout,
		timers:     make(map[string]loop.Timer),
	}
	c.queue.OnChange(c.deliver)
	return c, nil
}

// Start subscribes to gate and pending url changes and attempts the first
// navigation.
func (c *Controller) Start() {
	c.unsub = append(c.unsub, c.volatile.Subscribe(func(ch state.VolatileChange) {
		switch {
		case ch.Key == state.KeyGate:
			c.navigateIfReady()
		case ch.Key == state.KeyPendingURL && c.volatile.PendingURL() != "":
			c.navigateIfReady()
		}
	}))
	c.navigateIfReady()
}

func (c *Controller) Stop() {
	for _, u := range c.unsub {
		u()
	}
	c.unsub = nil
	c.Teardown()
}

// Post queues an outbound message for the content.
func (c *Controller) Post(kind message.Kind, payload any) error {
	return c.queue.Enqueue(message.NewOutbound(kind, payload))
}

// OnLoadStart is reported by the host when a page load begins. In-page
// listeners are gone until the load finishes.
func (c *Controller) OnLoadStart() {
	c.ready = false
}

// OnContentReady is reported by the host when a page load finished.
func (c *Controller) OnContentReady() {
	c.ready = true
	c.deliver()
}

// Teardown forgets all queued messages when the content host is recreated.
func (c *Controller) Teardown() {
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	if n := c.queue.Len(); n > 0 {
		c.logger.Debug("discarding undelivered messages", "count", n)
	}
	c.queue.Reset()
	c.ready = false
	c.started = false
	c.current = ""
}

// Remount tears down the old content host and loads the pending or persisted
// url into its replacement once every gate is open.
func (c *Controller) Remount() {
	c.Teardown()
	c.navigateIfReady()
}

// Queue returns the pending messages in delivery order.
func (c *Controller) Queue() []queue.Entry {
	return c.queue.Entries()
}

func (c *Controller) History() []string {
	return c.history.Entries()
}

func (c *Controller) Ready() bool { return c.ready }

// deliver sends the head of the queue when the content is ready and nothing
// is awaiting acknowledgment. Later messages never overtake an in-flight one.
func (c *Controller) deliver() {
	if !c.ready || c.queue.InFlight() > 0 {
		return
	}
	entry, ok := c.queue.NextDeliverable()
	if !ok {
		return
	}

	id := entry.Message.ID
	data, err := entry.Message.Encode()
	if err != nil {
		c.logger.Error("dropping unencodable message", "id", id, "type", entry.Message.Type, "err", err)
		_ = c.queue.Clear(id)
		return
	}
	if err := c.host.PostMessage(string(data)); err != nil {
		c.logger.Warn("failed to post message", "id", id, "err", err)
	}

	c.timers[id] = c.sched.AfterFunc(c.ackTimeout, func() {
		c.onAckTimeout(id)
	})
	c.logger.Debug("message delivered", "id", id, "type", entry.Message.Type, "attempt", entry.Attempts+1)
	_ = c.queue.Mark(id, true)
}

func (c *Controller) onAckTimeout(id string) {
	delete(c.timers, id)
	if !c.queue.Has(id) {
		return
	}
	c.logger.Debug("message not acknowledged, redelivering", "id", id)
	_ = c.queue.Mark(id, false)
}

func (c *Controller) acknowledge(id string) {
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	if err := c.queue.Clear(id); err != nil {
		c.logger.Debug("ack for unknown message", "id", id)
	}
}
