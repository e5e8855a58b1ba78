package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/skillswap/swapclient/internal/logger"
	"github.com/skillswap/swapclient/pkg/config"
	"github.com/skillswap/swapclient/pkg/wire"
)

// State represents the push channel lifecycle state.
type State int32

const (
	// StateDisconnected means no channel exists.
	StateDisconnected State = iota

	// StateConnecting means a handshake is in flight.
	StateConnecting

	// StateOpen means the channel is delivering messages.
	StateOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "disconnected"
	}
}

// Connection owns at most one push channel per process and fans inbound
// messages out to registered handlers. The transport feeds messages into a
// queue; a single dispatch goroutine drains it, so handlers always run
// sequentially in registration order and never reentrantly.
//
// Connect never returns an error: a channel that fails to open leaves the
// connection disconnected, observable through IsConnected. The push
// channel is a convenience layer; the REST API stays the source of truth.
type Connection struct {
	transport Transport
	policy    config.ReconnectPolicy
	log       *slog.Logger

	mu         sync.Mutex
	state      State
	identityID int
	token      string
	channel    Channel
	// gen is bumped by every explicit Connect/Disconnect/Close. In-flight
	// handshakes and reconnect loops from an older generation find their
	// result stale and drop it instead of clobbering newer state.
	gen uint64

	handlersMu sync.RWMutex
	handlers   []MessageHandler

	queue     chan *wire.Message
	closeOnce sync.Once
	closed    chan struct{}
}

// NewConnection creates a push connection on the given transport and
// starts its dispatch goroutine.
func NewConnection(transport Transport, cfg config.PushConfig) *Connection {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	c := &Connection{
		transport: transport,
		policy:    cfg.Reconnect,
		log:       slog.Default(),
		queue:     make(chan *wire.Message, queueSize),
		closed:    make(chan struct{}),
	}

	go c.dispatchLoop()
	return c
}

// Connect opens a channel for the given identity. If a channel is already
// open for the same identity this is a no-op; a channel for a different
// identity is fully torn down before the new one is opened. Failures are
// logged, not returned.
func (c *Connection) Connect(ctx context.Context, identityID int, token string) {
	c.mu.Lock()
	if c.state == StateOpen && c.identityID == identityID {
		c.mu.Unlock()
		return
	}

	c.gen++
	gen := c.gen

	if prev := c.channel; prev != nil {
		c.channel = nil
		c.state = StateDisconnected
		// Release the old transport resource before the new handshake so
		// two channels never exist at once, even transiently.
		prev.Close()
	}

	c.identityID = identityID
	c.token = token
	c.state = StateConnecting
	c.mu.Unlock()

	ch, err := c.transport.Open(ctx, identityID, token)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		if ch != nil {
			ch.Close()
		}
		return
	}

	if err != nil {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Warn("Failed to open push channel", "identity_id", identityID, "error", err)
		return
	}

	c.channel = ch
	c.state = StateOpen
	c.mu.Unlock()

	c.log.Info("Push channel open", "identity_id", identityID)
	go c.pump(ch, gen)
}

// Disconnect closes the channel if one exists. Handlers stay registered;
// only the transport is torn down. Safe to call when already disconnected.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	c.gen++
	prev := c.channel
	c.channel = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
		c.log.Info("Push channel closed")
	}
}

// Close disconnects and stops the dispatch goroutine. The connection
// cannot be reused afterwards.
func (c *Connection) Close() {
	c.Disconnect()
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// IsConnected reports whether the channel state is open.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

// CurrentState returns the connection state.
func (c *Connection) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AddMessageHandler registers a handler, preserving insertion order.
// Re-adding the same handler is a no-op.
func (c *Connection) AddMessageHandler(handler MessageHandler) {
	if handler == nil {
		return
	}

	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	for _, h := range c.handlers {
		if sameHandler(h, handler) {
			return
		}
	}
	c.handlers = append(c.handlers, handler)
}

// RemoveMessageHandler unregisters a handler. Removing a handler that was
// never registered is a no-op.
func (c *Connection) RemoveMessageHandler(handler MessageHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	for i, h := range c.handlers {
		if sameHandler(h, handler) {
			c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
			return
		}
	}
}

// pump forwards the channel's messages into the dispatch queue and, when
// the channel drops, resets state and kicks off reconnection if enabled.
func (c *Connection) pump(ch Channel, gen uint64) {
	for msg := range ch.Messages() {
		select {
		case c.queue <- msg:
		default:
			c.log.Warn("Push queue full, dropping message", "type", msg.Type)
		}
	}

	c.mu.Lock()
	if c.channel != ch {
		// A newer Connect or an explicit Disconnect already replaced us.
		c.mu.Unlock()
		return
	}
	c.channel = nil
	c.state = StateDisconnected
	identityID := c.identityID
	token := c.token
	c.mu.Unlock()

	c.log.Warn("Push channel dropped", "identity_id", identityID)

	if c.policy.Enabled {
		go c.reconnectLoop(gen, identityID, token)
	}
}

// reconnectLoop re-establishes a dropped channel with exponential backoff.
// It gives up as soon as an explicit Connect, Disconnect or Close happens,
// or once the attempt budget is spent.
func (c *Connection) reconnectLoop(gen uint64, identityID int, token string) {
	delay := c.policy.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}

	for attempt := 1; c.policy.MaxAttempts == 0 || attempt <= c.policy.MaxAttempts; attempt++ {
		select {
		case <-c.closed:
			return
		case <-time.After(delay):
		}

		c.mu.Lock()
		if c.gen != gen || c.state != StateDisconnected {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.mu.Unlock()

		ch, err := c.transport.Open(context.Background(), identityID, token)

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			if ch != nil {
				ch.Close()
			}
			return
		}
		if err != nil {
			c.state = StateDisconnected
			c.mu.Unlock()
			c.log.Warn("Push reconnect failed", "identity_id", identityID, "attempt", attempt, "error", err)

			delay *= 2
			if c.policy.MaxDelay > 0 && delay > c.policy.MaxDelay {
				delay = c.policy.MaxDelay
			}
			continue
		}

		c.channel = ch
		c.state = StateOpen
		c.mu.Unlock()

		c.log.Info("Push channel reconnected", "identity_id", identityID, "attempt", attempt)
		go c.pump(ch, gen)
		return
	}

	c.log.Warn("Push reconnect attempts exhausted", "identity_id", identityID)
}

// dispatchLoop drains the queue and invokes handlers in registration
// order. A snapshot of the registry is taken per message, so handlers may
// add or remove handlers without affecting the current dispatch.
func (c *Connection) dispatchLoop() {
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.queue:
			c.handlersMu.RLock()
			handlers := make([]MessageHandler, len(c.handlers))
			copy(handlers, c.handlers)
			c.handlersMu.RUnlock()

			logger.Trace(c.log, "Dispatching push message", "type", msg.Type, "handlers", len(handlers))
			for _, h := range handlers {
				h.HandleMessage(msg)
			}
		}
	}
}
