package push

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"

	"github.com/skillswap/swapclient/pkg/config"
	"github.com/skillswap/swapclient/pkg/wire"
)

// readyEvent is the event type the server emits as soon as the stream is
// accepted; it carries no payload and only confirms the handshake.
const readyEvent = "ready"

// SSETransport opens push channels over Server-Sent Events. The endpoint
// is <base>/<path>/<identityID>?token=<token>; every other event on the
// stream is a JSON-encoded wire.Message.
type SSETransport struct {
	baseURL string
	cfg     config.PushConfig
}

// NewSSETransport creates an SSE transport against the given base URL.
func NewSSETransport(baseURL string, cfg config.PushConfig) *SSETransport {
	return &SSETransport{baseURL: baseURL, cfg: cfg}
}

// Open establishes the SSE stream and waits for the handshake. The ctx
// only bounds the handshake; the returned channel owns its own lifetime.
func (t *SSETransport) Open(ctx context.Context, identityID int, token string) (Channel, error) {
	endpoint := fmt.Sprintf("%s%s/%d?token=%s",
		t.baseURL, t.cfg.Path, identityID, url.QueryEscape(token))

	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create push request: %w", err)
	}

	queueSize := t.cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	ch := &sseChannel{
		cancel: cancel,
		msgs:   make(chan *wire.Message, queueSize),
	}

	conn := sse.NewConnection(req)

	established := make(chan struct{})
	connectionError := make(chan error, 1)

	conn.SubscribeToAll(func(event sse.Event) {
		// Any event proves the stream is up.
		select {
		case established <- struct{}{}:
		default:
		}

		if event.Type == readyEvent {
			return
		}

		msg, err := wire.Parse([]byte(event.Data))
		if err != nil {
			slog.Error("Failed to parse push event", "error", err)
			return
		}

		select {
		case ch.msgs <- msg:
		default:
			slog.Warn("Push stream buffer full, dropping message", "type", msg.Type)
		}
	})

	go func() {
		if err := conn.Connect(); err != nil {
			select {
			case connectionError <- err:
			default:
			}
		}
		// Connect has returned, so no callback can still be running and
		// closing the message channel is safe.
		ch.closeMsgs()
	}()

	handshakeTimeout := t.cfg.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 5 * time.Second
	}

	select {
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case err := <-connectionError:
		cancel()
		return nil, fmt.Errorf("failed to establish push channel: %w", err)
	case <-established:
		slog.Debug("Push stream established", "identity_id", strconv.Itoa(identityID))
		return ch, nil
	case <-time.After(handshakeTimeout):
		cancel()
		return nil, fmt.Errorf("timeout waiting for push channel")
	}
}

// sseChannel adapts one SSE stream to the Channel interface.
type sseChannel struct {
	cancel context.CancelFunc
	msgs   chan *wire.Message
	once   sync.Once
}

// Messages returns the inbound message stream.
func (c *sseChannel) Messages() <-chan *wire.Message {
	return c.msgs
}

// Close cancels the stream. The message channel closes once the reader
// goroutine observes the cancellation.
func (c *sseChannel) Close() {
	c.cancel()
}

func (c *sseChannel) closeMsgs() {
	c.once.Do(func() {
		close(c.msgs)
	})
}

var _ Transport = (*SSETransport)(nil)
