package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/swapclient/pkg/config"
	"github.com/skillswap/swapclient/pkg/push"
	"github.com/skillswap/swapclient/pkg/wire"
)

// nullTransport never opens a channel; the dedup test only needs the
// connection's handler registry.
type nullTransport struct{}

func (*nullTransport) Open(ctx context.Context, identityID int, token string) (push.Channel, error) {
	return nil, errors.New("transport disabled")
}

// fakeRegistry records handler registrations without a live connection.
type fakeRegistry struct {
	handlers []push.MessageHandler
}

func (r *fakeRegistry) AddMessageHandler(h push.MessageHandler) {
	for _, existing := range r.handlers {
		if existing == h {
			return
		}
	}
	r.handlers = append(r.handlers, h)
}

func (r *fakeRegistry) RemoveMessageHandler(h push.MessageHandler) {
	for i, existing := range r.handlers {
		if existing == h {
			r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
			return
		}
	}
}

func message(t *testing.T, typ wire.MessageType, payload interface{}) *wire.Message {
	t.Helper()
	msg, err := wire.NewMessage(typ, payload)
	require.NoError(t, err)
	return msg
}

func TestDispatcherMapping(t *testing.T) {
	center := NewCenter(config.NotifyConfig{DefaultTTL: time.Minute})
	registry := &fakeRegistry{}
	dispatcher := NewDispatcher(registry, center)
	defer dispatcher.Close()

	t.Run("rating_received becomes one success notification", func(t *testing.T) {
		center.ClearAll()

		dispatcher.HandleMessage(message(t, wire.MessageTypeRatingReceived, wire.RatingPayload{SwapID: 2, Stars: 5}))

		visible := center.Notifications()
		require.Len(t, visible, 1)
		assert.Equal(t, LevelSuccess, visible[0].Level)
		assert.Contains(t, visible[0].Message, "5")
	})

	t.Run("swap_update carries the new status", func(t *testing.T) {
		center.ClearAll()

		dispatcher.HandleMessage(message(t, wire.MessageTypeSwapUpdate, wire.SwapUpdatePayload{SwapID: 2, Status: "accepted"}))

		visible := center.Notifications()
		require.Len(t, visible, 1)
		assert.Equal(t, LevelInfo, visible[0].Level)
		assert.Contains(t, visible[0].Message, "accepted")
	})

	t.Run("new_request names the requester", func(t *testing.T) {
		center.ClearAll()

		dispatcher.HandleMessage(message(t, wire.MessageTypeNewRequest, wire.NewRequestPayload{SwapID: 9, RequesterName: "Grace"}))

		visible := center.Notifications()
		require.Len(t, visible, 1)
		assert.Contains(t, visible[0].Message, "Grace")
	})

	t.Run("keep-alives and unknown tags emit nothing", func(t *testing.T) {
		center.ClearAll()

		dispatcher.HandleMessage(message(t, wire.MessageTypePing, nil))
		dispatcher.HandleMessage(message(t, wire.MessageTypePong, nil))
		dispatcher.HandleMessage(message(t, wire.MessageType("mystery"), map[string]int{"x": 1}))

		assert.Empty(t, center.Notifications())
	})

	t.Run("malformed payloads are dropped", func(t *testing.T) {
		center.ClearAll()

		dispatcher.HandleMessage(&wire.Message{
			Type: wire.MessageTypeRatingReceived,
			Data: json.RawMessage(`"not an object"`),
		})

		assert.Empty(t, center.Notifications())
	})
}

func TestDispatcherSelfWiring(t *testing.T) {
	registry := &fakeRegistry{}
	center := NewCenter(config.NotifyConfig{DefaultTTL: time.Minute})

	dispatcher := NewDispatcher(registry, center)
	require.Len(t, registry.handlers, 1)

	dispatcher.Close()
	assert.Empty(t, registry.handlers)
}

// A dispatcher registered against a real connection must not duplicate
// toasts when its subscription is re-established by several UI surfaces.
func TestDispatcherDeduplicatedByConnection(t *testing.T) {
	transport := &nullTransport{}
	conn := push.NewConnection(transport, config.TestConfig().Push)
	defer conn.Close()

	center := NewCenter(config.NotifyConfig{DefaultTTL: time.Minute})
	dispatcher := NewDispatcher(conn, center)
	defer dispatcher.Close()

	// A second surface wiring the same dispatcher is a no-op.
	conn.AddMessageHandler(dispatcher)

	dispatcher.HandleMessage(message(t, wire.MessageTypeRatingReceived, wire.RatingPayload{Stars: 4}))
	assert.Len(t, center.Notifications(), 1)
}
