package notify

import (
	"fmt"
	"log/slog"

	"github.com/skillswap/swapclient/pkg/push"
	"github.com/skillswap/swapclient/pkg/wire"
)

// Toaster is the sink the dispatcher emits into. *Center satisfies it.
type Toaster interface {
	ShowSuccess(title, message string)
	ShowInfo(title, message string)
}

// HandlerRegistry is the slice of the push connection the dispatcher
// needs: registration and teardown of its message handler.
type HandlerRegistry interface {
	AddMessageHandler(handler push.MessageHandler)
	RemoveMessageHandler(handler push.MessageHandler)
}

// Dispatcher translates inbound push messages into ephemeral
// notifications. It mutates nothing durable; keep-alives and unknown tags
// pass through silently. It wires itself to the connection on
// construction and unwires on Close.
type Dispatcher struct {
	registry HandlerRegistry
	toaster  Toaster
}

// NewDispatcher creates a dispatcher and registers it with the
// connection. Constructing the same dispatcher twice against one
// connection does not double-subscribe; the registry deduplicates by
// handler identity.
func NewDispatcher(registry HandlerRegistry, toaster Toaster) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		toaster:  toaster,
	}
	registry.AddMessageHandler(d)
	return d
}

// Close unregisters the dispatcher from the connection.
func (d *Dispatcher) Close() {
	d.registry.RemoveMessageHandler(d)
}

// HandleMessage implements push.MessageHandler.
func (d *Dispatcher) HandleMessage(msg *wire.Message) {
	switch msg.Type {
	case wire.MessageTypeSwapUpdate:
		var payload wire.SwapUpdatePayload
		if err := msg.DecodeData(&payload); err != nil {
			slog.Warn("Ignoring malformed swap_update", "error", err)
			return
		}
		d.toaster.ShowInfo("Swap Updated", fmt.Sprintf("Your swap request has been %s", payload.Status))

	case wire.MessageTypeNewRequest:
		var payload wire.NewRequestPayload
		if err := msg.DecodeData(&payload); err != nil {
			slog.Warn("Ignoring malformed new_request", "error", err)
			return
		}
		d.toaster.ShowInfo("New Swap Request", fmt.Sprintf("%s wants to swap skills", payload.RequesterName))

	case wire.MessageTypeRatingReceived:
		var payload wire.RatingPayload
		if err := msg.DecodeData(&payload); err != nil {
			slog.Warn("Ignoring malformed rating_received", "error", err)
			return
		}
		d.toaster.ShowSuccess("Rating Received", fmt.Sprintf("You received a %d-star rating!", payload.Stars))

	case wire.MessageTypePing, wire.MessageTypePong:
		// Transport keep-alive, nothing to surface.

	default:
		// Unknown tags are ignored, never fatal.
	}
}

var _ push.MessageHandler = (*Dispatcher)(nil)
