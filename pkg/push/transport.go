package push

import (
	"context"

	"github.com/skillswap/swapclient/pkg/wire"
)

// Channel represents one established push channel. The transport delivers
// inbound messages on Messages and closes it when the channel drops, for
// any reason. Close tears the channel down from the client side; the
// Messages channel still closes afterwards.
type Channel interface {
	// Messages returns the inbound message stream. It is closed exactly
	// once, when the channel is no longer delivering.
	Messages() <-chan *wire.Message

	// Close releases the transport resource. Safe to call more than once.
	Close()
}

// Transport opens push channels. Implementations must not retain the
// context past the handshake: the returned Channel owns its own lifetime.
type Transport interface {
	// Open establishes a channel for the given identity, authorized by the
	// credential token. It blocks until the handshake completes or fails.
	Open(ctx context.Context, identityID int, token string) (Channel, error)
}
