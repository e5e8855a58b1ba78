package push

import (
	"reflect"

	"github.com/skillswap/swapclient/pkg/wire"
)

// MessageHandler is the interface for handling inbound push messages.
type MessageHandler interface {
	// HandleMessage handles one inbound message. Handlers run sequentially
	// in registration order on the connection's dispatch goroutine and
	// must not block for long.
	HandleMessage(msg *wire.Message)
}

// MessageHandlerFunc is a function that implements the MessageHandler
// interface.
type MessageHandlerFunc func(msg *wire.Message)

// HandleMessage calls the function.
func (f MessageHandlerFunc) HandleMessage(msg *wire.Message) {
	f(msg)
}

// sameHandler reports whether two handlers are the same registration
// identity. Func-backed handlers compare by code pointer since func values
// are not comparable; two closures of one func literal therefore count as
// the same registration. Handlers needing removal or multiple instances
// should be comparable types, not bare funcs. Everything else compares by
// interface equality.
func sameHandler(a, b MessageHandler) bool {
	fa, aIsFunc := a.(MessageHandlerFunc)
	fb, bIsFunc := b.(MessageHandlerFunc)
	if aIsFunc || bIsFunc {
		return aIsFunc && bIsFunc &&
			reflect.ValueOf(fa).Pointer() == reflect.ValueOf(fb).Pointer()
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}
