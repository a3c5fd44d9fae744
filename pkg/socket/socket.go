// Package socket defines the contract between the channel bridge and a
// real-time socket transport.
//
// A Transport opens a Conn, a Conn hands out Channel handles per topic, and
// every join, leave or message push on a Channel returns a *Push future that
// the transport resolves exactly once with ok, error or timeout.
package socket

import (
	"context"
	"time"
)

// Payload is an opaque key-value mapping sent to the server.
type Payload = map[string]any

// Transport opens socket connections.
type Transport interface {
	// Open binds a connection to endpoint/params and starts connecting in the
	// background. It returns once the connection is scheduled, not established.
	Open(ctx context.Context, endpoint string, params Payload) (Conn, error)
}

// Conn is an open (or opening) socket connection.
type Conn interface {
	// Channel creates a channel handle for topic. Creating a handle does not
	// join it; multiple handles may share a topic.
	Channel(topic string, payload Payload) Channel
	// Connected reports whether the underlying socket is currently up.
	Connected() bool
	Close() error
}

// MessageHandler receives inbound events for a channel. The returned payload
// is handed back to the transport unchanged for its own default handling.
type MessageHandler func(event string, payload any) any

// Channel is a subscription handle for one topic.
type Channel interface {
	Topic() string
	// OnMessage installs the inbound message handler. It is set once, before
	// joining.
	OnMessage(h MessageHandler)
	Join() *Push
	Leave() *Push
	// Push sends event/payload and resolves with timeout after d.
	Push(event string, payload Payload, d time.Duration) *Push
}
