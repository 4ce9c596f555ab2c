// Package engine defines the Engine collaborator the connection supervisor
// treats as an opaque transport, and ships one concrete implementation
// backed by gorilla/websocket, grounded on the read/write pump split in
// arkeep-io-arkeep's server/internal/websocket/client.go.
//
// The supervisor assumes no reconnection logic lives inside an Engine: one
// Engine instance is good for exactly one connection's worth of I/O, from
// Connect to the point its Messages channel closes.
package engine

import (
	"context"
	"time"
)

// Payload is the closed set of message types an Engine accepts and
// delivers: a text string or a raw byte sequence. It is a marker interface
// implemented only by Text and Bytes in this package, so that sending a
// payload of the wrong type is rejected by the compiler rather than by a
// runtime type switch.
type Payload interface {
	payload()
}

// Text is a string payload.
type Text string

func (Text) payload() {}

// Bytes is a raw byte-sequence payload.
type Bytes []byte

func (Bytes) payload() {}

// Event is one item delivered on an Engine's Messages channel: either an
// inbound Payload, or a terminal outcome. The engine's stream is finite and
// always ends with exactly one Event carrying either Err set, or Closed
// set with Err nil for a clean close.
type Event struct {
	Payload Payload
	Err     error
	Closed  bool
}

// Engine is the WebSocket transport collaborator. Implementations must be
// safe for Send to be called concurrently with the Messages consumer
// draining the channel, but Close/Send need not be safe for concurrent
// Send calls with each other beyond what the default implementation
// already serializes.
type Engine interface {
	// Messages returns the inbound event stream. It is closed exactly once,
	// after the final Event (error or clean close) has been delivered.
	Messages() <-chan Event

	// Send enqueues a payload for delivery. It returns synchronously;
	// transport-level failures surface as a terminal Event on Messages.
	Send(payload Payload) error

	// Close requests an orderly shutdown. It is idempotent and blocks
	// until the transport has fully torn down or the context expires.
	Close(ctx context.Context) error
}

// Dialer opens one Engine. The default implementation is returned by
// NewDialer in this package; tests substitute a fake.
type Dialer interface {
	Dial(ctx context.Context, url string, opts DialOptions) (Engine, error)
}

// DialOptions carries the optional per-connect configuration a Supervisor
// passes through to the Engine: header map, transport-level ping interval,
// and an opaque transport-config handle (e.g. a *tls.Config, a custom
// *websocket.Dialer — typed as `any` here because the Engine, not the
// supervisor, knows what to do with it).
type DialOptions struct {
	Headers         map[string]string
	PingInterval    time.Duration
	TransportConfig any
}
