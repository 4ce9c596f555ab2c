// Package okws implements the Connection Supervisor: a resilient,
// stream-oriented WebSocket client built on top of an opaque Engine
// transport. It owns the connect/reconnect state machine, backoff
// scheduling, an optional application-level heartbeat, and short-window
// send buffering, while guaranteeing that the externally observed
// Connection State always reflects the underlying socket.
//
// The supervisor does not speak WebSocket itself — see package engine for
// the transport boundary, package backoff for the reconnect delay
// strategies, and package heartbeat for the liveness probe. All mutable
// supervisor state is owned by a single internal goroutine; every public
// method communicates with it over channels, the same single-writer
// technique arkeep-io-arkeep's server/internal/websocket/hub.go uses to
// avoid a mutex whose critical sections would otherwise span suspension
// points (dialing, waiting on timers, waiting on the engine's stream).
package okws
