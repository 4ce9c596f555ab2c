// Package heartbeat implements an application-level liveness probe that
// runs on top of an already-established connection. It is activated only
// while the supervisor is Connected and deactivated on any departure from
// that state.
//
// Grounded on arkeep-io-arkeep's agent/internal/connection/manager.go
// heartbeatLoop (a ticker that sends a liveness RPC and treats any send
// failure as a session-ending error) and BaSui01-agentflow's
// transport_ws.go startHeartbeat (which additionally tracks a
// lastHeartbeat timestamp and silently drops pong-shaped responses) — the
// closest two analogs in the retrieved pack to a non-transport heartbeat
// with an explicit response/timeout race.
package heartbeat

import (
	"sync"
	"time"

	"github.com/lwj1994/okws-client/engine"
)

// Config is the immutable configuration for one Monitor.
type Config struct {
	// Interval between heartbeat requests. Default 15s.
	Interval time.Duration
	// Timeout to wait for a response before declaring the connection dead.
	// Default 10s.
	Timeout time.Duration
	// Request is the payload sent on every tick.
	Request engine.Payload
	// Validator classifies an inbound message as a heartbeat response.
	// When nil, every inbound message counts (keep-alive mode).
	Validator func(engine.Payload) bool
	// InterceptResponse drops classified responses instead of forwarding
	// them to the application. Default true.
	InterceptResponse bool
}

// DefaultConfig returns a Config with the documented defaults (15s
// interval, 10s timeout, intercepted responses), the given Request, and no
// Validator.
func DefaultConfig(req engine.Payload) Config {
	return Config{
		Interval:          15 * time.Second,
		Timeout:           10 * time.Second,
		Request:           req,
		InterceptResponse: true,
	}
}

// isResponse classifies payload: validator if present, otherwise
// keep-alive mode (anything counts).
func (c Config) isResponse(payload engine.Payload) bool {
	if c.Validator != nil {
		return c.Validator(payload)
	}
	return true
}

// Monitor owns the tick and timeout timers for one Connected session. It is
// created fresh on every transition into Connected and discarded on exit —
// it holds no state across reconnects.
//
// The tick timer is a self-rearming time.AfterFunc chain rather than a
// time.Ticker: after each tick fires, sends, and arms the timeout, it
// schedules its own next firing, so that the interval between sends is
// always measured from "after the previous send completed," not skewed by
// however long Observe/the application took to react.
type Monitor struct {
	cfg       Config
	send      func(engine.Payload) error
	onTimeout func()

	mu      sync.Mutex
	tick    *time.Timer
	timeout *time.Timer
	stopped bool
}

// New creates a Monitor. send is how the monitor transmits the heartbeat
// request; onTimeout is called from the monitor's own goroutine when a
// response does not arrive in time, so the supervisor must make onTimeout
// safe to call from any goroutine (route it through the supervisor's
// internal command channel rather than touching shared state directly).
func New(cfg Config, send func(engine.Payload) error, onTimeout func()) *Monitor {
	return &Monitor{
		cfg:       cfg,
		send:      send,
		onTimeout: onTimeout,
	}
}

// Start arms the first tick timer. Only call once per Monitor.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.tick = time.AfterFunc(m.cfg.Interval, m.fireTick)
}

// fireTick sends the heartbeat request, arms the timeout timer, and
// reschedules itself for the next interval. A send failure here must NOT
// itself trigger a second disconnect: the engine's own error path,
// surfaced via its Messages stream, is what drives the supervisor's
// disconnect handler.
func (m *Monitor) fireTick() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	_ = m.send(m.cfg.Request)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.timeout = time.AfterFunc(m.cfg.Timeout, m.fireTimeout)
	m.tick = time.AfterFunc(m.cfg.Interval, m.fireTick)
	m.mu.Unlock()
}

func (m *Monitor) fireTimeout() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.onTimeout()
}

// Observe classifies an inbound payload. It returns forward: whether the
// supervisor should deliver the payload to its application-facing stream.
// A payload classified as a heartbeat response cancels the pending timeout
// timer and, when InterceptResponse is set, is not forwarded.
//
// A response arriving after the timeout has already fired is
// indistinguishable here from one arriving just before it — the
// supervisor is expected to have already called Stop by the time it has
// left Connected, so this edge case is enforced by the supervisor not
// calling Observe after Stop, not by Monitor itself.
func (m *Monitor) Observe(payload engine.Payload) (forward bool) {
	if !m.cfg.isResponse(payload) {
		return true
	}

	m.mu.Lock()
	if m.timeout != nil {
		m.timeout.Stop()
		m.timeout = nil
	}
	m.mu.Unlock()

	return !m.cfg.InterceptResponse
}

// Stop cancels both timers and prevents any further rearming. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	if m.tick != nil {
		m.tick.Stop()
	}
	if m.timeout != nil {
		m.timeout.Stop()
	}
}
