package okws

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/lwj1994/okws-client/backoff"
	"github.com/lwj1994/okws-client/engine"
	"github.com/lwj1994/okws-client/heartbeat"
)

// Config is the construction argument set for a Supervisor.
type Config struct {
	// URL is the WebSocket endpoint. Required, non-empty.
	URL string

	// Headers are opaque string values handed to the Engine's Dial call.
	Headers map[string]string

	// PingInterval is passed to the Engine as its transport-level ping
	// interval, independent of the application-level Heartbeat below.
	// Optional. The default Engine only answers server pings when it is
	// positive; it does not send pings of its own.
	PingInterval time.Duration

	// Backoff selects the reconnect delay strategy. Defaults to a constant
	// 3-second delay (backoff.DefaultLinear()).
	Backoff backoff.Strategy

	// TransportConfig is an opaque handle forwarded to the Engine's Dial
	// call (e.g. a custom *websocket.Dialer for TLS settings).
	TransportConfig any

	// Heartbeat is the optional application-level liveness probe
	// configuration. Nil disables it entirely.
	Heartbeat *heartbeat.Config

	// Dialer opens Engines. Defaults to engine.NewDialer() (gorilla/websocket).
	// Tests substitute a fake to exercise the state machine without a
	// real socket.
	Dialer engine.Dialer

	// Registerer, when non-nil, registers Prometheus instruments scoped to
	// this Supervisor's correlation ID. Optional.
	Registerer prometheus.Registerer

	// Tracer wraps connect/reconnect attempts in spans. Defaults to a
	// no-op tracer.
	Tracer trace.Tracer
}

// withDefaults returns a copy of cfg with every optional field that has a
// documented default filled in, matching BaSui01-agentflow's
// DefaultWSTransportConfig pattern (transport_ws.go) of centralizing
// defaults in one place rather than scattering nil-checks.
func (c Config) withDefaults() Config {
	if c.Backoff == nil {
		c.Backoff = backoff.DefaultLinear()
	}
	if c.Dialer == nil {
		c.Dialer = engine.NewDialer()
	}
	return c
}
