// Package metrics wires the supervisor's observable state into
// Prometheus, grounded on the instrumentation style used in
// arkeep-io-arkeep's server module and BaSui01-agentflow (both depend on
// github.com/prometheus/client_golang). Registration is entirely optional
// — a Supervisor built without a Registerer simply never touches this
// package, so metrics are pure observability, never a required dependency
// of the state machine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds the Prometheus instruments the supervisor updates as it
// transitions state and retries connections.
type Collector struct {
	State             prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	HeartbeatTimeouts prometheus.Counter
}

// New builds a Collector and registers it with reg. The label "id" carries
// the Supervisor's correlation UUID so applications running multiple
// supervisors can distinguish them in a single registry.
func New(reg prometheus.Registerer, id string) *Collector {
	c := &Collector{
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "okws_connection_state",
			Help: "Current connection state (0=disconnected, 1=connecting, 2=connected).",
			ConstLabels: prometheus.Labels{
				"id": id,
			},
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "okws_reconnect_attempts_total",
			Help: "Total number of reconnect attempts scheduled.",
			ConstLabels: prometheus.Labels{
				"id": id,
			},
		}),
		HeartbeatTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "okws_heartbeat_timeouts_total",
			Help: "Total number of heartbeat timeouts observed.",
			ConstLabels: prometheus.Labels{
				"id": id,
			},
		}),
	}

	if reg != nil {
		reg.MustRegister(c.State, c.ReconnectAttempts, c.HeartbeatTimeouts)
	}

	return c
}

// SetState records the current state as an integer code, matching the
// ordering of the supervisor's ConnectionState enum (Disconnected=0,
// Connecting=1, Connected=2).
func (c *Collector) SetState(code float64) {
	if c == nil {
		return
	}
	c.State.Set(code)
}

// IncReconnectAttempts bumps the reconnect counter by one.
func (c *Collector) IncReconnectAttempts() {
	if c == nil {
		return
	}
	c.ReconnectAttempts.Inc()
}

// IncHeartbeatTimeouts bumps the heartbeat-timeout counter by one.
func (c *Collector) IncHeartbeatTimeouts() {
	if c == nil {
		return
	}
	c.HeartbeatTimeouts.Inc()
}
