package okws

import (
	"github.com/lwj1994/okws-client/broadcast"
	"github.com/lwj1994/okws-client/engine"
)

// OnStateChange returns a subscription delivering every Connection State
// this Supervisor transitions into from the moment of the call onward. A
// late subscriber never sees transitions that already happened. Release it
// with UnsubscribeStateChange when done.
func (s *Supervisor) OnStateChange() *broadcast.Subscription[ConnectionState] {
	return s.stateBC.Subscribe(16)
}

// UnsubscribeStateChange releases a subscription returned by OnStateChange.
func (s *Supervisor) UnsubscribeStateChange(sub *broadcast.Subscription[ConnectionState]) {
	s.stateBC.Unsubscribe(sub)
}

// OnReceive returns a subscription delivering every inbound Payload the
// Supervisor forwards to the application (i.e. excluding any heartbeat
// responses intercepted by the configured Monitor). Release it with
// UnsubscribeReceive when done.
func (s *Supervisor) OnReceive() *broadcast.Subscription[engine.Payload] {
	return s.msgBC.Subscribe(64)
}

// UnsubscribeReceive releases a subscription returned by OnReceive.
func (s *Supervisor) UnsubscribeReceive(sub *broadcast.Subscription[engine.Payload]) {
	s.msgBC.Unsubscribe(sub)
}
