package okws

import (
	"time"

	"github.com/lwj1994/okws-client/engine"
)

// sendRequest is how Send talks to the loop goroutine. waited distinguishes
// a fresh request (which may spawn a short-window waiter on a miss) from a
// retry posted by that waiter once it has observed Connected, so the loop
// never spawns two waiters for the same caller.
type sendRequest struct {
	payload engine.Payload
	result  chan bool
	waited  bool
}

// Send transmits payload if Connected, or buffers the attempt for up to 5
// seconds waiting for a Connected transition if not. It returns false — never an error — on timeout, on transport failure, or
// once the Supervisor has been disposed. payload must be an engine.Text or
// engine.Bytes; anything else returns false immediately, since the closed
// Payload interface makes "wrong payload type" a compile-time concern for
// well-typed callers and a safe no-op for callers that built one
// reflectively.
func (s *Supervisor) Send(payload engine.Payload) bool {
	switch payload.(type) {
	case engine.Text, engine.Bytes:
	default:
		return false
	}
	if s.closed.Load() {
		return false
	}
	result := make(chan bool, 1)
	select {
	case s.sendCh <- sendRequest{payload: payload, result: result}:
	case <-s.loopDone:
		return false
	}
	select {
	case ok := <-result:
		return ok
	case <-s.loopDone:
		return false
	}
}

// waitThenSend implements the buffered path of Send: it subscribes to the
// state stream, waits up to sendWindow for a Connected transition, and
// replays the send through sendCh exactly once if one arrives in time. It
// runs on its own goroutine so the loop is never blocked waiting on a
// timer, and always unsubscribes on every exit path.
func (s *Supervisor) waitThenSend(req sendRequest) {
	sub := s.stateBC.Subscribe(4)
	defer s.stateBC.Unsubscribe(sub)

	timer := time.NewTimer(sendWindow)
	defer timer.Stop()

	for {
		select {
		case st, ok := <-sub.C():
			if !ok {
				req.result <- false
				return
			}
			if st == Connected {
				retry := sendRequest{payload: req.payload, result: req.result, waited: true}
				select {
				case s.sendCh <- retry:
				case <-s.loopDone:
					req.result <- false
				}
				return
			}
		case <-timer.C:
			req.result <- false
			return
		case <-s.loopDone:
			req.result <- false
			return
		}
	}
}
