package okws

import (
	"context"

	"go.uber.org/zap"

	"github.com/lwj1994/okws-client/engine"
	"github.com/lwj1994/okws-client/internal/logx"
)

// Connect begins (or no-ops on) a connection attempt. It returns once the
// loop has accepted the request and, for a fresh attempt, transitioned to
// Connecting — not once the handshake itself completes. Observe the
// eventual outcome via OnStateChange. Returns ErrDisposed if the
// Supervisor has been disposed.
func (s *Supervisor) Connect() error {
	if s.closed.Load() {
		return ErrDisposed
	}
	reply := make(chan error, 1)
	select {
	case s.connectCh <- connectCmd{reply: reply}:
	case <-s.loopDone:
		return ErrDisposed
	}
	return <-reply
}

// Disconnect requests an orderly shutdown of any current or in-flight
// connection and cancels any pending reconnect. It blocks until the
// Engine's Close has returned or a 5-second timeout elapses, whichever
// comes first; a timeout is logged, never returned. Calling Disconnect
// while already Disconnected is a safe no-op beyond clearing the reconnect
// loop.
func (s *Supervisor) Disconnect() {
	if s.closed.Load() {
		return
	}
	reply := make(chan engine.Engine, 1)
	select {
	case s.disconnectCh <- disconnectCmd{reply: reply}:
	case <-s.loopDone:
		return
	}
	closeEngine(<-reply)
}

// Dispose permanently shuts down the Supervisor: it behaves like Disconnect
// and then closes both broadcast streams, after which Send always returns
// false and Connect always returns ErrDisposed. Idempotent and safe to call
// from multiple goroutines.
func (s *Supervisor) Dispose() {
	if !s.closed.CompareAndSwap(false, true) {
		<-s.loopDone
		return
	}
	reply := make(chan engine.Engine, 1)
	select {
	case s.disposeCh <- disposeCmd{reply: reply}:
	case <-s.loopDone:
		return
	}
	closeEngine(<-reply)
	<-s.loopDone
}

func closeEngine(eng engine.Engine) {
	if eng == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), engineCloseWindow)
	defer cancel()
	if err := eng.Close(ctx); err != nil {
		logx.Emit("engine close failed or timed out", zap.Error(err))
	}
}
