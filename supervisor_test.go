package okws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwj1994/okws-client/backoff"
	"github.com/lwj1994/okws-client/engine"
	"github.com/lwj1994/okws-client/heartbeat"
)

// fakeEngine is an in-memory stand-in for a real transport, letting these
// tests drive the state machine through handshake/message/close events
// without a socket.
type fakeEngine struct {
	messages chan engine.Event
	sendFn   func(engine.Payload) error
	closeFn  func(context.Context) error
	closed   atomic.Bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{messages: make(chan engine.Event, 16)}
}

func (f *fakeEngine) Messages() <-chan engine.Event { return f.messages }

func (f *fakeEngine) Send(p engine.Payload) error {
	if f.sendFn != nil {
		return f.sendFn(p)
	}
	return nil
}

func (f *fakeEngine) Close(ctx context.Context) error {
	if f.closed.CompareAndSwap(false, true) {
		close(f.messages)
	}
	if f.closeFn != nil {
		return f.closeFn(ctx)
	}
	return nil
}

func (f *fakeEngine) pushText(s string) { f.messages <- engine.Event{Payload: engine.Text(s)} }
func (f *fakeEngine) pushErr(err error) { f.messages <- engine.Event{Err: err} }
func (f *fakeEngine) pushClosed()       { f.messages <- engine.Event{Closed: true} }

// fakeDialer hands out fakeEngines (or a scripted error) on demand.
type fakeDialer struct {
	mu      sync.Mutex
	dials   int
	onDial  func(attempt int) (engine.Engine, error)
	engines []*fakeEngine
}

func (d *fakeDialer) Dial(_ context.Context, _ string, _ engine.DialOptions) (engine.Engine, error) {
	d.mu.Lock()
	d.dials++
	n := d.dials
	d.mu.Unlock()

	if d.onDial != nil {
		return d.onDial(n)
	}
	eng := newFakeEngine()
	d.mu.Lock()
	d.engines = append(d.engines, eng)
	d.mu.Unlock()
	return eng, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) lastEngine() *fakeEngine {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.engines) == 0 {
		return nil
	}
	return d.engines[len(d.engines)-1]
}

func fastBackoff() backoff.Strategy {
	return backoff.NewLinear(10 * time.Millisecond)
}

func TestSupervisor_ConnectReachesConnected(t *testing.T) {
	d := &fakeDialer{}
	s := New(Config{URL: "ws://fake", Dialer: d, Backoff: fastBackoff()})
	defer s.Dispose()

	require.NoError(t, s.Connect())
	require.Eventually(t, func() bool { return s.State() == Connected }, time.Second, 2*time.Millisecond)
	assert.Equal(t, 1, d.count())
}

func TestSupervisor_ConnectIsIdempotentWhileConnectingOrConnected(t *testing.T) {
	d := &fakeDialer{}
	s := New(Config{URL: "ws://fake", Dialer: d, Backoff: fastBackoff()})
	defer s.Dispose()

	require.NoError(t, s.Connect())
	require.NoError(t, s.Connect())
	require.Eventually(t, func() bool { return s.State() == Connected }, time.Second, 2*time.Millisecond)
	require.NoError(t, s.Connect())

	assert.Equal(t, 1, d.count(), "a second Connect while Connecting/Connected must not dial again")
}

func TestSupervisor_HandshakeFailureSchedulesReconnect(t *testing.T) {
	d := &fakeDialer{onDial: func(attempt int) (engine.Engine, error) {
		if attempt == 1 {
			return nil, errors.New("refused")
		}
		return newFakeEngine(), nil
	}}
	s := New(Config{URL: "ws://fake", Dialer: d, Backoff: fastBackoff()})
	defer s.Dispose()

	require.NoError(t, s.Connect())
	require.Eventually(t, func() bool { return s.State() == Connected }, time.Second, 2*time.Millisecond)
	assert.Equal(t, 2, d.count())
}

func TestSupervisor_ServerInitiatedCloseTriggersAutoReconnect(t *testing.T) {
	d := &fakeDialer{}
	s := New(Config{URL: "ws://fake", Dialer: d, Backoff: fastBackoff()})
	defer s.Dispose()

	require.NoError(t, s.Connect())
	require.Eventually(t, func() bool { return s.State() == Connected }, time.Second, 2*time.Millisecond)

	d.lastEngine().pushClosed()

	require.Eventually(t, func() bool { return s.State() == Disconnected }, time.Second, 2*time.Millisecond)
	require.Eventually(t, func() bool { return s.State() == Connected }, time.Second, 2*time.Millisecond)
	assert.Equal(t, 2, d.count(), "losing the connection must dial a fresh Engine, not reuse the old one")
}

func TestSupervisor_DisconnectStopsReconnectLoop(t *testing.T) {
	d := &fakeDialer{}
	s := New(Config{URL: "ws://fake", Dialer: d, Backoff: fastBackoff()})
	defer s.Dispose()

	require.NoError(t, s.Connect())
	require.Eventually(t, func() bool { return s.State() == Connected }, time.Second, 2*time.Millisecond)

	s.Disconnect()
	assert.Equal(t, Disconnected, s.State())

	time.Sleep(50 * time.Millisecond) // long enough for a wrongly-armed reconnect timer to fire
	assert.Equal(t, 1, d.count(), "Disconnect must not leave a reconnect loop running")
	assert.Equal(t, Disconnected, s.State())
}

func TestSupervisor_DisposeIsIdempotentAndStopsDelivery(t *testing.T) {
	d := &fakeDialer{}
	s := New(Config{URL: "ws://fake", Dialer: d, Backoff: fastBackoff()})

	require.NoError(t, s.Connect())
	require.Eventually(t, func() bool { return s.State() == Connected }, time.Second, 2*time.Millisecond)

	sub := s.OnStateChange()
	s.Dispose()
	s.Dispose() // idempotent

	// Dispose first transitions to Disconnected, then closes the stream.
	st, ok := <-sub.C()
	assert.True(t, ok)
	assert.Equal(t, Disconnected, st)
	_, ok = <-sub.C()
	assert.False(t, ok, "state stream must be closed post-dispose")
	assert.False(t, s.Send(engine.Text("too late")))
	assert.ErrorIs(t, s.Connect(), ErrDisposed)
}

func TestSupervisor_SendWhileConnectedSucceeds(t *testing.T) {
	d := &fakeDialer{}
	s := New(Config{URL: "ws://fake", Dialer: d, Backoff: fastBackoff()})
	defer s.Dispose()

	require.NoError(t, s.Connect())
	require.Eventually(t, func() bool { return s.State() == Connected }, time.Second, 2*time.Millisecond)

	var sent atomic.Value
	d.lastEngine().sendFn = func(p engine.Payload) error {
		sent.Store(p)
		return nil
	}

	assert.True(t, s.Send(engine.Text("hello")))
	assert.Equal(t, engine.Text("hello"), sent.Load())
}

func TestSupervisor_SendWhileDisconnectedBuffersUntilConnected(t *testing.T) {
	d := &fakeDialer{}
	s := New(Config{URL: "ws://fake", Dialer: d, Backoff: fastBackoff()})
	defer s.Dispose()

	result := make(chan bool, 1)
	go func() { result <- s.Send(engine.Text("buffered")) }()

	time.Sleep(20 * time.Millisecond) // let Send register its waiter before Connecting
	require.NoError(t, s.Connect())

	select {
	case ok := <-result:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("buffered send never completed")
	}
}

func TestSupervisor_HeartbeatTimeoutTriggersReconnect(t *testing.T) {
	d := &fakeDialer{}
	hbCfg := heartbeat.Config{
		Interval: 15 * time.Millisecond,
		Timeout:  15 * time.Millisecond,
		Request:  engine.Text("ping"),
	}
	s := New(Config{URL: "ws://fake", Dialer: d, Backoff: fastBackoff(), Heartbeat: &hbCfg})
	defer s.Dispose()

	require.NoError(t, s.Connect())
	require.Eventually(t, func() bool { return s.State() == Connected }, time.Second, 2*time.Millisecond)

	require.Eventually(t, func() bool { return d.count() >= 2 }, time.Second, 5*time.Millisecond,
		"a never-acknowledged heartbeat must force a reconnect")
}

func TestSupervisor_HeartbeatResponseIsInterceptedNotForwarded(t *testing.T) {
	d := &fakeDialer{}
	hbCfg := heartbeat.Config{
		Interval: 10 * time.Millisecond,
		Timeout:  time.Second,
		Request:  engine.Text("ping"),
		Validator: func(p engine.Payload) bool {
			txt, ok := p.(engine.Text)
			return ok && txt == "pong"
		},
		InterceptResponse: true,
	}
	s := New(Config{URL: "ws://fake", Dialer: d, Backoff: fastBackoff(), Heartbeat: &hbCfg})
	defer s.Dispose()

	require.NoError(t, s.Connect())
	require.Eventually(t, func() bool { return s.State() == Connected }, time.Second, 2*time.Millisecond)

	sub := s.OnReceive()
	defer s.UnsubscribeReceive(sub)

	d.lastEngine().pushText("pong")
	d.lastEngine().pushText("app-data")

	select {
	case v := <-sub.C():
		assert.Equal(t, engine.Text("app-data"), v, "the heartbeat response must not reach the application")
	case <-time.After(time.Second):
		t.Fatal("app-data was never forwarded")
	}
}
