package okws

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lwj1994/okws-client/broadcast"
	"github.com/lwj1994/okws-client/engine"
	"github.com/lwj1994/okws-client/heartbeat"
	"github.com/lwj1994/okws-client/internal/logx"
	"github.com/lwj1994/okws-client/internal/tracing"
	"github.com/lwj1994/okws-client/metrics"
)

const (
	// sendWindow is how long a Send issued while not Connected waits for a
	// Connected transition before giving up.
	sendWindow = 5 * time.Second
	// engineCloseWindow bounds how long Disconnect/Dispose wait on
	// Engine.Close before logging and moving on.
	engineCloseWindow = 5 * time.Second
)

// Supervisor is the connection supervisor: a resilient WebSocket client
// built on top of an Engine transport. All of its mutable state — current
// state, live Engine, reconnect bookkeeping, the heartbeat Monitor — is
// owned exclusively by the goroutine started in New and touched nowhere
// else; every exported method is a thin client that talks to that
// goroutine over a channel, mirroring the single-writer event loop in
// arkeep-io-arkeep's server/internal/websocket/hub.go.
type Supervisor struct {
	cfg     Config
	id      uuid.UUID
	metrics *metrics.Collector
	tracer  tracing.Tracer

	stateBC *broadcast.Broadcaster[ConnectionState]
	msgBC   *broadcast.Broadcaster[engine.Payload]

	connectCh    chan connectCmd
	disconnectCh chan disconnectCmd
	disposeCh    chan disposeCmd
	sendCh       chan sendRequest
	eventCh      chan any

	loopDone chan struct{}
	closed   atomic.Bool
	current  atomic.Int32
}

type connectCmd struct {
	reply chan error
}

type disconnectCmd struct {
	reply chan engine.Engine
}

type disposeCmd struct {
	reply chan engine.Engine
}

// handshakeResult is delivered by the goroutine that run's beginHandshake
// spawns once Dialer.Dial returns.
type handshakeResult struct {
	generation int
	eng        engine.Engine
	err        error
}

// engineMessage forwards one Event off an Engine's Messages channel into the
// loop, tagged with the generation the forwarding goroutine was started
// under so a superseded Engine's trailing events are ignored.
type engineMessage struct {
	generation int
	ev         engine.Event
}

// heartbeatTimedOut is posted by a heartbeat.Monitor's onTimeout callback.
type heartbeatTimedOut struct {
	generation int
}

// reconnectFired is posted when a scheduled backoff timer elapses.
type reconnectFired struct {
	generation int
}

// New constructs a Supervisor and starts its loop goroutine. The Supervisor
// begins Disconnected; call Connect to begin connecting.
func New(cfg Config) *Supervisor {
	cfg = cfg.withDefaults()

	id := uuid.New()
	var mcol *metrics.Collector
	if cfg.Registerer != nil {
		mcol = metrics.New(cfg.Registerer, id.String())
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracing.NoOp()
	}

	s := &Supervisor{
		cfg:          cfg,
		id:           id,
		metrics:      mcol,
		tracer:       tracer,
		stateBC:      broadcast.New[ConnectionState](),
		msgBC:        broadcast.New[engine.Payload](),
		connectCh:    make(chan connectCmd),
		disconnectCh: make(chan disconnectCmd),
		disposeCh:    make(chan disposeCmd),
		sendCh:       make(chan sendRequest),
		eventCh:      make(chan any, 16),
		loopDone:     make(chan struct{}),
	}

	go s.run()
	return s
}

// ID returns the Supervisor's per-instance correlation UUID, used as the
// "id" label of its Prometheus instruments when multiple Supervisors share
// one process. Log lines and trace spans do not carry it.
func (s *Supervisor) ID() string {
	return s.id.String()
}

// State synchronously returns the current Connection State. It never
// blocks on the loop goroutine: every state transition updates this atomic
// mirror in the same step it publishes to the state broadcast stream.
func (s *Supervisor) State() ConnectionState {
	return ConnectionState(s.current.Load())
}

// run is the Supervisor's single logical execution context. Every field
// read or written below this point, other than through s.current (atomic)
// and the broadcast/metrics/tracing calls (safe for concurrent use by
// design), belongs exclusively to this goroutine.
func (s *Supervisor) run() {
	defer close(s.loopDone)

	var (
		state              = Disconnected
		eng                engine.Engine
		expectedDisconnect bool
		reconnecting       bool
		attempt            int
		generation         int
		hb                 *heartbeat.Monitor
		reconnectTimer     *time.Timer
		handshakeCancel    context.CancelFunc
		disposed           bool
	)

	setState := func(next ConnectionState) {
		if state == next {
			return
		}
		state = next
		s.current.Store(int32(next))
		s.stateBC.Publish(next)
		s.metrics.SetState(float64(next))
	}

	stopReconnectTimer := func() {
		if reconnectTimer != nil {
			reconnectTimer.Stop()
			reconnectTimer = nil
		}
	}

	stopHandshake := func() {
		if handshakeCancel != nil {
			handshakeCancel()
			handshakeCancel = nil
		}
	}

	stopHeartbeat := func() {
		if hb != nil {
			hb.Stop()
			hb = nil
		}
	}

	startHeartbeat := func(forEng engine.Engine, gen int) {
		if s.cfg.Heartbeat == nil {
			return
		}
		hb = heartbeat.New(*s.cfg.Heartbeat, forEng.Send, func() {
			select {
			case s.eventCh <- heartbeatTimedOut{generation: gen}:
			case <-s.loopDone:
			}
		})
		hb.Start()
	}

	forwardMessages := func(forEng engine.Engine, gen int) {
		go func() {
			for ev := range forEng.Messages() {
				select {
				case s.eventCh <- engineMessage{generation: gen, ev: ev}:
				case <-s.loopDone:
					return
				}
			}
		}()
	}

	beginHandshake := func() {
		gen := generation
		ctx, cancel := context.WithCancel(context.Background())
		handshakeCancel = cancel
		spanCtx, end := tracing.ConnectAttempt(ctx, s.tracer, attempt+1)
		go func() {
			eng, err := s.cfg.Dialer.Dial(spanCtx, s.cfg.URL, engine.DialOptions{
				Headers:         s.cfg.Headers,
				PingInterval:    s.cfg.PingInterval,
				TransportConfig: s.cfg.TransportConfig,
			})
			end(err)
			select {
			case s.eventCh <- handshakeResult{generation: gen, eng: eng, err: err}:
			case <-s.loopDone:
				if err == nil && eng != nil {
					_ = eng.Close(context.Background())
				}
			}
		}()
	}

	startAttempt := func() {
		generation++
		setState(Connecting)
		beginHandshake()
	}

	// onDisconnected handles every path back to Disconnected that isn't a
	// caller-initiated Disconnect/Dispose: handshake failure, a terminal
	// Messages event, or a heartbeat timeout. It arms the next reconnect
	// unless one is already pending or the departure was caller-requested.
	onDisconnected := func() {
		stopHeartbeat()
		if eng != nil {
			closing := eng
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), engineCloseWindow)
				defer cancel()
				_ = closing.Close(ctx)
			}()
		}
		eng = nil
		setState(Disconnected)

		if expectedDisconnect || reconnecting {
			return
		}
		reconnecting = true
		attempt++
		s.metrics.IncReconnectAttempts()
		delay := s.cfg.Backoff.Next(attempt)
		logx.Emit("scheduling reconnect", zap.Int("attempt", attempt), zap.Duration("delay", delay))
		tracing.ReconnectScheduled(context.Background(), attempt, delay.Milliseconds())

		gen := generation
		stopReconnectTimer()
		reconnectTimer = time.AfterFunc(delay, func() {
			select {
			case s.eventCh <- reconnectFired{generation: gen}:
			case <-s.loopDone:
			}
		})
	}

	for {
		select {
		case cmd := <-s.connectCh:
			if disposed {
				cmd.reply <- ErrDisposed
				continue
			}
			if state == Connecting || state == Connected {
				cmd.reply <- nil
				continue
			}
			expectedDisconnect = false
			reconnecting = false
			stopReconnectTimer()
			startAttempt()
			cmd.reply <- nil

		case cmd := <-s.disconnectCh:
			stopReconnectTimer()
			stopHandshake()
			stopHeartbeat()
			expectedDisconnect = true
			reconnecting = false
			closing := eng
			eng = nil
			generation++
			setState(Disconnected)
			cmd.reply <- closing

		case cmd := <-s.disposeCh:
			stopReconnectTimer()
			stopHandshake()
			stopHeartbeat()
			disposed = true
			expectedDisconnect = true
			closing := eng
			eng = nil
			generation++
			setState(Disconnected)
			s.stateBC.Close()
			s.msgBC.Close()
			cmd.reply <- closing
			return

		case req := <-s.sendCh:
			if disposed {
				req.result <- false
				continue
			}
			if state == Connected && eng != nil {
				req.result <- eng.Send(req.payload) == nil
				continue
			}
			if req.waited {
				req.result <- false
				continue
			}
			go s.waitThenSend(req)

		case raw := <-s.eventCh:
			switch ev := raw.(type) {
			case handshakeResult:
				handshakeCancel = nil
				if ev.generation != generation || disposed {
					if ev.err == nil && ev.eng != nil {
						go func() { _ = ev.eng.Close(context.Background()) }()
					}
					continue
				}
				reconnecting = false
				if ev.err != nil {
					logx.Emit("handshake failed", zap.Error(ev.err))
					onDisconnected()
					continue
				}
				eng = ev.eng
				attempt = 0
				s.cfg.Backoff.Reset()
				setState(Connected)
				startHeartbeat(eng, generation)
				forwardMessages(eng, generation)

			case engineMessage:
				if ev.generation != generation || disposed || eng == nil {
					continue
				}
				if ev.ev.Err != nil {
					logx.Emit("engine stream error", zap.Error(ev.ev.Err))
					onDisconnected()
					continue
				}
				if ev.ev.Closed {
					logx.Emit("engine stream closed")
					onDisconnected()
					continue
				}
				forward := true
				if hb != nil {
					forward = hb.Observe(ev.ev.Payload)
				}
				if forward {
					s.msgBC.Publish(ev.ev.Payload)
				}

			case heartbeatTimedOut:
				if ev.generation != generation || disposed || eng == nil {
					continue
				}
				logx.Emit("heartbeat timeout")
				s.metrics.IncHeartbeatTimeouts()
				onDisconnected()

			case reconnectFired:
				reconnectTimer = nil
				if ev.generation != generation || disposed || expectedDisconnect {
					reconnecting = false
					continue
				}
				startAttempt()
			}
		}
	}
}
