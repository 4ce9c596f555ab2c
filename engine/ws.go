package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds how long a single frame write may take before the
	// connection is considered dead. Mirrors arkeep-io-arkeep's
	// server/internal/websocket/client.go writeWait.
	writeWait = 10 * time.Second

	// closeWait bounds how long Close may spend writing its close frame
	// before it tears down the raw socket.
	closeWait = 5 * time.Second

	// messagesBuffer is the capacity of the inbound event channel. A small
	// buffer lets the read pump keep draining frames off the wire while
	// the supervisor is momentarily busy dispatching the previous one.
	messagesBuffer = 16
)

// wsDialer is the default Dialer, backed by gorilla/websocket.
type wsDialer struct{}

// NewDialer returns the default gorilla/websocket-backed Dialer.
func NewDialer() Dialer {
	return wsDialer{}
}

func (wsDialer) Dial(ctx context.Context, url string, opts DialOptions) (Engine, error) {
	return NewWebSocket(ctx, url, opts)
}

// WebSocket is the default Engine implementation. One instance represents
// one physical connection; it is discarded, never reused, on disconnect.
type WebSocket struct {
	conn     *websocket.Conn
	messages chan Event
	sendCh   chan Payload
	closeCh  chan struct{}
}

// NewWebSocket dials url and, on success, starts the read and write pumps.
// It completes only after the handshake succeeds.
func NewWebSocket(ctx context.Context, url string, opts DialOptions) (*WebSocket, error) {
	header := make(http.Header, len(opts.Headers))
	for k, v := range opts.Headers {
		header.Set(k, v)
	}

	dialer := websocket.DefaultDialer
	if custom, ok := opts.TransportConfig.(*websocket.Dialer); ok && custom != nil {
		dialer = custom
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("engine: dial %s: %w", url, err)
	}

	if opts.PingInterval > 0 {
		conn.SetPingHandler(func(appData string) error {
			return conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(writeWait))
		})
	}

	w := &WebSocket{
		conn:     conn,
		messages: make(chan Event, messagesBuffer),
		sendCh:   make(chan Payload, 1),
		closeCh:  make(chan struct{}),
	}

	go w.readPump()
	go w.writePump()

	return w, nil
}

func (w *WebSocket) Messages() <-chan Event {
	return w.messages
}

// Send hands the payload to the write pump. It returns synchronously — the
// actual wire write happens on the write-pump goroutine, and any failure is
// surfaced as a terminal Event on Messages.
func (w *WebSocket) Send(payload Payload) error {
	select {
	case w.sendCh <- payload:
		return nil
	case <-w.closeCh:
		return fmt.Errorf("engine: send after close")
	}
}

// Close requests an orderly shutdown: it writes a close frame (with a write
// deadline of closeWait or ctx's deadline, whichever is earlier) and then
// closes the underlying connection. It does not wait for the peer's close
// acknowledgement. Idempotent.
func (w *WebSocket) Close(ctx context.Context) error {
	select {
	case <-w.closeCh:
		return nil
	default:
	}
	close(w.closeCh)

	deadline := time.Now().Add(closeWait)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

	return w.conn.Close()
}

// readPump is the sole reader of conn — gorilla/websocket connections are
// not safe for concurrent reads, matching arkeep-io-arkeep's client.go
// convention of one dedicated read goroutine.
func (w *WebSocket) readPump() {
	defer close(w.messages)

	for {
		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.messages <- Event{Closed: true}
			} else {
				w.messages <- Event{Err: fmt.Errorf("engine: read: %w", err)}
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			w.messages <- Event{Payload: Text(data)}
		case websocket.BinaryMessage:
			w.messages <- Event{Payload: Bytes(data)}
		}
	}
}

// writePump is the sole writer of conn, matching arkeep-io-arkeep's
// "writePump is the only goroutine that writes to conn" invariant.
func (w *WebSocket) writePump() {
	for {
		select {
		case payload := <-w.sendCh:
			if err := w.write(payload); err != nil {
				// The write error surfaces through the read pump's next
				// ReadMessage failure; writePump just stops trying.
				return
			}
		case <-w.closeCh:
			return
		}
	}
}

func (w *WebSocket) write(payload Payload) error {
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	switch p := payload.(type) {
	case Text:
		return w.conn.WriteMessage(websocket.TextMessage, []byte(p))
	case Bytes:
		return w.conn.WriteMessage(websocket.BinaryMessage, p)
	default:
		return fmt.Errorf("engine: unsupported payload type %T", payload)
	}
}
