package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// echoServer upgrades every request and echoes "Echo: <msg>" back for every
// text frame it receives.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = conn.WriteMessage(mt, []byte("Echo: "+string(data)))
		}
	})
	return httptest.NewServer(handler)
}

func TestWebSocket_SendAndReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	w, err := NewWebSocket(ctx, url, DialOptions{})
	require.NoError(t, err)
	defer w.Close(context.Background())

	require.NoError(t, w.Send(Text("hi")))

	select {
	case ev := <-w.Messages():
		require.NoError(t, ev.Err)
		require.Equal(t, Text("Echo: hi"), ev.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}
}

func TestWebSocket_CloseIsIdempotent(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	w, err := NewWebSocket(ctx, url, DialOptions{})
	require.NoError(t, err)

	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))
}

func TestWebSocket_DialFailureReturnsError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := NewWebSocket(ctx, "ws://127.0.0.1:1/does-not-exist", DialOptions{})
	require.Error(t, err)
}
