package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectAttempt_NoOpTracerNeverPanics(t *testing.T) {
	tracer := NoOp()
	ctx, end := ConnectAttempt(context.Background(), tracer, 1)
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { end(nil) })
}

func TestConnectAttempt_RecordsErrorWithoutPanicking(t *testing.T) {
	tracer := NoOp()
	_, end := ConnectAttempt(context.Background(), tracer, 2)
	assert.NotPanics(t, func() { end(errors.New("dial failed")) })
}

func TestReconnectScheduled_NeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		ReconnectScheduled(context.Background(), 3, 1500)
	})
}
