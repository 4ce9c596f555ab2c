package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_FanOutToMultipleSubscribers(t *testing.T) {
	b := New[int]()
	a := b.Subscribe(4)
	c := b.Subscribe(4)

	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, 1, <-a.C())
	assert.Equal(t, 2, <-a.C())
	assert.Equal(t, 1, <-c.C())
	assert.Equal(t, 2, <-c.C())
}

func TestBroadcaster_LateSubscriberMissesPastValues(t *testing.T) {
	b := New[string]()
	b.Publish("missed")

	sub := b.Subscribe(1)
	select {
	case v := <-sub.C():
		t.Fatalf("late subscriber should not see past value, got %q", v)
	case <-time.After(20 * time.Millisecond):
	}

	b.Publish("seen")
	assert.Equal(t, "seen", <-sub.C())
}

func TestBroadcaster_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := New[int]()
	slow := b.Subscribe(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}
	<-slow.C() // drain one value, proving the channel is still usable
}

func TestBroadcaster_CloseIsIdempotentAndClosesSubscribers(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe(1)

	b.Close()
	b.Close()

	_, ok := <-sub.C()
	assert.False(t, ok, "subscriber channel should be closed")
	assert.True(t, b.Closed())
}

func TestBroadcaster_SubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	b := New[int]()
	b.Close()

	sub := b.Subscribe(1)
	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestBroadcaster_UnsubscribeStopsDelivery(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe(4)
	b.Unsubscribe(sub)

	b.Publish(42)

	_, ok := <-sub.C()
	require.False(t, ok, "unsubscribed channel should be closed, not receive new values")
}
