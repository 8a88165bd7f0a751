package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipscan/internal/contracts"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe()
	defer unsub()

	bus.Publish(contracts.ProgressEvent{Stage: contracts.StageCollect, Current: 1, Total: 10})

	select {
	case ev := <-ch:
		assert.Equal(t, contracts.StageCollect, ev.Stage)
		assert.Equal(t, 1, ev.Current)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe()

	require.Equal(t, 1, bus.SubscriberCount())
	unsub()
	assert.Equal(t, 0, bus.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Double unsubscribe is harmless
	unsub()
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	_, unsub := bus.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		// More events than the subscriber buffer holds
		for i := 0; i < 200; i++ {
			bus.Publish(contracts.ProgressEvent{Stage: contracts.StageScan, Current: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Publish(contracts.ProgressEvent{Stage: contracts.StageUniverse})
	})
}
