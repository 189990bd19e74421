package broker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAcknowledger struct {
	mu       sync.Mutex
	acked    []uint64
	nacked   []uint64
	requeued bool
}

func (r *recordingAcknowledger) Ack(tag uint64, multiple bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acked = append(r.acked, tag)
	return nil
}

func (r *recordingAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nacked = append(r.nacked, tag)
	r.requeued = requeue
	return nil
}

func (r *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	return nil
}

func TestPumpCheckoutEvents(t *testing.T) {
	t.Parallel()

	t.Run("decoded events are delivered then acked", func(t *testing.T) {
		t.Parallel()
		ack := &recordingAcknowledger{}
		msgChan := make(chan amqp.Delivery, 1)
		rChan := make(chan *CheckoutCompletedEvent)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		body, err := json.Marshal(&CheckoutCompletedEvent{EventID: "evt-1", UserID: "user-1"})
		require.NoError(t, err)
		msgChan <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: body}

		go pumpCheckoutEvents(ctx, msgChan, rChan)

		evt := <-rChan
		assert.Equal(t, "evt-1", evt.EventID)
		require.Eventually(t, func() bool {
			ack.mu.Lock()
			defer ack.mu.Unlock()
			return len(ack.acked) == 1 && ack.acked[0] == uint64(7)
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("undecodable deliveries are dead-lettered", func(t *testing.T) {
		t.Parallel()
		ack := &recordingAcknowledger{}
		msgChan := make(chan amqp.Delivery, 1)
		rChan := make(chan *CheckoutCompletedEvent)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		msgChan <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("not json")}

		go pumpCheckoutEvents(ctx, msgChan, rChan)

		require.Eventually(t, func() bool {
			ack.mu.Lock()
			defer ack.mu.Unlock()
			return len(ack.nacked) == 1 && ack.nacked[0] == uint64(3)
		}, time.Second, 10*time.Millisecond)
		ack.mu.Lock()
		defer ack.mu.Unlock()
		assert.False(t, ack.requeued)
		assert.Empty(t, ack.acked)
	})

	t.Run("cancellation requeues a delivery nobody is reading", func(t *testing.T) {
		t.Parallel()
		ack := &recordingAcknowledger{}
		msgChan := make(chan amqp.Delivery, 1)
		rChan := make(chan *CheckoutCompletedEvent)
		ctx, cancel := context.WithCancel(context.Background())

		body, err := json.Marshal(&CheckoutCompletedEvent{EventID: "evt-2"})
		require.NoError(t, err)
		msgChan <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 9, Body: body}

		done := make(chan struct{})
		go func() {
			pumpCheckoutEvents(ctx, msgChan, rChan)
			close(done)
		}()

		// wait until the delivery is held, then cancel without ever
		// reading from rChan
		require.Eventually(t, func() bool {
			return len(msgChan) == 0
		}, time.Second, 10*time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("consume loop did not exit after cancellation")
		}
		ack.mu.Lock()
		defer ack.mu.Unlock()
		require.Equal(t, []uint64{9}, ack.nacked)
		assert.True(t, ack.requeued)
		assert.Empty(t, ack.acked)
	})
}
