package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessEventBus_CallsEveryHandler(t *testing.T) {
	bus := NewInProcessEventBus()
	first := errors.New("first handler failed")
	var calls []string

	bus.Subscribe(func(context.Context, OrderEvent) error {
		calls = append(calls, "a")
		return first
	})
	bus.Subscribe(func(_ context.Context, event OrderEvent) error {
		calls = append(calls, "b:"+string(event.Type))
		return nil
	})

	err := bus.Publish(context.Background(), NewOrderEvent(OrderPlacedEvent))
	assert.ErrorIs(t, err, first)
	assert.Equal(t, []string{"a", "b:placed"}, calls)
}

func TestNewOrderEvent(t *testing.T) {
	a := NewOrderEvent(OrderPlacedEvent)
	b := NewOrderEvent(OrderPlacedEvent)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.OccurredAt.IsZero())
}

func TestOrderEventCodec(t *testing.T) {
	event := NewOrderEvent(OrderCancelledEvent)
	event.OrderID = 42
	event.ProjectID = 3
	event.Quantity = 12
	event.TotalPrice = dec("11400.00")

	msg, err := encodeOrderEvent(event)
	require.NoError(t, err)
	assert.Equal(t, "order.42", string(msg.Key))

	decoded, err := decodeOrderEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, OrderCancelledEvent, decoded.Type)
	assert.Equal(t, uint(42), decoded.OrderID)
	assert.True(t, event.TotalPrice.Equal(decoded.TotalPrice))
	assert.True(t, event.OccurredAt.Equal(decoded.OccurredAt))
}

func TestDecodeOrderEvent_Rejects(t *testing.T) {
	tests := []struct {
		name string
		msg  kafka.Message
	}{
		{"not json", kafka.Message{Key: []byte("order.1"), Value: []byte("{")}},
		{"foreign key", kafka.Message{Key: []byte("invoice.1"), Value: []byte(`{"type":"placed","order_id":1}`)}},
		{"key for another order", kafka.Message{Key: []byte("order.2"), Value: []byte(`{"type":"placed","order_id":1}`)}},
		{"unknown type", kafka.Message{Key: []byte("order.1"), Value: []byte(`{"type":"shipped","order_id":1}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeOrderEvent(tt.msg)
			assert.Error(t, err)
		})
	}
}

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.mu.Lock()
	w.messages = append(w.messages, msgs...)
	w.mu.Unlock()
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader hands out queued messages, then blocks until the context ends
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	r.committed = append(r.committed, msgs...)
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committedKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.committed))
	for _, msg := range r.committed {
		keys = append(keys, string(msg.Key))
	}
	return keys
}

func mustEncode(t *testing.T, eventType OrderEventType, orderID uint) kafka.Message {
	t.Helper()
	event := NewOrderEvent(eventType)
	event.OrderID = orderID
	msg, err := encodeOrderEvent(event)
	require.NoError(t, err)
	return msg
}

func TestKafkaEventBus_Publish(t *testing.T) {
	writer := &fakeWriter{}
	bus := newKafkaEventBus(writer, newFakeReader())

	event := NewOrderEvent(OrderPlacedEvent)
	event.OrderID = 7
	require.NoError(t, bus.Publish(context.Background(), event))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "order.7", string(writer.messages[0].Key))

	writer.err = errors.New("broker unavailable")
	assert.ErrorIs(t, bus.Publish(context.Background(), event), writer.err)
}

func (r *fakeReader) remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func newTestKafkaBus(reader *fakeReader) *KafkaEventBus {
	bus := newKafkaEventBus(&fakeWriter{}, reader)
	bus.dispatchAttempts = 3
	bus.retryBackoff = time.Millisecond
	return bus
}

func TestKafkaEventBus_Run(t *testing.T) {
	reader := newFakeReader(
		mustEncode(t, OrderPlacedEvent, 1),
		kafka.Message{Key: []byte("order.2"), Value: []byte("garbage")},
		mustEncode(t, OrderPlacedEvent, 3),
		mustEncode(t, OrderCancelledEvent, 1),
	)
	bus := newTestKafkaBus(reader)

	var mu sync.Mutex
	var handled []uint
	failuresLeft := 2
	bus.Subscribe(func(_ context.Context, event OrderEvent) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, event.OrderID)
		if event.OrderID == 3 && failuresLeft > 0 {
			failuresLeft--
			return errors.New("ledger unavailable")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()

	<-reader.drained
	cancel()
	require.NoError(t, <-done)

	// order 3 succeeds on its third attempt; the malformed message is skipped
	assert.Equal(t, []uint{1, 3, 3, 3, 1}, handled)
	assert.Equal(t, []string{"order.1", "order.2", "order.3", "order.1"}, reader.committedKeys())
}

func TestKafkaEventBus_Run_StopsOnPersistentFailure(t *testing.T) {
	reader := newFakeReader(
		mustEncode(t, OrderPlacedEvent, 1),
		mustEncode(t, OrderPlacedEvent, 3),
		mustEncode(t, OrderPlacedEvent, 4),
	)
	bus := newTestKafkaBus(reader)

	var mu sync.Mutex
	attempts := map[uint]int{}
	bus.Subscribe(func(_ context.Context, event OrderEvent) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[event.OrderID]++
		if event.OrderID == 3 {
			return errors.New("ledger unavailable")
		}
		return nil
	})

	err := bus.Run(context.Background())
	assert.ErrorIs(t, err, ErrEventHandlerFailed)

	assert.Equal(t, 3, attempts[3])
	assert.Zero(t, attempts[4], "nothing after the failing event is handled")
	assert.Equal(t, 1, reader.remaining(), "nothing after the failing event is fetched")
	assert.Equal(t, []string{"order.1"}, reader.committedKeys(), "no later offset may be committed past the failing event")
}

func TestKafkaEventBus_Run_CancelDuringRetry(t *testing.T) {
	reader := newFakeReader(mustEncode(t, OrderPlacedEvent, 5))
	bus := newTestKafkaBus(reader)
	bus.retryBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	bus.Subscribe(func(context.Context, OrderEvent) error {
		cancel()
		return errors.New("ledger unavailable")
	})

	require.NoError(t, bus.Run(ctx))
	assert.Empty(t, reader.committedKeys())
}
