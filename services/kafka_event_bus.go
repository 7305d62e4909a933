package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventBus publishes order events to a Kafka topic and dispatches
// consumed events to local subscribers
type KafkaEventBus struct {
	writer messageWriter
	reader messageReader

	mu       sync.RWMutex
	handlers []OrderEventHandler

	// a failing dispatch is retried this many times, doubling the wait each time
	dispatchAttempts int
	retryBackoff     time.Duration
}

// ErrEventHandlerFailed stops Run when subscribers keep failing on a message.
// The message stays uncommitted, so the group resumes from it.
var ErrEventHandlerFailed = errors.New("order event handler failed")

// NewKafkaEventBus connects a writer and a consumer-group reader to topic
func NewKafkaEventBus(brokers []string, topic, groupID string) *KafkaEventBus {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return newKafkaEventBus(writer, reader)
}

func newKafkaEventBus(writer messageWriter, reader messageReader) *KafkaEventBus {
	return &KafkaEventBus{
		writer:           writer,
		reader:           reader,
		dispatchAttempts: 5,
		retryBackoff:     500 * time.Millisecond,
	}
}

// Subscribe registers a handler for consumed events
func (b *KafkaEventBus) Subscribe(handler OrderEventHandler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
}

// Publish writes the event to the topic. Delivery to subscribers happens in Run.
func (b *KafkaEventBus) Publish(ctx context.Context, event OrderEvent) error {
	msg, err := encodeOrderEvent(event)
	if err != nil {
		return err
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order event %s: %w", msg.Key, err)
	}
	return nil
}

// Run consumes events until ctx is cancelled. A message is committed once
// every subscriber has handled it; undecodable messages are committed and
// skipped. Group offsets are per partition, so a message whose handlers keep
// failing is never skipped: Run retries it and then stops with
// ErrEventHandlerFailed without fetching anything after it.
func (b *KafkaEventBus) Run(ctx context.Context) error {
	for {
		msg, err := b.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch order event: %w", err)
		}

		event, err := decodeOrderEvent(msg)
		if err != nil {
			log.Error().Err(err).Str("key", string(msg.Key)).Msg("skipping malformed order event")
		} else if err := b.dispatchWithRetry(ctx, event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Str("event_id", event.ID).Str("key", string(msg.Key)).
				Int64("offset", msg.Offset).Msg("order event consumer stopped on a failing event")
			return fmt.Errorf("%w: event %s at offset %d: %v", ErrEventHandlerFailed, event.ID, msg.Offset, err)
		}

		if err := b.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit order event: %w", err)
		}
	}
}

func (b *KafkaEventBus) dispatchWithRetry(ctx context.Context, event OrderEvent) error {
	wait := b.retryBackoff
	var err error
	for attempt := 1; attempt <= b.dispatchAttempts; attempt++ {
		if err = dispatch(ctx, b.snapshot(), event); err == nil {
			return nil
		}
		if attempt == b.dispatchAttempts {
			break
		}
		log.Warn().Err(err).Str("event_id", event.ID).Int("attempt", attempt).Dur("retry_in", wait).Msg("order event handler failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
	return err
}

// Close flushes the writer and leaves the consumer group
func (b *KafkaEventBus) Close() error {
	return errors.Join(b.writer.Close(), b.reader.Close())
}

func (b *KafkaEventBus) snapshot() []OrderEventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]OrderEventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	return handlers
}

// orderEventKey formats the message key, e.g. "order.42". Every event of an
// order shares the key, so the Hash balancer keeps them in order.
func orderEventKey(event OrderEvent) string {
	return fmt.Sprintf("order.%d", event.OrderID)
}

func encodeOrderEvent(event OrderEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode order event: %w", err)
	}
	return kafka.Message{Key: []byte(orderEventKey(event)), Value: value}, nil
}

func decodeOrderEvent(msg kafka.Message) (OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return OrderEvent{}, fmt.Errorf("decode order event: %w", err)
	}

	id, found := strings.CutPrefix(string(msg.Key), "order.")
	if !found || id != strconv.FormatUint(uint64(event.OrderID), 10) {
		return OrderEvent{}, fmt.Errorf("decode order event: unexpected key %q", msg.Key)
	}
	switch event.Type {
	case OrderPlacedEvent, OrderCancelledEvent:
	default:
		return OrderEvent{}, fmt.Errorf("decode order event: unknown type %q", event.Type)
	}
	return event, nil
}
