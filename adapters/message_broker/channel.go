package message_broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/utils/log"
)

const subscriberBuffer = 100

type subscriber struct {
	ch chan domain.Message
}

// ChannelMessageBroker implements MessageBroker in process. Every subscriber
// of a topic/routing key gets its own copy of each message.
type ChannelMessageBroker struct {
	mu     sync.RWMutex
	topics map[string]map[*subscriber]struct{}
	closed bool
	done   chan struct{}
}

func NewChannelMessageBroker() *ChannelMessageBroker {
	return &ChannelMessageBroker{
		topics: make(map[string]map[*subscriber]struct{}),
		done:   make(chan struct{}),
	}
}

func makeKey(topic, routingKey string) string {
	return topic + ":" + routingKey
}

// Publish delivers message to the current subscribers. A subscriber whose
// buffer is full misses the message; publishing never blocks.
func (b *ChannelMessageBroker) Publish(ctx context.Context, topic string, routingKey string, message []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("message broker is closed")
	}

	msg := domain.Message{
		Topic:      topic,
		RoutingKey: routingKey,
		Payload:    message,
		Timestamp:  time.Now(),
	}

	subs := b.topics[makeKey(topic, routingKey)]
	dropped := 0
	for sub := range subs {
		select {
		case sub.ch <- msg:
		default:
			dropped++
		}
	}

	logger := log.WithCtx(ctx).With(
		zap.String("topic", topic),
		zap.String("routingKey", routingKey),
		zap.Int("subscribers", len(subs)))
	if dropped > 0 {
		logger.Warn("⚠️ Slow subscribers missed message", zap.Int("dropped", dropped))
	}
	logger.Debug("📤 Message published to topic", zap.Int("payload_size", len(message)))
	return nil
}

// Subscribe registers a subscriber until ctx is done or the broker closes,
// then closes the returned channel.
func (b *ChannelMessageBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("message broker is closed")
	}

	key := makeKey(topic, routingKey)
	sub := &subscriber{ch: make(chan domain.Message, subscriberBuffer)}
	if b.topics[key] == nil {
		b.topics[key] = make(map[*subscriber]struct{})
	}
	b.topics[key][sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(key, sub)
		case <-b.done:
		}
	}()

	log.WithCtx(ctx).Info("📡 Subscribed to topic", zap.String("topic", topic), zap.String("routingKey", routingKey))
	return sub.ch, nil
}

func (b *ChannelMessageBroker) unsubscribe(key string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[key]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(b.topics, key)
	}
}

// Close closes the broker and every subscription channel.
func (b *ChannelMessageBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)

	for key, subs := range b.topics {
		for sub := range subs {
			close(sub.ch)
		}
		log.WithCtx(context.Background()).Debug("🔒 Closed topic subscriptions", zap.String("key", key))
	}
	b.topics = make(map[string]map[*subscriber]struct{})

	log.WithCtx(context.Background()).Info("🔒 Message broker closed")
	return nil
}

// SubscriberCount returns the number of live subscriptions on a key.
func (b *ChannelMessageBroker) SubscriberCount(topic, routingKey string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[makeKey(topic, routingKey)])
}
