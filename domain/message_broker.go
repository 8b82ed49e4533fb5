package domain

import (
	"context"
	"time"
)

// MessageBroker is a topic/routing-key pub-sub.
type MessageBroker interface {
	Publish(ctx context.Context, topic string, routingKey string, message []byte) error
	// Subscribe returns a channel that receives every message published to
	// topic/routingKey after the call. The channel closes when ctx is done.
	Subscribe(ctx context.Context, topic string, routingKey string) (<-chan Message, error)
	Close() error
}

type Message struct {
	Topic      string
	RoutingKey string
	Payload    []byte
	Timestamp  time.Time
}

const TurnTopic = "chat.turns"

// TurnEvent announces turns appended to a session.
type TurnEvent struct {
	UserID    int64     `json:"user_id"`
	SessionID int64     `json:"session_id"`
	Turns     []Turn    `json:"turns"`
	Timestamp time.Time `json:"timestamp"`
}
