package mqtt

import "context"

// Handler receives messages delivered on a subscribed topic.
type Handler func(topic string, payload []byte)

// Publisher sends payloads to an MQTT topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscriber registers handlers for topic filters.
type Subscriber interface {
	Subscribe(topic string, h Handler) error
}
