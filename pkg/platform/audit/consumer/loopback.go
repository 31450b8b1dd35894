package consumer

import (
	"context"
	"time"

	"casework/internal/platform/kafka/consumer"
	"casework/internal/platform/kafka/producer"
)

// Loopback hands outbox messages straight to a consumer-side handler. It
// stands in for the broker when no Kafka cluster is configured, so the
// outbox worker still materializes audit rows.
type Loopback struct {
	handler TopicHandler
	now     func() time.Time
}

func NewLoopback(handler TopicHandler) *Loopback {
	return &Loopback{handler: handler, now: time.Now}
}

// Publish delivers msgs in order and stops at the first handler error so
// the worker leaves the remaining rows pending.
func (l *Loopback) Publish(ctx context.Context, msgs ...producer.Message) error {
	for _, m := range msgs {
		if err := l.handler.Handle(ctx, &consumer.Message{
			Topic:     m.Topic,
			Key:       m.Key,
			Value:     m.Value,
			Timestamp: l.now(),
		}); err != nil {
			return err
		}
	}
	return nil
}
