package consumer

import (
	"context"
	"log/slog"

	"casework/internal/platform/kafka/consumer"
	audit "casework/pkg/platform/audit"
)

// TopicHandler handles messages from one audit topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router dispatches audit messages by topic. Messages on topics nobody
// registered are logged and acknowledged.
type Router struct {
	handlers map[string]TopicHandler
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]TopicHandler),
		logger:   logger,
	}
}

// NewMaterializerRouter registers one materializing Handler per category
// under prefix and returns the router with the topics it listens on.
func NewMaterializerRouter(store Materializer, prefix string, categories []audit.EventCategory, logger *slog.Logger) (*Router, []string) {
	r := NewRouter(logger)
	topics := make([]string, 0, len(categories))
	for _, category := range categories {
		topic := audit.Topic(prefix, category)
		r.Register(topic, NewHandler(store, category, logger))
		topics = append(topics, topic)
	}
	return r, topics
}

func (r *Router) Register(topic string, handler TopicHandler) {
	r.handlers[topic] = handler
}

// Topics lists the registered topics.
func (r *Router) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	return topics
}

func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	if handler, ok := r.handlers[msg.Topic]; ok {
		return handler.Handle(ctx, msg)
	}
	r.logger.WarnContext(ctx, "audit message on unrouted topic",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
	)
	return nil
}
