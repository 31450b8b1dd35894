package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"casework/internal/platform/kafka/consumer"
	audit "casework/pkg/platform/audit"
)

// Materializer writes a consumed audit event into the queryable table.
// AppendWithID must ignore an id it has already stored.
type Materializer interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// Handler materializes audit events from one category topic.
type Handler struct {
	store    Materializer
	category audit.EventCategory
	logger   *slog.Logger
}

// NewHandler creates a handler for the topic carrying category.
func NewHandler(store Materializer, category audit.EventCategory, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		category: category,
		logger:   logger,
	}
}

// Handle processes one audit event. Malformed messages are logged and
// skipped; store failures are returned so the consumer retries.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.WarnContext(ctx, "failed to unmarshal audit payload",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to parse audit event ID",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	if event.Category == "" {
		event.Category = h.category
	} else if event.Category != h.category {
		h.logger.WarnContext(ctx, "audit event category does not match topic",
			"event_id", eventID,
			"category", event.Category,
			"topic", msg.Topic,
		)
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to store audit event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("store audit event: %w", err)
	}

	h.logger.DebugContext(ctx, "stored audit event",
		"event_id", eventID,
		"action", event.Action,
		"category", event.Category,
	)
	return nil
}
