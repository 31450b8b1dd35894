package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxEntry is an audit event waiting to be published to the broker.
// Payload is the JSON encoding of Event; Key is the resource id so a
// resource's audit trail stays ordered within one partition.
type OutboxEntry struct {
	ID        uuid.UUID
	Category  EventCategory
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// Outbox is the publishing side of an outbox-backed Store. FetchPending is
// expected to run inside the transaction carried on ctx so rows stay locked
// until MarkPublished commits.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Topic names the broker topic for a category under prefix.
func Topic(prefix string, category EventCategory) string {
	return prefix + "." + string(category)
}
