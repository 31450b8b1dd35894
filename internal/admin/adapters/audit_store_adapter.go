package adapters

import (
	"context"

	"casework/internal/admin/types"
	platformaudit "casework/pkg/platform/audit"
)

// AuditEventStore is the interface audit stores implement.
type AuditEventStore interface {
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]platformaudit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]platformaudit.Event, error)
}

// AuditStoreAdapter adapts an audit store to admin's AuditTrail interface.
type AuditStoreAdapter struct {
	store AuditEventStore
}

// NewAuditStoreAdapter creates a new adapter wrapping an audit store.
func NewAuditStoreAdapter(store AuditEventStore) *AuditStoreAdapter {
	return &AuditStoreAdapter{store: store}
}

// ListByResource returns the trail of one resource mapped to admin types.
func (a *AuditStoreAdapter) ListByResource(ctx context.Context, resourceType, resourceID string) ([]*types.AuditEntry, error) {
	events, err := a.store.ListByResource(ctx, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	return mapEvents(events), nil
}

// ListRecent returns the newest entries mapped to admin types.
func (a *AuditStoreAdapter) ListRecent(ctx context.Context, limit int) ([]*types.AuditEntry, error) {
	events, err := a.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return mapEvents(events), nil
}

func mapEvents(events []platformaudit.Event) []*types.AuditEntry {
	result := make([]*types.AuditEntry, len(events))
	for i, e := range events {
		result[i] = &types.AuditEntry{
			ID:            e.ID,
			Category:      string(e.ResolvedCategory()),
			Timestamp:     e.Timestamp,
			ActorID:       e.ActorID,
			ResourceType:  e.ResourceType,
			ResourceID:    e.ResourceID,
			Action:        e.Action,
			Decision:      e.Decision,
			RuleID:        e.RuleID,
			Reason:        e.Reason,
			Justification: e.Justification,
			RequestID:     e.RequestID,
			Severity:      string(e.Severity),
		}
	}
	return result
}
