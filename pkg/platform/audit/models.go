package audit

import (
	"context"
	"time"

	id "casework/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// note seals, confidential note changes, allowed access to restricted notes.
	// These require durable storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics:
	// denied access and any decision on a note that needs special handling.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine case lifecycle activity.
	// These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Resource types named in audit records.
const (
	ResourceCase           = "case"
	ResourceRestrictedNote = "restricted_note"
)

// Event is emitted from services to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	// ID is assigned by the store on append when empty.
	ID           string        `json:"id,omitempty"`
	Category     EventCategory `json:"category"`
	Timestamp    time.Time     `json:"timestamp"`
	ActorID      id.ActorID    `json:"actor_id"`
	ResourceType string        `json:"resource_type"`
	ResourceID   string        `json:"resource_id"`
	Action       string        `json:"action"`
	Decision     string        `json:"decision,omitempty"`
	RuleID       string        `json:"rule_id,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	// Justification is the actor-supplied purpose for the access.
	Justification string            `json:"justification,omitempty"`
	RequestID     string            `json:"request_id,omitempty"`
	ClientIP      string            `json:"client_ip,omitempty"`
	Device        string            `json:"device,omitempty"`
	Severity      Severity          `json:"severity,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ResolvedCategory returns the explicit category, or the action's default.
func (e Event) ResolvedCategory() EventCategory {
	if e.Category != "" {
		return e.Category
	}
	return AuditEvent(e.Action).Category()
}

type AuditEvent string

const (
	// Case lifecycle
	EventCaseOpened         AuditEvent = "case_opened"
	EventCaseWorkerAssigned AuditEvent = "case_worker_assigned"
	EventCaseAssignmentEnd  AuditEvent = "case_assignment_ended"
	EventCaseNoteAdded      AuditEvent = "case_note_added"
	EventCaseStatusChanged  AuditEvent = "case_status_changed"
	EventCaseLinked         AuditEvent = "case_entity_linked"
	EventCaseClosed         AuditEvent = "case_closed"

	// Restricted note lifecycle
	EventNoteCreated        AuditEvent = "note_created"
	EventNoteContentUpdated AuditEvent = "note_content_updated"
	EventNoteVisibility     AuditEvent = "note_visibility_changed"
	EventNoteSealed         AuditEvent = "note_sealed"
	EventNoteUnsealed       AuditEvent = "note_unsealed"
	EventNoteSealExpired    AuditEvent = "note_seal_expired"
	EventNoteAccessed       AuditEvent = "note_accessed"

	// Policy decisions
	EventNoteAccessAllowed AuditEvent = "note_access_allowed"
	EventNoteAccessDenied  AuditEvent = "note_access_denied"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventCaseOpened:         CategoryCompliance,
	EventCaseClosed:         CategoryCompliance,
	EventCaseWorkerAssigned: CategoryOperations,
	EventCaseAssignmentEnd:  CategoryOperations,
	EventCaseNoteAdded:      CategoryOperations,
	EventCaseStatusChanged:  CategoryOperations,
	EventCaseLinked:         CategoryOperations,

	EventNoteCreated:        CategoryCompliance,
	EventNoteContentUpdated: CategoryCompliance,
	EventNoteVisibility:     CategoryCompliance,
	EventNoteSealed:         CategoryCompliance,
	EventNoteUnsealed:       CategoryCompliance,
	EventNoteSealExpired:    CategoryCompliance,
	EventNoteAccessed:       CategoryCompliance,

	EventNoteAccessAllowed: CategoryCompliance,
	EventNoteAccessDenied:  CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Append must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
