package admin

import (
	"time"

	"casework/internal/admin/types"
)

// AuditEntryResponse is the HTTP response DTO for one audit record.
type AuditEntryResponse struct {
	ID            string    `json:"id"`
	Category      string    `json:"category"`
	Timestamp     time.Time `json:"timestamp"`
	ActorID       string    `json:"actor_id"`
	ResourceType  string    `json:"resource_type"`
	ResourceID    string    `json:"resource_id"`
	Action        string    `json:"action"`
	Decision      string    `json:"decision,omitempty"`
	RuleID        string    `json:"rule_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Justification string    `json:"justification,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	Severity      string    `json:"severity,omitempty"`
}

// AuditTrailResponse wraps a list of audit records for HTTP response.
type AuditTrailResponse struct {
	Entries []*AuditEntryResponse `json:"entries"`
	Total   int                   `json:"total"`
}

// SealedNoteResponse is the HTTP response DTO for a sealed note.
type SealedNoteResponse struct {
	NoteID      string     `json:"note_id"`
	Reason      string     `json:"reason"`
	SealedBy    string     `json:"sealed_by"`
	SealedAt    time.Time  `json:"sealed_at"`
	IsTemporary bool       `json:"is_temporary"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// SealedNotesResponse wraps the sealed notes for HTTP response.
type SealedNotesResponse struct {
	Notes []*SealedNoteResponse `json:"notes"`
	Total int                   `json:"total"`
}

func toAuditTrailResponse(entries []*types.AuditEntry) *AuditTrailResponse {
	resp := &AuditTrailResponse{Entries: make([]*AuditEntryResponse, len(entries)), Total: len(entries)}
	for i, e := range entries {
		resp.Entries[i] = &AuditEntryResponse{
			ID:            e.ID,
			Category:      e.Category,
			Timestamp:     e.Timestamp,
			ActorID:       e.ActorID.String(),
			ResourceType:  e.ResourceType,
			ResourceID:    e.ResourceID,
			Action:        e.Action,
			Decision:      e.Decision,
			RuleID:        e.RuleID,
			Reason:        e.Reason,
			Justification: e.Justification,
			RequestID:     e.RequestID,
			Severity:      e.Severity,
		}
	}
	return resp
}

func toSealedNotesResponse(notes []*types.SealedNote) *SealedNotesResponse {
	resp := &SealedNotesResponse{Notes: make([]*SealedNoteResponse, len(notes)), Total: len(notes)}
	for i, n := range notes {
		resp.Notes[i] = &SealedNoteResponse{
			NoteID:      n.NoteID.String(),
			Reason:      n.Reason,
			SealedBy:    n.SealedBy.String(),
			SealedAt:    n.SealedAt,
			IsTemporary: n.IsTemporary,
			ExpiresAt:   n.ExpiresAt,
		}
	}
	return resp
}
