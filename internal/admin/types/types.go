// Package types holds the read-only views the admin surface works with.
package types

import (
	"time"

	id "casework/pkg/domain"
)

// AuditEntry is one materialized audit record.
type AuditEntry struct {
	ID            string
	Category      string
	Timestamp     time.Time
	ActorID       id.ActorID
	ResourceType  string
	ResourceID    string
	Action        string
	Decision      string
	RuleID        string
	Reason        string
	Justification string
	RequestID     string
	Severity      string
}

// SealedNote describes a currently sealed restricted note.
type SealedNote struct {
	NoteID      id.NoteID
	Reason      string
	SealedBy    id.ActorID
	SealedAt    time.Time
	IsTemporary bool
	ExpiresAt   *time.Time
}
