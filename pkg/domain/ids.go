// Package domain holds the typed identifiers shared across modules.
//
// Every identifier is an opaque 128-bit UUID. Distinct named types keep a case
// id from being passed where a note id is expected; the compiler enforces it.
package domain

import (
	"github.com/google/uuid"

	dErrors "casework/pkg/domain-errors"
)

type (
	ActorID            uuid.UUID
	CaseID             uuid.UUID
	ClientID           uuid.UUID
	NoteID             uuid.UUID
	AssignmentID       uuid.UUID
	EnrollmentID       uuid.UUID
	ServiceEpisodeID   uuid.UUID
	SafetyPlanID       uuid.UUID
	LegalAdvocacyID    uuid.UUID
	FinancialRequestID uuid.UUID
)

func (id ActorID) String() string            { return uuid.UUID(id).String() }
func (id CaseID) String() string             { return uuid.UUID(id).String() }
func (id ClientID) String() string           { return uuid.UUID(id).String() }
func (id NoteID) String() string             { return uuid.UUID(id).String() }
func (id AssignmentID) String() string       { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string       { return uuid.UUID(id).String() }
func (id ServiceEpisodeID) String() string   { return uuid.UUID(id).String() }
func (id SafetyPlanID) String() string       { return uuid.UUID(id).String() }
func (id LegalAdvocacyID) String() string    { return uuid.UUID(id).String() }
func (id FinancialRequestID) String() string { return uuid.UUID(id).String() }

func (id ActorID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id CaseID) IsNil() bool             { return uuid.UUID(id) == uuid.Nil }
func (id ClientID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id NoteID) IsNil() bool             { return uuid.UUID(id) == uuid.Nil }
func (id AssignmentID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id EnrollmentID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ServiceEpisodeID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SafetyPlanID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id LegalAdvocacyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id FinancialRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed ids serialize as plain UUID strings in JSON payloads.
func (id ActorID) MarshalText() ([]byte, error)            { return uuid.UUID(id).MarshalText() }
func (id CaseID) MarshalText() ([]byte, error)             { return uuid.UUID(id).MarshalText() }
func (id ClientID) MarshalText() ([]byte, error)           { return uuid.UUID(id).MarshalText() }
func (id NoteID) MarshalText() ([]byte, error)             { return uuid.UUID(id).MarshalText() }
func (id AssignmentID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id EnrollmentID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id ServiceEpisodeID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id SafetyPlanID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id LegalAdvocacyID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id FinancialRequestID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ActorID) UnmarshalText(b []byte) error            { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CaseID) UnmarshalText(b []byte) error             { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ClientID) UnmarshalText(b []byte) error           { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NoteID) UnmarshalText(b []byte) error             { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AssignmentID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EnrollmentID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ServiceEpisodeID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SafetyPlanID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *LegalAdvocacyID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *FinancialRequestID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// parseUUID enforces the trust-boundary invariant shared by every id type:
// non-empty, well-formed, and not the nil UUID.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return parsed, nil
}

func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor ID")
	return ActorID(u), err
}

func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case ID")
	return CaseID(u), err
}

func ParseClientID(s string) (ClientID, error) {
	u, err := parseUUID(s, "client ID")
	return ClientID(u), err
}

func ParseNoteID(s string) (NoteID, error) {
	u, err := parseUUID(s, "note ID")
	return NoteID(u), err
}

func ParseAssignmentID(s string) (AssignmentID, error) {
	u, err := parseUUID(s, "assignment ID")
	return AssignmentID(u), err
}

func ParseEnrollmentID(s string) (EnrollmentID, error) {
	u, err := parseUUID(s, "enrollment ID")
	return EnrollmentID(u), err
}

func ParseServiceEpisodeID(s string) (ServiceEpisodeID, error) {
	u, err := parseUUID(s, "service episode ID")
	return ServiceEpisodeID(u), err
}

func ParseSafetyPlanID(s string) (SafetyPlanID, error) {
	u, err := parseUUID(s, "safety plan ID")
	return SafetyPlanID(u), err
}

func ParseLegalAdvocacyID(s string) (LegalAdvocacyID, error) {
	u, err := parseUUID(s, "legal advocacy ID")
	return LegalAdvocacyID(u), err
}

func ParseFinancialRequestID(s string) (FinancialRequestID, error) {
	u, err := parseUUID(s, "financial request ID")
	return FinancialRequestID(u), err
}
