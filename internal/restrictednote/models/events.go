package models

import (
	"encoding/json"
	"time"

	"casework/internal/confidentiality"
	"casework/internal/eventsource"
	id "casework/pkg/domain"
)

// AggregateType is the stream prefix for restricted notes.
const AggregateType eventsource.AggregateType = "restricted_note"

const (
	KindNoteCreated        eventsource.Kind = "note.created"
	KindNoteContentUpdated eventsource.Kind = "note.content_updated"
	KindVisibilityChanged  eventsource.Kind = "note.visibility_changed"
	KindNoteSealed         eventsource.Kind = "note.sealed"
	KindNoteUnsealed       eventsource.Kind = "note.unsealed"
	KindSealExpired        eventsource.Kind = "note.seal_expired"
	KindNoteAccessed       eventsource.Kind = "note.accessed"
)

// Event is the closed set of restricted note events.
type Event interface {
	eventsource.Event
	isNoteEvent()
}

type eventBase struct {
	At time.Time `json:"occurred_at"`
}

func (b eventBase) OccurredAt() time.Time { return b.At }
func (eventBase) isNoteEvent()            {}

func at(now time.Time) eventBase {
	return eventBase{At: eventsource.NormalizeTime(now)}
}

type NoteCreated struct {
	eventBase
	ClientID          id.ClientID                     `json:"client_id"`
	CaseID            id.CaseID                       `json:"case_id"`
	NoteType          confidentiality.NoteType        `json:"note_type"`
	Scope             confidentiality.VisibilityScope `json:"visibility_scope"`
	Title             string                          `json:"title"`
	Content           string                          `json:"content"`
	AuthorID          id.ActorID                      `json:"author_id"`
	AuthorName        string                          `json:"author_name"`
	AuthorizedViewers []id.ActorID                    `json:"authorized_viewers,omitempty"`
}

type NoteContentUpdated struct {
	eventBase
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	UpdatedBy id.ActorID `json:"updated_by"`
}

// VisibilityChanged replaces both the scope and the allow-list.
type VisibilityChanged struct {
	eventBase
	Scope             confidentiality.VisibilityScope `json:"visibility_scope"`
	AuthorizedViewers []id.ActorID                    `json:"authorized_viewers,omitempty"`
	ChangedBy         id.ActorID                      `json:"changed_by"`
}

type NoteSealed struct {
	eventBase
	Reason       string     `json:"reason"`
	LegalBasis   string     `json:"legal_basis,omitempty"`
	SealedBy     id.ActorID `json:"sealed_by"`
	SealedByName string     `json:"sealed_by_name"`
	IsTemporary  bool       `json:"is_temporary"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type NoteUnsealed struct {
	eventBase
	Reason     string     `json:"reason"`
	UnsealedBy id.ActorID `json:"unsealed_by"`
}

// SealExpired lifts a temporary seal whose expiry has passed.
type SealExpired struct {
	eventBase
	ExpiredAt time.Time  `json:"expired_at"`
	LiftedBy  id.ActorID `json:"lifted_by"`
}

// NoteAccessed records a permitted read. It changes no note state.
type NoteAccessed struct {
	eventBase
	AccessedBy    id.ActorID `json:"accessed_by"`
	AccessType    string     `json:"access_type"`
	Justification string     `json:"justification,omitempty"`
	RuleID        string     `json:"rule_id"`
}

func (NoteCreated) EventKind() eventsource.Kind        { return KindNoteCreated }
func (NoteContentUpdated) EventKind() eventsource.Kind { return KindNoteContentUpdated }
func (VisibilityChanged) EventKind() eventsource.Kind  { return KindVisibilityChanged }
func (NoteSealed) EventKind() eventsource.Kind         { return KindNoteSealed }
func (NoteUnsealed) EventKind() eventsource.Kind       { return KindNoteUnsealed }
func (SealExpired) EventKind() eventsource.Kind        { return KindSealExpired }
func (NoteAccessed) EventKind() eventsource.Kind       { return KindNoteAccessed }

// Codec decodes every restricted note event kind.
var Codec = eventsource.NewCodec[Event](AggregateType).
	Register(KindNoteCreated, decodeAs[NoteCreated]).
	Register(KindNoteContentUpdated, decodeAs[NoteContentUpdated]).
	Register(KindVisibilityChanged, decodeAs[VisibilityChanged]).
	Register(KindNoteSealed, decodeAs[NoteSealed]).
	Register(KindNoteUnsealed, decodeAs[NoteUnsealed]).
	Register(KindSealExpired, decodeAs[SealExpired]).
	Register(KindNoteAccessed, decodeAs[NoteAccessed])

func decodeAs[T Event](data []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e, nil
}
