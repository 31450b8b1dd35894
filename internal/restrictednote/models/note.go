package models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"casework/internal/confidentiality"
	"casework/internal/eventsource"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

// AccessTypeView is the access type recorded when a note is read.
const AccessTypeView = "VIEW"

// Seal is the confidentiality hold on a note. It is orthogonal to the
// visibility scope: while present, only the sealer can see the note.
type Seal struct {
	Reason       string     `json:"reason"`
	LegalBasis   string     `json:"legal_basis,omitempty"`
	SealedAt     time.Time  `json:"sealed_at"`
	SealedBy     id.ActorID `json:"sealed_by"`
	SealedByName string     `json:"sealed_by_name"`
	IsTemporary  bool       `json:"is_temporary"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// ExpiredAt reports whether a temporary seal has reached its expiry at now.
func (s Seal) ExpiredAt(now time.Time) bool {
	return s.IsTemporary && s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

func (s Seal) clone() Seal {
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		s.ExpiresAt = &t
	}
	return s
}

// RestrictedNote is the event-sourced aggregate for a confidential note.
//
// Content and visibility change only while unsealed. Recording an access
// emits an event but changes no field other than the version.
type RestrictedNote struct {
	eventsource.Root[Event]

	clientID          id.ClientID
	caseID            id.CaseID
	noteType          confidentiality.NoteType
	scope             confidentiality.VisibilityScope
	title             string
	content           string
	authorID          id.ActorID
	authorName        string
	createdAt         time.Time
	lastModified      time.Time
	authorizedViewers []id.ActorID
	seal              *Seal
}

// New returns an empty note ready for replay.
func New(noteID id.NoteID) *RestrictedNote {
	return &RestrictedNote{Root: eventsource.NewRoot[Event](uuid.UUID(noteID))}
}

// Factory adapts New for the repository.
func Factory(aggregateID uuid.UUID) *RestrictedNote {
	return New(id.NoteID(aggregateID))
}

// CreateParams carries the creation inputs. An empty Scope takes the note
// type's default; an explicit Scope overrides it.
type CreateParams struct {
	NoteID            id.NoteID
	ClientID          id.ClientID
	CaseID            id.CaseID
	NoteType          confidentiality.NoteType
	Scope             confidentiality.VisibilityScope
	Title             string
	Content           string
	AuthorID          id.ActorID
	AuthorName        string
	AuthorizedViewers []id.ActorID
}

// Create builds a new note.
func Create(p CreateParams, now time.Time) (*RestrictedNote, error) {
	if p.NoteID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "note id is required")
	}
	if p.ClientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client id is required")
	}
	if p.AuthorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "author id is required")
	}
	if !p.NoteType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid note type: "+string(p.NoteType))
	}
	scope := p.Scope
	if scope == "" {
		scope = p.NoteType.DefaultScope()
	}
	if !scope.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid visibility scope: "+string(scope))
	}
	if strings.TrimSpace(p.Content) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "note content is required")
	}

	n := New(p.NoteID)
	n.Apply(NoteCreated{
		eventBase:         at(now),
		ClientID:          p.ClientID,
		CaseID:            p.CaseID,
		NoteType:          p.NoteType,
		Scope:             scope,
		Title:             strings.TrimSpace(p.Title),
		Content:           p.Content,
		AuthorID:          p.AuthorID,
		AuthorName:        strings.TrimSpace(p.AuthorName),
		AuthorizedViewers: dedupeViewers(p.AuthorizedViewers),
	}, n.when)
	return n, nil
}

// ReplayEvent implements eventsource.Aggregate.
func (n *RestrictedNote) ReplayEvent(e Event, sequence int64) error {
	return n.Replay(e, sequence, n.when)
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

// UpdateContent replaces the note body. An empty title keeps the current one.
func (n *RestrictedNote) UpdateContent(title, content string, updatedBy id.ActorID, now time.Time) error {
	if err := n.requireUnsealed("update"); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "note content is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = n.title
	}
	n.Apply(NoteContentUpdated{
		eventBase: at(now),
		Title:     title,
		Content:   content,
		UpdatedBy: updatedBy,
	}, n.when)
	return nil
}

// ChangeVisibility replaces the scope and the allow-list.
func (n *RestrictedNote) ChangeVisibility(scope confidentiality.VisibilityScope, viewers []id.ActorID, changedBy id.ActorID, now time.Time) error {
	if err := n.requireUnsealed("change visibility of"); err != nil {
		return err
	}
	if !scope.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid visibility scope: "+string(scope))
	}
	n.Apply(VisibilityChanged{
		eventBase:         at(now),
		Scope:             scope,
		AuthorizedViewers: dedupeViewers(viewers),
		ChangedBy:         changedBy,
	}, n.when)
	return nil
}

// Seal places a confidentiality hold. A temporary seal needs an expiry after now.
func (n *RestrictedNote) Seal(sealedBy id.ActorID, sealedByName, reason, legalBasis string, isTemporary bool, expiresAt *time.Time, now time.Time) error {
	if err := n.requireCreated(); err != nil {
		return err
	}
	if n.seal != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "note is already sealed")
	}
	if sealedBy.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "sealer id is required")
	}
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "seal reason is required")
	}
	var expiry *time.Time
	if isTemporary {
		if expiresAt == nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "temporary seal requires an expiry")
		}
		if !expiresAt.After(now) {
			return dErrors.New(dErrors.CodeInvariantViolation, "seal expiry must be in the future")
		}
		expiry = eventsource.NormalizeTimePtr(expiresAt)
	}
	n.Apply(NoteSealed{
		eventBase:    at(now),
		Reason:       strings.TrimSpace(reason),
		LegalBasis:   strings.TrimSpace(legalBasis),
		SealedBy:     sealedBy,
		SealedByName: strings.TrimSpace(sealedByName),
		IsTemporary:  isTemporary,
		ExpiresAt:    expiry,
	}, n.when)
	return nil
}

// Unseal lifts the hold.
func (n *RestrictedNote) Unseal(unsealedBy id.ActorID, reason string, now time.Time) error {
	if err := n.requireCreated(); err != nil {
		return err
	}
	if n.seal == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "note is not sealed")
	}
	n.Apply(NoteUnsealed{
		eventBase:  at(now),
		Reason:     reason,
		UnsealedBy: unsealedBy,
	}, n.when)
	return nil
}

// ExpireSeal lifts a temporary seal whose expiry is at or before now.
// Expiry is never implicit: an expired seal still blocks access until this runs.
func (n *RestrictedNote) ExpireSeal(liftedBy id.ActorID, now time.Time) error {
	if err := n.requireCreated(); err != nil {
		return err
	}
	if n.seal == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "note is not sealed")
	}
	if !n.seal.IsTemporary {
		return dErrors.New(dErrors.CodeInvariantViolation, "permanent seals do not expire")
	}
	if !n.seal.ExpiredAt(now) {
		return dErrors.New(dErrors.CodeInvariantViolation, "seal has not expired yet")
	}
	n.Apply(SealExpired{
		eventBase: at(now),
		ExpiredAt: *n.seal.ExpiresAt,
		LiftedBy:  liftedBy,
	}, n.when)
	return nil
}

// RecordAccess records a permitted read. It always succeeds on a created note.
func (n *RestrictedNote) RecordAccess(accessedBy id.ActorID, accessType, justification, ruleID string, now time.Time) error {
	if err := n.requireCreated(); err != nil {
		return err
	}
	if accessType == "" {
		accessType = AccessTypeView
	}
	n.Apply(NoteAccessed{
		eventBase:     at(now),
		AccessedBy:    accessedBy,
		AccessType:    accessType,
		Justification: justification,
		RuleID:        ruleID,
	}, n.when)
	return nil
}

func (n *RestrictedNote) requireCreated() error {
	if n.Version() == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "note has not been created")
	}
	return nil
}

func (n *RestrictedNote) requireUnsealed(verb string) error {
	if err := n.requireCreated(); err != nil {
		return err
	}
	if n.seal != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot "+verb+" a sealed note")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Event application
// -----------------------------------------------------------------------------

func (n *RestrictedNote) when(e Event) error {
	switch ev := e.(type) {
	case NoteCreated:
		n.clientID = ev.ClientID
		n.caseID = ev.CaseID
		n.noteType = ev.NoteType
		n.scope = ev.Scope
		n.title = ev.Title
		n.content = ev.Content
		n.authorID = ev.AuthorID
		n.authorName = ev.AuthorName
		n.authorizedViewers = slices.Clone(ev.AuthorizedViewers)
		n.createdAt = ev.At
		n.lastModified = ev.At
	case NoteContentUpdated:
		n.title = ev.Title
		n.content = ev.Content
		n.lastModified = ev.At
	case VisibilityChanged:
		n.scope = ev.Scope
		n.authorizedViewers = slices.Clone(ev.AuthorizedViewers)
		n.lastModified = ev.At
	case NoteSealed:
		n.seal = &Seal{
			Reason:       ev.Reason,
			LegalBasis:   ev.LegalBasis,
			SealedAt:     ev.At,
			SealedBy:     ev.SealedBy,
			SealedByName: ev.SealedByName,
			IsTemporary:  ev.IsTemporary,
			ExpiresAt:    eventsource.NormalizeTimePtr(ev.ExpiresAt),
		}
		n.lastModified = ev.At
	case NoteUnsealed:
		n.seal = nil
		n.lastModified = ev.At
	case SealExpired:
		n.seal = nil
		n.lastModified = ev.At
	case NoteAccessed:
	default:
		return eventsource.UnhandledEvent(e)
	}
	return nil
}

func dedupeViewers(viewers []id.ActorID) []id.ActorID {
	var out []id.ActorID
	for _, v := range viewers {
		if v.IsNil() || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

func (n *RestrictedNote) NoteID() id.NoteID                      { return id.NoteID(n.ID()) }
func (n *RestrictedNote) ClientID() id.ClientID                  { return n.clientID }
func (n *RestrictedNote) CaseID() id.CaseID                      { return n.caseID }
func (n *RestrictedNote) NoteType() confidentiality.NoteType     { return n.noteType }
func (n *RestrictedNote) Scope() confidentiality.VisibilityScope { return n.scope }
func (n *RestrictedNote) Title() string                          { return n.title }
func (n *RestrictedNote) Content() string                        { return n.content }
func (n *RestrictedNote) AuthorID() id.ActorID                   { return n.authorID }
func (n *RestrictedNote) AuthorName() string                     { return n.authorName }
func (n *RestrictedNote) CreatedAt() time.Time                   { return n.createdAt }
func (n *RestrictedNote) LastModified() time.Time                { return n.lastModified }
func (n *RestrictedNote) IsSealed() bool                         { return n.seal != nil }
func (n *RestrictedNote) AuthorizedViewers() []id.ActorID        { return slices.Clone(n.authorizedViewers) }

// CurrentSeal returns a copy of the active seal.
func (n *RestrictedNote) CurrentSeal() (Seal, bool) {
	if n.seal == nil {
		return Seal{}, false
	}
	return n.seal.clone(), true
}

// PolicySnapshot is the note state the confidentiality engine decides on.
func (n *RestrictedNote) PolicySnapshot() confidentiality.NoteSnapshot {
	snap := confidentiality.NoteSnapshot{
		NoteID:            n.NoteID(),
		NoteType:          n.noteType,
		Scope:             n.scope,
		AuthorID:          n.authorID,
		AuthorizedViewers: slices.Clone(n.authorizedViewers),
	}
	if n.seal != nil {
		snap.Sealed = true
		snap.SealedBy = n.seal.SealedBy
	}
	return snap
}

// Decide returns the explained visibility decision for an actor.
func (n *RestrictedNote) Decide(actorID id.ActorID, roles ...string) confidentiality.Decision {
	return confidentiality.Decide(n.PolicySnapshot(), confidentiality.NewActor(actorID, roles...))
}

// IsVisibleTo reports whether an actor with roles may view the note.
func (n *RestrictedNote) IsVisibleTo(actorID id.ActorID, roles ...string) bool {
	return n.Decide(actorID, roles...).Allowed
}

// RequiresSpecialHandling reports whether access to the note needs stricter auditing.
func (n *RestrictedNote) RequiresSpecialHandling() bool {
	return confidentiality.RequiresSpecialHandling(n.PolicySnapshot())
}
