package service

import (
	"strings"
	"time"

	"casework/internal/confidentiality"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

type CreateNoteCommand struct {
	ClientID          id.ClientID
	CaseID            id.CaseID
	NoteType          confidentiality.NoteType
	Scope             confidentiality.VisibilityScope
	Title             string
	Content           string
	AuthorizedViewers []id.ActorID
}

func (c CreateNoteCommand) Validate() error {
	if c.ClientID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "client_id is required")
	}
	if !c.NoteType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid note type: "+string(c.NoteType))
	}
	if c.Scope != "" && !c.Scope.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid visibility scope: "+string(c.Scope))
	}
	if strings.TrimSpace(c.Content) == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	return nil
}

type SealCommand struct {
	Reason      string
	LegalBasis  string
	IsTemporary bool
	ExpiresAt   *time.Time
}

func (c SealCommand) Validate() error {
	if strings.TrimSpace(c.Reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if c.IsTemporary && c.ExpiresAt == nil {
		return dErrors.New(dErrors.CodeValidation, "expires_at is required for a temporary seal")
	}
	return nil
}
