package handler

import (
	"strings"
	"time"

	"casework/internal/confidentiality"
	"casework/internal/restrictednote/service"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

const (
	maxTitleLen         = 200
	maxContentLen       = 50000
	maxReasonLen        = 1000
	maxJustificationLen = 500
	maxViewers          = 100
)

// CreateNoteRequest is the body of POST /notes.
type CreateNoteRequest struct {
	ClientID          string   `json:"client_id"`
	CaseID            string   `json:"case_id"`
	NoteType          string   `json:"note_type"`
	VisibilityScope   string   `json:"visibility_scope"`
	Title             string   `json:"title"`
	Content           string   `json:"content"`
	AuthorizedViewers []string `json:"authorized_viewers"`

	cmd service.CreateNoteCommand
}

func (r *CreateNoteRequest) Validate() error {
	if len(r.Title) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "title is too long")
	}
	if len(r.Content) > maxContentLen {
		return dErrors.New(dErrors.CodeValidation, "content is too long")
	}
	clientID, err := id.ParseClientID(strings.TrimSpace(r.ClientID))
	if err != nil {
		return err
	}
	var caseID id.CaseID
	if strings.TrimSpace(r.CaseID) != "" {
		if caseID, err = id.ParseCaseID(strings.TrimSpace(r.CaseID)); err != nil {
			return err
		}
	}
	noteType, err := confidentiality.ParseNoteType(r.NoteType)
	if err != nil {
		return err
	}
	var scope confidentiality.VisibilityScope
	if strings.TrimSpace(r.VisibilityScope) != "" {
		if scope, err = confidentiality.ParseVisibilityScope(r.VisibilityScope); err != nil {
			return err
		}
	}
	viewers, err := parseViewers(r.AuthorizedViewers)
	if err != nil {
		return err
	}
	r.cmd = service.CreateNoteCommand{
		ClientID:          clientID,
		CaseID:            caseID,
		NoteType:          noteType,
		Scope:             scope,
		Title:             strings.TrimSpace(r.Title),
		Content:           r.Content,
		AuthorizedViewers: viewers,
	}
	return r.cmd.Validate()
}

func (r *CreateNoteRequest) Command() service.CreateNoteCommand { return r.cmd }

// UpdateContentRequest is the body of PUT /notes/{noteID}/content. An empty
// title keeps the current one.
type UpdateContentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r *UpdateContentRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if len(r.Title) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "title is too long")
	}
	if strings.TrimSpace(r.Content) == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	if len(r.Content) > maxContentLen {
		return dErrors.New(dErrors.CodeValidation, "content is too long")
	}
	return nil
}

// VisibilityRequest is the body of PUT /notes/{noteID}/visibility.
type VisibilityRequest struct {
	VisibilityScope   string   `json:"visibility_scope"`
	AuthorizedViewers []string `json:"authorized_viewers"`

	scope   confidentiality.VisibilityScope
	viewers []id.ActorID
}

func (r *VisibilityRequest) Validate() error {
	scope, err := confidentiality.ParseVisibilityScope(r.VisibilityScope)
	if err != nil {
		return err
	}
	viewers, err := parseViewers(r.AuthorizedViewers)
	if err != nil {
		return err
	}
	r.scope = scope
	r.viewers = viewers
	return nil
}

// SealRequest is the body of POST /notes/{noteID}/seal.
type SealRequest struct {
	Reason      string     `json:"reason"`
	LegalBasis  string     `json:"legal_basis"`
	IsTemporary bool       `json:"is_temporary"`
	ExpiresAt   *time.Time `json:"expires_at"`

	cmd service.SealCommand
}

func (r *SealRequest) Validate() error {
	if len(r.Reason) > maxReasonLen || len(r.LegalBasis) > maxReasonLen {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	r.cmd = service.SealCommand{
		Reason:      strings.TrimSpace(r.Reason),
		LegalBasis:  strings.TrimSpace(r.LegalBasis),
		IsTemporary: r.IsTemporary,
		ExpiresAt:   r.ExpiresAt,
	}
	return r.cmd.Validate()
}

func (r *SealRequest) Command() service.SealCommand { return r.cmd }

// UnsealRequest is the body of POST /notes/{noteID}/unseal.
type UnsealRequest struct {
	Reason string `json:"reason"`
}

func (r *UnsealRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > maxReasonLen {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

func parseViewers(raw []string) ([]id.ActorID, error) {
	if len(raw) > maxViewers {
		return nil, dErrors.New(dErrors.CodeValidation, "too many authorized viewers")
	}
	viewers := make([]id.ActorID, 0, len(raw))
	for _, v := range raw {
		actor, err := id.ParseActorID(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		viewers = append(viewers, actor)
	}
	return viewers, nil
}
