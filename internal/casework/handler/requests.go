package handler

import (
	"strings"

	"github.com/google/uuid"

	"casework/internal/casework/models"
	"casework/internal/casework/service"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

const (
	maxReasonLen      = 1000
	maxDescriptionLen = 4000
	maxNoteLen        = 20000
)

// OpenCaseRequest is the body of POST /cases.
type OpenCaseRequest struct {
	ClientID    string `json:"client_id"`
	CaseType    string `json:"case_type"`
	Priority    string `json:"priority"`
	Description string `json:"description"`

	cmd service.OpenCaseCommand
}

func (r *OpenCaseRequest) Validate() error {
	if len(r.Description) > maxDescriptionLen {
		return dErrors.New(dErrors.CodeValidation, "description is too long")
	}
	clientID, err := id.ParseClientID(strings.TrimSpace(r.ClientID))
	if err != nil {
		return err
	}
	priority := models.PriorityMedium
	if strings.TrimSpace(r.Priority) != "" {
		if priority, err = models.ParsePriority(r.Priority); err != nil {
			return err
		}
	}
	r.cmd = service.OpenCaseCommand{
		ClientID:    clientID,
		CaseType:    strings.TrimSpace(r.CaseType),
		Priority:    priority,
		Description: strings.TrimSpace(r.Description),
	}
	return r.cmd.Validate()
}

func (r *OpenCaseRequest) Command() service.OpenCaseCommand { return r.cmd }

// AssignWorkerRequest is the body of POST /cases/{caseID}/assignments.
type AssignWorkerRequest struct {
	AssigneeID     string `json:"assignee_id"`
	AssigneeName   string `json:"assignee_name"`
	Role           string `json:"role"`
	AssignmentType string `json:"assignment_type"`
	Reason         string `json:"reason"`

	cmd service.AssignWorkerCommand
}

func (r *AssignWorkerRequest) Validate() error {
	if len(r.Reason) > maxReasonLen {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	assignee, err := id.ParseActorID(strings.TrimSpace(r.AssigneeID))
	if err != nil {
		return err
	}
	kind, err := models.ParseAssignmentType(r.AssignmentType)
	if err != nil {
		return err
	}
	r.cmd = service.AssignWorkerCommand{
		AssigneeID:     assignee,
		AssigneeName:   strings.TrimSpace(r.AssigneeName),
		Role:           strings.TrimSpace(r.Role),
		AssignmentType: kind,
		Reason:         strings.TrimSpace(r.Reason),
	}
	return r.cmd.Validate()
}

func (r *AssignWorkerRequest) Command() service.AssignWorkerCommand { return r.cmd }

// ReasonRequest is the body of the end-assignment and close endpoints.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > maxReasonLen {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

// UpdateStatusRequest is the body of POST /cases/{caseID}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`

	status models.CaseStatus
}

func (r *UpdateStatusRequest) Validate() error {
	if len(r.Reason) > maxReasonLen {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	status, err := models.ParseCaseStatus(r.Status)
	if err != nil {
		return err
	}
	r.status = status
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

// AddNoteRequest is the body of POST /cases/{caseID}/notes.
type AddNoteRequest struct {
	Content string `json:"content"`
}

func (r *AddNoteRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	if r.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	if len(r.Content) > maxNoteLen {
		return dErrors.New(dErrors.CodeValidation, "content is too long")
	}
	return nil
}

// LinkRequest is the body of POST /cases/{caseID}/links.
type LinkRequest struct {
	Kind     string `json:"kind"`
	TargetID string `json:"target_id"`

	kind   models.LinkKind
	target uuid.UUID
}

func (r *LinkRequest) Validate() error {
	kind, err := models.ParseLinkKind(r.Kind)
	if err != nil {
		return err
	}
	target, err := uuid.Parse(strings.TrimSpace(r.TargetID))
	if err != nil || target == uuid.Nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid target_id")
	}
	r.kind = kind
	r.target = target
	return nil
}
