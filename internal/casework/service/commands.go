package service

import (
	"strings"

	"casework/internal/casework/models"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

type OpenCaseCommand struct {
	ClientID    id.ClientID
	CaseType    string
	Priority    models.Priority
	Description string
}

func (c OpenCaseCommand) Validate() error {
	if c.ClientID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "client_id is required")
	}
	if strings.TrimSpace(c.CaseType) == "" {
		return dErrors.New(dErrors.CodeValidation, "case_type is required")
	}
	if !c.Priority.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid priority: "+string(c.Priority))
	}
	return nil
}

type AssignWorkerCommand struct {
	AssigneeID     id.ActorID
	AssigneeName   string
	Role           string
	AssignmentType models.AssignmentType
	Reason         string
}

func (c AssignWorkerCommand) Validate() error {
	if c.AssigneeID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "assignee_id is required")
	}
	if !c.AssignmentType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid assignment type: "+string(c.AssignmentType))
	}
	return nil
}
