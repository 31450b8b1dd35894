package handler

import (
	"casework/internal/casework/models"
	id "casework/pkg/domain"
)

// CaseResponse wraps the case snapshot. AssignmentID and NoteID are set by
// the endpoints that create them.
type CaseResponse struct {
	Case         models.CaseSnapshot `json:"case"`
	AssignmentID *id.AssignmentID    `json:"assignment_id,omitempty"`
	NoteID       *id.NoteID          `json:"note_id,omitempty"`
}

// CaseloadResponse lists the caller's open cases from the read model.
type CaseloadResponse struct {
	ActorID id.ActorID  `json:"actor_id"`
	Cases   []id.CaseID `json:"cases"`
}

func toCaseResponse(c *models.CaseRecord) *CaseResponse {
	return &CaseResponse{Case: c.Snapshot()}
}
