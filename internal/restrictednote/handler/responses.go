package handler

import (
	"casework/internal/confidentiality"
	"casework/internal/restrictednote/models"
)

// NoteResponse wraps a note snapshot.
type NoteResponse struct {
	Note models.NoteSnapshot `json:"note"`
}

// ViewNoteResponse carries the note together with the access decision
// that released it.
type ViewNoteResponse struct {
	Note     models.NoteSnapshot      `json:"note"`
	Decision confidentiality.Decision `json:"decision"`
}

func toNoteResponse(n *models.RestrictedNote) *NoteResponse {
	return &NoteResponse{Note: n.Snapshot()}
}
