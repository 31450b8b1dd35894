package models

import (
	"time"

	"casework/internal/confidentiality"
	id "casework/pkg/domain"
)

// NoteSnapshot is a detached, serializable view of a restricted note.
type NoteSnapshot struct {
	ID                id.NoteID                       `json:"note_id"`
	Version           int64                           `json:"version"`
	ClientID          id.ClientID                     `json:"client_id"`
	CaseID            id.CaseID                       `json:"case_id"`
	NoteType          confidentiality.NoteType        `json:"note_type"`
	Scope             confidentiality.VisibilityScope `json:"visibility_scope"`
	Title             string                          `json:"title"`
	Content           string                          `json:"content"`
	AuthorID          id.ActorID                      `json:"author_id"`
	AuthorName        string                          `json:"author_name"`
	CreatedAt         time.Time                       `json:"created_at"`
	LastModified      time.Time                       `json:"last_modified"`
	AuthorizedViewers []id.ActorID                    `json:"authorized_viewers"`
	Seal              *Seal                           `json:"seal,omitempty"`
}

// Snapshot copies the full observable state.
func (n *RestrictedNote) Snapshot() NoteSnapshot {
	snap := NoteSnapshot{
		ID:                n.NoteID(),
		Version:           n.Version(),
		ClientID:          n.clientID,
		CaseID:            n.caseID,
		NoteType:          n.noteType,
		Scope:             n.scope,
		Title:             n.title,
		Content:           n.content,
		AuthorID:          n.authorID,
		AuthorName:        n.authorName,
		CreatedAt:         n.createdAt,
		LastModified:      n.lastModified,
		AuthorizedViewers: n.AuthorizedViewers(),
	}
	if seal, ok := n.CurrentSeal(); ok {
		snap.Seal = &seal
	}
	return snap
}
