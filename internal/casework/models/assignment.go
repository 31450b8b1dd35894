package models

import (
	"time"

	id "casework/pkg/domain"
)

// ReasonReplacedByPrimary is recorded on a primary assignment that a new
// primary assignment ended.
const ReasonReplacedByPrimary = "replaced by new primary"

// Period is a start time and an optional end time.
type Period struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// IsOpen reports whether the period has not ended.
func (p Period) IsOpen() bool {
	return p.End == nil
}

func (p Period) clone() Period {
	if p.End != nil {
		end := *p.End
		p.End = &end
	}
	return p
}

// CaseAssignment is one worker's assignment to a case. Assignments move
// from active to ended exactly once and are kept forever as history.
type CaseAssignment struct {
	ID             id.AssignmentID `json:"assignment_id"`
	AssigneeID     id.ActorID      `json:"assignee_id"`
	AssigneeName   string          `json:"assignee_name"`
	Role           string          `json:"role"`
	AssignmentType AssignmentType  `json:"assignment_type"`
	Period         Period          `json:"period"`
	IsPrimary      bool            `json:"is_primary"`
	Reason         string          `json:"reason,omitempty"`
	AssignedBy     id.ActorID      `json:"assigned_by"`
	EndReason      string          `json:"end_reason,omitempty"`
	EndedBy        *id.ActorID     `json:"ended_by,omitempty"`
}

// IsActive reports whether the assignment has not ended.
func (a CaseAssignment) IsActive() bool {
	return a.Period.IsOpen()
}

// IsActivePrimary reports whether a is the case's current primary.
func (a CaseAssignment) IsActivePrimary() bool {
	return a.IsPrimary && a.IsActive()
}

func (a CaseAssignment) clone() CaseAssignment {
	a.Period = a.Period.clone()
	if a.EndedBy != nil {
		endedBy := *a.EndedBy
		a.EndedBy = &endedBy
	}
	return a
}

// CaseNote is a plain note attached to a case. Confidential content goes
// into a restricted note instead.
type CaseNote struct {
	ID         id.NoteID  `json:"note_id"`
	AuthorID   id.ActorID `json:"author_id"`
	AuthorName string     `json:"author_name"`
	Content    string     `json:"content"`
	AddedAt    time.Time  `json:"added_at"`
}
