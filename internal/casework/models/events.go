package models

import (
	"encoding/json"
	"time"

	"casework/internal/eventsource"
	id "casework/pkg/domain"
)

// AggregateType is the stream prefix for case records.
const AggregateType eventsource.AggregateType = "case"

const (
	KindCaseOpened             eventsource.Kind = "case.opened"
	KindWorkerAssigned         eventsource.Kind = "case.worker_assigned"
	KindAssignmentEnded        eventsource.Kind = "case.assignment_ended"
	KindNoteAdded              eventsource.Kind = "case.note_added"
	KindStatusChanged          eventsource.Kind = "case.status_changed"
	KindEnrollmentLinked       eventsource.Kind = "case.enrollment_linked"
	KindServiceEpisodeLinked   eventsource.Kind = "case.service_episode_linked"
	KindSafetyPlanLinked       eventsource.Kind = "case.safety_plan_linked"
	KindLegalAdvocacyLinked    eventsource.Kind = "case.legal_advocacy_linked"
	KindFinancialRequestLinked eventsource.Kind = "case.financial_request_linked"
	KindCaseClosed             eventsource.Kind = "case.closed"
)

// Event is the closed set of case record events. Only types in this file
// implement it.
type Event interface {
	eventsource.Event
	isCaseEvent()
}

type eventBase struct {
	At time.Time `json:"occurred_at"`
}

func (b eventBase) OccurredAt() time.Time { return b.At }
func (eventBase) isCaseEvent()            {}

func at(now time.Time) eventBase {
	return eventBase{At: eventsource.NormalizeTime(now)}
}

type CaseOpened struct {
	eventBase
	ClientID    id.ClientID `json:"client_id"`
	CaseType    string      `json:"case_type"`
	Priority    Priority    `json:"priority"`
	Description string      `json:"description,omitempty"`
	OpenedBy    id.ActorID  `json:"opened_by"`
}

// WorkerAssigned starts an assignment. When Replaces is set the named
// primary assignment ends in the same event.
type WorkerAssigned struct {
	eventBase
	AssignmentID   id.AssignmentID  `json:"assignment_id"`
	AssigneeID     id.ActorID       `json:"assignee_id"`
	AssigneeName   string           `json:"assignee_name"`
	Role           string           `json:"role"`
	AssignmentType AssignmentType   `json:"assignment_type"`
	Reason         string           `json:"reason,omitempty"`
	AssignedBy     id.ActorID       `json:"assigned_by"`
	Replaces       *id.AssignmentID `json:"replaces,omitempty"`
}

type AssignmentEnded struct {
	eventBase
	AssignmentID id.AssignmentID `json:"assignment_id"`
	Reason       string          `json:"reason"`
	EndedBy      id.ActorID      `json:"ended_by"`
}

type NoteAdded struct {
	eventBase
	NoteID     id.NoteID  `json:"note_id"`
	AuthorID   id.ActorID `json:"author_id"`
	AuthorName string     `json:"author_name"`
	Content    string     `json:"content"`
}

type StatusChanged struct {
	eventBase
	From      CaseStatus `json:"from"`
	To        CaseStatus `json:"to"`
	Reason    string     `json:"reason,omitempty"`
	ChangedBy id.ActorID `json:"changed_by"`
}

type EnrollmentLinked struct {
	eventBase
	EnrollmentID id.EnrollmentID `json:"enrollment_id"`
	LinkedBy     id.ActorID      `json:"linked_by"`
}

type ServiceEpisodeLinked struct {
	eventBase
	ServiceEpisodeID id.ServiceEpisodeID `json:"service_episode_id"`
	LinkedBy         id.ActorID          `json:"linked_by"`
}

type SafetyPlanLinked struct {
	eventBase
	SafetyPlanID id.SafetyPlanID `json:"safety_plan_id"`
	LinkedBy     id.ActorID      `json:"linked_by"`
}

type LegalAdvocacyLinked struct {
	eventBase
	LegalAdvocacyID id.LegalAdvocacyID `json:"legal_advocacy_id"`
	LinkedBy        id.ActorID         `json:"linked_by"`
}

type FinancialRequestLinked struct {
	eventBase
	FinancialRequestID id.FinancialRequestID `json:"financial_request_id"`
	LinkedBy           id.ActorID            `json:"linked_by"`
}

type CaseClosed struct {
	eventBase
	From     CaseStatus `json:"from"`
	Reason   string     `json:"reason"`
	ClosedBy id.ActorID `json:"closed_by"`
}

func (CaseOpened) EventKind() eventsource.Kind             { return KindCaseOpened }
func (WorkerAssigned) EventKind() eventsource.Kind         { return KindWorkerAssigned }
func (AssignmentEnded) EventKind() eventsource.Kind        { return KindAssignmentEnded }
func (NoteAdded) EventKind() eventsource.Kind              { return KindNoteAdded }
func (StatusChanged) EventKind() eventsource.Kind          { return KindStatusChanged }
func (EnrollmentLinked) EventKind() eventsource.Kind       { return KindEnrollmentLinked }
func (ServiceEpisodeLinked) EventKind() eventsource.Kind   { return KindServiceEpisodeLinked }
func (SafetyPlanLinked) EventKind() eventsource.Kind       { return KindSafetyPlanLinked }
func (LegalAdvocacyLinked) EventKind() eventsource.Kind    { return KindLegalAdvocacyLinked }
func (FinancialRequestLinked) EventKind() eventsource.Kind { return KindFinancialRequestLinked }
func (CaseClosed) EventKind() eventsource.Kind             { return KindCaseClosed }

// Codec decodes every case event kind. A kind missing here surfaces as a
// corrupt stream on load.
var Codec = eventsource.NewCodec[Event](AggregateType).
	Register(KindCaseOpened, decodeAs[CaseOpened]).
	Register(KindWorkerAssigned, decodeAs[WorkerAssigned]).
	Register(KindAssignmentEnded, decodeAs[AssignmentEnded]).
	Register(KindNoteAdded, decodeAs[NoteAdded]).
	Register(KindStatusChanged, decodeAs[StatusChanged]).
	Register(KindEnrollmentLinked, decodeAs[EnrollmentLinked]).
	Register(KindServiceEpisodeLinked, decodeAs[ServiceEpisodeLinked]).
	Register(KindSafetyPlanLinked, decodeAs[SafetyPlanLinked]).
	Register(KindLegalAdvocacyLinked, decodeAs[LegalAdvocacyLinked]).
	Register(KindFinancialRequestLinked, decodeAs[FinancialRequestLinked]).
	Register(KindCaseClosed, decodeAs[CaseClosed])

func decodeAs[T Event](data []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e, nil
}
