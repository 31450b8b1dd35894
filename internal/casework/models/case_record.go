package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"casework/internal/eventsource"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

// CaseRecord is the event-sourced aggregate for one client case.
//
// Invariants:
//   - State changes only through the operations below, each of which emits
//     exactly one event
//   - At most one assignment is an active primary
//   - Each linked entity set has unique members
//   - CLOSED and CANCELLED are terminal: every write except ending an
//     assignment is rejected
//   - Failed operations emit nothing
//
// Getters return copies; callers cannot reach internal slices.
type CaseRecord struct {
	eventsource.Root[Event]

	clientID    id.ClientID
	caseType    string
	priority    Priority
	description string
	status      CaseStatus
	period      Period
	openedBy    id.ActorID
	closeReason string
	updatedAt   time.Time

	notes             []CaseNote
	assignments       []CaseAssignment
	enrollments       []id.EnrollmentID
	serviceEpisodes   []id.ServiceEpisodeID
	safetyPlans       []id.SafetyPlanID
	legalAdvocacy     []id.LegalAdvocacyID
	financialRequests []id.FinancialRequestID
}

// New returns an empty case record ready for replay.
func New(caseID id.CaseID) *CaseRecord {
	return &CaseRecord{Root: eventsource.NewRoot[Event](uuid.UUID(caseID))}
}

// Factory adapts New for the repository.
func Factory(aggregateID uuid.UUID) *CaseRecord {
	return New(id.CaseID(aggregateID))
}

// Open creates a case in status OPEN.
func Open(caseID id.CaseID, clientID id.ClientID, caseType string, priority Priority, description string, openedBy id.ActorID, now time.Time) (*CaseRecord, error) {
	if caseID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "case id is required")
	}
	if clientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client id is required")
	}
	caseType = strings.TrimSpace(caseType)
	if caseType == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "case type is required")
	}
	if !priority.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid priority: "+string(priority))
	}
	c := New(caseID)
	c.Apply(CaseOpened{
		eventBase:   at(now),
		ClientID:    clientID,
		CaseType:    caseType,
		Priority:    priority,
		Description: description,
		OpenedBy:    openedBy,
	}, c.when)
	return c, nil
}

// ReplayEvent implements eventsource.Aggregate.
func (c *CaseRecord) ReplayEvent(e Event, sequence int64) error {
	return c.Replay(e, sequence, c.when)
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

// AssignTo starts a new assignment. A PRIMARY assignment ends the current
// active primary with ReasonReplacedByPrimary in the same event.
func (c *CaseRecord) AssignTo(assignmentID id.AssignmentID, assigneeID id.ActorID, assigneeName, role string, assignmentType AssignmentType, reason string, assignedBy id.ActorID, now time.Time) error {
	if err := c.CanAssign(assignmentID, assigneeID, assignmentType); err != nil {
		return err
	}
	var replaces *id.AssignmentID
	if assignmentType == AssignmentPrimary {
		if current, ok := c.activePrimary(); ok {
			prior := current.ID
			replaces = &prior
		}
	}
	c.Apply(WorkerAssigned{
		eventBase:      at(now),
		AssignmentID:   assignmentID,
		AssigneeID:     assigneeID,
		AssigneeName:   strings.TrimSpace(assigneeName),
		Role:           strings.TrimSpace(role),
		AssignmentType: assignmentType,
		Reason:         reason,
		AssignedBy:     assignedBy,
		Replaces:       replaces,
	}, c.when)
	return nil
}

// CanAssign checks AssignTo's preconditions without emitting anything.
func (c *CaseRecord) CanAssign(assignmentID id.AssignmentID, assigneeID id.ActorID, assignmentType AssignmentType) error {
	if err := c.requireOpened(); err != nil {
		return err
	}
	if c.status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot assign workers to a "+strings.ToLower(string(c.status))+" case")
	}
	if assignmentID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "assignment id is required")
	}
	if assigneeID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "assignee id is required")
	}
	if !assignmentType.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid assignment type: "+string(assignmentType))
	}
	if _, ok := c.findAssignment(assignmentID); ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "assignment id already used on this case")
	}
	return nil
}

// EndAssignment ends an active assignment. Allowed on terminal cases so
// workers can be released after closure.
func (c *CaseRecord) EndAssignment(assignmentID id.AssignmentID, reason string, endedBy id.ActorID, now time.Time) error {
	if err := c.requireOpened(); err != nil {
		return err
	}
	i, ok := c.findAssignment(assignmentID)
	if !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "assignment not found: "+assignmentID.String())
	}
	if !c.assignments[i].IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "assignment already ended")
	}
	c.Apply(AssignmentEnded{
		eventBase:    at(now),
		AssignmentID: assignmentID,
		Reason:       reason,
		EndedBy:      endedBy,
	}, c.when)
	return nil
}

// AddNote appends a plain case note.
func (c *CaseRecord) AddNote(noteID id.NoteID, authorID id.ActorID, authorName, content string, now time.Time) error {
	if err := c.requireWritable(); err != nil {
		return err
	}
	if noteID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "note id is required")
	}
	if strings.TrimSpace(content) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "note content is required")
	}
	for _, n := range c.notes {
		if n.ID == noteID {
			return dErrors.New(dErrors.CodeInvariantViolation, "note id already used on this case")
		}
	}
	c.Apply(NoteAdded{
		eventBase:  at(now),
		NoteID:     noteID,
		AuthorID:   authorID,
		AuthorName: authorName,
		Content:    content,
	}, c.when)
	return nil
}

// UpdateStatus moves the case to target. Returns changed=false without
// emitting anything when the status is already target.
func (c *CaseRecord) UpdateStatus(target CaseStatus, reason string, changedBy id.ActorID, now time.Time) (changed bool, err error) {
	if err := c.requireOpened(); err != nil {
		return false, err
	}
	if !target.IsValid() {
		return false, dErrors.New(dErrors.CodeInvariantViolation, "invalid case status: "+string(target))
	}
	if c.status == target {
		return false, nil
	}
	if !c.status.CanTransitionTo(target) {
		return false, dErrors.New(dErrors.CodeInvariantViolation, "cannot change status of a "+strings.ToLower(string(c.status))+" case")
	}
	c.Apply(StatusChanged{
		eventBase: at(now),
		From:      c.status,
		To:        target,
		Reason:    reason,
		ChangedBy: changedBy,
	}, c.when)
	return true, nil
}

// Close moves the case to CLOSED and ends its period.
func (c *CaseRecord) Close(reason string, closedBy id.ActorID, now time.Time) error {
	if err := c.requireOpened(); err != nil {
		return err
	}
	if c.status == CaseStatusClosed {
		return dErrors.New(dErrors.CodeInvariantViolation, "case is already closed")
	}
	if c.status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot close a "+strings.ToLower(string(c.status))+" case")
	}
	c.Apply(CaseClosed{
		eventBase: at(now),
		From:      c.status,
		Reason:    reason,
		ClosedBy:  closedBy,
	}, c.when)
	return nil
}

func (c *CaseRecord) LinkProgramEnrollment(enrollmentID id.EnrollmentID, linkedBy id.ActorID, now time.Time) error {
	if err := c.canLink(enrollmentID.IsNil(), contains(c.enrollments, enrollmentID), "program enrollment"); err != nil {
		return err
	}
	c.Apply(EnrollmentLinked{eventBase: at(now), EnrollmentID: enrollmentID, LinkedBy: linkedBy}, c.when)
	return nil
}

func (c *CaseRecord) LinkServiceEpisode(episodeID id.ServiceEpisodeID, linkedBy id.ActorID, now time.Time) error {
	if err := c.canLink(episodeID.IsNil(), contains(c.serviceEpisodes, episodeID), "service episode"); err != nil {
		return err
	}
	c.Apply(ServiceEpisodeLinked{eventBase: at(now), ServiceEpisodeID: episodeID, LinkedBy: linkedBy}, c.when)
	return nil
}

func (c *CaseRecord) LinkSafetyPlan(planID id.SafetyPlanID, linkedBy id.ActorID, now time.Time) error {
	if err := c.canLink(planID.IsNil(), contains(c.safetyPlans, planID), "safety plan"); err != nil {
		return err
	}
	c.Apply(SafetyPlanLinked{eventBase: at(now), SafetyPlanID: planID, LinkedBy: linkedBy}, c.when)
	return nil
}

func (c *CaseRecord) LinkLegalAdvocacy(advocacyID id.LegalAdvocacyID, linkedBy id.ActorID, now time.Time) error {
	if err := c.canLink(advocacyID.IsNil(), contains(c.legalAdvocacy, advocacyID), "legal advocacy case"); err != nil {
		return err
	}
	c.Apply(LegalAdvocacyLinked{eventBase: at(now), LegalAdvocacyID: advocacyID, LinkedBy: linkedBy}, c.when)
	return nil
}

func (c *CaseRecord) LinkFinancialRequest(requestID id.FinancialRequestID, linkedBy id.ActorID, now time.Time) error {
	if err := c.canLink(requestID.IsNil(), contains(c.financialRequests, requestID), "financial request"); err != nil {
		return err
	}
	c.Apply(FinancialRequestLinked{eventBase: at(now), FinancialRequestID: requestID, LinkedBy: linkedBy}, c.when)
	return nil
}

func (c *CaseRecord) canLink(isNil, alreadyLinked bool, label string) error {
	if err := c.requireWritable(); err != nil {
		return err
	}
	if isNil {
		return dErrors.New(dErrors.CodeInvariantViolation, label+" id is required")
	}
	if alreadyLinked {
		return dErrors.New(dErrors.CodeInvariantViolation, label+" is already linked to this case")
	}
	return nil
}

func (c *CaseRecord) requireOpened() error {
	if c.Version() == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "case has not been opened")
	}
	return nil
}

func (c *CaseRecord) requireWritable() error {
	if err := c.requireOpened(); err != nil {
		return err
	}
	if c.status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "case is "+strings.ToLower(string(c.status))+" and accepts no further changes")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Event application
// -----------------------------------------------------------------------------

// when is the single dispatch over the closed event set. The default branch
// is only reachable through a stream written by a newer build.
func (c *CaseRecord) when(e Event) error {
	switch ev := e.(type) {
	case CaseOpened:
		c.clientID = ev.ClientID
		c.caseType = ev.CaseType
		c.priority = ev.Priority
		c.description = ev.Description
		c.openedBy = ev.OpenedBy
		c.status = CaseStatusOpen
		c.period = Period{Start: ev.At}
	case WorkerAssigned:
		if ev.Replaces != nil {
			c.endAssignment(*ev.Replaces, ReasonReplacedByPrimary, ev.AssignedBy, ev.At)
		}
		c.assignments = append(c.assignments, CaseAssignment{
			ID:             ev.AssignmentID,
			AssigneeID:     ev.AssigneeID,
			AssigneeName:   ev.AssigneeName,
			Role:           ev.Role,
			AssignmentType: ev.AssignmentType,
			Period:         Period{Start: ev.At},
			IsPrimary:      ev.AssignmentType == AssignmentPrimary,
			Reason:         ev.Reason,
			AssignedBy:     ev.AssignedBy,
		})
	case AssignmentEnded:
		c.endAssignment(ev.AssignmentID, ev.Reason, ev.EndedBy, ev.At)
	case NoteAdded:
		c.notes = append(c.notes, CaseNote{
			ID:         ev.NoteID,
			AuthorID:   ev.AuthorID,
			AuthorName: ev.AuthorName,
			Content:    ev.Content,
			AddedAt:    ev.At,
		})
	case StatusChanged:
		c.status = ev.To
		if ev.To.IsTerminal() {
			end := ev.At
			c.period.End = &end
			c.closeReason = ev.Reason
		}
	case EnrollmentLinked:
		c.enrollments = append(c.enrollments, ev.EnrollmentID)
	case ServiceEpisodeLinked:
		c.serviceEpisodes = append(c.serviceEpisodes, ev.ServiceEpisodeID)
	case SafetyPlanLinked:
		c.safetyPlans = append(c.safetyPlans, ev.SafetyPlanID)
	case LegalAdvocacyLinked:
		c.legalAdvocacy = append(c.legalAdvocacy, ev.LegalAdvocacyID)
	case FinancialRequestLinked:
		c.financialRequests = append(c.financialRequests, ev.FinancialRequestID)
	case CaseClosed:
		c.status = CaseStatusClosed
		end := ev.At
		c.period.End = &end
		c.closeReason = ev.Reason
	default:
		return eventsource.UnhandledEvent(e)
	}
	c.updatedAt = e.OccurredAt()
	return nil
}

func (c *CaseRecord) endAssignment(assignmentID id.AssignmentID, reason string, endedBy id.ActorID, endedAt time.Time) {
	i, ok := c.findAssignment(assignmentID)
	if !ok || !c.assignments[i].IsActive() {
		return
	}
	end := endedAt
	by := endedBy
	c.assignments[i].Period.End = &end
	c.assignments[i].EndReason = reason
	c.assignments[i].EndedBy = &by
}

func (c *CaseRecord) findAssignment(assignmentID id.AssignmentID) (int, bool) {
	for i := range c.assignments {
		if c.assignments[i].ID == assignmentID {
			return i, true
		}
	}
	return -1, false
}

func (c *CaseRecord) activePrimary() (CaseAssignment, bool) {
	for _, a := range c.assignments {
		if a.IsActivePrimary() {
			return a, true
		}
	}
	return CaseAssignment{}, false
}

func contains[T comparable](items []T, target T) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

func (c *CaseRecord) CaseID() id.CaseID     { return id.CaseID(c.ID()) }
func (c *CaseRecord) ClientID() id.ClientID { return c.clientID }
func (c *CaseRecord) CaseType() string      { return c.caseType }
func (c *CaseRecord) Priority() Priority    { return c.priority }
func (c *CaseRecord) Description() string   { return c.description }
func (c *CaseRecord) Status() CaseStatus    { return c.status }
func (c *CaseRecord) OpenedBy() id.ActorID  { return c.openedBy }
func (c *CaseRecord) CloseReason() string   { return c.closeReason }
func (c *CaseRecord) UpdatedAt() time.Time  { return c.updatedAt }
func (c *CaseRecord) Period() Period        { return c.period.clone() }
func (c *CaseRecord) IsTerminal() bool      { return c.status.IsTerminal() }
func (c *CaseRecord) Notes() []CaseNote     { return cloneSlice(c.notes) }
func (c *CaseRecord) Enrollments() []id.EnrollmentID {
	return cloneSlice(c.enrollments)
}
func (c *CaseRecord) ServiceEpisodes() []id.ServiceEpisodeID {
	return cloneSlice(c.serviceEpisodes)
}
func (c *CaseRecord) SafetyPlans() []id.SafetyPlanID {
	return cloneSlice(c.safetyPlans)
}
func (c *CaseRecord) LegalAdvocacyCases() []id.LegalAdvocacyID {
	return cloneSlice(c.legalAdvocacy)
}
func (c *CaseRecord) FinancialRequests() []id.FinancialRequestID {
	return cloneSlice(c.financialRequests)
}

// AssignmentHistory returns every assignment, active and ended, in the order
// they were made.
func (c *CaseRecord) AssignmentHistory() []CaseAssignment {
	out := make([]CaseAssignment, len(c.assignments))
	for i, a := range c.assignments {
		out[i] = a.clone()
	}
	return out
}

// ActiveAssignments returns the assignments that have not ended.
func (c *CaseRecord) ActiveAssignments() []CaseAssignment {
	var out []CaseAssignment
	for _, a := range c.assignments {
		if a.IsActive() {
			out = append(out, a.clone())
		}
	}
	return out
}

// ActivePrimary returns the current primary assignment, if any.
func (c *CaseRecord) ActivePrimary() (CaseAssignment, bool) {
	a, ok := c.activePrimary()
	if !ok {
		return CaseAssignment{}, false
	}
	return a.clone(), true
}

// Assignment returns one assignment by id.
func (c *CaseRecord) Assignment(assignmentID id.AssignmentID) (CaseAssignment, bool) {
	i, ok := c.findAssignment(assignmentID)
	if !ok {
		return CaseAssignment{}, false
	}
	return c.assignments[i].clone(), true
}

func cloneSlice[T any](in []T) []T {
	if len(in) == 0 {
		return []T{}
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
