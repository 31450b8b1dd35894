package models

import (
	"strings"

	dErrors "casework/pkg/domain-errors"
)

// CaseStatus is the lifecycle state of a case.
type CaseStatus string

const (
	CaseStatusOpen       CaseStatus = "OPEN"
	CaseStatusInProgress CaseStatus = "IN_PROGRESS"
	CaseStatusOnHold     CaseStatus = "ON_HOLD"
	CaseStatusClosed     CaseStatus = "CLOSED"
	CaseStatusCancelled  CaseStatus = "CANCELLED"
)

func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusOpen, CaseStatusInProgress, CaseStatusOnHold, CaseStatusClosed, CaseStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further writes are accepted in this status.
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusClosed || s == CaseStatusCancelled
}

// CanTransitionTo reports whether a status change from s to target is allowed.
// Any non-terminal status may move to any other status; terminal statuses
// never change.
func (s CaseStatus) CanTransitionTo(target CaseStatus) bool {
	return target.IsValid() && !s.IsTerminal() && s != target
}

func (s CaseStatus) String() string {
	return string(s)
}

// ParseCaseStatus normalizes and validates a status name.
func ParseCaseStatus(raw string) (CaseStatus, error) {
	s := CaseStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown case status: "+raw)
	}
	return s, nil
}

// Priority is the triage priority of a case.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func (p Priority) String() string {
	return string(p)
}

// ParsePriority accepts any casing, so "low" and "LOW" are the same priority.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown priority: "+raw)
	}
	return p, nil
}

// AssignmentType classifies a worker's responsibility on a case.
type AssignmentType string

const (
	AssignmentPrimary     AssignmentType = "PRIMARY"
	AssignmentSecondary   AssignmentType = "SECONDARY"
	AssignmentSupervisory AssignmentType = "SUPERVISORY"
	AssignmentConsulting  AssignmentType = "CONSULTING"
	AssignmentCoverage    AssignmentType = "COVERAGE"
)

func (t AssignmentType) IsValid() bool {
	switch t {
	case AssignmentPrimary, AssignmentSecondary, AssignmentSupervisory, AssignmentConsulting, AssignmentCoverage:
		return true
	}
	return false
}

func (t AssignmentType) String() string {
	return string(t)
}

// ParseAssignmentType normalizes and validates an assignment type.
func ParseAssignmentType(raw string) (AssignmentType, error) {
	t := AssignmentType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown assignment type: "+raw)
	}
	return t, nil
}

// LinkKind names the entity types a case can be linked to.
type LinkKind string

const (
	LinkProgramEnrollment LinkKind = "PROGRAM_ENROLLMENT"
	LinkServiceEpisode    LinkKind = "SERVICE_EPISODE"
	LinkSafetyPlan        LinkKind = "SAFETY_PLAN"
	LinkLegalAdvocacy     LinkKind = "LEGAL_ADVOCACY"
	LinkFinancialRequest  LinkKind = "FINANCIAL_REQUEST"
)

func (k LinkKind) IsValid() bool {
	switch k {
	case LinkProgramEnrollment, LinkServiceEpisode, LinkSafetyPlan, LinkLegalAdvocacy, LinkFinancialRequest:
		return true
	}
	return false
}

// ParseLinkKind normalizes and validates a link kind.
func ParseLinkKind(raw string) (LinkKind, error) {
	k := LinkKind(strings.ToUpper(strings.TrimSpace(raw)))
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown link kind: "+raw)
	}
	return k, nil
}
