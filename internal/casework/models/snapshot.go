package models

import (
	"time"

	id "casework/pkg/domain"
)

// CaseSnapshot is a detached, serializable view of a case record.
type CaseSnapshot struct {
	ID                 id.CaseID               `json:"case_id"`
	Version            int64                   `json:"version"`
	ClientID           id.ClientID             `json:"client_id"`
	CaseType           string                  `json:"case_type"`
	Priority           Priority                `json:"priority"`
	Description        string                  `json:"description,omitempty"`
	Status             CaseStatus              `json:"status"`
	Period             Period                  `json:"period"`
	OpenedBy           id.ActorID              `json:"opened_by"`
	CloseReason        string                  `json:"close_reason,omitempty"`
	UpdatedAt          time.Time               `json:"updated_at"`
	Notes              []CaseNote              `json:"notes"`
	Assignments        []CaseAssignment        `json:"assignments"`
	Enrollments        []id.EnrollmentID       `json:"enrollments"`
	ServiceEpisodes    []id.ServiceEpisodeID   `json:"service_episodes"`
	SafetyPlans        []id.SafetyPlanID       `json:"safety_plans"`
	LegalAdvocacyCases []id.LegalAdvocacyID    `json:"legal_advocacy_cases"`
	FinancialRequests  []id.FinancialRequestID `json:"financial_requests"`
}

// Snapshot copies the full observable state.
func (c *CaseRecord) Snapshot() CaseSnapshot {
	return CaseSnapshot{
		ID:                 c.CaseID(),
		Version:            c.Version(),
		ClientID:           c.clientID,
		CaseType:           c.caseType,
		Priority:           c.priority,
		Description:        c.description,
		Status:             c.status,
		Period:             c.Period(),
		OpenedBy:           c.openedBy,
		CloseReason:        c.closeReason,
		UpdatedAt:          c.updatedAt,
		Notes:              c.Notes(),
		Assignments:        c.AssignmentHistory(),
		Enrollments:        c.Enrollments(),
		ServiceEpisodes:    c.ServiceEpisodes(),
		SafetyPlans:        c.SafetyPlans(),
		LegalAdvocacyCases: c.LegalAdvocacyCases(),
		FinancialRequests:  c.FinancialRequests(),
	}
}
