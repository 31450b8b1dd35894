package service

import (
	"casework/internal/casework/models"
)

// lifecycleMetadata picks the audit-relevant fields of a case event. Note
// content is never copied into the audit trail.
func lifecycleMetadata(e models.Event) map[string]string {
	switch ev := e.(type) {
	case models.CaseOpened:
		return map[string]string{
			"client_id": ev.ClientID.String(),
			"case_type": ev.CaseType,
			"priority":  string(ev.Priority),
		}
	case models.WorkerAssigned:
		meta := map[string]string{
			"assignment_id":   ev.AssignmentID.String(),
			"assignee_id":     ev.AssigneeID.String(),
			"assignment_type": string(ev.AssignmentType),
			"reason":          ev.Reason,
		}
		if ev.Replaces != nil {
			meta["replaces"] = ev.Replaces.String()
		}
		return meta
	case models.AssignmentEnded:
		return map[string]string{
			"assignment_id": ev.AssignmentID.String(),
			"reason":        ev.Reason,
		}
	case models.NoteAdded:
		return map[string]string{"note_id": ev.NoteID.String()}
	case models.StatusChanged:
		return map[string]string{
			"from":   string(ev.From),
			"to":     string(ev.To),
			"reason": ev.Reason,
		}
	case models.EnrollmentLinked:
		return linked(models.LinkProgramEnrollment, ev.EnrollmentID.String())
	case models.ServiceEpisodeLinked:
		return linked(models.LinkServiceEpisode, ev.ServiceEpisodeID.String())
	case models.SafetyPlanLinked:
		return linked(models.LinkSafetyPlan, ev.SafetyPlanID.String())
	case models.LegalAdvocacyLinked:
		return linked(models.LinkLegalAdvocacy, ev.LegalAdvocacyID.String())
	case models.FinancialRequestLinked:
		return linked(models.LinkFinancialRequest, ev.FinancialRequestID.String())
	case models.CaseClosed:
		return map[string]string{
			"from":   string(ev.From),
			"reason": ev.Reason,
		}
	}
	return nil
}

func linked(kind models.LinkKind, target string) map[string]string {
	return map[string]string{"link_kind": string(kind), "linked_id": target}
}
