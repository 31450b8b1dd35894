package service

import (
	"strconv"
	"time"

	"casework/internal/restrictednote/models"
)

// lifecycleMetadata picks the audit-relevant fields of a note event. Titles
// and content stay out of the audit trail.
func lifecycleMetadata(e models.Event) map[string]string {
	switch ev := e.(type) {
	case models.NoteCreated:
		return map[string]string{
			"client_id":        ev.ClientID.String(),
			"note_type":        string(ev.NoteType),
			"visibility_scope": string(ev.Scope),
			"viewer_count":     strconv.Itoa(len(ev.AuthorizedViewers)),
		}
	case models.NoteContentUpdated:
		return nil
	case models.VisibilityChanged:
		return map[string]string{
			"visibility_scope": string(ev.Scope),
			"viewer_count":     strconv.Itoa(len(ev.AuthorizedViewers)),
		}
	case models.NoteSealed:
		meta := map[string]string{
			"reason":       ev.Reason,
			"legal_basis":  ev.LegalBasis,
			"is_temporary": strconv.FormatBool(ev.IsTemporary),
		}
		if ev.ExpiresAt != nil {
			meta["expires_at"] = ev.ExpiresAt.Format(time.RFC3339)
		}
		return meta
	case models.NoteUnsealed:
		return map[string]string{"reason": ev.Reason}
	case models.SealExpired:
		return map[string]string{
			"reason":     "seal expired",
			"expired_at": ev.ExpiredAt.Format(time.RFC3339),
		}
	case models.NoteAccessed:
		return map[string]string{
			"access_type":   ev.AccessType,
			"rule_id":       ev.RuleID,
			"justification": ev.Justification,
		}
	}
	return nil
}
