// Package confidentiality decides who may see a restricted note.
//
// Decide is a pure function over a note snapshot and an actor. The note
// aggregate's own visibility check and the service read path both call it,
// so there is exactly one rule table. Rules are evaluated in a fixed order
// and the first match wins:
//
//  1. sealed and actor is not the sealer: deny
//  2. non-empty allow-list: allow iff actor is listed
//  3. privileged counseling note: allow iff counseling role or author
//  4. scope dispatch; anything unmatched is denied
package confidentiality

import (
	"fmt"

	id "casework/pkg/domain"
)

// Rule identifiers recorded with every decision.
const (
	RuleSealedNonSealer      = "sealed_non_sealer"
	RuleAllowList            = "allow_list"
	RulePrivilegedCounseling = "privileged_counseling"
	RuleScopePublic          = "scope_public"
	RuleScopeRole            = "scope_role"
	RuleScopeAuthorOnly      = "scope_author_only"
	RuleScopeAttorneyClient  = "scope_attorney_client"
	RuleScopeUnmatched       = "scope_unmatched"
)

// NoteSnapshot is the subset of note state the policy needs.
type NoteSnapshot struct {
	NoteID            id.NoteID
	NoteType          NoteType
	Scope             VisibilityScope
	AuthorID          id.ActorID
	AuthorizedViewers []id.ActorID
	Sealed            bool
	SealedBy          id.ActorID
}

// Actor is who is asking.
type Actor struct {
	ID    id.ActorID
	Roles RoleSet
}

// NewActor builds an Actor from raw role tags.
func NewActor(actorID id.ActorID, roles ...string) Actor {
	return Actor{ID: actorID, Roles: NewRoleSet(roles...)}
}

// Decision is an explainable allow or deny. It is re-derivable from the
// inputs and never persisted as source of truth.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	RuleID  string `json:"rule_id"`
}

func allow(rule, reason string) Decision {
	return Decision{Allowed: true, Reason: reason, RuleID: rule}
}

func deny(rule, reason string) Decision {
	return Decision{Allowed: false, Reason: reason, RuleID: rule}
}

// Decide evaluates the visibility rules for actor against note.
// It never fails; an unmatched scope is an explicit deny.
func Decide(note NoteSnapshot, actor Actor) Decision {
	if note.Sealed && actor.ID != note.SealedBy {
		return deny(RuleSealedNonSealer, "note is sealed and actor is not the sealer")
	}

	if len(note.AuthorizedViewers) > 0 {
		for _, viewer := range note.AuthorizedViewers {
			if viewer == actor.ID {
				return allow(RuleAllowList, "actor is on the note's authorized viewer list")
			}
		}
		return deny(RuleAllowList, "note has an authorized viewer list and actor is not on it")
	}

	isAuthor := !note.AuthorID.IsNil() && actor.ID == note.AuthorID

	if note.NoteType == NoteTypePrivilegedCounseling {
		switch {
		case actor.Roles.Intersects(counselingRoles):
			return allow(RulePrivilegedCounseling, "actor holds a counseling role")
		case isAuthor:
			return allow(RulePrivilegedCounseling, "actor authored the privileged counseling note")
		default:
			return deny(RulePrivilegedCounseling, "privileged counseling notes require a counseling role")
		}
	}

	switch note.Scope {
	case ScopePublic:
		return allow(RuleScopePublic, "note is public")
	case ScopeAuthorOnly:
		if isAuthor {
			return allow(RuleScopeAuthorOnly, "actor is the author")
		}
		return deny(RuleScopeAuthorOnly, "note is visible to its author only")
	case ScopeAttorneyClient:
		if actor.Roles.Intersects(attorneyRoles) {
			return allow(RuleScopeAttorneyClient, "actor holds an attorney role")
		}
		if isAuthor {
			return allow(RuleScopeAttorneyClient, "actor is the author")
		}
		return deny(RuleScopeAttorneyClient, "attorney-client notes require an attorney role")
	}

	if designated, ok := scopeRoles[note.Scope]; ok {
		if actor.Roles.Intersects(designated) {
			return allow(RuleScopeRole, fmt.Sprintf("actor holds a role designated for %s", note.Scope))
		}
		return deny(RuleScopeRole, fmt.Sprintf("actor holds no role designated for %s", note.Scope))
	}

	return deny(RuleScopeUnmatched, fmt.Sprintf("no visibility rule matches scope %q", note.Scope))
}

// IsVisible is Decide reduced to its verdict.
func IsVisible(note NoteSnapshot, actor Actor) bool {
	return Decide(note, actor).Allowed
}

// RequiresSpecialHandling reports whether access to note should be logged
// under the stricter audit category. It does not affect access.
func RequiresSpecialHandling(note NoteSnapshot) bool {
	switch {
	case note.Scope == ScopeAttorneyClient, note.Scope == ScopeAuthorOnly:
		return true
	case note.NoteType == NoteTypePrivilegedCounseling:
		return true
	default:
		return note.Sealed
	}
}
