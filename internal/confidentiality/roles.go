package confidentiality

import (
	"sort"
	"strings"
)

// Role is an actor's role tag. Roles arrive as an unordered set of strings.
type Role string

const (
	RoleAdmin             Role = "ADMIN"
	RoleSupervisor        Role = "SUPERVISOR"
	RoleCaseManager       Role = "CASE_MANAGER"
	RoleCaseWorker        Role = "CASE_WORKER"
	RoleDVCounselor       Role = "DV_COUNSELOR"
	RoleClinician         Role = "CLINICIAN"
	RoleTherapist         Role = "THERAPIST"
	RoleLegalAdvocate     Role = "LEGAL_ADVOCATE"
	RoleAttorney          Role = "ATTORNEY"
	RoleSafetyCoordinator Role = "SAFETY_COORDINATOR"
	RoleMedicalStaff      Role = "MEDICAL_STAFF"
	RoleNurse             Role = "NURSE"
)

// RoleSet is an unordered set of roles. The zero value is an empty set.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from raw tags, trimming and upper-casing each.
// Blank tags are dropped.
func NewRoleSet(tags ...string) RoleSet {
	set := make(RoleSet, len(tags))
	for _, tag := range tags {
		tag = strings.ToUpper(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		set[Role(tag)] = struct{}{}
	}
	return set
}

func rolesOf(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Intersects reports whether the sets share any role.
func (s RoleSet) Intersects(other RoleSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for r := range small {
		if large.Has(r) {
			return true
		}
	}
	return false
}

// Sorted returns the roles in lexical order.
func (s RoleSet) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rule table shared by the note aggregate and the read path. Scopes absent
// from scopeRoles are decided by dedicated rules (PUBLIC, AUTHOR_ONLY,
// ATTORNEY_CLIENT) or denied.
var (
	scopeRoles = map[VisibilityScope]RoleSet{
		ScopeCaseTeam:     rolesOf(RoleCaseManager, RoleCaseWorker, RoleSupervisor, RoleAdmin),
		ScopeClinicalOnly: rolesOf(RoleClinician, RoleTherapist, RoleDVCounselor, RoleSupervisor),
		ScopeLegalTeam:    rolesOf(RoleLegalAdvocate, RoleAttorney, RoleSupervisor),
		ScopeSafetyTeam:   rolesOf(RoleSafetyCoordinator, RoleDVCounselor, RoleCaseManager, RoleSupervisor),
		ScopeMedicalTeam:  rolesOf(RoleMedicalStaff, RoleNurse, RoleClinician),
		ScopeAdminOnly:    rolesOf(RoleAdmin),
	}

	counselingRoles = rolesOf(RoleDVCounselor, RoleClinician, RoleTherapist)
	attorneyRoles   = rolesOf(RoleAttorney)
)

// ScopeRoles returns a copy of the roles designated for a role-gated scope,
// or nil for scopes decided by other rules.
func ScopeRoles(scope VisibilityScope) RoleSet {
	designated, ok := scopeRoles[scope]
	if !ok {
		return nil
	}
	out := make(RoleSet, len(designated))
	for r := range designated {
		out[r] = struct{}{}
	}
	return out
}
