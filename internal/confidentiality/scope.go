package confidentiality

import (
	"strings"

	dErrors "casework/pkg/domain-errors"
)

// VisibilityScope is the confidentiality tier controlling which roles may see
// a note by default.
type VisibilityScope string

const (
	ScopePublic         VisibilityScope = "PUBLIC"
	ScopeCaseTeam       VisibilityScope = "CASE_TEAM"
	ScopeClinicalOnly   VisibilityScope = "CLINICAL_ONLY"
	ScopeLegalTeam      VisibilityScope = "LEGAL_TEAM"
	ScopeSafetyTeam     VisibilityScope = "SAFETY_TEAM"
	ScopeMedicalTeam    VisibilityScope = "MEDICAL_TEAM"
	ScopeAdminOnly      VisibilityScope = "ADMIN_ONLY"
	ScopeAuthorOnly     VisibilityScope = "AUTHOR_ONLY"
	ScopeAttorneyClient VisibilityScope = "ATTORNEY_CLIENT"
	ScopeCustom         VisibilityScope = "CUSTOM"
)

var validScopes = map[VisibilityScope]struct{}{
	ScopePublic:         {},
	ScopeCaseTeam:       {},
	ScopeClinicalOnly:   {},
	ScopeLegalTeam:      {},
	ScopeSafetyTeam:     {},
	ScopeMedicalTeam:    {},
	ScopeAdminOnly:      {},
	ScopeAuthorOnly:     {},
	ScopeAttorneyClient: {},
	ScopeCustom:         {},
}

// IsValid reports whether s is one of the known scopes.
func (s VisibilityScope) IsValid() bool {
	_, ok := validScopes[s]
	return ok
}

func (s VisibilityScope) String() string {
	return string(s)
}

// ParseVisibilityScope normalizes and validates a scope name.
func ParseVisibilityScope(raw string) (VisibilityScope, error) {
	s := VisibilityScope(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown visibility scope: "+raw)
	}
	return s, nil
}

// NoteType is the closed set of restricted note kinds. Each carries a
// default visibility scope.
type NoteType string

const (
	NoteTypeGeneral               NoteType = "GENERAL"
	NoteTypeCaseManagement        NoteType = "CASE_MANAGEMENT"
	NoteTypePrivilegedCounseling  NoteType = "PRIVILEGED_COUNSELING"
	NoteTypeClinical              NoteType = "CLINICAL"
	NoteTypeMedical               NoteType = "MEDICAL"
	NoteTypeLegalAdvocacy         NoteType = "LEGAL_ADVOCACY"
	NoteTypeAttorneyCommunication NoteType = "ATTORNEY_COMMUNICATION"
	NoteTypeSafetyPlan            NoteType = "SAFETY_PLAN"
	NoteTypeAdministrative        NoteType = "ADMINISTRATIVE"
	NoteTypePersonalObservation   NoteType = "PERSONAL_OBSERVATION"
	NoteTypePublicSummary         NoteType = "PUBLIC_SUMMARY"
)

var defaultScopes = map[NoteType]VisibilityScope{
	NoteTypeGeneral:               ScopeCaseTeam,
	NoteTypeCaseManagement:        ScopeCaseTeam,
	NoteTypePrivilegedCounseling:  ScopeClinicalOnly,
	NoteTypeClinical:              ScopeClinicalOnly,
	NoteTypeMedical:               ScopeMedicalTeam,
	NoteTypeLegalAdvocacy:         ScopeLegalTeam,
	NoteTypeAttorneyCommunication: ScopeAttorneyClient,
	NoteTypeSafetyPlan:            ScopeSafetyTeam,
	NoteTypeAdministrative:        ScopeAdminOnly,
	NoteTypePersonalObservation:   ScopeAuthorOnly,
	NoteTypePublicSummary:         ScopePublic,
}

// IsValid reports whether t is one of the known note types.
func (t NoteType) IsValid() bool {
	_, ok := defaultScopes[t]
	return ok
}

func (t NoteType) String() string {
	return string(t)
}

// DefaultScope returns the scope a note of this type gets when the author
// does not choose one. Unknown types fall back to the most restrictive
// author-only scope.
func (t NoteType) DefaultScope() VisibilityScope {
	if s, ok := defaultScopes[t]; ok {
		return s
	}
	return ScopeAuthorOnly
}

// ParseNoteType normalizes and validates a note type name.
func ParseNoteType(raw string) (NoteType, error) {
	t := NoteType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown note type: "+raw)
	}
	return t, nil
}
