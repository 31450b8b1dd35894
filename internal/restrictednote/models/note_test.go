package models

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"casework/internal/confidentiality"
	"casework/internal/eventsource"
	"casework/internal/eventsource/store/memory"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

type RestrictedNoteSuite struct {
	suite.Suite
	now    time.Time
	author id.ActorID
}

func TestRestrictedNoteSuite(t *testing.T) {
	suite.Run(t, new(RestrictedNoteSuite))
}

func (s *RestrictedNoteSuite) SetupTest() {
	s.now = time.Date(2026, 5, 11, 9, 30, 0, 0, time.UTC)
	s.author = id.ActorID(uuid.New())
}

func (s *RestrictedNoteSuite) tick() time.Time {
	s.now = s.now.Add(time.Minute)
	return s.now
}

func (s *RestrictedNoteSuite) create(noteType confidentiality.NoteType, scope confidentiality.VisibilityScope, viewers ...id.ActorID) *RestrictedNote {
	n, err := Create(CreateParams{
		NoteID:            id.NoteID(uuid.New()),
		ClientID:          id.ClientID(uuid.New()),
		CaseID:            id.CaseID(uuid.New()),
		NoteType:          noteType,
		Scope:             scope,
		Title:             "Session",
		Content:           "initial content",
		AuthorID:          s.author,
		AuthorName:        "Riley",
		AuthorizedViewers: viewers,
	}, s.tick())
	s.Require().NoError(err)
	return n
}

func (s *RestrictedNoteSuite) requireInvariantViolation(err error) {
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation), "expected invariant violation, got %v", err)
}

func (s *RestrictedNoteSuite) TestCreate() {
	s.Run("scope defaults from note type", func() {
		n := s.create(confidentiality.NoteTypePrivilegedCounseling, "")
		s.Equal(confidentiality.ScopeClinicalOnly, n.Scope())
		s.Equal(int64(1), n.Version())
		s.Require().Len(n.PendingEvents(), 1)
		s.IsType(NoteCreated{}, n.PendingEvents()[0])
		s.Equal(n.CreatedAt(), n.LastModified())
	})

	s.Run("explicit scope overrides the default", func() {
		n := s.create(confidentiality.NoteTypeGeneral, confidentiality.ScopePublic)
		s.Equal(confidentiality.ScopePublic, n.Scope())
	})

	s.Run("rejects unknown type and scope", func() {
		_, err := Create(CreateParams{
			NoteID:   id.NoteID(uuid.New()),
			ClientID: id.ClientID(uuid.New()),
			NoteType: confidentiality.NoteType("DIARY"),
			Content:  "x",
			AuthorID: s.author,
		}, s.now)
		s.requireInvariantViolation(err)

		_, err = Create(CreateParams{
			NoteID:   id.NoteID(uuid.New()),
			ClientID: id.ClientID(uuid.New()),
			NoteType: confidentiality.NoteTypeGeneral,
			Scope:    confidentiality.VisibilityScope("EVERYONE"),
			Content:  "x",
			AuthorID: s.author,
		}, s.now)
		s.requireInvariantViolation(err)
	})

	s.Run("duplicate viewers are collapsed", func() {
		viewer := id.ActorID(uuid.New())
		n := s.create(confidentiality.NoteTypeGeneral, "", viewer, viewer, id.ActorID{})
		s.Equal([]id.ActorID{viewer}, n.AuthorizedViewers())
	})
}

// TestSealBlocksUpdates seals temporarily, fails to update, unseals, then updates.
func (s *RestrictedNoteSuite) TestSealBlocksUpdates() {
	n := s.create(confidentiality.NoteTypeGeneral, "")
	sealer := id.ActorID(uuid.New())
	expires := s.now.Add(48 * time.Hour)

	s.Require().NoError(n.Seal(sealer, "Dana", "court order", "case 42-A", true, &expires, s.tick()))
	s.True(n.IsSealed())

	version := n.Version()
	s.requireInvariantViolation(n.UpdateContent("", "revised", s.author, s.tick()))
	s.requireInvariantViolation(n.ChangeVisibility(confidentiality.ScopePublic, nil, s.author, s.tick()))
	s.Equal(version, n.Version(), "failed command emits nothing")

	s.Require().NoError(n.Unseal(sealer, "order lifted", s.tick()))
	s.False(n.IsSealed())
	s.Require().NoError(n.UpdateContent("", "revised", s.author, s.tick()))
	s.Equal("revised", n.Content())
	s.Equal("Session", n.Title(), "empty title keeps the current one")
}

func (s *RestrictedNoteSuite) TestSeal() {
	s.Run("already sealed is rejected", func() {
		n := s.create(confidentiality.NoteTypeGeneral, "")
		s.Require().NoError(n.Seal(s.author, "Riley", "safety", "", false, nil, s.tick()))
		s.requireInvariantViolation(n.Seal(s.author, "Riley", "again", "", false, nil, s.tick()))
	})

	s.Run("unseal requires a seal", func() {
		n := s.create(confidentiality.NoteTypeGeneral, "")
		s.requireInvariantViolation(n.Unseal(s.author, "none", s.tick()))
	})

	s.Run("temporary seal needs a future expiry", func() {
		n := s.create(confidentiality.NoteTypeGeneral, "")
		s.requireInvariantViolation(n.Seal(s.author, "Riley", "hold", "", true, nil, s.tick()))
		past := s.now.Add(-time.Hour)
		s.requireInvariantViolation(n.Seal(s.author, "Riley", "hold", "", true, &past, s.tick()))
		s.False(n.IsSealed())
	})

	s.Run("permanent seal drops any expiry", func() {
		n := s.create(confidentiality.NoteTypeGeneral, "")
		later := s.now.Add(time.Hour)
		s.Require().NoError(n.Seal(s.author, "Riley", "hold", "", false, &later, s.tick()))
		seal, ok := n.CurrentSeal()
		s.Require().True(ok)
		s.Nil(seal.ExpiresAt)
	})
}

func (s *RestrictedNoteSuite) TestExpireSeal() {
	s.Run("lifts an expired temporary seal", func() {
		n := s.create(confidentiality.NoteTypeGeneral, "")
		expires := s.now.Add(time.Hour)
		s.Require().NoError(n.Seal(s.author, "Riley", "hold", "", true, &expires, s.tick()))

		s.requireInvariantViolation(n.ExpireSeal(s.author, s.tick()))
		s.Require().NoError(n.ExpireSeal(s.author, expires))
		s.False(n.IsSealed())
		s.IsType(SealExpired{}, n.PendingEvents()[len(n.PendingEvents())-1])
	})

	s.Run("permanent seals never expire", func() {
		n := s.create(confidentiality.NoteTypeGeneral, "")
		s.Require().NoError(n.Seal(s.author, "Riley", "hold", "", false, nil, s.tick()))
		s.requireInvariantViolation(n.ExpireSeal(s.author, s.now.Add(24*365*time.Hour)))
	})

	s.Run("an expired seal still blocks until lifted", func() {
		n := s.create(confidentiality.NoteTypePublicSummary, "")
		sealer := id.ActorID(uuid.New())
		expires := s.now.Add(time.Minute)
		s.Require().NoError(n.Seal(sealer, "Dana", "hold", "", true, &expires, s.tick()))
		s.tick()
		s.False(n.IsVisibleTo(id.ActorID(uuid.New())))
	})
}

func (s *RestrictedNoteSuite) TestRecordAccess() {
	n := s.create(confidentiality.NoteTypeGeneral, "")
	before := n.Snapshot()

	s.Require().NoError(n.RecordAccess(id.ActorID(uuid.New()), "", "case review", confidentiality.RuleScopeRole, s.tick()))

	after := n.Snapshot()
	s.Equal(before.Version+1, after.Version)
	after.Version = before.Version
	s.Equal(before, after, "access changes no state field")

	accessed, ok := n.PendingEvents()[1].(NoteAccessed)
	s.Require().True(ok)
	s.Equal(AccessTypeView, accessed.AccessType)
}

// TestVisibility covers the counseling scenario and seal and allow-list precedence.
func (s *RestrictedNoteSuite) TestVisibility() {
	s.Run("privileged counseling needs a counseling role", func() {
		n := s.create(confidentiality.NoteTypePrivilegedCounseling, "")
		s.False(n.IsVisibleTo(id.ActorID(uuid.New()), "CASE_MANAGER"))
		s.True(n.IsVisibleTo(id.ActorID(uuid.New()), "DV_COUNSELOR"))
		s.True(n.IsVisibleTo(s.author))
		s.True(n.RequiresSpecialHandling())
	})

	s.Run("seal overrides a public scope", func() {
		n := s.create(confidentiality.NoteTypeGeneral, confidentiality.ScopePublic)
		anyone := id.ActorID(uuid.New())
		s.True(n.IsVisibleTo(anyone))
		s.False(n.RequiresSpecialHandling())

		sealer := id.ActorID(uuid.New())
		s.Require().NoError(n.Seal(sealer, "Dana", "hold", "", false, nil, s.tick()))
		s.False(n.IsVisibleTo(anyone))
		s.True(n.IsVisibleTo(sealer))
		s.True(n.RequiresSpecialHandling())
		s.Equal(confidentiality.RuleSealedNonSealer, n.Decide(anyone).RuleID)
	})

	s.Run("allow list supersedes admin only", func() {
		x := id.ActorID(uuid.New())
		n := s.create(confidentiality.NoteTypeAdministrative, "", x)
		s.Equal(confidentiality.ScopeAdminOnly, n.Scope())
		s.True(n.IsVisibleTo(x))
		s.False(n.IsVisibleTo(id.ActorID(uuid.New()), "ADMIN"))
	})

	s.Run("visibility change replaces scope and viewers", func() {
		x := id.ActorID(uuid.New())
		n := s.create(confidentiality.NoteTypeGeneral, "", x)
		s.Require().NoError(n.ChangeVisibility(confidentiality.ScopeAuthorOnly, nil, s.author, s.tick()))
		s.False(n.IsVisibleTo(x))
		s.True(n.IsVisibleTo(s.author))
	})
}

// TestPolicyAgreement checks the aggregate gate and the engine agree over
// every scope, type and role combination.
func (s *RestrictedNoteSuite) TestPolicyAgreement() {
	roles := []string{"", "ADMIN", "CASE_MANAGER", "DV_COUNSELOR", "ATTORNEY", "NURSE", "SAFETY_COORDINATOR", "LEGAL_ADVOCATE"}
	scopes := []confidentiality.VisibilityScope{
		confidentiality.ScopePublic, confidentiality.ScopeCaseTeam, confidentiality.ScopeClinicalOnly,
		confidentiality.ScopeLegalTeam, confidentiality.ScopeSafetyTeam, confidentiality.ScopeMedicalTeam,
		confidentiality.ScopeAdminOnly, confidentiality.ScopeAuthorOnly, confidentiality.ScopeAttorneyClient,
		confidentiality.ScopeCustom,
	}
	types := []confidentiality.NoteType{confidentiality.NoteTypeGeneral, confidentiality.NoteTypePrivilegedCounseling}

	for _, noteType := range types {
		for _, scope := range scopes {
			n := s.create(noteType, scope)
			for _, role := range roles {
				for _, actor := range []id.ActorID{s.author, id.ActorID(uuid.New())} {
					var tags []string
					if role != "" {
						tags = append(tags, role)
					}
					want := confidentiality.Decide(n.PolicySnapshot(), confidentiality.NewActor(actor, tags...))
					s.Equal(want.Allowed, n.IsVisibleTo(actor, tags...), "%s/%s/%s", noteType, scope, role)
				}
			}
		}
	}
}

func (s *RestrictedNoteSuite) TestCopyOnRead() {
	viewer := id.ActorID(uuid.New())
	n := s.create(confidentiality.NoteTypeGeneral, "", viewer)
	expires := s.now.Add(time.Hour)
	s.Require().NoError(n.Seal(s.author, "Riley", "hold", "", true, &expires, s.tick()))

	viewers := n.AuthorizedViewers()
	viewers[0] = id.ActorID{}
	seal, _ := n.CurrentSeal()
	*seal.ExpiresAt = s.now.Add(-time.Hour)
	policy := n.PolicySnapshot()
	policy.AuthorizedViewers[0] = id.ActorID{}

	s.Equal(viewer, n.AuthorizedViewers()[0])
	current, _ := n.CurrentSeal()
	s.Equal(expires, *current.ExpiresAt)
}

func (s *RestrictedNoteSuite) TestUncreatedNoteRejectsCommands() {
	n := New(id.NoteID(uuid.New()))
	s.requireInvariantViolation(n.UpdateContent("", "x", s.author, s.now))
	s.requireInvariantViolation(n.Seal(s.author, "Riley", "hold", "", false, nil, s.now))
	s.requireInvariantViolation(n.RecordAccess(s.author, "", "", "", s.now))
	s.Zero(n.Version())
}

// TestReplayDeterminism saves a command history and checks the replayed
// note is indistinguishable from the one built incrementally.
func (s *RestrictedNoteSuite) TestReplayDeterminism() {
	ctx := context.Background()
	repo := eventsource.NewRepository(memory.New(), Codec, Factory)

	n := s.create(confidentiality.NoteTypeLegalAdvocacy, "", id.ActorID(uuid.New()))
	s.Require().NoError(n.UpdateContent("Hearing prep", "updated", s.author, s.tick()))
	s.Require().NoError(n.RecordAccess(s.author, "", "", confidentiality.RuleAllowList, s.tick()))
	s.Require().NoError(n.ChangeVisibility(confidentiality.ScopeLegalTeam, nil, s.author, s.tick()))
	expires := time.Now().Add(time.Hour).In(time.FixedZone("EST", -5*3600))
	s.Require().NoError(n.Seal(s.author, "Riley", "hold", "statute", true, &expires, time.Now()))

	s.Require().NoError(repo.Save(ctx, n))
	replayed, err := repo.Load(ctx, uuid.UUID(n.NoteID()))
	s.Require().NoError(err)

	s.Equal(n.Snapshot(), replayed.Snapshot())
	s.Equal(n.Version(), replayed.Version())
	s.Equal(n.PolicySnapshot(), replayed.PolicySnapshot())
	s.Empty(replayed.PendingEvents())
}
