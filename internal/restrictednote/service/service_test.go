package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"casework/internal/confidentiality"
	"casework/internal/eventsource"
	"casework/internal/eventsource/store/memory"
	"casework/internal/restrictednote/models"
	"casework/internal/restrictednote/service/mocks"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	platformaudit "casework/pkg/platform/audit"
	"casework/pkg/requestcontext"
)

type NoteServiceSuite struct {
	suite.Suite
	now    time.Time
	author id.ActorID
	sink   *mocks.MockAuditSink
	repo   *eventsource.Repository[*models.RestrictedNote, models.Event]
	svc    *Service
}

func TestNoteServiceSuite(t *testing.T) {
	suite.Run(t, new(NoteServiceSuite))
}

func (s *NoteServiceSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.sink = mocks.NewMockAuditSink(ctrl)
	s.repo = eventsource.NewRepository(memory.New(), models.Codec, models.Factory)
	s.now = time.Date(2026, 7, 14, 16, 0, 0, 0, time.UTC)
	s.author = id.ActorID(uuid.New())
	s.svc = New(s.repo,
		WithAuditSink(s.sink),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *NoteServiceSuite) as(actor id.ActorID, roles ...string) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actor, "Actor", roles)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *NoteServiceSuite) allowLifecycle() {
	s.sink.EXPECT().LogLifecycleEvent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
}

func (s *NoteServiceSuite) allowDecisions() {
	s.sink.EXPECT().LogDecision(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
}

func (s *NoteServiceSuite) createNote(noteType confidentiality.NoteType, scope confidentiality.VisibilityScope) *models.RestrictedNote {
	n, err := s.svc.CreateNote(s.as(s.author, "CASE_WORKER"), CreateNoteCommand{
		ClientID: id.ClientID(uuid.New()),
		CaseID:   id.CaseID(uuid.New()),
		NoteType: noteType,
		Scope:    scope,
		Title:    "Intake",
		Content:  "client disclosed history",
	})
	s.Require().NoError(err)
	return n
}

func (s *NoteServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), "got %v", err)
}

func (s *NoteServiceSuite) TestCreateNote() {
	s.sink.EXPECT().LogLifecycleEvent(gomock.Any(), models.KindNoteCreated, s.author, gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, _ eventsource.Kind, _ id.ActorID, _ string, meta map[string]string) {
			s.Equal(string(confidentiality.ScopeClinicalOnly), meta["visibility_scope"])
			s.NotContains(meta, "content")
		})

	n := s.createNote(confidentiality.NoteTypePrivilegedCounseling, "")
	s.Equal(confidentiality.ScopeClinicalOnly, n.Scope())
	s.Equal("Actor", n.AuthorName())
	s.Empty(n.PendingEvents())

	_, err := s.svc.CreateNote(s.as(s.author), CreateNoteCommand{ClientID: id.ClientID(uuid.New()), NoteType: "DIARY", Content: "x"})
	s.requireCode(err, dErrors.CodeValidation)

	_, err = s.svc.CreateNote(context.Background(), CreateNoteCommand{})
	s.requireCode(err, dErrors.CodeUnauthorized)
}

// TestViewNote covers the counseling scenario through the audited read path.
func (s *NoteServiceSuite) TestViewNote() {
	s.allowLifecycle()
	n := s.createNote(confidentiality.NoteTypePrivilegedCounseling, "")

	counselor := id.ActorID(uuid.New())
	var logged confidentiality.Decision
	var meta map[string]string
	s.sink.EXPECT().LogDecision(gomock.Any(), gomock.Any(), counselor, n.NoteID().String(), platformaudit.ResourceRestrictedNote, "session review", gomock.Any()).Do(
		func(_ context.Context, d confidentiality.Decision, _ id.ActorID, _, _, _ string, m map[string]string) {
			logged = d
			meta = m
		})

	viewed, decision, err := s.svc.ViewNote(s.as(counselor, "DV_COUNSELOR"), n.NoteID(), "session review")
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Equal(confidentiality.RulePrivilegedCounseling, decision.RuleID)
	s.Equal(decision, logged)
	s.Equal("true", meta[MetadataSpecialHandling])
	s.Equal(n.Version()+1, viewed.Version(), "allowed read appends an access event")
	s.Equal(n.Content(), viewed.Content())
}

func (s *NoteServiceSuite) TestViewNoteDenied() {
	s.allowLifecycle()
	n := s.createNote(confidentiality.NoteTypePrivilegedCounseling, "")

	manager := id.ActorID(uuid.New())
	s.sink.EXPECT().LogDecision(gomock.Any(), gomock.Any(), manager, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, d confidentiality.Decision, _ id.ActorID, _, _, _ string, _ map[string]string) {
			s.False(d.Allowed)
		})

	_, decision, err := s.svc.ViewNote(s.as(manager, "CASE_MANAGER"), n.NoteID(), "")
	s.requireCode(err, dErrors.CodeForbidden)
	s.False(decision.Allowed)

	stored, err := s.repo.Load(context.Background(), uuid.UUID(n.NoteID()))
	s.Require().NoError(err)
	s.Equal(n.Version(), stored.Version(), "denied read appends nothing")
}

// TestSealScenario seals temporarily, fails to update, unseals, then updates.
func (s *NoteServiceSuite) TestSealScenario() {
	s.allowLifecycle()
	s.allowDecisions()
	n := s.createNote(confidentiality.NoteTypeGeneral, "")
	ctx := s.as(s.author, "CASE_WORKER")

	expires := s.now.Add(72 * time.Hour)
	sealed, err := s.svc.Seal(ctx, n.NoteID(), SealCommand{Reason: "protective order", IsTemporary: true, ExpiresAt: &expires})
	s.Require().NoError(err)
	s.True(sealed.IsSealed())

	_, err = s.svc.UpdateContent(ctx, n.NoteID(), "", "revised")
	s.requireCode(err, dErrors.CodeInvariantViolation)

	other := s.as(id.ActorID(uuid.New()), "CASE_WORKER")
	_, _, err = s.svc.ViewNote(other, n.NoteID(), "")
	s.requireCode(err, dErrors.CodeForbidden)
	_, err = s.svc.Unseal(other, n.NoteID(), "not mine")
	s.requireCode(err, dErrors.CodeForbidden)

	_, err = s.svc.Unseal(ctx, n.NoteID(), "order lifted")
	s.Require().NoError(err)
	updated, err := s.svc.UpdateContent(ctx, n.NoteID(), "", "revised")
	s.Require().NoError(err)
	s.Equal("revised", updated.Content())
}

func (s *NoteServiceSuite) TestAdminMayUnseal() {
	s.allowLifecycle()
	s.allowDecisions()
	n := s.createNote(confidentiality.NoteTypeGeneral, "")

	_, err := s.svc.Seal(s.as(s.author, "CASE_WORKER"), n.NoteID(), SealCommand{Reason: "hold"})
	s.Require().NoError(err)

	unsealed, err := s.svc.Unseal(s.as(id.ActorID(uuid.New()), "admin"), n.NoteID(), "review complete")
	s.Require().NoError(err)
	s.False(unsealed.IsSealed())
}

func (s *NoteServiceSuite) TestExpireSeal() {
	s.allowLifecycle()
	s.allowDecisions()
	n := s.createNote(confidentiality.NoteTypeGeneral, "")
	expires := s.now.Add(time.Hour)
	_, err := s.svc.Seal(s.as(s.author, "CASE_WORKER"), n.NoteID(), SealCommand{Reason: "hold", IsTemporary: true, ExpiresAt: &expires})
	s.Require().NoError(err)

	job := id.ActorID(uuid.New())
	_, err = s.svc.ExpireSeal(s.as(job), n.NoteID())
	s.requireCode(err, dErrors.CodeInvariantViolation)

	later := requestcontext.WithTime(s.as(job), expires.Add(time.Second))
	lifted, err := s.svc.ExpireSeal(later, n.NoteID())
	s.Require().NoError(err)
	s.False(lifted.IsSealed())
}

func (s *NoteServiceSuite) TestChangeVisibility() {
	s.allowLifecycle()
	s.allowDecisions()
	n := s.createNote(confidentiality.NoteTypeGeneral, "")
	x := id.ActorID(uuid.New())

	_, err := s.svc.ChangeVisibility(s.as(id.ActorID(uuid.New()), "NURSE"), n.NoteID(), confidentiality.ScopePublic, nil)
	s.requireCode(err, dErrors.CodeForbidden)

	changed, err := s.svc.ChangeVisibility(s.as(s.author, "CASE_WORKER"), n.NoteID(), confidentiality.ScopeAdminOnly, []id.ActorID{x})
	s.Require().NoError(err)
	s.True(changed.IsVisibleTo(x))

	_, _, err = s.svc.ViewNote(s.as(x), n.NoteID(), "")
	s.Require().NoError(err)
}

// TestViewNoteConflictIsNotRetried loses the access append to a concurrent
// writer and hands the conflict back after a single attempt.
func (s *NoteServiceSuite) TestViewNoteConflictIsNotRetried() {
	ctrl := gomock.NewController(s.T())
	repo := mocks.NewMockNoteRepository(ctrl)
	svc := New(repo, WithAuditSink(s.sink), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	noteID := id.NoteID(uuid.New())
	n, err := models.Create(models.CreateParams{
		NoteID:   noteID,
		ClientID: id.ClientID(uuid.New()),
		NoteType: confidentiality.NoteTypePublicSummary,
		Content:  "summary",
		AuthorID: s.author,
	}, s.now)
	s.Require().NoError(err)
	n.MarkCommitted()

	repo.EXPECT().Load(gomock.Any(), uuid.UUID(noteID)).Return(n, nil).Times(1)
	repo.EXPECT().Save(gomock.Any(), n).Return(&eventsource.ConflictError{Expected: 1, Actual: 2}).Times(1)
	s.sink.EXPECT().LogDecision(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(1)

	_, decision, err := svc.ViewNote(s.as(id.ActorID(uuid.New())), noteID, "")
	s.requireCode(err, dErrors.CodeConcurrencyConflict)
	s.ErrorIs(err, eventsource.ErrConcurrencyConflict)
	s.True(decision.Allowed)
}

func (s *NoteServiceSuite) TestUnknownNote() {
	_, _, err := s.svc.ViewNote(s.as(s.author), id.NoteID(uuid.New()), "")
	s.requireCode(err, dErrors.CodeNotFound)
}
