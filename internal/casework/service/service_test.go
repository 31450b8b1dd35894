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

	"casework/internal/casework/models"
	"casework/internal/casework/service/mocks"
	"casework/internal/eventsource"
	"casework/internal/eventsource/store/memory"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/requestcontext"
)

type CaseServiceSuite struct {
	suite.Suite
	ctx   context.Context
	actor id.ActorID
	now   time.Time
	sink  *mocks.MockAuditSink
	repo  *eventsource.Repository[*models.CaseRecord, models.Event]
	svc   *Service
}

func TestCaseServiceSuite(t *testing.T) {
	suite.Run(t, new(CaseServiceSuite))
}

func (s *CaseServiceSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.sink = mocks.NewMockAuditSink(ctrl)
	s.repo = eventsource.NewRepository(memory.New(), models.Codec, models.Factory)
	s.actor = id.ActorID(uuid.New())
	s.now = time.Date(2026, 6, 2, 8, 15, 0, 0, time.UTC)
	s.ctx = requestcontext.WithActor(context.Background(), s.actor, "Morgan", []string{"SUPERVISOR"})
	s.ctx = requestcontext.WithTime(s.ctx, s.now)
	s.svc = New(s.repo,
		WithAuditSink(s.sink),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *CaseServiceSuite) expectAudit(kind eventsource.Kind) *gomock.Call {
	return s.sink.EXPECT().LogLifecycleEvent(gomock.Any(), kind, s.actor, gomock.Any(), gomock.Any())
}

func (s *CaseServiceSuite) openCase() *models.CaseRecord {
	s.expectAudit(models.KindCaseOpened)
	c, err := s.svc.OpenCase(s.ctx, OpenCaseCommand{
		ClientID: id.ClientID(uuid.New()),
		CaseType: "housing",
		Priority: models.PriorityLow,
	})
	s.Require().NoError(err)
	return c
}

func (s *CaseServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), "got %v", err)
}

func (s *CaseServiceSuite) TestOpenCase() {
	c := s.openCase()
	s.Equal(models.CaseStatusOpen, c.Status())
	s.Equal(s.actor, c.OpenedBy())
	s.Equal(s.now, c.Period().Start)
	s.Empty(c.PendingEvents())

	loaded, err := s.svc.GetCase(s.ctx, c.CaseID())
	s.Require().NoError(err)
	s.Equal(c.Snapshot(), loaded.Snapshot())
}

func (s *CaseServiceSuite) TestOpenCaseRejectsBadInput() {
	_, err := s.svc.OpenCase(context.Background(), OpenCaseCommand{ClientID: id.ClientID(uuid.New()), CaseType: "housing", Priority: models.PriorityLow})
	s.requireCode(err, dErrors.CodeUnauthorized)

	_, err = s.svc.OpenCase(s.ctx, OpenCaseCommand{CaseType: "housing", Priority: models.PriorityLow})
	s.requireCode(err, dErrors.CodeValidation)
}

// TestPrimaryReplacement assigns two primaries and checks the audit trail
// names the replaced assignment.
func (s *CaseServiceSuite) TestPrimaryReplacement() {
	c := s.openCase()

	var replaced map[string]string
	first := s.expectAudit(models.KindWorkerAssigned)
	s.expectAudit(models.KindWorkerAssigned).After(first).Do(
		func(_ context.Context, _ eventsource.Kind, _ id.ActorID, _ string, meta map[string]string) {
			replaced = meta
		})

	w1 := AssignWorkerCommand{AssigneeID: id.ActorID(uuid.New()), AssigneeName: "W1", Role: "CASE_WORKER", AssignmentType: models.AssignmentPrimary}
	_, a1, err := s.svc.AssignWorker(s.ctx, c.CaseID(), w1)
	s.Require().NoError(err)

	w2 := w1
	w2.AssigneeID = id.ActorID(uuid.New())
	updated, a2, err := s.svc.AssignWorker(s.ctx, c.CaseID(), w2)
	s.Require().NoError(err)

	prior, ok := updated.Assignment(a1)
	s.Require().True(ok)
	s.False(prior.IsActive())
	s.Equal(models.ReasonReplacedByPrimary, prior.EndReason)

	primary, ok := updated.ActivePrimary()
	s.Require().True(ok)
	s.Equal(a2, primary.ID)
	s.Equal(a1.String(), replaced["replaces"])
}

func (s *CaseServiceSuite) TestEndAssignment() {
	c := s.openCase()
	s.expectAudit(models.KindWorkerAssigned)
	s.expectAudit(models.KindAssignmentEnded)

	_, a, err := s.svc.AssignWorker(s.ctx, c.CaseID(), AssignWorkerCommand{AssigneeID: id.ActorID(uuid.New()), AssignmentType: models.AssignmentSecondary})
	s.Require().NoError(err)
	_, err = s.svc.EndAssignment(s.ctx, c.CaseID(), a, "rotation")
	s.Require().NoError(err)

	_, err = s.svc.EndAssignment(s.ctx, c.CaseID(), a, "again")
	s.requireCode(err, dErrors.CodeInvariantViolation)
}

func (s *CaseServiceSuite) TestAddNote() {
	c := s.openCase()
	s.sink.EXPECT().LogLifecycleEvent(gomock.Any(), models.KindNoteAdded, s.actor, c.CaseID().String(), gomock.Any()).Do(
		func(_ context.Context, _ eventsource.Kind, _ id.ActorID, _ string, meta map[string]string) {
			s.NotContains(meta, "content")
		})

	updated, noteID, err := s.svc.AddNote(s.ctx, c.CaseID(), "phone check-in")
	s.Require().NoError(err)
	notes := updated.Notes()
	s.Require().Len(notes, 1)
	s.Equal(noteID, notes[0].ID)
	s.Equal("Morgan", notes[0].AuthorName)
}

func (s *CaseServiceSuite) TestUpdateStatus() {
	c := s.openCase()

	// Setting the current status emits and audits nothing.
	same, err := s.svc.UpdateStatus(s.ctx, c.CaseID(), models.CaseStatusOpen, "")
	s.Require().NoError(err)
	s.Equal(c.Version(), same.Version())

	s.expectAudit(models.KindStatusChanged)
	moved, err := s.svc.UpdateStatus(s.ctx, c.CaseID(), models.CaseStatusOnHold, "awaiting documents")
	s.Require().NoError(err)
	s.Equal(models.CaseStatusOnHold, moved.Status())
	s.Equal(c.Version()+1, moved.Version())
}

func (s *CaseServiceSuite) TestLink() {
	c := s.openCase()
	s.expectAudit(models.KindEnrollmentLinked).Times(1)
	s.expectAudit(models.KindFinancialRequestLinked).Times(1)

	enrollment := uuid.New()
	_, err := s.svc.Link(s.ctx, c.CaseID(), models.LinkProgramEnrollment, enrollment)
	s.Require().NoError(err)

	_, err = s.svc.Link(s.ctx, c.CaseID(), models.LinkProgramEnrollment, enrollment)
	s.requireCode(err, dErrors.CodeInvariantViolation)

	updated, err := s.svc.Link(s.ctx, c.CaseID(), models.LinkFinancialRequest, uuid.New())
	s.Require().NoError(err)
	s.Len(updated.Enrollments(), 1)
	s.Len(updated.FinancialRequests(), 1)

	_, err = s.svc.Link(s.ctx, c.CaseID(), models.LinkKind("PAYROLL"), uuid.New())
	s.requireCode(err, dErrors.CodeInvalidInput)
}

func (s *CaseServiceSuite) TestCloseCase() {
	c := s.openCase()
	s.expectAudit(models.KindCaseClosed).Times(1)

	closed, err := s.svc.CloseCase(s.ctx, c.CaseID(), "goals met")
	s.Require().NoError(err)
	s.Equal(models.CaseStatusClosed, closed.Status())

	_, err = s.svc.CloseCase(s.ctx, c.CaseID(), "again")
	s.requireCode(err, dErrors.CodeInvariantViolation)

	_, _, err = s.svc.AssignWorker(s.ctx, c.CaseID(), AssignWorkerCommand{AssigneeID: id.ActorID(uuid.New()), AssignmentType: models.AssignmentPrimary})
	s.requireCode(err, dErrors.CodeInvariantViolation)
}

func (s *CaseServiceSuite) TestUnknownCase() {
	_, err := s.svc.GetCase(s.ctx, id.CaseID(uuid.New()))
	s.requireCode(err, dErrors.CodeNotFound)

	_, err = s.svc.CloseCase(s.ctx, id.CaseID(uuid.New()), "x")
	s.requireCode(err, dErrors.CodeNotFound)
}

// TestConcurrentWriterIsNotRetried checks a stale save surfaces as a
// concurrency conflict, is attempted once and audits nothing.
func (s *CaseServiceSuite) TestConcurrentWriterIsNotRetried() {
	ctrl := gomock.NewController(s.T())
	repo := mocks.NewMockCaseRepository(ctrl)
	svc := New(repo, WithAuditSink(s.sink), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	c, err := models.Open(id.CaseID(uuid.New()), id.ClientID(uuid.New()), "housing", models.PriorityLow, "", s.actor, s.now)
	s.Require().NoError(err)
	c.MarkCommitted()

	repo.EXPECT().Load(gomock.Any(), uuid.UUID(c.CaseID())).Return(c, nil)
	repo.EXPECT().Save(gomock.Any(), c).Return(&eventsource.ConflictError{StreamID: "case-x", Expected: 1, Actual: 2}).Times(1)

	_, err = svc.CloseCase(s.ctx, c.CaseID(), "done")
	s.requireCode(err, dErrors.CodeConcurrencyConflict)
	s.ErrorIs(err, eventsource.ErrConcurrencyConflict)
}
