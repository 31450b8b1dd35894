package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"casework/internal/casework/models"
	"casework/internal/casework/service"
	"casework/internal/eventsource"
	"casework/internal/eventsource/store/memory"
	id "casework/pkg/domain"
	"casework/pkg/testutil"
)

type stubCaseload struct {
	cases []id.CaseID
	err   error
	asked id.ActorID
}

func (s *stubCaseload) CasesFor(_ context.Context, actor id.ActorID) ([]id.CaseID, error) {
	s.asked = actor
	return s.cases, s.err
}

type CaseHandlerSuite struct {
	suite.Suite
	router   chi.Router
	caseload *stubCaseload
	actor    id.ActorID
	now      time.Time
}

func TestCaseHandlerSuite(t *testing.T) {
	suite.Run(t, new(CaseHandlerSuite))
}

func (s *CaseHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := eventsource.NewRepository(memory.New(), models.Codec, models.Factory)
	svc := service.New(repo, service.WithLogger(logger))

	s.caseload = &stubCaseload{}
	s.actor = id.ActorID(uuid.New())
	s.now = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	s.router = chi.NewRouter()
	New(svc, s.caseload, logger).Register(s.router)
}

func (s *CaseHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = testutil.NewRequest(s.T(), method, path)
	} else {
		req = testutil.NewJSONRequest(s.T(), method, path, body)
	}
	req = testutil.WithActor(req, s.actor, "Robin", "SUPERVISOR")
	req = testutil.WithTime(req, s.now)
	return testutil.DoRequest(s.router, req)
}

func (s *CaseHandlerSuite) openCase() models.CaseSnapshot {
	rr := s.do(http.MethodPost, "/cases", map[string]string{
		"client_id": uuid.NewString(),
		"case_type": "housing",
	})
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[CaseResponse](s.T(), rr).Case
}

func (s *CaseHandlerSuite) TestOpenCase() {
	s.Run("defaults priority", func() {
		c := s.openCase()
		s.Equal(models.PriorityMedium, c.Priority)
		s.Equal(models.CaseStatusOpen, c.Status)
		s.Equal(s.actor, c.OpenedBy)
		s.Equal(int64(1), c.Version)
	})

	s.Run("rejects malformed client id", func() {
		rr := s.do(http.MethodPost, "/cases", map[string]string{"client_id": "nope", "case_type": "housing"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("rejects unknown fields", func() {
		rr := s.do(http.MethodPost, "/cases", map[string]string{"client_id": uuid.NewString(), "owner": "x"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("rejects unknown priority", func() {
		rr := s.do(http.MethodPost, "/cases", map[string]string{
			"client_id": uuid.NewString(),
			"case_type": "housing",
			"priority":  "SOMEDAY",
		})
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *CaseHandlerSuite) TestGetCase() {
	c := s.openCase()

	rr := s.do(http.MethodGet, "/cases/"+c.ID.String(), nil)
	testutil.AssertStatusOK(s.T(), rr)
	got := testutil.UnmarshalResponse[CaseResponse](s.T(), rr)
	s.Equal(c.ID, got.Case.ID)

	rr = s.do(http.MethodGet, "/cases/"+uuid.NewString(), nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")

	rr = s.do(http.MethodGet, "/cases/not-a-uuid", nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
}

func (s *CaseHandlerSuite) TestAssignAndEnd() {
	c := s.openCase()
	path := "/cases/" + c.ID.String() + "/assignments"

	rr := s.do(http.MethodPost, path, map[string]string{
		"assignee_id":     uuid.NewString(),
		"assignee_name":   "Sam",
		"role":            "CASE_WORKER",
		"assignment_type": "primary",
		"reason":          "intake",
	})
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[CaseResponse](s.T(), rr)
	s.Require().NotNil(resp.AssignmentID)
	s.Require().Len(resp.Case.Assignments, 1)

	endPath := path + "/" + resp.AssignmentID.String() + "/end"
	rr = s.do(http.MethodPost, endPath, map[string]string{})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = s.do(http.MethodPost, endPath, map[string]string{"reason": "transfer"})
	testutil.AssertStatusOK(s.T(), rr)

	rr = s.do(http.MethodPost, endPath, map[string]string{"reason": "again"})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "invariant_violation")
}

func (s *CaseHandlerSuite) TestStatusNotesLinksAndClose() {
	c := s.openCase()
	base := "/cases/" + c.ID.String()

	rr := s.do(http.MethodPost, base+"/status", map[string]string{"status": "on_hold", "reason": "waiting"})
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal(models.CaseStatusOnHold, testutil.UnmarshalResponse[CaseResponse](s.T(), rr).Case.Status)

	rr = s.do(http.MethodPost, base+"/notes", map[string]string{"content": "   "})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = s.do(http.MethodPost, base+"/notes", map[string]string{"content": "home visit"})
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	noted := testutil.UnmarshalResponse[CaseResponse](s.T(), rr)
	s.Require().NotNil(noted.NoteID)
	s.Require().Len(noted.Case.Notes, 1)

	target := uuid.NewString()
	rr = s.do(http.MethodPost, base+"/links", map[string]string{"kind": "safety_plan", "target_id": target})
	testutil.AssertStatusOK(s.T(), rr)
	s.Len(testutil.UnmarshalResponse[CaseResponse](s.T(), rr).Case.SafetyPlans, 1)

	rr = s.do(http.MethodPost, base+"/links", map[string]string{"kind": "safety_plan", "target_id": target})
	testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)

	rr = s.do(http.MethodPost, base+"/links", map[string]string{"kind": "PAYROLL", "target_id": target})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")

	rr = s.do(http.MethodPost, base+"/close", map[string]string{"reason": "goals met"})
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal(models.CaseStatusClosed, testutil.UnmarshalResponse[CaseResponse](s.T(), rr).Case.Status)

	rr = s.do(http.MethodPost, base+"/status", map[string]string{"status": "OPEN"})
	testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
}

func (s *CaseHandlerSuite) TestCaseload() {
	caseID := id.CaseID(uuid.New())
	s.caseload.cases = []id.CaseID{caseID}

	rr := s.do(http.MethodGet, "/caseload", nil)
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[CaseloadResponse](s.T(), rr)
	s.Equal(s.actor, resp.ActorID)
	s.Equal([]id.CaseID{caseID}, resp.Cases)
	s.Equal(s.actor, s.caseload.asked)

	s.caseload.err = errors.New("redis down")
	rr = s.do(http.MethodGet, "/caseload", nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
}

func (s *CaseHandlerSuite) TestCaseloadNotMountedWithoutReader() {
	router := chi.NewRouter()
	New(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(router)

	rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/caseload"))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}
