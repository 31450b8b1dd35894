package admin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"casework/internal/admin/adapters"
	"casework/internal/readmodel"
	id "casework/pkg/domain"
	platformaudit "casework/pkg/platform/audit"
	"casework/pkg/platform/audit/store/memory"
	"casework/pkg/testutil"
)

type stubSeals struct {
	sealed []id.NoteID
	info   map[id.NoteID]readmodel.SealInfo
}

func (s *stubSeals) Sealed(context.Context) ([]id.NoteID, error) { return s.sealed, nil }

func (s *stubSeals) Seal(_ context.Context, noteID id.NoteID) (readmodel.SealInfo, error) {
	info, ok := s.info[noteID]
	if !ok {
		return readmodel.SealInfo{}, readmodel.ErrNotSealed
	}
	return info, nil
}

type stubRevoker struct {
	jti string
	ttl time.Duration
}

func (s *stubRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.jti, s.ttl = jti, ttl
	return nil
}

type AdminHandlerSuite struct {
	suite.Suite
	store   *memory.InMemoryStore
	seals   *stubSeals
	revoker *stubRevoker
	router  chi.Router
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.seals = &stubSeals{info: map[id.NoteID]readmodel.SealInfo{}}
	s.router = chi.NewRouter()
	s.revoker = &stubRevoker{}
	New(
		adapters.NewAuditStoreAdapter(s.store),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithSealRegistry(adapters.NewSealedNotesAdapter(s.seals)),
		WithTokenRevoker(s.revoker),
	).Register(s.router)
}

func (s *AdminHandlerSuite) TestAuditTrail() {
	caseID := uuid.NewString()
	actor := id.ActorID(uuid.New())
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, platformaudit.Event{
		ActorID: actor, ResourceType: platformaudit.ResourceCase, ResourceID: caseID,
		Action: string(platformaudit.EventCaseOpened), Timestamp: time.Now(),
	}))
	s.Require().NoError(s.store.Append(ctx, platformaudit.Event{
		ActorID: actor, ResourceType: platformaudit.ResourceCase, ResourceID: uuid.NewString(),
		Action: string(platformaudit.EventCaseOpened), Timestamp: time.Now(),
	}))

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/audit/case/"+caseID))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[AuditTrailResponse](s.T(), rr)
	s.Require().Equal(1, resp.Total)
	s.Equal(caseID, resp.Entries[0].ResourceID)
	s.Equal(actor.String(), resp.Entries[0].ActorID)
	s.NotEmpty(resp.Entries[0].Category)
}

func (s *AdminHandlerSuite) TestRecent() {
	for range 3 {
		s.Require().NoError(s.store.Append(context.Background(), platformaudit.Event{
			ResourceType: platformaudit.ResourceCase, ResourceID: uuid.NewString(),
			Action: string(platformaudit.EventCaseOpened),
		}))
	}

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/audit/recent?limit=2"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal(2, testutil.UnmarshalResponse[AuditTrailResponse](s.T(), rr).Total)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/audit/recent?limit=0"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *AdminHandlerSuite) TestSealedNotes() {
	kept := id.NoteID(uuid.New())
	lifted := id.NoteID(uuid.New())
	expires := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	s.seals.sealed = []id.NoteID{kept, lifted}
	s.seals.info[kept] = readmodel.SealInfo{NoteID: kept, Reason: "court order", IsTemporary: true, ExpiresAt: &expires}

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/sealed-notes"))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[SealedNotesResponse](s.T(), rr)
	s.Require().Equal(1, resp.Total)
	s.Equal(kept.String(), resp.Notes[0].NoteID)
	s.Equal("court order", resp.Notes[0].Reason)
	s.Require().NotNil(resp.Notes[0].ExpiresAt)
	s.True(expires.Equal(*resp.Notes[0].ExpiresAt))
}

func (s *AdminHandlerSuite) TestRevoke() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/revocations",
		map[string]any{"jti": "tok-1", "ttl_seconds": 900}))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	s.Equal("tok-1", s.revoker.jti)
	s.Equal(15*time.Minute, s.revoker.ttl)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/revocations",
		map[string]any{"jti": "tok-2"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
}

func (s *AdminHandlerSuite) TestOptionalRoutesNeedStores() {
	router := chi.NewRouter()
	New(adapters.NewAuditStoreAdapter(s.store), slog.New(slog.NewTextHandler(io.Discard, nil))).Register(router)

	rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/sealed-notes"))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	rr = testutil.DoRequest(router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/revocations", map[string]any{}))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}
