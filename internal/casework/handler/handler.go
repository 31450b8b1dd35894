package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"casework/internal/casework/models"
	"casework/internal/casework/service"
	id "casework/pkg/domain"
	"casework/pkg/platform/httputil"
	"casework/pkg/requestcontext"
)

// Service defines the case operations the handler needs.
type Service interface {
	OpenCase(ctx context.Context, cmd service.OpenCaseCommand) (*models.CaseRecord, error)
	GetCase(ctx context.Context, caseID id.CaseID) (*models.CaseRecord, error)
	AssignWorker(ctx context.Context, caseID id.CaseID, cmd service.AssignWorkerCommand) (*models.CaseRecord, id.AssignmentID, error)
	EndAssignment(ctx context.Context, caseID id.CaseID, assignmentID id.AssignmentID, reason string) (*models.CaseRecord, error)
	AddNote(ctx context.Context, caseID id.CaseID, content string) (*models.CaseRecord, id.NoteID, error)
	UpdateStatus(ctx context.Context, caseID id.CaseID, target models.CaseStatus, reason string) (*models.CaseRecord, error)
	Link(ctx context.Context, caseID id.CaseID, kind models.LinkKind, targetID uuid.UUID) (*models.CaseRecord, error)
	CloseCase(ctx context.Context, caseID id.CaseID, reason string) (*models.CaseRecord, error)
}

// CaseloadReader serves the caseload read model.
type CaseloadReader interface {
	CasesFor(ctx context.Context, actor id.ActorID) ([]id.CaseID, error)
}

// Handler wires case endpoints to the case service.
type Handler struct {
	service  Service
	caseload CaseloadReader
	logger   *slog.Logger
}

// New constructs a case handler. caseload may be nil, in which case
// GET /caseload is not mounted.
func New(service Service, caseload CaseloadReader, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		caseload: caseload,
		logger:   logger,
	}
}

// Register mounts case endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases", h.HandleOpen)
	r.Route("/cases/{caseID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Post("/assignments", h.HandleAssign)
		r.Post("/assignments/{assignmentID}/end", h.HandleEndAssignment)
		r.Post("/status", h.HandleUpdateStatus)
		r.Post("/notes", h.HandleAddNote)
		r.Post("/links", h.HandleLink)
		r.Post("/close", h.HandleClose)
	})
	if h.caseload != nil {
		r.Get("/caseload", h.HandleCaseload)
	}
}

// HandleOpen handles POST /cases.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[OpenCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.OpenCase(ctx, req.Command())
	if err != nil {
		h.fail(ctx, w, "open case failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCaseResponse(c))
}

// HandleGet handles GET /cases/{caseID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetCase(ctx, caseID)
	if err != nil {
		h.fail(ctx, w, "get case failed", err, "case_id", caseID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

// HandleAssign handles POST /cases/{caseID}/assignments.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AssignWorkerRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, assignmentID, err := h.service.AssignWorker(ctx, caseID, req.Command())
	if err != nil {
		h.fail(ctx, w, "assign worker failed", err, "case_id", caseID.String())
		return
	}
	resp := toCaseResponse(c)
	resp.AssignmentID = &assignmentID
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// HandleEndAssignment handles POST /cases/{caseID}/assignments/{assignmentID}/end.
func (h *Handler) HandleEndAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	assignmentID, err := id.ParseAssignmentID(chi.URLParam(r, "assignmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.EndAssignment(ctx, caseID, assignmentID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "end assignment failed", err, "case_id", caseID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

// HandleUpdateStatus handles POST /cases/{caseID}/status.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.UpdateStatus(ctx, caseID, req.status, req.Reason)
	if err != nil {
		h.fail(ctx, w, "update status failed", err, "case_id", caseID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

// HandleAddNote handles POST /cases/{caseID}/notes.
func (h *Handler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddNoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, noteID, err := h.service.AddNote(ctx, caseID, req.Content)
	if err != nil {
		h.fail(ctx, w, "add note failed", err, "case_id", caseID.String())
		return
	}
	resp := toCaseResponse(c)
	resp.NoteID = &noteID
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// HandleLink handles POST /cases/{caseID}/links.
func (h *Handler) HandleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[LinkRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Link(ctx, caseID, req.kind, req.target)
	if err != nil {
		h.fail(ctx, w, "link failed", err, "case_id", caseID.String(), "link_kind", string(req.kind))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

// HandleClose handles POST /cases/{caseID}/close.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.CloseCase(ctx, caseID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "close case failed", err, "case_id", caseID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

// HandleCaseload handles GET /caseload for the authenticated actor.
func (h *Handler) HandleCaseload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.ActorID(ctx)
	cases, err := h.caseload.CasesFor(ctx, actor)
	if err != nil {
		h.fail(ctx, w, "read caseload failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CaseloadResponse{ActorID: actor, Cases: cases})
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (id.CaseID, bool) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CaseID{}, false
	}
	return caseID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs,
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", requestcontext.ActorID(ctx).String(),
		"error", err,
	)
	h.logger.WarnContext(ctx, msg, attrs...)
	httputil.WriteError(w, err)
}
