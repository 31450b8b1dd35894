package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"casework/internal/confidentiality"
	"casework/internal/restrictednote/models"
	"casework/internal/restrictednote/service"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/httputil"
	"casework/pkg/requestcontext"
)

// HeaderJustification carries the reader's stated purpose for a note view.
// The "justification" query parameter is accepted as a fallback.
const HeaderJustification = "X-Access-Justification"

// Service defines the restricted-note operations the handler needs.
type Service interface {
	CreateNote(ctx context.Context, cmd service.CreateNoteCommand) (*models.RestrictedNote, error)
	ViewNote(ctx context.Context, noteID id.NoteID, justification string) (*models.RestrictedNote, confidentiality.Decision, error)
	UpdateContent(ctx context.Context, noteID id.NoteID, title, content string) (*models.RestrictedNote, error)
	ChangeVisibility(ctx context.Context, noteID id.NoteID, scope confidentiality.VisibilityScope, viewers []id.ActorID) (*models.RestrictedNote, error)
	Seal(ctx context.Context, noteID id.NoteID, cmd service.SealCommand) (*models.RestrictedNote, error)
	Unseal(ctx context.Context, noteID id.NoteID, reason string) (*models.RestrictedNote, error)
	ExpireSeal(ctx context.Context, noteID id.NoteID) (*models.RestrictedNote, error)
}

// Handler wires restricted-note endpoints to the note service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a restricted-note handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts restricted-note endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/notes", h.HandleCreate)
	r.Route("/notes/{noteID}", func(r chi.Router) {
		r.Get("/", h.HandleView)
		r.Put("/content", h.HandleUpdateContent)
		r.Put("/visibility", h.HandleChangeVisibility)
		r.Post("/seal", h.HandleSeal)
		r.Post("/unseal", h.HandleUnseal)
		r.Post("/expire-seal", h.HandleExpireSeal)
	})
}

// HandleCreate handles POST /notes.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateNoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	n, err := h.service.CreateNote(ctx, req.Command())
	if err != nil {
		h.fail(ctx, w, "create note failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toNoteResponse(n))
}

// HandleView handles GET /notes/{noteID}.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noteID, ok := h.noteID(w, r)
	if !ok {
		return
	}
	justification := strings.TrimSpace(r.Header.Get(HeaderJustification))
	if justification == "" {
		justification = strings.TrimSpace(r.URL.Query().Get("justification"))
	}
	if len(justification) > maxJustificationLen {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "justification is too long"))
		return
	}

	n, decision, err := h.service.ViewNote(ctx, noteID, justification)
	if err != nil {
		h.fail(ctx, w, "view note failed", err, "note_id", noteID.String(), "rule_id", decision.RuleID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ViewNoteResponse{Note: n.Snapshot(), Decision: decision})
}

// HandleUpdateContent handles PUT /notes/{noteID}/content.
func (h *Handler) HandleUpdateContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noteID, ok := h.noteID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateContentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	n, err := h.service.UpdateContent(ctx, noteID, req.Title, req.Content)
	if err != nil {
		h.fail(ctx, w, "update note content failed", err, "note_id", noteID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNoteResponse(n))
}

// HandleChangeVisibility handles PUT /notes/{noteID}/visibility.
func (h *Handler) HandleChangeVisibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noteID, ok := h.noteID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VisibilityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	n, err := h.service.ChangeVisibility(ctx, noteID, req.scope, req.viewers)
	if err != nil {
		h.fail(ctx, w, "change visibility failed", err, "note_id", noteID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNoteResponse(n))
}

// HandleSeal handles POST /notes/{noteID}/seal.
func (h *Handler) HandleSeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noteID, ok := h.noteID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SealRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	n, err := h.service.Seal(ctx, noteID, req.Command())
	if err != nil {
		h.fail(ctx, w, "seal note failed", err, "note_id", noteID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNoteResponse(n))
}

// HandleUnseal handles POST /notes/{noteID}/unseal.
func (h *Handler) HandleUnseal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noteID, ok := h.noteID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UnsealRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	n, err := h.service.Unseal(ctx, noteID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "unseal note failed", err, "note_id", noteID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNoteResponse(n))
}

// HandleExpireSeal handles POST /notes/{noteID}/expire-seal.
func (h *Handler) HandleExpireSeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noteID, ok := h.noteID(w, r)
	if !ok {
		return
	}
	n, err := h.service.ExpireSeal(ctx, noteID)
	if err != nil {
		h.fail(ctx, w, "expire seal failed", err, "note_id", noteID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNoteResponse(n))
}

func (h *Handler) noteID(w http.ResponseWriter, r *http.Request) (id.NoteID, bool) {
	noteID, err := id.ParseNoteID(chi.URLParam(r, "noteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.NoteID{}, false
	}
	return noteID, true
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
