// Package admin serves the oversight endpoints: audit trails, the
// sealed-note registry and token revocation. Routes are expected behind an
// ADMIN role check.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"casework/internal/admin/types"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/httputil"
	"casework/pkg/requestcontext"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// AuditTrail reads materialized audit records.
type AuditTrail interface {
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]*types.AuditEntry, error)
	ListRecent(ctx context.Context, limit int) ([]*types.AuditEntry, error)
}

// SealRegistry lists sealed notes.
type SealRegistry interface {
	ListSealed(ctx context.Context) ([]*types.SealedNote, error)
}

// TokenRevoker revokes access tokens by jti.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type Handler struct {
	audit   AuditTrail
	seals   SealRegistry
	revoker TokenRevoker
	logger  *slog.Logger
}

type Option func(*Handler)

// WithSealRegistry mounts GET /admin/sealed-notes.
func WithSealRegistry(seals SealRegistry) Option {
	return func(h *Handler) {
		h.seals = seals
	}
}

// WithTokenRevoker mounts POST /admin/revocations.
func WithTokenRevoker(revoker TokenRevoker) Option {
	return func(h *Handler) {
		h.revoker = revoker
	}
}

// New constructs the admin handler. The sealed-note and revocation routes
// are only mounted when their backing stores are configured.
func New(audit AuditTrail, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{audit: audit, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts admin endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit/recent", h.HandleRecent)
	r.Get("/admin/audit/{resourceType}/{resourceID}", h.HandleTrail)
	if h.seals != nil {
		r.Get("/admin/sealed-notes", h.HandleSealedNotes)
	}
	if h.revoker != nil {
		r.Post("/admin/revocations", h.HandleRevoke)
	}
}

// HandleTrail handles GET /admin/audit/{resourceType}/{resourceID}.
func (h *Handler) HandleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resourceType := chi.URLParam(r, "resourceType")
	resourceID := chi.URLParam(r, "resourceID")

	entries, err := h.audit.ListByResource(ctx, resourceType, resourceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit trail",
			"request_id", requestcontext.RequestID(ctx),
			"resource_type", resourceType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditTrailResponse(entries))
}

// HandleRecent handles GET /admin/audit/recent?limit=N.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRecentLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	entries, err := h.audit.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list recent audit entries",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditTrailResponse(entries))
}

// HandleSealedNotes handles GET /admin/sealed-notes.
func (h *Handler) HandleSealedNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notes, err := h.seals.ListSealed(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sealed notes",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSealedNotesResponse(notes))
}

// HandleRevoke handles POST /admin/revocations.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RevokeTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.revoker.Revoke(ctx, req.JTI, req.ttl); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "token revoked",
		"request_id", requestID,
		"actor_id", requestcontext.ActorID(ctx).String(),
		"jti", req.JTI,
	)
	w.WriteHeader(http.StatusNoContent)
}
