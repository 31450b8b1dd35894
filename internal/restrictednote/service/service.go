package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"casework/internal/confidentiality"
	"casework/internal/confidentiality/metrics"
	"casework/internal/eventsource"
	"casework/internal/restrictednote/models"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	platformaudit "casework/pkg/platform/audit"
	"casework/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks NoteRepository,AuditSink

const (
	tracerName = "casework/internal/restrictednote/service"

	// MetadataSpecialHandling matches the key the audit sink routes on.
	MetadataSpecialHandling = "special_handling"
)

// NoteRepository loads and saves restricted notes. eventsource.Repository
// satisfies it.
type NoteRepository interface {
	Load(ctx context.Context, aggregateID uuid.UUID) (*models.RestrictedNote, error)
	Save(ctx context.Context, n *models.RestrictedNote) error
}

// AuditSink receives policy decisions and committed lifecycle events.
type AuditSink interface {
	LogDecision(ctx context.Context, decision confidentiality.Decision, actorID id.ActorID, resourceID, resourceType, justification string, metadata map[string]string)
	LogLifecycleEvent(ctx context.Context, kind eventsource.Kind, actorID id.ActorID, resourceID string, metadata map[string]string)
}

// Service runs restricted note commands and the audited read path.
//
// Every read goes through the confidentiality engine and every decision is
// written to the audit sink before the caller sees a result.
type Service struct {
	repo    NoteRepository
	audit   AuditSink
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	newID   func() uuid.UUID
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditSink(sink AuditSink) Option {
	return func(s *Service) {
		s.audit = sink
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithIDGenerator overrides uuid.New for new note ids.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// New constructs a Service.
func New(repo NoteRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: slog.Default(),
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// CreateNote creates a note authored by the calling actor. An empty scope
// takes the note type's default.
func (s *Service) CreateNote(ctx context.Context, cmd CreateNoteCommand) (*models.RestrictedNote, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	n, err := models.Create(models.CreateParams{
		NoteID:            id.NoteID(s.newID()),
		ClientID:          cmd.ClientID,
		CaseID:            cmd.CaseID,
		NoteType:          cmd.NoteType,
		Scope:             cmd.Scope,
		Title:             cmd.Title,
		Content:           cmd.Content,
		AuthorID:          actor,
		AuthorName:        requestcontext.ActorName(ctx),
		AuthorizedViewers: cmd.AuthorizedViewers,
	}, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, "create_note", n, actor); err != nil {
		return nil, err
	}
	return n, nil
}

// ViewNote returns the note if the calling actor may see it. The decision is
// audited either way; an allowed read also appends an access event. A denial
// returns a forbidden error and appends nothing. Losing the append to a
// concurrent writer returns the concurrency conflict; the caller retries.
func (s *Service) ViewNote(ctx context.Context, noteID id.NoteID, justification string) (*models.RestrictedNote, confidentiality.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "restrictednote.ViewNote", trace.WithAttributes(
		attribute.String("note.id", noteID.String()),
	))
	defer span.End()

	actor, err := requireActor(ctx)
	if err != nil {
		return nil, confidentiality.Decision{}, err
	}
	roles := requestcontext.ActorRoles(ctx)

	n, err := s.load(ctx, noteID)
	if err != nil {
		span.RecordError(err)
		return nil, confidentiality.Decision{}, err
	}

	decision := s.decide(ctx, n, actor, roles, justification)
	span.SetAttributes(
		attribute.Bool("policy.allowed", decision.Allowed),
		attribute.String("policy.rule_id", decision.RuleID),
	)
	if !decision.Allowed {
		return nil, decision, dErrors.New(dErrors.CodeForbidden, decision.Reason)
	}

	if err := n.RecordAccess(actor, models.AccessTypeView, justification, decision.RuleID, requestcontext.Now(ctx)); err != nil {
		return nil, decision, err
	}
	if err := s.commit(ctx, "view_note", n, actor); err != nil {
		span.RecordError(err)
		return nil, decision, err
	}
	return n, decision, nil
}

// UpdateContent replaces the note body. The actor must be able to see the
// note and the note must not be sealed.
func (s *Service) UpdateContent(ctx context.Context, noteID id.NoteID, title, content string) (*models.RestrictedNote, error) {
	return s.execute(ctx, "update_content", noteID, s.requireVisible, func(n *models.RestrictedNote, actor id.ActorID, now time.Time) error {
		return n.UpdateContent(title, content, actor, now)
	})
}

// ChangeVisibility replaces the scope and allow-list.
func (s *Service) ChangeVisibility(ctx context.Context, noteID id.NoteID, scope confidentiality.VisibilityScope, viewers []id.ActorID) (*models.RestrictedNote, error) {
	return s.execute(ctx, "change_visibility", noteID, s.requireVisible, func(n *models.RestrictedNote, actor id.ActorID, now time.Time) error {
		return n.ChangeVisibility(scope, viewers, actor, now)
	})
}

// Seal places a confidentiality hold. Only an actor who can see the note
// may seal it; afterwards only that actor can.
func (s *Service) Seal(ctx context.Context, noteID id.NoteID, cmd SealCommand) (*models.RestrictedNote, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	name := requestcontext.ActorName(ctx)
	return s.execute(ctx, "seal", noteID, s.requireVisible, func(n *models.RestrictedNote, actor id.ActorID, now time.Time) error {
		return n.Seal(actor, name, cmd.Reason, cmd.LegalBasis, cmd.IsTemporary, cmd.ExpiresAt, now)
	})
}

// Unseal lifts the hold. Only the sealer or an administrator may unseal.
func (s *Service) Unseal(ctx context.Context, noteID id.NoteID, reason string) (*models.RestrictedNote, error) {
	return s.execute(ctx, "unseal", noteID, s.requireSealerOrAdmin, func(n *models.RestrictedNote, actor id.ActorID, now time.Time) error {
		return n.Unseal(actor, reason, now)
	})
}

// ExpireSeal lifts a temporary seal past its expiry. Any authenticated
// actor, including a scheduled job, may run it.
func (s *Service) ExpireSeal(ctx context.Context, noteID id.NoteID) (*models.RestrictedNote, error) {
	return s.execute(ctx, "expire_seal", noteID, nil, func(n *models.RestrictedNote, actor id.ActorID, now time.Time) error {
		return n.ExpireSeal(actor, now)
	})
}

type guard func(ctx context.Context, n *models.RestrictedNote, actor id.ActorID) error

func (s *Service) execute(ctx context.Context, command string, noteID id.NoteID, check guard, fn func(n *models.RestrictedNote, actor id.ActorID, now time.Time) error) (*models.RestrictedNote, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.load(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(ctx, n, actor); err != nil {
			return nil, err
		}
	}
	if err := fn(n, actor, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, command, n, actor); err != nil {
		return nil, err
	}
	return n, nil
}

// requireVisible runs the policy for a write and audits the decision.
func (s *Service) requireVisible(ctx context.Context, n *models.RestrictedNote, actor id.ActorID) error {
	decision := s.decide(ctx, n, actor, requestcontext.ActorRoles(ctx), "")
	if !decision.Allowed {
		return dErrors.New(dErrors.CodeForbidden, decision.Reason)
	}
	return nil
}

func (s *Service) requireSealerOrAdmin(ctx context.Context, n *models.RestrictedNote, actor id.ActorID) error {
	seal, ok := n.CurrentSeal()
	if !ok {
		return nil
	}
	if seal.SealedBy == actor || confidentiality.NewRoleSet(requestcontext.ActorRoles(ctx)...).Has(confidentiality.RoleAdmin) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "only the sealer or an administrator may unseal")
}

func (s *Service) decide(ctx context.Context, n *models.RestrictedNote, actor id.ActorID, roles []string, justification string) confidentiality.Decision {
	decision := n.Decide(actor, roles...)
	if s.metrics != nil {
		s.metrics.IncrementDecision(decision.RuleID, decision.Allowed)
	}
	if !decision.Allowed {
		s.logger.WarnContext(ctx, "restricted note access denied",
			"note_id", n.NoteID(),
			"actor_id", actor,
			"rule_id", decision.RuleID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if s.audit != nil {
		s.audit.LogDecision(ctx, decision, actor, n.NoteID().String(), platformaudit.ResourceRestrictedNote, justification, map[string]string{
			MetadataSpecialHandling: strconv.FormatBool(n.RequiresSpecialHandling()),
			"note_type":             string(n.NoteType()),
			"visibility_scope":      string(n.Scope()),
			"sealed":                strconv.FormatBool(n.IsSealed()),
		})
	}
	return decision
}

func (s *Service) load(ctx context.Context, noteID id.NoteID) (*models.RestrictedNote, error) {
	n, err := s.repo.Load(ctx, uuid.UUID(noteID))
	if err != nil {
		return nil, eventsource.ToDomainError(err, "note")
	}
	return n, nil
}

func (s *Service) commit(ctx context.Context, command string, n *models.RestrictedNote, actor id.ActorID) error {
	pending := n.PendingEvents()
	if len(pending) == 0 {
		return nil
	}
	if err := s.repo.Save(ctx, n); err != nil {
		return eventsource.ToDomainError(err, "note")
	}
	s.logger.InfoContext(ctx, "restricted note command applied",
		"command", command,
		"note_id", n.NoteID(),
		"actor_id", actor,
		"version", n.Version(),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.audit == nil {
		return nil
	}
	for _, e := range pending {
		s.audit.LogLifecycleEvent(ctx, e.EventKind(), actor, n.NoteID().String(), lifecycleMetadata(e))
	}
	return nil
}

func requireActor(ctx context.Context) (id.ActorID, error) {
	actor := requestcontext.ActorID(ctx)
	if actor.IsNil() {
		return id.ActorID{}, dErrors.New(dErrors.CodeUnauthorized, "authenticated actor required")
	}
	return actor, nil
}
