package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"casework/internal/casework/metrics"
	"casework/internal/casework/models"
	"casework/internal/eventsource"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks CaseRepository,AuditSink

// CaseRepository loads and saves case records. eventsource.Repository
// satisfies it.
type CaseRepository interface {
	Load(ctx context.Context, aggregateID uuid.UUID) (*models.CaseRecord, error)
	Save(ctx context.Context, c *models.CaseRecord) error
}

// AuditSink receives one lifecycle entry per committed event.
type AuditSink interface {
	LogLifecycleEvent(ctx context.Context, kind eventsource.Kind, actorID id.ActorID, resourceID string, metadata map[string]string)
}

// Service runs case commands: load, apply, save, then audit.
//
// A concurrent writer surfaces as a concurrency_conflict error and is not
// retried; the caller decides whether to reload and try again.
type Service struct {
	repo    CaseRepository
	audit   AuditSink
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// WithIDGenerator overrides uuid.New for new case, assignment and note ids.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// New constructs a Service.
func New(repo CaseRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: slog.Default(),
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenCase creates a new case in status OPEN.
func (s *Service) OpenCase(ctx context.Context, cmd OpenCaseCommand) (*models.CaseRecord, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	c, err := models.Open(id.CaseID(s.newID()), cmd.ClientID, cmd.CaseType, cmd.Priority, cmd.Description, actor, requestcontext.Now(ctx))
	if err != nil {
		s.observe("open_case", err)
		return nil, err
	}
	if err := s.commit(ctx, "open_case", c, actor); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementOpened()
	}
	return c, nil
}

// GetCase replays a case.
func (s *Service) GetCase(ctx context.Context, caseID id.CaseID) (*models.CaseRecord, error) {
	c, err := s.repo.Load(ctx, uuid.UUID(caseID))
	if err != nil {
		return nil, eventsource.ToDomainError(err, "case")
	}
	return c, nil
}

// AssignWorker starts an assignment and returns its id.
func (s *Service) AssignWorker(ctx context.Context, caseID id.CaseID, cmd AssignWorkerCommand) (*models.CaseRecord, id.AssignmentID, error) {
	if err := cmd.Validate(); err != nil {
		return nil, id.AssignmentID{}, err
	}
	assignmentID := id.AssignmentID(s.newID())
	c, err := s.execute(ctx, "assign_worker", caseID, func(c *models.CaseRecord, actor id.ActorID, now time.Time) error {
		return c.AssignTo(assignmentID, cmd.AssigneeID, cmd.AssigneeName, cmd.Role, cmd.AssignmentType, cmd.Reason, actor, now)
	})
	if err != nil {
		return nil, id.AssignmentID{}, err
	}
	return c, assignmentID, nil
}

// EndAssignment ends an active assignment.
func (s *Service) EndAssignment(ctx context.Context, caseID id.CaseID, assignmentID id.AssignmentID, reason string) (*models.CaseRecord, error) {
	return s.execute(ctx, "end_assignment", caseID, func(c *models.CaseRecord, actor id.ActorID, now time.Time) error {
		return c.EndAssignment(assignmentID, reason, actor, now)
	})
}

// AddNote attaches a plain note authored by the calling actor.
func (s *Service) AddNote(ctx context.Context, caseID id.CaseID, content string) (*models.CaseRecord, id.NoteID, error) {
	noteID := id.NoteID(s.newID())
	authorName := requestcontext.ActorName(ctx)
	c, err := s.execute(ctx, "add_note", caseID, func(c *models.CaseRecord, actor id.ActorID, now time.Time) error {
		return c.AddNote(noteID, actor, authorName, content, now)
	})
	if err != nil {
		return nil, id.NoteID{}, err
	}
	return c, noteID, nil
}

// UpdateStatus moves the case to target. Setting the current status is a
// no-op that emits and audits nothing.
func (s *Service) UpdateStatus(ctx context.Context, caseID id.CaseID, target models.CaseStatus, reason string) (*models.CaseRecord, error) {
	noop := false
	c, err := s.execute(ctx, "update_status", caseID, func(c *models.CaseRecord, actor id.ActorID, now time.Time) error {
		changed, err := c.UpdateStatus(target, reason, actor, now)
		noop = !changed
		return err
	})
	if err == nil && noop && s.metrics != nil {
		s.metrics.IncrementNoOpStatus()
	}
	return c, err
}

// Link records a related entity on the case. Linking the same id twice is an
// invariant violation.
func (s *Service) Link(ctx context.Context, caseID id.CaseID, kind models.LinkKind, targetID uuid.UUID) (*models.CaseRecord, error) {
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown link kind: "+string(kind))
	}
	return s.execute(ctx, "link", caseID, func(c *models.CaseRecord, actor id.ActorID, now time.Time) error {
		switch kind {
		case models.LinkProgramEnrollment:
			return c.LinkProgramEnrollment(id.EnrollmentID(targetID), actor, now)
		case models.LinkServiceEpisode:
			return c.LinkServiceEpisode(id.ServiceEpisodeID(targetID), actor, now)
		case models.LinkSafetyPlan:
			return c.LinkSafetyPlan(id.SafetyPlanID(targetID), actor, now)
		case models.LinkLegalAdvocacy:
			return c.LinkLegalAdvocacy(id.LegalAdvocacyID(targetID), actor, now)
		default:
			return c.LinkFinancialRequest(id.FinancialRequestID(targetID), actor, now)
		}
	})
}

// CloseCase closes the case. Closing twice is an invariant violation.
func (s *Service) CloseCase(ctx context.Context, caseID id.CaseID, reason string) (*models.CaseRecord, error) {
	c, err := s.execute(ctx, "close_case", caseID, func(c *models.CaseRecord, actor id.ActorID, now time.Time) error {
		return c.Close(reason, actor, now)
	})
	if err == nil && s.metrics != nil {
		s.metrics.IncrementClosed()
	}
	return c, err
}

// execute loads the case, applies fn and commits whatever fn emitted.
func (s *Service) execute(ctx context.Context, command string, caseID id.CaseID, fn func(c *models.CaseRecord, actor id.ActorID, now time.Time) error) (*models.CaseRecord, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Load(ctx, uuid.UUID(caseID))
	if err != nil {
		err = eventsource.ToDomainError(err, "case")
		s.observe(command, err)
		return nil, err
	}
	if err := fn(c, actor, requestcontext.Now(ctx)); err != nil {
		s.observe(command, err)
		return nil, err
	}
	if err := s.commit(ctx, command, c, actor); err != nil {
		return nil, err
	}
	return c, nil
}

// commit saves pending events and audits each one after the save succeeded.
func (s *Service) commit(ctx context.Context, command string, c *models.CaseRecord, actor id.ActorID) error {
	pending := c.PendingEvents()
	if len(pending) == 0 {
		s.observe(command, nil)
		return nil
	}
	if err := s.repo.Save(ctx, c); err != nil {
		err = eventsource.ToDomainError(err, "case")
		s.observe(command, err)
		if dErrors.HasCode(err, dErrors.CodeConcurrencyConflict) {
			s.logger.WarnContext(ctx, "case command lost a concurrent write",
				"command", command,
				"case_id", c.CaseID(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return err
	}

	s.observe(command, nil)
	s.logger.InfoContext(ctx, "case command applied",
		"command", command,
		"case_id", c.CaseID(),
		"actor_id", actor,
		"version", c.Version(),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.audit == nil {
		return nil
	}
	for _, e := range pending {
		s.audit.LogLifecycleEvent(ctx, e.EventKind(), actor, c.CaseID().String(), lifecycleMetadata(e))
	}
	return nil
}

func (s *Service) observe(command string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	s.metrics.IncrementCommand(command, outcome)
}

func requireActor(ctx context.Context) (id.ActorID, error) {
	actor := requestcontext.ActorID(ctx)
	if actor.IsNil() {
		return id.ActorID{}, dErrors.New(dErrors.CodeUnauthorized, "authenticated actor required")
	}
	return actor, nil
}
