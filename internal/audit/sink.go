// Package audit is the audit sink used by the command services.
//
// The sink is fire-and-forget: it never returns an error to the caller and
// never fails the command that produced the event. Failures are logged at
// error level and counted so they can be alerted on.
//
// Routing by category:
//   - compliance: written synchronously to the outbox
//   - security: buffered and written in the background
//   - operations: sampled, behind a circuit breaker
package audit

import (
	"context"
	"log/slog"
	"maps"
	"strconv"

	"casework/internal/audit/metrics"
	casemodels "casework/internal/casework/models"
	"casework/internal/confidentiality"
	"casework/internal/eventsource"
	notemodels "casework/internal/restrictednote/models"
	id "casework/pkg/domain"
	platformaudit "casework/pkg/platform/audit"
	"casework/pkg/requestcontext"
)

// MetadataSpecialHandling marks a decision on a note that needs stricter
// audit treatment. Decisions carrying it are routed to the security category.
const MetadataSpecialHandling = "special_handling"

// Sink receives policy decisions and lifecycle events.
type Sink interface {
	LogDecision(ctx context.Context, decision confidentiality.Decision, actorID id.ActorID, resourceID, resourceType, justification string, metadata map[string]string)
	LogLifecycleEvent(ctx context.Context, kind eventsource.Kind, actorID id.ActorID, resourceID string, metadata map[string]string)
}

// CompliancePublisher persists compliance events synchronously.
type CompliancePublisher interface {
	Emit(ctx context.Context, event platformaudit.Event) error
}

// SecurityPublisher buffers security events.
type SecurityPublisher interface {
	Emit(ctx context.Context, event platformaudit.Event)
}

// OpsTracker records operational events.
type OpsTracker interface {
	Track(ctx context.Context, event platformaudit.Event)
}

type lifecycleAction struct {
	action       platformaudit.AuditEvent
	resourceType string
}

var lifecycleActions = map[eventsource.Kind]lifecycleAction{
	casemodels.KindCaseOpened:             {platformaudit.EventCaseOpened, platformaudit.ResourceCase},
	casemodels.KindWorkerAssigned:         {platformaudit.EventCaseWorkerAssigned, platformaudit.ResourceCase},
	casemodels.KindAssignmentEnded:        {platformaudit.EventCaseAssignmentEnd, platformaudit.ResourceCase},
	casemodels.KindNoteAdded:              {platformaudit.EventCaseNoteAdded, platformaudit.ResourceCase},
	casemodels.KindStatusChanged:          {platformaudit.EventCaseStatusChanged, platformaudit.ResourceCase},
	casemodels.KindEnrollmentLinked:       {platformaudit.EventCaseLinked, platformaudit.ResourceCase},
	casemodels.KindServiceEpisodeLinked:   {platformaudit.EventCaseLinked, platformaudit.ResourceCase},
	casemodels.KindSafetyPlanLinked:       {platformaudit.EventCaseLinked, platformaudit.ResourceCase},
	casemodels.KindLegalAdvocacyLinked:    {platformaudit.EventCaseLinked, platformaudit.ResourceCase},
	casemodels.KindFinancialRequestLinked: {platformaudit.EventCaseLinked, platformaudit.ResourceCase},
	casemodels.KindCaseClosed:             {platformaudit.EventCaseClosed, platformaudit.ResourceCase},

	notemodels.KindNoteCreated:        {platformaudit.EventNoteCreated, platformaudit.ResourceRestrictedNote},
	notemodels.KindNoteContentUpdated: {platformaudit.EventNoteContentUpdated, platformaudit.ResourceRestrictedNote},
	notemodels.KindVisibilityChanged:  {platformaudit.EventNoteVisibility, platformaudit.ResourceRestrictedNote},
	notemodels.KindNoteSealed:         {platformaudit.EventNoteSealed, platformaudit.ResourceRestrictedNote},
	notemodels.KindNoteUnsealed:       {platformaudit.EventNoteUnsealed, platformaudit.ResourceRestrictedNote},
	notemodels.KindSealExpired:        {platformaudit.EventNoteSealExpired, platformaudit.ResourceRestrictedNote},
	notemodels.KindNoteAccessed:       {platformaudit.EventNoteAccessed, platformaudit.ResourceRestrictedNote},
}

// Publisher routes sink calls to the category publishers.
type Publisher struct {
	compliance CompliancePublisher
	security   SecurityPublisher
	ops        OpsTracker
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher builds the sink over the three category publishers.
func NewPublisher(compliance CompliancePublisher, security SecurityPublisher, ops OpsTracker, opts ...Option) *Publisher {
	p := &Publisher{
		compliance: compliance,
		security:   security,
		ops:        ops,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LogDecision records an access decision. Allowed decisions are compliance
// events; denials and any decision on a note needing special handling are
// security events.
func (p *Publisher) LogDecision(
	ctx context.Context,
	decision confidentiality.Decision,
	actorID id.ActorID,
	resourceID, resourceType, justification string,
	metadata map[string]string,
) {
	action := platformaudit.EventNoteAccessAllowed
	outcome := "allow"
	if !decision.Allowed {
		action = platformaudit.EventNoteAccessDenied
		outcome = "deny"
	}

	event := p.enrich(ctx, platformaudit.Event{
		ActorID:       actorID,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		Action:        string(action),
		Decision:      outcome,
		RuleID:        decision.RuleID,
		Reason:        decision.Reason,
		Justification: justification,
		Metadata:      maps.Clone(metadata),
	})

	special, _ := strconv.ParseBool(metadata[MetadataSpecialHandling])
	switch {
	case special:
		event.Severity = platformaudit.SeverityCritical
		if decision.Allowed {
			event.Severity = platformaudit.SeverityWarning
		}
		p.emitSecurity(ctx, event)
	case !decision.Allowed:
		event.Severity = platformaudit.SeverityWarning
		p.emitSecurity(ctx, event)
	default:
		p.emitCompliance(ctx, event)
	}
}

// LogLifecycleEvent records a committed domain event.
func (p *Publisher) LogLifecycleEvent(
	ctx context.Context,
	kind eventsource.Kind,
	actorID id.ActorID,
	resourceID string,
	metadata map[string]string,
) {
	mapped, ok := lifecycleActions[kind]
	if !ok {
		mapped = lifecycleAction{action: platformaudit.AuditEvent(kind), resourceType: "unknown"}
	}
	meta := maps.Clone(metadata)
	if meta == nil {
		meta = make(map[string]string, 1)
	}
	meta["event_kind"] = string(kind)

	event := p.enrich(ctx, platformaudit.Event{
		ActorID:      actorID,
		ResourceType: mapped.resourceType,
		ResourceID:   resourceID,
		Action:       string(mapped.action),
		Reason:       metadata["reason"],
		Metadata:     meta,
	})

	switch mapped.action.Category() {
	case platformaudit.CategoryCompliance:
		p.emitCompliance(ctx, event)
	case platformaudit.CategorySecurity:
		p.emitSecurity(ctx, event)
	default:
		p.ops.Track(ctx, event)
		p.count(platformaudit.CategoryOperations)
	}
}

func (p *Publisher) enrich(ctx context.Context, event platformaudit.Event) platformaudit.Event {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.Device = requestcontext.DeviceLabel(ctx)
	return event
}

func (p *Publisher) emitCompliance(ctx context.Context, event platformaudit.Event) {
	if err := p.compliance.Emit(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.IncSinkFailure(string(platformaudit.CategoryCompliance))
		}
		p.logger.ErrorContext(ctx, "audit sink failed",
			"log_type", "audit",
			"category", platformaudit.CategoryCompliance,
			"action", event.Action,
			"resource_id", event.ResourceID,
			"request_id", event.RequestID,
			"error", err,
		)
		return
	}
	p.count(platformaudit.CategoryCompliance)
}

func (p *Publisher) emitSecurity(ctx context.Context, event platformaudit.Event) {
	p.security.Emit(ctx, event)
	p.count(platformaudit.CategorySecurity)
}

func (p *Publisher) count(category platformaudit.EventCategory) {
	if p.metrics != nil {
		p.metrics.IncSinkEvent(string(category))
	}
}
