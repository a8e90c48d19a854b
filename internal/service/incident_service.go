package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/classify"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// Clock returns the current instant. Services always convert it to UTC.
type Clock func() time.Time

// IncidentService applies submit, acknowledge and resolve transitions.
type IncidentService struct {
	incidents  repository.IncidentRepository
	classifier classify.Classifier
	gate       *auth.Gate
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	validate   *validator.Validate
	now        Clock
}

// IncidentDependencies bundles collaborators for the incident service.
type IncidentDependencies struct {
	IncidentRepo repository.IncidentRepository
	Classifier   classify.Classifier
	Gate         *auth.Gate
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        Clock
}

// SubmitInput describes an incident submission. A nil Description is rejected;
// an empty one is accepted and classified as Unknown. A nil or blank Category
// asks the classifier.
type SubmitInput struct {
	ReporterName  string  `validate:"required,max=200"`
	ReporterEmail string  `validate:"required,email,max=320"`
	Description   *string `validate:"-"`
	Priority      string  `validate:"required"`
	Category      *string `validate:"-"`
}

// DashboardSummary aggregates incident counts.
type DashboardSummary struct {
	Total        int
	Acknowledged int
	Resolved     int
	Breached     int
	ByPriority   map[domain.Priority]int
}

// NewIncidentService constructs the service.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	gate := deps.Gate
	if gate == nil {
		gate = auth.NewGate(auth.DefaultPermissions)
	}
	return &IncidentService{
		incidents:  deps.IncidentRepo,
		classifier: deps.Classifier,
		gate:       gate,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		validate:   validator.New(),
		now:        now,
	}
}

// Submit validates input, derives a category when none is given and persists a new incident.
func (s *IncidentService) Submit(ctx context.Context, input SubmitInput) (*domain.Incident, error) {
	input.ReporterName = strings.TrimSpace(input.ReporterName)
	input.ReporterEmail = strings.TrimSpace(input.ReporterEmail)

	if err := s.validate.Struct(input); err != nil {
		return nil, validationFailure(err)
	}
	if input.Description == nil {
		return nil, apperrors.NewValidationError("validation error", map[string]any{"description": "required"})
	}
	priority, err := domain.ParsePriority(input.Priority)
	if err != nil {
		return nil, apperrors.NewValidationError("validation error", map[string]any{
			"priority": "must be one of P1, P2, P3, P4",
		})
	}

	category, entities, classified := s.categorize(ctx, *input.Description, input.Category)

	incident := &domain.Incident{
		ReporterName:  input.ReporterName,
		ReporterEmail: input.ReporterEmail,
		Description:   *input.Description,
		Category:      category,
		Entities:      entities,
		Priority:      priority,
		SubmittedAt:   s.clock(),
	}
	if err := s.incidents.Create(ctx, incident); err != nil {
		s.logger.Error("persist incident failed", zap.Error(err))
		return nil, apperrors.NewUnavailable(err)
	}

	s.metrics.IncidentSubmitted(string(priority))
	s.logger.Info("incident submitted",
		zap.String("incident_id", incident.ID),
		zap.String("priority", string(priority)),
		zap.String("category", category))
	s.publishEvent(ctx, events.Event{
		Type:       events.EventIncidentSubmitted,
		IncidentID: incident.ID,
		Timestamp:  incident.SubmittedAt,
		Payload: events.IncidentSubmittedPayload{
			Priority:      priority,
			Category:      category,
			ReporterEmail: incident.ReporterEmail,
			Classified:    classified,
		},
	})
	return incident, nil
}

// categorize returns the supplied category, or asks the classifier. The third
// result reports whether the classifier produced the category.
func (s *IncidentService) categorize(ctx context.Context, description string, supplied *string) (string, []domain.Entity, bool) {
	if supplied != nil {
		if c := strings.TrimSpace(*supplied); c != "" {
			return c, []domain.Entity{}, false
		}
	}
	if s.classifier == nil {
		return domain.UnknownCategory, []domain.Entity{}, false
	}

	res, err := s.classifier.Classify(ctx, description)
	if err != nil {
		s.metrics.ClassifierFallback()
		s.logger.Warn("classification failed, using default category", zap.Error(err))
		return domain.UnknownCategory, []domain.Entity{}, false
	}
	entities := res.Entities
	if entities == nil {
		entities = []domain.Entity{}
	}
	if strings.TrimSpace(res.Category) == "" {
		s.metrics.ClassifierFallback()
		return domain.UnknownCategory, entities, false
	}
	return res.Category, entities, true
}

// Acknowledge records the acknowledgment milestone once.
func (s *IncidentService) Acknowledge(ctx context.Context, id string, caller domain.Identity) (*domain.Incident, error) {
	if err := s.gate.Authorize(caller, auth.ActionAcknowledge); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, domain.MilestoneAcknowledged, caller)
}

// Resolve records the resolution milestone once. Acknowledgment is not required first.
func (s *IncidentService) Resolve(ctx context.Context, id string, caller domain.Identity) (*domain.Incident, error) {
	if err := s.gate.Authorize(caller, auth.ActionResolve); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, domain.MilestoneResolved, caller)
}

func (s *IncidentService) transition(ctx context.Context, id string, m domain.Milestone, caller domain.Identity) (*domain.Incident, error) {
	incident, err := s.incidents.SetMilestone(ctx, id, m, s.clock())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.metrics.Transition(string(m), "not_found")
		return nil, apperrors.NewNotFound("incident", map[string]any{"id": id})
	case errors.Is(err, repository.ErrConflict):
		s.metrics.Transition(string(m), "conflict")
		return nil, apperrors.NewConflict("incident already "+string(m), map[string]any{"id": id})
	case err != nil:
		s.metrics.Transition(string(m), "error")
		s.logger.Error("persist milestone failed", zap.String("incident_id", id), zap.String("milestone", string(m)), zap.Error(err))
		return nil, apperrors.NewUnavailable(err)
	}

	s.metrics.Transition(string(m), "ok")
	at := *incident.MilestoneAt(m)
	eventType := events.EventIncidentAcknowledged
	if m == domain.MilestoneResolved {
		eventType = events.EventIncidentResolved
	}
	s.publishEvent(ctx, events.Event{
		Type:       eventType,
		IncidentID: incident.ID,
		Actor:      events.ActorFrom(caller),
		Timestamp:  at,
		Payload:    events.MilestonePayload{Milestone: m, At: at},
	})
	return incident, nil
}

// List returns incidents in submission order, filtered by reporter name substring and exact category.
func (s *IncidentService) List(ctx context.Context, filter repository.IncidentFilter) ([]domain.Incident, error) {
	incidents, err := s.incidents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	return incidents, nil
}

// Get returns a single incident.
func (s *IncidentService) Get(ctx context.Context, id string) (*domain.Incident, error) {
	incident, err := s.incidents.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("incident", map[string]any{"id": id})
	}
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	return incident, nil
}

// Dashboard counts incidents by milestone, breach flag and priority.
func (s *IncidentService) Dashboard(ctx context.Context) (DashboardSummary, error) {
	incidents, err := s.List(ctx, repository.IncidentFilter{})
	if err != nil {
		return DashboardSummary{}, err
	}
	summary := DashboardSummary{ByPriority: make(map[domain.Priority]int, len(domain.Priorities))}
	for _, p := range domain.Priorities {
		summary.ByPriority[p] = 0
	}
	for i := range incidents {
		inc := &incidents[i]
		summary.Total++
		if inc.AcknowledgedAt != nil {
			summary.Acknowledged++
		}
		if inc.ResolvedAt != nil {
			summary.Resolved++
		}
		if inc.IsSLABreached {
			summary.Breached++
		}
		summary.ByPriority[inc.Priority]++
	}
	return summary, nil
}

func (s *IncidentService) clock() time.Time {
	return s.now().UTC()
}

func (s *IncidentService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("incident_id", event.IncidentID),
			zap.Error(err))
	}
}

// validationFailure converts validator output into field details.
func validationFailure(err error) error {
	details := map[string]any{}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fieldName(fe.Field())] = fe.Tag()
		}
	} else {
		details["input"] = err.Error()
	}
	return apperrors.NewValidationError("validation error", details)
}

func fieldName(structField string) string {
	switch structField {
	case "ReporterName":
		return "name"
	case "ReporterEmail":
		return "email"
	default:
		return strings.ToLower(structField)
	}
}
