package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// Warning windows before each deadline.
const (
	AcknowledgmentWarning = 10 * time.Minute
	ResolutionWarning     = 30 * time.Minute
)

// AlreadyBreached replaces the remaining time once the resolution deadline has passed.
const AlreadyBreached = "Already Breached"

var errMissingSubmittedAt = errors.New("incident has no submission time")

// Evaluation is the SLA position of one incident at an instant.
type Evaluation struct {
	AcknowledgeDeadline time.Time
	ResolveDeadline     time.Time
	NearAcknowledgment  bool
	NearResolution      bool
	TimeRemaining       string
}

// Violating reports whether the incident belongs in the violation report.
func (e Evaluation) Violating() bool {
	return e.NearAcknowledgment || e.NearResolution
}

// Evaluate computes deadlines and warning flags. Resolved incidents are evaluated like any other.
func Evaluate(incident *domain.Incident, now time.Time) (Evaluation, error) {
	if incident.SubmittedAt.IsZero() {
		return Evaluation{}, errMissingSubmittedAt
	}
	budget := domain.BudgetsFor(incident.Priority)
	ackDeadline := incident.SubmittedAt.Add(budget.Acknowledgment())
	resolveDeadline := incident.SubmittedAt.Add(budget.Resolution())

	remaining := AlreadyBreached
	if resolveDeadline.After(now) {
		remaining = resolveDeadline.Sub(now).Truncate(time.Second).String()
	}

	return Evaluation{
		AcknowledgeDeadline: ackDeadline,
		ResolveDeadline:     resolveDeadline,
		NearAcknowledgment:  now.After(ackDeadline.Add(-AcknowledgmentWarning)),
		NearResolution:      now.After(resolveDeadline.Add(-ResolutionWarning)),
		TimeRemaining:       remaining,
	}, nil
}

// Violation is one entry in the SLA report.
type Violation struct {
	ID                  string
	ReporterName        string
	Priority            domain.Priority
	SubmittedAt         time.Time
	AcknowledgeDeadline time.Time
	ResolveDeadline     time.Time
	NearAcknowledgment  bool
	NearResolution      bool
	IsSLABreached       bool
	BreachedAt          *time.Time
	TimeRemaining       string
}

// Report is the outcome of one sweep.
type Report struct {
	GeneratedAt   time.Time
	Evaluated     int
	Skipped       int
	NewlyBreached int
	Violations    []Violation
}

// SLAMonitor sweeps incidents, persists breach transitions and reports violations.
type SLAMonitor struct {
	incidents  repository.IncidentRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        Clock
}

// SLAMonitorDependencies bundles collaborators for the monitor.
type SLAMonitorDependencies struct {
	IncidentRepo repository.IncidentRepository
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        Clock
}

// NewSLAMonitor constructs the monitor.
func NewSLAMonitor(deps SLAMonitorDependencies) *SLAMonitor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &SLAMonitor{
		incidents:  deps.IncidentRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

// Sweep evaluates every incident against one instant. A failure on one
// incident is logged and skipped; only a failed listing aborts the sweep.
func (m *SLAMonitor) Sweep(ctx context.Context) (Report, error) {
	started := time.Now()
	now := m.now().UTC()

	incidents, err := m.incidents.List(ctx, repository.IncidentFilter{})
	if err != nil {
		return Report{}, apperrors.NewUnavailable(err)
	}

	report := Report{GeneratedAt: now, Violations: []Violation{}}
	for i := range incidents {
		inc := &incidents[i]
		eval, err := Evaluate(inc, now)
		if err != nil {
			report.Skipped++
			m.logger.Warn("skipping incident in SLA sweep", zap.String("incident_id", inc.ID), zap.Error(err))
			continue
		}

		if !inc.IsSLABreached && eval.NearResolution {
			applied, err := m.markBreached(ctx, inc, eval, now)
			if err != nil {
				report.Skipped++
				m.logger.Warn("recording SLA breach failed", zap.String("incident_id", inc.ID), zap.Error(err))
				continue
			}
			if applied {
				report.NewlyBreached++
			}
		}
		report.Evaluated++

		if eval.Violating() {
			report.Violations = append(report.Violations, Violation{
				ID:                  inc.ID,
				ReporterName:        inc.ReporterName,
				Priority:            inc.Priority,
				SubmittedAt:         inc.SubmittedAt,
				AcknowledgeDeadline: eval.AcknowledgeDeadline,
				ResolveDeadline:     eval.ResolveDeadline,
				NearAcknowledgment:  eval.NearAcknowledgment,
				NearResolution:      eval.NearResolution,
				IsSLABreached:       inc.IsSLABreached,
				BreachedAt:          inc.BreachedAt,
				TimeRemaining:       eval.TimeRemaining,
			})
		}
	}

	m.metrics.SweepCompleted(len(report.Violations), time.Since(started))
	m.logger.Debug("SLA sweep completed",
		zap.Int("evaluated", report.Evaluated),
		zap.Int("skipped", report.Skipped),
		zap.Int("violations", len(report.Violations)),
		zap.Int("newly_breached", report.NewlyBreached))
	return report, nil
}

// markBreached flips the flag and refreshes inc with the stored state. When a
// concurrent sweep won the race, inc picks up that sweep's breachedAt.
func (m *SLAMonitor) markBreached(ctx context.Context, inc *domain.Incident, eval Evaluation, now time.Time) (bool, error) {
	applied, err := m.incidents.MarkBreached(ctx, inc.ID, now)
	if err != nil {
		return false, err
	}
	if !applied {
		current, err := m.incidents.GetByID(ctx, inc.ID)
		if err != nil {
			return false, err
		}
		inc.IsSLABreached = current.IsSLABreached
		inc.BreachedAt = current.BreachedAt
		return false, nil
	}

	at := now
	inc.IsSLABreached = true
	inc.BreachedAt = &at

	m.metrics.SLABreached(string(inc.Priority))
	m.logger.Info("incident breached SLA",
		zap.String("incident_id", inc.ID),
		zap.String("priority", string(inc.Priority)),
		zap.Time("resolve_deadline", eval.ResolveDeadline))
	publishEvent(ctx, m.dispatcher, m.logger, events.Event{
		Type:       events.EventIncidentSLABreached,
		IncidentID: inc.ID,
		Timestamp:  now,
		Payload: events.SLABreachedPayload{
			Priority:        inc.Priority,
			ResolveDeadline: eval.ResolveDeadline,
			BreachedAt:      now,
		},
	})
	return true, nil
}
