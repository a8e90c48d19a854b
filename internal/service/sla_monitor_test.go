package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

func seedIncident(repo *repository.MemoryIncidentRepository, name string, p domain.Priority, at time.Time) *domain.Incident {
	inc := &domain.Incident{
		ReporterName:  name,
		ReporterEmail: "r@example.com",
		Description:   "desc",
		Category:      domain.UnknownCategory,
		Priority:      p,
		SubmittedAt:   at,
	}
	repo.Put(inc)
	return inc
}

func TestEvaluate_P1Windows(t *testing.T) {
	inc := &domain.Incident{Priority: domain.PriorityP1, SubmittedAt: t0}

	tests := []struct {
		name      string
		at        time.Duration
		nearAck   bool
		nearRes   bool
		remaining string
	}{
		{"fresh", time.Minute, false, false, "3h59m0s"},
		{"exactly ten minutes before ack deadline", 5 * time.Minute, false, false, "3h55m0s"},
		{"just inside ack window", 5*time.Minute + time.Second, true, false, "3h54m59s"},
		{"exactly thirty minutes before resolve deadline", 210 * time.Minute, true, false, "30m0s"},
		{"inside resolve window", 230 * time.Minute, true, true, "10m0s"},
		{"at resolve deadline", 240 * time.Minute, true, true, AlreadyBreached},
		{"past resolve deadline", 241 * time.Minute, true, true, AlreadyBreached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := Evaluate(inc, t0.Add(tt.at))
			require.NoError(t, err)
			assert.Equal(t, tt.nearAck, eval.NearAcknowledgment)
			assert.Equal(t, tt.nearRes, eval.NearResolution)
			assert.Equal(t, tt.remaining, eval.TimeRemaining)
			assert.Equal(t, t0.Add(15*time.Minute), eval.AcknowledgeDeadline)
			assert.Equal(t, t0.Add(240*time.Minute), eval.ResolveDeadline)
		})
	}
}

func TestEvaluate_UnknownPriorityUsesDefault(t *testing.T) {
	eval, err := Evaluate(&domain.Incident{Priority: "P9", SubmittedAt: t0}, t0)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(60*time.Minute), eval.AcknowledgeDeadline)
	assert.Equal(t, t0.Add(1440*time.Minute), eval.ResolveDeadline)
}

func TestEvaluate_MissingSubmittedAt(t *testing.T) {
	_, err := Evaluate(&domain.Incident{Priority: domain.PriorityP1}, t0)
	assert.Error(t, err)
}

func newTestMonitor(repo repository.IncidentRepository, clock *fakeClock, d events.Dispatcher) *SLAMonitor {
	return NewSLAMonitor(SLAMonitorDependencies{IncidentRepo: repo, Dispatcher: d, Clock: clock.Now})
}

func TestSLAMonitor_BreachIsOneWay(t *testing.T) {
	repo := repository.NewMemoryIncidentRepository()
	inc := seedIncident(repo, "Alice", domain.PriorityP1, t0)
	clock := newFakeClock(t0.Add(241 * time.Minute))
	monitor := newTestMonitor(repo, clock, nil)
	ctx := context.Background()

	report, err := monitor.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	v := report.Violations[0]
	assert.Equal(t, inc.ID, v.ID)
	assert.Equal(t, "Alice", v.ReporterName)
	assert.True(t, v.IsSLABreached)
	require.NotNil(t, v.BreachedAt)
	assert.Equal(t, t0.Add(241*time.Minute), *v.BreachedAt)
	assert.Equal(t, AlreadyBreached, v.TimeRemaining)
	assert.Equal(t, 1, report.NewlyBreached)

	clock.Set(t0.Add(300 * time.Minute))
	report, err = monitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.NewlyBreached)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, t0.Add(241*time.Minute), *report.Violations[0].BreachedAt)

	stored, err := repo.GetByID(ctx, inc.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSLABreached)
	assert.Equal(t, t0.Add(241*time.Minute), *stored.BreachedAt)
}

func TestSLAMonitor_BreachStartsInsideResolveWindow(t *testing.T) {
	repo := repository.NewMemoryIncidentRepository()
	inc := seedIncident(repo, "Alice", domain.PriorityP1, t0)
	monitor := newTestMonitor(repo, newFakeClock(t0.Add(230*time.Minute)), nil)

	report, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.True(t, report.Violations[0].NearResolution)
	assert.True(t, report.Violations[0].IsSLABreached)
	assert.Equal(t, "10m0s", report.Violations[0].TimeRemaining)

	stored, err := repo.GetByID(context.Background(), inc.ID)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(230*time.Minute), *stored.BreachedAt)
}

func TestSLAMonitor_AcknowledgmentWindowDoesNotBreach(t *testing.T) {
	repo := repository.NewMemoryIncidentRepository()
	seedIncident(repo, "Alice", domain.PriorityP1, t0)
	monitor := newTestMonitor(repo, newFakeClock(t0.Add(20*time.Minute)), nil)

	report, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	v := report.Violations[0]
	assert.True(t, v.NearAcknowledgment)
	assert.False(t, v.NearResolution)
	assert.False(t, v.IsSLABreached)
	assert.Nil(t, v.BreachedAt)
}

func TestSLAMonitor_OmitsIncidentsWithinBudget(t *testing.T) {
	repo := repository.NewMemoryIncidentRepository()
	seedIncident(repo, "Alice", domain.PriorityP4, t0)
	monitor := newTestMonitor(repo, newFakeClock(t0.Add(time.Minute)), nil)

	report, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Violations)
	assert.Equal(t, 1, report.Evaluated)
}

func TestSLAMonitor_ResolvedIncidentsStillEvaluated(t *testing.T) {
	repo := repository.NewMemoryIncidentRepository()
	inc := seedIncident(repo, "Alice", domain.PriorityP2, t0)
	_, err := repo.SetMilestone(context.Background(), inc.ID, domain.MilestoneResolved, t0.Add(time.Minute))
	require.NoError(t, err)

	monitor := newTestMonitor(repo, newFakeClock(t0.Add(500*time.Minute)), nil)
	report, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.True(t, report.Violations[0].IsSLABreached)
}

func TestSLAMonitor_IsolatesFailures(t *testing.T) {
	mem := repository.NewMemoryIncidentRepository()
	malformed := &domain.Incident{ReporterName: "Broken", Priority: domain.PriorityP1}
	mem.Put(malformed)
	failing := seedIncident(mem, "Failing", domain.PriorityP1, t0)
	healthy := seedIncident(mem, "Healthy", domain.PriorityP1, t0)

	repo := &flakyIncidentRepository{
		IncidentRepository: mem,
		markBreachErr:      map[string]error{failing.ID: errors.New("deadlock detected")},
	}
	monitor := newTestMonitor(repo, newFakeClock(t0.Add(241*time.Minute)), nil)

	report, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Evaluated)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, healthy.ID, report.Violations[0].ID)
}

func TestSLAMonitor_ListFailure(t *testing.T) {
	repo := &flakyIncidentRepository{IncidentRepository: repository.NewMemoryIncidentRepository(), listErr: errors.New("down")}
	monitor := newTestMonitor(repo, newFakeClock(t0), nil)

	_, err := monitor.Sweep(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
}

func TestSLAMonitor_PublishesBreachOnce(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	var breaches []events.Event
	d.Subscribe(events.EventIncidentSLABreached, func(_ context.Context, e events.Event) error {
		breaches = append(breaches, e)
		return nil
	})

	repo := repository.NewMemoryIncidentRepository()
	inc := seedIncident(repo, "Alice", domain.PriorityP1, t0)
	monitor := newTestMonitor(repo, newFakeClock(t0.Add(241*time.Minute)), d)

	for i := 0; i < 3; i++ {
		_, err := monitor.Sweep(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, breaches, 1)
	assert.Equal(t, inc.ID, breaches[0].IncidentID)
	assert.Equal(t, events.SLABreachedPayload{
		Priority:        domain.PriorityP1,
		ResolveDeadline: t0.Add(240 * time.Minute),
		BreachedAt:      t0.Add(241 * time.Minute),
	}, breaches[0].Payload)
}
