package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/incident-service/internal/domain"
)

// MemoryIncidentRepository keeps incidents in process memory, in insertion order.
// A single mutex serialises every read-modify-write.
type MemoryIncidentRepository struct {
	mu    sync.Mutex
	byID  map[string]*domain.Incident
	order []string
}

// NewMemoryIncidentRepository returns an empty store.
func NewMemoryIncidentRepository() *MemoryIncidentRepository {
	return &MemoryIncidentRepository{byID: make(map[string]*domain.Incident)}
}

func (r *MemoryIncidentRepository) Create(_ context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident.ID = uuid.NewString()
	r.byID[incident.ID] = incident.Clone()
	r.order = append(r.order, incident.ID)
	return nil
}

func (r *MemoryIncidentRepository) GetByID(_ context.Context, id string) (*domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return incident.Clone(), nil
}

func (r *MemoryIncidentRepository) List(_ context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var name string
	if filter.NameContains != nil {
		name = strings.ToLower(*filter.NameContains)
	}

	result := []domain.Incident{}
	for _, id := range r.order {
		incident := r.byID[id]
		if name != "" && !strings.Contains(strings.ToLower(incident.ReporterName), name) {
			continue
		}
		if filter.Category != nil && *filter.Category != "" && incident.Category != *filter.Category {
			continue
		}
		result = append(result, *incident.Clone())
	}
	return result, nil
}

func (r *MemoryIncidentRepository) SetMilestone(_ context.Context, id string, m domain.Milestone, at time.Time) (*domain.Incident, error) {
	if _, err := milestoneColumn(m); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	incident, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if incident.MilestoneAt(m) != nil {
		return nil, ErrConflict
	}
	if at.Before(incident.SubmittedAt) {
		at = incident.SubmittedAt
	}
	incident.SetMilestone(m, at)
	return incident.Clone(), nil
}

func (r *MemoryIncidentRepository) MarkBreached(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident, ok := r.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if incident.IsSLABreached {
		return false, nil
	}
	incident.IsSLABreached = true
	incident.BreachedAt = &at
	return true, nil
}

// Put stores a record as-is. Intended for seeding fixtures.
func (r *MemoryIncidentRepository) Put(incident *domain.Incident) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	if _, exists := r.byID[incident.ID]; !exists {
		r.order = append(r.order, incident.ID)
	}
	r.byID[incident.ID] = incident.Clone()
}
