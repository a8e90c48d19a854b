package dto

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/service"
)

// SubmitIncidentRequest payload. Description and category stay pointers so an
// omitted field can be told apart from an empty one.
type SubmitIncidentRequest struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Description *string `json:"description"`
	Priority    string  `json:"priority"`
	Category    *string `json:"category"`
}

// ToInput maps the payload to the service input.
func (r SubmitIncidentRequest) ToInput() service.SubmitInput {
	return service.SubmitInput{
		ReporterName:  r.Name,
		ReporterEmail: r.Email,
		Description:   r.Description,
		Priority:      r.Priority,
		Category:      r.Category,
	}
}

// EntityResponse is a recognised span of the description.
type EntityResponse struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// IncidentResponse is the public view of an incident.
type IncidentResponse struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	Entities       []EntityResponse `json:"entities"`
	Priority       domain.Priority  `json:"priority"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	AcknowledgedAt *time.Time       `json:"acknowledged_at"`
	ResolvedAt     *time.Time       `json:"resolved_at"`
	IsSLABreached  bool             `json:"is_sla_breached"`
	BreachedAt     *time.Time       `json:"breached_at"`
}

// NewIncidentResponse converts a domain incident.
func NewIncidentResponse(inc *domain.Incident) IncidentResponse {
	entities := make([]EntityResponse, 0, len(inc.Entities))
	for _, e := range inc.Entities {
		entities = append(entities, EntityResponse{Text: e.Text, Label: e.Label})
	}
	return IncidentResponse{
		ID:             inc.ID,
		Name:           inc.ReporterName,
		Email:          inc.ReporterEmail,
		Description:    inc.Description,
		Category:       inc.Category,
		Entities:       entities,
		Priority:       inc.Priority,
		SubmittedAt:    inc.SubmittedAt,
		AcknowledgedAt: inc.AcknowledgedAt,
		ResolvedAt:     inc.ResolvedAt,
		IsSLABreached:  inc.IsSLABreached,
		BreachedAt:     inc.BreachedAt,
	}
}

// SLAViolationResponse is one row of the SLA report.
type SLAViolationResponse struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Priority            domain.Priority `json:"priority"`
	SubmittedAt         time.Time       `json:"submitted_at"`
	AcknowledgeDeadline time.Time       `json:"acknowledge_deadline"`
	ResolveDeadline     time.Time       `json:"resolve_deadline"`
	NearAcknowledgment  bool            `json:"is_nearing_acknowledgment_sla"`
	NearResolution      bool            `json:"is_nearing_resolution_sla"`
	IsSLABreached       bool            `json:"is_sla_breached"`
	BreachedAt          *time.Time      `json:"breached_at"`
	TimeRemaining       string          `json:"time_remaining"`
}

// SLAReportResponse wraps a sweep result.
type SLAReportResponse struct {
	GeneratedAt   time.Time              `json:"generated_at"`
	Evaluated     int                    `json:"evaluated"`
	Skipped       int                    `json:"skipped"`
	NewlyBreached int                    `json:"newly_breached"`
	Violations    []SLAViolationResponse `json:"violations"`
}

// NewSLAReportResponse converts a sweep report.
func NewSLAReportResponse(r service.Report) SLAReportResponse {
	rows := make([]SLAViolationResponse, 0, len(r.Violations))
	for _, v := range r.Violations {
		rows = append(rows, SLAViolationResponse{
			ID:                  v.ID,
			Name:                v.ReporterName,
			Priority:            v.Priority,
			SubmittedAt:         v.SubmittedAt,
			AcknowledgeDeadline: v.AcknowledgeDeadline,
			ResolveDeadline:     v.ResolveDeadline,
			NearAcknowledgment:  v.NearAcknowledgment,
			NearResolution:      v.NearResolution,
			IsSLABreached:       v.IsSLABreached,
			BreachedAt:          v.BreachedAt,
			TimeRemaining:       v.TimeRemaining,
		})
	}
	return SLAReportResponse{
		GeneratedAt:   r.GeneratedAt,
		Evaluated:     r.Evaluated,
		Skipped:       r.Skipped,
		NewlyBreached: r.NewlyBreached,
		Violations:    rows,
	}
}

// DashboardResponse aggregates incident counts.
type DashboardResponse struct {
	Total        int                     `json:"total"`
	Acknowledged int                     `json:"acknowledged"`
	Resolved     int                     `json:"resolved"`
	Breached     int                     `json:"breached"`
	ByPriority   map[domain.Priority]int `json:"by_priority"`
}
