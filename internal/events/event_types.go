package events

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentSubmitted    EventType = "incident_submitted"
	EventIncidentAcknowledged EventType = "incident_acknowledged"
	EventIncidentResolved     EventType = "incident_resolved"
	EventIncidentSLABreached  EventType = "incident_sla_breached"
)

// Actor is the caller that triggered the event. System events carry an empty username.
type Actor struct {
	Username string        `json:"username,omitempty"`
	Roles    []domain.Role `json:"roles,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	IncidentID string      `json:"incident_id"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// IncidentSubmittedPayload payload.
type IncidentSubmittedPayload struct {
	Priority      domain.Priority `json:"priority"`
	Category      string          `json:"category"`
	ReporterEmail string          `json:"reporter_email"`
	Classified    bool            `json:"classified"`
}

// MilestonePayload is carried by acknowledged and resolved events.
type MilestonePayload struct {
	Milestone domain.Milestone `json:"milestone"`
	At        time.Time        `json:"at"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Priority        domain.Priority `json:"priority"`
	ResolveDeadline time.Time       `json:"resolve_deadline"`
	BreachedAt      time.Time       `json:"breached_at"`
}

// ActorFrom builds an Actor from an authenticated identity.
func ActorFrom(id domain.Identity) Actor {
	return Actor{Username: id.Username, Roles: append([]domain.Role(nil), id.Roles...)}
}
