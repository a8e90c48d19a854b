package domain

import (
	"fmt"
	"strings"
	"time"
)

// Priority enumerates SLA tiers.
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
	PriorityP4 Priority = "P4"
)

// Priorities lists every tier in order of urgency.
var Priorities = []Priority{PriorityP1, PriorityP2, PriorityP3, PriorityP4}

// ParsePriority accepts a tier label, ignoring case and surrounding whitespace.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	switch p {
	case PriorityP1, PriorityP2, PriorityP3, PriorityP4:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q", raw)
}

// UnknownCategory is stored when no category could be derived.
const UnknownCategory = "Unknown"

// Milestone identifies an optional timestamped event on an incident.
type Milestone string

const (
	MilestoneAcknowledged Milestone = "acknowledged"
	MilestoneResolved     Milestone = "resolved"
)

// Entity is a span of the description recognised by the classifier.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Incident is the aggregate tracked from submission to resolution.
// Acknowledgment and resolution are independent milestones.
type Incident struct {
	ID             string
	ReporterName   string
	ReporterEmail  string
	Description    string
	Category       string
	Entities       []Entity
	Priority       Priority
	SubmittedAt    time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
	IsSLABreached  bool
	BreachedAt     *time.Time
}

// MilestoneAt returns the timestamp recorded for m, or nil.
func (i *Incident) MilestoneAt(m Milestone) *time.Time {
	switch m {
	case MilestoneAcknowledged:
		return i.AcknowledgedAt
	case MilestoneResolved:
		return i.ResolvedAt
	}
	return nil
}

// SetMilestone records m at the given instant. Callers check MilestoneAt first.
func (i *Incident) SetMilestone(m Milestone, at time.Time) {
	switch m {
	case MilestoneAcknowledged:
		i.AcknowledgedAt = &at
	case MilestoneResolved:
		i.ResolvedAt = &at
	}
}

// Clone returns a deep copy so store-owned records never alias caller memory.
func (i *Incident) Clone() *Incident {
	if i == nil {
		return nil
	}
	out := *i
	if i.Entities != nil {
		out.Entities = append([]Entity(nil), i.Entities...)
	}
	out.AcknowledgedAt = cloneTime(i.AcknowledgedAt)
	out.ResolvedAt = cloneTime(i.ResolvedAt)
	out.BreachedAt = cloneTime(i.BreachedAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
