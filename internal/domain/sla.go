package domain

import "time"

// SLABudget holds the time allowed for each milestone of a tier.
type SLABudget struct {
	AcknowledgmentMinutes int
	ResolutionMinutes     int
}

// Acknowledgment returns the acknowledgment budget as a duration.
func (b SLABudget) Acknowledgment() time.Duration {
	return time.Duration(b.AcknowledgmentMinutes) * time.Minute
}

// Resolution returns the resolution budget as a duration.
func (b SLABudget) Resolution() time.Duration {
	return time.Duration(b.ResolutionMinutes) * time.Minute
}

// DefaultSLABudget applies to any priority outside the policy table.
var DefaultSLABudget = SLABudget{AcknowledgmentMinutes: 60, ResolutionMinutes: 1440}

var slaPolicy = map[Priority]SLABudget{
	PriorityP1: {AcknowledgmentMinutes: 15, ResolutionMinutes: 240},
	PriorityP2: {AcknowledgmentMinutes: 30, ResolutionMinutes: 480},
	PriorityP3: {AcknowledgmentMinutes: 60, ResolutionMinutes: 1440},
	PriorityP4: {AcknowledgmentMinutes: 120, ResolutionMinutes: 4320},
}

// BudgetsFor is total: unknown priorities get DefaultSLABudget.
func BudgetsFor(p Priority) SLABudget {
	if b, ok := slaPolicy[p]; ok {
		return b
	}
	return DefaultSLABudget
}
