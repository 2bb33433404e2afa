package domain

import "time"

// SystemPhaseCondition is an admin-authored advancement rule for a phase kind.
// Expression holds the rule tree as JSON; it is versioned by UpdatedAt.
type SystemPhaseCondition struct {
	ID         string
	Name       string
	PhaseKind  PhaseKind
	Expression string
	UpdatedAt  time.Time
}

// BlueprintPhase is one step of the phase sequence laid out for a new plan.
type BlueprintPhase struct {
	Kind         PhaseKind
	OrderIndex   int
	DurationDays int
}
