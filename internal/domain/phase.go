package domain

import (
	"fmt"
	"time"
)

type Phase struct {
	ID               string
	PlanID           string
	Kind             PhaseKind
	OrderIndex       int
	AnchorStart      time.Time
	DurationDays     int
	Status           PhaseStatus
	CurrentAttemptID *string
	Reason           string
	EvaluatedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Details holds the current attempt's days when loaded as an aggregate.
	Details []*PhaseDetail
}

// EndDate is the last calendar day of the current window.
func (p *Phase) EndDate() time.Time {
	return AddDays(p.AnchorStart, p.DurationDays-1)
}

// Contains reports whether day falls inside the current window.
func (p *Phase) Contains(day time.Time) bool {
	d := DateOf(day)
	return !d.Before(DateOf(p.AnchorStart)) && !d.After(p.EndDate())
}

// WindowElapsed reports whether the last day of the window has passed.
func (p *Phase) WindowElapsed(now time.Time) bool {
	return DateOf(now).After(p.EndDate())
}

// IsLastDay reports whether now is the final day of the window.
func (p *Phase) IsLastDay(now time.Time) bool {
	return DateOf(now).Equal(p.EndDate())
}

// DayIndex returns the 1-based index of day within the window, or 0 outside it.
func (p *Phase) DayIndex(day time.Time) int {
	if !p.Contains(day) {
		return 0
	}
	return DaysBetween(p.AnchorStart, day) + 1
}

// Start opens the phase's first attempt.
func (p *Phase) Start(attemptID string, anchor, now time.Time) error {
	if p.Status != PhasePendingStart {
		return fmt.Errorf("phase %s is %s, cannot start: %w", p.ID, p.Status, ErrInvalidState)
	}
	p.AnchorStart = DateOf(anchor)
	p.CurrentAttemptID = &attemptID
	p.Status = PhaseInProgress
	p.Reason = ""
	p.UpdatedAt = now
	return nil
}

// MarkRedoEligible records that the window elapsed without the rule passing.
func (p *Phase) MarkRedoEligible(reason string, now time.Time) error {
	if p.Status != PhaseInProgress {
		return fmt.Errorf("phase %s is %s, cannot become redo eligible: %w", p.ID, p.Status, ErrInvalidState)
	}
	p.Status = PhaseRedoEligible
	p.Reason = reason
	p.EvaluatedAt = &now
	p.UpdatedAt = now
	return nil
}

// MarkAdvanced closes the phase after its rule passed with the window elapsed.
// lastPhase selects the plan-completing terminal state.
func (p *Phase) MarkAdvanced(lastPhase bool, reason string, now time.Time) error {
	if !p.Status.IsOpen() {
		return fmt.Errorf("phase %s is %s, cannot advance: %w", p.ID, p.Status, ErrInvalidState)
	}
	p.Status = PhaseAdvanced
	if lastPhase {
		p.Status = PhasePlanCompleted
	}
	p.Reason = reason
	p.EvaluatedAt = &now
	p.UpdatedAt = now
	return nil
}

// Restart resets the window at anchor under a new attempt.
func (p *Phase) Restart(attemptID string, anchor, now time.Time) error {
	if p.Status != PhaseRedoEligible {
		return fmt.Errorf("phase %s is %s, only redo-eligible phases can be redone: %w", p.ID, p.Status, ErrInvalidState)
	}
	if !DateOf(anchor).After(p.EndDate()) {
		return fmt.Errorf("redo anchor %s must be after the previous window end %s: %w",
			DateOf(anchor).Format(DateLayout), p.EndDate().Format(DateLayout), ErrInvalidState)
	}
	p.AnchorStart = DateOf(anchor)
	p.CurrentAttemptID = &attemptID
	p.Status = PhaseInProgress
	p.Reason = ""
	p.UpdatedAt = now
	return nil
}

// PhaseAttempt is one run of a phase's day window. Redo appends a new attempt
// that points at the one it superseded.
type PhaseAttempt struct {
	ID                  string
	PhaseID             string
	AttemptNo           int
	AnchorStart         time.Time
	SupersedesAttemptID *string
	Outcome             AttemptOutcome
	CreatedAt           time.Time
}

// PhaseDetail is one calendar day inside an attempt's window.
type PhaseDetail struct {
	ID        string
	PhaseID   string
	AttemptID string
	DayIndex  int
	Date      time.Time
	Name      string
	CreatedAt time.Time

	Missions []*PhaseDetailMission
}

// DetailName is the display name for a 1-based day index.
func DetailName(dayIndex int) string {
	return fmt.Sprintf("Day %d", dayIndex)
}
