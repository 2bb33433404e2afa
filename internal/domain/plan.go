package domain

import (
	"fmt"
	"time"
)

type QuitPlan struct {
	ID        string
	MemberID  string
	Name      string
	Status    PlanStatus
	StartDate time.Time
	EndDate   *time.Time
	UseNRT    bool
	CreatedAt time.Time
	UpdatedAt time.Time

	// Phases is populated by aggregate reads only.
	Phases []*Phase
}

// Activate moves a draft plan to active.
func (p *QuitPlan) Activate(now time.Time) error {
	if p.Status != PlanDraft {
		return fmt.Errorf("plan %s is %s, only draft plans can be activated: %w", p.ID, p.Status, ErrInvalidState)
	}
	p.Status = PlanActive
	p.UpdatedAt = now
	return nil
}

// Abandon ends the plan early. Terminal plans cannot be abandoned again.
func (p *QuitPlan) Abandon(now time.Time) error {
	if p.Status.IsTerminal() {
		return fmt.Errorf("plan %s is already %s: %w", p.ID, p.Status, ErrInvalidState)
	}
	end := DateOf(now)
	p.Status = PlanAbandoned
	p.EndDate = &end
	p.UpdatedAt = now
	return nil
}

// Complete marks the plan finished after its last phase advanced.
func (p *QuitPlan) Complete(now time.Time) error {
	if p.Status != PlanActive {
		return fmt.Errorf("plan %s is %s, only active plans can complete: %w", p.ID, p.Status, ErrInvalidState)
	}
	end := DateOf(now)
	p.Status = PlanCompleted
	p.EndDate = &end
	p.UpdatedAt = now
	return nil
}
