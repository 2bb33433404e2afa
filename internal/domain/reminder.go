package domain

import (
	"fmt"
	"time"
)

// ReminderTemplate is an admin-authored text pattern with {key} placeholders.
type ReminderTemplate struct {
	ID           string
	PhaseKind    PhaseKind
	ReminderType ReminderType
	TriggerCode  TriggerCode
	Content      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReminderSelector identifies the template to render.
type ReminderSelector struct {
	PhaseKind    PhaseKind
	ReminderType ReminderType
	TriggerCode  TriggerCode
}

func (s ReminderSelector) String() string {
	return fmt.Sprintf("%s/%s/%s", s.PhaseKind, s.ReminderType, s.TriggerCode)
}

// ReminderEntry is one scheduled outbound notification. The enqueuer creates it
// PENDING; only the sweep moves it to SENT or FAILED. Entries are never deleted.
type ReminderEntry struct {
	ID           string
	AccountID    string
	PlanID       string
	PhaseID      *string
	TemplateID   *string
	ReminderType ReminderType
	TriggerCode  TriggerCode
	ScheduledAt  time.Time
	Status       ReminderStatus
	Content      string
	Attempts     int
	LastError    string
	DispatchedAt *time.Time
	CreatedAt    time.Time
}

// IsDue reports whether a pending entry should be dispatched at now.
func (r *ReminderEntry) IsDue(now time.Time) bool {
	return r.Status == ReminderPending && !r.ScheduledAt.After(now)
}

// MarkSent records a successful dispatch.
func (r *ReminderEntry) MarkSent(now time.Time) error {
	if r.Status != ReminderPending {
		return fmt.Errorf("reminder %s is %s: %w", r.ID, r.Status, ErrInvalidState)
	}
	r.Status = ReminderSent
	r.Attempts++
	r.DispatchedAt = &now
	r.LastError = ""
	return nil
}

// MarkFailed records a terminal failure. FAILED entries are never requeued.
func (r *ReminderEntry) MarkFailed(reason string, now time.Time) error {
	if r.Status != ReminderPending {
		return fmt.Errorf("reminder %s is %s: %w", r.ID, r.Status, ErrInvalidState)
	}
	r.Status = ReminderFailed
	r.Attempts++
	r.DispatchedAt = &now
	r.LastError = reason
	return nil
}
