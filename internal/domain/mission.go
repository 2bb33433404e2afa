package domain

import (
	"fmt"
	"time"
)

// MissionType groups mission templates (e.g. reflection, activity).
type MissionType struct {
	Code        string
	Name        string
	Description string
}

// Mission is a reusable template. DayFrom/DayTo bound the 1-based days of a
// phase window it applies to; DayTo == 0 leaves the range open.
type Mission struct {
	Code            string
	Name            string
	Description     string
	Category        string
	MissionTypeCode string
	PhaseKind       PhaseKind
	DayFrom         int
	DayTo           int
	Position        int
	RequiresNRT     bool
	UpdatedAt       time.Time
}

// AppliesTo reports whether the template is due on dayIndex of a phase of kind.
func (m *Mission) AppliesTo(kind PhaseKind, dayIndex int, useNRT bool) bool {
	if m.PhaseKind != kind {
		return false
	}
	if m.RequiresNRT && !useNRT {
		return false
	}
	from := m.DayFrom
	if from < 1 {
		from = 1
	}
	if dayIndex < from {
		return false
	}
	return m.DayTo == 0 || dayIndex <= m.DayTo
}

// PhaseDetailMission is one mission instance scheduled on a PhaseDetail.
type PhaseDetailMission struct {
	ID            string
	PhaseDetailID string
	MissionCode   string
	Position      int
	Status        MissionStatus
	CompletedAt   *time.Time
	Notes         string
	Triggers      []string
	CreatedAt     time.Time

	// Template fields joined for display.
	Name        string
	Description string
}

// Record stores the outcome. Terminal instances are immutable.
func (m *PhaseDetailMission) Record(outcome MissionStatus, notes string, triggers []string, now time.Time) error {
	if m.Status.IsTerminal() {
		return fmt.Errorf("mission %s already %s: %w", m.ID, m.Status, ErrConflict)
	}
	if !ValidMissionOutcomes[outcome] {
		return fmt.Errorf("invalid mission outcome %q", outcome)
	}
	m.Status = outcome
	m.CompletedAt = &now
	m.Notes = notes
	m.Triggers = append([]string(nil), triggers...)
	return nil
}
