package domain

import (
	"fmt"
	"time"
)

// DiaryLog is a member's self-reported day. Nil fields were not reported.
type DiaryLog struct {
	ID               string
	MemberID         string
	LogDate          time.Time
	CigarettesSmoked *int
	CravingLevel     *float64
	Mood             *float64
	Anxiety          *float64
	Confidence       *float64
	UsedNRT          bool
	CreatedAt        time.Time
}

// Validate checks ranges of the reported values.
func (d *DiaryLog) Validate() error {
	if d.MemberID == "" {
		return fmt.Errorf("diary log: member id is required")
	}
	if d.CigarettesSmoked != nil && *d.CigarettesSmoked < 0 {
		return fmt.Errorf("diary log: cigarettes smoked must be >= 0")
	}
	for name, v := range map[string]*float64{
		"craving level": d.CravingLevel,
		"mood":          d.Mood,
		"anxiety":       d.Anxiety,
		"confidence":    d.Confidence,
	} {
		if v != nil && (*v < 0 || *v > 10) {
			return fmt.Errorf("diary log: %s must be between 0 and 10", name)
		}
	}
	return nil
}

// Account owns reminders and holds the push target for a member.
type Account struct {
	ID        string
	MemberID  string
	PushToken *string
	CreatedAt time.Time
}

// HasTarget reports whether the account can receive push notifications.
func (a *Account) HasTarget() bool {
	return a.PushToken != nil && *a.PushToken != ""
}

// PlanEvent is an append-only audit record of a state machine event.
type PlanEvent struct {
	ID            string
	PlanID        string
	PhaseID       *string
	Kind          EventKind
	Detail        string
	ReminderID    *string
	ReminderError *string
	CreatedAt     time.Time
}
