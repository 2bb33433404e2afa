package domain

type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanAbandoned PlanStatus = "abandoned"
)

// IsTerminal reports whether no further lifecycle transition is possible.
func (s PlanStatus) IsTerminal() bool {
	return s == PlanCompleted || s == PlanAbandoned
}

type PhaseKind string

const (
	PhasePreparation PhaseKind = "PREPARATION"
	PhaseOnset       PhaseKind = "ONSET"
	PhasePeakCraving PhaseKind = "PEAK_CRAVING"
	PhaseSubsiding   PhaseKind = "SUBSIDING"
	PhaseMaintenance PhaseKind = "MAINTENANCE"
)

// ValidPhaseKinds is the canonical set of accepted phase kind strings.
var ValidPhaseKinds = map[PhaseKind]bool{
	PhasePreparation: true, PhaseOnset: true, PhasePeakCraving: true,
	PhaseSubsiding: true, PhaseMaintenance: true,
}

type PhaseStatus string

const (
	PhasePendingStart  PhaseStatus = "pending_start"
	PhaseInProgress    PhaseStatus = "in_progress"
	PhaseRedoEligible  PhaseStatus = "redo_eligible"
	PhaseAdvanced      PhaseStatus = "advanced"
	PhasePlanCompleted PhaseStatus = "plan_completed"
)

// IsStarted reports whether the phase has a materialized day window.
func (s PhaseStatus) IsStarted() bool {
	return s != PhasePendingStart
}

// IsOpen reports whether the phase can still change through evaluation.
func (s PhaseStatus) IsOpen() bool {
	return s == PhaseInProgress || s == PhaseRedoEligible
}

type AttemptOutcome string

const (
	AttemptActive    AttemptOutcome = "active"
	AttemptRedone    AttemptOutcome = "redone"
	AttemptAdvanced  AttemptOutcome = "advanced"
	AttemptCompleted AttemptOutcome = "completed"
)

type MissionStatus string

const (
	MissionPending   MissionStatus = "pending"
	MissionCompleted MissionStatus = "completed"
	MissionSkipped   MissionStatus = "skipped"
	MissionFailed    MissionStatus = "failed"
)

// IsTerminal reports whether the mission instance has left PENDING.
func (s MissionStatus) IsTerminal() bool {
	return s != MissionPending
}

// IsMissed reports whether the outcome counts as a missed mission.
func (s MissionStatus) IsMissed() bool {
	return s == MissionSkipped || s == MissionFailed
}

// ValidMissionOutcomes are the statuses a completion report may set.
var ValidMissionOutcomes = map[MissionStatus]bool{
	MissionCompleted: true, MissionSkipped: true, MissionFailed: true,
}

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
)

type ReminderType string

const (
	ReminderMorning  ReminderType = "MORNING"
	ReminderBehavior ReminderType = "BEHAVIOR"
	ReminderSmoked   ReminderType = "SMOKED"
)

// ValidReminderTypes is the canonical set of accepted reminder type strings.
var ValidReminderTypes = map[ReminderType]bool{
	ReminderMorning: true, ReminderBehavior: true, ReminderSmoked: true,
}

type TriggerCode string

const (
	TriggerPlanStarted    TriggerCode = "PLAN_STARTED"
	TriggerPhaseAdvanced  TriggerCode = "PHASE_ADVANCED"
	TriggerPhaseRestarted TriggerCode = "PHASE_RESTARTED"
	TriggerRedoEligible   TriggerCode = "REDO_ELIGIBLE"
	TriggerMissionMissed  TriggerCode = "MISSION_MISSED"
	TriggerPlanCompleted  TriggerCode = "PLAN_COMPLETED"
	TriggerDailyMorning   TriggerCode = "DAILY_MORNING"
)

// ValidTriggerCodes is the canonical set of accepted trigger code strings.
var ValidTriggerCodes = map[TriggerCode]bool{
	TriggerPlanStarted: true, TriggerPhaseAdvanced: true, TriggerPhaseRestarted: true,
	TriggerRedoEligible: true, TriggerMissionMissed: true, TriggerPlanCompleted: true,
	TriggerDailyMorning: true,
}

// ReminderType is the reminder type the trigger is delivered as.
func (t TriggerCode) ReminderType() ReminderType {
	switch t {
	case TriggerMissionMissed:
		return ReminderBehavior
	case TriggerRedoEligible:
		return ReminderSmoked
	default:
		return ReminderMorning
	}
}

type EventKind string

const (
	EventPlanStarted     EventKind = "plan_started"
	EventPlanAbandoned   EventKind = "plan_abandoned"
	EventPlanCompleted   EventKind = "plan_completed"
	EventPhaseAdvanced   EventKind = "phase_advanced"
	EventRedoEligible    EventKind = "redo_eligible"
	EventPhaseRestarted  EventKind = "phase_restarted"
	EventMissionRecorded EventKind = "mission_recorded"
	EventMissionMissed   EventKind = "mission_missed"
)
