package service

import (
	"context"
	"time"

	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/alexanderramin/quitplan/internal/rule"
)

// MetricsSource aggregates a member's data over a phase window. Metrics the
// source cannot compute are left out of the snapshot.
type MetricsSource interface {
	Snapshot(ctx context.Context, memberID, phaseID string) (domain.MetricsSnapshot, error)
}

// CreatePlanRequest holds the inputs for starting a plan.
type CreatePlanRequest struct {
	MemberID  string
	Name      string
	StartDate time.Time
	UseNRT    bool
}

// CurrentPhase is the phase a plan is in today. Lapsed is set when today is
// past the window of the latest started phase and nothing has moved it on.
type CurrentPhase struct {
	Phase  *domain.Phase
	Lapsed bool
}

// DaySummary is the mission tally of one day of a phase window.
type DaySummary struct {
	Detail    *domain.PhaseDetail
	Completed int
	Total     int
}

// PhaseOverview is one phase with the counts of its current attempt.
type PhaseOverview struct {
	Phase     *domain.Phase
	Attempts  int
	Completed int
	Missed    int
	Total     int
	Days      []DaySummary
}

// PlanOverview is a plan with all of its phases.
type PlanOverview struct {
	Plan   *domain.QuitPlan
	Phases []PhaseOverview
}

type PlanService interface {
	CreatePlan(ctx context.Context, req CreatePlanRequest) (*domain.QuitPlan, error)
	AbandonPlan(ctx context.Context, planID string) (*domain.QuitPlan, error)
	GetPlan(ctx context.Context, planID string) (*domain.QuitPlan, error)
	GetActivePlan(ctx context.Context, memberID string) (*domain.QuitPlan, error)
	ListPlans(ctx context.Context, memberID string) ([]*domain.QuitPlan, error)
	ListActivePlans(ctx context.Context) ([]*domain.QuitPlan, error)
	GetCurrentPhase(ctx context.Context, planID string) (*CurrentPhase, error)
	GetPlanOverview(ctx context.Context, planID string) (*PlanOverview, error)
}

// EvaluationOutcome is what an advancement check did to the phase.
type EvaluationOutcome string

const (
	// OutcomeWaiting means the window has not elapsed yet.
	OutcomeWaiting EvaluationOutcome = "waiting"
	// OutcomeAdvanced means the phase closed and the next one started.
	OutcomeAdvanced EvaluationOutcome = "advanced"
	// OutcomePlanCompleted means the last phase closed and the plan completed.
	OutcomePlanCompleted EvaluationOutcome = "plan_completed"
	// OutcomeRedoEligible means the window elapsed with the conditions unmet.
	OutcomeRedoEligible EvaluationOutcome = "redo_eligible"
	// OutcomeUnchanged means the phase was not open for evaluation or was
	// already in the state the evaluation would have produced.
	OutcomeUnchanged EvaluationOutcome = "unchanged"
)

// Evaluation reports one EvaluatePhaseAdvancement call.
type Evaluation struct {
	PhaseID     string
	Outcome     EvaluationOutcome
	Result      rule.Combined
	Reason      string
	NextPhaseID *string
}

// RecordMissionRequest reports the outcome of one mission instance.
type RecordMissionRequest struct {
	MissionID string
	Outcome   domain.MissionStatus
	Notes     string
	Triggers  []string
}

// RecordMissionResult is the stored mission and the evaluation it caused.
type RecordMissionResult struct {
	Mission    *domain.PhaseDetailMission
	Evaluation *Evaluation
}

// TodayMissions is the mission set a member sees today.
type TodayMissions struct {
	Plan         *domain.QuitPlan
	Phase        *domain.Phase
	Detail       *domain.PhaseDetail
	Missions     []*domain.PhaseDetailMission
	Lapsed       bool
	Popup        bool
	PopupMessage string
}

// MissionHistoryEntry is one mission instance in a phase's audit view.
type MissionHistoryEntry = repository.MissionHistoryRow

type ProgressionService interface {
	RecordMissionCompletion(ctx context.Context, req RecordMissionRequest) (*RecordMissionResult, error)
	EvaluatePhaseAdvancement(ctx context.Context, phaseID string) (*Evaluation, error)
	EvaluatePlan(ctx context.Context, planID string) (*Evaluation, error)
	RedoPhase(ctx context.Context, phaseID string, anchorStart time.Time) (*domain.Phase, error)
	GetMissionsForToday(ctx context.Context, planID string) (*TodayMissions, error)
	ListMissionHistory(ctx context.Context, phaseID string) ([]MissionHistoryEntry, error)
	ListEvents(ctx context.Context, planID string) ([]*domain.PlanEvent, error)
	ListReminders(ctx context.Context, planID string) ([]*domain.ReminderEntry, error)
}

// EnqueueRequest schedules one reminder. Context supplies the values of the
// template's {key} placeholders.
type EnqueueRequest struct {
	AccountID   string
	Selector    domain.ReminderSelector
	ScheduledAt time.Time
	PlanID      string
	PhaseID     *string
	Context     map[string]string
}

// ReminderEnqueuer renders a template and queues the result inside the
// caller's transaction.
type ReminderEnqueuer interface {
	Enqueue(ctx context.Context, tx db.DBTX, req EnqueueRequest) (*domain.ReminderEntry, error)
}

// DiaryResult is the stored log and the evaluation it caused, if any.
type DiaryResult struct {
	Log        *domain.DiaryLog
	Evaluation *Evaluation
}

type DiaryService interface {
	Record(ctx context.Context, log *domain.DiaryLog) (*DiaryResult, error)
	List(ctx context.Context, memberID string, from, to time.Time) ([]*domain.DiaryLog, error)
}

type AccountService interface {
	// SetPushToken stores the member's push target, creating the account if
	// needed. An empty token clears it.
	SetPushToken(ctx context.Context, memberID, token string) (*domain.Account, error)
	GetAccount(ctx context.Context, memberID string) (*domain.Account, error)
}
