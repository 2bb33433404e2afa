package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/quitplan/internal/domain"
)

// MissionContext is a mission instance joined with the day, attempt, phase
// and plan it belongs to.
type MissionContext struct {
	Mission   *domain.PhaseDetailMission
	DetailID  string
	AttemptID string
	DayIndex  int
	Date      time.Time
	PhaseID   string
	PlanID    string
}

// MissionHistoryRow is one mission instance in a phase's audit view.
type MissionHistoryRow struct {
	Mission   *domain.PhaseDetailMission
	AttemptID string
	AttemptNo int
	DayIndex  int
	Date      time.Time
}

// MissionCounts is completed/total mission instances for one attempt.
type MissionCounts struct {
	Completed int
	Missed    int
	Total     int
}

type PlanRepo interface {
	Create(ctx context.Context, p *domain.QuitPlan) error
	GetByID(ctx context.Context, id string) (*domain.QuitPlan, error)
	GetActiveByMember(ctx context.Context, memberID string) (*domain.QuitPlan, error)
	ListByMember(ctx context.Context, memberID string) ([]*domain.QuitPlan, error)
	ListActive(ctx context.Context) ([]*domain.QuitPlan, error)
	Update(ctx context.Context, p *domain.QuitPlan) error
}

type PhaseRepo interface {
	Create(ctx context.Context, p *domain.Phase) error
	GetByID(ctx context.Context, id string) (*domain.Phase, error)
	ListByPlan(ctx context.Context, planID string) ([]*domain.Phase, error)
	Update(ctx context.Context, p *domain.Phase) error
	UpdateIfStatus(ctx context.Context, p *domain.Phase, expected domain.PhaseStatus) (bool, error)
}

type PhaseAttemptRepo interface {
	Create(ctx context.Context, a *domain.PhaseAttempt) error
	GetByID(ctx context.Context, id string) (*domain.PhaseAttempt, error)
	ListByPhase(ctx context.Context, phaseID string) ([]*domain.PhaseAttempt, error)
	SetOutcome(ctx context.Context, id string, outcome domain.AttemptOutcome) error
}

type PhaseDetailRepo interface {
	CreateBatch(ctx context.Context, details []*domain.PhaseDetail) error
	GetByID(ctx context.Context, id string) (*domain.PhaseDetail, error)
	GetByAttemptDay(ctx context.Context, attemptID string, dayIndex int) (*domain.PhaseDetail, error)
	ListByAttempt(ctx context.Context, attemptID string) ([]*domain.PhaseDetail, error)
	DeleteUngenerated(ctx context.Context, attemptID string) (int64, error)
}

type MissionInstanceRepo interface {
	CreateBatch(ctx context.Context, missions []*domain.PhaseDetailMission) error
	GetByID(ctx context.Context, id string) (*domain.PhaseDetailMission, error)
	GetContext(ctx context.Context, id string) (*MissionContext, error)
	ListByDetail(ctx context.Context, detailID string) ([]*domain.PhaseDetailMission, error)
	ListHistoryByPhase(ctx context.Context, phaseID string) ([]MissionHistoryRow, error)
	CountByAttempt(ctx context.Context, attemptID string, through time.Time) (MissionCounts, error)
	RecordOutcome(ctx context.Context, m *domain.PhaseDetailMission) (bool, error)
}

type MissionRepo interface {
	Upsert(ctx context.Context, m *domain.Mission) error
	GetByCode(ctx context.Context, code string) (*domain.Mission, error)
	List(ctx context.Context) ([]domain.Mission, error)
	ListByPhaseKind(ctx context.Context, kind domain.PhaseKind) ([]domain.Mission, error)
}

type MissionTypeRepo interface {
	Upsert(ctx context.Context, mt *domain.MissionType) error
	List(ctx context.Context) ([]domain.MissionType, error)
}

type ConditionRepo interface {
	Upsert(ctx context.Context, c *domain.SystemPhaseCondition) error
	List(ctx context.Context) ([]domain.SystemPhaseCondition, error)
	ListByPhaseKind(ctx context.Context, kind domain.PhaseKind) ([]domain.SystemPhaseCondition, error)
}

type ReminderTemplateRepo interface {
	Upsert(ctx context.Context, t *domain.ReminderTemplate) error
	Find(ctx context.Context, sel domain.ReminderSelector) (*domain.ReminderTemplate, error)
	List(ctx context.Context) ([]domain.ReminderTemplate, error)
}

type BlueprintRepo interface {
	Replace(ctx context.Context, phases []domain.BlueprintPhase) error
	List(ctx context.Context) ([]domain.BlueprintPhase, error)
}

type ReminderQueueRepo interface {
	Create(ctx context.Context, r *domain.ReminderEntry) error
	GetByID(ctx context.Context, id string) (*domain.ReminderEntry, error)
	ListByPlan(ctx context.Context, planID string) ([]*domain.ReminderEntry, error)
	MarkResult(ctx context.Context, r *domain.ReminderEntry) (bool, error)
	ClaimDue(ctx context.Context, token string, now, staleBefore time.Time, limit int) ([]*domain.ReminderEntry, error)
	ReleaseClaims(ctx context.Context, token string) error
}

type AccountRepo interface {
	Ensure(ctx context.Context, memberID string, now time.Time) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByMember(ctx context.Context, memberID string) (*domain.Account, error)
	SetPushToken(ctx context.Context, memberID string, token *string) error
}

type DiaryRepo interface {
	Upsert(ctx context.Context, d *domain.DiaryLog) error
	GetByDate(ctx context.Context, memberID string, day time.Time) (*domain.DiaryLog, error)
	ListByMemberRange(ctx context.Context, memberID string, from, to time.Time) ([]*domain.DiaryLog, error)
	First(ctx context.Context, memberID string) (*domain.DiaryLog, error)
}

type EventRepo interface {
	Append(ctx context.Context, e *domain.PlanEvent) error
	ListByPlan(ctx context.Context, planID string) ([]*domain.PlanEvent, error)
}
