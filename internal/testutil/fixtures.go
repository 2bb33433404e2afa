package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/google/uuid"
)

var testMemberCounter atomic.Int64

// NewMemberID returns a unique member id for tests sharing a database.
func NewMemberID() string {
	return fmt.Sprintf("member-%03d", testMemberCounter.Add(1))
}

// Plan options
type PlanOption func(*domain.QuitPlan)

func WithPlanStatus(s domain.PlanStatus) PlanOption {
	return func(p *domain.QuitPlan) {
		p.Status = s
	}
}

func WithStartDate(d time.Time) PlanOption {
	return func(p *domain.QuitPlan) {
		p.StartDate = domain.DateOf(d)
	}
}

func WithUseNRT(use bool) PlanOption {
	return func(p *domain.QuitPlan) {
		p.UseNRT = use
	}
}

func NewTestPlan(memberID string, opts ...PlanOption) *domain.QuitPlan {
	now := time.Now().UTC()
	p := &domain.QuitPlan{
		ID:        uuid.New().String(),
		MemberID:  memberID,
		Name:      "Test plan",
		Status:    domain.PlanActive,
		StartDate: domain.DateOf(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Phase options
type PhaseOption func(*domain.Phase)

func WithPhaseStatus(s domain.PhaseStatus) PhaseOption {
	return func(p *domain.Phase) {
		p.Status = s
	}
}

func WithAnchor(d time.Time) PhaseOption {
	return func(p *domain.Phase) {
		p.AnchorStart = domain.DateOf(d)
	}
}

func WithDuration(days int) PhaseOption {
	return func(p *domain.Phase) {
		p.DurationDays = days
	}
}

func WithOrderIndex(i int) PhaseOption {
	return func(p *domain.Phase) {
		p.OrderIndex = i
	}
}

func NewTestPhase(planID string, kind domain.PhaseKind, opts ...PhaseOption) *domain.Phase {
	now := time.Now().UTC()
	p := &domain.Phase{
		ID:           uuid.New().String(),
		PlanID:       planID,
		Kind:         kind,
		AnchorStart:  domain.DateOf(now),
		DurationDays: 3,
		Status:       domain.PhasePendingStart,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mission options
type MissionOption func(*domain.Mission)

func WithDays(from, to int) MissionOption {
	return func(m *domain.Mission) {
		m.DayFrom = from
		m.DayTo = to
	}
}

func WithPosition(pos int) MissionOption {
	return func(m *domain.Mission) {
		m.Position = pos
	}
}

func WithRequiresNRT() MissionOption {
	return func(m *domain.Mission) {
		m.RequiresNRT = true
	}
}

func NewTestMission(code string, kind domain.PhaseKind, opts ...MissionOption) *domain.Mission {
	m := &domain.Mission{
		Code:        code,
		Name:        "Mission " + code,
		Description: "Do " + code,
		Category:    "general",
		PhaseKind:   kind,
		DayFrom:     1,
		UpdatedAt:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func NewTestCondition(name string, kind domain.PhaseKind, expression string) *domain.SystemPhaseCondition {
	return &domain.SystemPhaseCondition{
		ID:         uuid.New().String(),
		Name:       name,
		PhaseKind:  kind,
		Expression: expression,
		UpdatedAt:  time.Now().UTC(),
	}
}

func NewTestTemplate(kind domain.PhaseKind, rtype domain.ReminderType, trigger domain.TriggerCode, content string) *domain.ReminderTemplate {
	now := time.Now().UTC()
	return &domain.ReminderTemplate{
		ID:           uuid.New().String(),
		PhaseKind:    kind,
		ReminderType: rtype,
		TriggerCode:  trigger,
		Content:      content,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Diary options
type DiaryOption func(*domain.DiaryLog)

func WithCigarettes(n int) DiaryOption {
	return func(d *domain.DiaryLog) {
		d.CigarettesSmoked = &n
	}
}

func WithCraving(v float64) DiaryOption {
	return func(d *domain.DiaryLog) {
		d.CravingLevel = &v
	}
}

func WithMood(v float64) DiaryOption {
	return func(d *domain.DiaryLog) {
		d.Mood = &v
	}
}

func WithAnxiety(v float64) DiaryOption {
	return func(d *domain.DiaryLog) {
		d.Anxiety = &v
	}
}

func WithConfidence(v float64) DiaryOption {
	return func(d *domain.DiaryLog) {
		d.Confidence = &v
	}
}

func WithNRT() DiaryOption {
	return func(d *domain.DiaryLog) {
		d.UsedNRT = true
	}
}

func NewTestDiaryLog(memberID string, day time.Time, opts ...DiaryOption) *domain.DiaryLog {
	d := &domain.DiaryLog{
		ID:        uuid.New().String(),
		MemberID:  memberID,
		LogDate:   domain.DateOf(day),
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}
