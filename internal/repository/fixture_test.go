package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/alexanderramin/quitplan/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

// planChain is a plan with one started phase, its first attempt and day one.
type planChain struct {
	plan    *domain.QuitPlan
	phase   *domain.Phase
	attempt *domain.PhaseAttempt
	detail  *domain.PhaseDetail
}

func seedPlanChain(t *testing.T, database *sql.DB) *planChain {
	t.Helper()
	ctx := context.Background()

	plan := testutil.NewTestPlan(testutil.NewMemberID(), testutil.WithStartDate(day1))
	require.NoError(t, repository.NewSQLitePlanRepo(database).Create(ctx, plan))

	phase := testutil.NewTestPhase(plan.ID, domain.PhasePreparation, testutil.WithAnchor(day1))
	require.NoError(t, repository.NewSQLitePhaseRepo(database).Create(ctx, phase))

	attempt := &domain.PhaseAttempt{
		ID:          uuid.New().String(),
		PhaseID:     phase.ID,
		AttemptNo:   1,
		AnchorStart: day1,
		Outcome:     domain.AttemptActive,
		CreatedAt:   testutil.Epoch,
	}
	require.NoError(t, repository.NewSQLitePhaseAttemptRepo(database).Create(ctx, attempt))
	require.NoError(t, phase.Start(attempt.ID, day1, testutil.Epoch))
	require.NoError(t, repository.NewSQLitePhaseRepo(database).Update(ctx, phase))

	detail := newDetail(phase, attempt, 1)
	require.NoError(t, repository.NewSQLitePhaseDetailRepo(database).CreateBatch(ctx, []*domain.PhaseDetail{detail}))

	return &planChain{plan: plan, phase: phase, attempt: attempt, detail: detail}
}

func newDetail(phase *domain.Phase, attempt *domain.PhaseAttempt, dayIndex int) *domain.PhaseDetail {
	return &domain.PhaseDetail{
		ID:        uuid.New().String(),
		PhaseID:   phase.ID,
		AttemptID: attempt.ID,
		DayIndex:  dayIndex,
		Date:      domain.AddDays(attempt.AnchorStart, dayIndex-1),
		Name:      domain.DetailName(dayIndex),
		CreatedAt: testutil.Epoch,
	}
}

func newInstance(detailID, code string, position int) *domain.PhaseDetailMission {
	return &domain.PhaseDetailMission{
		ID:            uuid.New().String(),
		PhaseDetailID: detailID,
		MissionCode:   code,
		Position:      position,
		Status:        domain.MissionPending,
		CreatedAt:     testutil.Epoch,
	}
}

func newReminder(accountID, planID string, scheduledAt time.Time) *domain.ReminderEntry {
	return &domain.ReminderEntry{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		PlanID:       planID,
		ReminderType: domain.ReminderMorning,
		TriggerCode:  domain.TriggerDailyMorning,
		ScheduledAt:  scheduledAt,
		Status:       domain.ReminderPending,
		Content:      "Good morning",
		CreatedAt:    testutil.Epoch,
	}
}
